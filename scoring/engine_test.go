package scoring

import (
	"testing"

	"sitepulse/api/models"
)

func TestCalculateZeroActivity(t *testing.T) {
	result := Calculate(Inputs{})
	if result.Score != 0 {
		t.Fatalf("zero-activity score = %v, want 0", result.Score)
	}
	if result.Level != models.LevelCold {
		t.Fatalf("zero-activity level = %v, want cold", result.Level)
	}
	if len(result.Breakdown) != 0 {
		t.Fatalf("zero-activity breakdown = %v, want empty", result.Breakdown)
	}
}

func TestCalculateRoundTrip(t *testing.T) {
	// Score must equal clamp(sum(event points) + sum(flag bonuses), 0, 100).
	in := Inputs{
		EventPoints: map[string]int{
			"page_view": 11,
			"click":     6,
		},
		VisitedPricing: true, // +10
		StartedForm:    true, // +15
	}
	result := Calculate(in)
	want := float64(11 + 6 + 10 + 15)
	if result.Score != want {
		t.Fatalf("score = %v, want %v", result.Score, want)
	}
	sum := 0
	for _, pts := range result.Breakdown {
		sum += pts
	}
	if float64(sum) != want {
		t.Fatalf("breakdown sums to %d, want %v", sum, want)
	}
}

func TestCalculateClampsAtHundred(t *testing.T) {
	in := Inputs{
		EventPoints: map[string]int{
			"form_submit": 150,
			"cta_click":   80,
		},
		CompletedForm: true,
		ClickedCTA:    true,
	}
	result := Calculate(in)
	if result.Score != 100 {
		t.Fatalf("score = %v, want clamp to 100", result.Score)
	}
	if result.Level != models.LevelQualified {
		t.Fatalf("level = %v, want qualified", result.Level)
	}
}

func TestCalculateFormSubmitPlusCTAScenario(t *testing.T) {
	// A single form_submit event (50 pts) on a session with clicked_cta
	// latched (+20) scores 70. completed_form is a separate session flag
	// and is NOT implied by the form_submit event, so the session lands
	// in the hot band, not qualified.
	in := Inputs{
		EventPoints: map[string]int{"form_submit": 50},
		ClickedCTA:  true,
	}
	result := Calculate(in)
	if result.Score != 70 {
		t.Fatalf("score = %v, want 70", result.Score)
	}
	if result.Level != models.LevelHot {
		t.Fatalf("level = %v, want hot", result.Level)
	}
	if result.Breakdown["form_submit"] != 50 || result.Breakdown["clicked_cta"] != 20 {
		t.Fatalf("breakdown = %v, want form_submit=50 clicked_cta=20", result.Breakdown)
	}
	if _, ok := result.Breakdown["completed_form"]; ok {
		t.Fatal("completed_form appeared in breakdown without the flag set")
	}
}

func TestCompletedFormGate(t *testing.T) {
	// completed_form never classifies below hot, and qualified requires it.
	for score := 0.0; score <= 100; score += 5 {
		level := Classify(score, true, DefaultThresholds)
		if level == models.LevelCold || level == models.LevelWarm {
			t.Fatalf("Classify(%v, completedForm=true) = %v, want at least hot", score, level)
		}
		if score >= DefaultThresholds.Qualified && level != models.LevelQualified {
			t.Fatalf("Classify(%v, completedForm=true) = %v, want qualified", score, level)
		}
	}
	for score := 0.0; score <= 100; score += 5 {
		if level := Classify(score, false, DefaultThresholds); level == models.LevelQualified {
			t.Fatalf("Classify(%v, completedForm=false) = qualified, want gate closed", score)
		}
	}
}

func TestClassifyBands(t *testing.T) {
	cases := []struct {
		score float64
		want  models.IntentLevel
	}{
		{0, models.LevelCold},
		{24.99, models.LevelCold},
		{25, models.LevelWarm},
		{49.99, models.LevelWarm},
		{50, models.LevelHot},
		{100, models.LevelHot}, // no form completion, gate closed
	}
	for _, tc := range cases {
		if got := Classify(tc.score, false, DefaultThresholds); got != tc.want {
			t.Errorf("Classify(%v, false) = %v, want %v", tc.score, got, tc.want)
		}
	}
}

func TestCalculateNeverNegative(t *testing.T) {
	// Event types outside the point table contribute 0, and nothing in
	// the tables is negative, but the clamp still guards the floor.
	in := Inputs{EventPoints: map[string]int{"visibility_change": 0}}
	result := Calculate(in)
	if result.Score < 0 || result.Score > 100 {
		t.Fatalf("score %v outside [0,100]", result.Score)
	}
	if len(result.Breakdown) != 0 {
		t.Fatalf("zero-point signals should not appear in breakdown, got %v", result.Breakdown)
	}
}

func TestFlagBonusesCountOnce(t *testing.T) {
	// Flags are one-way latches: the bonus is fixed regardless of how
	// often the behavior recurred, so two identical inputs agree exactly.
	in := Inputs{WatchedVideo: true, ClickedCTA: true}
	first := Calculate(in)
	second := Calculate(in)
	if first.Score != second.Score {
		t.Fatalf("recalculation changed score: %v vs %v", first.Score, second.Score)
	}
	if first.Score != float64(BonusWatchedVideo+BonusClickedCTA) {
		t.Fatalf("score = %v, want %d", first.Score, BonusWatchedVideo+BonusClickedCTA)
	}
}
