package scoring

import "sitepulse/api/models"

// Inputs is everything the engine needs to score a session: the per-signal
// sums of stored event points plus the session's sticky engagement flags.
type Inputs struct {
	// EventPoints maps event type -> summed intent points across the
	// session's recorded events. Each event's points were fixed at
	// creation time, so the sum is stable under replays of this function.
	EventPoints map[string]int

	VisitedPricing   bool
	VisitedServices  bool
	VisitedPortfolio bool
	VisitedContact   bool
	StartedForm      bool
	CompletedForm    bool
	ClickedCTA       bool
	WatchedVideo     bool
}

// Result is a 0-100 score, its categorical level, and the per-signal
// breakdown that explains it.
type Result struct {
	Score     float64            `json:"score"`
	Level     models.IntentLevel `json:"level"`
	Breakdown map[string]int     `json:"breakdown"`
}

// InputsFromSession builds engine inputs from a session row and the
// per-signal event point sums its store reported.
func InputsFromSession(s *models.VisitorSession, eventPoints map[string]int) Inputs {
	return Inputs{
		EventPoints:      eventPoints,
		VisitedPricing:   s.VisitedPricing,
		VisitedServices:  s.VisitedServices,
		VisitedPortfolio: s.VisitedPortfolio,
		VisitedContact:   s.VisitedContact,
		StartedForm:      s.StartedForm,
		CompletedForm:    s.CompletedForm,
		ClickedCTA:       s.ClickedCTA,
		WatchedVideo:     s.WatchedVideo,
	}
}

// Calculate scores a session with the default thresholds. This is the one
// scoring function in the system: event recording persists its output and
// the session detail endpoint re-runs it for display, so the stored score
// and the displayed breakdown can never drift apart.
func Calculate(in Inputs) Result {
	return CalculateWith(in, DefaultThresholds)
}

// CalculateWith sums event points and flag bonuses into a breakdown, clamps
// the total to [0,100] after all additions, and classifies the level.
// A session with no events and no flags scores 0 / cold with an empty
// breakdown.
func CalculateWith(in Inputs, th Thresholds) Result {
	breakdown := make(map[string]int, len(in.EventPoints)+8)
	total := 0

	for signal, pts := range in.EventPoints {
		if pts == 0 {
			continue
		}
		breakdown[signal] = pts
		total += pts
	}

	for _, fb := range []struct {
		set    bool
		signal string
		bonus  int
	}{
		{in.VisitedPricing, "visited_pricing", BonusVisitedPricing},
		{in.VisitedContact, "visited_contact", BonusVisitedContact},
		{in.VisitedServices, "visited_services", BonusVisitedServices},
		{in.VisitedPortfolio, "visited_portfolio", BonusVisitedPortfolio},
		{in.StartedForm, "started_form", BonusStartedForm},
		{in.CompletedForm, "completed_form", BonusCompletedForm},
		{in.ClickedCTA, "clicked_cta", BonusClickedCTA},
		{in.WatchedVideo, "watched_video", BonusWatchedVideo},
	} {
		if fb.set {
			breakdown[fb.signal] = fb.bonus
			total += fb.bonus
		}
	}

	score := clamp(float64(total), 0, 100)
	return Result{
		Score:     score,
		Level:     Classify(score, in.CompletedForm, th),
		Breakdown: breakdown,
	}
}

// Classify maps a score to its level band. Levels are strictly ordered
// cold < warm < hot < qualified. Form completion is a hard gate on the top
// band: without it a session never classifies qualified regardless of
// score, and with it a session classifies at least hot.
func Classify(score float64, completedForm bool, th Thresholds) models.IntentLevel {
	if completedForm {
		if score >= th.Qualified {
			return models.LevelQualified
		}
		return models.LevelHot
	}
	switch {
	case score >= th.Hot:
		return models.LevelHot
	case score >= th.Warm:
		return models.LevelWarm
	default:
		return models.LevelCold
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
