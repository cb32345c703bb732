package store

import (
	"context"
	"testing"

	"sitepulse/api/models"
)

func openTestPageView(ctx context.Context, t *testing.T, sessions *SessionStore, pageViews *PageViewStore, visitorID, path string) *models.PageView {
	t.Helper()
	session, err := sessions.Create(ctx, CreateSessionInput{VisitorID: visitorID})
	if err != nil {
		t.Fatalf("Create session: %v", err)
	}
	pv, err := pageViews.Open(ctx, session, OpenPageViewInput{URL: "https://example.com" + path, Path: path})
	if err != nil {
		t.Fatalf("Open page view: %v", err)
	}
	return pv
}

func TestUpdateEngagementScrollMaxMonotonic(t *testing.T) {
	db := testDB(t)
	log := testLogger(t)
	sessions := NewSessionStore(db, nil, log)
	pageViews := NewPageViewStore(db, sessions, log)
	ctx := context.Background()

	pv := openTestPageView(ctx, t, sessions, pageViews, "test-visitor-scroll-max", "/services")

	pv, err := pageViews.UpdateEngagement(ctx, pv.ID, EngagementMetrics{
		TimeDeltaSeconds: 5,
		ScrollDepth:      80,
		ScrollCount:      2,
	})
	if err != nil {
		t.Fatalf("UpdateEngagement: %v", err)
	}
	if pv.ScrollDepthMax != 80 {
		t.Fatalf("scroll_depth_max = %d, want 80", pv.ScrollDepthMax)
	}
	if !pv.Interacted {
		t.Fatal("interacted = false after a scroll beacon")
	}

	// A lower incoming depth updates the current position but never the max.
	pv, err = pageViews.UpdateEngagement(ctx, pv.ID, EngagementMetrics{
		TimeDeltaSeconds: 3,
		ScrollDepth:      30,
		ScrollCount:      1,
	})
	if err != nil {
		t.Fatalf("UpdateEngagement: %v", err)
	}
	if pv.ScrollDepth != 30 {
		t.Fatalf("scroll_depth = %d, want 30", pv.ScrollDepth)
	}
	if pv.ScrollDepthMax != 80 {
		t.Fatalf("scroll_depth_max dropped to %d after lower beacon, want 80", pv.ScrollDepthMax)
	}
}

func TestMarkAsExitIsTerminal(t *testing.T) {
	db := testDB(t)
	log := testLogger(t)
	sessions := NewSessionStore(db, nil, log)
	pageViews := NewPageViewStore(db, sessions, log)
	ctx := context.Background()

	pv := openTestPageView(ctx, t, sessions, pageViews, "test-visitor-exit", "/blog/post")

	// No interaction and under 10 seconds of dwell: the exit marks a bounce.
	pv, err := pageViews.MarkAsExit(ctx, pv.ID, "https://example.com/elsewhere")
	if err != nil {
		t.Fatalf("MarkAsExit: %v", err)
	}
	if !pv.Bounced {
		t.Fatal("bounced = false for an uninteracted sub-10s page view")
	}
	if !pv.IsExitPage || pv.ExitedAt == nil {
		t.Fatalf("exit fields = is_exit_page:%v exited_at:%v", pv.IsExitPage, pv.ExitedAt)
	}
	frozenTime := pv.TimeOnPageSeconds
	frozenMax := pv.ScrollDepthMax

	// A late engagement beacon must leave the frozen row untouched: no
	// counter drift, no interaction latch, and bounced stays set.
	pv, err = pageViews.UpdateEngagement(ctx, pv.ID, EngagementMetrics{
		TimeDeltaSeconds: 120,
		ScrollDepth:      90,
		ClickCount:       3,
	})
	if err != nil {
		t.Fatalf("UpdateEngagement after exit: %v", err)
	}
	if !pv.Bounced {
		t.Fatal("bounced was cleared by a post-exit beacon")
	}
	if pv.TimeOnPageSeconds != frozenTime {
		t.Fatalf("time_on_page_seconds moved from %d to %d after exit", frozenTime, pv.TimeOnPageSeconds)
	}
	if pv.ScrollDepthMax != frozenMax {
		t.Fatalf("scroll_depth_max moved from %d to %d after exit", frozenMax, pv.ScrollDepthMax)
	}
	if pv.Interacted {
		t.Fatal("interacted latched by a post-exit beacon")
	}

	// A second exit is a no-op returning the frozen row.
	again, err := pageViews.MarkAsExit(ctx, pv.ID, "https://example.com/other")
	if err != nil {
		t.Fatalf("second MarkAsExit: %v", err)
	}
	if again.TimeOnPageSeconds != frozenTime || !again.Bounced {
		t.Fatalf("second exit changed the row: time %d bounced %v", again.TimeOnPageSeconds, again.Bounced)
	}
}
