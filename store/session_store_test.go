package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	_ "github.com/lib/pq"

	"sitepulse/api/logger"
	"sitepulse/api/models"
)

func TestFlagsForPageType(t *testing.T) {
	cases := []struct {
		pageType models.PageType
		want     EngagementFlags
	}{
		{models.PagePricing, EngagementFlags{VisitedPricing: true}},
		{models.PageServices, EngagementFlags{VisitedServices: true}},
		{models.PagePortfolio, EngagementFlags{VisitedPortfolio: true}},
		{models.PageContact, EngagementFlags{VisitedContact: true}},
		{models.PageHome, EngagementFlags{}},
		{models.PageBlog, EngagementFlags{}},
	}
	for _, tc := range cases {
		if got := FlagsForPageType(tc.pageType); got != tc.want {
			t.Errorf("FlagsForPageType(%s) = %+v, want %+v", tc.pageType, got, tc.want)
		}
	}
}

func TestFlagsForEvent(t *testing.T) {
	cases := []struct {
		eventType models.EventType
		want      EngagementFlags
	}{
		{models.EventFormStart, EngagementFlags{StartedForm: true}},
		{models.EventCTAClick, EngagementFlags{ClickedCTA: true}},
		{models.EventVideoPlay, EngagementFlags{WatchedVideo: true}},
		{models.EventVideoComplete, EngagementFlags{WatchedVideo: true}},
		{models.EventClick, EngagementFlags{}},
		// form_submit records the interaction; the completed_form latch is
		// only set by the explicit form-completed beacon.
		{models.EventFormSubmit, EngagementFlags{}},
	}
	for _, tc := range cases {
		if got := FlagsForEvent(tc.eventType); got != tc.want {
			t.Errorf("FlagsForEvent(%s) = %+v, want %+v", tc.eventType, got, tc.want)
		}
	}
}

func TestEngagementFlagsAny(t *testing.T) {
	if (EngagementFlags{}).any() {
		t.Fatal("empty flags reported any() = true")
	}
	if !(EngagementFlags{WatchedVideo: true}).any() {
		t.Fatal("set flag reported any() = false")
	}
}

// testDB opens the database named by TEST_DATABASE_URL, skipping the test
// when it is not configured. The schema from schema/postgres.sql must be
// applied.
func testDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Fatalf("failed to ping test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("")
	if err != nil {
		t.Fatalf("failed to build logger: %v", err)
	}
	return log
}

func TestSessionLifecycle(t *testing.T) {
	db := testDB(t)
	store := NewSessionStore(db, nil, testLogger(t))
	ctx := context.Background()

	session, err := store.Create(ctx, CreateSessionInput{
		VisitorID:   "test-visitor-lifecycle",
		Referrer:    "https://www.google.com/search",
		LandingPage: "/pricing",
		UTMMedium:   "",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if session.Status != models.SessionActive {
		t.Errorf("new session status = %s, want active", session.Status)
	}
	if session.ReferrerType != models.ReferrerOrganic {
		t.Errorf("referrer type = %s, want organic", session.ReferrerType)
	}
	if len(session.SessionToken) != 64 {
		t.Errorf("session token length = %d, want 64", len(session.SessionToken))
	}

	got, err := store.GetByToken(ctx, session.SessionToken)
	if err != nil {
		t.Fatalf("GetByToken: %v", err)
	}
	if got.ID != session.ID {
		t.Fatalf("GetByToken returned session %d, want %d", got.ID, session.ID)
	}

	if _, err := store.GetByToken(ctx, "no-such-token"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetByToken(unknown) error = %v, want ErrNotFound", err)
	}

	// Flags latch one way: a second write with all-false flags is a no-op.
	if err := store.SetEngagementFlags(ctx, session.ID, EngagementFlags{StartedForm: true}); err != nil {
		t.Fatalf("SetEngagementFlags: %v", err)
	}
	if err := store.SetEngagementFlags(ctx, session.ID, EngagementFlags{ClickedCTA: true}); err != nil {
		t.Fatalf("SetEngagementFlags: %v", err)
	}
	got, err = store.GetByID(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !got.StartedForm || !got.ClickedCTA {
		t.Fatalf("flags = started_form:%v clicked_cta:%v, want both true", got.StartedForm, got.ClickedCTA)
	}

	if err := store.End(ctx, session.ID); err != nil {
		t.Fatalf("End: %v", err)
	}
	got, err = store.GetByID(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetByID after end: %v", err)
	}
	if got.Status != models.SessionEnded || got.EndedAt == nil {
		t.Fatalf("ended session = status:%s ended_at:%v", got.Status, got.EndedAt)
	}
	if got.TotalTimeSeconds < 0 {
		t.Fatalf("total_time_seconds = %d, want non-negative", got.TotalTimeSeconds)
	}

	// Ended is terminal: counters and touches no longer apply.
	endedAt := *got.EndedAt
	if err := store.IncrementPageViews(ctx, session.ID); err != nil {
		t.Fatalf("IncrementPageViews after end: %v", err)
	}
	if err := store.Touch(ctx, session.ID); err != nil {
		t.Fatalf("Touch after end: %v", err)
	}
	got, err = store.GetByID(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != models.SessionEnded {
		t.Fatalf("status after post-end beacons = %s, want ended", got.Status)
	}
	if got.PageViewsCount != 0 {
		t.Fatalf("page_views_count after post-end increment = %d, want 0", got.PageViewsCount)
	}
	if !got.EndedAt.Equal(endedAt) {
		t.Fatalf("ended_at moved from %v to %v", endedAt, got.EndedAt)
	}
}

func TestMarkStaleIdle(t *testing.T) {
	db := testDB(t)
	store := NewSessionStore(db, nil, testLogger(t))
	ctx := context.Background()

	session, err := store.Create(ctx, CreateSessionInput{VisitorID: "test-visitor-stale"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Fresh session is inside any reasonable window.
	if _, err := store.MarkStaleIdle(ctx, time.Hour); err != nil {
		t.Fatalf("MarkStaleIdle: %v", err)
	}
	got, err := store.GetByID(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != models.SessionActive {
		t.Fatalf("fresh session swept to %s", got.Status)
	}

	// Backdate the activity timestamp past the window and sweep again.
	if _, err := db.ExecContext(ctx,
		`UPDATE visitor_sessions SET last_activity_at = NOW() - INTERVAL '2 hours' WHERE id = $1`,
		session.ID); err != nil {
		t.Fatalf("backdate: %v", err)
	}
	if _, err := store.MarkStaleIdle(ctx, time.Hour); err != nil {
		t.Fatalf("MarkStaleIdle: %v", err)
	}
	got, err = store.GetByID(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != models.SessionIdle {
		t.Fatalf("stale session status = %s, want idle", got.Status)
	}
}
