package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"sitepulse/api/logger"
	"sitepulse/api/models"
	"sitepulse/api/utils"
)

// sessionColumns is the canonical column list every session SELECT uses,
// kept in one place so scanSession stays in sync.
const sessionColumns = `
	id, uuid, visitor_id, session_token,
	referrer, referrer_domain, referrer_type, landing_page,
	utm_source, utm_medium, utm_campaign, utm_term, utm_content,
	device_type, browser, os, country, region, city, locale,
	page_views_count, events_count, total_time_seconds, engaged_time_seconds,
	scroll_depth_avg, scroll_depth_max,
	intent_score, intent_level, intent_signals,
	visited_pricing, visited_services, visited_portfolio, visited_contact,
	started_form, completed_form, clicked_cta, watched_video,
	status, lead_id, started_at, last_activity_at, ended_at,
	created_at, updated_at`

type SessionStore struct {
	db  *sql.DB
	hot *HotStore
	log *logger.Logger
}

// NewSessionStore creates a session store. hot may be nil when Redis is not
// configured; score persistence then skips the leaderboard.
func NewSessionStore(db *sql.DB, hot *HotStore, log *logger.Logger) *SessionStore {
	return &SessionStore{db: db, hot: hot, log: log.With("store", "sessions")}
}

type CreateSessionInput struct {
	VisitorID    string
	Referrer     string
	ReferrerType models.ReferrerType
	LandingPage  string
	UTMSource    string
	UTMMedium    string
	UTMCampaign  string
	UTMTerm      string
	UTMContent   string
	DeviceType   string
	Browser      string
	OS           string
	Country      string
	Region       string
	City         string
	Locale       string
}

// Create opens a new session: fresh uuid, crypto-random session token,
// attribution classified from the referrer when the client did not supply
// a type, started_at = last_activity_at = now, status active.
func (s *SessionStore) Create(ctx context.Context, in CreateSessionInput) (*models.VisitorSession, error) {
	if strings.TrimSpace(in.VisitorID) == "" {
		return nil, fmt.Errorf("%w: visitor_id is required", ErrValidation)
	}

	token, err := utils.GenerateSessionToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session token: %w", err)
	}

	refType := in.ReferrerType
	if refType == "" {
		refType = models.ClassifyReferrer(in.Referrer, in.UTMMedium)
	}

	query := `
		INSERT INTO visitor_sessions (
			uuid, visitor_id, session_token,
			referrer, referrer_domain, referrer_type, landing_page,
			utm_source, utm_medium, utm_campaign, utm_term, utm_content,
			device_type, browser, os, country, region, city, locale,
			intent_level, status, started_at, last_activity_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
			$13, $14, $15, $16, $17, $18, $19, $20, $21, NOW(), NOW()
		)
		RETURNING ` + sessionColumns

	row := s.db.QueryRowContext(ctx, query,
		uuid.New().String(), in.VisitorID, token,
		in.Referrer, models.ReferrerDomainOf(in.Referrer), refType, in.LandingPage,
		in.UTMSource, in.UTMMedium, in.UTMCampaign, in.UTMTerm, in.UTMContent,
		in.DeviceType, in.Browser, in.OS, in.Country, in.Region, in.City, in.Locale,
		models.LevelCold, models.SessionActive,
	)

	session, err := scanSession(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	s.log.Debug("session created", "uuid", session.UUID, "visitor", session.VisitorID)
	return session, nil
}

func (s *SessionStore) GetByToken(ctx context.Context, token string) (*models.VisitorSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM visitor_sessions WHERE session_token = $1`
	session, err := scanSession(s.db.QueryRowContext(ctx, query, token))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: session token", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session by token: %w", err)
	}
	return session, nil
}

func (s *SessionStore) GetByUUID(ctx context.Context, u string) (*models.VisitorSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM visitor_sessions WHERE uuid = $1`
	session, err := scanSession(s.db.QueryRowContext(ctx, query, u))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: session %s", ErrNotFound, u)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session by uuid: %w", err)
	}
	return session, nil
}

func (s *SessionStore) GetByID(ctx context.Context, id int64) (*models.VisitorSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM visitor_sessions WHERE id = $1`
	session, err := scanSession(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: session %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session by id: %w", err)
	}
	return session, nil
}

// Touch refreshes last_activity_at and flips an idle session back to
// active. Called on every inbound beacon; idempotent. Ended sessions are
// terminal and stay untouched.
func (s *SessionStore) Touch(ctx context.Context, id int64) error {
	query := `
		UPDATE visitor_sessions
		SET last_activity_at = NOW(), status = $2, updated_at = NOW()
		WHERE id = $1 AND status <> $3`
	if _, err := s.db.ExecContext(ctx, query, id, models.SessionActive, models.SessionEnded); err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}
	return nil
}

func (s *SessionStore) MarkIdle(ctx context.Context, id int64) error {
	query := `
		UPDATE visitor_sessions
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = $3`
	if _, err := s.db.ExecContext(ctx, query, id, models.SessionIdle, models.SessionActive); err != nil {
		return fmt.Errorf("failed to mark session idle: %w", err)
	}
	return nil
}

// MarkStaleIdle flips every active session whose last activity is older
// than the window to idle. Called by the periodic sweep.
func (s *SessionStore) MarkStaleIdle(ctx context.Context, window time.Duration) (int64, error) {
	query := `
		UPDATE visitor_sessions
		SET status = $1, updated_at = NOW()
		WHERE status = $2 AND last_activity_at < NOW() - $3::interval`
	res, err := s.db.ExecContext(ctx, query,
		models.SessionIdle, models.SessionActive, fmt.Sprintf("%d seconds", int(window.Seconds())))
	if err != nil {
		return 0, fmt.Errorf("failed to mark stale sessions idle: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// End closes the session and freezes total_time_seconds as the absolute
// distance from started_at to now. The ABS guards against client clock
// skew producing negative durations. Ended is terminal: the guard clause
// keeps a second End (or any later counter update) from recomputing it.
func (s *SessionStore) End(ctx context.Context, id int64) error {
	query := `
		UPDATE visitor_sessions
		SET status = $2,
		    ended_at = NOW(),
		    total_time_seconds = ABS(EXTRACT(EPOCH FROM (NOW() - started_at)))::int,
		    updated_at = NOW()
		WHERE id = $1 AND status <> $2`
	if _, err := s.db.ExecContext(ctx, query, id, models.SessionEnded); err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}
	return nil
}

// LinkToLead attaches the session to a lead. One-way: re-linking to a
// different lead is allowed (a visitor may re-enter the funnel) but the
// link is never cleared.
func (s *SessionStore) LinkToLead(ctx context.Context, id int64, leadID int64) error {
	query := `UPDATE visitor_sessions SET lead_id = $2, updated_at = NOW() WHERE id = $1`
	res, err := s.db.ExecContext(ctx, query, id, leadID)
	if err != nil {
		return fmt.Errorf("failed to link session to lead: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: session %d", ErrNotFound, id)
	}
	return nil
}

// IncrementPageViews and IncrementEvents are single-statement atomic adds:
// concurrent beacons for the same session must not lose updates, so the
// increment happens in the database, never read-modify-write in Go.
func (s *SessionStore) IncrementPageViews(ctx context.Context, id int64) error {
	query := `
		UPDATE visitor_sessions
		SET page_views_count = page_views_count + 1, updated_at = NOW()
		WHERE id = $1 AND status <> $2`
	if _, err := s.db.ExecContext(ctx, query, id, models.SessionEnded); err != nil {
		return fmt.Errorf("failed to increment page views: %w", err)
	}
	return nil
}

func (s *SessionStore) IncrementEvents(ctx context.Context, id int64) error {
	query := `
		UPDATE visitor_sessions
		SET events_count = events_count + 1, updated_at = NOW()
		WHERE id = $1 AND status <> $2`
	if _, err := s.db.ExecContext(ctx, query, id, models.SessionEnded); err != nil {
		return fmt.Errorf("failed to increment events: %w", err)
	}
	return nil
}

// ApplyPageViewAggregates folds one page view's engagement deltas into the
// session's running counters. Time counters are additive, the scroll max is
// compare-and-set via GREATEST, and the scroll average is recomputed from
// the child rows at write time so concurrent beacons cannot corrupt it.
func (s *SessionStore) ApplyPageViewAggregates(ctx context.Context, id int64, timeDelta, engagedDelta, scrollDepth int) error {
	query := `
		UPDATE visitor_sessions
		SET total_time_seconds = total_time_seconds + $2,
		    engaged_time_seconds = engaged_time_seconds + $3,
		    scroll_depth_max = GREATEST(scroll_depth_max, $4),
		    scroll_depth_avg = COALESCE((
		        SELECT AVG(scroll_depth_max) FROM page_views WHERE session_id = $1
		    ), 0),
		    last_activity_at = NOW(),
		    updated_at = NOW()
		WHERE id = $1 AND status <> $5`
	if _, err := s.db.ExecContext(ctx, query, id, timeDelta, engagedDelta, scrollDepth, models.SessionEnded); err != nil {
		return fmt.Errorf("failed to apply page view aggregates: %w", err)
	}
	return nil
}

// EngagementFlags carries latch writes for the session's sticky booleans.
// Only true values have any effect: the SQL ORs each flag, so a flag that
// is already true can never be reset from here or anywhere else.
type EngagementFlags struct {
	VisitedPricing   bool
	VisitedServices  bool
	VisitedPortfolio bool
	VisitedContact   bool
	StartedForm      bool
	CompletedForm    bool
	ClickedCTA       bool
	WatchedVideo     bool
}

// FlagsForPageType returns the visited_* latch a page view of the given
// type should set, if any.
func FlagsForPageType(t models.PageType) EngagementFlags {
	return EngagementFlags{
		VisitedPricing:   t == models.PagePricing,
		VisitedServices:  t == models.PageServices,
		VisitedPortfolio: t == models.PagePortfolio,
		VisitedContact:   t == models.PageContact,
	}
}

// FlagsForEvent returns the session latches implied by an event type.
// form_submit deliberately does not set completed_form: that flag is only
// set by the explicit form-completed beacon.
func FlagsForEvent(t models.EventType) EngagementFlags {
	return EngagementFlags{
		StartedForm:  t == models.EventFormStart,
		ClickedCTA:   t == models.EventCTAClick,
		WatchedVideo: t == models.EventVideoPlay || t == models.EventVideoComplete,
	}
}

func (f EngagementFlags) any() bool {
	return f.VisitedPricing || f.VisitedServices || f.VisitedPortfolio ||
		f.VisitedContact || f.StartedForm || f.CompletedForm ||
		f.ClickedCTA || f.WatchedVideo
}

func (s *SessionStore) SetEngagementFlags(ctx context.Context, id int64, f EngagementFlags) error {
	if !f.any() {
		return nil
	}
	query := `
		UPDATE visitor_sessions
		SET visited_pricing = visited_pricing OR $2,
		    visited_services = visited_services OR $3,
		    visited_portfolio = visited_portfolio OR $4,
		    visited_contact = visited_contact OR $5,
		    started_form = started_form OR $6,
		    completed_form = completed_form OR $7,
		    clicked_cta = clicked_cta OR $8,
		    watched_video = watched_video OR $9,
		    updated_at = NOW()
		WHERE id = $1`
	if _, err := s.db.ExecContext(ctx, query, id,
		f.VisitedPricing, f.VisitedServices, f.VisitedPortfolio, f.VisitedContact,
		f.StartedForm, f.CompletedForm, f.ClickedCTA, f.WatchedVideo); err != nil {
		return fmt.Errorf("failed to set engagement flags: %w", err)
	}
	return nil
}

// UpdateIntentScore persists a scoring result. Last writer wins; the
// engine is deterministic over the session's state so concurrent writers
// converge. Also maintains the Redis hot-session leaderboard when
// configured.
func (s *SessionStore) UpdateIntentScore(ctx context.Context, session *models.VisitorSession, score float64, level models.IntentLevel, breakdown map[string]int) error {
	signals, err := json.Marshal(breakdown)
	if err != nil {
		return fmt.Errorf("failed to marshal intent signals: %w", err)
	}
	query := `
		UPDATE visitor_sessions
		SET intent_score = $2, intent_level = $3, intent_signals = $4, updated_at = NOW()
		WHERE id = $1`
	if _, err := s.db.ExecContext(ctx, query, session.ID, score, level, signals); err != nil {
		return fmt.Errorf("failed to update intent score: %w", err)
	}

	if s.hot != nil {
		if err := s.hot.Update(ctx, session.UUID, score, level); err != nil {
			s.log.Warn("hot leaderboard update failed", "uuid", session.UUID, "err", err)
		}
	}
	return nil
}

// ListHot returns the highest-scoring hot/qualified sessions in the window,
// the Postgres fallback behind the Redis leaderboard.
func (s *SessionStore) ListHot(ctx context.Context, since time.Time, limit int) ([]*models.VisitorSession, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT ` + sessionColumns + `
		FROM visitor_sessions
		WHERE last_activity_at >= $1 AND intent_level IN ($2, $3)
		ORDER BY intent_score DESC, last_activity_at DESC
		LIMIT $4`
	rows, err := s.db.QueryContext(ctx, query, since, models.LevelHot, models.LevelQualified, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list hot sessions: %w", err)
	}
	defer rows.Close()

	var out []*models.VisitorSession
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan hot session: %w", err)
		}
		out = append(out, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error listing hot sessions: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(r rowScanner) (*models.VisitorSession, error) {
	s := &models.VisitorSession{}
	var (
		leadID  sql.NullInt64
		endedAt sql.NullTime
		signals []byte
	)
	err := r.Scan(
		&s.ID, &s.UUID, &s.VisitorID, &s.SessionToken,
		&s.Referrer, &s.ReferrerDomain, &s.ReferrerType, &s.LandingPage,
		&s.UTMSource, &s.UTMMedium, &s.UTMCampaign, &s.UTMTerm, &s.UTMContent,
		&s.DeviceType, &s.Browser, &s.OS, &s.Country, &s.Region, &s.City, &s.Locale,
		&s.PageViewsCount, &s.EventsCount, &s.TotalTimeSeconds, &s.EngagedTimeSeconds,
		&s.ScrollDepthAvg, &s.ScrollDepthMax,
		&s.IntentScore, &s.IntentLevel, &signals,
		&s.VisitedPricing, &s.VisitedServices, &s.VisitedPortfolio, &s.VisitedContact,
		&s.StartedForm, &s.CompletedForm, &s.ClickedCTA, &s.WatchedVideo,
		&s.Status, &leadID, &s.StartedAt, &s.LastActivityAt, &endedAt,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if leadID.Valid {
		s.LeadID = &leadID.Int64
	}
	if endedAt.Valid {
		t := endedAt.Time
		s.EndedAt = &t
	}
	if len(signals) > 0 {
		s.IntentSignals = json.RawMessage(signals)
	}
	return s, nil
}
