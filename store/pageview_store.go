package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"sitepulse/api/logger"
	"sitepulse/api/models"
)

const pageViewColumns = `
	id, session_id, url, path, previous_url, exit_url, page_type,
	time_on_page_seconds, engaged_time_seconds, scroll_depth, scroll_depth_max,
	scroll_count, click_count, mouse_move_count, key_press_count,
	read_content, interacted, bounced, is_exit_page,
	entered_at, exited_at, created_at, updated_at`

type PageViewStore struct {
	db       *sql.DB
	sessions *SessionStore
	log      *logger.Logger
}

func NewPageViewStore(db *sql.DB, sessions *SessionStore, log *logger.Logger) *PageViewStore {
	return &PageViewStore{db: db, sessions: sessions, log: log.With("store", "page_views")}
}

type OpenPageViewInput struct {
	URL         string
	Path        string
	PreviousURL string
}

// Open records page entry: classifies the page type from the path, inserts
// the row with entered_at = now, bumps the session's page view counter and
// latches the visited_* flag the page type implies.
func (s *PageViewStore) Open(ctx context.Context, session *models.VisitorSession, in OpenPageViewInput) (*models.PageView, error) {
	if strings.TrimSpace(in.Path) == "" && strings.TrimSpace(in.URL) == "" {
		return nil, fmt.Errorf("%w: url or path is required", ErrValidation)
	}

	pageType := models.DeterminePageType(in.Path)

	query := `
		INSERT INTO page_views (session_id, url, path, previous_url, page_type, entered_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING ` + pageViewColumns
	pv, err := scanPageView(s.db.QueryRowContext(ctx, query,
		session.ID, in.URL, in.Path, in.PreviousURL, pageType))
	if err != nil {
		return nil, fmt.Errorf("failed to open page view: %w", err)
	}

	if err := s.sessions.IncrementPageViews(ctx, session.ID); err != nil {
		return nil, err
	}
	if err := s.sessions.SetEngagementFlags(ctx, session.ID, FlagsForPageType(pageType)); err != nil {
		return nil, err
	}
	return pv, nil
}

type EngagementMetrics struct {
	TimeDeltaSeconds    int
	EngagedDeltaSeconds int
	ScrollDepth         int
	ScrollCount         int
	ClickCount          int
	MouseMoveCount      int
	KeyPressCount       int
}

// Interacted reports whether this batch of metrics counts as an
// interaction: any click or scroll recorded.
func (m EngagementMetrics) Interacted() bool {
	return m.ClickCount > 0 || m.ScrollCount > 0
}

// UpdateEngagement merges an engagement beacon into the page view. All
// counters are additive, the scroll max is compare-and-set, interacted is
// OR'd, and read_content latches once the merged state reaches 30s on page
// with 50% scroll depth. Every rule lives in the one UPDATE statement so
// concurrent beacons cannot interleave a read-modify-write. Exit is
// terminal: a beacon arriving after MarkAsExit leaves the frozen row
// untouched and returns it as-is. The session's running aggregates are
// folded in afterwards.
func (s *PageViewStore) UpdateEngagement(ctx context.Context, id int64, m EngagementMetrics) (*models.PageView, error) {
	query := `
		UPDATE page_views
		SET time_on_page_seconds = time_on_page_seconds + $2,
		    engaged_time_seconds = engaged_time_seconds + $3,
		    scroll_depth = $4,
		    scroll_depth_max = GREATEST(scroll_depth_max, $4),
		    scroll_count = scroll_count + $5,
		    click_count = click_count + $6,
		    mouse_move_count = mouse_move_count + $7,
		    key_press_count = key_press_count + $8,
		    interacted = interacted OR $9,
		    read_content = read_content OR (
		        time_on_page_seconds + $2 >= 30
		        AND GREATEST(scroll_depth_max, $4) >= 50
		    ),
		    updated_at = NOW()
		WHERE id = $1 AND exited_at IS NULL
		RETURNING ` + pageViewColumns
	pv, err := scanPageView(s.db.QueryRowContext(ctx, query, id,
		m.TimeDeltaSeconds, m.EngagedDeltaSeconds, m.ScrollDepth,
		m.ScrollCount, m.ClickCount, m.MouseMoveCount, m.KeyPressCount,
		m.Interacted()))
	if err == sql.ErrNoRows {
		// Already exited or unknown: the exit beacon froze this row.
		return s.GetByID(ctx, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update engagement: %w", err)
	}

	if err := s.sessions.ApplyPageViewAggregates(ctx, pv.SessionID,
		m.TimeDeltaSeconds, m.EngagedDeltaSeconds, pv.ScrollDepthMax); err != nil {
		return nil, err
	}
	return pv, nil
}

// MarkAsExit closes the page view: exit fields set, final duration frozen
// as |now - entered_at| (clock-skew guard), and bounced latched when the
// page saw no interaction and under 10 seconds of dwell. This is the only
// writer of bounced; the exited_at guard makes exit one-shot, so a page
// that receives beacons after exit never un-bounces.
func (s *PageViewStore) MarkAsExit(ctx context.Context, id int64, exitURL string) (*models.PageView, error) {
	query := `
		UPDATE page_views
		SET exited_at = NOW(),
		    exit_url = $2,
		    is_exit_page = TRUE,
		    time_on_page_seconds = ABS(EXTRACT(EPOCH FROM (NOW() - entered_at)))::int,
		    bounced = NOT interacted
		        AND ABS(EXTRACT(EPOCH FROM (NOW() - entered_at)))::int < 10,
		    updated_at = NOW()
		WHERE id = $1 AND exited_at IS NULL
		RETURNING ` + pageViewColumns
	pv, err := scanPageView(s.db.QueryRowContext(ctx, query, id, exitURL))
	if err == sql.ErrNoRows {
		// Already exited or unknown: exit is terminal, report the row as-is.
		return s.GetByID(ctx, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to mark page view exit: %w", err)
	}
	return pv, nil
}

func (s *PageViewStore) GetByID(ctx context.Context, id int64) (*models.PageView, error) {
	query := `SELECT ` + pageViewColumns + ` FROM page_views WHERE id = $1`
	pv, err := scanPageView(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: page view %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get page view: %w", err)
	}
	return pv, nil
}

func scanPageView(r rowScanner) (*models.PageView, error) {
	pv := &models.PageView{}
	var exitedAt sql.NullTime
	err := r.Scan(
		&pv.ID, &pv.SessionID, &pv.URL, &pv.Path, &pv.PreviousURL, &pv.ExitURL, &pv.PageType,
		&pv.TimeOnPageSeconds, &pv.EngagedTimeSeconds, &pv.ScrollDepth, &pv.ScrollDepthMax,
		&pv.ScrollCount, &pv.ClickCount, &pv.MouseMoveCount, &pv.KeyPressCount,
		&pv.ReadContent, &pv.Interacted, &pv.Bounced, &pv.IsExitPage,
		&pv.EnteredAt, &exitedAt, &pv.CreatedAt, &pv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if exitedAt.Valid {
		t := exitedAt.Time
		pv.ExitedAt = &t
	}
	return pv, nil
}
