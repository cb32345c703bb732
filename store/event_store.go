package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"sitepulse/api/logger"
	"sitepulse/api/models"
	"sitepulse/api/scoring"
)

type EventStore struct {
	db       *sql.DB
	sessions *SessionStore
	archive  *EventArchive
	log      *logger.Logger
}

// NewEventStore creates the event log. archive may be nil when ClickHouse
// is not configured; mirroring is then skipped.
func NewEventStore(db *sql.DB, sessions *SessionStore, archive *EventArchive, log *logger.Logger) *EventStore {
	return &EventStore{db: db, sessions: sessions, archive: archive, log: log.With("store", "events")}
}

type RecordEventInput struct {
	PageViewID *int64
	EventType  models.EventType
	PageType   models.PageType
	// OccurredAt is the client-reported timestamp. Zero falls back to now;
	// a present value is stored as-is so event ordering survives network
	// latency. Never substitute server-receipt time for a supplied one.
	OccurredAt time.Time
	EventData  json.RawMessage
}

// Record appends one immutable event: point value and classification flags
// are computed here from the fixed tables and never change afterwards.
// The session's event counter, implied engagement latches and intent score
// are updated in the same request, and the event is mirrored to the
// ClickHouse archive best-effort. Ended sessions still accept events so
// trailing beacons racing the end beacon are not lost from the audit
// trail; the ended guard keeps events_count frozen, so the counter tracks
// live-session activity rather than the row count.
func (s *EventStore) Record(ctx context.Context, session *models.VisitorSession, in RecordEventInput) (*models.VisitorEvent, error) {
	if !models.ValidEventType(in.EventType) {
		return nil, fmt.Errorf("%w: unknown event type %q", ErrValidation, in.EventType)
	}

	occurredAt := in.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	ev := &models.VisitorEvent{
		ID:                uuid.New().String(),
		SessionID:         session.ID,
		PageViewID:        in.PageViewID,
		EventType:         in.EventType,
		EventCategory:     models.CategoryFor(in.EventType),
		EventData:         in.EventData,
		IntentPoints:      scoring.EventPoints(in.EventType, in.PageType),
		IsConversionEvent: models.IsConversionEvent(in.EventType),
		IsEngagementEvent: models.IsEngagementEvent(in.EventType),
		OccurredAt:        occurredAt,
	}

	query := `
		INSERT INTO visitor_events (
			id, session_id, page_view_id, event_type, event_category, event_data,
			intent_points, is_conversion_event, is_engagement_event, occurred_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at`
	var pageViewID sql.NullInt64
	if ev.PageViewID != nil {
		pageViewID = sql.NullInt64{Int64: *ev.PageViewID, Valid: true}
	}
	data := ev.EventData
	if len(data) == 0 {
		data = json.RawMessage("{}")
	}
	err := s.db.QueryRowContext(ctx, query,
		ev.ID, ev.SessionID, pageViewID, ev.EventType, ev.EventCategory, []byte(data),
		ev.IntentPoints, ev.IsConversionEvent, ev.IsEngagementEvent, ev.OccurredAt,
	).Scan(&ev.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to record event: %w", err)
	}

	if err := s.sessions.IncrementEvents(ctx, session.ID); err != nil {
		return nil, err
	}
	if err := s.sessions.SetEngagementFlags(ctx, session.ID, FlagsForEvent(ev.EventType)); err != nil {
		return nil, err
	}

	if s.archive != nil {
		if err := s.archive.Insert(ctx, session, []*models.VisitorEvent{ev}); err != nil {
			s.log.Warn("event archive insert failed", "event", ev.ID, "err", err)
		}
	}

	if err := s.Rescore(ctx, session.ID); err != nil {
		return nil, err
	}
	return ev, nil
}

// Rescore recomputes and persists the session's intent score through the
// one scoring engine. Called after every recorded event and after flag
// beacons; deterministic over the session's stored state.
func (s *EventStore) Rescore(ctx context.Context, sessionID int64) error {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	points, err := s.SumPointsBySignal(ctx, sessionID)
	if err != nil {
		return err
	}
	result := scoring.Calculate(scoring.InputsFromSession(session, points))
	return s.sessions.UpdateIntentScore(ctx, session, result.Score, result.Level, result.Breakdown)
}

// SumPointsBySignal groups the session's stored event points by event
// type, the base contribution of the scoring breakdown.
func (s *EventStore) SumPointsBySignal(ctx context.Context, sessionID int64) (map[string]int, error) {
	query := `
		SELECT event_type, SUM(intent_points)
		FROM visitor_events
		WHERE session_id = $1
		GROUP BY event_type`
	rows, err := s.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to sum event points: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var signal string
		var pts int
		if err := rows.Scan(&signal, &pts); err != nil {
			return nil, fmt.Errorf("failed to scan event point sum: %w", err)
		}
		out[signal] = pts
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error summing event points: %w", err)
	}
	return out, nil
}

// ListBySession returns the session's events in occurrence order, for the
// admin session detail view.
func (s *EventStore) ListBySession(ctx context.Context, sessionID int64, limit int) ([]*models.VisitorEvent, error) {
	if limit <= 0 {
		limit = 200
	}
	query := `
		SELECT id, session_id, page_view_id, event_type, event_category, event_data,
		       intent_points, is_conversion_event, is_engagement_event, occurred_at, created_at
		FROM visitor_events
		WHERE session_id = $1
		ORDER BY occurred_at ASC
		LIMIT $2`
	rows, err := s.db.QueryContext(ctx, query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var out []*models.VisitorEvent
	for rows.Next() {
		ev := &models.VisitorEvent{}
		var pageViewID sql.NullInt64
		var data []byte
		if err := rows.Scan(
			&ev.ID, &ev.SessionID, &pageViewID, &ev.EventType, &ev.EventCategory, &data,
			&ev.IntentPoints, &ev.IsConversionEvent, &ev.IsEngagementEvent,
			&ev.OccurredAt, &ev.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		if pageViewID.Valid {
			ev.PageViewID = &pageViewID.Int64
		}
		if len(data) > 0 {
			ev.EventData = json.RawMessage(data)
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error listing events: %w", err)
	}
	return out, nil
}
