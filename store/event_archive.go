package store

import (
	"context"
	"fmt"
	"time"

	"sitepulse/api/database"
	"sitepulse/api/logger"
	"sitepulse/api/models"
	"sitepulse/api/utils"
)

// EventArchive mirrors the append-only visitor event stream into
// ClickHouse for the dashboard's event time series and top-path rollups.
// Postgres stays the system of record; archive writes are best-effort.
type EventArchive struct {
	DB  *database.ClickHouseClient
	log *logger.Logger
}

func NewEventArchive(chClient *database.ClickHouseClient, log *logger.Logger) *EventArchive {
	return &EventArchive{DB: chClient, log: log.With("store", "event_archive")}
}

type EventCountByTime struct {
	Time      time.Time `json:"time"`
	EventType *string   `json:"eventType,omitempty"`
	Count     uint64    `json:"count"`
}

type TopPathResult struct {
	Path  string `json:"path"`
	Count uint64 `json:"count"`
}

// Insert batches events into the archive. Column order must match the
// visitor_events table in schema/clickhouse.sql.
func (s *EventArchive) Insert(ctx context.Context, session *models.VisitorSession, events []*models.VisitorEvent) error {
	if len(events) == 0 {
		return nil
	}

	batch, err := s.DB.Conn.PrepareBatch(ctx, `
		INSERT INTO visitor_events (
			event_id, session_uuid, visitor_id, event_type, event_category,
			intent_points, is_conversion, is_engagement, page_path, referrer_type,
			country, device_type, occurred_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare batch insert: %w", err)
	}

	for _, ev := range events {
		err := batch.Append(
			ev.ID,
			session.UUID,
			session.VisitorID,
			string(ev.EventType),
			string(ev.EventCategory),
			int32(ev.IntentPoints),
			ev.IsConversionEvent,
			ev.IsEngagementEvent,
			session.LandingPage,
			string(session.ReferrerType),
			session.Country,
			session.DeviceType,
			ev.OccurredAt,
		)
		if err != nil {
			s.log.Warn("error appending event to batch", "event", ev.ID, "err", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}
	return nil
}

// EventCountsOverTime buckets archived events by the given interval,
// optionally filtered to one event type.
func (s *EventArchive) EventCountsOverTime(ctx context.Context, interval string, start, end time.Time, eventTypeFilter string) ([]EventCountByTime, error) {
	if !utils.IsValidInterval(interval) {
		return nil, fmt.Errorf("%w: invalid interval %q", ErrValidation, interval)
	}

	var args []interface{}
	args = append(args, start, end)

	selectCols := fmt.Sprintf("toStartOf%s(occurred_at) as time_bucket, count() as total_events", interval)
	groupByCols := "time_bucket"
	whereClause := "WHERE occurred_at >= ? AND occurred_at <= ?"
	orderByCols := "time_bucket ASC"
	isFilteringByType := eventTypeFilter != ""

	if isFilteringByType {
		selectCols += ", event_type"
		groupByCols += ", event_type"
		whereClause += " AND event_type = ?"
		args = append(args, eventTypeFilter)
		orderByCols += ", event_type ASC"
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM visitor_events
		%s
		GROUP BY %s
		ORDER BY %s
	`, selectCols, whereClause, groupByCols, orderByCols)

	rows, err := s.DB.Conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query event counts over time: %w", err)
	}
	defer rows.Close()

	var results []EventCountByTime
	for rows.Next() {
		var (
			timeBucket  time.Time
			count       uint64
			eventTypeDB string
			current     EventCountByTime
		)
		if isFilteringByType {
			if err := rows.Scan(&timeBucket, &count, &eventTypeDB); err != nil {
				s.log.Warn("error scanning event count row", "err", err)
				continue
			}
			current.EventType = &eventTypeDB
		} else {
			if err := rows.Scan(&timeBucket, &count); err != nil {
				s.log.Warn("error scanning event count row", "err", err)
				continue
			}
		}
		current.Time = timeBucket
		current.Count = count
		results = append(results, current)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error during event counts query: %w", err)
	}
	return results, nil
}

// TopPaths returns the most-viewed landing paths in the window.
func (s *EventArchive) TopPaths(ctx context.Context, start, end time.Time, limit uint64) ([]TopPathResult, error) {
	if limit == 0 {
		limit = 10
	}

	query := `
		SELECT page_path, count() as view_count
		FROM visitor_events
		WHERE event_type = 'page_view' AND occurred_at >= ? AND occurred_at <= ?
		GROUP BY page_path
		ORDER BY view_count DESC
		LIMIT ?
	`
	rows, err := s.DB.Conn.Query(ctx, query, start, end, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top paths: %w", err)
	}
	defer rows.Close()

	var results []TopPathResult
	for rows.Next() {
		var path string
		var count uint64
		if err := rows.Scan(&path, &count); err != nil {
			s.log.Warn("error scanning top path row", "err", err)
			continue
		}
		results = append(results, TopPathResult{Path: path, Count: count})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error during top paths query: %w", err)
	}
	return results, nil
}
