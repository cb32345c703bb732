package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"sitepulse/api/logger"
)

// AnalyticsStore serves the dashboard's read-side rollups over stored
// sessions. Pure reads: it never writes, and every rate or average is
// guarded so an empty window yields zeros instead of a division error.
type AnalyticsStore struct {
	db  *sql.DB
	log *logger.Logger
}

func NewAnalyticsStore(db *sql.DB, log *logger.Logger) *AnalyticsStore {
	return &AnalyticsStore{db: db, log: log.With("store", "analytics")}
}

type OverviewStats struct {
	TotalSessions        int64   `json:"totalSessions"`
	UniqueVisitors       int64   `json:"uniqueVisitors"`
	TotalPageViews       int64   `json:"totalPageViews"`
	AvgSessionDuration   float64 `json:"avgSessionDuration"`
	AvgPagesPerSession   float64 `json:"avgPagesPerSession"`
	BounceRate           float64 `json:"bounceRate"`
	ConversionRate       float64 `json:"conversionRate"`
	AvgIntentScore       float64 `json:"avgIntentScore"`
	ReturningVisitorRate float64 `json:"returningVisitorRate"`
}

// Overview computes the window's headline stats in one pass. Average
// duration only counts ended sessions (in-progress sessions have no final
// duration); a bounce is a single-page session under 10 seconds.
func (s *AnalyticsStore) Overview(ctx context.Context, start, end time.Time) (*OverviewStats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(DISTINCT visitor_id),
			COALESCE(SUM(page_views_count), 0),
			COALESCE(AVG(total_time_seconds) FILTER (WHERE status = 'ended'), 0),
			COALESCE(AVG(page_views_count), 0),
			COALESCE(AVG(intent_score), 0),
			COUNT(*) FILTER (WHERE page_views_count = 1 AND total_time_seconds < 10),
			COUNT(*) FILTER (WHERE completed_form),
			COUNT(*) FILTER (WHERE EXISTS (
				SELECT 1 FROM visitor_sessions p
				WHERE p.visitor_id = s.visitor_id AND p.started_at < s.started_at
			))
		FROM visitor_sessions s
		WHERE started_at >= $1 AND started_at <= $2`

	var (
		stats                          OverviewStats
		bounced, converted, returningCount int64
	)
	err := s.db.QueryRowContext(ctx, query, start, end).Scan(
		&stats.TotalSessions,
		&stats.UniqueVisitors,
		&stats.TotalPageViews,
		&stats.AvgSessionDuration,
		&stats.AvgPagesPerSession,
		&stats.AvgIntentScore,
		&bounced,
		&converted,
		&returningCount,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query overview stats: %w", err)
	}

	if stats.TotalSessions > 0 {
		n := float64(stats.TotalSessions)
		stats.BounceRate = float64(bounced) / n
		stats.ConversionRate = float64(converted) / n
		stats.ReturningVisitorRate = float64(returningCount) / n
	}
	return &stats, nil
}

type SourceCount struct {
	ReferrerType string `json:"referrerType"`
	Count        int64  `json:"count"`
}

func (s *AnalyticsStore) TrafficSources(ctx context.Context, start, end time.Time) ([]SourceCount, error) {
	query := `
		SELECT referrer_type, COUNT(*)
		FROM visitor_sessions
		WHERE started_at >= $1 AND started_at <= $2
		GROUP BY referrer_type
		ORDER BY COUNT(*) DESC, referrer_type ASC`
	rows, err := s.db.QueryContext(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query traffic sources: %w", err)
	}
	defer rows.Close()

	var out []SourceCount
	for rows.Next() {
		var sc SourceCount
		if err := rows.Scan(&sc.ReferrerType, &sc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan traffic source row: %w", err)
		}
		out = append(out, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error querying traffic sources: %w", err)
	}
	return out, nil
}

type LevelCount struct {
	IntentLevel string `json:"intentLevel"`
	Count       int64  `json:"count"`
}

func (s *AnalyticsStore) IntentDistribution(ctx context.Context, start, end time.Time) ([]LevelCount, error) {
	query := `
		SELECT intent_level, COUNT(*)
		FROM visitor_sessions
		WHERE started_at >= $1 AND started_at <= $2
		GROUP BY intent_level
		ORDER BY intent_level ASC`
	rows, err := s.db.QueryContext(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query intent distribution: %w", err)
	}
	defer rows.Close()

	var out []LevelCount
	for rows.Next() {
		var lc LevelCount
		if err := rows.Scan(&lc.IntentLevel, &lc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan intent distribution row: %w", err)
		}
		out = append(out, lc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error querying intent distribution: %w", err)
	}
	return out, nil
}

type DailyPoint struct {
	Day         time.Time `json:"day"`
	Sessions    int64     `json:"sessions"`
	PageViews   int64     `json:"pageViews"`
	Conversions int64     `json:"conversions"`
}

func (s *AnalyticsStore) DailySeries(ctx context.Context, start, end time.Time) ([]DailyPoint, error) {
	query := `
		SELECT date_trunc('day', started_at) AS day,
		       COUNT(*),
		       COALESCE(SUM(page_views_count), 0),
		       COUNT(*) FILTER (WHERE completed_form)
		FROM visitor_sessions
		WHERE started_at >= $1 AND started_at <= $2
		GROUP BY day
		ORDER BY day ASC`
	rows, err := s.db.QueryContext(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily series: %w", err)
	}
	defer rows.Close()

	var out []DailyPoint
	for rows.Next() {
		var p DailyPoint
		if err := rows.Scan(&p.Day, &p.Sessions, &p.PageViews, &p.Conversions); err != nil {
			return nil, fmt.Errorf("failed to scan daily series row: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error querying daily series: %w", err)
	}
	return out, nil
}
