package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/gentrack/gentrack/internal/model"
)

// summaryRow is the raw scan shape for the target summary query; the
// comma-joined expected_json_keys column is expanded before the row
// leaves the store.
type summaryRow struct {
	ID                int64      `db:"id"`
	Name              string     `db:"name"`
	URL               string     `db:"url"`
	IntervalSeconds   int        `db:"interval_seconds"`
	TimeoutSeconds    int        `db:"timeout_seconds"`
	ExpectedSubstring *string    `db:"expected_substring"`
	ExpectedJSONKeys  *string    `db:"expected_json_keys"`
	MaxLatencyMS      *int       `db:"max_latency_ms"`
	CreatedAt         time.Time  `db:"created_at"`
	LastCheckedAt     *time.Time `db:"last_checked_at"`
	LastStatusCode    *int       `db:"last_status_code"`
	LastLatencyMS     *int       `db:"last_latency_ms"`
	LastIsUp          *bool      `db:"last_is_up"`
	LastReasonCode    *string    `db:"last_reason_code"`
	LastErrorMessage  *string    `db:"last_error_message"`
	Uptime24h         *float64   `db:"uptime_24h"`
}

// TargetSummaries returns every target joined with its latest check and
// the uptime ratio over checks newer than cutoff, ordered by id
// ascending.
func (s *Store) TargetSummaries(ctx context.Context, cutoff time.Time) ([]model.TargetSummary, error) {
	var rows []summaryRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT t.id, t.name, t.url, t.interval_seconds, t.timeout_seconds,
		       t.expected_substring, t.expected_json_keys, t.max_latency_ms, t.created_at,
		       (
		           SELECT c.checked_at FROM checks c
		           WHERE c.target_id = t.id ORDER BY c.checked_at DESC LIMIT 1
		       ) AS last_checked_at,
		       (
		           SELECT c.status_code FROM checks c
		           WHERE c.target_id = t.id ORDER BY c.checked_at DESC LIMIT 1
		       ) AS last_status_code,
		       (
		           SELECT c.latency_ms FROM checks c
		           WHERE c.target_id = t.id ORDER BY c.checked_at DESC LIMIT 1
		       ) AS last_latency_ms,
		       (
		           SELECT c.is_up FROM checks c
		           WHERE c.target_id = t.id ORDER BY c.checked_at DESC LIMIT 1
		       ) AS last_is_up,
		       (
		           SELECT c.reason_code FROM checks c
		           WHERE c.target_id = t.id ORDER BY c.checked_at DESC LIMIT 1
		       ) AS last_reason_code,
		       (
		           SELECT c.error_message FROM checks c
		           WHERE c.target_id = t.id ORDER BY c.checked_at DESC LIMIT 1
		       ) AS last_error_message,
		       (
		           SELECT ROUND(100.0 * AVG(CASE WHEN c.is_up THEN 1.0 ELSE 0.0 END), 2)
		           FROM checks c
		           WHERE c.target_id = t.id AND c.checked_at >= $1
		       ) AS uptime_24h
		FROM targets t
		ORDER BY t.id ASC
	`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("select target summaries: %w", err)
	}

	summaries := make([]model.TargetSummary, 0, len(rows))
	for _, r := range rows {
		sum := model.TargetSummary{
			ID:                r.ID,
			Name:              r.Name,
			URL:               r.URL,
			IntervalSeconds:   r.IntervalSeconds,
			TimeoutSeconds:    r.TimeoutSeconds,
			ExpectedSubstring: r.ExpectedSubstring,
			ExpectedJSONKeys:  model.SplitJSONKeys(r.ExpectedJSONKeys),
			MaxLatencyMS:      r.MaxLatencyMS,
			CreatedAt:         r.CreatedAt.UTC(),
			LastStatusCode:    r.LastStatusCode,
			LastLatencyMS:     r.LastLatencyMS,
			LastIsUp:          r.LastIsUp,
			LastReasonCode:    r.LastReasonCode,
			LastErrorMessage:  r.LastErrorMessage,
			Uptime24h:         r.Uptime24h,
		}
		if r.LastCheckedAt != nil {
			utc := r.LastCheckedAt.UTC()
			sum.LastCheckedAt = &utc
		}
		summaries = append(summaries, sum)
	}
	return summaries, nil
}

type reliabilityAgg struct {
	DayCount    int      `db:"day_count"`
	WeekCount   int      `db:"week_count"`
	MonthCount  int      `db:"month_count"`
	MTTRSeconds *float64 `db:"mttr_seconds"`
}

// Reliability aggregates incident analytics: the most recent incident,
// incident counts for the last day, the last 7 days and the current
// calendar month, MTTR over resolved incidents and MTBF over gaps
// between consecutive resolved incidents. A nil targetID aggregates the
// whole fleet, with MTBF gaps computed per target.
func (s *Store) Reliability(ctx context.Context, targetID *int64) (*model.ReliabilitySummary, error) {
	last, err := s.lastIncident(ctx, targetID)
	if err != nil {
		return nil, err
	}

	var agg reliabilityAgg
	if targetID != nil {
		err = s.db.GetContext(ctx, &agg, `
			SELECT
			    COUNT(*) FILTER (WHERE started_at >= NOW() - INTERVAL '1 day') AS day_count,
			    COUNT(*) FILTER (WHERE started_at >= NOW() - INTERVAL '7 day') AS week_count,
			    COUNT(*) FILTER (WHERE started_at >= date_trunc('month', NOW())) AS month_count,
			    AVG(duration_seconds) FILTER (WHERE is_resolved = TRUE AND duration_seconds IS NOT NULL) AS mttr_seconds
			FROM incidents
			WHERE target_id = $1
		`, *targetID)
	} else {
		err = s.db.GetContext(ctx, &agg, `
			SELECT
			    COUNT(*) FILTER (WHERE started_at >= NOW() - INTERVAL '1 day') AS day_count,
			    COUNT(*) FILTER (WHERE started_at >= NOW() - INTERVAL '7 day') AS week_count,
			    COUNT(*) FILTER (WHERE started_at >= date_trunc('month', NOW())) AS month_count,
			    AVG(duration_seconds) FILTER (WHERE is_resolved = TRUE AND duration_seconds IS NOT NULL) AS mttr_seconds
			FROM incidents
		`)
	}
	if err != nil {
		return nil, fmt.Errorf("aggregate incidents: %w", err)
	}

	mtbf, err := s.mtbfSeconds(ctx, targetID)
	if err != nil {
		return nil, err
	}

	return &model.ReliabilitySummary{
		LastIncident:   last,
		MTTRSeconds:    agg.MTTRSeconds,
		MTBFSeconds:    mtbf,
		IncidentsDay:   agg.DayCount,
		IncidentsWeek:  agg.WeekCount,
		IncidentsMonth: agg.MonthCount,
	}, nil
}

func (s *Store) lastIncident(ctx context.Context, targetID *int64) (*model.LastIncident, error) {
	var (
		last model.LastIncident
		err  error
	)
	if targetID != nil {
		err = s.db.GetContext(ctx, &last, `
			SELECT i.id, i.target_id, i.started_at, i.ended_at, i.duration_seconds,
			       i.is_resolved, i.reason_code, i.reason_message, t.name AS target_name
			FROM incidents i
			JOIN targets t ON t.id = i.target_id
			WHERE i.target_id = $1
			ORDER BY i.started_at DESC
			LIMIT 1
		`, *targetID)
	} else {
		err = s.db.GetContext(ctx, &last, `
			SELECT i.id, i.target_id, i.started_at, i.ended_at, i.duration_seconds,
			       i.is_resolved, i.reason_code, i.reason_message, t.name AS target_name
			FROM incidents i
			JOIN targets t ON t.id = i.target_id
			ORDER BY i.started_at DESC
			LIMIT 1
		`)
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select last incident: %w", err)
	}
	last.StartedAt = last.StartedAt.UTC()
	if last.EndedAt != nil {
		utc := last.EndedAt.UTC()
		last.EndedAt = &utc
	}
	return &last, nil
}

func (s *Store) mtbfSeconds(ctx context.Context, targetID *int64) (*float64, error) {
	var (
		mtbf *float64
		err  error
	)
	if targetID != nil {
		err = s.db.GetContext(ctx, &mtbf, `
			WITH resolved AS (
			    SELECT started_at, ended_at,
			           LAG(ended_at) OVER (ORDER BY started_at) AS prev_ended
			    FROM incidents
			    WHERE target_id = $1 AND ended_at IS NOT NULL
			)
			SELECT AVG(EXTRACT(EPOCH FROM (started_at - prev_ended))) AS mtbf_seconds
			FROM resolved
			WHERE prev_ended IS NOT NULL AND started_at > prev_ended
		`, *targetID)
	} else {
		err = s.db.GetContext(ctx, &mtbf, `
			WITH resolved AS (
			    SELECT target_id, started_at, ended_at,
			           LAG(ended_at) OVER (PARTITION BY target_id ORDER BY started_at) AS prev_ended
			    FROM incidents
			    WHERE ended_at IS NOT NULL
			)
			SELECT AVG(EXTRACT(EPOCH FROM (started_at - prev_ended))) AS mtbf_seconds
			FROM resolved
			WHERE prev_ended IS NOT NULL AND started_at > prev_ended
		`)
	}
	if err != nil {
		return nil, fmt.Errorf("aggregate mtbf: %w", err)
	}
	return mtbf, nil
}
