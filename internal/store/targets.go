package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/gentrack/gentrack/internal/model"
)

// Postgres error code for unique constraint violations.
const pgUniqueViolation = "23505"

const targetColumns = `id, name, url, interval_seconds, timeout_seconds,
	expected_substring, expected_json_keys, max_latency_ms, created_at`

// InsertTarget persists a new target and returns its id. A unique
// violation on the URL maps to ErrDuplicateURL.
func (s *Store) InsertTarget(ctx context.Context, t model.Target) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO targets (
			name, url, interval_seconds, timeout_seconds,
			expected_substring, expected_json_keys, max_latency_ms, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, t.Name, t.URL, t.IntervalSeconds, t.TimeoutSeconds,
		t.ExpectedSubstring, t.ExpectedJSONKeys, t.MaxLatencyMS, t.CreatedAt,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return 0, ErrDuplicateURL
		}
		return 0, fmt.Errorf("insert target: %w", err)
	}
	return id, nil
}

// GetTarget loads a target by id. Returns ErrNotFound when missing.
func (s *Store) GetTarget(ctx context.Context, id int64) (*model.Target, error) {
	var t model.Target
	err := s.db.GetContext(ctx, &t,
		"SELECT "+targetColumns+" FROM targets WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select target %d: %w", id, err)
	}
	t.CreatedAt = t.CreatedAt.UTC()
	return &t, nil
}

// TargetExists reports whether a target with the given id exists.
func (s *Store) TargetExists(ctx context.Context, id int64) (bool, error) {
	var one int
	err := s.db.GetContext(ctx, &one, "SELECT 1 FROM targets WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("select target %d: %w", id, err)
	}
	return true, nil
}

// DeleteTarget removes a target; checks and incidents cascade.
// Returns ErrNotFound when no row was deleted.
func (s *Store) DeleteTarget(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM targets WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete target %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete target %d: %w", id, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// DueTargets returns the targets whose next probe time has arrived,
// ordered by id ascending. A target is due when it has no check yet or
// its last check is at least interval_seconds old. The due filter runs
// client-side over the full target list.
func (s *Store) DueTargets(ctx context.Context, now time.Time) ([]model.Target, error) {
	var rows []model.Target
	err := s.db.SelectContext(ctx, &rows, `
		SELECT t.id, t.name, t.url, t.interval_seconds, t.timeout_seconds,
		       t.expected_substring, t.expected_json_keys, t.max_latency_ms, t.created_at,
		       (
		           SELECT c.checked_at
		           FROM checks c
		           WHERE c.target_id = t.id
		           ORDER BY c.checked_at DESC
		           LIMIT 1
		       ) AS last_checked_at
		FROM targets t
		ORDER BY t.id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("select due targets: %w", err)
	}

	due := make([]model.Target, 0, len(rows))
	for _, t := range rows {
		t.CreatedAt = t.CreatedAt.UTC()
		if t.LastCheckedAt != nil {
			utc := t.LastCheckedAt.UTC()
			t.LastCheckedAt = &utc
			if now.Sub(utc) < time.Duration(t.IntervalSeconds)*time.Second {
				continue
			}
		}
		due = append(due, t)
	}
	return due, nil
}
