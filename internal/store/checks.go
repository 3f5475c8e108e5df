package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/gentrack/gentrack/internal/model"
)

const checkColumns = "id, target_id, checked_at, status_code, latency_ms, is_up, reason_code, error_message"

// History returns the most recent checks for a target, newest first.
func (s *Store) History(ctx context.Context, targetID int64, limit int) ([]model.Check, error) {
	var rows []model.Check
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+checkColumns+`
		FROM checks
		WHERE target_id = $1
		ORDER BY checked_at DESC
		LIMIT $2
	`, targetID, limit)
	if err != nil {
		return nil, fmt.Errorf("select history for target %d: %w", targetID, err)
	}
	for i := range rows {
		rows[i].CheckedAt = rows[i].CheckedAt.UTC()
	}
	return rows, nil
}

// LastCheck returns the newest check row for the target, or nil when the
// target has never been probed. Runs inside the per-target transaction so
// the read is covered by the advisory lock.
func (tx *Tx) LastCheck(ctx context.Context, targetID int64) (*model.CheckRef, error) {
	var ref model.CheckRef
	err := tx.tx.GetContext(ctx, &ref, `
		SELECT id, is_up, checked_at
		FROM checks
		WHERE target_id = $1
		ORDER BY checked_at DESC
		LIMIT 1
	`, targetID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select last check for target %d: %w", targetID, err)
	}
	ref.CheckedAt = ref.CheckedAt.UTC()
	return &ref, nil
}

// InsertCheck writes a probe result and returns the new check id.
func (tx *Tx) InsertCheck(ctx context.Context, c model.Check) (int64, error) {
	var id int64
	err := tx.tx.QueryRowContext(ctx, `
		INSERT INTO checks (
			target_id, checked_at, status_code, latency_ms, is_up, reason_code, error_message
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, c.TargetID, c.CheckedAt, c.StatusCode, c.LatencyMS, c.IsUp, c.ReasonCode, c.ErrorMessage,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert check for target %d: %w", c.TargetID, err)
	}
	return id, nil
}
