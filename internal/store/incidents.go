package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/gentrack/gentrack/internal/model"
)

const incidentColumns = "id, target_id, started_at, ended_at, duration_seconds, reason_code, reason_message, is_resolved"

// Incidents returns downtime windows newest first, optionally filtered to
// one target.
func (s *Store) Incidents(ctx context.Context, targetID *int64, limit int) ([]model.Incident, error) {
	var (
		rows []model.Incident
		err  error
	)
	if targetID != nil {
		err = s.db.SelectContext(ctx, &rows, `
			SELECT `+incidentColumns+`
			FROM incidents
			WHERE target_id = $1
			ORDER BY started_at DESC
			LIMIT $2
		`, *targetID, limit)
	} else {
		err = s.db.SelectContext(ctx, &rows, `
			SELECT `+incidentColumns+`
			FROM incidents
			ORDER BY started_at DESC
			LIMIT $1
		`, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("select incidents: %w", err)
	}
	for i := range rows {
		rows[i].StartedAt = rows[i].StartedAt.UTC()
		if rows[i].EndedAt != nil {
			utc := rows[i].EndedAt.UTC()
			rows[i].EndedAt = &utc
		}
	}
	return rows, nil
}

// OpenIncident is the slice of an unresolved incident the transition
// logic needs to close it.
type OpenIncident struct {
	ID        int64     `db:"id"`
	StartedAt time.Time `db:"started_at"`
}

// OpenIncident returns the newest unresolved incident for the target, or
// nil when the target is not currently in an open downtime window.
func (tx *Tx) OpenIncident(ctx context.Context, targetID int64) (*OpenIncident, error) {
	var inc OpenIncident
	err := tx.tx.GetContext(ctx, &inc, `
		SELECT id, started_at
		FROM incidents
		WHERE target_id = $1 AND is_resolved = FALSE
		ORDER BY started_at DESC
		LIMIT 1
	`, targetID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select open incident for target %d: %w", targetID, err)
	}
	inc.StartedAt = inc.StartedAt.UTC()
	return &inc, nil
}

// InsertIncident opens a new unresolved incident.
func (tx *Tx) InsertIncident(ctx context.Context, targetID int64, startedAt time.Time, reasonCode, reasonMessage *string, startCheckID int64) error {
	_, err := tx.tx.ExecContext(ctx, `
		INSERT INTO incidents (
			target_id, started_at, reason_code, reason_message, start_check_id, is_resolved
		)
		VALUES ($1, $2, $3, $4, $5, FALSE)
	`, targetID, startedAt, reasonCode, reasonMessage, startCheckID)
	if err != nil {
		return fmt.Errorf("insert incident for target %d: %w", targetID, err)
	}
	return nil
}

// ResolveIncident closes an open incident with its recovery metadata.
func (tx *Tx) ResolveIncident(ctx context.Context, incidentID int64, endedAt time.Time, durationSeconds int64, recoveryCheckID int64) error {
	_, err := tx.tx.ExecContext(ctx, `
		UPDATE incidents
		SET ended_at = $1, duration_seconds = $2, is_resolved = TRUE, recovery_check_id = $3
		WHERE id = $4
	`, endedAt, durationSeconds, recoveryCheckID, incidentID)
	if err != nil {
		return fmt.Errorf("resolve incident %d: %w", incidentID, err)
	}
	return nil
}
