// Package monitor owns the check lifecycle: probing due targets,
// persisting results and reconciling incident state.
package monitor

import (
	"context"
	"time"

	"github.com/gentrack/gentrack/internal/model"
	"github.com/gentrack/gentrack/internal/store"
)

// checkTx is the slice of the store transaction the transition logic
// needs. Narrow on purpose so tests can drive it with a fake.
type checkTx interface {
	OpenIncident(ctx context.Context, targetID int64) (*store.OpenIncident, error)
	InsertIncident(ctx context.Context, targetID int64, startedAt time.Time, reasonCode, reasonMessage *string, startCheckID int64) error
	ResolveIncident(ctx context.Context, incidentID int64, endedAt time.Time, durationSeconds int64, recoveryCheckID int64) error
}

// applyTransition reconciles incident state with the check that was just
// written. prev is the check that preceded it, nil for a first probe.
//
// An incident resolves only on a down-to-up edge while a window is open.
// A down check with no open window always opens one, including the case
// where the previous check was already down: the earlier window was
// closed out of band, so the new one starts at the current check rather
// than back-dating to the historical failure.
func applyTransition(ctx context.Context, tx checkTx, prev *model.CheckRef, cur model.Check) error {
	open, err := tx.OpenIncident(ctx, cur.TargetID)
	if err != nil {
		return err
	}

	if cur.IsUp {
		if prev != nil && !prev.IsUp && open != nil {
			duration := truncSeconds(cur.CheckedAt.Sub(open.StartedAt))
			return tx.ResolveIncident(ctx, open.ID, cur.CheckedAt, duration, cur.ID)
		}
		return nil
	}

	if open != nil {
		return nil
	}
	return tx.InsertIncident(ctx, cur.TargetID, cur.CheckedAt, cur.ReasonCode, cur.ErrorMessage, cur.ID)
}

// truncSeconds converts a duration to whole seconds, truncated, clamped
// at zero so clock skew between checks never yields a negative value.
func truncSeconds(d time.Duration) int64 {
	secs := int64(d.Seconds())
	if secs < 0 {
		return 0
	}
	return secs
}
