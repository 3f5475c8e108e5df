package service

import (
	"context"

	"github.com/gentrack/gentrack/internal/model"
)

// TargetService is the surface the HTTP handlers depend on. ControlPlane
// is the only production implementation; handler tests substitute fakes.
type TargetService interface {
	Health(ctx context.Context) error
	ListTargets(ctx context.Context) ([]model.TargetSummary, error)
	CreateTarget(ctx context.Context, payload TargetPayload) (*model.TargetSummary, error)
	DeleteTarget(ctx context.Context, id int64) error
	RunManualCheck(ctx context.Context, id int64) (*model.Check, error)
	History(ctx context.Context, targetID int64, limit int) ([]model.Check, error)
	Incidents(ctx context.Context, targetID int64, limit int) ([]model.Incident, error)
	Reliability(ctx context.Context, targetID int64) (*model.ReliabilitySummary, error)
	Dashboard(ctx context.Context) (*model.Dashboard, error)
}

var _ TargetService = (*ControlPlane)(nil)
