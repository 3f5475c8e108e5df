// Package service implements the control-plane operations behind the
// HTTP API: target CRUD, manual checks, history reads and reliability
// analytics. Handlers stay thin; every rule lives here.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/gentrack/gentrack/internal/config"
	"github.com/gentrack/gentrack/internal/model"
	"github.com/gentrack/gentrack/internal/monitor"
	"github.com/gentrack/gentrack/internal/store"
)

// Limits applied to the history and incident list endpoints. Requests
// are clamped into range rather than rejected; only unparseable values
// are an error.
const (
	DefaultHistoryLimit  = 100
	maxHistoryLimit      = 500
	DefaultIncidentLimit = 50
	maxIncidentLimit     = 300
)

// uptimeWindow is the lookback for the uptime_24h ratio.
const uptimeWindow = 24 * time.Hour

// ControlPlane exposes every operation the HTTP API serves.
type ControlPlane struct {
	store           *store.Store
	runner          *monitor.Runner
	defaultInterval int
	defaultTimeout  int
}

// NewControlPlane wires the control plane over the shared store and
// check runner. The defaults fill absent interval/timeout fields on
// created targets.
func NewControlPlane(st *store.Store, runner *monitor.Runner, defaultInterval, defaultTimeout int) *ControlPlane {
	return &ControlPlane{
		store:           st,
		runner:          runner,
		defaultInterval: defaultInterval,
		defaultTimeout:  defaultTimeout,
	}
}

// Health reports whether the database answers a round trip.
func (cp *ControlPlane) Health(ctx context.Context) error {
	if err := cp.store.Ping(ctx); err != nil {
		return internal("database indisponivel", err)
	}
	return nil
}

// ListTargets returns every target with its latest check and 24h uptime.
func (cp *ControlPlane) ListTargets(ctx context.Context) ([]model.TargetSummary, error) {
	summaries, err := cp.store.TargetSummaries(ctx, time.Now().UTC().Add(-uptimeWindow))
	if err != nil {
		return nil, internal("Erro interno.", err)
	}
	return summaries, nil
}

// CreateTarget validates and persists a new target, runs its first
// check synchronously and returns the resulting summary.
func (cp *ControlPlane) CreateTarget(ctx context.Context, payload TargetPayload) (*model.TargetSummary, error) {
	target, verr := cp.normalizeTarget(payload)
	if verr != nil {
		return nil, verr
	}

	id, err := cp.store.InsertTarget(ctx, target)
	if errors.Is(err, store.ErrDuplicateURL) {
		return nil, conflict("Essa URL ja esta cadastrada.")
	}
	if err != nil {
		return nil, internal("Falha ao criar alvo.", err)
	}

	created, err := cp.store.GetTarget(ctx, id)
	if err != nil {
		return nil, internal("Falha ao criar alvo.", err)
	}
	if _, err := cp.runner.RunCheck(ctx, *created); err != nil {
		return nil, internal("Falha ao criar alvo.", err)
	}

	summaries, err := cp.store.TargetSummaries(ctx, time.Now().UTC().Add(-uptimeWindow))
	if err != nil {
		return nil, internal("Falha ao criar alvo.", err)
	}
	for i := range summaries {
		if summaries[i].ID == id {
			return &summaries[i], nil
		}
	}
	return nil, internal("Falha ao criar alvo.", nil)
}

// DeleteTarget removes a target and, via cascade, its checks and
// incidents.
func (cp *ControlPlane) DeleteTarget(ctx context.Context, id int64) error {
	err := cp.store.DeleteTarget(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return notFound("Alvo nao encontrado.")
	}
	if err != nil {
		return internal("Erro interno.", err)
	}
	return nil
}

// RunManualCheck probes the target immediately, outside its schedule,
// and returns the persisted check.
func (cp *ControlPlane) RunManualCheck(ctx context.Context, id int64) (*model.Check, error) {
	target, err := cp.store.GetTarget(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFound("Alvo nao encontrado.")
	}
	if err != nil {
		return nil, internal("Erro interno.", err)
	}

	check, err := cp.runner.RunCheck(ctx, *target)
	if err != nil {
		return nil, internal("Erro interno.", err)
	}
	return check, nil
}

// History returns the target's most recent checks, newest first. The
// limit is clamped into [1, 500].
func (cp *ControlPlane) History(ctx context.Context, targetID int64, limit int) ([]model.Check, error) {
	if err := cp.requireTarget(ctx, targetID); err != nil {
		return nil, err
	}
	rows, err := cp.store.History(ctx, targetID, clamp(limit, maxHistoryLimit))
	if err != nil {
		return nil, internal("Erro interno.", err)
	}
	return rows, nil
}

// Incidents returns the target's downtime windows, newest first. The
// limit is clamped into [1, 300].
func (cp *ControlPlane) Incidents(ctx context.Context, targetID int64, limit int) ([]model.Incident, error) {
	if err := cp.requireTarget(ctx, targetID); err != nil {
		return nil, err
	}
	rows, err := cp.store.Incidents(ctx, &targetID, clamp(limit, maxIncidentLimit))
	if err != nil {
		return nil, internal("Erro interno.", err)
	}
	return rows, nil
}

// Reliability aggregates incident analytics for one target.
func (cp *ControlPlane) Reliability(ctx context.Context, targetID int64) (*model.ReliabilitySummary, error) {
	if err := cp.requireTarget(ctx, targetID); err != nil {
		return nil, err
	}
	summary, err := cp.store.Reliability(ctx, &targetID)
	if err != nil {
		return nil, internal("Erro interno.", err)
	}
	return summary, nil
}

// Dashboard assembles the aggregate view: per-target summaries, current
// up/down/unknown tallies, fleet-wide average uptime and the fleet
// incident summary.
func (cp *ControlPlane) Dashboard(ctx context.Context) (*model.Dashboard, error) {
	summaries, err := cp.store.TargetSummaries(ctx, time.Now().UTC().Add(-uptimeWindow))
	if err != nil {
		return nil, internal("Erro interno.", err)
	}

	dash := &model.Dashboard{
		TotalTargets: len(summaries),
		Targets:      summaries,
	}
	var uptimeSum float64
	var uptimeCount int
	for _, s := range summaries {
		switch {
		case s.LastIsUp == nil:
			dash.UnknownNow++
		case *s.LastIsUp:
			dash.UpNow++
		default:
			dash.DownNow++
		}
		if s.Uptime24h != nil {
			uptimeSum += *s.Uptime24h
			uptimeCount++
		}
	}
	if uptimeCount > 0 {
		avg := math.Round(uptimeSum/float64(uptimeCount)*100) / 100
		dash.AvgUptime24h = &avg
	}

	incidentSummary, err := cp.store.Reliability(ctx, nil)
	if err != nil {
		return nil, internal("Erro interno.", err)
	}
	dash.IncidentSummary = *incidentSummary
	return dash, nil
}

// SeedTargets registers targets from the startup seed file. Already
// registered URLs are skipped; the scheduler's first pass probes
// whatever was added. Invalid entries abort with an error so a broken
// file is caught at boot instead of silently half-applied.
func (cp *ControlPlane) SeedTargets(ctx context.Context, seeds []config.SeedTarget) (int, error) {
	added := 0
	for _, seed := range seeds {
		payload := TargetPayload{
			Name:              seed.Name,
			URL:               seed.URL,
			ExpectedSubstring: seed.ExpectedSubstring,
			ExpectedJSONKeys:  seed.ExpectedJSONKeys,
		}
		if seed.IntervalSeconds > 0 {
			interval := seed.IntervalSeconds
			payload.IntervalSeconds = &interval
		}
		if seed.TimeoutSeconds > 0 {
			timeout := seed.TimeoutSeconds
			payload.TimeoutSeconds = &timeout
		}
		if seed.MaxLatencyMS > 0 {
			maxLatency := seed.MaxLatencyMS
			payload.MaxLatencyMS = &maxLatency
		}

		target, verr := cp.normalizeTarget(payload)
		if verr != nil {
			return added, fmt.Errorf("seed target %q: %s", seed.Name, verr.Message)
		}
		_, err := cp.store.InsertTarget(ctx, target)
		if errors.Is(err, store.ErrDuplicateURL) {
			log.Printf("[seed] alvo ja cadastrado: %s", seed.URL)
			continue
		}
		if err != nil {
			return added, fmt.Errorf("seed target %q: %w", seed.Name, err)
		}
		added++
	}
	return added, nil
}

func (cp *ControlPlane) requireTarget(ctx context.Context, id int64) error {
	exists, err := cp.store.TargetExists(ctx, id)
	if err != nil {
		return internal("Erro interno.", err)
	}
	if !exists {
		return notFound("Alvo nao encontrado.")
	}
	return nil
}

func (cp *ControlPlane) normalizeTarget(p TargetPayload) (model.Target, *ServiceError) {
	name := strings.TrimSpace(p.Name)
	rawURL := strings.TrimSpace(p.URL)

	if name == "" {
		return model.Target{}, invalidArg("Nome e obrigatorio.")
	}
	if rawURL == "" {
		return model.Target{}, invalidArg("URL e obrigatoria.")
	}
	if !isValidHTTPURL(rawURL) {
		return model.Target{}, invalidArg("URL invalida. Use http:// ou https://")
	}

	interval := cp.defaultInterval
	if p.IntervalSeconds != nil {
		interval = *p.IntervalSeconds
	}
	timeout := cp.defaultTimeout
	if p.TimeoutSeconds != nil {
		timeout = *p.TimeoutSeconds
	}
	if interval < 1 {
		return model.Target{}, invalidArg("interval_seconds deve ser >= 1 segundo.")
	}
	if timeout < 1 || timeout > 60 {
		return model.Target{}, invalidArg("timeout_seconds deve estar entre 1 e 60 segundos.")
	}
	if p.MaxLatencyMS != nil && *p.MaxLatencyMS < 1 {
		return model.Target{}, invalidArg("max_latency_ms deve ser >= 1.")
	}

	target := model.Target{
		Name:             name,
		URL:              rawURL,
		IntervalSeconds:  interval,
		TimeoutSeconds:   timeout,
		ExpectedJSONKeys: model.JoinJSONKeys(p.ExpectedJSONKeys),
		MaxLatencyMS:     p.MaxLatencyMS,
		CreatedAt:        time.Now().UTC(),
	}
	if substr := strings.TrimSpace(p.ExpectedSubstring); substr != "" {
		target.ExpectedSubstring = &substr
	}
	return target, nil
}

// clamp forces limit into [1, max].
func clamp(limit, max int) int {
	if limit < 1 {
		return 1
	}
	if limit > max {
		return max
	}
	return limit
}
