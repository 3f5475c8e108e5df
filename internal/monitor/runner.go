package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/gentrack/gentrack/internal/metrics"
	"github.com/gentrack/gentrack/internal/model"
	"github.com/gentrack/gentrack/internal/probe"
	"github.com/gentrack/gentrack/internal/store"
)

// Runner executes one full check cycle for a target: probe, classify,
// persist, reconcile incident state. Scheduled ticks and manual
// POST-triggered checks share the same runner.
type Runner struct {
	store   *store.Store
	prober  *probe.Prober
	metrics *metrics.Metrics

	// inFlight serializes checks per target inside this process. The
	// database advisory lock already serializes across processes; the
	// local mutex just keeps a manual check from stacking a second
	// connection behind the lock for the same target.
	inFlight *xsync.Map[int64, *sync.Mutex]
}

// NewRunner wires a runner over the shared store, prober and metrics.
func NewRunner(st *store.Store, pr *probe.Prober, mt *metrics.Metrics) *Runner {
	return &Runner{
		store:    st,
		prober:   pr,
		metrics:  mt,
		inFlight: xsync.NewMap[int64, *sync.Mutex](),
	}
}

// RunCheck probes the target once and records the result. The probe
// itself runs outside the transaction; the advisory-locked transaction
// covers reading the previous check, inserting the new one and applying
// the incident transition, so concurrent runs cannot interleave their
// reads and writes.
func (r *Runner) RunCheck(ctx context.Context, target model.Target) (*model.Check, error) {
	mu, _ := r.inFlight.LoadOrStore(target.ID, &sync.Mutex{})
	mu.Lock()
	defer mu.Unlock()

	timeout := time.Duration(target.TimeoutSeconds) * time.Second
	outcome := r.prober.Probe(ctx, target.URL, timeout)
	verdict := probe.Classify(target, outcome)

	result := "up"
	if !verdict.IsUp {
		result = *verdict.ReasonCode
	}
	r.metrics.ObserveCheck(result, float64(outcome.LatencyMS)/1000)

	latency := outcome.LatencyMS
	check := model.Check{
		TargetID:     target.ID,
		CheckedAt:    outcome.StartedAt,
		StatusCode:   outcome.StatusCode,
		LatencyMS:    &latency,
		IsUp:         verdict.IsUp,
		ReasonCode:   verdict.ReasonCode,
		ErrorMessage: verdict.ErrorMessage,
	}

	tx, err := r.store.BeginCheckTx(ctx, target.ID)
	if err != nil {
		r.metrics.IncCheckError()
		return nil, err
	}
	defer tx.Rollback()

	prev, err := tx.LastCheck(ctx, target.ID)
	if err != nil {
		r.metrics.IncCheckError()
		return nil, err
	}

	check.ID, err = tx.InsertCheck(ctx, check)
	if err != nil {
		r.metrics.IncCheckError()
		return nil, err
	}

	if err := applyTransition(ctx, tx, prev, check); err != nil {
		r.metrics.IncCheckError()
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		r.metrics.IncCheckError()
		return nil, err
	}
	return &check, nil
}
