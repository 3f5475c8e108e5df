package monitor

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gentrack/gentrack/internal/metrics"
	"github.com/gentrack/gentrack/internal/store"
)

// Scheduler drives the monitor loop: every poll interval it selects the
// due targets and runs them through the Runner, serially in id order.
type Scheduler struct {
	store   *store.Store
	runner  *Runner
	metrics *metrics.Metrics
	poll    time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	started atomic.Bool
	stopped atomic.Bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewScheduler creates a stopped scheduler.
func NewScheduler(st *store.Store, runner *Runner, mt *metrics.Metrics, poll time.Duration) *Scheduler {
	if poll <= 0 {
		poll = time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		store:   st,
		runner:  runner,
		metrics: mt,
		poll:    poll,
		ctx:     ctx,
		cancel:  cancel,
		stopCh:  make(chan struct{}),
	}
}

// Start launches the loop goroutine. Subsequent calls are no-ops.
func (s *Scheduler) Start() {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run()
	}()
}

// Stop cancels in-flight probes, signals the loop to exit and waits for
// it. Subsequent calls are no-ops.
func (s *Scheduler) Stop() {
	if !s.stopped.CompareAndSwap(false, true) {
		return
	}
	close(s.stopCh)
	s.cancel()
	s.wg.Wait()
}

// run executes a tick immediately, then one per poll interval. The
// first pass at startup picks up seed targets that have never been
// checked.
func (s *Scheduler) run() {
	timer := time.NewTimer(0)
	defer timer.Stop()
	<-timer.C // drain initial fire

	for {
		s.tick()

		timer.Reset(s.poll)
		select {
		case <-s.stopCh:
			return
		case <-timer.C:
		}
	}
}

// tick runs every due target once. A failure on one target is logged
// and skipped; it never aborts the rest of the pass.
func (s *Scheduler) tick() {
	select {
	case <-s.stopCh:
		return
	default:
	}

	due, err := s.store.DueTargets(s.ctx, time.Now().UTC())
	if err != nil {
		log.Printf("[monitor] erro: %v", err)
		return
	}
	s.metrics.SetDueTargets(len(due))

	for _, target := range due {
		select {
		case <-s.stopCh:
			return
		default:
		}
		if _, err := s.runner.RunCheck(s.ctx, target); err != nil {
			log.Printf("[monitor] erro: %v", err)
		}
	}
	s.metrics.IncSchedulerTick()
}
