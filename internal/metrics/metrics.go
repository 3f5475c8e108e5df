// Package metrics exposes the Prometheus instrumentation for the
// monitor loop and probe pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gentrack/gentrack/internal/buildinfo"
)

// Metrics owns a private registry so tests can create isolated
// instances without colliding on the global default.
type Metrics struct {
	registry *prometheus.Registry

	checksTotal   *prometheus.CounterVec
	probeDuration prometheus.Histogram
	checkErrors   prometheus.Counter
	ticksTotal    prometheus.Counter
	dueTargets    prometheus.Gauge
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		checksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gentrack_checks_total",
			Help: "Completed checks by result: up or the down reason code.",
		}, []string{"result"}),
		probeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "gentrack_probe_duration_seconds",
			Help:    "End-to-end probe latency including the body read.",
			Buckets: prometheus.DefBuckets,
		}),
		checkErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gentrack_check_errors_total",
			Help: "Check runs that failed at the store and were rolled back.",
		}),
		ticksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gentrack_scheduler_ticks_total",
			Help: "Completed scheduler passes over the due targets.",
		}),
		dueTargets: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gentrack_due_targets",
			Help: "Targets selected as due on the most recent tick.",
		}),
	}

	buildInfo := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "gentrack_build_info",
		Help: "Build metadata, always 1.",
		ConstLabels: prometheus.Labels{
			"version":    buildinfo.Version,
			"git_commit": buildinfo.GitCommit,
		},
	})
	buildInfo.Set(1)

	m.registry.MustRegister(
		m.checksTotal,
		m.probeDuration,
		m.checkErrors,
		m.ticksTotal,
		m.dueTargets,
		buildInfo,
	)
	return m
}

// ObserveCheck records one completed check. result is "up" for healthy
// checks, otherwise the reason code recorded with the check.
func (m *Metrics) ObserveCheck(result string, latencySeconds float64) {
	m.checksTotal.WithLabelValues(result).Inc()
	m.probeDuration.Observe(latencySeconds)
}

// IncCheckError counts a check run aborted by a store failure.
func (m *Metrics) IncCheckError() {
	m.checkErrors.Inc()
}

// IncSchedulerTick counts a completed scheduler pass.
func (m *Metrics) IncSchedulerTick() {
	m.ticksTotal.Inc()
}

// SetDueTargets records how many targets the last tick selected.
func (m *Metrics) SetDueTargets(n int) {
	m.dueTargets.Set(float64(n))
}

// Handler serves the Prometheus exposition format for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
