// Package metrics holds the Prometheus collectors of the bot. Each Metrics
// owns its registry, so tests and multiple instances never collide on the
// global default registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "serialgate"

// Validation outcomes.
const (
	OutcomeAccepted      = "accepted"
	OutcomeBlocked       = "blocked"
	OutcomeRejected      = "rejected"
	OutcomeExternalError = "external_error"
)

type Metrics struct {
	registry *prometheus.Registry

	// Validations counts subscription proof attempts. Labels: outcome.
	Validations *prometheus.CounterVec

	// HandleCacheHits counts handle resolutions served from the cache.
	HandleCacheHits prometheus.Counter

	// Replies counts replies sent by kind. Labels: kind.
	Replies *prometheus.CounterVec

	// Reconciliations counts orphaned registrations removed on entry.
	Reconciliations prometheus.Counter

	BatchesShipped prometheus.Counter
	LinesShipped   prometheus.Counter
	CycleFailures  prometheus.Counter
	Truncations    prometheus.Counter

	// LogOffset is the current checkpoint offset into the log file.
	LogOffset prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Validations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "validator",
			Name:      "validations_total",
			Help:      "Subscription proof attempts by outcome",
		}, []string{"outcome"}),
		HandleCacheHits: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "validator",
			Name:      "handle_cache_hits_total",
			Help:      "Handle resolutions served from the cache",
		}),
		Replies: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "onboarding",
			Name:      "replies_total",
			Help:      "Replies produced by kind",
		}, []string{"kind"}),
		Reconciliations: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "onboarding",
			Name:      "orphans_repaired_total",
			Help:      "Registrations without a subscription removed on entry",
		}),
		BatchesShipped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auditlog",
			Name:      "batches_shipped_total",
			Help:      "Log batches written to the sinks",
		}),
		LinesShipped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auditlog",
			Name:      "lines_shipped_total",
			Help:      "Log lines written to the sinks",
		}),
		CycleFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auditlog",
			Name:      "cycle_failures_total",
			Help:      "Checkpoint cycles that ended with an error",
		}),
		Truncations: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auditlog",
			Name:      "truncations_total",
			Help:      "Times the log file was compacted to zero",
		}),
		LogOffset: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "auditlog",
			Name:      "offset_bytes",
			Help:      "Checkpoint offset into the log file",
		}),
	}
}

// Registry exposes the underlying registry, e.g. for gathering in tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
