// Package metrics exposes Prometheus instrumentation for the store:
// commit/rollback counters, queue depth, operation latency, and repair
// activity. Exposition is optional — the serve entrypoint only starts
// the HTTP listener when an address is configured.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// commitsTotal counts successfully committed mutations.
	// Labels: changed (the changed-parts tag set, e.g. "tasks").
	commitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cairn",
		Subsystem: "store",
		Name:      "commits_total",
		Help:      "Total successfully committed mutations",
	}, []string{"changed"})

	// rollbacksTotal counts discarded snapshots by failure kind.
	// Labels: reason (validation, size_limit, integrity, error, panic).
	rollbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cairn",
		Subsystem: "store",
		Name:      "rollbacks_total",
		Help:      "Total discarded snapshots by failure kind",
	}, []string{"reason"})

	repairsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "cairn",
		Subsystem: "integrity",
		Name:      "repairs_total",
		Help:      "Total auto-repair actions applied",
	})

	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "cairn",
		Subsystem: "store",
		Name:      "queue_depth",
		Help:      "Current number of queued operations",
	})

	opDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "cairn",
		Subsystem: "store",
		Name:      "operation_duration_seconds",
		Help:      "End-to-end mutation execution latency in seconds",
		Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
	})
)

// ObserveCommit records one committed mutation with its changed-parts tag.
func ObserveCommit(changed string) { commitsTotal.WithLabelValues(changed).Inc() }

// ObserveRollback records one discarded snapshot.
func ObserveRollback(reason string) { rollbacksTotal.WithLabelValues(reason).Inc() }

// ObserveRepairs records n applied auto-repair actions.
func ObserveRepairs(n int) { repairsTotal.Add(float64(n)) }

// SetQueueDepth publishes the current queue depth.
func SetQueueDepth(n int) { queueDepth.Set(float64(n)) }

// ObserveOpDuration records one mutation's execution latency.
func ObserveOpDuration(seconds float64) { opDuration.Observe(seconds) }

// Handler returns the Prometheus exposition handler.
func Handler() http.Handler { return promhttp.Handler() }
