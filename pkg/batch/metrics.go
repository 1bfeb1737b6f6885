package batch

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for batch queue operations.
var (
	batchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "graph_batches_total",
			Help: "Total number of physical batches by outcome",
		},
		[]string{"outcome"}, // "ok", "transport_error", "protocol_error"
	)

	batchSizeCalls = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "graph_batch_size_calls",
			Help:    "Logical calls per physical batch",
			Buckets: []float64{1, 2, 5, 10, 20, 35, 50},
		},
	)

	batchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "graph_batch_duration_seconds",
			Help:    "Physical batch duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
		},
	)

	dedupHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "graph_dedup_hits_total",
			Help: "Total queued calls deduplicated onto an existing equal call",
		},
	)

	callsResolvedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "graph_calls_resolved_total",
			Help: "Total resolved logical calls by status",
		},
		[]string{"status"}, // "ok", "remote", or an error kind
	)

	pagesFollowedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "graph_pages_followed_total",
			Help: "Total pagination follow-up calls enqueued",
		},
	)
)

// resolveStatus labels a resolved call for metrics.
func resolveStatus(err error) string {
	if err == nil {
		return "ok"
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return "remote"
	}
	var e *Error
	if errors.As(err, &e) {
		return string(e.Kind)
	}
	return "error"
}
