package transport

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for physical batch requests.
var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "graph_http_requests_total",
		Help: "Total physical batch requests by status",
	}, []string{"status"})

	httpRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "graph_http_request_duration_seconds",
		Help:    "Physical batch request duration in seconds",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	})

	httpRequestPayloadBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "graph_http_request_payload_bytes",
		Help:    "Encoded physical batch payload size in bytes",
		Buckets: prometheus.ExponentialBuckets(256, 4, 8),
	})
)
