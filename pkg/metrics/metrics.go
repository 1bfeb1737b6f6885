// Package metrics provides centralized Prometheus metrics registry for
// the batch client. All metrics are defined in their respective packages
// (batch, transport, cache) to maintain modularity and avoid circular
// dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the batch client.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Queue Metrics (pkg/batch):
//   - graph_batches_total{outcome} (Counter): Physical batches by outcome (ok, transport_error, protocol_error)
//   - graph_batch_size_calls (Histogram): Logical calls per physical batch
//   - graph_batch_duration_seconds (Histogram): Physical batch duration
//   - graph_dedup_hits_total (Counter): Queued calls deduplicated onto an existing equal call
//   - graph_calls_resolved_total{status} (Counter): Resolved logical calls by status (ok, remote, or error kind)
//   - graph_pages_followed_total (Counter): Pagination follow-up calls enqueued
//
// Transport Metrics (pkg/transport):
//   - graph_http_requests_total{status} (Counter): Physical batch POSTs by HTTP status
//   - graph_http_request_duration_seconds (Histogram): Physical batch round-trip duration
//   - graph_http_request_payload_bytes (Histogram): Encoded batch payload size
//
// Cache Metrics (pkg/cache):
//   - graph_cache_hits_total{layer="redis"} (Counter): Sub-response cache hits by layer
//   - graph_cache_misses_total (Counter): Sub-response cache misses
//   - graph_cache_size_bytes{layer="redis"} (Gauge): Current cache size in bytes
//   - graph_conditional_requests_total (Counter): Sub-requests sent with If-None-Match
//   - graph_304_responses_total (Counter): 304 Not Modified sub-responses
//   - graph_cache_errors_total{operation} (Counter): Cache operation errors (get, set, delete, touch)
//
// Example Prometheus Queries:
//
//   # Batch Fill Rate (logical calls per physical POST)
//   sum(rate(graph_batch_size_calls_sum[5m])) /
//   sum(rate(graph_batch_size_calls_count[5m]))
//
//   # Cache Hit Rate
//   sum(rate(graph_cache_hits_total[5m])) /
//   (sum(rate(graph_cache_hits_total[5m])) + sum(rate(graph_cache_misses_total[5m])))
//
//   # Dedup Savings
//   rate(graph_dedup_hits_total[5m])
//
//   # P95 Batch Latency
//   histogram_quantile(0.95, rate(graph_batch_duration_seconds_bucket[5m]))
//
//   # 304 Revalidation Rate
//   rate(graph_304_responses_total[5m]) / rate(graph_conditional_requests_total[5m])
