package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache hits by layer (redis)
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "graph_cache_hits_total",
			Help: "Total number of sub-response cache hits",
		},
		[]string{"layer"}, // "redis"
	)

	// CacheMisses tracks cache misses
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "graph_cache_misses_total",
			Help: "Total number of sub-response cache misses",
		},
	)

	// CacheSize tracks cache size in bytes by layer
	CacheSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "graph_cache_size_bytes",
			Help: "Current size of the sub-response cache in bytes",
		},
		[]string{"layer"}, // "redis"
	)

	// ConditionalRequestsSent tracks sub-requests sent with If-None-Match
	ConditionalRequestsSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "graph_conditional_requests_total",
			Help: "Total number of sub-requests sent with a cached validator",
		},
	)

	// NotModifiedResponses tracks 304 Not Modified sub-responses
	NotModifiedResponses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "graph_304_responses_total",
			Help: "Total number of 304 Not Modified sub-responses",
		},
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "graph_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete", "touch"
	)
)
