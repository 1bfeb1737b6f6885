// Package cache provides Redis-backed caching for batch sub-responses.
//
// The cache manager stores the bodies of 200 GET sub-responses together
// with their ETag validators:
//
// - ETag support for conditional sub-requests (If-None-Match)
// - 304 Not Modified slots replaced by the cached representation
// - TTL management via Redis expiry, refreshed on revalidation
// - Prometheus metrics for observability
// - Deterministic cache key generation (token scopes digested)
//
// # Basic Usage
//
//	// Create Redis client
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//
//	// Create cache manager
//	manager := cache.NewManager(redisClient)
//
//	// Create cache key
//	key := cache.Key{
//		Scope:       token,
//		Method:      "GET",
//		RelativeURL: "v2.12/me?fields=id%2Cname",
//	}
//
//	// Get from cache
//	entry, err := manager.Get(ctx, key)
//	if err == cache.ErrCacheMiss {
//		// Cache miss - send the sub-request unconditionally
//	}
//
// # Sub-Response Caching
//
//	// Convert a batch sub-response to a cache entry
//	entry := cache.EntryFromResult(res)
//	if entry != nil {
//		if err := manager.Set(ctx, key, entry, ttl); err != nil {
//			return err
//		}
//	}
//
// # Conditional Sub-Requests
//
//	// Check if we can revalidate instead of refetching
//	if cache.ShouldRevalidate(entry) {
//		wire.Headers = append(wire.Headers, cache.ConditionalHeader(entry))
//		// Provider returns 304 for this slot if the body is unchanged
//	}
//
// # Metrics
//
// The cache manager exports Prometheus metrics:
//
//   - graph_cache_hits_total{layer="redis"} - Cache hits
//   - graph_cache_misses_total - Cache misses
//   - graph_cache_size_bytes{layer="redis"} - Cache size
//   - graph_conditional_requests_total - Sub-requests sent with a validator
//   - graph_304_responses_total - Revalidation successes
//   - graph_cache_errors_total{operation} - Cache operation errors
//
// Only GET sub-requests participate in caching. Responses without an
// ETag header are never stored, and entries are keyed by token scope so
// the same path fetched under different tokens never aliases.
package cache
