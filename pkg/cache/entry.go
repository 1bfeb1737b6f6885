// Package cache provides Redis-backed storage for batch sub-responses
// with ETag support for conditional sub-requests.
package cache

import (
	"time"

	"github.com/Sternrassler/graph-batch-client/pkg/request"
)

// Entry represents one cached sub-response: the raw body of a 200
// result together with the validator the provider handed out for it.
type Entry struct {
	// Body is the raw, undecoded response body.
	Body string `json:"body"`

	// ETag for conditional sub-requests (If-None-Match)
	ETag string `json:"etag"`

	// Code is the status code of the cached sub-response.
	Code int `json:"code"`

	// Headers are the sub-response headers as received.
	Headers []request.Header `json:"headers,omitempty"`

	// CachedAt is when we stored this entry.
	CachedAt time.Time `json:"cached_at"`
}

// Age returns how long ago the entry was stored.
func (e *Entry) Age() time.Duration {
	return time.Since(e.CachedAt)
}
