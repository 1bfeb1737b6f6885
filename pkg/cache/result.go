package cache

import (
	"time"

	"github.com/Sternrassler/graph-batch-client/pkg/batch"
	"github.com/Sternrassler/graph-batch-client/pkg/request"
)

const (
	// DefaultTTL is the fallback TTL when the caller supplies none
	DefaultTTL = 5 * time.Minute
)

// EntryFromResult converts a successful sub-response into a cache entry.
// Returns nil when the result carries no body or no ETag: such results
// cannot be revalidated later and are not worth storing.
func EntryFromResult(res *batch.Result) *Entry {
	if res == nil || res.Body == nil {
		return nil
	}
	etag := res.Header("Etag")
	if etag == "" {
		return nil
	}

	return &Entry{
		Body:     *res.Body,
		ETag:     etag,
		Code:     res.Code,
		Headers:  cloneHeaders(res.Headers),
		CachedAt: time.Now(),
	}
}

// Result reconstructs the sub-response this entry was built from.
// Used to replace a 304 Not Modified slot with the cached representation.
func (e *Entry) Result() *batch.Result {
	body := e.Body
	return &batch.Result{
		Code:    e.Code,
		Headers: cloneHeaders(e.Headers),
		Body:    &body,
	}
}

// ShouldRevalidate determines if the entry can back a conditional
// sub-request (If-None-Match).
func ShouldRevalidate(entry *Entry) bool {
	return entry != nil && entry.ETag != ""
}

// ConditionalHeader returns the If-None-Match header carrying the
// entry's validator.
func ConditionalHeader(entry *Entry) request.Header {
	return request.Header{Name: "If-None-Match", Value: entry.ETag}
}

func cloneHeaders(headers []request.Header) []request.Header {
	if len(headers) == 0 {
		return nil
	}
	return append([]request.Header(nil), headers...)
}
