package batch

import (
	"strings"

	"github.com/Sternrassler/graph-batch-client/pkg/request"
)

// Result is one slot of a physical batch response, as produced by a
// Transport. A nil *Result stands for a null slot in the provider's
// response array. Headers use the provider's name/value pair shape and
// are present only when the transport asked for them.
type Result struct {
	Code    int              `json:"code"`
	Headers []request.Header `json:"headers,omitempty"`
	Body    *string          `json:"body"` // nil when the provider sent no body for this slot
}

// Header returns the first header with the given name, matched
// case-insensitively, or the empty string.
func (r *Result) Header(name string) string {
	if r == nil {
		return ""
	}
	for _, h := range r.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// Response is the decoded, merged response stored on a resolved call. A
// body mapping that carries a data or error key is merged into Fields;
// any other decoded value is wrapped under the data key. The raw text
// body is never retained once decoded.
type Response struct {
	Code    int
	Headers []request.Header
	Fields  map[string]any
}

// Data returns the decoded data payload, if any.
func (r *Response) Data() any {
	if r == nil {
		return nil
	}
	return r.Fields["data"]
}

// Field returns one named entry of the merged response fields.
func (r *Response) Field(name string) any {
	if r == nil {
		return nil
	}
	return r.Fields[name]
}

// Header returns the first stored header with the given name, matched
// case-insensitively, or the empty string. Headers survive on the
// stored response only when the queue is configured to keep them.
func (r *Response) Header(name string) string {
	if r == nil {
		return ""
	}
	for _, h := range r.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}
