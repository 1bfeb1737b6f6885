package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/Sternrassler/graph-batch-client/pkg/request"
)

// Hook runs synchronously when a call resolves, after response parsing
// and error detection and before the pagination follow-up. Hooks may
// issue further calls; those land in a later physical batch.
type Hook func(*Call)

// Call is the lazy handle for one logical request. Reading any result
// accessor forces completion by flushing the owning queue. Completion is
// terminal: a call is resolved exactly once, with a response, an error,
// or both (an error plus the partial response it was detected in).
type Call struct {
	desc  request.Descriptor
	wire  request.Wire
	queue *Queue

	hooks    []Hook
	autoPage bool
	quiet    bool

	resp *Response
	err  error
	next *Call
}

// CallOption adjusts a call at construction time.
type CallOption func(*Call)

// Quiet makes result accessors return zero values instead of the stored
// error; the error stays available through Err.
func Quiet() CallOption {
	return func(c *Call) { c.quiet = true }
}

// NoAutoPage disables the automatic next-page enqueue on resolution.
// NextPage still works on demand.
func NoAutoPage() CallOption {
	return func(c *Call) { c.autoPage = false }
}

// WithHook appends an on-resolve hook. Calls carrying hooks never
// deduplicate onto other calls.
func WithHook(h Hook) CallOption {
	return func(c *Call) { c.hooks = append(c.hooks, h) }
}

// NewCall normalizes desc and wraps it in an unresolved call bound to
// this queue. The call is not queued yet; pass it to Append.
func (q *Queue) NewCall(desc request.Descriptor, opts ...CallOption) (*Call, error) {
	wire, err := request.Build(desc, q.build)
	if err != nil {
		return nil, err
	}
	c := &Call{desc: desc, wire: wire, queue: q, autoPage: true}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Completed reports whether the call reached its terminal state.
func (c *Call) Completed() bool {
	return c.resp != nil || c.err != nil
}

// Wire returns the normalized wire entry the call will be sent as.
func (c *Call) Wire() request.Wire {
	return c.wire
}

// Descriptor returns the descriptor the call was built from.
func (c *Call) Descriptor() request.Descriptor {
	return c.desc
}

// Queue returns the queue servicing this call.
func (c *Call) Queue() *Queue {
	return c.queue
}

// sync forces completion through the owning queue.
func (c *Call) sync(ctx context.Context) error {
	if c.Completed() {
		return nil
	}
	return c.queue.Sync(ctx, c)
}

// gate is the shared accessor gate: force completion, then surface the
// stored error unless the call is quiet.
func (c *Call) gate(ctx context.Context) error {
	if err := c.sync(ctx); err != nil {
		return err
	}
	if !c.quiet && c.err != nil {
		return c.err
	}
	return nil
}

// Response forces completion and returns the stored response, which is
// nil when the call failed before any result was stored. Response never
// surfaces the stored error; use Data or Err for that.
func (c *Call) Response(ctx context.Context) (*Response, error) {
	if err := c.sync(ctx); err != nil {
		return nil, err
	}
	return c.resp, nil
}

// Err forces completion and returns the stored error regardless of the
// quiet flag.
func (c *Call) Err(ctx context.Context) error {
	if err := c.sync(ctx); err != nil {
		return err
	}
	return c.err
}

// Data forces completion and returns the decoded data payload. Unless the
// call is quiet, a stored error is returned instead of data.
func (c *Call) Data(ctx context.Context) (any, error) {
	if err := c.gate(ctx); err != nil {
		return nil, err
	}
	return c.resp.Data(), nil
}

// ErrorField forces completion and returns the error payload of the
// merged response. Useful with quiet calls that inspect envelopes by
// hand.
func (c *Call) ErrorField(ctx context.Context) (any, error) {
	if err := c.gate(ctx); err != nil {
		return nil, err
	}
	return c.resp.Field("error"), nil
}

// Field forces completion and returns one named field of the data
// mapping.
func (c *Call) Field(ctx context.Context, name string) (any, error) {
	data, err := c.Data(ctx)
	if err != nil {
		return nil, err
	}
	m, ok := data.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("data is %T, not a mapping", data)
	}
	return m[name], nil
}

// Contains forces completion and reports whether the data mapping carries
// the named field.
func (c *Call) Contains(ctx context.Context, name string) (bool, error) {
	data, err := c.Data(ctx)
	if err != nil {
		return false, err
	}
	m, ok := data.(map[string]any)
	if !ok {
		return false, fmt.Errorf("data is %T, not a mapping", data)
	}
	_, ok = m[name]
	return ok, nil
}

// Len forces completion and returns the current page's item count. It
// never advances pagination.
func (c *Call) Len(ctx context.Context) (int, error) {
	data, err := c.Data(ctx)
	if err != nil {
		return 0, err
	}
	switch t := data.(type) {
	case []any:
		return len(t), nil
	case map[string]any:
		return len(t), nil
	default:
		return 0, nil
	}
}

// Item forces completion and returns the i-th element of the data list.
// An index past the current page materializes all remaining pages first.
func (c *Call) Item(ctx context.Context, i int) (any, error) {
	data, err := c.Data(ctx)
	if err != nil {
		return nil, err
	}
	list, ok := data.([]any)
	if !ok {
		return nil, fmt.Errorf("data is %T, not a list", data)
	}
	if i >= 0 && i < len(list) {
		return list[i], nil
	}
	all, err := c.All(ctx)
	if err != nil {
		return nil, err
	}
	if i < 0 || i >= len(all) {
		return nil, fmt.Errorf("index %d out of range for %d items", i, len(all))
	}
	return all[i], nil
}

// Cancel resolves an unsent call with a cancellation error; the queue
// drops it at the next flush without sending it. Cancelling a resolved
// call returns ErrAlreadyResolved.
func (c *Call) Cancel() error {
	if c.Completed() {
		return ErrAlreadyResolved
	}
	c.storeErr(&Error{Kind: KindCancelled, Message: "cancelled before send"})
	return nil
}

// Equal implements dedup equality: same normalized wire entry, no hooks
// on either side (hooks are not comparable), and matching completion
// states when either call is resolved.
func (c *Call) Equal(o *Call) bool {
	if c == o {
		return true
	}
	if o == nil {
		return false
	}
	if !c.wire.Equal(o.wire) {
		return false
	}
	if len(c.hooks) > 0 || len(o.hooks) > 0 {
		return false
	}
	if c.Completed() != o.Completed() {
		return false
	}
	if !c.Completed() {
		return true
	}
	return reflect.DeepEqual(c.resp, o.resp) && c.err == o.err
}

// storeErr records err as the call's terminal error unless an earlier
// error is stored. First error wins. The error's call back-reference is
// filled in when still unset.
func (c *Call) storeErr(err error) {
	if err == nil || c.err != nil {
		return
	}
	switch e := err.(type) {
	case *Error:
		if e.Call == nil {
			e.Call = c
		}
	case *APIError:
		if e.Call == nil {
			e.Call = c
		}
	}
	c.err = err
}

// resolve applies one transport result. Resolving an already completed
// call is ignored.
func (c *Call) resolve(res *Result) {
	if c.Completed() {
		c.queue.logger.Debug().
			Str("relative_url", c.wire.RelativeURL).
			Msg("ignoring result for already resolved call")
		return
	}

	if res == nil {
		c.storeErr(&Error{Kind: KindProtocol, Message: "provider returned null batch slot"})
		c.finish()
		return
	}

	fields := map[string]any{}
	if res.Body != nil {
		var decoded any
		if err := json.Unmarshal([]byte(*res.Body), &decoded); err != nil {
			c.storeErr(&Error{Kind: KindDecode, Message: "undecodable response body", Err: err})
		} else if m, ok := decoded.(map[string]any); ok && hasResponseKey(m) {
			fields = m
		} else {
			fields["data"] = decoded
		}
	}
	c.resp = &Response{Code: res.Code, Headers: res.Headers, Fields: fields}

	if c.err == nil {
		if apiErr := parseEnvelope(fields); apiErr != nil {
			c.storeErr(apiErr)
		}
	}

	if c.queue.debugRequests {
		ev := c.queue.logger.Debug().
			Int("code", res.Code).
			Str("relative_url", c.wire.RelativeURL)
		if c.queue.debugHeaders {
			ev = ev.Interface("headers", res.Headers)
		}
		ev.Msg("batch entry resolved")
	}

	c.finish()
}

// finish runs the on-resolve hooks in registration order, then follows
// pagination.
func (c *Call) finish() {
	callsResolvedTotal.WithLabelValues(resolveStatus(c.err)).Inc()
	for _, h := range c.hooks {
		h(c)
	}
	if c.autoPage {
		c.discoverNext()
	}
}

// hasResponseKey reports whether a decoded body mapping is a response
// envelope rather than a bare payload.
func hasResponseKey(m map[string]any) bool {
	if _, ok := m["data"]; ok {
		return true
	}
	_, ok := m["error"]
	return ok
}
