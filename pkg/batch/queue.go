package batch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Sternrassler/graph-batch-client/pkg/request"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// MaxBatchSize is the provider-imposed ceiling on logical calls per
// physical batch.
const MaxBatchSize = 50

// Transport sends one physical batch. Implementations must return exactly
// one result per entry, in entry order, or a single error that poisons
// the whole batch. A nil result stands for a null slot in the provider's
// response array. Errors wrapping ErrProtocol mark malformed responses;
// everything else counts as a transport failure.
type Transport interface {
	SendBatch(ctx context.Context, scope string, entries []request.Wire) ([]*Result, error)
}

// Recorder receives metadata about every flushed physical batch.
type Recorder interface {
	RecordBatch(rec Record)
}

// Queue accumulates unsent calls for one scope. Insertion order is send
// order, and send order is the response correlation contract. A queue is
// confined to one goroutine; see the package documentation.
type Queue struct {
	scope     string
	transport Transport
	recorder  Recorder
	build     request.BuildOptions
	logger    zerolog.Logger

	debugRequests bool
	debugHeaders  bool

	calls []*Call
}

// Config holds the queue configuration.
type Config struct {
	// Scope identifies the credential this queue batches for. It is
	// attached to the physical batch as its access_token.
	Scope string

	// Transport performs the physical sends. Required.
	Transport Transport

	// Recorder collects flushed-batch metadata. Optional.
	Recorder Recorder

	// Build carries session-wide normalization overrides.
	Build request.BuildOptions

	// DebugRequests logs every batch entry and result at debug level.
	DebugRequests bool

	// DebugHeaders includes response headers in debug logs.
	DebugHeaders bool
}

// NewQueue creates an empty queue.
func NewQueue(cfg Config) (*Queue, error) {
	if cfg.Transport == nil {
		return nil, fmt.Errorf("transport is required")
	}
	return &Queue{
		scope:         cfg.Scope,
		transport:     cfg.Transport,
		recorder:      cfg.Recorder,
		build:         cfg.Build,
		logger:        log.With().Str("component", "batch-queue").Logger(),
		debugRequests: cfg.DebugRequests,
		debugHeaders:  cfg.DebugHeaders,
	}, nil
}

// Len returns the number of queued, unsent calls.
func (q *Queue) Len() int {
	return len(q.calls)
}

// Scope returns the queue's scope identifier.
func (q *Queue) Scope() string {
	return q.scope
}

// Append queues a call. With dedup enabled, a request-equal call already
// queued is returned instead and the new call is discarded: issuing the
// same logical request twice before either is sent costs one physical
// request. Callers must hold the returned handle, which may not be the
// one passed in.
func (q *Queue) Append(c *Call, dedup bool) *Call {
	if dedup {
		for _, queued := range q.calls {
			if queued.Equal(c) {
				dedupHitsTotal.Inc()
				q.logger.Debug().
					Str("relative_url", c.wire.RelativeURL).
					Msg("deduplicated queued call")
				return queued
			}
		}
	}
	q.calls = append(q.calls, c)
	return c
}

// Sync flushes queued calls in physical batches until target resolves, or
// until the queue drains when target is nil. A target resolved by an
// earlier batch leaves the remainder queued for a later Sync. Sync
// returns early only when ctx ends; every other failure is stored on the
// affected calls.
func (q *Queue) Sync(ctx context.Context, target *Call) error {
	if target != nil && target.Completed() {
		return nil
	}
	for len(q.calls) > 0 && (target == nil || !target.Completed()) {
		if err := ctx.Err(); err != nil {
			return err
		}
		q.flush(ctx)
	}
	return nil
}

// flush sends one physical batch: the first MaxBatchSize live calls. The
// snapshot is removed from the queue before the send, so appends made
// while results are processed (hooks, pagination) land in a later batch,
// never the one just sent.
func (q *Queue) flush(ctx context.Context) {
	snapshot := q.take(MaxBatchSize)
	if len(snapshot) == 0 {
		return
	}

	entries := make([]request.Wire, len(snapshot))
	for i, c := range snapshot {
		entries[i] = c.wire
		if q.debugRequests {
			q.logger.Debug().
				Str("method", string(c.wire.Method)).
				Str("relative_url", c.wire.RelativeURL).
				Msg("batch entry")
		}
	}

	start := time.Now()
	results, err := q.transport.SendBatch(ctx, q.scope, entries)
	duration := time.Since(start)

	rec := Record{
		ID:       newRecordID(),
		Scope:    q.scope,
		Calls:    len(snapshot),
		Duration: duration,
		Err:      err,
	}

	outcome := "ok"
	switch {
	case err != nil:
		kind := KindTransport
		outcome = "transport_error"
		if errors.Is(err, ErrProtocol) {
			kind = KindProtocol
			outcome = "protocol_error"
		}
		q.logger.Warn().Err(err).
			Int("calls", len(snapshot)).
			Msg("physical batch failed")
		for _, c := range snapshot {
			c.storeErr(&Error{Kind: kind, Message: "physical batch failed", Err: err})
			callsResolvedTotal.WithLabelValues(resolveStatus(c.err)).Inc()
		}
	case len(results) != len(snapshot):
		outcome = "protocol_error"
		msg := fmt.Sprintf("batch returned %d results for %d requests", len(results), len(snapshot))
		rec.Err = fmt.Errorf("%w: %s", ErrProtocol, msg)
		q.logger.Warn().
			Int("calls", len(snapshot)).
			Int("results", len(results)).
			Msg("batch result count mismatch")
		for _, c := range snapshot {
			c.storeErr(&Error{Kind: KindProtocol, Message: msg})
			callsResolvedTotal.WithLabelValues(resolveStatus(c.err)).Inc()
		}
	default:
		for i, c := range snapshot {
			c.resolve(results[i])
		}
	}

	batchesTotal.WithLabelValues(outcome).Inc()
	batchSizeCalls.Observe(float64(len(snapshot)))
	batchDuration.Observe(duration.Seconds())

	q.logger.Debug().
		Int("calls", len(snapshot)).
		Str("outcome", outcome).
		Dur("duration", duration).
		Msg("physical batch flushed")

	if q.recorder != nil {
		q.recorder.RecordBatch(rec)
	}
}

// take removes and returns up to n unresolved calls from the front of the
// queue. Calls resolved while queued (cancelled) are dropped unsent.
func (q *Queue) take(n int) []*Call {
	out := make([]*Call, 0, n)
	i := 0
	for ; i < len(q.calls) && len(out) < n; i++ {
		c := q.calls[i]
		if c.Completed() {
			q.logger.Debug().
				Str("relative_url", c.wire.RelativeURL).
				Msg("dropping resolved call from queue")
			continue
		}
		out = append(out, c)
	}
	q.calls = q.calls[i:]
	return out
}
