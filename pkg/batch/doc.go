// Package batch implements the lazy batched request queue. Issued calls
// are held without being sent; the first caller to read any result
// flushes the whole queue as one physical batch of up to MaxBatchSize
// entries. Equivalent pending calls share a single slot.
//
// # Lifecycle
//
// A Call starts unresolved. Result accessors (Data, Response, Err, Field,
// Item, the iterator) force completion by syncing the owning Queue: the
// queue snapshots its pending calls, removes them, sends them as one
// physical batch through a Transport, and applies the ordered results
// back one-to-one. Resolution is terminal; a second result for the same
// call is ignored.
//
// Sequential code that issues many deferred calls and later reads one of
// them pays for one round trip, not many:
//
//	a, _ := q.NewCall(request.Descriptor{Method: request.MethodGet, Path: "me"})
//	a = q.Append(a, true)
//	b, _ := q.NewCall(request.Descriptor{Method: request.MethodGet, Path: "me/friends"})
//	b = q.Append(b, true)
//
//	data, err := a.Data(ctx) // one physical batch resolves both a and b
//
// # Pagination
//
// A resolved response may carry paging metadata. The successor call is
// built from the next link and enqueued lazily, so walking pages through
// Iter or All batches page fetches together with whatever else is queued.
//
// # Errors
//
// Failures are stored on the call and surface when a result accessor
// runs, never at resolution time. Transport and protocol failures
// fan out to every call of the affected physical batch; decode and remote
// API errors stay per-call. The first stored error always wins.
//
// # Concurrency
//
// A Queue and its Calls are confined to one goroutine. Laziness means
// deferred send time, not parallelism: the only blocking point is the
// physical send, and appends made while results are being processed land
// in a later batch, never the one just sent.
package batch
