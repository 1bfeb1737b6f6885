// Package client provides the public issuing surface of the batch
// client: a Session owning per-scope queues and a token-bound facade
// for lazy GET and immediate write calls.
package client

import (
	"context"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/Sternrassler/graph-batch-client/pkg/batch"
	"github.com/Sternrassler/graph-batch-client/pkg/config"
	"github.com/Sternrassler/graph-batch-client/pkg/request"
)

// Config holds the client configuration.
type Config struct {
	// Settings is the resolved configuration; Settings.AppToken is the
	// default credential every batch is sent under.
	Settings config.Settings

	// Redis backs the sub-response cache. Required when Settings.ETags
	// is enabled.
	Redis *redis.Client

	// Transport overrides the assembled HTTP transport. Optional.
	Transport batch.Transport
}

// Client issues logical calls against one Session. The zero value is
// not usable; construct with New. A client is bound to the app token
// as its batch scope and optionally to a per-call user token; WithToken
// derives token-bound copies sharing the same session.
type Client struct {
	session  *Session
	appToken string
	token    string
	version  string
}

// New creates a client and its backing session.
func New(cfg Config) (*Client, error) {
	if cfg.Settings.AppToken == "" {
		return nil, ErrNoAppToken
	}
	session, err := NewSession(cfg)
	if err != nil {
		return nil, err
	}
	return &Client{
		session:  session,
		appToken: cfg.Settings.AppToken,
		version:  cfg.Settings.APIVersion,
	}, nil
}

// WithToken returns a copy of the client whose calls carry token as
// their per-call credential. The session, and with it the pending
// queue, is shared.
func (c *Client) WithToken(token string) *Client {
	clone := *c
	clone.token = token
	return &clone
}

// Session returns the backing session.
func (c *Client) Session() *Session {
	return c.session
}

// Option adjusts one issued call.
type Option func(*issueConfig)

type issueConfig struct {
	deferred bool
	quiet    bool
	callOpts []batch.CallOption
}

// Deferred leaves the call queued; it is sent when a result is first
// read or a later Sync flushes the queue.
func Deferred() Option {
	return func(ic *issueConfig) { ic.deferred = true }
}

// Immediate syncs the queue before returning, surfacing any stored
// error right away.
func Immediate() Option {
	return func(ic *issueConfig) { ic.deferred = false }
}

// Quiet stores errors on the call without surfacing them from result
// accessors or immediate issuance; Err exposes them on demand.
func Quiet() Option {
	return func(ic *issueConfig) {
		ic.quiet = true
		ic.callOpts = append(ic.callOpts, batch.Quiet())
	}
}

// NoAutoPage disables the automatic next-page enqueue on resolution.
func NoAutoPage() Option {
	return func(ic *issueConfig) {
		ic.callOpts = append(ic.callOpts, batch.NoAutoPage())
	}
}

// OnResolve registers fn to run when the call resolves. Calls carrying
// hooks are never deduplicated.
func OnResolve(fn func(*batch.Call)) Option {
	return func(ic *issueConfig) {
		ic.callOpts = append(ic.callOpts, batch.WithHook(fn))
	}
}

// Get issues a GET. Deferred by default: nothing is sent until a
// result is read.
func (c *Client) Get(ctx context.Context, path string, params request.Params, opts ...Option) (*batch.Call, error) {
	return c.issue(ctx, request.MethodGet, path, params, true, opts)
}

// Post issues a POST. Immediate by default, so an error is surfaced
// even when the caller never reads the result.
func (c *Client) Post(ctx context.Context, path string, params request.Params, opts ...Option) (*batch.Call, error) {
	return c.issue(ctx, request.MethodPost, path, params, false, opts)
}

// Put issues a PUT. Immediate by default.
func (c *Client) Put(ctx context.Context, path string, params request.Params, opts ...Option) (*batch.Call, error) {
	return c.issue(ctx, request.MethodPut, path, params, false, opts)
}

// Delete issues a DELETE. Immediate by default.
func (c *Client) Delete(ctx context.Context, path string, params request.Params, opts ...Option) (*batch.Call, error) {
	return c.issue(ctx, request.MethodDelete, path, params, false, opts)
}

// IntrospectToken asks the provider to describe the client's per-call
// token. Deferred by default.
func (c *Client) IntrospectToken(ctx context.Context, opts ...Option) (*batch.Call, error) {
	return c.issue(ctx, request.MethodTokenIntrospect, "", nil, true, opts)
}

// issue builds, queues and optionally syncs one logical call.
func (c *Client) issue(ctx context.Context, method request.Method, path string, params request.Params, deferred bool, opts []Option) (*batch.Call, error) {
	ic := issueConfig{deferred: deferred}
	for _, opt := range opts {
		opt(&ic)
	}

	// The version prefix applies to caller paths only; introspection
	// targets its fixed path, and pagination links are already complete.
	if c.version != "" && method != request.MethodTokenIntrospect {
		path = c.version + "/" + strings.TrimLeft(path, "/")
	}

	queue := c.session.Queue(c.appToken)
	call, err := queue.NewCall(request.Descriptor{
		Method: method,
		Path:   path,
		Params: params,
		Token:  c.token,
	}, ic.callOpts...)
	if err != nil {
		return nil, err
	}
	call = queue.Append(call, true)

	if ic.deferred {
		return call, nil
	}

	if err := queue.Sync(ctx, call); err != nil {
		return call, err
	}
	if !ic.quiet {
		if err := call.Err(ctx); err != nil {
			return call, err
		}
	}
	return call, nil
}
