// Package transport sends physical batches to the provider and
// demultiplexes the response array.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/graph-batch-client/pkg/batch"
	"github.com/Sternrassler/graph-batch-client/pkg/cache"
	"github.com/Sternrassler/graph-batch-client/pkg/request"
)

// Config holds the transport configuration.
type Config struct {
	// BaseURL is the provider origin physical batches are POSTed to.
	BaseURL string

	// HTTPClient overrides the default HTTP client. Optional.
	HTTPClient *http.Client

	// Cache enables conditional sub-requests for GET entries. Optional.
	Cache *cache.Manager

	// CacheTTL bounds how long validated sub-responses stay cached.
	// Defaults to cache.DefaultTTL.
	CacheTTL time.Duration

	// RetainHeaders keeps sub-response headers on the results handed
	// back. Without it headers are dropped once cache handling is done.
	RetainHeaders bool
}

// Client POSTs physical batches to the provider's batch endpoint.
// It implements the queue's Transport interface.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cache      *cache.Manager
	cacheTTL   time.Duration
	retain     bool
	logger     zerolog.Logger
}

// New creates a batch transport.
func New(cfg Config) (*Client, error) {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || !u.IsAbs() {
		return nil, fmt.Errorf("base url must be absolute (got %q)", cfg.BaseURL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: 30 * time.Second,
		}
	}

	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = cache.DefaultTTL
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
		cache:      cfg.Cache,
		cacheTTL:   ttl,
		retain:     cfg.RetainHeaders,
		logger:     log.With().Str("component", "transport").Logger(),
	}, nil
}

// batchEntry is the JSON shape of one entry inside the batch form field.
type batchEntry struct {
	Method        string           `json:"method"`
	RelativeURL   string           `json:"relative_url"`
	Body          string           `json:"body,omitempty"`
	AttachedFiles string           `json:"attached_files,omitempty"`
	Headers       []request.Header `json:"headers,omitempty"`
}

// attachment is a file part hoisted out of its entry onto the outer
// multipart request. Entries reference their parts via attached_files.
type attachment struct {
	name string
	part request.FilePart
}

// SendBatch sends the entries as one physical batch under the scope's
// access token and returns one result per entry, in entry order. Errors
// wrapping batch.ErrProtocol mark a malformed provider response; every
// other error is a transport failure.
func (c *Client) SendBatch(ctx context.Context, scope string, entries []request.Wire) ([]*batch.Result, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	if len(entries) > batch.MaxBatchSize {
		return nil, fmt.Errorf("batch of %d entries exceeds the %d entry limit", len(entries), batch.MaxBatchSize)
	}

	cached := c.lookupCached(ctx, scope, entries)

	payload, files := buildEntries(entries, cached)
	body, contentType, err := encodeRequest(scope, payload, files, c.includeHeaders())
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/", body)
	if err != nil {
		return nil, fmt.Errorf("create batch request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().
		Int("entries", len(entries)).
		Int("files", len(files)).
		Msg("sending physical batch")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	httpRequestDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		httpRequestsTotal.WithLabelValues("network_error").Inc()
		return nil, fmt.Errorf("send batch: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		httpRequestsTotal.WithLabelValues("network_error").Inc()
		return nil, fmt.Errorf("read batch response: %w", err)
	}
	httpRequestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn().
			Int("status", resp.StatusCode).
			Msg("batch request rejected")
		return nil, fmt.Errorf("batch request returned status %d: %s", resp.StatusCode, snippet(raw))
	}

	var results []*batch.Result
	if err := json.Unmarshal(raw, &results); err != nil {
		return nil, fmt.Errorf("%w: decode batch response: %v", batch.ErrProtocol, err)
	}

	c.finishResults(ctx, scope, entries, cached, results)

	return results, nil
}

// lookupCached fetches cache entries for the GET members of the batch.
// The returned slice aligns with entries; nil slots mean no validator is
// available. Returns nil when caching is disabled.
func (c *Client) lookupCached(ctx context.Context, scope string, entries []request.Wire) []*cache.Entry {
	if c.cache == nil {
		return nil
	}
	cached := make([]*cache.Entry, len(entries))
	for i, w := range entries {
		if w.Method != request.MethodGet {
			continue
		}
		entry, err := c.cache.Get(ctx, cache.NewKey(scope, w))
		if err != nil {
			if err != cache.ErrCacheMiss {
				c.logger.Warn().Err(err).
					Str("relative_url", w.RelativeURL).
					Msg("cache get failed")
			}
			continue
		}
		if cache.ShouldRevalidate(entry) {
			cached[i] = entry
			cache.ConditionalRequestsSent.Inc()
		}
	}
	return cached
}

// finishResults applies cache handling to each slot and drops headers
// unless they were asked for. Count mismatches are left to the queue.
func (c *Client) finishResults(ctx context.Context, scope string, entries []request.Wire, cached []*cache.Entry, results []*batch.Result) {
	for i, res := range results {
		if i >= len(entries) || res == nil {
			continue
		}

		if c.cache != nil && entries[i].Method == request.MethodGet {
			key := cache.NewKey(scope, entries[i])
			switch {
			case res.Code == http.StatusNotModified && cached != nil && cached[i] != nil:
				cache.NotModifiedResponses.Inc()
				if err := c.cache.Touch(ctx, key, c.cacheTTL); err != nil && err != cache.ErrCacheMiss {
					c.logger.Warn().Err(err).Msg("cache touch failed")
				}
				c.logger.Debug().
					Str("relative_url", entries[i].RelativeURL).
					Msg("304 not modified, using cached sub-response")
				res = cached[i].Result()
				results[i] = res
			case res.Code == http.StatusOK:
				if entry := cache.EntryFromResult(res); entry != nil {
					if err := c.cache.Set(ctx, key, entry, c.cacheTTL); err != nil {
						c.logger.Warn().Err(err).Msg("cache set failed")
					}
				}
			}
		}

		if !c.retain {
			res.Headers = nil
		}
	}
}

// includeHeaders reports whether the provider is asked to echo
// sub-response headers. They are only needed for cache validators or
// when the caller wants them retained.
func (c *Client) includeHeaders() bool {
	return c.cache != nil || c.retain
}

// buildEntries converts wire entries to their batch JSON shape and
// hoists file parts into outer attachments with generated part names.
func buildEntries(entries []request.Wire, cached []*cache.Entry) ([]batchEntry, []attachment) {
	out := make([]batchEntry, len(entries))
	var files []attachment

	for i, w := range entries {
		e := batchEntry{
			Method:      string(w.Method),
			RelativeURL: w.RelativeURL,
			Headers:     w.Headers,
		}

		switch b := w.Body.(type) {
		case request.FormBody:
			e.Body = b.Encoded
		case request.MultipartBody:
			e.Body = b.Encoded
			names := make([]string, len(b.Files))
			for j, f := range b.Files {
				name := fmt.Sprintf("file%d", len(files))
				files = append(files, attachment{name: name, part: f})
				names[j] = name
			}
			e.AttachedFiles = strings.Join(names, ",")
		}

		if cached != nil && cached[i] != nil {
			hdrs := append([]request.Header(nil), e.Headers...)
			e.Headers = append(hdrs, cache.ConditionalHeader(cached[i]))
		}

		out[i] = e
	}

	return out, files
}

// encodeRequest assembles the outer POST body: URL-encoded form fields
// when the batch carries no files, multipart/form-data otherwise.
func encodeRequest(scope string, payload []batchEntry, files []attachment, includeHeaders bool) (io.Reader, string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, "", fmt.Errorf("encode batch entries: %w", err)
	}

	form := url.Values{}
	form.Set("batch", string(raw))
	form.Set("include_headers", strconv.FormatBool(includeHeaders))
	if scope != "" {
		form.Set("access_token", scope)
	}

	if len(files) == 0 {
		encoded := form.Encode()
		httpRequestPayloadBytes.Observe(float64(len(encoded)))
		return strings.NewReader(encoded), "application/x-www-form-urlencoded", nil
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for key := range form {
		if err := w.WriteField(key, form.Get(key)); err != nil {
			return nil, "", fmt.Errorf("encode form field %q: %w", key, err)
		}
	}
	for _, f := range files {
		part, err := w.CreatePart(partHeader(f))
		if err != nil {
			return nil, "", fmt.Errorf("create file part %q: %w", f.name, err)
		}
		if _, err := part.Write(f.part.Content); err != nil {
			return nil, "", fmt.Errorf("write file part %q: %w", f.name, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("finalize multipart body: %w", err)
	}

	httpRequestPayloadBytes.Observe(float64(buf.Len()))

	return &buf, w.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// partHeader builds the MIME header of one outer file part, keeping the
// attachment's declared filename and content type.
func partHeader(f attachment) textproto.MIMEHeader {
	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(f.name), quoteEscaper.Replace(f.part.Name)))
	contentType := f.part.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)
	return h
}

// snippet trims a response body for error messages.
func snippet(raw []byte) string {
	const max = 256
	s := strings.TrimSpace(string(raw))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
