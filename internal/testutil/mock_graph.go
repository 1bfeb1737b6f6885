// Package testutil provides testing utilities for the batch client.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
)

// DefaultETag is the validator the default route hands out.
const DefaultETag = `"default-etag"`

// SubRequest is one decoded batch entry as the server received it.
type SubRequest struct {
	Method        string
	RelativeURL   string
	Path          string
	Query         url.Values
	Form          url.Values
	Headers       map[string]string
	AttachedFiles []string
}

// Header returns an entry header by name, case-insensitively.
func (r SubRequest) Header(name string) string {
	for k, v := range r.Headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

// SubResponse defines the reply a route produces for one batch entry.
type SubResponse struct {
	Code    int
	Body    string
	Headers map[string]string

	// Null emits a null slot instead of a response object.
	Null bool
}

// RouteFunc produces the sub-response for one decoded entry.
type RouteFunc func(req SubRequest) SubResponse

// MockGraph is a configurable mock provider speaking the batch
// protocol: it decodes the batch form field of each physical POST,
// dispatches every entry to a per-path route and assembles the
// response array.
type MockGraph struct {
	server *httptest.Server
	mu     sync.RWMutex
	routes map[string]RouteFunc

	// Tracking
	BatchCount       int
	CallCount        int
	ConditionalCount int
	LastAccessToken  string
	LastBatch        []SubRequest
	LastFiles        map[string]string
}

// NewMockGraph creates a new mock provider server.
func NewMockGraph() *MockGraph {
	mock := &MockGraph{
		routes: make(map[string]RouteFunc),
	}
	mock.server = httptest.NewServer(http.HandlerFunc(mock.handle))
	return mock
}

// URL returns the mock server URL.
func (m *MockGraph) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockGraph) Close() {
	m.server.Close()
}

// Reset clears all tracking state. Routes stay installed.
func (m *MockGraph) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.BatchCount = 0
	m.CallCount = 0
	m.ConditionalCount = 0
	m.LastAccessToken = ""
	m.LastBatch = nil
	m.LastFiles = nil
}

// SetRoute installs a route for a relative path (no leading slash, no
// query), e.g. "v2.12/me".
func (m *MockGraph) SetRoute(path string, fn RouteFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.routes[strings.TrimLeft(path, "/")] = fn
}

// SetResponse installs a route answering with one fixed sub-response.
func (m *MockGraph) SetResponse(path string, resp SubResponse) {
	m.SetRoute(path, func(SubRequest) SubResponse {
		return resp
	})
}

// SetPagedRoute installs a cursor-paged route: each page carries a
// paging.next link to the following one, and the declared limit when
// limit is positive. Every page body is a JSON array of data items.
func (m *MockGraph) SetPagedRoute(path string, limit int, pages ...string) {
	path = strings.TrimLeft(path, "/")
	m.SetRoute(path, func(req SubRequest) SubResponse {
		page := 0
		if after := req.Query.Get("after"); after != "" {
			if n, err := strconv.Atoi(after); err == nil {
				page = n
			}
		}
		if page < 0 || page >= len(pages) {
			return NewErrorResponse(http.StatusBadRequest, "GraphMethodException", "no such page", 100)
		}

		var data any
		if err := json.Unmarshal([]byte(pages[page]), &data); err != nil {
			return NewErrorResponse(http.StatusInternalServerError, "MockError", "bad page fixture: "+err.Error(), 1)
		}
		body := map[string]any{"data": data}
		if limit > 0 {
			body["limit"] = limit
		}
		if page+1 < len(pages) {
			next := fmt.Sprintf("%s/%s?after=%d", m.URL(), path, page+1)
			if limit > 0 {
				next += fmt.Sprintf("&limit=%d", limit)
			}
			body["paging"] = map[string]any{"next": next}
		}

		raw, _ := json.Marshal(body)
		return SubResponse{
			Code:    http.StatusOK,
			Body:    string(raw),
			Headers: map[string]string{"Content-Type": "application/json; charset=UTF-8"},
		}
	})
}

// GetBatchCount returns the number of physical batches received.
func (m *MockGraph) GetBatchCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.BatchCount
}

// GetCallCount returns the number of batch entries received.
func (m *MockGraph) GetCallCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.CallCount
}

// GetConditionalCount returns the number of entries that carried a
// validator.
func (m *MockGraph) GetConditionalCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ConditionalCount
}

// wireEntry mirrors the JSON shape of one entry in the batch field.
type wireEntry struct {
	Method        string `json:"method"`
	RelativeURL   string `json:"relative_url"`
	Body          string `json:"body"`
	AttachedFiles string `json:"attached_files"`
	Headers       []struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	} `json:"headers"`
}

// slot is the JSON shape of one element of the response array.
type slot struct {
	Code    int        `json:"code"`
	Headers []headerKV `json:"headers,omitempty"`
	Body    *string    `json:"body"`
}

type headerKV struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

func (m *MockGraph) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeEnvelope(w, http.StatusBadRequest, "only batch POSTs are supported")
		return
	}

	raw := r.FormValue("batch")
	if raw == "" {
		writeEnvelope(w, http.StatusBadRequest, "batch field is missing")
		return
	}

	var entries []wireEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		writeEnvelope(w, http.StatusBadRequest, "batch field is not a JSON array")
		return
	}

	subs := make([]SubRequest, len(entries))
	for i, e := range entries {
		subs[i] = decodeEntry(e)
	}

	m.mu.Lock()
	m.BatchCount++
	m.CallCount += len(subs)
	m.LastAccessToken = r.FormValue("access_token")
	m.LastBatch = subs
	m.LastFiles = nil
	if r.MultipartForm != nil {
		m.LastFiles = make(map[string]string)
		for name, fhs := range r.MultipartForm.File {
			if len(fhs) > 0 {
				m.LastFiles[name] = fhs[0].Filename
			}
		}
	}
	for _, sub := range subs {
		if sub.Header("If-None-Match") != "" {
			m.ConditionalCount++
		}
	}
	m.mu.Unlock()

	includeHeaders := r.FormValue("include_headers") == "true"

	out := make([]json.RawMessage, len(subs))
	for i, sub := range subs {
		resp := m.route(sub.Path)(sub)
		if resp.Null {
			out[i] = json.RawMessage("null")
			continue
		}

		s := slot{Code: resp.Code}
		if includeHeaders {
			for name, value := range resp.Headers {
				s.Headers = append(s.Headers, headerKV{Name: name, Value: value})
			}
		}
		if resp.Body != "" {
			body := resp.Body
			s.Body = &body
		}

		raw, err := json.Marshal(s)
		if err != nil {
			writeEnvelope(w, http.StatusInternalServerError, "encode slot: "+err.Error())
			return
		}
		out[i] = raw
	}

	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	json.NewEncoder(w).Encode(out)
}

// route returns the installed route for path, or the default route.
func (m *MockGraph) route(path string) RouteFunc {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if fn, ok := m.routes[path]; ok {
		return fn
	}
	return defaultRoute
}

// decodeEntry expands one wire entry into its SubRequest form.
func decodeEntry(e wireEntry) SubRequest {
	sub := SubRequest{
		Method:      e.Method,
		RelativeURL: e.RelativeURL,
		Headers:     make(map[string]string, len(e.Headers)),
	}

	path, rawQuery, _ := strings.Cut(e.RelativeURL, "?")
	sub.Path = strings.TrimLeft(path, "/")
	if q, err := url.ParseQuery(rawQuery); err == nil {
		sub.Query = q
	} else {
		sub.Query = url.Values{}
	}

	if f, err := url.ParseQuery(e.Body); err == nil {
		sub.Form = f
	} else {
		sub.Form = url.Values{}
	}

	for _, h := range e.Headers {
		sub.Headers[h.Name] = h.Value
	}
	if e.AttachedFiles != "" {
		sub.AttachedFiles = strings.Split(e.AttachedFiles, ",")
	}

	return sub
}

// defaultRoute provides a provider-like response for unrouted paths.
func defaultRoute(req SubRequest) SubResponse {
	if req.Header("If-None-Match") == DefaultETag {
		return SubResponse{
			Code:    http.StatusNotModified,
			Headers: map[string]string{"ETag": DefaultETag},
		}
	}
	return SubResponse{
		Code: http.StatusOK,
		Body: `{"status": "ok"}`,
		Headers: map[string]string{
			"ETag":         DefaultETag,
			"Content-Type": "application/json; charset=UTF-8",
		},
	}
}

// writeEnvelope rejects the whole physical batch with an error envelope.
func writeEnvelope(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(code)
	fmt.Fprintf(w, `{"error":{"message":%q,"type":"GraphBatchException","code":1}}`, message)
}

// NewJSONResponse creates a 200 response carrying a JSON body and an
// ETag validator.
func NewJSONResponse(body, etag string) SubResponse {
	headers := map[string]string{
		"Content-Type": "application/json; charset=UTF-8",
	}
	if etag != "" {
		headers["ETag"] = etag
	}
	return SubResponse{
		Code:    http.StatusOK,
		Body:    body,
		Headers: headers,
	}
}

// NewErrorResponse creates a provider error envelope response.
func NewErrorResponse(httpCode int, errType, message string, errCode int) SubResponse {
	body, _ := json.Marshal(map[string]any{
		"error": map[string]any{
			"message":    message,
			"type":       errType,
			"code":       errCode,
			"fbtrace_id": "mock-trace",
		},
	})
	return SubResponse{
		Code:    httpCode,
		Body:    string(body),
		Headers: map[string]string{"Content-Type": "application/json; charset=UTF-8"},
	}
}

// NewConditionalRoute creates a route that answers 304 when the entry
// revalidates with the matching validator and a full 200 otherwise.
func NewConditionalRoute(etag, body string) RouteFunc {
	return func(req SubRequest) SubResponse {
		if req.Header("If-None-Match") == etag {
			return SubResponse{
				Code:    http.StatusNotModified,
				Headers: map[string]string{"ETag": etag},
			}
		}
		return NewJSONResponse(body, etag)
	}
}
