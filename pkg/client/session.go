package client

import (
	"net/http"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/graph-batch-client/pkg/batch"
	"github.com/Sternrassler/graph-batch-client/pkg/cache"
	"github.com/Sternrassler/graph-batch-client/pkg/config"
	"github.com/Sternrassler/graph-batch-client/pkg/request"
	"github.com/Sternrassler/graph-batch-client/pkg/transport"
)

// Session owns one batch queue per credential scope and collects the
// records of every flushed physical batch. Queues are single-goroutine;
// the session's own bookkeeping (queue registry, record log) is safe
// for concurrent use.
type Session struct {
	transport batch.Transport
	settings  config.Settings
	logger    zerolog.Logger

	mu      sync.Mutex
	queues  map[string]*batch.Queue
	records []batch.Record
}

// NewSession creates a session from resolved settings. A transport is
// assembled from the settings unless cfg overrides one; with ETags
// enabled a Redis client is required to back the sub-response cache.
func NewSession(cfg Config) (*Session, error) {
	tp := cfg.Transport
	if tp == nil {
		var manager *cache.Manager
		if cfg.Settings.ETags {
			if cfg.Redis == nil {
				return nil, ErrRedisRequired
			}
			manager = cache.NewManager(cfg.Redis)
		}

		var err error
		tp, err = transport.New(transport.Config{
			BaseURL:       cfg.Settings.BaseURL,
			HTTPClient:    &http.Client{Timeout: cfg.Settings.HTTPTimeout},
			Cache:         manager,
			CacheTTL:      cfg.Settings.CacheTTL,
			RetainHeaders: cfg.Settings.DebugHeaders,
		})
		if err != nil {
			return nil, err
		}
	}

	return &Session{
		transport: tp,
		settings:  cfg.Settings,
		logger:    log.With().Str("component", "session").Logger(),
		queues:    make(map[string]*batch.Queue),
	}, nil
}

// Queue returns the queue batching for scope, creating it on first use.
func (s *Session) Queue(scope string) *batch.Queue {
	s.mu.Lock()
	defer s.mu.Unlock()

	if q, ok := s.queues[scope]; ok {
		return q
	}

	q, err := batch.NewQueue(batch.Config{
		Scope:     scope,
		Transport: s.transport,
		Recorder:  s,
		Build: request.BuildOptions{
			Migrations:  s.settings.Migrations,
			RewritePath: s.settings.RewritePath,
		},
		DebugRequests: s.settings.DebugRequests,
		DebugHeaders:  s.settings.DebugHeaders,
	})
	if err != nil {
		// The transport is validated at session construction.
		panic(err)
	}
	s.queues[scope] = q
	return q
}

// RecordBatch implements batch.Recorder.
func (s *Session) RecordBatch(rec batch.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
}

// Records returns a copy of the flushed-batch log.
func (s *Session) Records() []batch.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]batch.Record(nil), s.records...)
}

// ClearRecords empties the flushed-batch log.
func (s *Session) ClearRecords() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
}

// Stats summarizes the flushed batches since the last reset.
type Stats struct {
	// Batches is the number of physical batches sent.
	Batches int

	// Calls is the number of logical calls those batches carried.
	Calls int

	// Failed is the number of physical batches that failed as a whole.
	Failed int
}

// Stats aggregates the current record log.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{Batches: len(s.records)}
	for _, rec := range s.records {
		st.Calls += rec.Calls
		if rec.Err != nil {
			st.Failed++
		}
	}
	return st
}

// Reset drops all queues and records. Queued unsent calls are
// abandoned; handles issued before the reset keep working against
// their original queues.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queues = make(map[string]*batch.Queue)
	s.records = nil
}
