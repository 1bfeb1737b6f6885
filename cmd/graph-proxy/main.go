// Command graph-proxy is an aggregating sidecar: it accepts plain HTTP
// requests and coalesces them into upstream batches. One worker
// goroutine owns the session; handlers submit jobs over a channel and
// wait for their slot of the batch response.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Sternrassler/graph-batch-client/pkg/batch"
	"github.com/Sternrassler/graph-batch-client/pkg/client"
	"github.com/Sternrassler/graph-batch-client/pkg/config"
	"github.com/Sternrassler/graph-batch-client/pkg/logging"
	"github.com/Sternrassler/graph-batch-client/pkg/request"
)

func main() {
	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(getEnv("LOG_LEVEL", "info")),
		Pretty: getEnv("LOG_PRETTY", "") == "true",
		Output: os.Stderr,
	})

	if err := run(logger); err != nil {
		logger.Fatal().Err(err).Msg("graph proxy failed")
	}
}

func run(logger zerolog.Logger) error {
	port := getEnv("PORT", "8080")

	settings, err := config.Load(getEnv("GRAPH_CONFIG", ""))
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	var redisClient *redis.Client
	if settings.ETags {
		redisClient = redis.NewClient(&redis.Options{
			Addr: getEnv("REDIS_URL", "localhost:6379"),
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		logger.Info().Str("addr", redisClient.Options().Addr).Msg("connected to redis")
	}

	graphClient, err := client.New(client.Config{Settings: settings, Redis: redisClient})
	if err != nil {
		return fmt.Errorf("create batch client: %w", err)
	}

	// Unbuffered: handlers block until the worker picks their job up,
	// so a busy worker naturally widens the next batch.
	jobs := make(chan job)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/ready", readyHandler(redisClient))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/graph/", graphProxyHandler(jobs))

	server := &http.Server{
		Addr:    ":" + port,
		Handler: mux,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", server.Addr).Msg("starting graph proxy")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return runWorker(ctx, graphClient, jobs)
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info().Msg("shutting down")
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// job is one inbound request handed to the batching worker.
type job struct {
	method request.Method
	path   string
	params request.Params
	token  string
	reply  chan jobResult
}

// jobResult carries the resolved sub-response back to the handler. resp
// is set whenever the provider answered, including remote error
// envelopes; err alone means the batch itself failed.
type jobResult struct {
	resp *batch.Response
	err  error
}

// runWorker owns the session. It blocks for one job, drains every job
// that queued up behind it and serves the group as a single flush.
func runWorker(ctx context.Context, c *client.Client, jobs <-chan job) error {
	logger := logging.NewLogger("proxy")
	for {
		select {
		case <-ctx.Done():
			return nil
		case first := <-jobs:
			pending := []job{first}
		drain:
			for len(pending) < batch.MaxBatchSize {
				select {
				case j := <-jobs:
					pending = append(pending, j)
				default:
					break drain
				}
			}
			serveJobs(ctx, c, pending, logger)
		}
	}
}

// serveJobs queues every job deferred and quiet, then flushes once and
// replies with each job's outcome.
func serveJobs(ctx context.Context, c *client.Client, pending []job, logger zerolog.Logger) {
	calls := make([]*batch.Call, len(pending))
	for i, j := range pending {
		issuer := c
		if j.token != "" {
			issuer = c.WithToken(j.token)
		}

		// Each job serves exactly one page; the inbound caller drives
		// pagination with its own follow-up requests.
		opts := []client.Option{client.Deferred(), client.Quiet(), client.NoAutoPage()}
		var (
			call *batch.Call
			err  error
		)
		switch j.method {
		case request.MethodPost:
			call, err = issuer.Post(ctx, j.path, j.params, opts...)
		case request.MethodPut:
			call, err = issuer.Put(ctx, j.path, j.params, opts...)
		case request.MethodDelete:
			call, err = issuer.Delete(ctx, j.path, j.params, opts...)
		default:
			call, err = issuer.Get(ctx, j.path, j.params, opts...)
		}
		if err != nil {
			j.reply <- jobResult{err: err}
			continue
		}
		calls[i] = call
	}

	if err := drainQueue(ctx, calls); err != nil {
		logger.Warn().Err(err).Int("jobs", len(pending)).Msg("batch flush failed")
	}

	served := 0
	for i, call := range calls {
		if call == nil {
			continue
		}
		res := jobResult{err: call.Err(ctx)}
		res.resp, _ = call.Response(ctx)
		pending[i].reply <- res
		served++
	}
	logger.Debug().Int("jobs", served).Msg("served coalesced jobs")
}

// drainQueue flushes the queue behind the first live call until nothing
// is pending.
func drainQueue(ctx context.Context, calls []*batch.Call) error {
	for _, call := range calls {
		if call != nil {
			return call.Queue().Sync(ctx, nil)
		}
	}
	return nil
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

// readyHandler reports readiness; with caching enabled that includes the
// Redis backend answering pings.
func readyHandler(redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if redisClient != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := redisClient.Ping(ctx).Err(); err != nil {
				http.Error(w, fmt.Sprintf("redis not ready: %v", err), http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK")
	}
}

// graphProxyHandler turns an inbound request into a worker job and
// renders the resolved sub-response. The access_token query parameter
// becomes the per-call credential; everything else passes through as
// request parameters.
func graphProxyHandler(jobs chan<- job) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/graph/")
		if path == "" {
			http.Error(w, "missing resource path", http.StatusBadRequest)
			return
		}

		var method request.Method
		switch r.Method {
		case http.MethodGet:
			method = request.MethodGet
		case http.MethodPost:
			method = request.MethodPost
		case http.MethodPut:
			method = request.MethodPut
		case http.MethodDelete:
			method = request.MethodDelete
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		token := ""
		params := request.Params{}
		for key, vals := range r.URL.Query() {
			if len(vals) == 0 {
				continue
			}
			if key == "access_token" {
				token = vals[0]
				continue
			}
			params[key] = vals[0]
		}
		if method == request.MethodPost {
			if err := r.ParseForm(); err != nil {
				http.Error(w, fmt.Sprintf("parse form: %v", err), http.StatusBadRequest)
				return
			}
			for key, vals := range r.PostForm {
				if len(vals) > 0 {
					params[key] = vals[0]
				}
			}
		}

		j := job{
			method: method,
			path:   path,
			params: params,
			token:  token,
			reply:  make(chan jobResult, 1),
		}

		select {
		case jobs <- j:
		case <-r.Context().Done():
			http.Error(w, "request cancelled", http.StatusGatewayTimeout)
			return
		}

		select {
		case res := <-j.reply:
			writeJobResult(w, res)
		case <-r.Context().Done():
			http.Error(w, "request cancelled", http.StatusGatewayTimeout)
		}
	}
}

// writeJobResult renders one resolved sub-response. Remote error
// envelopes pass through with their original status; batch-level
// failures map to 502.
func writeJobResult(w http.ResponseWriter, res jobResult) {
	if res.resp == nil {
		http.Error(w, fmt.Sprintf("upstream batch failed: %v", res.err), http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(res.resp.Code)
	if err := json.NewEncoder(w).Encode(res.resp.Fields); err != nil {
		logger := logging.NewLogger("proxy")
		logger.Warn().Err(err).Msg("failed to write response")
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
