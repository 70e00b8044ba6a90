// Package server wires the backend components and serves the HTTP API.
//
// This is the composition root: it opens the store, builds the broker,
// the stream reader and the worker, and injects them into the handlers.
// No business logic lives here, only wiring and request plumbing.
package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/inquesthq/inquest/internal/config"
	"github.com/inquesthq/inquest/internal/notify"
	"github.com/inquesthq/inquest/internal/progress"
	"github.com/inquesthq/inquest/internal/pubsub"
	"github.com/inquesthq/inquest/internal/store"
	"github.com/inquesthq/inquest/internal/stream"
	"github.com/inquesthq/inquest/internal/worker"
)

// Version is set at build time via ldflags.
var Version = "dev"

// API serves the chat backend's HTTP surface over already-built
// components. Construction is split from New so tests can assemble an
// API around a temp store and fast stream timings.
type API struct {
	store  *store.Store
	broker *pubsub.Broker
	reader *stream.Reader
	worker *worker.Worker
	log    *slog.Logger
	mux    *http.ServeMux
}

// NewAPI assembles the HTTP surface from its components.
func NewAPI(st *store.Store, broker *pubsub.Broker, reader *stream.Reader, wk *worker.Worker, log *slog.Logger) *API {
	if log == nil {
		log = slog.Default()
	}
	a := &API{
		store:  st,
		broker: broker,
		reader: reader,
		worker: wk,
		log:    log,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/sessions/{sessionID}/messages", a.handleCreateMessage)
	mux.HandleFunc("GET /api/sessions/{sessionID}/turns", a.handleListTurns)
	mux.HandleFunc("GET /api/turns/{turnID}", a.handleGetTurn)
	mux.HandleFunc("GET /api/turns/{turnID}/events", a.handleTurnEvents)
	mux.HandleFunc("GET /api/steps/search", a.handleSearchSteps)
	mux.HandleFunc("GET /healthz", a.handleHealth)
	a.mux = mux
	return a
}

func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mux.ServeHTTP(w, r)
}

// New resolves all dependencies from cfg and returns a ready-to-run
// HTTP server. The returned cleanup function closes the store and must
// be called on shutdown (typically via defer); it is always non-nil.
func New(cfg config.Config, runner worker.Runner, log *slog.Logger) (*http.Server, func(), error) {
	if log == nil {
		log = slog.Default()
	}

	st, err := store.New(store.Config{DataDir: cfg.DataDir, MaxSearchResults: 50})
	if err != nil {
		return nil, func() {}, fmt.Errorf("server: open store: %w", err)
	}

	broker := pubsub.Default()
	reader := stream.NewReader(broker, stream.Config{
		Timeout:      cfg.Stream.Timeout(),
		PollInterval: cfg.Stream.PollInterval(),
	}, log)

	limits := notify.Limits{
		ToolOutputLive: cfg.Limits.ToolOutputLive,
		ThinkingStore:  cfg.Limits.ThinkingStore,
		ThinkingLive:   cfg.Limits.ThinkingLive,
	}
	wk := worker.New(st, broker, runner, progress.NewRegistry(), limits, cfg.Agent.MaxSuppressedRetries, log)

	api := NewAPI(st, broker, reader, wk, log)

	httpSrv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           api,
		ReadHeaderTimeout: 10 * time.Second,
	}
	cleanup := func() {
		if err := st.Close(); err != nil {
			log.Warn("store close", "error", err)
		}
	}
	return httpSrv, cleanup, nil
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": Version})
}
