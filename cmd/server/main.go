// Package main provides the simulation service:
// - POST /api/simulate runs, journals and returns one simulation
// - GET /api/runs and /api/runs/{id} serve the run journal
// - GET /api/runs/{id}/histogram bins stored trial returns on demand
// - GET /ws streams run progress events
// - /health, /status, /metrics for operations
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"earnings-spread-lab/internal/config"
	"earnings-spread-lab/internal/domain"
	"earnings-spread-lab/internal/metrics"
	"earnings-spread-lab/internal/observability"
	"earnings-spread-lab/internal/orchestrator"
	"earnings-spread-lab/internal/progress"
	"earnings-spread-lab/internal/simulation"
	"earnings-spread-lab/internal/storage"
	chstore "earnings-spread-lab/internal/storage/clickhouse"
	"earnings-spread-lab/internal/storage/memory"
	"earnings-spread-lab/internal/storage/migrations"
	pgstore "earnings-spread-lab/internal/storage/postgres"
	"earnings-spread-lab/internal/strategy"
)

const (
	// defaultListLimit and maxListLimit bound GET /api/runs page sizes.
	defaultListLimit = 50
	maxListLimit     = 500

	shutdownTimeout = 30 * time.Second
	wsGaugeInterval = 15 * time.Second
)

// Server handles the HTTP API over the run journal and the orchestrator.
type Server struct {
	runStore  storage.SimulationRunStore
	orch      *orchestrator.Orchestrator
	hub       *progress.Hub
	logger    zerolog.Logger
	useMemory bool

	// State. One in-flight run per ticker; a newer request for the same
	// ticker cancels the older one (last writer wins).
	mu         sync.Mutex
	inflight   map[string]*inflightRun
	generation uint64
	started    time.Time
	requests   int
	superseded int
	lastRunAt  time.Time
}

// inflightRun tracks one running simulation so a newer request can cancel it.
type inflightRun struct {
	generation uint64
	cancel     context.CancelFunc
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	// Parse flags (config/env values as defaults)
	addr := flag.String("addr", cfg.ServerAddr, "HTTP listen address")
	postgresDSN := flag.String("postgres-dsn", cfg.PostgresDSN, "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", cfg.ClickHouseDSN, "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", cfg.UseMemory, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	count := flag.Int("count", cfg.SimulationCount, "Default trials per simulation run")
	logLevel := flag.String("log-level", cfg.LogLevel, "Log level (trace, debug, info, warn, error)")
	flag.Parse()

	logger := newLogger(*logLevel)

	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		logger.Fatal().Msg("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runStore, moveStore, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatal().Err(err).Msg("create stores")
	}
	defer cleanup()

	hub := progress.NewHub(logger)
	orch := orchestrator.New(orchestrator.Options{
		RunStore:  runStore,
		MoveStore: moveStore,
		Hub:       hub,
		Logger:    logger,
		Count:     *count,
	})

	server := &Server{
		runStore:  runStore,
		orch:      orch,
		hub:       hub,
		logger:    logger,
		useMemory: *useMemory,
		inflight:  make(map[string]*inflightRun),
		started:   time.Now(),
	}

	httpSrv := &http.Server{
		Addr:    *addr,
		Handler: server.routes(),
	}

	// Keep the websocket client gauge current while the server runs.
	go func() {
		ticker := time.NewTicker(wsGaugeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				observability.SetWSClients(hub.ClientCount())
			}
		}
	}()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpSrv.ListenAndServe()
	}()
	logger.Info().Str("addr", *addr).Bool("use_memory", *useMemory).Msg("server listening")

	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("received signal, initiating graceful shutdown")

		// Second signal forces immediate shutdown
		go func() {
			sig := <-sigCh
			logger.Warn().Str("signal", sig.String()).Msg("received second signal, forcing immediate shutdown")
			os.Exit(1)
		}()

		server.cancelInflight()
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("graceful shutdown failed")
		}
		hub.Close()
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}

	logger.Info().Msg("shutdown complete")
}

// newLogger builds the process logger; an unknown level falls back to info.
func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger().Level(lvl)
}

// createStores creates the run journal and earnings-move stores.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool) (storage.SimulationRunStore, storage.EarningsMoveStore, func(), error) {
	if useMemory {
		return memory.NewSimulationRunStore(), memory.NewEarningsMoveStore(), func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("migrate postgres: %w", err)
	}

	conn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("migrate clickhouse: %w", err)
	}

	cleanup := func() {
		conn.Close()
		pool.Close()
	}
	return pgstore.NewSimulationRunStore(pool), chstore.NewEarningsMoveStore(conn), cleanup, nil
}

// routes builds the HTTP mux.
func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/simulate", s.handleSimulate)
	mux.HandleFunc("/api/runs", s.handleListRuns)
	mux.HandleFunc("/api/runs/", s.handleRun)
	mux.Handle("/ws", s.hub.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/status", s.handleStatus)
	mux.Handle("/metrics", observability.Handler())
	return mux
}

// simulateRequest is the POST /api/simulate body: simulation params plus
// optional trial count and seed overrides.
type simulateRequest struct {
	domain.SimulationParams
	Count int   `json:"count,omitempty"`
	Seed  int64 `json:"seed,omitempty"`
}

// handleSimulate runs one simulation. A request for a ticker with a run
// already in flight cancels that run first; the cancelled side reports 409.
func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req simulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Ticker == "" {
		writeError(w, http.StatusBadRequest, "ticker is required")
		return
	}

	runCtx, generation := s.begin(r.Context(), req.Ticker)
	defer s.finish(req.Ticker, generation)

	run, err := s.orch.RunSimulation(runCtx, req.SimulationParams, orchestrator.RunOptions{
		Count: req.Count,
		Seed:  req.Seed,
	})
	if err != nil {
		switch {
		case errors.Is(err, simulation.ErrCancelled):
			if !s.isCurrent(req.Ticker, generation) {
				writeError(w, http.StatusConflict, "superseded by a newer request for "+req.Ticker)
				return
			}
			writeError(w, http.StatusConflict, "run cancelled")
		case errors.Is(err, simulation.ErrInsufficientInput), errors.Is(err, strategy.ErrDegenerateInput):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			s.logger.Error().Err(err).Str("ticker", req.Ticker).Msg("simulation failed")
			writeError(w, http.StatusInternalServerError, "simulation failed")
		}
		return
	}

	s.mu.Lock()
	s.lastRunAt = time.Now()
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, slimRun(run))
}

// begin registers an in-flight run for ticker, cancelling any previous one.
func (s *Server) begin(parent context.Context, ticker string) (context.Context, uint64) {
	runCtx, cancel := context.WithCancel(parent)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests++
	if prev, ok := s.inflight[ticker]; ok {
		prev.cancel()
		s.superseded++
		observability.RecordSuperseded()
		s.logger.Info().Str("ticker", ticker).Msg("superseding in-flight run")
	}
	s.generation++
	s.inflight[ticker] = &inflightRun{generation: s.generation, cancel: cancel}
	return runCtx, s.generation
}

// finish releases the in-flight slot if it still belongs to this generation.
// A superseded run's slot already belongs to its successor.
func (s *Server) finish(ticker string, generation uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cur, ok := s.inflight[ticker]; ok && cur.generation == generation {
		cur.cancel()
		delete(s.inflight, ticker)
	}
}

// isCurrent reports whether generation is still the ticker's latest.
func (s *Server) isCurrent(ticker string, generation uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.inflight[ticker]
	return ok && cur.generation == generation
}

// cancelInflight cancels every running simulation, used at shutdown.
func (s *Server) cancelInflight() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, run := range s.inflight {
		run.cancel()
	}
}

// handleListRuns serves GET /api/runs?ticker=&limit=.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	var (
		runs []*domain.SimulationRun
		err  error
	)
	if ticker := r.URL.Query().Get("ticker"); ticker != "" {
		runs, err = s.runStore.GetByTicker(r.Context(), ticker)
		if err == nil && len(runs) > limit {
			runs = runs[:limit]
		}
	} else {
		runs, err = s.runStore.GetRecent(r.Context(), limit)
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("list runs failed")
		writeError(w, http.StatusInternalServerError, "list runs failed")
		return
	}

	slim := make([]*domain.SimulationRun, len(runs))
	for i, run := range runs {
		slim[i] = slimRun(run)
	}
	writeJSON(w, http.StatusOK, slim)
}

// handleRun serves GET /api/runs/{id} and GET /api/runs/{id}/histogram.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/runs/")
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if parts[0] == "" || len(parts) > 2 {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	runID := parts[0]

	run, err := s.runStore.GetByID(r.Context(), runID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "run "+runID+" not found")
			return
		}
		s.logger.Error().Err(err).Str("run_id", runID).Msg("load run failed")
		writeError(w, http.StatusInternalServerError, "load run failed")
		return
	}

	if len(parts) == 2 {
		if parts[1] != "histogram" {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		s.writeHistogram(w, run)
		return
	}

	writeJSON(w, http.StatusOK, slimRun(run))
}

// histogramBin is the chart payload: bin center and count, without the
// per-bin member values the binner carries.
type histogramBin struct {
	X     float64 `json:"x"`
	Count int     `json:"count"`
}

type histogramResponse struct {
	RunID    string         `json:"runId"`
	Ticker   string         `json:"ticker"`
	BinWidth float64        `json:"binWidth"`
	Bins     []histogramBin `json:"bins"`
}

// writeHistogram bins the run's stored trial returns on demand.
func (s *Server) writeHistogram(w http.ResponseWriter, run *domain.SimulationRun) {
	bins, err := metrics.BuildHistogram(run.Results.RawResults)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "run "+run.RunID+" has no binnable trial returns")
		return
	}

	resp := histogramResponse{
		RunID:    run.RunID,
		Ticker:   run.Ticker,
		BinWidth: metrics.BinWidth(bins),
		Bins:     make([]histogramBin, len(bins)),
	}
	for i, b := range bins {
		resp.Bins[i] = histogramBin{X: b.X, Count: b.Count}
	}
	writeJSON(w, http.StatusOK, resp)
}

// StatusResponse is the JSON response for the /status endpoint.
type StatusResponse struct {
	Status     string    `json:"status"`
	Uptime     string    `json:"uptime"`
	Storage    string    `json:"storage"`
	Requests   int       `json:"requests"`
	Superseded int       `json:"superseded"`
	InFlight   int       `json:"in_flight"`
	WSClients  int       `json:"ws_clients"`
	LastRunAt  time.Time `json:"last_run_at,omitempty"`
}

// handleStatus returns server status as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mode := "postgres+clickhouse"
	if s.useMemory {
		mode = "memory"
	}

	writeJSON(w, http.StatusOK, StatusResponse{
		Status:     "running",
		Uptime:     time.Since(s.started).String(),
		Storage:    mode,
		Requests:   s.requests,
		Superseded: s.superseded,
		InFlight:   len(s.inflight),
		WSClients:  s.hub.ClientCount(),
		LastRunAt:  s.lastRunAt,
	})
}

// slimRun copies a run without its raw trial returns. The raws stay in the
// journal; the histogram endpoint serves the binned view.
func slimRun(run *domain.SimulationRun) *domain.SimulationRun {
	slim := *run
	slim.Results.RawResults = nil
	return &slim
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
