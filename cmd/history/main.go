// Package main provides the earnings-history ingestion CLI: announcement
// dates and daily candles in, earnings gap moves out, appended to the move
// archive. Re-runs skip quarters that are already stored.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"earnings-spread-lab/internal/config"
	"earnings-spread-lab/internal/history"
	"earnings-spread-lab/internal/observability"
	"earnings-spread-lab/internal/storage"
	chstore "earnings-spread-lab/internal/storage/clickhouse"
	"earnings-spread-lab/internal/storage/memory"
	"earnings-spread-lab/internal/storage/migrations"
)

const shutdownGrace = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	// Parse flags (config/env values as defaults)
	tickers := flag.String("tickers", "", "Comma-separated tickers to ingest (required)")
	clickhouseDSN := flag.String("clickhouse-dsn", cfg.ClickHouseDSN, "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage (dry run, moves are discarded at exit)")
	lookbackYears := flag.Int("lookback-years", cfg.LookbackYears, "Years of earnings history to ingest")
	calendarURL := flag.String("calendar-url", cfg.CalendarBaseURL, "Earnings calendar API base URL")
	calendarKey := flag.String("calendar-key", cfg.CalendarAPIKey, "Earnings calendar API key (required)")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics HTTP address (empty to disable)")
	logLevel := flag.String("log-level", cfg.LogLevel, "Log level (trace, debug, info, warn, error)")
	flag.Parse()

	logger := newLogger(*logLevel)

	list := parseTickers(*tickers)
	if len(list) == 0 {
		logger.Fatal().Msg("--tickers is required")
	}
	if *calendarKey == "" {
		logger.Fatal().Msg("--calendar-key is required")
	}
	if !*useMemory && *clickhouseDSN == "" {
		logger.Fatal().Msg("--clickhouse-dsn is required (use --use-memory for a dry run)")
	}

	// Start metrics server if enabled
	if *metricsAddr != "" {
		go serveMetrics(*metricsAddr, logger)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	moveStore, cleanup, err := createMoveStore(ctx, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatal().Err(err).Msg("create move store")
	}
	defer cleanup()

	// Handle shutdown signals with graceful timeout
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		select {
		case sig := <-sigCh:
			logger.Info().Str("signal", sig.String()).Msg("received signal, cancelling ingestion")
			cancel()
		case <-done:
			return
		}

		// Second signal or timeout forces immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Warn().Str("signal", sig.String()).Msg("received second signal, forcing immediate shutdown")
			os.Exit(1)
		case <-time.After(shutdownGrace):
			logger.Warn().Msg("graceful shutdown timed out, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	runner := history.NewRunner(history.RunnerOptions{
		CandleSource: history.NewYahooCandleSource(),
		Calendar: history.NewHTTPEarningsCalendar(history.CalendarOptions{
			BaseURL: *calendarURL,
			APIKey:  *calendarKey,
		}),
		MoveStore:     moveStore,
		LookbackYears: *lookbackYears,
		Logger:        logger,
	})

	logger.Info().Strs("tickers", list).Int("lookback_years", *lookbackYears).Msg("starting history ingestion")
	err = runner.Run(ctx, list)
	close(done)

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("history ingestion failed")
	}
	logger.Info().Msg("history ingestion complete")
}

// newLogger builds the process logger; an unknown level falls back to info.
func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger().Level(lvl)
}

// parseTickers splits the comma-separated ticker list, uppercased and
// deduplicated, preserving order.
func parseTickers(raw string) []string {
	seen := make(map[string]struct{})
	var list []string
	for _, t := range strings.Split(raw, ",") {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		list = append(list, t)
	}
	return list
}

// createMoveStore creates the earnings-move store.
func createMoveStore(ctx context.Context, clickhouseDSN string, useMemory bool) (storage.EarningsMoveStore, func(), error) {
	if useMemory {
		return memory.NewEarningsMoveStore(), func() {}, nil
	}

	conn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("migrate clickhouse: %w", err)
	}
	return chstore.NewEarningsMoveStore(conn), func() { conn.Close() }, nil
}

// serveMetrics exposes /metrics and /health for the duration of the run.
func serveMetrics(addr string, logger zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	logger.Info().Str("addr", addr).Msg("metrics server listening")
	if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
