// Package main provides the one-shot simulation CLI: one ticker's earnings
// setup in, a styled verdict summary and return histogram out. With DSNs the
// run is journaled and stored history resolves exactly as under the server;
// the default in-memory mode needs no infrastructure.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"earnings-spread-lab/internal/config"
	"earnings-spread-lab/internal/decision"
	"earnings-spread-lab/internal/domain"
	"earnings-spread-lab/internal/metrics"
	"earnings-spread-lab/internal/orchestrator"
	"earnings-spread-lab/internal/storage"
	chstore "earnings-spread-lab/internal/storage/clickhouse"
	"earnings-spread-lab/internal/storage/memory"
	"earnings-spread-lab/internal/storage/migrations"
	pgstore "earnings-spread-lab/internal/storage/postgres"
)

// UI styles
var (
	titleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#7C3AED")).
		Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#3B82F6")).
		Padding(1, 2)

	labelStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#6B7280")).
		Width(22)

	barStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#3B82F6"))

	passStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#10B981"))

	failStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#EF4444"))

	// Verdict styles
	recommendedStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#10B981"))

	considerStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#F59E0B"))

	avoidStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#EF4444"))
)

// maxBarWidth caps histogram bar length in terminal cells.
const maxBarWidth = 40

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	// Parse flags (config/env values as defaults)
	ticker := flag.String("ticker", "", "Ticker symbol (required)")
	price := flag.Float64("price", 0, "Current share price (required)")
	expectedMove := flag.Float64("expected-move", 0, "Market-implied one-event move percent (0 needs historical moves)")
	moves := flag.String("moves", "", "Comma-separated historical earnings-day move percents, oldest first")
	avgVolume := flag.Float64("avg-volume", 0, "30-day average share volume")
	avgVolumePass := flag.Bool("avg-volume-pass", true, "Volume screen passed upstream")
	iv30rv30 := flag.Float64("iv30rv30", 1.0, "30-day implied/realized volatility ratio")
	iv30rv30Pass := flag.Bool("iv30rv30-pass", true, "Volatility premium screen passed upstream")
	tsSlope := flag.Float64("ts-slope", 0, "Front-of-curve term structure slope")
	tsSlopePass := flag.Bool("ts-slope-pass", true, "Term structure screen passed upstream")
	liquidity := flag.Float64("liquidity", 5, "Option liquidity score, 0 (untradeable) to 10 (tight markets)")
	earningsDate := flag.String("earnings-date", "", "Earnings date YYYY-MM-DD (informational)")
	count := flag.Int("count", cfg.SimulationCount, "Number of simulated trials")
	seed := flag.Int64("seed", 0, "Trial PRNG seed (0 derives one; the used seed is reported)")
	postgresDSN := flag.String("postgres-dsn", cfg.PostgresDSN, "PostgreSQL connection string for run journaling")
	clickhouseDSN := flag.String("clickhouse-dsn", cfg.ClickHouseDSN, "ClickHouse connection string for stored history")
	useMemory := flag.Bool("use-memory", true, "Use in-memory storage (the run journal dies with the process)")
	logLevel := flag.String("log-level", "warn", "Log level for run diagnostics")
	flag.Parse()

	if *ticker == "" {
		fmt.Fprintln(os.Stderr, "--ticker is required")
		os.Exit(1)
	}
	if *price <= 0 {
		fmt.Fprintln(os.Stderr, "--price must be positive")
		os.Exit(1)
	}
	if *expectedMove < 0 {
		fmt.Fprintln(os.Stderr, "--expected-move cannot be negative")
		os.Exit(1)
	}
	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		fmt.Fprintln(os.Stderr, "--postgres-dsn and --clickhouse-dsn are required when --use-memory=false")
		os.Exit(1)
	}

	historicalMoves, err := parseMoves(*moves)
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse --moves: %v\n", err)
		os.Exit(1)
	}

	lvl, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		lvl = zerolog.WarnLevel
	}
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger().Level(lvl)

	// Create context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(os.Stderr, "\nReceived signal %v, cancelling run...\n", sig)
		cancel()
	}()

	runStore, moveStore, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create stores: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	params := domain.SimulationParams{
		Ticker:              strings.ToUpper(*ticker),
		CurrentPrice:        *price,
		ExpectedMovePercent: *expectedMove,
		Metrics: domain.QualityMetrics{
			AvgVolume:     *avgVolume,
			AvgVolumePass: *avgVolumePass,
			IV30RV30:      *iv30rv30,
			IV30RV30Pass:  *iv30rv30Pass,
			TermSlope:     *tsSlope,
			TermSlopePass: *tsSlopePass,
		},
		LiquidityScore:  *liquidity,
		EarningsDate:    *earningsDate,
		HistoricalMoves: historicalMoves,
	}

	orch := orchestrator.New(orchestrator.Options{
		RunStore:  runStore,
		MoveStore: moveStore,
		Logger:    logger,
		Count:     *count,
	})

	run, err := orch.RunSimulation(ctx, params, orchestrator.RunOptions{Seed: *seed})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Simulation error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(titleStyle.Render(fmt.Sprintf("Earnings spread simulation: %s @ %.2f", run.Ticker, *price)))
	fmt.Println(panelStyle.Render(renderSummary(run)))
	fmt.Println(panelStyle.Render(renderChecklist(run)))
	fmt.Println(panelStyle.Render(renderHistogram(run.Results.RawResults)))
}

// parseMoves parses a comma-separated move list, tolerating spaces.
func parseMoves(raw string) ([]float64, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	parts := strings.Split(raw, ",")
	values := make([]float64, 0, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("value %d %q is not a number", i+1, strings.TrimSpace(p))
		}
		values = append(values, v)
	}
	return values, nil
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

// renderSummary builds the label/value block for one completed run.
func renderSummary(run *domain.SimulationRun) string {
	res := run.Results

	source := res.MoveSource
	if res.MoveSource == domain.MoveSourceEmpirical {
		source = fmt.Sprintf("%s (%d samples)", res.MoveSource, res.HistoricalSampleSize)
	}

	var sb strings.Builder
	row := func(label, value string) {
		sb.WriteString(labelStyle.Render(label))
		sb.WriteString(value)
		sb.WriteString("\n")
	}

	sb.WriteString(verdictStyle(run.Recommendation).Render(strings.ToUpper(run.Recommendation)))
	sb.WriteString("\n\n")
	row("Probability of profit", fmt.Sprintf("%.1f%%", res.ProbabilityOfProfit))
	row("Expected return", fmt.Sprintf("%.1f%%", res.ExpectedReturn))
	row("Quartiles p25/p50/p75", fmt.Sprintf("%.2f / %.2f / %.2f", res.Percentiles.P25, res.Percentiles.P50, res.Percentiles.P75))
	row("Middle 90% of trials", fmt.Sprintf("%.2f .. %.2f", res.ConfidenceInterval.Low, res.ConfidenceInterval.High))
	row("Worst trial", fmt.Sprintf("%.2f%%", res.MaxLossScenario))
	row("Move source", source)
	row("Trials", fmt.Sprintf("%d (seed %d)", res.SimulationCount, res.Seed))
	row("Run", fmt.Sprintf("%s at %s", run.RunID, run.RequestedAt.Format("2006-01-02 15:04:05 MST")))

	return strings.TrimRight(sb.String(), "\n")
}

// renderChecklist re-evaluates the journaled run and formats the criteria.
func renderChecklist(run *domain.SimulationRun) string {
	verdict := decision.NewEvaluator().Evaluate(run.Params, &run.Results)

	var sb strings.Builder
	sb.WriteString("Decision checklist\n\n")
	for _, c := range verdict.Criteria {
		mark := passStyle.Render("✓")
		if !c.Pass {
			mark = failStyle.Render("✗")
		}
		sb.WriteString(fmt.Sprintf("%s %s (%s, actual %s)\n", mark, c.Name, c.Threshold, c.Actual))
	}
	sb.WriteString(fmt.Sprintf("\n%d/%d criteria passed", verdict.PassedCount(), len(verdict.Criteria)))

	return sb.String()
}

// renderHistogram draws the return distribution as horizontal count bars.
func renderHistogram(raw []float64) string {
	bins, err := metrics.BuildHistogram(raw)
	if err != nil {
		return "No trial returns to bin."
	}

	maxCount := 0
	for _, b := range bins {
		if b.Count > maxCount {
			maxCount = b.Count
		}
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Return distribution (%d bins, width %.2f)\n\n", len(bins), metrics.BinWidth(bins)))
	for _, b := range bins {
		width := 0
		if maxCount > 0 {
			width = b.Count * maxBarWidth / maxCount
		}
		sb.WriteString(fmt.Sprintf("%9.2f │ %s %d\n", b.X, barStyle.Render(strings.Repeat("█", width)), b.Count))
	}

	return strings.TrimRight(sb.String(), "\n")
}

// verdictStyle maps a recommendation to its display style.
func verdictStyle(recommendation string) lipgloss.Style {
	switch recommendation {
	case domain.RecommendationRecommended:
		return recommendedStyle
	case domain.RecommendationConsider:
		return considerStyle
	default:
		return avoidStyle
	}
}
