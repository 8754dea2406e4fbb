// Package main compares a ticker's simulated trial distribution against the
// realized performance of the same spread over its stored earnings history.
// The simulated leg resamples the stored moves through the Monte Carlo
// engine; the realized leg prices each move exactly once, as it happened.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"

	"earnings-spread-lab/internal/backtest"
	"earnings-spread-lab/internal/config"
	"earnings-spread-lab/internal/domain"
	"earnings-spread-lab/internal/simulation"
	chstore "earnings-spread-lab/internal/storage/clickhouse"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	// Parse flags (config/env values as defaults)
	ticker := flag.String("ticker", "", "Ticker to backtest (required)")
	expectedMove := flag.Float64("expected-move", 0, "Market-implied earnings move in percent (0 derives the scale from stored history)")
	iv30rv30 := flag.Float64("iv30rv30", 1.0, "30-day implied/realized volatility ratio")
	tsSlope := flag.Float64("ts-slope", 0, "Volatility term structure slope")
	liquidity := flag.Float64("liquidity", 5, "Liquidity score from 0 to 10")
	count := flag.Int("count", cfg.SimulationCount, "Trials for the simulated leg")
	seed := flag.Int64("seed", 0, "Simulation seed (0 derives one from the clock)")
	clickhouseDSN := flag.String("clickhouse-dsn", cfg.ClickHouseDSN, "ClickHouse connection string (required)")
	outputJSON := flag.Bool("json", false, "Output as JSON")
	logLevel := flag.String("log-level", "warn", "Log level (trace, debug, info, warn, error)")
	flag.Parse()

	lvl, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		lvl = zerolog.WarnLevel
	}
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger().Level(lvl)

	if *ticker == "" {
		logger.Fatal().Msg("--ticker is required")
	}
	if *clickhouseDSN == "" {
		logger.Fatal().Msg("--clickhouse-dsn is required (the backtest reads the stored move archive)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(os.Stderr, "\nReceived signal %v, cancelling...\n", sig)
		cancel()
	}()

	conn, err := chstore.NewConn(ctx, *clickhouseDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect to clickhouse")
	}
	defer conn.Close()
	moveStore := chstore.NewEarningsMoveStore(conn)

	params := domain.SimulationParams{
		Ticker:              strings.ToUpper(*ticker),
		ExpectedMovePercent: *expectedMove,
		Metrics: domain.QualityMetrics{
			IV30RV30:  *iv30rv30,
			TermSlope: *tsSlope,
		},
		LiquidityScore: *liquidity,
	}

	// Realized leg: price the stored history as it happened.
	realized, err := backtest.NewRunner(moveStore).Run(ctx, params)
	if err != nil {
		logger.Fatal().Err(err).Msg("backtest failed")
	}
	if realized.TradeCount == 0 {
		logger.Fatal().Str("ticker", params.Ticker).Msg("no stored earnings history; run the history ingester first")
	}

	// Simulated leg: resample the same history through the Monte Carlo engine.
	params.HistoricalMoves = make([]float64, 0, len(realized.Trades))
	for _, t := range realized.Trades {
		params.HistoricalMoves = append(params.HistoricalMoves, t.MovePercent)
	}

	engine := simulation.NewEngine(simulation.EngineOptions{
		Logger: logger,
		Driver: simulation.DriverOptions{Count: *count, Seed: *seed},
	})
	simulated, err := engine.Run(ctx, &params)
	if err != nil {
		logger.Fatal().Err(err).Msg("simulation failed")
	}
	// Aggregates only; the raw trials are not reported.
	simulated.RawResults = nil

	if *outputJSON {
		out, _ := json.MarshalIndent(comparison{
			Ticker:    params.Ticker,
			Simulated: simulated,
			Realized:  realized,
		}, "", "  ")
		fmt.Println(string(out))
		return
	}
	printComparison(simulated, realized)
}

// comparison is the --json output document.
type comparison struct {
	Ticker    string                    `json:"ticker"`
	Simulated *domain.SimulationResults `json:"simulated"`
	Realized  *backtest.Results         `json:"realized"`
}

// printComparison outputs the human-readable side-by-side report.
func printComparison(sim *domain.SimulationResults, real *backtest.Results) {
	fmt.Println()
	fmt.Printf("=== Simulated vs Realized: %s ===\n", real.Ticker)
	fmt.Println()

	fmt.Printf("Simulated (%d trials, %s moves, seed %d):\n", sim.SimulationCount, sim.MoveSource, sim.Seed)
	fmt.Printf("  Probability of Profit:  %.1f%%\n", sim.ProbabilityOfProfit)
	fmt.Printf("  Expected Return:        %.2f%%\n", sim.ExpectedReturn)
	fmt.Printf("  Quartiles p25/p50/p75:  %.2f / %.2f / %.2f\n", sim.Percentiles.P25, sim.Percentiles.P50, sim.Percentiles.P75)
	fmt.Printf("  Worst Trial:            %.2f%%\n", sim.MaxLossScenario)
	fmt.Println()

	fmt.Printf("Realized (%d earnings events):\n", real.TradeCount)
	fmt.Printf("  Win Rate:               %.1f%% (%d of %d)\n", real.WinRate, real.WinCount, real.TradeCount)
	fmt.Printf("  Mean Return:            %.2f%%\n", real.MeanReturn)
	fmt.Printf("  Quartiles p25/p50/p75:  %.2f / %.2f / %.2f\n", real.Percentiles.P25, real.Percentiles.P50, real.Percentiles.P75)
	fmt.Printf("  Worst Trade:            %.2f%%\n", real.WorstReturn)
	fmt.Println()

	fmt.Printf("Simulated PoP %.1f%% vs realized win rate %.1f%% (diff %+.1f pts)\n",
		sim.ProbabilityOfProfit, real.WinRate, real.WinRate-sim.ProbabilityOfProfit)
	fmt.Println()

	fmt.Println("Trades:")
	for _, t := range real.Trades {
		mark := "LOSS"
		if t.Win {
			mark = "WIN"
		}
		fmt.Printf("  %s  move %+7.2f%%  return %+8.2f%%  %s\n",
			t.EarningsDate.Format("2006-01-02"), t.MovePercent, t.ReturnPercent, mark)
	}
}
