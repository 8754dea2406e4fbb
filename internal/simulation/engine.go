// Package simulation runs the Monte Carlo engine: a move model samples
// earnings-day price moves, the spread prices each move into a percent
// return, and the driver assembles the raw trial distribution.
package simulation

import (
	"context"

	"github.com/rs/zerolog"

	"earnings-spread-lab/internal/domain"
	"earnings-spread-lab/internal/metrics"
	"earnings-spread-lab/internal/strategy"
)

// Engine composes move sampling, spread pricing, trial driving and
// aggregation into one run. The engine itself holds no per-run state; every
// invocation is independent.
type Engine struct {
	logger zerolog.Logger
	driver DriverOptions
}

// EngineOptions configures an Engine.
type EngineOptions struct {
	// Logger receives per-run diagnostics. The zero value discards them.
	Logger zerolog.Logger

	// Driver is applied to every run. Per-run seeds still vary unless
	// Driver.Seed is set.
	Driver DriverOptions
}

// NewEngine creates an engine.
func NewEngine(opts EngineOptions) *Engine {
	return &Engine{
		logger: opts.Logger,
		driver: opts.Driver,
	}
}

// Run executes one full simulation.
// Steps:
//  1. Select the move model (bootstrap or parametric)
//  2. Resolve the pricing scale
//  3. Build the calendar spread
//  4. Drive the trials
//  5. Aggregate raw returns and attach run metadata
// Every error path returns nil results; a partially populated result never
// escapes.
func (e *Engine) Run(ctx context.Context, params *domain.SimulationParams) (*domain.SimulationResults, error) {
	// 1. Select the move model
	model, err := NewMoveModel(params)
	if err != nil {
		return nil, err
	}

	// 2. Resolve the pricing scale
	scale := PricingScale(params)

	// 3. Build the calendar spread
	spread, err := strategy.FromParams(params, scale)
	if err != nil {
		return nil, err
	}

	// 4. Drive the trials
	driver := NewDriver(e.driver)

	e.logger.Debug().
		Str("ticker", params.Ticker).
		Str("move_source", model.Kind()).
		Int("trials", driver.Count()).
		Int64("seed", driver.Seed()).
		Float64("pricing_scale", scale).
		Float64("crush_ratio", spread.CrushRatio()).
		Msg("simulation starting")

	raw, err := driver.Run(ctx, model, spread)
	if err != nil {
		return nil, err
	}

	// 5. Aggregate and attach metadata
	results, err := metrics.Aggregate(raw)
	if err != nil {
		return nil, err
	}
	results.MoveSource = model.Kind()
	results.HistoricalSampleSize = model.SampleSize()
	results.Seed = driver.Seed()

	e.logger.Info().
		Str("ticker", params.Ticker).
		Str("move_source", results.MoveSource).
		Float64("probability_of_profit", results.ProbabilityOfProfit).
		Float64("expected_return", results.ExpectedReturn).
		Float64("max_loss", results.MaxLossScenario).
		Msg("simulation complete")

	return results, nil
}

// PricingScale resolves the percent move the spread legs are priced against:
// the market-implied expected move when quoted, else the dispersion of the
// historical sample. Simulation and backtest price against the same scale.
func PricingScale(params *domain.SimulationParams) float64 {
	if params.ExpectedMovePercent > 0 {
		return params.ExpectedMovePercent
	}
	return sampleStddev(params.HistoricalMoves)
}
