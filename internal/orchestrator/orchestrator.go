// Package orchestrator coordinates one simulation request end to end.
// Flow: resolve history → simulate → evaluate → journal → notify
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"earnings-spread-lab/internal/decision"
	"earnings-spread-lab/internal/domain"
	"earnings-spread-lab/internal/history"
	"earnings-spread-lab/internal/idhash"
	"earnings-spread-lab/internal/observability"
	"earnings-spread-lab/internal/progress"
	"earnings-spread-lab/internal/simulation"
	"earnings-spread-lab/internal/storage"
)

// Orchestrator runs simulations and journals their outcomes. A failed run is
// never journaled, so previously stored state survives every error path.
type Orchestrator struct {
	runStore  storage.SimulationRunStore
	moveStore storage.EarningsMoveStore
	hub       *progress.Hub
	evaluator *decision.Evaluator
	logger    zerolog.Logger
	count     int
	now       func() time.Time
}

// Options for creating an Orchestrator.
type Options struct {
	// RunStore journals completed runs. Required.
	RunStore storage.SimulationRunStore

	// MoveStore supplies stored earnings moves for params that carry none.
	// Optional; without it such params fall through to the parametric model.
	MoveStore storage.EarningsMoveStore

	// Hub receives run lifecycle events. Optional.
	Hub *progress.Hub

	// Logger receives run diagnostics. The zero value discards them.
	Logger zerolog.Logger

	// Count is the default number of trials per run. Zero means the driver
	// default.
	Count int

	// Now supplies the request timestamp. Defaults to time.Now.
	Now func() time.Time
}

// New creates an Orchestrator.
func New(opts Options) *Orchestrator {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Orchestrator{
		runStore:  opts.RunStore,
		moveStore: opts.MoveStore,
		hub:       opts.Hub,
		evaluator: decision.NewEvaluator(),
		logger:    opts.Logger,
		count:     opts.Count,
		now:       now,
	}
}

// RunOptions override per-invocation simulation settings.
type RunOptions struct {
	// Count is the number of trials. Zero means the orchestrator default.
	Count int

	// Seed seeds the trial PRNG. Zero derives one; the derived seed is
	// journaled either way.
	Seed int64
}

// RunSimulation executes one simulation to completion.
// Steps:
//  1. Resolve historical moves from storage when params carry none
//  2. Run the engine, streaming batch progress to the hub
//  3. Evaluate the recommendation
//  4. Journal the run (only successful runs are journaled)
//  5. Broadcast completion
// The journaled params include any resolved historical moves, so a journaled
// run replays exactly as it originally ran.
func (o *Orchestrator) RunSimulation(ctx context.Context, params domain.SimulationParams, opts RunOptions) (*domain.SimulationRun, error) {
	requestedAt := o.now().UTC()

	if err := o.resolveHistory(ctx, &params); err != nil {
		return nil, err
	}

	count := opts.Count
	if count <= 0 {
		count = o.count
	}

	o.publish(progress.Event{
		Type:   progress.EventRunStarted,
		Ticker: params.Ticker,
		Total:  count,
	})

	engine := simulation.NewEngine(simulation.EngineOptions{
		Logger: o.logger,
		Driver: simulation.DriverOptions{
			Count: count,
			Seed:  opts.Seed,
			Progress: func(done, total int) {
				o.publish(progress.Event{
					Type:      progress.EventRunProgress,
					Ticker:    params.Ticker,
					Completed: done,
					Total:     total,
				})
			},
		},
	})

	started := time.Now()
	results, err := engine.Run(ctx, &params)
	elapsed := time.Since(started)

	if err != nil {
		status := "error"
		if errors.Is(err, simulation.ErrCancelled) {
			status = "cancelled"
		}
		observability.RecordSimulation("none", status, elapsed.Seconds())

		o.publish(progress.Event{
			Type:   progress.EventRunFailed,
			Ticker: params.Ticker,
			Error:  err.Error(),
		})
		return nil, fmt.Errorf("simulate %s: %w", params.Ticker, err)
	}

	observability.RecordSimulation(results.MoveSource, "success", elapsed.Seconds())
	observability.RecordTrials(results.SimulationCount)

	verdict := o.evaluator.Evaluate(params, results)

	run := &domain.SimulationRun{
		RunID:          idhash.ComputeRunID(params.Ticker, requestedAt, results.Seed),
		Ticker:         params.Ticker,
		RequestedAt:    requestedAt,
		Params:         params,
		Results:        *results,
		Recommendation: verdict.Recommendation,
	}

	if err := o.runStore.Insert(ctx, run); err != nil {
		if !errors.Is(err, storage.ErrDuplicateKey) {
			o.publish(progress.Event{
				Type:   progress.EventRunFailed,
				Ticker: params.Ticker,
				Error:  err.Error(),
			})
			return nil, fmt.Errorf("journal run %s: %w", run.RunID, err)
		}
		o.logger.Warn().Str("run_id", run.RunID).Msg("run already journaled")
	}
	observability.RecordRunJournaled(requestedAt.Unix())

	o.publish(progress.Event{
		Type:   progress.EventRunCompleted,
		Ticker: params.Ticker,
		RunID:  run.RunID,
		Total:  results.SimulationCount,
	})

	o.logger.Info().
		Str("run_id", run.RunID).
		Str("ticker", run.Ticker).
		Str("recommendation", run.Recommendation).
		Float64("probability_of_profit", results.ProbabilityOfProfit).
		Dur("elapsed", elapsed).
		Msg("run journaled")

	return run, nil
}

// resolveHistory loads stored moves for params that carry none. The engine
// needs only the percent values; order stays oldest first.
func (o *Orchestrator) resolveHistory(ctx context.Context, params *domain.SimulationParams) error {
	if params.HasHistory() || o.moveStore == nil {
		return nil
	}

	moves, err := o.moveStore.GetByTicker(ctx, params.Ticker)
	if err != nil {
		return fmt.Errorf("load stored moves for %s: %w", params.Ticker, err)
	}
	if len(moves) == 0 {
		return nil
	}

	values := make([]float64, len(moves))
	for i, m := range moves {
		values[i] = m.MovePercent
	}
	params.HistoricalMoves = values

	o.logger.Debug().
		Str("ticker", params.Ticker).
		Int("stored_moves", len(values)).
		Str("sample_verdict", history.AssessSample(values)).
		Msg("resolved stored history")

	return nil
}

func (o *Orchestrator) publish(ev progress.Event) {
	if o.hub != nil {
		o.hub.Broadcast(ev)
	}
}
