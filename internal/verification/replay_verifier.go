package verification

import (
	"context"
	"errors"
	"fmt"

	"earnings-spread-lab/internal/domain"
	"earnings-spread-lab/internal/simulation"
	"earnings-spread-lab/internal/storage"
)

// ErrRunNotFound is returned when the run ID doesn't exist in the journal.
var ErrRunNotFound = errors.New("run not found")

// defaultVerifyLimit bounds VerifyRecent when the caller passes no limit.
const defaultVerifyLimit = 200

// ReplayVerifier implements Verifier against the run journal.
type ReplayVerifier struct {
	runStore storage.SimulationRunStore
}

// NewReplayVerifier creates a new ReplayVerifier.
func NewReplayVerifier(runStore storage.SimulationRunStore) *ReplayVerifier {
	return &ReplayVerifier{runStore: runStore}
}

// VerifyRun verifies a single run by replaying its simulation.
func (v *ReplayVerifier) VerifyRun(ctx context.Context, runID string) (*VerificationResult, error) {
	// 1. Load the journaled run
	stored, err := v.runStore.GetByID(ctx, runID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}

	// 2. Replay the simulation
	replayed, err := v.replayRun(ctx, stored)
	if err != nil {
		return nil, err
	}

	// 3. Compare results
	divergences := CompareResults(&stored.Results, replayed)

	return &VerificationResult{
		RunID:       runID,
		Match:       len(divergences) == 0,
		Divergences: divergences,
		StoredPoP:   stored.Results.ProbabilityOfProfit,
		ReplayedPoP: replayed.ProbabilityOfProfit,
	}, nil
}

// VerifyRecent verifies up to limit of the most recent journaled runs.
// limit <= 0 falls back to defaultVerifyLimit.
func (v *ReplayVerifier) VerifyRecent(ctx context.Context, limit int) (*VerificationReport, error) {
	if limit <= 0 {
		limit = defaultVerifyLimit
	}

	runs, err := v.runStore.GetRecent(ctx, limit)
	if err != nil {
		return nil, err
	}

	report := &VerificationReport{
		TotalRuns: len(runs),
		Results:   make([]VerificationResult, 0, len(runs)),
	}

	for _, run := range runs {
		result, err := v.VerifyRun(ctx, run.RunID)
		if err != nil {
			// Record error as divergence
			report.Results = append(report.Results, VerificationResult{
				RunID:     run.RunID,
				Match:     false,
				StoredPoP: run.Results.ProbabilityOfProfit,
				Divergences: []FieldDivergence{
					{Field: "Error", Expected: nil, Actual: err.Error()},
				},
			})
			report.DivergentRuns++
			continue
		}

		report.Results = append(report.Results, *result)
		if result.Match {
			report.MatchedRuns++
		} else {
			report.DivergentRuns++
		}
	}

	return report, nil
}

// replayRun re-executes the simulation with the stored run's params and seed.
// Journaled params carry any resolved historical moves, so the replay selects
// the same move model the original run did.
func (v *ReplayVerifier) replayRun(ctx context.Context, stored *domain.SimulationRun) (*domain.SimulationResults, error) {
	// A zero seed would make the driver derive a fresh one from the clock.
	if stored.Results.Seed == 0 {
		return nil, fmt.Errorf("run %s has no recorded seed", stored.RunID)
	}

	engine := simulation.NewEngine(simulation.EngineOptions{
		Driver: simulation.DriverOptions{
			Count: stored.Results.SimulationCount,
			Seed:  stored.Results.Seed,
		},
	})

	params := stored.Params
	replayed, err := engine.Run(ctx, &params)
	if err != nil {
		return nil, fmt.Errorf("replay run %s: %w", stored.RunID, err)
	}

	return replayed, nil
}
