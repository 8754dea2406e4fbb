// Package verification re-executes journaled simulation runs from their
// persisted params and seed and checks that the stored results reproduce.
// A divergence means sampling or pricing changed since the run was journaled.
package verification

import (
	"context"
	"fmt"
	"math"

	"earnings-spread-lab/internal/domain"
)

// FloatTolerance is the tolerance for float64 comparisons. A seeded replay
// walks the exact trial sequence, so anything past rounding noise is drift.
const FloatTolerance = 1e-7

// rawPrefixLen caps how many raw trials are compared per run. A drifted
// sampler diverges from the first trial on, so a prefix catches it.
const rawPrefixLen = 100

// FieldDivergence represents a mismatch between stored and replayed values.
type FieldDivergence struct {
	Field    string      // field name
	Expected interface{} // stored value
	Actual   interface{} // replayed value
}

// VerificationResult contains the result of verifying a single run.
type VerificationResult struct {
	RunID       string            // verified run ID
	Match       bool              // true if all fields match
	Divergences []FieldDivergence // list of divergent fields
	StoredPoP   float64           // probability of profit from the journal
	ReplayedPoP float64           // probability of profit from the replay
}

// VerificationReport contains results for batch verification.
type VerificationReport struct {
	TotalRuns     int                  // total runs verified
	MatchedRuns   int                  // runs that reproduced exactly
	DivergentRuns int                  // runs with divergences
	Results       []VerificationResult // individual results
}

// Verifier interface for run replay verification.
type Verifier interface {
	// VerifyRun verifies a single run by ID. It loads the journaled run,
	// re-executes the simulation with the stored params and seed, and
	// compares the results.
	VerifyRun(ctx context.Context, runID string) (*VerificationResult, error)

	// VerifyRecent verifies up to limit of the most recent journaled runs.
	// Returns a report with individual results.
	VerifyRecent(ctx context.Context, limit int) (*VerificationReport, error)
}

// CompareResults compares stored and replayed results and returns divergences.
// Floats are compared within FloatTolerance; counts, source and seed must
// match exactly. Raw trials are compared up to rawPrefixLen and only the
// first divergent index is reported.
func CompareResults(stored, replayed *domain.SimulationResults) []FieldDivergence {
	var divergences []FieldDivergence

	if stored.SimulationCount != replayed.SimulationCount {
		divergences = append(divergences, FieldDivergence{
			Field:    "SimulationCount",
			Expected: stored.SimulationCount,
			Actual:   replayed.SimulationCount,
		})
	}

	if !floatEquals(stored.ProbabilityOfProfit, replayed.ProbabilityOfProfit) {
		divergences = append(divergences, FieldDivergence{
			Field:    "ProbabilityOfProfit",
			Expected: stored.ProbabilityOfProfit,
			Actual:   replayed.ProbabilityOfProfit,
		})
	}

	if !floatEquals(stored.ExpectedReturn, replayed.ExpectedReturn) {
		divergences = append(divergences, FieldDivergence{
			Field:    "ExpectedReturn",
			Expected: stored.ExpectedReturn,
			Actual:   replayed.ExpectedReturn,
		})
	}

	if !floatEquals(stored.Percentiles.P25, replayed.Percentiles.P25) {
		divergences = append(divergences, FieldDivergence{
			Field:    "Percentiles.P25",
			Expected: stored.Percentiles.P25,
			Actual:   replayed.Percentiles.P25,
		})
	}

	if !floatEquals(stored.Percentiles.P50, replayed.Percentiles.P50) {
		divergences = append(divergences, FieldDivergence{
			Field:    "Percentiles.P50",
			Expected: stored.Percentiles.P50,
			Actual:   replayed.Percentiles.P50,
		})
	}

	if !floatEquals(stored.Percentiles.P75, replayed.Percentiles.P75) {
		divergences = append(divergences, FieldDivergence{
			Field:    "Percentiles.P75",
			Expected: stored.Percentiles.P75,
			Actual:   replayed.Percentiles.P75,
		})
	}

	if !floatEquals(stored.ConfidenceInterval.Low, replayed.ConfidenceInterval.Low) {
		divergences = append(divergences, FieldDivergence{
			Field:    "ConfidenceInterval.Low",
			Expected: stored.ConfidenceInterval.Low,
			Actual:   replayed.ConfidenceInterval.Low,
		})
	}

	if !floatEquals(stored.ConfidenceInterval.High, replayed.ConfidenceInterval.High) {
		divergences = append(divergences, FieldDivergence{
			Field:    "ConfidenceInterval.High",
			Expected: stored.ConfidenceInterval.High,
			Actual:   replayed.ConfidenceInterval.High,
		})
	}

	if !floatEquals(stored.MaxLossScenario, replayed.MaxLossScenario) {
		divergences = append(divergences, FieldDivergence{
			Field:    "MaxLossScenario",
			Expected: stored.MaxLossScenario,
			Actual:   replayed.MaxLossScenario,
		})
	}

	if stored.MoveSource != replayed.MoveSource {
		divergences = append(divergences, FieldDivergence{
			Field:    "MoveSource",
			Expected: stored.MoveSource,
			Actual:   replayed.MoveSource,
		})
	}

	if stored.HistoricalSampleSize != replayed.HistoricalSampleSize {
		divergences = append(divergences, FieldDivergence{
			Field:    "HistoricalSampleSize",
			Expected: stored.HistoricalSampleSize,
			Actual:   replayed.HistoricalSampleSize,
		})
	}

	if stored.Seed != replayed.Seed {
		divergences = append(divergences, FieldDivergence{
			Field:    "Seed",
			Expected: stored.Seed,
			Actual:   replayed.Seed,
		})
	}

	// Raw trial prefix (critical for drift detection)
	if len(stored.RawResults) != len(replayed.RawResults) {
		divergences = append(divergences, FieldDivergence{
			Field:    "len(RawResults)",
			Expected: len(stored.RawResults),
			Actual:   len(replayed.RawResults),
		})
		return divergences
	}

	prefix := len(stored.RawResults)
	if prefix > rawPrefixLen {
		prefix = rawPrefixLen
	}
	for i := 0; i < prefix; i++ {
		if !floatEquals(stored.RawResults[i], replayed.RawResults[i]) {
			divergences = append(divergences, FieldDivergence{
				Field:    fmt.Sprintf("RawResults[%d]", i),
				Expected: stored.RawResults[i],
				Actual:   replayed.RawResults[i],
			})
			break
		}
	}

	return divergences
}

// floatEquals compares two float64 values within FloatTolerance.
func floatEquals(a, b float64) bool {
	return math.Abs(a-b) <= FloatTolerance
}
