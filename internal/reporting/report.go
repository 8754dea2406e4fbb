package reporting

import (
	"time"

	"earnings-spread-lab/internal/decision"
)

// Report summarizes the simulation run journal at a point in time.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	RunCount    int
	TickerCount int

	// Verdict and move-source tallies
	Summary Summary

	// Runs (newest first; ties broken by run_id)
	Runs []RunRow

	// Decisions re-evaluated from journaled inputs, same order as Runs
	Decisions []DecisionBlock
}

// Summary tallies runs across the report window.
type Summary struct {
	Recommended    int
	Consider       int
	Avoid          int
	EmpiricalRuns  int
	ParametricRuns int
	OldestRun      time.Time // zero when the journal is empty
	NewestRun      time.Time
}

// RunRow is one journal entry flattened for tables.
type RunRow struct {
	RunID               string
	Ticker              string
	RequestedAt         time.Time
	Recommendation      string
	ProbabilityOfProfit float64
	ExpectedReturn      float64
	P25                 float64
	P50                 float64
	P75                 float64
	CILow               float64
	CIHigh              float64
	MaxLoss             float64
	MoveSource          string
	SampleSize          int
	Trials              int
	Seed                int64
}

// DecisionBlock carries the re-evaluated verdict for one run. Evaluation is
// deterministic over the journaled params and results, so the block always
// matches what the run produced originally.
type DecisionBlock struct {
	RunID   string
	Ticker  string
	Verdict *decision.Verdict
}
