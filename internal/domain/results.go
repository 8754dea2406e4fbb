package domain

// MoveModelKind identifies which sampler produced a run's move distribution.
const (
	MoveSourceEmpirical  = "empirical"  // smoothed bootstrap over historical moves
	MoveSourceParametric = "parametric" // Student-t scaled to the expected move
)

// Percentiles holds the quartile summary of the return distribution.
type Percentiles struct {
	P25 float64 `json:"p25"`
	P50 float64 `json:"p50"`
	P75 float64 `json:"p75"`
}

// ConfidenceInterval bounds the bulk of simulated outcomes.
type ConfidenceInterval struct {
	Low  float64 `json:"low"`  // 5th percentile
	High float64 `json:"high"` // 95th percentile
}

// SimulationResults is the complete outcome of one run. Produced once,
// handed to the caller for display and for storage as opaque metadata.
// Invariants: P25 <= P50 <= P75 and Low <= High; violation of either is an
// aggregation bug surfaced as an error, never as a populated result.
type SimulationResults struct {
	SimulationCount     int                `json:"simulationCount"`
	ProbabilityOfProfit float64            `json:"probabilityOfProfit"` // % of trials > 0, one decimal
	ExpectedReturn      float64            `json:"expectedReturn"`      // mean trial %, one decimal
	Percentiles         Percentiles        `json:"percentiles"`
	ConfidenceInterval  ConfidenceInterval `json:"confidenceInterval"`
	MaxLossScenario     float64            `json:"maxLossScenario"` // strict minimum observed trial

	// Confidence metadata for downstream display decisions.
	MoveSource           string `json:"moveSource"` // MoveSourceEmpirical | MoveSourceParametric
	HistoricalSampleSize int    `json:"historicalSampleSize"`

	// Seed actually used by the trial PRNG. Unseeded runs record the
	// derived seed so any journaled run can be reproduced exactly.
	Seed int64 `json:"seed"`

	// RawResults holds every trial return in draw order; length equals
	// SimulationCount. Downstream order is insignificant.
	RawResults []float64 `json:"rawResults"`
}

// HistogramBin is one chart-ready bucket of trial returns.
type HistogramBin struct {
	X      float64   `json:"x"`      // bin center
	Count  int       `json:"count"`  // trials in bin
	Values []float64 `json:"values"` // member trials, draw order
}
