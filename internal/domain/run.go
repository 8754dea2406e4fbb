package domain

import "time"

// Recommendation constants
const (
	RecommendationRecommended = "recommended"
	RecommendationConsider    = "consider"
	RecommendationAvoid       = "avoid"
)

// SimulationRun is one journaled simulation: the inputs, the full results,
// and the derived verdict. Only successful runs are journaled; a failed run
// never replaces a previously stored one. Params and Results travel through
// storage as opaque JSON; schema compatibility is owned by the reader.
type SimulationRun struct {
	RunID          string            `json:"runId"`
	Ticker         string            `json:"ticker"`
	RequestedAt    time.Time         `json:"requestedAt"` // UTC
	Params         SimulationParams  `json:"params"`
	Results        SimulationResults `json:"results"`
	Recommendation string            `json:"recommendation"`
}
