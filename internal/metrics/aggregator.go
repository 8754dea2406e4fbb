// Package metrics reduces raw simulation trials into the summary statistics
// and histogram consumed by callers.
package metrics

import (
	"errors"
	"fmt"
	"sort"

	"earnings-spread-lab/internal/domain"
)

// ErrAggregationInvariant signals an internal aggregation bug: percentile or
// confidence-interval ordering violated, or an impossible input. It must never
// be normalized away.
var ErrAggregationInvariant = errors.New("aggregation invariant violated")

// Confidence-interval percentile bounds (90% CI).
const (
	confidenceLowPercentile  = 0.05
	confidenceHighPercentile = 0.95
)

// Rounding precision: headline figures get one decimal, distribution
// statistics two.
const (
	headlineDecimals     = 1
	distributionDecimals = 2
)

// Aggregate reduces raw trial returns to a SimulationResults. The raw slice
// passes through unchanged (the result references it in original order);
// percentile work happens on an internal sorted copy.
//
// Move-source metadata and the seed are the driver's to fill in; Aggregate
// only populates the statistical fields.
func Aggregate(raw []float64) (*domain.SimulationResults, error) {
	n := len(raw)
	if n == 0 {
		return nil, fmt.Errorf("aggregate empty trial set: %w", ErrAggregationInvariant)
	}

	sorted := make([]float64, n)
	copy(sorted, raw)
	sort.Float64s(sorted)

	profitable := 0
	for _, v := range raw {
		if v > 0 {
			profitable++
		}
	}

	results := &domain.SimulationResults{
		SimulationCount:     n,
		ProbabilityOfProfit: roundTo(float64(profitable)/float64(n)*100, headlineDecimals),
		ExpectedReturn:      roundTo(computeMean(raw), headlineDecimals),
		Percentiles: domain.Percentiles{
			P25: roundTo(computePercentile(sorted, 0.25), distributionDecimals),
			P50: roundTo(computePercentile(sorted, 0.50), distributionDecimals),
			P75: roundTo(computePercentile(sorted, 0.75), distributionDecimals),
		},
		ConfidenceInterval: domain.ConfidenceInterval{
			Low:  roundTo(computePercentile(sorted, confidenceLowPercentile), distributionDecimals),
			High: roundTo(computePercentile(sorted, confidenceHighPercentile), distributionDecimals),
		},
		MaxLossScenario: roundTo(sorted[0], distributionDecimals),
		RawResults:      raw,
	}

	if err := checkOrdering(results); err != nil {
		return nil, err
	}
	return results, nil
}

// checkOrdering enforces the percentile and CI ordering invariants.
func checkOrdering(r *domain.SimulationResults) error {
	p := r.Percentiles
	if p.P25 > p.P50 || p.P50 > p.P75 {
		return fmt.Errorf("percentiles out of order (p25=%.2f p50=%.2f p75=%.2f): %w",
			p.P25, p.P50, p.P75, ErrAggregationInvariant)
	}
	ci := r.ConfidenceInterval
	if ci.Low > ci.High {
		return fmt.Errorf("confidence interval out of order (low=%.2f high=%.2f): %w",
			ci.Low, ci.High, ErrAggregationInvariant)
	}
	return nil
}
