// Package decision turns simulation output and the quality-metric screen
// into a trade recommendation with a reviewable checklist.
package decision

import (
	"fmt"

	"earnings-spread-lab/internal/domain"
)

// popThreshold is the minimum simulated probability of profit for a
// full recommendation.
const popThreshold = 55.0

// Evaluator evaluates the recommendation criteria.
type Evaluator struct{}

// NewEvaluator creates a new evaluator.
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// Evaluate produces a Verdict from run inputs and results.
// `recommended` requires all three quality gates plus the PoP threshold.
// `consider` covers the partial setups: either every gate passed but the
// simulated edge is thin, or the term-structure gate passed alongside
// exactly one of the volume and vol-premium gates.
// Everything else is `avoid`.
func (e *Evaluator) Evaluate(params domain.SimulationParams, results *domain.SimulationResults) *Verdict {
	m := params.Metrics
	criteria := e.evaluateCriteria(m, results)

	allGates := m.AvgVolumePass && m.IV30RV30Pass && m.TermSlopePass
	popPass := results.ProbabilityOfProfit >= popThreshold

	recommendation := domain.RecommendationAvoid
	switch {
	case allGates && popPass:
		recommendation = domain.RecommendationRecommended
	case allGates && !popPass:
		recommendation = domain.RecommendationConsider
	case m.TermSlopePass && (m.AvgVolumePass != m.IV30RV30Pass):
		recommendation = domain.RecommendationConsider
	}

	return &Verdict{
		Recommendation: recommendation,
		Criteria:       criteria,
	}
}

// evaluateCriteria builds the 5 criterion rows. The three gate rows trust
// the upstream Pass flags; the thresholds that produced them live with the
// metrics provider, so the rows show the raw values for review.
func (e *Evaluator) evaluateCriteria(m domain.QualityMetrics, results *domain.SimulationResults) []CriterionResult {
	criteria := make([]CriterionResult, 5)

	criteria[0] = CriterionResult{
		Name:      "Average volume gate",
		Threshold: "screen passed",
		Actual:    fmt.Sprintf("%.0f shares", m.AvgVolume),
		Pass:      m.AvgVolumePass,
	}

	criteria[1] = CriterionResult{
		Name:      "IV premium gate",
		Threshold: "screen passed",
		Actual:    fmt.Sprintf("iv30/rv30 = %.2f", m.IV30RV30),
		Pass:      m.IV30RV30Pass,
	}

	criteria[2] = CriterionResult{
		Name:      "Term structure gate",
		Threshold: "screen passed",
		Actual:    fmt.Sprintf("slope = %.4f", m.TermSlope),
		Pass:      m.TermSlopePass,
	}

	criteria[3] = CriterionResult{
		Name:      "Probability of profit",
		Threshold: fmt.Sprintf(">= %.0f%%", popThreshold),
		Actual:    fmt.Sprintf("%.1f%%", results.ProbabilityOfProfit),
		Pass:      results.ProbabilityOfProfit >= popThreshold,
	}

	criteria[4] = CriterionResult{
		Name:      "Expected return",
		Threshold: "> 0",
		Actual:    fmt.Sprintf("%.1f%%", results.ExpectedReturn),
		Pass:      results.ExpectedReturn > 0,
	}

	return criteria
}
