package metrics

import (
	"errors"
	"math/rand"
	"sort"
	"testing"
)

func TestAggregate_KnownDistribution(t *testing.T) {
	// [-10, -5, 0, 5, 10]: two of five trials are > 0
	raw := []float64{-10, -5, 0, 5, 10}

	results, err := Aggregate(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if results.SimulationCount != 5 {
		t.Errorf("expected count 5, got %d", results.SimulationCount)
	}
	// 2/5 * 100 = 40.0
	if results.ProbabilityOfProfit != 40.0 {
		t.Errorf("expected PoP 40.0, got %f", results.ProbabilityOfProfit)
	}
	if results.ExpectedReturn != 0.0 {
		t.Errorf("expected mean 0.0, got %f", results.ExpectedReturn)
	}
	// Interpolated ranks on n=5: p25 at index 1, p50 at 2, p75 at 3
	if results.Percentiles.P25 != -5 || results.Percentiles.P50 != 0 || results.Percentiles.P75 != 5 {
		t.Errorf("unexpected percentiles: %+v", results.Percentiles)
	}
	// CI low at index 0.2 → -10 + 0.2*5 = -9; high at 3.8 → 5 + 0.8*5 = 9
	if results.ConfidenceInterval.Low != -9 || results.ConfidenceInterval.High != 9 {
		t.Errorf("unexpected confidence interval: %+v", results.ConfidenceInterval)
	}
	if results.MaxLossScenario != -10 {
		t.Errorf("expected max loss -10, got %f", results.MaxLossScenario)
	}
}

func TestAggregate_ConfidenceIntervalMatchesNamedPercentiles(t *testing.T) {
	// The CI must equal the interpolated 5th/95th percentiles exactly.
	rng := rand.New(rand.NewSource(7))
	raw := make([]float64, 1000)
	for i := range raw {
		raw[i] = rng.NormFloat64() * 20
	}

	results, err := Aggregate(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sorted := make([]float64, len(raw))
	copy(sorted, raw)
	sort.Float64s(sorted)

	wantLow := roundTo(computePercentile(sorted, confidenceLowPercentile), distributionDecimals)
	wantHigh := roundTo(computePercentile(sorted, confidenceHighPercentile), distributionDecimals)
	if results.ConfidenceInterval.Low != wantLow {
		t.Errorf("CI low: expected %f, got %f", wantLow, results.ConfidenceInterval.Low)
	}
	if results.ConfidenceInterval.High != wantHigh {
		t.Errorf("CI high: expected %f, got %f", wantHigh, results.ConfidenceInterval.High)
	}
}

func TestAggregate_OrderingInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	raw := make([]float64, 10000)
	for i := range raw {
		raw[i] = rng.NormFloat64()*30 - 2
	}

	results, err := Aggregate(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	p := results.Percentiles
	if p.P25 > p.P50 || p.P50 > p.P75 {
		t.Errorf("percentiles out of order: %+v", p)
	}
	ci := results.ConfidenceInterval
	if ci.Low > ci.High {
		t.Errorf("confidence interval out of order: %+v", ci)
	}
	if results.ProbabilityOfProfit < 0 || results.ProbabilityOfProfit > 100 {
		t.Errorf("PoP out of [0,100]: %f", results.ProbabilityOfProfit)
	}
}

func TestAggregate_RawResultsPassThrough(t *testing.T) {
	// The result must reference the input in original draw order.
	raw := []float64{3, 1, 2}

	results, err := Aggregate(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(results.RawResults) != 3 {
		t.Fatalf("expected 3 raw results, got %d", len(results.RawResults))
	}
	for i, want := range []float64{3, 1, 2} {
		if results.RawResults[i] != want {
			t.Errorf("raw result %d: expected %f, got %f (input order not preserved)", i, want, results.RawResults[i])
		}
	}
}

func TestAggregate_AllNegative(t *testing.T) {
	results, err := Aggregate([]float64{-1, -2, -3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if results.ProbabilityOfProfit != 0 {
		t.Errorf("expected PoP 0, got %f", results.ProbabilityOfProfit)
	}
}

func TestAggregate_AllPositive(t *testing.T) {
	results, err := Aggregate([]float64{1, 2, 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if results.ProbabilityOfProfit != 100 {
		t.Errorf("expected PoP 100, got %f", results.ProbabilityOfProfit)
	}
}

func TestAggregate_ZeroIsNotProfit(t *testing.T) {
	// Strictly positive trials count; zero does not.
	results, err := Aggregate([]float64{0, 0, 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 1/3 * 100 = 33.333... → 33.3
	if results.ProbabilityOfProfit != 33.3 {
		t.Errorf("expected PoP 33.3, got %f", results.ProbabilityOfProfit)
	}
}

func TestAggregate_Empty(t *testing.T) {
	_, err := Aggregate(nil)
	if !errors.Is(err, ErrAggregationInvariant) {
		t.Errorf("expected ErrAggregationInvariant, got %v", err)
	}
}
