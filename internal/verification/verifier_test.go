package verification

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"earnings-spread-lab/internal/domain"
	"earnings-spread-lab/internal/simulation"
	"earnings-spread-lab/internal/storage/memory"
)

func sampleResults() *domain.SimulationResults {
	return &domain.SimulationResults{
		SimulationCount:      8,
		ProbabilityOfProfit:  62.5,
		ExpectedReturn:       4.1,
		Percentiles:          domain.Percentiles{P25: -10.25, P50: 6.80, P75: 24.10},
		ConfidenceInterval:   domain.ConfidenceInterval{Low: -41.00, High: 52.70},
		MaxLossScenario:      -88.40,
		MoveSource:           domain.MoveSourceEmpirical,
		HistoricalSampleSize: 6,
		Seed:                 42,
		RawResults:           []float64{12.4, -8.1, 30.2, 5.5, -41.0, 52.7, 6.8, -88.4},
	}
}

func TestCompareResults_ExactMatch(t *testing.T) {
	divergences := CompareResults(sampleResults(), sampleResults())

	if len(divergences) != 0 {
		t.Errorf("Expected 0 divergences, got %d: %v", len(divergences), divergences)
	}
}

func TestCompareResults_PoPDivergence(t *testing.T) {
	stored := sampleResults()
	replayed := sampleResults()
	replayed.ProbabilityOfProfit = 63.0

	divergences := CompareResults(stored, replayed)

	if len(divergences) != 1 {
		t.Fatalf("Expected 1 divergence, got %d: %v", len(divergences), divergences)
	}
	if divergences[0].Field != "ProbabilityOfProfit" {
		t.Errorf("Expected ProbabilityOfProfit divergence, got %s", divergences[0].Field)
	}
}

func TestCompareResults_WithinTolerance(t *testing.T) {
	stored := sampleResults()
	replayed := sampleResults()
	replayed.ProbabilityOfProfit += FloatTolerance / 2
	replayed.Percentiles.P50 += FloatTolerance / 2
	replayed.RawResults[0] += FloatTolerance / 2

	divergences := CompareResults(stored, replayed)

	if len(divergences) != 0 {
		t.Errorf("Expected no divergences within tolerance, got %v", divergences)
	}
}

func TestCompareResults_RawPrefixDivergence(t *testing.T) {
	stored := sampleResults()
	replayed := sampleResults()
	replayed.RawResults[3] += 0.5
	replayed.RawResults[5] += 0.5

	divergences := CompareResults(stored, replayed)

	// Only the first divergent trial is reported
	if len(divergences) != 1 {
		t.Fatalf("Expected 1 divergence, got %d: %v", len(divergences), divergences)
	}
	if divergences[0].Field != "RawResults[3]" {
		t.Errorf("Expected RawResults[3] divergence, got %s", divergences[0].Field)
	}
}

func TestCompareResults_LengthDivergence(t *testing.T) {
	stored := sampleResults()
	replayed := sampleResults()
	replayed.RawResults = replayed.RawResults[:5]

	divergences := CompareResults(stored, replayed)

	if len(divergences) != 1 {
		t.Fatalf("Expected 1 divergence, got %d: %v", len(divergences), divergences)
	}
	if divergences[0].Field != "len(RawResults)" {
		t.Errorf("Expected len(RawResults) divergence, got %s", divergences[0].Field)
	}
}

func TestFloatEquals(t *testing.T) {
	tests := []struct {
		name string
		a, b float64
		want bool
	}{
		{"exact match", 1.0, 1.0, true},
		{"within tolerance", 1.0, 1.0 + FloatTolerance/2, true},
		{"at tolerance boundary", 1.0, 1.0 + FloatTolerance, true},
		{"beyond tolerance", 1.0, 1.0 + FloatTolerance*2, false},
		{"zeros", 0.0, 0.0, true},
		{"small values", 1e-10, 1e-10, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := floatEquals(tt.a, tt.b); got != tt.want {
				t.Errorf("floatEquals(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

// simulateRun executes a seeded run and builds its journal record without
// inserting it, so tests can tamper with the record first.
func simulateRun(t *testing.T, runID string, at time.Time, seed int64) *domain.SimulationRun {
	t.Helper()

	params := domain.SimulationParams{
		Ticker:              "AAPL",
		CurrentPrice:        190.0,
		ExpectedMovePercent: 8.0,
		Metrics: domain.QualityMetrics{
			AvgVolume:     3200000,
			AvgVolumePass: true,
			IV30RV30:      1.30,
			IV30RV30Pass:  true,
			TermSlope:     -0.010,
			TermSlopePass: true,
		},
		LiquidityScore: 10,
	}

	engine := simulation.NewEngine(simulation.EngineOptions{
		Driver: simulation.DriverOptions{Count: 2000, Seed: seed},
	})
	results, err := engine.Run(context.Background(), &params)
	if err != nil {
		t.Fatalf("engine run failed: %v", err)
	}

	return &domain.SimulationRun{
		RunID:          runID,
		Ticker:         "AAPL",
		RequestedAt:    at,
		Params:         params,
		Results:        *results,
		Recommendation: domain.RecommendationRecommended,
	}
}

func TestReplayVerifier_VerifyRun_Match(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSimulationRunStore()
	base := time.Date(2026, time.February, 10, 15, 0, 0, 0, time.UTC)

	run := simulateRun(t, "run-clean", base, 42)
	if err := store.Insert(ctx, run); err != nil {
		t.Fatalf("Insert run failed: %v", err)
	}

	verifier := NewReplayVerifier(store)
	result, err := verifier.VerifyRun(ctx, "run-clean")
	if err != nil {
		t.Fatalf("VerifyRun failed: %v", err)
	}

	if !result.Match {
		t.Errorf("Expected match, got divergences: %v", result.Divergences)
	}
	if result.StoredPoP != result.ReplayedPoP {
		t.Errorf("Expected identical PoP, stored %.2f replayed %.2f", result.StoredPoP, result.ReplayedPoP)
	}
}

func TestReplayVerifier_VerifyRun_DetectsDrift(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSimulationRunStore()
	base := time.Date(2026, time.February, 10, 15, 0, 0, 0, time.UTC)

	run := simulateRun(t, "run-tampered", base, 42)
	originalPoP := run.Results.ProbabilityOfProfit
	run.Results.ProbabilityOfProfit += 5.0
	if err := store.Insert(ctx, run); err != nil {
		t.Fatalf("Insert run failed: %v", err)
	}

	verifier := NewReplayVerifier(store)
	result, err := verifier.VerifyRun(ctx, "run-tampered")
	if err != nil {
		t.Fatalf("VerifyRun failed: %v", err)
	}

	if result.Match {
		t.Fatal("Expected divergence, got match")
	}

	foundPoP := false
	for _, d := range result.Divergences {
		if d.Field == "ProbabilityOfProfit" {
			foundPoP = true
			break
		}
	}
	if !foundPoP {
		t.Errorf("Expected ProbabilityOfProfit divergence, got %v", result.Divergences)
	}

	if result.StoredPoP != originalPoP+5.0 {
		t.Errorf("Expected stored PoP %.2f, got %.2f", originalPoP+5.0, result.StoredPoP)
	}
	if result.ReplayedPoP != originalPoP {
		t.Errorf("Expected replayed PoP %.2f, got %.2f", originalPoP, result.ReplayedPoP)
	}
}

func TestReplayVerifier_VerifyRun_NotFound(t *testing.T) {
	ctx := context.Background()
	verifier := NewReplayVerifier(memory.NewSimulationRunStore())

	_, err := verifier.VerifyRun(ctx, "missing")
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("Expected ErrRunNotFound, got %v", err)
	}
}

func TestReplayVerifier_VerifyRecent(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSimulationRunStore()
	base := time.Date(2026, time.February, 10, 15, 0, 0, 0, time.UTC)

	clean := simulateRun(t, "run-clean", base.Add(2*time.Hour), 42)
	if err := store.Insert(ctx, clean); err != nil {
		t.Fatalf("Insert run failed: %v", err)
	}

	tampered := simulateRun(t, "run-tampered", base.Add(1*time.Hour), 43)
	tampered.Results.ExpectedReturn += 3.0
	if err := store.Insert(ctx, tampered); err != nil {
		t.Fatalf("Insert run failed: %v", err)
	}

	// Journaled without a seed: replay cannot reproduce it
	noseed := &domain.SimulationRun{
		RunID:       "run-noseed",
		Ticker:      "MSFT",
		RequestedAt: base,
		Results:     domain.SimulationResults{SimulationCount: 100},
	}
	if err := store.Insert(ctx, noseed); err != nil {
		t.Fatalf("Insert run failed: %v", err)
	}

	verifier := NewReplayVerifier(store)
	report, err := verifier.VerifyRecent(ctx, 0)
	if err != nil {
		t.Fatalf("VerifyRecent failed: %v", err)
	}

	if report.TotalRuns != 3 {
		t.Errorf("Expected 3 total runs, got %d", report.TotalRuns)
	}
	if report.MatchedRuns != 1 {
		t.Errorf("Expected 1 matched run, got %d", report.MatchedRuns)
	}
	if report.DivergentRuns != 2 {
		t.Errorf("Expected 2 divergent runs, got %d", report.DivergentRuns)
	}

	// The seedless run surfaces as an error row, not a silent skip
	var errorRow *VerificationResult
	for i := range report.Results {
		if report.Results[i].RunID == "run-noseed" {
			errorRow = &report.Results[i]
			break
		}
	}
	if errorRow == nil {
		t.Fatal("Expected a result row for run-noseed")
	}
	if errorRow.Match {
		t.Error("Expected run-noseed to diverge")
	}
	if len(errorRow.Divergences) != 1 || errorRow.Divergences[0].Field != "Error" {
		t.Errorf("Expected Error divergence, got %v", errorRow.Divergences)
	}
	if msg, ok := errorRow.Divergences[0].Actual.(string); !ok || !strings.Contains(msg, "no recorded seed") {
		t.Errorf("Unexpected error text: %v", errorRow.Divergences[0].Actual)
	}
}
