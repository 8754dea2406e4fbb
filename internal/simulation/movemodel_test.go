package simulation

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"earnings-spread-lab/internal/domain"
)

func TestNewMoveModel_SelectsEmpirical(t *testing.T) {
	params := &domain.SimulationParams{
		Ticker:              "AAPL",
		ExpectedMovePercent: 8, // present but history takes precedence
		HistoricalMoves:     []float64{3.1, -2.4, 5.0, -1.0, 4.2},
	}

	model, err := NewMoveModel(params)
	if err != nil {
		t.Fatalf("NewMoveModel failed: %v", err)
	}
	if model.Kind() != domain.MoveSourceEmpirical {
		t.Errorf("expected empirical model, got %s", model.Kind())
	}
	if model.SampleSize() != 5 {
		t.Errorf("expected sample size 5, got %d", model.SampleSize())
	}
}

func TestNewMoveModel_ShortHistoryFallsBack(t *testing.T) {
	params := &domain.SimulationParams{
		Ticker:              "AAPL",
		ExpectedMovePercent: 8,
		HistoricalMoves:     []float64{3.1, -2.4, 5.0}, // below the bootstrap minimum
	}

	model, err := NewMoveModel(params)
	if err != nil {
		t.Fatalf("NewMoveModel failed: %v", err)
	}
	if model.Kind() != domain.MoveSourceParametric {
		t.Errorf("expected parametric model, got %s", model.Kind())
	}
	if model.SampleSize() != 0 {
		t.Errorf("expected sample size 0, got %d", model.SampleSize())
	}
}

func TestNewMoveModel_NoUsableSource(t *testing.T) {
	params := &domain.SimulationParams{Ticker: "AAPL"}

	_, err := NewMoveModel(params)
	if !errors.Is(err, ErrInsufficientInput) {
		t.Errorf("expected ErrInsufficientInput, got %v", err)
	}
}

func TestNewMoveModel_NilParams(t *testing.T) {
	_, err := NewMoveModel(nil)
	if !errors.Is(err, ErrInsufficientInput) {
		t.Errorf("expected ErrInsufficientInput, got %v", err)
	}
}

func TestEmpiricalModel_MeanConvergesToSample(t *testing.T) {
	history := []float64{3.1, -2.4, 5.0, -1.0, 4.2}
	// (3.1 - 2.4 + 5.0 - 1.0 + 4.2) / 5 = 1.78
	historyMean := 1.78

	model := NewEmpiricalModel(history)
	rng := rand.New(rand.NewSource(1))

	const draws = 10000
	sum := 0.0
	for i := 0; i < draws; i++ {
		sum += model.Draw(rng)
	}
	mean := sum / draws

	if math.Abs(mean-historyMean) > 0.5 {
		t.Errorf("draw mean %f not within 0.5 of history mean %f", mean, historyMean)
	}
}

func TestEmpiricalModel_JitterSmoothsDraws(t *testing.T) {
	history := []float64{3.1, -2.4, 5.0, -1.0, 4.2}
	model := NewEmpiricalModel(history)
	rng := rand.New(rand.NewSource(2))

	inSet := func(v float64) bool {
		for _, h := range history {
			if v == h {
				return true
			}
		}
		return false
	}

	// The jitter must move draws off the observed set, not merely replay it.
	offSet := 0
	for i := 0; i < 100; i++ {
		if !inSet(model.Draw(rng)) {
			offSet++
		}
	}
	if offSet == 0 {
		t.Error("100 draws all landed exactly on observed values; jitter is not applied")
	}
}

func TestEmpiricalModel_CopiesInput(t *testing.T) {
	history := []float64{3.1, -2.4, 5.0, -1.0}
	model := NewEmpiricalModel(history)

	history[0] = 9999

	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 200; i++ {
		if v := model.Draw(rng); v > 1000 {
			t.Fatalf("draw %f reflects caller mutation of the history slice", v)
		}
	}
}

func TestParametricModel_ScaledToExpectedMove(t *testing.T) {
	const expectedMove = 8.0
	model := NewParametricModel(expectedMove)
	rng := rand.New(rand.NewSource(4))

	const draws = 20000
	sum, sumSq := 0.0, 0.0
	for i := 0; i < draws; i++ {
		v := model.Draw(rng)
		sum += v
		sumSq += v * v
	}
	mean := sum / draws
	stddev := math.Sqrt(sumSq/draws - mean*mean)

	if math.Abs(mean) > 0.3 {
		t.Errorf("parametric draws should center on zero, got mean %f", mean)
	}
	if math.Abs(stddev-expectedMove) > 0.5 {
		t.Errorf("draw stddev %f not within 0.5 of expected move %f", stddev, expectedMove)
	}
}

func TestParametricModel_FatTails(t *testing.T) {
	const expectedMove = 8.0
	model := NewParametricModel(expectedMove)
	rng := rand.New(rand.NewSource(5))

	// A Gaussian with stddev 8 puts ~0.27% of mass beyond 3 sigma (~54 of
	// 20000 draws). The t tail should produce several times that.
	const draws = 20000
	exceedances := 0
	for i := 0; i < draws; i++ {
		if math.Abs(model.Draw(rng)) > 3*expectedMove {
			exceedances++
		}
	}
	if exceedances < 100 {
		t.Errorf("only %d of %d draws beyond 3 sigma; tails look Gaussian", exceedances, draws)
	}
}
