package strategy

import (
	"errors"
	"math"
	"testing"

	"earnings-spread-lab/internal/domain"
)

func TestFromParams_BuildsPricedSpread(t *testing.T) {
	params := &domain.SimulationParams{
		Ticker:              "AAPL",
		CurrentPrice:        190,
		ExpectedMovePercent: 8,
		Metrics: domain.QualityMetrics{
			IV30RV30:      1.3,
			IV30RV30Pass:  true,
			TermSlope:     -0.01,
			TermSlopePass: true,
		},
		LiquidityScore: 10,
	}

	spread, err := FromParams(params, params.ExpectedMovePercent)
	if err != nil {
		t.Fatalf("FromParams failed: %v", err)
	}

	// front = 4, back = 8, debit = 4 at full liquidity
	if math.Abs(spread.Debit()-4) > 1e-12 {
		t.Errorf("expected debit 4, got %f", spread.Debit())
	}
	if math.Abs(spread.CrushRatio()-0.475) > 1e-12 {
		t.Errorf("expected crush 0.475, got %f", spread.CrushRatio())
	}
}

func TestFromParams_ThinChainRaisesDebit(t *testing.T) {
	params := &domain.SimulationParams{
		Ticker:              "XYZ",
		CurrentPrice:        40,
		ExpectedMovePercent: 8,
		Metrics:             domain.QualityMetrics{IV30RV30: 1.0},
	}

	params.LiquidityScore = 10
	liquid, err := FromParams(params, 8)
	if err != nil {
		t.Fatalf("FromParams failed: %v", err)
	}

	params.LiquidityScore = 0
	thin, err := FromParams(params, 8)
	if err != nil {
		t.Fatalf("FromParams failed: %v", err)
	}

	if thin.Debit() <= liquid.Debit() {
		t.Errorf("illiquid debit %f should exceed liquid debit %f", thin.Debit(), liquid.Debit())
	}
	// 4 * 1.05 = 4.2
	if math.Abs(thin.Debit()-4.2) > 1e-12 {
		t.Errorf("expected illiquid debit 4.2, got %f", thin.Debit())
	}
}

func TestFromParams_ZeroScaleIsDegenerate(t *testing.T) {
	params := &domain.SimulationParams{
		Ticker:  "ZERO",
		Metrics: domain.QualityMetrics{IV30RV30: 1.0},
	}

	_, err := FromParams(params, 0)
	if !errors.Is(err, ErrDegenerateInput) {
		t.Errorf("expected ErrDegenerateInput, got %v", err)
	}
}

func TestFromParams_ThinChainCheaperEdge(t *testing.T) {
	// The haircut raises the cost basis, so the same post-event value yields
	// a lower percent return on a thin chain.
	metrics := domain.QualityMetrics{IV30RV30: 1.3, TermSlope: -0.01}

	liquid, err := FromParams(&domain.SimulationParams{
		Ticker: "A", ExpectedMovePercent: 8, Metrics: metrics, LiquidityScore: 10,
	}, 8)
	if err != nil {
		t.Fatalf("FromParams failed: %v", err)
	}

	thin, err := FromParams(&domain.SimulationParams{
		Ticker: "A", ExpectedMovePercent: 8, Metrics: metrics, LiquidityScore: 2,
	}, 8)
	if err != nil {
		t.Fatalf("FromParams failed: %v", err)
	}

	if thin.Price(0) >= liquid.Price(0) {
		t.Errorf("thin-chain return %f should trail liquid return %f", thin.Price(0), liquid.Price(0))
	}
}
