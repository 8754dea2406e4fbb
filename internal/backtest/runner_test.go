package backtest

import (
	"context"
	"errors"
	"testing"
	"time"

	"earnings-spread-lab/internal/domain"
	"earnings-spread-lab/internal/storage/memory"
	"earnings-spread-lab/internal/strategy"
)

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func backtestParams(expectedMove float64) domain.SimulationParams {
	return domain.SimulationParams{
		Ticker:              "AAPL",
		CurrentPrice:        190.0,
		ExpectedMovePercent: expectedMove,
		Metrics: domain.QualityMetrics{
			AvgVolume:     3_200_000,
			AvgVolumePass: true,
			IV30RV30:      1.3,
			IV30RV30Pass:  true,
			TermSlope:     -0.01,
			TermSlopePass: true,
		},
		LiquidityScore: 10,
	}
}

func quarterlyMoves(ticker string, values []float64) []*domain.EarningsMove {
	moves := make([]*domain.EarningsMove, len(values))
	base := day(2024, time.January, 25)
	for i, v := range values {
		moves[i] = &domain.EarningsMove{
			Ticker:       ticker,
			EarningsDate: base.AddDate(0, 3*i, 0),
			MovePercent:  v,
			CloseBefore:  180.0,
			OpenAfter:    180.0 * (1 + v/100),
		}
	}
	return moves
}

func TestRunner_PricesStoredHistory(t *testing.T) {
	moveStore := memory.NewEarningsMoveStore()
	ctx := context.Background()

	// Five moves inside the expected move win; the 12% blowout loses.
	values := []float64{3.1, -2.4, 5.0, -1.0, 4.2, 12.0}
	if err := moveStore.InsertBulk(ctx, quarterlyMoves("AAPL", values)); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	runner := NewRunner(moveStore)
	results, err := runner.Run(ctx, backtestParams(8.0))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if results.Ticker != "AAPL" {
		t.Errorf("Expected Ticker 'AAPL', got '%s'", results.Ticker)
	}
	if results.TradeCount != 6 {
		t.Fatalf("Expected TradeCount 6, got %d", results.TradeCount)
	}
	if len(results.Trades) != 6 {
		t.Fatalf("Expected 6 trades, got %d", len(results.Trades))
	}
	if results.WinCount != 5 {
		t.Errorf("Expected WinCount 5, got %d", results.WinCount)
	}
	if results.WinRate != 83.3 {
		t.Errorf("Expected WinRate 83.3, got %g", results.WinRate)
	}

	for i, trade := range results.Trades {
		if trade.Win != (trade.ReturnPercent > 0) {
			t.Errorf("Trade %d: Win flag %v disagrees with return %g", i, trade.Win, trade.ReturnPercent)
		}
	}

	// The blowout is the last stored move and the only loss.
	blowout := results.Trades[5]
	if blowout.MovePercent != 12.0 {
		t.Fatalf("Expected last trade move 12.0, got %g", blowout.MovePercent)
	}
	if blowout.Win {
		t.Error("Expected the 12% move to lose")
	}
	if results.WorstReturn > -50 || results.WorstReturn < -100 {
		t.Errorf("Expected WorstReturn in [-100, -50], got %g", results.WorstReturn)
	}
	if results.WorstReturn > results.Percentiles.P25 {
		t.Errorf("WorstReturn %g above P25 %g", results.WorstReturn, results.Percentiles.P25)
	}
	if results.Percentiles.P25 > results.Percentiles.P50 || results.Percentiles.P50 > results.Percentiles.P75 {
		t.Errorf("Percentiles out of order: %+v", results.Percentiles)
	}
}

func TestRunner_OrdersTradesByDate(t *testing.T) {
	moveStore := memory.NewEarningsMoveStore()
	ctx := context.Background()

	// Insert unordered moves
	moves := []*domain.EarningsMove{
		{Ticker: "AAPL", EarningsDate: day(2024, time.July, 25), MovePercent: 5.0},
		{Ticker: "AAPL", EarningsDate: day(2024, time.January, 25), MovePercent: 3.1},
		{Ticker: "AAPL", EarningsDate: day(2024, time.April, 25), MovePercent: -2.4},
	}
	if err := moveStore.InsertBulk(ctx, moves); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	runner := NewRunner(moveStore)
	results, err := runner.Run(ctx, backtestParams(8.0))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(results.Trades) != 3 {
		t.Fatalf("Expected 3 trades, got %d", len(results.Trades))
	}

	// Oldest first regardless of insert order
	wantMoves := []float64{3.1, -2.4, 5.0}
	for i, want := range wantMoves {
		if results.Trades[i].MovePercent != want {
			t.Errorf("Trade %d: expected move %g, got %g", i, want, results.Trades[i].MovePercent)
		}
	}
	for i := 1; i < len(results.Trades); i++ {
		if !results.Trades[i-1].EarningsDate.Before(results.Trades[i].EarningsDate) {
			t.Errorf("Trades not in date order at %d", i)
		}
	}
}

func TestRunner_ScaleFromStoredHistory(t *testing.T) {
	moveStore := memory.NewEarningsMoveStore()
	ctx := context.Background()

	values := []float64{3.1, -2.4, 5.0, -1.0, 4.2}
	if err := moveStore.InsertBulk(ctx, quarterlyMoves("AAPL", values)); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	runner := NewRunner(moveStore)

	// No market-implied move, so the pricing scale is the sample stddev
	// (about 3.3%). Against that tighter scale only the -1% event stays
	// inside the profitable band.
	results, err := runner.Run(ctx, backtestParams(0))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if results.TradeCount != 5 {
		t.Fatalf("Expected TradeCount 5, got %d", results.TradeCount)
	}
	if results.WinCount != 1 {
		t.Errorf("Expected WinCount 1, got %d", results.WinCount)
	}
	if results.WinRate != 20.0 {
		t.Errorf("Expected WinRate 20.0, got %g", results.WinRate)
	}
	for _, trade := range results.Trades {
		if trade.MovePercent == -1.0 && !trade.Win {
			t.Error("Expected the -1% move to win against the stddev scale")
		}
		if trade.MovePercent != -1.0 && trade.Win {
			t.Errorf("Expected the %g%% move to lose against the stddev scale", trade.MovePercent)
		}
	}
}

func TestRunner_Empty(t *testing.T) {
	moveStore := memory.NewEarningsMoveStore()
	ctx := context.Background()

	runner := NewRunner(moveStore)
	params := backtestParams(8.0)
	params.Ticker = "MSFT"

	results, err := runner.Run(ctx, params)
	if err != nil {
		t.Errorf("Empty run should not error: %v", err)
	}

	if results.Ticker != "MSFT" {
		t.Errorf("Expected Ticker 'MSFT', got '%s'", results.Ticker)
	}
	if results.TradeCount != 0 {
		t.Errorf("Expected TradeCount 0, got %d", results.TradeCount)
	}
	if len(results.Trades) != 0 {
		t.Errorf("Expected no trades, got %d", len(results.Trades))
	}
}

func TestRunner_DegenerateScale(t *testing.T) {
	moveStore := memory.NewEarningsMoveStore()
	ctx := context.Background()

	// A single stored move has no sample stddev, so with no expected move
	// the spread cannot be calibrated.
	if err := moveStore.InsertBulk(ctx, quarterlyMoves("AAPL", []float64{2.0})); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	runner := NewRunner(moveStore)
	_, err := runner.Run(ctx, backtestParams(0))
	if err == nil {
		t.Fatal("Expected error for unpriceable spread, got nil")
	}
	if !errors.Is(err, strategy.ErrDegenerateInput) {
		t.Errorf("Expected ErrDegenerateInput, got %v", err)
	}
}
