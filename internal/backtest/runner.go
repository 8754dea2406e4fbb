// Package backtest prices the calibrated spread against a ticker's stored
// actual earnings moves, with no resampling. The realized stats sit next to
// a run's simulated distribution so the move model can be checked against
// what actually happened.
package backtest

import (
	"context"
	"fmt"
	"time"

	"earnings-spread-lab/internal/domain"
	"earnings-spread-lab/internal/metrics"
	"earnings-spread-lab/internal/simulation"
	"earnings-spread-lab/internal/storage"
	"earnings-spread-lab/internal/strategy"
)

// TradeOutcome is one historical earnings event priced through the spread.
type TradeOutcome struct {
	EarningsDate  time.Time `json:"earningsDate"`
	MovePercent   float64   `json:"movePercent"`
	ReturnPercent float64   `json:"returnPercent"`
	Win           bool      `json:"win"`
}

// Results holds realized spread performance across a ticker's stored history.
type Results struct {
	Ticker     string `json:"ticker"`
	TradeCount int    `json:"tradeCount"`
	WinCount   int    `json:"winCount"`

	// WinRate is the realized analogue of the simulated probability of
	// profit, in percent.
	WinRate     float64            `json:"winRate"`
	MeanReturn  float64            `json:"meanReturn"`
	Percentiles domain.Percentiles `json:"percentiles"`
	WorstReturn float64            `json:"worstReturn"`

	// Trades in earnings-date order, oldest first.
	Trades []TradeOutcome `json:"trades"`
}

// Runner executes backtests over the stored earnings-move history.
type Runner struct {
	moveStore storage.EarningsMoveStore
}

// NewRunner creates a new backtest runner.
func NewRunner(moveStore storage.EarningsMoveStore) *Runner {
	return &Runner{moveStore: moveStore}
}

// Run prices the spread calibrated from params against every stored move of
// params.Ticker. The stored history replaces any moves the params carry, so
// the pricing scale and the backtested set always agree. A ticker with no
// stored moves yields an empty Results, not an error.
func (r *Runner) Run(ctx context.Context, params domain.SimulationParams) (*Results, error) {
	// 1. Load stored moves, oldest first
	moves, err := r.moveStore.GetByTicker(ctx, params.Ticker)
	if err != nil {
		return nil, fmt.Errorf("load stored moves for %s: %w", params.Ticker, err)
	}

	results := &Results{Ticker: params.Ticker}
	if len(moves) == 0 {
		return results, nil
	}

	// 2. Calibrate the spread the way a simulation run would
	values := make([]float64, len(moves))
	for i, m := range moves {
		values[i] = m.MovePercent
	}
	params.HistoricalMoves = values

	spread, err := strategy.FromParams(&params, simulation.PricingScale(&params))
	if err != nil {
		return nil, err
	}

	// 3. Price each actual move
	returns := make([]float64, len(moves))
	trades := make([]TradeOutcome, len(moves))
	wins := 0
	for i, m := range moves {
		ret := spread.Price(m.MovePercent)
		returns[i] = ret
		trades[i] = TradeOutcome{
			EarningsDate:  m.EarningsDate,
			MovePercent:   m.MovePercent,
			ReturnPercent: ret,
			Win:           ret > 0,
		}
		if ret > 0 {
			wins++
		}
	}

	// 4. Reduce with the same aggregation a simulation run uses
	agg, err := metrics.Aggregate(returns)
	if err != nil {
		return nil, err
	}

	results.TradeCount = len(trades)
	results.WinCount = wins
	results.WinRate = agg.ProbabilityOfProfit
	results.MeanReturn = agg.ExpectedReturn
	results.Percentiles = agg.Percentiles
	results.WorstReturn = agg.MaxLossScenario
	results.Trades = trades

	return results, nil
}
