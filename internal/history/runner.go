package history

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"earnings-spread-lab/internal/domain"
	"earnings-spread-lab/internal/observability"
	"earnings-spread-lab/internal/storage"
)

const (
	defaultLookbackYears = 3
	// candlePadDays widens the candle window past the calendar window so the
	// first and last announcements still have surrounding sessions.
	candlePadDays = 7
)

// Runner ingests earnings history for a set of tickers: announcement dates
// and candles in, gap moves out, stored append-only.
type Runner struct {
	candleSource  CandleSource
	calendar      EarningsCalendar
	moveStore     storage.EarningsMoveStore
	lookbackYears int
	now           func() time.Time
	logger        zerolog.Logger
}

// RunnerOptions contains configuration for creating a Runner.
type RunnerOptions struct {
	CandleSource  CandleSource
	Calendar      EarningsCalendar
	MoveStore     storage.EarningsMoveStore
	LookbackYears int
	Now           func() time.Time // defaults to time.Now
	Logger        zerolog.Logger
}

// NewRunner creates a new history runner.
func NewRunner(opts RunnerOptions) *Runner {
	lookbackYears := opts.LookbackYears
	if lookbackYears == 0 {
		lookbackYears = defaultLookbackYears
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Runner{
		candleSource:  opts.CandleSource,
		calendar:      opts.Calendar,
		moveStore:     opts.MoveStore,
		lookbackYears: lookbackYears,
		now:           now,
		logger:        opts.Logger,
	}
}

// Run ingests each ticker in turn. A failing ticker is logged and skipped;
// the remaining tickers still run. Returns an error naming every failed
// ticker, or nil if all succeeded.
func (r *Runner) Run(ctx context.Context, tickers []string) error {
	var failed []string

	for _, ticker := range tickers {
		if err := ctx.Err(); err != nil {
			return err
		}

		inserted, err := r.ingestTicker(ctx, ticker)
		if err != nil {
			r.logger.Error().Err(err).Str("ticker", ticker).Msg("history ingestion failed")
			observability.RecordTickerIngested("error")
			failed = append(failed, ticker)
			continue
		}

		observability.RecordTickerIngested("success")
		observability.RecordMovesIngested(inserted)
		r.logger.Info().
			Str("ticker", ticker).
			Int("moves_inserted", inserted).
			Msg("history ingested")
	}

	if len(failed) > 0 {
		return fmt.Errorf("history ingestion failed for %d of %d tickers: %s",
			len(failed), len(tickers), strings.Join(failed, ", "))
	}
	return nil
}

// ingestTicker fetches, derives and stores moves for one ticker. Moves whose
// announcement date is already stored are skipped, so re-runs only append the
// new quarters.
func (r *Runner) ingestTicker(ctx context.Context, ticker string) (int, error) {
	end := r.now().UTC()
	start := end.AddDate(-r.lookbackYears, 0, 0)

	dates, err := r.calendar.Fetch(ctx, ticker, start, end)
	if err != nil {
		return 0, fmt.Errorf("fetch earnings dates: %w", err)
	}
	if len(dates) == 0 {
		r.logger.Debug().Str("ticker", ticker).Msg("no earnings dates in window")
		return 0, nil
	}

	candles, err := r.candleSource.Fetch(ctx, ticker,
		start.AddDate(0, 0, -candlePadDays), end.AddDate(0, 0, candlePadDays))
	if err != nil {
		return 0, fmt.Errorf("fetch candles: %w", err)
	}

	moves := ComputeMoves(ticker, candles, dates)
	if len(moves) == 0 {
		return 0, nil
	}

	fresh, err := r.filterExisting(ctx, ticker, moves)
	if err != nil {
		return 0, err
	}
	if len(fresh) == 0 {
		return 0, nil
	}

	if err := r.moveStore.InsertBulk(ctx, fresh); err != nil {
		return 0, fmt.Errorf("store moves: %w", err)
	}
	return len(fresh), nil
}

// filterExisting drops moves whose (ticker, earnings_date) is already stored.
func (r *Runner) filterExisting(ctx context.Context, ticker string, moves []*domain.EarningsMove) ([]*domain.EarningsMove, error) {
	existing, err := r.moveStore.GetByTicker(ctx, ticker)
	if err != nil {
		return nil, fmt.Errorf("load stored moves: %w", err)
	}

	seen := make(map[string]struct{}, len(existing))
	for _, m := range existing {
		seen[m.EarningsDate.UTC().Format("2006-01-02")] = struct{}{}
	}

	var fresh []*domain.EarningsMove
	for _, m := range moves {
		if _, ok := seen[m.EarningsDate.UTC().Format("2006-01-02")]; ok {
			continue
		}
		fresh = append(fresh, m)
	}
	return fresh, nil
}
