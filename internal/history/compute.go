package history

import (
	"time"

	"earnings-spread-lab/internal/domain"
	"earnings-spread-lab/internal/lookup"
)

// ComputeMoves derives one earnings move per announcement date: the percent
// gap from the last close on or before the date to the first open after it.
// Dates without surrounding candles are skipped, as are degenerate reference
// closes. Candles must be ordered oldest first.
func ComputeMoves(ticker string, candles []domain.Candle, earningsDates []time.Time) []*domain.EarningsMove {
	var moves []*domain.EarningsMove

	for _, date := range earningsDates {
		before, err := lookup.CloseOnOrBefore(date, candles)
		if err != nil {
			continue
		}
		after, err := lookup.OpenAfter(date, candles)
		if err != nil {
			continue
		}
		if before.Close <= 0 {
			continue
		}

		moves = append(moves, &domain.EarningsMove{
			Ticker:       ticker,
			EarningsDate: date.UTC().Truncate(24 * time.Hour),
			MovePercent:  (after.Open - before.Close) / before.Close * 100,
			CloseBefore:  before.Close,
			OpenAfter:    after.Open,
		})
	}

	return moves
}
