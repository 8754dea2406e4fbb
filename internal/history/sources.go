// Package history ingests observed earnings reactions: daily candles and
// announcement dates in, overnight gap moves out.
package history

import (
	"context"
	"time"

	"earnings-spread-lab/internal/domain"
)

// CandleSource provides daily OHLCV bars from an external market-data provider.
type CandleSource interface {
	// Fetch returns daily candles for ticker within [start, end] (inclusive),
	// oldest first.
	Fetch(ctx context.Context, ticker string, start, end time.Time) ([]domain.Candle, error)
}

// EarningsCalendar provides historical earnings announcement dates.
type EarningsCalendar interface {
	// Fetch returns announcement dates for ticker within [start, end]
	// (inclusive), oldest first.
	Fetch(ctx context.Context, ticker string, start, end time.Time) ([]time.Time, error)
}
