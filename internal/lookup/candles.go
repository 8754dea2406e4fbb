// Package lookup resolves reference prices from daily candle series.
package lookup

import (
	"errors"
	"time"

	"earnings-spread-lab/internal/domain"
)

// Errors returned by lookup functions.
var (
	ErrNoCandleData   = errors.New("no candle data available")
	ErrNoCandleBefore = errors.New("no candle on or before target date")
	ErrNoCandleAfter  = errors.New("no candle after target date")
)

// CloseOnOrBefore returns the last candle whose trading day is on or before
// the target date. This is the entry reference for an earnings gap: the close
// of the final session before the announcement takes effect.
// Candles must be ordered oldest first.
func CloseOnOrBefore(target time.Time, candles []domain.Candle) (domain.Candle, error) {
	if len(candles) == 0 {
		return domain.Candle{}, ErrNoCandleData
	}

	for i := len(candles) - 1; i >= 0; i-- {
		if !candles[i].Date.After(target) {
			return candles[i], nil
		}
	}

	return domain.Candle{}, ErrNoCandleBefore
}

// OpenAfter returns the first candle whose trading day is strictly after the
// target date. This is the exit reference: the open of the first session
// following the announcement, skipping weekends and holidays.
// Candles must be ordered oldest first.
func OpenAfter(target time.Time, candles []domain.Candle) (domain.Candle, error) {
	if len(candles) == 0 {
		return domain.Candle{}, ErrNoCandleData
	}

	for _, c := range candles {
		if c.Date.After(target) {
			return c, nil
		}
	}

	return domain.Candle{}, ErrNoCandleAfter
}
