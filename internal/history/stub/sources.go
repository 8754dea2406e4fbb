// Package stub provides fixed in-memory history sources for testing.
package stub

import (
	"context"
	"time"

	"earnings-spread-lab/internal/domain"
)

// CandleSource returns fixed in-memory candles for testing.
// Implements history.CandleSource.
type CandleSource struct {
	candles map[string][]domain.Candle // keyed by ticker
}

// NewCandleSource creates a new stub candle source.
func NewCandleSource(candles map[string][]domain.Candle) *CandleSource {
	return &CandleSource{candles: candles}
}

// Fetch returns the ticker's candles within [start, end], oldest first.
func (s *CandleSource) Fetch(_ context.Context, ticker string, start, end time.Time) ([]domain.Candle, error) {
	var result []domain.Candle
	for _, c := range s.candles[ticker] {
		if !c.Date.Before(start) && !c.Date.After(end) {
			result = append(result, c)
		}
	}
	return result, nil
}

// EarningsCalendar returns fixed in-memory announcement dates for testing.
// Implements history.EarningsCalendar.
type EarningsCalendar struct {
	dates map[string][]time.Time // keyed by ticker
}

// NewEarningsCalendar creates a new stub earnings calendar.
func NewEarningsCalendar(dates map[string][]time.Time) *EarningsCalendar {
	return &EarningsCalendar{dates: dates}
}

// Fetch returns the ticker's announcement dates within [start, end], oldest first.
func (s *EarningsCalendar) Fetch(_ context.Context, ticker string, start, end time.Time) ([]time.Time, error) {
	var result []time.Time
	for _, d := range s.dates[ticker] {
		if !d.Before(start) && !d.After(end) {
			result = append(result, d)
		}
	}
	return result, nil
}
