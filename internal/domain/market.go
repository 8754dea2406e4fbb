package domain

import "time"

// Candle is one daily OHLCV bar.
type Candle struct {
	Date   time.Time // trading day, midnight UTC
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// EarningsMove is one observed earnings reaction: the overnight gap from the
// last close before the announcement window to the first open after it,
// matching a strategy that enters just before the close and exits just after
// the next open.
type EarningsMove struct {
	Ticker       string
	EarningsDate time.Time // announcement date, midnight UTC
	MovePercent  float64   // (OpenAfter - CloseBefore) / CloseBefore * 100
	CloseBefore  float64
	OpenAfter    float64
}
