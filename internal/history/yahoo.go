package history

import (
	"context"
	"fmt"
	"time"

	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/shopspring/decimal"

	"earnings-spread-lab/internal/domain"
)

// YahooCandleSource fetches daily candles through the public Yahoo chart API.
type YahooCandleSource struct{}

// NewYahooCandleSource creates a new Yahoo-backed candle source.
func NewYahooCandleSource() *YahooCandleSource {
	return &YahooCandleSource{}
}

var _ CandleSource = (*YahooCandleSource)(nil)

// Fetch returns daily candles for ticker within [start, end], oldest first.
// The chart API yields bars in ascending time order already. Bar timestamps
// carry the session open time; dates are floored to midnight UTC. All price
// fields are split/dividend adjusted so a gap across a split does not read
// as an earnings move.
func (s *YahooCandleSource) Fetch(_ context.Context, ticker string, start, end time.Time) ([]domain.Candle, error) {
	params := &chart.Params{
		Symbol:   ticker,
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Interval: datetime.OneDay,
	}

	iter := chart.Get(params)

	var candles []domain.Candle
	for iter.Next() {
		bar := iter.Bar()
		candles = append(candles, domain.Candle{
			Date:   time.Unix(int64(bar.Timestamp), 0).UTC().Truncate(24 * time.Hour),
			Open:   adjusted(bar.Open, bar.Close, bar.AdjClose),
			High:   adjusted(bar.High, bar.Close, bar.AdjClose),
			Low:    adjusted(bar.Low, bar.Close, bar.AdjClose),
			Close:  bar.AdjClose.InexactFloat64(),
			Volume: int64(bar.Volume),
		})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("fetch candles for %s: %w", ticker, err)
	}

	return candles, nil
}

// adjusted scales a raw bar field by the bar's adjustment ratio. Yahoo only
// adjusts the close; the same ratio applies to the other fields.
func adjusted(field, rawClose, adjClose decimal.Decimal) float64 {
	if rawClose.IsZero() {
		return field.InexactFloat64()
	}
	return field.Mul(adjClose.Div(rawClose)).InexactFloat64()
}
