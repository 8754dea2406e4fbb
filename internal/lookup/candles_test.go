package lookup

import (
	"errors"
	"testing"
	"time"

	"earnings-spread-lab/internal/domain"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func makeCandles(days []time.Time) []domain.Candle {
	candles := make([]domain.Candle, len(days))
	for i, d := range days {
		candles[i] = domain.Candle{
			Date:  d,
			Open:  100 + float64(i),
			Close: 101 + float64(i),
		}
	}
	return candles
}

func TestCloseOnOrBefore_Empty(t *testing.T) {
	_, err := CloseOnOrBefore(day(2026, 1, 29), nil)
	if !errors.Is(err, ErrNoCandleData) {
		t.Errorf("expected ErrNoCandleData, got %v", err)
	}
}

func TestCloseOnOrBefore_ExactDay(t *testing.T) {
	candles := makeCandles([]time.Time{
		day(2026, 1, 27), day(2026, 1, 28), day(2026, 1, 29), day(2026, 1, 30),
	})

	got, err := CloseOnOrBefore(day(2026, 1, 29), candles)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Date.Equal(day(2026, 1, 29)) {
		t.Errorf("expected candle on 2026-01-29, got %s", got.Date)
	}
}

func TestCloseOnOrBefore_SkipsGap(t *testing.T) {
	// Earnings dated on a Saturday resolve to Friday's close.
	candles := makeCandles([]time.Time{
		day(2026, 1, 29), day(2026, 1, 30), day(2026, 2, 2),
	})

	got, err := CloseOnOrBefore(day(2026, 1, 31), candles)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Date.Equal(day(2026, 1, 30)) {
		t.Errorf("expected Friday candle 2026-01-30, got %s", got.Date)
	}
}

func TestCloseOnOrBefore_AllAfterTarget(t *testing.T) {
	candles := makeCandles([]time.Time{day(2026, 2, 2), day(2026, 2, 3)})

	_, err := CloseOnOrBefore(day(2026, 1, 29), candles)
	if !errors.Is(err, ErrNoCandleBefore) {
		t.Errorf("expected ErrNoCandleBefore, got %v", err)
	}
}

func TestOpenAfter_Empty(t *testing.T) {
	_, err := OpenAfter(day(2026, 1, 29), nil)
	if !errors.Is(err, ErrNoCandleData) {
		t.Errorf("expected ErrNoCandleData, got %v", err)
	}
}

func TestOpenAfter_StrictlyAfter(t *testing.T) {
	candles := makeCandles([]time.Time{
		day(2026, 1, 28), day(2026, 1, 29), day(2026, 1, 30),
	})

	// The announcement day's own candle does not count as the exit session.
	got, err := OpenAfter(day(2026, 1, 29), candles)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Date.Equal(day(2026, 1, 30)) {
		t.Errorf("expected candle on 2026-01-30, got %s", got.Date)
	}
}

func TestOpenAfter_SkipsWeekend(t *testing.T) {
	// Friday announcement exits at Monday's open.
	candles := makeCandles([]time.Time{
		day(2026, 1, 30), day(2026, 2, 2), day(2026, 2, 3),
	})

	got, err := OpenAfter(day(2026, 1, 30), candles)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Date.Equal(day(2026, 2, 2)) {
		t.Errorf("expected Monday candle 2026-02-02, got %s", got.Date)
	}
}

func TestOpenAfter_NothingAfter(t *testing.T) {
	candles := makeCandles([]time.Time{day(2026, 1, 28), day(2026, 1, 29)})

	_, err := OpenAfter(day(2026, 1, 29), candles)
	if !errors.Is(err, ErrNoCandleAfter) {
		t.Errorf("expected ErrNoCandleAfter, got %v", err)
	}
}
