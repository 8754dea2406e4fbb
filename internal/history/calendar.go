package history

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const (
	defaultCalendarTimeout = 30 * time.Second
	defaultRequestsPerSec  = 5
	defaultMaxRetryTime    = 30 * time.Second
	earningsCalendarPath   = "/calendar/earnings"
)

// HTTPEarningsCalendar fetches announcement dates from a finnhub-style
// earnings calendar endpoint, rate-limited and retried with backoff.
type HTTPEarningsCalendar struct {
	client       *resty.Client
	limiter      *rate.Limiter
	apiKey       string
	maxRetryTime time.Duration
}

// CalendarOptions contains configuration for creating an HTTPEarningsCalendar.
type CalendarOptions struct {
	BaseURL        string
	APIKey         string
	Timeout        time.Duration
	RequestsPerSec int
	MaxRetryTime   time.Duration
}

// NewHTTPEarningsCalendar creates a new calendar client.
func NewHTTPEarningsCalendar(opts CalendarOptions) *HTTPEarningsCalendar {
	if opts.Timeout == 0 {
		opts.Timeout = defaultCalendarTimeout
	}
	if opts.RequestsPerSec == 0 {
		opts.RequestsPerSec = defaultRequestsPerSec
	}
	if opts.MaxRetryTime == 0 {
		opts.MaxRetryTime = defaultMaxRetryTime
	}

	client := resty.New()
	client.SetBaseURL(opts.BaseURL)
	client.SetTimeout(opts.Timeout)

	return &HTTPEarningsCalendar{
		client:       client,
		limiter:      rate.NewLimiter(rate.Every(time.Second), opts.RequestsPerSec),
		apiKey:       opts.APIKey,
		maxRetryTime: opts.MaxRetryTime,
	}
}

var _ EarningsCalendar = (*HTTPEarningsCalendar)(nil)

// calendarEntry mirrors one row of the calendar response.
type calendarEntry struct {
	Date   string `json:"date"`
	Symbol string `json:"symbol"`
}

// Fetch returns announcement dates for ticker within [start, end], oldest first.
func (c *HTTPEarningsCalendar) Fetch(ctx context.Context, ticker string, start, end time.Time) ([]time.Time, error) {
	// Wait for rate limiter
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var entries []calendarEntry
	operation := func() error {
		resp, err := c.client.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"symbol": ticker,
				"from":   start.Format("2006-01-02"),
				"to":     end.Format("2006-01-02"),
				"token":  c.apiKey,
			}).
			Get(earningsCalendarPath)
		if err != nil {
			return fmt.Errorf("fetch earnings calendar for %s: %w", ticker, err)
		}

		if resp.StatusCode() != 200 {
			return fmt.Errorf("earnings calendar API error %d: %s", resp.StatusCode(), resp.String())
		}

		var payload struct {
			EarningsCalendar []calendarEntry `json:"earningsCalendar"`
		}
		if err := json.Unmarshal(resp.Body(), &payload); err != nil {
			return fmt.Errorf("parse earnings calendar response: %w", err)
		}

		entries = payload.EarningsCalendar
		return nil
	}

	strategy := backoff.NewExponentialBackOff()
	strategy.MaxElapsedTime = c.maxRetryTime

	if err := backoff.Retry(operation, backoff.WithContext(strategy, ctx)); err != nil {
		return nil, err
	}

	dates := make([]time.Time, 0, len(entries))
	for _, e := range entries {
		d, err := time.Parse("2006-01-02", e.Date)
		if err != nil {
			return nil, fmt.Errorf("parse earnings date %q: %w", e.Date, err)
		}
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	return dates, nil
}
