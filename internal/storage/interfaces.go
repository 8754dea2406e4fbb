package storage

import (
	"context"
	"time"

	"earnings-spread-lab/internal/domain"
)

// SimulationRunStore provides access to the simulation run journal.
type SimulationRunStore interface {
	// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, r *domain.SimulationRun) error

	// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, runID string) (*domain.SimulationRun, error)

	// GetByTicker retrieves all runs for a ticker, newest first.
	GetByTicker(ctx context.Context, ticker string) ([]*domain.SimulationRun, error)

	// GetRecent retrieves up to limit runs across all tickers, newest first.
	GetRecent(ctx context.Context, limit int) ([]*domain.SimulationRun, error)
}

// EarningsMoveStore provides access to observed earnings-move storage.
type EarningsMoveStore interface {
	// InsertBulk adds multiple moves. Fails entire batch on duplicate
	// (ticker, earnings_date).
	InsertBulk(ctx context.Context, moves []*domain.EarningsMove) error

	// GetByTicker retrieves all moves for a ticker, ordered by earnings_date ASC.
	GetByTicker(ctx context.Context, ticker string) ([]*domain.EarningsMove, error)

	// GetByDateRange retrieves moves for a ticker within [start, end] (inclusive).
	GetByDateRange(ctx context.Context, ticker string, start, end time.Time) ([]*domain.EarningsMove, error)
}
