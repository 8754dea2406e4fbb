package clickhouse

import (
	"context"
	"fmt"
	"time"

	"earnings-spread-lab/internal/domain"
	"earnings-spread-lab/internal/storage"
)

// EarningsMoveStore implements storage.EarningsMoveStore using ClickHouse.
type EarningsMoveStore struct {
	conn *Conn
}

// NewEarningsMoveStore creates a new EarningsMoveStore.
func NewEarningsMoveStore(conn *Conn) *EarningsMoveStore {
	return &EarningsMoveStore{conn: conn}
}

// Compile-time interface check.
var _ storage.EarningsMoveStore = (*EarningsMoveStore)(nil)

// InsertBulk adds multiple moves. Fails entire batch on duplicate (ticker, earnings_date).
func (s *EarningsMoveStore) InsertBulk(ctx context.Context, moves []*domain.EarningsMove) error {
	if len(moves) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	type key struct {
		ticker string
		date   string
	}
	seen := make(map[key]struct{})
	for _, m := range moves {
		k := key{m.Ticker, m.EarningsDate.UTC().Format("2006-01-02")}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	// Check for duplicates against existing DB rows
	for _, m := range moves {
		exists, err := s.exists(ctx, m.Ticker, m.EarningsDate)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO earnings_moves (
			ticker, earnings_date, move_percent, close_before, open_after
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, m := range moves {
		err = batch.Append(
			m.Ticker, m.EarningsDate, m.MovePercent, m.CloseBefore, m.OpenAfter,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByTicker retrieves all moves for a ticker, ordered by earnings_date ASC.
func (s *EarningsMoveStore) GetByTicker(ctx context.Context, ticker string) ([]*domain.EarningsMove, error) {
	query := `
		SELECT ticker, earnings_date, move_percent, close_before, open_after
		FROM earnings_moves
		WHERE ticker = ?
		ORDER BY earnings_date ASC
	`

	rows, err := s.conn.Query(ctx, query, ticker)
	if err != nil {
		return nil, fmt.Errorf("query by ticker: %w", err)
	}
	defer rows.Close()

	return scanEarningsMoves(rows)
}

// GetByDateRange retrieves moves for a ticker within [start, end] (inclusive).
func (s *EarningsMoveStore) GetByDateRange(ctx context.Context, ticker string, start, end time.Time) ([]*domain.EarningsMove, error) {
	query := `
		SELECT ticker, earnings_date, move_percent, close_before, open_after
		FROM earnings_moves
		WHERE ticker = ? AND earnings_date >= ? AND earnings_date <= ?
		ORDER BY earnings_date ASC
	`

	rows, err := s.conn.Query(ctx, query, ticker, start, end)
	if err != nil {
		return nil, fmt.Errorf("query by date range: %w", err)
	}
	defer rows.Close()

	return scanEarningsMoves(rows)
}

// exists checks if a move with the given key exists.
func (s *EarningsMoveStore) exists(ctx context.Context, ticker string, earningsDate time.Time) (bool, error) {
	query := `
		SELECT count(*) FROM earnings_moves
		WHERE ticker = ? AND earnings_date = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, ticker, earningsDate).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Rows interface for scanning
type chRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

// scanEarningsMoves scans multiple rows into a slice.
func scanEarningsMoves(rows chRows) ([]*domain.EarningsMove, error) {
	var moves []*domain.EarningsMove

	for rows.Next() {
		var m domain.EarningsMove
		var earningsDate time.Time

		err := rows.Scan(
			&m.Ticker, &earningsDate, &m.MovePercent, &m.CloseBefore, &m.OpenAfter,
		)
		if err != nil {
			return nil, fmt.Errorf("scan earnings move row: %w", err)
		}

		m.EarningsDate = earningsDate.UTC()
		moves = append(moves, &m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate earnings move rows: %w", err)
	}

	return moves, nil
}
