package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"earnings-spread-lab/internal/domain"
	"earnings-spread-lab/internal/storage"
)

// SimulationRunStore implements storage.SimulationRunStore using PostgreSQL.
// Params and Results are stored as JSONB blobs: the journal is an opaque
// archive, and readers own schema compatibility.
type SimulationRunStore struct {
	pool *Pool
}

// NewSimulationRunStore creates a new SimulationRunStore.
func NewSimulationRunStore(pool *Pool) *SimulationRunStore {
	return &SimulationRunStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SimulationRunStore = (*SimulationRunStore)(nil)

// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
func (s *SimulationRunStore) Insert(ctx context.Context, r *domain.SimulationRun) error {
	paramsJSON, err := json.Marshal(r.Params)
	if err != nil {
		return fmt.Errorf("encode run params: %w", err)
	}
	resultsJSON, err := json.Marshal(r.Results)
	if err != nil {
		return fmt.Errorf("encode run results: %w", err)
	}

	query := `
		INSERT INTO simulation_runs (
			run_id, ticker, requested_at, params, results, recommendation
		) VALUES (
			$1, $2, $3, $4, $5, $6
		)
	`

	_, err = s.pool.Exec(ctx, query,
		r.RunID, r.Ticker, r.RequestedAt, paramsJSON, resultsJSON, r.Recommendation,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert simulation run: %w", err)
	}
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *SimulationRunStore) GetByID(ctx context.Context, runID string) (*domain.SimulationRun, error) {
	query := `
		SELECT run_id, ticker, requested_at, params, results, recommendation
		FROM simulation_runs
		WHERE run_id = $1
	`

	row := s.pool.QueryRow(ctx, query, runID)
	r, err := scanSimulationRun(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get simulation run by id: %w", err)
	}
	return r, nil
}

// GetByTicker retrieves all runs for a ticker, newest first.
func (s *SimulationRunStore) GetByTicker(ctx context.Context, ticker string) ([]*domain.SimulationRun, error) {
	query := `
		SELECT run_id, ticker, requested_at, params, results, recommendation
		FROM simulation_runs
		WHERE ticker = $1
		ORDER BY requested_at DESC, run_id ASC
	`

	rows, err := s.pool.Query(ctx, query, ticker)
	if err != nil {
		return nil, fmt.Errorf("get simulation runs by ticker: %w", err)
	}
	defer rows.Close()

	return scanSimulationRuns(rows)
}

// GetRecent retrieves up to limit runs across all tickers, newest first.
func (s *SimulationRunStore) GetRecent(ctx context.Context, limit int) ([]*domain.SimulationRun, error) {
	query := `
		SELECT run_id, ticker, requested_at, params, results, recommendation
		FROM simulation_runs
		ORDER BY requested_at DESC, run_id ASC
		LIMIT $1
	`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("get recent simulation runs: %w", err)
	}
	defer rows.Close()

	return scanSimulationRuns(rows)
}

// scanSimulationRun scans a single row into a SimulationRun.
func scanSimulationRun(row pgx.Row) (*domain.SimulationRun, error) {
	var r domain.SimulationRun
	var paramsJSON, resultsJSON []byte

	err := row.Scan(
		&r.RunID, &r.Ticker, &r.RequestedAt, &paramsJSON, &resultsJSON, &r.Recommendation,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(paramsJSON, &r.Params); err != nil {
		return nil, fmt.Errorf("decode run params: %w", err)
	}
	if err := json.Unmarshal(resultsJSON, &r.Results); err != nil {
		return nil, fmt.Errorf("decode run results: %w", err)
	}

	return &r, nil
}

// scanSimulationRuns scans multiple rows into a slice of SimulationRun.
func scanSimulationRuns(rows pgx.Rows) ([]*domain.SimulationRun, error) {
	var runs []*domain.SimulationRun

	for rows.Next() {
		r, err := scanSimulationRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan simulation run row: %w", err)
		}
		runs = append(runs, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate simulation run rows: %w", err)
	}

	return runs, nil
}
