package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"earnings-spread-lab/internal/domain"
	"earnings-spread-lab/internal/storage"
)

// EarningsMoveStore is an in-memory implementation of storage.EarningsMoveStore.
type EarningsMoveStore struct {
	mu   sync.RWMutex
	data map[string]*domain.EarningsMove // keyed by ticker|earnings_date
}

// NewEarningsMoveStore creates a new in-memory earnings move store.
func NewEarningsMoveStore() *EarningsMoveStore {
	return &EarningsMoveStore{
		data: make(map[string]*domain.EarningsMove),
	}
}

func moveKey(ticker string, earningsDate time.Time) string {
	return ticker + "|" + earningsDate.UTC().Format("2006-01-02")
}

// InsertBulk adds multiple moves. Fails entire batch on duplicate
// (ticker, earnings_date).
func (s *EarningsMoveStore) InsertBulk(_ context.Context, moves []*domain.EarningsMove) error {
	if len(moves) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Track keys in this batch to detect intra-batch duplicates
	batchKeys := make(map[string]struct{}, len(moves))

	// First pass: check for duplicates (existing + intra-batch)
	for _, m := range moves {
		if m == nil || m.Ticker == "" || m.EarningsDate.IsZero() {
			return storage.ErrInvalidInput
		}

		key := moveKey(m.Ticker, m.EarningsDate)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	// Second pass: insert all
	for _, m := range moves {
		copy := *m
		s.data[moveKey(m.Ticker, m.EarningsDate)] = &copy
	}

	return nil
}

// GetByTicker retrieves all moves for a ticker, ordered by earnings_date ASC.
func (s *EarningsMoveStore) GetByTicker(_ context.Context, ticker string) ([]*domain.EarningsMove, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.EarningsMove
	for _, m := range s.data {
		if m.Ticker == ticker {
			copy := *m
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].EarningsDate.Before(result[j].EarningsDate)
	})

	return result, nil
}

// GetByDateRange retrieves moves for a ticker within [start, end] (inclusive).
func (s *EarningsMoveStore) GetByDateRange(_ context.Context, ticker string, start, end time.Time) ([]*domain.EarningsMove, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.EarningsMove
	for _, m := range s.data {
		if m.Ticker != ticker {
			continue
		}
		if m.EarningsDate.Before(start) || m.EarningsDate.After(end) {
			continue
		}
		copy := *m
		result = append(result, &copy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].EarningsDate.Before(result[j].EarningsDate)
	})

	return result, nil
}

var _ storage.EarningsMoveStore = (*EarningsMoveStore)(nil)
