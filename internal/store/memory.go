package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/etfcompare/etfcompare/pkg/models"
	"github.com/etfcompare/etfcompare/pkg/utils"
)

// MemoryStore is an in-memory implementation of PriceStore. Values are
// copied on write and read so callers cannot mutate stored state.
type MemoryStore struct {
	mu     sync.RWMutex
	etfs   map[string]models.ETF
	prices map[string][]models.PricePoint // ordered by date ASC
}

var _ PriceStore = (*MemoryStore)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		etfs:   make(map[string]models.ETF),
		prices: make(map[string][]models.PricePoint),
	}
}

// SaveETF inserts or replaces ETF metadata.
func (s *MemoryStore) SaveETF(_ context.Context, etf *models.ETF) error {
	if etf == nil || etf.Ticker == "" {
		return fmt.Errorf("%w: missing ticker", ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *etf
	stored.Ticker = utils.NormalizeTicker(etf.Ticker)
	s.etfs[stored.Ticker] = stored
	return nil
}

// GetETF retrieves metadata for a ticker.
func (s *MemoryStore) GetETF(_ context.Context, ticker string) (*models.ETF, error) {
	symbol := utils.NormalizeTicker(ticker)

	s.mu.RLock()
	defer s.mu.RUnlock()

	etf, ok := s.etfs[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, symbol)
	}
	out := etf
	return &out, nil
}

// ListETFs retrieves all stored ETFs ordered by ticker.
func (s *MemoryStore) ListETFs(_ context.Context) ([]*models.ETF, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	etfs := make([]*models.ETF, 0, len(s.etfs))
	for _, etf := range s.etfs {
		out := etf
		etfs = append(etfs, &out)
	}
	sort.Slice(etfs, func(i, j int) bool { return etfs[i].Ticker < etfs[j].Ticker })
	return etfs, nil
}

// SavePrices inserts or replaces daily price points for a ticker.
func (s *MemoryStore) SavePrices(_ context.Context, ticker string, points []models.PricePoint) error {
	symbol := utils.NormalizeTicker(ticker)
	if symbol == "" {
		return fmt.Errorf("%w: missing ticker", ErrInvalidInput)
	}
	if len(points) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Merge by date so re-saves overwrite instead of duplicating.
	byDate := make(map[string]models.PricePoint, len(s.prices[symbol])+len(points))
	for _, p := range s.prices[symbol] {
		byDate[utils.FormatDate(p.Date)] = p
	}
	for _, p := range points {
		stored := p
		stored.Date = utils.DateOnly(p.Date)
		byDate[utils.FormatDate(stored.Date)] = stored
	}

	merged := make([]models.PricePoint, 0, len(byDate))
	for _, p := range byDate {
		merged = append(merged, p)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Date.Before(merged[j].Date) })

	s.prices[symbol] = merged
	return nil
}

// GetPrices retrieves points in [start, end], ordered by date ASC.
func (s *MemoryStore) GetPrices(_ context.Context, ticker string, start, end time.Time) ([]models.PricePoint, error) {
	symbol := utils.NormalizeTicker(ticker)
	lo, hi := utils.DateOnly(start), utils.DateOnly(end)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var points []models.PricePoint
	for _, p := range s.prices[symbol] {
		if p.Date.Before(lo) || p.Date.After(hi) {
			continue
		}
		points = append(points, p)
	}
	return points, nil
}

// ClearPrices removes stored points for a ticker, or every series when the
// ticker is empty.
func (s *MemoryStore) ClearPrices(_ context.Context, ticker string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ticker == "" {
		var n int64
		for _, pts := range s.prices {
			n += int64(len(pts))
		}
		s.prices = make(map[string][]models.PricePoint)
		return n, nil
	}

	symbol := utils.NormalizeTicker(ticker)
	n := int64(len(s.prices[symbol]))
	delete(s.prices, symbol)
	return n, nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }
