// Package store persists ETF metadata and daily price history. A SQLite
// implementation backs the CLI and the API server; an in-memory
// implementation backs tests and ephemeral runs.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/etfcompare/etfcompare/pkg/models"
)

// Storage errors.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)

// PriceStore provides access to ETF metadata and daily adjusted closes.
type PriceStore interface {
	// SaveETF inserts or replaces ETF metadata keyed by ticker.
	SaveETF(ctx context.Context, etf *models.ETF) error

	// GetETF retrieves metadata for a ticker. Returns ErrNotFound if absent.
	GetETF(ctx context.Context, ticker string) (*models.ETF, error)

	// ListETFs retrieves all stored ETFs ordered by ticker.
	ListETFs(ctx context.Context) ([]*models.ETF, error)

	// SavePrices inserts or replaces daily price points for a ticker.
	// Points for dates already stored are overwritten.
	SavePrices(ctx context.Context, ticker string, points []models.PricePoint) error

	// GetPrices retrieves points for a ticker within [start, end]
	// (inclusive), ordered by date ASC.
	GetPrices(ctx context.Context, ticker string, start, end time.Time) ([]models.PricePoint, error)

	// ClearPrices removes stored points for a ticker and reports how many
	// were dropped. An empty ticker clears every series.
	ClearPrices(ctx context.Context, ticker string) (int64, error)

	// Close releases the underlying resources.
	Close() error
}
