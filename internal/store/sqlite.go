package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/etfcompare/etfcompare/pkg/models"
	"github.com/etfcompare/etfcompare/pkg/utils"
)

const schema = `
CREATE TABLE IF NOT EXISTS etfs (
	ticker         TEXT PRIMARY KEY,
	name           TEXT NOT NULL DEFAULT '',
	issuer         TEXT NOT NULL DEFAULT '',
	expense_ratio  REAL NOT NULL DEFAULT 0,
	inception_date TEXT NOT NULL DEFAULT '',
	category       TEXT NOT NULL DEFAULT '',
	aum            REAL NOT NULL DEFAULT 0,
	description    TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS price_data (
	ticker    TEXT NOT NULL,
	date      TEXT NOT NULL,
	adj_close REAL NOT NULL,
	volume    INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (ticker, date)
);
`

// SQLiteStore implements PriceStore on a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

var _ PriceStore = (*SQLiteStore)(nil)

// NewSQLite opens (creating if needed) the SQLite database at path and
// applies the schema. Use ":memory:" for an ephemeral database.
func NewSQLite(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty database path", ErrInvalidInput)
	}
	if path != ":memory:" {
		if err := ensureDir(filepath.Dir(path)); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_busy_timeout=5000&_foreign_keys=on", path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA synchronous=NORMAL;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set synchronous level: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// DB returns the underlying *sql.DB.
func (s *SQLiteStore) DB() *sql.DB { return s.db }

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveETF inserts or replaces ETF metadata.
func (s *SQLiteStore) SaveETF(ctx context.Context, etf *models.ETF) error {
	if etf == nil || etf.Ticker == "" {
		return fmt.Errorf("%w: missing ticker", ErrInvalidInput)
	}

	inception := ""
	if !etf.InceptionDate.IsZero() {
		inception = utils.FormatDate(etf.InceptionDate)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO etfs
			(ticker, name, issuer, expense_ratio, inception_date, category, aum, description)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		utils.NormalizeTicker(etf.Ticker), etf.Name, etf.Issuer, etf.ExpenseRatio,
		inception, etf.Category, etf.AUM, etf.Description,
	)
	if err != nil {
		return fmt.Errorf("save etf %s: %w", etf.Ticker, err)
	}
	return nil
}

// GetETF retrieves metadata for a ticker.
func (s *SQLiteStore) GetETF(ctx context.Context, ticker string) (*models.ETF, error) {
	symbol := utils.NormalizeTicker(ticker)

	row := s.db.QueryRowContext(ctx, `
		SELECT ticker, name, issuer, expense_ratio, inception_date, category, aum, description
		FROM etfs WHERE ticker = ?`, symbol)

	etf, err := scanETF(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, symbol)
	}
	if err != nil {
		return nil, fmt.Errorf("get etf %s: %w", symbol, err)
	}
	return etf, nil
}

// ListETFs retrieves all stored ETFs ordered by ticker.
func (s *SQLiteStore) ListETFs(ctx context.Context) ([]*models.ETF, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ticker, name, issuer, expense_ratio, inception_date, category, aum, description
		FROM etfs ORDER BY ticker`)
	if err != nil {
		return nil, fmt.Errorf("list etfs: %w", err)
	}
	defer rows.Close()

	var etfs []*models.ETF
	for rows.Next() {
		etf, err := scanETF(rows)
		if err != nil {
			return nil, fmt.Errorf("list etfs: %w", err)
		}
		etfs = append(etfs, etf)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list etfs: %w", err)
	}
	return etfs, nil
}

// SavePrices inserts or replaces daily price points inside one transaction.
func (s *SQLiteStore) SavePrices(ctx context.Context, ticker string, points []models.PricePoint) error {
	symbol := utils.NormalizeTicker(ticker)
	if symbol == "" {
		return fmt.Errorf("%w: missing ticker", ErrInvalidInput)
	}
	if len(points) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save prices %s: %w", symbol, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO price_data (ticker, date, adj_close, volume)
		VALUES (?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("save prices %s: %w", symbol, err)
	}
	defer stmt.Close()

	for _, p := range points {
		if _, err := stmt.ExecContext(ctx, symbol, utils.FormatDate(p.Date), p.AdjClose, p.Volume); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("save prices %s %s: %w", symbol, utils.FormatDate(p.Date), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save prices %s: %w", symbol, err)
	}
	return nil
}

// GetPrices retrieves points in [start, end], ordered by date ASC. ISO date
// strings sort lexicographically, so the range filter works on TEXT.
func (s *SQLiteStore) GetPrices(ctx context.Context, ticker string, start, end time.Time) ([]models.PricePoint, error) {
	symbol := utils.NormalizeTicker(ticker)

	rows, err := s.db.QueryContext(ctx, `
		SELECT date, adj_close, volume FROM price_data
		WHERE ticker = ? AND date >= ? AND date <= ?
		ORDER BY date ASC`,
		symbol, utils.FormatDate(start), utils.FormatDate(end))
	if err != nil {
		return nil, fmt.Errorf("get prices %s: %w", symbol, err)
	}
	defer rows.Close()

	var points []models.PricePoint
	for rows.Next() {
		var (
			date string
			p    models.PricePoint
		)
		if err := rows.Scan(&date, &p.AdjClose, &p.Volume); err != nil {
			return nil, fmt.Errorf("get prices %s: %w", symbol, err)
		}
		p.Date, err = utils.ParseDate(date)
		if err != nil {
			return nil, fmt.Errorf("get prices %s: bad date %q: %w", symbol, date, err)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get prices %s: %w", symbol, err)
	}
	return points, nil
}

// ClearPrices removes stored points for a ticker, or every series when the
// ticker is empty.
func (s *SQLiteStore) ClearPrices(ctx context.Context, ticker string) (int64, error) {
	var (
		res sql.Result
		err error
	)
	if ticker == "" {
		res, err = s.db.ExecContext(ctx, `DELETE FROM price_data`)
	} else {
		res, err = s.db.ExecContext(ctx, `DELETE FROM price_data WHERE ticker = ?`,
			utils.NormalizeTicker(ticker))
	}
	if err != nil {
		return 0, fmt.Errorf("clear prices: %w", err)
	}
	return res.RowsAffected()
}

// --- Helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanETF(row rowScanner) (*models.ETF, error) {
	var (
		etf       models.ETF
		inception string
	)
	if err := row.Scan(&etf.Ticker, &etf.Name, &etf.Issuer, &etf.ExpenseRatio,
		&inception, &etf.Category, &etf.AUM, &etf.Description); err != nil {
		return nil, err
	}
	if inception != "" {
		t, err := utils.ParseDate(inception)
		if err != nil {
			return nil, fmt.Errorf("bad inception date %q: %w", inception, err)
		}
		etf.InceptionDate = t
	}
	return &etf, nil
}

func ensureDir(path string) error {
	if path == "" || path == "." {
		return nil
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", path, err)
	}
	return nil
}
