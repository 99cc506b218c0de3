// Package catalog loads ETF metadata from CSV files into the price store.
//
// A catalog file is a CSV with a header row naming at least the ticker
// column. Other columns (name, issuer, expense_ratio, inception_date,
// category, aum, description) are optional and may appear in any order.
// Lines starting with '#' are skipped.
package catalog

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/etfcompare/etfcompare/internal/store"
	"github.com/etfcompare/etfcompare/pkg/models"
	"github.com/etfcompare/etfcompare/pkg/utils"
)

// Load reads ETF metadata from the CSV file at path.
func Load(path string) ([]*models.ETF, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()

	etfs, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return etfs, nil
}

// Parse reads catalog rows from r.
func Parse(r io.Reader) ([]*models.ETF, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("empty catalog")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := cols["ticker"]; !ok {
		return nil, fmt.Errorf("header missing ticker column")
	}

	var etfs []*models.ETF
	for row := 1; ; row++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}

		etf, err := parseRow(cols, record)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
		etfs = append(etfs, etf)
	}
	return etfs, nil
}

// Seed saves catalog entries into the store, overwriting existing metadata.
func Seed(ctx context.Context, st store.PriceStore, etfs []*models.ETF) error {
	for _, etf := range etfs {
		if err := st.SaveETF(ctx, etf); err != nil {
			return fmt.Errorf("seed %s: %w", etf.Ticker, err)
		}
	}
	return nil
}

// --- Helpers ---

func parseRow(cols map[string]int, record []string) (*models.ETF, error) {
	field := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	ticker := utils.NormalizeTicker(field("ticker"))
	if ticker == "" {
		return nil, fmt.Errorf("missing ticker")
	}

	etf := &models.ETF{
		Ticker:      ticker,
		Name:        field("name"),
		Issuer:      field("issuer"),
		Category:    field("category"),
		Description: field("description"),
	}

	// "ter" is a legacy alias for expense_ratio.
	ratio := field("expense_ratio")
	if ratio == "" {
		ratio = field("ter")
	}
	if ratio != "" {
		v, err := strconv.ParseFloat(ratio, 64)
		if err != nil {
			return nil, fmt.Errorf("bad expense_ratio %q", ratio)
		}
		etf.ExpenseRatio = v
	}

	if aum := field("aum"); aum != "" {
		v, err := strconv.ParseFloat(aum, 64)
		if err != nil {
			return nil, fmt.Errorf("bad aum %q", aum)
		}
		etf.AUM = v
	}

	if inception := field("inception_date"); inception != "" {
		d, err := utils.ParseDate(inception)
		if err != nil {
			return nil, fmt.Errorf("bad inception_date %q", inception)
		}
		etf.InceptionDate = d
	}

	return etf, nil
}
