// Package compare orchestrates ETF performance comparisons: it resolves the
// analysis window, loads price history (store first, upstream source on a
// miss), computes per-instrument metrics against a shared benchmark, and
// assembles the comparison result.
package compare

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/etfcompare/etfcompare/internal/config"
	"github.com/etfcompare/etfcompare/internal/datasource"
	"github.com/etfcompare/etfcompare/internal/metrics"
	"github.com/etfcompare/etfcompare/internal/store"
	"github.com/etfcompare/etfcompare/pkg/models"
	"github.com/etfcompare/etfcompare/pkg/utils"
)

// ErrInvalidRequest is returned when a comparison request fails validation.
var ErrInvalidRequest = errors.New("invalid compare request")

// Request describes one comparison run.
type Request struct {
	BaseTicker        string
	ComparisonTickers []string

	// Period selects the analysis window; empty uses the configured default.
	Period string

	// Benchmark overrides the configured benchmark ticker. The literal
	// "none" disables benchmark-relative statistics.
	Benchmark string

	// RiskFreeRate overrides the configured annualized risk-free rate.
	RiskFreeRate *float64
}

// Service runs comparisons against a market data source and a price store.
type Service struct {
	source datasource.MarketData
	store  store.PriceStore
	logger *zap.Logger
	cfg    config.AnalysisConfig

	// Now is the clock used to resolve analysis windows and stamp results.
	// Overridable in tests.
	Now func() time.Time
}

// New creates a comparison service.
func New(source datasource.MarketData, st store.PriceStore, logger *zap.Logger, cfg config.AnalysisConfig) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ConcurrentFetches < 1 {
		cfg.ConcurrentFetches = 1
	}
	return &Service{
		source: source,
		store:  st,
		logger: logger,
		cfg:    cfg,
		Now:    time.Now,
	}
}

// Compare loads history for the base, comparison, and benchmark tickers and
// computes performance metrics for each instrument. A failure on the base
// ticker fails the comparison; failing comparison tickers are dropped with a
// warning, and a failing benchmark downgrades the run to absolute metrics.
func (s *Service) Compare(ctx context.Context, req Request) (*models.ComparisonResult, error) {
	base, comparisons, err := normalizeTickers(req)
	if err != nil {
		return nil, err
	}

	period := req.Period
	if period == "" {
		period = s.cfg.DefaultPeriod
	}
	now := utils.DateOnly(s.Now())
	start, err := utils.PeriodStart(period, now)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	riskFree := s.cfg.RiskFreeRate
	if req.RiskFreeRate != nil {
		riskFree = *req.RiskFreeRate
	}

	// The benchmark is fetched first: every instrument's relative
	// statistics regress against the same return series.
	benchmark, benchReturns := s.loadBenchmark(ctx, req, period, start, now)

	tickers := append([]string{base}, comparisons...)

	var (
		mu         sync.Mutex
		results    = make(map[string]*models.PerformanceMetrics, len(tickers))
		baseSeries *models.PriceSeries
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.ConcurrentFetches)

	for _, ticker := range tickers {
		g.Go(func() error {
			series, err := s.loadSeries(gctx, ticker, period, start, now)
			if err == nil {
				var m *models.PerformanceMetrics
				m, err = metrics.ComputeMetrics(series, riskFree, benchReturns)
				if err == nil {
					mu.Lock()
					results[ticker] = m
					if ticker == base {
						baseSeries = series
					}
					mu.Unlock()
					return nil
				}
			}

			if ticker == base {
				return fmt.Errorf("base ticker %s: %w", ticker, err)
			}
			s.logger.Warn("dropping comparison ticker",
				zap.String("ticker", ticker),
				zap.Error(err))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &models.ComparisonResult{
		BaseTicker:        base,
		ComparisonTickers: comparisons,
		Benchmark:         benchmark,
		Period:            period,
		StartDate:         baseSeries.Start(),
		EndDate:           baseSeries.End(),
		Metrics:           results,
		GeneratedAt:       s.Now(),
	}

	s.logger.Info("comparison complete",
		zap.String("base", base),
		zap.Int("instruments", len(results)),
		zap.String("period", period),
		zap.String("benchmark", benchmark))
	return result, nil
}

// FetchHistory loads daily history for one ticker over a named period,
// store first.
func (s *Service) FetchHistory(ctx context.Context, ticker, period string) (*models.PriceSeries, error) {
	symbol := utils.NormalizeTicker(ticker)
	if symbol == "" {
		return nil, fmt.Errorf("%w: empty ticker", ErrInvalidRequest)
	}
	if period == "" {
		period = s.cfg.DefaultPeriod
	}
	now := utils.DateOnly(s.Now())
	start, err := utils.PeriodStart(period, now)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return s.loadSeries(ctx, symbol, period, start, now)
}

// --- Internal helpers ---

// loadSeries returns daily history for [start, end], preferring stored
// prices and persisting upstream fetches for the next run. A single stored
// point is treated as a miss so a poisoned cache cannot starve the metrics
// engine.
func (s *Service) loadSeries(ctx context.Context, ticker, period string, start, end time.Time) (*models.PriceSeries, error) {
	points, err := s.store.GetPrices(ctx, ticker, start, end)
	if err != nil {
		s.logger.Warn("price store lookup failed",
			zap.String("ticker", ticker),
			zap.Error(err))
	}
	if len(points) >= 2 {
		s.logger.Debug("using stored prices",
			zap.String("ticker", ticker),
			zap.Int("points", len(points)))
		return &models.PriceSeries{Ticker: ticker, Period: period, Points: points}, nil
	}

	series, err := s.source.GetDailyHistory(ctx, ticker, start, end)
	if err != nil {
		return nil, err
	}
	series.Period = period

	if err := s.store.SavePrices(ctx, ticker, series.Points); err != nil {
		// Persisting is best effort; the comparison still has its data.
		s.logger.Warn("persist prices failed",
			zap.String("ticker", ticker),
			zap.Error(err))
	}
	return series, nil
}

// loadBenchmark resolves the benchmark ticker and its daily returns.
// Failures downgrade the comparison instead of aborting it.
func (s *Service) loadBenchmark(ctx context.Context, req Request, period string, start, end time.Time) (string, []float64) {
	benchmark := req.Benchmark
	if benchmark == "" {
		benchmark = s.cfg.Benchmark
	}
	if benchmark == "" || strings.EqualFold(benchmark, "none") {
		return "", nil
	}
	benchmark = utils.NormalizeTicker(benchmark)

	series, err := s.loadSeries(ctx, benchmark, period, start, end)
	if err != nil {
		s.logger.Warn("benchmark unavailable, computing absolute metrics only",
			zap.String("benchmark", benchmark),
			zap.Error(err))
		return "", nil
	}

	returns, err := metrics.Returns(series.Closes())
	if err != nil {
		s.logger.Warn("benchmark returns rejected, computing absolute metrics only",
			zap.String("benchmark", benchmark),
			zap.Error(err))
		return "", nil
	}
	return benchmark, returns
}

// normalizeTickers validates the request and returns the normalized base and
// deduplicated comparison tickers.
func normalizeTickers(req Request) (string, []string, error) {
	base := utils.NormalizeTicker(req.BaseTicker)
	if base == "" {
		return "", nil, fmt.Errorf("%w: empty base ticker", ErrInvalidRequest)
	}

	seen := map[string]bool{base: true}
	comparisons := make([]string, 0, len(req.ComparisonTickers))
	for _, t := range req.ComparisonTickers {
		ticker := utils.NormalizeTicker(t)
		if ticker == "" {
			return "", nil, fmt.Errorf("%w: empty comparison ticker", ErrInvalidRequest)
		}
		if seen[ticker] {
			continue
		}
		seen[ticker] = true
		comparisons = append(comparisons, ticker)
	}
	return base, comparisons, nil
}
