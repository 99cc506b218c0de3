package compare

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/etfcompare/etfcompare/internal/config"
	"github.com/etfcompare/etfcompare/internal/datasource"
	"github.com/etfcompare/etfcompare/internal/store"
	"github.com/etfcompare/etfcompare/pkg/models"
)

// ════════════════════════════════════════════════════════════════════
// Test fixtures
// ════════════════════════════════════════════════════════════════════

var fixedNow = time.Date(2024, 6, 3, 15, 0, 0, 0, time.UTC)

// fakeSource is an in-memory MarketData with per-ticker canned series,
// injectable errors, and call counting.
type fakeSource struct {
	mu     sync.Mutex
	series map[string]*models.PriceSeries
	errs   map[string]error
	calls  map[string]int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		series: make(map[string]*models.PriceSeries),
		errs:   make(map[string]error),
		calls:  make(map[string]int),
	}
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) GetDailyHistory(_ context.Context, ticker string, _, _ time.Time) (*models.PriceSeries, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[ticker]++
	if err, ok := f.errs[ticker]; ok {
		return nil, err
	}
	s, ok := f.series[ticker]
	if !ok {
		return nil, datasource.ErrTickerNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSource) callCount(ticker string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[ticker]
}

// seriesOf builds a daily series starting 2024-01-02, well inside the
// 1y window around fixedNow.
func seriesOf(ticker string, prices ...float64) *models.PriceSeries {
	base := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	points := make([]models.PricePoint, len(prices))
	for i, p := range prices {
		points[i] = models.PricePoint{Date: base.AddDate(0, 0, i), AdjClose: p}
	}
	return &models.PriceSeries{Ticker: ticker, Points: points}
}

func newTestService(src datasource.MarketData, st store.PriceStore) *Service {
	svc := New(src, st, zap.NewNop(), config.AnalysisConfig{
		Benchmark:         "SPY",
		RiskFreeRate:      0.02,
		DefaultPeriod:     "1y",
		ConcurrentFetches: 2,
	})
	svc.Now = func() time.Time { return fixedNow }
	return svc
}

// ════════════════════════════════════════════════════════════════════
// Compare
// ════════════════════════════════════════════════════════════════════

func TestCompareBasic(t *testing.T) {
	src := newFakeSource()
	src.series["VTI"] = seriesOf("VTI", 100, 101, 99, 102, 103)
	src.series["QQQ"] = seriesOf("QQQ", 300, 305, 295, 310, 312)
	src.series["VOO"] = seriesOf("VOO", 400, 401, 399, 403, 404)
	src.series["SPY"] = seriesOf("SPY", 500, 502, 498, 505, 507)

	svc := newTestService(src, store.NewMemory())
	result, err := svc.Compare(context.Background(), Request{
		BaseTicker:        "vti",
		ComparisonTickers: []string{"qqq", "voo"},
	})
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}

	if result.BaseTicker != "VTI" {
		t.Errorf("BaseTicker = %q, want VTI", result.BaseTicker)
	}
	if result.Period != "1y" {
		t.Errorf("Period = %q, want configured default 1y", result.Period)
	}
	if result.Benchmark != "SPY" {
		t.Errorf("Benchmark = %q, want SPY", result.Benchmark)
	}
	if len(result.Metrics) != 3 {
		t.Fatalf("expected metrics for 3 instruments, got %d", len(result.Metrics))
	}
	for _, ticker := range []string{"VTI", "QQQ", "VOO"} {
		m := result.Metrics[ticker]
		if m == nil {
			t.Fatalf("missing metrics for %s", ticker)
		}
		if !m.HasBenchmark() {
			t.Errorf("%s: expected benchmark-relative fields", ticker)
		}
		if m.Period != "1y" {
			t.Errorf("%s: Period = %q, want 1y", ticker, m.Period)
		}
	}

	wantStart := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	if !result.StartDate.Equal(wantStart) {
		t.Errorf("StartDate = %v, want %v", result.StartDate, wantStart)
	}
	if !result.EndDate.Equal(wantStart.AddDate(0, 0, 4)) {
		t.Errorf("EndDate = %v, want %v", result.EndDate, wantStart.AddDate(0, 0, 4))
	}
	if !result.GeneratedAt.Equal(fixedNow) {
		t.Errorf("GeneratedAt = %v, want %v", result.GeneratedAt, fixedNow)
	}

	want := []string{"VTI", "QQQ", "VOO"}
	got := result.Tickers()
	if len(got) != len(want) {
		t.Fatalf("Tickers() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Tickers()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestCompareUsesStoredPrices(t *testing.T) {
	src := newFakeSource()
	st := store.NewMemory()

	seeded := seriesOf("VTI", 100, 101, 99, 102, 103)
	if err := st.SavePrices(context.Background(), "VTI", seeded.Points); err != nil {
		t.Fatalf("SavePrices failed: %v", err)
	}

	svc := newTestService(src, st)
	result, err := svc.Compare(context.Background(), Request{
		BaseTicker: "VTI",
		Benchmark:  "none",
	})
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}
	if src.callCount("VTI") != 0 {
		t.Errorf("expected no upstream fetch for stored prices, got %d", src.callCount("VTI"))
	}
	if len(result.Metrics) != 1 {
		t.Errorf("expected 1 instrument, got %d", len(result.Metrics))
	}
}

func TestCompareSavesFetchedPrices(t *testing.T) {
	src := newFakeSource()
	src.series["VTI"] = seriesOf("VTI", 100, 101, 99, 102, 103)
	st := store.NewMemory()

	svc := newTestService(src, st)
	if _, err := svc.Compare(context.Background(), Request{BaseTicker: "VTI", Benchmark: "none"}); err != nil {
		t.Fatalf("Compare failed: %v", err)
	}

	points, err := st.GetPrices(context.Background(), "VTI",
		time.Date(2023, 6, 3, 0, 0, 0, 0, time.UTC), fixedNow)
	if err != nil {
		t.Fatalf("GetPrices failed: %v", err)
	}
	if len(points) != 5 {
		t.Errorf("expected 5 persisted points, got %d", len(points))
	}
}

func TestCompareBaseFailure(t *testing.T) {
	src := newFakeSource()
	src.errs["VTI"] = datasource.ErrTickerNotFound
	src.series["SPY"] = seriesOf("SPY", 500, 502, 498)

	svc := newTestService(src, store.NewMemory())
	_, err := svc.Compare(context.Background(), Request{BaseTicker: "VTI"})
	if err == nil {
		t.Fatal("expected error when the base ticker fails")
	}
	if !errors.Is(err, datasource.ErrTickerNotFound) {
		t.Errorf("error should wrap the source failure, got %v", err)
	}
}

func TestCompareDropsFailingComparison(t *testing.T) {
	src := newFakeSource()
	src.series["VTI"] = seriesOf("VTI", 100, 101, 99, 102, 103)
	src.series["VOO"] = seriesOf("VOO", 400, 401, 399, 403, 404)
	src.errs["QQQ"] = errors.New("upstream exploded")
	src.series["SPY"] = seriesOf("SPY", 500, 502, 498, 505, 507)

	svc := newTestService(src, store.NewMemory())
	result, err := svc.Compare(context.Background(), Request{
		BaseTicker:        "VTI",
		ComparisonTickers: []string{"QQQ", "VOO"},
	})
	if err != nil {
		t.Fatalf("comparison failures must not abort the run: %v", err)
	}

	if _, ok := result.Metrics["QQQ"]; ok {
		t.Error("failing comparison should be dropped from metrics")
	}
	if _, ok := result.Metrics["VOO"]; !ok {
		t.Error("healthy comparison should survive")
	}

	// The dropped ticker stays out of the ordered listing.
	got := result.Tickers()
	if len(got) != 2 || got[0] != "VTI" || got[1] != "VOO" {
		t.Errorf("Tickers() = %v, want [VTI VOO]", got)
	}
}

func TestCompareBenchmarkUnavailable(t *testing.T) {
	src := newFakeSource()
	src.series["VTI"] = seriesOf("VTI", 100, 101, 99, 102, 103)
	src.errs["SPY"] = datasource.ErrNoData

	svc := newTestService(src, store.NewMemory())
	result, err := svc.Compare(context.Background(), Request{BaseTicker: "VTI"})
	if err != nil {
		t.Fatalf("a missing benchmark must not abort the run: %v", err)
	}
	if result.Benchmark != "" {
		t.Errorf("Benchmark = %q, want empty after failure", result.Benchmark)
	}
	if result.Metrics["VTI"].HasBenchmark() {
		t.Error("relative fields should be absent without a benchmark")
	}
}

func TestCompareBenchmarkDisabled(t *testing.T) {
	src := newFakeSource()
	src.series["VTI"] = seriesOf("VTI", 100, 101, 99, 102, 103)
	src.series["SPY"] = seriesOf("SPY", 500, 502, 498, 505, 507)

	svc := newTestService(src, store.NewMemory())
	result, err := svc.Compare(context.Background(), Request{BaseTicker: "VTI", Benchmark: "none"})
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}
	if result.Benchmark != "" {
		t.Errorf("Benchmark = %q, want empty when disabled", result.Benchmark)
	}
	if src.callCount("SPY") != 0 {
		t.Errorf("benchmark should not be fetched when disabled, got %d calls", src.callCount("SPY"))
	}
}

func TestCompareBenchmarkLengthMismatch(t *testing.T) {
	src := newFakeSource()
	src.series["VTI"] = seriesOf("VTI", 100, 101, 99, 102, 103)
	src.series["SPY"] = seriesOf("SPY", 500, 502, 498) // fewer points

	svc := newTestService(src, store.NewMemory())
	result, err := svc.Compare(context.Background(), Request{BaseTicker: "VTI"})
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}
	// The benchmark loaded, but its return series cannot be aligned.
	if result.Benchmark != "SPY" {
		t.Errorf("Benchmark = %q, want SPY", result.Benchmark)
	}
	if result.Metrics["VTI"].HasBenchmark() {
		t.Error("mismatched benchmark must leave relative fields absent")
	}
}

func TestCompareInvalidRequests(t *testing.T) {
	src := newFakeSource()
	svc := newTestService(src, store.NewMemory())

	tests := []Request{
		{BaseTicker: ""},
		{BaseTicker: "VTI", ComparisonTickers: []string{""}},
		{BaseTicker: "VTI", Period: "2w"},
	}
	for _, req := range tests {
		if _, err := svc.Compare(context.Background(), req); !errors.Is(err, ErrInvalidRequest) {
			t.Errorf("Compare(%+v): expected ErrInvalidRequest, got %v", req, err)
		}
	}
}

func TestCompareDeduplicatesTickers(t *testing.T) {
	src := newFakeSource()
	src.series["VTI"] = seriesOf("VTI", 100, 101, 99, 102, 103)
	src.series["QQQ"] = seriesOf("QQQ", 300, 305, 295, 310, 312)

	svc := newTestService(src, store.NewMemory())
	result, err := svc.Compare(context.Background(), Request{
		BaseTicker:        "VTI",
		ComparisonTickers: []string{"vti", "QQQ", "qqq"},
		Benchmark:         "none",
	})
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}
	if len(result.ComparisonTickers) != 1 || result.ComparisonTickers[0] != "QQQ" {
		t.Errorf("ComparisonTickers = %v, want [QQQ]", result.ComparisonTickers)
	}
	if len(result.Metrics) != 2 {
		t.Errorf("expected 2 instruments after dedupe, got %d", len(result.Metrics))
	}
}

func TestCompareRiskFreeOverride(t *testing.T) {
	src := newFakeSource()
	src.series["VTI"] = seriesOf("VTI", 100, 101, 99, 102, 103)

	svc := newTestService(src, store.NewMemory())

	defaultRun, err := svc.Compare(context.Background(), Request{BaseTicker: "VTI", Benchmark: "none"})
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}

	zero := 0.0
	overrideRun, err := svc.Compare(context.Background(), Request{
		BaseTicker: "VTI", Benchmark: "none", RiskFreeRate: &zero,
	})
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}

	if defaultRun.Metrics["VTI"].SharpeRatio == overrideRun.Metrics["VTI"].SharpeRatio {
		t.Error("risk-free override should change the Sharpe ratio")
	}
}

// ════════════════════════════════════════════════════════════════════
// FetchHistory
// ════════════════════════════════════════════════════════════════════

func TestFetchHistory(t *testing.T) {
	src := newFakeSource()
	src.series["VTI"] = seriesOf("VTI", 100, 101, 99)
	st := store.NewMemory()

	svc := newTestService(src, st)
	series, err := svc.FetchHistory(context.Background(), "vti", "3mo")
	if err != nil {
		t.Fatalf("FetchHistory failed: %v", err)
	}
	if series.Ticker != "VTI" || series.Period != "3mo" {
		t.Errorf("unexpected series header: %s %s", series.Ticker, series.Period)
	}
	if series.Len() != 3 {
		t.Errorf("expected 3 points, got %d", series.Len())
	}

	// A second fetch hits the store.
	if _, err := svc.FetchHistory(context.Background(), "VTI", "3mo"); err != nil {
		t.Fatalf("FetchHistory failed: %v", err)
	}
	if src.callCount("VTI") != 1 {
		t.Errorf("expected 1 upstream call, got %d", src.callCount("VTI"))
	}
}

func TestFetchHistoryValidation(t *testing.T) {
	svc := newTestService(newFakeSource(), store.NewMemory())

	if _, err := svc.FetchHistory(context.Background(), "", "1y"); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("empty ticker: expected ErrInvalidRequest, got %v", err)
	}
	if _, err := svc.FetchHistory(context.Background(), "VTI", "2w"); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("bad period: expected ErrInvalidRequest, got %v", err)
	}
}
