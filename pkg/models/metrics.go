package models

import "time"

// PerformanceMetrics is the bundle of return and risk statistics computed
// for one instrument over one holding period. The benchmark-relative fields
// are pointers: nil means the statistic was not computed because no
// benchmark return series of matching length was supplied, which is
// different from a computed value of zero.
type PerformanceMetrics struct {
	Ticker           string  `json:"ticker"`
	Period           string  `json:"period"`
	TotalReturn      float64 `json:"total_return"`
	AnnualizedReturn float64 `json:"annualized_return"`
	Volatility       float64 `json:"volatility"`
	SharpeRatio      float64 `json:"sharpe_ratio"`
	SortinoRatio     float64 `json:"sortino_ratio"`
	MaxDrawdown      float64 `json:"max_drawdown"`

	Beta             *float64 `json:"beta,omitempty"`
	Alpha            *float64 `json:"alpha,omitempty"`
	RSquared         *float64 `json:"r_squared,omitempty"`
	TrackingError    *float64 `json:"tracking_error,omitempty"`
	InformationRatio *float64 `json:"information_ratio,omitempty"`
}

// HasBenchmark reports whether the benchmark-relative statistics were
// computed. The five fields are always set together.
func (m *PerformanceMetrics) HasBenchmark() bool {
	return m != nil && m.Beta != nil
}

// ComparisonResult is the outcome of comparing one base instrument against
// a set of comparison instruments over a common period.
type ComparisonResult struct {
	BaseTicker        string                         `json:"base_ticker"`
	ComparisonTickers []string                       `json:"comparison_tickers"`
	Benchmark         string                         `json:"benchmark,omitempty"`
	Period            string                         `json:"period"`
	StartDate         time.Time                      `json:"start_date"`
	EndDate           time.Time                      `json:"end_date"`
	Metrics           map[string]*PerformanceMetrics `json:"metrics"`
	GeneratedAt       time.Time                      `json:"generated_at"`
}

// Tickers returns the base ticker followed by the comparison tickers that
// actually have metrics, preserving request order. Instruments dropped
// during the comparison (failed fetches) are skipped.
func (r *ComparisonResult) Tickers() []string {
	if r == nil {
		return nil
	}
	out := make([]string, 0, 1+len(r.ComparisonTickers))
	if _, ok := r.Metrics[r.BaseTicker]; ok {
		out = append(out, r.BaseTicker)
	}
	for _, t := range r.ComparisonTickers {
		if t == r.BaseTicker {
			continue
		}
		if _, ok := r.Metrics[t]; ok {
			out = append(out, t)
		}
	}
	return out
}
