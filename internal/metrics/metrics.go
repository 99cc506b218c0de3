package metrics

import (
	"fmt"
	"math"

	"github.com/etfcompare/etfcompare/pkg/models"
)

// ════════════════════════════════════════════════════════════════════
// Risk/Return Metrics Engine
// ════════════════════════════════════════════════════════════════════

// ComputeMetrics derives the full performance record for one instrument
// from its daily price series. riskFreeRate is an annualized simple rate
// (0.02 for 2%); the daily rate is riskFreeRate/252.
//
// benchmarkReturns is optional: pass nil when there is no benchmark. When
// present it must have the same length as the return series derived from
// the prices; on a mismatch the benchmark-relative fields are left unset
// rather than failing, exactly as if no benchmark had been supplied.
//
// The computation is pure: identical inputs always produce identical
// output, and nothing is retained between calls.
func ComputeMetrics(series *models.PriceSeries, riskFreeRate float64, benchmarkReturns []float64) (*models.PerformanceMetrics, error) {
	if series.Len() < 2 {
		return nil, fmt.Errorf("%w: need at least 2 observations, got %d", ErrInvalidInput, series.Len())
	}
	for i := 1; i < len(series.Points); i++ {
		if !series.Points[i].Date.After(series.Points[i-1].Date) {
			return nil, fmt.Errorf("%w: dates not strictly increasing at index %d", ErrInvalidInput, i)
		}
	}

	closes := series.Closes()
	returns, err := Returns(closes)
	if err != nil {
		return nil, err
	}

	totalReturn := closes[len(closes)-1]/closes[0] - 1
	holdingPeriod := len(returns)
	annualizedReturn := math.Pow(1+totalReturn, float64(TradingDaysPerYear)/float64(holdingPeriod)) - 1

	volatility := stdDev(returns) * math.Sqrt(TradingDaysPerYear)

	dailyRf := riskFreeRate / TradingDaysPerYear
	excess := make([]float64, len(returns))
	downside := make([]float64, len(returns))
	for i, r := range returns {
		excess[i] = r - dailyRf
		downside[i] = math.Min(r, 0) // only negative returns count as downside
	}

	sharpe := 0.0
	if volatility != 0 {
		sharpe = mean(excess) * TradingDaysPerYear / volatility
	}

	downsideVol := stdDev(downside) * math.Sqrt(TradingDaysPerYear)
	sortino := 0.0
	if downsideVol != 0 {
		sortino = mean(excess) * TradingDaysPerYear / downsideVol
	}

	period := series.Period
	if period == "" {
		period = fmt.Sprintf("%dd", holdingPeriod)
	}

	m := &models.PerformanceMetrics{
		Ticker:           series.Ticker,
		Period:           period,
		TotalReturn:      totalReturn,
		AnnualizedReturn: annualizedReturn,
		Volatility:       volatility,
		SharpeRatio:      sharpe,
		SortinoRatio:     sortino,
		MaxDrawdown:      maxDrawdown(returns),
	}

	if len(benchmarkReturns) == len(returns) {
		computeBenchmarkStats(m, returns, benchmarkReturns, riskFreeRate, annualizedReturn)
	}

	return m, nil
}

// ────────────────────────────────────────────────────────────────────
// Maximum Drawdown
// ────────────────────────────────────────────────────────────────────

// maxDrawdown is the largest peak-to-trough decline of the cumulative
// growth-factor curve. The peak starts at 1.0 (the growth factor before the
// first return), so a series that opens with a loss records that loss as
// drawdown. Always >= 0; 0 when the curve never dips below a prior peak.
func maxDrawdown(returns []float64) float64 {
	cum, peak, maxDD := 1.0, 1.0, 0.0
	for _, r := range returns {
		cum *= 1 + r
		if cum > peak {
			peak = cum
		}
		if dd := (peak - cum) / peak; dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

// ────────────────────────────────────────────────────────────────────
// Benchmark-relative statistics
// ────────────────────────────────────────────────────────────────────

// computeBenchmarkStats fills the five benchmark-relative fields. Callers
// guarantee bench has the same length as returns. Zero benchmark variance
// falls back to beta 1 (the instrument is taken to move one-for-one with a
// flat benchmark); zero tracking error falls back to information ratio 0.
func computeBenchmarkStats(m *models.PerformanceMetrics, returns, bench []float64, riskFreeRate, annualizedReturn float64) {
	beta := 1.0
	if benchVar := variance(bench); benchVar != 0 {
		beta = covariance(returns, bench) / benchVar
	}

	annualizedBench := mean(bench) * TradingDaysPerYear
	alpha := annualizedReturn - (riskFreeRate + beta*(annualizedBench-riskFreeRate))

	corr := correlation(returns, bench)
	rSquared := corr * corr

	diff := make([]float64, len(returns))
	for i := range returns {
		diff[i] = returns[i] - bench[i]
	}
	trackingError := stdDev(diff) * math.Sqrt(TradingDaysPerYear)

	infoRatio := 0.0
	if trackingError != 0 {
		infoRatio = (annualizedReturn - annualizedBench) / trackingError
	}

	m.Beta = &beta
	m.Alpha = &alpha
	m.RSquared = &rSquared
	m.TrackingError = &trackingError
	m.InformationRatio = &infoRatio
}
