// Package metrics implements the performance-metrics core: a returns
// calculator and a risk/return engine that turn a daily price history into
// return, risk, and benchmark-relative statistics. Everything here is pure
// computation with no I/O and no shared state, so it is safe to call
// concurrently over independent inputs.
package metrics

import (
	"errors"
	"fmt"
	"math"
)

// TradingDaysPerYear is the annualization convention: daily means scale by
// 252, daily volatilities by sqrt(252).
const TradingDaysPerYear = 252

// ErrInvalidInput marks a price series the calculators refuse to work on:
// too short, non-positive or non-finite prices, or out-of-order dates.
// Degenerate statistics (zero volatility, zero benchmark variance) are not
// input errors; they resolve to documented fallback values instead.
var ErrInvalidInput = errors.New("invalid input series")

// Returns converts an ordered sequence of strictly positive prices into the
// sequence of simple period returns r[i] = p[i+1]/p[i] - 1, of length
// len(prices)-1, preserving chronological order.
func Returns(prices []float64) ([]float64, error) {
	if len(prices) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 prices, got %d", ErrInvalidInput, len(prices))
	}
	for i, p := range prices {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return nil, fmt.Errorf("%w: price[%d] is not finite", ErrInvalidInput, i)
		}
		if p <= 0 {
			return nil, fmt.Errorf("%w: price[%d] = %v is not positive", ErrInvalidInput, i, p)
		}
	}

	returns := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		returns[i-1] = prices[i]/prices[i-1] - 1
	}
	return returns, nil
}
