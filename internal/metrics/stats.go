package metrics

import "math"

// All statistical moments in this package are population moments (divide by
// n, not n-1). Mixing conventions would skew beta away from 1 for an
// instrument regressed on itself.

func mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range data {
		sum += v
	}
	return sum / float64(len(data))
}

func variance(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	m := mean(data)
	sumSq := 0.0
	for _, v := range data {
		d := v - m
		sumSq += d * d
	}
	return sumSq / float64(len(data))
}

func stdDev(data []float64) float64 {
	return math.Sqrt(variance(data))
}

// covariance assumes x and y have equal, nonzero length; callers guard.
func covariance(x, y []float64) float64 {
	if len(x) == 0 || len(x) != len(y) {
		return 0
	}
	mx, my := mean(x), mean(y)
	sum := 0.0
	for i := range x {
		sum += (x[i] - mx) * (y[i] - my)
	}
	return sum / float64(len(x))
}

// correlation returns the Pearson correlation of x and y, or 0 when either
// side has zero variance (the degenerate-statistic fallback, where the
// textbook value is undefined).
func correlation(x, y []float64) float64 {
	sx, sy := stdDev(x), stdDev(y)
	if sx == 0 || sy == 0 {
		return 0
	}
	return covariance(x, y) / (sx * sy)
}
