// Package utils provides common utility functions for etfcompare.
package utils

import (
	"fmt"
	"math"
	"strings"
)

// FormatPct renders a fractional value as a percentage with two decimals,
// e.g. 0.089 → "8.90%".
func FormatPct(fraction float64) string {
	return fmt.Sprintf("%.2f%%", fraction*100)
}

// FormatSignedPct renders a fractional value as a signed percentage,
// e.g. 0.0245 → "+2.45%", -0.0123 → "-1.23%".
func FormatSignedPct(fraction float64) string {
	if fraction >= 0 {
		return fmt.Sprintf("+%.2f%%", fraction*100)
	}
	return fmt.Sprintf("%.2f%%", fraction*100)
}

// FormatRatio renders a dimensionless ratio (Sharpe, beta, ...) with four
// decimals.
func FormatRatio(v float64) string {
	return fmt.Sprintf("%.4f", v)
}

// FormatUSDCompact formats a dollar amount in compact notation,
// e.g. 1234500000 → "$1.23B", 48200000 → "$48.2M".
func FormatUSDCompact(amount float64) string {
	negative := amount < 0
	amount = math.Abs(amount)

	prefix := "$"
	if negative {
		prefix = "-$"
	}

	switch {
	case amount >= 1e12:
		return prefix + trimZeros(fmt.Sprintf("%.2f", amount/1e12)) + "T"
	case amount >= 1e9:
		return prefix + trimZeros(fmt.Sprintf("%.2f", amount/1e9)) + "B"
	case amount >= 1e6:
		return prefix + trimZeros(fmt.Sprintf("%.2f", amount/1e6)) + "M"
	case amount >= 1e3:
		return prefix + trimZeros(fmt.Sprintf("%.2f", amount/1e3)) + "K"
	default:
		return fmt.Sprintf("%s%.2f", prefix, amount)
	}
}

// FormatVolume formats a share count compactly, e.g. 1500000 → "1.50M".
func FormatVolume(volume int64) string {
	v := float64(volume)
	switch {
	case v >= 1e9:
		return fmt.Sprintf("%.2fB", v/1e9)
	case v >= 1e6:
		return fmt.Sprintf("%.2fM", v/1e6)
	case v >= 1e3:
		return fmt.Sprintf("%.2fK", v/1e3)
	default:
		return fmt.Sprintf("%d", volume)
	}
}

// NormalizeTicker uppercases and trims a user-supplied ticker symbol.
func NormalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

// trimZeros drops trailing zeros (and a dangling dot) from a fixed-point
// string.
func trimZeros(s string) string {
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}
