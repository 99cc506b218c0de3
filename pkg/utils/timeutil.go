package utils

import (
	"fmt"
	"time"
)

// ValidPeriods lists the lookback windows the comparison tooling accepts,
// in ascending order.
var ValidPeriods = []string{"1mo", "3mo", "6mo", "1y", "3y", "5y", "max"}

// maxPeriodStart anchors the "max" period. Daily history for US-listed ETFs
// never predates 1970, so this start date means "everything the source has".
var maxPeriodStart = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)

// IsValidPeriod reports whether p is one of the supported period labels.
func IsValidPeriod(p string) bool {
	for _, v := range ValidPeriods {
		if p == v {
			return true
		}
	}
	return false
}

// PeriodStart resolves a period label to the start date of the window
// ending at now.
func PeriodStart(period string, now time.Time) (time.Time, error) {
	switch period {
	case "1mo":
		return now.AddDate(0, -1, 0), nil
	case "3mo":
		return now.AddDate(0, -3, 0), nil
	case "6mo":
		return now.AddDate(0, -6, 0), nil
	case "1y":
		return now.AddDate(-1, 0, 0), nil
	case "3y":
		return now.AddDate(-3, 0, 0), nil
	case "5y":
		return now.AddDate(-5, 0, 0), nil
	case "max":
		return maxPeriodStart, nil
	default:
		return time.Time{}, fmt.Errorf("unknown period %q (valid: %v)", period, ValidPeriods)
	}
}

// ParseDate parses a calendar date in "2006-01-02" format as UTC midnight.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", s, time.UTC)
}

// FormatDate formats a time as a "2006-01-02" calendar date.
func FormatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

// DateOnly truncates a time to UTC midnight of the same calendar day.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
