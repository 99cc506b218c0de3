// Package models defines the shared value types exchanged between the
// data sources, the price store, the metrics engine, and the report and
// API layers.
package models

import "time"

// PricePoint is a single daily observation of an instrument's price history.
type PricePoint struct {
	Date     time.Time `json:"date"`
	AdjClose float64   `json:"adj_close"`
	Volume   int64     `json:"volume,omitempty"`
}

// PriceSeries is the ordered daily price history of one instrument.
// Points are in ascending date order with no duplicate dates; adjusted
// closes are strictly positive. Producers (data sources, the store) are
// responsible for those invariants; consumers treat the series read-only.
type PriceSeries struct {
	Ticker string       `json:"ticker"`
	Period string       `json:"period,omitempty"` // label such as "1y" or "252d"
	Points []PricePoint `json:"points"`
}

// Len returns the number of observations in the series.
func (s *PriceSeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Points)
}

// Closes returns the adjusted close prices in date order.
func (s *PriceSeries) Closes() []float64 {
	if s == nil {
		return nil
	}
	closes := make([]float64, len(s.Points))
	for i, p := range s.Points {
		closes[i] = p.AdjClose
	}
	return closes
}

// Start returns the date of the first observation, or the zero time when
// the series is empty.
func (s *PriceSeries) Start() time.Time {
	if s.Len() == 0 {
		return time.Time{}
	}
	return s.Points[0].Date
}

// End returns the date of the last observation, or the zero time when the
// series is empty.
func (s *PriceSeries) End() time.Time {
	if s.Len() == 0 {
		return time.Time{}
	}
	return s.Points[len(s.Points)-1].Date
}
