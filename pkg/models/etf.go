package models

import "time"

// ETF holds descriptive metadata for one exchange-traded fund. It is
// catalog decoration for reports and the API; none of these fields feed
// the metrics computation.
type ETF struct {
	Ticker        string    `json:"ticker"`
	Name          string    `json:"name"`
	Issuer        string    `json:"issuer,omitempty"`
	ExpenseRatio  float64   `json:"expense_ratio,omitempty"` // annual TER as a fraction, e.g. 0.0009
	InceptionDate time.Time `json:"inception_date,omitempty"`
	Category      string    `json:"category,omitempty"`
	AUM           float64   `json:"aum,omitempty"` // assets under management, USD
	Description   string    `json:"description,omitempty"`
}
