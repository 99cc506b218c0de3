// Package api — configuration endpoint.
package api

import (
	"net/http"

	"github.com/etfcompare/etfcompare/pkg/utils"
)

// ConfigResponse is the JSON payload returned by GET /api/v1/config. It
// exposes the analysis defaults a client needs to build requests; paths
// and server internals stay private.
type ConfigResponse struct {
	Provider          string   `json:"provider"`
	Benchmark         string   `json:"benchmark"`
	RiskFreeRate      float64  `json:"risk_free_rate"`
	DefaultPeriod     string   `json:"default_period"`
	ValidPeriods      []string `json:"valid_periods"`
	ConcurrentFetches int      `json:"concurrent_fetches"`
}

// handleGetConfig returns the running analysis configuration.
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: ConfigResponse{
			Provider:          s.cfg.MarketData.Provider,
			Benchmark:         s.cfg.Analysis.Benchmark,
			RiskFreeRate:      s.cfg.Analysis.RiskFreeRate,
			DefaultPeriod:     s.cfg.Analysis.DefaultPeriod,
			ValidPeriods:      utils.ValidPeriods,
			ConcurrentFetches: s.cfg.Analysis.ConcurrentFetches,
		},
	})
}
