// Package api provides the HTTP REST API server for etfcompare.
//
// It exposes endpoints for the ETF catalog, price history, fund news,
// performance comparisons, and WebSocket streaming of comparison events.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/etfcompare/etfcompare/internal/compare"
	"github.com/etfcompare/etfcompare/internal/config"
	"github.com/etfcompare/etfcompare/internal/datasource"
	"github.com/etfcompare/etfcompare/internal/store"
	"github.com/etfcompare/etfcompare/pkg/utils"
)

// Server is the HTTP API server.
type Server struct {
	router chi.Router
	cfg    *config.Config
	logger *zap.Logger
	svc    *compare.Service
	news   *datasource.News
	store  store.PriceStore
	wsHub  *WSHub
}

// NewServer creates a configured API server with all routes and middleware.
// The comparison service, news source, and price store are injected so the
// server shares them with the CLI commands.
func NewServer(cfg *config.Config, logger *zap.Logger, svc *compare.Service, news *datasource.News, st store.PriceStore) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	srv := &Server{
		cfg:    cfg,
		logger: logger,
		svc:    svc,
		news:   news,
		store:  st,
		wsHub:  NewWSHub(logger),
	}
	srv.router = srv.buildRouter()
	return srv
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// Hub returns the WebSocket hub for testing.
func (s *Server) Hub() *WSHub {
	return s.wsHub
}

// ListenAndServe starts the HTTP server with graceful shutdown.
func (s *Server) ListenAndServe(addr string) error {
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go s.wsHub.Run()

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		s.logger.Info("api server listening", zap.String("addr", addr))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-done
	s.logger.Info("shutting down api server")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	return httpSrv.Shutdown(ctx)
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	origins := []string{"*"}
	if len(s.cfg.Server.CORSOrigins) > 0 {
		origins = s.cfg.Server.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", s.handleHealth)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		// Catalog
		r.Get("/etfs", s.handleListETFs)
		r.Get("/etfs/{ticker}", s.handleGetETF)

		// Market data
		r.Get("/etfs/{ticker}/history", s.handleHistory)
		r.Get("/etfs/{ticker}/news", s.handleNews)

		// Comparison
		r.Post("/compare", s.handleCompare)

		// Configuration
		r.Get("/config", s.handleGetConfig)

		// WebSocket
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// requestLogger logs one structured line per request.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("took", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}

// ============================================================
// Request / Response types
// ============================================================

// APIResponse is the standard JSON envelope.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// CompareRequest is the body for POST /api/v1/compare.
type CompareRequest struct {
	BaseTicker        string   `json:"base_ticker"`
	ComparisonTickers []string `json:"comparison_tickers,omitempty"`
	Period            string   `json:"period,omitempty"`
	Benchmark         string   `json:"benchmark,omitempty"`
	RiskFreeRate      *float64 `json:"risk_free_rate,omitempty"`
}

// ============================================================
// Handlers
// ============================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"status":   "ok",
			"service":  "etfcompare",
			"time_utc": time.Now().UTC().Format(time.RFC3339),
		},
	})
}

func (s *Server) handleListETFs(w http.ResponseWriter, r *http.Request) {
	etfs, err := s.store.ListETFs(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: etfs})
}

func (s *Server) handleGetETF(w http.ResponseWriter, r *http.Request) {
	ticker := utils.NormalizeTicker(chi.URLParam(r, "ticker"))
	if ticker == "" {
		writeError(w, http.StatusBadRequest, "ticker is required")
		return
	}

	etf, err := s.store.GetETF(r.Context(), ticker)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "unknown ETF: "+ticker)
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: etf})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	ticker := chi.URLParam(r, "ticker")
	period := r.URL.Query().Get("period")

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	series, err := s.svc.FetchHistory(ctx, ticker, period)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: series})
}

func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	ticker := utils.NormalizeTicker(chi.URLParam(r, "ticker"))
	if ticker == "" {
		writeError(w, http.StatusBadRequest, "ticker is required")
		return
	}
	if s.news == nil {
		writeError(w, http.StatusServiceUnavailable, "news source not configured")
		return
	}

	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	if limit > 50 {
		limit = 50
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	articles, err := s.news.GetTickerNews(ctx, ticker, limit)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: articles})
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	var req CompareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.BaseTicker == "" {
		writeError(w, http.StatusBadRequest, "base_ticker is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	result, err := s.svc.Compare(ctx, compare.Request{
		BaseTicker:        req.BaseTicker,
		ComparisonTickers: req.ComparisonTickers,
		Period:            req.Period,
		Benchmark:         req.Benchmark,
		RiskFreeRate:      req.RiskFreeRate,
	})
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	// Broadcast to WebSocket clients
	s.wsHub.Broadcast(WSMessage{
		Type: "comparison_complete",
		Data: map[string]interface{}{
			"base_ticker": result.BaseTicker,
			"period":      result.Period,
			"instruments": len(result.Metrics),
		},
	})

	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: result})
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, compare.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, datasource.ErrTickerNotFound), errors.Is(err, datasource.ErrNoData):
		return http.StatusNotFound
	case errors.Is(err, datasource.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// ============================================================
// JSON helpers
// ============================================================

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   msg,
	})
}
