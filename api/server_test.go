package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/etfcompare/etfcompare/internal/compare"
	"github.com/etfcompare/etfcompare/internal/config"
	"github.com/etfcompare/etfcompare/internal/datasource"
	"github.com/etfcompare/etfcompare/internal/store"
	"github.com/etfcompare/etfcompare/pkg/models"
)

// ════════════════════════════════════════════════════════════════════
// Test Helpers
// ════════════════════════════════════════════════════════════════════

// stubSource serves canned daily histories without touching the network.
type stubSource struct {
	mu     sync.Mutex
	series map[string]*models.PriceSeries
}

func (f *stubSource) Name() string { return "stub" }

func (f *stubSource) GetDailyHistory(_ context.Context, ticker string, _, _ time.Time) (*models.PriceSeries, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.series[ticker]
	if !ok {
		return nil, datasource.ErrTickerNotFound
	}
	cp := *s
	return &cp, nil
}

func stubSeries(ticker string, prices ...float64) *models.PriceSeries {
	base := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	points := make([]models.PricePoint, len(prices))
	for i, p := range prices {
		points[i] = models.PricePoint{Date: base.AddDate(0, 0, i), AdjClose: p}
	}
	return &models.PriceSeries{Ticker: ticker, Points: points}
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.MarketData.Provider = "yahoo"
	cfg.Analysis.Benchmark = "SPY"
	cfg.Analysis.RiskFreeRate = 0.02
	cfg.Analysis.DefaultPeriod = "1y"
	cfg.Analysis.ConcurrentFetches = 2
	return cfg
}

func testServer(t *testing.T) *Server {
	t.Helper()

	src := &stubSource{series: map[string]*models.PriceSeries{
		"VTI": stubSeries("VTI", 100, 101, 99, 102, 103),
		"QQQ": stubSeries("QQQ", 300, 305, 295, 310, 312),
		"SPY": stubSeries("SPY", 500, 502, 498, 505, 507),
	}}

	st := store.NewMemory()
	ctx := context.Background()
	if err := st.SaveETF(ctx, &models.ETF{Ticker: "VTI", Name: "Vanguard Total Stock Market ETF", Issuer: "Vanguard"}); err != nil {
		t.Fatalf("seeding catalog: %v", err)
	}
	if err := st.SaveETF(ctx, &models.ETF{Ticker: "QQQ", Name: "Invesco QQQ Trust", Issuer: "Invesco"}); err != nil {
		t.Fatalf("seeding catalog: %v", err)
	}

	cfg := testConfig()
	svc := compare.New(src, st, zap.NewNop(), cfg.Analysis)
	svc.Now = func() time.Time { return time.Date(2024, 6, 3, 15, 0, 0, 0, time.UTC) }

	return NewServer(cfg, zap.NewNop(), svc, nil, st)
}

func doRequest(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp
}

// ════════════════════════════════════════════════════════════════════
// Health
// ════════════════════════════════════════════════════════════════════

func TestHandleHealth(t *testing.T) {
	srv := testServer(t)
	rec := doRequest(t, srv, "GET", "/health", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rec.Code, http.StatusOK)
	}

	resp := decodeResponse(t, rec)
	if !resp.Success {
		t.Error("expected success=true")
	}
	data, ok := resp.Data.(map[string]interface{})
	if !ok {
		t.Fatal("data should be a map")
	}
	if data["status"] != "ok" {
		t.Errorf("status: got %q", data["status"])
	}
	if data["service"] != "etfcompare" {
		t.Errorf("service: got %q", data["service"])
	}
}

// ════════════════════════════════════════════════════════════════════
// Catalog
// ════════════════════════════════════════════════════════════════════

func TestHandleListETFs(t *testing.T) {
	srv := testServer(t)
	rec := doRequest(t, srv, "GET", "/api/v1/etfs", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	resp := decodeResponse(t, rec)
	etfs, ok := resp.Data.([]interface{})
	if !ok {
		t.Fatal("data should be a list")
	}
	if len(etfs) != 2 {
		t.Errorf("expected 2 ETFs, got %d", len(etfs))
	}
}

func TestHandleGetETF(t *testing.T) {
	srv := testServer(t)

	rec := doRequest(t, srv, "GET", "/api/v1/etfs/vti", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	resp := decodeResponse(t, rec)
	data, ok := resp.Data.(map[string]interface{})
	if !ok {
		t.Fatal("data should be a map")
	}
	if data["ticker"] != "VTI" {
		t.Errorf("ticker: got %q", data["ticker"])
	}
	if data["name"] != "Vanguard Total Stock Market ETF" {
		t.Errorf("name: got %q", data["name"])
	}
}

func TestHandleGetETF_NotFound(t *testing.T) {
	srv := testServer(t)
	rec := doRequest(t, srv, "GET", "/api/v1/etfs/NOPE", "")

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want %d", rec.Code, http.StatusNotFound)
	}
	resp := decodeResponse(t, rec)
	if resp.Success {
		t.Error("expected success=false")
	}
	if resp.Error == "" {
		t.Error("expected non-empty error")
	}
}

// ════════════════════════════════════════════════════════════════════
// History
// ════════════════════════════════════════════════════════════════════

func TestHandleHistory(t *testing.T) {
	srv := testServer(t)
	rec := doRequest(t, srv, "GET", "/api/v1/etfs/VTI/history?period=3mo", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, body: %s", rec.Code, rec.Body.String())
	}
	resp := decodeResponse(t, rec)
	data, ok := resp.Data.(map[string]interface{})
	if !ok {
		t.Fatal("data should be a map")
	}
	if data["ticker"] != "VTI" {
		t.Errorf("ticker: got %q", data["ticker"])
	}
	points, ok := data["points"].([]interface{})
	if !ok {
		t.Fatal("points should be a list")
	}
	if len(points) != 5 {
		t.Errorf("expected 5 points, got %d", len(points))
	}
}

func TestHandleHistory_BadPeriod(t *testing.T) {
	srv := testServer(t)
	rec := doRequest(t, srv, "GET", "/api/v1/etfs/VTI/history?period=2w", "")

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestHandleHistory_UnknownTicker(t *testing.T) {
	srv := testServer(t)
	rec := doRequest(t, srv, "GET", "/api/v1/etfs/NOPE/history", "")

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want %d", rec.Code, http.StatusNotFound)
	}
}

// ════════════════════════════════════════════════════════════════════
// News
// ════════════════════════════════════════════════════════════════════

const newsFixture = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel>
<title>Yahoo Finance</title>
<item><title>VTI hits a new high</title><link>https://example.com/a</link>
<description>Fund news body</description>
<pubDate>Mon, 03 Jun 2024 12:00:00 +0000</pubDate></item>
</channel></rss>`

func TestHandleNews(t *testing.T) {
	feed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(newsFixture))
	}))
	defer feed.Close()

	srv := testServer(t)
	srv.news = datasource.NewNewsWithFeed(feed.URL + "/rss?s=%s")

	rec := doRequest(t, srv, "GET", "/api/v1/etfs/VTI/news?limit=5", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, body: %s", rec.Code, rec.Body.String())
	}
	resp := decodeResponse(t, rec)
	items, ok := resp.Data.([]interface{})
	if !ok {
		t.Fatal("data should be a list")
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 article, got %d", len(items))
	}
	article := items[0].(map[string]interface{})
	if article["title"] != "VTI hits a new high" {
		t.Errorf("title: got %q", article["title"])
	}
}

func TestHandleNews_NotConfigured(t *testing.T) {
	srv := testServer(t)
	rec := doRequest(t, srv, "GET", "/api/v1/etfs/VTI/news", "")

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status: got %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestHandleNews_BadLimit(t *testing.T) {
	srv := testServer(t)
	rec := doRequest(t, srv, "GET", "/api/v1/etfs/VTI/news?limit=zero", "")

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

// ════════════════════════════════════════════════════════════════════
// Compare
// ════════════════════════════════════════════════════════════════════

func TestHandleCompare(t *testing.T) {
	srv := testServer(t)
	body := `{"base_ticker":"vti","comparison_tickers":["qqq"],"period":"1y"}`
	rec := doRequest(t, srv, "POST", "/api/v1/compare", body)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, body: %s", rec.Code, rec.Body.String())
	}

	var envelope struct {
		Success bool                     `json:"success"`
		Data    *models.ComparisonResult `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if !envelope.Success {
		t.Error("expected success=true")
	}

	result := envelope.Data
	if result.BaseTicker != "VTI" {
		t.Errorf("base ticker: got %q", result.BaseTicker)
	}
	if result.Benchmark != "SPY" {
		t.Errorf("benchmark: got %q", result.Benchmark)
	}
	if len(result.Metrics) != 2 {
		t.Fatalf("expected 2 instruments, got %d", len(result.Metrics))
	}
	if !result.Metrics["VTI"].HasBenchmark() {
		t.Error("expected benchmark-relative statistics")
	}
}

func TestHandleCompare_InvalidJSON(t *testing.T) {
	srv := testServer(t)
	rec := doRequest(t, srv, "POST", "/api/v1/compare", "{invalid")

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rec.Code, http.StatusBadRequest)
	}
	resp := decodeResponse(t, rec)
	if resp.Success {
		t.Error("expected success=false")
	}
}

func TestHandleCompare_MissingBase(t *testing.T) {
	srv := testServer(t)
	rec := doRequest(t, srv, "POST", "/api/v1/compare", `{"comparison_tickers":["QQQ"]}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestHandleCompare_UnknownBase(t *testing.T) {
	srv := testServer(t)
	rec := doRequest(t, srv, "POST", "/api/v1/compare", `{"base_ticker":"NOPE","benchmark":"none"}`)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want %d", rec.Code, http.StatusNotFound)
	}
}

// ════════════════════════════════════════════════════════════════════
// Config
// ════════════════════════════════════════════════════════════════════

func TestHandleGetConfig(t *testing.T) {
	srv := testServer(t)
	rec := doRequest(t, srv, "GET", "/api/v1/config", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	resp := decodeResponse(t, rec)
	data, ok := resp.Data.(map[string]interface{})
	if !ok {
		t.Fatal("data should be a map")
	}
	if data["benchmark"] != "SPY" {
		t.Errorf("benchmark: got %q", data["benchmark"])
	}
	if data["default_period"] != "1y" {
		t.Errorf("default_period: got %q", data["default_period"])
	}
	periods, ok := data["valid_periods"].([]interface{})
	if !ok || len(periods) == 0 {
		t.Error("valid_periods missing")
	}
}

// ════════════════════════════════════════════════════════════════════
// WebSocket
// ════════════════════════════════════════════════════════════════════

func TestWSHubBroadcast(t *testing.T) {
	hub := NewWSHub(zap.NewNop())
	go hub.Run()

	client := &WSClient{hub: hub, send: make(chan WSMessage, 1)}
	hub.Register(client)

	hub.Broadcast(WSMessage{Type: "comparison_complete"})

	select {
	case msg := <-client.send:
		if msg.Type != "comparison_complete" {
			t.Errorf("message type: got %q", msg.Type)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for broadcast")
	}

	hub.Unregister(client)
	if _, open := <-client.send; open {
		t.Error("send channel should be closed after unregister")
	}
	if hub.ClientCount() != 0 {
		t.Errorf("client count: got %d, want 0", hub.ClientCount())
	}
}

func TestWebSocketCompareEvent(t *testing.T) {
	srv := testServer(t)
	go srv.wsHub.Run()

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("websocket dial failed: %v", err)
	}
	defer conn.Close()

	// A ping round-trip confirms the client is registered before the
	// comparison broadcast fires.
	if err := conn.WriteJSON(WSMessage{Type: "ping"}); err != nil {
		t.Fatalf("writing ping: %v", err)
	}
	var pong WSMessage
	if err := conn.ReadJSON(&pong); err != nil {
		t.Fatalf("reading pong: %v", err)
	}
	if pong.Type != "pong" {
		t.Fatalf("expected pong, got %q", pong.Type)
	}

	rec := doRequest(t, srv, "POST", "/api/v1/compare", `{"base_ticker":"VTI","benchmark":"none"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("compare failed: %d %s", rec.Code, rec.Body.String())
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event WSMessage
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("reading broadcast: %v", err)
	}
	if event.Type != "comparison_complete" {
		t.Errorf("event type: got %q", event.Type)
	}
}
