package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/etfcompare/etfcompare/pkg/models"
	"github.com/etfcompare/etfcompare/pkg/utils"
)

const yahooChartBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart"

// Yahoo implements MarketData using the Yahoo Finance v8 chart API.
type Yahoo struct {
	baseURL string
	cache   *Cache
	limiter *RateLimiter
}

var _ MarketData = (*Yahoo)(nil)

// NewYahoo creates a Yahoo Finance data source. cacheTTL bounds how long a
// fetched history is reused; ratePerSec caps request bursts. Non-positive
// values fall back to the defaults (15m, 5 req/s).
func NewYahoo(cacheTTL time.Duration, ratePerSec int) *Yahoo {
	if cacheTTL <= 0 {
		cacheTTL = 15 * time.Minute
	}
	if ratePerSec <= 0 {
		ratePerSec = 5
	}
	return &Yahoo{
		baseURL: yahooChartBaseURL,
		cache:   NewCache(cacheTTL),
		limiter: NewRateLimiter(ratePerSec, time.Second),
	}
}

// Name returns the data source name.
func (y *Yahoo) Name() string { return "Yahoo Finance" }

// --- Yahoo Finance v8 chart API types ---

type yfChartResponse struct {
	Chart struct {
		Result []yfChartResult `json:"result"`
		Error  *yfError        `json:"error"`
	} `json:"chart"`
}

type yfChartResult struct {
	Meta       yfChartMeta  `json:"meta"`
	Timestamp  []int64      `json:"timestamp"`
	Indicators yfIndicators `json:"indicators"`
}

type yfChartMeta struct {
	Symbol   string `json:"symbol"`
	Currency string `json:"currency"`
}

type yfIndicators struct {
	Quote    []yfQuote    `json:"quote"`
	AdjClose []yfAdjClose `json:"adjclose"`
}

// Yahoo fills holiday and halt slots with JSON nulls, hence the pointers.
type yfQuote struct {
	Close  []*float64 `json:"close"`
	Volume []*int64   `json:"volume"`
}

type yfAdjClose struct {
	AdjClose []*float64 `json:"adjclose"`
}

type yfError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// --- Public methods ---

// GetDailyHistory returns daily adjusted closes for ticker in [start, end].
func (y *Yahoo) GetDailyHistory(ctx context.Context, ticker string, start, end time.Time) (*models.PriceSeries, error) {
	symbol := utils.NormalizeTicker(ticker)

	cacheKey := fmt.Sprintf("hist:%s:%d:%d", symbol, start.Unix(), end.Unix())
	if cached, ok := y.cache.Get(cacheKey); ok {
		return cached.(*models.PriceSeries), nil
	}

	if err := y.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/%s?period1=%d&period2=%d&interval=1d",
		y.baseURL, symbol, start.Unix(), end.Unix())

	body, _, err := doGet(ctx, url, map[string]string{
		"Accept": "application/json",
	})
	if err != nil {
		return nil, fmt.Errorf("yahoo chart %s: %w", symbol, classifyHTTPErr(err, symbol))
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var resp yfChartResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("parse yahoo chart: %w", err)
	}

	if resp.Chart.Error != nil {
		if resp.Chart.Error.Code == "Not Found" {
			return nil, fmt.Errorf("%w: %s", ErrTickerNotFound, symbol)
		}
		return nil, fmt.Errorf("yahoo chart error: %s", resp.Chart.Error.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrTickerNotFound, symbol)
	}

	series := parseChartSeries(symbol, resp.Chart.Result[0])
	if series.Len() == 0 {
		return nil, fmt.Errorf("%w: %s %s to %s", ErrNoData, symbol,
			utils.FormatDate(start), utils.FormatDate(end))
	}

	y.cache.Set(cacheKey, series)
	return series, nil
}

// --- Helpers ---

// parseChartSeries flattens a chart result into a price series, preferring
// adjusted closes and skipping null slots.
func parseChartSeries(symbol string, result yfChartResult) *models.PriceSeries {
	series := &models.PriceSeries{Ticker: symbol}
	if len(result.Indicators.Quote) == 0 {
		return series
	}

	q := result.Indicators.Quote[0]
	var adjCloses []*float64
	if len(result.Indicators.AdjClose) > 0 {
		adjCloses = result.Indicators.AdjClose[0].AdjClose
	}

	points := make([]models.PricePoint, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		price := pickPrice(adjCloses, q.Close, i)
		if price == nil || *price <= 0 {
			continue
		}
		date := utils.DateOnly(time.Unix(ts, 0).UTC())
		if n := len(points); n > 0 && !date.After(points[n-1].Date) {
			// Out-of-order or duplicate timestamp from upstream.
			continue
		}
		p := models.PricePoint{
			Date:     date,
			AdjClose: *price,
		}
		if i < len(q.Volume) && q.Volume[i] != nil {
			p.Volume = *q.Volume[i]
		}
		points = append(points, p)
	}

	series.Points = points
	return series
}

func pickPrice(adj, close []*float64, i int) *float64 {
	if i < len(adj) && adj[i] != nil {
		return adj[i]
	}
	if i < len(close) && close[i] != nil {
		return close[i]
	}
	return nil
}
