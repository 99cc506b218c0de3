// Package datasource fetches market data for ETF analysis. It defines the
// MarketData interface for daily price history providers and implements a
// Yahoo Finance source plus an RSS-based news client. All sources share a
// TTL cache and a token-bucket rate limiter so repeated comparisons do not
// hammer the upstream APIs.
package datasource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/etfcompare/etfcompare/pkg/models"
)

// MarketData is the provider interface for daily adjusted price history.
type MarketData interface {
	// Name returns the human-readable name of this data source.
	Name() string

	// GetDailyHistory returns daily adjusted closing prices for ticker in
	// [start, end], oldest first. Days without a close (holidays, halts)
	// are omitted.
	GetDailyHistory(ctx context.Context, ticker string, start, end time.Time) (*models.PriceSeries, error)
}

// --- Sentinel errors ---

// ErrTickerNotFound is returned when a ticker cannot be resolved upstream.
var ErrTickerNotFound = fmt.Errorf("ticker not found")

// ErrNoData is returned when the source resolves the ticker but has no
// usable price points for the requested range.
var ErrNoData = fmt.Errorf("no price data for range")

// ErrRateLimited is returned when a source rate-limits the request.
var ErrRateLimited = fmt.Errorf("rate limited by data source")

// ErrHTTP wraps an HTTP error with status code.
type ErrHTTP struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *ErrHTTP) Error() string {
	return fmt.Sprintf("HTTP %d %s: %s", e.StatusCode, e.Status, e.Body)
}

// --- Shared HTTP client helpers ---

// DefaultUserAgent is the user agent string used for HTTP requests. Yahoo
// endpoints reject requests with an empty or Go-default agent.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// HTTPClient is a pre-configured HTTP client with reasonable timeouts.
var HTTPClient = &http.Client{
	Timeout: 30 * time.Second,
}

// doGet performs a GET request with the given URL and headers, returning the
// response body. The caller is responsible for closing the returned
// ReadCloser.
func doGet(ctx context.Context, url string, headers map[string]string) (io.ReadCloser, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", DefaultUserAgent)
	req.Header.Set("Accept", "application/json, text/xml, */*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := HTTPClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("HTTP GET %s: %w", url, err)
	}

	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, resp.StatusCode, &ErrHTTP{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(body),
		}
	}

	return resp.Body, resp.StatusCode, nil
}

// classifyHTTPErr maps upstream HTTP failures onto the package sentinels so
// callers can react without inspecting status codes.
func classifyHTTPErr(err error, ticker string) error {
	var httpErr *ErrHTTP
	if !errors.As(err, &httpErr) {
		return err
	}
	switch httpErr.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrTickerNotFound, ticker)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", ErrRateLimited, ticker)
	}
	return err
}
