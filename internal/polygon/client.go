// Package polygon provides a client for the Polygon.io REST API.
package polygon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/phuslu/log"
	"golang.org/x/time/rate"

	"github.com/trogers1052/portfolio-commander/internal/models"
)

const (
	DefaultBaseURL   = "https://api.polygon.io"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 5 // requests per second
)

// ErrRateLimited is returned when the API responds with HTTP 429.
var ErrRateLimited = errors.New("polygon: rate limited")

// Client talks to the Polygon.io REST API with client-side rate limiting and
// an optional short-lived response cache.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	cache      *ResponseCache
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithCache sets the response cache
func WithCache(cache *ResponseCache) ClientOption {
	return func(c *Client) {
		c.cache = cache
	}
}

// NewClient creates a new Polygon client
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents a non-OK API response
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("polygon API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// get performs a rate-limited, cached GET request
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	cacheable := fmt.Sprintf("%s?%s", path, params.Encode())

	if c.cache != nil {
		if body, ok := c.cache.Get(ctx, cacheable); ok {
			return json.Unmarshal(body, result)
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("apiKey", c.apiKey)

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	log.Debug().Str("endpoint", path).Msg("polygon API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return ErrRateLimited
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
			Endpoint:   path,
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if c.cache != nil {
		c.cache.Set(ctx, cacheable, body)
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// GetSnapshots retrieves current quotes for the given symbols in one call.
// Symbols absent from the response are absent from the returned map.
func (c *Client) GetSnapshots(ctx context.Context, symbols []string) (map[string]*models.Snapshot, error) {
	if len(symbols) == 0 {
		return map[string]*models.Snapshot{}, nil
	}

	params := url.Values{}
	params.Set("tickers", strings.Join(symbols, ","))

	var resp snapshotResponse
	if err := c.get(ctx, "/v2/snapshot/locale/us/markets/stocks/tickers", params, &resp); err != nil {
		return nil, err
	}

	snapshots := make(map[string]*models.Snapshot, len(resp.Tickers))
	for _, t := range resp.Tickers {
		snapshots[t.Ticker] = snapshotFromTicker(t)
	}

	return snapshots, nil
}

// snapshotFromTicker maps one snapshot entry, falling back through last
// trade, today's close and yesterday's close for the price, and to a ±2%
// band around the price when the day bar is missing.
func snapshotFromTicker(t snapshotTicker) *models.Snapshot {
	var price float64
	switch {
	case t.LastTrade != nil && t.LastTrade.Price != 0:
		price = t.LastTrade.Price
	case t.Day != nil && t.Day.Close != 0:
		price = t.Day.Close
	case t.PrevDay != nil && t.PrevDay.Close != 0:
		price = t.PrevDay.Close
	}

	snap := &models.Snapshot{
		Symbol:        t.Ticker,
		CurrentPrice:  price,
		Change:        t.TodaysChange,
		ChangePercent: t.TodaysChangePerc,
		DayHigh:       price * 1.02,
		DayLow:        price * 0.98,
	}

	if t.Day != nil {
		if t.Day.High != 0 {
			snap.DayHigh = t.Day.High
		}
		if t.Day.Low != 0 {
			snap.DayLow = t.Day.Low
		}
		snap.Volume = int64(t.Day.Volume)
	}

	return snap
}

// GetDailyBars retrieves adjusted daily aggregates for symbol between from
// and to, oldest first.
func (c *Client) GetDailyBars(ctx context.Context, symbol string, from, to time.Time) ([]models.DailyBar, error) {
	params := url.Values{}
	params.Set("adjusted", "true")
	params.Set("sort", "asc")

	path := fmt.Sprintf("/v2/aggs/ticker/%s/range/1/day/%s/%s",
		symbol, from.Format("2006-01-02"), to.Format("2006-01-02"))

	var resp aggsResponse
	if err := c.get(ctx, path, params, &resp); err != nil {
		return nil, err
	}

	bars := make([]models.DailyBar, len(resp.Results))
	for i, r := range resp.Results {
		bars[i] = models.DailyBar{
			Date:   time.UnixMilli(r.Timestamp).UTC(),
			Open:   r.Open,
			High:   r.High,
			Low:    r.Low,
			Close:  r.Close,
			Volume: int64(r.Volume),
		}
	}

	return bars, nil
}

// GetFinancials retrieves up to limit reporting periods for symbol, newest
// first. Each result maps to one period; periods without an income statement
// keep their slot with nil values so callers can index by reporting distance.
func (c *Client) GetFinancials(ctx context.Context, symbol string, limit int) ([]models.FinancialsPeriod, error) {
	params := url.Values{}
	params.Set("ticker", symbol)
	params.Set("limit", strconv.Itoa(limit))

	var resp financialsResponse
	if err := c.get(ctx, "/vX/reference/financials", params, &resp); err != nil {
		return nil, err
	}

	periods := make([]models.FinancialsPeriod, len(resp.Results))
	for i, r := range resp.Results {
		stmt := r.Financials.IncomeStatement
		if stmt == nil {
			continue
		}
		if stmt.Revenues != nil {
			v := stmt.Revenues.Value
			periods[i].Revenue = &v
		}
		if stmt.GrossProfit != nil {
			v := stmt.GrossProfit.Value
			periods[i].GrossProfit = &v
		}
		if stmt.OperatingIncomeLoss != nil {
			v := stmt.OperatingIncomeLoss.Value
			periods[i].OperatingIncome = &v
		}
	}

	return periods, nil
}

// GetTickerName resolves a symbol to its company name. Returns "" when the
// API has no details for the symbol; callers fall back to the symbol itself.
func (c *Client) GetTickerName(ctx context.Context, symbol string) (string, error) {
	path := fmt.Sprintf("/v3/reference/tickers/%s", symbol)

	var resp tickerDetailsResponse
	if err := c.get(ctx, path, nil, &resp); err != nil {
		return "", err
	}

	if resp.Results == nil {
		return "", nil
	}

	return resp.Results.Name, nil
}
