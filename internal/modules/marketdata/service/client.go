package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"options_analyzer/internal/metrics"
	"options_analyzer/internal/models"
	"options_analyzer/internal/modules/config"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

const (
	defaultDataURL = "https://data.alpaca.markets"
	defaultFeed    = "iex"
	barsPageLimit  = 10000
)

// Client talks to the Alpaca market data REST API.
type Client struct {
	http    *http.Client
	baseURL string
	feed    string
	key     string
	secret  string
	timeout time.Duration

	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

func NewClient(cfg *config.Config) *Client {
	md := cfg.MarketData

	base := strings.TrimRight(cfg.Alpaca.DataURL, "/")
	if base == "" {
		base = defaultDataURL
	}
	feed := cfg.Alpaca.Feed
	if feed == "" {
		feed = defaultFeed
	}
	timeout := md.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	limit := rate.Inf
	if md.RatePerMinute > 0 {
		limit = rate.Limit(float64(md.RatePerMinute) / 60.0)
	}
	burst := md.Burst
	if burst <= 0 {
		burst = 1
	}

	failures := md.BreakerFailures
	if failures == 0 {
		failures = 5
	}
	st := gobreaker.Settings{
		Name:    "alpaca",
		Timeout: md.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		// an empty answer is a valid answer
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, models.ErrNoData)
		},
	}

	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: base,
		feed:    feed,
		key:     cfg.Alpaca.APIKey,
		secret:  cfg.Alpaca.APISecret,
		timeout: timeout,
		limiter: rate.NewLimiter(limit, burst),
		breaker: gobreaker.NewCircuitBreaker(st),
	}
}

type alpacaTrade struct {
	Time  time.Time `json:"t"`
	Price float64   `json:"p"`
	Size  float64   `json:"s"`
}

type alpacaBar struct {
	Time   time.Time `json:"t"`
	Open   float64   `json:"o"`
	High   float64   `json:"h"`
	Low    float64   `json:"l"`
	Close  float64   `json:"c"`
	Volume float64   `json:"v"`
}

// LatestTrade returns the price of the most recent trade for ticker.
func (c *Client) LatestTrade(ctx context.Context, ticker string) (float64, error) {
	q := url.Values{}
	q.Set("feed", c.feed)

	var payload struct {
		Symbol string       `json:"symbol"`
		Trade  *alpacaTrade `json:"trade"`
	}
	path := "/v2/stocks/" + url.PathEscape(ticker) + "/trades/latest"
	if err := c.get(ctx, "latest_trade", path, q, &payload); err != nil {
		return 0, err
	}
	if payload.Trade == nil || payload.Trade.Price <= 0 {
		return 0, errors.Wrapf(models.ErrNoData, "latest trade %s", ticker)
	}
	return payload.Trade.Price, nil
}

// DailyBars returns adjusted daily closes in [start, end), oldest first.
func (c *Client) DailyBars(ctx context.Context, ticker string, start, end time.Time) ([]models.Close, error) {
	q := url.Values{}
	q.Set("timeframe", "1Day")
	q.Set("start", start.UTC().Format(time.RFC3339))
	// Alpaca treats end as inclusive
	q.Set("end", end.UTC().Add(-time.Second).Format(time.RFC3339))
	q.Set("adjustment", "all")
	q.Set("feed", c.feed)
	q.Set("limit", fmt.Sprintf("%d", barsPageLimit))

	path := "/v2/stocks/" + url.PathEscape(ticker) + "/bars"

	var out []models.Close
	for {
		var page struct {
			Bars          []alpacaBar `json:"bars"`
			Symbol        string      `json:"symbol"`
			NextPageToken *string     `json:"next_page_token"`
		}
		if err := c.get(ctx, "bars", path, q, &page); err != nil {
			return nil, err
		}
		for _, b := range page.Bars {
			out = append(out, models.Close{Date: b.Time, Price: b.Close})
		}
		if page.NextPageToken == nil || *page.NextPageToken == "" {
			break
		}
		q.Set("page_token", *page.NextPageToken)
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, endpoint, path string, q url.Values, dst any) error {
	started := time.Now()
	defer func() {
		metrics.MarketDataLatency.WithLabelValues(endpoint).Observe(time.Since(started).Seconds())
	}()

	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.do(ctx, path, q, dst)
	})
	if err != nil {
		metrics.MarketDataRequests.WithLabelValues(endpoint, "error").Inc()
		return errors.Wrapf(err, "alpaca %s", endpoint)
	}
	metrics.MarketDataRequests.WithLabelValues(endpoint, "ok").Inc()
	return nil
}

func (c *Client) do(ctx context.Context, path string, q url.Values, dst any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.key != "" {
		req.Header.Set("APCA-API-KEY-ID", c.key)
		req.Header.Set("APCA-API-SECRET-KEY", c.secret)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusUnprocessableEntity:
		// unknown symbol
		return errors.Wrapf(models.ErrNoData, "http %d: %s", resp.StatusCode, string(body))
	case resp.StatusCode/100 != 2:
		return fmt.Errorf("http %d: %s", resp.StatusCode, string(body))
	}

	if err := sonic.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}
