package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"options_analyzer/internal/models"
	"options_analyzer/internal/modules/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	cfg := &config.Config{}
	cfg.Alpaca.DataURL = srv.URL
	cfg.Alpaca.APIKey = "key"
	cfg.Alpaca.APISecret = "secret"
	cfg.MarketData.Timeout = 2 * time.Second
	cfg.MarketData.BreakerFailures = 3
	cfg.MarketData.BreakerTimeout = time.Minute
	return NewClient(cfg)
}

func TestClient_LatestTrade(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/stocks/AAPL/trades/latest", r.URL.Path)
		assert.Equal(t, "iex", r.URL.Query().Get("feed"))
		assert.Equal(t, "key", r.Header.Get("APCA-API-KEY-ID"))
		assert.Equal(t, "secret", r.Header.Get("APCA-API-SECRET-KEY"))
		_, _ = w.Write([]byte(`{"symbol":"AAPL","trade":{"t":"2026-10-16T19:59:59Z","p":227.52,"s":100}}`))
	})

	p, err := c.LatestTrade(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 227.52, p)
}

func TestClient_LatestTradeUnknownSymbol(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"not found"}`))
	})

	_, err := c.LatestTrade(context.Background(), "ZZZZ")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrNoData)
}

func TestClient_LatestTradeEmpty(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"symbol":"AAPL","trade":null}`))
	})

	_, err := c.LatestTrade(context.Background(), "AAPL")
	assert.ErrorIs(t, err, models.ErrNoData)
}

func TestClient_DailyBarsPaginates(t *testing.T) {
	calls := 0
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		q := r.URL.Query()
		assert.Equal(t, "/v2/stocks/ABC/bars", r.URL.Path)
		assert.Equal(t, "1Day", q.Get("timeframe"))
		assert.Equal(t, "all", q.Get("adjustment"))
		assert.Equal(t, "2024-01-01T00:00:00Z", q.Get("start"))
		assert.Equal(t, "2024-01-04T23:59:59Z", q.Get("end"))

		if q.Get("page_token") == "" {
			_, _ = w.Write([]byte(`{"symbol":"ABC","bars":[
				{"t":"2024-01-02T05:00:00Z","c":100},
				{"t":"2024-01-03T05:00:00Z","c":102}
			],"next_page_token":"p2"}`))
			return
		}
		assert.Equal(t, "p2", q.Get("page_token"))
		_, _ = w.Write([]byte(`{"symbol":"ABC","bars":[{"t":"2024-01-04T05:00:00Z","c":101}],"next_page_token":null}`))
	})

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	closes, err := c.DailyBars(context.Background(), "ABC", start, end)
	require.NoError(t, err)
	require.Len(t, closes, 3)
	assert.Equal(t, 2, calls)
	assert.Equal(t, []float64{100, 102, 101}, []float64{closes[0].Price, closes[1].Price, closes[2].Price})
}

func TestClient_BreakerOpensAfterFailures(t *testing.T) {
	calls := 0
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	})

	for i := 0; i < 5; i++ {
		_, err := c.LatestTrade(context.Background(), "AAPL")
		require.Error(t, err)
	}
	assert.Equal(t, 3, calls)
}
