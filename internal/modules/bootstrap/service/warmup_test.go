package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"options_analyzer/internal/models"
	"options_analyzer/internal/modules/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingProvider struct {
	mu      sync.Mutex
	prices  []string
	history []string
	fail    string
}

func (p *recordingProvider) LastPrice(_ context.Context, t string) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prices = append(p.prices, t)
	return 1, nil
}

func (p *recordingProvider) DailyCloses(_ context.Context, t string, start, end time.Time) ([]models.Close, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.history = append(p.history, t)
	if t == p.fail {
		return nil, errors.New("boom")
	}
	return nil, nil
}

func testCfg(tickers ...string) *config.Config {
	cfg := &config.Config{}
	cfg.MarketData.HistoryStart = "2024-01-01"
	cfg.MarketData.WatchTickers = tickers
	return cfg
}

func TestWatchlist_NormalizesAndDedups(t *testing.T) {
	wl := NewWatchlist(testCfg("aapl", " MSFT ", "AAPL", ""))
	assert.Equal(t, []string{"AAPL", "MSFT"}, wl.Tickers())
}

func TestWarmup_FetchesAll(t *testing.T) {
	p := &recordingProvider{}
	w := NewWarmuper(p, testCfg())

	require.NoError(t, w.Warmup(context.Background(), []string{"A", "B", "C"}))
	assert.ElementsMatch(t, []string{"A", "B", "C"}, p.prices)
	assert.ElementsMatch(t, []string{"A", "B", "C"}, p.history)
}

func TestWarmup_ReportsFirstErrorButFinishes(t *testing.T) {
	p := &recordingProvider{fail: "B"}
	w := NewWarmuper(p, testCfg())

	err := w.Warmup(context.Background(), []string{"A", "B", "C"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "B")
	assert.ElementsMatch(t, []string{"A", "C"}, p.prices)
}

func TestWarmup_Empty(t *testing.T) {
	assert.NoError(t, NewWarmuper(&recordingProvider{}, testCfg()).Warmup(context.Background(), nil))
}
