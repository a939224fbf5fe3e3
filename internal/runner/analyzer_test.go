package runner

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"options_analyzer/internal/models"
	"options_analyzer/internal/modules/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	prices   map[string]float64
	closes   map[string][]models.Close
	priceErr error
	histErr  error

	calls []string
}

func (f *fakeProvider) LastPrice(_ context.Context, ticker string) (float64, error) {
	f.calls = append(f.calls, ticker)
	if f.priceErr != nil {
		return 0, f.priceErr
	}
	p, ok := f.prices[ticker]
	if !ok {
		return 0, models.ErrNoData
	}
	return p, nil
}

func (f *fakeProvider) DailyCloses(_ context.Context, ticker string, _, _ time.Time) ([]models.Close, error) {
	if f.histErr != nil {
		return nil, f.histErr
	}
	return f.closes[ticker], nil
}

var asOf = time.Date(2026, 10, 19, 15, 0, 0, 0, time.UTC)

func newTestAnalyzer(md *fakeProvider) *Analyzer {
	cfg := &config.Config{}
	cfg.MarketData.HistoryStart = "2024-01-01"
	cfg.Analysis.MaxRows = 5
	a := NewAnalyzer(cfg, md)
	a.now = func() time.Time { return asOf }
	return a
}

// closes builds one close per consecutive day starting 2024-01-02.
func closes(prices ...float64) []models.Close {
	out := make([]models.Close, len(prices))
	for i, p := range prices {
		out[i] = models.Close{Date: time.Date(2024, 1, 2+i, 0, 0, 0, 0, time.UTC), Price: p}
	}
	return out
}

func abcRow() models.PositionInput {
	return models.PositionInput{
		Ticker: " abc ", Call1BE: 110, Call2BE: 112, Put1BE: 95, Put2BE: 97,
		Expiry: asOf.AddDate(0, 0, 30),
	}
}

func TestAnalyzer_SkipsEmptyTickersKeepsOrder(t *testing.T) {
	md := &fakeProvider{
		prices: map[string]float64{"ABC": 100, "XYZ": 50},
		closes: map[string][]models.Close{"ABC": closes(100, 102, 101, 105)},
	}
	a := newTestAnalyzer(md)

	xyz := abcRow()
	xyz.Ticker = "xyz"
	res, err := a.Run(context.Background(), models.AnalysisRequest{
		Positions:      []models.PositionInput{abcRow(), {Ticker: "  "}, xyz, {}},
		PortfolioValue: 10000,
	}, SourceCLI)
	require.NoError(t, err)

	require.Len(t, res.Results, 2)
	assert.Equal(t, "ABC", res.Results[0].Ticker)
	assert.Equal(t, "XYZ", res.Results[1].Ticker)
	assert.Equal(t, []string{"ABC", "XYZ"}, md.calls)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, 10000.0, res.PortfolioValue)
}

func TestAnalyzer_AllocatesAcrossPositions(t *testing.T) {
	md := &fakeProvider{
		prices: map[string]float64{"ABC": 100},
		closes: map[string][]models.Close{"ABC": closes(100, 102, 101, 105)},
	}
	a := newTestAnalyzer(md)

	res, err := a.Run(context.Background(), models.AnalysisRequest{
		Positions:      []models.PositionInput{abcRow()},
		PortfolioValue: 5000,
	}, SourceCLI)
	require.NoError(t, err)

	require.Len(t, res.Results, 1)
	r := res.Results[0]
	assert.Equal(t, models.DirectionShort, r.Direction)
	assert.InDelta(t, 2.75, r.RiskReward, 1e-9)
	assert.Greater(t, r.ExpectedReturn, 0.0)
	assert.InDelta(t, 5000, r.AllocationDollars, 1e-6)
	assert.InDelta(t, r.ExpectedReturn, res.TotalExpReturn, 1e-12)
}

func TestAnalyzer_ZeroTotalAllocatesNothing(t *testing.T) {
	// no history: k = 0, so every ex is 0
	md := &fakeProvider{prices: map[string]float64{"ABC": 100, "DEF": 100}}
	a := newTestAnalyzer(md)

	def := abcRow()
	def.Ticker = "DEF"
	res, err := a.Run(context.Background(), models.AnalysisRequest{
		Positions:      []models.PositionInput{abcRow(), def},
		PortfolioValue: 10000,
	}, SourceCLI)
	require.NoError(t, err)

	require.Len(t, res.Results, 2)
	for _, r := range res.Results {
		assert.Zero(t, r.AllocationDollars)
		assert.False(t, math.IsNaN(r.AllocationDollars))
		assert.Zero(t, r.K)
	}
}

func TestAnalyzer_PriceFallsBackToLastClose(t *testing.T) {
	md := &fakeProvider{
		priceErr: errors.New("stream down"),
		closes:   map[string][]models.Close{"ABC": closes(100, 102, 101, 99)},
	}
	a := newTestAnalyzer(md)

	snap := a.Snapshot(context.Background(), "ABC", asOf)
	assert.Equal(t, 99.0, snap.LastPrice)
	assert.Equal(t, models.PriceSourceClose, snap.PriceSource)
	assert.Equal(t, 4, snap.HistoryLen)
	assert.Greater(t, snap.DailyReturnStd, 0.0)
}

func TestAnalyzer_UnpricedRowIsKeptAndZeroed(t *testing.T) {
	md := &fakeProvider{
		prices:  map[string]float64{"ABC": 100},
		histErr: errors.New("bars down"),
	}
	a := newTestAnalyzer(md)

	bad := abcRow()
	bad.Ticker = "NOPE"
	res, err := a.Run(context.Background(), models.AnalysisRequest{
		Positions:      []models.PositionInput{bad, abcRow()},
		PortfolioValue: 10000,
	}, SourceHTTP)
	require.NoError(t, err)

	require.Len(t, res.Results, 2)
	r := res.Results[0]
	assert.Equal(t, "NOPE", r.Ticker)
	assert.True(t, r.Degraded)
	assert.Contains(t, r.Notes, "price unavailable")
	assert.Zero(t, r.Price)
	assert.Zero(t, r.TakeProfit)
	assert.Zero(t, r.StopLoss)
	assert.Zero(t, r.ExpectedReturn)
	assert.Equal(t, 30, r.DaysToExpiry)

	// history failed too, so the priced row has k = 0
	assert.Equal(t, 100.0, res.Results[1].Price)
	assert.Zero(t, res.Results[1].K)
}

func TestAnalyzer_NegativePortfolioClamped(t *testing.T) {
	md := &fakeProvider{
		prices: map[string]float64{"ABC": 100},
		closes: map[string][]models.Close{"ABC": closes(100, 102, 101, 105)},
	}
	a := newTestAnalyzer(md)

	res, err := a.Run(context.Background(), models.AnalysisRequest{
		Positions:      []models.PositionInput{abcRow()},
		PortfolioValue: -50,
	}, SourceCLI)
	require.NoError(t, err)
	assert.Zero(t, res.PortfolioValue)
	assert.Zero(t, res.Results[0].AllocationDollars)
}

func TestAnalyzer_TooManyRows(t *testing.T) {
	a := newTestAnalyzer(&fakeProvider{})

	rows := make([]models.PositionInput, 6)
	for i := range rows {
		rows[i] = abcRow()
	}
	_, err := a.Run(context.Background(), models.AnalysisRequest{Positions: rows}, SourceCLI)
	assert.ErrorIs(t, err, models.ErrTooManyRows)
}

func TestAnalyzer_BlankRowsDoNotCountTowardLimit(t *testing.T) {
	a := newTestAnalyzer(&fakeProvider{prices: map[string]float64{"ABC": 100}})

	rows := append([]models.PositionInput{abcRow()}, make([]models.PositionInput, 5)...)
	res, err := a.Run(context.Background(), models.AnalysisRequest{Positions: rows, PortfolioValue: 10000}, SourceHTTP)
	require.NoError(t, err)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "ABC", res.Results[0].Ticker)
}

func TestAnalyzer_EmptyRequest(t *testing.T) {
	a := newTestAnalyzer(&fakeProvider{})

	res, err := a.Run(context.Background(), models.AnalysisRequest{PortfolioValue: 10000}, SourceCLI)
	require.NoError(t, err)
	assert.Empty(t, res.Results)
	assert.Zero(t, res.TotalExpReturn)
}

func TestAnalyzer_CancelledContext(t *testing.T) {
	a := newTestAnalyzer(&fakeProvider{prices: map[string]float64{"ABC": 100}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.Run(ctx, models.AnalysisRequest{Positions: []models.PositionInput{abcRow()}}, SourceCLI)
	assert.ErrorIs(t, err, context.Canceled)
}
