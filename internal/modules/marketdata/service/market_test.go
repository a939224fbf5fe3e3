package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"options_analyzer/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQuotes struct {
	price    float64
	priceErr error
	closes   []models.Close
	barsErr  error

	priceCalls int
	barsCalls  int
}

func (f *fakeQuotes) LatestTrade(context.Context, string) (float64, error) {
	f.priceCalls++
	return f.price, f.priceErr
}

func (f *fakeQuotes) DailyBars(context.Context, string, time.Time, time.Time) ([]models.Close, error) {
	f.barsCalls++
	return f.closes, f.barsErr
}

type fakeCache struct {
	prices map[string]float64
	closes map[string][]models.Close
}

func newFakeCache() *fakeCache {
	return &fakeCache{prices: map[string]float64{}, closes: map[string][]models.Close{}}
}

func (f *fakeCache) GetPrice(_ context.Context, t string) (float64, error) {
	p, ok := f.prices[t]
	if !ok {
		return 0, models.ErrNotFound
	}
	return p, nil
}

func (f *fakeCache) SetPrice(_ context.Context, t string, p float64) error {
	f.prices[t] = p
	return nil
}

func (f *fakeCache) GetCloses(_ context.Context, t string, _, _ time.Time) ([]models.Close, error) {
	c, ok := f.closes[t]
	if !ok {
		return nil, models.ErrNotFound
	}
	return c, nil
}

func (f *fakeCache) SetCloses(_ context.Context, t string, _, _ time.Time, c []models.Close) error {
	f.closes[t] = c
	return nil
}

type fakeArchive struct {
	saved map[string][]models.Close
}

func (f *fakeArchive) SaveCloses(_ context.Context, t string, c []models.Close) error {
	if f.saved == nil {
		f.saved = map[string][]models.Close{}
	}
	f.saved[t] = c
	return nil
}

func (f *fakeArchive) LoadCloses(_ context.Context, t string, _, _ time.Time) ([]models.Close, error) {
	return f.saved[t], nil
}

var (
	day1 = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	day2 = time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
)

func TestMarket_LastPriceCachesRESTAnswer(t *testing.T) {
	api := &fakeQuotes{price: 101.25}
	cache := newFakeCache()
	m := NewMarket(api, nil, cache, nil, time.Minute)

	p, err := m.LastPrice(context.Background(), "ABC")
	require.NoError(t, err)
	assert.Equal(t, 101.25, p)

	p, err = m.LastPrice(context.Background(), "ABC")
	require.NoError(t, err)
	assert.Equal(t, 101.25, p)
	assert.Equal(t, 1, api.priceCalls)
}

func TestMarket_LastPricePrefersStream(t *testing.T) {
	api := &fakeQuotes{price: 1}
	stream := NewStream(testConfig())
	stream.handle([]byte(`[{"T":"t","S":"ABC","p":55}]`))

	m := NewMarket(api, stream, nil, nil, time.Minute)
	p, err := m.LastPrice(context.Background(), "ABC")
	require.NoError(t, err)
	assert.Equal(t, 55.0, p)
	assert.Zero(t, api.priceCalls)
}

func TestMarket_LastPriceError(t *testing.T) {
	api := &fakeQuotes{priceErr: models.ErrNoData}
	m := NewMarket(api, nil, nil, nil, time.Minute)

	_, err := m.LastPrice(context.Background(), "ABC")
	assert.ErrorIs(t, err, models.ErrNoData)
}

func TestMarket_DailyClosesArchivesAndCaches(t *testing.T) {
	closes := []models.Close{{Date: day1, Price: 100}, {Date: day2, Price: 101}}
	api := &fakeQuotes{closes: closes}
	cache := newFakeCache()
	archive := &fakeArchive{}
	m := NewMarket(api, nil, cache, archive, time.Minute)

	got, err := m.DailyCloses(context.Background(), "ABC", day1, day2)
	require.NoError(t, err)
	assert.Equal(t, closes, got)
	assert.Equal(t, closes, archive.saved["ABC"])

	_, err = m.DailyCloses(context.Background(), "ABC", day1, day2)
	require.NoError(t, err)
	assert.Equal(t, 1, api.barsCalls)
}

func TestMarket_DailyClosesFallsBackToArchive(t *testing.T) {
	archived := []models.Close{{Date: day1, Price: 100}}
	api := &fakeQuotes{barsErr: errors.New("boom")}
	archive := &fakeArchive{saved: map[string][]models.Close{"ABC": archived}}
	m := NewMarket(api, nil, nil, archive, time.Minute)

	got, err := m.DailyCloses(context.Background(), "ABC", day1, day2)
	require.NoError(t, err)
	assert.Equal(t, archived, got)
}

func TestMarket_DailyClosesErrorWithoutArchive(t *testing.T) {
	api := &fakeQuotes{barsErr: errors.New("boom")}
	m := NewMarket(api, nil, nil, &fakeArchive{}, time.Minute)

	_, err := m.DailyCloses(context.Background(), "ABC", day1, day2)
	assert.EqualError(t, err, "boom")
}
