package service

import (
	"context"
	"time"

	"options_analyzer/internal/metrics"
	"options_analyzer/internal/models"
	"options_analyzer/pkg/logger"
	"options_analyzer/pkg/tracing"

	"github.com/pkg/errors"
)

// Quotes is the live/REST side of the market data stack.
type Quotes interface {
	LatestTrade(ctx context.Context, ticker string) (float64, error)
	DailyBars(ctx context.Context, ticker string, start, end time.Time) ([]models.Close, error)
}

// Market layers the stream, the cache and the archive around Quotes.
// Any of stream, cache and archive may be nil.
type Market struct {
	api     Quotes
	stream  *Stream
	cache   Cache
	archive Archive

	streamMaxAge time.Duration
}

func NewMarket(api Quotes, stream *Stream, cache Cache, archive Archive, streamMaxAge time.Duration) *Market {
	return &Market{
		api:          api,
		stream:       stream,
		cache:        cache,
		archive:      archive,
		streamMaxAge: streamMaxAge,
	}
}

// LastPrice: stream snapshot, then cache, then latest trade over REST.
// Callers fall back to the last daily close when this fails.
func (m *Market) LastPrice(ctx context.Context, ticker string) (float64, error) {
	span, ctx := tracing.StartSpan(ctx, "marketdata.LastPrice", map[string]any{"ticker": ticker})
	defer span.Finish()

	if m.stream != nil {
		if p, ok := m.stream.Price(ticker, m.streamMaxAge); ok {
			metrics.MarketDataRequests.WithLabelValues("latest_trade", "stream_hit").Inc()
			return p, nil
		}
		m.stream.Subscribe(ticker)
	}

	if m.cache != nil {
		p, err := m.cache.GetPrice(ctx, ticker)
		if err == nil && p > 0 {
			metrics.MarketDataRequests.WithLabelValues("latest_trade", "cache_hit").Inc()
			return p, nil
		}
		if err != nil && !errors.Is(err, models.ErrNotFound) {
			logger.Warn("[MARKET] price cache %s: %v", ticker, err)
		}
	}

	p, err := m.api.LatestTrade(ctx, ticker)
	if err != nil {
		span.SetTag("error", true)
		return 0, err
	}

	if m.cache != nil {
		if err := m.cache.SetPrice(ctx, ticker, p); err != nil {
			logger.Warn("[MARKET] cache price %s: %v", ticker, err)
		}
	}
	return p, nil
}

// DailyCloses returns closes in [start, end), oldest first. The archive is
// written on every successful fetch and read back when the provider fails.
func (m *Market) DailyCloses(ctx context.Context, ticker string, start, end time.Time) ([]models.Close, error) {
	span, ctx := tracing.StartSpan(ctx, "marketdata.DailyCloses", map[string]any{"ticker": ticker})
	defer span.Finish()

	if m.cache != nil {
		closes, err := m.cache.GetCloses(ctx, ticker, start, end)
		if err == nil {
			metrics.MarketDataRequests.WithLabelValues("bars", "cache_hit").Inc()
			return closes, nil
		}
		if !errors.Is(err, models.ErrNotFound) {
			logger.Warn("[MARKET] closes cache %s: %v", ticker, err)
		}
	}

	closes, err := m.api.DailyBars(ctx, ticker, start, end)
	if err != nil {
		span.SetTag("error", true)
		return m.fromArchive(ctx, ticker, start, end, err)
	}

	if m.cache != nil {
		if err := m.cache.SetCloses(ctx, ticker, start, end, closes); err != nil {
			logger.Warn("[MARKET] cache closes %s: %v", ticker, err)
		}
	}
	if m.archive != nil {
		if err := m.archive.SaveCloses(ctx, ticker, closes); err != nil {
			logger.Warn("[MARKET] archive closes %s: %v", ticker, err)
		}
	}
	return closes, nil
}

func (m *Market) fromArchive(ctx context.Context, ticker string, start, end time.Time, cause error) ([]models.Close, error) {
	if m.archive == nil {
		return nil, cause
	}

	closes, err := m.archive.LoadCloses(ctx, ticker, start, end)
	if err != nil {
		logger.Warn("[MARKET] archive read %s: %v", ticker, err)
		return nil, cause
	}
	if len(closes) == 0 {
		return nil, cause
	}

	logger.Warn("[MARKET] %s: provider failed (%v), using %d archived closes", ticker, cause, len(closes))
	return closes, nil
}
