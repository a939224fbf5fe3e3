package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"options_analyzer/internal/modules/config"
	md "options_analyzer/internal/modules/marketdata/service"
	"options_analyzer/pkg/logger"
)

// Warmuper prefetches price and close history for the watchlist so the first
// analysis of those tickers hits the cache.
type Warmuper struct {
	md           md.Provider
	historyStart time.Time

	// bounds parallel fetches so the rate limiter is not flooded
	sem chan struct{}
	now func() time.Time
}

func NewWarmuper(provider md.Provider, cfg *config.Config) *Warmuper {
	return &Warmuper{
		md:           provider,
		historyStart: cfg.HistoryStartDate(),
		sem:          make(chan struct{}, 4),
		now:          time.Now,
	}
}

// Warmup fetches every symbol and returns the first error, after all are done.
func (w *Warmuper) Warmup(ctx context.Context, symbols []string) error {
	if len(symbols) == 0 {
		return nil
	}

	y, m, d := w.now().Date()
	end := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	var firstErr error
	var mu sync.Mutex
	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
	}

	for _, sym := range symbols {
		sym := sym
		wg.Add(1)
		go func() {
			defer wg.Done()
			select {
			case w.sem <- struct{}{}:
			case <-ctx.Done():
				fail(ctx.Err())
				return
			}
			defer func() { <-w.sem }()

			closes, err := w.md.DailyCloses(ctx, sym, w.historyStart, end)
			if err != nil {
				fail(fmt.Errorf("warmup history %s: %w", sym, err))
				return
			}
			if _, err := w.md.LastPrice(ctx, sym); err != nil {
				fail(fmt.Errorf("warmup price %s: %w", sym, err))
				return
			}
			logger.Debug("[BOOT] %s warm: %d closes", sym, len(closes))
		}()
	}

	wg.Wait()
	return firstErr
}
