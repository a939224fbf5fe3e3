package service

import (
	"options_analyzer/internal/models"
	"options_analyzer/internal/modules/config"
)

// Watchlist is the set of tickers kept warm in the cache.
type Watchlist struct{ tickers []string }

func NewWatchlist(cfg *config.Config) *Watchlist {
	seen := make(map[string]struct{}, len(cfg.MarketData.WatchTickers))
	var out []string
	for _, t := range cfg.MarketData.WatchTickers {
		t = models.NormTicker(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return &Watchlist{tickers: out}
}

func (w *Watchlist) Tickers() []string {
	out := make([]string, len(w.tickers))
	copy(out, w.tickers)
	return out
}
