package bootstrap

import (
	"context"

	bootstrap "options_analyzer/internal/modules/bootstrap/service"
	health "options_analyzer/internal/modules/httpserver/service"
	"options_analyzer/pkg/logger"

	"go.uber.org/fx"
)

// Module warms the cache for the watchlist and marks the service ready when
// done. A failed warmup is logged; analysis still works cold.
func Module() fx.Option {
	return fx.Module("bootstrap",
		fx.Provide(
			bootstrap.NewWatchlist, // -> *bootstrap.Watchlist
			bootstrap.NewWarmuper,  // -> *bootstrap.Warmuper
		),
		fx.Invoke(func(lc fx.Lifecycle, wl *bootstrap.Watchlist, wu *bootstrap.Warmuper, state *health.State) {
			runCtx, cancel := context.WithCancel(context.Background())
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					go func() {
						defer state.SetReady(true)

						syms := wl.Tickers()
						if err := wu.Warmup(runCtx, syms); err != nil {
							logger.Warn("[BOOT] warmup error: %v", err)
							return
						}
						logger.Info("[BOOT] warmup done: %d symbols", len(syms))
					}()
					return nil
				},
				OnStop: func(context.Context) error {
					cancel()
					return nil
				},
			})
		}),
	)
}
