package marketdata

import (
	"context"

	"options_analyzer/internal/modules/config"
	"options_analyzer/internal/modules/marketdata/service"
	"options_analyzer/pkg/db"
	"options_analyzer/pkg/logger"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

// Module wires the Alpaca client with the optional stream, redis cache and
// postgres archive into a service.Provider.
func Module() fx.Option {
	return fx.Module("marketdata",
		fx.Provide(
			service.NewClient,
			newStream,
			newCache,
			newArchive,
			func(cfg *config.Config, api *service.Client, stream *service.Stream, cache service.Cache, archive service.Archive) service.Provider {
				return service.NewMarket(api, stream, cache, archive, cfg.MarketData.PriceCacheTTL)
			},
		),
		fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config, stream *service.Stream) {
			if stream == nil {
				return
			}
			runCtx, cancel := context.WithCancel(context.Background())
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					stream.Subscribe(cfg.MarketData.WatchTickers...)
					go stream.Start(runCtx)
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

func newStream(cfg *config.Config) *service.Stream {
	if !cfg.Alpaca.StreamEnabled {
		return nil
	}
	return service.NewStream(cfg)
}

func newCache(ctx context.Context, lc fx.Lifecycle, cfg *config.Config) (service.Cache, error) {
	if !cfg.Redis.Enabled {
		logger.Info("[MARKET] redis disabled, snapshots are not cached")
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "ping redis %s", cfg.Redis.Addr)
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})

	return service.NewRedisCache(client, cfg.MarketData.PriceCacheTTL, cfg.MarketData.HistoryCacheTTL), nil
}

func newArchive(ctx context.Context, txm *db.PgTxManager) (service.Archive, error) {
	if txm == nil {
		return nil, nil
	}
	archive := service.NewPgArchive(txm)
	if err := archive.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	return archive, nil
}
