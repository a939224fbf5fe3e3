package postgres

import (
	"context"
	"fmt"

	"options_analyzer/internal/modules/config"
	"options_analyzer/pkg/db"
	"options_analyzer/pkg/logger"

	"go.uber.org/fx"
)

// Module provides the close archive's tx manager. Without db_dsn it provides
// nil and the archive stays off.
func Module() fx.Option {
	return fx.Module("postgres",
		fx.Provide(
			func(ctx context.Context, lc fx.Lifecycle, cfg *config.Config) (*db.PgTxManager, error) {
				if cfg.DB == "" {
					logger.Info("[DB] db_dsn is empty, close archive disabled")
					return nil, nil
				}

				poolMaster, err := db.NewPool(ctx, db.PoolConfig{
					DSN: cfg.DB,
				})
				if err != nil {
					return nil, fmt.Errorf("failed to create poolMaster: %w", err)
				}

				if err := poolMaster.Ping(ctx); err != nil {
					poolMaster.Close()
					return nil, fmt.Errorf("ping postgres: %w", err)
				}

				txm := db.NewPgTxManager(poolMaster)
				lc.Append(fx.Hook{
					OnStop: func(context.Context) error {
						txm.Close()
						return nil
					},
				})
				return txm, nil
			},
		),
	)
}
