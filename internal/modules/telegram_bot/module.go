package telegram

import (
	"context"

	"options_analyzer/internal/modules/config"
	"options_analyzer/internal/modules/telegram_bot/service"
	"options_analyzer/internal/runner"
	"options_analyzer/pkg/logger"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("telegram",
		fx.Provide(
			func(a *runner.Analyzer) service.Analyzer {
				return a
			},
			// nil when telegram is disabled
			func(cfg *config.Config, a service.Analyzer) (*service.Telegram, error) {
				if !cfg.Telegram.Enabled {
					logger.Info("[TG] telegram disabled")
					return nil, nil
				}
				return service.NewTelegram(cfg, a)
			},
		),
		fx.Invoke(
			func(lc fx.Lifecycle, t *service.Telegram) {
				if t == nil {
					return
				}
				runCtx, cancel := context.WithCancel(context.Background())
				lc.Append(fx.Hook{
					OnStart: func(context.Context) error {
						t.Start(runCtx)
						return nil
					},
					OnStop: func(context.Context) error {
						cancel()
						t.Stop()
						return nil
					},
				})
			},
		),
	)
}
