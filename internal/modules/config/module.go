package config

import (
	"options_analyzer/pkg/logger"

	"go.uber.org/fx"
)

// Module provides *Config. The logger is initialised from it right away so
// every later constructor logs at the configured level.
func Module() fx.Option {
	return fx.Module("config",
		fx.Provide(
			func() (*Config, error) {
				cfg, err := NewConfig()
				if err != nil {
					return nil, err
				}
				if err := logger.Init(cfg.Log.Level); err != nil {
					return nil, err
				}
				return cfg, nil
			},
		),
	)
}
