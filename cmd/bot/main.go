package main

import (
	"context"
	"log"

	"options_analyzer/internal/metrics"
	"options_analyzer/internal/modules/bootstrap"
	"options_analyzer/internal/modules/config"
	"options_analyzer/internal/modules/httpserver"
	"options_analyzer/internal/modules/marketdata"
	"options_analyzer/internal/modules/postgres"
	telegram "options_analyzer/internal/modules/telegram_bot"
	"options_analyzer/internal/runner"
	"options_analyzer/pkg/logger"
	"options_analyzer/pkg/tracing"

	"go.uber.org/fx"
)

const serviceName = "options-analyzer"

func main() {
	logger.SetServiceName(serviceName)
	tracing.SetServiceName(serviceName)
	metrics.Register()

	app := fx.New(
		fx.Provide(
			func() context.Context {
				return context.Background()
			},
		),
		config.Module(),
		fx.Invoke(initTracing),
		postgres.Module(),
		marketdata.Module(),
		runner.Module(),
		httpserver.Module(),
		bootstrap.Module(),
		telegram.Module(),
	)
	if err := app.Err(); err != nil {
		log.Fatal(err)
	}

	app.Run()
	logger.Sync()
}

func initTracing(lc fx.Lifecycle, cfg *config.Config) error {
	_, closer, err := tracing.InitTracer(tracing.Config{
		Enabled: cfg.Jaeger.Enabled,
		Host:    cfg.Jaeger.Host,
		Port:    cfg.Jaeger.Port,
	})
	if err != nil {
		return err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			closer()
			return nil
		},
	})
	return nil
}
