package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"options_analyzer/internal/evaluator"
	"options_analyzer/internal/metrics"
	"options_analyzer/internal/modules/config"
	md "options_analyzer/internal/modules/marketdata/service"
	"options_analyzer/internal/report"
	"options_analyzer/internal/runner"
	"options_analyzer/pkg/db"
	"options_analyzer/pkg/logger"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

var (
	configPath string
	portfolio  float64
	asJSON     bool
)

func main() {
	root := &cobra.Command{
		Use:   "analyze -f positions.yaml",
		Short: "Score option breakeven positions and split a portfolio across them",
		Long: "Reads a YAML file of positions (ticker, four breakevens, expiry),\n" +
			"fetches prices and daily closes, and prints the results table.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}
	root.Flags().StringP("file", "f", "", "positions YAML file")
	root.Flags().StringVar(&configPath, "config", "configs/values_local.yaml", "config file")
	root.Flags().Float64Var(&portfolio, "portfolio", -1, "portfolio value in $, overrides the file")
	root.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	_ = root.MarkFlagRequired("file")

	if err := root.Execute(); err != nil {
		logger.Sync()
		os.Stderr.WriteString("error: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	logger.SetServiceName("options-analyzer-cli")

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := logger.Init(cfg.Log.Level); err != nil {
		return err
	}
	defer logger.Sync()
	metrics.Register()

	file, _ := cmd.Flags().GetString("file")
	req, err := loadPositions(file, cfg.Analysis.DefaultPortfolioValue)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("portfolio") {
		req.PortfolioValue = portfolio
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	market, cleanup, err := newMarket(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	res, err := runner.NewAnalyzer(cfg, market).Run(ctx, req, runner.SourceCLI)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON {
		data, err := sonic.ConfigStd.MarshalIndent(struct {
			Analysis any `json:"analysis"`
			Rows     any `json:"rows"`
		}{res, evaluator.Rows(res.Results)}, "", "  ")
		if err != nil {
			return errors.Wrap(err, "encode json")
		}
		_, err = out.Write(append(data, '\n'))
		return err
	}
	return report.WriteTable(out, res)
}

// newMarket builds the provider without the stream; redis and postgres are
// used when configured.
func newMarket(ctx context.Context, cfg *config.Config) (*md.Market, func(), error) {
	var (
		cache   md.Cache
		archive md.Archive
		closers []func()
	)
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unavailable, running without cache: %v", err)
			_ = client.Close()
		} else {
			closers = append(closers, func() { _ = client.Close() })
			cache = md.NewRedisCache(client, cfg.MarketData.PriceCacheTTL, cfg.MarketData.HistoryCacheTTL)
		}
	}

	if cfg.DB != "" {
		pool, err := db.NewPool(ctx, db.PoolConfig{DSN: cfg.DB})
		if err != nil {
			cleanup()
			return nil, nil, errors.Wrap(err, "postgres")
		}
		txm := db.NewPgTxManager(pool)
		closers = append(closers, txm.Close)

		pg := md.NewPgArchive(txm)
		if err := pg.EnsureSchema(ctx); err != nil {
			logger.Warn("close archive disabled: %v", err)
		} else {
			archive = pg
		}
	}

	return md.NewMarket(md.NewClient(cfg), nil, cache, archive, cfg.MarketData.PriceCacheTTL), cleanup, nil
}
