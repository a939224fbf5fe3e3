package config

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	configFilePathENV = "CONFIG_FILE"
	tokenTelegramENV  = "TELEGRAM_TOKEN"
	databaseDSN       = "DATABASE_DSN"
	alpacaKeyENV      = "ALPACA_API_KEY"
	alpacaSecretENV   = "ALPACA_SECRET_KEY"

	defaultConfigFile = "values_local.yaml"
	configDir         = "configs"

	// HistoryDateLayout is the layout of history_start and of expiry dates.
	HistoryDateLayout = "2006-01-02"
)

// Config ...
type Config struct {
	Service struct {
		Host       string `mapstructure:"host"`
		PublicPort int    `mapstructure:"public_port"`
		AdminPort  int    `mapstructure:"admin_port"`
	} `mapstructure:"service"`

	Telegram struct {
		Enabled bool   `mapstructure:"enabled"`
		Token   string `mapstructure:"token"`
	} `mapstructure:"telegram"`

	Alpaca struct {
		APIKey        string `mapstructure:"api_key"`
		APISecret     string `mapstructure:"api_secret"`
		DataURL       string `mapstructure:"data_url"`
		StreamURL     string `mapstructure:"stream_url"`
		Feed          string `mapstructure:"feed"` // iex | sip
		StreamEnabled bool   `mapstructure:"stream_enabled"`
	} `mapstructure:"alpaca"`

	MarketData struct {
		Timeout         time.Duration `mapstructure:"timeout"`
		RatePerMinute   int           `mapstructure:"rate_per_minute"`
		Burst           int           `mapstructure:"burst"`
		BreakerFailures uint32        `mapstructure:"breaker_failures"`
		BreakerTimeout  time.Duration `mapstructure:"breaker_timeout"`
		// Volatility window start, "today" is the end.
		HistoryStart    string        `mapstructure:"history_start"`
		PriceCacheTTL   time.Duration `mapstructure:"price_cache_ttl"`
		HistoryCacheTTL time.Duration `mapstructure:"history_cache_ttl"`
		WatchTickers    []string      `mapstructure:"watch_tickers"`
	} `mapstructure:"market_data"`

	Analysis struct {
		DefaultPortfolioValue float64 `mapstructure:"default_portfolio_value"`
		MaxRows               int     `mapstructure:"max_rows"`
	} `mapstructure:"analysis"`

	Redis struct {
		Enabled  bool   `mapstructure:"enabled"`
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"redis"`

	DB string `mapstructure:"db_dsn"`

	Jaeger struct {
		Enabled bool   `mapstructure:"enabled"`
		Host    string `mapstructure:"host"`
		Port    int    `mapstructure:"port"`
	} `mapstructure:"jaeger"`

	Log struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`
}

// NewConfig reads configs/$CONFIG_FILE (values_local.yaml by default) and
// applies environment overrides. A .env file in the working dir is loaded
// first when present.
func NewConfig() (*Config, error) {
	_ = godotenv.Load()

	configFileName := os.Getenv(configFilePathENV)
	if configFileName == "" {
		configFileName = defaultConfigFile
	}
	return Load(filepath.Join(configDir, configFileName))
}

// Load reads the YAML file at path on top of the defaults. A missing file is
// not an error: defaults plus env are enough to run the CLI.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("telegram.token", tokenTelegramENV)
	_ = v.BindEnv("db_dsn", databaseDSN)
	_ = v.BindEnv("alpaca.api_key", alpacaKeyENV)
	_ = v.BindEnv("alpaca.api_secret", alpacaSecretENV)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.Is(err, fs.ErrNotExist) && !errors.As(err, &notFound) {
				return nil, errors.Wrapf(err, "read config %s", path)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service.host", "0.0.0.0")
	v.SetDefault("service.public_port", 8080)
	v.SetDefault("service.admin_port", 8081)

	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.token", "")

	v.SetDefault("alpaca.api_key", "")
	v.SetDefault("alpaca.api_secret", "")
	v.SetDefault("alpaca.data_url", "https://data.alpaca.markets")
	v.SetDefault("alpaca.stream_url", "wss://stream.data.alpaca.markets/v2")
	v.SetDefault("alpaca.feed", "iex")
	v.SetDefault("alpaca.stream_enabled", false)

	v.SetDefault("market_data.timeout", "15s")
	v.SetDefault("market_data.rate_per_minute", 200)
	v.SetDefault("market_data.burst", 5)
	v.SetDefault("market_data.breaker_failures", 5)
	v.SetDefault("market_data.breaker_timeout", "30s")
	v.SetDefault("market_data.history_start", "2024-01-01")
	v.SetDefault("market_data.price_cache_ttl", "30s")
	v.SetDefault("market_data.history_cache_ttl", "6h")
	v.SetDefault("market_data.watch_tickers", []string{})

	v.SetDefault("analysis.default_portfolio_value", 10000.0)
	v.SetDefault("analysis.max_rows", 20)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("db_dsn", "")

	v.SetDefault("jaeger.enabled", false)
	v.SetDefault("jaeger.host", "localhost")
	v.SetDefault("jaeger.port", 6831)

	v.SetDefault("log.level", "info")
}

func (c *Config) validate() error {
	if _, err := time.Parse(HistoryDateLayout, c.MarketData.HistoryStart); err != nil {
		return fmt.Errorf("market_data.history_start %q: %w", c.MarketData.HistoryStart, err)
	}
	if c.Analysis.DefaultPortfolioValue < 0 {
		c.Analysis.DefaultPortfolioValue = 0
	}
	if c.Analysis.MaxRows <= 0 {
		c.Analysis.MaxRows = 20
	}
	if c.Telegram.Enabled && c.Telegram.Token == "" {
		return fmt.Errorf("telegram.enabled requires telegram.token or %s", tokenTelegramENV)
	}
	return nil
}

// HistoryStartDate is the parsed market_data.history_start.
func (c *Config) HistoryStartDate() time.Time {
	t, _ := time.Parse(HistoryDateLayout, c.MarketData.HistoryStart)
	return t
}
