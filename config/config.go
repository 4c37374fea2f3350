package config

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	Market   Market
	Trading  Trading
	Sandbox  Sandbox
	Redis    Redis
	Cache    Cache
	Report   Report
}

type Market struct {
	TickInterval time.Duration   `env:"MARKET_TICK_INTERVAL" envDefault:"3s"`
	Volatility   float64         `env:"MARKET_VOLATILITY" envDefault:"0.02"`
	PriceFloor   decimal.Decimal `env:"MARKET_PRICE_FLOOR" envDefault:"0.01"`
	MaxVolume    int64           `env:"MARKET_MAX_VOLUME" envDefault:"100000000"`
}

type Trading struct {
	StartingCash decimal.Decimal `env:"TRADING_STARTING_CASH" envDefault:"100000"`
}

type Sandbox struct {
	UserID string `env:"SANDBOX_USER_ID" envDefault:"demo-user"`
}

type Redis struct {
	Enabled  bool   `env:"REDIS_ENABLED" envDefault:"false"`
	Host     string `env:"REDIS_HOST" envDefault:"localhost"`
	Port     int    `env:"REDIS_PORT" envDefault:"6379"`
	Password string `env:"REDIS_PASSWORD" envDefault:""`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

type Cache struct {
	QuotesExpiration time.Duration `env:"CACHE_QUOTES_EXPIRATION" envDefault:"1m"`
}

type Report struct {
	Enabled bool   `env:"REPORT_ENABLED" envDefault:"false"`
	Path    string `env:"REPORT_PATH" envDefault:"statement.xlsx"`
}

func Load() (*Config, error) {
	cfg := &Config{}

	opts := env.Options{RequiredIfNoDef: true}

	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, err
	}

	if err := cfg.Market.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (m Market) validate() error {
	var errs []error
	if m.TickInterval <= 0 {
		errs = append(errs, fmt.Errorf("MARKET_TICK_INTERVAL must be positive, got %s", m.TickInterval))
	}
	if m.Volatility < 0 {
		errs = append(errs, fmt.Errorf("MARKET_VOLATILITY must not be negative, got %g", m.Volatility))
	}
	if m.MaxVolume < 0 {
		errs = append(errs, fmt.Errorf("MARKET_MAX_VOLUME must not be negative, got %d", m.MaxVolume))
	}
	return errors.Join(errs...)
}

func MustLoad() *Config {
	_ = godotenv.Load(".env")

	cfg, err := Load()
	if err != nil {
		log.Fatalf("parse config error: %s", err)
	}

	return cfg
}
