package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"viberate/internal/bootstrap/logging"
	"viberate/internal/errs"
)

type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Payment    PaymentConfig    `mapstructure:"payment"`
	Assignment AssignmentConfig `mapstructure:"assignment"`
	Wallet     WalletConfig     `mapstructure:"wallet"`
	Labeling   LabelingConfig   `mapstructure:"labeling"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Events     EventsConfig     `mapstructure:"events"`
	HTTP       HTTPConfig       `mapstructure:"http"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// PaymentConfig amounts are strings so that decimals survive env and YAML
// without float rounding.
type PaymentConfig struct {
	Network            string `mapstructure:"network"`
	Asset              string `mapstructure:"asset"`
	MaxAmount          string `mapstructure:"max_amount"`
	FeeRate            string `mapstructure:"fee_rate"`
	MaxRetries         int    `mapstructure:"max_retries"`
	PlatformWalletData string `mapstructure:"platform_wallet_data"`
}

type AssignmentConfig struct {
	AutoStart    bool `mapstructure:"auto_start"`
	SyncOnSubmit bool `mapstructure:"sync_on_submit"`
}

type WalletConfig struct {
	BaseURL         string        `mapstructure:"base_url"`
	APIKey          string        `mapstructure:"api_key"`
	Timeout         time.Duration `mapstructure:"timeout"`
	BreakerFailures int           `mapstructure:"breaker_failures"`
	BreakerCooldown time.Duration `mapstructure:"breaker_cooldown"`
}

type LabelingConfig struct {
	BaseURL  string        `mapstructure:"base_url"`
	APIToken string        `mapstructure:"api_token"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type CacheConfig struct {
	Driver     string        `mapstructure:"driver"`
	MaxCost    int64         `mapstructure:"max_cost"`
	BalanceTTL time.Duration `mapstructure:"balance_ttl"`
}

type EventsConfig struct {
	NATSURL       string `mapstructure:"nats_url"`
	Stream        string `mapstructure:"stream"`
	SubjectPrefix string `mapstructure:"subject_prefix"`
}

type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	JWTSecret       string        `mapstructure:"jwt_secret"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

func (c PaymentConfig) MaxAmountDecimal() decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(c.MaxAmount))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func (c PaymentConfig) FeeRateDecimal() decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(c.FeeRate))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func Load(ctx context.Context, configFile string) (Config, error) {
	if ctx == nil {
		return Config{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return Config{}, errs.Wrap(err, "check context")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.config"))

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("VIBERATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile == "" && errors.As(err, &notFound) {
			// Keep default and env-backed config when no file is provided.
			logging.Warn(logCtx, "config file not found, fallback to defaults and env")
		} else {
			return Config{}, errs.Wrap(err, "read config")
		}
	} else {
		logging.Info(logCtx, "using config file", slog.String("path", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errs.Wrap(err, "unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	logging.Info(
		logCtx,
		"config loaded",
		slog.String("app", cfg.App.Name),
		slog.String("env", cfg.App.Env),
		slog.String("database_driver", cfg.Database.Driver),
		slog.String("cache_driver", cfg.Cache.Driver),
		slog.Bool("events_enabled", cfg.Events.NATSURL != ""),
	)

	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Database.DSN) == "" {
		return errors.New("database.dsn is required")
	}
	fee := c.Payment.FeeRateDecimal()
	if !fee.IsPositive() || fee.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("payment.fee_rate must be in (0,1), got %q", c.Payment.FeeRate)
	}
	if !c.Payment.MaxAmountDecimal().IsPositive() {
		return fmt.Errorf("payment.max_amount must be positive, got %q", c.Payment.MaxAmount)
	}
	if c.Payment.MaxRetries < 1 {
		return fmt.Errorf("payment.max_retries must be at least 1, got %d", c.Payment.MaxRetries)
	}
	switch strings.ToLower(c.Cache.Driver) {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("unsupported cache driver %q", c.Cache.Driver)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "viberate")
	v.SetDefault("app.env", "local")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", ".viberate/viberate.db")

	v.SetDefault("payment.network", "base-sepolia")
	v.SetDefault("payment.asset", "usdc")
	v.SetDefault("payment.max_amount", "10000")
	v.SetDefault("payment.fee_rate", "0.10")
	v.SetDefault("payment.max_retries", 3)
	v.SetDefault("payment.platform_wallet_data", "")

	v.SetDefault("assignment.auto_start", true)
	v.SetDefault("assignment.sync_on_submit", false)

	v.SetDefault("wallet.base_url", "http://localhost:8081")
	v.SetDefault("wallet.api_key", "")
	v.SetDefault("wallet.timeout", 30*time.Second)
	v.SetDefault("wallet.breaker_failures", 5)
	v.SetDefault("wallet.breaker_cooldown", 30*time.Second)

	v.SetDefault("labeling.base_url", "http://localhost:8080")
	v.SetDefault("labeling.api_token", "")
	v.SetDefault("labeling.timeout", 30*time.Second)

	v.SetDefault("cache.driver", "sqlite")
	v.SetDefault("cache.max_cost", 1<<20)
	v.SetDefault("cache.balance_ttl", 5*time.Minute)

	v.SetDefault("events.nats_url", "")
	v.SetDefault("events.stream", "VIBERATE")
	v.SetDefault("events.subject_prefix", "viberate")

	v.SetDefault("http.addr", ":8000")
	v.SetDefault("http.jwt_secret", "")
	v.SetDefault("http.read_timeout", 15*time.Second)
	v.SetDefault("http.shutdown_timeout", 10*time.Second)
}
