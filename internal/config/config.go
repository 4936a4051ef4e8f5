package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"chatten/internal/logging"
	"chatten/internal/version"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Oracle    OracleConfig    `mapstructure:"oracle"`
	Chain     ChainConfig     `mapstructure:"chain"`
	Market    MarketConfig    `mapstructure:"market"`
	Trader    TraderConfig    `mapstructure:"trader"`
	Alerting  AlertingConfig  `mapstructure:"alerting"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Export    ExportConfig    `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity. An empty DSN disables
// persistence entirely.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// SchedulerConfig governs scoring cadence.
type SchedulerConfig struct {
	Interval        time.Duration `mapstructure:"interval"`
	AlignToBucket   bool          `mapstructure:"align_to_bucket"`
	AdvisoryLockKey int64         `mapstructure:"advisory_lock_key"`
	StartupDelay    time.Duration `mapstructure:"startup_delay"`
}

// OracleConfig covers the performance-metrics oracle endpoint. An empty base
// URL means no oracle is deployed and cached/zero snapshots are served.
type OracleConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
}

// ChainConfig covers Neo N3 node access and contract addressing.
// Network magic: 860833102 mainnet, 894710606 testnet.
type ChainConfig struct {
	RPCURL         string        `mapstructure:"rpc_url"`
	ContractHash   string        `mapstructure:"contract_hash"`
	GasTokenHash   string        `mapstructure:"gas_token_hash"`
	NetworkMagic   uint32        `mapstructure:"network_magic"`
	WalletAddress  string        `mapstructure:"wallet_address"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// MarketConfig lists the models tracked by the service loop.
type MarketConfig struct {
	Models             []string `mapstructure:"models"`
	CompareConcurrency int      `mapstructure:"compare_concurrency"`
}

// TraderConfig governs the automated buy rule.
type TraderConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	ModelID          string  `mapstructure:"model_id"`
	MaxBuyPriceUnits int64   `mapstructure:"max_buy_price_units"`
	BuyAmountGAS     float64 `mapstructure:"buy_amount_gas"`
	DryRun           bool    `mapstructure:"dry_run"`
}

// AlertingConfig defines notification routing.
type AlertingConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Channels []string       `mapstructure:"channels"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig 描述 Telegram 通知参数。
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// TelemetryConfig controls the Prometheus listener.
type TelemetryConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	ListenAddr string `mapstructure:"listen_addr"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CHATTEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "chatten")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "stderr")

	v.SetDefault("scheduler.interval", "60s")
	v.SetDefault("scheduler.align_to_bucket", true)
	v.SetDefault("scheduler.advisory_lock_key", int64(0x43485454))
	v.SetDefault("scheduler.startup_delay", "0s")

	v.SetDefault("oracle.request_timeout", "10s")
	v.SetDefault("oracle.user_agent", version.UserAgent())

	v.SetDefault("chain.rpc_url", "http://localhost:50012")
	v.SetDefault("chain.gas_token_hash", "0xd2a4cff31913016155e38e472a4c06d08be276cf")
	v.SetDefault("chain.network_magic", uint32(894710606))
	v.SetDefault("chain.request_timeout", "15s")

	v.SetDefault("market.models", []string{"gpt-4"})
	v.SetDefault("market.compare_concurrency", 4)

	v.SetDefault("trader.enabled", false)
	v.SetDefault("trader.max_buy_price_units", int64(1_000_000))
	v.SetDefault("trader.buy_amount_gas", 2.0)
	v.SetDefault("trader.dry_run", true)

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.channels", []string{"telegram"})
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.listen_addr", ":9184")

	v.SetDefault("export.max_data_points", 100000)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be greater than zero")
	}
	if len(c.Market.Models) == 0 {
		return fmt.Errorf("market.models cannot be empty")
	}
	if c.Market.CompareConcurrency <= 0 {
		return fmt.Errorf("market.compare_concurrency must be greater than zero")
	}
	if c.Trader.MaxBuyPriceUnits <= 0 {
		return fmt.Errorf("trader.max_buy_price_units must be greater than zero")
	}
	if c.Trader.BuyAmountGAS <= 0 {
		return fmt.Errorf("trader.buy_amount_gas must be greater than zero")
	}
	if c.Trader.Enabled && c.Chain.ContractHash == "" {
		return fmt.Errorf("chain.contract_hash 必须配置 (trader enabled)")
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token 必须配置")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id 必须配置")
		}
	}
	return nil
}

// TraderModel resolves the model the trader watches, defaulting to the first
// tracked market model.
func (c *Config) TraderModel() string {
	if c.Trader.ModelID != "" {
		return c.Trader.ModelID
	}
	if len(c.Market.Models) > 0 {
		return c.Market.Models[0]
	}
	return ""
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
