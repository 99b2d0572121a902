// Package config defines all configuration for the copytrading core.
// Config is loaded from a YAML file (default: configs/config.yaml) with
// sensitive fields and a few operational flags overridable via HL_* env
// vars, layering viper env overrides on top of the YAML file.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config is the top-level configuration. Maps directly to the YAML file
// structure; every component receives only the sub-struct it needs.
type Config struct {
	PaperTrade bool          `mapstructure:"paper_trade"`
	API        APIConfig     `mapstructure:"api"`
	RateLimit  RateLimitConfig `mapstructure:"rate_limit"`
	Scoring    ScoringConfig `mapstructure:"scoring"`
	Portfolio  PortfolioConfig `mapstructure:"portfolio"`
	Risk       RiskConfig    `mapstructure:"risk"`
	Execution  ExecutionConfig `mapstructure:"execution"`
	Monitor    MonitorConfig `mapstructure:"monitor"`
	Schedule   ScheduleConfig `mapstructure:"schedule"`
	Store      StoreConfig   `mapstructure:"store"`
	Logging    LoggingConfig `mapstructure:"logging"`
	Health     HealthConfig  `mapstructure:"health"`

	// AccountValue is the paper-trading account's notional size, used to
	// scale softmax weights into target notionals.
	AccountValue decimal.Decimal `mapstructure:"account_value"`
}

// APIConfig holds the upstream market-data capability's endpoint and creds.
type APIConfig struct {
	BaseURL string `mapstructure:"base_url"`
	ApiKey  string `mapstructure:"api_key"`
}

// RateLimitConfig holds the per-category rate limits the MarketClient enforces.
type RateLimitConfig struct {
	LeaderboardPerSecond int           `mapstructure:"leaderboard_per_second"`
	LeaderboardPerMinute int           `mapstructure:"leaderboard_per_minute"`
	PositionPerSecond    int           `mapstructure:"position_per_second"`
	PositionPerMinute    int           `mapstructure:"position_per_minute"`
	TradePerSecond       int           `mapstructure:"trade_per_second"`
	TradePerMinute       int           `mapstructure:"trade_per_minute"`
	TradeMinInterval     time.Duration `mapstructure:"trade_min_interval"`
	PersistPath          string        `mapstructure:"persist_path"`
	MaxRetryAttempts     int           `mapstructure:"max_retry_attempts"`
}

// ScoringConfig tunes the position-based scoring pipeline.
type ScoringConfig struct {
	WindowDays            int     `mapstructure:"window_days"`
	MinSnapshots          int     `mapstructure:"min_snapshots"`
	MaxAvgLeverage        float64 `mapstructure:"max_avg_leverage"`
	MinAccountValue       float64 `mapstructure:"min_account_value"`
	TopN                  int     `mapstructure:"top_n"`
	MLOverride            bool    `mapstructure:"ml_override"`
}

// PortfolioConfig tunes softmax weighting and the rebalance diff.
type PortfolioConfig struct {
	Temperature     float64 `mapstructure:"temperature"`
	AdjustThreshold float64 `mapstructure:"adjust_threshold"`
	MinTradeSize    decimal.Decimal `mapstructure:"min_trade_size"`
}

// RiskConfig tunes the six-stage risk overlay.
type RiskConfig struct {
	MaxTraders          int     `mapstructure:"max_traders"`
	PerTraderCap        float64 `mapstructure:"per_trader_cap"`
	PerTokenCap         float64 `mapstructure:"per_token_cap"`
	MaxLongFraction     float64 `mapstructure:"max_long_fraction"`
	MaxShortFraction    float64 `mapstructure:"max_short_fraction"`
	MaxAggregateLeverage float64 `mapstructure:"max_aggregate_leverage"`
}

// ExecutionConfig tunes the Executor's slippage bounds and fill polling.
type ExecutionConfig struct {
	SlippageBps     int           `mapstructure:"slippage_bps"`
	StopLossBps     int           `mapstructure:"stop_loss_bps"`
	MaxHoldDuration time.Duration `mapstructure:"max_hold_duration"`
	PollAttempts    int           `mapstructure:"poll_attempts"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
}

// MonitorConfig tunes the stop-enforcement loop.
type MonitorConfig struct {
	Interval    time.Duration `mapstructure:"interval"`
	TrailingBps float64       `mapstructure:"trailing_bps"`
}

// ScheduleConfig sets the four cadence intervals and the missed-tick and
// shutdown-grace thresholds.
type ScheduleConfig struct {
	RefreshInterval      time.Duration `mapstructure:"refresh_interval"`
	RebalanceInterval    time.Duration `mapstructure:"rebalance_interval"`
	MonitorInterval      time.Duration `mapstructure:"monitor_interval"`
	IngestInterval       time.Duration `mapstructure:"ingest_interval"`
	TickInterval         time.Duration `mapstructure:"tick_interval"`
	MissedTickThreshold  time.Duration `mapstructure:"missed_tick_threshold"`
	ShutdownGracePeriod  time.Duration `mapstructure:"shutdown_grace_period"`
	RefreshDeadline      time.Duration `mapstructure:"refresh_deadline"`
	RebalanceDeadline    time.Duration `mapstructure:"rebalance_deadline"`
}

// StoreConfig sets where the relational DataStore persists.
type StoreConfig struct {
	DBPath string `mapstructure:"db_path"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// HealthConfig controls the health HTTP endpoint.
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// Load reads config from a YAML file with env var overrides.
// Sensitive/operational fields use env vars: HL_API_KEY, PAPER_TRADE,
// ACCOUNT_VALUE, DB_PATH.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("HL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if key := os.Getenv("HL_API_KEY"); key != "" {
		cfg.API.ApiKey = key
	}
	if v := os.Getenv("PAPER_TRADE"); v != "" {
		cfg.PaperTrade = v == "true" || v == "1"
	}
	if v := os.Getenv("ACCOUNT_VALUE"); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			cfg.AccountValue = d
		}
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		cfg.Store.DBPath = v
	}

	return &cfg, nil
}

// Validate checks all required fields and value ranges, returning a config
// error suitable for the process exit code 2 path.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if c.API.ApiKey == "" {
		return fmt.Errorf("api.api_key is required (set HL_API_KEY)")
	}
	if c.Store.DBPath == "" {
		return fmt.Errorf("store.db_path is required (set DB_PATH)")
	}
	if c.AccountValue.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("account_value must be > 0 (set ACCOUNT_VALUE)")
	}
	if c.Scoring.TopN <= 0 {
		return fmt.Errorf("scoring.top_n must be > 0")
	}
	if c.Scoring.MinSnapshots <= 0 {
		return fmt.Errorf("scoring.min_snapshots must be > 0")
	}
	if c.Portfolio.Temperature <= 0 {
		return fmt.Errorf("portfolio.temperature must be > 0")
	}
	if c.Risk.MaxTraders <= 0 {
		return fmt.Errorf("risk.max_traders must be > 0")
	}
	if c.Risk.PerTraderCap <= 0 || c.Risk.PerTraderCap > 1 {
		return fmt.Errorf("risk.per_trader_cap must be in (0, 1]")
	}
	return nil
}

// ParseLogLevel is shared by main and tests that need to stand up a logger
// from the same strings the YAML config accepts.
func ParseLogLevel(level string) string {
	switch strings.ToLower(level) {
	case "debug", "warn", "error", "info":
		return strings.ToLower(level)
	default:
		return "info"
	}
}
