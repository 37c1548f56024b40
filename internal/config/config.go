// Package config provides configuration loading and validation.
package config

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/fd1az/pool-sniper/internal/apperror"
)

// Config holds all application configuration.
type Config struct {
	App         AppConfig         `mapstructure:"app"`
	Connection  ConnectionConfig  `mapstructure:"connection"`
	Stream      StreamConfig      `mapstructure:"stream"`
	Market      MarketConfig      `mapstructure:"market"`
	Pathfinding PathfindingConfig `mapstructure:"pathfinding"`
	Strategy    StrategyConfig    `mapstructure:"strategy"`
	Trading     TradingConfig     `mapstructure:"trading"`
	Risk        RiskConfig        `mapstructure:"risk"`
	Position    PositionConfig    `mapstructure:"position"`
	Execution   ExecutionConfig   `mapstructure:"execution"`
	Monitoring  MonitoringConfig  `mapstructure:"monitoring"`
	Telemetry   TelemetryConfig   `mapstructure:"telemetry"`
	Health      HealthConfig      `mapstructure:"health"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
	TUIMode     bool   `mapstructure:"-"` // Set at runtime, not from config file
}

// EndpointConfig is one RPC endpoint. Lower priority values are tried first.
type EndpointConfig struct {
	Name     string `mapstructure:"name"`
	URL      string `mapstructure:"url"`
	Priority int    `mapstructure:"priority"`
}

// ConnectionConfig holds RPC endpoint selection and health settings.
type ConnectionConfig struct {
	RPCURL               string           `mapstructure:"rpc_url"` // shorthand for a single primary endpoint
	Endpoints            []EndpointConfig `mapstructure:"endpoints"`
	ConnectRetries       int              `mapstructure:"connect_retries"`
	BackoffBase          time.Duration    `mapstructure:"backoff_base"`
	BackoffCap           time.Duration    `mapstructure:"backoff_cap"`
	HealthInterval       time.Duration    `mapstructure:"health_interval"`
	MaxReconnectAttempts int              `mapstructure:"max_reconnect_attempts"`
	RequestTimeout       time.Duration    `mapstructure:"request_timeout"`
	RequestsPerSecond    float64          `mapstructure:"requests_per_second"`
	Burst                int              `mapstructure:"burst"`
	Commitment           string           `mapstructure:"commitment"`
}

// SortedEndpoints returns the endpoints ordered by priority, primary first.
func (c *ConnectionConfig) SortedEndpoints() []EndpointConfig {
	out := make([]EndpointConfig, 0, len(c.Endpoints)+1)
	if c.RPCURL != "" {
		out = append(out, EndpointConfig{Name: "primary", URL: c.RPCURL, Priority: -1})
	}
	out = append(out, c.Endpoints...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out
}

// StreamConfig holds the account-notification websocket settings.
type StreamConfig struct {
	URL               string        `mapstructure:"url"`
	MaxReconnects     int           `mapstructure:"max_reconnects"`
	ReconnectBase     time.Duration `mapstructure:"reconnect_base"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	MempoolURL        string        `mapstructure:"mempool_url"` // optional pending-tx feed
}

// TokenConfig describes a token mint.
type TokenConfig struct {
	Symbol   string `mapstructure:"symbol" yaml:"symbol"`
	Mint     string `mapstructure:"mint" yaml:"mint"`
	Decimals int32  `mapstructure:"decimals" yaml:"decimals"`
}

// PoolConfig describes a pool to track.
type PoolConfig struct {
	Address string `mapstructure:"address" yaml:"address"`
	TokenA  string `mapstructure:"token_a" yaml:"token_a"`
	TokenB  string `mapstructure:"token_b" yaml:"token_b"`
}

// MarketConfig holds the pool universe and liquidity floor.
type MarketConfig struct {
	Tokens       []TokenConfig `mapstructure:"tokens"`
	Pools        []PoolConfig  `mapstructure:"pools"`
	PoolsFile    string        `mapstructure:"pools_file"`
	MinLiquidity float64       `mapstructure:"min_liquidity"`
	ReloadTTL    time.Duration `mapstructure:"reload_ttl"`
}

// MinLiquidityDecimal returns the liquidity floor as decimal.Decimal.
func (c *MarketConfig) MinLiquidityDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.MinLiquidity)
}

// PathfindingConfig holds cycle search settings.
type PathfindingConfig struct {
	MaxDepth    int      `mapstructure:"max_depth"`
	MinProfit   float64  `mapstructure:"min_profit"`
	StartTokens []string `mapstructure:"start_tokens"`
}

// StrategyConfig holds strategy thresholds.
type StrategyConfig struct {
	CaptureFraction    float64       `mapstructure:"capture_fraction"`
	MinProfitThreshold float64       `mapstructure:"min_profit_threshold"`
	MinConfidence      float64       `mapstructure:"min_confidence"`
	ArbitrageThreshold float64       `mapstructure:"arbitrage_threshold"`
	SandwichEnabled    bool          `mapstructure:"sandwich_enabled"`
	MinSwapSize        float64       `mapstructure:"min_swap_size"`
	MaxBundleSize      int           `mapstructure:"max_bundle_size"`
	ScanInterval       time.Duration `mapstructure:"scan_interval"`
}

// TradingConfig holds trade sizing bounds.
type TradingConfig struct {
	MinTradeSize float64 `mapstructure:"min_trade_size"`
	MaxTradeSize float64 `mapstructure:"max_trade_size"`
	MaxSlippage  float64 `mapstructure:"max_slippage"`
}

// MinTradeSizeDecimal returns the lower size bound as decimal.Decimal.
func (c *TradingConfig) MinTradeSizeDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.MinTradeSize)
}

// MaxTradeSizeDecimal returns the upper size bound as decimal.Decimal.
func (c *TradingConfig) MaxTradeSizeDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.MaxTradeSize)
}

// RiskConfig holds admission control limits.
type RiskConfig struct {
	MinTradeInterval       time.Duration `mapstructure:"min_trade_interval"`
	MaxConsecutiveLosses   int           `mapstructure:"max_consecutive_losses"`
	MaxDailyLossPercentage float64       `mapstructure:"max_daily_loss_percentage"`
	Cooldown               time.Duration `mapstructure:"cooldown"`
}

// PositionConfig holds monitor decision thresholds.
type PositionConfig struct {
	MonitorInterval  time.Duration `mapstructure:"monitor_interval"`
	TargetProfit     float64       `mapstructure:"target_profit"`
	StopLoss         float64       `mapstructure:"stop_loss"`
	MaxRisk          float64       `mapstructure:"max_risk"`
	MaxLossThreshold float64       `mapstructure:"max_loss_threshold"`
	MaxRiskThreshold float64       `mapstructure:"max_risk_threshold"`
	AdjustFraction   float64       `mapstructure:"adjust_fraction"`
	MaxHold          time.Duration `mapstructure:"max_hold"`
}

// ExecutionConfig holds submission limits.
type ExecutionConfig struct {
	MaxTransactionSize  float64       `mapstructure:"max_transaction_size"`
	DailyLimit          float64       `mapstructure:"daily_limit"`
	MaxRetries          int           `mapstructure:"max_retries"`
	RetryDelay          time.Duration `mapstructure:"retry_delay"`
	ConfirmTimeout      time.Duration `mapstructure:"confirm_timeout"`
	ConfirmPollInterval time.Duration `mapstructure:"confirm_poll_interval"`
	KeypairPath         string        `mapstructure:"keypair_path"`
	ProgramID           string        `mapstructure:"program_id"`
	DryRun              bool          `mapstructure:"dry_run"`
}

// MonitoringConfig holds the metrics emitter settings.
type MonitoringConfig struct {
	MetricsInterval time.Duration `mapstructure:"metrics_interval"`
	RecentTrades    int           `mapstructure:"recent_trades"`
	Reporter        string        `mapstructure:"reporter"` // console | none
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	Exporter       string `mapstructure:"exporter"` // stdout | zipkin | otlp
	Endpoint       string `mapstructure:"endpoint"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
}

// HealthConfig holds the health server settings.
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables
	v.SetEnvPrefix("SNIPER")
	v.AutomaticEnv()

	bindEnvVars(v)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, apperror.New(apperror.CodeConfigurationError,
				apperror.WithContext("read config"), apperror.WithCause(err))
		}
		// Config file not found is OK, use env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("unmarshal config"), apperror.WithCause(err))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	// App
	v.BindEnv("app.name", "SNIPER_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "SNIPER_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "SNIPER_LOG_LEVEL", "LOG_LEVEL")

	// Connection
	v.BindEnv("connection.rpc_url", "SNIPER_RPC_URL", "SOLANA_RPC_URL")
	v.BindEnv("connection.commitment", "SNIPER_COMMITMENT")
	v.BindEnv("connection.requests_per_second", "SNIPER_RPC_RPS")

	// Stream
	v.BindEnv("stream.url", "SNIPER_WS_URL", "SOLANA_WS_URL")
	v.BindEnv("stream.mempool_url", "SNIPER_MEMPOOL_URL")

	// Market
	v.BindEnv("market.pools_file", "SNIPER_POOLS_FILE")
	v.BindEnv("market.min_liquidity", "SNIPER_MIN_LIQUIDITY")

	// Execution
	v.BindEnv("execution.keypair_path", "SNIPER_KEYPAIR_PATH", "SOLANA_KEYPAIR")
	v.BindEnv("execution.dry_run", "SNIPER_DRY_RUN")
	v.BindEnv("execution.daily_limit", "SNIPER_DAILY_LIMIT")

	// Telemetry
	v.BindEnv("telemetry.enabled", "SNIPER_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "SNIPER_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.endpoint", "SNIPER_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "pool-sniper")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	// Connection defaults
	v.SetDefault("connection.connect_retries", 3)
	v.SetDefault("connection.backoff_base", "1s")
	v.SetDefault("connection.backoff_cap", "10s")
	v.SetDefault("connection.health_interval", "30s")
	v.SetDefault("connection.max_reconnect_attempts", 3)
	v.SetDefault("connection.request_timeout", "30s")
	v.SetDefault("connection.requests_per_second", 20)
	v.SetDefault("connection.burst", 10)
	v.SetDefault("connection.commitment", "confirmed")

	// Stream defaults
	v.SetDefault("stream.max_reconnects", 5)
	v.SetDefault("stream.reconnect_base", "5s")
	v.SetDefault("stream.heartbeat_interval", "30s")

	// Market defaults
	v.SetDefault("market.min_liquidity", 1000)
	v.SetDefault("market.reload_ttl", "250ms")

	// Pathfinding defaults
	v.SetDefault("pathfinding.max_depth", 3)
	v.SetDefault("pathfinding.min_profit", 0.002)

	// Strategy defaults
	v.SetDefault("strategy.capture_fraction", 0.5)
	v.SetDefault("strategy.min_profit_threshold", 0.013)
	v.SetDefault("strategy.min_confidence", 0.7)
	v.SetDefault("strategy.arbitrage_threshold", 0.002)
	v.SetDefault("strategy.sandwich_enabled", false)
	v.SetDefault("strategy.min_swap_size", 10)
	v.SetDefault("strategy.max_bundle_size", 3)
	v.SetDefault("strategy.scan_interval", "1s")

	// Trading defaults
	v.SetDefault("trading.min_trade_size", 0.1)
	v.SetDefault("trading.max_trade_size", 0.3)
	v.SetDefault("trading.max_slippage", 0.003)

	// Risk defaults
	v.SetDefault("risk.min_trade_interval", "5s")
	v.SetDefault("risk.max_consecutive_losses", 3)
	v.SetDefault("risk.max_daily_loss_percentage", 0.05)
	v.SetDefault("risk.cooldown", "5m")

	// Position defaults
	v.SetDefault("position.monitor_interval", "1s")
	v.SetDefault("position.target_profit", 0.02)
	v.SetDefault("position.stop_loss", 0.01)
	v.SetDefault("position.max_risk", 0.9)
	v.SetDefault("position.max_loss_threshold", 0.005)
	v.SetDefault("position.max_risk_threshold", 0.7)
	v.SetDefault("position.adjust_fraction", 0.5)
	v.SetDefault("position.max_hold", "5m")

	// Execution defaults
	v.SetDefault("execution.max_transaction_size", 0.3)
	v.SetDefault("execution.daily_limit", 600)
	v.SetDefault("execution.max_retries", 3)
	v.SetDefault("execution.retry_delay", "500ms")
	v.SetDefault("execution.confirm_timeout", "30s")
	v.SetDefault("execution.confirm_poll_interval", "500ms")
	v.SetDefault("execution.program_id", "11111111111111111111111111111111")
	v.SetDefault("execution.dry_run", true)

	// Monitoring defaults
	v.SetDefault("monitoring.metrics_interval", "1s")
	v.SetDefault("monitoring.recent_trades", 100)
	v.SetDefault("monitoring.reporter", "console")

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "pool-sniper")
	v.SetDefault("telemetry.exporter", "stdout")
	v.SetDefault("telemetry.prometheus_port", 9090)

	// Health defaults
	v.SetDefault("health.enabled", true)
	v.SetDefault("health.port", 8081)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext(fmt.Sprintf(format, args...)))
	}

	endpoints := c.Connection.SortedEndpoints()
	if len(endpoints) == 0 {
		return invalid("connection.rpc_url or connection.endpoints is required")
	}
	for i, ep := range endpoints {
		if ep.URL == "" {
			return invalid("connection.endpoints[%d].url is required", i)
		}
	}
	if c.Stream.URL == "" {
		return invalid("stream.url is required")
	}
	if c.Connection.ConnectRetries < 1 {
		return invalid("connection.connect_retries must be >= 1")
	}
	if c.Pathfinding.MaxDepth < 2 {
		return invalid("pathfinding.max_depth must be >= 2, got %d", c.Pathfinding.MaxDepth)
	}
	if c.Trading.MinTradeSize <= 0 || c.Trading.MaxTradeSize < c.Trading.MinTradeSize {
		return invalid("trading sizes must satisfy 0 < min_trade_size <= max_trade_size")
	}
	if c.Market.MinLiquidity <= 0 {
		return invalid("market.min_liquidity must be positive")
	}
	if c.Strategy.MinConfidence < 0 || c.Strategy.MinConfidence > 1 {
		return invalid("strategy.min_confidence must be in [0,1]")
	}
	if c.Strategy.MaxBundleSize < 2 {
		return invalid("strategy.max_bundle_size must be >= 2")
	}
	if c.Position.AdjustFraction <= 0 || c.Position.AdjustFraction >= 1 {
		return invalid("position.adjust_fraction must be in (0,1)")
	}
	if c.Execution.MaxTransactionSize <= 0 || c.Execution.DailyLimit <= 0 {
		return invalid("execution limits must be positive")
	}
	if !c.Execution.DryRun && c.Execution.KeypairPath == "" {
		return invalid("execution.keypair_path is required unless dry_run is set")
	}
	return nil
}
