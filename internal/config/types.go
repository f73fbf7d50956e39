package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/multierr"
)

// Config 聚合了系统运行所需的全部配置项。
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Exchange  ExchangeConfig  `mapstructure:"exchange"`
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Risk      RiskConfig      `mapstructure:"risk"`
	Execution ExecutionConfig `mapstructure:"execution"`
	Journal   JournalConfig   `mapstructure:"journal"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// AppConfig 控制应用级参数。
type AppConfig struct {
	Environment string `mapstructure:"environment"`
	Name        string `mapstructure:"name"`
}

// ServerConfig 描述 HTTP 服务参数。
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	EnableMetrics   bool          `mapstructure:"enable_metrics"`
}

// ExchangeConfig 描述交易所连接信息。
type ExchangeConfig struct {
	Name        string        `mapstructure:"name"`
	APIKey      string        `mapstructure:"api_key"`
	APISecret   string        `mapstructure:"api_secret"`
	APIPass     string        `mapstructure:"api_password"`
	UseSandbox  bool          `mapstructure:"use_sandbox"`
	Timeout     time.Duration `mapstructure:"timeout"`
	QuoteAssets []string      `mapstructure:"quote_assets"`
	Retry       RetryConfig   `mapstructure:"retry"`
}

// Enabled 判断是否配置了交易凭证。
func (c ExchangeConfig) Enabled() bool {
	return c.APIKey != "" && c.APISecret != ""
}

// RetryConfig 统一控制只读请求的重试机制。
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	MinDelay    time.Duration `mapstructure:"min_delay"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
}

// OpenAIConfig 描述大模型调用参数，兼容 OpenAI 协议的任意端点。
type OpenAIConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// RiskConfig 管理风控参数与账户默认值。
type RiskConfig struct {
	DefaultBalance         float64 `mapstructure:"default_balance"`
	DefaultMaxDailyLoss    float64 `mapstructure:"default_max_daily_loss"`
	DefaultMaxTradesPerDay int     `mapstructure:"default_max_trades_per_day"`

	MinStopDistance float64 `mapstructure:"min_stop_distance"`
	FeeRate         float64 `mapstructure:"fee_rate"`

	LossClampThreshold    float64 `mapstructure:"loss_clamp_threshold"`
	SmallAccountThreshold float64 `mapstructure:"small_account_threshold"`
	SmallAccountLossRatio float64 `mapstructure:"small_account_loss_ratio"`
	MinDailyLossFloor     float64 `mapstructure:"min_daily_loss_floor"`

	Timezone           string `mapstructure:"timezone"`
	DailyLossResetHour int    `mapstructure:"daily_loss_reset_hour"`

	RiskPerTradePct    float64 `mapstructure:"risk_per_trade_pct"`
	FallbackWinRate    float64 `mapstructure:"fallback_win_rate"`
	FallbackRewardRisk float64 `mapstructure:"fallback_reward_risk"`
	MinClosedTrades    int     `mapstructure:"min_closed_trades"`
}

// Location 解析风控时区，非法时回退到 UTC。
func (c RiskConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ExecutionConfig 控制下单行为。
type ExecutionConfig struct {
	DefaultOrderType string `mapstructure:"default_order_type"`
	IntegerLots      bool   `mapstructure:"integer_lots"`
}

// JournalConfig 控制交易日记。
type JournalConfig struct {
	ListLimit     int `mapstructure:"list_limit"`
	MoodWindow    int `mapstructure:"mood_window"`
	MoodEMAPeriod int `mapstructure:"mood_ema_period"`
}

// DatabaseConfig 管理数据库连接。
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	InMemory        bool          `mapstructure:"in_memory"`
}

// LoggingConfig 控制日志输出。
type LoggingConfig struct {
	Level            string   `mapstructure:"level"`
	Encoding         string   `mapstructure:"encoding"`
	Development      bool     `mapstructure:"development"`
	OutputPaths      []string `mapstructure:"output_paths"`
	ErrorOutputPaths []string `mapstructure:"error_output_paths"`
}

// Validate 对配置进行基本校验。
func (c *Config) Validate() error {
	var err error

	if c.App.Environment == "" {
		err = multierr.Append(err, errors.New("app.environment 不能为空"))
	}
	if c.Server.Addr == "" {
		err = multierr.Append(err, errors.New("server.addr 不能为空"))
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 {
		err = multierr.Append(err, errors.New("server 读写超时必须大于0"))
	}
	if c.Exchange.Name == "" {
		err = multierr.Append(err, errors.New("exchange.name 不能为空"))
	}
	if c.Exchange.Timeout <= 0 {
		err = multierr.Append(err, errors.New("exchange.timeout 必须大于0"))
	}
	if len(c.Exchange.QuoteAssets) == 0 {
		err = multierr.Append(err, errors.New("exchange.quote_assets 至少包含一个币种"))
	}
	if c.Exchange.Retry.MaxAttempts <= 0 {
		err = multierr.Append(err, errors.New("exchange.retry.max_attempts 必须大于0"))
	}
	if c.Exchange.Retry.MinDelay <= 0 || c.Exchange.Retry.MaxDelay <= 0 {
		err = multierr.Append(err, errors.New("exchange.retry.delay 必须为正"))
	}
	if c.Exchange.Retry.MinDelay > c.Exchange.Retry.MaxDelay {
		err = multierr.Append(err, errors.New("exchange.retry.min_delay 不能大于 max_delay"))
	}
	if c.OpenAI.Model == "" {
		err = multierr.Append(err, errors.New("openai.model 不能为空"))
	}
	if c.OpenAI.Timeout <= 0 {
		err = multierr.Append(err, errors.New("openai.timeout 必须大于0"))
	}
	if c.Risk.DefaultBalance <= 0 {
		err = multierr.Append(err, errors.New("risk.default_balance 必须大于0"))
	}
	if c.Risk.DefaultMaxDailyLoss <= 0 {
		err = multierr.Append(err, errors.New("risk.default_max_daily_loss 必须大于0"))
	}
	if c.Risk.DefaultMaxTradesPerDay <= 0 {
		err = multierr.Append(err, errors.New("risk.default_max_trades_per_day 必须大于0"))
	}
	if c.Risk.MinStopDistance < 0 || c.Risk.MinStopDistance >= 1 {
		err = multierr.Append(err, errors.New("risk.min_stop_distance 必须位于[0,1)"))
	}
	if c.Risk.FeeRate < 0 || c.Risk.FeeRate > 0.01 {
		err = multierr.Append(err, errors.New("risk.fee_rate 必须位于[0,0.01]"))
	}
	if c.Risk.LossClampThreshold <= 0 {
		err = multierr.Append(err, errors.New("risk.loss_clamp_threshold 必须大于0"))
	}
	if c.Risk.SmallAccountLossRatio <= 0 || c.Risk.SmallAccountLossRatio > 1 {
		err = multierr.Append(err, errors.New("risk.small_account_loss_ratio 必须位于(0,1]"))
	}
	if c.Risk.DailyLossResetHour < 0 || c.Risk.DailyLossResetHour > 23 {
		err = multierr.Append(err, errors.New("risk.daily_loss_reset_hour 必须位于[0,23]"))
	}
	if c.Risk.Timezone != "" {
		if _, locErr := time.LoadLocation(c.Risk.Timezone); locErr != nil {
			err = multierr.Append(err, fmt.Errorf("risk.timezone 无法解析: %w", locErr))
		}
	}
	if c.Risk.FallbackWinRate <= 0 || c.Risk.FallbackWinRate > 1 {
		err = multierr.Append(err, errors.New("risk.fallback_win_rate 必须位于(0,1]"))
	}
	if c.Risk.FallbackRewardRisk <= 0 {
		err = multierr.Append(err, errors.New("risk.fallback_reward_risk 必须大于0"))
	}
	switch strings.ToUpper(c.Execution.DefaultOrderType) {
	case "MARKET", "LIMIT":
	default:
		err = multierr.Append(err, fmt.Errorf("execution.default_order_type 取值非法: %s", c.Execution.DefaultOrderType))
	}
	if c.Journal.ListLimit <= 0 {
		err = multierr.Append(err, errors.New("journal.list_limit 必须大于0"))
	}
	if c.Journal.MoodEMAPeriod < 2 {
		err = multierr.Append(err, errors.New("journal.mood_ema_period 不能小于2"))
	}
	if c.Journal.MoodWindow < c.Journal.MoodEMAPeriod {
		err = multierr.Append(err, errors.New("journal.mood_window 不应小于 mood_ema_period"))
	}
	if c.Database.Path == "" && !c.Database.InMemory {
		err = multierr.Append(err, errors.New("database.path 不能为空"))
	}
	if c.Database.MaxOpenConns <= 0 {
		err = multierr.Append(err, errors.New("database.max_open_conns 必须大于0"))
	}
	if c.Database.MaxIdleConns < 0 {
		err = multierr.Append(err, errors.New("database.max_idle_conns 不能为负"))
	}
	if c.Database.ConnMaxLifetime < 0 {
		err = multierr.Append(err, errors.New("database.conn_max_lifetime 不能为负"))
	}
	if c.Logging.Level == "" {
		err = multierr.Append(err, errors.New("logging.level 不能为空"))
	}
	if c.Logging.Encoding == "" {
		err = multierr.Append(err, errors.New("logging.encoding 不能为空"))
	}
	if len(c.Logging.OutputPaths) == 0 {
		err = multierr.Append(err, errors.New("logging.output_paths 至少包含一个输出目标"))
	}
	if len(c.Logging.ErrorOutputPaths) == 0 {
		err = multierr.Append(err, errors.New("logging.error_output_paths 至少包含一个输出目标"))
	}

	if err != nil {
		return fmt.Errorf("配置校验失败: %w", err)
	}

	return nil
}
