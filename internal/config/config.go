package config

import (
	"errors"
	"fmt"
	"strings"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	defaultConfigPath = "configs/config.yaml"
	envPrefix         = "governor"
)

// Load 读取配置文件并结合环境变量返回 Config。
// path 为空时尝试默认路径，默认文件不存在则仅使用默认值与环境变量。
func Load(path string) (*Config, error) {
	v := newViper()

	explicit := path != ""
	if !explicit {
		path = defaultConfigPath
	}

	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case errors.As(err, &notFound) || isMissingFile(err):
			if explicit {
				return nil, fmt.Errorf("未找到配置文件 %q: %w", path, err)
			}
		default:
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	return decode(v)
}

// Default 返回仅由默认值与环境变量构成的配置。
func Default() (*Config, error) {
	return decode(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func isMissingFile(err error) bool {
	return strings.Contains(err.Error(), "no such file or directory")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.name", "trade-governor")

	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "5s")
	v.SetDefault("server.cors_origins", []string{"http://localhost:5173", "http://localhost:3000"})
	v.SetDefault("server.enable_metrics", true)

	v.SetDefault("exchange.name", "delta")
	v.SetDefault("exchange.api_key", "")
	v.SetDefault("exchange.api_secret", "")
	v.SetDefault("exchange.api_password", "")
	v.SetDefault("exchange.use_sandbox", false)
	v.SetDefault("exchange.timeout", "5s")
	v.SetDefault("exchange.quote_assets", []string{"USD", "USDT"})
	v.SetDefault("exchange.retry.max_attempts", 3)
	v.SetDefault("exchange.retry.min_delay", "300ms")
	v.SetDefault("exchange.retry.max_delay", "2s")

	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", "https://generativelanguage.googleapis.com/v1beta/openai/")
	v.SetDefault("openai.model", "gemini-2.0-flash-lite")
	v.SetDefault("openai.timeout", "15s")

	v.SetDefault("risk.default_balance", 10000.0)
	v.SetDefault("risk.default_max_daily_loss", 300.0)
	v.SetDefault("risk.default_max_trades_per_day", 5)
	v.SetDefault("risk.min_stop_distance", 0.0001)
	v.SetDefault("risk.fee_rate", 0.00075)
	v.SetDefault("risk.loss_clamp_threshold", 5000.0)
	v.SetDefault("risk.small_account_threshold", 500.0)
	v.SetDefault("risk.small_account_loss_ratio", 0.10)
	v.SetDefault("risk.min_daily_loss_floor", 1.0)
	v.SetDefault("risk.timezone", "UTC")
	v.SetDefault("risk.daily_loss_reset_hour", 0)
	v.SetDefault("risk.risk_per_trade_pct", 1.0)
	v.SetDefault("risk.fallback_win_rate", 0.5)
	v.SetDefault("risk.fallback_reward_risk", 2.0)
	v.SetDefault("risk.min_closed_trades", 10)

	v.SetDefault("execution.default_order_type", "LIMIT")
	v.SetDefault("execution.integer_lots", true)

	v.SetDefault("journal.list_limit", 50)
	v.SetDefault("journal.mood_window", 20)
	v.SetDefault("journal.mood_ema_period", 5)

	v.SetDefault("database.path", "data/governor.db")
	v.SetDefault("database.max_open_conns", 4)
	v.SetDefault("database.max_idle_conns", 4)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.in_memory", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.encoding", "console")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.output_paths", []string{"stdout"})
	v.SetDefault("logging.error_output_paths", []string{"stderr"})
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
