package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"trade-governor/internal/app"
	"trade-governor/internal/config"
	"trade-governor/internal/log"
	"trade-governor/internal/store"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "governor",
	Short: "Trading discipline governor",
	Long: `Governor keeps a single trading account inside its daily risk limits.

It validates every proposed trade against the daily loss cap, the trade count
cap and the stop distance sanity check before forwarding it to the exchange,
and records trade and journal history.`,
	SilenceUsage: true,
}

// Execute 执行根命令。
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "配置文件路径，默认使用 configs/config.yaml")
}

type session struct {
	cfg    *config.Config
	logger *zap.Logger
	store  *store.Store
	app    *app.App
}

// bootstrap 加载配置并构造应用，调用方负责 close。
func bootstrap() (*session, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("加载配置失败: %w", err)
	}

	logger, err := log.NewLogger(cfg.App, cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("初始化日志失败: %w", err)
	}

	sqliteStore, err := store.NewSQLite(cfg.Database)
	if err != nil {
		_ = logger.Sync()
		return nil, fmt.Errorf("初始化数据库失败: %w", err)
	}

	governor, err := app.New(cfg, logger, sqliteStore)
	if err != nil {
		_ = sqliteStore.Close()
		_ = logger.Sync()
		return nil, err
	}

	return &session{cfg: cfg, logger: logger, store: sqliteStore, app: governor}, nil
}

func (r *session) close() {
	if err := r.store.Close(); err != nil {
		r.logger.Warn("关闭数据库失败", zap.Error(err))
	}
	_ = r.logger.Sync()
}
