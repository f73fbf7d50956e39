package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"trade-governor/internal/account"
	"trade-governor/internal/ai"
	"trade-governor/internal/api"
	"trade-governor/internal/config"
	"trade-governor/internal/exchange"
	"trade-governor/internal/execution"
	"trade-governor/internal/journal"
	"trade-governor/internal/metrics"
	"trade-governor/internal/monitor"
	"trade-governor/internal/reconcile"
	"trade-governor/internal/risk"
	"trade-governor/internal/status"
	"trade-governor/internal/store"
	"trade-governor/internal/trade"
)

// App 聚合核心依赖并驱动系统生命周期。
type App struct {
	cfg    *config.Config
	logger *zap.Logger
	store  *store.Store

	accounts *account.Repository
	trades   *trade.Repository
	monitor  *monitor.Service
	metrics  *metrics.Collector
	status   *status.Service
	handler  *api.Handler
}

// New 创建 App 实例，按配置连接交易所。
func New(cfg *config.Config, logger *zap.Logger, st *store.Store) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	gw, err := exchange.NewClient(cfg.Exchange, logger)
	if err != nil {
		return nil, fmt.Errorf("初始化交易所客户端失败: %w", err)
	}
	return build(cfg, logger, st, gw)
}

func build(cfg *config.Config, logger *zap.Logger, st *store.Store, gw exchange.Gateway) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	collector := metrics.NewCollector()

	monitorSvc, err := monitor.NewService(st, logger)
	if err != nil {
		return nil, fmt.Errorf("初始化审计服务失败: %w", err)
	}

	accounts, err := account.NewRepository(st, account.Defaults{
		Balance:         cfg.Risk.DefaultBalance,
		MaxDailyLoss:    cfg.Risk.DefaultMaxDailyLoss,
		MaxTradesPerDay: cfg.Risk.DefaultMaxTradesPerDay,
	}, account.NewRollover(cfg.Risk.Location(), cfg.Risk.DailyLossResetHour), logger)
	if err != nil {
		return nil, fmt.Errorf("初始化账户仓储失败: %w", err)
	}
	accounts.SetRolloverHook(func(ctx context.Context, previous account.Account, tradingDay string) {
		monitorSvc.RecordRollover(ctx, monitor.RolloverPayload{
			AccountID:   previous.ID,
			PreviousDay: previous.LastResetDate,
			TradingDay:  tradingDay,
			DailyLoss:   previous.CurrentDailyLoss,
			TradesToday: previous.TradesTodayCount,
		})
		collector.ObserveRollover()
	})

	trades, err := trade.NewRepository(st, logger)
	if err != nil {
		return nil, fmt.Errorf("初始化交易仓储失败: %w", err)
	}

	validator := risk.NewValidator(risk.Rules{
		MinStopDistance: cfg.Risk.MinStopDistance,
		FeeRate:         cfg.Risk.FeeRate,
	})

	executor, err := execution.NewExecutor(execution.Deps{
		Store:     st,
		Accounts:  accounts,
		Trades:    trades,
		Validator: validator,
		Gateway:   gw,
		Monitor:   monitorSvc,
		Metrics:   collector,
	}, execution.Options{
		DefaultOrderType: trade.OrderType(cfg.Execution.DefaultOrderType),
		IntegerLots:      cfg.Execution.IntegerLots,
		OrderTimeout:     cfg.Exchange.Timeout,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("初始化执行器失败: %w", err)
	}

	reconciler := reconcile.NewReconciler(accounts, gw, reconcile.Rules{
		QuoteAssets:           cfg.Exchange.QuoteAssets,
		DefaultBalance:        cfg.Risk.DefaultBalance,
		DefaultMaxDailyLoss:   cfg.Risk.DefaultMaxDailyLoss,
		LossClampThreshold:    cfg.Risk.LossClampThreshold,
		SmallAccountThreshold: cfg.Risk.SmallAccountThreshold,
		SmallAccountLossRatio: cfg.Risk.SmallAccountLossRatio,
		MinDailyLossFloor:     cfg.Risk.MinDailyLossFloor,
	}, monitorSvc, collector, logger)

	coach := ai.NewCoach(cfg.OpenAI, logger)
	journalSvc, err := journal.NewService(st, coach, cfg.Journal, monitorSvc, collector, logger)
	if err != nil {
		return nil, fmt.Errorf("初始化日记服务失败: %w", err)
	}

	statusSvc, err := status.NewService(reconciler, journalSvc, trades, status.Settings{
		RiskPerTradePct:    cfg.Risk.RiskPerTradePct,
		FallbackWinRate:    cfg.Risk.FallbackWinRate,
		FallbackRewardRisk: cfg.Risk.FallbackRewardRisk,
		MinClosedTrades:    cfg.Risk.MinClosedTrades,
	}, collector, logger)
	if err != nil {
		return nil, fmt.Errorf("初始化状态服务失败: %w", err)
	}

	handler, err := api.New(api.Deps{
		Accounts: accounts,
		Trades:   trades,
		Executor: executor,
		Status:   statusSvc,
		Journal:  journalSvc,
		Monitor:  monitorSvc,
		Metrics:  collector,
	}, api.Options{
		CORSOrigins:   cfg.Server.CORSOrigins,
		JournalLimit:  cfg.Journal.ListLimit,
		EnableMetrics: cfg.Server.EnableMetrics,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("初始化 HTTP 处理器失败: %w", err)
	}

	logger.Info("系统组件已初始化",
		zap.String("environment", cfg.App.Environment),
		zap.String("exchange", cfg.Exchange.Name),
		zap.Bool("exchange_enabled", gw.Enabled()),
		zap.Bool("coach_enabled", coach.Enabled()),
	)

	return &App{
		cfg:      cfg,
		logger:   logger,
		store:    st,
		accounts: accounts,
		trades:   trades,
		monitor:  monitorSvc,
		metrics:  collector,
		status:   statusSvc,
		handler:  handler,
	}, nil
}

// Status 返回主账户状态，必要时创建账户并同步余额。
func (a *App) Status(ctx context.Context) (status.View, error) {
	acct, err := a.accounts.Ensure(ctx)
	if err != nil {
		return status.View{}, err
	}
	return a.status.Read(ctx, acct.ID)
}

// SetLocked 锁定或解锁主账户。
func (a *App) SetLocked(ctx context.Context, locked bool, source string) (account.Account, error) {
	acct, err := a.accounts.Ensure(ctx)
	if err != nil {
		return account.Account{}, err
	}
	updated, err := a.accounts.SetLocked(ctx, acct.ID, locked)
	if err != nil {
		return account.Account{}, err
	}
	a.monitor.RecordLock(ctx, monitor.LockPayload{AccountID: updated.ID, Locked: locked, Source: source})
	return updated, nil
}

// ResetDay 手动清零主账户的日内计数。
func (a *App) ResetDay(ctx context.Context) (account.Account, error) {
	acct, err := a.accounts.Ensure(ctx)
	if err != nil {
		return account.Account{}, err
	}
	updated, err := a.accounts.ResetDay(ctx, acct.ID)
	if err != nil {
		return account.Account{}, err
	}
	a.monitor.RecordRollover(ctx, monitor.RolloverPayload{
		AccountID:   updated.ID,
		PreviousDay: acct.LastResetDate,
		TradingDay:  updated.LastResetDate,
		DailyLoss:   acct.CurrentDailyLoss,
		TradesToday: acct.TradesTodayCount,
	})
	return updated, nil
}
