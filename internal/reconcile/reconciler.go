package reconcile

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"trade-governor/internal/account"
	"trade-governor/internal/metrics"
	"trade-governor/internal/monitor"
)

type walletSource interface {
	Enabled() bool
	WalletBalances(ctx context.Context) (map[string]float64, error)
}

// Result 为一次同步的结构化结果，失败时 Warning 非空且账户保持不变。
type Result struct {
	Account account.Account
	Synced  bool
	Asset   string
	Change  Change
	Warning error
}

// Reconciler 将交易所余额同步到本地账户。
type Reconciler struct {
	accounts *account.Repository
	wallet   walletSource
	rules    Rules
	monitor  *monitor.Service
	metrics  *metrics.Collector
	logger   *zap.Logger
}

// NewReconciler 创建同步器。
func NewReconciler(accounts *account.Repository, wallet walletSource, rules Rules, mon *monitor.Service, collector *metrics.Collector, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(rules.QuoteAssets) == 0 {
		rules.QuoteAssets = DefaultRules().QuoteAssets
	}
	assets := make([]string, 0, len(rules.QuoteAssets))
	for _, asset := range rules.QuoteAssets {
		assets = append(assets, strings.ToUpper(asset))
	}
	rules.QuoteAssets = assets
	return &Reconciler{
		accounts: accounts,
		wallet:   wallet,
		rules:    rules,
		monitor:  mon,
		metrics:  collector,
		logger:   logger,
	}
}

// Sync 读取钱包余额并在账户锁内原子提交；未启用交易所时直接返回当前账户。
func (r *Reconciler) Sync(ctx context.Context, accountID int64) (Result, error) {
	if r.wallet == nil || !r.wallet.Enabled() {
		acct, err := r.accounts.Get(ctx, accountID)
		if err != nil {
			return Result{}, err
		}
		return Result{Account: acct}, nil
	}

	balances, fetchErr := r.wallet.WalletBalances(ctx)

	unlock := r.accounts.Lock(accountID)
	defer unlock()

	acct, err := r.accounts.Get(ctx, accountID)
	if err != nil {
		return Result{}, err
	}

	if fetchErr != nil {
		return r.warn(ctx, acct, fetchErr), nil
	}

	asset, balance, ok := PickBalance(balances, r.rules.QuoteAssets)
	if !ok {
		return r.warn(ctx, acct, fmt.Errorf("reconcile: 钱包中没有计价资产 %v", r.rules.QuoteAssets)), nil
	}

	updated, change := ApplyWalletBalance(acct, balance, r.rules)
	if err := r.accounts.Save(ctx, updated); err != nil {
		return r.warn(ctx, acct, fmt.Errorf("reconcile: 保存同步结果失败: %w", err)), nil
	}

	if change.FirstSync {
		r.logger.Info("首次同步，直接采用交易所余额",
			zap.Int64("account_id", acct.ID),
			zap.Float64("balance", balance),
		)
	}
	if change.Clamped {
		r.logger.Warn("日亏损异常偏大，已清零", zap.Int64("account_id", acct.ID))
	}
	if change.LimitAdjusted {
		r.logger.Info("小账户自动下调日亏损上限",
			zap.Int64("account_id", acct.ID),
			zap.Float64("max_daily_loss", updated.MaxDailyLoss),
		)
	}

	r.monitor.RecordSync(ctx, monitor.SyncPayload{
		AccountID:       acct.ID,
		PreviousBalance: change.PreviousBalance,
		Balance:         updated.Balance,
		DailyLoss:       updated.CurrentDailyLoss,
		MaxDailyLoss:    updated.MaxDailyLoss,
		FirstSync:       change.FirstSync,
		Clamped:         change.Clamped,
		LimitAdjusted:   change.LimitAdjusted,
	})
	r.metrics.ObserveSync(true)

	return Result{
		Account: updated,
		Synced:  true,
		Asset:   asset,
		Change:  change,
	}, nil
}

func (r *Reconciler) warn(ctx context.Context, acct account.Account, cause error) Result {
	r.logger.Warn("账户同步失败，保持本地状态", zap.Int64("account_id", acct.ID), zap.Error(cause))
	r.monitor.RecordSync(ctx, monitor.SyncPayload{
		AccountID:       acct.ID,
		PreviousBalance: acct.Balance,
		Balance:         acct.Balance,
		DailyLoss:       acct.CurrentDailyLoss,
		MaxDailyLoss:    acct.MaxDailyLoss,
		Warning:         cause.Error(),
	})
	r.metrics.ObserveSync(false)

	return Result{Account: acct, Warning: cause}
}
