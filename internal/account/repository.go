package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"trade-governor/internal/store"
)

// RolloverHook 在交易日切换并清零计数后被调用，previous 为清零前的状态。
type RolloverHook func(ctx context.Context, previous Account, tradingDay string)

// Repository 负责账户持久化、交易日切换与按账户加锁。
type Repository struct {
	db       *sql.DB
	defaults Defaults
	rollover Rollover
	logger   *zap.Logger

	hookMu sync.RWMutex
	hook   RolloverHook

	locksMu sync.Mutex
	locks   map[int64]*sync.Mutex
}

// NewRepository 创建账户仓储并初始化表结构。
func NewRepository(st *store.Store, defaults Defaults, rollover Rollover, logger *zap.Logger) (*Repository, error) {
	if st == nil {
		return nil, errors.New("account: store 不能为空")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Repository{
		db:       st.DB(),
		defaults: defaults,
		rollover: rollover,
		logger:   logger,
		locks:    make(map[int64]*sync.Mutex),
	}

	if err := r.initSchema(); err != nil {
		return nil, err
	}

	return r, nil
}

func (r *Repository) initSchema() error {
	stmt := `
CREATE TABLE IF NOT EXISTS accounts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	balance REAL NOT NULL,
	max_daily_loss REAL NOT NULL,
	max_trades_per_day INTEGER NOT NULL,
	current_daily_loss REAL NOT NULL DEFAULT 0,
	trades_today_count INTEGER NOT NULL DEFAULT 0,
	locked INTEGER NOT NULL DEFAULT 0,
	last_reset_date TEXT NOT NULL,
	last_violation_time TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
`
	if _, err := r.db.Exec(stmt); err != nil {
		return fmt.Errorf("account: 初始化表失败: %w", err)
	}
	return nil
}

// Defaults 返回新建账户使用的默认值。
func (r *Repository) Defaults() Defaults {
	return r.defaults
}

// SetRolloverHook 注册交易日切换回调。
func (r *Repository) SetRolloverHook(hook RolloverHook) {
	r.hookMu.Lock()
	r.hook = hook
	r.hookMu.Unlock()
}

// Lock 获取指定账户的进程内互斥锁，返回释放函数。
func (r *Repository) Lock(id int64) func() {
	r.locksMu.Lock()
	mu, ok := r.locks[id]
	if !ok {
		mu = &sync.Mutex{}
		r.locks[id] = mu
	}
	r.locksMu.Unlock()

	mu.Lock()
	return mu.Unlock
}

// Primary 返回主账户，不存在时返回 ErrNotFound。
func (r *Repository) Primary(ctx context.Context) (Account, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `SELECT id FROM accounts ORDER BY id ASC LIMIT 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, ErrNotFound
	}
	if err != nil {
		return Account{}, fmt.Errorf("account: 查询主账户失败: %w", err)
	}
	return r.Get(ctx, id)
}

// Ensure 返回主账户，不存在时按默认值创建。
func (r *Repository) Ensure(ctx context.Context) (Account, error) {
	unlock := r.Lock(0)
	defer unlock()

	acct, err := r.Primary(ctx)
	if !errors.Is(err, ErrNotFound) {
		return acct, err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (balance, max_daily_loss, max_trades_per_day, current_daily_loss, trades_today_count, locked, last_reset_date, created_at, updated_at)
		 VALUES (?, ?, ?, 0, 0, 0, ?, ?, ?)`,
		r.defaults.Balance, r.defaults.MaxDailyLoss, r.defaults.MaxTradesPerDay, r.rollover.Today(), now, now,
	)
	if err != nil {
		return Account{}, fmt.Errorf("account: 创建账户失败: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Account{}, fmt.Errorf("account: 获取账户ID失败: %w", err)
	}

	r.logger.Info("已创建默认账户",
		zap.Int64("account_id", id),
		zap.Float64("balance", r.defaults.Balance),
		zap.Float64("max_daily_loss", r.defaults.MaxDailyLoss),
	)

	return r.Get(ctx, id)
}

// Get 读取账户；若已跨交易日则先原子清零日内计数。
func (r *Repository) Get(ctx context.Context, id int64) (Account, error) {
	acct, err := r.load(ctx, id)
	if err != nil {
		return Account{}, err
	}

	today := r.rollover.Today()
	if acct.LastResetDate == today {
		return acct, nil
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET current_daily_loss = 0, trades_today_count = 0, last_reset_date = ?, updated_at = ?
		 WHERE id = ? AND last_reset_date = ?`,
		today, time.Now().UTC().Format(time.RFC3339), id, acct.LastResetDate,
	)
	if err != nil {
		return Account{}, fmt.Errorf("account: 交易日切换失败: %w", err)
	}

	if affected, _ := res.RowsAffected(); affected == 1 {
		r.logger.Info("交易日切换，已重置日内计数",
			zap.Int64("account_id", id),
			zap.String("previous_day", acct.LastResetDate),
			zap.String("trading_day", today),
			zap.Float64("daily_loss", acct.CurrentDailyLoss),
			zap.Int("trades_today", acct.TradesTodayCount),
		)
		r.hookMu.RLock()
		hook := r.hook
		r.hookMu.RUnlock()
		if hook != nil {
			hook(ctx, acct, today)
		}
	}

	return r.load(ctx, id)
}

// Save 写回账户的可变字段。
func (r *Repository) Save(ctx context.Context, acct Account) error {
	return store.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		return r.SaveTx(ctx, tx, acct)
	})
}

// SaveTx 在事务内写回账户。
func (r *Repository) SaveTx(ctx context.Context, tx *sql.Tx, acct Account) error {
	var violation interface{}
	if acct.LastViolationTime != nil {
		violation = acct.LastViolationTime.UTC().Format(time.RFC3339)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE accounts SET balance = ?, max_daily_loss = ?, max_trades_per_day = ?, current_daily_loss = ?,
		 trades_today_count = ?, locked = ?, last_reset_date = ?, last_violation_time = ?, updated_at = ?
		 WHERE id = ?`,
		acct.Balance, acct.MaxDailyLoss, acct.MaxTradesPerDay, acct.CurrentDailyLoss,
		acct.TradesTodayCount, boolToInt(acct.Locked), acct.LastResetDate, violation,
		time.Now().UTC().Format(time.RFC3339), acct.ID,
	)
	if err != nil {
		return fmt.Errorf("account: 更新账户失败: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementTradesTx 在事务内将当日交易次数加一。
func (r *Repository) IncrementTradesTx(ctx context.Context, tx *sql.Tx, id int64) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE accounts SET trades_today_count = trades_today_count + 1, updated_at = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339), id,
	)
	if err != nil {
		return fmt.Errorf("account: 更新交易次数失败: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetLocked 设置账户锁定状态，锁定时记录违规时间。
func (r *Repository) SetLocked(ctx context.Context, id int64, locked bool) (Account, error) {
	unlock := r.Lock(id)
	defer unlock()

	acct, err := r.Get(ctx, id)
	if err != nil {
		return Account{}, err
	}

	acct.Locked = locked
	if locked {
		now := time.Now().UTC()
		acct.LastViolationTime = &now
	}

	if err := r.Save(ctx, acct); err != nil {
		return Account{}, err
	}

	r.logger.Info("账户锁定状态已更新", zap.Int64("account_id", id), zap.Bool("locked", locked))
	return r.load(ctx, id)
}

// ResetDay 手动清零日内计数并把交易日标记为今天。
func (r *Repository) ResetDay(ctx context.Context, id int64) (Account, error) {
	unlock := r.Lock(id)
	defer unlock()

	acct, err := r.load(ctx, id)
	if err != nil {
		return Account{}, err
	}

	acct.CurrentDailyLoss = 0
	acct.TradesTodayCount = 0
	acct.LastResetDate = r.rollover.Today()

	if err := r.Save(ctx, acct); err != nil {
		return Account{}, err
	}

	r.logger.Info("已手动重置日内计数", zap.Int64("account_id", id))
	return r.load(ctx, id)
}

func (r *Repository) load(ctx context.Context, id int64) (Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, balance, max_daily_loss, max_trades_per_day, current_daily_loss, trades_today_count,
		 locked, last_reset_date, last_violation_time, created_at, updated_at
		 FROM accounts WHERE id = ?`, id)

	var (
		acct      Account
		locked    int
		violation sql.NullString
		created   string
		updated   string
	)
	err := row.Scan(&acct.ID, &acct.Balance, &acct.MaxDailyLoss, &acct.MaxTradesPerDay,
		&acct.CurrentDailyLoss, &acct.TradesTodayCount, &locked, &acct.LastResetDate,
		&violation, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, ErrNotFound
	}
	if err != nil {
		return Account{}, fmt.Errorf("account: 查询账户失败: %w", err)
	}

	acct.Locked = locked == 1
	acct.CreatedAt = parseTime(created)
	acct.UpdatedAt = parseTime(updated)
	if violation.Valid && violation.String != "" {
		ts := parseTime(violation.String)
		acct.LastViolationTime = &ts
	}

	return acct, nil
}

func parseTime(value string) time.Time {
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}
	}
	return ts
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
