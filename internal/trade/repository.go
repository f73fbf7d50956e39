package trade

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"trade-governor/internal/store"
)

const tradeColumns = `id, account_id, symbol, side, order_type, quantity, entry_price, stop_loss, take_profit,
	risk_amount, exit_price, pnl, r_multiple, entry_time, exit_time, status, tags, order_id, client_order_id`

// Repository 负责交易记录的持久化。
type Repository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRepository 创建交易仓储并初始化表结构。
func NewRepository(st *store.Store, logger *zap.Logger) (*Repository, error) {
	if st == nil {
		return nil, errors.New("trade: store 不能为空")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Repository{db: st.DB(), logger: logger}
	if err := r.initSchema(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Repository) initSchema() error {
	stmt := `
CREATE TABLE IF NOT EXISTS trades (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	account_id INTEGER NOT NULL,
	symbol TEXT NOT NULL,
	side TEXT NOT NULL,
	order_type TEXT NOT NULL,
	quantity REAL NOT NULL,
	entry_price REAL NOT NULL,
	stop_loss REAL NOT NULL,
	take_profit REAL NOT NULL DEFAULT 0,
	risk_amount REAL NOT NULL DEFAULT 0,
	exit_price REAL,
	pnl REAL,
	r_multiple REAL,
	entry_time TEXT NOT NULL,
	exit_time TEXT,
	status TEXT NOT NULL,
	tags TEXT NOT NULL DEFAULT '[]',
	order_id TEXT NOT NULL DEFAULT '',
	client_order_id TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_trades_account ON trades(account_id, id);
CREATE INDEX IF NOT EXISTS idx_trades_symbol ON trades(symbol);
`
	if _, err := r.db.Exec(stmt); err != nil {
		return fmt.Errorf("trade: 初始化表失败: %w", err)
	}
	return nil
}

// InsertTx 在事务内写入交易并回填 ID。
func (r *Repository) InsertTx(ctx context.Context, tx *sql.Tx, t *Trade) error {
	if t.EntryTime.IsZero() {
		t.EntryTime = time.Now().UTC()
	}
	if t.Status == "" {
		t.Status = StatusOpen
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}

	tags, err := json.Marshal(t.Tags)
	if err != nil {
		return fmt.Errorf("trade: 序列化标签失败: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO trades (account_id, symbol, side, order_type, quantity, entry_price, stop_loss, take_profit,
		 risk_amount, entry_time, status, tags, order_id, client_order_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.AccountID, t.Symbol, string(t.Side), string(t.OrderType), t.Quantity, t.EntryPrice, t.StopLoss,
		t.TakeProfit, t.RiskAmount, t.EntryTime.UTC().Format(time.RFC3339), string(t.Status), string(tags),
		t.OrderID, t.ClientOrderID,
	)
	if err != nil {
		return fmt.Errorf("trade: 写入交易失败: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("trade: 获取交易ID失败: %w", err)
	}
	t.ID = id
	return nil
}

// Get 读取单笔交易。
func (r *Repository) Get(ctx context.Context, id int64) (Trade, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+tradeColumns+` FROM trades WHERE id = ?`, id)
	t, err := scanTrade(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Trade{}, ErrNotFound
	}
	if err != nil {
		return Trade{}, fmt.Errorf("trade: 查询交易失败: %w", err)
	}
	return t, nil
}

// List 按时间倒序分页返回交易。
func (r *Repository) List(ctx context.Context, accountID int64, skip, limit int) ([]Trade, error) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+tradeColumns+` FROM trades WHERE account_id = ? ORDER BY id DESC LIMIT ? OFFSET ?`,
		accountID, limit, skip,
	)
	if err != nil {
		return nil, fmt.Errorf("trade: 查询交易列表失败: %w", err)
	}
	return collect(rows)
}

// ListAll 按时间正序返回账户全部交易。
func (r *Repository) ListAll(ctx context.Context, accountID int64) ([]Trade, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+tradeColumns+` FROM trades WHERE account_id = ? ORDER BY id ASC`, accountID)
	if err != nil {
		return nil, fmt.Errorf("trade: 查询交易列表失败: %w", err)
	}
	return collect(rows)
}

// ClosedPnL 按平仓顺序返回已平仓交易盈亏。
func (r *Repository) ClosedPnL(ctx context.Context, accountID int64) ([]float64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT pnl FROM trades WHERE account_id = ? AND status = ? AND pnl IS NOT NULL ORDER BY exit_time ASC, id ASC`,
		accountID, string(StatusClosed),
	)
	if err != nil {
		return nil, fmt.Errorf("trade: 查询已平仓盈亏失败: %w", err)
	}
	defer rows.Close()

	out := make([]float64, 0)
	for rows.Next() {
		var pnl float64
		if err := rows.Scan(&pnl); err != nil {
			return nil, fmt.Errorf("trade: 解析盈亏失败: %w", err)
		}
		out = append(out, pnl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("trade: 读取盈亏失败: %w", err)
	}
	return out, nil
}

// Close 以指定价格平仓，只更新交易记录本身，不触碰账户余额与日亏损。
func (r *Repository) Close(ctx context.Context, id int64, exitPrice float64) (Trade, error) {
	if exitPrice <= 0 {
		return Trade{}, ErrInvalidExit
	}

	var closed Trade
	err := store.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `SELECT `+tradeColumns+` FROM trades WHERE id = ?`, id)
		t, err := scanTrade(row)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("trade: 查询交易失败: %w", err)
		}
		if t.Status != StatusOpen {
			return ErrNotOpen
		}

		now := time.Now().UTC()
		pnl := RealizedPnL(t.Symbol, t.Side, t.Quantity, t.EntryPrice, exitPrice)
		var rMultiple interface{}
		if rm, ok := RMultiple(pnl, t.RiskAmount); ok {
			rMultiple = rm
			t.RMultiple = &rm
		}

		res, err := tx.ExecContext(ctx,
			`UPDATE trades SET exit_price = ?, pnl = ?, r_multiple = ?, exit_time = ?, status = ?
			 WHERE id = ? AND status = ?`,
			exitPrice, pnl, rMultiple, now.Format(time.RFC3339), string(StatusClosed), id, string(StatusOpen),
		)
		if err != nil {
			return fmt.Errorf("trade: 更新平仓信息失败: %w", err)
		}
		if affected, _ := res.RowsAffected(); affected == 0 {
			return ErrNotOpen
		}

		t.ExitPrice = &exitPrice
		t.PnL = &pnl
		t.ExitTime = &now
		t.Status = StatusClosed
		closed = t
		return nil
	})
	if err != nil {
		return Trade{}, err
	}

	r.logger.Info("交易已平仓",
		zap.Int64("trade_id", closed.ID),
		zap.String("symbol", closed.Symbol),
		zap.Float64("exit_price", exitPrice),
		zap.Float64("pnl", *closed.PnL),
	)
	return closed, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTrade(s scanner) (Trade, error) {
	var (
		t         Trade
		side      string
		orderType string
		status    string
		tags      string
		entryTime string
		exitPrice sql.NullFloat64
		pnl       sql.NullFloat64
		rMultiple sql.NullFloat64
		exitTime  sql.NullString
	)
	err := s.Scan(&t.ID, &t.AccountID, &t.Symbol, &side, &orderType, &t.Quantity, &t.EntryPrice,
		&t.StopLoss, &t.TakeProfit, &t.RiskAmount, &exitPrice, &pnl, &rMultiple, &entryTime, &exitTime,
		&status, &tags, &t.OrderID, &t.ClientOrderID)
	if err != nil {
		return Trade{}, err
	}

	t.Side = Side(side)
	t.OrderType = OrderType(orderType)
	t.Status = Status(status)
	t.EntryTime = parseTime(entryTime)
	if exitPrice.Valid {
		v := exitPrice.Float64
		t.ExitPrice = &v
	}
	if pnl.Valid {
		v := pnl.Float64
		t.PnL = &v
	}
	if rMultiple.Valid {
		v := rMultiple.Float64
		t.RMultiple = &v
	}
	if exitTime.Valid && exitTime.String != "" {
		ts := parseTime(exitTime.String)
		t.ExitTime = &ts
	}
	if err := json.Unmarshal([]byte(tags), &t.Tags); err != nil || t.Tags == nil {
		t.Tags = []string{}
	}

	return t, nil
}

func collect(rows *sql.Rows) ([]Trade, error) {
	defer rows.Close()

	trades := make([]Trade, 0)
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("trade: 解析交易失败: %w", err)
		}
		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("trade: 读取交易失败: %w", err)
	}
	return trades, nil
}

func parseTime(value string) time.Time {
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}
	}
	return ts
}
