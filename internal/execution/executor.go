package execution

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"trade-governor/internal/account"
	"trade-governor/internal/exchange"
	"trade-governor/internal/metrics"
	"trade-governor/internal/monitor"
	"trade-governor/internal/risk"
	"trade-governor/internal/store"
	"trade-governor/internal/trade"
)

type orderGateway interface {
	MarkPrice(ctx context.Context, symbol string) float64
	PlaceOrder(ctx context.Context, req exchange.OrderRequest) (exchange.OrderResult, error)
}

// Deps 为执行器依赖的组件。
type Deps struct {
	Store     *store.Store
	Accounts  *account.Repository
	Trades    *trade.Repository
	Validator *risk.Validator
	Gateway   orderGateway
	Monitor   *monitor.Service
	Metrics   *metrics.Collector
}

// Options 控制下单参数。
type Options struct {
	DefaultOrderType trade.OrderType
	IntegerLots      bool
	OrderTimeout     time.Duration
}

// Executor 负责 定价 → 校验 → 下单 → 记录 的完整流程。
type Executor struct {
	deps   Deps
	opts   Options
	logger *zap.Logger
	newID  func() string
}

// NewExecutor 创建执行器。
func NewExecutor(deps Deps, opts Options, logger *zap.Logger) (*Executor, error) {
	switch {
	case deps.Store == nil:
		return nil, errors.New("execution: store 不能为空")
	case deps.Accounts == nil:
		return nil, errors.New("execution: 账户仓储不能为空")
	case deps.Trades == nil:
		return nil, errors.New("execution: 交易仓储不能为空")
	case deps.Gateway == nil:
		return nil, errors.New("execution: 交易所网关不能为空")
	}
	if deps.Validator == nil {
		deps.Validator = risk.NewValidator(risk.DefaultRules())
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	opts.DefaultOrderType = trade.OrderType(strings.ToUpper(string(opts.DefaultOrderType)))
	if opts.DefaultOrderType != trade.OrderTypeMarket {
		opts.DefaultOrderType = trade.OrderTypeLimit
	}

	return &Executor{
		deps:   deps,
		opts:   opts,
		logger: logger,
		newID:  func() string { return uuid.NewString() },
	}, nil
}

type quote struct {
	price float64
	stop  float64
	take  float64
}

// Validate 只做定价与风控校验，不下单也不写入。
func (e *Executor) Validate(ctx context.Context, accountID int64, req Request) (risk.ValidationResult, error) {
	req, err := req.normalize(e.opts.DefaultOrderType)
	if err != nil {
		return risk.ValidationResult{}, err
	}

	q := e.priceFor(ctx, req)
	if q.price <= 0 {
		return risk.ValidationResult{Valid: false, CanExecute: false, Reason: reasonPriceUnknown}, nil
	}

	var acctPtr *account.Account
	acct, err := e.deps.Accounts.Get(ctx, accountID)
	switch {
	case err == nil:
		acctPtr = &acct
	case errors.Is(err, account.ErrNotFound):
	default:
		return risk.ValidationResult{}, err
	}

	result := e.deps.Validator.Validate(acctPtr, req.Symbol, q.price, q.stop, req.Quantity)
	e.observeValidation(ctx, accountID, req, q, result, true)
	return result, nil
}

// Execute 在账户锁内重新校验并下单，成功后在同一事务中记录交易并累加当日次数。
func (e *Executor) Execute(ctx context.Context, accountID int64, req Request) (trade.Trade, error) {
	req, err := req.normalize(e.opts.DefaultOrderType)
	if err != nil {
		return trade.Trade{}, err
	}

	q := e.priceFor(ctx, req)
	if q.price <= 0 {
		e.logger.Warn("无法获取执行价格", zap.String("symbol", req.Symbol))
		return trade.Trade{}, ErrPriceUnavailable
	}

	unlock := e.deps.Accounts.Lock(accountID)
	defer unlock()

	acct, err := e.deps.Accounts.Get(ctx, accountID)
	if err != nil {
		return trade.Trade{}, err
	}

	result := e.deps.Validator.Validate(&acct, req.Symbol, q.price, q.stop, req.Quantity)
	size := req.Quantity
	if result.Valid && e.opts.IntegerLots {
		size = math.Floor(size)
		if size < 1 {
			result = risk.ValidationResult{Valid: false, CanExecute: false, Reason: reasonZeroSize}
		}
	}
	e.observeValidation(ctx, accountID, req, q, result, false)
	if !result.Valid {
		e.logger.Info("交易被风控拒绝",
			zap.Int64("account_id", accountID),
			zap.String("symbol", req.Symbol),
			zap.String("reason", result.Reason),
		)
		return trade.Trade{}, &RejectionError{Result: result}
	}

	order := exchange.OrderRequest{
		Symbol:        req.Symbol,
		Side:          exchange.SideBuy,
		Type:          exchange.OrderTypeMarket,
		Amount:        size,
		ClientOrderID: e.newID(),
	}
	if trade.Side(req.Side) == trade.SideShort {
		order.Side = exchange.SideSell
	}
	if req.OrderType == string(trade.OrderTypeLimit) && req.limitPrice() > 0 {
		order.Type = exchange.OrderTypeLimit
		order.Price = req.limitPrice()
	}

	payload := monitor.ExecutionPayload{
		AccountID:     accountID,
		Symbol:        req.Symbol,
		Side:          req.Side,
		OrderType:     string(order.Type),
		Size:          size,
		Price:         q.price,
		ClientOrderID: order.ClientOrderID,
	}

	placeCtx := ctx
	if e.opts.OrderTimeout > 0 {
		var cancel context.CancelFunc
		placeCtx, cancel = context.WithTimeout(ctx, e.opts.OrderTimeout)
		defer cancel()
	}

	start := time.Now()
	placed, err := e.deps.Gateway.PlaceOrder(placeCtx, order)
	e.deps.Metrics.ObserveExecution(err == nil, time.Since(start))
	if err != nil {
		var execErr *exchange.ExecutionError
		if !errors.As(err, &execErr) {
			execErr = &exchange.ExecutionError{Op: "place_order", Err: err}
		}
		payload.Error = execErr.Error()
		e.deps.Monitor.RecordExecutionFailure(ctx, payload)
		e.logger.Error("下单失败",
			zap.String("symbol", req.Symbol),
			zap.String("client_order_id", order.ClientOrderID),
			zap.Error(execErr),
		)
		return trade.Trade{}, execErr
	}

	impact := e.deps.Validator.Rules().RiskImpact(req.Symbol, q.price, q.stop, size)

	record := trade.Trade{
		AccountID:     accountID,
		Symbol:        req.Symbol,
		Side:          trade.Side(req.Side),
		OrderType:     trade.OrderType(req.OrderType),
		Quantity:      size,
		EntryPrice:    q.price,
		StopLoss:      q.stop,
		TakeProfit:    q.take,
		RiskAmount:    impact.Total,
		EntryTime:     time.Now().UTC(),
		Status:        trade.StatusOpen,
		Tags:          []string{},
		OrderID:       placed.ID,
		ClientOrderID: order.ClientOrderID,
	}

	err = e.deps.Store.WithTx(ctx, func(tx *sql.Tx) error {
		if err := e.deps.Trades.InsertTx(ctx, tx, &record); err != nil {
			return err
		}
		return e.deps.Accounts.IncrementTradesTx(ctx, tx, accountID)
	})
	if err != nil {
		e.deps.Monitor.RecordError(ctx, "订单已提交但记录失败", err, map[string]interface{}{
			"order_id":        placed.ID,
			"client_order_id": order.ClientOrderID,
			"symbol":          req.Symbol,
		})
		e.logger.Error("订单已提交但记录失败",
			zap.String("order_id", placed.ID),
			zap.String("client_order_id", order.ClientOrderID),
			zap.Error(err),
		)
		return trade.Trade{}, fmt.Errorf("execution: 记录交易失败: %w", err)
	}

	payload.TradeID = record.ID
	payload.OrderID = placed.ID
	e.deps.Monitor.RecordExecution(ctx, payload)
	e.logger.Info("交易已执行",
		zap.Int64("trade_id", record.ID),
		zap.String("symbol", record.Symbol),
		zap.String("side", string(record.Side)),
		zap.Float64("size", size),
		zap.Float64("entry", q.price),
		zap.Float64("stop", q.stop),
		zap.String("order_id", placed.ID),
	)

	return record, nil
}

// priceFor 按下单类型确定参考价格并换算止损止盈。
func (e *Executor) priceFor(ctx context.Context, req Request) quote {
	var q quote
	if req.OrderType == string(trade.OrderTypeLimit) && req.limitPrice() > 0 {
		q.price = req.limitPrice()
	} else {
		q.price = e.deps.Gateway.MarkPrice(ctx, req.Symbol)
	}
	if q.price > 0 {
		q.stop, q.take = protectionPrices(trade.Side(req.Side), q.price, req.SLPercent, req.TPPercent)
	}
	return q
}

func (e *Executor) observeValidation(ctx context.Context, accountID int64, req Request, q quote, result risk.ValidationResult, dryRun bool) {
	impact := e.deps.Validator.Rules().RiskImpact(req.Symbol, q.price, q.stop, req.Quantity)
	e.deps.Metrics.ObserveValidation(result.Valid, impact.Total)
	e.deps.Monitor.RecordValidation(ctx, monitor.ValidationPayload{
		AccountID:  accountID,
		Symbol:     req.Symbol,
		Side:       req.Side,
		Quantity:   req.Quantity,
		EntryPrice: q.price,
		StopLoss:   q.stop,
		RiskAmount: impact.Total,
		Valid:      result.Valid,
		Reason:     result.Reason,
		DryRun:     dryRun,
	})
}
