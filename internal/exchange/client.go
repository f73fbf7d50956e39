package exchange

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	ccxt "github.com/ccxt/ccxt/go/v4"
	"go.uber.org/zap"

	"trade-governor/internal/config"
)

type venueAPI interface {
	FetchTicker(symbol string, options ...ccxt.FetchTickerOptions) (ccxt.Ticker, error)
	FetchBalance(params ...interface{}) (ccxt.Balances, error)
	CreateMarketOrder(symbol string, side string, amount float64, options ...ccxt.CreateMarketOrderOptions) (ccxt.Order, error)
	CreateLimitOrder(symbol string, side string, amount float64, price float64, options ...ccxt.CreateLimitOrderOptions) (ccxt.Order, error)
}

// Client 封装 ccxt 交易所，只读请求带重试，下单不重试。
type Client struct {
	cfg         config.ExchangeConfig
	logger      *zap.Logger
	api         venueAPI
	loadMarkets func() error

	marketsMu     sync.Mutex
	marketsLoaded bool
}

var _ Gateway = (*Client)(nil)

// NewClient 按配置的交易所名称构造客户端。
func NewClient(cfg config.ExchangeConfig, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	userConfig := map[string]interface{}{
		"enableRateLimit": true,
		"timeout":         cfg.Timeout.Milliseconds(),
	}
	if cfg.APIKey != "" {
		userConfig["apiKey"] = cfg.APIKey
	}
	if cfg.APISecret != "" {
		userConfig["secret"] = cfg.APISecret
	}
	if cfg.APIPass != "" {
		userConfig["password"] = cfg.APIPass
	}

	api, loader, err := newVenue(cfg.Name, userConfig, cfg.UseSandbox)
	if err != nil {
		return nil, err
	}

	return newClient(cfg, api, loader, logger), nil
}

func newClient(cfg config.ExchangeConfig, api venueAPI, loader func() error, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loader == nil {
		loader = func() error { return nil }
	}
	return &Client{
		cfg:         cfg,
		logger:      logger.With(zap.String("exchange", cfg.Name)),
		api:         api,
		loadMarkets: loader,
	}
}

func newVenue(name string, userConfig map[string]interface{}, sandbox bool) (venueAPI, func() error, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "delta":
		ex := ccxt.NewDelta(userConfig)
		if sandbox {
			ex.SetSandboxMode(true)
		}
		return ex, func() error { _, err := ex.LoadMarkets(); return err }, nil
	case "binanceusdm":
		userConfig["options"] = map[string]interface{}{
			"adjustForTimeDifference": true,
			"defaultType":             "future",
		}
		ex := ccxt.NewBinanceusdm(userConfig)
		if sandbox {
			ex.SetSandboxMode(true)
		}
		return ex, func() error { _, err := ex.LoadMarkets(); return err }, nil
	case "hyperliquid":
		ex := ccxt.NewHyperliquid(userConfig)
		if sandbox {
			ex.SetSandboxMode(true)
		}
		return ex, func() error { _, err := ex.LoadMarkets(); return err }, nil
	default:
		return nil, nil, fmt.Errorf("exchange: 不支持的交易所 %q", name)
	}
}

// Enabled 判断是否配置了交易凭证。
func (c *Client) Enabled() bool {
	return c.cfg.Enabled()
}

// MarkPrice 返回标记价格，任何失败都返回 0。
func (c *Client) MarkPrice(ctx context.Context, symbol string) float64 {
	var ticker ccxt.Ticker
	err := c.callWithRetry(ctx, "fetch_ticker", func() error {
		if err := c.ensureMarketsLoaded(ctx); err != nil {
			return err
		}
		result, err := c.api.FetchTicker(symbol)
		if err != nil {
			return err
		}
		ticker = result
		return nil
	})
	if err != nil {
		c.logger.Warn("获取标记价格失败", zap.String("symbol", symbol), zap.Error(err))
		return 0
	}

	return tickerMarkPrice(ticker)
}

// PlaceOrder 提交委托，仅尝试一次。
func (c *Client) PlaceOrder(ctx context.Context, req OrderRequest) (OrderResult, error) {
	if !c.Enabled() {
		return OrderResult{}, &ExecutionError{Op: "place_order", Err: ErrNotConfigured}
	}
	if req.Amount <= 0 {
		return OrderResult{}, &ExecutionError{Op: "place_order", Err: fmt.Errorf("invalid amount %v", req.Amount)}
	}
	if err := ctx.Err(); err != nil {
		return OrderResult{}, &ExecutionError{Op: "place_order", Err: err}
	}
	if err := c.ensureMarketsLoaded(ctx); err != nil {
		return OrderResult{}, &ExecutionError{Op: "load_markets", Err: err}
	}

	params := map[string]interface{}{}
	if req.ClientOrderID != "" {
		params["clientOrderId"] = req.ClientOrderID
	}

	start := time.Now()
	var (
		order ccxt.Order
		err   error
	)
	switch req.Type {
	case OrderTypeLimit:
		order, err = c.api.CreateLimitOrder(req.Symbol, string(req.Side), req.Amount, req.Price,
			ccxt.WithCreateLimitOrderParams(params))
	case OrderTypeMarket:
		order, err = c.api.CreateMarketOrder(req.Symbol, string(req.Side), req.Amount,
			ccxt.WithCreateMarketOrderParams(params))
	default:
		return OrderResult{}, &ExecutionError{Op: "place_order", Err: fmt.Errorf("unsupported order type %q", req.Type)}
	}
	if err != nil {
		normalized, _ := c.classifyError(err)
		c.logger.Error("下单失败",
			zap.String("symbol", req.Symbol),
			zap.String("side", string(req.Side)),
			zap.String("type", string(req.Type)),
			zap.Float64("amount", req.Amount),
			zap.String("client_order_id", req.ClientOrderID),
			zap.Duration("latency", time.Since(start)),
			zap.Error(normalized),
		)
		return OrderResult{}, &ExecutionError{Op: "place_order", Err: normalized}
	}

	result := convertOrder(order)
	if result.ClientOrderID == "" {
		result.ClientOrderID = req.ClientOrderID
	}

	c.logger.Info("委托已提交",
		zap.String("symbol", req.Symbol),
		zap.String("order_id", result.ID),
		zap.String("status", result.Status),
		zap.Duration("latency", time.Since(start)),
	)

	return result, nil
}

// WalletBalances 返回各资产的钱包余额。
func (c *Client) WalletBalances(ctx context.Context) (map[string]float64, error) {
	if !c.Enabled() {
		return nil, &SyncError{Op: "fetch_balance", Err: ErrNotConfigured}
	}

	var raw ccxt.Balances
	err := c.callWithRetry(ctx, "fetch_balance", func() error {
		if err := c.ensureMarketsLoaded(ctx); err != nil {
			return err
		}
		result, err := c.api.FetchBalance()
		if err != nil {
			return err
		}
		raw = result
		return nil
	})
	if err != nil {
		return nil, &SyncError{Op: "fetch_balance", Err: err}
	}

	return convertBalances(raw), nil
}

func (c *Client) ensureMarketsLoaded(ctx context.Context) error {
	c.marketsMu.Lock()
	defer c.marketsMu.Unlock()

	if c.marketsLoaded {
		return nil
	}

	if err := c.loadMarkets(); err != nil {
		normalized, _ := c.classifyError(err)
		return normalized
	}

	c.marketsLoaded = true
	c.logger.Info("已完成市场元数据加载")
	return nil
}

func (c *Client) callWithRetry(ctx context.Context, operation string, fn func() error) error {
	attempt := 0
	delay := c.cfg.Retry.MinDelay
	if delay <= 0 {
		delay = 300 * time.Millisecond
	}
	maxDelay := c.cfg.Retry.MaxDelay
	if maxDelay <= 0 {
		maxDelay = 2 * time.Second
	}
	maxAttempts := c.cfg.Retry.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	for {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		attempt++
		start := time.Now()
		err := fn()
		duration := time.Since(start)
		if err == nil {
			if attempt > 1 {
				c.logger.Info("交易所调用重试后成功",
					zap.String("operation", operation),
					zap.Int("attempts", attempt),
					zap.Duration("latency", duration),
				)
			}
			return nil
		}

		normalizedErr, retry := c.classifyError(err)

		if errors.Is(normalizedErr, ErrMaintenance) {
			c.logger.Warn("交易所维护中",
				zap.String("operation", operation),
				zap.Error(normalizedErr),
			)
			return normalizedErr
		}

		if !retry || attempt >= maxAttempts {
			c.logger.Warn("交易所调用失败",
				zap.String("operation", operation),
				zap.Int("attempts", attempt),
				zap.Duration("latency", duration),
				zap.Error(normalizedErr),
			)
			return normalizedErr
		}

		wait := delay
		if wait > maxDelay {
			wait = maxDelay
		}

		c.logger.Warn("交易所调用失败，等待重试",
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(normalizedErr),
		)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay *= 2
		if delay > maxDelay {
			delay = maxDelay
		}
	}
}

func (c *Client) classifyError(err error) (error, bool) {
	if err == nil {
		return nil, false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err, false
	}

	var ccxtErr *ccxt.Error
	if errors.As(err, &ccxtErr) {
		if ccxtErr.Type == ccxt.OnMaintenanceErrType {
			message := strings.TrimSpace(ccxtErr.Message)
			if message == "" {
				message = "exchange under maintenance"
			}
			return fmt.Errorf("%w: %s", ErrMaintenance, message), false
		}
		return err, IsRetryable(err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return err, true
	}

	return err, false
}

func tickerMarkPrice(t ccxt.Ticker) float64 {
	for _, key := range []string{"mark_price", "markPrice", "markPx"} {
		if v := parseNumeric(t.Info[key]); v > 0 {
			return v
		}
	}
	if t.Last != nil && *t.Last > 0 {
		return *t.Last
	}
	if t.Close != nil && *t.Close > 0 {
		return *t.Close
	}
	return 0
}

func convertOrder(o ccxt.Order) OrderResult {
	result := OrderResult{Timestamp: time.Now().UTC()}
	if o.Id != nil {
		result.ID = *o.Id
	}
	if o.ClientOrderId != nil {
		result.ClientOrderID = *o.ClientOrderId
	}
	if o.Status != nil {
		result.Status = *o.Status
	}
	if o.Filled != nil {
		result.Filled = *o.Filled
	}
	if o.Average != nil {
		result.Average = *o.Average
	}
	if o.Timestamp != nil && *o.Timestamp > 0 {
		result.Timestamp = time.UnixMilli(*o.Timestamp).UTC()
	}
	return result
}

func convertBalances(b ccxt.Balances) map[string]float64 {
	out := make(map[string]float64)
	for code, total := range b.Total {
		if total != nil {
			out[strings.ToUpper(code)] = *total
		}
	}
	for code, free := range b.Free {
		key := strings.ToUpper(code)
		if _, ok := out[key]; !ok && free != nil {
			out[key] = *free
		}
	}

	// Delta 原始回报: {"result": [{"asset_symbol": "USD", "balance": "100"}]}
	if rows, ok := b.Info["result"].([]interface{}); ok {
		for _, row := range rows {
			item, ok := row.(map[string]interface{})
			if !ok {
				continue
			}
			symbol, _ := item["asset_symbol"].(string)
			if symbol == "" {
				continue
			}
			key := strings.ToUpper(symbol)
			if _, exists := out[key]; !exists {
				out[key] = parseNumeric(item["balance"])
			}
		}
	}

	return out
}

func parseNumeric(value interface{}) float64 {
	switch v := value.(type) {
	case nil:
		return 0
	case float64:
		return v
	case *float64:
		if v != nil {
			return *v
		}
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	case fmt.Stringer:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v.String()), 64); err == nil {
			return f
		}
	}
	return 0
}
