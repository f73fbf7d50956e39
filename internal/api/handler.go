package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"trade-governor/internal/account"
	"trade-governor/internal/exchange"
	"trade-governor/internal/execution"
	"trade-governor/internal/journal"
	"trade-governor/internal/metrics"
	"trade-governor/internal/monitor"
	"trade-governor/internal/status"
	"trade-governor/internal/trade"
)

const (
	defaultTradeLimit = 100
	maxTradeLimit     = 1000
	defaultEventLimit = 100
)

// Deps 为 HTTP 层依赖的服务。
type Deps struct {
	Accounts *account.Repository
	Trades   *trade.Repository
	Executor *execution.Executor
	Status   *status.Service
	Journal  *journal.Service
	Monitor  *monitor.Service
	Metrics  *metrics.Collector
}

// Options 控制 HTTP 层行为。
type Options struct {
	CORSOrigins   []string
	JournalLimit  int
	EnableMetrics bool
}

// Handler 处理全部 REST 请求。
type Handler struct {
	deps   Deps
	opts   Options
	logger *zap.Logger
}

// New 创建 Handler。
func New(deps Deps, opts Options, logger *zap.Logger) (*Handler, error) {
	switch {
	case deps.Accounts == nil:
		return nil, errors.New("api: 账户仓储不能为空")
	case deps.Trades == nil:
		return nil, errors.New("api: 交易仓储不能为空")
	case deps.Executor == nil:
		return nil, errors.New("api: 执行器不能为空")
	case deps.Status == nil:
		return nil, errors.New("api: 状态服务不能为空")
	case deps.Journal == nil:
		return nil, errors.New("api: 日记服务不能为空")
	}
	if opts.JournalLimit <= 0 {
		opts.JournalLimit = 50
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{deps: deps, opts: opts, logger: logger}, nil
}

// ErrorResponse 为统一错误响应。
type ErrorResponse struct {
	Detail string `json:"detail"`
}

func (h *Handler) respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Warn("写入响应失败", zap.Error(err))
	}
}

func (h *Handler) respondError(w http.ResponseWriter, statusCode int, message string) {
	h.respondJSON(w, statusCode, ErrorResponse{Detail: message})
}

// respondFailure 将领域错误映射为 HTTP 状态码。
func (h *Handler) respondFailure(w http.ResponseWriter, r *http.Request, err error) {
	var (
		rejection *execution.RejectionError
		execErr   *exchange.ExecutionError
	)

	switch {
	case errors.As(err, &rejection):
		h.respondError(w, http.StatusBadRequest, rejection.Result.Reason)
	case errors.Is(err, execution.ErrPriceUnavailable):
		h.respondError(w, http.StatusBadRequest, "Unable to fetch price for execution validation")
	case errors.As(err, &execErr):
		h.respondError(w, http.StatusBadGateway, fmt.Sprintf("Execution Failed: %v", execErr.Err))
	case errors.Is(err, execution.ErrInvalidRequest),
		errors.Is(err, journal.ErrEmptyContent),
		errors.Is(err, trade.ErrInvalidExit):
		h.respondError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, account.ErrNotFound):
		h.respondError(w, http.StatusNotFound, "Account not found")
	case errors.Is(err, trade.ErrNotFound):
		h.respondError(w, http.StatusNotFound, "Trade not found")
	case errors.Is(err, trade.ErrNotOpen):
		h.respondError(w, http.StatusConflict, "Trade is not open")
	default:
		h.logger.Error("请求处理失败",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		h.deps.Monitor.RecordError(r.Context(), "请求处理失败", err, map[string]interface{}{
			"method": r.Method,
			"path":   r.URL.Path,
		})
		h.respondError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func decodeBody(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: 请求体解析失败: %v", execution.ErrInvalidRequest, err)
	}
	return nil
}

func queryInt(r *http.Request, key string, fallback, max int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	if max > 0 && v > max {
		return max
	}
	return v
}

// HandleHealth 返回存活状态。
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{
		"status":        "ok",
		"survival_mode": "active",
	})
}
