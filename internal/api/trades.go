package api

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"trade-governor/internal/account"
	"trade-governor/internal/execution"
	"trade-governor/internal/report"
	"trade-governor/internal/trade"
)

// CloseTradeRequest 为平仓请求。
type CloseTradeRequest struct {
	ExitPrice float64 `json:"exit_price"`
}

// HandleValidateTrade 只做风控校验，账户不存在时返回拒绝结果而非 404。
func (h *Handler) HandleValidateTrade(w http.ResponseWriter, r *http.Request) {
	var req execution.Request
	if err := decodeBody(r, &req); err != nil {
		h.respondFailure(w, r, err)
		return
	}

	var accountID int64
	acct, err := h.deps.Accounts.Primary(r.Context())
	switch {
	case err == nil:
		accountID = acct.ID
	case errors.Is(err, account.ErrNotFound):
	default:
		h.respondFailure(w, r, err)
		return
	}

	result, err := h.deps.Executor.Validate(r.Context(), accountID, req)
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, result)
}

// HandleCreateTrade 校验并下单。
func (h *Handler) HandleCreateTrade(w http.ResponseWriter, r *http.Request) {
	var req execution.Request
	if err := decodeBody(r, &req); err != nil {
		h.respondFailure(w, r, err)
		return
	}

	acct, err := h.deps.Accounts.Primary(r.Context())
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}

	t, err := h.deps.Executor.Execute(r.Context(), acct.ID, req)
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, t)
}

// HandleListTrades 分页返回交易，最新在前。
func (h *Handler) HandleListTrades(w http.ResponseWriter, r *http.Request) {
	trades, ok := h.primaryTrades(w, r, func(accountID int64) ([]trade.Trade, error) {
		skip := queryInt(r, "skip", 0, 0)
		limit := queryInt(r, "limit", defaultTradeLimit, maxTradeLimit)
		return h.deps.Trades.List(r.Context(), accountID, skip, limit)
	})
	if !ok {
		return
	}
	h.respondJSON(w, http.StatusOK, trades)
}

// HandleCloseTrade 以指定价格平仓。
func (h *Handler) HandleCloseTrade(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid trade id")
		return
	}

	var req CloseTradeRequest
	if err := decodeBody(r, &req); err != nil {
		h.respondFailure(w, r, err)
		return
	}

	closed, err := h.deps.Trades.Close(r.Context(), id, req.ExitPrice)
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, closed)
}

// HandleTradeStats 返回交易统计。
func (h *Handler) HandleTradeStats(w http.ResponseWriter, r *http.Request) {
	trades, ok := h.primaryTrades(w, r, func(accountID int64) ([]trade.Trade, error) {
		return h.deps.Trades.ListAll(r.Context(), accountID)
	})
	if !ok {
		return
	}
	h.respondJSON(w, http.StatusOK, report.Stats(trades))
}

// HandleExportPDF 导出交易历史 PDF。
func (h *Handler) HandleExportPDF(w http.ResponseWriter, r *http.Request) {
	acct, err := h.deps.Accounts.Primary(r.Context())
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}

	trades, err := h.deps.Trades.ListAll(r.Context(), acct.ID)
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	for i, j := 0, len(trades)-1; i < j; i, j = i+1, j-1 {
		trades[i], trades[j] = trades[j], trades[i]
	}

	var buf bytes.Buffer
	if err := report.RenderPDF(&buf, acct, trades); err != nil {
		h.respondFailure(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="trade_history.pdf"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Warn("写入 PDF 失败", zap.Error(err))
	}
}

// primaryTrades 读取主账户交易；账户不存在时返回空列表。
func (h *Handler) primaryTrades(w http.ResponseWriter, r *http.Request, load func(accountID int64) ([]trade.Trade, error)) ([]trade.Trade, bool) {
	acct, err := h.deps.Accounts.Primary(r.Context())
	if errors.Is(err, account.ErrNotFound) {
		return []trade.Trade{}, true
	}
	if err != nil {
		h.respondFailure(w, r, err)
		return nil, false
	}

	trades, err := load(acct.ID)
	if err != nil {
		h.respondFailure(w, r, err)
		return nil, false
	}
	return trades, true
}
