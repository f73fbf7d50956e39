package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// Router 构建路由，CORS 包裹在最外层以便处理预检请求。
func (h *Handler) Router() http.Handler {
	r := mux.NewRouter()
	r.Use(h.accessLog)

	r.HandleFunc("/health", h.HandleHealth).Methods(http.MethodGet)
	if h.opts.EnableMetrics && h.deps.Metrics != nil {
		r.Handle("/metrics", h.deps.Metrics.Handler()).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api/v1").Subrouter()

	// Account
	route(api, "/account", h.HandleGetAccount, http.MethodGet)
	api.HandleFunc("/account/lock", h.HandleLock).Methods(http.MethodPost)
	api.HandleFunc("/account/unlock", h.HandleUnlock).Methods(http.MethodPost)

	// Trades
	api.HandleFunc("/trades/validate", h.HandleValidateTrade).Methods(http.MethodPost)
	api.HandleFunc("/trades/stats", h.HandleTradeStats).Methods(http.MethodGet)
	api.HandleFunc("/trades/export/pdf", h.HandleExportPDF).Methods(http.MethodGet)
	api.HandleFunc("/trades/{id:[0-9]+}/close", h.HandleCloseTrade).Methods(http.MethodPost)
	route(api, "/trades", h.HandleCreateTrade, http.MethodPost)
	route(api, "/trades", h.HandleListTrades, http.MethodGet)

	// Journal
	route(api, "/journal", h.HandleCreateJournal, http.MethodPost)
	route(api, "/journal", h.HandleListJournal, http.MethodGet)

	// Events
	api.HandleFunc("/events", h.HandleListEvents).Methods(http.MethodGet)

	return cors(h.opts.CORSOrigins)(r)
}

// route 同时注册带与不带结尾斜杠的路径，避免 POST 被重定向。
func route(r *mux.Router, path string, fn http.HandlerFunc, method string) {
	r.HandleFunc(path, fn).Methods(method)
	r.HandleFunc(path+"/", fn).Methods(method)
}
