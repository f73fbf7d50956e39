package api

import (
	"net/http"

	"trade-governor/internal/monitor"
)

// HandleListEvents 返回审计事件。
func (h *Handler) HandleListEvents(w http.ResponseWriter, r *http.Request) {
	if h.deps.Monitor == nil {
		h.respondJSON(w, http.StatusOK, []monitor.Event{})
		return
	}

	eventType := monitor.EventType(r.URL.Query().Get("type"))
	events, err := h.deps.Monitor.ListEvents(r.Context(), eventType, queryInt(r, "limit", defaultEventLimit, 0))
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, events)
}
