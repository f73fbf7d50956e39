package api

import (
	"errors"
	"net/http"

	"trade-governor/internal/account"
	"trade-governor/internal/journal"
)

// JournalRequest 为日记提交请求。
type JournalRequest struct {
	Content string `json:"content"`
}

// HandleCreateJournal 保存日记并附带教练反馈。
func (h *Handler) HandleCreateJournal(w http.ResponseWriter, r *http.Request) {
	var req JournalRequest
	if err := decodeBody(r, &req); err != nil {
		h.respondFailure(w, r, err)
		return
	}

	acct, err := h.deps.Accounts.Ensure(r.Context())
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}

	entry, err := h.deps.Journal.Create(r.Context(), acct, req.Content)
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, entry)
}

// HandleListJournal 返回最近的日记。
func (h *Handler) HandleListJournal(w http.ResponseWriter, r *http.Request) {
	acct, err := h.deps.Accounts.Primary(r.Context())
	if errors.Is(err, account.ErrNotFound) {
		h.respondJSON(w, http.StatusOK, []journal.Entry{})
		return
	}
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}

	entries, err := h.deps.Journal.List(r.Context(), acct.ID, queryInt(r, "limit", h.opts.JournalLimit, h.opts.JournalLimit))
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, entries)
}
