package api

import (
	"net/http"

	"trade-governor/internal/monitor"
)

// HandleGetAccount 返回账户状态，必要时创建默认账户并同步余额。
func (h *Handler) HandleGetAccount(w http.ResponseWriter, r *http.Request) {
	acct, err := h.deps.Accounts.Ensure(r.Context())
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}

	view, err := h.deps.Status.Read(r.Context(), acct.ID)
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, view)
}

// HandleLock 手动锁定账户。
func (h *Handler) HandleLock(w http.ResponseWriter, r *http.Request) {
	h.setLocked(w, r, true)
}

// HandleUnlock 解除账户锁定。
func (h *Handler) HandleUnlock(w http.ResponseWriter, r *http.Request) {
	h.setLocked(w, r, false)
}

func (h *Handler) setLocked(w http.ResponseWriter, r *http.Request, locked bool) {
	acct, err := h.deps.Accounts.Primary(r.Context())
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}

	updated, err := h.deps.Accounts.SetLocked(r.Context(), acct.ID, locked)
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}

	h.deps.Monitor.RecordLock(r.Context(), monitor.LockPayload{
		AccountID: updated.ID,
		Locked:    locked,
		Source:    "api",
	})
	h.respondJSON(w, http.StatusOK, updated)
}
