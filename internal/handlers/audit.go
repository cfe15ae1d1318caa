package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/eventdesk/eventdesk/internal/repo"
)

// AuditHandler exposes the audit log.
type AuditHandler struct {
	Repo *repo.AuditRepo
}

// ListAudit returns recent audit entries (query: limit, offset).
func (h *AuditHandler) ListAudit(w http.ResponseWriter, r *http.Request) {
	limit := 50
	offset := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		if n, err := strconv.Atoi(o); err == nil && n >= 0 {
			offset = n
		}
	}

	entries, err := h.Repo.List(r.Context(), limit, offset)
	if err != nil {
		slog.Error("list audit", "error", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"items":  entries,
		"limit":  limit,
		"offset": offset,
	})
}
