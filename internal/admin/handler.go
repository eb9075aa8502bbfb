package admin

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/dialdeskhq/dialdesk-platform/internal/calls"
	"github.com/dialdeskhq/dialdesk-platform/internal/webhooklog"
	"github.com/dialdeskhq/dialdesk-platform/pkg/logging"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

// Handler exposes operator inspection endpoints over the webhook audit log
// and call records.
type Handler struct {
	logs   *webhooklog.Store
	calls  *calls.Repository
	logger *logging.Logger
}

// NewHandler creates the admin handler.
func NewHandler(logs *webhooklog.Store, callsRepo *calls.Repository, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{logs: logs, calls: callsRepo, logger: logger}
}

// ListWebhookLogs is the HTTP handler for GET /admin/webhook-logs.
func (h *Handler) ListWebhookLogs(w http.ResponseWriter, r *http.Request) {
	entries, err := h.logs.ListRecent(r.Context(), limitParam(r))
	if err != nil {
		h.logger.Error("failed to list webhook logs", "error", err)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"logs": entries})
}

// ListCalls is the HTTP handler for GET /admin/calls.
func (h *Handler) ListCalls(w http.ResponseWriter, r *http.Request) {
	records, err := h.calls.ListRecent(r.Context(), limitParam(r))
	if err != nil {
		h.logger.Error("failed to list calls", "error", err)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"calls": records})
}

func limitParam(r *http.Request) int {
	limit := defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return limit
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
