package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/carepulse/carepulse/internal/platform"
	"github.com/carepulse/carepulse/pkg/logging"
)

const (
	defaultMessageLimit = 50
	maxMessageLimit     = 200
)

type messageLog interface {
	Recent(ctx context.Context, limit int64) ([]platform.Message, error)
}

// AdminMessagingHandler shows the receipts of recently sent text messages.
type AdminMessagingHandler struct {
	log    messageLog
	logger *logging.Logger
}

func NewAdminMessagingHandler(log messageLog, logger *logging.Logger) *AdminMessagingHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminMessagingHandler{log: log, logger: logger}
}

// ListMessages handles GET /admin/notifications/sms?limit=N.
func (h *AdminMessagingHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	limit := defaultMessageLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			jsonError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(n, maxMessageLimit)
	}
	messages, err := h.log.Recent(r.Context(), int64(limit))
	if err != nil {
		h.logger.Error("failed to list sms receipts", "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	if messages == nil {
		messages = []platform.Message{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total":    len(messages),
		"messages": messages,
	})
}
