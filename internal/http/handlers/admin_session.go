package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/carepulse/carepulse/internal/http/middleware"
	"github.com/carepulse/carepulse/pkg/logging"
	"github.com/carepulse/carepulse/pkg/passkey"
)

const adminSubject = "admin"

// AdminSessionHandler trades the admin passkey for a short-lived session token.
type AdminSessionHandler struct {
	passkey string
	secret  string
	ttl     time.Duration
	now     func() time.Time
	logger  *logging.Logger
}

type AdminSessionConfig struct {
	Passkey string
	Secret  string
	TTL     time.Duration
	Logger  *logging.Logger
}

func NewAdminSessionHandler(cfg AdminSessionConfig) *AdminSessionHandler {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 12 * time.Hour
	}
	return &AdminSessionHandler{
		passkey: cfg.Passkey,
		secret:  cfg.Secret,
		ttl:     cfg.TTL,
		now:     time.Now,
		logger:  cfg.Logger,
	}
}

type createSessionRequest struct {
	// Passkey is base64 encoded, as the browser keeps it.
	Passkey string `json:"passkey"`
}

type createSessionResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// CreateSession handles POST /admin/session.
func (h *AdminSessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Passkey == "" {
		jsonError(w, "passkey is required", http.StatusBadRequest)
		return
	}
	if !passkey.Verify(req.Passkey, h.passkey) {
		h.logger.Warn("admin passkey rejected", "remote_ip", r.RemoteAddr)
		jsonError(w, "invalid passkey", http.StatusUnauthorized)
		return
	}
	token, expires, err := middleware.IssueAdminToken(h.secret, adminSubject, h.ttl, h.now())
	if err != nil {
		h.logger.Error("failed to issue admin session", "error", err)
		jsonError(w, "admin sessions unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusCreated, createSessionResponse{Token: token, ExpiresAt: expires.UTC()})
}
