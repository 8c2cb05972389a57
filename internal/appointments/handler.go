package appointments

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/carepulse/carepulse/internal/platform"
	"github.com/carepulse/carepulse/pkg/logging"
)

// Handler exposes the appointment actions over HTTP.
type Handler struct {
	svc    *Service
	logger *logging.Logger
}

func NewHandler(svc *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

// Routes mounts the patient-facing appointment endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/appointments", h.CreateAppointment)
	r.Get("/appointments/{appointmentID}", h.GetAppointment)
}

// AdminRoutes mounts the endpoints behind the admin session. Updates text the
// patient, so they live here with the one-off SMS.
func (h *Handler) AdminRoutes(r chi.Router) {
	r.Get("/admin/appointments", h.ListRecentAppointments)
	r.Patch("/admin/appointments/{appointmentID}", h.UpdateAppointment)
	r.Post("/admin/notifications/sms", h.SendSMS)
}

// CreateAppointment handles POST /appointments.
func (h *Handler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	var req CreateAppointmentParams
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	appt, err := h.svc.CreateAppointment(r.Context(), req)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, appt)
}

// GetAppointment handles GET /appointments/{appointmentID}.
func (h *Handler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	appt, err := h.svc.GetAppointment(r.Context(), chi.URLParam(r, "appointmentID"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

// UpdateAppointment handles PATCH /admin/appointments/{appointmentID}.
func (h *Handler) UpdateAppointment(w http.ResponseWriter, r *http.Request) {
	var req UpdateAppointmentParams
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.AppointmentID = chi.URLParam(r, "appointmentID")
	appt, err := h.svc.UpdateAppointment(r.Context(), req)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

// ListRecentAppointments handles GET /admin/appointments.
func (h *Handler) ListRecentAppointments(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListRecentAppointments(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

type smsRequest struct {
	UserID  string `json:"userId"`
	Content string `json:"content"`
}

// SendSMS handles POST /admin/notifications/sms.
func (h *Handler) SendSMS(w http.ResponseWriter, r *http.Request) {
	var req smsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.UserID) == "" || strings.TrimSpace(req.Content) == "" {
		writeError(w, http.StatusBadRequest, "userId and content are required")
		return
	}
	msg, err := h.svc.SendSMSNotification(r.Context(), req.UserID, req.Content)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, msg)
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("appointment request failed", "error", err)
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, platform.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidAppointment):
		return http.StatusBadRequest
	case errors.Is(err, platform.ErrConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
