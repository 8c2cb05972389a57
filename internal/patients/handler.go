package patients

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/carepulse/carepulse/internal/platform"
	"github.com/carepulse/carepulse/pkg/logging"
)

const (
	maxMultipartMemory = 10 << 20
	patientPart        = "patient"
	documentPart       = "identificationDocument"
)

// Handler exposes the patient actions over HTTP.
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

// Routes mounts the user and patient endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/users", h.CreateUser)
	r.Get("/users/{userID}", h.GetUser)
	r.Get("/users/{userID}/patient", h.GetPatient)
	r.Post("/patients", h.RegisterPatient)
}

// CreateUser handles POST /users.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserParams
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	user, err := h.svc.CreateUser(r.Context(), req)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// GetUser handles GET /users/{userID}.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.GetUser(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// GetPatient handles GET /users/{userID}/patient.
func (h *Handler) GetPatient(w http.ResponseWriter, r *http.Request) {
	patient, err := h.svc.GetPatient(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, patient)
}

// RegisterPatient handles POST /patients. The body is multipart: a "patient"
// field holding the profile JSON and an optional "identificationDocument" file.
func (h *Handler) RegisterPatient(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, "expected multipart form")
		return
	}
	var params RegisterPatientParams
	raw := r.FormValue(patientPart)
	if strings.TrimSpace(raw) == "" {
		writeError(w, http.StatusBadRequest, "missing patient field")
		return
	}
	if err := json.Unmarshal([]byte(raw), &params.Profile); err != nil {
		writeError(w, http.StatusBadRequest, "invalid patient field")
		return
	}

	file, header, err := r.FormFile(documentPart)
	switch {
	case err == nil:
		defer file.Close()
		params.IdentificationDocument = &platform.InputFile{
			Name:        header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Body:        file,
		}
	case errors.Is(err, http.ErrMissingFile):
	default:
		writeError(w, http.StatusBadRequest, "invalid identification document")
		return
	}

	patient, err := h.svc.RegisterPatient(r.Context(), params)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, patient)
}

// fail maps err onto a status code; server-side failures are logged.
func (h *Handler) fail(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("patient request failed", "error", err)
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrPatientNotFound), errors.Is(err, platform.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidPatient), errors.Is(err, ErrInvalidUser):
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
