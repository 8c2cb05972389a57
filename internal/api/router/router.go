package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/carepulse/carepulse/internal/appointments"
	"github.com/carepulse/carepulse/internal/http/handlers"
	httpmiddleware "github.com/carepulse/carepulse/internal/http/middleware"
	"github.com/carepulse/carepulse/internal/patients"
	"github.com/carepulse/carepulse/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	Patients           *patients.Handler
	Appointments       *appointments.Handler
	AdminSession       *handlers.AdminSessionHandler
	AdminMessaging     *handlers.AdminMessagingHandler
	Storage            *handlers.StorageHandler
	AdminAuthSecret    string
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
	HealthChecks       map[string]HealthCheck

	// Passkey attempts per second and burst, per client address.
	SessionRateLimit float64
	SessionBurst     int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}

	r.Get("/health", healthHandler(cfg.HealthChecks))
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	if cfg.Patients != nil {
		cfg.Patients.Routes(r)
	}
	if cfg.Appointments != nil {
		cfg.Appointments.Routes(r)
	}
	if cfg.Storage != nil {
		r.Get("/storage/buckets/{bucketID}/files/{fileID}/view", cfg.Storage.ViewFile)
	}

	if cfg.AdminSession != nil {
		rate, burst := cfg.SessionRateLimit, cfg.SessionBurst
		if rate <= 0 {
			rate = 0.2
		}
		if burst <= 0 {
			burst = 5
		}
		r.With(httpmiddleware.RateLimit(rate, burst)).Post("/admin/session", cfg.AdminSession.CreateSession)
	}

	// Admin routes (protected by the session JWT)
	r.Group(func(admin chi.Router) {
		admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
		if cfg.Appointments != nil {
			cfg.Appointments.AdminRoutes(admin)
		}
		if cfg.AdminMessaging != nil {
			admin.Get("/admin/notifications/sms", cfg.AdminMessaging.ListMessages)
		}
	})

	return r
}
