package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/carepulse/carepulse/cmd/mainconfig"
	"github.com/carepulse/carepulse/internal/api/router"
	"github.com/carepulse/carepulse/internal/app/bootstrap"
	"github.com/carepulse/carepulse/internal/appointments"
	appconfig "github.com/carepulse/carepulse/internal/config"
	"github.com/carepulse/carepulse/internal/http/handlers"
	"github.com/carepulse/carepulse/internal/notify"
	"github.com/carepulse/carepulse/internal/observability/metrics"
	"github.com/carepulse/carepulse/internal/patients"
	"github.com/carepulse/carepulse/pkg/logging"
)

func main() {
	envLoaded := godotenv.Load() == nil

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting carepulse API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"dotenv", envLoaded,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	handler, cleanup, err := buildServer(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		logger.Error("server error", "error", err)
		cleanup()
		os.Exit(1)
	}

	logger.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		cleanup()
		os.Exit(1)
	}
	logger.Info("server stopped")
}

// buildServer wires every dependency into the HTTP handler. The returned
// cleanup closes connections and is safe to call more than once.
func buildServer(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (http.Handler, func(), error) {
	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	plat, err := bootstrap.BuildPlatform(ctx, cfg, awsCfg, logger)
	if err != nil {
		return nil, nil, err
	}
	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)

	closed := false
	cleanup := func() {
		if closed {
			return
		}
		closed = true
		if redisClient != nil {
			_ = redisClient.Close()
		}
		plat.Close()
	}

	metricsHandler, m := setupMetrics()

	messaging, err := bootstrap.BuildMessaging(cfg, plat.Users, redisClient, logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	notifier := notify.NewNotifier(messaging, notify.Options{
		Users:   plat.Users,
		Email:   bootstrap.BuildEmailSender(cfg, awsCfg, logger),
		Metrics: m,
	}, logger)

	platformCfg := cfg.Platform()
	patientSvc := patients.NewService(plat.Users, plat.Documents, plat.Storage, platformCfg, m, logger)
	appointmentSvc := appointments.NewService(plat.Documents, platformCfg, notifier,
		appointments.NewSummaryCache(redisClient, cfg.SummaryCacheTTL), m, logger)

	checks := make(map[string]router.HealthCheck, len(plat.Checks)+1)
	for name, check := range plat.Checks {
		checks[name] = check
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	if cfg.AdminPasskey == "" || cfg.AdminJWTSecret == "" {
		logger.Warn("ADMIN_PASSKEY or ADMIN_JWT_SECRET not set; admin endpoints will reject every request")
	}

	r := router.New(&router.Config{
		Logger:       logger,
		Patients:     patients.NewHandler(patientSvc, logger),
		Appointments: appointments.NewHandler(appointmentSvc, logger),
		AdminSession: handlers.NewAdminSessionHandler(handlers.AdminSessionConfig{
			Passkey: cfg.AdminPasskey,
			Secret:  cfg.AdminJWTSecret,
			TTL:     cfg.AdminSessionTTL,
			Logger:  logger,
		}),
		AdminMessaging:     handlers.NewAdminMessagingHandler(messaging, logger),
		Storage:            handlers.NewStorageHandler(plat.Storage, cfg.ProjectID, logger),
		AdminAuthSecret:    cfg.AdminJWTSecret,
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		HealthChecks:       checks,
	})
	return otelhttp.NewHandler(r, "carepulse.http"), cleanup, nil
}

func setupMetrics() (http.Handler, *metrics.Metrics) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), metrics.New(registry)
}
