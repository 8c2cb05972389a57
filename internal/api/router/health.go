package router

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"
)

// HealthCheck pings one dependency.
type HealthCheck func(ctx context.Context) error

const healthTimeout = 2 * time.Second

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		resp := map[string]any{"status": "ok"}
		status := http.StatusOK
		if len(names) > 0 {
			deps := make(map[string]string, len(names))
			for _, name := range names {
				if err := checks[name](ctx); err != nil {
					deps[name] = err.Error()
					resp["status"] = "degraded"
					status = http.StatusServiceUnavailable
					continue
				}
				deps[name] = "ok"
			}
			resp["dependencies"] = deps
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(resp)
	}
}
