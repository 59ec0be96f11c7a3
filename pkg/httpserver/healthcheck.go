package httpserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dmitrymomot/notifykit/pkg/logger"
)

// Check probes one dependency.
type Check func(context.Context) error

// HealthCheckHandler serves liveness when checks is empty and readiness
// otherwise. Every named check runs with the request context bounded by
// timeout; the response lists each result and is 503 if any failed.
func HealthCheckHandler(log *slog.Logger, timeout time.Duration, checks map[string]Check) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		body := map[string]string{"status": "alive"}

		if len(checks) > 0 {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			body["status"] = "ready"
			for name, check := range checks {
				if err := check(ctx); err != nil {
					log.LogAttrs(ctx, slog.LevelError, "readiness check failed",
						slog.String("check", name), logger.Error(err))
					body[name] = err.Error()
					body["status"] = "not_ready"
					status = http.StatusServiceUnavailable
					continue
				}
				body[name] = "ok"
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
}
