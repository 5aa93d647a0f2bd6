package rest

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

const healthTimeout = 2 * time.Second

// HealthChecker - a storage that can be pinged.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

type healthHandler struct {
	logger *slog.Logger
	checks map[string]HealthChecker
}

// ServeHTTP - 200 when every storage answers, 503 otherwise.
func (that *healthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	resp := healthResponse{Status: "ok", Checks: make(map[string]string, len(that.checks))}
	code := http.StatusOK

	for name, check := range that.checks {
		if err := check.Ping(ctx); err != nil {
			that.logger.Warn("health check failed", "check", name, "error", err)

			resp.Checks[name] = err.Error()
			resp.Status = "unavailable"
			code = http.StatusServiceUnavailable

			continue
		}

		resp.Checks[name] = "ok"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		that.logger.Error("failed to write health response", "error", err)
	}
}
