package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/labstack/echo/v4"

	"careers-gateway/internal/api/middleware"
	"careers-gateway/internal/logging"
	"careers-gateway/pkg/models"
)

// Version is overridden at build time with -ldflags
var Version = "1.0.0"

var startTime = time.Now()

// Probe checks one dependency; a nil error means healthy
type Probe func(ctx context.Context) error

// HealthHandler handles health check requests
func HealthHandler(c echo.Context) error {
	logging.GetGlobalLogger().Debug("Health check requested", map[string]interface{}{
		"request_id": middleware.RequestID(c),
	})

	return c.JSON(http.StatusOK, models.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Version:   Version,
		Uptime:    time.Since(startTime),
		Checks: map[string]string{
			"api": "ok",
		},
	})
}

// ReadinessHandler runs every probe and answers 503 if any fails
func ReadinessHandler(probes map[string]Probe) echo.HandlerFunc {
	return func(c echo.Context) error {
		logger := logging.GetGlobalLogger()

		ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
		defer cancel()

		names := make([]string, 0, len(probes))
		for name := range probes {
			names = append(names, name)
		}
		sort.Strings(names)

		status := http.StatusOK
		checks := map[string]string{"api": "ok"}
		for _, name := range names {
			if err := probes[name](ctx); err != nil {
				status = http.StatusServiceUnavailable
				checks[name] = err.Error()
				logger.Warn("Readiness probe failed", map[string]interface{}{
					"request_id": middleware.RequestID(c),
					"probe":      name,
					"error":      err.Error(),
				})
				continue
			}
			checks[name] = "ok"
		}

		response := models.HealthResponse{
			Status:    "ready",
			Timestamp: time.Now(),
			Version:   Version,
			Uptime:    time.Since(startTime),
			Checks:    checks,
		}
		if status != http.StatusOK {
			response.Status = "not_ready"
		}

		return c.JSON(status, response)
	}
}

// LivenessHandler handles liveness probe requests
func LivenessHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, models.HealthResponse{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   Version,
		Uptime:    time.Since(startTime),
	})
}
