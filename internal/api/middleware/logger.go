package middleware

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"careers-gateway/internal/logging"
)

// RequestLogger writes one access log entry per request through the
// service logger
func RequestLogger(logger logging.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogUserAgent: true,
		LogError:     true,
		HandleError:  true,
		Skipper: func(c echo.Context) bool {
			p := c.Path()
			return p == "/health/live" || p == "/metrics"
		},
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := map[string]interface{}{
				"request_id": RequestID(c),
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency_ms": v.Latency.Milliseconds(),
				"client_ip":  v.RemoteIP,
				"user_agent": v.UserAgent,
			}

			switch {
			case v.Status >= 500:
				if v.Error != nil {
					fields["error"] = v.Error.Error()
				}
				logger.Error("Request completed", fields)
			case v.Status >= 400:
				logger.Warn("Request completed", fields)
			default:
				logger.Info("Request completed", fields)
			}
			return nil
		},
	})
}
