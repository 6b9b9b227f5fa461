package routes

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"

	"careers-gateway/internal/api/handlers"
	"careers-gateway/internal/api/middleware"
	"careers-gateway/internal/config"
	"careers-gateway/internal/logging"
	"careers-gateway/internal/metrics"
	"careers-gateway/internal/submission"
	"careers-gateway/pkg/models"
	"careers-gateway/pkg/utils"
)

// inquiryBodyLimit caps JSON inquiry bodies
const inquiryBodyLimit = 64 * 1024

// Deps are the collaborators the routes are bound to
type Deps struct {
	Submissions *submission.Service
	Content     handlers.ContentSource
	Metrics     *metrics.Collector
	// Probes back /health/ready, keyed by dependency name
	Probes map[string]handlers.Probe
	Logger logging.Logger
}

// SetupRoutes configures all API routes
func SetupRoutes(e *echo.Echo, cfg *config.Config, deps Deps) {
	if deps.Logger == nil {
		deps.Logger = logging.GetGlobalLogger()
	}

	e.HideBanner = true
	e.HTTPErrorHandler = HTTPErrorHandler(cfg, deps.Logger)
	if cfg.Server.TrustProxy {
		e.IPExtractor = echo.ExtractIPFromXFFHeader()
	} else {
		e.IPExtractor = echo.ExtractIPDirect()
	}

	// Global middleware
	e.Use(echomiddleware.Recover())
	e.Use(middleware.RequestValidation())
	e.Use(middleware.RequestLogger(deps.Logger))
	e.Use(middleware.CORSConfig(cfg.Server.AllowOrigins))
	e.Use(middleware.TimeoutConfig(cfg.Server.ReadTimeout))

	// Health check routes
	health := e.Group("/health")
	{
		health.GET("", handlers.HealthHandler)
		health.GET("/ready", handlers.ReadinessHandler(deps.Probes))
		health.GET("/live", handlers.LivenessHandler)
	}

	if cfg.Metrics.Enabled && deps.Metrics != nil {
		e.GET(cfg.Metrics.Path, echo.WrapHandler(deps.Metrics.Handler()))
	}

	api := e.Group("/api")
	{
		// multipart overhead on top of the largest allowed CV
		api.POST("/apply", handlers.ApplyHandler(deps.Submissions, cfg.Uploads.MaxFileSize),
			middleware.UploadLimit(cfg.Uploads.MaxFileSize+1<<20, cfg.Uploads.MaxFileSize))
		api.POST("/inquiry", handlers.InquiryHandler(deps.Submissions),
			middleware.BodyLimit(inquiryBodyLimit))

		api.GET("/config", handlers.PublicConfigHandler(cfg))

		if deps.Content != nil {
			api.GET("/jobs", handlers.JobsHandler(deps.Content))
			api.GET("/jobs/:slug", handlers.JobBySlugHandler(deps.Content))
			api.GET("/faqs", handlers.FAQsHandler(deps.Content))
		}
	}

	// Root route
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"service": "Careers Gateway",
			"version": handlers.Version,
			"status":  "running",
		})
	})
}

// HTTPErrorHandler renders every error as {"error", "details"?, "request_id"}.
// Only client-safe messages are rendered; causes go to the log.
func HTTPErrorHandler(cfg *config.Config, logger logging.Logger) echo.HTTPErrorHandler {
	retryAfter := strconv.Itoa(int(cfg.RateLimit.Window.Seconds()))

	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		requestID := middleware.RequestID(c)
		status := http.StatusInternalServerError
		body := models.ErrorResponse{
			Error:     utils.MsgInternalServerError,
			RequestID: requestID,
		}

		var customErr *utils.CustomError
		var httpErr *echo.HTTPError
		switch {
		case errors.As(err, &customErr):
			status = customErr.Code
			body.Error = customErr.Message
			body.Details = customErr.Details
			if status == http.StatusTooManyRequests {
				c.Response().Header().Set("Retry-After", retryAfter)
			}
		case errors.As(err, &httpErr):
			status = httpErr.Code
			body.Error = http.StatusText(status)
			if msg, ok := httpErr.Message.(string); ok && msg != "" {
				body.Error = msg
			}
		}

		if status >= http.StatusInternalServerError {
			logger.Error("Request failed", map[string]interface{}{
				"request_id": requestID,
				"status":     status,
				"error":      err.Error(),
			})
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(status)
		} else {
			writeErr = c.JSON(status, body)
		}
		if writeErr != nil {
			logger.Error("Failed to write error response", map[string]interface{}{
				"request_id": requestID,
				"error":      writeErr.Error(),
			})
		}
	}
}
