package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"careers-gateway/internal/api/middleware"
	"careers-gateway/internal/cms"
	"careers-gateway/internal/logging"
	"careers-gateway/pkg/models"
)

// ContentSource reads published content from the CMS
type ContentSource interface {
	ListJobs(ctx context.Context, locale string, highlightedOnly bool) ([]models.Job, error)
	FindJobBySlug(ctx context.Context, slug, locale string) (*models.Job, error)
	ListFAQs(ctx context.Context, locale string) ([]models.FAQ, error)
}

type jobsResponse struct {
	Data []models.Job `json:"data"`
}

type faqsResponse struct {
	Data []models.FAQ `json:"data"`
}

// JobsHandler handles GET /api/jobs?locale=&highlighted=true. CMS errors
// degrade to an empty list.
func JobsHandler(src ContentSource) echo.HandlerFunc {
	return func(c echo.Context) error {
		locale := c.QueryParam("locale")
		highlighted := c.QueryParam("highlighted") == "true"

		jobs, err := src.ListJobs(c.Request().Context(), locale, highlighted)
		if err != nil {
			logging.GetGlobalLogger().Warn("Failed to fetch jobs", map[string]interface{}{
				"request_id": middleware.RequestID(c),
				"locale":     locale,
				"error":      err.Error(),
			})
			jobs = nil
		}
		if jobs == nil {
			jobs = []models.Job{}
		}

		return c.JSON(http.StatusOK, jobsResponse{Data: jobs})
	}
}

// JobBySlugHandler handles GET /api/jobs/:slug
func JobBySlugHandler(src ContentSource) echo.HandlerFunc {
	return func(c echo.Context) error {
		slug := c.Param("slug")

		job, err := src.FindJobBySlug(c.Request().Context(), slug, c.QueryParam("locale"))
		if err != nil {
			if !errors.Is(err, cms.ErrNotFound) {
				logging.GetGlobalLogger().Warn("Failed to fetch job", map[string]interface{}{
					"request_id": middleware.RequestID(c),
					"slug":       slug,
					"error":      err.Error(),
				})
			}
			return echo.NewHTTPError(http.StatusNotFound, "Job not found")
		}

		return c.JSON(http.StatusOK, job)
	}
}

// FAQsHandler handles GET /api/faqs?locale=
func FAQsHandler(src ContentSource) echo.HandlerFunc {
	return func(c echo.Context) error {
		locale := c.QueryParam("locale")

		faqs, err := src.ListFAQs(c.Request().Context(), locale)
		if err != nil {
			logging.GetGlobalLogger().Warn("Failed to fetch FAQs", map[string]interface{}{
				"request_id": middleware.RequestID(c),
				"locale":     locale,
				"error":      err.Error(),
			})
			faqs = nil
		}
		if faqs == nil {
			faqs = []models.FAQ{}
		}

		return c.JSON(http.StatusOK, faqsResponse{Data: faqs})
	}
}
