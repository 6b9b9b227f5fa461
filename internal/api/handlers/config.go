package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"careers-gateway/internal/config"
	"careers-gateway/pkg/models"
)

// PublicConfigHandler exposes what a browser needs to render the forms
func PublicConfigHandler(cfg *config.Config) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, models.PublicConfigResponse{
			TurnstileSiteKey: cfg.Turnstile.SiteKey,
			MaxUploadBytes:   cfg.Uploads.MaxFileSize,
		})
	}
}
