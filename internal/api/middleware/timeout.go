package middleware

import (
	"errors"
	"fmt"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"careers-gateway/pkg/utils"
)

// TimeoutConfig bounds the request context. Handlers observe the deadline
// through c.Request().Context().
func TimeoutConfig(timeout time.Duration) echo.MiddlewareFunc {
	return middleware.ContextTimeoutWithConfig(middleware.ContextTimeoutConfig{
		Timeout: timeout,
	})
}

// BodyLimit rejects bodies larger than maxBytes with 413
func BodyLimit(maxBytes int64) echo.MiddlewareFunc {
	kb := maxBytes / 1024
	if maxBytes%1024 != 0 {
		kb++
	}
	return middleware.BodyLimit(fmt.Sprintf("%dK", kb))
}

// UploadLimit caps a file upload body at maxBytes and reports an oversized
// body as a file over maxFileBytes instead of a bare 413
func UploadLimit(maxBytes, maxFileBytes int64) echo.MiddlewareFunc {
	limit := BodyLimit(maxBytes)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		h := limit(next)
		return func(c echo.Context) error {
			err := h(c)
			if errors.Is(err, echo.ErrStatusRequestEntityTooLarge) {
				return utils.NewFileTooLargeError(maxFileBytes)
			}
			return err
		}
	}
}
