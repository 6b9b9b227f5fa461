package middleware

import (
	"regexp"

	"github.com/labstack/echo/v4"

	"careers-gateway/pkg/utils"
)

const (
	// HeaderRequestID carries the request id in both directions
	HeaderRequestID = echo.HeaderXRequestID

	requestIDKey = "request_id"
)

var requestIDPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{8,64}$`)

// RequestValidation assigns every request an id, reusing a well-formed
// incoming X-Request-ID
func RequestValidation() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			requestID := c.Request().Header.Get(HeaderRequestID)
			if !requestIDPattern.MatchString(requestID) {
				requestID = utils.GenerateRequestID()
			}

			c.Set(requestIDKey, requestID)
			c.Response().Header().Set(HeaderRequestID, requestID)

			return next(c)
		}
	}
}

// RequestID returns the id assigned by RequestValidation
func RequestID(c echo.Context) string {
	if id, ok := c.Get(requestIDKey).(string); ok {
		return id
	}
	return c.Response().Header().Get(HeaderRequestID)
}
