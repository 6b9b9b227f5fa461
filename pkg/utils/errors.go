package utils

import (
	"fmt"
	"net/http"
)

// CustomError is an error that carries the HTTP status and the client-safe
// message to render. Details, when set, are serialised verbatim.
type CustomError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	// Cause is logged but never rendered
	Cause error `json:"-"`
}

func (e *CustomError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *CustomError) Unwrap() error {
	return e.Cause
}

// Client-visible messages
const (
	MsgValidationFailed      = "Validation Failed"
	MsgTooManyRequests       = "Too many requests. Please try again later."
	MsgSecurityCheckFailed   = "Security check failed. Please refresh and try again."
	MsgInvalidFileType       = "Invalid file type. Only PDF and Word documents allowed."
	MsgBackendNotConfigured  = "Backend not configured"
	MsgConfigurationError    = "Internal Server Configuration Error"
	MsgSubmissionFailed      = "Submission failed. Please try again later."
	MsgInternalServerError   = "Internal Server Error"
	MsgInvalidRequestPayload = "Invalid request payload"
)

func NewBadRequestError(message string) *CustomError {
	return &CustomError{Code: http.StatusBadRequest, Message: message}
}

func NewInternalServerError(cause error) *CustomError {
	return &CustomError{Code: http.StatusInternalServerError, Message: MsgInternalServerError, Cause: cause}
}

// NewValidationError reports per-field schema violations
func NewValidationError(details interface{}) *CustomError {
	return &CustomError{Code: http.StatusBadRequest, Message: MsgValidationFailed, Details: details}
}

func NewRateLimitError() *CustomError {
	return &CustomError{Code: http.StatusTooManyRequests, Message: MsgTooManyRequests}
}

// NewSecurityCheckError is deliberately detail-free
func NewSecurityCheckError() *CustomError {
	return &CustomError{Code: http.StatusBadRequest, Message: MsgSecurityCheckFailed}
}

func NewFileTooLargeError(maxBytes int64) *CustomError {
	return &CustomError{
		Code:    http.StatusBadRequest,
		Message: fmt.Sprintf("File too large (Max %dMB)", maxBytes/(1024*1024)),
	}
}

func NewInvalidFileTypeError() *CustomError {
	return &CustomError{Code: http.StatusBadRequest, Message: MsgInvalidFileType}
}

// NewBackendNotConfiguredError is returned when the CMS URL is missing
func NewBackendNotConfiguredError() *CustomError {
	return &CustomError{Code: http.StatusServiceUnavailable, Message: MsgBackendNotConfigured}
}

// NewConfigurationError is returned when the CMS token is missing
func NewConfigurationError() *CustomError {
	return &CustomError{Code: http.StatusInternalServerError, Message: MsgConfigurationError}
}

// NewSubmissionFailedError mirrors the upstream status; the upstream body
// must only ever travel in cause, never in the message.
func NewSubmissionFailedError(upstreamStatus int, cause error) *CustomError {
	if upstreamStatus < 400 || upstreamStatus > 599 {
		upstreamStatus = http.StatusBadGateway
	}
	return &CustomError{Code: upstreamStatus, Message: MsgSubmissionFailed, Cause: cause}
}
