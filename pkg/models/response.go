package models

import "time"

// SuccessResponse is returned when a submission was persisted
type SuccessResponse struct {
	Success bool `json:"success"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error     string      `json:"error"`
	Details   interface{} `json:"details,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	Uptime    time.Duration     `json:"uptime"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// PublicConfigResponse exposes the settings a browser needs to render forms
type PublicConfigResponse struct {
	TurnstileSiteKey string `json:"turnstileSiteKey"`
	MaxUploadBytes   int64  `json:"maxUploadBytes"`
}
