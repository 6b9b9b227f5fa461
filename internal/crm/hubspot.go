package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"careers-gateway/internal/config"
	"careers-gateway/internal/logging"
)

// HubSpot allows 100 calls per 10 seconds on private apps
const hubSpotBurstWindow = 10 * time.Second

// APIError is a non-2xx answer from the CRM
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("hubspot returned status %d: %s", e.StatusCode, e.Body)
}

// HubSpotAdapter talks to the HubSpot CRM v3 contacts API
type HubSpotAdapter struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *circuitBreaker
	logger     logging.Logger
}

type searchRequest struct {
	FilterGroups []filterGroup `json:"filterGroups"`
	Properties   []string      `json:"properties"`
	Limit        int           `json:"limit"`
}

type filterGroup struct {
	Filters []filter `json:"filters"`
}

type filter struct {
	PropertyName string `json:"propertyName"`
	Operator     string `json:"operator"`
	Value        string `json:"value"`
}

type searchResponse struct {
	Total   int `json:"total"`
	Results []struct {
		ID string `json:"id"`
	} `json:"results"`
}

type contactRequest struct {
	Properties map[string]string `json:"properties"`
}

type contactResponse struct {
	ID string `json:"id"`
}

// NewHubSpotAdapter creates a HubSpot adapter from configuration
func NewHubSpotAdapter(cfg *config.Config, logger logging.Logger) *HubSpotAdapter {
	perWindow := cfg.CRM.RateLimit
	if perWindow <= 0 {
		perWindow = 100
	}

	timeout := cfg.CRM.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	logger.Info("HubSpot CRM integration initialized", map[string]interface{}{
		"base_url":   cfg.CRM.BaseURL,
		"rate_limit": perWindow,
		"timeout":    timeout.String(),
	})

	return &HubSpotAdapter{
		baseURL:    strings.TrimRight(cfg.CRM.BaseURL, "/"),
		apiKey:     cfg.CRM.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(float64(perWindow)/hubSpotBurstWindow.Seconds()), perWindow),
		breaker:    newCircuitBreaker(5, 30*time.Second),
		logger:     logger,
	}
}

// Name implements Adapter
func (h *HubSpotAdapter) Name() string {
	return "hubspot"
}

// FindContactByEmail implements Adapter
func (h *HubSpotAdapter) FindContactByEmail(ctx context.Context, email string) (string, bool, error) {
	req := searchRequest{
		FilterGroups: []filterGroup{{
			Filters: []filter{{PropertyName: "email", Operator: "EQ", Value: email}},
		}},
		Properties: []string{"email", "firstname", "lastname"},
		Limit:      1,
	}

	var resp searchResponse
	if err := h.do(ctx, http.MethodPost, "/crm/v3/objects/contacts/search", req, &resp); err != nil {
		return "", false, fmt.Errorf("contact search failed: %w", err)
	}

	if len(resp.Results) == 0 {
		return "", false, nil
	}
	return resp.Results[0].ID, true, nil
}

// CreateContact implements Adapter
func (h *HubSpotAdapter) CreateContact(ctx context.Context, contact Contact) (string, error) {
	var resp contactResponse
	if err := h.do(ctx, http.MethodPost, "/crm/v3/objects/contacts", contactRequest{Properties: contact.Properties()}, &resp); err != nil {
		return "", fmt.Errorf("contact create failed: %w", err)
	}
	return resp.ID, nil
}

// UpdateContact implements Adapter
func (h *HubSpotAdapter) UpdateContact(ctx context.Context, id string, contact Contact) error {
	path := "/crm/v3/objects/contacts/" + url.PathEscape(id)
	if err := h.do(ctx, http.MethodPatch, path, contactRequest{Properties: contact.Properties()}, nil); err != nil {
		return fmt.Errorf("contact update failed: %w", err)
	}
	return nil
}

// do sends one JSON request. Calls are never queued: when the budget is
// spent or the circuit is open the call is skipped.
func (h *HubSpotAdapter) do(ctx context.Context, method, path string, payload, out interface{}) error {
	if !h.breaker.allow() {
		return ErrCircuitOpen
	}
	if !h.limiter.Allow() {
		h.breaker.release()
		return ErrThrottled
	}

	err := h.send(ctx, method, path, payload, out)
	if isOutage(err) {
		if h.breaker.recordFailure() {
			h.logger.Warn("HubSpot circuit opened", map[string]interface{}{
				"error": err.Error(),
			})
		}
	} else {
		h.breaker.recordSuccess()
	}
	return err
}

func (h *HubSpotAdapter) send(ctx context.Context, method, path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request data: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, h.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+h.apiKey)

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse JSON response: %w", err)
	}
	return nil
}

// isOutage reports whether err means the CRM itself is unhealthy, as opposed
// to rejecting this particular request
func isOutage(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 500 || apiErr.StatusCode == http.StatusTooManyRequests
	}
	return true
}
