package cms

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

	"careers-gateway/internal/config"
	"careers-gateway/internal/logging"
	"careers-gateway/pkg/models"
)

// ErrNotFound is returned when a lookup matches no entry
var ErrNotFound = errors.New("cms entry not found")

// SubmissionError is a non-2xx answer from the CMS. Body is kept for logs
// and must never be sent to clients.
type SubmissionError struct {
	StatusCode int
	Body       string
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("cms returned status %d: %s", e.StatusCode, e.Body)
}

// Record identifies a created CMS entry
type Record struct {
	ID         int    `json:"id"`
	DocumentID string `json:"documentId"`
}

// Client talks to the Strapi REST API
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     logging.Logger
}

// NewClient creates a CMS client from configuration. It is usable even when
// the CMS is not configured; callers check config.CMSConfigured first.
func NewClient(cfg *config.Config) *Client {
	timeout := cfg.CMS.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.CMS.URL, "/"),
		token:      cfg.CMS.APIToken,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logging.GetGlobalLogger().WithField("component", "cms"),
	}
}

type dataEnvelope struct {
	Data interface{} `json:"data"`
}

// CreateApplication stores an application record
func (c *Client) CreateApplication(ctx context.Context, record *ApplicationRecord) (*Record, error) {
	return c.create(ctx, CollectionApplications, record)
}

// CreateInquiry stores an inquiry in the given collection
func (c *Client) CreateInquiry(ctx context.Context, collection string, record *InquiryRecord) (*Record, error) {
	return c.create(ctx, collection, record)
}

func (c *Client) create(ctx context.Context, collection string, payload interface{}) (*Record, error) {
	body, err := json.Marshal(dataEnvelope{Data: payload})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request data: %w", err)
	}

	var resp struct {
		Data Record `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/"+collection, "application/json", bytes.NewReader(body), &resp); err != nil {
		return nil, err
	}

	c.logger.Debug("CMS entry created", map[string]interface{}{
		"collection": collection,
		"id":         resp.Data.ID,
	})
	return &resp.Data, nil
}

// FindJobBySlug returns the job with the given slug in any locale
func (c *Client) FindJobBySlug(ctx context.Context, slug, locale string) (*models.Job, error) {
	q := url.Values{}
	q.Set("filters[slug][$eq]", slug)
	q.Set("populate", "*")
	if locale != "" {
		q.Set("locale", locale)
	}

	var resp struct {
		Data []models.Job `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/jobs?"+q.Encode(), "", nil, &resp); err != nil {
		return nil, err
	}

	if len(resp.Data) == 0 {
		return nil, ErrNotFound
	}
	return &resp.Data[0], nil
}

// ListJobs returns open jobs, featured first, then newest
func (c *Client) ListJobs(ctx context.Context, locale string, highlightedOnly bool) ([]models.Job, error) {
	q := url.Values{}
	q.Set("filters[jobStatus][$eq]", "Open")
	q.Set("populate", "*")
	q.Add("sort[0]", "featuredOrder:asc")
	q.Add("sort[1]", "publishedAt:desc")
	if locale != "" {
		q.Set("locale", locale)
	}
	if highlightedOnly {
		q.Set("filters[highlight][$eq]", "true")
		q.Set("pagination[limit]", "3")
	}

	var resp struct {
		Data []models.Job `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/jobs?"+q.Encode(), "", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// ListFAQs returns the FAQ entries for a locale
func (c *Client) ListFAQs(ctx context.Context, locale string) ([]models.FAQ, error) {
	q := url.Values{}
	q.Add("sort[0]", "order:asc")
	if locale != "" {
		q.Set("locale", locale)
	}

	var resp struct {
		Data []models.FAQ `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/faqs?"+q.Encode(), "", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// Ping checks that the CMS answers at all
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/_health", nil)
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("cms health returned status %d", resp.StatusCode)
	}
	return nil
}

// do sends one authenticated request and decodes a JSON answer into out
func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &SubmissionError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse JSON response: %w", err)
	}
	return nil
}
