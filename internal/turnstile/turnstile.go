package turnstile

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"careers-gateway/internal/config"
	"careers-gateway/internal/logging"
)

// Verifier checks a bot-protection token with Cloudflare Turnstile
type Verifier interface {
	Verify(ctx context.Context, token, remoteIP string) bool
}

// siteverifyResponse is the subset of the siteverify payload we read
type siteverifyResponse struct {
	Success     bool     `json:"success"`
	ErrorCodes  []string `json:"error-codes"`
	Hostname    string   `json:"hostname"`
	ChallengeTS string   `json:"challenge_ts"`
	Action      string   `json:"action"`
}

// Client verifies tokens against the siteverify endpoint
type Client struct {
	secret     string
	verifyURL  string
	bypass     bool
	production bool
	httpClient *http.Client
	logger     logging.Logger
}

// NewClient creates a Turnstile client from configuration
func NewClient(cfg *config.Config) *Client {
	logger := logging.GetGlobalLogger().WithField("component", "turnstile")

	timeout := cfg.Turnstile.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	c := &Client{
		secret:     cfg.Turnstile.SecretKey,
		verifyURL:  cfg.Turnstile.VerifyURL,
		bypass:     cfg.Turnstile.Bypass,
		production: cfg.IsProduction(),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}

	if c.production && c.secret == "" {
		logger.Critical("Turnstile secret key missing in production, all submissions will be rejected", nil)
	}

	return c
}

// Verify reports whether token belongs to a human. In production it fails
// closed: a missing secret, transport error or unreadable answer all reject.
// Outside production the check can be bypassed explicitly or by leaving the
// secret empty.
func (c *Client) Verify(ctx context.Context, token, remoteIP string) bool {
	if !c.production {
		if c.bypass {
			c.logger.Warn("Turnstile bypassed by configuration", nil)
			return true
		}
		if c.secret == "" {
			c.logger.Warn("Turnstile secret key missing, skipping verification outside production", nil)
			return true
		}
	}

	if c.secret == "" {
		c.logger.Error("Turnstile verification impossible without secret key", nil)
		return false
	}

	result, err := c.siteverify(ctx, token, remoteIP)
	if err != nil {
		c.logger.Error("Turnstile verification request failed", map[string]interface{}{
			"error":     err.Error(),
			"remote_ip": remoteIP,
		})
		return false
	}

	if !result.Success {
		c.logger.Warn("Turnstile rejected token", map[string]interface{}{
			"error_codes": strings.Join(result.ErrorCodes, ","),
			"remote_ip":   remoteIP,
		})
		return false
	}

	c.logger.Debug("Turnstile token verified", map[string]interface{}{
		"hostname": result.Hostname,
		"action":   result.Action,
	})
	return true
}

func (c *Client) siteverify(ctx context.Context, token, remoteIP string) (*siteverifyResponse, error) {
	form := url.Values{}
	form.Set("secret", c.secret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("siteverify returned status %d", resp.StatusCode)
	}

	var result siteverifyResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse siteverify response: %w", err)
	}

	return &result, nil
}
