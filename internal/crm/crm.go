package crm

import (
	"context"
	"errors"
	"strings"

	"careers-gateway/internal/config"
	"careers-gateway/internal/logging"
)

// Lifecycle stages and lead sources used by the submission endpoints
const (
	LifecycleLead = "lead"

	SourceCareerApplication = "Career Application"
	SourceInquiryForm       = "Inquiry Form"
)

var (
	// ErrDisabled is returned by adapters that do not sync anywhere
	ErrDisabled = errors.New("crm integration disabled")
	// ErrThrottled is returned when the outbound call budget is spent
	ErrThrottled = errors.New("crm call budget exhausted")
	// ErrCircuitOpen is returned while the CRM is considered unavailable
	ErrCircuitOpen = errors.New("crm circuit open")
)

// Contact is the data pushed to the CRM for a submitter
type Contact struct {
	Email          string
	FirstName      string
	LastName       string
	Phone          string
	Company        string
	Website        string
	LifecycleStage string
	Source         string
}

// Properties returns the CRM property map, omitting empty values
func (c Contact) Properties() map[string]string {
	props := map[string]string{"email": c.Email}

	set := func(key, value string) {
		if value = strings.TrimSpace(value); value != "" {
			props[key] = value
		}
	}
	set("firstname", c.FirstName)
	set("lastname", c.LastName)
	set("phone", c.Phone)
	set("company", c.Company)
	set("website", c.Website)
	set("lifecyclestage", c.LifecycleStage)
	set("hs_lead_source", c.Source)

	return props
}

// Adapter is a CRM backend able to look up, create and update contacts
type Adapter interface {
	FindContactByEmail(ctx context.Context, email string) (id string, found bool, err error)
	CreateContact(ctx context.Context, contact Contact) (id string, err error)
	UpdateContact(ctx context.Context, id string, contact Contact) error
	Name() string
}

// Client upserts contacts through an adapter and never fails its caller
type Client struct {
	adapter Adapter
	logger  logging.Logger
}

// NewClient wraps an adapter
func NewClient(adapter Adapter, logger logging.Logger) *Client {
	return &Client{adapter: adapter, logger: logger.WithField("crm", adapter.Name())}
}

// New selects the adapter from configuration: HubSpot when an API key is
// present, otherwise the no-op adapter
func New(cfg *config.Config) *Client {
	logger := logging.GetGlobalLogger().WithField("component", "crm")

	provider := strings.ToLower(cfg.CRM.Provider)
	if provider == "noop" || cfg.CRM.APIKey == "" {
		if provider != "noop" {
			logger.Warn("CRM API key not configured, contact sync disabled", nil)
		}
		return NewClient(NoopAdapter{}, logger)
	}

	return NewClient(NewHubSpotAdapter(cfg, logger), logger)
}

// Adapter returns the backing adapter
func (c *Client) Adapter() Adapter {
	return c.adapter
}

// UpsertContact searches the CRM by email, then updates the match or creates
// a new contact. It reports whether the contact was synced; failures are
// logged and swallowed.
func (c *Client) UpsertContact(ctx context.Context, contact Contact) bool {
	fields := map[string]interface{}{"email": contact.Email}

	id, found, err := c.adapter.FindContactByEmail(ctx, contact.Email)
	if err == nil {
		if found {
			err = c.adapter.UpdateContact(ctx, id, contact)
		} else {
			id, err = c.adapter.CreateContact(ctx, contact)
		}
	}

	switch {
	case err == nil:
		fields["contact_id"] = id
		fields["existing"] = found
		c.logger.Info("CRM contact synced", fields)
		return true
	case errors.Is(err, ErrDisabled):
		c.logger.Info("CRM not configured, skipping contact sync", fields)
	case errors.Is(err, ErrThrottled), errors.Is(err, ErrCircuitOpen):
		fields["reason"] = err.Error()
		c.logger.Warn("CRM contact sync skipped", fields)
	default:
		fields["error"] = err.Error()
		c.logger.Error("CRM contact sync failed", fields)
	}
	return false
}

// NoopAdapter is used when no CRM is configured
type NoopAdapter struct{}

func (NoopAdapter) FindContactByEmail(context.Context, string) (string, bool, error) {
	return "", false, ErrDisabled
}

func (NoopAdapter) CreateContact(context.Context, Contact) (string, error) {
	return "", ErrDisabled
}

func (NoopAdapter) UpdateContact(context.Context, string, Contact) error {
	return ErrDisabled
}

func (NoopAdapter) Name() string {
	return "noop"
}
