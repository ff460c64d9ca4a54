package connect

import (
	"time"

	"github.com/formulando/relay/internal/webhooks"
)

// Webhook is the API view of a subscription. The secret is never
// returned, only whether one is set.
type Webhook struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	Events    []string  `json:"events"`
	Active    bool      `json:"is_active"`
	HasSecret bool      `json:"has_secret"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toWebhook(s *webhooks.Subscription) *Webhook {
	return &Webhook{
		ID:        s.ID,
		TenantID:  s.TenantID,
		Name:      s.Name,
		URL:       s.URL,
		Events:    s.Events,
		Active:    s.Active,
		HasSecret: s.HasSecret(),
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

// CreateWebhookRequest registers a URL. Empty Events defaults to
// webhooks.DefaultEvents.
type CreateWebhookRequest struct {
	TenantID string   `json:"tenant_id"`
	Name     string   `json:"name"`
	URL      string   `json:"url"`
	Secret   string   `json:"secret,omitempty"`
	Events   []string `json:"events,omitempty"`
}

// CreateWebhookResponse returns the stored webhook
type CreateWebhookResponse struct {
	Webhook *Webhook `json:"webhook"`
}

// ListWebhooksRequest selects a tenant
type ListWebhooksRequest struct {
	TenantID string `json:"tenant_id"`
}

// ListWebhooksResponse holds a tenant's webhooks, newest first
type ListWebhooksResponse struct {
	Webhooks   []*Webhook `json:"webhooks"`
	TotalCount int        `json:"total_count"`
}

// ToggleWebhookRequest sets a webhook's active flag
type ToggleWebhookRequest struct {
	TenantID  string `json:"tenant_id"`
	WebhookID string `json:"webhook_id"`
	Active    bool   `json:"is_active"`
}

// ToggleWebhookResponse reports the new state
type ToggleWebhookResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// DeleteWebhookRequest identifies the webhook to remove
type DeleteWebhookRequest struct {
	TenantID  string `json:"tenant_id"`
	WebhookID string `json:"webhook_id"`
}

// DeleteWebhookResponse confirms the removal
type DeleteWebhookResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// PublishEventRequest carries one domain event; Payload becomes the
// event's top-level fields in every delivery.
type PublishEventRequest struct {
	TenantID string         `json:"tenant_id"`
	Event    string         `json:"event"`
	Payload  map[string]any `json:"payload,omitempty"`
}

// PublishEventResponse acknowledges the event. Accepted only means it was
// handed off; delivery outcomes are not reported.
type PublishEventResponse struct {
	Accepted bool   `json:"accepted"`
	Message  string `json:"message"`
}
