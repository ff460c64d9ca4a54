package webhooks

import (
	"slices"
	"time"
)

// WildcardEvent subscribes a webhook to every event
const WildcardEvent = "*"

// DefaultEvents is applied to new subscriptions that name no events
var DefaultEvents = []string{"lead.created"}

// Subscription represents a tenant's registered webhook endpoint
type Subscription struct {
	ID        string    `json:"id" db:"id"`
	TenantID  string    `json:"tenant_id" db:"tenant_id"`
	Name      string    `json:"name" db:"name"`
	URL       string    `json:"url" db:"url"`
	Secret    string    `json:"-" db:"secret"` // empty means unsigned delivery
	Active    bool      `json:"is_active" db:"is_active"`
	Events    []string  `json:"events" db:"events"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Accepts reports whether the subscription should receive event.
// An empty event set behaves like the wildcard.
func (s *Subscription) Accepts(event string) bool {
	if s == nil || !s.Active {
		return false
	}
	if len(s.Events) == 0 {
		return true
	}
	return slices.Contains(s.Events, WildcardEvent) || slices.Contains(s.Events, event)
}

// HasSecret reports whether deliveries to this subscription are signed
func (s *Subscription) HasSecret() bool {
	return s.Secret != ""
}
