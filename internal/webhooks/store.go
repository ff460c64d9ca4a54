package webhooks

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var (
	// ErrNotFound is returned when a subscription does not exist for the tenant
	ErrNotFound = errors.New("webhook not found")
	// ErrInvalidURL is returned when a destination is not an absolute http(s) URL
	ErrInvalidURL = errors.New("webhook url must be an absolute http or https url")
	// ErrInvalid is returned for any other malformed subscription
	ErrInvalid = errors.New("invalid webhook")
)

// Store is the subscription configuration store
type Store interface {
	// ListActive returns the tenant's active subscriptions. This is the
	// only call the dispatcher makes.
	ListActive(ctx context.Context, tenantID string) ([]*Subscription, error)
	List(ctx context.Context, tenantID string) ([]*Subscription, error)
	Create(ctx context.Context, sub *Subscription) error
	SetActive(ctx context.Context, tenantID, id string, active bool) error
	Delete(ctx context.Context, tenantID, id string) error
	Ping(ctx context.Context) error
}

// ValidateURL checks that raw is an absolute http or https URL with a host
func ValidateURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidURL
	}
	return nil
}

// prepare validates a new subscription and fills defaults before insert
func prepare(sub *Subscription) error {
	if sub.TenantID == "" {
		return fmt.Errorf("%w: tenant id is required", ErrInvalid)
	}
	sub.URL = strings.TrimSpace(sub.URL)
	if err := ValidateURL(sub.URL); err != nil {
		return err
	}

	events := make([]string, 0, len(sub.Events))
	for _, e := range sub.Events {
		e = strings.TrimSpace(e)
		if e == "" {
			return fmt.Errorf("%w: event names cannot be empty", ErrInvalid)
		}
		events = append(events, e)
	}
	if len(events) == 0 {
		events = append(events, DefaultEvents...)
	}
	sub.Events = events
	return nil
}
