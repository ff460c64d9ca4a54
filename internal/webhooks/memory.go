package webhooks

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store for development and tests
type MemoryStore struct {
	mu   sync.RWMutex
	subs map[string][]*Subscription // tenant -> subscriptions, insertion order
	now  func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		subs: map[string][]*Subscription{},
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Create stores a new subscription
func (m *MemoryStore) Create(ctx context.Context, sub *Subscription) error {
	if err := prepare(sub); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	sub.ID = uuid.New().String()
	sub.CreatedAt = m.now()
	sub.UpdatedAt = sub.CreatedAt
	m.subs[sub.TenantID] = append(m.subs[sub.TenantID], clone(sub))
	return nil
}

// ListActive returns the active subscriptions of a tenant
func (m *MemoryStore) ListActive(ctx context.Context, tenantID string) ([]*Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Subscription
	for _, s := range m.subs[tenantID] {
		if s.Active {
			out = append(out, clone(s))
		}
	}
	return out, nil
}

// List returns every subscription of a tenant, newest first
func (m *MemoryStore) List(ctx context.Context, tenantID string) ([]*Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := m.subs[tenantID]
	out := make([]*Subscription, 0, len(list))
	for i := len(list) - 1; i >= 0; i-- {
		out = append(out, clone(list[i]))
	}
	return out, nil
}

// SetActive toggles a subscription on or off
func (m *MemoryStore) SetActive(ctx context.Context, tenantID, id string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.subs[tenantID] {
		if s.ID == id {
			s.Active = active
			s.UpdatedAt = m.now()
			return nil
		}
	}
	return ErrNotFound
}

// Delete removes a subscription
func (m *MemoryStore) Delete(ctx context.Context, tenantID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	list := m.subs[tenantID]
	i := slices.IndexFunc(list, func(s *Subscription) bool { return s.ID == id })
	if i < 0 {
		return ErrNotFound
	}
	m.subs[tenantID] = slices.Delete(list, i, i+1)
	return nil
}

// Ping always succeeds
func (m *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

func clone(s *Subscription) *Subscription {
	c := *s
	c.Events = slices.Clone(s.Events)
	return &c
}
