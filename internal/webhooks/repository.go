package webhooks

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const subscriptionColumns = `id::text, tenant_id, name, url, COALESCE(secret, ''), is_active, events, created_at, updated_at`

// Repository handles webhook subscription storage in Postgres
type Repository struct {
	db *pgxpool.Pool
}

var _ Store = (*Repository)(nil)

// NewRepository creates a new webhook repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Create stores a new subscription
func (r *Repository) Create(ctx context.Context, sub *Subscription) error {
	if err := prepare(sub); err != nil {
		return err
	}
	sub.ID = uuid.New().String()
	sub.CreatedAt = time.Now().UTC()
	sub.UpdatedAt = sub.CreatedAt

	query := `
		INSERT INTO webhooks (
			id, tenant_id, name, url, secret, is_active, events, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	var secret any
	if sub.Secret != "" {
		secret = sub.Secret
	}

	_, err := r.db.Exec(ctx, query,
		sub.ID,
		sub.TenantID,
		sub.Name,
		sub.URL,
		secret,
		sub.Active,
		sub.Events,
		sub.CreatedAt,
		sub.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert webhook: %w", err)
	}
	return nil
}

// ListActive returns the active subscriptions of a tenant
func (r *Repository) ListActive(ctx context.Context, tenantID string) ([]*Subscription, error) {
	query := `SELECT ` + subscriptionColumns + `
		FROM webhooks
		WHERE tenant_id = $1 AND is_active = true`

	return r.query(ctx, query, tenantID)
}

// List returns every subscription of a tenant, newest first
func (r *Repository) List(ctx context.Context, tenantID string) ([]*Subscription, error) {
	query := `SELECT ` + subscriptionColumns + `
		FROM webhooks
		WHERE tenant_id = $1
		ORDER BY created_at DESC`

	return r.query(ctx, query, tenantID)
}

// SetActive toggles a subscription on or off
func (r *Repository) SetActive(ctx context.Context, tenantID, id string, active bool) error {
	if uuid.Validate(id) != nil {
		return ErrNotFound
	}

	query := `
		UPDATE webhooks
		SET is_active = $3, updated_at = $4
		WHERE id = $1 AND tenant_id = $2
	`

	tag, err := r.db.Exec(ctx, query, id, tenantID, active, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to update webhook: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a subscription
func (r *Repository) Delete(ctx context.Context, tenantID, id string) error {
	if uuid.Validate(id) != nil {
		return ErrNotFound
	}

	tag, err := r.db.Exec(ctx, `DELETE FROM webhooks WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	if err != nil {
		return fmt.Errorf("failed to delete webhook: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Ping checks database connectivity
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func (r *Repository) query(ctx context.Context, query string, args ...any) ([]*Subscription, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query webhooks: %w", err)
	}

	subs, err := pgx.CollectRows(rows, scanSubscription)
	if err != nil {
		return nil, fmt.Errorf("failed to scan webhooks: %w", err)
	}
	return subs, nil
}

func scanSubscription(row pgx.CollectableRow) (*Subscription, error) {
	var sub Subscription
	err := row.Scan(
		&sub.ID,
		&sub.TenantID,
		&sub.Name,
		&sub.URL,
		&sub.Secret,
		&sub.Active,
		&sub.Events,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}
