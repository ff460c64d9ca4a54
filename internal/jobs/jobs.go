package jobs

import (
	"github.com/riverqueue/river"

	"github.com/formulando/relay/internal/dispatch"
)

// QueueWebhooks is the River queue dispatch jobs run on
const QueueWebhooks = "webhooks"

// DispatchArgs represents one event to fan out to a tenant's webhooks
type DispatchArgs struct {
	TenantID string         `json:"tenant_id"`
	Event    dispatch.Event `json:"event"`
}

// Kind returns the job kind for River queue
func (DispatchArgs) Kind() string {
	return "webhook_dispatch"
}

// InsertOpts routes dispatch jobs to the webhooks queue. Deliveries are
// attempted exactly once, so the job is never retried.
func (DispatchArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue:       QueueWebhooks,
		MaxAttempts: 1,
	}
}
