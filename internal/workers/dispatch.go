package workers

import (
	"context"
	"log/slog"
	"time"

	"github.com/riverqueue/river"

	"github.com/formulando/relay/internal/dispatch"
	"github.com/formulando/relay/internal/jobs"
	"github.com/formulando/relay/internal/logger"
)

// DispatchWorker runs queued dispatch jobs. Delivery failures are reported
// through logs and metrics only, so the job itself always succeeds.
type DispatchWorker struct {
	river.WorkerDefaults[jobs.DispatchArgs]
	dispatcher *dispatch.Dispatcher
	timeout    time.Duration
	log        *slog.Logger
}

// NewDispatchWorker creates a worker. timeout bounds a whole dispatch and
// should exceed the per-attempt timeout; zero keeps River's default.
func NewDispatchWorker(d *dispatch.Dispatcher, timeout time.Duration) *DispatchWorker {
	return &DispatchWorker{
		dispatcher: d,
		timeout:    timeout,
		log:        logger.NewLogger("dispatch-worker"),
	}
}

// Timeout overrides River's default job timeout
func (w *DispatchWorker) Timeout(*river.Job[jobs.DispatchArgs]) time.Duration {
	return w.timeout
}

// Work dispatches the job's event
func (w *DispatchWorker) Work(ctx context.Context, job *river.Job[jobs.DispatchArgs]) error {
	args := job.Args

	w.log.Debug("Processing dispatch job",
		"job_id", job.ID,
		"tenant_id", args.TenantID,
		"event", args.Event.Name,
	)

	summary := w.dispatcher.Dispatch(ctx, args.TenantID, args.Event)

	w.log.Debug("Dispatch job finished",
		"job_id", job.ID,
		"delivered", summary.Delivered,
		"failed", summary.Failed,
	)
	return nil
}
