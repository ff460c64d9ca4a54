package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivertype"

	"github.com/formulando/relay/internal/dispatch"
	"github.com/formulando/relay/internal/jobs"
	"github.com/formulando/relay/internal/logger"
	"github.com/formulando/relay/internal/webhooks"
	"github.com/formulando/relay/internal/workers"
)

// Options configures a Manager
type Options struct {
	// Workers is the number of concurrent dispatch jobs
	Workers int
	// JobTimeout bounds a whole dispatch job; 0 keeps River's default and
	// a negative value disables it
	JobTimeout time.Duration
	// Dispatch is applied to the dispatcher the workers run
	Dispatch []dispatch.Option
}

// Manager owns the database pool, the webhook repository and the River
// client that runs dispatch jobs.
type Manager struct {
	client      *river.Client[pgx.Tx]
	dbPool      *pgxpool.Pool
	webhookRepo *webhooks.Repository
	log         *slog.Logger
}

var _ dispatch.Publisher = (*Manager)(nil)

// NewManager creates a new queue manager
func NewManager(ctx context.Context, databaseURL string, opts Options) (*Manager, error) {
	dbPool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create database pool: %w", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	webhookRepo := webhooks.NewRepository(dbPool)
	dispatcher := dispatch.New(webhookRepo, opts.Dispatch...)

	riverWorkers := river.NewWorkers()
	river.AddWorker(riverWorkers, workers.NewDispatchWorker(dispatcher, opts.JobTimeout))

	riverClient, err := river.NewClient(riverpgxv5.New(dbPool), &river.Config{
		Queues: map[string]river.QueueConfig{
			jobs.QueueWebhooks: {MaxWorkers: opts.Workers},
		},
		Workers: riverWorkers,
		Logger:  logger.NewLogger("river"),
	})
	if err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("failed to create River client: %w", err)
	}

	return &Manager{
		client:      riverClient,
		dbPool:      dbPool,
		webhookRepo: webhookRepo,
		log:         logger.NewLogger("queue-manager"),
	}, nil
}

// Start starts the queue processing
func (m *Manager) Start(ctx context.Context) error {
	if err := m.client.Start(ctx); err != nil {
		m.log.Error("Failed to start River client", "error", err)
		return fmt.Errorf("failed to start River client: %w", err)
	}

	m.log.Info("River queue started successfully", "queue", jobs.QueueWebhooks)
	return nil
}

// Stop waits for running jobs to finish and closes the pool
func (m *Manager) Stop(ctx context.Context) error {
	err := m.client.Stop(ctx)
	m.dbPool.Close()
	return err
}

// GetWebhookRepo returns the webhook repository
func (m *Manager) GetWebhookRepo() *webhooks.Repository {
	return m.webhookRepo
}

// Publish enqueues a dispatch job. Enqueue errors are logged, never
// returned, so the caller's operation is unaffected.
func (m *Manager) Publish(ctx context.Context, tenantID string, ev dispatch.Event) {
	ctx = context.WithoutCancel(ctx)
	_, err := m.InsertDispatchJob(ctx, jobs.DispatchArgs{TenantID: tenantID, Event: ev})
	if err != nil {
		m.log.Error("Failed to enqueue dispatch job",
			"tenant_id", tenantID,
			"event", ev.Name,
			"error", err,
		)
	}
}

// InsertDispatchJob inserts a single dispatch job
func (m *Manager) InsertDispatchJob(ctx context.Context, args jobs.DispatchArgs) (*rivertype.JobInsertResult, error) {
	return m.client.Insert(ctx, args, nil)
}

// JobTimeout derives a job timeout from the dispatch settings. With
// unbounded fan-out every attempt runs at once, so a dispatch takes at most
// one lookup plus one attempt; with a limit the duration depends on the
// subscriber count and the job timeout is disabled.
func JobTimeout(attemptTimeout time.Duration, maxConcurrency int) time.Duration {
	if maxConcurrency > 0 {
		return -1
	}
	return 2*attemptTimeout + 30*time.Second
}
