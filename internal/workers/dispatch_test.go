package workers

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formulando/relay/internal/dispatch"
	"github.com/formulando/relay/internal/jobs"
	"github.com/formulando/relay/internal/logger"
	"github.com/formulando/relay/internal/webhooks"
)

func newJob(args jobs.DispatchArgs) *river.Job[jobs.DispatchArgs] {
	return &river.Job[jobs.DispatchArgs]{
		JobRow: &rivertype.JobRow{ID: 1, Kind: args.Kind()},
		Args:   args,
	}
}

func TestDispatchWorkerDelivers(t *testing.T) {
	ctx := context.Background()
	store := webhooks.NewMemoryStore()
	require.NoError(t, store.Create(ctx, &webhooks.Subscription{
		TenantID: "T1", URL: "https://a.test/hook", Active: true,
	}))

	var hits atomic.Int32
	mock := httpmock.NewMockTransport()
	mock.RegisterResponder(http.MethodPost, "https://a.test/hook", func(*http.Request) (*http.Response, error) {
		hits.Add(1)
		return httpmock.NewStringResponse(http.StatusOK, ""), nil
	})

	d := dispatch.New(store,
		dispatch.WithHTTPClient(&http.Client{Transport: mock}),
		dispatch.WithLogger(logger.Discard()),
	)
	worker := NewDispatchWorker(d, time.Minute)

	err := worker.Work(ctx, newJob(jobs.DispatchArgs{
		TenantID: "T1",
		Event:    dispatch.NewEvent("lead.created", nil),
	}))

	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestDispatchWorkerNeverFails(t *testing.T) {
	ctx := context.Background()
	store := webhooks.NewMemoryStore()
	require.NoError(t, store.Create(ctx, &webhooks.Subscription{
		TenantID: "T1", URL: "https://down.test/hook", Active: true,
	}))

	mock := httpmock.NewMockTransport()
	mock.RegisterNoResponder(httpmock.NewStringResponder(http.StatusServiceUnavailable, ""))

	d := dispatch.New(store,
		dispatch.WithHTTPClient(&http.Client{Transport: mock}),
		dispatch.WithLogger(logger.Discard()),
	)
	worker := NewDispatchWorker(d, 0)

	err := worker.Work(ctx, newJob(jobs.DispatchArgs{
		TenantID: "T1",
		Event:    dispatch.NewEvent("lead.created", nil),
	}))

	assert.NoError(t, err, "failed deliveries are not retried")
}

func TestDispatchWorkerTimeout(t *testing.T) {
	worker := NewDispatchWorker(nil, 30*time.Second)
	assert.Equal(t, 30*time.Second, worker.Timeout(newJob(jobs.DispatchArgs{})))
}
