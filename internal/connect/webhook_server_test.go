package connect

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formulando/relay/internal/dispatch"
	"github.com/formulando/relay/internal/logger"
	"github.com/formulando/relay/internal/webhooks"
)

type published struct {
	TenantID string
	Event    dispatch.Event
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []published
}

func (p *recordingPublisher) Publish(ctx context.Context, tenantID string, ev dispatch.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{TenantID: tenantID, Event: ev})
}

func (p *recordingPublisher) all() []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]published(nil), p.events...)
}

func newTestServer(t *testing.T, store webhooks.Store, publisher dispatch.Publisher) *WebhookServiceClient {
	t.Helper()
	server := NewWebhookServer(store, publisher, nil)
	server.logger = logger.Discard()

	mux := http.NewServeMux()
	mux.Handle(server.Handler())
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return NewWebhookServiceClient(srv.Client(), srv.URL)
}

func TestCreateWebhook(t *testing.T) {
	client := newTestServer(t, webhooks.NewMemoryStore(), &recordingPublisher{})

	resp, err := client.CreateWebhook(context.Background(), connect.NewRequest(&CreateWebhookRequest{
		TenantID: "T1",
		Name:     "CRM",
		URL:      " https://a.test/hook ",
		Secret:   "s3cr3t",
	}))
	require.NoError(t, err)

	wh := resp.Msg.Webhook
	require.NotNil(t, wh)
	assert.NotEmpty(t, wh.ID)
	assert.Equal(t, "T1", wh.TenantID)
	assert.Equal(t, "CRM", wh.Name)
	assert.Equal(t, "https://a.test/hook", wh.URL)
	assert.Equal(t, []string{"lead.created"}, wh.Events)
	assert.True(t, wh.Active)
	assert.True(t, wh.HasSecret)
}

func TestCreateWebhookNeverReturnsSecret(t *testing.T) {
	client := newTestServer(t, webhooks.NewMemoryStore(), &recordingPublisher{})

	resp, err := client.CreateWebhook(context.Background(), connect.NewRequest(&CreateWebhookRequest{
		TenantID: "T1", URL: "https://a.test", Secret: "s3cr3t",
	}))
	require.NoError(t, err)

	raw, err := json.Marshal(resp.Msg)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "s3cr3t")
}

func TestCreateWebhookValidation(t *testing.T) {
	client := newTestServer(t, webhooks.NewMemoryStore(), &recordingPublisher{})
	ctx := context.Background()

	tests := []struct {
		name string
		req  *CreateWebhookRequest
	}{
		{"missing tenant", &CreateWebhookRequest{URL: "https://a.test"}},
		{"missing url", &CreateWebhookRequest{TenantID: "T1"}},
		{"relative url", &CreateWebhookRequest{TenantID: "T1", URL: "/hook"}},
		{"unsupported scheme", &CreateWebhookRequest{TenantID: "T1", URL: "ftp://a.test"}},
		{"blank event", &CreateWebhookRequest{TenantID: "T1", URL: "https://a.test", Events: []string{""}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.CreateWebhook(ctx, connect.NewRequest(tt.req))
			require.Error(t, err)
			assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
		})
	}
}

func TestListToggleDelete(t *testing.T) {
	store := webhooks.NewMemoryStore()
	client := newTestServer(t, store, &recordingPublisher{})
	ctx := context.Background()

	created, err := client.CreateWebhook(ctx, connect.NewRequest(&CreateWebhookRequest{
		TenantID: "T1", URL: "https://a.test", Events: []string{"*"},
	}))
	require.NoError(t, err)
	id := created.Msg.Webhook.ID

	_, err = client.CreateWebhook(ctx, connect.NewRequest(&CreateWebhookRequest{
		TenantID: "T2", URL: "https://other.test",
	}))
	require.NoError(t, err)

	list, err := client.ListWebhooks(ctx, connect.NewRequest(&ListWebhooksRequest{TenantID: "T1"}))
	require.NoError(t, err)
	require.Equal(t, 1, list.Msg.TotalCount)
	assert.Equal(t, id, list.Msg.Webhooks[0].ID)
	assert.False(t, list.Msg.Webhooks[0].HasSecret)

	toggled, err := client.ToggleWebhook(ctx, connect.NewRequest(&ToggleWebhookRequest{
		TenantID: "T1", WebhookID: id, Active: false,
	}))
	require.NoError(t, err)
	assert.True(t, toggled.Msg.Success)

	active, err := store.ListActive(ctx, "T1")
	require.NoError(t, err)
	assert.Empty(t, active)

	_, err = client.ToggleWebhook(ctx, connect.NewRequest(&ToggleWebhookRequest{
		TenantID: "T2", WebhookID: id, Active: true,
	}))
	assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err), "webhooks are tenant scoped")

	_, err = client.DeleteWebhook(ctx, connect.NewRequest(&DeleteWebhookRequest{TenantID: "T1", WebhookID: id}))
	require.NoError(t, err)

	_, err = client.DeleteWebhook(ctx, connect.NewRequest(&DeleteWebhookRequest{TenantID: "T1", WebhookID: id}))
	assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))

	_, err = client.ListWebhooks(ctx, connect.NewRequest(&ListWebhooksRequest{}))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
}

func TestPublishEvent(t *testing.T) {
	publisher := &recordingPublisher{}
	client := newTestServer(t, webhooks.NewMemoryStore(), publisher)

	resp, err := client.PublishEvent(context.Background(), connect.NewRequest(&PublishEventRequest{
		TenantID: "T1",
		Event:    "lead.created",
		Payload: map[string]any{
			"lead": map[string]any{"id": "L1", "email": "x@y.com", "score": 60},
		},
	}))
	require.NoError(t, err)
	assert.True(t, resp.Msg.Accepted)

	events := publisher.all()
	require.Len(t, events, 1)
	assert.Equal(t, "T1", events[0].TenantID)
	assert.Equal(t, "lead.created", events[0].Event.Name)

	lead, ok := events[0].Event.Fields["lead"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "L1", lead["id"])
	assert.Equal(t, json.Number("60"), lead["score"])
}

func TestPublishEventValidation(t *testing.T) {
	publisher := &recordingPublisher{}
	client := newTestServer(t, webhooks.NewMemoryStore(), publisher)
	ctx := context.Background()

	_, err := client.PublishEvent(ctx, connect.NewRequest(&PublishEventRequest{Event: "lead.created"}))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	_, err = client.PublishEvent(ctx, connect.NewRequest(&PublishEventRequest{TenantID: "T1"}))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	assert.Empty(t, publisher.all())
}

func TestPublishEventDeliversInBackground(t *testing.T) {
	received := make(chan http.Header, 1)
	subscriber := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received <- r.Header.Clone()
	}))
	defer subscriber.Close()

	store := webhooks.NewMemoryStore()
	d := dispatch.New(store, dispatch.WithLogger(logger.Discard()))
	bg := dispatch.NewBackground(d)
	client := newTestServer(t, store, bg)
	ctx := context.Background()

	_, err := client.CreateWebhook(ctx, connect.NewRequest(&CreateWebhookRequest{
		TenantID: "T1", URL: subscriber.URL, Secret: "s3cr3t",
	}))
	require.NoError(t, err)

	_, err = client.PublishEvent(ctx, connect.NewRequest(&PublishEventRequest{
		TenantID: "T1",
		Event:    "lead.created",
		Payload:  map[string]any{"lead": map[string]any{"id": "L1"}},
	}))
	require.NoError(t, err)

	select {
	case header := <-received:
		assert.Equal(t, dispatch.DefaultUserAgent, header.Get("User-Agent"))
		assert.NotEmpty(t, header.Get(dispatch.DefaultSignatureHeader))
	case <-time.After(5 * time.Second):
		t.Fatal("subscriber never received the delivery")
	}

	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, bg.Wait(waitCtx))
}
