package connect

import (
	"context"
	"strings"

	"connectrpc.com/connect"
)

// WebhookServiceClient is a client for WebhookService
type WebhookServiceClient struct {
	createWebhook *connect.Client[CreateWebhookRequest, CreateWebhookResponse]
	listWebhooks  *connect.Client[ListWebhooksRequest, ListWebhooksResponse]
	toggleWebhook *connect.Client[ToggleWebhookRequest, ToggleWebhookResponse]
	deleteWebhook *connect.Client[DeleteWebhookRequest, DeleteWebhookResponse]
	publishEvent  *connect.Client[PublishEventRequest, PublishEventResponse]
}

// NewWebhookServiceClient constructs a client for the service at baseURL,
// e.g. http://localhost:8080.
func NewWebhookServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *WebhookServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(jsonCodec{})}, opts...)
	return &WebhookServiceClient{
		createWebhook: connect.NewClient[CreateWebhookRequest, CreateWebhookResponse](httpClient, baseURL+CreateWebhookProcedure, opts...),
		listWebhooks:  connect.NewClient[ListWebhooksRequest, ListWebhooksResponse](httpClient, baseURL+ListWebhooksProcedure, opts...),
		toggleWebhook: connect.NewClient[ToggleWebhookRequest, ToggleWebhookResponse](httpClient, baseURL+ToggleWebhookProcedure, opts...),
		deleteWebhook: connect.NewClient[DeleteWebhookRequest, DeleteWebhookResponse](httpClient, baseURL+DeleteWebhookProcedure, opts...),
		publishEvent:  connect.NewClient[PublishEventRequest, PublishEventResponse](httpClient, baseURL+PublishEventProcedure, opts...),
	}
}

func (c *WebhookServiceClient) CreateWebhook(ctx context.Context, req *connect.Request[CreateWebhookRequest]) (*connect.Response[CreateWebhookResponse], error) {
	return c.createWebhook.CallUnary(ctx, req)
}

func (c *WebhookServiceClient) ListWebhooks(ctx context.Context, req *connect.Request[ListWebhooksRequest]) (*connect.Response[ListWebhooksResponse], error) {
	return c.listWebhooks.CallUnary(ctx, req)
}

func (c *WebhookServiceClient) ToggleWebhook(ctx context.Context, req *connect.Request[ToggleWebhookRequest]) (*connect.Response[ToggleWebhookResponse], error) {
	return c.toggleWebhook.CallUnary(ctx, req)
}

func (c *WebhookServiceClient) DeleteWebhook(ctx context.Context, req *connect.Request[DeleteWebhookRequest]) (*connect.Response[DeleteWebhookResponse], error) {
	return c.deleteWebhook.CallUnary(ctx, req)
}

func (c *WebhookServiceClient) PublishEvent(ctx context.Context, req *connect.Request[PublishEventRequest]) (*connect.Response[PublishEventResponse], error) {
	return c.publishEvent.CallUnary(ctx, req)
}
