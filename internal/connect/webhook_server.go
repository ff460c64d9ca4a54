package connect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"connectrpc.com/connect"
	"connectrpc.com/otelconnect"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/formulando/relay/internal/dispatch"
	"github.com/formulando/relay/internal/logger"
	"github.com/formulando/relay/internal/observability"
	"github.com/formulando/relay/internal/webhooks"
)

// WebhookServiceName is the fully-qualified name of the service
const WebhookServiceName = "formulando.relay.v1.WebhookService"

// Procedure paths of WebhookService
const (
	CreateWebhookProcedure = "/" + WebhookServiceName + "/CreateWebhook"
	ListWebhooksProcedure  = "/" + WebhookServiceName + "/ListWebhooks"
	ToggleWebhookProcedure = "/" + WebhookServiceName + "/ToggleWebhook"
	DeleteWebhookProcedure = "/" + WebhookServiceName + "/DeleteWebhook"
	PublishEventProcedure  = "/" + WebhookServiceName + "/PublishEvent"
)

// WebhookServer implements the WebhookService Connect-RPC interface
type WebhookServer struct {
	store     webhooks.Store
	publisher dispatch.Publisher
	logger    *slog.Logger
	tracer    trace.Tracer
	metrics   *observability.RelayMetrics
}

// NewWebhookServer creates a new Connect-RPC server instance. metrics may
// be nil.
func NewWebhookServer(store webhooks.Store, publisher dispatch.Publisher, metrics *observability.RelayMetrics) *WebhookServer {
	return &WebhookServer{
		store:     store,
		publisher: publisher,
		logger:    logger.NewLogger("connect-webhook-server"),
		tracer:    observability.GetTracer("formulando.relay.connect"),
		metrics:   metrics,
	}
}

// Handler returns the path prefix and handler serving every procedure
func (s *WebhookServer) Handler(opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)

	interceptor, err := otelconnect.NewInterceptor()
	if err != nil {
		s.logger.Error("Failed to create OpenTelemetry interceptor", "error", err)
	} else {
		opts = append(opts, connect.WithInterceptors(interceptor))
	}

	mux := http.NewServeMux()
	mux.Handle(CreateWebhookProcedure, connect.NewUnaryHandler(CreateWebhookProcedure, s.CreateWebhook, opts...))
	mux.Handle(ListWebhooksProcedure, connect.NewUnaryHandler(ListWebhooksProcedure, s.ListWebhooks, opts...))
	mux.Handle(ToggleWebhookProcedure, connect.NewUnaryHandler(ToggleWebhookProcedure, s.ToggleWebhook, opts...))
	mux.Handle(DeleteWebhookProcedure, connect.NewUnaryHandler(DeleteWebhookProcedure, s.DeleteWebhook, opts...))
	mux.Handle(PublishEventProcedure, connect.NewUnaryHandler(PublishEventProcedure, s.PublishEvent, opts...))
	return "/" + WebhookServiceName + "/", mux
}

// CreateWebhook registers a destination URL for a tenant
func (s *WebhookServer) CreateWebhook(
	ctx context.Context,
	req *connect.Request[CreateWebhookRequest],
) (*connect.Response[CreateWebhookResponse], error) {
	ctx, span := s.tracer.Start(ctx, "connect.webhook.create",
		trace.WithAttributes(
			attribute.String("tenant_id", req.Msg.TenantID),
			attribute.StringSlice("events", req.Msg.Events),
			attribute.String("url", req.Msg.URL),
		),
	)
	defer span.End()

	s.logger.Info("Connect: Received webhook registration request",
		"tenant_id", req.Msg.TenantID,
		"events", req.Msg.Events,
		"url", req.Msg.URL,
	)

	if req.Msg.TenantID == "" {
		return nil, invalidArgument(span, "tenant_id is required")
	}
	if req.Msg.URL == "" {
		return nil, invalidArgument(span, "url is required")
	}

	sub := &webhooks.Subscription{
		TenantID: req.Msg.TenantID,
		Name:     req.Msg.Name,
		URL:      req.Msg.URL,
		Secret:   req.Msg.Secret,
		Events:   req.Msg.Events,
		Active:   true,
	}

	if err := s.store.Create(ctx, sub); err != nil {
		s.logger.Error("Failed to register webhook",
			"tenant_id", req.Msg.TenantID,
			"url", req.Msg.URL,
			"error", err,
		)
		return nil, storeError(span, "failed to register webhook", err)
	}

	if s.metrics != nil {
		s.metrics.WebhookRegistrations.Add(ctx, 1)
	}

	span.SetAttributes(attribute.String("webhook_id", sub.ID))
	span.SetStatus(otelcodes.Ok, "webhook registered")

	s.logger.Info("Webhook registered successfully",
		"webhook_id", sub.ID,
		"tenant_id", sub.TenantID,
		"events", sub.Events,
		"signed", sub.HasSecret(),
	)

	return connect.NewResponse(&CreateWebhookResponse{Webhook: toWebhook(sub)}), nil
}

// ListWebhooks returns every webhook of a tenant, newest first
func (s *WebhookServer) ListWebhooks(
	ctx context.Context,
	req *connect.Request[ListWebhooksRequest],
) (*connect.Response[ListWebhooksResponse], error) {
	ctx, span := s.tracer.Start(ctx, "connect.webhook.list",
		trace.WithAttributes(attribute.String("tenant_id", req.Msg.TenantID)),
	)
	defer span.End()

	if req.Msg.TenantID == "" {
		return nil, invalidArgument(span, "tenant_id is required")
	}

	subs, err := s.store.List(ctx, req.Msg.TenantID)
	if err != nil {
		s.logger.Error("Failed to list webhooks", "tenant_id", req.Msg.TenantID, "error", err)
		return nil, storeError(span, "failed to list webhooks", err)
	}

	result := &ListWebhooksResponse{
		Webhooks:   make([]*Webhook, len(subs)),
		TotalCount: len(subs),
	}
	for i, sub := range subs {
		result.Webhooks[i] = toWebhook(sub)
	}

	span.SetAttributes(attribute.Int("webhooks_count", len(subs)))
	return connect.NewResponse(result), nil
}

// ToggleWebhook activates or deactivates a webhook
func (s *WebhookServer) ToggleWebhook(
	ctx context.Context,
	req *connect.Request[ToggleWebhookRequest],
) (*connect.Response[ToggleWebhookResponse], error) {
	ctx, span := s.tracer.Start(ctx, "connect.webhook.toggle",
		trace.WithAttributes(
			attribute.String("tenant_id", req.Msg.TenantID),
			attribute.String("webhook_id", req.Msg.WebhookID),
			attribute.Bool("active", req.Msg.Active),
		),
	)
	defer span.End()

	if req.Msg.TenantID == "" || req.Msg.WebhookID == "" {
		return nil, invalidArgument(span, "tenant_id and webhook_id are required")
	}

	if err := s.store.SetActive(ctx, req.Msg.TenantID, req.Msg.WebhookID, req.Msg.Active); err != nil {
		s.logger.Error("Failed to toggle webhook",
			"tenant_id", req.Msg.TenantID,
			"webhook_id", req.Msg.WebhookID,
			"error", err,
		)
		return nil, storeError(span, "failed to toggle webhook", err)
	}

	s.logger.Info("Webhook toggled",
		"tenant_id", req.Msg.TenantID,
		"webhook_id", req.Msg.WebhookID,
		"active", req.Msg.Active,
	)

	state := "deactivated"
	if req.Msg.Active {
		state = "activated"
	}
	return connect.NewResponse(&ToggleWebhookResponse{
		Success: true,
		Message: "Webhook " + state,
	}), nil
}

// DeleteWebhook removes a webhook
func (s *WebhookServer) DeleteWebhook(
	ctx context.Context,
	req *connect.Request[DeleteWebhookRequest],
) (*connect.Response[DeleteWebhookResponse], error) {
	ctx, span := s.tracer.Start(ctx, "connect.webhook.delete",
		trace.WithAttributes(
			attribute.String("tenant_id", req.Msg.TenantID),
			attribute.String("webhook_id", req.Msg.WebhookID),
		),
	)
	defer span.End()

	if req.Msg.TenantID == "" || req.Msg.WebhookID == "" {
		return nil, invalidArgument(span, "tenant_id and webhook_id are required")
	}

	if err := s.store.Delete(ctx, req.Msg.TenantID, req.Msg.WebhookID); err != nil {
		s.logger.Error("Failed to delete webhook",
			"tenant_id", req.Msg.TenantID,
			"webhook_id", req.Msg.WebhookID,
			"error", err,
		)
		return nil, storeError(span, "failed to delete webhook", err)
	}

	s.logger.Info("Webhook deleted successfully",
		"tenant_id", req.Msg.TenantID,
		"webhook_id", req.Msg.WebhookID,
	)

	return connect.NewResponse(&DeleteWebhookResponse{
		Success: true,
		Message: "Webhook deleted successfully",
	}), nil
}

// PublishEvent hands an event to the publisher and answers right away.
// Delivery outcomes are never reported back to the caller.
func (s *WebhookServer) PublishEvent(
	ctx context.Context,
	req *connect.Request[PublishEventRequest],
) (*connect.Response[PublishEventResponse], error) {
	ctx, span := s.tracer.Start(ctx, "connect.event.publish",
		trace.WithAttributes(
			attribute.String("tenant_id", req.Msg.TenantID),
			attribute.String("event", req.Msg.Event),
		),
	)
	defer span.End()

	if req.Msg.TenantID == "" {
		return nil, invalidArgument(span, "tenant_id is required")
	}

	ev := dispatch.NewEvent(req.Msg.Event, req.Msg.Payload)
	if err := ev.Validate(); err != nil {
		return nil, invalidArgument(span, err.Error())
	}

	s.publisher.Publish(ctx, req.Msg.TenantID, ev)

	if s.metrics != nil {
		s.metrics.EventsPublished.Add(ctx, 1, metric.WithAttributes(attribute.String("event", ev.Name)))
	}

	s.logger.Info("Event accepted for dispatch",
		"tenant_id", req.Msg.TenantID,
		"event", ev.Name,
	)

	return connect.NewResponse(&PublishEventResponse{
		Accepted: true,
		Message:  "Event accepted for dispatch",
	}), nil
}

func invalidArgument(span trace.Span, msg string) error {
	err := errors.New(msg)
	span.RecordError(err)
	span.SetStatus(otelcodes.Error, msg)
	return connect.NewError(connect.CodeInvalidArgument, err)
}

// storeError maps store errors onto Connect codes
func storeError(span trace.Span, msg string, err error) error {
	span.RecordError(err)
	span.SetStatus(otelcodes.Error, msg)

	switch {
	case errors.Is(err, webhooks.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, webhooks.ErrInvalidURL), errors.Is(err, webhooks.ErrInvalid):
		return connect.NewError(connect.CodeInvalidArgument, err)
	default:
		return connect.NewError(connect.CodeInternal, fmt.Errorf("%s: %w", msg, err))
	}
}
