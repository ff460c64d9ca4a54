// Package dispatch delivers domain events to a tenant's webhook subscribers.
//
// A dispatch loads the tenant's active subscriptions, keeps those that
// accept the event, and POSTs a freshly built envelope to each of them
// concurrently. Every attempt has its own deadline; one slow or failing
// endpoint never affects the others, and nothing is reported back to the
// caller as an error.
package dispatch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/formulando/relay/internal/logger"
	"github.com/formulando/relay/internal/observability"
	"github.com/formulando/relay/internal/webhooks"
)

// maxResponseBody bounds how much of a subscriber's response is drained
const maxResponseBody = 1 << 16

// SubscriptionSource is the read side of the subscription store
type SubscriptionSource interface {
	ListActive(ctx context.Context, tenantID string) ([]*webhooks.Subscription, error)
}

// Dispatcher fans a single event out to a tenant's subscribers
type Dispatcher struct {
	source          SubscriptionSource
	client          *http.Client
	timeout         time.Duration
	userAgent       string
	signatureHeader string
	maxConcurrency  int
	logger          *slog.Logger
	tracer          trace.Tracer
	metrics         *observability.RelayMetrics
	now             func() time.Time
	newID           func() string
}

// New creates a dispatcher reading subscriptions from source
func New(source SubscriptionSource, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		source:          source,
		client:          NewHTTPClient(),
		timeout:         DefaultTimeout,
		userAgent:       DefaultUserAgent,
		signatureHeader: DefaultSignatureHeader,
		logger:          logger.NewLogger("webhook-dispatcher"),
		tracer:          observability.GetTracer("formulando.relay.dispatch"),
		now:             time.Now,
		newID:           uuid.NewString,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// NewHTTPClient returns the default outbound client: traced transport,
// redirects are not followed so a 3xx counts as a failed delivery.
func NewHTTPClient() *http.Client {
	return &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// Dispatch delivers ev to every eligible subscription of tenantID and
// waits for all attempts to settle. It never fails and never panics.
func (d *Dispatcher) Dispatch(ctx context.Context, tenantID string, ev Event) (summary Summary) {
	summary.TenantID = tenantID
	summary.Event = ev.Name

	ctx, span := d.tracer.Start(ctx, "webhook.dispatch",
		trace.WithAttributes(
			attribute.String("tenant_id", tenantID),
			attribute.String("event", ev.Name),
		),
	)
	defer span.End()

	log := d.logger.With("tenant_id", tenantID, "event", ev.Name)

	defer func() {
		if r := recover(); r != nil {
			log.Error("Dispatch panicked", "panic", fmt.Sprint(r))
			span.SetStatus(otelcodes.Error, "panic")
		}
		d.recordDispatch(ctx, summary)
	}()

	subs, err := d.source.ListActive(ctx, tenantID)
	if err != nil {
		summary.LookupFailed = true
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, "failed to load webhooks")
		log.Error("Failed to load webhooks", "error", err)
		return summary
	}
	if len(subs) == 0 {
		log.Info("No active webhooks found")
		return summary
	}

	summary.Subscriptions = len(subs)
	results := make([]Result, len(subs))
	seen := make(map[string]bool, len(subs))

	var g errgroup.Group
	if d.maxConcurrency > 0 {
		g.SetLimit(d.maxConcurrency)
	}

	for i, sub := range subs {
		if sub == nil || !sub.Accepts(ev.Name) || seen[sub.ID] {
			results[i] = Result{Outcome: OutcomeSkipped}
			if sub != nil {
				results[i].SubscriptionID = sub.ID
				results[i].URL = sub.URL
			}
			continue
		}
		seen[sub.ID] = true

		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					log.Error("Webhook delivery panicked",
						"webhook_id", sub.ID,
						"url", sub.URL,
						"panic", fmt.Sprint(r),
					)
					results[i] = Result{
						SubscriptionID: sub.ID,
						URL:            sub.URL,
						Outcome:        OutcomeFailed,
						Err:            fmt.Errorf("delivery panicked: %v", r),
					}
				}
			}()
			results[i] = d.deliver(ctx, log, sub, ev)
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range results {
		summary.add(r)
	}

	span.SetAttributes(
		attribute.Int("webhooks.delivered", summary.Delivered),
		attribute.Int("webhooks.failed", summary.Failed),
		attribute.Int("webhooks.skipped", summary.Skipped),
	)

	log.Info("Dispatch completed",
		"subscriptions", summary.Subscriptions,
		"delivered", summary.Delivered,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
	)
	return summary
}

// deliver makes the single attempt for one subscription
func (d *Dispatcher) deliver(ctx context.Context, log *slog.Logger, sub *webhooks.Subscription, ev Event) (res Result) {
	res = Result{SubscriptionID: sub.ID, URL: sub.URL, Outcome: OutcomeFailed}
	log = log.With("webhook_id", sub.ID, "url", sub.URL)

	ctx, span := d.tracer.Start(ctx, "webhook.deliver",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("webhook_id", sub.ID),
			attribute.String("url", sub.URL),
		),
	)
	defer span.End()
	defer func() { d.recordDelivery(ctx, res) }()

	env := NewEnvelope(ev, d.newID(), d.now())
	res.DeliveryID = env.ID()

	body, err := env.Encode()
	if err != nil {
		res.Err = fmt.Errorf("failed to encode envelope: %w", err)
		span.RecordError(res.Err)
		span.SetStatus(otelcodes.Error, "encode failed")
		log.Error("Failed to encode webhook payload", "error", err)
		return res
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sub.URL, bytes.NewReader(body))
	if err != nil {
		res.Err = fmt.Errorf("failed to create request: %w", err)
		span.RecordError(res.Err)
		span.SetStatus(otelcodes.Error, "invalid request")
		log.Error("Failed to create request", "error", err)
		return res
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", d.userAgent)
	if sub.HasSecret() {
		req.Header.Set(d.signatureHeader, Sign(sub.Secret, body))
		res.Signed = true
	}

	log.Debug("Dispatching webhook", "delivery_id", res.DeliveryID, "signed", res.Signed)

	start := time.Now()
	resp, err := d.client.Do(req)
	res.Duration = time.Since(start)

	if err != nil {
		res.Err = err
		res.TimedOut = errors.Is(err, context.DeadlineExceeded)
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, "request failed")
		log.Error("Failed to reach webhook",
			"delivery_id", res.DeliveryID,
			"duration_ms", res.Duration.Milliseconds(),
			"timed_out", res.TimedOut,
			"error", err,
		)
		return res
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBody))

	res.StatusCode = resp.StatusCode
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		res.Outcome = OutcomeDelivered
		span.SetStatus(otelcodes.Ok, "delivered")
		log.Info("Webhook delivered successfully",
			"delivery_id", res.DeliveryID,
			"status_code", resp.StatusCode,
			"duration_ms", res.Duration.Milliseconds(),
		)
		return res
	}

	res.Err = fmt.Errorf("webhook responded with status %d", resp.StatusCode)
	span.SetStatus(otelcodes.Error, resp.Status)
	log.Warn("Webhook delivery failed",
		"delivery_id", res.DeliveryID,
		"status_code", resp.StatusCode,
		"status", resp.Status,
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res
}

func (d *Dispatcher) recordDispatch(ctx context.Context, s Summary) {
	if d.metrics == nil {
		return
	}
	result := "completed"
	switch {
	case s.LookupFailed:
		result = "lookup_failed"
	case s.Subscriptions == 0:
		result = "no_subscriptions"
	}
	d.metrics.Dispatches.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event", s.Event),
		attribute.String("result", result),
	))
}

func (d *Dispatcher) recordDelivery(ctx context.Context, r Result) {
	if d.metrics == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("outcome", string(r.Outcome)),
		attribute.Int("status_code", r.StatusCode),
	)
	d.metrics.Deliveries.Add(ctx, 1, attrs)
	d.metrics.DeliveryDuration.Record(ctx, r.Duration.Seconds(), attrs)
}
