package observability

import (
	"go.opentelemetry.io/otel/metric"
)

// RelayMetrics holds application-specific metrics
type RelayMetrics struct {
	Dispatches           metric.Int64Counter
	Deliveries           metric.Int64Counter
	DeliveryDuration     metric.Float64Histogram
	EventsPublished      metric.Int64Counter
	WebhookRegistrations metric.Int64Counter
}

// NewRelayMetrics creates application-specific metrics on the global meter provider
func NewRelayMetrics() (*RelayMetrics, error) {
	return NewRelayMetricsFor(GetMeter("formulando-relay"))
}

// NewRelayMetricsFor creates the metrics on a specific meter
func NewRelayMetricsFor(meter metric.Meter) (*RelayMetrics, error) {
	dispatches, err := meter.Int64Counter(
		"relay_webhook_dispatches_total",
		metric.WithDescription("Total number of dispatch rounds, by result"),
	)
	if err != nil {
		return nil, err
	}

	deliveries, err := meter.Int64Counter(
		"relay_webhook_deliveries_total",
		metric.WithDescription("Total number of webhook delivery attempts, by outcome"),
	)
	if err != nil {
		return nil, err
	}

	deliveryDuration, err := meter.Float64Histogram(
		"relay_webhook_delivery_duration_seconds",
		metric.WithDescription("Duration of webhook delivery attempts in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	eventsPublished, err := meter.Int64Counter(
		"relay_events_published_total",
		metric.WithDescription("Total number of events handed to the dispatcher"),
	)
	if err != nil {
		return nil, err
	}

	webhookRegistrations, err := meter.Int64Counter(
		"relay_webhook_registrations_total",
		metric.WithDescription("Total number of webhook registrations"),
	)
	if err != nil {
		return nil, err
	}

	return &RelayMetrics{
		Dispatches:           dispatches,
		Deliveries:           deliveries,
		DeliveryDuration:     deliveryDuration,
		EventsPublished:      eventsPublished,
		WebhookRegistrations: webhookRegistrations,
	}, nil
}
