package observability

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/formulando/relay/internal/config"
)

const instrumentationVersion = "1.0.0"

// Config holds OpenTelemetry configuration
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	OTLPEndpoint   string
	OTLPHeaders    map[string]string
	EnableTracing  bool
	EnableMetrics  bool
	SampleRate     float64 // 0.0 to 1.0
	MetricInterval time.Duration
}

// DefaultConfig returns a default OpenTelemetry configuration
func DefaultConfig() *Config {
	return &Config{
		ServiceName:    "formulando-relay",
		ServiceVersion: instrumentationVersion,
		Environment:    "development",
		OTLPEndpoint:   "localhost:4318", // Default OTLP HTTP endpoint
		EnableTracing:  true,
		EnableMetrics:  true,
		SampleRate:     1.0,
		MetricInterval: 30 * time.Second,
	}
}

// FromAppConfig maps the OTEL_* application settings
func FromAppConfig(c config.OtelConfig) *Config {
	cfg := DefaultConfig()
	cfg.ServiceName = c.ServiceName
	cfg.Environment = c.Environment
	cfg.OTLPEndpoint = c.Endpoint
	cfg.EnableTracing = c.EnableTracing
	cfg.EnableMetrics = c.EnableMetrics
	cfg.SampleRate = c.SampleRate
	if c.MetricInterval > 0 {
		cfg.MetricInterval = c.MetricInterval
	}
	return cfg
}

// Setup initializes OpenTelemetry with the provided configuration
func Setup(ctx context.Context, config *Config) (func(context.Context) error, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(config.ServiceName),
			semconv.ServiceVersionKey.String(config.ServiceVersion),
			semconv.DeploymentEnvironmentKey.String(config.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	var shutdownFuncs []func(context.Context) error

	if config.EnableTracing {
		tracerProvider, err := setupTracing(ctx, res, config)
		if err != nil {
			return nil, fmt.Errorf("failed to setup tracing: %w", err)
		}
		shutdownFuncs = append(shutdownFuncs, tracerProvider.Shutdown)
		otel.SetTracerProvider(tracerProvider)
	}

	if config.EnableMetrics {
		meterProvider, err := setupMetrics(ctx, res, config)
		if err != nil {
			return nil, fmt.Errorf("failed to setup metrics: %w", err)
		}
		shutdownFuncs = append(shutdownFuncs, meterProvider.Shutdown)
		otel.SetMeterProvider(meterProvider)
	}

	// Outbound webhook requests carry trace context to subscribers
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return func(ctx context.Context) error {
		var errs []error
		for _, fn := range shutdownFuncs {
			if err := fn(ctx); err != nil {
				errs = append(errs, err)
			}
		}
		if len(errs) > 0 {
			return fmt.Errorf("failed to shutdown OpenTelemetry: %w", errors.Join(errs...))
		}
		return nil
	}, nil
}

func setupTracing(ctx context.Context, res *resource.Resource, config *Config) (*sdktrace.TracerProvider, error) {
	var opts []otlptracehttp.Option
	if base, ok := endpointURL(config.OTLPEndpoint); ok {
		opts = append(opts, otlptracehttp.WithEndpointURL(base+"/v1/traces"))
	} else {
		opts = append(opts,
			otlptracehttp.WithEndpoint(config.OTLPEndpoint),
			otlptracehttp.WithInsecure(),
		)
	}

	if len(config.OTLPHeaders) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(config.OTLPHeaders))
	}

	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}

	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(Sampler(config.SampleRate)),
	)

	return tracerProvider, nil
}

// Sampler maps a sample rate onto a parent-based sampler
func Sampler(rate float64) sdktrace.Sampler {
	switch {
	case rate >= 1.0:
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	case rate <= 0.0:
		return sdktrace.ParentBased(sdktrace.NeverSample())
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(rate))
	}
}

func setupMetrics(ctx context.Context, res *resource.Resource, config *Config) (*sdkmetric.MeterProvider, error) {
	var opts []otlpmetrichttp.Option
	if base, ok := endpointURL(config.OTLPEndpoint); ok {
		opts = append(opts, otlpmetrichttp.WithEndpointURL(base+"/v1/metrics"))
	} else {
		opts = append(opts,
			otlpmetrichttp.WithEndpoint(config.OTLPEndpoint),
			otlpmetrichttp.WithInsecure(),
		)
	}

	if len(config.OTLPHeaders) > 0 {
		opts = append(opts, otlpmetrichttp.WithHeaders(config.OTLPHeaders))
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP metric exporter: %w", err)
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter,
			sdkmetric.WithInterval(config.MetricInterval))),
	)

	return meterProvider, nil
}

// endpointURL reports whether endpoint is a URL (OTEL_EXPORTER_OTLP_ENDPOINT
// form) rather than a bare host:port, returning it without a trailing slash.
// The scheme decides TLS and per-signal paths are appended to it.
func endpointURL(endpoint string) (string, bool) {
	if !strings.Contains(endpoint, "://") {
		return "", false
	}
	return strings.TrimRight(endpoint, "/"), true
}

// GetTracer returns a tracer for the given name
func GetTracer(name string) trace.Tracer {
	return otel.Tracer(name, trace.WithInstrumentationVersion(instrumentationVersion))
}

// GetMeter returns a meter for the given name
func GetMeter(name string) metric.Meter {
	return otel.Meter(name, metric.WithInstrumentationVersion(instrumentationVersion))
}
