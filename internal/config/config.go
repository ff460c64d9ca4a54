package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Store drivers
const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// Config holds the application configuration
type Config struct {
	DatabaseURL string `envconfig:"DATABASE_URL" default:"postgres://localhost/formulando?sslmode=disable"`
	StoreDriver string `envconfig:"STORE_DRIVER" default:"postgres"`

	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`
	GRPCAddr string `envconfig:"GRPC_ADDR" default:":50051"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	Webhook WebhookConfig `envconfig:"WEBHOOK"`
	Queue   QueueConfig   `envconfig:"QUEUE"`
	Otel    OtelConfig    `envconfig:"OTEL"`
}

// WebhookConfig controls outbound delivery (WEBHOOK_*)
type WebhookConfig struct {
	Timeout         time.Duration `envconfig:"TIMEOUT" default:"5s"`
	MaxConcurrency  int           `envconfig:"MAX_CONCURRENCY" default:"0"`
	UserAgent       string        `envconfig:"USER_AGENT" default:"Formulando-Webhook/1.0"`
	SignatureHeader string        `envconfig:"SIGNATURE_HEADER" default:"X-Formulando-Signature"`
}

// QueueConfig controls the River dispatch queue (QUEUE_*)
type QueueConfig struct {
	Workers int `envconfig:"WORKERS" default:"8"`
}

// OtelConfig controls tracing and metrics export (OTEL_*)
type OtelConfig struct {
	ServiceName    string        `envconfig:"SERVICE_NAME" default:"formulando-relay"`
	Environment    string        `envconfig:"ENVIRONMENT" default:"development"`
	Endpoint       string        `envconfig:"EXPORTER_OTLP_ENDPOINT" default:"localhost:4318"`
	EnableTracing  bool          `envconfig:"TRACING_ENABLED" default:"false"`
	EnableMetrics  bool          `envconfig:"METRICS_ENABLED" default:"false"`
	SampleRate     float64       `envconfig:"SAMPLE_RATE" default:"1.0"`
	MetricInterval time.Duration `envconfig:"METRIC_INTERVAL" default:"30s"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values envconfig cannot express
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreDriverPostgres, StoreDriverMemory:
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.StoreDriver)
	}
	if c.Webhook.Timeout <= 0 {
		return fmt.Errorf("WEBHOOK_TIMEOUT must be positive, got %s", c.Webhook.Timeout)
	}
	if c.Webhook.MaxConcurrency < 0 {
		return fmt.Errorf("WEBHOOK_MAX_CONCURRENCY must not be negative, got %d", c.Webhook.MaxConcurrency)
	}
	if c.Queue.Workers <= 0 {
		return fmt.Errorf("QUEUE_WORKERS must be positive, got %d", c.Queue.Workers)
	}
	return nil
}
