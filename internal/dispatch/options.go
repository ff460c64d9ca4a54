package dispatch

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/formulando/relay/internal/observability"
)

// Defaults applied by New
const (
	DefaultTimeout         = 5 * time.Second
	DefaultUserAgent       = "Formulando-Webhook/1.0"
	DefaultSignatureHeader = "X-Formulando-Signature"
)

// Option configures a Dispatcher
type Option func(*Dispatcher)

// WithHTTPClient replaces the outbound HTTP client. Its Timeout should be
// zero; the per-attempt timeout is applied through the request context.
func WithHTTPClient(client *http.Client) Option {
	return func(d *Dispatcher) {
		if client != nil {
			d.client = client
		}
	}
}

// WithTimeout sets the per-attempt deadline
func WithTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// WithUserAgent sets the User-Agent header
func WithUserAgent(ua string) Option {
	return func(d *Dispatcher) {
		if ua != "" {
			d.userAgent = ua
		}
	}
}

// WithSignatureHeader sets the header carrying the HMAC signature
func WithSignatureHeader(name string) Option {
	return func(d *Dispatcher) {
		if name != "" {
			d.signatureHeader = name
		}
	}
}

// WithMaxConcurrency caps in-flight deliveries per dispatch; 0 is unlimited
func WithMaxConcurrency(n int) Option {
	return func(d *Dispatcher) {
		if n >= 0 {
			d.maxConcurrency = n
		}
	}
}

// WithLogger sets the logger
func WithLogger(log *slog.Logger) Option {
	return func(d *Dispatcher) {
		if log != nil {
			d.logger = log
		}
	}
}

// WithMetrics enables metric recording
func WithMetrics(m *observability.RelayMetrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// WithClock overrides the envelope timestamp source
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

// WithIDGenerator overrides the envelope id source
func WithIDGenerator(newID func() string) Option {
	return func(d *Dispatcher) {
		if newID != nil {
			d.newID = newID
		}
	}
}
