package grpc

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	relayconnect "github.com/formulando/relay/internal/connect"
	"github.com/formulando/relay/internal/logger"
)

// Pinger reports whether a dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthChecker keeps the gRPC health status in line with the store
type HealthChecker struct {
	server   *health.Server
	pinger   Pinger
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger
}

// NewHealthChecker creates a checker that pings every interval
func NewHealthChecker(pinger Pinger, interval time.Duration) *HealthChecker {
	return &HealthChecker{
		server:   health.NewServer(),
		pinger:   pinger,
		interval: interval,
		timeout:  2 * time.Second,
		logger:   logger.NewLogger("health-checker"),
	}
}

// Server returns the underlying health service
func (h *HealthChecker) Server() *health.Server {
	return h.server
}

// Check pings once and publishes the result for the overall server and
// the webhook service. It reports whether the store is reachable.
func (h *HealthChecker) Check(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	err := h.pinger.Ping(ctx)
	if err != nil {
		status = healthpb.HealthCheckResponse_NOT_SERVING
		h.logger.Warn("Store health check failed", "error", err)
	}

	h.server.SetServingStatus("", status)
	h.server.SetServingStatus(relayconnect.WebhookServiceName, status)
	return err == nil
}

// Run checks immediately and then on every tick until ctx is done, at
// which point every service is reported NOT_SERVING.
func (h *HealthChecker) Run(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	h.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			h.server.Shutdown()
			return
		case <-ticker.C:
			h.Check(ctx)
		}
	}
}

// NewServer creates a traced gRPC server exposing the health service
func NewServer(checker *HealthChecker, opts ...grpc.ServerOption) *grpc.Server {
	opts = append([]grpc.ServerOption{grpc.StatsHandler(otelgrpc.NewServerHandler())}, opts...)
	s := grpc.NewServer(opts...)
	healthpb.RegisterHealthServer(s, checker.Server())
	return s
}
