package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/formulando/relay/internal/config"
	relayconnect "github.com/formulando/relay/internal/connect"
	"github.com/formulando/relay/internal/dispatch"
	grpcserver "github.com/formulando/relay/internal/grpc"
	"github.com/formulando/relay/internal/logger"
	"github.com/formulando/relay/internal/observability"
	"github.com/formulando/relay/internal/queue"
	"github.com/formulando/relay/internal/webhooks"
)

const (
	healthInterval  = 15 * time.Second
	shutdownTimeout = 30 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger.Configure(cfg.LogLevel, cfg.LogFormat)
	log := logger.NewLogger("main")

	if err := run(cfg, log); err != nil {
		log.Error("Relay stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("Shutdown complete")
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listeners come first so a bad address fails before the database pool
	// and the queue client exist.
	grpcListener, err := listen(cfg.GRPCAddr)
	if err != nil {
		return err
	}
	defer grpcListener.Close()

	httpListener, err := listen(cfg.HTTPAddr)
	if err != nil {
		return err
	}
	defer httpListener.Close()

	shutdownOtel, err := observability.Setup(ctx, observability.FromAppConfig(cfg.Otel))
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownOtel(context.Background()); err != nil {
			log.Error("Failed to shut down OpenTelemetry", "error", err)
		}
	}()

	metrics, err := observability.NewRelayMetrics()
	if err != nil {
		log.Error("Failed to initialize metrics", "error", err)
	}

	dispatchOpts := []dispatch.Option{
		dispatch.WithTimeout(cfg.Webhook.Timeout),
		dispatch.WithMaxConcurrency(cfg.Webhook.MaxConcurrency),
		dispatch.WithUserAgent(cfg.Webhook.UserAgent),
		dispatch.WithSignatureHeader(cfg.Webhook.SignatureHeader),
		dispatch.WithMetrics(metrics),
	}

	var (
		store         webhooks.Store
		publisher     dispatch.Publisher
		stopPublisher func(context.Context) error
	)

	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		memory := webhooks.NewMemoryStore()
		background := dispatch.NewBackground(dispatch.New(memory, dispatchOpts...))
		store, publisher, stopPublisher = memory, background, background.Wait
		log.Warn("Using in-memory webhook store; webhooks are lost on restart")

	default:
		manager, err := queue.NewManager(ctx, cfg.DatabaseURL, queue.Options{
			Workers:    cfg.Queue.Workers,
			JobTimeout: queue.JobTimeout(cfg.Webhook.Timeout, cfg.Webhook.MaxConcurrency),
			Dispatch:   dispatchOpts,
		})
		if err != nil {
			return err
		}
		// River stops abruptly when its start context ends, so it gets its
		// own and is stopped explicitly below.
		if err := manager.Start(context.Background()); err != nil {
			_ = manager.Stop(context.Background())
			return err
		}
		store, publisher, stopPublisher = manager.GetWebhookRepo(), manager, manager.Stop
		log.Info("Connected to database")
	}

	// gRPC health
	checker := grpcserver.NewHealthChecker(store, healthInterval)
	go checker.Run(ctx)

	grpcServer := grpcserver.NewServer(checker)

	// Connect-RPC over HTTP/1.1 and h2c
	mux := http.NewServeMux()
	mux.Handle(relayconnect.NewWebhookServer(store, publisher, metrics).Handler())
	mux.HandleFunc("/health", healthHandler(store))

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           h2c.NewHandler(otelhttp.NewHandler(mux, "relay-http"), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		log.Info("gRPC health server starting", "addr", grpcListener.Addr().String())
		if err := grpcServer.Serve(grpcListener); err != nil {
			errCh <- err
		}
	}()
	go func() {
		log.Info("Connect-RPC server starting", "addr", httpListener.Addr().String())
		if err := httpServer.Serve(httpListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		log.Info("Shutting down")
	case serveErr = <-errCh:
		log.Error("Server failed", "error", serveErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("Failed to shut down HTTP server", "error", err)
	}
	grpcServer.GracefulStop()

	// Let accepted events finish dispatching
	if err := stopPublisher(shutdownCtx); err != nil {
		log.Error("Failed to drain dispatches", "error", err)
	}
	return serveErr
}

func listen(addr string) (net.Listener, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return lis, nil
}

func healthHandler(store webhooks.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := store.Ping(ctx); err != nil {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}
