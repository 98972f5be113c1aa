package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/oshokin/telerobot/internal/actor"
	api "github.com/oshokin/telerobot/internal/api/grpc/robot"
	"github.com/oshokin/telerobot/internal/broadcast"
	"github.com/oshokin/telerobot/internal/config"
	"github.com/oshokin/telerobot/internal/gateway"
	"github.com/oshokin/telerobot/internal/logger"
	"github.com/oshokin/telerobot/internal/telemetry"
)

// Options controls the robot-server process and configuration.
type Options struct {
	// ConfigPath specifies the path to the settings file.
	ConfigPath string
	// ListenAddress provides an optional listen address override for the gRPC server.
	ListenAddress string
	// StoragePath overrides storage.path from the settings file.
	StoragePath string
}

// ErrNoServerAddress indicates missing server configuration.
var ErrNoServerAddress = errors.New("no server address configured")

// shutdownTimeout bounds flushing resident robots and exporting spans on exit.
const shutdownTimeout = 10 * time.Second

// setupTelemetry installs the tracer provider; replaced in tests.
var setupTelemetry = telemetry.Setup

// Run starts the gRPC server and blocks until ctx is canceled or the server stops.
// On exit every resident robot is flushed to storage before storage is closed.
//
//nolint:funlen // Process wiring reads best top to bottom.
func Run(ctx context.Context, opts *Options) error {
	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	configureLogger(settings)

	ctx = logger.WithName(ctx, "robot-server")

	if opts.StoragePath != "" {
		settings.Storage.Path = opts.StoragePath
	}

	listenAddress, err := resolveListenAddress(settings.ServerAddress, opts.ListenAddress)
	if err != nil {
		return fmt.Errorf("resolve listen address: %w", err)
	}

	shutdownTracing, err := setupTelemetry(ctx, settings.Telemetry.ServiceName, settings.Telemetry.Endpoint)
	if err != nil {
		return fmt.Errorf("setup telemetry: %w", err)
	}

	// Runs last, after robots are flushed and storage is closed.
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		if err := shutdownTracing(stopCtx); err != nil {
			logger.ErrorKV(ctx, "Failed to flush traces", "error", err)
		}
	}()

	store, err := openStorage(ctx, &settings.Storage)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}

	broker := broadcast.NewBroker()
	registry := actor.NewRegistry(ctx, store.states, broker,
		actor.WithArbitrationWindow(settings.Actor.ArbitrationWindow),
		actor.WithMailboxSize(settings.Actor.MailboxSize),
	)

	defer func() {
		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		if err := registry.Shutdown(stopCtx); err != nil {
			logger.ErrorKV(ctx, "Failed to flush robots", "error", err)
		}

		broker.Close()

		if err := store.close(); err != nil {
			logger.ErrorKV(ctx, "Failed to close storage", "error", err)
		}
	}()

	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", listenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", listenAddress, err)
	}

	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	api.RegisterRobotServiceServer(grpcServer, api.NewServer(
		gateway.New(registry, store.commands),
		broker,
		settings.Actor.StatusBuffer,
	))

	healthServer := health.NewServer()
	healthServer.SetServingStatus(api.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	go registry.RunEvictor(ctx, settings.Actor.EvictionInterval, settings.Actor.IdleTimeout)

	logger.InfoKV(ctx, "Robot server listening",
		"listen_address", listenAddress,
		"storage_driver", settings.Storage.Driver,
		"storage_path", settings.Storage.Path,
		"arbitration_window", settings.Actor.ArbitrationWindow,
	)

	// Done channel is closed after GracefulStop finishes to ensure we block
	// until the server fully stops before returning.
	done := make(chan struct{})

	go func() {
		<-ctx.Done()
		logger.Info(ctx, "Shutting down gRPC server")
		healthServer.Shutdown()
		// Ends every WatchStatus stream so GracefulStop is not held up by them.
		broker.Close()
		stopGracefully(grpcServer, shutdownTimeout)
		close(done)
	}()

	if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serve gRPC: %w", err)
	}

	<-done
	logger.Info(ctx, "GRPC server stopped")

	return nil
}

// stopGracefully waits up to timeout for in-flight RPCs, then closes the rest.
func stopGracefully(s *grpc.Server, timeout time.Duration) {
	stopped := make(chan struct{})

	go func() {
		s.GracefulStop()
		close(stopped)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-stopped:
	case <-timer.C:
		s.Stop()
		<-stopped
	}
}

func configureLogger(settings *config.Config) {
	if settings.LogFormat == string(logger.EncodingJSON) {
		logger.SetLogger(logger.New(logger.EncodingJSON))
	}

	if level, ok := logger.ParseLogLevel(settings.LogLevel); ok {
		logger.SetLevel(level)
	}
}

// resolveListenAddress determines the listen address for the gRPC server.
// If override is provided, uses it directly. Otherwise extracts port from configAddr.
func resolveListenAddress(configAddr, override string) (string, error) {
	if override != "" {
		return override, nil
	}

	if configAddr == "" {
		return "", ErrNoServerAddress
	}

	_, port, err := net.SplitHostPort(configAddr)
	if err != nil {
		return "", fmt.Errorf("invalid server address format %q: %w", configAddr, err)
	}

	// Bind on all interfaces.
	return ":" + port, nil
}
