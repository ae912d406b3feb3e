package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/KirkDiggler/rpg-toolkit/events"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	grpc_logging "github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/logging"
	grpc_recovery "github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/recovery"

	v1alpha1 "github.com/KirkDiggler/rpg-compendium/internal/handlers/compendium/v1alpha1"
	"github.com/KirkDiggler/rpg-compendium/internal/orchestrators/cachebuilder"
	"github.com/KirkDiggler/rpg-compendium/internal/pkg/filewatch"
)

var grpcPort int

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the gRPC server",
	Long:  `Start the compendium gRPC server. The persisted snapshot is loaded at startup.`,
	RunE:  runServer,
}

func init() {
	serverCmd.Flags().IntVar(&grpcPort, "port", 0, "gRPC server port (overrides config)")
}

func runServer(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if grpcPort != 0 {
		cfg.Server.Port = grpcPort
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	a.events.SubscribeFunc(cachebuilder.EventCacheRebuilt, 0, func(_ context.Context, e events.Event) error {
		version, _ := e.Context().Get(cachebuilder.KeyCacheVersion)
		slog.Info("Serving rebuilt compendium snapshot", "build_id", e.Source().GetID(), "cache_version", version)
		return nil
	})

	if _, err := a.builder.LoadSnapshot(ctx); err != nil {
		// serve anyway; a rebuild can recover
		slog.Error("Failed to load compendium snapshot", "error", err)
	}

	if a.snapshotFile != "" && cfg.Snapshot.Watch {
		watcher, err := filewatch.New(&filewatch.Config{
			Path:     a.snapshotFile,
			Debounce: cfg.Snapshot.WatchDebounce.Std(),
			OnChange: func() {
				if _, err := a.builder.LoadSnapshot(ctx); err != nil {
					slog.Warn("Snapshot reload failed", "path", a.snapshotFile, "error", err)
				}
			},
		})
		if err != nil {
			return fmt.Errorf("failed to create snapshot watcher: %w", err)
		}
		go func() {
			if err := watcher.Run(ctx); err != nil {
				slog.Warn("Snapshot watcher stopped", "error", err)
			}
		}()
	}

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.Port))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	logger := interceptorLogger(slog.Default())
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			grpc_logging.UnaryServerInterceptor(logger),
			grpc_recovery.UnaryServerInterceptor(),
		),
		grpc.ChainStreamInterceptor(
			grpc_logging.StreamServerInterceptor(logger),
			grpc_recovery.StreamServerInterceptor(),
		),
	)

	v1alpha1.RegisterCompendiumServiceServer(srv, a.handler)

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(srv, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(v1alpha1.ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	reflection.Register(srv)

	errChan := make(chan error, 1)
	go func() {
		slog.Info("gRPC server starting", "port", cfg.Server.Port, "version", version)
		if err := srv.Serve(lis); err != nil {
			errChan <- fmt.Errorf("failed to serve: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("Shutting down gRPC server")
		healthServer.Shutdown()

		stopped := make(chan struct{})
		go func() {
			srv.GracefulStop()
			close(stopped)
		}()

		select {
		case <-time.After(30 * time.Second):
			slog.Warn("Graceful shutdown timeout exceeded, forcing stop")
			srv.Stop()
		case <-stopped:
			slog.Info("Server stopped gracefully")
		}
		return nil
	case err := <-errChan:
		return err
	}
}

func interceptorLogger(l *slog.Logger) grpc_logging.Logger {
	return grpc_logging.LoggerFunc(func(ctx context.Context, lvl grpc_logging.Level, msg string, fields ...any) {
		l.Log(ctx, slog.Level(lvl), msg, fields...)
	})
}
