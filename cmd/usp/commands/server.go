package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/usphq/usp/internal/app"
	"github.com/usphq/usp/internal/config"
	uspHTTP "github.com/usphq/usp/internal/http"
)

// RunServer starts the HTTP server with graceful shutdown support.
// Loads configuration, initializes the DI container, and starts the Gin HTTP
// server, the metrics server, and the lease manager. When KMS auto-unseal is
// enabled the hierarchy is brought up before serving; otherwise the process
// starts sealed and waits for operator shares on the seal control plane.
// Blocks until receiving SIGINT/SIGTERM or encountering a fatal error.
func RunServer(ctx context.Context, version string) error {
	// Load configuration
	cfg := config.Load()

	// Set Gin mode based on log level
	gin.SetMode(cfg.GetGinMode())

	// Create DI container
	container := app.NewContainer(cfg)

	// Get logger from container
	logger := container.Logger()
	logger.Info("starting server", slog.String("version", version))

	// Ensure cleanup on exit
	defer closeContainer(container, logger)

	// Get HTTP server from container (this initializes all dependencies)
	server, err := container.HTTPServer()
	if err != nil {
		return fmt.Errorf("failed to initialize HTTP server: %w", err)
	}

	// Get Metrics server from container
	metricsServer, err := container.MetricsServer()
	if err != nil {
		return fmt.Errorf("failed to initialize metrics server: %w", err)
	}

	leaseManager, err := container.LeaseManager()
	if err != nil {
		return fmt.Errorf("failed to initialize lease manager: %w", err)
	}

	// Setup graceful shutdown
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if cfg.UnsealAutoEnabled {
		sealUC, err := container.SealUseCase()
		if err != nil {
			return fmt.Errorf("failed to initialize seal use case: %w", err)
		}
		status, err := sealUC.AutoUnseal(ctx)
		if err != nil {
			return fmt.Errorf("auto-unseal failed: %w", err)
		}
		logger.Info("auto-unseal completed", slog.String("state", string(status.State)))
	}

	// Start servers and the lease scheduler under one supervisor; the first
	// failure cancels the group context.
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := server.Start(groupCtx); err != nil {
			return fmt.Errorf("api server error: %w", err)
		}
		return nil
	})

	if metricsServer != nil {
		group.Go(func() error {
			if err := metricsServer.Start(groupCtx); err != nil {
				return fmt.Errorf("metrics server error: %w", err)
			}
			return nil
		})
	}

	group.Go(func() error {
		if err := leaseManager.Start(groupCtx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("lease manager error: %w", err)
		}
		return nil
	})

	// Wait for a shutdown signal or the first component failure.
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case <-groupCtx.Done():
		logger.Error("component failed, initiating shutdown")
	}

	shutdownErr := shutdownServers(server, metricsServer, cfg, nil)

	// Shutdown unblocks the listeners, so every group member has returned.
	if err := group.Wait(); err != nil {
		logger.Error("server error", slog.Any("error", err))
		return errors.Join(err, shutdownErr)
	}
	return shutdownErr
}

// shutdownServers gracefully stops both listeners, joining any shutdown
// failures onto the original cause.
func shutdownServers(server *uspHTTP.Server, metricsServer *uspHTTP.MetricsServer, cfg *config.Config, cause error) error {
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer shutdownCancel()

	var errs []error
	if cause != nil {
		errs = append(errs, cause)
	}

	if server != nil {
		if err := server.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("api server shutdown: %w", err))
		}
	}

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}

	return errors.Join(errs...)
}
