// Package commands contains CLI command implementations for the platform.
package commands

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/golang-migrate/migrate/v4"

	"github.com/usphq/usp/internal/app"
	sealDomain "github.com/usphq/usp/internal/seal/domain"
	sealUseCase "github.com/usphq/usp/internal/seal/usecase"
)

// ErrUsage marks command argument errors so the entry point can map them to
// the usage exit code.
var ErrUsage = errors.New("usage error")

// IOTuple holds reader and writer for commands, allowing for testing.
type IOTuple struct {
	Reader io.Reader
	Writer io.Writer
}

// DefaultIO returns an IOTuple with os.Stdin and os.Stdout.
func DefaultIO() IOTuple {
	return IOTuple{
		Reader: os.Stdin,
		Writer: os.Stdout,
	}
}

// closeContainer closes all resources in the container and logs any errors.
func closeContainer(container *app.Container, logger *slog.Logger) {
	if err := container.Shutdown(context.Background()); err != nil {
		logger.Error("failed to shutdown container", slog.Any("error", err))
	}
}

// closeMigrate closes the migration instance and logs any errors.
func closeMigrate(migrate *migrate.Migrate, logger *slog.Logger) {
	sourceError, databaseError := migrate.Close()
	if sourceError != nil || databaseError != nil {
		logger.Error(
			"failed to close the migrate",
			slog.Any("source_error", sourceError),
			slog.Any("database_error", databaseError),
		)
	}
}

// Unseal brings this process's key hierarchy up for commands that need to
// read or write encrypted state. Shares are base64 encoded; with no shares
// the KMS auto-unseal path is used when enabled.
func Unseal(ctx context.Context, sealUC sealUseCase.SealUseCase, autoEnabled bool, shares []string) error {
	if len(shares) == 0 {
		if !autoEnabled {
			return fmt.Errorf("%w: no unseal shares given and auto-unseal is disabled", ErrUsage)
		}
		if _, err := sealUC.AutoUnseal(ctx); err != nil {
			return fmt.Errorf("auto-unseal failed: %w", err)
		}
		return nil
	}

	for _, encoded := range shares {
		share, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return fmt.Errorf("%w: share must be base64 encoded", ErrUsage)
		}
		status, err := sealUC.SubmitShare(ctx, share)
		if err != nil {
			return fmt.Errorf("failed to submit share: %w", err)
		}
		if status.State == sealDomain.StateUnsealed {
			return nil
		}
	}

	return fmt.Errorf("%w: not enough shares to unseal", ErrUsage)
}
