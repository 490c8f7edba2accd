// Package main provides the entry point for the platform with CLI commands.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/usphq/usp/cmd/usp/commands"
	apperrors "github.com/usphq/usp/internal/errors"
)

var version = "1.0.0"

func main() {
	cmd := &cli.Command{
		Name:     "usp",
		Usage:    "Unified secrets platform",
		Version:  version,
		Commands: getCommands(version),
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.Any("error", err))
		os.Exit(exitCode(err))
	}
}

// exitCode maps an error class to the documented CLI exit code: 2 usage,
// 3 sealed, 4 unauthorized, 5 denied, 6 conflict, 7 not found.
func exitCode(err error) int {
	switch {
	case errors.Is(err, commands.ErrUsage):
		return 2
	case errors.Is(err, apperrors.ErrSealed):
		return 3
	case errors.Is(err, apperrors.ErrUnauthorized):
		return 4
	case errors.Is(err, apperrors.ErrForbidden):
		return 5
	case errors.Is(err, apperrors.ErrConflict), errors.Is(err, apperrors.ErrCASMismatch):
		return 6
	case errors.Is(err, apperrors.ErrNotFound):
		return 7
	default:
		return 1
	}
}
