package main

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/usphq/usp/cmd/usp/commands"
	"github.com/usphq/usp/internal/app"
	auditUseCase "github.com/usphq/usp/internal/audit/usecase"
	"github.com/usphq/usp/internal/config"
)

// auditEnv bundles what the audit commands need from a live container.
type auditEnv struct {
	auditUC auditUseCase.AuditUseCase
	logger  *slog.Logger
	writer  io.Writer
}

// withAudit builds a container, hands the audit environment to fn, and tears
// the container down afterwards.
func withAudit(ctx context.Context, fn func(env *auditEnv) error) error {
	cfg := config.Load()
	container := app.NewContainer(cfg)
	defer func() { _ = container.Shutdown(ctx) }()

	auditUC, err := container.AuditUseCase()
	if err != nil {
		return err
	}

	return fn(&auditEnv{
		auditUC: auditUC,
		logger:  container.Logger(),
		writer:  os.Stdout,
	})
}

// withUnsealedAudit is withAudit plus an in-process unseal, for commands that
// recompute or append chain records.
func withUnsealedAudit(ctx context.Context, shares []string, fn func(env *auditEnv) error) error {
	cfg := config.Load()
	container := app.NewContainer(cfg)
	defer func() { _ = container.Shutdown(ctx) }()

	sealUC, err := container.SealUseCase()
	if err != nil {
		return err
	}
	if err := commands.Unseal(ctx, sealUC, cfg.UnsealAutoEnabled, shares); err != nil {
		return err
	}

	auditUC, err := container.AuditUseCase()
	if err != nil {
		return err
	}

	return fn(&auditEnv{
		auditUC: auditUC,
		logger:  container.Logger(),
		writer:  os.Stdout,
	})
}
