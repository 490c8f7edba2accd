package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	auditUseCase "github.com/usphq/usp/internal/audit/usecase"
)

// pruneResult is the machine-readable output of a prune run.
type pruneResult struct {
	Deleted int64 `json:"deleted"`
	DryRun  bool  `json:"dry_run"`
}

// RunPruneAudit deletes audit records older than the retention window. The
// chain stays verifiable forward from the oldest surviving record. With
// dry-run set it only reports how many records would go.
func RunPruneAudit(
	ctx context.Context,
	auditUC auditUseCase.AuditUseCase,
	logger *slog.Logger,
	writer io.Writer,
	retentionDays int64,
	dryRun bool,
	format string,
) error {
	if retentionDays <= 0 {
		return fmt.Errorf("%w: retention days must be positive", ErrUsage)
	}

	retention := time.Duration(retentionDays) * 24 * time.Hour

	logger.Info("pruning audit records",
		slog.Int64("retention_days", retentionDays),
		slog.Bool("dry_run", dryRun),
	)

	deleted, err := auditUC.Prune(ctx, retention, dryRun)
	if err != nil {
		return fmt.Errorf("failed to prune audit records: %w", err)
	}

	if format == "json" {
		encoder := json.NewEncoder(writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(pruneResult{Deleted: deleted, DryRun: dryRun}); err != nil {
			return fmt.Errorf("failed to output JSON: %w", err)
		}
	} else if dryRun {
		fmt.Fprintf(writer, "Would delete %d audit record(s)\n", deleted)
	} else {
		fmt.Fprintf(writer, "Deleted %d audit record(s)\n", deleted)
	}

	logger.Info("prune completed", slog.Int64("deleted", deleted))
	return nil
}
