package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	auditUseCase "github.com/usphq/usp/internal/audit/usecase"
)

// RunExportAudit streams audit records with seq >= fromSeq to the writer as
// newline-delimited JSON. Details stay encrypted; consumers verify the HMAC
// chain over the raw encrypted bytes.
func RunExportAudit(
	ctx context.Context,
	auditUC auditUseCase.AuditUseCase,
	logger *slog.Logger,
	writer io.Writer,
	fromSeq int64,
) error {
	if fromSeq < 0 {
		return fmt.Errorf("%w: from-seq must not be negative", ErrUsage)
	}

	logger.Info("exporting audit records", slog.Int64("from_seq", fromSeq))

	count, err := auditUC.Export(ctx, writer, fromSeq)
	if err != nil {
		return fmt.Errorf("failed to export audit records: %w", err)
	}

	logger.Info("export completed", slog.Int64("records_exported", count))
	return nil
}
