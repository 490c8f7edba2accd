package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	auditDomain "github.com/usphq/usp/internal/audit/domain"
	auditUseCase "github.com/usphq/usp/internal/audit/usecase"
	apperrors "github.com/usphq/usp/internal/errors"
)

// RunVerifyChain walks the stored audit chain, recomputing every HMAC and
// checking linkage. A broken chain latches the refuse-writes flag and the
// command fails so operators notice in automation.
func RunVerifyChain(
	ctx context.Context,
	auditUC auditUseCase.AuditUseCase,
	logger *slog.Logger,
	writer io.Writer,
	format string,
) error {
	logger.Info("verifying audit chain")

	report, err := auditUC.VerifyChain(ctx)
	if err != nil {
		return fmt.Errorf("failed to verify audit chain: %w", err)
	}

	if format == "json" {
		if err := outputVerifyJSON(writer, report); err != nil {
			return fmt.Errorf("failed to output JSON: %w", err)
		}
	} else {
		outputVerifyText(writer, report)
	}

	logger.Info("verification completed",
		slog.Int64("records_verified", report.RecordsVerified),
		slog.Int64("last_seq", report.LastSeq),
		slog.Bool("broken", report.Broken),
	)

	if report.Broken {
		return fmt.Errorf("%w: first bad record at seq %d: %s",
			apperrors.ErrChainBroken, report.BrokenSeq, report.Reason)
	}

	return nil
}

// RunAcknowledgeChain clears a latched broken-chain flag after operator
// review. The acknowledging principal is recorded in the chain-ack entry.
func RunAcknowledgeChain(
	ctx context.Context,
	auditUC auditUseCase.AuditUseCase,
	logger *slog.Logger,
	writer io.Writer,
	principalID, correlationID string,
) error {
	if principalID == "" {
		return fmt.Errorf("%w: principal id is required", ErrUsage)
	}

	logger.Info("acknowledging audit chain break",
		slog.String("principal_id", principalID),
	)

	if err := auditUC.Acknowledge(ctx, principalID, correlationID); err != nil {
		return fmt.Errorf("failed to acknowledge chain break: %w", err)
	}

	fmt.Fprintln(writer, "audit chain break acknowledged; writes resume")
	return nil
}

// outputVerifyJSON writes the verification report as JSON.
func outputVerifyJSON(writer io.Writer, report *auditDomain.VerifyReport) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}

// outputVerifyText writes the verification report as human-readable text.
func outputVerifyText(writer io.Writer, report *auditDomain.VerifyReport) {
	fmt.Fprintf(writer, "Records verified: %d\n", report.RecordsVerified)
	fmt.Fprintf(writer, "Last sequence:    %d\n", report.LastSeq)
	if report.Broken {
		fmt.Fprintf(writer, "Chain BROKEN at seq %d: %s\n", report.BrokenSeq, report.Reason)
	} else {
		fmt.Fprintln(writer, "Chain intact")
	}
}
