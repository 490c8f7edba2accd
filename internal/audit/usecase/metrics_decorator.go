package usecase

import (
	"context"
	"io"
	"time"

	auditDomain "github.com/usphq/usp/internal/audit/domain"
	"github.com/usphq/usp/internal/metrics"
)

// auditUseCaseWithMetrics decorates AuditUseCase with metrics instrumentation.
type auditUseCaseWithMetrics struct {
	next    AuditUseCase
	metrics metrics.BusinessMetrics
}

// NewAuditUseCaseWithMetrics wraps an AuditUseCase with metrics recording.
func NewAuditUseCaseWithMetrics(useCase AuditUseCase, m metrics.BusinessMetrics) AuditUseCase {
	return &auditUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// Append records metrics for audit append operations.
func (a *auditUseCaseWithMetrics) Append(ctx context.Context, entry *auditDomain.Entry) error {
	start := time.Now()
	err := a.next.Append(ctx, entry)

	status := "success"
	if err != nil {
		status = "error"
	}

	a.metrics.RecordOperation(ctx, "audit", "append", status)
	a.metrics.RecordDuration(ctx, "audit", "append", time.Since(start), status)

	return err
}

// VerifyChain records metrics for chain verification walks.
func (a *auditUseCaseWithMetrics) VerifyChain(ctx context.Context) (*auditDomain.VerifyReport, error) {
	start := time.Now()
	report, err := a.next.VerifyChain(ctx)

	status := "success"
	if err != nil || (report != nil && report.Broken) {
		status = "error"
	}

	a.metrics.RecordOperation(ctx, "audit", "verify_chain", status)
	a.metrics.RecordDuration(ctx, "audit", "verify_chain", time.Since(start), status)

	return report, err
}

// Acknowledge records metrics for chain acknowledgement operations.
func (a *auditUseCaseWithMetrics) Acknowledge(ctx context.Context, principalID, correlationID string) error {
	start := time.Now()
	err := a.next.Acknowledge(ctx, principalID, correlationID)

	status := "success"
	if err != nil {
		status = "error"
	}

	a.metrics.RecordOperation(ctx, "audit", "acknowledge", status)
	a.metrics.RecordDuration(ctx, "audit", "acknowledge", time.Since(start), status)

	return err
}

// List records metrics for audit list operations.
func (a *auditUseCaseWithMetrics) List(ctx context.Context, offset, limit int) ([]*DecryptedRecord, error) {
	start := time.Now()
	records, err := a.next.List(ctx, offset, limit)

	status := "success"
	if err != nil {
		status = "error"
	}

	a.metrics.RecordOperation(ctx, "audit", "list", status)
	a.metrics.RecordDuration(ctx, "audit", "list", time.Since(start), status)

	return records, err
}

// Export records metrics for audit export operations.
func (a *auditUseCaseWithMetrics) Export(ctx context.Context, w io.Writer, fromSeq int64) (int64, error) {
	start := time.Now()
	count, err := a.next.Export(ctx, w, fromSeq)

	status := "success"
	if err != nil {
		status = "error"
	}

	a.metrics.RecordOperation(ctx, "audit", "export", status)
	a.metrics.RecordDuration(ctx, "audit", "export", time.Since(start), status)

	return count, err
}

// Prune records metrics for retention pruning operations.
func (a *auditUseCaseWithMetrics) Prune(
	ctx context.Context,
	retention time.Duration,
	dryRun bool,
) (int64, error) {
	start := time.Now()
	count, err := a.next.Prune(ctx, retention, dryRun)

	status := "success"
	if err != nil {
		status = "error"
	}

	a.metrics.RecordOperation(ctx, "audit", "prune", status)
	a.metrics.RecordDuration(ctx, "audit", "prune", time.Since(start), status)

	return count, err
}
