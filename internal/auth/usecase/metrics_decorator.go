package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	authDomain "github.com/usphq/usp/internal/auth/domain"
	"github.com/usphq/usp/internal/metrics"
)

// tokenMetricsDecorator wraps TokenUseCase with business metrics recording.
type tokenMetricsDecorator struct {
	next            TokenUseCase
	businessMetrics metrics.BusinessMetrics
}

// NewTokenMetricsDecorator wraps the token use case with operation counters
// and duration histograms under the "auth" domain label.
func NewTokenMetricsDecorator(next TokenUseCase, businessMetrics metrics.BusinessMetrics) TokenUseCase {
	return &tokenMetricsDecorator{next: next, businessMetrics: businessMetrics}
}

func (d *tokenMetricsDecorator) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	d.businessMetrics.RecordOperation(ctx, "auth", operation, status)
	d.businessMetrics.RecordDuration(ctx, "auth", operation, time.Since(start), status)
}

func (d *tokenMetricsDecorator) Issue(ctx context.Context, input *authDomain.IssueTokenInput) (*authDomain.IssueTokenOutput, error) {
	start := time.Now()
	output, err := d.next.Issue(ctx, input)
	d.record(ctx, "login", start, err)
	return output, err
}

func (d *tokenMetricsDecorator) Authenticate(ctx context.Context, tokenHash string) (*authDomain.Principal, *authDomain.Token, error) {
	start := time.Now()
	principal, token, err := d.next.Authenticate(ctx, tokenHash)
	d.record(ctx, "authenticate", start, err)
	return principal, token, err
}

func (d *tokenMetricsDecorator) Revoke(ctx context.Context, tokenID uuid.UUID) error {
	start := time.Now()
	err := d.next.Revoke(ctx, tokenID)
	d.record(ctx, "revoke_token", start, err)
	return err
}
