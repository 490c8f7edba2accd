package usecase

import (
	"context"
	"time"

	authzDomain "github.com/usphq/usp/internal/authz/domain"
	"github.com/usphq/usp/internal/metrics"
)

// authzMetricsDecorator wraps AuthzUseCase with business metrics recording.
type authzMetricsDecorator struct {
	next            AuthzUseCase
	businessMetrics metrics.BusinessMetrics
}

// NewAuthzMetricsDecorator wraps the decision point with operation counters
// and duration histograms under the "authz" domain label.
func NewAuthzMetricsDecorator(next AuthzUseCase, businessMetrics metrics.BusinessMetrics) AuthzUseCase {
	return &authzMetricsDecorator{next: next, businessMetrics: businessMetrics}
}

// record emits the counter and histogram for one operation.
func (d *authzMetricsDecorator) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	d.businessMetrics.RecordOperation(ctx, "authz", operation, status)
	d.businessMetrics.RecordDuration(ctx, "authz", operation, time.Since(start), status)
}

func (d *authzMetricsDecorator) CreatePolicy(ctx context.Context, input *CreatePolicyInput) (*authzDomain.Policy, error) {
	start := time.Now()
	policy, err := d.next.CreatePolicy(ctx, input)
	d.record(ctx, "create_policy", start, err)
	return policy, err
}

func (d *authzMetricsDecorator) GetPolicy(ctx context.Context, id string) (*authzDomain.Policy, error) {
	start := time.Now()
	policy, err := d.next.GetPolicy(ctx, id)
	d.record(ctx, "get_policy", start, err)
	return policy, err
}

func (d *authzMetricsDecorator) ListPolicies(ctx context.Context) ([]*authzDomain.Policy, error) {
	start := time.Now()
	policies, err := d.next.ListPolicies(ctx)
	d.record(ctx, "list_policies", start, err)
	return policies, err
}

func (d *authzMetricsDecorator) UpdatePolicy(ctx context.Context, id string, update *PolicyUpdate) (*authzDomain.Policy, error) {
	start := time.Now()
	policy, err := d.next.UpdatePolicy(ctx, id, update)
	d.record(ctx, "update_policy", start, err)
	return policy, err
}

func (d *authzMetricsDecorator) DeletePolicy(ctx context.Context, id string) error {
	start := time.Now()
	err := d.next.DeletePolicy(ctx, id)
	d.record(ctx, "delete_policy", start, err)
	return err
}

func (d *authzMetricsDecorator) Check(ctx context.Context, req *authzDomain.DecisionRequest) (*authzDomain.Decision, error) {
	start := time.Now()
	decision, err := d.next.Check(ctx, req)
	d.record(ctx, "check", start, err)
	return decision, err
}

func (d *authzMetricsDecorator) Allow(ctx context.Context, action, resourceType, resourceID string) error {
	start := time.Now()
	err := d.next.Allow(ctx, action, resourceType, resourceID)
	d.record(ctx, "allow", start, err)
	return err
}
