// Package usecase implements the policy store and the authorization decision
// point: policy CRUD plus Check, which combines every active policy into one
// permit-or-deny verdict.
package usecase

import (
	"context"

	auditDomain "github.com/usphq/usp/internal/audit/domain"
	authzDomain "github.com/usphq/usp/internal/authz/domain"
)

// PolicyRepository defines persistence for authorization policies.
type PolicyRepository interface {
	GetByID(ctx context.Context, id string) (*authzDomain.Policy, error)

	// Create inserts a new policy. Fails with a conflict when the id exists.
	Create(ctx context.Context, policy *authzDomain.Policy) error

	// Update persists priority, active flag, and body. The type is immutable.
	Update(ctx context.Context, policy *authzDomain.Policy) error

	DeleteByID(ctx context.Context, id string) error

	// List returns every policy ordered by id.
	List(ctx context.Context) ([]*authzDomain.Policy, error)

	// ListActive returns the evaluation set: every active policy.
	ListActive(ctx context.Context) ([]*authzDomain.Policy, error)
}

// Auditor is the slice of the audit sink the decision point drives.
type Auditor interface {
	Append(ctx context.Context, entry *auditDomain.Entry) error
}

// CreatePolicyInput carries a new policy. Active defaults to true at the DTO
// layer; the type cannot change after creation.
type CreatePolicyInput struct {
	ID       string
	Type     authzDomain.PolicyType
	Priority int
	Active   bool
	Body     []byte
}

// PolicyUpdate carries the mutable policy fields; nil fields are left
// unchanged.
type PolicyUpdate struct {
	Priority *int
	Active   *bool
	Body     []byte
}

// AuthzUseCase is the policy store plus the decision point.
type AuthzUseCase interface {
	// CreatePolicy validates and stores a policy, audited as a policy change.
	CreatePolicy(ctx context.Context, input *CreatePolicyInput) (*authzDomain.Policy, error)

	GetPolicy(ctx context.Context, id string) (*authzDomain.Policy, error)

	ListPolicies(ctx context.Context) ([]*authzDomain.Policy, error)

	// UpdatePolicy applies the non-nil fields; a new body is re-validated
	// against the policy's type.
	UpdatePolicy(ctx context.Context, id string, update *PolicyUpdate) (*authzDomain.Policy, error)

	DeletePolicy(ctx context.Context, id string) error

	// Check evaluates the request against every active policy. Always returns
	// a decision; the error is reserved for infrastructure failures.
	Check(ctx context.Context, req *authzDomain.DecisionRequest) (*authzDomain.Decision, error)

	// Allow is the enforcement shortcut handlers and middleware call: it
	// builds a decision request from the identity on ctx and converts
	// anything short of an unconditional permit into a forbidden error.
	Allow(ctx context.Context, action, resourceType, resourceID string) error
}
