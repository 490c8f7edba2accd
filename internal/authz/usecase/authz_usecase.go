package usecase

import (
	"context"
	"strings"
	"time"

	auditDomain "github.com/usphq/usp/internal/audit/domain"
	authzDomain "github.com/usphq/usp/internal/authz/domain"
	authzService "github.com/usphq/usp/internal/authz/service"
	"github.com/usphq/usp/internal/database"
	apperrors "github.com/usphq/usp/internal/errors"
	"github.com/usphq/usp/internal/requestctx"
)

// authzUseCase implements AuthzUseCase.
type authzUseCase struct {
	txManager  database.TxManager
	policyRepo PolicyRepository
	evaluator  *authzService.Evaluator
	cache      *authzService.DecisionCache
	auditor    Auditor
}

// NewAuthzUseCase creates the policy store and decision point. cache may be
// nil to disable decision memoization.
func NewAuthzUseCase(
	txManager database.TxManager,
	policyRepo PolicyRepository,
	evaluator *authzService.Evaluator,
	cache *authzService.DecisionCache,
	auditor Auditor,
) AuthzUseCase {
	return &authzUseCase{
		txManager:  txManager,
		policyRepo: policyRepo,
		evaluator:  evaluator,
		cache:      cache,
		auditor:    auditor,
	}
}

// CreatePolicy validates and stores a policy inside one transaction with its
// policy-change audit record.
func (a *authzUseCase) CreatePolicy(ctx context.Context, input *CreatePolicyInput) (*authzDomain.Policy, error) {
	if !authzDomain.ValidPolicyID(input.ID) {
		return nil, authzDomain.ErrPolicyIDInvalid
	}
	if !input.Type.Valid() {
		return nil, authzDomain.ErrPolicyTypeInvalid
	}
	if len(input.Body) > authzDomain.MaxPolicyBodySize {
		return nil, authzDomain.ErrPolicyTooLarge
	}
	if err := authzService.ValidateBody(input.Type, input.Body); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	policy := &authzDomain.Policy{
		ID:        input.ID,
		Type:      input.Type,
		Priority:  input.Priority,
		Active:    input.Active,
		Body:      input.Body,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := a.txManager.WithTx(ctx, func(ctx context.Context) error {
		if err := a.policyRepo.Create(ctx, policy); err != nil {
			if apperrors.Is(err, apperrors.ErrConflict) {
				return authzDomain.ErrPolicyExists
			}
			return err
		}
		return a.appendAudit(ctx, "authz.create-policy", policy.ID, map[string]string{
			"policy_type": string(policy.Type),
		})
	})
	if err != nil {
		return nil, err
	}

	a.purgeCache()
	return policy, nil
}

// GetPolicy returns one policy.
func (a *authzUseCase) GetPolicy(ctx context.Context, id string) (*authzDomain.Policy, error) {
	return a.policyRepo.GetByID(ctx, id)
}

// ListPolicies returns every policy ordered by id.
func (a *authzUseCase) ListPolicies(ctx context.Context) ([]*authzDomain.Policy, error) {
	return a.policyRepo.List(ctx)
}

// UpdatePolicy applies the non-nil fields and re-validates a new body against
// the stored type.
func (a *authzUseCase) UpdatePolicy(ctx context.Context, id string, update *PolicyUpdate) (*authzDomain.Policy, error) {
	var policy *authzDomain.Policy

	err := a.txManager.WithTx(ctx, func(ctx context.Context) error {
		var err error
		policy, err = a.policyRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}

		if update.Priority != nil {
			policy.Priority = *update.Priority
		}
		if update.Active != nil {
			policy.Active = *update.Active
		}
		if update.Body != nil {
			if len(update.Body) > authzDomain.MaxPolicyBodySize {
				return authzDomain.ErrPolicyTooLarge
			}
			if err := authzService.ValidateBody(policy.Type, update.Body); err != nil {
				return err
			}
			policy.Body = update.Body
		}
		policy.UpdatedAt = time.Now().UTC()

		if err := a.policyRepo.Update(ctx, policy); err != nil {
			return err
		}
		return a.appendAudit(ctx, "authz.update-policy", policy.ID, map[string]string{
			"policy_type": string(policy.Type),
		})
	})
	if err != nil {
		return nil, err
	}

	a.purgeCache()
	return policy, nil
}

// DeletePolicy removes a policy, audited as a policy change.
func (a *authzUseCase) DeletePolicy(ctx context.Context, id string) error {
	err := a.txManager.WithTx(ctx, func(ctx context.Context) error {
		policy, err := a.policyRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := a.policyRepo.DeleteByID(ctx, id); err != nil {
			return err
		}
		return a.appendAudit(ctx, "authz.delete-policy", id, map[string]string{
			"policy_type": string(policy.Type),
		})
	})
	if err != nil {
		return err
	}

	a.purgeCache()
	return nil
}

// Check evaluates the request against every active policy, serving repeated
// stable requests from the decision cache.
func (a *authzUseCase) Check(ctx context.Context, req *authzDomain.DecisionRequest) (*authzDomain.Decision, error) {
	if a.cache != nil {
		if decision, ok := a.cache.Get(req); ok {
			return decision, nil
		}
	}

	policies, err := a.policyRepo.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	decision := a.evaluator.Evaluate(policies, req)
	if a.cache != nil {
		a.cache.Put(req, decision)
	}
	return decision, nil
}

// Allow enforces a decision for the identity on ctx. Anything short of an
// unconditional permit is a forbidden error; the message never reveals
// whether the resource exists.
func (a *authzUseCase) Allow(ctx context.Context, action, resourceType, resourceID string) error {
	rc, ok := requestctx.From(ctx)
	if !ok {
		return apperrors.Wrap(apperrors.ErrForbidden, "no request identity")
	}

	decision, err := a.Check(ctx, decisionRequestFor(rc, action, resourceType, resourceID))
	if err != nil {
		return err
	}

	if decision.Effect != authzDomain.EffectPermit {
		return apperrors.Wrap(apperrors.ErrForbidden, strings.Join(decision.Reasons, "; "))
	}
	if decision.RequiredAction != authzDomain.RequiredActionNone {
		return apperrors.Wrap(apperrors.ErrForbidden, "additional verification required: "+string(decision.RequiredAction))
	}
	return nil
}

// decisionRequestFor maps the edge request context onto the evaluator's
// attribute model.
func decisionRequestFor(rc *requestctx.RequestContext, action, resourceType, resourceID string) *authzDomain.DecisionRequest {
	environment := map[string]any{}
	if rc.RemoteAddr != "" {
		environment["ip"] = rc.RemoteAddr
	}
	if rc.NetworkZone != "" {
		environment["network_zone"] = rc.NetworkZone
	}
	if rc.GeoCountry != "" {
		environment["geo"] = rc.GeoCountry
	}
	if rc.DeviceCompliant != nil {
		environment["device_compliant"] = *rc.DeviceCompliant
	}
	if rc.RiskScore != nil {
		environment["risk_score"] = float64(*rc.RiskScore)
	}

	return &authzDomain.DecisionRequest{
		SubjectID: rc.PrincipalID,
		SubjectAttributes: map[string]any{
			"roles": rc.Roles,
			"name":  rc.PrincipalName,
		},
		Action:                action,
		ResourceType:          resourceType,
		ResourceID:            resourceID,
		ResourceAttributes:    map[string]any{},
		EnvironmentAttributes: environment,
	}
}

func (a *authzUseCase) purgeCache() {
	if a.cache != nil {
		a.cache.Purge()
	}
}

// appendAudit records one policy-change event with the caller's identity from
// the request context.
func (a *authzUseCase) appendAudit(ctx context.Context, operation, policyID string, extra map[string]string) error {
	return a.auditor.Append(ctx, &auditDomain.Entry{
		EventType:     auditDomain.EventTypePolicyChange,
		PrincipalID:   requestctx.Principal(ctx),
		CorrelationID: requestctx.Correlation(ctx),
		Success:       true,
		Details: auditDomain.Details{
			Operation: operation,
			Path:      "policies/" + policyID,
			Extra:     extra,
		},
	})
}
