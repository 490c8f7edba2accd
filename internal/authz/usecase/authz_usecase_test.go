package usecase

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auditDomain "github.com/usphq/usp/internal/audit/domain"
	authzDomain "github.com/usphq/usp/internal/authz/domain"
	authzService "github.com/usphq/usp/internal/authz/service"
	databaseMocks "github.com/usphq/usp/internal/database/mocks"
	apperrors "github.com/usphq/usp/internal/errors"
	"github.com/usphq/usp/internal/requestctx"
)

// memPolicyStore is an in-memory PolicyRepository.
type memPolicyStore struct {
	policies map[string]*authzDomain.Policy
}

func newMemPolicyStore() *memPolicyStore {
	return &memPolicyStore{policies: make(map[string]*authzDomain.Policy)}
}

func (s *memPolicyStore) clone(p *authzDomain.Policy) *authzDomain.Policy {
	cp := *p
	cp.Body = bytes.Clone(p.Body)
	return &cp
}

func (s *memPolicyStore) GetByID(_ context.Context, id string) (*authzDomain.Policy, error) {
	p, ok := s.policies[id]
	if !ok {
		return nil, authzDomain.ErrPolicyNotFound
	}
	return s.clone(p), nil
}

func (s *memPolicyStore) Create(_ context.Context, policy *authzDomain.Policy) error {
	if _, ok := s.policies[policy.ID]; ok {
		return apperrors.Wrap(apperrors.ErrConflict, "policy id already exists")
	}
	s.policies[policy.ID] = s.clone(policy)
	return nil
}

func (s *memPolicyStore) Update(_ context.Context, policy *authzDomain.Policy) error {
	if _, ok := s.policies[policy.ID]; !ok {
		return authzDomain.ErrPolicyNotFound
	}
	s.policies[policy.ID] = s.clone(policy)
	return nil
}

func (s *memPolicyStore) DeleteByID(_ context.Context, id string) error {
	if _, ok := s.policies[id]; !ok {
		return authzDomain.ErrPolicyNotFound
	}
	delete(s.policies, id)
	return nil
}

func (s *memPolicyStore) List(_ context.Context) ([]*authzDomain.Policy, error) {
	out := make([]*authzDomain.Policy, 0, len(s.policies))
	for _, p := range s.policies {
		out = append(out, s.clone(p))
	}
	return out, nil
}

func (s *memPolicyStore) ListActive(_ context.Context) ([]*authzDomain.Policy, error) {
	out := make([]*authzDomain.Policy, 0, len(s.policies))
	for _, p := range s.policies {
		if p.Active {
			out = append(out, s.clone(p))
		}
	}
	return out, nil
}

// recordingAuditor captures appended entries and optionally fails.
type recordingAuditor struct {
	entries []*auditDomain.Entry
	err     error
}

func (r *recordingAuditor) Append(_ context.Context, entry *auditDomain.Entry) error {
	if r.err != nil {
		return r.err
	}
	r.entries = append(r.entries, entry)
	return nil
}

func (r *recordingAuditor) lastOperation() string {
	if len(r.entries) == 0 {
		return ""
	}
	return r.entries[len(r.entries)-1].Details.Operation
}

func newTestAuthzUseCase(t *testing.T) (AuthzUseCase, *memPolicyStore, *recordingAuditor) {
	t.Helper()

	store := newMemPolicyStore()
	auditor := &recordingAuditor{}
	cache, err := authzService.NewDecisionCache(64)
	require.NoError(t, err)

	uc := NewAuthzUseCase(
		databaseMocks.NewMockTxManager(t),
		store,
		authzService.NewEvaluator(60, 90),
		cache,
		auditor,
	)
	return uc, store, auditor
}

func readerPolicyInput(id string) *CreatePolicyInput {
	return &CreatePolicyInput{
		ID:       id,
		Type:     authzDomain.PolicyTypeRBAC,
		Priority: 1,
		Active:   true,
		Body:     []byte(`{"roles": {"reader": ["kv:read"]}}`),
	}
}

func readerRequest() *authzDomain.DecisionRequest {
	return &authzDomain.DecisionRequest{
		SubjectID:             "alice",
		SubjectAttributes:     map[string]any{"roles": []string{"reader"}},
		Action:                "read",
		ResourceType:          "kv",
		ResourceID:            "app/prod",
		ResourceAttributes:    map[string]any{},
		EnvironmentAttributes: map[string]any{},
	}
}

func TestAuthzUseCase_CreatePolicy(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_Create", func(t *testing.T) {
		uc, store, auditor := newTestAuthzUseCase(t)

		policy, err := uc.CreatePolicy(ctx, readerPolicyInput("readers"))
		require.NoError(t, err)
		assert.Equal(t, "readers", policy.ID)
		assert.True(t, policy.Active)

		stored, ok := store.policies["readers"]
		require.True(t, ok)
		assert.Equal(t, authzDomain.PolicyTypeRBAC, stored.Type)

		require.Len(t, auditor.entries, 1)
		assert.Equal(t, auditDomain.EventTypePolicyChange, auditor.entries[0].EventType)
		assert.Equal(t, "authz.create-policy", auditor.lastOperation())
	})

	t.Run("Error_InvalidID", func(t *testing.T) {
		uc, _, _ := newTestAuthzUseCase(t)

		input := readerPolicyInput("-leading-dash")
		_, err := uc.CreatePolicy(ctx, input)
		assert.ErrorIs(t, err, authzDomain.ErrPolicyIDInvalid)
	})

	t.Run("Error_UnknownType", func(t *testing.T) {
		uc, _, _ := newTestAuthzUseCase(t)

		input := readerPolicyInput("readers")
		input.Type = authzDomain.PolicyType("xacml")
		_, err := uc.CreatePolicy(ctx, input)
		assert.ErrorIs(t, err, authzDomain.ErrPolicyTypeInvalid)
	})

	t.Run("Error_BodyTooLarge", func(t *testing.T) {
		uc, _, _ := newTestAuthzUseCase(t)

		input := readerPolicyInput("readers")
		input.Body = bytes.Repeat([]byte("a"), authzDomain.MaxPolicyBodySize+1)
		_, err := uc.CreatePolicy(ctx, input)
		assert.ErrorIs(t, err, authzDomain.ErrPolicyTooLarge)
	})

	t.Run("Error_BodyDoesNotParse", func(t *testing.T) {
		uc, _, _ := newTestAuthzUseCase(t)

		input := readerPolicyInput("readers")
		input.Body = []byte(`{"roles": {}}`)
		_, err := uc.CreatePolicy(ctx, input)
		assert.ErrorIs(t, err, authzDomain.ErrPolicyBodyInvalid)
	})

	t.Run("Error_DuplicateID", func(t *testing.T) {
		uc, _, _ := newTestAuthzUseCase(t)

		_, err := uc.CreatePolicy(ctx, readerPolicyInput("readers"))
		require.NoError(t, err)

		_, err = uc.CreatePolicy(ctx, readerPolicyInput("readers"))
		assert.ErrorIs(t, err, apperrors.ErrConflict)
	})

	t.Run("Error_AuditFailureFailsCreate", func(t *testing.T) {
		uc, store, auditor := newTestAuthzUseCase(t)
		auditor.err = apperrors.ErrChainBroken

		_, err := uc.CreatePolicy(ctx, readerPolicyInput("readers"))
		assert.ErrorIs(t, err, apperrors.ErrChainBroken)
		// The in-memory store has no rollback; the real store discards the
		// row with the transaction.
		_ = store
	})
}

func TestAuthzUseCase_UpdatePolicy(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_PartialUpdate", func(t *testing.T) {
		uc, _, auditor := newTestAuthzUseCase(t)
		_, err := uc.CreatePolicy(ctx, readerPolicyInput("readers"))
		require.NoError(t, err)

		active := false
		updated, err := uc.UpdatePolicy(ctx, "readers", &PolicyUpdate{Active: &active})
		require.NoError(t, err)
		assert.False(t, updated.Active)
		assert.Equal(t, 1, updated.Priority)
		assert.Equal(t, "authz.update-policy", auditor.lastOperation())
	})

	t.Run("Error_NewBodyMustParseForStoredType", func(t *testing.T) {
		uc, _, _ := newTestAuthzUseCase(t)
		_, err := uc.CreatePolicy(ctx, readerPolicyInput("readers"))
		require.NoError(t, err)

		_, err = uc.UpdatePolicy(ctx, "readers", &PolicyUpdate{Body: []byte(`path "kv/*" { capabilities = ["read"] }`)})
		assert.ErrorIs(t, err, authzDomain.ErrPolicyBodyInvalid)
	})

	t.Run("Error_UnknownID", func(t *testing.T) {
		uc, _, _ := newTestAuthzUseCase(t)

		_, err := uc.UpdatePolicy(ctx, "missing", &PolicyUpdate{})
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})
}

func TestAuthzUseCase_DeletePolicy(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_Delete", func(t *testing.T) {
		uc, store, auditor := newTestAuthzUseCase(t)
		_, err := uc.CreatePolicy(ctx, readerPolicyInput("readers"))
		require.NoError(t, err)

		require.NoError(t, uc.DeletePolicy(ctx, "readers"))
		assert.Empty(t, store.policies)
		assert.Equal(t, "authz.delete-policy", auditor.lastOperation())
	})

	t.Run("Error_UnknownID", func(t *testing.T) {
		uc, _, _ := newTestAuthzUseCase(t)
		assert.ErrorIs(t, uc.DeletePolicy(ctx, "missing"), apperrors.ErrNotFound)
	})
}

func TestAuthzUseCase_Check(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_PermitThroughStoredPolicy", func(t *testing.T) {
		uc, _, _ := newTestAuthzUseCase(t)
		_, err := uc.CreatePolicy(ctx, readerPolicyInput("readers"))
		require.NoError(t, err)

		decision, err := uc.Check(ctx, readerRequest())
		require.NoError(t, err)
		assert.Equal(t, authzDomain.EffectPermit, decision.Effect)
	})

	t.Run("Success_DefaultDenyWithoutPolicies", func(t *testing.T) {
		uc, _, _ := newTestAuthzUseCase(t)

		decision, err := uc.Check(ctx, readerRequest())
		require.NoError(t, err)
		assert.Equal(t, authzDomain.EffectDeny, decision.Effect)
		assert.Equal(t, []string{"no matching policy"}, decision.Reasons)
	})

	t.Run("Success_PolicyChangePurgesCache", func(t *testing.T) {
		uc, _, _ := newTestAuthzUseCase(t)
		_, err := uc.CreatePolicy(ctx, readerPolicyInput("readers"))
		require.NoError(t, err)

		// Prime the cache with a permit.
		decision, err := uc.Check(ctx, readerRequest())
		require.NoError(t, err)
		require.Equal(t, authzDomain.EffectPermit, decision.Effect)

		active := false
		_, err = uc.UpdatePolicy(ctx, "readers", &PolicyUpdate{Active: &active})
		require.NoError(t, err)

		decision, err = uc.Check(ctx, readerRequest())
		require.NoError(t, err)
		assert.Equal(t, authzDomain.EffectDeny, decision.Effect)
	})
}

func TestAuthzUseCase_Allow(t *testing.T) {
	background := context.Background()

	identityCtx := func(roles ...string) context.Context {
		return requestctx.With(background, &requestctx.RequestContext{
			PrincipalID:   "alice",
			PrincipalName: "Alice",
			Roles:         roles,
			CorrelationID: "corr-1",
		})
	}

	t.Run("Success_PermittedRole", func(t *testing.T) {
		uc, _, _ := newTestAuthzUseCase(t)
		_, err := uc.CreatePolicy(background, readerPolicyInput("readers"))
		require.NoError(t, err)

		assert.NoError(t, uc.Allow(identityCtx("reader"), "read", "kv", "app/prod"))
	})

	t.Run("Error_DenyIsForbidden", func(t *testing.T) {
		uc, _, _ := newTestAuthzUseCase(t)

		err := uc.Allow(identityCtx("reader"), "read", "kv", "app/prod")
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
	})

	t.Run("Error_NoIdentityIsForbidden", func(t *testing.T) {
		uc, _, _ := newTestAuthzUseCase(t)

		err := uc.Allow(background, "read", "kv", "app/prod")
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
	})

	t.Run("Error_StepUpRequirementIsForbidden", func(t *testing.T) {
		uc, _, _ := newTestAuthzUseCase(t)
		_, err := uc.CreatePolicy(background, readerPolicyInput("readers"))
		require.NoError(t, err)
		_, err = uc.CreatePolicy(background, &CreatePolicyInput{
			ID:     "four-eyes",
			Type:   authzDomain.PolicyTypeContext,
			Active: true,
			Body:   []byte(`{"require_approval": true}`),
		})
		require.NoError(t, err)

		err = uc.Allow(identityCtx("reader"), "read", "kv", "app/prod")
		require.ErrorIs(t, err, apperrors.ErrForbidden)
		assert.Contains(t, err.Error(), "approval")
	})
}
