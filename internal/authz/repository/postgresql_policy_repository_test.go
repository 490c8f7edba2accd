package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authzDomain "github.com/usphq/usp/internal/authz/domain"
	apperrors "github.com/usphq/usp/internal/errors"
	"github.com/usphq/usp/internal/testutil"
)

func testStoredPolicy(id string, priority int) *authzDomain.Policy {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &authzDomain.Policy{
		ID:        id,
		Type:      authzDomain.PolicyTypeRBAC,
		Priority:  priority,
		Active:    true,
		Body:      []byte(`{"roles": {"reader": ["kv:read"]}}`),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestPostgreSQLPolicyRepository(t *testing.T) {
	testutil.SkipIfNoPostgres(t)

	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLPolicyRepository(db)
	ctx := context.Background()

	policy := testStoredPolicy("readers", 3)
	require.NoError(t, repo.Create(ctx, policy))

	t.Run("Success_RoundTrip", func(t *testing.T) {
		got, err := repo.GetByID(ctx, "readers")
		require.NoError(t, err)
		assert.Equal(t, authzDomain.PolicyTypeRBAC, got.Type)
		assert.Equal(t, 3, got.Priority)
		assert.True(t, got.Active)
		assert.JSONEq(t, `{"roles": {"reader": ["kv:read"]}}`, string(got.Body))
	})

	t.Run("Error_UnknownID", func(t *testing.T) {
		_, err := repo.GetByID(ctx, "missing")
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})

	t.Run("Error_DuplicateID", func(t *testing.T) {
		err := repo.Create(ctx, testStoredPolicy("readers", 1))
		assert.ErrorIs(t, err, apperrors.ErrConflict)
	})

	t.Run("Success_Update", func(t *testing.T) {
		policy.Priority = 7
		policy.Active = false
		policy.Body = []byte(`{"roles": {"reader": ["kv:*"]}}`)
		policy.UpdatedAt = time.Now().UTC().Truncate(time.Microsecond)
		require.NoError(t, repo.Update(ctx, policy))

		got, err := repo.GetByID(ctx, "readers")
		require.NoError(t, err)
		assert.Equal(t, 7, got.Priority)
		assert.False(t, got.Active)
	})

	t.Run("Error_UpdateUnknownID", func(t *testing.T) {
		err := repo.Update(ctx, testStoredPolicy("missing", 1))
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})

	t.Run("Success_ListActiveFilters", func(t *testing.T) {
		require.NoError(t, repo.Create(ctx, testStoredPolicy("admins", 1)))

		all, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 2)
		assert.Equal(t, "admins", all[0].ID)

		// "readers" was deactivated in the update subtest.
		active, err := repo.ListActive(ctx)
		require.NoError(t, err)
		require.Len(t, active, 1)
		assert.Equal(t, "admins", active[0].ID)
	})

	t.Run("Success_Delete", func(t *testing.T) {
		require.NoError(t, repo.DeleteByID(ctx, "readers"))
		_, err := repo.GetByID(ctx, "readers")
		assert.ErrorIs(t, err, apperrors.ErrNotFound)

		assert.ErrorIs(t, repo.DeleteByID(ctx, "readers"), apperrors.ErrNotFound)
	})
}
