package repository

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usphq/usp/internal/database"
	apperrors "github.com/usphq/usp/internal/errors"
	kvDomain "github.com/usphq/usp/internal/kv/domain"
	"github.com/usphq/usp/internal/testutil"
)

func testSecret(path string) *kvDomain.Secret {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &kvDomain.Secret{
		ID:          uuid.Must(uuid.NewV7()),
		Path:        path,
		MaxVersions: kvDomain.DefaultMaxVersions,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func testVersion(secretID uuid.UUID, version int) *kvDomain.Version {
	return &kvDomain.Version{
		SecretID:   secretID,
		Version:    version,
		Ciphertext: bytes.Repeat([]byte{0x01, 0x02}, 24),
		CreatedAt:  time.Now().UTC().Truncate(time.Microsecond),
	}
}

func TestNewPostgreSQLSecretRepository(t *testing.T) {
	testutil.SkipIfNoPostgres(t)

	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)

	repo := NewPostgreSQLSecretRepository(db)
	assert.NotNil(t, repo)
	assert.IsType(t, &PostgreSQLSecretRepository{}, repo)
}

func TestPostgreSQLSecretRepository_CreateAndGet(t *testing.T) {
	testutil.SkipIfNoPostgres(t)

	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLSecretRepository(db)
	ctx := context.Background()

	secret := testSecret("app/prod/db")
	require.NoError(t, repo.Create(ctx, secret))

	t.Run("Success_RoundTrip", func(t *testing.T) {
		got, err := repo.GetByPath(ctx, "app/prod/db", false)
		require.NoError(t, err)
		assert.Equal(t, secret.ID, got.ID)
		assert.Equal(t, secret.Path, got.Path)
		assert.Equal(t, 0, got.CurrentVersion)
		assert.Equal(t, kvDomain.DefaultMaxVersions, got.MaxVersions)
		assert.False(t, got.CASRequired)
		assert.Nil(t, got.DeletedAt)
	})

	t.Run("Error_UnknownPath", func(t *testing.T) {
		_, err := repo.GetByPath(ctx, "app/missing", false)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})

	t.Run("Error_DuplicatePath", func(t *testing.T) {
		err := repo.Create(ctx, testSecret("app/prod/db"))
		assert.ErrorIs(t, err, apperrors.ErrConflict)
	})
}

func TestPostgreSQLSecretRepository_Update(t *testing.T) {
	testutil.SkipIfNoPostgres(t)

	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLSecretRepository(db)
	ctx := context.Background()

	secret := testSecret("app/prod/db")
	require.NoError(t, repo.Create(ctx, secret))

	t.Run("Success_MutableFields", func(t *testing.T) {
		deletedAt := time.Now().UTC().Truncate(time.Microsecond)
		secret.CurrentVersion = 3
		secret.MaxVersions = 5
		secret.CASRequired = true
		secret.UpdatedAt = time.Now().UTC().Truncate(time.Microsecond)
		secret.DeletedAt = &deletedAt
		require.NoError(t, repo.Update(ctx, secret))

		got, err := repo.GetByPath(ctx, "app/prod/db", true)
		require.NoError(t, err)
		assert.Equal(t, 3, got.CurrentVersion)
		assert.Equal(t, 5, got.MaxVersions)
		assert.True(t, got.CASRequired)
		require.NotNil(t, got.DeletedAt)
		assert.WithinDuration(t, deletedAt, *got.DeletedAt, time.Second)

		// Soft-deleted rows are hidden from the default lookup
		_, err = repo.GetByPath(ctx, "app/prod/db", false)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})

	t.Run("Error_MissingRow", func(t *testing.T) {
		missing := testSecret("app/missing")
		err := repo.Update(ctx, missing)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})
}

func TestPostgreSQLSecretRepository_GetByPathForUpdate(t *testing.T) {
	testutil.SkipIfNoPostgres(t)

	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLSecretRepository(db)
	txManager := database.NewTxManager(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, testSecret("app/prod/db")))

	err := txManager.WithTx(ctx, func(txCtx context.Context) error {
		secret, err := repo.GetByPathForUpdate(txCtx, "app/prod/db")
		if err != nil {
			return err
		}
		secret.CurrentVersion++
		secret.UpdatedAt = time.Now().UTC()
		return repo.Update(txCtx, secret)
	})
	require.NoError(t, err)

	got, err := repo.GetByPath(ctx, "app/prod/db", false)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CurrentVersion)
}

func TestPostgreSQLSecretRepository_ListPaths(t *testing.T) {
	testutil.SkipIfNoPostgres(t)

	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLSecretRepository(db)
	ctx := context.Background()

	for _, path := range []string{"app/prod/db", "app/prod/cache", "app/staging/db", "ops/runbook"} {
		require.NoError(t, repo.Create(ctx, testSecret(path)))
	}

	t.Run("Success_PrefixOrderedAscending", func(t *testing.T) {
		paths, err := repo.ListPaths(ctx, "app/", "", 100)
		require.NoError(t, err)
		assert.Equal(t, []string{"app/prod/cache", "app/prod/db", "app/staging/db"}, paths)
	})

	t.Run("Success_ResumesAfterCursor", func(t *testing.T) {
		paths, err := repo.ListPaths(ctx, "app/", "app/prod/db", 100)
		require.NoError(t, err)
		assert.Equal(t, []string{"app/staging/db"}, paths)
	})

	t.Run("Success_LimitBoundsPage", func(t *testing.T) {
		paths, err := repo.ListPaths(ctx, "app/", "", 2)
		require.NoError(t, err)
		assert.Equal(t, []string{"app/prod/cache", "app/prod/db"}, paths)
	})

	t.Run("Success_LikeMetacharactersAreLiteral", func(t *testing.T) {
		paths, err := repo.ListPaths(ctx, "app/%", "", 100)
		require.NoError(t, err)
		assert.Empty(t, paths)
	})

	t.Run("Success_SoftDeletedExcluded", func(t *testing.T) {
		secret, err := repo.GetByPath(ctx, "app/prod/cache", false)
		require.NoError(t, err)
		deletedAt := time.Now().UTC()
		secret.DeletedAt = &deletedAt
		secret.UpdatedAt = deletedAt
		require.NoError(t, repo.Update(ctx, secret))

		paths, err := repo.ListPaths(ctx, "app/", "", 100)
		require.NoError(t, err)
		assert.Equal(t, []string{"app/prod/db", "app/staging/db"}, paths)
	})
}

func TestPostgreSQLVersionRepository(t *testing.T) {
	testutil.SkipIfNoPostgres(t)

	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	secretRepo := NewPostgreSQLSecretRepository(db)
	repo := NewPostgreSQLVersionRepository(db)
	ctx := context.Background()

	secret := testSecret("app/prod/db")
	require.NoError(t, secretRepo.Create(ctx, secret))
	for v := 1; v <= 3; v++ {
		require.NoError(t, repo.Create(ctx, testVersion(secret.ID, v)))
	}

	t.Run("Success_GetRoundTrip", func(t *testing.T) {
		got, err := repo.Get(ctx, secret.ID, 2)
		require.NoError(t, err)
		assert.Equal(t, secret.ID, got.SecretID)
		assert.Equal(t, 2, got.Version)
		assert.Equal(t, bytes.Repeat([]byte{0x01, 0x02}, 24), got.Ciphertext)
		assert.Nil(t, got.SoftDeletedAt)
		assert.False(t, got.Destroyed)
	})

	t.Run("Error_DuplicateVersion", func(t *testing.T) {
		err := repo.Create(ctx, testVersion(secret.ID, 1))
		assert.ErrorIs(t, err, apperrors.ErrConflict)
	})

	t.Run("Error_UnknownVersion", func(t *testing.T) {
		_, err := repo.Get(ctx, secret.ID, 9)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})

	t.Run("Success_ListAscending", func(t *testing.T) {
		versions, err := repo.ListBySecret(ctx, secret.ID)
		require.NoError(t, err)
		require.Len(t, versions, 3)
		for i, v := range versions {
			assert.Equal(t, i+1, v.Version)
		}
	})

	t.Run("Success_SoftDeleteMarkerSetAndCleared", func(t *testing.T) {
		at := time.Now().UTC().Truncate(time.Microsecond)
		require.NoError(t, repo.SetSoftDeleted(ctx, secret.ID, []int{1, 2}, &at))

		got, err := repo.Get(ctx, secret.ID, 1)
		require.NoError(t, err)
		require.NotNil(t, got.SoftDeletedAt)
		assert.WithinDuration(t, at, *got.SoftDeletedAt, time.Second)

		require.NoError(t, repo.SetSoftDeleted(ctx, secret.ID, []int{1, 2}, nil))
		got, err = repo.Get(ctx, secret.ID, 1)
		require.NoError(t, err)
		assert.Nil(t, got.SoftDeletedAt)
	})

	t.Run("Success_LatestIntactSkipsDestroyed", func(t *testing.T) {
		require.NoError(t, repo.MarkDestroyed(ctx, secret.ID, []int{3}))

		latest, err := repo.GetLatestIntact(ctx, secret.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, latest.Version)

		// Destroyed rows keep their skeleton but lose the blob
		destroyed, err := repo.Get(ctx, secret.ID, 3)
		require.NoError(t, err)
		assert.True(t, destroyed.Destroyed)
		assert.Nil(t, destroyed.Ciphertext)
	})

	t.Run("Success_SoftDeleteSkipsDestroyed", func(t *testing.T) {
		at := time.Now().UTC()
		require.NoError(t, repo.SetSoftDeleted(ctx, secret.ID, []int{3}, &at))

		got, err := repo.Get(ctx, secret.ID, 3)
		require.NoError(t, err)
		assert.Nil(t, got.SoftDeletedAt)
	})

	t.Run("Success_CascadeOnSecretDelete", func(t *testing.T) {
		require.NoError(t, secretRepo.DeleteByID(ctx, secret.ID))

		versions, err := repo.ListBySecret(ctx, secret.ID)
		require.NoError(t, err)
		assert.Empty(t, versions)
	})
}
