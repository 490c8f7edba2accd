package usecase

import (
	"context"
	"crypto/rand"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auditDomain "github.com/usphq/usp/internal/audit/domain"
	cryptoDomain "github.com/usphq/usp/internal/crypto/domain"
	databaseMocks "github.com/usphq/usp/internal/database/mocks"
	apperrors "github.com/usphq/usp/internal/errors"
	kvDomain "github.com/usphq/usp/internal/kv/domain"
)

// memKVStore is an in-memory SecretRepository and VersionRepository. The
// engine's invariants (dense versions, retention, flag transitions) are easier
// to exercise against real state than against scripted mocks.
type memKVStore struct {
	secrets  map[string]*kvDomain.Secret
	versions map[uuid.UUID][]*kvDomain.Version
}

func newMemKVStore() *memKVStore {
	return &memKVStore{
		secrets:  make(map[string]*kvDomain.Secret),
		versions: make(map[uuid.UUID][]*kvDomain.Version),
	}
}

func (m *memKVStore) GetByPath(ctx context.Context, path string, includeDeleted bool) (*kvDomain.Secret, error) {
	secret, ok := m.secrets[path]
	if !ok || (secret.DeletedAt != nil && !includeDeleted) {
		return nil, kvDomain.ErrSecretNotFound
	}
	clone := *secret
	return &clone, nil
}

func (m *memKVStore) GetByPathForUpdate(ctx context.Context, path string) (*kvDomain.Secret, error) {
	return m.GetByPath(ctx, path, true)
}

func (m *memKVStore) Create(ctx context.Context, secret *kvDomain.Secret) error {
	if _, ok := m.secrets[secret.Path]; ok {
		return apperrors.ErrConflict
	}
	clone := *secret
	m.secrets[secret.Path] = &clone
	return nil
}

func (m *memKVStore) Update(ctx context.Context, secret *kvDomain.Secret) error {
	for path, existing := range m.secrets {
		if existing.ID == secret.ID {
			clone := *secret
			m.secrets[path] = &clone
			return nil
		}
	}
	return kvDomain.ErrSecretNotFound
}

func (m *memKVStore) DeleteByID(ctx context.Context, id uuid.UUID) error {
	for path, existing := range m.secrets {
		if existing.ID == id {
			delete(m.secrets, path)
			delete(m.versions, id)
			return nil
		}
	}
	return kvDomain.ErrSecretNotFound
}

func (m *memKVStore) ListPaths(ctx context.Context, prefix, after string, limit int) ([]string, error) {
	paths := make([]string, 0)
	for path, secret := range m.secrets {
		if strings.HasPrefix(path, prefix) && path > after && secret.DeletedAt == nil {
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)
	if len(paths) > limit {
		paths = paths[:limit]
	}
	return paths, nil
}

func (m *memKVStore) CreateVersion(ctx context.Context, version *kvDomain.Version) error {
	clone := *version
	m.versions[version.SecretID] = append(m.versions[version.SecretID], &clone)
	return nil
}

func (m *memKVStore) Get(ctx context.Context, secretID uuid.UUID, version int) (*kvDomain.Version, error) {
	for _, v := range m.versions[secretID] {
		if v.Version == version {
			clone := *v
			return &clone, nil
		}
	}
	return nil, kvDomain.ErrVersionNotFound
}

func (m *memKVStore) GetLatestIntact(ctx context.Context, secretID uuid.UUID) (*kvDomain.Version, error) {
	var latest *kvDomain.Version
	for _, v := range m.versions[secretID] {
		if !v.Destroyed && (latest == nil || v.Version > latest.Version) {
			latest = v
		}
	}
	if latest == nil {
		return nil, kvDomain.ErrVersionNotFound
	}
	clone := *latest
	return &clone, nil
}

func (m *memKVStore) ListBySecret(ctx context.Context, secretID uuid.UUID) ([]*kvDomain.Version, error) {
	rows := m.versions[secretID]
	out := make([]*kvDomain.Version, 0, len(rows))
	for _, v := range rows {
		clone := *v
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

func (m *memKVStore) SetSoftDeleted(ctx context.Context, secretID uuid.UUID, versions []int, at *time.Time) error {
	for _, v := range m.versions[secretID] {
		for _, target := range versions {
			if v.Version == target && !v.Destroyed {
				v.SoftDeletedAt = at
			}
		}
	}
	return nil
}

func (m *memKVStore) MarkDestroyed(ctx context.Context, secretID uuid.UUID, versions []int) error {
	for _, v := range m.versions[secretID] {
		for _, target := range versions {
			if v.Version == target {
				v.Destroyed = true
				v.Ciphertext = nil
			}
		}
	}
	return nil
}

// versionRepoAdapter renames CreateVersion back to the interface's Create so
// one memKVStore can back both repositories.
type versionRepoAdapter struct {
	*memKVStore
}

func (a versionRepoAdapter) Create(ctx context.Context, version *kvDomain.Version) error {
	return a.CreateVersion(ctx, version)
}

// recordingAuditor captures appended entries and optionally fails.
type recordingAuditor struct {
	entries []*auditDomain.Entry
	err     error
}

func (r *recordingAuditor) Append(ctx context.Context, entry *auditDomain.Entry) error {
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

type hierarchyKeySource struct {
	h *cryptoDomain.KeyHierarchy
}

func (s hierarchyKeySource) Subkey(_ context.Context, purpose cryptoDomain.Purpose) ([]byte, error) {
	return s.h.Subkey(purpose)
}

func newTestKVUseCase(t *testing.T) (KVUseCase, *memKVStore, *recordingAuditor, *cryptoDomain.KeyHierarchy) {
	t.Helper()
	root := make([]byte, cryptoDomain.KeySize)
	_, err := rand.Read(root)
	require.NoError(t, err)
	hierarchy, err := cryptoDomain.NewKeyHierarchy(root)
	require.NoError(t, err)

	store := newMemKVStore()
	auditor := &recordingAuditor{}
	uc := NewKVUseCase(
		databaseMocks.NewMockTxManager(t),
		store,
		versionRepoAdapter{store},
		hierarchyKeySource{hierarchy},
		auditor,
		0,
	)
	return uc, store, auditor, hierarchy
}

func intPtr(v int) *int { return &v }

func TestKVUseCase_Write(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_FirstWriteCreatesVersionOne", func(t *testing.T) {
		uc, store, auditor, _ := newTestKVUseCase(t)

		secret, err := uc.Write(ctx, &WriteInput{Path: "app/prod/db", Value: []byte(`{"p":"s"}`)})
		require.NoError(t, err)
		assert.Equal(t, 1, secret.CurrentVersion)
		assert.Equal(t, kvDomain.DefaultMaxVersions, secret.MaxVersions)

		rows := store.versions[secret.ID]
		require.Len(t, rows, 1)
		assert.NotContains(t, string(rows[0].Ciphertext), `"p":"s"`)
		assert.Equal(t, "kv.write", auditor.lastOperation())
	})

	t.Run("Success_CASZeroOnNewPath", func(t *testing.T) {
		uc, _, _, _ := newTestKVUseCase(t)

		secret, err := uc.Write(ctx, &WriteInput{Path: "app/new", Value: []byte("v"), CAS: intPtr(0)})
		require.NoError(t, err)
		assert.Equal(t, 1, secret.CurrentVersion)
	})

	t.Run("Success_PathIsNormalized", func(t *testing.T) {
		uc, store, _, _ := newTestKVUseCase(t)

		_, err := uc.Write(ctx, &WriteInput{Path: "/app/prod/", Value: []byte("v")})
		require.NoError(t, err)
		assert.Contains(t, store.secrets, "app/prod")
	})

	t.Run("Error_CASNonZeroOnNewPath", func(t *testing.T) {
		uc, _, _, _ := newTestKVUseCase(t)

		_, err := uc.Write(ctx, &WriteInput{Path: "app/new", Value: []byte("v"), CAS: intPtr(3)})
		assert.ErrorIs(t, err, apperrors.ErrCASMismatch)
	})

	t.Run("Error_CASMismatchOnExistingPath", func(t *testing.T) {
		uc, _, _, _ := newTestKVUseCase(t)
		_, err := uc.Write(ctx, &WriteInput{Path: "app/db", Value: []byte("v1")})
		require.NoError(t, err)

		_, err = uc.Write(ctx, &WriteInput{Path: "app/db", Value: []byte("v2"), CAS: intPtr(5)})
		assert.ErrorIs(t, err, apperrors.ErrCASMismatch)
	})

	t.Run("Error_CASRequiredButMissing", func(t *testing.T) {
		uc, _, _, _ := newTestKVUseCase(t)
		_, err := uc.Write(ctx, &WriteInput{Path: "app/db", Value: []byte("v1")})
		require.NoError(t, err)
		_, err = uc.UpdateMetadata(ctx, "app/db", &MetadataUpdate{CASRequired: boolPtr(true)})
		require.NoError(t, err)

		_, err = uc.Write(ctx, &WriteInput{Path: "app/db", Value: []byte("v2")})
		assert.ErrorIs(t, err, apperrors.ErrCASMismatch)

		_, err = uc.Write(ctx, &WriteInput{Path: "app/db", Value: []byte("v2"), CAS: intPtr(1)})
		assert.NoError(t, err)
	})

	t.Run("Error_EmptyPath", func(t *testing.T) {
		uc, _, _, _ := newTestKVUseCase(t)

		_, err := uc.Write(ctx, &WriteInput{Path: "//", Value: []byte("v")})
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})

	t.Run("Error_ValueTooLarge", func(t *testing.T) {
		uc, _, _, _ := newTestKVUseCase(t)

		_, err := uc.Write(ctx, &WriteInput{Path: "app/big", Value: make([]byte, kvDomain.MaxValueSize+1)})
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})

	t.Run("Error_WhileSealed", func(t *testing.T) {
		uc, _, _, hierarchy := newTestKVUseCase(t)
		hierarchy.Zeroize()

		_, err := uc.Write(ctx, &WriteInput{Path: "app/db", Value: []byte("v")})
		assert.ErrorIs(t, err, apperrors.ErrSealed)
	})

	t.Run("RetentionDestroysOldestIntact", func(t *testing.T) {
		uc, store, _, _ := newTestKVUseCase(t)
		_, err := uc.Write(ctx, &WriteInput{Path: "app/db", Value: []byte("v1")})
		require.NoError(t, err)
		_, err = uc.UpdateMetadata(ctx, "app/db", &MetadataUpdate{MaxVersions: intPtr(2)})
		require.NoError(t, err)

		for _, v := range []string{"v2", "v3", "v4"} {
			_, err = uc.Write(ctx, &WriteInput{Path: "app/db", Value: []byte(v)})
			require.NoError(t, err)
		}

		secret := store.secrets["app/db"]
		assert.Equal(t, 4, secret.CurrentVersion, "version numbers are never reused")

		rows, err := store.ListBySecret(ctx, secret.ID)
		require.NoError(t, err)
		require.Len(t, rows, 4)
		assert.True(t, rows[0].Destroyed)
		assert.True(t, rows[1].Destroyed)
		assert.False(t, rows[2].Destroyed)
		assert.False(t, rows[3].Destroyed)
	})
}

func TestKVUseCase_Read(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_LatestVersionRoundTrips", func(t *testing.T) {
		uc, _, auditor, _ := newTestKVUseCase(t)
		_, err := uc.Write(ctx, &WriteInput{Path: "app/db", Value: []byte("v1")})
		require.NoError(t, err)
		_, err = uc.Write(ctx, &WriteInput{Path: "app/db", Value: []byte("v2")})
		require.NoError(t, err)

		result, err := uc.Read(ctx, "app/db", 0, false)
		require.NoError(t, err)
		assert.Equal(t, 2, result.Version.Version)
		assert.Equal(t, []byte("v2"), result.Version.Plaintext)
		assert.Equal(t, "kv.read", auditor.lastOperation())
	})

	t.Run("Success_SpecificVersion", func(t *testing.T) {
		uc, _, _, _ := newTestKVUseCase(t)
		_, err := uc.Write(ctx, &WriteInput{Path: "app/db", Value: []byte("v1")})
		require.NoError(t, err)
		_, err = uc.Write(ctx, &WriteInput{Path: "app/db", Value: []byte("v2")})
		require.NoError(t, err)

		result, err := uc.Read(ctx, "app/db", 1, false)
		require.NoError(t, err)
		assert.Equal(t, []byte("v1"), result.Version.Plaintext)
	})

	t.Run("Error_UnknownPath", func(t *testing.T) {
		uc, _, _, _ := newTestKVUseCase(t)

		_, err := uc.Read(ctx, "app/missing", 0, false)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})

	t.Run("Error_UnknownVersion", func(t *testing.T) {
		uc, _, _, _ := newTestKVUseCase(t)
		_, err := uc.Write(ctx, &WriteInput{Path: "app/db", Value: []byte("v1")})
		require.NoError(t, err)

		_, err = uc.Read(ctx, "app/db", 9, false)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})

	t.Run("Error_DestroyedVersion", func(t *testing.T) {
		uc, _, _, _ := newTestKVUseCase(t)
		_, err := uc.Write(ctx, &WriteInput{Path: "app/db", Value: []byte("v1")})
		require.NoError(t, err)
		require.NoError(t, uc.Destroy(ctx, "app/db", []int{1}))

		_, err = uc.Read(ctx, "app/db", 1, false)
		assert.ErrorIs(t, err, apperrors.ErrDestroyed)

		// And read-deleted does not bypass destruction
		_, err = uc.Read(ctx, "app/db", 1, true)
		assert.ErrorIs(t, err, apperrors.ErrDestroyed)
	})

	t.Run("Error_SoftDeletedVersion", func(t *testing.T) {
		uc, _, _, _ := newTestKVUseCase(t)
		_, err := uc.Write(ctx, &WriteInput{Path: "app/db", Value: []byte("v1")})
		require.NoError(t, err)
		require.NoError(t, uc.SoftDelete(ctx, "app/db", nil))

		_, err = uc.Read(ctx, "app/db", 1, false)
		assert.ErrorIs(t, err, apperrors.ErrDeleted)
	})

	t.Run("Success_ReadDeletedCapabilityReadsThrough", func(t *testing.T) {
		uc, _, _, _ := newTestKVUseCase(t)
		_, err := uc.Write(ctx, &WriteInput{Path: "app/db", Value: []byte("v1")})
		require.NoError(t, err)
		require.NoError(t, uc.SoftDelete(ctx, "app/db", nil))

		result, err := uc.Read(ctx, "app/db", 1, true)
		require.NoError(t, err)
		assert.Equal(t, []byte("v1"), result.Version.Plaintext)
		assert.NotNil(t, result.Version.SoftDeletedAt)
	})

	t.Run("Error_FailedAuditFailsRead", func(t *testing.T) {
		uc, _, auditor, _ := newTestKVUseCase(t)
		_, err := uc.Write(ctx, &WriteInput{Path: "app/db", Value: []byte("v1")})
		require.NoError(t, err)

		auditor.err = errors.New("audit store down")
		_, err = uc.Read(ctx, "app/db", 0, false)
		assert.ErrorContains(t, err, "audit store down")
	})
}

func TestKVUseCase_DeleteLifecycle(t *testing.T) {
	ctx := context.Background()

	t.Run("SoftDeleteThenUndeleteIsIdentity", func(t *testing.T) {
		uc, _, _, _ := newTestKVUseCase(t)
		_, err := uc.Write(ctx, &WriteInput{Path: "app/db", Value: []byte("v1")})
		require.NoError(t, err)

		require.NoError(t, uc.SoftDelete(ctx, "app/db", []int{1}))
		_, err = uc.Read(ctx, "app/db", 1, false)
		require.ErrorIs(t, err, apperrors.ErrDeleted)

		require.NoError(t, uc.Undelete(ctx, "app/db", []int{1}))
		result, err := uc.Read(ctx, "app/db", 1, false)
		require.NoError(t, err)
		assert.Equal(t, []byte("v1"), result.Version.Plaintext)
	})

	t.Run("UndeleteCannotResurrectDestroyed", func(t *testing.T) {
		uc, store, _, _ := newTestKVUseCase(t)
		_, err := uc.Write(ctx, &WriteInput{Path: "app/db", Value: []byte("v1")})
		require.NoError(t, err)
		require.NoError(t, uc.Destroy(ctx, "app/db", []int{1}))

		require.NoError(t, uc.Undelete(ctx, "app/db", []int{1}))

		secret := store.secrets["app/db"]
		assert.True(t, store.versions[secret.ID][0].Destroyed)
		assert.Nil(t, store.versions[secret.ID][0].Ciphertext)
	})

	t.Run("SoftDeleteDefaultsToCurrentVersion", func(t *testing.T) {
		uc, _, _, _ := newTestKVUseCase(t)
		_, err := uc.Write(ctx, &WriteInput{Path: "app/db", Value: []byte("v1")})
		require.NoError(t, err)
		_, err = uc.Write(ctx, &WriteInput{Path: "app/db", Value: []byte("v2")})
		require.NoError(t, err)

		require.NoError(t, uc.SoftDelete(ctx, "app/db", nil))

		_, err = uc.Read(ctx, "app/db", 2, false)
		assert.ErrorIs(t, err, apperrors.ErrDeleted)
		result, err := uc.Read(ctx, "app/db", 1, false)
		require.NoError(t, err)
		assert.Equal(t, []byte("v1"), result.Version.Plaintext)
	})

	t.Run("Error_VersionOutOfRange", func(t *testing.T) {
		uc, _, _, _ := newTestKVUseCase(t)
		_, err := uc.Write(ctx, &WriteInput{Path: "app/db", Value: []byte("v1")})
		require.NoError(t, err)

		assert.ErrorIs(t, uc.SoftDelete(ctx, "app/db", []int{2}), apperrors.ErrNotFound)
		assert.ErrorIs(t, uc.Destroy(ctx, "app/db", []int{0}), apperrors.ErrNotFound)
	})

	t.Run("DestroyMetadataRemovesEverything", func(t *testing.T) {
		uc, store, auditor, _ := newTestKVUseCase(t)
		_, err := uc.Write(ctx, &WriteInput{Path: "app/db", Value: []byte("v1")})
		require.NoError(t, err)

		require.NoError(t, uc.DestroyMetadata(ctx, "app/db"))

		assert.Empty(t, store.secrets)
		assert.Empty(t, store.versions)
		assert.Equal(t, "kv.destroy-metadata", auditor.lastOperation())

		assert.ErrorIs(t, uc.DestroyMetadata(ctx, "app/db"), apperrors.ErrNotFound)
	})
}

func TestKVUseCase_Metadata(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_VersionMapWithoutPayloads", func(t *testing.T) {
		uc, _, _, _ := newTestKVUseCase(t)
		_, err := uc.Write(ctx, &WriteInput{Path: "app/db", Value: []byte("v1")})
		require.NoError(t, err)
		_, err = uc.Write(ctx, &WriteInput{Path: "app/db", Value: []byte("v2")})
		require.NoError(t, err)
		require.NoError(t, uc.SoftDelete(ctx, "app/db", []int{1}))

		metadata, err := uc.Metadata(ctx, "app/db")
		require.NoError(t, err)
		assert.Equal(t, 2, metadata.Secret.CurrentVersion)
		require.Len(t, metadata.Versions, 2)
		assert.NotNil(t, metadata.Versions[0].SoftDeletedAt)
		assert.Nil(t, metadata.Versions[1].SoftDeletedAt)
		for _, v := range metadata.Versions {
			assert.Nil(t, v.Plaintext)
		}
	})

	t.Run("Success_ShrunkenWindowAppliesOnNextWrite", func(t *testing.T) {
		uc, store, _, _ := newTestKVUseCase(t)
		for _, v := range []string{"v1", "v2", "v3"} {
			_, err := uc.Write(ctx, &WriteInput{Path: "app/db", Value: []byte(v)})
			require.NoError(t, err)
		}

		_, err := uc.UpdateMetadata(ctx, "app/db", &MetadataUpdate{MaxVersions: intPtr(1)})
		require.NoError(t, err)

		// Nothing destroyed yet
		secret := store.secrets["app/db"]
		rows, err := store.ListBySecret(ctx, secret.ID)
		require.NoError(t, err)
		for _, v := range rows {
			assert.False(t, v.Destroyed)
		}

		_, err = uc.Write(ctx, &WriteInput{Path: "app/db", Value: []byte("v4")})
		require.NoError(t, err)

		rows, err = store.ListBySecret(ctx, secret.ID)
		require.NoError(t, err)
		require.Len(t, rows, 4)
		assert.False(t, rows[3].Destroyed)
		for _, v := range rows[:3] {
			assert.True(t, v.Destroyed)
		}
	})

	t.Run("Error_InvalidMaxVersions", func(t *testing.T) {
		uc, _, _, _ := newTestKVUseCase(t)
		_, err := uc.Write(ctx, &WriteInput{Path: "app/db", Value: []byte("v1")})
		require.NoError(t, err)

		_, err = uc.UpdateMetadata(ctx, "app/db", &MetadataUpdate{MaxVersions: intPtr(0)})
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})
}

func TestKVUseCase_List(t *testing.T) {
	ctx := context.Background()

	uc, _, _, _ := newTestKVUseCase(t)
	for _, path := range []string{"app/prod/db", "app/prod/cache", "app/staging/db", "app/flag"} {
		_, err := uc.Write(ctx, &WriteInput{Path: path, Value: []byte("v")})
		require.NoError(t, err)
	}

	t.Run("Success_FoldsToImmediateChildren", func(t *testing.T) {
		keys, err := uc.List(ctx, "app")
		require.NoError(t, err)
		assert.Equal(t, []string{"flag", "prod/", "staging/"}, keys)
	})

	t.Run("Success_LeafLevel", func(t *testing.T) {
		keys, err := uc.List(ctx, "app/prod")
		require.NoError(t, err)
		assert.Equal(t, []string{"cache", "db"}, keys)
	})

	t.Run("Success_EmptyPrefixListsRoot", func(t *testing.T) {
		keys, err := uc.List(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, []string{"app/"}, keys)
	})

	t.Run("Success_UnknownPrefixIsEmpty", func(t *testing.T) {
		keys, err := uc.List(ctx, "nothing/here")
		require.NoError(t, err)
		assert.Empty(t, keys)
	})
}

func boolPtr(v bool) *bool { return &v }
