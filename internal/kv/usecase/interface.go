// Package usecase implements the versioned key-value engine: check-and-set
// writes, version-aware reads, soft delete and undelete, irreversible
// destroys, and prefix listing.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/usphq/usp/internal/audit/domain"
	cryptoDomain "github.com/usphq/usp/internal/crypto/domain"
	kvDomain "github.com/usphq/usp/internal/kv/domain"
)

// SecretRepository defines persistence for per-path secret metadata.
// Implementations must support transaction-aware operations via context
// propagation.
type SecretRepository interface {
	// GetByPath returns the secret at path. Soft-deleted secrets are only
	// returned when includeDeleted is set.
	GetByPath(ctx context.Context, path string, includeDeleted bool) (*kvDomain.Secret, error)

	// GetByPathForUpdate returns the secret with its row locked until the
	// enclosing transaction commits. Writers to one path serialize here.
	GetByPathForUpdate(ctx context.Context, path string) (*kvDomain.Secret, error)

	// Create inserts new secret metadata. Fails with a conflict when the path
	// already exists.
	Create(ctx context.Context, secret *kvDomain.Secret) error

	// Update persists mutable metadata: current version, retention window,
	// CAS requirement, and the soft-delete marker.
	Update(ctx context.Context, secret *kvDomain.Secret) error

	// DeleteByID removes the secret row; version rows cascade.
	DeleteByID(ctx context.Context, id uuid.UUID) error

	// ListPaths returns up to limit paths beginning with prefix, ordered
	// ascending, strictly after the given path. Used for restartable listing.
	ListPaths(ctx context.Context, prefix, after string, limit int) ([]string, error)
}

// VersionRepository defines persistence for immutable secret versions.
type VersionRepository interface {
	Create(ctx context.Context, version *kvDomain.Version) error

	// Get returns one version row regardless of its flags.
	Get(ctx context.Context, secretID uuid.UUID, version int) (*kvDomain.Version, error)

	// GetLatestIntact returns the highest version that is not destroyed.
	GetLatestIntact(ctx context.Context, secretID uuid.UUID) (*kvDomain.Version, error)

	// ListBySecret returns all version rows ordered ascending by version.
	ListBySecret(ctx context.Context, secretID uuid.UUID) ([]*kvDomain.Version, error)

	// SetSoftDeleted stamps (or clears, when at is nil) the soft-delete
	// marker on the listed versions. Destroyed versions are left untouched.
	SetSoftDeleted(ctx context.Context, secretID uuid.UUID, versions []int, at *time.Time) error

	// MarkDestroyed sets the destroyed flag and erases the ciphertext of the
	// listed versions. Irreversible.
	MarkDestroyed(ctx context.Context, secretID uuid.UUID, versions []int) error
}

// KeySource supplies per-purpose subkeys from the key hierarchy. Fails with a
// sealed error while the platform is sealed.
type KeySource interface {
	Subkey(ctx context.Context, purpose cryptoDomain.Purpose) ([]byte, error)
}

// Auditor is the slice of the audit sink the engine drives.
type Auditor interface {
	Append(ctx context.Context, entry *auditDomain.Entry) error
}

// WriteInput carries one write request. CAS is the check-and-set parameter:
// nil means unconditional (rejected when the secret requires CAS), otherwise
// it must equal the secret's current version (zero for a new path).
type WriteInput struct {
	Path  string
	Value []byte
	CAS   *int
}

// ReadResult pairs decrypted payload bytes with version metadata.
type ReadResult struct {
	Secret  *kvDomain.Secret
	Version *kvDomain.Version
}

// Metadata is the version map returned by the metadata endpoint; values are
// never included.
type Metadata struct {
	Secret   *kvDomain.Secret
	Versions []*kvDomain.Version
}

// MetadataUpdate carries the mutable retention settings; nil fields are left
// unchanged.
type MetadataUpdate struct {
	MaxVersions *int
	CASRequired *bool
}

// KVUseCase is the versioned key-value engine.
type KVUseCase interface {
	// Write creates the next version at path, creating the secret on first
	// write. Enforces check-and-set and applies the retention window, which
	// may destroy the oldest intact versions.
	Write(ctx context.Context, input *WriteInput) (*kvDomain.Secret, error)

	// Read decrypts one version; version 0 means the latest intact one.
	// Destroyed versions fail with a destroyed error; soft-deleted versions
	// fail with a deleted error unless readDeleted is set.
	Read(ctx context.Context, path string, version int, readDeleted bool) (*ReadResult, error)

	// SoftDelete stamps the listed versions (current when empty) as deleted.
	SoftDelete(ctx context.Context, path string, versions []int) error

	// Undelete clears the soft-delete marker on the listed versions.
	Undelete(ctx context.Context, path string, versions []int) error

	// Destroy irreversibly erases the ciphertext of the listed versions.
	Destroy(ctx context.Context, path string, versions []int) error

	// DestroyMetadata removes the secret and every version.
	DestroyMetadata(ctx context.Context, path string) error

	// Metadata returns the secret and its version map, without payloads.
	Metadata(ctx context.Context, path string) (*Metadata, error)

	// UpdateMetadata adjusts the retention window and CAS requirement.
	UpdateMetadata(ctx context.Context, path string, update *MetadataUpdate) (*kvDomain.Secret, error)

	// List returns the immediate children of the prefix, directory-style:
	// leaf paths as-is and intermediate segments with a trailing slash.
	List(ctx context.Context, prefix string) ([]string, error)
}
