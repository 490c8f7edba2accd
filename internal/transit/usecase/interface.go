// Package usecase implements the transit engine: encryption, decryption,
// signing and verification as a service, over named versioned keys whose
// material never leaves the platform unwrapped (except via explicit export).
package usecase

import (
	"context"

	"github.com/google/uuid"

	auditDomain "github.com/usphq/usp/internal/audit/domain"
	cryptoDomain "github.com/usphq/usp/internal/crypto/domain"
	transitDomain "github.com/usphq/usp/internal/transit/domain"
)

// KeyRepository defines persistence for transit key metadata.
type KeyRepository interface {
	GetByName(ctx context.Context, name string) (*transitDomain.TransitKey, error)

	// GetByNameForUpdate returns the key with its row locked until the
	// enclosing transaction commits. Rotation and config updates serialize here.
	GetByNameForUpdate(ctx context.Context, name string) (*transitDomain.TransitKey, error)

	// Create inserts new key metadata. Fails with a conflict when the name
	// already exists.
	Create(ctx context.Context, key *transitDomain.TransitKey) error

	// Update persists mutable metadata: current version, minimum decryption
	// version, and the deletion flag.
	Update(ctx context.Context, key *transitDomain.TransitKey) error

	// DeleteByID removes the key row; version rows cascade.
	DeleteByID(ctx context.Context, id uuid.UUID) error

	// ListNames returns every key name ordered ascending.
	ListNames(ctx context.Context) ([]string, error)
}

// VersionRepository defines persistence for immutable key version material.
type VersionRepository interface {
	Create(ctx context.Context, version *transitDomain.KeyVersion) error
	Get(ctx context.Context, keyID uuid.UUID, version int) (*transitDomain.KeyVersion, error)
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

// CreateKeyInput carries the immutable creation-time settings of a key.
// Exportable can never be enabled after creation.
type CreateKeyInput struct {
	Name            string
	Type            transitDomain.KeyType
	Exportable      bool
	DeletionAllowed bool
}

// KeyConfigUpdate carries the mutable key settings; nil fields are left
// unchanged.
type KeyConfigUpdate struct {
	MinDecryptionVersion *int
	DeletionAllowed      *bool
}

// ExportedKey is the plaintext material of one key version, returned only for
// keys created as exportable. Callers must zero Material after use.
type ExportedKey struct {
	Name      string
	Type      transitDomain.KeyType
	Version   int
	Material  []byte
	PublicKey []byte
}

// TransitUseCase is the transit engine.
type TransitUseCase interface {
	// CreateKey creates a named key at version 1. Refuses duplicates.
	CreateKey(ctx context.Context, input *CreateKeyInput) (*transitDomain.TransitKey, error)

	// GetKey returns key metadata with the current version's public key for
	// asymmetric types.
	GetKey(ctx context.Context, name string) (*transitDomain.TransitKey, *transitDomain.KeyVersion, error)

	// ListKeys returns every key name.
	ListKeys(ctx context.Context) ([]string, error)

	// RotateKey generates the next version. Existing ciphertexts keep
	// decrypting with their original versions.
	RotateKey(ctx context.Context, name string) (*transitDomain.TransitKey, error)

	// UpdateKeyConfig adjusts the minimum decryption version (never above the
	// current version) and the deletion flag.
	UpdateKeyConfig(ctx context.Context, name string, update *KeyConfigUpdate) (*transitDomain.TransitKey, error)

	// DeleteKey removes the key and all versions; only when deletion_allowed.
	DeleteKey(ctx context.Context, name string) error

	// Encrypt encrypts plaintext under the current version of a symmetric key.
	// The optional context binds the ciphertext and must be replayed at
	// decryption.
	Encrypt(ctx context.Context, name string, plaintext, context []byte) (string, error)

	// Decrypt decrypts a wire ciphertext with the version it names; versions
	// below the minimum decryption version fail with a version-too-old error.
	Decrypt(ctx context.Context, name, ciphertext string, context []byte) ([]byte, error)

	// Sign signs message with the current version of an asymmetric key.
	Sign(ctx context.Context, name string, message []byte) (string, error)

	// Verify checks a wire signature against message. An invalid signature is
	// a false result, not an error.
	Verify(ctx context.Context, name string, message []byte, signature string) (bool, error)

	// Export returns plaintext material of one version (0 means current) for
	// keys created as exportable.
	Export(ctx context.Context, name string, version int) (*ExportedKey, error)
}
