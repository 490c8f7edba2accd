// Package domain defines the versioned key-value secret entities. A secret is
// the per-path metadata row; its payloads live in immutable version rows that
// only ever flip their soft-delete and destroy flags.
package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	// MaxPathLength bounds the slash-hierarchical secret path.
	MaxPathLength = 512

	// MaxValueSize bounds one secret payload. Larger blobs belong in object
	// storage, not in a secret version.
	MaxValueSize = 64 * 1024

	// DefaultMaxVersions is the retention window applied when the secret's
	// metadata does not override it.
	DefaultMaxVersions = 10
)

// Secret is the per-path metadata: the current version counter, the retention
// window, and the check-and-set requirement. Keyed uniquely by path.
type Secret struct {
	ID uuid.UUID
	// Path is the slash-hierarchical logical key (e.g. "app/prod/db").
	Path string
	// CurrentVersion is the highest version ever written; dense and
	// monotonically increasing, never reused after destroys.
	CurrentVersion int
	// MaxVersions is the retention window; older intact versions are
	// destroyed when the count exceeds it.
	MaxVersions int
	// CASRequired forces every write to carry a check-and-set parameter.
	CASRequired bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
	// DeletedAt marks entity-level soft deletion. Soft-deleted secrets stay
	// queryable behind an include-deleted flag.
	DeletedAt *time.Time
}

// Version is one immutable secret payload. Ciphertext is the framed AEAD blob
// bound to "kv|v2|<path>|<version>"; after a destroy the blob is erased and
// only the row skeleton remains.
type Version struct {
	SecretID uuid.UUID
	Version  int
	// Ciphertext is the stored encrypted blob; nil once destroyed.
	Ciphertext []byte
	// Plaintext holds the decrypted payload in memory only; must be zeroed
	// after use.
	Plaintext     []byte `json:"-"`
	CreatedAt     time.Time
	SoftDeletedAt *time.Time
	Destroyed     bool
}

// Live reports whether the version can still be read without special
// capabilities.
func (v *Version) Live() bool {
	return !v.Destroyed && v.SoftDeletedAt == nil
}
