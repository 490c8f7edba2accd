package domain

import (
	"fmt"

	"github.com/usphq/usp/internal/errors"
)

// KV engine error definitions. All wrap the platform taxonomy so handlers map
// them to stable machine codes.
var (
	// ErrSecretNotFound indicates no secret exists at the requested path.
	ErrSecretNotFound = errors.Wrap(errors.ErrNotFound, "secret not found")

	// ErrVersionNotFound indicates the secret exists but the requested
	// version does not.
	ErrVersionNotFound = errors.Wrap(errors.ErrNotFound, "secret version not found")

	// ErrVersionDestroyed indicates the version's ciphertext has been erased.
	ErrVersionDestroyed = errors.Wrap(errors.ErrDestroyed, "secret version destroyed")

	// ErrVersionDeleted indicates the version is soft-deleted and the caller
	// lacks the read-deleted capability.
	ErrVersionDeleted = errors.Wrap(errors.ErrDeleted, "secret version deleted")

	// ErrCASRequired indicates the secret demands a check-and-set parameter
	// and the write carried none.
	ErrCASRequired = errors.Wrap(errors.ErrCASMismatch, "check-and-set parameter required")

	// ErrPathInvalid indicates the path is empty, too long, or malformed.
	ErrPathInvalid = errors.Wrap(errors.ErrInvalidInput, "invalid secret path")

	// ErrValueTooLarge indicates the payload exceeds MaxValueSize.
	ErrValueTooLarge = errors.Wrap(errors.ErrInvalidInput,
		fmt.Sprintf("secret value exceeds %d bytes", MaxValueSize))
)
