package domain

import (
	"github.com/usphq/usp/internal/errors"
)

// Seal state machine errors.
var (
	// ErrAlreadyInitialized indicates Init was called on an initialized
	// installation.
	ErrAlreadyInitialized = errors.Wrap(errors.ErrConflict, "seal already initialized")

	// ErrNotInitialized indicates a seal operation arrived before Init.
	ErrNotInitialized = errors.Wrap(errors.ErrInvalidInput, "seal not initialized")

	// ErrAlreadyUnsealed indicates a share was submitted while unsealed.
	ErrAlreadyUnsealed = errors.Wrap(errors.ErrConflict, "already unsealed")

	// ErrInvalidSealConfig indicates share or threshold counts outside the
	// allowed ranges.
	ErrInvalidSealConfig = errors.Wrap(errors.ErrInvalidInput, "invalid seal configuration")

	// ErrInvalidShare indicates a submitted share is malformed.
	ErrInvalidShare = errors.Wrap(errors.ErrInvalidInput, "invalid unseal share")

	// ErrDuplicateShare indicates a share index was already collected. The
	// progress counter does not advance.
	ErrDuplicateShare = errors.Wrap(errors.ErrInvalidInput, "duplicate unseal share")

	// ErrShareCombination indicates the collected shares reconstructed a KEK
	// that cannot open the stored root key. All collected shares are
	// discarded and the machine returns to Sealed.
	ErrShareCombination = errors.Wrap(errors.ErrInvalidInput, "shares do not reconstruct the key")

	// ErrAutoUnsealUnavailable indicates KMS auto-unseal was requested on a
	// shamir-type installation or without KMS configuration.
	ErrAutoUnsealUnavailable = errors.Wrap(errors.ErrUnsupported, "auto-unseal not available")
)
