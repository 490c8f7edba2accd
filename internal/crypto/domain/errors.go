package domain

import (
	"github.com/usphq/usp/internal/errors"
)

// Cryptographic operation error definitions.
//
// These domain-specific errors wrap standard errors from internal/errors
// to provide context for cryptographic failures. All errors are mapped to
// appropriate HTTP status codes by the error handling layer.
var (
	// ErrUnsupportedAlgorithm indicates the requested encryption algorithm is not supported.
	//
	// Supported algorithms: AESGCM (AES-256-GCM), ChaCha20 (ChaCha20-Poly1305).
	ErrUnsupportedAlgorithm = errors.Wrap(errors.ErrInvalidInput, "unsupported algorithm")

	// ErrInvalidKeySize indicates the cryptographic key size is invalid.
	//
	// All symmetric keys must be exactly 32 bytes (256 bits).
	ErrInvalidKeySize = errors.Wrap(errors.ErrInvalidInput, "invalid key size")

	// ErrDecryptionFailed indicates a decryption operation failed.
	//
	// This error can occur due to a wrong key, a mismatched AAD binding,
	// or tampered ciphertext. For security reasons, the specific cause is
	// not disclosed to prevent information leakage.
	ErrDecryptionFailed = errors.Wrap(errors.ErrInvalidInput, "decryption failed")

	// ErrHierarchyDestroyed indicates key material was requested after the
	// hierarchy was zeroized. Operations hitting this are effectively sealed.
	ErrHierarchyDestroyed = errors.Wrap(errors.ErrSealed, "key hierarchy destroyed")

	// ErrMalformedBlob indicates a stored encrypted field is too short to
	// contain its framing, nonce and authentication tag.
	ErrMalformedBlob = errors.Wrap(errors.ErrInvalidInput, "malformed encrypted blob")

	// ErrUnsupportedBlobFormat indicates a stored encrypted field carries an
	// unknown format version byte.
	ErrUnsupportedBlobFormat = errors.Wrap(errors.ErrInvalidInput, "unsupported encrypted blob format")

	// ErrInvalidShareCount indicates a Shamir split was requested with a share
	// count outside the supported range.
	ErrInvalidShareCount = errors.Wrap(errors.ErrInvalidInput, "share count must be between threshold and 255")

	// ErrInvalidThreshold indicates a Shamir split was requested with a
	// threshold outside the supported range.
	ErrInvalidThreshold = errors.Wrap(errors.ErrInvalidInput, "threshold must be between 2 and the share count")

	// ErrIncoherentShares indicates a set of Shamir shares could not be
	// combined: duplicates, mismatched lengths, or shares from different
	// splits.
	ErrIncoherentShares = errors.Wrap(errors.ErrInvalidInput, "shares are incoherent")
)
