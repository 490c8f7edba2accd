// Package errors provides standardized domain errors that express business intent
// rather than infrastructure details. These errors should be used by engines
// and mapped to appropriate HTTP status codes and machine codes by handlers.
package errors

import (
	"errors"
	"fmt"
)

// Standard domain errors that can be used across all domain modules.
var (
	// ErrNotFound indicates the requested resource does not exist. Handlers also
	// use it to mask resources the caller is not allowed to know about.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a conflict with existing data (e.g., duplicate key).
	ErrConflict = errors.New("conflict")

	// ErrInvalidInput indicates the input data is invalid or fails validation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates the request lacks valid authentication credentials.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the authenticated principal doesn't have permission.
	ErrForbidden = errors.New("forbidden")

	// ErrLocked indicates the caller exceeded a rate limit and should retry later.
	ErrLocked = errors.New("locked")

	// ErrSealed indicates the key hierarchy is unavailable and the operation
	// requires an unsealed platform.
	ErrSealed = errors.New("sealed")

	// ErrCASMismatch indicates a check-and-set precondition failed.
	ErrCASMismatch = errors.New("check-and-set mismatch")

	// ErrDeleted indicates the requested version is soft-deleted.
	ErrDeleted = errors.New("deleted")

	// ErrDestroyed indicates the requested version's ciphertext has been
	// irrecoverably erased.
	ErrDestroyed = errors.New("destroyed")

	// ErrKeyVersionTooOld indicates the ciphertext references a key version below
	// the key's minimum decryption version.
	ErrKeyVersionTooOld = errors.New("key version below minimum decryption version")

	// ErrConnector indicates a backing system operation failed inside a database
	// connector.
	ErrConnector = errors.New("connector failure")

	// ErrChainBroken indicates audit hash-chain continuity could not be
	// established and writes are refused until an operator acknowledges the gap.
	ErrChainBroken = errors.New("audit chain broken")

	// ErrUnsupported indicates the operation is recognized but not enabled for
	// the target resource.
	ErrUnsupported = errors.New("unsupported operation")

	// ErrTransient indicates a retryable infrastructure failure.
	ErrTransient = errors.New("transient failure")
)

// Machine-readable error codes carried in API error responses. These are part
// of the wire contract and must stay stable across releases.
const (
	CodeNotFound         = "not_found"
	CodeConflict         = "conflict"
	CodeInvalidInput     = "invalid_request"
	CodeUnauthorized     = "unauthorized"
	CodeForbidden        = "forbidden"
	CodeLocked           = "rate_limited"
	CodeSealed           = "sealed"
	CodeCASMismatch      = "cas_mismatch"
	CodeDeleted          = "deleted"
	CodeDestroyed        = "destroyed"
	CodeKeyVersionTooOld = "key_version_too_old"
	CodeConnector        = "connector_failure"
	CodeChainBroken      = "audit_chain_broken"
	CodeUnsupported      = "unsupported"
	CodeTransient        = "transient"
	CodeInternal         = "internal"
)

// Code returns the stable machine code for err, walking the wrap chain. Errors
// outside the taxonomy map to CodeInternal so callers never leak raw error
// text as a code.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrCASMismatch):
		return CodeCASMismatch
	case errors.Is(err, ErrConflict):
		return CodeConflict
	case errors.Is(err, ErrInvalidInput):
		return CodeInvalidInput
	case errors.Is(err, ErrUnauthorized):
		return CodeUnauthorized
	case errors.Is(err, ErrForbidden):
		return CodeForbidden
	case errors.Is(err, ErrLocked):
		return CodeLocked
	case errors.Is(err, ErrSealed):
		return CodeSealed
	case errors.Is(err, ErrDeleted):
		return CodeDeleted
	case errors.Is(err, ErrDestroyed):
		return CodeDestroyed
	case errors.Is(err, ErrKeyVersionTooOld):
		return CodeKeyVersionTooOld
	case errors.Is(err, ErrConnector):
		return CodeConnector
	case errors.Is(err, ErrChainBroken):
		return CodeChainBroken
	case errors.Is(err, ErrUnsupported):
		return CodeUnsupported
	case errors.Is(err, ErrTransient):
		return CodeTransient
	default:
		return CodeInternal
	}
}

// New creates a new error with the given message.
// This is a convenience wrapper around errors.New for consistency.
func New(message string) error {
	return errors.New(message)
}

// Wrap wraps an error with additional context while preserving the error chain.
// Use this to add context at each layer without losing the original error type.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context while preserving the error chain.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's tree matches target.
// This is a convenience wrapper around errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
// This is a convenience wrapper around errors.As.
func As(err error, target any) bool {
	return errors.As(err, target)
}
