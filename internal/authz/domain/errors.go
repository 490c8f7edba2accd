package domain

import (
	"github.com/usphq/usp/internal/errors"
)

// Authorization error definitions. All wrap the platform taxonomy so handlers
// map them to stable machine codes.
var (
	// ErrPolicyNotFound indicates no policy exists with the requested id.
	ErrPolicyNotFound = errors.Wrap(errors.ErrNotFound, "policy not found")

	// ErrPolicyExists indicates a policy with the same id already exists.
	ErrPolicyExists = errors.Wrap(errors.ErrConflict, "policy already exists")

	// ErrPolicyIDInvalid indicates the policy id is empty, too long, or carries
	// characters outside the allowed set.
	ErrPolicyIDInvalid = errors.Wrap(errors.ErrInvalidInput, "invalid policy id")

	// ErrPolicyTypeInvalid indicates an unknown policy type.
	ErrPolicyTypeInvalid = errors.Wrap(errors.ErrInvalidInput, "invalid policy type")

	// ErrPolicyBodyInvalid indicates the body does not parse for its type.
	ErrPolicyBodyInvalid = errors.Wrap(errors.ErrInvalidInput, "invalid policy body")

	// ErrPolicyTooLarge indicates the body exceeds the 16KB cap.
	ErrPolicyTooLarge = errors.Wrap(errors.ErrInvalidInput, "policy body exceeds size limit")
)
