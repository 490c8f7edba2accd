package domain

import (
	"github.com/usphq/usp/internal/errors"
)

var (
	// ErrJobNotFound indicates no rotation job exists with the requested id.
	ErrJobNotFound = errors.Wrap(errors.ErrNotFound, "rotation job not found")

	// ErrJobExists indicates a job for the same kind and target already exists.
	ErrJobExists = errors.Wrap(errors.ErrConflict, "rotation job already exists")

	// ErrKindInvalid indicates an unknown rotation job kind.
	ErrKindInvalid = errors.Wrap(errors.ErrInvalidInput, "invalid rotation job kind")

	// ErrIntervalInvalid indicates a non-positive rotation interval.
	ErrIntervalInvalid = errors.Wrap(errors.ErrInvalidInput, "rotation interval must be positive")
)
