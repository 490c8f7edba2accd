package domain

import (
	"github.com/usphq/usp/internal/errors"
)

// Audit trail errors.
var (
	// ErrRecordNotFound indicates no audit record exists at the requested sequence.
	ErrRecordNotFound = errors.Wrap(errors.ErrNotFound, "audit record not found")

	// ErrChainTampered indicates a record's HMAC or linkage failed verification.
	ErrChainTampered = errors.Wrap(errors.ErrChainBroken, "audit chain tampered")

	// ErrChainNotBroken indicates an acknowledge was requested while the chain
	// is healthy.
	ErrChainNotBroken = errors.Wrap(errors.ErrConflict, "audit chain is not broken")

	// ErrDuplicateSeq indicates a concurrent writer already claimed the
	// sequence number. The losing transaction should retry.
	ErrDuplicateSeq = errors.Wrap(errors.ErrConflict, "audit record sequence already exists")
)
