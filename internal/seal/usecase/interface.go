// Package usecase implements the seal state machine: Shamir initialization,
// share-by-share unsealing, sealing with a bounded key drain, and KMS-backed
// auto-unseal.
package usecase

import (
	"context"
	"time"

	auditDomain "github.com/usphq/usp/internal/audit/domain"
	cryptoDomain "github.com/usphq/usp/internal/crypto/domain"
	sealDomain "github.com/usphq/usp/internal/seal/domain"
)

// SealConfigRepository defines persistence for the singleton seal configuration.
type SealConfigRepository interface {
	Get(ctx context.Context) (*sealDomain.SealConfig, error)
	Create(ctx context.Context, config *sealDomain.SealConfig) error
}

// KeyCustodian owns the runtime hierarchy slot. The guard in seal/service is
// the production implementation.
type KeyCustodian interface {
	Install(hierarchy *cryptoDomain.KeyHierarchy)
	Unsealed() bool
	Drain(ctx context.Context, timeout time.Duration)
}

// Auditor is the slice of the audit sink the seal machine drives: appends for
// its own transitions and the chain verification that runs after unseal.
type Auditor interface {
	Append(ctx context.Context, entry *auditDomain.Entry) error
	VerifyChain(ctx context.Context) (*auditDomain.VerifyReport, error)
}

// InitResult carries the one-time share handout. Shares are returned exactly
// once and never persisted.
type InitResult struct {
	Shares    [][]byte
	Threshold int
}

// SealUseCase drives the seal state machine. All methods are safe for
// concurrent use; collected shares live only in memory.
type SealUseCase interface {
	// Init generates the KEK and root key, splits the KEK into shares with
	// the given threshold, persists the sealed root key, and returns the
	// shares. The machine is Sealed afterwards.
	Init(ctx context.Context, shares, threshold int) (*InitResult, error)

	// SubmitShare collects one share. Reaching the threshold reconstructs
	// the KEK and unseals; a reconstruction that cannot open the stored root
	// key discards all collected shares and returns ErrShareCombination.
	SubmitShare(ctx context.Context, share []byte) (*sealDomain.Status, error)

	// ResetUnseal discards collected shares and returns to Sealed.
	ResetUnseal(ctx context.Context) (*sealDomain.Status, error)

	// Seal zeroizes the hierarchy after draining in-flight key users and
	// discards any collected shares. Idempotent.
	Seal(ctx context.Context) (*sealDomain.Status, error)

	// Status reports the observable snapshot in any state.
	Status(ctx context.Context) (*sealDomain.Status, error)

	// AutoUnseal unseals through the configured KMS, initializing the
	// installation first if this is the first boot.
	AutoUnseal(ctx context.Context) (*sealDomain.Status, error)
}
