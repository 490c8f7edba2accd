// Package domain defines the seal state machine entities: the persisted seal
// configuration and the externally observable status snapshot.
package domain

import (
	"time"
)

// State enumerates the observable seal states. Transitions follow the machine
// exactly: Uninitialized -Init-> Sealed -SubmitShare-> Unsealing -last
// share-> Unsealed -Seal-> Sealed.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateSealed        State = "sealed"
	StateUnsealing     State = "unsealing"
	StateUnsealed      State = "unsealed"
)

// SealType selects how the key-encryption key is guarded.
type SealType string

const (
	// SealTypeShamir splits the KEK into operator-held shares.
	SealTypeShamir SealType = "shamir"
	// SealTypeKMS wraps the root key with an external KMS for auto-unseal.
	SealTypeKMS SealType = "kms"
)

// Share-count bounds for Shamir initialization.
const (
	MinShares = 2
	MaxShares = 10
)

// SealConfig is the persisted seal configuration, one row per installation.
// EncryptedDMK holds the data master key sealed under the KEK (shamir) or
// under the external KMS key (kms). The KEK itself is never persisted.
type SealConfig struct {
	SealType     SealType
	Shares       int
	Threshold    int
	EncryptedDMK []byte
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Status is the externally observable seal snapshot. It never carries
// collected share bytes.
type Status struct {
	State       State    `json:"state"`
	Initialized bool     `json:"initialized"`
	SealType    SealType `json:"seal_type,omitempty"`
	Progress    int      `json:"progress"`
	Threshold   int      `json:"threshold"`
	Shares      int      `json:"shares"`
}
