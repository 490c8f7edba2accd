// Package domain defines the edge identity model: principals that own API
// tokens and the bootstrap credential used by the seal control plane.
// Authorization lives elsewhere; a principal carries only the roles and
// attributes the policy evaluator consumes.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// BootstrapPrincipalID is the synthetic identity recorded for requests
// authenticated with the bootstrap credential.
const BootstrapPrincipalID = "bootstrap"

// Principal is an authenticated caller: a service or operator identity with
// the roles and attributes the policy evaluator matches on. SecretHash is the
// Argon2id hash of the principal's login secret; the plaintext exists only in
// the create response.
type Principal struct {
	ID             uuid.UUID
	Name           string
	SecretHash     string
	Roles          []string
	Attributes     map[string]string
	Active         bool
	FailedAttempts int
	LockedUntil    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Locked reports whether the principal is under a login lockout at the given
// instant.
func (p *Principal) Locked(now time.Time) bool {
	return p.LockedUntil != nil && p.LockedUntil.After(now)
}

// CreatePrincipalInput carries a new principal. The login secret is generated
// by the platform, never chosen by the caller.
type CreatePrincipalInput struct {
	Name       string
	Roles      []string
	Attributes map[string]string
	Active     bool
}

// CreatePrincipalOutput is the create result. PlainSecret is returned exactly
// once and is not recoverable afterwards.
type CreatePrincipalOutput struct {
	ID          uuid.UUID
	PlainSecret string
}

// UpdatePrincipalInput carries the mutable principal fields. The name, id,
// and secret are immutable; deactivating clears nothing but blocks login and
// token authentication.
type UpdatePrincipalInput struct {
	Roles      []string
	Attributes map[string]string
	Active     bool
}
