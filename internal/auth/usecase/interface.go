// Package usecase implements principal lifecycle and API token issuance:
// login with lockout, token authentication, and revocation.
package usecase

import (
	"context"

	"github.com/google/uuid"

	auditDomain "github.com/usphq/usp/internal/audit/domain"
	authDomain "github.com/usphq/usp/internal/auth/domain"
)

// PrincipalRepository defines persistence for principals.
type PrincipalRepository interface {
	// Create inserts a new principal. Fails with a conflict when the name
	// exists.
	Create(ctx context.Context, principal *authDomain.Principal) error

	// Update persists mutable fields including the lockout counters.
	Update(ctx context.Context, principal *authDomain.Principal) error

	GetByID(ctx context.Context, id uuid.UUID) (*authDomain.Principal, error)

	GetByName(ctx context.Context, name string) (*authDomain.Principal, error)

	// List returns every principal ordered by name.
	List(ctx context.Context) ([]*authDomain.Principal, error)
}

// TokenRepository defines persistence for API tokens.
type TokenRepository interface {
	Create(ctx context.Context, token *authDomain.Token) error

	// Update persists the revocation marker.
	Update(ctx context.Context, token *authDomain.Token) error

	GetByID(ctx context.Context, id uuid.UUID) (*authDomain.Token, error)

	// GetByTokenHash is the authentication lookup.
	GetByTokenHash(ctx context.Context, tokenHash string) (*authDomain.Token, error)
}

// Auditor is the slice of the audit sink the auth context drives.
type Auditor interface {
	Append(ctx context.Context, entry *auditDomain.Entry) error
}

// PrincipalUseCase manages principal lifecycle.
type PrincipalUseCase interface {
	// Create stores a new principal with a generated login secret. The plain
	// secret is returned once.
	Create(ctx context.Context, input *authDomain.CreatePrincipalInput) (*authDomain.CreatePrincipalOutput, error)

	Get(ctx context.Context, id uuid.UUID) (*authDomain.Principal, error)

	List(ctx context.Context) ([]*authDomain.Principal, error)

	// Update applies the mutable fields; deactivating blocks login and token
	// authentication immediately.
	Update(ctx context.Context, id uuid.UUID, input *authDomain.UpdatePrincipalInput) error

	// Delete deactivates the principal, keeping the record for the audit
	// trail.
	Delete(ctx context.Context, id uuid.UUID) error
}

// TokenUseCase issues and validates API tokens.
type TokenUseCase interface {
	// Issue authenticates a login and mints a token. Failed attempts count
	// toward the lockout; lookup failures and wrong secrets both surface as
	// ErrInvalidCredentials.
	Issue(ctx context.Context, input *authDomain.IssueTokenInput) (*authDomain.IssueTokenOutput, error)

	// Authenticate resolves a token hash to its active principal.
	Authenticate(ctx context.Context, tokenHash string) (*authDomain.Principal, *authDomain.Token, error)

	// Revoke marks a token unusable. Idempotent.
	Revoke(ctx context.Context, tokenID uuid.UUID) error
}
