package domain

import (
	"time"

	"github.com/google/uuid"
)

// Token is an API token at rest: only the SHA-256 hash is stored, the plain
// token is returned once at issue time.
type Token struct {
	ID          uuid.UUID
	TokenHash   string
	PrincipalID uuid.UUID
	ExpiresAt   time.Time
	RevokedAt   *time.Time
	CreatedAt   time.Time
}

// Usable reports whether the token authenticates requests at the given
// instant.
func (t *Token) Usable(now time.Time) bool {
	return t.RevokedAt == nil && t.ExpiresAt.After(now)
}

// IssueTokenInput carries a login request: the principal name plus the plain
// login secret.
type IssueTokenInput struct {
	Name   string
	Secret string
}

// IssueTokenOutput is the login result. PlainToken is returned exactly once.
type IssueTokenOutput struct {
	TokenID    uuid.UUID
	PlainToken string
	ExpiresAt  time.Time
}
