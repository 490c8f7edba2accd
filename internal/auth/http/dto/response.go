package dto

import (
	"time"

	"github.com/google/uuid"

	authDomain "github.com/usphq/usp/internal/auth/domain"
)

// LoginResponse carries an issued token. The plain token appears here
// exactly once and is never retrievable again.
type LoginResponse struct {
	TokenID   uuid.UUID `json:"token_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CreatePrincipalResponse carries the generated login secret. The plain
// secret appears here exactly once; only its hash is stored.
type CreatePrincipalResponse struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	Secret string    `json:"secret"`
}

// PrincipalResponse describes one principal. The secret hash is never
// returned.
type PrincipalResponse struct {
	ID          uuid.UUID         `json:"id"`
	Name        string            `json:"name"`
	Roles       []string          `json:"roles"`
	Attributes  map[string]string `json:"attributes"`
	Active      bool              `json:"active"`
	LockedUntil *time.Time        `json:"locked_until,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// ListPrincipalsResponse holds every principal ordered by name.
type ListPrincipalsResponse struct {
	Principals []*PrincipalResponse `json:"principals"`
}

// MapTokenToLoginResponse maps an issued token to its API shape.
func MapTokenToLoginResponse(output *authDomain.IssueTokenOutput) *LoginResponse {
	return &LoginResponse{
		TokenID:   output.TokenID,
		Token:     output.PlainToken,
		ExpiresAt: output.ExpiresAt,
	}
}

// MapPrincipalToCreateResponse maps a created principal and its plain secret
// to the API shape.
func MapPrincipalToCreateResponse(name string, output *authDomain.CreatePrincipalOutput) *CreatePrincipalResponse {
	return &CreatePrincipalResponse{
		ID:     output.ID,
		Name:   name,
		Secret: output.PlainSecret,
	}
}

// MapPrincipalToResponse maps a principal to its API shape.
func MapPrincipalToResponse(principal *authDomain.Principal) *PrincipalResponse {
	return &PrincipalResponse{
		ID:          principal.ID,
		Name:        principal.Name,
		Roles:       principal.Roles,
		Attributes:  principal.Attributes,
		Active:      principal.Active,
		LockedUntil: principal.LockedUntil,
		CreatedAt:   principal.CreatedAt,
		UpdatedAt:   principal.UpdatedAt,
	}
}

// MapPrincipalsToListResponse maps a principal list to its API shape.
func MapPrincipalsToListResponse(principals []*authDomain.Principal) *ListPrincipalsResponse {
	response := &ListPrincipalsResponse{
		Principals: make([]*PrincipalResponse, 0, len(principals)),
	}
	for _, principal := range principals {
		response.Principals = append(response.Principals, MapPrincipalToResponse(principal))
	}
	return response
}
