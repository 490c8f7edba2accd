// Package dto provides data transfer objects for the authentication API.
package dto

import (
	validation "github.com/jellydator/validation"
)

// LoginRequest contains the credentials for token issuance.
type LoginRequest struct {
	Name   string `json:"name"`
	Secret string `json:"secret"`
}

// Validate checks if the login request is valid.
func (r *LoginRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 255)),
		validation.Field(&r.Secret, validation.Required),
	)
}

// RevokeTokenRequest names the token to revoke.
type RevokeTokenRequest struct {
	TokenID string `json:"token_id"`
}

// Validate checks if the revoke request is valid.
func (r *RevokeTokenRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.TokenID, validation.Required),
	)
}

// CreatePrincipalRequest contains the parameters for creating a principal.
// The login secret is generated server side and returned once in the
// response.
type CreatePrincipalRequest struct {
	Name       string            `json:"name"`
	Roles      []string          `json:"roles"`
	Attributes map[string]string `json:"attributes"`
	Active     *bool             `json:"active,omitempty"`
}

// Validate checks if the create request is valid.
func (r *CreatePrincipalRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 255)),
		validation.Field(&r.Roles, validation.Each(validation.Required, validation.Length(1, 255))),
	)
}

// UpdatePrincipalRequest replaces the mutable fields of a principal.
type UpdatePrincipalRequest struct {
	Roles      []string          `json:"roles"`
	Attributes map[string]string `json:"attributes"`
	Active     bool              `json:"active"`
}

// Validate checks if the update request is valid.
func (r *UpdatePrincipalRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Roles, validation.Each(validation.Required, validation.Length(1, 255))),
	)
}
