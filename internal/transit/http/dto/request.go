// Package dto provides data transfer objects for the transit engine API.
package dto

import (
	validation "github.com/jellydator/validation"

	transitDomain "github.com/usphq/usp/internal/transit/domain"
	customValidation "github.com/usphq/usp/internal/validation"
)

// CreateKeyRequest contains the parameters for creating a transit key.
// Exportable is immutable after creation.
type CreateKeyRequest struct {
	Type            string `json:"type"`
	Exportable      bool   `json:"exportable"`
	DeletionAllowed bool   `json:"deletion_allowed"`
}

// Validate checks if the create key request is valid.
func (r *CreateKeyRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Type, validation.Required, validation.By(validKeyType)),
	)
}

func validKeyType(value any) error {
	keyType, _ := value.(string)
	if !transitDomain.KeyType(keyType).Valid() {
		return validation.NewError("validation_key_type", "must be a supported key type")
	}
	return nil
}

// UpdateKeyConfigRequest adjusts the mutable key settings.
type UpdateKeyConfigRequest struct {
	MinDecryptionVersion *int  `json:"min_decryption_version,omitempty"`
	DeletionAllowed      *bool `json:"deletion_allowed,omitempty"`
}

// Validate checks if the config update request is valid.
func (r *UpdateKeyConfigRequest) Validate() error {
	return validation.Errors{
		"min_decryption_version": validation.Validate(r.MinDecryptionVersion,
			validation.When(r.MinDecryptionVersion != nil, validation.Min(1)),
		),
	}.Filter()
}

// EncryptRequest carries base64 plaintext and an optional base64 context that
// binds the ciphertext.
type EncryptRequest struct {
	Plaintext string `json:"plaintext"`
	Context   string `json:"context,omitempty"`
}

// Validate checks if the encrypt request is valid.
func (r *EncryptRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Plaintext, validation.Required, customValidation.Base64),
		validation.Field(&r.Context, customValidation.Base64),
	)
}

// DecryptRequest carries the wire ciphertext and the context used at
// encryption time.
type DecryptRequest struct {
	Ciphertext string `json:"ciphertext"`
	Context    string `json:"context,omitempty"`
}

// Validate checks if the decrypt request is valid.
func (r *DecryptRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Ciphertext, validation.Required),
		validation.Field(&r.Context, customValidation.Base64),
	)
}

// SignRequest carries the base64 message to sign.
type SignRequest struct {
	Input string `json:"input"`
}

// Validate checks if the sign request is valid.
func (r *SignRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Input, validation.Required, customValidation.Base64),
	)
}

// VerifyRequest carries the base64 message and the wire signature.
type VerifyRequest struct {
	Input     string `json:"input"`
	Signature string `json:"signature"`
}

// Validate checks if the verify request is valid.
func (r *VerifyRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Input, validation.Required, customValidation.Base64),
		validation.Field(&r.Signature, validation.Required),
	)
}
