package dto

import (
	"encoding/base64"
	"time"

	transitDomain "github.com/usphq/usp/internal/transit/domain"
	transitUseCase "github.com/usphq/usp/internal/transit/usecase"
)

// KeyResponse describes one transit key. PublicKey is the base64 PKIX DER of
// the current version and is only present for asymmetric types.
type KeyResponse struct {
	Name                 string    `json:"name"`
	Type                 string    `json:"type"`
	CurrentVersion       int       `json:"current_version"`
	MinDecryptionVersion int       `json:"min_decryption_version"`
	Exportable           bool      `json:"exportable"`
	DeletionAllowed      bool      `json:"deletion_allowed"`
	PublicKey            string    `json:"public_key,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// ListKeysResponse holds every key name ordered ascending.
type ListKeysResponse struct {
	Keys []string `json:"keys"`
}

// EncryptResponse carries the versioned wire ciphertext.
type EncryptResponse struct {
	Ciphertext string `json:"ciphertext"`
}

// DecryptResponse carries the recovered plaintext as base64.
type DecryptResponse struct {
	Plaintext string `json:"plaintext"`
}

// SignResponse carries the versioned wire signature.
type SignResponse struct {
	Signature string `json:"signature"`
}

// VerifyResponse reports whether the signature matched.
type VerifyResponse struct {
	Valid bool `json:"valid"`
}

// ExportResponse carries the raw key material of one version. For asymmetric
// types Material is the PKCS#8 private key and PublicKey the PKIX public key,
// both base64.
type ExportResponse struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	Version   int    `json:"version"`
	Material  string `json:"material"`
	PublicKey string `json:"public_key,omitempty"`
}

// MapKeyToResponse maps key metadata plus the optional current version row.
func MapKeyToResponse(key *transitDomain.TransitKey, version *transitDomain.KeyVersion) *KeyResponse {
	out := &KeyResponse{
		Name:                 key.Name,
		Type:                 string(key.Type),
		CurrentVersion:       key.CurrentVersion,
		MinDecryptionVersion: key.MinDecryptionVersion,
		Exportable:           key.Exportable,
		DeletionAllowed:      key.DeletionAllowed,
		CreatedAt:            key.CreatedAt,
		UpdatedAt:            key.UpdatedAt,
	}
	if version != nil && len(version.PublicKey) > 0 {
		out.PublicKey = base64.StdEncoding.EncodeToString(version.PublicKey)
	}
	return out
}

// MapExportedKey maps exported material. The caller owns the material buffer
// and zeroes it after the response is written.
func MapExportedKey(exported *transitUseCase.ExportedKey) *ExportResponse {
	out := &ExportResponse{
		Name:     exported.Name,
		Type:     string(exported.Type),
		Version:  exported.Version,
		Material: base64.StdEncoding.EncodeToString(exported.Material),
	}
	if len(exported.PublicKey) > 0 {
		out.PublicKey = base64.StdEncoding.EncodeToString(exported.PublicKey)
	}
	return out
}
