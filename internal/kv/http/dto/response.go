package dto

import (
	"encoding/json"
	"time"

	kvDomain "github.com/usphq/usp/internal/kv/domain"
)

// VersionMetadataResponse describes one version without its payload.
type VersionMetadataResponse struct {
	Version       int        `json:"version"`
	CreatedAt     time.Time  `json:"created_at"`
	SoftDeletedAt *time.Time `json:"soft_deleted_at,omitempty"`
	Destroyed     bool       `json:"destroyed"`
}

// WriteSecretResponse is the metadata returned after a successful write.
type WriteSecretResponse struct {
	Path      string    `json:"path"`
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
}

// ReadSecretResponse carries one decrypted version with its metadata.
type ReadSecretResponse struct {
	Path     string                  `json:"path"`
	Data     json.RawMessage         `json:"data"`
	Metadata VersionMetadataResponse `json:"metadata"`
}

// SecretMetadataResponse is the full version map for a path.
type SecretMetadataResponse struct {
	Path           string                    `json:"path"`
	CurrentVersion int                       `json:"current_version"`
	MaxVersions    int                       `json:"max_versions"`
	CASRequired    bool                      `json:"cas_required"`
	CreatedAt      time.Time                 `json:"created_at"`
	UpdatedAt      time.Time                 `json:"updated_at"`
	DeletedAt      *time.Time                `json:"deleted_at,omitempty"`
	Versions       []VersionMetadataResponse `json:"versions"`
}

// ListSecretsResponse holds the immediate children of a prefix; intermediate
// segments carry a trailing slash.
type ListSecretsResponse struct {
	Keys []string `json:"keys"`
}

// MapSecretToWriteResponse maps a secret after a write.
func MapSecretToWriteResponse(secret *kvDomain.Secret) *WriteSecretResponse {
	return &WriteSecretResponse{
		Path:      secret.Path,
		Version:   secret.CurrentVersion,
		CreatedAt: secret.UpdatedAt,
	}
}

// MapVersionToReadResponse maps a decrypted version. The caller owns the
// plaintext buffer and zeroes it after the response is written.
func MapVersionToReadResponse(secret *kvDomain.Secret, version *kvDomain.Version) *ReadSecretResponse {
	return &ReadSecretResponse{
		Path: secret.Path,
		Data: json.RawMessage(version.Plaintext),
		Metadata: VersionMetadataResponse{
			Version:       version.Version,
			CreatedAt:     version.CreatedAt,
			SoftDeletedAt: version.SoftDeletedAt,
			Destroyed:     version.Destroyed,
		},
	}
}

// MapToMetadataResponse maps the secret and its version map.
func MapToMetadataResponse(secret *kvDomain.Secret, versions []*kvDomain.Version) *SecretMetadataResponse {
	out := &SecretMetadataResponse{
		Path:           secret.Path,
		CurrentVersion: secret.CurrentVersion,
		MaxVersions:    secret.MaxVersions,
		CASRequired:    secret.CASRequired,
		CreatedAt:      secret.CreatedAt,
		UpdatedAt:      secret.UpdatedAt,
		DeletedAt:      secret.DeletedAt,
		Versions:       make([]VersionMetadataResponse, 0, len(versions)),
	}
	for _, v := range versions {
		out.Versions = append(out.Versions, VersionMetadataResponse{
			Version:       v.Version,
			CreatedAt:     v.CreatedAt,
			SoftDeletedAt: v.SoftDeletedAt,
			Destroyed:     v.Destroyed,
		})
	}
	return out
}
