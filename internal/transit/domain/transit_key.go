// Package domain defines the transit engine entities: named versioned keys
// whose material never leaves the platform, plus the ciphertext wire format.
package domain

import (
	"time"

	"github.com/google/uuid"

	cryptoDomain "github.com/usphq/usp/internal/crypto/domain"
)

// KeyType identifies the algorithm of a transit key. Symmetric types encrypt
// and decrypt; asymmetric types sign and verify.
type KeyType string

const (
	// KeyTypeAES256GCM96 is AES-256-GCM with a 96-bit nonce.
	KeyTypeAES256GCM96 KeyType = "aes256-gcm96"

	// KeyTypeChaCha20Poly1305 is ChaCha20-Poly1305.
	KeyTypeChaCha20Poly1305 KeyType = "chacha20-poly1305"

	// KeyTypeEd25519 is Ed25519 signing.
	KeyTypeEd25519 KeyType = "ed25519"

	// KeyTypeRSA2048 is RSA-2048 signing with PSS padding.
	KeyTypeRSA2048 KeyType = "rsa-2048"

	// KeyTypeRSA4096 is RSA-4096 signing with PSS padding.
	KeyTypeRSA4096 KeyType = "rsa-4096"

	// KeyTypeECDSAP256 is ECDSA signing over P-256.
	KeyTypeECDSAP256 KeyType = "ecdsa-p256"
)

// KeyTypes lists every supported key type.
var KeyTypes = []KeyType{
	KeyTypeAES256GCM96,
	KeyTypeChaCha20Poly1305,
	KeyTypeEd25519,
	KeyTypeRSA2048,
	KeyTypeRSA4096,
	KeyTypeECDSAP256,
}

// Valid reports whether t names a supported key type.
func (t KeyType) Valid() bool {
	for _, known := range KeyTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Symmetric reports whether the key type supports encrypt and decrypt.
func (t KeyType) Symmetric() bool {
	return t == KeyTypeAES256GCM96 || t == KeyTypeChaCha20Poly1305
}

// Asymmetric reports whether the key type supports sign and verify.
func (t KeyType) Asymmetric() bool {
	return t.Valid() && !t.Symmetric()
}

// AEADAlgorithm maps a symmetric key type to its cipher algorithm.
func (t KeyType) AEADAlgorithm() (cryptoDomain.Algorithm, bool) {
	switch t {
	case KeyTypeAES256GCM96:
		return cryptoDomain.AESGCM, true
	case KeyTypeChaCha20Poly1305:
		return cryptoDomain.ChaCha20, true
	default:
		return "", false
	}
}

// SigningAlgorithm maps an asymmetric key type to its signing algorithm.
func (t KeyType) SigningAlgorithm() (cryptoDomain.SigningAlgorithm, bool) {
	switch t {
	case KeyTypeEd25519:
		return cryptoDomain.SignEd25519, true
	case KeyTypeRSA2048:
		return cryptoDomain.SignRSA2048, true
	case KeyTypeRSA4096:
		return cryptoDomain.SignRSA4096, true
	case KeyTypeECDSAP256:
		return cryptoDomain.SignECDSAP256, true
	default:
		return "", false
	}
}

// TransitKey is one named key. The current version serves new encrypt and sign
// operations; older versions stay available for decrypt and verify down to
// MinDecryptionVersion. Exportable is fixed at creation and can never be
// turned on later.
type TransitKey struct {
	ID   uuid.UUID
	Name string
	Type KeyType
	// CurrentVersion is the highest version; rotation increments it.
	CurrentVersion int
	// MinDecryptionVersion rejects ciphertexts from older versions, letting
	// operators fence off compromised material without deleting the key.
	MinDecryptionVersion int
	Exportable           bool
	DeletionAllowed      bool
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// KeyVersion carries one version's material. Material is the wrapped secret
// half (the symmetric key, or the PKCS#8 private key); PublicKey is the PKIX
// public half for asymmetric types and nil otherwise.
type KeyVersion struct {
	KeyID     uuid.UUID
	Version   int
	Material  []byte
	PublicKey []byte
	CreatedAt time.Time
}
