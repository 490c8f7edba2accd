// Package service provides the cryptographic building blocks used across the
// platform: AEAD ciphers (AES-256-GCM, ChaCha20-Poly1305), the encrypted-field
// cipher for data at rest, data-key wrapping, and Shamir secret sharing for
// the seal layer.
package service

import (
	cryptoDomain "github.com/usphq/usp/internal/crypto/domain"
)

// AEAD defines the interface for Authenticated Encryption with Associated Data.
type AEAD interface {
	// Encrypt encrypts plaintext with optional AAD and returns ciphertext and nonce.
	Encrypt(plaintext, aad []byte) (ciphertext, nonce []byte, err error)

	// Decrypt decrypts ciphertext using the provided nonce and AAD.
	Decrypt(ciphertext, nonce, aad []byte) ([]byte, error)
}

// AEADManager defines the interface for creating AEAD cipher instances.
type AEADManager interface {
	// CreateCipher creates an AEAD cipher instance for the specified algorithm.
	CreateCipher(key []byte, alg cryptoDomain.Algorithm) (AEAD, error)
}
