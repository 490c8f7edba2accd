package service

import (
	"crypto/rand"
	"fmt"

	cryptoDomain "github.com/usphq/usp/internal/crypto/domain"
)

// KeyWrapperService generates random data keys and wraps them under a purpose
// subkey for storage. The transit engine uses it for key-version material:
// each version is a fresh 32-byte key that only ever exists in plaintext in
// memory, and rests in the database wrapped by the transit subkey.
type KeyWrapperService struct {
	cipher *FieldCipher
}

// NewKeyWrapper creates a KeyWrapperService over the given 32-byte subkey.
func NewKeyWrapper(subkey []byte) (*KeyWrapperService, error) {
	cipher, err := NewFieldCipher(subkey)
	if err != nil {
		return nil, err
	}
	return &KeyWrapperService{cipher: cipher}, nil
}

// GenerateWrapped creates a random 32-byte data key and returns both the
// plaintext and the wrapped blob. The AAD binds the wrapped key to its owner
// (typically "name:version") so blobs cannot be swapped between rows.
//
// The caller owns the plaintext copy and must zero it when done.
func (s *KeyWrapperService) GenerateWrapped(aad []byte) (plain, wrapped []byte, err error) {
	plain = make([]byte, cryptoDomain.KeySize)
	if _, err := rand.Read(plain); err != nil {
		return nil, nil, fmt.Errorf("failed to generate data key: %w", err)
	}

	wrapped, err = s.cipher.Seal(plain, aad)
	if err != nil {
		cryptoDomain.Zero(plain)
		return nil, nil, err
	}
	return plain, wrapped, nil
}

// Wrap encrypts existing key material under the subkey. Used when importing
// or re-wrapping key versions.
func (s *KeyWrapperService) Wrap(plain, aad []byte) ([]byte, error) {
	if len(plain) != cryptoDomain.KeySize {
		return nil, cryptoDomain.ErrInvalidKeySize
	}
	return s.cipher.Seal(plain, aad)
}

// Unwrap decrypts a wrapped data key. The caller owns the returned plaintext
// and must zero it when done.
func (s *KeyWrapperService) Unwrap(wrapped, aad []byte) ([]byte, error) {
	return s.cipher.Open(wrapped, aad)
}
