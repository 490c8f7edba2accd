package service

import (
	cryptoDomain "github.com/usphq/usp/internal/crypto/domain"
)

// FieldCipher encrypts individual database fields under a purpose subkey and
// frames the result as a single storable blob (format byte, nonce, ciphertext
// with tag). Every engine that persists sensitive material (KV payloads,
// transit key versions, connection configuration, audit metadata) goes through
// a FieldCipher bound to its own subkey.
type FieldCipher struct {
	aead AEAD
}

// NewFieldCipher creates a FieldCipher over AES-256-GCM with the given 32-byte
// subkey.
func NewFieldCipher(key []byte) (*FieldCipher, error) {
	if len(key) != cryptoDomain.KeySize {
		return nil, cryptoDomain.ErrInvalidKeySize
	}

	aead, err := NewAESGCM(key)
	if err != nil {
		return nil, err
	}
	return &FieldCipher{aead: aead}, nil
}

// Seal encrypts plaintext with the given AAD binding and returns the framed
// blob ready for storage.
func (c *FieldCipher) Seal(plaintext, aad []byte) ([]byte, error) {
	ciphertext, nonce, err := c.aead.Encrypt(plaintext, aad)
	if err != nil {
		return nil, err
	}
	return cryptoDomain.EncodeBlob(nonce, ciphertext)
}

// Open decrypts a framed blob produced by Seal. The AAD must match the one
// used at Seal time; a mismatch surfaces as ErrDecryptionFailed so callers
// never learn whether the key or the binding was wrong.
func (c *FieldCipher) Open(blob, aad []byte) ([]byte, error) {
	nonce, ciphertext, err := cryptoDomain.DecodeBlob(blob)
	if err != nil {
		return nil, err
	}

	plaintext, err := c.aead.Decrypt(ciphertext, nonce, aad)
	if err != nil {
		return nil, cryptoDomain.ErrDecryptionFailed
	}
	return plaintext, nil
}
