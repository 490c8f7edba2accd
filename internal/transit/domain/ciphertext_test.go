package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/usphq/usp/internal/errors"
)

func TestCiphertextWireFormat(t *testing.T) {
	t.Run("Success_RoundTrip", func(t *testing.T) {
		wire := FormatCiphertext(3, []byte{0x01, 0x02, 0x03})
		assert.Equal(t, "vault:v3:AQID", wire)

		version, blob, err := ParseCiphertext(wire)
		require.NoError(t, err)
		assert.Equal(t, 3, version)
		assert.Equal(t, []byte{0x01, 0x02, 0x03}, blob)
	})

	t.Run("Error_MissingPrefix", func(t *testing.T) {
		_, _, err := ParseCiphertext("v1:AQID")
		assert.ErrorIs(t, err, ErrInvalidCiphertext)
	})

	t.Run("Error_MissingVersionSeparator", func(t *testing.T) {
		_, _, err := ParseCiphertext("vault:v1")
		assert.ErrorIs(t, err, ErrInvalidCiphertext)
	})

	t.Run("Error_BadVersion", func(t *testing.T) {
		for _, wire := range []string{"vault:vx:AQID", "vault:v0:AQID", "vault:v-1:AQID"} {
			_, _, err := ParseCiphertext(wire)
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput, wire)
		}
	})

	t.Run("Error_BadBase64", func(t *testing.T) {
		_, _, err := ParseCiphertext("vault:v1:!!!")
		assert.ErrorIs(t, err, ErrInvalidCiphertext)
	})
}

func TestKeyType(t *testing.T) {
	t.Run("SymmetricAsymmetricSplit", func(t *testing.T) {
		assert.True(t, KeyTypeAES256GCM96.Symmetric())
		assert.True(t, KeyTypeChaCha20Poly1305.Symmetric())
		for _, kt := range []KeyType{KeyTypeEd25519, KeyTypeRSA2048, KeyTypeRSA4096, KeyTypeECDSAP256} {
			assert.True(t, kt.Asymmetric(), kt)
			assert.False(t, kt.Symmetric(), kt)
		}
	})

	t.Run("UnknownTypeInvalid", func(t *testing.T) {
		kt := KeyType("des-56")
		assert.False(t, kt.Valid())
		assert.False(t, kt.Asymmetric())
		_, ok := kt.AEADAlgorithm()
		assert.False(t, ok)
		_, ok = kt.SigningAlgorithm()
		assert.False(t, ok)
	})
}

func TestValidKeyName(t *testing.T) {
	assert.True(t, ValidKeyName("payment-key"))
	assert.True(t, ValidKeyName("app.prod_v2"))
	assert.False(t, ValidKeyName(""))
	assert.False(t, ValidKeyName("-leading-dash"))
	assert.False(t, ValidKeyName("has space"))
	assert.False(t, ValidKeyName("slash/name"))
}
