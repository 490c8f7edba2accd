package domain

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeBlob(t *testing.T) {
	t.Run("frames nonce and ciphertext", func(t *testing.T) {
		nonce := bytes.Repeat([]byte{0xAA}, NonceSize)
		ciphertext := bytes.Repeat([]byte{0xBB}, 40)

		blob, err := EncodeBlob(nonce, ciphertext)
		require.NoError(t, err)

		assert.Equal(t, BlobFormatV1, blob[0])
		assert.Equal(t, 1+NonceSize+len(ciphertext), len(blob))
		assert.Equal(t, nonce, blob[1:1+NonceSize])
		assert.Equal(t, ciphertext, blob[1+NonceSize:])
	})

	t.Run("rejects wrong nonce size", func(t *testing.T) {
		_, err := EncodeBlob(make([]byte, NonceSize-1), make([]byte, 32))
		assert.ErrorIs(t, err, ErrMalformedBlob)
	})
}

func TestDecodeBlob(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		nonce := bytes.Repeat([]byte{0x01}, NonceSize)
		ciphertext := bytes.Repeat([]byte{0x02}, TagSize+10)

		blob, err := EncodeBlob(nonce, ciphertext)
		require.NoError(t, err)

		gotNonce, gotCiphertext, err := DecodeBlob(blob)
		require.NoError(t, err)
		assert.Equal(t, nonce, gotNonce)
		assert.Equal(t, ciphertext, gotCiphertext)
	})

	t.Run("rejects short blob", func(t *testing.T) {
		_, _, err := DecodeBlob(make([]byte, NonceSize+TagSize))
		assert.ErrorIs(t, err, ErrMalformedBlob)
	})

	t.Run("rejects unknown format byte", func(t *testing.T) {
		nonce := make([]byte, NonceSize)
		ciphertext := make([]byte, TagSize)
		blob, err := EncodeBlob(nonce, ciphertext)
		require.NoError(t, err)

		blob[0] = 0x7F
		_, _, err = DecodeBlob(blob)
		assert.ErrorIs(t, err, ErrUnsupportedBlobFormat)
	})
}
