package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecretService(t *testing.T) {
	svc := NewSecretService()

	t.Run("Success_GenerateSecret", func(t *testing.T) {
		plain, hashed, err := svc.GenerateSecret()

		require.NoError(t, err)
		assert.NotEmpty(t, plain)
		assert.NotEmpty(t, hashed)
		assert.NotEqual(t, plain, hashed)
		assert.True(t, svc.CompareSecret(plain, hashed))
	})

	t.Run("Success_DistinctSecrets", func(t *testing.T) {
		first, _, err := svc.GenerateSecret()
		require.NoError(t, err)
		second, _, err := svc.GenerateSecret()
		require.NoError(t, err)

		assert.NotEqual(t, first, second)
	})

	t.Run("Success_CompareRejectsWrongSecret", func(t *testing.T) {
		_, hashed, err := svc.GenerateSecret()
		require.NoError(t, err)

		assert.False(t, svc.CompareSecret("wrong-secret", hashed))
	})

	t.Run("Success_CompareRejectsMalformedHash", func(t *testing.T) {
		assert.False(t, svc.CompareSecret("secret", "not-an-argon2id-hash"))
	})

	t.Run("Success_HashSecretVerifies", func(t *testing.T) {
		hashed, err := svc.HashSecret("operator-bootstrap-secret")

		require.NoError(t, err)
		assert.True(t, svc.CompareSecret("operator-bootstrap-secret", hashed))
	})
}
