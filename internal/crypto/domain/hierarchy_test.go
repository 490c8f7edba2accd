package domain

import (
	"crypto/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usphq/usp/internal/errors"
)

func newTestRoot(t *testing.T) []byte {
	t.Helper()
	root := make([]byte, KeySize)
	_, err := rand.Read(root)
	require.NoError(t, err)
	return root
}

func TestNewKeyHierarchy(t *testing.T) {
	t.Run("valid root key", func(t *testing.T) {
		root := newTestRoot(t)
		h, err := NewKeyHierarchy(root)
		require.NoError(t, err)
		assert.NotNil(t, h)
		assert.False(t, h.Destroyed())
	})

	t.Run("copies the root key", func(t *testing.T) {
		root := newTestRoot(t)
		h, err := NewKeyHierarchy(root)
		require.NoError(t, err)

		before, err := h.Checksum()
		require.NoError(t, err)

		// Wiping the caller's buffer must not affect the hierarchy.
		Zero(root)

		after, err := h.Checksum()
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})

	t.Run("rejects wrong key sizes", func(t *testing.T) {
		for _, size := range []int{0, 16, 31, 33, 64} {
			_, err := NewKeyHierarchy(make([]byte, size))
			assert.ErrorIs(t, err, ErrInvalidKeySize, "size %d", size)
		}
	})
}

func TestKeyHierarchy_Subkey(t *testing.T) {
	t.Run("derivation is deterministic", func(t *testing.T) {
		root := newTestRoot(t)

		h1, err := NewKeyHierarchy(root)
		require.NoError(t, err)
		h2, err := NewKeyHierarchy(root)
		require.NoError(t, err)

		k1, err := h1.Subkey(PurposeKV)
		require.NoError(t, err)
		k2, err := h2.Subkey(PurposeKV)
		require.NoError(t, err)

		assert.Equal(t, k1, k2)
		assert.Len(t, k1, KeySize)
	})

	t.Run("purposes yield independent subkeys", func(t *testing.T) {
		h, err := NewKeyHierarchy(newTestRoot(t))
		require.NoError(t, err)

		purposes := []Purpose{PurposeKV, PurposeTransit, PurposeDatabase, PurposeAudit, PurposeAuditHMAC}
		seen := make(map[string]Purpose)
		for _, purpose := range purposes {
			key, err := h.Subkey(purpose)
			require.NoError(t, err)
			if prev, dup := seen[string(key)]; dup {
				t.Fatalf("subkey collision between %q and %q", prev, purpose)
			}
			seen[string(key)] = purpose
		}
	})

	t.Run("subkey differs from root", func(t *testing.T) {
		root := newTestRoot(t)
		h, err := NewKeyHierarchy(root)
		require.NoError(t, err)

		key, err := h.Subkey(PurposeTransit)
		require.NoError(t, err)
		assert.NotEqual(t, root, key)
	})

	t.Run("cached after first derivation", func(t *testing.T) {
		h, err := NewKeyHierarchy(newTestRoot(t))
		require.NoError(t, err)

		first, err := h.Subkey(PurposeKV)
		require.NoError(t, err)
		second, err := h.Subkey(PurposeKV)
		require.NoError(t, err)

		assert.Equal(t, first, second)
	})

	t.Run("concurrent derivation is race free", func(t *testing.T) {
		h, err := NewKeyHierarchy(newTestRoot(t))
		require.NoError(t, err)

		purposes := []Purpose{PurposeKV, PurposeTransit, PurposeDatabase, PurposeAudit, PurposeAuditHMAC}
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := h.Subkey(purposes[i%len(purposes)])
				assert.NoError(t, err)
			}(i)
		}
		wg.Wait()
	})
}

func TestKeyHierarchy_Checksum(t *testing.T) {
	root := newTestRoot(t)
	h, err := NewKeyHierarchy(root)
	require.NoError(t, err)

	sum, err := h.Checksum()
	require.NoError(t, err)
	assert.Len(t, sum, 32)

	// Same root gives the same checksum.
	other, err := NewKeyHierarchy(root)
	require.NoError(t, err)
	otherSum, err := other.Checksum()
	require.NoError(t, err)
	assert.Equal(t, sum, otherSum)

	// Different root gives a different checksum.
	different, err := NewKeyHierarchy(newTestRoot(t))
	require.NoError(t, err)
	differentSum, err := different.Checksum()
	require.NoError(t, err)
	assert.NotEqual(t, sum, differentSum)
}

func TestKeyHierarchy_Zeroize(t *testing.T) {
	t.Run("subkeys unavailable after zeroize", func(t *testing.T) {
		h, err := NewKeyHierarchy(newTestRoot(t))
		require.NoError(t, err)

		_, err = h.Subkey(PurposeKV)
		require.NoError(t, err)

		h.Zeroize()
		assert.True(t, h.Destroyed())

		_, err = h.Subkey(PurposeKV)
		assert.ErrorIs(t, err, ErrHierarchyDestroyed)
		assert.True(t, errors.Is(err, errors.ErrSealed))

		_, err = h.Checksum()
		assert.ErrorIs(t, err, ErrHierarchyDestroyed)
	})

	t.Run("wipes previously returned subkeys", func(t *testing.T) {
		h, err := NewKeyHierarchy(newTestRoot(t))
		require.NoError(t, err)

		key, err := h.Subkey(PurposeKV)
		require.NoError(t, err)

		h.Zeroize()

		zeroed := make([]byte, KeySize)
		assert.Equal(t, zeroed, key)
	})

	t.Run("idempotent", func(t *testing.T) {
		h, err := NewKeyHierarchy(newTestRoot(t))
		require.NoError(t, err)

		h.Zeroize()
		assert.NotPanics(t, func() { h.Zeroize() })
	})
}
