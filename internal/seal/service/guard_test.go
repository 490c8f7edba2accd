package service

import (
	"context"
	"crypto/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/usphq/usp/internal/crypto/domain"
	apperrors "github.com/usphq/usp/internal/errors"
)

func newHierarchy(t *testing.T) *cryptoDomain.KeyHierarchy {
	t.Helper()
	root := make([]byte, cryptoDomain.KeySize)
	_, err := rand.Read(root)
	require.NoError(t, err)
	hierarchy, err := cryptoDomain.NewKeyHierarchy(root)
	require.NoError(t, err)
	return hierarchy
}

func TestGuard_Subkey(t *testing.T) {
	ctx := context.Background()

	t.Run("Error_SealedWhenEmpty", func(t *testing.T) {
		guard := NewGuard()

		assert.False(t, guard.Unsealed())

		_, err := guard.Subkey(ctx, cryptoDomain.PurposeKV)
		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrSealed)
	})

	t.Run("Success_AfterInstall", func(t *testing.T) {
		guard := NewGuard()
		guard.Install(newHierarchy(t))

		assert.True(t, guard.Unsealed())

		subkey, err := guard.Subkey(ctx, cryptoDomain.PurposeKV)
		require.NoError(t, err)
		assert.Len(t, subkey, cryptoDomain.KeySize)

		// Derivation is deterministic per purpose and distinct across purposes
		again, err := guard.Subkey(ctx, cryptoDomain.PurposeKV)
		require.NoError(t, err)
		assert.Equal(t, subkey, again)

		other, err := guard.Subkey(ctx, cryptoDomain.PurposeTransit)
		require.NoError(t, err)
		assert.NotEqual(t, subkey, other)
	})

	t.Run("Success_ContextOverrideWhileSealed", func(t *testing.T) {
		guard := NewGuard()
		hierarchy := newHierarchy(t)

		keyCtx := ContextWithKeys(ctx, hierarchy)
		subkey, err := guard.Subkey(keyCtx, cryptoDomain.PurposeAudit)
		require.NoError(t, err)

		expected, err := hierarchy.Subkey(cryptoDomain.PurposeAudit)
		require.NoError(t, err)
		assert.Equal(t, expected, subkey)

		// The override does not publish anything
		assert.False(t, guard.Unsealed())
	})

	t.Run("Success_ContextOverridePreferredOverInstalled", func(t *testing.T) {
		guard := NewGuard()
		installed := newHierarchy(t)
		override := newHierarchy(t)
		guard.Install(installed)

		keyCtx := ContextWithKeys(ctx, override)
		subkey, err := guard.Subkey(keyCtx, cryptoDomain.PurposeKV)
		require.NoError(t, err)

		expected, err := override.Subkey(cryptoDomain.PurposeKV)
		require.NoError(t, err)
		assert.Equal(t, expected, subkey)
	})
}

func TestGuard_Install(t *testing.T) {
	t.Run("Success_ReplacesAndZeroizesOld", func(t *testing.T) {
		guard := NewGuard()
		old := newHierarchy(t)
		guard.Install(old)
		guard.Install(newHierarchy(t))

		assert.True(t, old.Destroyed())
		assert.True(t, guard.Unsealed())
	})
}

func TestGuard_Drain(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_SealsAndZeroizes", func(t *testing.T) {
		guard := NewGuard()
		hierarchy := newHierarchy(t)
		guard.Install(hierarchy)

		guard.Drain(ctx, time.Second)

		assert.False(t, guard.Unsealed())
		assert.True(t, hierarchy.Destroyed())

		_, err := guard.Subkey(ctx, cryptoDomain.PurposeKV)
		assert.ErrorIs(t, err, apperrors.ErrSealed)
	})

	t.Run("Success_IdempotentWhenSealed", func(t *testing.T) {
		guard := NewGuard()
		guard.Drain(ctx, time.Second)
		guard.Drain(ctx, time.Second)

		assert.False(t, guard.Unsealed())
	})

	t.Run("Success_ConcurrentReadersDuringDrain", func(t *testing.T) {
		guard := NewGuard()
		guard.Install(newHierarchy(t))

		var wg sync.WaitGroup
		start := make(chan struct{})
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				for j := 0; j < 50; j++ {
					// Either a valid subkey or a sealed error, never a panic
					subkey, err := guard.Subkey(ctx, cryptoDomain.PurposeTransit)
					if err == nil {
						assert.Len(t, subkey, cryptoDomain.KeySize)
					} else {
						assert.ErrorIs(t, err, apperrors.ErrSealed)
					}
				}
			}()
		}

		close(start)
		guard.Drain(ctx, time.Second)
		wg.Wait()

		_, err := guard.Subkey(ctx, cryptoDomain.PurposeTransit)
		assert.ErrorIs(t, err, apperrors.ErrSealed)
	})
}
