package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	kvDomain "github.com/usphq/usp/internal/kv/domain"
	kvMocks "github.com/usphq/usp/internal/kv/http/mocks"
	kvUseCase "github.com/usphq/usp/internal/kv/usecase"
)

func TestKVRewrapRunner(t *testing.T) {
	ctx := context.Background()

	t.Run("guards the write with the secret's current version", func(t *testing.T) {
		// The newest version is destroyed, so Read falls back to version 3
		// while the secret sits at version 5. The rewrap must still pass CAS.
		mockKV := &kvMocks.MockKVUseCase{}
		mockKV.On("Read", mock.Anything, "app/prod/db", 0, false).Return(&kvUseCase.ReadResult{
			Secret:  &kvDomain.Secret{Path: "app/prod/db", CurrentVersion: 5},
			Version: &kvDomain.Version{Version: 3, Plaintext: []byte(`{"v":"x"}`)},
		}, nil)
		mockKV.On("Write", mock.Anything, mock.MatchedBy(func(input *kvUseCase.WriteInput) bool {
			return input.Path == "app/prod/db" && input.CAS != nil && *input.CAS == 5
		})).Return(&kvDomain.Secret{Path: "app/prod/db", CurrentVersion: 6}, nil)

		runner := kvRewrapRunner(mockKV)
		require.NoError(t, runner(ctx, "app/prod/db"))
		mockKV.AssertExpectations(t)
	})

	t.Run("read failure propagates without a write", func(t *testing.T) {
		mockKV := &kvMocks.MockKVUseCase{}
		mockKV.On("Read", mock.Anything, "app/gone", 0, false).Return(nil, assert.AnError)

		runner := kvRewrapRunner(mockKV)
		assert.ErrorIs(t, runner(ctx, "app/gone"), assert.AnError)
		mockKV.AssertNotCalled(t, "Write", mock.Anything, mock.Anything)
	})
}
