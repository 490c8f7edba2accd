package commands

import (
	"bytes"
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	authDomain "github.com/usphq/usp/internal/auth/domain"
	authMocks "github.com/usphq/usp/internal/auth/http/mocks"
)

func TestRunCreatePrincipal(t *testing.T) {
	ctx := context.Background()
	logger := testLogger()

	t.Run("success", func(t *testing.T) {
		id := uuid.Must(uuid.NewV7())
		mockUseCase := &authMocks.MockPrincipalUseCase{}
		mockUseCase.On("Create", ctx, mock.MatchedBy(func(input *authDomain.CreatePrincipalInput) bool {
			return input.Name == "admin" &&
				len(input.Roles) == 1 && input.Roles[0] == "admin" &&
				input.Active
		})).Return(&authDomain.CreatePrincipalOutput{
			ID:          id,
			PlainSecret: "generated-secret",
		}, nil)

		var out bytes.Buffer
		err := RunCreatePrincipal(ctx, mockUseCase, logger, &out, "admin", []string{"admin"}, nil)
		require.NoError(t, err)
		require.Contains(t, out.String(), id.String())
		require.Contains(t, out.String(), "generated-secret")
		mockUseCase.AssertExpectations(t)
	})

	t.Run("missing-name", func(t *testing.T) {
		mockUseCase := &authMocks.MockPrincipalUseCase{}

		var out bytes.Buffer
		err := RunCreatePrincipal(ctx, mockUseCase, logger, &out, "  ", []string{"admin"}, nil)
		require.ErrorIs(t, err, ErrUsage)
		mockUseCase.AssertNotCalled(t, "Create")
	})

	t.Run("missing-roles", func(t *testing.T) {
		mockUseCase := &authMocks.MockPrincipalUseCase{}

		var out bytes.Buffer
		err := RunCreatePrincipal(ctx, mockUseCase, logger, &out, "admin", nil, nil)
		require.ErrorIs(t, err, ErrUsage)
		mockUseCase.AssertNotCalled(t, "Create")
	})
}

func TestParseAttributes(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		attributes, err := ParseAttributes([]string{"team=payments", "env=prod"})
		require.NoError(t, err)
		require.Equal(t, map[string]string{"team": "payments", "env": "prod"}, attributes)
	})

	t.Run("empty", func(t *testing.T) {
		attributes, err := ParseAttributes(nil)
		require.NoError(t, err)
		require.Nil(t, attributes)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := ParseAttributes([]string{"no-separator"})
		require.ErrorIs(t, err, ErrUsage)
	})

	t.Run("empty-key", func(t *testing.T) {
		_, err := ParseAttributes([]string{"=value"})
		require.ErrorIs(t, err, ErrUsage)
	})
}
