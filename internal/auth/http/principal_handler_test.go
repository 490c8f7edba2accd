package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	authDomain "github.com/usphq/usp/internal/auth/domain"
	"github.com/usphq/usp/internal/auth/http/dto"
	"github.com/usphq/usp/internal/auth/http/mocks"
)

// setupTestPrincipalHandler creates a test handler with mocked dependencies.
func setupTestPrincipalHandler(t *testing.T) (*PrincipalHandler, *mocks.MockPrincipalUseCase) {
	t.Helper()

	gin.SetMode(gin.TestMode)

	mockUseCase := &mocks.MockPrincipalUseCase{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return NewPrincipalHandler(mockUseCase, logger), mockUseCase
}

func testPrincipal(name string) *authDomain.Principal {
	now := time.Now().UTC()
	return &authDomain.Principal{
		ID:         uuid.Must(uuid.NewV7()),
		Name:       name,
		SecretHash: "$argon2id$v=19$m=65536,t=1,p=4$secret-hash",
		Roles:      []string{"kv-reader"},
		Attributes: map[string]string{"team": "payments"},
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func TestPrincipalHandler_CreateHandler(t *testing.T) {
	t.Run("Success_Create", func(t *testing.T) {
		handler, mockUseCase := setupTestPrincipalHandler(t)

		output := &authDomain.CreatePrincipalOutput{
			ID:          uuid.Must(uuid.NewV7()),
			PlainSecret: "generated-secret",
		}
		mockUseCase.On("Create", mock.Anything, &authDomain.CreatePrincipalInput{
			Name:       "app-runner",
			Roles:      []string{"kv-reader"},
			Attributes: map[string]string{"team": "payments"},
			Active:     true,
		}).Return(output, nil).Once()

		c, w := createTestContext(http.MethodPost, "/v1/auth/principals", dto.CreatePrincipalRequest{
			Name:       "app-runner",
			Roles:      []string{"kv-reader"},
			Attributes: map[string]string{"team": "payments"},
		})

		handler.CreateHandler(c)

		require.Equal(t, http.StatusCreated, w.Code)

		var response dto.CreatePrincipalResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, output.ID, response.ID)
		assert.Equal(t, "app-runner", response.Name)
		assert.Equal(t, "generated-secret", response.Secret)
		mockUseCase.AssertExpectations(t)
	})

	t.Run("Success_ExplicitInactive", func(t *testing.T) {
		handler, mockUseCase := setupTestPrincipalHandler(t)

		inactive := false
		output := &authDomain.CreatePrincipalOutput{ID: uuid.Must(uuid.NewV7()), PlainSecret: "s"}
		mockUseCase.On("Create", mock.Anything, mock.MatchedBy(func(input *authDomain.CreatePrincipalInput) bool {
			return !input.Active
		})).Return(output, nil).Once()

		c, w := createTestContext(http.MethodPost, "/v1/auth/principals", dto.CreatePrincipalRequest{
			Name:   "app-runner",
			Active: &inactive,
		})

		handler.CreateHandler(c)

		assert.Equal(t, http.StatusCreated, w.Code)
		mockUseCase.AssertExpectations(t)
	})

	t.Run("Error_DuplicateName", func(t *testing.T) {
		handler, mockUseCase := setupTestPrincipalHandler(t)

		mockUseCase.On("Create", mock.Anything, mock.Anything).
			Return(nil, authDomain.ErrPrincipalExists).Once()

		c, w := createTestContext(http.MethodPost, "/v1/auth/principals", dto.CreatePrincipalRequest{
			Name: "app-runner",
		})

		handler.CreateHandler(c)

		assert.Equal(t, http.StatusConflict, w.Code)
		mockUseCase.AssertExpectations(t)
	})

	t.Run("Error_MissingName", func(t *testing.T) {
		handler, mockUseCase := setupTestPrincipalHandler(t)

		c, w := createTestContext(http.MethodPost, "/v1/auth/principals", dto.CreatePrincipalRequest{
			Roles: []string{"kv-reader"},
		})

		handler.CreateHandler(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		mockUseCase.AssertNotCalled(t, "Create")
	})
}

func TestPrincipalHandler_GetHandler(t *testing.T) {
	t.Run("Success_Get", func(t *testing.T) {
		handler, mockUseCase := setupTestPrincipalHandler(t)

		principal := testPrincipal("app-runner")
		mockUseCase.On("Get", mock.Anything, principal.ID).Return(principal, nil).Once()

		c, w := createTestContext(http.MethodGet, "/v1/auth/principals/"+principal.ID.String(), nil)
		setIDParam(c, principal.ID.String())

		handler.GetHandler(c)

		require.Equal(t, http.StatusOK, w.Code)

		var response dto.PrincipalResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, principal.ID, response.ID)
		assert.Equal(t, "app-runner", response.Name)
		assert.Equal(t, []string{"kv-reader"}, response.Roles)
		assert.NotContains(t, w.Body.String(), principal.SecretHash)
		mockUseCase.AssertExpectations(t)
	})

	t.Run("Error_InvalidID", func(t *testing.T) {
		handler, mockUseCase := setupTestPrincipalHandler(t)

		c, w := createTestContext(http.MethodGet, "/v1/auth/principals/not-a-uuid", nil)
		setIDParam(c, "not-a-uuid")

		handler.GetHandler(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		mockUseCase.AssertNotCalled(t, "Get")
	})

	t.Run("Error_NotFound", func(t *testing.T) {
		handler, mockUseCase := setupTestPrincipalHandler(t)

		id := uuid.Must(uuid.NewV7())
		mockUseCase.On("Get", mock.Anything, id).
			Return(nil, authDomain.ErrPrincipalNotFound).Once()

		c, w := createTestContext(http.MethodGet, "/v1/auth/principals/"+id.String(), nil)
		setIDParam(c, id.String())

		handler.GetHandler(c)

		assert.Equal(t, http.StatusNotFound, w.Code)
		mockUseCase.AssertExpectations(t)
	})
}

func TestPrincipalHandler_ListHandler(t *testing.T) {
	t.Run("Success_List", func(t *testing.T) {
		handler, mockUseCase := setupTestPrincipalHandler(t)

		principals := []*authDomain.Principal{
			testPrincipal("app-runner"),
			testPrincipal("ops-admin"),
		}
		mockUseCase.On("List", mock.Anything).Return(principals, nil).Once()

		c, w := createTestContext(http.MethodGet, "/v1/auth/principals", nil)

		handler.ListHandler(c)

		require.Equal(t, http.StatusOK, w.Code)

		var response dto.ListPrincipalsResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		require.Len(t, response.Principals, 2)
		assert.Equal(t, "app-runner", response.Principals[0].Name)
		assert.Equal(t, "ops-admin", response.Principals[1].Name)
		mockUseCase.AssertExpectations(t)
	})

	t.Run("Success_Empty", func(t *testing.T) {
		handler, mockUseCase := setupTestPrincipalHandler(t)

		mockUseCase.On("List", mock.Anything).Return([]*authDomain.Principal{}, nil).Once()

		c, w := createTestContext(http.MethodGet, "/v1/auth/principals", nil)

		handler.ListHandler(c)

		require.Equal(t, http.StatusOK, w.Code)

		var response dto.ListPrincipalsResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Empty(t, response.Principals)
		mockUseCase.AssertExpectations(t)
	})
}

func TestPrincipalHandler_UpdateHandler(t *testing.T) {
	t.Run("Success_Update", func(t *testing.T) {
		handler, mockUseCase := setupTestPrincipalHandler(t)

		principal := testPrincipal("app-runner")
		principal.Roles = []string{"kv-reader", "transit-user"}

		mockUseCase.On("Update", mock.Anything, principal.ID, &authDomain.UpdatePrincipalInput{
			Roles:      []string{"kv-reader", "transit-user"},
			Attributes: map[string]string{"team": "payments"},
			Active:     true,
		}).Return(nil).Once()
		mockUseCase.On("Get", mock.Anything, principal.ID).Return(principal, nil).Once()

		c, w := createTestContext(http.MethodPut, "/v1/auth/principals/"+principal.ID.String(), dto.UpdatePrincipalRequest{
			Roles:      []string{"kv-reader", "transit-user"},
			Attributes: map[string]string{"team": "payments"},
			Active:     true,
		})
		setIDParam(c, principal.ID.String())

		handler.UpdateHandler(c)

		require.Equal(t, http.StatusOK, w.Code)

		var response dto.PrincipalResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, []string{"kv-reader", "transit-user"}, response.Roles)
		mockUseCase.AssertExpectations(t)
	})

	t.Run("Error_NotFound", func(t *testing.T) {
		handler, mockUseCase := setupTestPrincipalHandler(t)

		id := uuid.Must(uuid.NewV7())
		mockUseCase.On("Update", mock.Anything, id, mock.Anything).
			Return(authDomain.ErrPrincipalNotFound).Once()

		c, w := createTestContext(http.MethodPut, "/v1/auth/principals/"+id.String(), dto.UpdatePrincipalRequest{
			Active: true,
		})
		setIDParam(c, id.String())

		handler.UpdateHandler(c)

		assert.Equal(t, http.StatusNotFound, w.Code)
		mockUseCase.AssertExpectations(t)
	})
}

func TestPrincipalHandler_DeleteHandler(t *testing.T) {
	t.Run("Success_Delete", func(t *testing.T) {
		handler, mockUseCase := setupTestPrincipalHandler(t)

		id := uuid.Must(uuid.NewV7())
		mockUseCase.On("Delete", mock.Anything, id).Return(nil).Once()

		c, w := createTestContext(http.MethodDelete, "/v1/auth/principals/"+id.String(), nil)
		setIDParam(c, id.String())

		handler.DeleteHandler(c)

		assert.Equal(t, http.StatusNoContent, w.Code)
		mockUseCase.AssertExpectations(t)
	})

	t.Run("Error_NotFound", func(t *testing.T) {
		handler, mockUseCase := setupTestPrincipalHandler(t)

		id := uuid.Must(uuid.NewV7())
		mockUseCase.On("Delete", mock.Anything, id).
			Return(authDomain.ErrPrincipalNotFound).Once()

		c, w := createTestContext(http.MethodDelete, "/v1/auth/principals/"+id.String(), nil)
		setIDParam(c, id.String())

		handler.DeleteHandler(c)

		assert.Equal(t, http.StatusNotFound, w.Code)
		mockUseCase.AssertExpectations(t)
	})
}
