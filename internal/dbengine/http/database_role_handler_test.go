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

	dbengineDomain "github.com/usphq/usp/internal/dbengine/domain"
	"github.com/usphq/usp/internal/dbengine/http/dto"
	"github.com/usphq/usp/internal/dbengine/http/mocks"
	dbengineUseCase "github.com/usphq/usp/internal/dbengine/usecase"
)

// setupTestRoleHandler creates a test handler with mocked dependencies.
func setupTestRoleHandler(t *testing.T) (*DatabaseRoleHandler, *mocks.MockDBEngineUseCase) {
	t.Helper()

	gin.SetMode(gin.TestMode)

	mockUseCase := &mocks.MockDBEngineUseCase{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return NewDatabaseRoleHandler(mockUseCase, logger), mockUseCase
}

func testRole(name string) *dbengineDomain.Role {
	now := time.Now().UTC()
	return &dbengineDomain.Role{
		ID:                 uuid.Must(uuid.NewV7()),
		ConfigID:           uuid.Must(uuid.NewV7()),
		Name:               name,
		CreationStatements: []string{`CREATE ROLE "{{name}}" WITH LOGIN PASSWORD '{{password}}'`},
		DefaultTTL:         time.Hour,
		MaxTTL:             4 * time.Hour,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

func TestDatabaseRoleHandler_CreateRoleHandler(t *testing.T) {
	t.Run("Success_CreateRole", func(t *testing.T) {
		handler, mockUseCase := setupTestRoleHandler(t)

		mockUseCase.On("CreateRole", mock.Anything, "payments-db", &dbengineUseCase.CreateRoleInput{
			Name:               "readonly",
			CreationStatements: []string{`CREATE ROLE "{{name}}" WITH LOGIN PASSWORD '{{password}}'`},
			DefaultTTL:         time.Hour,
			MaxTTL:             4 * time.Hour,
		}).Return(testRole("readonly"), nil).Once()

		c, w := createTestContext(http.MethodPost, "/v1/database/roles/payments-db/readonly", dto.CreateRoleRequest{
			CreationStatements: []string{`CREATE ROLE "{{name}}" WITH LOGIN PASSWORD '{{password}}'`},
			DefaultTTL:         3600,
			MaxTTL:             14400,
		})
		setNameRoleParams(c, "payments-db", "readonly")

		handler.CreateRoleHandler(c)

		assert.Equal(t, http.StatusCreated, w.Code)

		var response dto.RoleResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "readonly", response.Name)
		assert.Equal(t, int64(3600), response.DefaultTTL)
		assert.Equal(t, int64(14400), response.MaxTTL)
		mockUseCase.AssertExpectations(t)
	})

	t.Run("Error_MissingCreationStatements", func(t *testing.T) {
		handler, mockUseCase := setupTestRoleHandler(t)

		c, w := createTestContext(http.MethodPost, "/v1/database/roles/payments-db/readonly", dto.CreateRoleRequest{
			DefaultTTL: 3600,
		})
		setNameRoleParams(c, "payments-db", "readonly")

		handler.CreateRoleHandler(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		mockUseCase.AssertNotCalled(t, "CreateRole")
	})

	t.Run("Error_TTLOutOfRange", func(t *testing.T) {
		handler, mockUseCase := setupTestRoleHandler(t)

		mockUseCase.On("CreateRole", mock.Anything, "payments-db", mock.Anything).
			Return(nil, dbengineDomain.ErrTTLOutOfRange).Once()

		c, w := createTestContext(http.MethodPost, "/v1/database/roles/payments-db/readonly", dto.CreateRoleRequest{
			CreationStatements: []string{"CREATE ROLE x"},
			DefaultTTL:         30,
		})
		setNameRoleParams(c, "payments-db", "readonly")

		handler.CreateRoleHandler(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		mockUseCase.AssertExpectations(t)
	})

	t.Run("Error_DuplicateRole", func(t *testing.T) {
		handler, mockUseCase := setupTestRoleHandler(t)

		mockUseCase.On("CreateRole", mock.Anything, "payments-db", mock.Anything).
			Return(nil, dbengineDomain.ErrRoleExists).Once()

		c, w := createTestContext(http.MethodPost, "/v1/database/roles/payments-db/readonly", dto.CreateRoleRequest{
			CreationStatements: []string{"CREATE ROLE x"},
		})
		setNameRoleParams(c, "payments-db", "readonly")

		handler.CreateRoleHandler(c)

		assert.Equal(t, http.StatusConflict, w.Code)
		mockUseCase.AssertExpectations(t)
	})
}

func TestDatabaseRoleHandler_GetRoleHandler(t *testing.T) {
	t.Run("Success_GetRole", func(t *testing.T) {
		handler, mockUseCase := setupTestRoleHandler(t)

		mockUseCase.On("GetRole", mock.Anything, "payments-db", "readonly").
			Return(testRole("readonly"), nil).Once()

		c, w := createTestContext(http.MethodGet, "/v1/database/roles/payments-db/readonly", nil)
		setNameRoleParams(c, "payments-db", "readonly")

		handler.GetRoleHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)

		var response dto.RoleResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "readonly", response.Name)
		mockUseCase.AssertExpectations(t)
	})

	t.Run("Error_NotFound", func(t *testing.T) {
		handler, mockUseCase := setupTestRoleHandler(t)

		mockUseCase.On("GetRole", mock.Anything, "payments-db", "missing").
			Return(nil, dbengineDomain.ErrRoleNotFound).Once()

		c, w := createTestContext(http.MethodGet, "/v1/database/roles/payments-db/missing", nil)
		setNameRoleParams(c, "payments-db", "missing")

		handler.GetRoleHandler(c)

		assert.Equal(t, http.StatusNotFound, w.Code)
		mockUseCase.AssertExpectations(t)
	})
}

func TestDatabaseRoleHandler_ListRolesHandler(t *testing.T) {
	t.Run("Success_ListRoles", func(t *testing.T) {
		handler, mockUseCase := setupTestRoleHandler(t)

		mockUseCase.On("ListRoles", mock.Anything, "payments-db").
			Return([]*dbengineDomain.Role{testRole("readonly"), testRole("writer")}, nil).Once()

		c, w := createTestContext(http.MethodGet, "/v1/database/roles/payments-db", nil)
		setNameParam(c, "payments-db")

		handler.ListRolesHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)

		var response dto.ListRolesResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Len(t, response.Roles, 2)
		mockUseCase.AssertExpectations(t)
	})

	t.Run("Error_UnknownConfig", func(t *testing.T) {
		handler, mockUseCase := setupTestRoleHandler(t)

		mockUseCase.On("ListRoles", mock.Anything, "missing").
			Return(nil, dbengineDomain.ErrConfigNotFound).Once()

		c, w := createTestContext(http.MethodGet, "/v1/database/roles/missing", nil)
		setNameParam(c, "missing")

		handler.ListRolesHandler(c)

		assert.Equal(t, http.StatusNotFound, w.Code)
		mockUseCase.AssertExpectations(t)
	})
}
