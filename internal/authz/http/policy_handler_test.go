package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	authzDomain "github.com/usphq/usp/internal/authz/domain"
	"github.com/usphq/usp/internal/authz/http/dto"
	"github.com/usphq/usp/internal/authz/http/mocks"
	authzUseCase "github.com/usphq/usp/internal/authz/usecase"
	apperrors "github.com/usphq/usp/internal/errors"
)

// setupTestPolicyHandler creates a test handler with mocked dependencies.
func setupTestPolicyHandler(t *testing.T) (*PolicyHandler, *mocks.MockAuthzUseCase) {
	t.Helper()

	gin.SetMode(gin.TestMode)

	mockUseCase := &mocks.MockAuthzUseCase{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return NewPolicyHandler(mockUseCase, logger), mockUseCase
}

func testPolicy(id string) *authzDomain.Policy {
	now := time.Now().UTC()
	return &authzDomain.Policy{
		ID:        id,
		Type:      authzDomain.PolicyTypeRBAC,
		Priority:  3,
		Active:    true,
		Body:      []byte(`{"roles": {"reader": ["kv:read"]}}`),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestPolicyHandler_CreatePolicyHandler(t *testing.T) {
	t.Run("Success_CreatePolicy", func(t *testing.T) {
		handler, mockUseCase := setupTestPolicyHandler(t)

		mockUseCase.On("CreatePolicy", mock.Anything, &authzUseCase.CreatePolicyInput{
			ID:       "readers",
			Type:     authzDomain.PolicyTypeRBAC,
			Priority: 3,
			Active:   true,
			Body:     []byte(`{"roles":{"reader":["kv:read"]}}`),
		}).Return(testPolicy("readers"), nil).Once()

		c, w := createTestContext(http.MethodPost, "/v1/policies/readers", dto.CreatePolicyRequest{
			Type:     "rbac",
			Priority: 3,
			Body:     json.RawMessage(`{"roles":{"reader":["kv:read"]}}`),
		})
		setIDParam(c, "readers")

		handler.CreatePolicyHandler(c)

		assert.Equal(t, http.StatusCreated, w.Code)

		var response dto.PolicyResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "readers", response.ID)
		assert.Equal(t, "rbac", response.Type)
		assert.True(t, response.Active)
		mockUseCase.AssertExpectations(t)
	})

	t.Run("Success_ActiveFalsePreserved", func(t *testing.T) {
		handler, mockUseCase := setupTestPolicyHandler(t)

		active := false
		mockUseCase.On("CreatePolicy", mock.Anything, mock.MatchedBy(func(input *authzUseCase.CreatePolicyInput) bool {
			return input.ID == "readers" && !input.Active
		})).Return(testPolicy("readers"), nil).Once()

		c, w := createTestContext(http.MethodPost, "/v1/policies/readers", dto.CreatePolicyRequest{
			Type:   "rbac",
			Active: &active,
			Body:   json.RawMessage(`{"roles":{"reader":["kv:read"]}}`),
		})
		setIDParam(c, "readers")

		handler.CreatePolicyHandler(c)

		assert.Equal(t, http.StatusCreated, w.Code)
		mockUseCase.AssertExpectations(t)
	})

	t.Run("Error_UnknownPolicyType", func(t *testing.T) {
		handler, mockUseCase := setupTestPolicyHandler(t)

		c, w := createTestContext(http.MethodPost, "/v1/policies/readers", dto.CreatePolicyRequest{
			Type: "xacml",
			Body: json.RawMessage(`{}`),
		})
		setIDParam(c, "readers")

		handler.CreatePolicyHandler(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		mockUseCase.AssertNotCalled(t, "CreatePolicy")
	})

	t.Run("Error_MissingBody", func(t *testing.T) {
		handler, mockUseCase := setupTestPolicyHandler(t)

		c, w := createTestContext(http.MethodPost, "/v1/policies/readers", dto.CreatePolicyRequest{
			Type: "rbac",
		})
		setIDParam(c, "readers")

		handler.CreatePolicyHandler(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		mockUseCase.AssertNotCalled(t, "CreatePolicy")
	})

	t.Run("Error_DuplicateID", func(t *testing.T) {
		handler, mockUseCase := setupTestPolicyHandler(t)

		mockUseCase.On("CreatePolicy", mock.Anything, mock.Anything).
			Return(nil, authzDomain.ErrPolicyExists).Once()

		c, w := createTestContext(http.MethodPost, "/v1/policies/readers", dto.CreatePolicyRequest{
			Type: "rbac",
			Body: json.RawMessage(`{"roles":{"reader":["kv:read"]}}`),
		})
		setIDParam(c, "readers")

		handler.CreatePolicyHandler(c)

		assert.Equal(t, http.StatusConflict, w.Code)
		mockUseCase.AssertExpectations(t)
	})
}

func TestPolicyHandler_GetPolicyHandler(t *testing.T) {
	t.Run("Success_GetPolicy", func(t *testing.T) {
		handler, mockUseCase := setupTestPolicyHandler(t)

		mockUseCase.On("GetPolicy", mock.Anything, "readers").Return(testPolicy("readers"), nil).Once()

		c, w := createTestContext(http.MethodGet, "/v1/policies/readers", nil)
		setIDParam(c, "readers")

		handler.GetPolicyHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)

		var response dto.PolicyResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "readers", response.ID)
		assert.JSONEq(t, `{"roles": {"reader": ["kv:read"]}}`, string(response.Body))
		mockUseCase.AssertExpectations(t)
	})

	t.Run("Error_UnknownID", func(t *testing.T) {
		handler, mockUseCase := setupTestPolicyHandler(t)

		mockUseCase.On("GetPolicy", mock.Anything, "missing").
			Return(nil, authzDomain.ErrPolicyNotFound).Once()

		c, w := createTestContext(http.MethodGet, "/v1/policies/missing", nil)
		setIDParam(c, "missing")

		handler.GetPolicyHandler(c)

		assert.Equal(t, http.StatusNotFound, w.Code)
		mockUseCase.AssertExpectations(t)
	})
}

func TestPolicyHandler_ListPoliciesHandler(t *testing.T) {
	t.Run("Success_ListPolicies", func(t *testing.T) {
		handler, mockUseCase := setupTestPolicyHandler(t)

		mockUseCase.On("ListPolicies", mock.Anything).
			Return([]*authzDomain.Policy{testPolicy("admins"), testPolicy("readers")}, nil).Once()

		c, w := createTestContext(http.MethodGet, "/v1/policies", nil)

		handler.ListPoliciesHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)

		var response dto.ListPoliciesResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Len(t, response.Policies, 2)
		assert.Equal(t, "admins", response.Policies[0].ID)
		mockUseCase.AssertExpectations(t)
	})
}

func TestPolicyHandler_UpdatePolicyHandler(t *testing.T) {
	t.Run("Success_UpdatePriority", func(t *testing.T) {
		handler, mockUseCase := setupTestPolicyHandler(t)

		priority := 9
		updated := testPolicy("readers")
		updated.Priority = 9
		mockUseCase.On("UpdatePolicy", mock.Anything, "readers", &authzUseCase.PolicyUpdate{
			Priority: &priority,
		}).Return(updated, nil).Once()

		c, w := createTestContext(http.MethodPatch, "/v1/policies/readers", dto.UpdatePolicyRequest{
			Priority: &priority,
		})
		setIDParam(c, "readers")

		handler.UpdatePolicyHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)

		var response dto.PolicyResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, 9, response.Priority)
		mockUseCase.AssertExpectations(t)
	})

	t.Run("Error_EmptyUpdate", func(t *testing.T) {
		handler, mockUseCase := setupTestPolicyHandler(t)

		c, w := createTestContext(http.MethodPatch, "/v1/policies/readers", dto.UpdatePolicyRequest{})
		setIDParam(c, "readers")

		handler.UpdatePolicyHandler(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		mockUseCase.AssertNotCalled(t, "UpdatePolicy")
	})

	t.Run("Error_BodyRejectedForStoredType", func(t *testing.T) {
		handler, mockUseCase := setupTestPolicyHandler(t)

		mockUseCase.On("UpdatePolicy", mock.Anything, "readers", mock.Anything).
			Return(nil, authzDomain.ErrPolicyBodyInvalid).Once()

		c, w := createTestContext(http.MethodPatch, "/v1/policies/readers", dto.UpdatePolicyRequest{
			Body: json.RawMessage(`{"rules": []}`),
		})
		setIDParam(c, "readers")

		handler.UpdatePolicyHandler(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		mockUseCase.AssertExpectations(t)
	})
}

func TestPolicyHandler_DeletePolicyHandler(t *testing.T) {
	t.Run("Success_DeletePolicy", func(t *testing.T) {
		handler, mockUseCase := setupTestPolicyHandler(t)

		mockUseCase.On("DeletePolicy", mock.Anything, "readers").Return(nil).Once()

		c, w := createTestContext(http.MethodDelete, "/v1/policies/readers", nil)
		setIDParam(c, "readers")

		handler.DeletePolicyHandler(c)

		assert.Equal(t, http.StatusNoContent, w.Code)
		mockUseCase.AssertExpectations(t)
	})

	t.Run("Error_UnknownID", func(t *testing.T) {
		handler, mockUseCase := setupTestPolicyHandler(t)

		mockUseCase.On("DeletePolicy", mock.Anything, "missing").
			Return(apperrors.Wrap(apperrors.ErrNotFound, "policy not found")).Once()

		c, w := createTestContext(http.MethodDelete, "/v1/policies/missing", nil)
		setIDParam(c, "missing")

		handler.DeletePolicyHandler(c)

		assert.Equal(t, http.StatusNotFound, w.Code)
		mockUseCase.AssertExpectations(t)
	})
}
