package http

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/usphq/usp/internal/errors"
	sealDomain "github.com/usphq/usp/internal/seal/domain"
	"github.com/usphq/usp/internal/seal/http/dto"
	"github.com/usphq/usp/internal/seal/http/mocks"
	sealUseCase "github.com/usphq/usp/internal/seal/usecase"
)

// setupTestSealHandler creates a test handler with mocked dependencies.
func setupTestSealHandler(t *testing.T) (*SealHandler, *mocks.MockSealUseCase) {
	t.Helper()

	gin.SetMode(gin.TestMode)

	mockUseCase := &mocks.MockSealUseCase{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return NewSealHandler(mockUseCase, logger), mockUseCase
}

// createTestContext creates a test Gin context with the given request.
func createTestContext(method, path string, body interface{}) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req := httptest.NewRequest(method, path, bodyReader)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	return c, w
}

func sealedStatus() *sealDomain.Status {
	return &sealDomain.Status{
		State:       sealDomain.StateSealed,
		Initialized: true,
		SealType:    sealDomain.SealTypeShamir,
		Threshold:   3,
		Shares:      5,
	}
}

func TestSealHandler_InitHandler(t *testing.T) {
	t.Run("Success_Init", func(t *testing.T) {
		handler, mockUseCase := setupTestSealHandler(t)

		result := &sealUseCase.InitResult{
			Shares:    [][]byte{[]byte("share-one"), []byte("share-two"), []byte("share-three")},
			Threshold: 2,
		}
		mockUseCase.On("Init", mock.Anything, 3, 2).Return(result, nil).Once()

		c, w := createTestContext(http.MethodPost, "/v1/seal/init", dto.InitRequest{
			Shares:    3,
			Threshold: 2,
		})

		handler.InitHandler(c)

		require.Equal(t, http.StatusOK, w.Code)

		var response dto.InitResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		require.Len(t, response.Shares, 3)
		assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("share-one")), response.Shares[0])
		assert.Equal(t, 2, response.Threshold)
		mockUseCase.AssertExpectations(t)
	})

	t.Run("Error_AlreadyInitialized", func(t *testing.T) {
		handler, mockUseCase := setupTestSealHandler(t)

		mockUseCase.On("Init", mock.Anything, 3, 2).
			Return(nil, sealDomain.ErrAlreadyInitialized).Once()

		c, w := createTestContext(http.MethodPost, "/v1/seal/init", dto.InitRequest{
			Shares:    3,
			Threshold: 2,
		})

		handler.InitHandler(c)

		assert.Equal(t, http.StatusConflict, w.Code)
		mockUseCase.AssertExpectations(t)
	})

	t.Run("Error_SharesOutOfRange", func(t *testing.T) {
		handler, mockUseCase := setupTestSealHandler(t)

		c, w := createTestContext(http.MethodPost, "/v1/seal/init", dto.InitRequest{
			Shares:    11,
			Threshold: 2,
		})

		handler.InitHandler(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		mockUseCase.AssertNotCalled(t, "Init")
	})

	t.Run("Error_ThresholdAboveShares", func(t *testing.T) {
		handler, mockUseCase := setupTestSealHandler(t)

		c, w := createTestContext(http.MethodPost, "/v1/seal/init", dto.InitRequest{
			Shares:    3,
			Threshold: 4,
		})

		handler.InitHandler(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		mockUseCase.AssertNotCalled(t, "Init")
	})
}

func TestSealHandler_UnsealHandler(t *testing.T) {
	t.Run("Success_SubmitShare", func(t *testing.T) {
		handler, mockUseCase := setupTestSealHandler(t)

		status := &sealDomain.Status{
			State:       sealDomain.StateUnsealing,
			Initialized: true,
			SealType:    sealDomain.SealTypeShamir,
			Progress:    1,
			Threshold:   2,
			Shares:      3,
		}
		mockUseCase.On("SubmitShare", mock.Anything, []byte("share-one")).
			Return(status, nil).Once()

		c, w := createTestContext(http.MethodPost, "/v1/seal/unseal", dto.UnsealRequest{
			Share: base64.StdEncoding.EncodeToString([]byte("share-one")),
		})

		handler.UnsealHandler(c)

		require.Equal(t, http.StatusOK, w.Code)

		var response dto.StatusResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, sealDomain.StateUnsealing, response.State)
		assert.Equal(t, 1, response.Progress)
		mockUseCase.AssertExpectations(t)
	})

	t.Run("Success_Reset", func(t *testing.T) {
		handler, mockUseCase := setupTestSealHandler(t)

		mockUseCase.On("ResetUnseal", mock.Anything).Return(sealedStatus(), nil).Once()

		c, w := createTestContext(http.MethodPost, "/v1/seal/unseal", dto.UnsealRequest{
			Reset: true,
		})

		handler.UnsealHandler(c)

		require.Equal(t, http.StatusOK, w.Code)

		var response dto.StatusResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, sealDomain.StateSealed, response.State)
		assert.Equal(t, 0, response.Progress)
		mockUseCase.AssertExpectations(t)
	})

	t.Run("Error_MissingShare", func(t *testing.T) {
		handler, mockUseCase := setupTestSealHandler(t)

		c, w := createTestContext(http.MethodPost, "/v1/seal/unseal", dto.UnsealRequest{})

		handler.UnsealHandler(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		mockUseCase.AssertNotCalled(t, "SubmitShare")
	})

	t.Run("Error_ShareNotBase64", func(t *testing.T) {
		handler, mockUseCase := setupTestSealHandler(t)

		c, w := createTestContext(http.MethodPost, "/v1/seal/unseal", dto.UnsealRequest{
			Share: "not base64!!!",
		})

		handler.UnsealHandler(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		mockUseCase.AssertNotCalled(t, "SubmitShare")
	})

	t.Run("Error_DuplicateShare", func(t *testing.T) {
		handler, mockUseCase := setupTestSealHandler(t)

		mockUseCase.On("SubmitShare", mock.Anything, mock.Anything).
			Return(nil, sealDomain.ErrDuplicateShare).Once()

		c, w := createTestContext(http.MethodPost, "/v1/seal/unseal", dto.UnsealRequest{
			Share: base64.StdEncoding.EncodeToString([]byte("share-one")),
		})

		handler.UnsealHandler(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		mockUseCase.AssertExpectations(t)
	})
}

func TestSealHandler_SealHandler(t *testing.T) {
	t.Run("Success_Seal", func(t *testing.T) {
		handler, mockUseCase := setupTestSealHandler(t)

		mockUseCase.On("Seal", mock.Anything).Return(sealedStatus(), nil).Once()

		c, w := createTestContext(http.MethodPost, "/v1/seal/seal", nil)

		handler.SealHandler(c)

		require.Equal(t, http.StatusOK, w.Code)

		var response dto.StatusResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, sealDomain.StateSealed, response.State)
		mockUseCase.AssertExpectations(t)
	})

	t.Run("Error_Uninitialized", func(t *testing.T) {
		handler, mockUseCase := setupTestSealHandler(t)

		mockUseCase.On("Seal", mock.Anything).
			Return(nil, sealDomain.ErrNotInitialized).Once()

		c, w := createTestContext(http.MethodPost, "/v1/seal/seal", nil)

		handler.SealHandler(c)

		assert.NotEqual(t, http.StatusOK, w.Code)
		mockUseCase.AssertExpectations(t)
	})
}

func TestSealHandler_StatusHandler(t *testing.T) {
	t.Run("Success_Status", func(t *testing.T) {
		handler, mockUseCase := setupTestSealHandler(t)

		mockUseCase.On("Status", mock.Anything).Return(sealedStatus(), nil).Once()

		c, w := createTestContext(http.MethodGet, "/v1/seal/status", nil)

		handler.StatusHandler(c)

		require.Equal(t, http.StatusOK, w.Code)

		var response dto.StatusResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, sealDomain.StateSealed, response.State)
		assert.True(t, response.Initialized)
		assert.Equal(t, 3, response.Threshold)
		mockUseCase.AssertExpectations(t)
	})

	t.Run("Error_Internal", func(t *testing.T) {
		handler, mockUseCase := setupTestSealHandler(t)

		mockUseCase.On("Status", mock.Anything).
			Return(nil, apperrors.Wrap(apperrors.ErrTransient, "store unavailable")).Once()

		c, w := createTestContext(http.MethodGet, "/v1/seal/status", nil)

		handler.StatusHandler(c)

		assert.NotEqual(t, http.StatusOK, w.Code)
		mockUseCase.AssertExpectations(t)
	})
}
