package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/usphq/usp/internal/errors"
)

func TestMakeJSONResponse(t *testing.T) {
	tests := []struct {
		name         string
		body         interface{}
		statusCode   int
		expectedBody string
	}{
		{
			name:         "success response",
			body:         map[string]string{"status": "ok"},
			statusCode:   http.StatusOK,
			expectedBody: `{"status":"ok"}`,
		},
		{
			name:         "error response",
			body:         map[string]string{"error": "something went wrong"},
			statusCode:   http.StatusInternalServerError,
			expectedBody: `{"error":"something went wrong"}`,
		},
		{
			name: "complex object",
			body: map[string]interface{}{
				"id":   1,
				"name": "Test",
				"data": map[string]string{"key": "value"},
			},
			statusCode:   http.StatusOK,
			expectedBody: `{"data":{"key":"value"},"id":1,"name":"Test"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			MakeJSONResponse(w, tt.statusCode, tt.body)

			assert.Equal(t, tt.statusCode, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			assert.JSONEq(t, tt.expectedBody, w.Body.String())
		})
	}
}

func TestHandleErrorGin(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedCode   string
	}{
		{
			name:           "not found",
			err:            apperrors.ErrNotFound,
			expectedStatus: http.StatusNotFound,
			expectedCode:   apperrors.CodeNotFound,
		},
		{
			name:           "deleted version",
			err:            apperrors.Wrap(apperrors.ErrDeleted, "version 3"),
			expectedStatus: http.StatusNotFound,
			expectedCode:   apperrors.CodeDeleted,
		},
		{
			name:           "destroyed version",
			err:            apperrors.ErrDestroyed,
			expectedStatus: http.StatusGone,
			expectedCode:   apperrors.CodeDestroyed,
		},
		{
			name:           "cas mismatch",
			err:            apperrors.Wrap(apperrors.ErrCASMismatch, "expected version 2"),
			expectedStatus: http.StatusConflict,
			expectedCode:   apperrors.CodeCASMismatch,
		},
		{
			name:           "conflict",
			err:            apperrors.ErrConflict,
			expectedStatus: http.StatusConflict,
			expectedCode:   apperrors.CodeConflict,
		},
		{
			name:           "invalid input",
			err:            apperrors.Wrap(apperrors.ErrInvalidInput, "ttl out of range"),
			expectedStatus: http.StatusUnprocessableEntity,
			expectedCode:   apperrors.CodeInvalidInput,
		},
		{
			name:           "unauthorized",
			err:            apperrors.ErrUnauthorized,
			expectedStatus: http.StatusUnauthorized,
			expectedCode:   apperrors.CodeUnauthorized,
		},
		{
			name:           "forbidden",
			err:            apperrors.Wrap(apperrors.ErrForbidden, "policy denied"),
			expectedStatus: http.StatusForbidden,
			expectedCode:   apperrors.CodeForbidden,
		},
		{
			name:           "locked",
			err:            apperrors.ErrLocked,
			expectedStatus: http.StatusTooManyRequests,
			expectedCode:   apperrors.CodeLocked,
		},
		{
			name:           "sealed",
			err:            apperrors.Wrap(apperrors.ErrSealed, "kv read"),
			expectedStatus: http.StatusServiceUnavailable,
			expectedCode:   apperrors.CodeSealed,
		},
		{
			name:           "audit chain broken",
			err:            apperrors.ErrChainBroken,
			expectedStatus: http.StatusServiceUnavailable,
			expectedCode:   apperrors.CodeChainBroken,
		},
		{
			name:           "key version too old",
			err:            apperrors.Wrap(apperrors.ErrKeyVersionTooOld, "ciphertext v1, minimum v3"),
			expectedStatus: http.StatusBadRequest,
			expectedCode:   apperrors.CodeKeyVersionTooOld,
		},
		{
			name:           "connector failure",
			err:            apperrors.Wrap(apperrors.ErrConnector, "create user failed"),
			expectedStatus: http.StatusBadGateway,
			expectedCode:   apperrors.CodeConnector,
		},
		{
			name:           "unsupported",
			err:            apperrors.ErrUnsupported,
			expectedStatus: http.StatusNotImplemented,
			expectedCode:   apperrors.CodeUnsupported,
		},
		{
			name:           "transient",
			err:            apperrors.ErrTransient,
			expectedStatus: http.StatusServiceUnavailable,
			expectedCode:   apperrors.CodeTransient,
		},
		{
			name:           "unknown error is masked",
			err:            apperrors.New("sql: connection refused"),
			expectedStatus: http.StatusInternalServerError,
			expectedCode:   apperrors.CodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/v1/test", nil)

			HandleErrorGin(c, tt.err, nil)

			assert.Equal(t, tt.expectedStatus, w.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.expectedCode, resp.Error)
			assert.NotEmpty(t, resp.Message)
		})
	}

	t.Run("internal errors never leak details", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/v1/test", nil)

		HandleErrorGin(c, apperrors.New("pq: password authentication failed for user postgres"), nil)

		assert.NotContains(t, w.Body.String(), "postgres")
	})

	t.Run("forbidden message is fixed", func(t *testing.T) {
		first := httptest.NewRecorder()
		c1, _ := gin.CreateTestContext(first)
		c1.Request = httptest.NewRequest(http.MethodGet, "/v1/kv/data/exists", nil)
		HandleErrorGin(c1, apperrors.Wrap(apperrors.ErrForbidden, "secret exists but denied"), nil)

		second := httptest.NewRecorder()
		c2, _ := gin.CreateTestContext(second)
		c2.Request = httptest.NewRequest(http.MethodGet, "/v1/kv/data/missing", nil)
		HandleErrorGin(c2, apperrors.Wrap(apperrors.ErrForbidden, "secret absent"), nil)

		assert.Equal(t, first.Body.String(), second.Body.String())
	})

	t.Run("nil error writes nothing", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)

		HandleErrorGin(c, nil, nil)

		assert.Empty(t, w.Body.String())
	})
}

func TestHandleBadRequestGin(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/v1/test", nil)

	HandleBadRequestGin(c, apperrors.New("unexpected end of JSON input"), nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "bad_request")
}

func TestHandleValidationErrorGin(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/v1/test", nil)

	HandleValidationErrorGin(c, apperrors.New("name: cannot be blank"), nil)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), apperrors.CodeInvalidInput)
	assert.Contains(t, w.Body.String(), "cannot be blank")
}
