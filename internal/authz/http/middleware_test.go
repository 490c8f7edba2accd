package http

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/usphq/usp/internal/authz/http/mocks"
	apperrors "github.com/usphq/usp/internal/errors"
)

// setupRequireRouter builds a router with one enforced route and reports
// whether the handler behind the middleware ran.
func setupRequireRouter(
	t *testing.T,
	authorizer Authorizer,
	method, pattern, action, resourceType string,
	resource ResourceFunc,
) (*gin.Engine, *bool) {
	t.Helper()

	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	handlerRan := false
	router := gin.New()
	router.Handle(method, pattern, Require(authorizer, action, resourceType, resource, logger), func(c *gin.Context) {
		handlerRan = true
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return router, &handlerRan
}

func TestRequire_PermitReachesHandler(t *testing.T) {
	mockAuthorizer := &mocks.MockAuthzUseCase{}
	mockAuthorizer.On("Allow", mock.Anything, "write", "kv", "app/prod/db").Return(nil)

	router, handlerRan := setupRequireRouter(
		t, mockAuthorizer, http.MethodPost, "/v1/kv/data/*path", "write", "kv", ResourceWildcard("path"),
	)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/kv/data/app/prod/db", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, *handlerRan)
	mockAuthorizer.AssertExpectations(t)
}

func TestRequire_DenyAbortsBeforeHandler(t *testing.T) {
	mockAuthorizer := &mocks.MockAuthzUseCase{}
	mockAuthorizer.On("Allow", mock.Anything, "write", "kv", "app/prod/db").
		Return(apperrors.Wrap(apperrors.ErrForbidden, "no matching policy"))

	router, handlerRan := setupRequireRouter(
		t, mockAuthorizer, http.MethodPost, "/v1/kv/data/*path", "write", "kv", ResourceWildcard("path"),
	)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/kv/data/app/prod/db", nil))

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.False(t, *handlerRan, "handler must not run without a permit")
	assert.Contains(t, w.Body.String(), "Permission denied")
	mockAuthorizer.AssertExpectations(t)
}

func TestRequire_EvaluatorConsultedOncePerRequest(t *testing.T) {
	mockAuthorizer := &mocks.MockAuthzUseCase{}
	mockAuthorizer.On("Allow", mock.Anything, "read", "kv", "app/prod/db").Return(nil)

	router, _ := setupRequireRouter(
		t, mockAuthorizer, http.MethodGet, "/v1/kv/data/*path", "read", "kv", ResourceWildcard("path"),
	)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/kv/data/app/prod/db", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	mockAuthorizer.AssertNumberOfCalls(t, "Allow", 1)
}

func TestRequire_ResourceFuncs(t *testing.T) {
	tests := []struct {
		name         string
		method       string
		pattern      string
		url          string
		action       string
		resourceType string
		resource     ResourceFunc
		wantResource string
	}{
		{
			name:   "wildcard strips the leading slash",
			method: http.MethodGet, pattern: "/v1/kv/data/*path", url: "/v1/kv/data/team/app",
			action: "read", resourceType: "kv",
			resource: ResourceWildcard("path"), wantResource: "team/app",
		},
		{
			name:   "single param",
			method: http.MethodPost, pattern: "/v1/transit/keys/:name", url: "/v1/transit/keys/payments",
			action: "create", resourceType: "transit",
			resource: ResourceParam("name"), wantResource: "payments",
		},
		{
			name:   "joined params form the role path",
			method: http.MethodGet, pattern: "/v1/database/creds/:name/:role", url: "/v1/database/creds/billing/readonly",
			action: "creds", resourceType: "database",
			resource: ResourceParams("name", "role"), wantResource: "billing/readonly",
		},
		{
			name:   "no resource",
			method: http.MethodGet, pattern: "/v1/transit/keys", url: "/v1/transit/keys",
			action: "list", resourceType: "transit",
			resource: ResourceNone, wantResource: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockAuthorizer := &mocks.MockAuthzUseCase{}
			mockAuthorizer.On("Allow", mock.Anything, tt.action, tt.resourceType, tt.wantResource).Return(nil)

			router, _ := setupRequireRouter(t, mockAuthorizer, tt.method, tt.pattern, tt.action, tt.resourceType, tt.resource)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(tt.method, tt.url, nil))

			assert.Equal(t, http.StatusOK, w.Code)
			mockAuthorizer.AssertExpectations(t)
		})
	}
}
