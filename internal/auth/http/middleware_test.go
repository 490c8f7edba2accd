package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	authDomain "github.com/usphq/usp/internal/auth/domain"
	"github.com/usphq/usp/internal/auth/http/mocks"
	authService "github.com/usphq/usp/internal/auth/service"
	"github.com/usphq/usp/internal/config"
	"github.com/usphq/usp/internal/requestctx"
)

// contextProbe serializes the attached request context so tests can assert
// on what the middleware produced.
type contextProbe struct {
	PrincipalID     string   `json:"principal_id"`
	PrincipalName   string   `json:"principal_name"`
	Roles           []string `json:"roles"`
	SessionID       string   `json:"session_id"`
	RemoteAddr      string   `json:"remote_addr"`
	NetworkZone     string   `json:"network_zone"`
	GeoCountry      string   `json:"geo_country"`
	DeviceCompliant *bool    `json:"device_compliant"`
	RiskScore       *int     `json:"risk_score"`
	Bootstrap       bool     `json:"bootstrap"`
}

func probeHandler(c *gin.Context) {
	rc, ok := requestctx.From(c.Request.Context())
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "no request context"})
		return
	}
	c.JSON(http.StatusOK, contextProbe{
		PrincipalID:     rc.PrincipalID,
		PrincipalName:   rc.PrincipalName,
		Roles:           rc.Roles,
		SessionID:       rc.SessionID,
		RemoteAddr:      rc.RemoteAddr,
		NetworkZone:     rc.NetworkZone,
		GeoCountry:      rc.GeoCountry,
		DeviceCompliant: rc.DeviceCompliant,
		RiskScore:       rc.RiskScore,
		Bootstrap:       rc.Bootstrap,
	})
}

func testZones(t *testing.T) *ZoneResolver {
	t.Helper()
	zones, err := NewZoneResolver("internal=10.0.0.0/8,dmz=172.16.0.0/12")
	require.NoError(t, err)
	return zones
}

func setupAuthRouter(t *testing.T) (*gin.Engine, *mocks.MockTokenUseCase) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mockUseCase := &mocks.MockTokenUseCase{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	router := gin.New()
	router.Use(AuthenticationMiddleware(mockUseCase, authService.NewTokenService(), testZones(t), logger))
	router.GET("/protected", probeHandler)

	return router, mockUseCase
}

func testAuthPrincipal(name string) *authDomain.Principal {
	now := time.Now().UTC()
	return &authDomain.Principal{
		ID:        uuid.Must(uuid.NewV7()),
		Name:      name,
		Roles:     []string{"kv-reader"},
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestAuthenticationMiddleware(t *testing.T) {
	tokenService := authService.NewTokenService()

	t.Run("Success_AttachesRequestContext", func(t *testing.T) {
		router, mockUseCase := setupAuthRouter(t)

		principal := testAuthPrincipal("app-runner")
		token := &authDomain.Token{
			ID:          uuid.Must(uuid.NewV7()),
			PrincipalID: principal.ID,
			ExpiresAt:   time.Now().UTC().Add(time.Hour),
		}
		mockUseCase.On("Authenticate", mock.Anything, tokenService.HashToken("plain-token")).
			Return(principal, token, nil).Once()

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer plain-token")
		req.Header.Set("X-Forwarded-For", "10.1.2.3")
		req.Header.Set("X-Geo-Country", "BR")
		req.Header.Set("X-Device-Compliant", "true")
		req.Header.Set("X-Risk-Score", "42")
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var probe contextProbe
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &probe))
		assert.Equal(t, principal.ID.String(), probe.PrincipalID)
		assert.Equal(t, "app-runner", probe.PrincipalName)
		assert.Equal(t, []string{"kv-reader"}, probe.Roles)
		assert.Equal(t, token.ID.String(), probe.SessionID)
		assert.Equal(t, "10.1.2.3", probe.RemoteAddr)
		assert.Equal(t, "internal", probe.NetworkZone)
		assert.Equal(t, "BR", probe.GeoCountry)
		require.NotNil(t, probe.DeviceCompliant)
		assert.True(t, *probe.DeviceCompliant)
		require.NotNil(t, probe.RiskScore)
		assert.Equal(t, 42, *probe.RiskScore)
		assert.False(t, probe.Bootstrap)
		mockUseCase.AssertExpectations(t)
	})

	t.Run("Success_CaseInsensitiveScheme", func(t *testing.T) {
		router, mockUseCase := setupAuthRouter(t)

		principal := testAuthPrincipal("app-runner")
		token := &authDomain.Token{ID: uuid.Must(uuid.NewV7()), PrincipalID: principal.ID}
		mockUseCase.On("Authenticate", mock.Anything, tokenService.HashToken("plain-token")).
			Return(principal, token, nil).Once()

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "BEARER plain-token")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		mockUseCase.AssertExpectations(t)
	})

	t.Run("Success_InvalidPostureHeadersDropped", func(t *testing.T) {
		router, mockUseCase := setupAuthRouter(t)

		principal := testAuthPrincipal("app-runner")
		token := &authDomain.Token{ID: uuid.Must(uuid.NewV7()), PrincipalID: principal.ID}
		mockUseCase.On("Authenticate", mock.Anything, mock.Anything).
			Return(principal, token, nil).Once()

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer plain-token")
		req.Header.Set("X-Device-Compliant", "maybe")
		req.Header.Set("X-Risk-Score", "high")
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var probe contextProbe
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &probe))
		assert.Nil(t, probe.DeviceCompliant)
		assert.Nil(t, probe.RiskScore)
	})

	t.Run("Error_MissingHeader", func(t *testing.T) {
		router, _ := setupAuthRouter(t)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Error_MalformedHeader", func(t *testing.T) {
		router, _ := setupAuthRouter(t)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Token abc")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Error_EmptyBearerToken", func(t *testing.T) {
		router, _ := setupAuthRouter(t)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer ")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Error_InvalidToken", func(t *testing.T) {
		router, mockUseCase := setupAuthRouter(t)

		mockUseCase.On("Authenticate", mock.Anything, mock.Anything).
			Return(nil, nil, authDomain.ErrInvalidCredentials).Once()

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer bad-token")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		mockUseCase.AssertExpectations(t)
	})

	t.Run("Error_InactivePrincipal", func(t *testing.T) {
		router, mockUseCase := setupAuthRouter(t)

		mockUseCase.On("Authenticate", mock.Anything, mock.Anything).
			Return(nil, nil, authDomain.ErrPrincipalInactive).Once()

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer token")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
		mockUseCase.AssertExpectations(t)
	})
}

func setupBootstrapRouter(t *testing.T, credentialHash string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &config.Config{BootstrapCredentialHash: credentialHash}

	router := gin.New()
	router.Use(BootstrapMiddleware(authService.NewSecretService(), cfg, testZones(t), logger))
	router.POST("/seal-plane", probeHandler)

	return router
}

func TestBootstrapMiddleware(t *testing.T) {
	secretService := authService.NewSecretService()
	hash, err := secretService.HashSecret("operator-credential")
	require.NoError(t, err)

	t.Run("Success_BootstrapContext", func(t *testing.T) {
		router := setupBootstrapRouter(t, hash)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/seal-plane", nil)
		req.Header.Set("X-Bootstrap-Credential", "operator-credential")
		req.Header.Set("X-Forwarded-For", "172.16.5.5")
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var probe contextProbe
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &probe))
		assert.Equal(t, authDomain.BootstrapPrincipalID, probe.PrincipalID)
		assert.True(t, probe.Bootstrap)
		assert.Equal(t, "dmz", probe.NetworkZone)
	})

	t.Run("Error_WrongCredential", func(t *testing.T) {
		router := setupBootstrapRouter(t, hash)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/seal-plane", nil)
		req.Header.Set("X-Bootstrap-Credential", "wrong")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Error_MissingCredential", func(t *testing.T) {
		router := setupBootstrapRouter(t, hash)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/seal-plane", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Error_NotConfigured", func(t *testing.T) {
		router := setupBootstrapRouter(t, "")

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/seal-plane", nil)
		req.Header.Set("X-Bootstrap-Credential", "operator-credential")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
