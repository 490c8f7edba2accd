// Package http assembles the API server: the gin router, the shared
// middleware chain, and the route table for every context.
package http

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	authHTTP "github.com/usphq/usp/internal/auth/http"
	authService "github.com/usphq/usp/internal/auth/service"
	authUseCase "github.com/usphq/usp/internal/auth/usecase"
	authzHTTP "github.com/usphq/usp/internal/authz/http"
	"github.com/usphq/usp/internal/config"
	dbengineHTTP "github.com/usphq/usp/internal/dbengine/http"
	kvHTTP "github.com/usphq/usp/internal/kv/http"
	sealHTTP "github.com/usphq/usp/internal/seal/http"
	transitHTTP "github.com/usphq/usp/internal/transit/http"
)

// Server is the API HTTP server.
type Server struct {
	db     *sql.DB
	logger *slog.Logger
	router *gin.Engine
	server *http.Server
}

// RouterDeps holds every handler plus the edge-middleware dependencies the
// route table wires together.
type RouterDeps struct {
	Seal           *sealHTTP.SealHandler
	KV             *kvHTTP.KVHandler
	TransitKey     *transitHTTP.TransitKeyHandler
	TransitCrypto  *transitHTTP.CryptoHandler
	DatabaseConfig *dbengineHTTP.DatabaseConfigHandler
	DatabaseRole   *dbengineHTTP.DatabaseRoleHandler
	DatabaseLease  *dbengineHTTP.DatabaseLeaseHandler
	Policy         *authzHTTP.PolicyHandler
	Authz          *authzHTTP.AuthzHandler
	Token          *authHTTP.TokenHandler
	Principal      *authHTTP.PrincipalHandler

	Authorizer    authzHTTP.Authorizer
	TokenUseCase  authUseCase.TokenUseCase
	TokenService  authService.TokenService
	SecretService authService.SecretService
	Zones         *authHTTP.ZoneResolver
}

// NewServer creates a new API server. The router is assembled separately by
// SetupRouter.
func NewServer(db *sql.DB, host string, port int, logger *slog.Logger) *Server {
	return &Server{
		db:     db,
		logger: logger,
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", host, port),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// SetupRouter builds the route table. Health and readiness stay outside /v1
// and outside authentication; the seal control plane sits behind the
// bootstrap credential; everything else requires a bearer token.
func (s *Server) SetupRouter(cfg *config.Config, deps *RouterDeps) {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(s.logger))

	if corsMiddleware := createCORSMiddleware(cfg.CORSEnabled, cfg.CORSAllowOrigins, s.logger); corsMiddleware != nil {
		router.Use(corsMiddleware)
	}

	router.GET("/health", s.healthHandler)
	router.GET("/ready", s.readinessHandler)

	v1 := router.Group("/v1")

	// Login is the only unauthenticated business route; it gets its own
	// per-IP limiter.
	login := v1.Group("/auth")
	if cfg.RateLimitLoginEnabled {
		login.Use(authHTTP.LoginRateLimitMiddleware(cfg.RateLimitLoginRequestsPerSec, cfg.RateLimitLoginBurst, s.logger))
	}
	login.POST("/login", deps.Token.LoginHandler)

	seal := v1.Group("/seal")
	seal.Use(authHTTP.BootstrapMiddleware(deps.SecretService, cfg, deps.Zones, s.logger))
	seal.POST("/init", deps.Seal.InitHandler)
	seal.POST("/unseal", deps.Seal.UnsealHandler)
	seal.POST("/seal", deps.Seal.SealHandler)
	seal.GET("/status", deps.Seal.StatusHandler)

	api := v1.Group("")
	api.Use(authHTTP.AuthenticationMiddleware(deps.TokenUseCase, deps.TokenService, deps.Zones, s.logger))
	if cfg.RateLimitEnabled {
		api.Use(authHTTP.RateLimitMiddleware(cfg.RateLimitRequestsPerSec, cfg.RateLimitBurst, s.logger))
	}

	// Every engine route asks the evaluator for a decision before its handler
	// runs; only /authz/check stays open to any authenticated principal.
	allow := func(action, resourceType string, resource authzHTTP.ResourceFunc) gin.HandlerFunc {
		return authzHTTP.Require(deps.Authorizer, action, resourceType, resource, s.logger)
	}
	kvPath := authzHTTP.ResourceWildcard("path")
	keyName := authzHTTP.ResourceParam("name")

	api.POST("/kv/data/*path", allow("write", "kv", kvPath), deps.KV.WriteHandler)
	api.GET("/kv/data/*path", allow("read", "kv", kvPath), deps.KV.ReadHandler)
	api.DELETE("/kv/data/*path", allow("delete", "kv", kvPath), deps.KV.SoftDeleteHandler)
	api.POST("/kv/undelete/*path", allow("undelete", "kv", kvPath), deps.KV.UndeleteHandler)
	api.POST("/kv/destroy/*path", allow("destroy", "kv", kvPath), deps.KV.DestroyHandler)
	api.GET("/kv/metadata/*path", allow("read", "kv", kvPath), deps.KV.MetadataHandler)
	api.POST("/kv/metadata/*path", allow("update", "kv", kvPath), deps.KV.UpdateMetadataHandler)
	api.DELETE("/kv/metadata/*path", allow("destroy", "kv", kvPath), deps.KV.DestroyMetadataHandler)

	api.GET("/transit/keys", allow("list", "transit", authzHTTP.ResourceNone), deps.TransitKey.ListKeysHandler)
	api.POST("/transit/keys/:name", allow("create", "transit", keyName), deps.TransitKey.CreateKeyHandler)
	api.GET("/transit/keys/:name", allow("read", "transit", keyName), deps.TransitKey.GetKeyHandler)
	api.DELETE("/transit/keys/:name", allow("delete", "transit", keyName), deps.TransitKey.DeleteKeyHandler)
	api.POST("/transit/keys/:name/rotate", allow("rotate", "transit", keyName), deps.TransitKey.RotateKeyHandler)
	api.POST("/transit/keys/:name/config", allow("update", "transit", keyName), deps.TransitKey.UpdateKeyConfigHandler)
	api.GET("/transit/keys/:name/export", allow("export", "transit", keyName), deps.TransitKey.ExportKeyHandler)
	api.POST("/transit/encrypt/:name", allow("encrypt", "transit", keyName), deps.TransitCrypto.EncryptHandler)
	api.POST("/transit/decrypt/:name", allow("decrypt", "transit", keyName), deps.TransitCrypto.DecryptHandler)
	api.POST("/transit/sign/:name", allow("sign", "transit", keyName), deps.TransitCrypto.SignHandler)
	api.POST("/transit/verify/:name", allow("verify", "transit", keyName), deps.TransitCrypto.VerifyHandler)

	configName := authzHTTP.ResourceParams("name")
	roleName := authzHTTP.ResourceParams("name", "role")
	api.POST("/database/config/:name", allow("configure", "database", configName), deps.DatabaseConfig.ConfigureHandler)
	api.GET("/database/config/:name", allow("read", "database", configName), deps.DatabaseConfig.GetConfigHandler)
	api.GET("/database/config", allow("list", "database", authzHTTP.ResourceNone), deps.DatabaseConfig.ListConfigsHandler)
	api.DELETE("/database/config/:name", allow("delete", "database", configName), deps.DatabaseConfig.DeleteConfigHandler)
	api.POST("/database/rotate-root/:name", allow("rotate-root", "database", configName), deps.DatabaseConfig.RotateRootHandler)
	api.POST("/database/roles/:name/:role", allow("write-role", "database", roleName), deps.DatabaseRole.CreateRoleHandler)
	api.GET("/database/roles/:name/:role", allow("read-role", "database", roleName), deps.DatabaseRole.GetRoleHandler)
	api.GET("/database/roles/:name", allow("list-roles", "database", configName), deps.DatabaseRole.ListRolesHandler)
	api.GET("/database/creds/:name/:role", allow("creds", "database", roleName), deps.DatabaseLease.GenerateCredentialsHandler)
	api.POST("/database/leases/renew", allow("renew", "database", authzHTTP.ResourceNone), deps.DatabaseLease.RenewLeaseHandler)
	api.POST("/database/leases/revoke", allow("revoke", "database", authzHTTP.ResourceNone), deps.DatabaseLease.RevokeLeaseHandler)

	policyID := authzHTTP.ResourceParam("id")
	api.POST("/policies/:id", allow("create", "policies", policyID), deps.Policy.CreatePolicyHandler)
	api.GET("/policies/:id", allow("read", "policies", policyID), deps.Policy.GetPolicyHandler)
	api.GET("/policies", allow("list", "policies", authzHTTP.ResourceNone), deps.Policy.ListPoliciesHandler)
	api.PUT("/policies/:id", allow("update", "policies", policyID), deps.Policy.UpdatePolicyHandler)
	api.DELETE("/policies/:id", allow("delete", "policies", policyID), deps.Policy.DeletePolicyHandler)
	api.POST("/authz/check", deps.Authz.CheckHandler)

	principalID := authzHTTP.ResourceParam("id")
	api.POST("/auth/revoke", allow("revoke", "tokens", authzHTTP.ResourceNone), deps.Token.RevokeHandler)
	api.POST("/auth/principals", allow("create", "principals", authzHTTP.ResourceNone), deps.Principal.CreateHandler)
	api.GET("/auth/principals", allow("list", "principals", authzHTTP.ResourceNone), deps.Principal.ListHandler)
	api.GET("/auth/principals/:id", allow("read", "principals", principalID), deps.Principal.GetHandler)
	api.PUT("/auth/principals/:id", allow("update", "principals", principalID), deps.Principal.UpdateHandler)
	api.DELETE("/auth/principals/:id", allow("delete", "principals", principalID), deps.Principal.DeleteHandler)

	s.router = router
}

// GetHandler returns the assembled router, for tests and in-process use.
func (s *Server) GetHandler() http.Handler {
	return s.router
}

// healthHandler reports process liveness.
func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// readinessHandler reports whether the server can take traffic. A failing
// database probe makes the whole check fail.
func (s *Server) readinessHandler(c *gin.Context) {
	components := gin.H{"database": "ok"}
	status := http.StatusOK

	if s.db == nil {
		components["database"] = "error"
		status = http.StatusServiceUnavailable
	} else {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := s.db.PingContext(ctx); err != nil {
			components["database"] = "error"
			status = http.StatusServiceUnavailable
		}
	}

	body := gin.H{"status": "ready", "components": components}
	if status != http.StatusOK {
		body["status"] = "not_ready"
	}
	c.JSON(status, body)
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	s.server.Handler = s.router

	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}
