// Package http provides the authentication edge: middleware that turns
// bearer tokens and the bootstrap credential into a request context, plus
// handlers for login and principal management.
package http

import (
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"

	authDomain "github.com/usphq/usp/internal/auth/domain"
	authService "github.com/usphq/usp/internal/auth/service"
	authUseCase "github.com/usphq/usp/internal/auth/usecase"
	"github.com/usphq/usp/internal/config"
	apperrors "github.com/usphq/usp/internal/errors"
	"github.com/usphq/usp/internal/httputil"
	"github.com/usphq/usp/internal/requestctx"
)

// bearerToken extracts the token from a "Bearer <token>" Authorization
// header. The scheme comparison is case-insensitive.
func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", false
	}

	const bearerPrefix = "bearer "
	if len(authHeader) < len(bearerPrefix) ||
		!strings.EqualFold(authHeader[:len(bearerPrefix)], bearerPrefix) {
		return "", false
	}

	token := authHeader[len(bearerPrefix):]
	return token, token != ""
}

// clientAttributes fills the request attributes shared by token and
// bootstrap authentication: network position, client metadata, and the
// optional posture headers a trusted edge proxy may stamp.
//
// Posture headers that fail to parse are dropped rather than rejected;
// an absent attribute makes attribute-gated policies not match.
func clientAttributes(c *gin.Context, zones *ZoneResolver, rc *requestctx.RequestContext) {
	rc.RemoteAddr = c.ClientIP()
	rc.NetworkZone = zones.Resolve(rc.RemoteAddr)
	rc.UserAgent = c.Request.UserAgent()
	rc.DeviceFingerprint = c.GetHeader("X-Device-Fingerprint")
	rc.GeoCountry = c.GetHeader("X-Geo-Country")
	rc.CorrelationID = requestid.Get(c)
	rc.ReceivedAt = time.Now().UTC()

	if raw := c.GetHeader("X-Device-Compliant"); raw != "" {
		if compliant, err := strconv.ParseBool(raw); err == nil {
			rc.DeviceCompliant = &compliant
		}
	}
	if raw := c.GetHeader("X-Risk-Score"); raw != "" {
		if score, err := strconv.Atoi(raw); err == nil {
			rc.RiskScore = &score
		}
	}
}

// AuthenticationMiddleware authenticates requests via Bearer token and
// attaches the resulting request context for the policy evaluator and the
// audit trail.
//
// Error handling:
//   - Missing or malformed Authorization header -> 401 Unauthorized
//   - Invalid, expired, or revoked token -> 401 Unauthorized
//   - Inactive principal -> 403 Forbidden
func AuthenticationMiddleware(
	tokenUseCase authUseCase.TokenUseCase,
	tokenService authService.TokenService,
	zones *ZoneResolver,
	logger *slog.Logger,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		plainToken, ok := bearerToken(c)
		if !ok {
			logger.Debug("authentication failed: missing or malformed authorization header")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		tokenHash := tokenService.HashToken(plainToken)

		principal, token, err := tokenUseCase.Authenticate(c.Request.Context(), tokenHash)
		if err != nil {
			logger.Debug("authentication failed",
				slog.String("error", err.Error()))
			httputil.HandleErrorGin(c, err, logger)
			c.Abort()
			return
		}

		rc := &requestctx.RequestContext{
			PrincipalID:   principal.ID.String(),
			PrincipalName: principal.Name,
			Roles:         principal.Roles,
			SessionID:     token.ID.String(),
		}
		clientAttributes(c, zones, rc)

		c.Request = c.Request.WithContext(requestctx.With(c.Request.Context(), rc))
		c.Next()
	}
}

// BootstrapMiddleware authenticates the seal control plane via the
// X-Bootstrap-Credential header. Seal operations run before any principal
// can authenticate, so they use the operator credential configured at
// deployment instead of a token.
//
// With no bootstrap credential configured every request fails; the seal
// plane cannot be left open by omission.
func BootstrapMiddleware(
	secretService authService.SecretService,
	cfg *config.Config,
	zones *ZoneResolver,
	logger *slog.Logger,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.BootstrapCredentialHash == "" {
			logger.Warn("bootstrap authentication failed: no bootstrap credential configured")
			httputil.HandleErrorGin(c, authDomain.ErrBootstrapNotConfigured, logger)
			c.Abort()
			return
		}

		credential := c.GetHeader("X-Bootstrap-Credential")
		if credential == "" || !secretService.CompareSecret(credential, cfg.BootstrapCredentialHash) {
			logger.Debug("bootstrap authentication failed: invalid credential")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		rc := &requestctx.RequestContext{
			PrincipalID: authDomain.BootstrapPrincipalID,
			Bootstrap:   true,
		}
		clientAttributes(c, zones, rc)

		c.Request = c.Request.WithContext(requestctx.With(c.Request.Context(), rc))
		c.Next()
	}
}
