package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	authDomain "github.com/usphq/usp/internal/auth/domain"
	"github.com/usphq/usp/internal/auth/http/dto"
	authUseCase "github.com/usphq/usp/internal/auth/usecase"
	"github.com/usphq/usp/internal/httputil"
	customValidation "github.com/usphq/usp/internal/validation"
)

// TokenHandler handles HTTP requests for token issuance and revocation.
type TokenHandler struct {
	tokenUseCase authUseCase.TokenUseCase
	logger       *slog.Logger
}

// NewTokenHandler creates a new token handler with required dependencies.
func NewTokenHandler(tokenUseCase authUseCase.TokenUseCase, logger *slog.Logger) *TokenHandler {
	return &TokenHandler{tokenUseCase: tokenUseCase, logger: logger}
}

// LoginHandler exchanges principal credentials for an API token.
// POST /v1/auth/login - body {name, secret}.
// Returns 200 OK with the plain token, shown only in this response.
func (h *TokenHandler) LoginHandler(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	output, err := h.tokenUseCase.Issue(c.Request.Context(), &authDomain.IssueTokenInput{
		Name:   req.Name,
		Secret: req.Secret,
	})
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapTokenToLoginResponse(output))
}

// RevokeHandler marks a token unusable. Revoking an already revoked token
// succeeds.
// POST /v1/auth/revoke - body {token_id}.
// Returns 204 No Content.
func (h *TokenHandler) RevokeHandler(c *gin.Context) {
	var req dto.RevokeTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	tokenID, err := uuid.Parse(req.TokenID)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := h.tokenUseCase.Revoke(c.Request.Context(), tokenID); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Data(http.StatusNoContent, "application/json", nil)
}
