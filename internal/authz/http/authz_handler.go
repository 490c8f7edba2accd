package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/usphq/usp/internal/authz/http/dto"
	authzUseCase "github.com/usphq/usp/internal/authz/usecase"
	"github.com/usphq/usp/internal/httputil"
	customValidation "github.com/usphq/usp/internal/validation"
)

// AuthzHandler handles HTTP requests for authorization checks.
type AuthzHandler struct {
	authzUseCase authzUseCase.AuthzUseCase
	logger       *slog.Logger
}

// NewAuthzHandler creates a new authorization handler with required dependencies.
func NewAuthzHandler(uc authzUseCase.AuthzUseCase, logger *slog.Logger) *AuthzHandler {
	return &AuthzHandler{authzUseCase: uc, logger: logger}
}

// CheckHandler evaluates a decision request against every active policy and
// returns the verdict. A deny is a successful evaluation, not an error.
// POST /v1/authz/check - body {subject, action, resource, environment?}.
func (h *AuthzHandler) CheckHandler(c *gin.Context) {
	var req dto.CheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	decision, err := h.authzUseCase.Check(c.Request.Context(), req.ToDecisionRequest())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapDecisionToResponse(decision))
}
