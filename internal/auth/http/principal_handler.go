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

// PrincipalHandler handles HTTP requests for principal management.
type PrincipalHandler struct {
	principalUseCase authUseCase.PrincipalUseCase
	logger           *slog.Logger
}

// NewPrincipalHandler creates a new principal handler with required dependencies.
func NewPrincipalHandler(principalUseCase authUseCase.PrincipalUseCase, logger *slog.Logger) *PrincipalHandler {
	return &PrincipalHandler{principalUseCase: principalUseCase, logger: logger}
}

// principalID parses the id URL parameter.
func principalID(c *gin.Context) (uuid.UUID, error) {
	return uuid.Parse(c.Param("id"))
}

// CreateHandler registers a new principal.
// POST /v1/auth/principals - body {name, roles, attributes, active?}.
// Returns 201 Created with the generated secret, shown only in this
// response.
func (h *PrincipalHandler) CreateHandler(c *gin.Context) {
	var req dto.CreatePrincipalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	output, err := h.principalUseCase.Create(c.Request.Context(), &authDomain.CreatePrincipalInput{
		Name:       req.Name,
		Roles:      req.Roles,
		Attributes: req.Attributes,
		Active:     active,
	})
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapPrincipalToCreateResponse(req.Name, output))
}

// GetHandler returns one principal.
// GET /v1/auth/principals/:id
func (h *PrincipalHandler) GetHandler(c *gin.Context) {
	id, err := principalID(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	principal, err := h.principalUseCase.Get(c.Request.Context(), id)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapPrincipalToResponse(principal))
}

// ListHandler returns every principal ordered by name.
// GET /v1/auth/principals
func (h *PrincipalHandler) ListHandler(c *gin.Context) {
	principals, err := h.principalUseCase.List(c.Request.Context())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapPrincipalsToListResponse(principals))
}

// UpdateHandler replaces the mutable fields of a principal.
// PUT /v1/auth/principals/:id - body {roles, attributes, active}.
// Returns 200 OK with the updated principal.
func (h *PrincipalHandler) UpdateHandler(c *gin.Context) {
	id, err := principalID(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	var req dto.UpdatePrincipalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	err = h.principalUseCase.Update(c.Request.Context(), id, &authDomain.UpdatePrincipalInput{
		Roles:      req.Roles,
		Attributes: req.Attributes,
		Active:     req.Active,
	})
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	principal, err := h.principalUseCase.Get(c.Request.Context(), id)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapPrincipalToResponse(principal))
}

// DeleteHandler deactivates a principal. The record stays for the audit
// trail.
// DELETE /v1/auth/principals/:id
// Returns 204 No Content.
func (h *PrincipalHandler) DeleteHandler(c *gin.Context) {
	id, err := principalID(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := h.principalUseCase.Delete(c.Request.Context(), id); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Data(http.StatusNoContent, "application/json", nil)
}
