// Package http provides HTTP handlers for policy management and authorization
// checks.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	authzDomain "github.com/usphq/usp/internal/authz/domain"
	"github.com/usphq/usp/internal/authz/http/dto"
	authzUseCase "github.com/usphq/usp/internal/authz/usecase"
	"github.com/usphq/usp/internal/httputil"
	customValidation "github.com/usphq/usp/internal/validation"
)

// PolicyHandler handles HTTP requests for policy lifecycle.
type PolicyHandler struct {
	authzUseCase authzUseCase.AuthzUseCase
	logger       *slog.Logger
}

// NewPolicyHandler creates a new policy handler with required dependencies.
func NewPolicyHandler(uc authzUseCase.AuthzUseCase, logger *slog.Logger) *PolicyHandler {
	return &PolicyHandler{authzUseCase: uc, logger: logger}
}

// CreatePolicyHandler stores a new policy under the id from the URL.
// POST /v1/policies/:id - body {type, priority?, active?, body}.
// Returns 201 Created with the stored policy.
func (h *PolicyHandler) CreatePolicyHandler(c *gin.Context) {
	var req dto.CreatePolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	policy, err := h.authzUseCase.CreatePolicy(c.Request.Context(), &authzUseCase.CreatePolicyInput{
		ID:       c.Param("id"),
		Type:     authzDomain.PolicyType(req.Type),
		Priority: req.Priority,
		Active:   req.IsActive(),
		Body:     []byte(req.Body),
	})
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapPolicyToResponse(policy))
}

// GetPolicyHandler returns one policy.
// GET /v1/policies/:id
func (h *PolicyHandler) GetPolicyHandler(c *gin.Context) {
	policy, err := h.authzUseCase.GetPolicy(c.Request.Context(), c.Param("id"))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapPolicyToResponse(policy))
}

// ListPoliciesHandler returns every policy.
// GET /v1/policies
func (h *PolicyHandler) ListPoliciesHandler(c *gin.Context) {
	policies, err := h.authzUseCase.ListPolicies(c.Request.Context())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapPoliciesToResponse(policies))
}

// UpdatePolicyHandler applies the provided fields to a policy.
// PATCH /v1/policies/:id - body {priority?, active?, body?}.
func (h *PolicyHandler) UpdatePolicyHandler(c *gin.Context) {
	var req dto.UpdatePolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	update := &authzUseCase.PolicyUpdate{
		Priority: req.Priority,
		Active:   req.Active,
	}
	if req.Body != nil {
		update.Body = []byte(req.Body)
	}

	policy, err := h.authzUseCase.UpdatePolicy(c.Request.Context(), c.Param("id"), update)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapPolicyToResponse(policy))
}

// DeletePolicyHandler removes a policy.
// DELETE /v1/policies/:id
// Returns 204 No Content.
func (h *PolicyHandler) DeletePolicyHandler(c *gin.Context) {
	if err := h.authzUseCase.DeletePolicy(c.Request.Context(), c.Param("id")); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Data(http.StatusNoContent, "application/json", nil)
}
