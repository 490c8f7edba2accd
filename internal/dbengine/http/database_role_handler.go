package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/usphq/usp/internal/dbengine/http/dto"
	dbengineUseCase "github.com/usphq/usp/internal/dbengine/usecase"
	"github.com/usphq/usp/internal/httputil"
	customValidation "github.com/usphq/usp/internal/validation"
)

// DatabaseRoleHandler handles HTTP requests for credential roles.
type DatabaseRoleHandler struct {
	dbEngineUseCase dbengineUseCase.DBEngineUseCase
	logger          *slog.Logger
}

// NewDatabaseRoleHandler creates a new database role handler with required dependencies.
func NewDatabaseRoleHandler(uc dbengineUseCase.DBEngineUseCase, logger *slog.Logger) *DatabaseRoleHandler {
	return &DatabaseRoleHandler{dbEngineUseCase: uc, logger: logger}
}

// CreateRoleHandler creates a credential role under a configuration.
// POST /v1/database/roles/:name/:role - body {creation_statements, revocation_statements?, default_ttl?, max_ttl?}.
// Returns 201 Created with the role.
func (h *DatabaseRoleHandler) CreateRoleHandler(c *gin.Context) {
	var req dto.CreateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	role, err := h.dbEngineUseCase.CreateRole(c.Request.Context(), c.Param("name"), req.ToInput(c.Param("role")))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapRoleToResponse(role))
}

// GetRoleHandler returns one role.
// GET /v1/database/roles/:name/:role
func (h *DatabaseRoleHandler) GetRoleHandler(c *gin.Context) {
	role, err := h.dbEngineUseCase.GetRole(c.Request.Context(), c.Param("name"), c.Param("role"))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapRoleToResponse(role))
}

// ListRolesHandler returns every live role under a configuration.
// GET /v1/database/roles/:name
func (h *DatabaseRoleHandler) ListRolesHandler(c *gin.Context) {
	roles, err := h.dbEngineUseCase.ListRoles(c.Request.Context(), c.Param("name"))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapRolesToResponse(roles))
}
