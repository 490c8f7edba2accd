// Package http provides HTTP handlers for the database engine.
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

// DatabaseConfigHandler handles HTTP requests for database configurations.
type DatabaseConfigHandler struct {
	dbEngineUseCase dbengineUseCase.DBEngineUseCase
	logger          *slog.Logger
}

// NewDatabaseConfigHandler creates a new database config handler with required dependencies.
func NewDatabaseConfigHandler(uc dbengineUseCase.DBEngineUseCase, logger *slog.Logger) *DatabaseConfigHandler {
	return &DatabaseConfigHandler{dbEngineUseCase: uc, logger: logger}
}

// ConfigureHandler upserts a named database configuration.
// POST /v1/database/config/:name - body {plugin, connection_url, username, password, verify_connection?}.
// Credentials are stored encrypted and never returned.
func (h *DatabaseConfigHandler) ConfigureHandler(c *gin.Context) {
	name := c.Param("name")

	var req dto.ConfigureDatabaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	config, err := h.dbEngineUseCase.ConfigureDatabase(c.Request.Context(), req.ToInput(name))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapConfigToResponse(config))
}

// GetConfigHandler returns one configuration without its credentials.
// GET /v1/database/config/:name
func (h *DatabaseConfigHandler) GetConfigHandler(c *gin.Context) {
	config, err := h.dbEngineUseCase.GetDatabaseConfig(c.Request.Context(), c.Param("name"))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapConfigToResponse(config))
}

// ListConfigsHandler returns every live configuration.
// GET /v1/database/config
func (h *DatabaseConfigHandler) ListConfigsHandler(c *gin.Context) {
	configs, err := h.dbEngineUseCase.ListDatabaseConfigs(c.Request.Context())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapConfigsToResponse(configs))
}

// DeleteConfigHandler revokes every active lease, then removes the
// configuration and its roles.
// DELETE /v1/database/config/:name
// Returns 204 No Content.
func (h *DatabaseConfigHandler) DeleteConfigHandler(c *gin.Context) {
	if err := h.dbEngineUseCase.DeleteDatabaseConfig(c.Request.Context(), c.Param("name")); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Data(http.StatusNoContent, "application/json", nil)
}

// RotateRootHandler rotates the admin password on the backing system. The new
// credential is known only to the platform.
// POST /v1/database/rotate-root/:name
// Returns 204 No Content.
func (h *DatabaseConfigHandler) RotateRootHandler(c *gin.Context) {
	if err := h.dbEngineUseCase.RotateRootCredentials(c.Request.Context(), c.Param("name")); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Data(http.StatusNoContent, "application/json", nil)
}
