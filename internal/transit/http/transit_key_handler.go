// Package http provides HTTP handlers for the transit engine.
package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	cryptoDomain "github.com/usphq/usp/internal/crypto/domain"
	"github.com/usphq/usp/internal/httputil"
	transitDomain "github.com/usphq/usp/internal/transit/domain"
	"github.com/usphq/usp/internal/transit/http/dto"
	transitUseCase "github.com/usphq/usp/internal/transit/usecase"
	customValidation "github.com/usphq/usp/internal/validation"
)

// TransitKeyHandler handles HTTP requests for transit key lifecycle.
type TransitKeyHandler struct {
	transitUseCase transitUseCase.TransitUseCase
	logger         *slog.Logger
}

// NewTransitKeyHandler creates a new transit key handler with required dependencies.
func NewTransitKeyHandler(uc transitUseCase.TransitUseCase, logger *slog.Logger) *TransitKeyHandler {
	return &TransitKeyHandler{transitUseCase: uc, logger: logger}
}

// CreateKeyHandler creates a named key at version 1.
// POST /v1/transit/keys/:name - body {type, exportable?, deletion_allowed?}.
// Returns 201 Created with the key metadata.
func (h *TransitKeyHandler) CreateKeyHandler(c *gin.Context) {
	name := c.Param("name")

	var req dto.CreateKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	key, err := h.transitUseCase.CreateKey(c.Request.Context(), &transitUseCase.CreateKeyInput{
		Name:            name,
		Type:            transitDomain.KeyType(req.Type),
		Exportable:      req.Exportable,
		DeletionAllowed: req.DeletionAllowed,
	})
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapKeyToResponse(key, nil))
}

// GetKeyHandler returns key metadata; asymmetric types include the current
// version's public key.
// GET /v1/transit/keys/:name
func (h *TransitKeyHandler) GetKeyHandler(c *gin.Context) {
	key, version, err := h.transitUseCase.GetKey(c.Request.Context(), c.Param("name"))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapKeyToResponse(key, version))
}

// ListKeysHandler returns every key name.
// GET /v1/transit/keys
func (h *TransitKeyHandler) ListKeysHandler(c *gin.Context) {
	names, err := h.transitUseCase.ListKeys(c.Request.Context())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.ListKeysResponse{Keys: names})
}

// RotateKeyHandler generates the next key version.
// POST /v1/transit/keys/:name/rotate
func (h *TransitKeyHandler) RotateKeyHandler(c *gin.Context) {
	key, err := h.transitUseCase.RotateKey(c.Request.Context(), c.Param("name"))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapKeyToResponse(key, nil))
}

// UpdateKeyConfigHandler adjusts the minimum decryption version and the
// deletion flag.
// POST /v1/transit/keys/:name/config - body {min_decryption_version?, deletion_allowed?}.
func (h *TransitKeyHandler) UpdateKeyConfigHandler(c *gin.Context) {
	var req dto.UpdateKeyConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	key, err := h.transitUseCase.UpdateKeyConfig(c.Request.Context(), c.Param("name"), &transitUseCase.KeyConfigUpdate{
		MinDecryptionVersion: req.MinDecryptionVersion,
		DeletionAllowed:      req.DeletionAllowed,
	})
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapKeyToResponse(key, nil))
}

// DeleteKeyHandler removes the key and all versions when deletion is allowed.
// DELETE /v1/transit/keys/:name
// Returns 204 No Content.
func (h *TransitKeyHandler) DeleteKeyHandler(c *gin.Context) {
	if err := h.transitUseCase.DeleteKey(c.Request.Context(), c.Param("name")); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Data(http.StatusNoContent, "application/json", nil)
}

// ExportKeyHandler returns plaintext material of one version; ?version=N
// selects a specific one, the current version otherwise.
// GET /v1/transit/keys/:name/export
func (h *TransitKeyHandler) ExportKeyHandler(c *gin.Context) {
	version := 0
	if versionStr := c.Query("version"); versionStr != "" {
		parsed, err := strconv.Atoi(versionStr)
		if err != nil || parsed < 1 {
			httputil.HandleValidationErrorGin(c, fmt.Errorf("invalid version parameter: must be a positive integer"), h.logger)
			return
		}
		version = parsed
	}

	exported, err := h.transitUseCase.Export(c.Request.Context(), c.Param("name"), version)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	defer cryptoDomain.Zero(exported.Material)

	c.JSON(http.StatusOK, dto.MapExportedKey(exported))
}
