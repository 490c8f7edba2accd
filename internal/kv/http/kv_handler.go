// Package http provides HTTP handlers for the key-value engine.
package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	cryptoDomain "github.com/usphq/usp/internal/crypto/domain"
	"github.com/usphq/usp/internal/httputil"
	"github.com/usphq/usp/internal/kv/http/dto"
	kvUseCase "github.com/usphq/usp/internal/kv/usecase"
	customValidation "github.com/usphq/usp/internal/validation"
)

// Authorizer is the slice of the policy evaluator the handler consults for
// capabilities that go beyond the route's baseline, such as reading
// soft-deleted versions.
type Authorizer interface {
	Allow(ctx context.Context, action, resourceType, resourceID string) error
}

// KVHandler handles HTTP requests for versioned secret operations.
type KVHandler struct {
	kvUseCase  kvUseCase.KVUseCase
	authorizer Authorizer
	logger     *slog.Logger
}

// NewKVHandler creates a new key-value handler with required dependencies.
func NewKVHandler(kv kvUseCase.KVUseCase, authorizer Authorizer, logger *slog.Logger) *KVHandler {
	return &KVHandler{kvUseCase: kv, authorizer: authorizer, logger: logger}
}

// pathParam extracts the secret path from the wildcard URL parameter.
func pathParam(c *gin.Context) (string, bool) {
	path := strings.TrimPrefix(c.Param("path"), "/")
	return path, path != ""
}

// WriteHandler creates a new secret version.
// POST /v1/kv/data/*path - body {data, cas?}.
// Returns 200 OK with the new version metadata.
func (h *KVHandler) WriteHandler(c *gin.Context) {
	path, ok := pathParam(c)
	if !ok {
		httputil.HandleValidationErrorGin(c, fmt.Errorf("path cannot be empty"), h.logger)
		return
	}

	var req dto.WriteSecretRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	secret, err := h.kvUseCase.Write(c.Request.Context(), &kvUseCase.WriteInput{
		Path:  path,
		Value: req.Data,
		CAS:   req.CAS,
	})
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapSecretToWriteResponse(secret))
}

// ReadHandler decrypts one version; ?version=N selects a specific one and
// ?include_deleted=true reads through soft deletion when the caller holds the
// read-deleted capability.
// GET /v1/kv/data/*path
func (h *KVHandler) ReadHandler(c *gin.Context) {
	path, ok := pathParam(c)
	if !ok {
		httputil.HandleValidationErrorGin(c, fmt.Errorf("path cannot be empty"), h.logger)
		return
	}

	version := 0
	if versionStr := c.Query("version"); versionStr != "" {
		parsed, err := strconv.Atoi(versionStr)
		if err != nil || parsed < 1 {
			httputil.HandleValidationErrorGin(c, fmt.Errorf("invalid version parameter: must be a positive integer"), h.logger)
			return
		}
		version = parsed
	}

	readDeleted := c.Query("include_deleted") == "true"
	if readDeleted {
		if err := h.authorizer.Allow(c.Request.Context(), "read-deleted", "kv", path); err != nil {
			httputil.HandleErrorGin(c, err, h.logger)
			return
		}
	}

	result, err := h.kvUseCase.Read(c.Request.Context(), path, version, readDeleted)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	defer cryptoDomain.Zero(result.Version.Plaintext)

	c.JSON(http.StatusOK, dto.MapVersionToReadResponse(result.Secret, result.Version))
}

// SoftDeleteHandler stamps versions as deleted; with an empty body the
// current version is stamped.
// DELETE /v1/kv/data/*path - optional body {versions}.
// Returns 204 No Content.
func (h *KVHandler) SoftDeleteHandler(c *gin.Context) {
	h.versionMutation(c, h.kvUseCase.SoftDelete, false)
}

// UndeleteHandler clears the soft-delete marker on the listed versions.
// POST /v1/kv/undelete/*path - body {versions}.
// Returns 204 No Content.
func (h *KVHandler) UndeleteHandler(c *gin.Context) {
	h.versionMutation(c, h.kvUseCase.Undelete, true)
}

// DestroyHandler irreversibly erases the listed versions.
// POST /v1/kv/destroy/*path - body {versions}.
// Returns 204 No Content.
func (h *KVHandler) DestroyHandler(c *gin.Context) {
	h.versionMutation(c, h.kvUseCase.Destroy, true)
}

// versionMutation is the shared shape of soft-delete, undelete, and destroy.
// requireVersions distinguishes operations that must name explicit targets.
func (h *KVHandler) versionMutation(
	c *gin.Context,
	op func(ctx context.Context, path string, versions []int) error,
	requireVersions bool,
) {
	path, ok := pathParam(c)
	if !ok {
		httputil.HandleValidationErrorGin(c, fmt.Errorf("path cannot be empty"), h.logger)
		return
	}

	var req dto.VersionsRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httputil.HandleValidationErrorGin(c, err, h.logger)
			return
		}
		if err := req.Validate(); err != nil {
			httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
			return
		}
	}
	if requireVersions && len(req.Versions) == 0 {
		httputil.HandleValidationErrorGin(c, fmt.Errorf("versions cannot be empty"), h.logger)
		return
	}

	if err := op(c.Request.Context(), path, req.Versions); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Data(http.StatusNoContent, "application/json", nil)
}

// MetadataHandler returns the version map for a path, or the immediate
// children when ?list=true.
// GET /v1/kv/metadata/*path
func (h *KVHandler) MetadataHandler(c *gin.Context) {
	path := strings.TrimPrefix(c.Param("path"), "/")

	if c.Query("list") == "true" {
		keys, err := h.kvUseCase.List(c.Request.Context(), path)
		if err != nil {
			httputil.HandleErrorGin(c, err, h.logger)
			return
		}
		c.JSON(http.StatusOK, dto.ListSecretsResponse{Keys: keys})
		return
	}

	if path == "" {
		httputil.HandleValidationErrorGin(c, fmt.Errorf("path cannot be empty"), h.logger)
		return
	}

	metadata, err := h.kvUseCase.Metadata(c.Request.Context(), path)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapToMetadataResponse(metadata.Secret, metadata.Versions))
}

// UpdateMetadataHandler adjusts the retention window and CAS requirement.
// POST /v1/kv/metadata/*path - body {max_versions?, cas_required?}.
func (h *KVHandler) UpdateMetadataHandler(c *gin.Context) {
	path, ok := pathParam(c)
	if !ok {
		httputil.HandleValidationErrorGin(c, fmt.Errorf("path cannot be empty"), h.logger)
		return
	}

	var req dto.UpdateMetadataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	secret, err := h.kvUseCase.UpdateMetadata(c.Request.Context(), path, &kvUseCase.MetadataUpdate{
		MaxVersions: req.MaxVersions,
		CASRequired: req.CASRequired,
	})
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	metadata, err := h.kvUseCase.Metadata(c.Request.Context(), secret.Path)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, dto.MapToMetadataResponse(metadata.Secret, metadata.Versions))
}

// DestroyMetadataHandler removes the secret entity and every version.
// DELETE /v1/kv/metadata/*path
// Returns 204 No Content.
func (h *KVHandler) DestroyMetadataHandler(c *gin.Context) {
	path, ok := pathParam(c)
	if !ok {
		httputil.HandleValidationErrorGin(c, fmt.Errorf("path cannot be empty"), h.logger)
		return
	}

	if err := h.kvUseCase.DestroyMetadata(c.Request.Context(), path); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Data(http.StatusNoContent, "application/json", nil)
}
