// Package http provides HTTP handlers for the seal control plane. Every
// route here sits behind the bootstrap credential middleware.
package http

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/usphq/usp/internal/httputil"
	"github.com/usphq/usp/internal/seal/http/dto"
	sealUseCase "github.com/usphq/usp/internal/seal/usecase"
	customValidation "github.com/usphq/usp/internal/validation"
)

// SealHandler handles HTTP requests for the seal state machine.
type SealHandler struct {
	sealUseCase sealUseCase.SealUseCase
	logger      *slog.Logger
}

// NewSealHandler creates a new seal handler with required dependencies.
func NewSealHandler(sealUseCase sealUseCase.SealUseCase, logger *slog.Logger) *SealHandler {
	return &SealHandler{sealUseCase: sealUseCase, logger: logger}
}

// InitHandler initializes the installation and hands out the Shamir shares.
// POST /v1/seal/init - body {shares, threshold}.
// Returns 200 OK with the shares, shown only in this response.
func (h *SealHandler) InitHandler(c *gin.Context) {
	var req dto.InitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	result, err := h.sealUseCase.Init(c.Request.Context(), req.Shares, req.Threshold)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapInitResultToResponse(result))
}

// UnsealHandler submits one share, or discards the collected shares when the
// body carries reset=true.
// POST /v1/seal/unseal - body {share} or {reset: true}.
// Returns 200 OK with the seal status.
func (h *SealHandler) UnsealHandler(c *gin.Context) {
	var req dto.UnsealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	if req.Reset {
		status, err := h.sealUseCase.ResetUnseal(c.Request.Context())
		if err != nil {
			httputil.HandleErrorGin(c, err, h.logger)
			return
		}
		c.JSON(http.StatusOK, dto.MapStatusToResponse(status))
		return
	}

	share, err := base64.StdEncoding.DecodeString(req.Share)
	if err != nil {
		httputil.HandleValidationErrorGin(c, fmt.Errorf("share must be base64 encoded"), h.logger)
		return
	}

	status, err := h.sealUseCase.SubmitShare(c.Request.Context(), share)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapStatusToResponse(status))
}

// SealHandler seals the installation, zeroizing the key hierarchy after the
// in-flight drain. Sealing a sealed installation succeeds.
// POST /v1/seal/seal
// Returns 200 OK with the seal status.
func (h *SealHandler) SealHandler(c *gin.Context) {
	status, err := h.sealUseCase.Seal(c.Request.Context())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapStatusToResponse(status))
}

// StatusHandler reports the seal snapshot in any state.
// GET /v1/seal/status
func (h *SealHandler) StatusHandler(c *gin.Context) {
	status, err := h.sealUseCase.Status(c.Request.Context())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapStatusToResponse(status))
}
