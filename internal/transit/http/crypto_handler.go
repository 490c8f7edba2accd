package http

import (
	"encoding/base64"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	cryptoDomain "github.com/usphq/usp/internal/crypto/domain"
	"github.com/usphq/usp/internal/httputil"
	"github.com/usphq/usp/internal/transit/http/dto"
	transitUseCase "github.com/usphq/usp/internal/transit/usecase"
	customValidation "github.com/usphq/usp/internal/validation"
)

// CryptoHandler handles HTTP requests for the transit data-plane: encrypt,
// decrypt, sign and verify.
type CryptoHandler struct {
	transitUseCase transitUseCase.TransitUseCase
	logger         *slog.Logger
}

// NewCryptoHandler creates a new crypto handler with required dependencies.
func NewCryptoHandler(uc transitUseCase.TransitUseCase, logger *slog.Logger) *CryptoHandler {
	return &CryptoHandler{transitUseCase: uc, logger: logger}
}

// EncryptHandler encrypts base64 plaintext under the current key version.
// POST /v1/transit/encrypt/:name - body {plaintext, context?}.
func (h *CryptoHandler) EncryptHandler(c *gin.Context) {
	var req dto.EncryptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	plaintext, _ := base64.StdEncoding.DecodeString(req.Plaintext)
	defer cryptoDomain.Zero(plaintext)
	dataContext, _ := base64.StdEncoding.DecodeString(req.Context)

	ciphertext, err := h.transitUseCase.Encrypt(c.Request.Context(), c.Param("name"), plaintext, dataContext)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.EncryptResponse{Ciphertext: ciphertext})
}

// DecryptHandler decrypts a wire ciphertext with the version it names.
// POST /v1/transit/decrypt/:name - body {ciphertext, context?}.
func (h *CryptoHandler) DecryptHandler(c *gin.Context) {
	var req dto.DecryptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	dataContext, _ := base64.StdEncoding.DecodeString(req.Context)

	plaintext, err := h.transitUseCase.Decrypt(c.Request.Context(), c.Param("name"), req.Ciphertext, dataContext)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	defer cryptoDomain.Zero(plaintext)

	c.JSON(http.StatusOK, dto.DecryptResponse{Plaintext: base64.StdEncoding.EncodeToString(plaintext)})
}

// SignHandler signs a base64 message with the current version of an
// asymmetric key.
// POST /v1/transit/sign/:name - body {input}.
func (h *CryptoHandler) SignHandler(c *gin.Context) {
	var req dto.SignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	message, _ := base64.StdEncoding.DecodeString(req.Input)

	signature, err := h.transitUseCase.Sign(c.Request.Context(), c.Param("name"), message)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.SignResponse{Signature: signature})
}

// VerifyHandler checks a wire signature against a base64 message. A mismatch
// is a false result, not an error.
// POST /v1/transit/verify/:name - body {input, signature}.
func (h *CryptoHandler) VerifyHandler(c *gin.Context) {
	var req dto.VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	message, _ := base64.StdEncoding.DecodeString(req.Input)

	valid, err := h.transitUseCase.Verify(c.Request.Context(), c.Param("name"), message, req.Signature)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.VerifyResponse{Valid: valid})
}
