// Package httputil provides HTTP utility functions for request and response handling.
package httputil

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"

	apperrors "github.com/usphq/usp/internal/errors"
)

// MakeJSONResponse writes a JSON response with the given status code. Used by
// middleware that runs below the Gin layer (rate limiting, health probes).
func MakeJSONResponse(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}

// ErrorResponse represents a structured error response. Error carries the
// stable machine-readable code, Message the human reason, and RequestID the
// correlation id assigned at the edge.
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// HandleErrorGin maps domain errors to HTTP status codes and returns a JSON response using Gin.
// Status mapping is part of the wire contract:
//
//	not_found, deleted          404
//	destroyed                   410
//	conflict, cas_mismatch      409
//	invalid_request             422
//	unauthorized                401
//	forbidden                   403
//	rate_limited                429
//	sealed, audit_chain_broken  503
//	transient                   503
//	connector_failure           502
//	unsupported                 501
//	everything else             500
func HandleErrorGin(c *gin.Context, err error, logger *slog.Logger) {
	if err == nil {
		return
	}

	var statusCode int
	var errorResponse ErrorResponse

	switch {
	case apperrors.Is(err, apperrors.ErrNotFound):
		statusCode = http.StatusNotFound
		errorResponse = ErrorResponse{
			Error:   apperrors.CodeNotFound,
			Message: "The requested resource was not found",
		}

	case apperrors.Is(err, apperrors.ErrDeleted):
		statusCode = http.StatusNotFound
		errorResponse = ErrorResponse{
			Error:   apperrors.CodeDeleted,
			Message: "The requested version is deleted",
		}

	case apperrors.Is(err, apperrors.ErrDestroyed):
		statusCode = http.StatusGone
		errorResponse = ErrorResponse{
			Error:   apperrors.CodeDestroyed,
			Message: "The requested version has been destroyed",
		}

	case apperrors.Is(err, apperrors.ErrCASMismatch):
		statusCode = http.StatusConflict
		errorResponse = ErrorResponse{
			Error:   apperrors.CodeCASMismatch,
			Message: "Check-and-set parameter did not match the current version",
		}

	case apperrors.Is(err, apperrors.ErrConflict):
		statusCode = http.StatusConflict
		errorResponse = ErrorResponse{
			Error:   apperrors.CodeConflict,
			Message: "A conflict occurred with existing data",
		}

	case apperrors.Is(err, apperrors.ErrInvalidInput):
		statusCode = http.StatusUnprocessableEntity
		errorResponse = ErrorResponse{
			Error:   apperrors.CodeInvalidInput,
			Message: err.Error(),
		}

	case apperrors.Is(err, apperrors.ErrUnauthorized):
		statusCode = http.StatusUnauthorized
		errorResponse = ErrorResponse{
			Error:   apperrors.CodeUnauthorized,
			Message: "Authentication is required",
		}

	case apperrors.Is(err, apperrors.ErrForbidden):
		// Fixed message: a denied read must look identical whether or not
		// the resource exists.
		statusCode = http.StatusForbidden
		errorResponse = ErrorResponse{
			Error:   apperrors.CodeForbidden,
			Message: "Permission denied",
		}

	case apperrors.Is(err, apperrors.ErrLocked):
		statusCode = http.StatusTooManyRequests
		errorResponse = ErrorResponse{
			Error:   apperrors.CodeLocked,
			Message: "Too many requests or failed attempts, retry later",
		}

	case apperrors.Is(err, apperrors.ErrSealed):
		statusCode = http.StatusServiceUnavailable
		errorResponse = ErrorResponse{
			Error:   apperrors.CodeSealed,
			Message: "The platform is sealed",
		}

	case apperrors.Is(err, apperrors.ErrChainBroken):
		statusCode = http.StatusServiceUnavailable
		errorResponse = ErrorResponse{
			Error:   apperrors.CodeChainBroken,
			Message: "Audit chain verification failed, writes are suspended",
		}

	case apperrors.Is(err, apperrors.ErrKeyVersionTooOld):
		statusCode = http.StatusBadRequest
		errorResponse = ErrorResponse{
			Error:   apperrors.CodeKeyVersionTooOld,
			Message: "Ciphertext uses a key version below the minimum decryption version",
		}

	case apperrors.Is(err, apperrors.ErrConnector):
		// Plugin-specific details go to the audit log, not the caller.
		statusCode = http.StatusBadGateway
		errorResponse = ErrorResponse{
			Error:   apperrors.CodeConnector,
			Message: "The backing system rejected the operation",
		}

	case apperrors.Is(err, apperrors.ErrUnsupported):
		statusCode = http.StatusNotImplemented
		errorResponse = ErrorResponse{
			Error:   apperrors.CodeUnsupported,
			Message: "The operation is not supported for this resource",
		}

	case apperrors.Is(err, apperrors.ErrTransient):
		statusCode = http.StatusServiceUnavailable
		errorResponse = ErrorResponse{
			Error:   apperrors.CodeTransient,
			Message: "A transient failure occurred, retry with the same request id",
		}

	default:
		// For unknown/internal errors, don't expose details to the client
		statusCode = http.StatusInternalServerError
		errorResponse = ErrorResponse{
			Error:   apperrors.CodeInternal,
			Message: "An internal error occurred",
		}
	}

	errorResponse.RequestID = requestid.Get(c)

	// Log the full error details (including wrapped errors)
	if logger != nil {
		logger.Error("request failed",
			slog.Int("status_code", statusCode),
			slog.String("error_code", errorResponse.Error),
			slog.String("request_id", errorResponse.RequestID),
			slog.Any("error", err),
		)
	}

	c.JSON(statusCode, errorResponse)
}

// HandleBadRequestGin writes a 400 Bad Request response for malformed JSON or parameters using Gin.
func HandleBadRequestGin(c *gin.Context, err error, logger *slog.Logger) {
	if logger != nil {
		logger.Warn("bad request", slog.Any("error", err))
	}

	errorResponse := ErrorResponse{
		Error:     "bad_request",
		Message:   err.Error(),
		RequestID: requestid.Get(c),
	}

	c.JSON(http.StatusBadRequest, errorResponse)
}

// HandleValidationErrorGin writes a 422 Unprocessable Entity response for validation errors using Gin.
func HandleValidationErrorGin(c *gin.Context, err error, logger *slog.Logger) {
	if logger != nil {
		logger.Warn("validation failed", slog.Any("error", err))
	}

	errorResponse := ErrorResponse{
		Error:     apperrors.CodeInvalidInput,
		Message:   err.Error(),
		RequestID: requestid.Get(c),
	}

	c.JSON(http.StatusUnprocessableEntity, errorResponse)
}
