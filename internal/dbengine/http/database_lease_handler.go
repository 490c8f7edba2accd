package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/usphq/usp/internal/dbengine/http/dto"
	dbengineUseCase "github.com/usphq/usp/internal/dbengine/usecase"
	"github.com/usphq/usp/internal/httputil"
	customValidation "github.com/usphq/usp/internal/validation"
)

// DatabaseLeaseHandler handles HTTP requests for credential issuance and
// lease lifecycle. Lease ids contain slashes, so renew and revoke take the id
// in the request body rather than the path.
type DatabaseLeaseHandler struct {
	dbEngineUseCase dbengineUseCase.DBEngineUseCase
	logger          *slog.Logger
}

// NewDatabaseLeaseHandler creates a new database lease handler with required dependencies.
func NewDatabaseLeaseHandler(uc dbengineUseCase.DBEngineUseCase, logger *slog.Logger) *DatabaseLeaseHandler {
	return &DatabaseLeaseHandler{dbEngineUseCase: uc, logger: logger}
}

// GenerateCredentialsHandler provisions a dynamic user and returns the
// credential. The password is returned exactly once.
// GET /v1/database/creds/:name/:role
func (h *DatabaseLeaseHandler) GenerateCredentialsHandler(c *gin.Context) {
	credential, err := h.dbEngineUseCase.GenerateCredentials(c.Request.Context(), c.Param("name"), c.Param("role"))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapCredentialToResponse(credential))
}

// RenewLeaseHandler extends a lease.
// POST /v1/database/leases/renew - body {lease_id, increment?} with increment in seconds.
func (h *DatabaseLeaseHandler) RenewLeaseHandler(c *gin.Context) {
	var req dto.RenewLeaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	lease, err := h.dbEngineUseCase.RenewLease(c.Request.Context(), req.LeaseID, time.Duration(req.Increment)*time.Second)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapLeaseToResponse(lease))
}

// RevokeLeaseHandler revokes a lease and drops its user. Revoking an already
// revoked lease succeeds.
// POST /v1/database/leases/revoke - body {lease_id}.
// Returns 204 No Content.
func (h *DatabaseLeaseHandler) RevokeLeaseHandler(c *gin.Context) {
	var req dto.RevokeLeaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	if err := h.dbEngineUseCase.RevokeLease(c.Request.Context(), req.LeaseID); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Data(http.StatusNoContent, "application/json", nil)
}
