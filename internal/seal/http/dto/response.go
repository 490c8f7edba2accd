package dto

import (
	"encoding/base64"

	sealDomain "github.com/usphq/usp/internal/seal/domain"
	sealUseCase "github.com/usphq/usp/internal/seal/usecase"
)

// InitResponse carries the one-time share handout. Shares appear here
// exactly once and are never retrievable again.
type InitResponse struct {
	Shares    []string `json:"shares"`
	Threshold int      `json:"threshold"`
}

// StatusResponse is the externally observable seal snapshot.
type StatusResponse struct {
	State       sealDomain.State    `json:"state"`
	Initialized bool                `json:"initialized"`
	SealType    sealDomain.SealType `json:"seal_type,omitempty"`
	Progress    int                 `json:"progress"`
	Threshold   int                 `json:"threshold"`
	Shares      int                 `json:"shares"`
}

// MapInitResultToResponse maps the share handout to its API shape, encoding
// each share as base64.
func MapInitResultToResponse(result *sealUseCase.InitResult) *InitResponse {
	response := &InitResponse{
		Shares:    make([]string, 0, len(result.Shares)),
		Threshold: result.Threshold,
	}
	for _, share := range result.Shares {
		response.Shares = append(response.Shares, base64.StdEncoding.EncodeToString(share))
	}
	return response
}

// MapStatusToResponse maps a seal status to its API shape.
func MapStatusToResponse(status *sealDomain.Status) *StatusResponse {
	return &StatusResponse{
		State:       status.State,
		Initialized: status.Initialized,
		SealType:    status.SealType,
		Progress:    status.Progress,
		Threshold:   status.Threshold,
		Shares:      status.Shares,
	}
}
