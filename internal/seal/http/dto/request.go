// Package dto provides data transfer objects for the seal control plane API.
package dto

import (
	validation "github.com/jellydator/validation"

	sealDomain "github.com/usphq/usp/internal/seal/domain"
)

// InitRequest contains the Shamir split parameters.
type InitRequest struct {
	Shares    int `json:"shares"`
	Threshold int `json:"threshold"`
}

// Validate checks if the init request is valid.
func (r *InitRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Shares,
			validation.Required,
			validation.Min(sealDomain.MinShares),
			validation.Max(sealDomain.MaxShares),
		),
		validation.Field(&r.Threshold,
			validation.Required,
			validation.Min(sealDomain.MinShares),
			validation.Max(r.Shares),
		),
	)
}

// UnsealRequest carries one base64-encoded share, or reset=true to discard
// the collected shares and start over.
type UnsealRequest struct {
	Share string `json:"share"`
	Reset bool   `json:"reset"`
}

// Validate checks if the unseal request is valid.
func (r *UnsealRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Share,
			validation.Required.When(!r.Reset).Error("cannot be blank unless reset is set"),
		),
	)
}
