// Package dto provides data transfer objects for the key-value engine API.
package dto

import (
	"encoding/json"

	validation "github.com/jellydator/validation"
)

// WriteSecretRequest contains the parameters for writing a new secret version.
// Data is an arbitrary JSON document; CAS is the optional check-and-set
// parameter that must equal the current version (zero for a new path).
type WriteSecretRequest struct {
	Data json.RawMessage `json:"data"`
	CAS  *int            `json:"cas,omitempty"`
}

// Validate checks if the write request is valid.
func (r *WriteSecretRequest) Validate() error {
	return validation.Errors{
		"data": validation.Validate(r.Data, validation.Required),
		"cas": validation.Validate(r.CAS,
			validation.When(r.CAS != nil, validation.Min(0).Error("must not be negative")),
		),
	}.Filter()
}

// VersionsRequest lists target versions for soft-delete, undelete, and
// destroy operations.
type VersionsRequest struct {
	Versions []int `json:"versions"`
}

// Validate checks if the versions request is valid.
func (r *VersionsRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Versions, validation.Each(validation.Min(1))),
	)
}

// UpdateMetadataRequest adjusts the retention window and CAS requirement.
type UpdateMetadataRequest struct {
	MaxVersions *int  `json:"max_versions,omitempty"`
	CASRequired *bool `json:"cas_required,omitempty"`
}

// Validate checks if the metadata update request is valid.
func (r *UpdateMetadataRequest) Validate() error {
	return validation.Errors{
		"max_versions": validation.Validate(r.MaxVersions,
			validation.When(r.MaxVersions != nil, validation.Min(1)),
		),
	}.Filter()
}
