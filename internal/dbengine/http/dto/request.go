// Package dto provides data transfer objects for the database engine API.
package dto

import (
	"time"

	validation "github.com/jellydator/validation"

	dbengineDomain "github.com/usphq/usp/internal/dbengine/domain"
	dbengineUseCase "github.com/usphq/usp/internal/dbengine/usecase"
)

// ConfigureDatabaseRequest contains the parameters for configuring a database
// connection. The URL may carry {{username}} and {{password}} placeholders
// substituted with the admin credentials before dialing.
type ConfigureDatabaseRequest struct {
	Plugin           string `json:"plugin"`
	ConnectionURL    string `json:"connection_url"`
	Username         string `json:"username"`
	Password         string `json:"password"`
	VerifyConnection *bool  `json:"verify_connection,omitempty"`
	MaxOpenConns     int    `json:"max_open_connections,omitempty"`
	MaxIdleConns     int    `json:"max_idle_connections,omitempty"`
}

// Validate checks if the configure request is valid.
func (r *ConfigureDatabaseRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Plugin, validation.Required, validation.By(validPlugin)),
		validation.Field(&r.ConnectionURL, validation.Required),
		validation.Field(&r.MaxOpenConns, validation.Min(0)),
		validation.Field(&r.MaxIdleConns, validation.Min(0)),
	)
}

func validPlugin(value any) error {
	plugin, _ := value.(string)
	if !dbengineDomain.Plugin(plugin).Valid() {
		return validation.NewError("validation_plugin", "must be a supported database plugin")
	}
	return nil
}

// ShouldVerify reports the verification flag, defaulting to true so a typo in
// the connection URL is caught at configure time rather than at first issue.
func (r *ConfigureDatabaseRequest) ShouldVerify() bool {
	if r.VerifyConnection == nil {
		return true
	}
	return *r.VerifyConnection
}

// ToInput maps the request to the engine's input for the given name.
func (r *ConfigureDatabaseRequest) ToInput(name string) *dbengineUseCase.ConfigureDatabaseInput {
	return &dbengineUseCase.ConfigureDatabaseInput{
		Name:             name,
		Plugin:           dbengineDomain.Plugin(r.Plugin),
		URL:              r.ConnectionURL,
		AdminUsername:    r.Username,
		AdminPassword:    r.Password,
		VerifyConnection: r.ShouldVerify(),
		MaxOpenConns:     r.MaxOpenConns,
		MaxIdleConns:     r.MaxIdleConns,
	}
}

// CreateRoleRequest contains the parameters for a credential role. TTLs are
// expressed in seconds.
type CreateRoleRequest struct {
	CreationStatements   []string `json:"creation_statements"`
	RevocationStatements []string `json:"revocation_statements,omitempty"`
	RenewStatements      []string `json:"renew_statements,omitempty"`
	DefaultTTL           int64    `json:"default_ttl,omitempty"`
	MaxTTL               int64    `json:"max_ttl,omitempty"`
}

// Validate checks if the create role request is valid.
func (r *CreateRoleRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.CreationStatements, validation.Required),
		validation.Field(&r.DefaultTTL, validation.Min(int64(0))),
		validation.Field(&r.MaxTTL, validation.Min(int64(0))),
	)
}

// ToInput maps the request to the engine's input for the given role name.
func (r *CreateRoleRequest) ToInput(roleName string) *dbengineUseCase.CreateRoleInput {
	return &dbengineUseCase.CreateRoleInput{
		Name:                 roleName,
		CreationStatements:   r.CreationStatements,
		RevocationStatements: r.RevocationStatements,
		RenewStatements:      r.RenewStatements,
		DefaultTTL:           time.Duration(r.DefaultTTL) * time.Second,
		MaxTTL:               time.Duration(r.MaxTTL) * time.Second,
	}
}

// RenewLeaseRequest extends a lease. A zero increment renews by the role's
// default TTL.
type RenewLeaseRequest struct {
	LeaseID   string `json:"lease_id"`
	Increment int64  `json:"increment,omitempty"`
}

// Validate checks if the renew request is valid.
func (r *RenewLeaseRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.LeaseID, validation.Required),
		validation.Field(&r.Increment, validation.Min(int64(0))),
	)
}

// RevokeLeaseRequest revokes a lease by id.
type RevokeLeaseRequest struct {
	LeaseID string `json:"lease_id"`
}

// Validate checks if the revoke request is valid.
func (r *RevokeLeaseRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.LeaseID, validation.Required),
	)
}
