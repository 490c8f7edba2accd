package dto

import (
	"time"

	dbengineDomain "github.com/usphq/usp/internal/dbengine/domain"
	dbengineUseCase "github.com/usphq/usp/internal/dbengine/usecase"
)

// ConfigResponse describes one database configuration. The connection URL and
// the admin credentials are stored encrypted and never returned.
type ConfigResponse struct {
	Name         string    `json:"name"`
	Plugin       string    `json:"plugin"`
	MaxOpenConns int       `json:"max_open_connections"`
	MaxIdleConns int       `json:"max_idle_connections"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ListConfigsResponse holds every live configuration ordered by name.
type ListConfigsResponse struct {
	Configs []*ConfigResponse `json:"configs"`
}

// RoleResponse describes one credential role. TTLs are expressed in seconds.
type RoleResponse struct {
	Name                 string    `json:"name"`
	CreationStatements   []string  `json:"creation_statements"`
	RevocationStatements []string  `json:"revocation_statements,omitempty"`
	RenewStatements      []string  `json:"renew_statements,omitempty"`
	DefaultTTL           int64     `json:"default_ttl"`
	MaxTTL               int64     `json:"max_ttl"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// ListRolesResponse holds every live role under a configuration.
type ListRolesResponse struct {
	Roles []*RoleResponse `json:"roles"`
}

// CredentialResponse carries one issued credential. The password appears here
// exactly once and is never retrievable again.
type CredentialResponse struct {
	LeaseID   string    `json:"lease_id"`
	Username  string    `json:"username"`
	Password  string    `json:"password"`
	ExpiresAt time.Time `json:"expires_at"`
	Renewable bool      `json:"renewable"`
}

// LeaseResponse describes a lease after renewal.
type LeaseResponse struct {
	LeaseID      string    `json:"lease_id"`
	ExpiresAt    time.Time `json:"expires_at"`
	RenewalCount int       `json:"renewal_count"`
}

// MapConfigToResponse maps a configuration to its API shape.
func MapConfigToResponse(config *dbengineDomain.Config) *ConfigResponse {
	return &ConfigResponse{
		Name:         config.Name,
		Plugin:       string(config.Plugin),
		MaxOpenConns: config.MaxOpenConns,
		MaxIdleConns: config.MaxIdleConns,
		CreatedAt:    config.CreatedAt,
		UpdatedAt:    config.UpdatedAt,
	}
}

// MapConfigsToResponse maps a configuration list.
func MapConfigsToResponse(configs []*dbengineDomain.Config) *ListConfigsResponse {
	out := &ListConfigsResponse{Configs: make([]*ConfigResponse, 0, len(configs))}
	for _, config := range configs {
		out.Configs = append(out.Configs, MapConfigToResponse(config))
	}
	return out
}

// MapRoleToResponse maps a role to its API shape.
func MapRoleToResponse(role *dbengineDomain.Role) *RoleResponse {
	return &RoleResponse{
		Name:                 role.Name,
		CreationStatements:   role.CreationStatements,
		RevocationStatements: role.RevocationStatements,
		RenewStatements:      role.RenewStatements,
		DefaultTTL:           int64(role.DefaultTTL.Seconds()),
		MaxTTL:               int64(role.MaxTTL.Seconds()),
		CreatedAt:            role.CreatedAt,
		UpdatedAt:            role.UpdatedAt,
	}
}

// MapRolesToResponse maps a role list.
func MapRolesToResponse(roles []*dbengineDomain.Role) *ListRolesResponse {
	out := &ListRolesResponse{Roles: make([]*RoleResponse, 0, len(roles))}
	for _, role := range roles {
		out.Roles = append(out.Roles, MapRoleToResponse(role))
	}
	return out
}

// MapCredentialToResponse maps an issued credential.
func MapCredentialToResponse(credential *dbengineUseCase.Credential) *CredentialResponse {
	return &CredentialResponse{
		LeaseID:   credential.LeaseID,
		Username:  credential.Username,
		Password:  credential.Password,
		ExpiresAt: credential.ExpiresAt,
		Renewable: credential.Renewable,
	}
}

// MapLeaseToResponse maps a renewed lease.
func MapLeaseToResponse(lease *dbengineDomain.Lease) *LeaseResponse {
	return &LeaseResponse{
		LeaseID:      lease.ID,
		ExpiresAt:    lease.ExpiresAt,
		RenewalCount: lease.RenewalCount,
	}
}
