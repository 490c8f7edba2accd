// Package usecase implements the dynamic database credential engine:
// connection configuration, credential roles, lease issuance, renewal, and
// revocation against pluggable connectors.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/usphq/usp/internal/audit/domain"
	cryptoDomain "github.com/usphq/usp/internal/crypto/domain"
	"github.com/usphq/usp/internal/dbengine/connector"
	dbengineDomain "github.com/usphq/usp/internal/dbengine/domain"
)

// ConfigRepository defines persistence for database configurations.
type ConfigRepository interface {
	// GetByName returns the configuration. Soft-deleted rows are only
	// returned when includeDeleted is set.
	GetByName(ctx context.Context, name string, includeDeleted bool) (*dbengineDomain.Config, error)

	// GetByID returns the configuration by id, including soft-deleted rows.
	GetByID(ctx context.Context, id uuid.UUID) (*dbengineDomain.Config, error)

	// GetByNameForUpdate returns the live configuration with its row locked
	// until the enclosing transaction commits.
	GetByNameForUpdate(ctx context.Context, name string) (*dbengineDomain.Config, error)

	Create(ctx context.Context, config *dbengineDomain.Config) error

	// Update persists mutable fields including the encrypted credential
	// columns and the soft-delete marker.
	Update(ctx context.Context, config *dbengineDomain.Config) error

	// List returns every live configuration ordered by name.
	List(ctx context.Context) ([]*dbengineDomain.Config, error)
}

// RoleRepository defines persistence for credential roles.
type RoleRepository interface {
	GetByName(ctx context.Context, configID uuid.UUID, name string) (*dbengineDomain.Role, error)

	// GetByID returns the role by id, including soft-deleted rows.
	GetByID(ctx context.Context, id uuid.UUID) (*dbengineDomain.Role, error)

	Create(ctx context.Context, role *dbengineDomain.Role) error

	Update(ctx context.Context, role *dbengineDomain.Role) error

	// ListByConfig returns every live role under a configuration.
	ListByConfig(ctx context.Context, configID uuid.UUID) ([]*dbengineDomain.Role, error)

	// SoftDeleteByConfig stamps every live role under a configuration.
	SoftDeleteByConfig(ctx context.Context, configID uuid.UUID, at time.Time) error
}

// LeaseRepository defines persistence for dynamic leases.
type LeaseRepository interface {
	GetByID(ctx context.Context, id string) (*dbengineDomain.Lease, error)

	// GetByIDForUpdate returns the lease with its row locked until the
	// enclosing transaction commits. Renewal and revocation serialize here.
	GetByIDForUpdate(ctx context.Context, id string) (*dbengineDomain.Lease, error)

	Create(ctx context.Context, lease *dbengineDomain.Lease) error

	Update(ctx context.Context, lease *dbengineDomain.Lease) error

	// ListActiveByConfig returns every unrevoked lease under a configuration.
	ListActiveByConfig(ctx context.Context, configID uuid.UUID) ([]*dbengineDomain.Lease, error)

	// ListExpired returns due unrevoked leases without a live scheduler claim.
	ListExpired(ctx context.Context, asOf time.Time, limit int) ([]*dbengineDomain.Lease, error)

	// Claim atomically takes the scheduler lock; at most one caller wins for
	// a given lock window.
	Claim(ctx context.Context, id, lockedBy string, lockedUntil, now time.Time) (bool, error)
}

// Connectors resolves a plugin to its connector.
type Connectors interface {
	For(plugin dbengineDomain.Plugin) (connector.Connector, error)
}

// KeySource supplies per-purpose subkeys from the key hierarchy. Fails with a
// sealed error while the platform is sealed.
type KeySource interface {
	Subkey(ctx context.Context, purpose cryptoDomain.Purpose) ([]byte, error)
}

// Auditor is the slice of the audit sink the engine drives.
type Auditor interface {
	Append(ctx context.Context, entry *auditDomain.Entry) error
}

// ConfigureDatabaseInput carries one configuration upsert. URL may contain
// {{username}} and {{password}} placeholders for the admin credentials.
type ConfigureDatabaseInput struct {
	Name             string
	Plugin           dbengineDomain.Plugin
	URL              string
	AdminUsername    string
	AdminPassword    string
	VerifyConnection bool
	MaxOpenConns     int
	MaxIdleConns     int
}

// CreateRoleInput carries one role definition. DefaultTTL falls back to
// MaxTTL when zero; MaxTTL falls back to DefaultTTL.
type CreateRoleInput struct {
	Name                 string
	CreationStatements   []string
	RevocationStatements []string
	RenewStatements      []string
	DefaultTTL           time.Duration
	MaxTTL               time.Duration
}

// Credential is one issued dynamic credential. The password appears here
// exactly once; it is stored encrypted and never returned again.
type Credential struct {
	LeaseID   string
	Username  string
	Password  string
	ExpiresAt time.Time
	Renewable bool
}

// DBEngineUseCase is the dynamic database credential engine.
type DBEngineUseCase interface {
	// ConfigureDatabase upserts a named configuration, optionally verifying
	// connectivity first. Credentials are stored encrypted.
	ConfigureDatabase(ctx context.Context, input *ConfigureDatabaseInput) (*dbengineDomain.Config, error)

	GetDatabaseConfig(ctx context.Context, name string) (*dbengineDomain.Config, error)

	ListDatabaseConfigs(ctx context.Context) ([]*dbengineDomain.Config, error)

	// DeleteDatabaseConfig revokes every active lease, then soft-deletes the
	// configuration and its roles.
	DeleteDatabaseConfig(ctx context.Context, name string) error

	// CreateRole validates TTL bounds and stores the statement sets.
	CreateRole(ctx context.Context, configName string, input *CreateRoleInput) (*dbengineDomain.Role, error)

	GetRole(ctx context.Context, configName, roleName string) (*dbengineDomain.Role, error)

	ListRoles(ctx context.Context, configName string) ([]*dbengineDomain.Role, error)

	// GenerateCredentials provisions a unique user through the connector and
	// records a renewable lease.
	GenerateCredentials(ctx context.Context, configName, roleName string) (*Credential, error)

	// RenewLease extends an unexpired lease. The new expiry cannot pass
	// created_at + role max_ttl. A zero additionalTTL renews by the role's
	// default TTL.
	RenewLease(ctx context.Context, leaseID string, additionalTTL time.Duration) (*dbengineDomain.Lease, error)

	// RevokeLease drops the user and marks the lease revoked. Idempotent; a
	// connector failure still marks the lease revoked and is audited.
	RevokeLease(ctx context.Context, leaseID string) error

	// RotateRootCredentials changes the admin password, persisting the new
	// credential as pending before the connector statement runs.
	RotateRootCredentials(ctx context.Context, configName string) error

	// RotateStaticCredentials is recognized but deliberately not implemented.
	RotateStaticCredentials(ctx context.Context, configName, roleName string) error
}
