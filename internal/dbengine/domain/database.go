// Package domain defines the database engine entities: connection
// configurations, credential roles, and dynamic leases.
package domain

import (
	"regexp"
	"time"

	"github.com/google/uuid"
)

// Plugin identifies the connector variant behind a database configuration.
type Plugin string

const (
	PluginPostgres Plugin = "postgres"
	PluginMySQL    Plugin = "mysql"
	PluginMSSQL    Plugin = "mssql"
	PluginMongo    Plugin = "mongodb"
	PluginRedis    Plugin = "redis"

	// PluginFake is the in-memory connector used by tests and local
	// development. It never opens a network connection.
	PluginFake Plugin = "fake"
)

// Plugins lists every supported connector variant.
var Plugins = []Plugin{PluginPostgres, PluginMySQL, PluginMSSQL, PluginMongo, PluginRedis, PluginFake}

// Valid reports whether the plugin is supported.
func (p Plugin) Valid() bool {
	for _, known := range Plugins {
		if p == known {
			return true
		}
	}
	return false
}

const (
	// MinLeaseTTL is the shortest allowed role TTL.
	MinLeaseTTL = 60 * time.Second

	// MaxLeaseTTL is the longest allowed role TTL (30 days).
	MaxLeaseTTL = 2592000 * time.Second

	// MaxNameLength bounds configuration and role names.
	MaxNameLength = 128
)

var namePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

// ValidName reports whether a configuration or role name is well formed.
func ValidName(name string) bool {
	return name != "" && len(name) <= MaxNameLength && namePattern.MatchString(name)
}

// Config is one named database connection. The connection URL and the admin
// credentials are stored encrypted under the database subkey; the pending
// password column holds a new root credential between generation and
// promotion during rotation, so a crash mid-rotation never loses the only
// working credential.
type Config struct {
	ID                       uuid.UUID
	Name                     string
	Plugin                   Plugin
	EncryptedConnURL         []byte
	EncryptedAdminUser       []byte
	EncryptedAdminPassword   []byte
	EncryptedPendingPassword []byte
	MaxOpenConns             int
	MaxIdleConns             int
	CreatedAt                time.Time
	UpdatedAt                time.Time
	DeletedAt                *time.Time
}

// Role describes how dynamic credentials are created against one
// configuration. Statements run in order; occurrences of {{name}},
// {{password}}, and {{expiration}} are substituted before execution.
type Role struct {
	ID                   uuid.UUID
	ConfigID             uuid.UUID
	Name                 string
	CreationStatements   []string
	RevocationStatements []string
	RenewStatements      []string
	DefaultTTL           time.Duration
	MaxTTL               time.Duration
	CreatedAt            time.Time
	UpdatedAt            time.Time
	DeletedAt            *time.Time
}

// Lease is one issued dynamic credential. ID follows the scheme
// database/<config>/<role>/<uuid>. The password is stored encrypted and
// returned to the caller exactly once, at generation time. LockedBy and
// LockedUntil implement the scheduler's at-most-once revocation claim.
type Lease struct {
	ID                string
	ConfigID          uuid.UUID
	RoleID            uuid.UUID
	Username          string
	EncryptedPassword []byte
	CreatedAt         time.Time
	ExpiresAt         time.Time
	RenewalCount      int
	Revoked           bool
	RevokedAt         *time.Time
	LockedBy          string
	LockedUntil       *time.Time
}

// Expired reports whether the lease has passed its expiry at the given
// instant.
func (l *Lease) Expired(now time.Time) bool {
	return !now.Before(l.ExpiresAt)
}
