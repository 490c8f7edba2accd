// Package connector implements the pluggable database backends the engine
// creates and revokes dynamic users against. Every variant exposes the same
// capability set; plugin-specific failure details stay inside the connector
// error and never reach API callers.
package connector

import (
	"context"
	"time"

	dbengineDomain "github.com/usphq/usp/internal/dbengine/domain"
)

// Config carries one decrypted connection target. The URL may contain
// {{username}} and {{password}} placeholders substituted with the admin
// credentials before dialing.
type Config struct {
	URL           string
	AdminUsername string
	AdminPassword string
}

// Connector is the capability set every backend variant implements.
type Connector interface {
	// VerifyConnection opens a transient connection with the admin
	// credentials and checks reachability.
	VerifyConnection(ctx context.Context, cfg *Config) error

	// CreateUser provisions a user by running the role's creation statements
	// with {{name}}, {{password}}, and {{expiration}} substituted.
	CreateUser(ctx context.Context, cfg *Config, username, password string, statements []string, expiresAt time.Time) error

	// RevokeUser removes a user by running the role's revocation statements,
	// falling back to the variant's default drop when none are configured.
	RevokeUser(ctx context.Context, cfg *Config, username string, statements []string) error

	// RotateRootPassword changes the admin password on the backing system.
	// The caller persists the new credential before invoking this.
	RotateRootPassword(ctx context.Context, cfg *Config, newPassword string) error
}

// Registry resolves plugins to connector instances. The fake connector is a
// shared singleton so tests can inspect its state through the registry.
type Registry struct {
	connectors map[dbengineDomain.Plugin]Connector
}

// NewRegistry creates a registry with every supported variant wired.
func NewRegistry() *Registry {
	return &Registry{
		connectors: map[dbengineDomain.Plugin]Connector{
			dbengineDomain.PluginPostgres: NewPostgres(),
			dbengineDomain.PluginMySQL:    NewMySQL(),
			dbengineDomain.PluginMSSQL:    NewMSSQL(),
			dbengineDomain.PluginMongo:    NewMongo(),
			dbengineDomain.PluginRedis:    NewRedis(),
			dbengineDomain.PluginFake:     NewFake(),
		},
	}
}

// Register replaces the connector for a plugin. Used by tests to observe
// connector interactions.
func (r *Registry) Register(plugin dbengineDomain.Plugin, c Connector) {
	r.connectors[plugin] = c
}

// For returns the connector for a plugin.
func (r *Registry) For(plugin dbengineDomain.Plugin) (Connector, error) {
	c, ok := r.connectors[plugin]
	if !ok {
		return nil, dbengineDomain.ErrPluginInvalid
	}
	return c, nil
}
