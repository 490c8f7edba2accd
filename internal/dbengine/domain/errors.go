package domain

import (
	"github.com/usphq/usp/internal/errors"
)

// Database engine error definitions. All wrap the platform taxonomy so
// handlers map them to stable machine codes.
var (
	// ErrConfigNotFound indicates no database configuration exists with the
	// requested name.
	ErrConfigNotFound = errors.Wrap(errors.ErrNotFound, "database configuration not found")

	// ErrConfigExists indicates a configuration with the same name already
	// exists.
	ErrConfigExists = errors.Wrap(errors.ErrConflict, "database configuration already exists")

	// ErrRoleNotFound indicates the configuration exists but the requested
	// role does not.
	ErrRoleNotFound = errors.Wrap(errors.ErrNotFound, "database role not found")

	// ErrRoleExists indicates a role with the same name already exists under
	// the configuration.
	ErrRoleExists = errors.Wrap(errors.ErrConflict, "database role already exists")

	// ErrLeaseNotFound indicates no lease exists with the requested id.
	ErrLeaseNotFound = errors.Wrap(errors.ErrNotFound, "database lease not found")

	// ErrLeaseRevoked indicates the lease has already been revoked and cannot
	// be renewed.
	ErrLeaseRevoked = errors.Wrap(errors.ErrInvalidInput, "database lease revoked")

	// ErrLeaseExpired indicates the lease has passed its expiry and cannot be
	// renewed.
	ErrLeaseExpired = errors.Wrap(errors.ErrInvalidInput, "database lease expired")

	// ErrTTLOutOfRange indicates a role TTL outside the 60s..30d window or a
	// default above the maximum.
	ErrTTLOutOfRange = errors.Wrap(errors.ErrInvalidInput, "ttl out of range")

	// ErrRenewalBeyondMaxTTL indicates a renewal that would push the expiry
	// past created_at + max_ttl.
	ErrRenewalBeyondMaxTTL = errors.Wrap(errors.ErrInvalidInput, "renewal exceeds role max ttl")

	// ErrNameInvalid indicates a malformed configuration or role name.
	ErrNameInvalid = errors.Wrap(errors.ErrInvalidInput, "invalid database engine name")

	// ErrPluginInvalid indicates an unknown connector plugin.
	ErrPluginInvalid = errors.Wrap(errors.ErrInvalidInput, "invalid database plugin")

	// ErrStaticRotationUnsupported indicates static credential rotation, which
	// the engine deliberately does not implement.
	ErrStaticRotationUnsupported = errors.Wrap(errors.ErrUnsupported, "static credential rotation not supported")
)
