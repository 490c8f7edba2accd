package domain

import (
	"github.com/usphq/usp/internal/errors"
)

// Authentication errors. Lookup failures during login and token
// authentication collapse into ErrInvalidCredentials so responses never
// reveal which part of the credential was wrong.
var (
	// ErrPrincipalNotFound indicates no principal exists with the given id or name.
	ErrPrincipalNotFound = errors.Wrap(errors.ErrNotFound, "principal not found")

	// ErrPrincipalExists indicates the principal name is already taken.
	ErrPrincipalExists = errors.Wrap(errors.ErrConflict, "principal already exists")

	// ErrTokenNotFound indicates no token exists with the given id.
	ErrTokenNotFound = errors.Wrap(errors.ErrNotFound, "token not found")

	// ErrInvalidCredentials indicates the login or token failed to authenticate.
	ErrInvalidCredentials = errors.Wrap(errors.ErrUnauthorized, "invalid credentials")

	// ErrPrincipalInactive indicates the principal exists but is deactivated.
	ErrPrincipalInactive = errors.Wrap(errors.ErrForbidden, "principal is inactive")

	// ErrPrincipalLocked indicates too many failed logins; retry after the
	// lockout window.
	ErrPrincipalLocked = errors.Wrap(errors.ErrLocked, "principal is locked")

	// ErrBootstrapNotConfigured indicates the seal control plane has no
	// bootstrap credential hash configured.
	ErrBootstrapNotConfigured = errors.Wrap(errors.ErrUnauthorized, "bootstrap credential not configured")
)
