// Package repository implements persistence for principals and API tokens.
//
// PostgreSQL uses native UUID columns, MySQL uses BINARY(16); both go through
// database.GetTx so writes join an enclosing transaction. Roles and
// attributes are stored JSON-encoded.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	authDomain "github.com/usphq/usp/internal/auth/domain"
	"github.com/usphq/usp/internal/database"
	apperrors "github.com/usphq/usp/internal/errors"
)

// PostgreSQLPrincipalRepository implements principal persistence for PostgreSQL.
type PostgreSQLPrincipalRepository struct {
	db *sql.DB
}

// NewPostgreSQLPrincipalRepository creates a new PostgreSQL principal repository.
func NewPostgreSQLPrincipalRepository(db *sql.DB) *PostgreSQLPrincipalRepository {
	return &PostgreSQLPrincipalRepository{db: db}
}

const pgPrincipalColumns = `id, name, secret_hash, roles, attributes, active,
	failed_attempts, locked_until, created_at, updated_at`

// Create inserts a new principal. The name is unique.
func (p *PostgreSQLPrincipalRepository) Create(ctx context.Context, principal *authDomain.Principal) error {
	querier := database.GetTx(ctx, p.db)

	roles, attributes, err := encodePrincipalFields(principal)
	if err != nil {
		return err
	}

	query := `INSERT INTO principals
			  (id, name, secret_hash, roles, attributes, active, failed_attempts, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)`

	_, err = querier.ExecContext(
		ctx,
		query,
		principal.ID,
		principal.Name,
		principal.SecretHash,
		roles,
		attributes,
		principal.Active,
		principal.FailedAttempts,
		principal.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return authDomain.ErrPrincipalExists
		}
		return apperrors.Wrap(err, "failed to create principal")
	}

	return nil
}

// Update persists mutable principal fields including the lockout counters.
func (p *PostgreSQLPrincipalRepository) Update(ctx context.Context, principal *authDomain.Principal) error {
	querier := database.GetTx(ctx, p.db)

	roles, attributes, err := encodePrincipalFields(principal)
	if err != nil {
		return err
	}

	query := `UPDATE principals
			  SET roles = $2, attributes = $3, active = $4,
				  failed_attempts = $5, locked_until = $6, updated_at = $7
			  WHERE id = $1`

	result, err := querier.ExecContext(
		ctx,
		query,
		principal.ID,
		roles,
		attributes,
		principal.Active,
		principal.FailedAttempts,
		principal.LockedUntil,
		principal.UpdatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update principal")
	}

	return requireRowAffected(result, authDomain.ErrPrincipalNotFound)
}

// GetByID retrieves a principal by id.
func (p *PostgreSQLPrincipalRepository) GetByID(ctx context.Context, id uuid.UUID) (*authDomain.Principal, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + pgPrincipalColumns + ` FROM principals WHERE id = $1`

	return scanPrincipal(querier.QueryRowContext(ctx, query, id))
}

// GetByName retrieves a principal by its unique name.
func (p *PostgreSQLPrincipalRepository) GetByName(ctx context.Context, name string) (*authDomain.Principal, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + pgPrincipalColumns + ` FROM principals WHERE name = $1`

	return scanPrincipal(querier.QueryRowContext(ctx, query, name))
}

// List returns every principal ordered by name.
func (p *PostgreSQLPrincipalRepository) List(ctx context.Context) ([]*authDomain.Principal, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + pgPrincipalColumns + ` FROM principals ORDER BY name ASC`

	rows, err := querier.QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list principals")
	}
	defer func() {
		_ = rows.Close()
	}()

	principals := make([]*authDomain.Principal, 0)
	for rows.Next() {
		principal, err := scanPrincipalRows(rows)
		if err != nil {
			return nil, err
		}
		principals = append(principals, principal)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate principals")
	}

	return principals, nil
}

func encodePrincipalFields(principal *authDomain.Principal) ([]byte, []byte, error) {
	roles, err := json.Marshal(principal.Roles)
	if err != nil {
		return nil, nil, apperrors.Wrap(err, "failed to encode principal roles")
	}
	attributes, err := json.Marshal(principal.Attributes)
	if err != nil {
		return nil, nil, apperrors.Wrap(err, "failed to encode principal attributes")
	}
	return roles, attributes, nil
}

func decodePrincipalFields(principal *authDomain.Principal, roles, attributes []byte) error {
	if len(roles) > 0 {
		if err := json.Unmarshal(roles, &principal.Roles); err != nil {
			return apperrors.Wrap(err, "failed to decode principal roles")
		}
	}
	if len(attributes) > 0 {
		if err := json.Unmarshal(attributes, &principal.Attributes); err != nil {
			return apperrors.Wrap(err, "failed to decode principal attributes")
		}
	}
	return nil
}

func scanPrincipal(row *sql.Row) (*authDomain.Principal, error) {
	var (
		principal  authDomain.Principal
		roles      []byte
		attributes []byte
	)
	err := row.Scan(
		&principal.ID,
		&principal.Name,
		&principal.SecretHash,
		&roles,
		&attributes,
		&principal.Active,
		&principal.FailedAttempts,
		&principal.LockedUntil,
		&principal.CreatedAt,
		&principal.UpdatedAt,
	)
	if err != nil {
		if apperrors.Is(err, sql.ErrNoRows) {
			return nil, authDomain.ErrPrincipalNotFound
		}
		return nil, apperrors.Wrap(err, "failed to scan principal")
	}
	if err := decodePrincipalFields(&principal, roles, attributes); err != nil {
		return nil, err
	}
	return &principal, nil
}

func scanPrincipalRows(rows *sql.Rows) (*authDomain.Principal, error) {
	var (
		principal  authDomain.Principal
		roles      []byte
		attributes []byte
	)
	err := rows.Scan(
		&principal.ID,
		&principal.Name,
		&principal.SecretHash,
		&roles,
		&attributes,
		&principal.Active,
		&principal.FailedAttempts,
		&principal.LockedUntil,
		&principal.CreatedAt,
		&principal.UpdatedAt,
	)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to scan principal")
	}
	if err := decodePrincipalFields(&principal, roles, attributes); err != nil {
		return nil, err
	}
	return &principal, nil
}

func requireRowAffected(result sql.Result, missing error) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to read affected row count")
	}
	if affected == 0 {
		return missing
	}
	return nil
}

// isUniqueViolation matches unique constraint errors from PostgreSQL and
// MySQL without driver-specific error types.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	errMsg := strings.ToLower(err.Error())
	return strings.Contains(errMsg, "duplicate key") ||
		strings.Contains(errMsg, "unique constraint") ||
		strings.Contains(errMsg, "duplicate entry")
}
