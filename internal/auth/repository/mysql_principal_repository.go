package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	authDomain "github.com/usphq/usp/internal/auth/domain"
	"github.com/usphq/usp/internal/database"
	apperrors "github.com/usphq/usp/internal/errors"
)

// MySQLPrincipalRepository implements principal persistence for MySQL.
type MySQLPrincipalRepository struct {
	db *sql.DB
}

// NewMySQLPrincipalRepository creates a new MySQL principal repository.
func NewMySQLPrincipalRepository(db *sql.DB) *MySQLPrincipalRepository {
	return &MySQLPrincipalRepository{db: db}
}

// Create inserts a new principal. The name is unique.
func (m *MySQLPrincipalRepository) Create(ctx context.Context, principal *authDomain.Principal) error {
	querier := database.GetTx(ctx, m.db)

	roles, attributes, err := encodePrincipalFields(principal)
	if err != nil {
		return err
	}

	query := `INSERT INTO principals
			  (id, name, secret_hash, roles, attributes, active, failed_attempts, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

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

// Update persists mutable principal fields. MySQL reports zero affected rows
// for no-op updates, so existence is re-checked instead.
func (m *MySQLPrincipalRepository) Update(ctx context.Context, principal *authDomain.Principal) error {
	querier := database.GetTx(ctx, m.db)

	roles, attributes, err := encodePrincipalFields(principal)
	if err != nil {
		return err
	}

	query := `UPDATE principals
			  SET roles = ?, attributes = ?, active = ?,
				  failed_attempts = ?, locked_until = ?, updated_at = ?
			  WHERE id = ?`

	_, err = querier.ExecContext(
		ctx,
		query,
		roles,
		attributes,
		principal.Active,
		principal.FailedAttempts,
		principal.LockedUntil,
		principal.UpdatedAt,
		principal.ID,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update principal")
	}

	if _, err := m.GetByID(ctx, principal.ID); err != nil {
		return err
	}
	return nil
}

// GetByID retrieves a principal by id.
func (m *MySQLPrincipalRepository) GetByID(ctx context.Context, id uuid.UUID) (*authDomain.Principal, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + pgPrincipalColumns + ` FROM principals WHERE id = ?`

	return scanPrincipal(querier.QueryRowContext(ctx, query, id))
}

// GetByName retrieves a principal by its unique name.
func (m *MySQLPrincipalRepository) GetByName(ctx context.Context, name string) (*authDomain.Principal, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + pgPrincipalColumns + ` FROM principals WHERE name = ?`

	return scanPrincipal(querier.QueryRowContext(ctx, query, name))
}

// List returns every principal ordered by name.
func (m *MySQLPrincipalRepository) List(ctx context.Context) ([]*authDomain.Principal, error) {
	querier := database.GetTx(ctx, m.db)

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
