package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/usphq/usp/internal/database"
	dbengineDomain "github.com/usphq/usp/internal/dbengine/domain"
	apperrors "github.com/usphq/usp/internal/errors"
)

// MySQLRoleRepository implements database role persistence for MySQL.
type MySQLRoleRepository struct {
	db *sql.DB
}

// NewMySQLRoleRepository creates a new MySQL role repository.
func NewMySQLRoleRepository(db *sql.DB) *MySQLRoleRepository {
	return &MySQLRoleRepository{db: db}
}

// GetByName retrieves one live role under a configuration.
func (m *MySQLRoleRepository) GetByName(ctx context.Context, configID uuid.UUID, name string) (*dbengineDomain.Role, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + pgRoleColumns + ` FROM database_roles
			  WHERE config_id = ? AND name = ? AND deleted_at IS NULL`

	return scanPostgreSQLRole(querier.QueryRowContext(ctx, query, configID, name))
}

// GetByID retrieves a role by id, including soft-deleted rows.
func (m *MySQLRoleRepository) GetByID(ctx context.Context, id uuid.UUID) (*dbengineDomain.Role, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + pgRoleColumns + ` FROM database_roles WHERE id = ?`

	return scanPostgreSQLRole(querier.QueryRowContext(ctx, query, id))
}

// Create inserts a new role.
func (m *MySQLRoleRepository) Create(ctx context.Context, role *dbengineDomain.Role) error {
	querier := database.GetTx(ctx, m.db)

	creation, err := marshalStatements(role.CreationStatements)
	if err != nil {
		return err
	}
	revocation, err := marshalStatements(role.RevocationStatements)
	if err != nil {
		return err
	}
	renew, err := marshalStatements(role.RenewStatements)
	if err != nil {
		return err
	}

	query := `INSERT INTO database_roles
			  (id, config_id, name, creation_statements, revocation_statements, renew_statements,
			   default_ttl_seconds, max_ttl_seconds, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		role.ID,
		role.ConfigID,
		role.Name,
		creation,
		revocation,
		renew,
		int64(role.DefaultTTL.Seconds()),
		int64(role.MaxTTL.Seconds()),
		role.CreatedAt,
		role.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Wrap(apperrors.ErrConflict, "database role name already exists")
		}
		return apperrors.Wrap(err, "failed to create database role")
	}

	return nil
}

// Update persists mutable role fields, including the soft-delete marker.
func (m *MySQLRoleRepository) Update(ctx context.Context, role *dbengineDomain.Role) error {
	querier := database.GetTx(ctx, m.db)

	creation, err := marshalStatements(role.CreationStatements)
	if err != nil {
		return err
	}
	revocation, err := marshalStatements(role.RevocationStatements)
	if err != nil {
		return err
	}
	renew, err := marshalStatements(role.RenewStatements)
	if err != nil {
		return err
	}

	query := `UPDATE database_roles
			  SET creation_statements = ?, revocation_statements = ?, renew_statements = ?,
				  default_ttl_seconds = ?, max_ttl_seconds = ?, updated_at = ?, deleted_at = ?
			  WHERE id = ?`

	if _, err := querier.ExecContext(
		ctx,
		query,
		creation,
		revocation,
		renew,
		int64(role.DefaultTTL.Seconds()),
		int64(role.MaxTTL.Seconds()),
		role.UpdatedAt,
		role.DeletedAt,
		role.ID,
	); err != nil {
		return apperrors.Wrap(err, "failed to update database role")
	}

	return nil
}

// ListByConfig returns every live role under a configuration ordered by name.
func (m *MySQLRoleRepository) ListByConfig(ctx context.Context, configID uuid.UUID) ([]*dbengineDomain.Role, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + pgRoleColumns + ` FROM database_roles
			  WHERE config_id = ? AND deleted_at IS NULL ORDER BY name ASC`

	rows, err := querier.QueryContext(ctx, query, configID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list database roles")
	}
	defer func() {
		_ = rows.Close()
	}()

	roles := make([]*dbengineDomain.Role, 0)
	for rows.Next() {
		role, err := scanPostgreSQLRoleRows(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate database roles")
	}

	return roles, nil
}

// SoftDeleteByConfig stamps every live role under a configuration as deleted.
func (m *MySQLRoleRepository) SoftDeleteByConfig(ctx context.Context, configID uuid.UUID, at time.Time) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE database_roles SET deleted_at = ?, updated_at = ?
			  WHERE config_id = ? AND deleted_at IS NULL`

	if _, err := querier.ExecContext(ctx, query, at, at, configID); err != nil {
		return apperrors.Wrap(err, "failed to soft-delete database roles")
	}
	return nil
}
