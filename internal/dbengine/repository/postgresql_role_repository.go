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

// PostgreSQLRoleRepository implements database role persistence for PostgreSQL.
type PostgreSQLRoleRepository struct {
	db *sql.DB
}

// NewPostgreSQLRoleRepository creates a new PostgreSQL role repository.
func NewPostgreSQLRoleRepository(db *sql.DB) *PostgreSQLRoleRepository {
	return &PostgreSQLRoleRepository{db: db}
}

const pgRoleColumns = `id, config_id, name, creation_statements, revocation_statements, renew_statements,
	default_ttl_seconds, max_ttl_seconds, created_at, updated_at, deleted_at`

// GetByName retrieves one live role under a configuration.
func (p *PostgreSQLRoleRepository) GetByName(ctx context.Context, configID uuid.UUID, name string) (*dbengineDomain.Role, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + pgRoleColumns + ` FROM database_roles
			  WHERE config_id = $1 AND name = $2 AND deleted_at IS NULL`

	return scanPostgreSQLRole(querier.QueryRowContext(ctx, query, configID, name))
}

// GetByID retrieves a role by id, including soft-deleted rows, so lease
// revocation can still reach the role's revocation statements.
func (p *PostgreSQLRoleRepository) GetByID(ctx context.Context, id uuid.UUID) (*dbengineDomain.Role, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + pgRoleColumns + ` FROM database_roles WHERE id = $1`

	return scanPostgreSQLRole(querier.QueryRowContext(ctx, query, id))
}

// Create inserts a new role.
func (p *PostgreSQLRoleRepository) Create(ctx context.Context, role *dbengineDomain.Role) error {
	querier := database.GetTx(ctx, p.db)

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
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)`

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
func (p *PostgreSQLRoleRepository) Update(ctx context.Context, role *dbengineDomain.Role) error {
	querier := database.GetTx(ctx, p.db)

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
			  SET creation_statements = $2, revocation_statements = $3, renew_statements = $4,
				  default_ttl_seconds = $5, max_ttl_seconds = $6, updated_at = $7, deleted_at = $8
			  WHERE id = $1`

	result, err := querier.ExecContext(
		ctx,
		query,
		role.ID,
		creation,
		revocation,
		renew,
		int64(role.DefaultTTL.Seconds()),
		int64(role.MaxTTL.Seconds()),
		role.UpdatedAt,
		role.DeletedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update database role")
	}

	return requireRowAffected(result, dbengineDomain.ErrRoleNotFound)
}

// ListByConfig returns every live role under a configuration ordered by name.
func (p *PostgreSQLRoleRepository) ListByConfig(ctx context.Context, configID uuid.UUID) ([]*dbengineDomain.Role, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + pgRoleColumns + ` FROM database_roles
			  WHERE config_id = $1 AND deleted_at IS NULL ORDER BY name ASC`

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
func (p *PostgreSQLRoleRepository) SoftDeleteByConfig(ctx context.Context, configID uuid.UUID, at time.Time) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE database_roles SET deleted_at = $2, updated_at = $2
			  WHERE config_id = $1 AND deleted_at IS NULL`

	if _, err := querier.ExecContext(ctx, query, configID, at); err != nil {
		return apperrors.Wrap(err, "failed to soft-delete database roles")
	}
	return nil
}

func scanPostgreSQLRole(row *sql.Row) (*dbengineDomain.Role, error) {
	var (
		role                       dbengineDomain.Role
		creation, revocation       []byte
		renew                      []byte
		defaultSeconds, maxSeconds int64
	)
	err := row.Scan(
		&role.ID,
		&role.ConfigID,
		&role.Name,
		&creation,
		&revocation,
		&renew,
		&defaultSeconds,
		&maxSeconds,
		&role.CreatedAt,
		&role.UpdatedAt,
		&role.DeletedAt,
	)
	if err != nil {
		if apperrors.Is(err, sql.ErrNoRows) {
			return nil, dbengineDomain.ErrRoleNotFound
		}
		return nil, apperrors.Wrap(err, "failed to scan database role")
	}
	return hydrateRole(&role, creation, revocation, renew, defaultSeconds, maxSeconds)
}

func scanPostgreSQLRoleRows(rows *sql.Rows) (*dbengineDomain.Role, error) {
	var (
		role                       dbengineDomain.Role
		creation, revocation       []byte
		renew                      []byte
		defaultSeconds, maxSeconds int64
	)
	err := rows.Scan(
		&role.ID,
		&role.ConfigID,
		&role.Name,
		&creation,
		&revocation,
		&renew,
		&defaultSeconds,
		&maxSeconds,
		&role.CreatedAt,
		&role.UpdatedAt,
		&role.DeletedAt,
	)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to scan database role")
	}
	return hydrateRole(&role, creation, revocation, renew, defaultSeconds, maxSeconds)
}

func hydrateRole(role *dbengineDomain.Role, creation, revocation, renew []byte, defaultSeconds, maxSeconds int64) (*dbengineDomain.Role, error) {
	var err error
	if role.CreationStatements, err = unmarshalStatements(creation); err != nil {
		return nil, err
	}
	if role.RevocationStatements, err = unmarshalStatements(revocation); err != nil {
		return nil, err
	}
	if role.RenewStatements, err = unmarshalStatements(renew); err != nil {
		return nil, err
	}
	role.DefaultTTL = time.Duration(defaultSeconds) * time.Second
	role.MaxTTL = time.Duration(maxSeconds) * time.Second
	return role, nil
}
