// Package repository provides PostgreSQL and MySQL persistence for the
// database engine: connection configurations, credential roles, and dynamic
// leases.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"github.com/usphq/usp/internal/database"
	dbengineDomain "github.com/usphq/usp/internal/dbengine/domain"
	apperrors "github.com/usphq/usp/internal/errors"
)

// PostgreSQLConfigRepository implements database configuration persistence
// for PostgreSQL.
type PostgreSQLConfigRepository struct {
	db *sql.DB
}

// NewPostgreSQLConfigRepository creates a new PostgreSQL config repository.
func NewPostgreSQLConfigRepository(db *sql.DB) *PostgreSQLConfigRepository {
	return &PostgreSQLConfigRepository{db: db}
}

const pgConfigColumns = `id, name, plugin, encrypted_conn_url, encrypted_admin_user, encrypted_admin_password,
	encrypted_pending_password, max_open_conns, max_idle_conns, created_at, updated_at, deleted_at`

// GetByName retrieves the configuration. Soft-deleted rows are filtered out
// unless includeDeleted is set.
func (p *PostgreSQLConfigRepository) GetByName(ctx context.Context, name string, includeDeleted bool) (*dbengineDomain.Config, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + pgConfigColumns + ` FROM database_configs WHERE name = $1`
	if !includeDeleted {
		query += ` AND deleted_at IS NULL`
	}

	return scanPostgreSQLConfig(querier.QueryRowContext(ctx, query, name))
}

// GetByID retrieves the configuration by id, including soft-deleted rows, so
// revocation of leases under a deleted configuration can still reach the
// backing system.
func (p *PostgreSQLConfigRepository) GetByID(ctx context.Context, id uuid.UUID) (*dbengineDomain.Config, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + pgConfigColumns + ` FROM database_configs WHERE id = $1`

	return scanPostgreSQLConfig(querier.QueryRowContext(ctx, query, id))
}

// GetByNameForUpdate retrieves the configuration with its row locked until
// the enclosing transaction commits. Rotation and deletion serialize here.
func (p *PostgreSQLConfigRepository) GetByNameForUpdate(ctx context.Context, name string) (*dbengineDomain.Config, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + pgConfigColumns + ` FROM database_configs WHERE name = $1 AND deleted_at IS NULL FOR UPDATE`

	return scanPostgreSQLConfig(querier.QueryRowContext(ctx, query, name))
}

// Create inserts a new configuration.
func (p *PostgreSQLConfigRepository) Create(ctx context.Context, config *dbengineDomain.Config) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO database_configs
			  (id, name, plugin, encrypted_conn_url, encrypted_admin_user, encrypted_admin_password,
			   encrypted_pending_password, max_open_conns, max_idle_conns, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)`

	_, err := querier.ExecContext(
		ctx,
		query,
		config.ID,
		config.Name,
		config.Plugin,
		config.EncryptedConnURL,
		config.EncryptedAdminUser,
		config.EncryptedAdminPassword,
		config.EncryptedPendingPassword,
		config.MaxOpenConns,
		config.MaxIdleConns,
		config.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Wrap(apperrors.ErrConflict, "database configuration name already exists")
		}
		return apperrors.Wrap(err, "failed to create database configuration")
	}

	return nil
}

// Update persists mutable configuration fields, including the encrypted
// credential columns and the soft-delete marker.
func (p *PostgreSQLConfigRepository) Update(ctx context.Context, config *dbengineDomain.Config) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE database_configs
			  SET plugin = $2, encrypted_conn_url = $3, encrypted_admin_user = $4,
				  encrypted_admin_password = $5, encrypted_pending_password = $6,
				  max_open_conns = $7, max_idle_conns = $8, updated_at = $9, deleted_at = $10
			  WHERE id = $1`

	result, err := querier.ExecContext(
		ctx,
		query,
		config.ID,
		config.Plugin,
		config.EncryptedConnURL,
		config.EncryptedAdminUser,
		config.EncryptedAdminPassword,
		config.EncryptedPendingPassword,
		config.MaxOpenConns,
		config.MaxIdleConns,
		config.UpdatedAt,
		config.DeletedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update database configuration")
	}

	return requireRowAffected(result, dbengineDomain.ErrConfigNotFound)
}

// List returns every live configuration ordered by name.
func (p *PostgreSQLConfigRepository) List(ctx context.Context) ([]*dbengineDomain.Config, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + pgConfigColumns + ` FROM database_configs WHERE deleted_at IS NULL ORDER BY name ASC`

	rows, err := querier.QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list database configurations")
	}
	defer func() {
		_ = rows.Close()
	}()

	configs := make([]*dbengineDomain.Config, 0)
	for rows.Next() {
		config, err := scanPostgreSQLConfigRows(rows)
		if err != nil {
			return nil, err
		}
		configs = append(configs, config)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate database configurations")
	}

	return configs, nil
}

func scanPostgreSQLConfig(row *sql.Row) (*dbengineDomain.Config, error) {
	var config dbengineDomain.Config
	err := row.Scan(
		&config.ID,
		&config.Name,
		&config.Plugin,
		&config.EncryptedConnURL,
		&config.EncryptedAdminUser,
		&config.EncryptedAdminPassword,
		&config.EncryptedPendingPassword,
		&config.MaxOpenConns,
		&config.MaxIdleConns,
		&config.CreatedAt,
		&config.UpdatedAt,
		&config.DeletedAt,
	)
	if err != nil {
		if apperrors.Is(err, sql.ErrNoRows) {
			return nil, dbengineDomain.ErrConfigNotFound
		}
		return nil, apperrors.Wrap(err, "failed to scan database configuration")
	}
	return &config, nil
}

func scanPostgreSQLConfigRows(rows *sql.Rows) (*dbengineDomain.Config, error) {
	var config dbengineDomain.Config
	err := rows.Scan(
		&config.ID,
		&config.Name,
		&config.Plugin,
		&config.EncryptedConnURL,
		&config.EncryptedAdminUser,
		&config.EncryptedAdminPassword,
		&config.EncryptedPendingPassword,
		&config.MaxOpenConns,
		&config.MaxIdleConns,
		&config.CreatedAt,
		&config.UpdatedAt,
		&config.DeletedAt,
	)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to scan database configuration")
	}
	return &config, nil
}

// marshalStatements serializes a statement list for a text column.
func marshalStatements(statements []string) ([]byte, error) {
	if statements == nil {
		statements = []string{}
	}
	data, err := json.Marshal(statements)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal statements")
	}
	return data, nil
}

// unmarshalStatements deserializes a statement list column.
func unmarshalStatements(data []byte) ([]string, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var statements []string
	if err := json.Unmarshal(data, &statements); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal statements")
	}
	if len(statements) == 0 {
		return nil, nil
	}
	return statements, nil
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
