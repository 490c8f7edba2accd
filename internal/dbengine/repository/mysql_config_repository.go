package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/usphq/usp/internal/database"
	dbengineDomain "github.com/usphq/usp/internal/dbengine/domain"
	apperrors "github.com/usphq/usp/internal/errors"
)

// MySQLConfigRepository implements database configuration persistence for MySQL.
type MySQLConfigRepository struct {
	db *sql.DB
}

// NewMySQLConfigRepository creates a new MySQL config repository.
func NewMySQLConfigRepository(db *sql.DB) *MySQLConfigRepository {
	return &MySQLConfigRepository{db: db}
}

// GetByName retrieves the configuration. Soft-deleted rows are filtered out
// unless includeDeleted is set.
func (m *MySQLConfigRepository) GetByName(ctx context.Context, name string, includeDeleted bool) (*dbengineDomain.Config, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + pgConfigColumns + ` FROM database_configs WHERE name = ?`
	if !includeDeleted {
		query += ` AND deleted_at IS NULL`
	}

	return scanPostgreSQLConfig(querier.QueryRowContext(ctx, query, name))
}

// GetByID retrieves the configuration by id, including soft-deleted rows.
func (m *MySQLConfigRepository) GetByID(ctx context.Context, id uuid.UUID) (*dbengineDomain.Config, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + pgConfigColumns + ` FROM database_configs WHERE id = ?`

	return scanPostgreSQLConfig(querier.QueryRowContext(ctx, query, id))
}

// GetByNameForUpdate retrieves the configuration with its row locked until
// the enclosing transaction commits.
func (m *MySQLConfigRepository) GetByNameForUpdate(ctx context.Context, name string) (*dbengineDomain.Config, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + pgConfigColumns + ` FROM database_configs WHERE name = ? AND deleted_at IS NULL FOR UPDATE`

	return scanPostgreSQLConfig(querier.QueryRowContext(ctx, query, name))
}

// Create inserts a new configuration.
func (m *MySQLConfigRepository) Create(ctx context.Context, config *dbengineDomain.Config) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO database_configs
			  (id, name, plugin, encrypted_conn_url, encrypted_admin_user, encrypted_admin_password,
			   encrypted_pending_password, max_open_conns, max_idle_conns, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

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

// Update persists mutable configuration fields. MySQL reports zero affected
// rows for no-op updates, so existence is re-checked instead.
func (m *MySQLConfigRepository) Update(ctx context.Context, config *dbengineDomain.Config) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE database_configs
			  SET plugin = ?, encrypted_conn_url = ?, encrypted_admin_user = ?,
				  encrypted_admin_password = ?, encrypted_pending_password = ?,
				  max_open_conns = ?, max_idle_conns = ?, updated_at = ?, deleted_at = ?
			  WHERE id = ?`

	_, err := querier.ExecContext(
		ctx,
		query,
		config.Plugin,
		config.EncryptedConnURL,
		config.EncryptedAdminUser,
		config.EncryptedAdminPassword,
		config.EncryptedPendingPassword,
		config.MaxOpenConns,
		config.MaxIdleConns,
		config.UpdatedAt,
		config.DeletedAt,
		config.ID,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update database configuration")
	}

	if _, err := m.GetByName(ctx, config.Name, true); err != nil {
		return err
	}
	return nil
}

// List returns every live configuration ordered by name.
func (m *MySQLConfigRepository) List(ctx context.Context) ([]*dbengineDomain.Config, error) {
	querier := database.GetTx(ctx, m.db)

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
