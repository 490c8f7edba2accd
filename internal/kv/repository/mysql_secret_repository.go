package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"

	"github.com/usphq/usp/internal/database"
	apperrors "github.com/usphq/usp/internal/errors"
	kvDomain "github.com/usphq/usp/internal/kv/domain"
)

// MySQLSecretRepository implements secret metadata persistence for MySQL.
// UUIDs are stored as CHAR(36) strings.
type MySQLSecretRepository struct {
	db *sql.DB
}

// NewMySQLSecretRepository creates a new MySQL secret repository.
func NewMySQLSecretRepository(db *sql.DB) *MySQLSecretRepository {
	return &MySQLSecretRepository{db: db}
}

const mysqlSecretColumns = `id, path, current_version, max_versions, cas_required, created_at, updated_at, deleted_at`

// GetByPath retrieves the secret at path. Soft-deleted rows are filtered out
// unless includeDeleted is set.
func (m *MySQLSecretRepository) GetByPath(ctx context.Context, path string, includeDeleted bool) (*kvDomain.Secret, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + mysqlSecretColumns + ` FROM kv_secrets WHERE path = ?`
	if !includeDeleted {
		query += ` AND deleted_at IS NULL`
	}

	return scanMySQLSecret(querier.QueryRowContext(ctx, query, path))
}

// GetByPathForUpdate retrieves the secret with its row locked until the
// enclosing transaction commits.
func (m *MySQLSecretRepository) GetByPathForUpdate(ctx context.Context, path string) (*kvDomain.Secret, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + mysqlSecretColumns + ` FROM kv_secrets WHERE path = ? FOR UPDATE`

	return scanMySQLSecret(querier.QueryRowContext(ctx, query, path))
}

// Create inserts new secret metadata.
func (m *MySQLSecretRepository) Create(ctx context.Context, secret *kvDomain.Secret) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO kv_secrets (id, path, current_version, max_versions, cas_required, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := querier.ExecContext(
		ctx,
		query,
		secret.ID.String(),
		secret.Path,
		secret.CurrentVersion,
		secret.MaxVersions,
		secret.CASRequired,
		secret.CreatedAt,
		secret.CreatedAt,
	)
	if err != nil {
		if isMySQLDuplicateEntry(err) {
			return apperrors.Wrap(apperrors.ErrConflict, "secret path already exists")
		}
		return apperrors.Wrap(err, "failed to create secret")
	}

	return nil
}

// Update persists mutable secret metadata.
func (m *MySQLSecretRepository) Update(ctx context.Context, secret *kvDomain.Secret) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE kv_secrets
			  SET current_version = ?, max_versions = ?, cas_required = ?, updated_at = ?, deleted_at = ?
			  WHERE id = ?`

	result, err := querier.ExecContext(
		ctx,
		query,
		secret.CurrentVersion,
		secret.MaxVersions,
		secret.CASRequired,
		secret.UpdatedAt,
		secret.DeletedAt,
		secret.ID.String(),
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update secret")
	}

	// MySQL reports zero affected rows for no-op updates too, so missing rows
	// cannot be distinguished here; treat zero as success when the row exists.
	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to read affected row count")
	}
	if affected == 0 {
		if _, getErr := m.GetByPath(ctx, secret.Path, true); getErr != nil {
			return kvDomain.ErrSecretNotFound
		}
	}

	return nil
}

// DeleteByID removes the secret row; version rows cascade via foreign key.
func (m *MySQLSecretRepository) DeleteByID(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, m.db)

	result, err := querier.ExecContext(ctx, `DELETE FROM kv_secrets WHERE id = ?`, id.String())
	if err != nil {
		return apperrors.Wrap(err, "failed to delete secret")
	}

	return requireRowAffected(result, kvDomain.ErrSecretNotFound)
}

// ListPaths returns up to limit live paths beginning with prefix, ordered
// ascending, strictly after the given path.
func (m *MySQLSecretRepository) ListPaths(ctx context.Context, prefix, after string, limit int) ([]string, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT path FROM kv_secrets
			  WHERE path LIKE ? AND path > ? AND deleted_at IS NULL
			  ORDER BY path ASC
			  LIMIT ?`

	rows, err := querier.QueryContext(ctx, query, likePrefix(prefix), after, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list secret paths")
	}
	defer func() {
		_ = rows.Close()
	}()

	paths := make([]string, 0)
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan secret path")
		}
		paths = append(paths, path)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate secret paths")
	}

	return paths, nil
}

func scanMySQLSecret(row *sql.Row) (*kvDomain.Secret, error) {
	var secret kvDomain.Secret
	var id string
	err := row.Scan(
		&id,
		&secret.Path,
		&secret.CurrentVersion,
		&secret.MaxVersions,
		&secret.CASRequired,
		&secret.CreatedAt,
		&secret.UpdatedAt,
		&secret.DeletedAt,
	)
	if err != nil {
		if apperrors.Is(err, sql.ErrNoRows) {
			return nil, kvDomain.ErrSecretNotFound
		}
		return nil, apperrors.Wrap(err, "failed to scan secret")
	}

	secret.ID, err = uuid.Parse(id)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to parse secret id")
	}
	return &secret, nil
}

// isMySQLDuplicateEntry checks if the error is a MySQL duplicate entry violation
func isMySQLDuplicateEntry(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "duplicate entry")
}
