// Package repository provides PostgreSQL and MySQL persistence for the
// key-value engine: per-path secret metadata and immutable version rows.
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

// PostgreSQLSecretRepository implements secret metadata persistence for PostgreSQL.
type PostgreSQLSecretRepository struct {
	db *sql.DB
}

// NewPostgreSQLSecretRepository creates a new PostgreSQL secret repository.
func NewPostgreSQLSecretRepository(db *sql.DB) *PostgreSQLSecretRepository {
	return &PostgreSQLSecretRepository{db: db}
}

const pgSecretColumns = `id, path, current_version, max_versions, cas_required, created_at, updated_at, deleted_at`

// GetByPath retrieves the secret at path. Soft-deleted rows are filtered out
// unless includeDeleted is set.
func (p *PostgreSQLSecretRepository) GetByPath(ctx context.Context, path string, includeDeleted bool) (*kvDomain.Secret, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + pgSecretColumns + ` FROM kv_secrets WHERE path = $1`
	if !includeDeleted {
		query += ` AND deleted_at IS NULL`
	}

	return scanPostgreSQLSecret(querier.QueryRowContext(ctx, query, path))
}

// GetByPathForUpdate retrieves the secret with its row locked until the
// enclosing transaction commits. Writers to one path serialize on this lock.
func (p *PostgreSQLSecretRepository) GetByPathForUpdate(ctx context.Context, path string) (*kvDomain.Secret, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + pgSecretColumns + ` FROM kv_secrets WHERE path = $1 FOR UPDATE`

	return scanPostgreSQLSecret(querier.QueryRowContext(ctx, query, path))
}

// Create inserts new secret metadata.
func (p *PostgreSQLSecretRepository) Create(ctx context.Context, secret *kvDomain.Secret) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO kv_secrets (id, path, current_version, max_versions, cas_required, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $6)`

	_, err := querier.ExecContext(
		ctx,
		query,
		secret.ID,
		secret.Path,
		secret.CurrentVersion,
		secret.MaxVersions,
		secret.CASRequired,
		secret.CreatedAt,
	)
	if err != nil {
		if isPostgreSQLUniqueViolation(err) {
			return apperrors.Wrap(apperrors.ErrConflict, "secret path already exists")
		}
		return apperrors.Wrap(err, "failed to create secret")
	}

	return nil
}

// Update persists mutable secret metadata.
func (p *PostgreSQLSecretRepository) Update(ctx context.Context, secret *kvDomain.Secret) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE kv_secrets
			  SET current_version = $2, max_versions = $3, cas_required = $4, updated_at = $5, deleted_at = $6
			  WHERE id = $1`

	result, err := querier.ExecContext(
		ctx,
		query,
		secret.ID,
		secret.CurrentVersion,
		secret.MaxVersions,
		secret.CASRequired,
		secret.UpdatedAt,
		secret.DeletedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update secret")
	}

	return requireRowAffected(result, kvDomain.ErrSecretNotFound)
}

// DeleteByID removes the secret row; version rows cascade via foreign key.
func (p *PostgreSQLSecretRepository) DeleteByID(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, p.db)

	result, err := querier.ExecContext(ctx, `DELETE FROM kv_secrets WHERE id = $1`, id)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete secret")
	}

	return requireRowAffected(result, kvDomain.ErrSecretNotFound)
}

// ListPaths returns up to limit live paths beginning with prefix, ordered
// ascending, strictly after the given path.
func (p *PostgreSQLSecretRepository) ListPaths(ctx context.Context, prefix, after string, limit int) ([]string, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT path FROM kv_secrets
			  WHERE path LIKE $1 AND path > $2 AND deleted_at IS NULL
			  ORDER BY path ASC
			  LIMIT $3`

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

func scanPostgreSQLSecret(row *sql.Row) (*kvDomain.Secret, error) {
	var secret kvDomain.Secret
	err := row.Scan(
		&secret.ID,
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
	return &secret, nil
}

// likePrefix escapes LIKE metacharacters so a literal prefix match is safe.
func likePrefix(prefix string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(prefix) + "%"
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

// isPostgreSQLUniqueViolation checks if the error is a PostgreSQL unique constraint violation
func isPostgreSQLUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	errMsg := strings.ToLower(err.Error())
	return strings.Contains(errMsg, "duplicate key") || strings.Contains(errMsg, "unique constraint")
}
