package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/usphq/usp/internal/database"
	apperrors "github.com/usphq/usp/internal/errors"
	kvDomain "github.com/usphq/usp/internal/kv/domain"
)

// PostgreSQLVersionRepository implements secret version persistence for PostgreSQL.
type PostgreSQLVersionRepository struct {
	db *sql.DB
}

// NewPostgreSQLVersionRepository creates a new PostgreSQL version repository.
func NewPostgreSQLVersionRepository(db *sql.DB) *PostgreSQLVersionRepository {
	return &PostgreSQLVersionRepository{db: db}
}

const pgVersionColumns = `secret_id, version, ciphertext, created_at, soft_deleted_at, destroyed`

// Create inserts one immutable version row.
func (p *PostgreSQLVersionRepository) Create(ctx context.Context, version *kvDomain.Version) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO kv_secret_versions (secret_id, version, ciphertext, created_at)
			  VALUES ($1, $2, $3, $4)`

	_, err := querier.ExecContext(ctx, query, version.SecretID, version.Version, version.Ciphertext, version.CreatedAt)
	if err != nil {
		if isPostgreSQLUniqueViolation(err) {
			return apperrors.Wrap(apperrors.ErrConflict, "secret version already exists")
		}
		return apperrors.Wrap(err, "failed to create secret version")
	}

	return nil
}

// Get returns one version row regardless of its flags.
func (p *PostgreSQLVersionRepository) Get(ctx context.Context, secretID uuid.UUID, version int) (*kvDomain.Version, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + pgVersionColumns + ` FROM kv_secret_versions
			  WHERE secret_id = $1 AND version = $2`

	return scanPostgreSQLVersion(querier.QueryRowContext(ctx, query, secretID, version))
}

// GetLatestIntact returns the highest version that is not destroyed.
func (p *PostgreSQLVersionRepository) GetLatestIntact(ctx context.Context, secretID uuid.UUID) (*kvDomain.Version, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + pgVersionColumns + ` FROM kv_secret_versions
			  WHERE secret_id = $1 AND destroyed = false
			  ORDER BY version DESC
			  LIMIT 1`

	return scanPostgreSQLVersion(querier.QueryRowContext(ctx, query, secretID))
}

// ListBySecret returns all version rows ordered ascending by version.
func (p *PostgreSQLVersionRepository) ListBySecret(ctx context.Context, secretID uuid.UUID) ([]*kvDomain.Version, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + pgVersionColumns + ` FROM kv_secret_versions
			  WHERE secret_id = $1
			  ORDER BY version ASC`

	rows, err := querier.QueryContext(ctx, query, secretID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list secret versions")
	}
	defer func() {
		_ = rows.Close()
	}()

	versions := make([]*kvDomain.Version, 0)
	for rows.Next() {
		var v kvDomain.Version
		if err := rows.Scan(&v.SecretID, &v.Version, &v.Ciphertext, &v.CreatedAt, &v.SoftDeletedAt, &v.Destroyed); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan secret version")
		}
		versions = append(versions, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate secret versions")
	}

	return versions, nil
}

// SetSoftDeleted stamps (or clears, when at is nil) the soft-delete marker on
// the listed versions. Destroyed versions are left untouched.
func (p *PostgreSQLVersionRepository) SetSoftDeleted(ctx context.Context, secretID uuid.UUID, versions []int, at *time.Time) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE kv_secret_versions
			  SET soft_deleted_at = $3
			  WHERE secret_id = $1 AND version = ANY($2) AND destroyed = false`

	_, err := querier.ExecContext(ctx, query, secretID, pq.Array(versions), at)
	if err != nil {
		return apperrors.Wrap(err, "failed to update secret version delete markers")
	}

	return nil
}

// MarkDestroyed sets the destroyed flag and erases the ciphertext of the
// listed versions. Irreversible.
func (p *PostgreSQLVersionRepository) MarkDestroyed(ctx context.Context, secretID uuid.UUID, versions []int) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE kv_secret_versions
			  SET destroyed = true, ciphertext = NULL
			  WHERE secret_id = $1 AND version = ANY($2)`

	_, err := querier.ExecContext(ctx, query, secretID, pq.Array(versions))
	if err != nil {
		return apperrors.Wrap(err, "failed to destroy secret versions")
	}

	return nil
}

func scanPostgreSQLVersion(row *sql.Row) (*kvDomain.Version, error) {
	var v kvDomain.Version
	err := row.Scan(&v.SecretID, &v.Version, &v.Ciphertext, &v.CreatedAt, &v.SoftDeletedAt, &v.Destroyed)
	if err != nil {
		if apperrors.Is(err, sql.ErrNoRows) {
			return nil, kvDomain.ErrVersionNotFound
		}
		return nil, apperrors.Wrap(err, "failed to scan secret version")
	}
	return &v, nil
}
