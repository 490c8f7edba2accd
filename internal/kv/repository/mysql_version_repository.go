package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/usphq/usp/internal/database"
	apperrors "github.com/usphq/usp/internal/errors"
	kvDomain "github.com/usphq/usp/internal/kv/domain"
)

// MySQLVersionRepository implements secret version persistence for MySQL.
type MySQLVersionRepository struct {
	db *sql.DB
}

// NewMySQLVersionRepository creates a new MySQL version repository.
func NewMySQLVersionRepository(db *sql.DB) *MySQLVersionRepository {
	return &MySQLVersionRepository{db: db}
}

const mysqlVersionColumns = `secret_id, version, ciphertext, created_at, soft_deleted_at, destroyed`

// Create inserts one immutable version row.
func (m *MySQLVersionRepository) Create(ctx context.Context, version *kvDomain.Version) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO kv_secret_versions (secret_id, version, ciphertext, created_at)
			  VALUES (?, ?, ?, ?)`

	_, err := querier.ExecContext(ctx, query, version.SecretID.String(), version.Version, version.Ciphertext, version.CreatedAt)
	if err != nil {
		if isMySQLDuplicateEntry(err) {
			return apperrors.Wrap(apperrors.ErrConflict, "secret version already exists")
		}
		return apperrors.Wrap(err, "failed to create secret version")
	}

	return nil
}

// Get returns one version row regardless of its flags.
func (m *MySQLVersionRepository) Get(ctx context.Context, secretID uuid.UUID, version int) (*kvDomain.Version, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + mysqlVersionColumns + ` FROM kv_secret_versions
			  WHERE secret_id = ? AND version = ?`

	return scanMySQLVersion(querier.QueryRowContext(ctx, query, secretID.String(), version))
}

// GetLatestIntact returns the highest version that is not destroyed.
func (m *MySQLVersionRepository) GetLatestIntact(ctx context.Context, secretID uuid.UUID) (*kvDomain.Version, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + mysqlVersionColumns + ` FROM kv_secret_versions
			  WHERE secret_id = ? AND destroyed = false
			  ORDER BY version DESC
			  LIMIT 1`

	return scanMySQLVersion(querier.QueryRowContext(ctx, query, secretID.String()))
}

// ListBySecret returns all version rows ordered ascending by version.
func (m *MySQLVersionRepository) ListBySecret(ctx context.Context, secretID uuid.UUID) ([]*kvDomain.Version, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + mysqlVersionColumns + ` FROM kv_secret_versions
			  WHERE secret_id = ?
			  ORDER BY version ASC`

	rows, err := querier.QueryContext(ctx, query, secretID.String())
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list secret versions")
	}
	defer func() {
		_ = rows.Close()
	}()

	versions := make([]*kvDomain.Version, 0)
	for rows.Next() {
		v, err := scanMySQLVersionRow(rows)
		if err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate secret versions")
	}

	return versions, nil
}

// SetSoftDeleted stamps (or clears, when at is nil) the soft-delete marker on
// the listed versions. Destroyed versions are left untouched.
func (m *MySQLVersionRepository) SetSoftDeleted(ctx context.Context, secretID uuid.UUID, versions []int, at *time.Time) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE kv_secret_versions
			  SET soft_deleted_at = ?
			  WHERE secret_id = ? AND version IN (` + placeholders(len(versions)) + `) AND destroyed = false`

	args := make([]any, 0, len(versions)+2)
	args = append(args, at, secretID.String())
	for _, v := range versions {
		args = append(args, v)
	}

	if _, err := querier.ExecContext(ctx, query, args...); err != nil {
		return apperrors.Wrap(err, "failed to update secret version delete markers")
	}

	return nil
}

// MarkDestroyed sets the destroyed flag and erases the ciphertext of the
// listed versions. Irreversible.
func (m *MySQLVersionRepository) MarkDestroyed(ctx context.Context, secretID uuid.UUID, versions []int) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE kv_secret_versions
			  SET destroyed = true, ciphertext = NULL
			  WHERE secret_id = ? AND version IN (` + placeholders(len(versions)) + `)`

	args := make([]any, 0, len(versions)+1)
	args = append(args, secretID.String())
	for _, v := range versions {
		args = append(args, v)
	}

	if _, err := querier.ExecContext(ctx, query, args...); err != nil {
		return apperrors.Wrap(err, "failed to destroy secret versions")
	}

	return nil
}

func scanMySQLVersion(row *sql.Row) (*kvDomain.Version, error) {
	var v kvDomain.Version
	var id string
	err := row.Scan(&id, &v.Version, &v.Ciphertext, &v.CreatedAt, &v.SoftDeletedAt, &v.Destroyed)
	if err != nil {
		if apperrors.Is(err, sql.ErrNoRows) {
			return nil, kvDomain.ErrVersionNotFound
		}
		return nil, apperrors.Wrap(err, "failed to scan secret version")
	}

	v.SecretID, err = uuid.Parse(id)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to parse secret id")
	}
	return &v, nil
}

func scanMySQLVersionRow(rows *sql.Rows) (*kvDomain.Version, error) {
	var v kvDomain.Version
	var id string
	err := rows.Scan(&id, &v.Version, &v.Ciphertext, &v.CreatedAt, &v.SoftDeletedAt, &v.Destroyed)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to scan secret version")
	}

	v.SecretID, err = uuid.Parse(id)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to parse secret id")
	}
	return &v, nil
}

// placeholders renders n comma-separated "?" markers for an IN clause.
func placeholders(n int) string {
	if n == 0 {
		return "NULL"
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
