package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/usphq/usp/internal/database"
	apperrors "github.com/usphq/usp/internal/errors"
	transitDomain "github.com/usphq/usp/internal/transit/domain"
)

// PostgreSQLKeyVersionRepository implements transit key version persistence
// for PostgreSQL.
type PostgreSQLKeyVersionRepository struct {
	db *sql.DB
}

// NewPostgreSQLKeyVersionRepository creates a new PostgreSQL key version repository.
func NewPostgreSQLKeyVersionRepository(db *sql.DB) *PostgreSQLKeyVersionRepository {
	return &PostgreSQLKeyVersionRepository{db: db}
}

// Create inserts one immutable key version row.
func (p *PostgreSQLKeyVersionRepository) Create(ctx context.Context, version *transitDomain.KeyVersion) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO transit_key_versions (key_id, version, material, public_key, created_at)
			  VALUES ($1, $2, $3, $4, $5)`

	_, err := querier.ExecContext(ctx, query, version.KeyID, version.Version, version.Material, version.PublicKey, version.CreatedAt)
	if err != nil {
		if isPostgreSQLUniqueViolation(err) {
			return apperrors.Wrap(apperrors.ErrConflict, "transit key version already exists")
		}
		return apperrors.Wrap(err, "failed to create transit key version")
	}

	return nil
}

// Get returns one key version row.
func (p *PostgreSQLKeyVersionRepository) Get(ctx context.Context, keyID uuid.UUID, version int) (*transitDomain.KeyVersion, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT key_id, version, material, public_key, created_at FROM transit_key_versions
			  WHERE key_id = $1 AND version = $2`

	var v transitDomain.KeyVersion
	err := querier.QueryRowContext(ctx, query, keyID, version).
		Scan(&v.KeyID, &v.Version, &v.Material, &v.PublicKey, &v.CreatedAt)
	if err != nil {
		if apperrors.Is(err, sql.ErrNoRows) {
			return nil, transitDomain.ErrKeyVersionNotFound
		}
		return nil, apperrors.Wrap(err, "failed to scan transit key version")
	}
	return &v, nil
}
