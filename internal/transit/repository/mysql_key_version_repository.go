package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"

	"github.com/usphq/usp/internal/database"
	apperrors "github.com/usphq/usp/internal/errors"
	transitDomain "github.com/usphq/usp/internal/transit/domain"
)

// MySQLKeyVersionRepository implements transit key version persistence for MySQL.
type MySQLKeyVersionRepository struct {
	db *sql.DB
}

// NewMySQLKeyVersionRepository creates a new MySQL key version repository.
func NewMySQLKeyVersionRepository(db *sql.DB) *MySQLKeyVersionRepository {
	return &MySQLKeyVersionRepository{db: db}
}

// Create inserts one immutable key version row.
func (m *MySQLKeyVersionRepository) Create(ctx context.Context, version *transitDomain.KeyVersion) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO transit_key_versions (key_id, version, material, public_key, created_at)
			  VALUES (?, ?, ?, ?, ?)`

	_, err := querier.ExecContext(ctx, query, version.KeyID.String(), version.Version, version.Material, version.PublicKey, version.CreatedAt)
	if err != nil {
		if isMySQLDuplicateEntry(err) {
			return apperrors.Wrap(apperrors.ErrConflict, "transit key version already exists")
		}
		return apperrors.Wrap(err, "failed to create transit key version")
	}

	return nil
}

// Get returns one key version row.
func (m *MySQLKeyVersionRepository) Get(ctx context.Context, keyID uuid.UUID, version int) (*transitDomain.KeyVersion, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT key_id, version, material, public_key, created_at FROM transit_key_versions
			  WHERE key_id = ? AND version = ?`

	var v transitDomain.KeyVersion
	var id string
	err := querier.QueryRowContext(ctx, query, keyID.String(), version).
		Scan(&id, &v.Version, &v.Material, &v.PublicKey, &v.CreatedAt)
	if err != nil {
		if apperrors.Is(err, sql.ErrNoRows) {
			return nil, transitDomain.ErrKeyVersionNotFound
		}
		return nil, apperrors.Wrap(err, "failed to scan transit key version")
	}

	v.KeyID, err = uuid.Parse(id)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to parse transit key id")
	}
	return &v, nil
}

// isMySQLDuplicateEntry checks if the error is a MySQL duplicate entry violation
func isMySQLDuplicateEntry(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "duplicate entry")
}
