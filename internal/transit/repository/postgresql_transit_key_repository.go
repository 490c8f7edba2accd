// Package repository provides PostgreSQL and MySQL persistence for the
// transit engine: key metadata and immutable version material.
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

// PostgreSQLTransitKeyRepository implements transit key metadata persistence
// for PostgreSQL.
type PostgreSQLTransitKeyRepository struct {
	db *sql.DB
}

// NewPostgreSQLTransitKeyRepository creates a new PostgreSQL transit key repository.
func NewPostgreSQLTransitKeyRepository(db *sql.DB) *PostgreSQLTransitKeyRepository {
	return &PostgreSQLTransitKeyRepository{db: db}
}

const pgTransitKeyColumns = `id, name, key_type, current_version, min_decryption_version, exportable, deletion_allowed, created_at, updated_at`

// GetByName retrieves the key with the given name.
func (p *PostgreSQLTransitKeyRepository) GetByName(ctx context.Context, name string) (*transitDomain.TransitKey, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + pgTransitKeyColumns + ` FROM transit_keys WHERE name = $1`

	return scanPostgreSQLTransitKey(querier.QueryRowContext(ctx, query, name))
}

// GetByNameForUpdate retrieves the key with its row locked until the enclosing
// transaction commits.
func (p *PostgreSQLTransitKeyRepository) GetByNameForUpdate(ctx context.Context, name string) (*transitDomain.TransitKey, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + pgTransitKeyColumns + ` FROM transit_keys WHERE name = $1 FOR UPDATE`

	return scanPostgreSQLTransitKey(querier.QueryRowContext(ctx, query, name))
}

// Create inserts new key metadata.
func (p *PostgreSQLTransitKeyRepository) Create(ctx context.Context, key *transitDomain.TransitKey) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO transit_keys (id, name, key_type, current_version, min_decryption_version, exportable, deletion_allowed, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := querier.ExecContext(
		ctx,
		query,
		key.ID,
		key.Name,
		string(key.Type),
		key.CurrentVersion,
		key.MinDecryptionVersion,
		key.Exportable,
		key.DeletionAllowed,
		key.CreatedAt,
		key.UpdatedAt,
	)
	if err != nil {
		if isPostgreSQLUniqueViolation(err) {
			return apperrors.Wrap(apperrors.ErrConflict, "transit key name already exists")
		}
		return apperrors.Wrap(err, "failed to create transit key")
	}

	return nil
}

// Update persists mutable key metadata.
func (p *PostgreSQLTransitKeyRepository) Update(ctx context.Context, key *transitDomain.TransitKey) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE transit_keys
			  SET current_version = $2, min_decryption_version = $3, deletion_allowed = $4, updated_at = $5
			  WHERE id = $1`

	result, err := querier.ExecContext(
		ctx,
		query,
		key.ID,
		key.CurrentVersion,
		key.MinDecryptionVersion,
		key.DeletionAllowed,
		key.UpdatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update transit key")
	}

	return requireRowAffected(result, transitDomain.ErrKeyNotFound)
}

// DeleteByID removes the key row; version rows cascade via foreign key.
func (p *PostgreSQLTransitKeyRepository) DeleteByID(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, p.db)

	result, err := querier.ExecContext(ctx, `DELETE FROM transit_keys WHERE id = $1`, id)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete transit key")
	}

	return requireRowAffected(result, transitDomain.ErrKeyNotFound)
}

// ListNames returns every key name ordered ascending.
func (p *PostgreSQLTransitKeyRepository) ListNames(ctx context.Context) ([]string, error) {
	querier := database.GetTx(ctx, p.db)

	rows, err := querier.QueryContext(ctx, `SELECT name FROM transit_keys ORDER BY name ASC`)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list transit keys")
	}
	defer func() {
		_ = rows.Close()
	}()

	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan transit key name")
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate transit key names")
	}

	return names, nil
}

func scanPostgreSQLTransitKey(row *sql.Row) (*transitDomain.TransitKey, error) {
	var key transitDomain.TransitKey
	var keyType string
	err := row.Scan(
		&key.ID,
		&key.Name,
		&keyType,
		&key.CurrentVersion,
		&key.MinDecryptionVersion,
		&key.Exportable,
		&key.DeletionAllowed,
		&key.CreatedAt,
		&key.UpdatedAt,
	)
	if err != nil {
		if apperrors.Is(err, sql.ErrNoRows) {
			return nil, transitDomain.ErrKeyNotFound
		}
		return nil, apperrors.Wrap(err, "failed to scan transit key")
	}
	key.Type = transitDomain.KeyType(keyType)
	return &key, nil
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
