package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/usphq/usp/internal/database"
	apperrors "github.com/usphq/usp/internal/errors"
	transitDomain "github.com/usphq/usp/internal/transit/domain"
)

// MySQLTransitKeyRepository implements transit key metadata persistence for
// MySQL. UUIDs are stored as CHAR(36) strings.
type MySQLTransitKeyRepository struct {
	db *sql.DB
}

// NewMySQLTransitKeyRepository creates a new MySQL transit key repository.
func NewMySQLTransitKeyRepository(db *sql.DB) *MySQLTransitKeyRepository {
	return &MySQLTransitKeyRepository{db: db}
}

const mysqlTransitKeyColumns = `id, name, key_type, current_version, min_decryption_version, exportable, deletion_allowed, created_at, updated_at`

// GetByName retrieves the key with the given name.
func (m *MySQLTransitKeyRepository) GetByName(ctx context.Context, name string) (*transitDomain.TransitKey, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + mysqlTransitKeyColumns + ` FROM transit_keys WHERE name = ?`

	return scanMySQLTransitKey(querier.QueryRowContext(ctx, query, name))
}

// GetByNameForUpdate retrieves the key with its row locked until the enclosing
// transaction commits.
func (m *MySQLTransitKeyRepository) GetByNameForUpdate(ctx context.Context, name string) (*transitDomain.TransitKey, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + mysqlTransitKeyColumns + ` FROM transit_keys WHERE name = ? FOR UPDATE`

	return scanMySQLTransitKey(querier.QueryRowContext(ctx, query, name))
}

// Create inserts new key metadata.
func (m *MySQLTransitKeyRepository) Create(ctx context.Context, key *transitDomain.TransitKey) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO transit_keys (id, name, key_type, current_version, min_decryption_version, exportable, deletion_allowed, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := querier.ExecContext(
		ctx,
		query,
		key.ID.String(),
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
		if isMySQLDuplicateEntry(err) {
			return apperrors.Wrap(apperrors.ErrConflict, "transit key name already exists")
		}
		return apperrors.Wrap(err, "failed to create transit key")
	}

	return nil
}

// Update persists mutable key metadata.
func (m *MySQLTransitKeyRepository) Update(ctx context.Context, key *transitDomain.TransitKey) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE transit_keys
			  SET current_version = ?, min_decryption_version = ?, deletion_allowed = ?, updated_at = ?
			  WHERE id = ?`

	_, err := querier.ExecContext(
		ctx,
		query,
		key.CurrentVersion,
		key.MinDecryptionVersion,
		key.DeletionAllowed,
		key.UpdatedAt,
		key.ID.String(),
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update transit key")
	}

	// MySQL reports zero affected rows for no-op updates, so existence is
	// re-checked instead of trusting the count.
	if _, err := m.GetByName(ctx, key.Name); err != nil {
		return err
	}

	return nil
}

// DeleteByID removes the key row; version rows cascade via foreign key.
func (m *MySQLTransitKeyRepository) DeleteByID(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, m.db)

	result, err := querier.ExecContext(ctx, `DELETE FROM transit_keys WHERE id = ?`, id.String())
	if err != nil {
		return apperrors.Wrap(err, "failed to delete transit key")
	}

	return requireRowAffected(result, transitDomain.ErrKeyNotFound)
}

// ListNames returns every key name ordered ascending.
func (m *MySQLTransitKeyRepository) ListNames(ctx context.Context) ([]string, error) {
	querier := database.GetTx(ctx, m.db)

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

func scanMySQLTransitKey(row *sql.Row) (*transitDomain.TransitKey, error) {
	var key transitDomain.TransitKey
	var id, keyType string
	err := row.Scan(
		&id,
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

	key.ID, err = uuid.Parse(id)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to parse transit key id")
	}
	key.Type = transitDomain.KeyType(keyType)
	return &key, nil
}
