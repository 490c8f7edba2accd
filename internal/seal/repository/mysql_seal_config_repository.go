package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/usphq/usp/internal/database"
	apperrors "github.com/usphq/usp/internal/errors"
	sealDomain "github.com/usphq/usp/internal/seal/domain"
)

// MySQLSealConfigRepository implements seal configuration persistence for MySQL.
type MySQLSealConfigRepository struct {
	db *sql.DB
}

// Get reads the seal configuration. Returns ErrNotInitialized when Init has
// never run.
func (m *MySQLSealConfigRepository) Get(ctx context.Context) (*sealDomain.SealConfig, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT seal_type, shares, threshold, encrypted_dmk, created_at, updated_at
			  FROM seal_state
			  WHERE id = 1`

	var config sealDomain.SealConfig
	var sealType string

	err := querier.QueryRowContext(ctx, query).Scan(
		&sealType,
		&config.Shares,
		&config.Threshold,
		&config.EncryptedDMK,
		&config.CreatedAt,
		&config.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sealDomain.ErrNotInitialized
		}
		return nil, apperrors.Wrap(err, "failed to get seal configuration")
	}

	config.SealType = sealDomain.SealType(sealType)
	return &config, nil
}

// Create stores the seal configuration produced by Init.
func (m *MySQLSealConfigRepository) Create(ctx context.Context, config *sealDomain.SealConfig) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO seal_state (id, seal_type, shares, threshold, encrypted_dmk, created_at, updated_at)
			  VALUES (1, ?, ?, ?, ?, ?, ?)`

	_, err := querier.ExecContext(
		ctx,
		query,
		string(config.SealType),
		config.Shares,
		config.Threshold,
		config.EncryptedDMK,
		config.CreatedAt,
		config.UpdatedAt,
	)
	if err != nil {
		if isSealUniqueViolation(err) {
			return sealDomain.ErrAlreadyInitialized
		}
		return apperrors.Wrap(err, "failed to create seal configuration")
	}

	return nil
}

// NewMySQLSealConfigRepository creates a new MySQL seal configuration repository.
func NewMySQLSealConfigRepository(db *sql.DB) *MySQLSealConfigRepository {
	return &MySQLSealConfigRepository{db: db}
}
