// Package repository persists the seal configuration. One row per
// installation; the KEK is never stored, only the root key sealed under it.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/usphq/usp/internal/database"
	apperrors "github.com/usphq/usp/internal/errors"
	sealDomain "github.com/usphq/usp/internal/seal/domain"
)

// PostgreSQLSealConfigRepository implements seal configuration persistence
// for PostgreSQL.
type PostgreSQLSealConfigRepository struct {
	db *sql.DB
}

// Get reads the seal configuration. Returns ErrNotInitialized when Init has
// never run.
func (p *PostgreSQLSealConfigRepository) Get(ctx context.Context) (*sealDomain.SealConfig, error) {
	querier := database.GetTx(ctx, p.db)

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

// Create stores the seal configuration produced by Init. The singleton id
// makes a concurrent double-Init fail with ErrAlreadyInitialized.
func (p *PostgreSQLSealConfigRepository) Create(ctx context.Context, config *sealDomain.SealConfig) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO seal_state (id, seal_type, shares, threshold, encrypted_dmk, created_at, updated_at)
			  VALUES (1, $1, $2, $3, $4, $5, $6)`

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

// isSealUniqueViolation checks for a unique constraint violation across both drivers
func isSealUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	errMsg := strings.ToLower(err.Error())
	return strings.Contains(errMsg, "duplicate key") ||
		strings.Contains(errMsg, "unique constraint") ||
		strings.Contains(errMsg, "duplicate entry") ||
		strings.Contains(errMsg, "1062")
}

// NewPostgreSQLSealConfigRepository creates a new PostgreSQL seal configuration repository.
func NewPostgreSQLSealConfigRepository(db *sql.DB) *PostgreSQLSealConfigRepository {
	return &PostgreSQLSealConfigRepository{db: db}
}
