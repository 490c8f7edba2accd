package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	authDomain "github.com/usphq/usp/internal/auth/domain"
	"github.com/usphq/usp/internal/database"
	apperrors "github.com/usphq/usp/internal/errors"
)

// MySQLTokenRepository implements API token persistence for MySQL.
type MySQLTokenRepository struct {
	db *sql.DB
}

// NewMySQLTokenRepository creates a new MySQL token repository.
func NewMySQLTokenRepository(db *sql.DB) *MySQLTokenRepository {
	return &MySQLTokenRepository{db: db}
}

// Create inserts a new token.
func (m *MySQLTokenRepository) Create(ctx context.Context, token *authDomain.Token) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO tokens (id, token_hash, principal_id, expires_at, revoked_at, created_at)
			  VALUES (?, ?, ?, ?, ?, ?)`

	_, err := querier.ExecContext(
		ctx,
		query,
		token.ID,
		token.TokenHash,
		token.PrincipalID,
		token.ExpiresAt,
		token.RevokedAt,
		token.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create token")
	}
	return nil
}

// Update persists the revocation marker. MySQL reports zero affected rows for
// no-op updates, so existence is re-checked instead.
func (m *MySQLTokenRepository) Update(ctx context.Context, token *authDomain.Token) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE tokens SET revoked_at = ? WHERE id = ?`

	_, err := querier.ExecContext(ctx, query, token.RevokedAt, token.ID)
	if err != nil {
		return apperrors.Wrap(err, "failed to update token")
	}

	if _, err := m.GetByID(ctx, token.ID); err != nil {
		return err
	}
	return nil
}

// GetByID retrieves a token by id.
func (m *MySQLTokenRepository) GetByID(ctx context.Context, id uuid.UUID) (*authDomain.Token, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + pgTokenColumns + ` FROM tokens WHERE id = ?`

	return scanToken(querier.QueryRowContext(ctx, query, id))
}

// GetByTokenHash retrieves a token by its SHA-256 hash.
func (m *MySQLTokenRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*authDomain.Token, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + pgTokenColumns + ` FROM tokens WHERE token_hash = ?`

	return scanToken(querier.QueryRowContext(ctx, query, tokenHash))
}
