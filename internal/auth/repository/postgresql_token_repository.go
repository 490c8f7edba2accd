package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	authDomain "github.com/usphq/usp/internal/auth/domain"
	"github.com/usphq/usp/internal/database"
	apperrors "github.com/usphq/usp/internal/errors"
)

// PostgreSQLTokenRepository implements API token persistence for PostgreSQL.
type PostgreSQLTokenRepository struct {
	db *sql.DB
}

// NewPostgreSQLTokenRepository creates a new PostgreSQL token repository.
func NewPostgreSQLTokenRepository(db *sql.DB) *PostgreSQLTokenRepository {
	return &PostgreSQLTokenRepository{db: db}
}

const pgTokenColumns = `id, token_hash, principal_id, expires_at, revoked_at, created_at`

// Create inserts a new token.
func (p *PostgreSQLTokenRepository) Create(ctx context.Context, token *authDomain.Token) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO tokens (id, token_hash, principal_id, expires_at, revoked_at, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6)`

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

// Update persists the revocation marker.
func (p *PostgreSQLTokenRepository) Update(ctx context.Context, token *authDomain.Token) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE tokens SET revoked_at = $2 WHERE id = $1`

	result, err := querier.ExecContext(ctx, query, token.ID, token.RevokedAt)
	if err != nil {
		return apperrors.Wrap(err, "failed to update token")
	}

	return requireRowAffected(result, authDomain.ErrTokenNotFound)
}

// GetByID retrieves a token by id.
func (p *PostgreSQLTokenRepository) GetByID(ctx context.Context, id uuid.UUID) (*authDomain.Token, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + pgTokenColumns + ` FROM tokens WHERE id = $1`

	return scanToken(querier.QueryRowContext(ctx, query, id))
}

// GetByTokenHash retrieves a token by its SHA-256 hash. The hash column is
// unique; this is the authentication lookup.
func (p *PostgreSQLTokenRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*authDomain.Token, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + pgTokenColumns + ` FROM tokens WHERE token_hash = $1`

	return scanToken(querier.QueryRowContext(ctx, query, tokenHash))
}

func scanToken(row *sql.Row) (*authDomain.Token, error) {
	var token authDomain.Token
	err := row.Scan(
		&token.ID,
		&token.TokenHash,
		&token.PrincipalID,
		&token.ExpiresAt,
		&token.RevokedAt,
		&token.CreatedAt,
	)
	if err != nil {
		if apperrors.Is(err, sql.ErrNoRows) {
			return nil, authDomain.ErrTokenNotFound
		}
		return nil, apperrors.Wrap(err, "failed to scan token")
	}
	return &token, nil
}
