package repository

import (
	"context"
	"database/sql"
	"errors"

	auditDomain "github.com/usphq/usp/internal/audit/domain"
	"github.com/usphq/usp/internal/database"
	apperrors "github.com/usphq/usp/internal/errors"
)

// PostgreSQLChainStateRepository manages the singleton audit chain state row
// for PostgreSQL. The row is seeded by migrations with id=1; GetForUpdate
// takes a row lock held until the enclosing transaction commits, which is how
// concurrent appenders serialize on the chain tail.
type PostgreSQLChainStateRepository struct {
	db *sql.DB
}

const postgresChainStateColumns = `last_seq, last_hmac, anchor_seq, broken, broken_reason, acknowledged_at, updated_at`

// Get reads the chain state without locking it. Suitable for status reads.
func (p *PostgreSQLChainStateRepository) Get(ctx context.Context) (*auditDomain.ChainState, error) {
	query := `SELECT ` + postgresChainStateColumns + ` FROM audit_chain_state WHERE id = 1`
	return p.get(ctx, query)
}

// GetForUpdate reads the chain state with a SELECT ... FOR UPDATE row lock.
// Must run inside a transaction; the lock serializes chain appends.
func (p *PostgreSQLChainStateRepository) GetForUpdate(ctx context.Context) (*auditDomain.ChainState, error) {
	query := `SELECT ` + postgresChainStateColumns + ` FROM audit_chain_state WHERE id = 1 FOR UPDATE`
	return p.get(ctx, query)
}

func (p *PostgreSQLChainStateRepository) get(ctx context.Context, query string) (*auditDomain.ChainState, error) {
	querier := database.GetTx(ctx, p.db)

	var state auditDomain.ChainState
	var acknowledgedAt sql.NullTime

	err := querier.QueryRowContext(ctx, query).Scan(
		&state.LastSeq,
		&state.LastHMAC,
		&state.AnchorSeq,
		&state.Broken,
		&state.BrokenReason,
		&acknowledgedAt,
		&state.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Migrations seed the row; its absence means a broken install.
			return nil, apperrors.New("audit chain state row missing")
		}
		return nil, apperrors.Wrap(err, "failed to get audit chain state")
	}

	if acknowledgedAt.Valid {
		state.AcknowledgedAt = &acknowledgedAt.Time
	}

	return &state, nil
}

// Update persists the chain state. The updated_at column is refreshed by the
// database so callers never race on wall clocks.
func (p *PostgreSQLChainStateRepository) Update(ctx context.Context, state *auditDomain.ChainState) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE audit_chain_state
			  SET last_seq = $1, last_hmac = $2, anchor_seq = $3, broken = $4,
			      broken_reason = $5, acknowledged_at = $6, updated_at = NOW()
			  WHERE id = 1`

	result, err := querier.ExecContext(
		ctx,
		query,
		state.LastSeq,
		state.LastHMAC,
		state.AnchorSeq,
		state.Broken,
		state.BrokenReason,
		state.AcknowledgedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update audit chain state")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to read updated audit chain state count")
	}
	if affected == 0 {
		return apperrors.New("audit chain state row missing")
	}

	return nil
}

// NewPostgreSQLChainStateRepository creates a new PostgreSQL chain state repository.
func NewPostgreSQLChainStateRepository(db *sql.DB) *PostgreSQLChainStateRepository {
	return &PostgreSQLChainStateRepository{db: db}
}
