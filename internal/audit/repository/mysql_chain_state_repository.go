package repository

import (
	"context"
	"database/sql"
	"errors"

	auditDomain "github.com/usphq/usp/internal/audit/domain"
	"github.com/usphq/usp/internal/database"
	apperrors "github.com/usphq/usp/internal/errors"
)

// MySQLChainStateRepository manages the singleton audit chain state row for
// MySQL. GetForUpdate takes an InnoDB row lock held until the enclosing
// transaction commits.
type MySQLChainStateRepository struct {
	db *sql.DB
}

const mysqlChainStateColumns = `last_seq, last_hmac, anchor_seq, broken, broken_reason, acknowledged_at, updated_at`

// Get reads the chain state without locking it.
func (m *MySQLChainStateRepository) Get(ctx context.Context) (*auditDomain.ChainState, error) {
	query := `SELECT ` + mysqlChainStateColumns + ` FROM audit_chain_state WHERE id = 1`
	return m.get(ctx, query)
}

// GetForUpdate reads the chain state with a SELECT ... FOR UPDATE row lock.
// Must run inside a transaction.
func (m *MySQLChainStateRepository) GetForUpdate(ctx context.Context) (*auditDomain.ChainState, error) {
	query := `SELECT ` + mysqlChainStateColumns + ` FROM audit_chain_state WHERE id = 1 FOR UPDATE`
	return m.get(ctx, query)
}

func (m *MySQLChainStateRepository) get(ctx context.Context, query string) (*auditDomain.ChainState, error) {
	querier := database.GetTx(ctx, m.db)

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

// Update persists the chain state, refreshing updated_at in the database.
func (m *MySQLChainStateRepository) Update(ctx context.Context, state *auditDomain.ChainState) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE audit_chain_state
			  SET last_seq = ?, last_hmac = ?, anchor_seq = ?, broken = ?,
			      broken_reason = ?, acknowledged_at = ?, updated_at = UTC_TIMESTAMP(6)
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

// NewMySQLChainStateRepository creates a new MySQL chain state repository.
func NewMySQLChainStateRepository(db *sql.DB) *MySQLChainStateRepository {
	return &MySQLChainStateRepository{db: db}
}
