package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/usphq/usp/internal/database"
	dbengineDomain "github.com/usphq/usp/internal/dbengine/domain"
	apperrors "github.com/usphq/usp/internal/errors"
)

// MySQLLeaseRepository implements dynamic lease persistence for MySQL.
type MySQLLeaseRepository struct {
	db *sql.DB
}

// NewMySQLLeaseRepository creates a new MySQL lease repository.
func NewMySQLLeaseRepository(db *sql.DB) *MySQLLeaseRepository {
	return &MySQLLeaseRepository{db: db}
}

// GetByID retrieves one lease regardless of its state.
func (m *MySQLLeaseRepository) GetByID(ctx context.Context, id string) (*dbengineDomain.Lease, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + pgLeaseColumns + ` FROM database_leases WHERE id = ?`

	return scanPostgreSQLLease(querier.QueryRowContext(ctx, query, id))
}

// GetByIDForUpdate retrieves the lease with its row locked until the
// enclosing transaction commits.
func (m *MySQLLeaseRepository) GetByIDForUpdate(ctx context.Context, id string) (*dbengineDomain.Lease, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + pgLeaseColumns + ` FROM database_leases WHERE id = ? FOR UPDATE`

	return scanPostgreSQLLease(querier.QueryRowContext(ctx, query, id))
}

// Create inserts a new lease.
func (m *MySQLLeaseRepository) Create(ctx context.Context, lease *dbengineDomain.Lease) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO database_leases
			  (id, config_id, role_id, username, encrypted_password, created_at, expires_at, renewal_count, revoked)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := querier.ExecContext(
		ctx,
		query,
		lease.ID,
		lease.ConfigID,
		lease.RoleID,
		lease.Username,
		lease.EncryptedPassword,
		lease.CreatedAt,
		lease.ExpiresAt,
		lease.RenewalCount,
		lease.Revoked,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Wrap(apperrors.ErrConflict, "lease id already exists")
		}
		return apperrors.Wrap(err, "failed to create lease")
	}

	return nil
}

// Update persists mutable lease fields. MySQL reports zero affected rows for
// no-op updates, so existence is re-checked instead.
func (m *MySQLLeaseRepository) Update(ctx context.Context, lease *dbengineDomain.Lease) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE database_leases
			  SET expires_at = ?, renewal_count = ?, revoked = ?, revoked_at = ?,
				  locked_by = ?, locked_until = ?
			  WHERE id = ?`

	if _, err := querier.ExecContext(
		ctx,
		query,
		lease.ExpiresAt,
		lease.RenewalCount,
		lease.Revoked,
		lease.RevokedAt,
		lease.LockedBy,
		lease.LockedUntil,
		lease.ID,
	); err != nil {
		return apperrors.Wrap(err, "failed to update lease")
	}

	if _, err := m.GetByID(ctx, lease.ID); err != nil {
		return err
	}
	return nil
}

// ListActiveByConfig returns every unrevoked lease under a configuration.
func (m *MySQLLeaseRepository) ListActiveByConfig(ctx context.Context, configID uuid.UUID) ([]*dbengineDomain.Lease, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + pgLeaseColumns + ` FROM database_leases
			  WHERE config_id = ? AND revoked = FALSE ORDER BY created_at ASC`

	return m.queryLeases(ctx, querier, query, configID)
}

// ListExpired returns up to limit unrevoked leases whose expiry has passed
// and that are not claimed by a live scheduler lock.
func (m *MySQLLeaseRepository) ListExpired(ctx context.Context, asOf time.Time, limit int) ([]*dbengineDomain.Lease, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + pgLeaseColumns + ` FROM database_leases
			  WHERE revoked = FALSE AND expires_at <= ?
				AND (locked_until IS NULL OR locked_until < ?)
			  ORDER BY expires_at ASC
			  LIMIT ?`

	return m.queryLeases(ctx, querier, query, asOf, asOf, limit)
}

// Claim atomically takes the scheduler lock on a lease; at most one caller
// can win for a given lock window.
func (m *MySQLLeaseRepository) Claim(ctx context.Context, id, lockedBy string, lockedUntil, now time.Time) (bool, error) {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE database_leases
			  SET locked_by = ?, locked_until = ?
			  WHERE id = ? AND revoked = FALSE
				AND (locked_until IS NULL OR locked_until < ?)`

	result, err := querier.ExecContext(ctx, query, lockedBy, lockedUntil, id, now)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to claim lease")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to read affected row count")
	}
	return affected == 1, nil
}

func (m *MySQLLeaseRepository) queryLeases(ctx context.Context, querier database.Querier, query string, args ...any) ([]*dbengineDomain.Lease, error) {
	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list leases")
	}
	defer func() {
		_ = rows.Close()
	}()

	leases := make([]*dbengineDomain.Lease, 0)
	for rows.Next() {
		lease, err := scanPostgreSQLLeaseRows(rows)
		if err != nil {
			return nil, err
		}
		leases = append(leases, lease)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate leases")
	}

	return leases, nil
}
