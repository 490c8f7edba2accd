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

// PostgreSQLLeaseRepository implements dynamic lease persistence for PostgreSQL.
type PostgreSQLLeaseRepository struct {
	db *sql.DB
}

// NewPostgreSQLLeaseRepository creates a new PostgreSQL lease repository.
func NewPostgreSQLLeaseRepository(db *sql.DB) *PostgreSQLLeaseRepository {
	return &PostgreSQLLeaseRepository{db: db}
}

const pgLeaseColumns = `id, config_id, role_id, username, encrypted_password, created_at, expires_at,
	renewal_count, revoked, revoked_at, locked_by, locked_until`

// GetByID retrieves one lease regardless of its state.
func (p *PostgreSQLLeaseRepository) GetByID(ctx context.Context, id string) (*dbengineDomain.Lease, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + pgLeaseColumns + ` FROM database_leases WHERE id = $1`

	return scanPostgreSQLLease(querier.QueryRowContext(ctx, query, id))
}

// GetByIDForUpdate retrieves the lease with its row locked until the
// enclosing transaction commits. Renewal and revocation serialize here.
func (p *PostgreSQLLeaseRepository) GetByIDForUpdate(ctx context.Context, id string) (*dbengineDomain.Lease, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + pgLeaseColumns + ` FROM database_leases WHERE id = $1 FOR UPDATE`

	return scanPostgreSQLLease(querier.QueryRowContext(ctx, query, id))
}

// Create inserts a new lease.
func (p *PostgreSQLLeaseRepository) Create(ctx context.Context, lease *dbengineDomain.Lease) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO database_leases
			  (id, config_id, role_id, username, encrypted_password, created_at, expires_at, renewal_count, revoked)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

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

// Update persists mutable lease fields.
func (p *PostgreSQLLeaseRepository) Update(ctx context.Context, lease *dbengineDomain.Lease) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE database_leases
			  SET expires_at = $2, renewal_count = $3, revoked = $4, revoked_at = $5,
				  locked_by = $6, locked_until = $7
			  WHERE id = $1`

	result, err := querier.ExecContext(
		ctx,
		query,
		lease.ID,
		lease.ExpiresAt,
		lease.RenewalCount,
		lease.Revoked,
		lease.RevokedAt,
		lease.LockedBy,
		lease.LockedUntil,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update lease")
	}

	return requireRowAffected(result, dbengineDomain.ErrLeaseNotFound)
}

// ListActiveByConfig returns every unrevoked lease under a configuration.
func (p *PostgreSQLLeaseRepository) ListActiveByConfig(ctx context.Context, configID uuid.UUID) ([]*dbengineDomain.Lease, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + pgLeaseColumns + ` FROM database_leases
			  WHERE config_id = $1 AND revoked = FALSE ORDER BY created_at ASC`

	return p.queryLeases(ctx, querier, query, configID)
}

// ListExpired returns up to limit unrevoked leases whose expiry has passed
// and that are not claimed by a live scheduler lock. Ordered by expiry so the
// oldest work drains first.
func (p *PostgreSQLLeaseRepository) ListExpired(ctx context.Context, asOf time.Time, limit int) ([]*dbengineDomain.Lease, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + pgLeaseColumns + ` FROM database_leases
			  WHERE revoked = FALSE AND expires_at <= $1
				AND (locked_until IS NULL OR locked_until < $1)
			  ORDER BY expires_at ASC
			  LIMIT $2`

	return p.queryLeases(ctx, querier, query, asOf, limit)
}

// Claim atomically takes the scheduler lock on a lease. Returns false without
// error when another worker holds a live claim or the lease is already
// revoked; at most one caller can win for a given lock window.
func (p *PostgreSQLLeaseRepository) Claim(ctx context.Context, id, lockedBy string, lockedUntil, now time.Time) (bool, error) {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE database_leases
			  SET locked_by = $2, locked_until = $3
			  WHERE id = $1 AND revoked = FALSE
				AND (locked_until IS NULL OR locked_until < $4)`

	result, err := querier.ExecContext(ctx, query, id, lockedBy, lockedUntil, now)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to claim lease")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to read affected row count")
	}
	return affected == 1, nil
}

func (p *PostgreSQLLeaseRepository) queryLeases(ctx context.Context, querier database.Querier, query string, args ...any) ([]*dbengineDomain.Lease, error) {
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

func scanPostgreSQLLease(row *sql.Row) (*dbengineDomain.Lease, error) {
	var (
		lease    dbengineDomain.Lease
		lockedBy sql.NullString
	)
	err := row.Scan(
		&lease.ID,
		&lease.ConfigID,
		&lease.RoleID,
		&lease.Username,
		&lease.EncryptedPassword,
		&lease.CreatedAt,
		&lease.ExpiresAt,
		&lease.RenewalCount,
		&lease.Revoked,
		&lease.RevokedAt,
		&lockedBy,
		&lease.LockedUntil,
	)
	if err != nil {
		if apperrors.Is(err, sql.ErrNoRows) {
			return nil, dbengineDomain.ErrLeaseNotFound
		}
		return nil, apperrors.Wrap(err, "failed to scan lease")
	}
	lease.LockedBy = lockedBy.String
	return &lease, nil
}

func scanPostgreSQLLeaseRows(rows *sql.Rows) (*dbengineDomain.Lease, error) {
	var (
		lease    dbengineDomain.Lease
		lockedBy sql.NullString
	)
	err := rows.Scan(
		&lease.ID,
		&lease.ConfigID,
		&lease.RoleID,
		&lease.Username,
		&lease.EncryptedPassword,
		&lease.CreatedAt,
		&lease.ExpiresAt,
		&lease.RenewalCount,
		&lease.Revoked,
		&lease.RevokedAt,
		&lockedBy,
		&lease.LockedUntil,
	)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to scan lease")
	}
	lease.LockedBy = lockedBy.String
	return &lease, nil
}
