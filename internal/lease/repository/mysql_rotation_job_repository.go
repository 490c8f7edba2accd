package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/usphq/usp/internal/database"
	apperrors "github.com/usphq/usp/internal/errors"
	leaseDomain "github.com/usphq/usp/internal/lease/domain"
)

// MySQLRotationJobRepository implements rotation job persistence for MySQL.
type MySQLRotationJobRepository struct {
	db *sql.DB
}

// NewMySQLRotationJobRepository creates a new MySQL rotation job repository.
func NewMySQLRotationJobRepository(db *sql.DB) *MySQLRotationJobRepository {
	return &MySQLRotationJobRepository{db: db}
}

// GetByID retrieves one rotation job.
func (m *MySQLRotationJobRepository) GetByID(ctx context.Context, id uuid.UUID) (*leaseDomain.RotationJob, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + pgJobColumns + ` FROM rotation_jobs WHERE id = ?`

	return scanPostgreSQLJob(querier.QueryRowContext(ctx, query, id))
}

// Create inserts a new rotation job.
func (m *MySQLRotationJobRepository) Create(ctx context.Context, job *leaseDomain.RotationJob) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO rotation_jobs
			  (id, kind, target, interval_seconds, next_execution_at, failure_count, active, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := querier.ExecContext(
		ctx,
		query,
		job.ID,
		job.Kind,
		job.Target,
		int64(job.Interval.Seconds()),
		job.NextExecutionAt,
		job.FailureCount,
		job.Active,
		job.CreatedAt,
		job.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return leaseDomain.ErrJobExists
		}
		return apperrors.Wrap(err, "failed to create rotation job")
	}

	return nil
}

// Update persists mutable job fields. MySQL reports zero affected rows for
// no-op updates, so existence is re-checked instead.
func (m *MySQLRotationJobRepository) Update(ctx context.Context, job *leaseDomain.RotationJob) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE rotation_jobs
			  SET interval_seconds = ?, next_execution_at = ?, failure_count = ?, last_error = ?,
				  active = ?, locked_by = ?, locked_until = ?, updated_at = ?
			  WHERE id = ?`

	_, err := querier.ExecContext(
		ctx,
		query,
		int64(job.Interval.Seconds()),
		job.NextExecutionAt,
		job.FailureCount,
		job.LastError,
		job.Active,
		job.LockedBy,
		job.LockedUntil,
		job.UpdatedAt,
		job.ID,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update rotation job")
	}

	if _, err := m.GetByID(ctx, job.ID); err != nil {
		return err
	}
	return nil
}

// Delete removes a rotation job.
func (m *MySQLRotationJobRepository) Delete(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, m.db)

	result, err := querier.ExecContext(ctx, `DELETE FROM rotation_jobs WHERE id = ?`, id)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete rotation job")
	}

	return requireRowAffected(result, leaseDomain.ErrJobNotFound)
}

// List returns every rotation job ordered by kind then target.
func (m *MySQLRotationJobRepository) List(ctx context.Context) ([]*leaseDomain.RotationJob, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + pgJobColumns + ` FROM rotation_jobs ORDER BY kind ASC, target ASC`

	return m.queryJobs(ctx, querier, query)
}

// ListDue returns up to limit active jobs whose next execution has passed and
// that are not claimed by a live scheduler lock.
func (m *MySQLRotationJobRepository) ListDue(ctx context.Context, asOf time.Time, limit int) ([]*leaseDomain.RotationJob, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + pgJobColumns + ` FROM rotation_jobs
			  WHERE active = TRUE AND next_execution_at <= ?
				AND (locked_until IS NULL OR locked_until < ?)
			  ORDER BY next_execution_at ASC
			  LIMIT ?`

	return m.queryJobs(ctx, querier, query, asOf, asOf, limit)
}

// Claim atomically takes the scheduler lock on a job.
func (m *MySQLRotationJobRepository) Claim(ctx context.Context, id uuid.UUID, lockedBy string, lockedUntil, now time.Time) (bool, error) {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE rotation_jobs
			  SET locked_by = ?, locked_until = ?
			  WHERE id = ? AND active = TRUE
				AND (locked_until IS NULL OR locked_until < ?)`

	result, err := querier.ExecContext(ctx, query, lockedBy, lockedUntil, id, now)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to claim rotation job")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to read affected row count")
	}
	return affected == 1, nil
}

func (m *MySQLRotationJobRepository) queryJobs(ctx context.Context, querier database.Querier, query string, args ...any) ([]*leaseDomain.RotationJob, error) {
	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list rotation jobs")
	}
	defer func() {
		_ = rows.Close()
	}()

	jobs := make([]*leaseDomain.RotationJob, 0)
	for rows.Next() {
		job, err := scanPostgreSQLJobRows(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate rotation jobs")
	}

	return jobs, nil
}
