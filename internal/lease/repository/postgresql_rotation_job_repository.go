// Package repository provides persistence for rotation jobs.
package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/usphq/usp/internal/database"
	apperrors "github.com/usphq/usp/internal/errors"
	leaseDomain "github.com/usphq/usp/internal/lease/domain"
)

// PostgreSQLRotationJobRepository implements rotation job persistence for PostgreSQL.
type PostgreSQLRotationJobRepository struct {
	db *sql.DB
}

// NewPostgreSQLRotationJobRepository creates a new PostgreSQL rotation job repository.
func NewPostgreSQLRotationJobRepository(db *sql.DB) *PostgreSQLRotationJobRepository {
	return &PostgreSQLRotationJobRepository{db: db}
}

const pgJobColumns = `id, kind, target, interval_seconds, next_execution_at, failure_count, last_error,
	active, locked_by, locked_until, created_at, updated_at`

// GetByID retrieves one rotation job.
func (p *PostgreSQLRotationJobRepository) GetByID(ctx context.Context, id uuid.UUID) (*leaseDomain.RotationJob, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + pgJobColumns + ` FROM rotation_jobs WHERE id = $1`

	return scanPostgreSQLJob(querier.QueryRowContext(ctx, query, id))
}

// Create inserts a new rotation job. The kind/target pair is unique.
func (p *PostgreSQLRotationJobRepository) Create(ctx context.Context, job *leaseDomain.RotationJob) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO rotation_jobs
			  (id, kind, target, interval_seconds, next_execution_at, failure_count, active, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)`

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
	)
	if err != nil {
		if isUniqueViolation(err) {
			return leaseDomain.ErrJobExists
		}
		return apperrors.Wrap(err, "failed to create rotation job")
	}

	return nil
}

// Update persists mutable job fields.
func (p *PostgreSQLRotationJobRepository) Update(ctx context.Context, job *leaseDomain.RotationJob) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE rotation_jobs
			  SET interval_seconds = $2, next_execution_at = $3, failure_count = $4, last_error = $5,
				  active = $6, locked_by = $7, locked_until = $8, updated_at = $9
			  WHERE id = $1`

	result, err := querier.ExecContext(
		ctx,
		query,
		job.ID,
		int64(job.Interval.Seconds()),
		job.NextExecutionAt,
		job.FailureCount,
		job.LastError,
		job.Active,
		job.LockedBy,
		job.LockedUntil,
		job.UpdatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update rotation job")
	}

	return requireRowAffected(result, leaseDomain.ErrJobNotFound)
}

// Delete removes a rotation job.
func (p *PostgreSQLRotationJobRepository) Delete(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, p.db)

	result, err := querier.ExecContext(ctx, `DELETE FROM rotation_jobs WHERE id = $1`, id)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete rotation job")
	}

	return requireRowAffected(result, leaseDomain.ErrJobNotFound)
}

// List returns every rotation job ordered by kind then target.
func (p *PostgreSQLRotationJobRepository) List(ctx context.Context) ([]*leaseDomain.RotationJob, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + pgJobColumns + ` FROM rotation_jobs ORDER BY kind ASC, target ASC`

	return p.queryJobs(ctx, querier, query)
}

// ListDue returns up to limit active jobs whose next execution has passed and
// that are not claimed by a live scheduler lock.
func (p *PostgreSQLRotationJobRepository) ListDue(ctx context.Context, asOf time.Time, limit int) ([]*leaseDomain.RotationJob, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + pgJobColumns + ` FROM rotation_jobs
			  WHERE active = TRUE AND next_execution_at <= $1
				AND (locked_until IS NULL OR locked_until < $1)
			  ORDER BY next_execution_at ASC
			  LIMIT $2`

	return p.queryJobs(ctx, querier, query, asOf, limit)
}

// Claim atomically takes the scheduler lock on a job. Returns false without
// error when another worker holds a live claim.
func (p *PostgreSQLRotationJobRepository) Claim(ctx context.Context, id uuid.UUID, lockedBy string, lockedUntil, now time.Time) (bool, error) {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE rotation_jobs
			  SET locked_by = $2, locked_until = $3
			  WHERE id = $1 AND active = TRUE
				AND (locked_until IS NULL OR locked_until < $4)`

	result, err := querier.ExecContext(ctx, query, id, lockedBy, lockedUntil, now)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to claim rotation job")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to read affected row count")
	}
	return affected == 1, nil
}

func (p *PostgreSQLRotationJobRepository) queryJobs(ctx context.Context, querier database.Querier, query string, args ...any) ([]*leaseDomain.RotationJob, error) {
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

func scanPostgreSQLJob(row *sql.Row) (*leaseDomain.RotationJob, error) {
	var (
		job             leaseDomain.RotationJob
		intervalSeconds int64
		lockedBy        sql.NullString
	)
	err := row.Scan(
		&job.ID,
		&job.Kind,
		&job.Target,
		&intervalSeconds,
		&job.NextExecutionAt,
		&job.FailureCount,
		&job.LastError,
		&job.Active,
		&lockedBy,
		&job.LockedUntil,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		if apperrors.Is(err, sql.ErrNoRows) {
			return nil, leaseDomain.ErrJobNotFound
		}
		return nil, apperrors.Wrap(err, "failed to scan rotation job")
	}
	job.Interval = time.Duration(intervalSeconds) * time.Second
	job.LockedBy = lockedBy.String
	return &job, nil
}

func scanPostgreSQLJobRows(rows *sql.Rows) (*leaseDomain.RotationJob, error) {
	var (
		job             leaseDomain.RotationJob
		intervalSeconds int64
		lockedBy        sql.NullString
	)
	err := rows.Scan(
		&job.ID,
		&job.Kind,
		&job.Target,
		&intervalSeconds,
		&job.NextExecutionAt,
		&job.FailureCount,
		&job.LastError,
		&job.Active,
		&lockedBy,
		&job.LockedUntil,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to scan rotation job")
	}
	job.Interval = time.Duration(intervalSeconds) * time.Second
	job.LockedBy = lockedBy.String
	return &job, nil
}

func requireRowAffected(result sql.Result, missing error) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to read affected row count")
	}
	if affected == 0 {
		return missing
	}
	return nil
}

// isUniqueViolation matches unique constraint errors from PostgreSQL and
// MySQL without driver-specific error types.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	errMsg := strings.ToLower(err.Error())
	return strings.Contains(errMsg, "duplicate key") ||
		strings.Contains(errMsg, "unique constraint") ||
		strings.Contains(errMsg, "duplicate entry")
}
