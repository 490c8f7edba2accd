// Package usecase implements the lease manager: a scheduler that revokes
// expired database leases and runs recurring rotation jobs, with at-most-once
// execution across workers via claim locks.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	dbengineDomain "github.com/usphq/usp/internal/dbengine/domain"
	leaseDomain "github.com/usphq/usp/internal/lease/domain"
)

// LeaseStore is the slice of the database engine's lease persistence the
// scheduler drives: discovering due work and claiming it.
type LeaseStore interface {
	// ListExpired returns due unrevoked leases without a live scheduler claim.
	ListExpired(ctx context.Context, asOf time.Time, limit int) ([]*dbengineDomain.Lease, error)

	// Claim atomically takes the scheduler lock; at most one caller wins for
	// a given lock window.
	Claim(ctx context.Context, id, lockedBy string, lockedUntil, now time.Time) (bool, error)
}

// LeaseRevoker revokes one lease. Implemented by the database engine; a
// connector failure is absorbed there, so an error here is a store failure
// and the claim lock is left to expire.
type LeaseRevoker interface {
	RevokeLease(ctx context.Context, leaseID string) error
}

// JobStore defines persistence for rotation jobs.
type JobStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*leaseDomain.RotationJob, error)

	Create(ctx context.Context, job *leaseDomain.RotationJob) error

	Update(ctx context.Context, job *leaseDomain.RotationJob) error

	Delete(ctx context.Context, id uuid.UUID) error

	List(ctx context.Context) ([]*leaseDomain.RotationJob, error)

	// ListDue returns active jobs whose next execution has passed and that
	// are not claimed by a live scheduler lock.
	ListDue(ctx context.Context, asOf time.Time, limit int) ([]*leaseDomain.RotationJob, error)

	// Claim atomically takes the scheduler lock on a job.
	Claim(ctx context.Context, id uuid.UUID, lockedBy string, lockedUntil, now time.Time) (bool, error)
}

// Runner executes one rotation against its target.
type Runner func(ctx context.Context, target string) error

// CreateJobInput carries one rotation job definition. A zero FirstExecution
// schedules the first run one interval from now.
type CreateJobInput struct {
	Kind           leaseDomain.JobKind
	Target         string
	Interval       time.Duration
	FirstExecution time.Time
}

// LeaseManager is the scheduler facade.
type LeaseManager interface {
	// Start runs the processing loop until the context is cancelled.
	Start(ctx context.Context) error

	// Process drains one batch of due work: expired leases and due jobs.
	Process(ctx context.Context) error

	// RegisterRunner binds a rotation kind to its executor. Not safe to call
	// after Start.
	RegisterRunner(kind leaseDomain.JobKind, runner Runner)

	CreateJob(ctx context.Context, input *CreateJobInput) (*leaseDomain.RotationJob, error)

	ListJobs(ctx context.Context) ([]*leaseDomain.RotationJob, error)

	DeleteJob(ctx context.Context, id uuid.UUID) error
}
