package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	dbengineDomain "github.com/usphq/usp/internal/dbengine/domain"
	leaseDomain "github.com/usphq/usp/internal/lease/domain"
	"github.com/usphq/usp/internal/metrics"
)

// Config holds lease manager configuration.
type Config struct {
	// Interval is the polling period of the scheduler loop.
	Interval time.Duration

	// BatchSize bounds how many leases and jobs one pass picks up.
	BatchSize int

	// LockTTL is how long a claim stays valid. A worker that dies mid-work
	// releases its claim implicitly when the lock expires.
	LockTTL time.Duration

	// RetryBackoff is the base delay before a failed rotation job runs again;
	// it doubles per consecutive failure up to the job interval.
	RetryBackoff time.Duration

	// WorkerID identifies this worker in claim locks.
	WorkerID string
}

// leaseManager implements LeaseManager.
type leaseManager struct {
	config          Config
	leaseStore      LeaseStore
	revoker         LeaseRevoker
	jobStore        JobStore
	runners         map[leaseDomain.JobKind]Runner
	businessMetrics metrics.BusinessMetrics
	logger          *slog.Logger
}

// NewLeaseManager creates the scheduler. Runners are registered afterwards,
// before Start.
func NewLeaseManager(
	config Config,
	leaseStore LeaseStore,
	revoker LeaseRevoker,
	jobStore JobStore,
	businessMetrics metrics.BusinessMetrics,
	logger *slog.Logger,
) LeaseManager {
	if config.Interval <= 0 {
		config.Interval = 10 * time.Second
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 100
	}
	if config.LockTTL <= 0 {
		config.LockTTL = time.Minute
	}
	if config.RetryBackoff <= 0 {
		config.RetryBackoff = 30 * time.Second
	}
	if config.WorkerID == "" {
		config.WorkerID = uuid.NewString()
	}
	return &leaseManager{
		config:          config,
		leaseStore:      leaseStore,
		revoker:         revoker,
		jobStore:        jobStore,
		runners:         make(map[leaseDomain.JobKind]Runner),
		businessMetrics: businessMetrics,
		logger:          logger,
	}
}

// RegisterRunner binds a rotation kind to its executor.
func (m *leaseManager) RegisterRunner(kind leaseDomain.JobKind, runner Runner) {
	m.runners[kind] = runner
}

// Start runs the processing loop until the context is cancelled.
func (m *leaseManager) Start(ctx context.Context) error {
	m.logger.Info("starting lease manager",
		slog.Duration("interval", m.config.Interval),
		slog.Int("batch_size", m.config.BatchSize),
		slog.String("worker_id", m.config.WorkerID),
	)

	ticker := time.NewTicker(m.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("stopping lease manager")
			return ctx.Err()
		case <-ticker.C:
			if err := m.Process(ctx); err != nil {
				m.logger.Error("failed to process due work", slog.Any("error", err))
			}
		}
	}
}

// Process drains one batch of due work. Expired leases and due rotation jobs
// are merged into one schedule ordered by due time, then each item is claimed
// and executed; a lost claim means another worker took it.
func (m *leaseManager) Process(ctx context.Context) error {
	now := time.Now()
	schedule := newSchedule()

	leases, err := m.leaseStore.ListExpired(ctx, now, m.config.BatchSize)
	if err != nil {
		return err
	}
	for _, lease := range leases {
		lease := lease
		schedule.add(lease.ExpiresAt, func(ctx context.Context) {
			m.revokeExpired(ctx, lease, now)
		})
	}

	jobs, err := m.jobStore.ListDue(ctx, now, m.config.BatchSize)
	if err != nil {
		return err
	}
	for _, job := range jobs {
		job := job
		schedule.add(job.NextExecutionAt, func(ctx context.Context) {
			m.runJob(ctx, job, now)
		})
	}

	for item := schedule.next(); item != nil; item = schedule.next() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		item.run(ctx)
	}

	return nil
}

// revokeExpired claims and revokes one expired lease. A store failure leaves
// the claim to expire so a later pass retries.
func (m *leaseManager) revokeExpired(ctx context.Context, lease *dbengineDomain.Lease, now time.Time) {
	won, err := m.leaseStore.Claim(ctx, lease.ID, m.config.WorkerID, now.Add(m.config.LockTTL), now)
	if err != nil {
		m.logger.Error("failed to claim lease", slog.String("lease_id", lease.ID), slog.Any("error", err))
		return
	}
	if !won {
		return
	}

	if err := m.revoker.RevokeLease(ctx, lease.ID); err != nil {
		m.logger.Error("failed to revoke expired lease",
			slog.String("lease_id", lease.ID),
			slog.Any("error", err),
		)
		m.businessMetrics.RecordOperation(ctx, "lease", "revoke_expired", "error")
		return
	}

	m.logger.Info("revoked expired lease", slog.String("lease_id", lease.ID))
	m.businessMetrics.RecordOperation(ctx, "lease", "revoke_expired", "success")
}

// runJob claims and executes one rotation job, then reschedules it. Failures
// back off exponentially up to the job interval; the job stays active.
func (m *leaseManager) runJob(ctx context.Context, job *leaseDomain.RotationJob, now time.Time) {
	won, err := m.jobStore.Claim(ctx, job.ID, m.config.WorkerID, now.Add(m.config.LockTTL), now)
	if err != nil {
		m.logger.Error("failed to claim rotation job", slog.String("job_id", job.ID.String()), slog.Any("error", err))
		return
	}
	if !won {
		return
	}

	runErr := m.execute(ctx, job)

	job.LockedBy = ""
	job.LockedUntil = nil
	job.UpdatedAt = now.UTC()
	if runErr != nil {
		job.FailureCount++
		message := runErr.Error()
		job.LastError = &message
		job.NextExecutionAt = now.Add(m.failureBackoff(job.FailureCount))

		m.logger.Error("rotation job failed",
			slog.String("job_id", job.ID.String()),
			slog.String("kind", string(job.Kind)),
			slog.String("target", job.Target),
			slog.Int("failure_count", job.FailureCount),
			slog.Any("error", runErr),
		)
		m.businessMetrics.RecordOperation(ctx, "lease", "rotation_job", "error")
	} else {
		job.FailureCount = 0
		job.LastError = nil
		job.NextExecutionAt = now.Add(job.Interval)

		m.logger.Info("rotation job completed",
			slog.String("job_id", job.ID.String()),
			slog.String("kind", string(job.Kind)),
			slog.String("target", job.Target),
		)
		m.businessMetrics.RecordOperation(ctx, "lease", "rotation_job", "success")
	}

	if err := m.jobStore.Update(ctx, job); err != nil {
		m.logger.Error("failed to reschedule rotation job",
			slog.String("job_id", job.ID.String()),
			slog.Any("error", err),
		)
	}
}

func (m *leaseManager) execute(ctx context.Context, job *leaseDomain.RotationJob) error {
	runner, ok := m.runners[job.Kind]
	if !ok {
		return leaseDomain.ErrKindInvalid
	}
	return runner(ctx, job.Target)
}

// failureBackoff doubles the base delay per consecutive failure, capped at
// the configured polling-friendly maximum of one hour.
func (m *leaseManager) failureBackoff(failures int) time.Duration {
	backoff := m.config.RetryBackoff
	for i := 1; i < failures; i++ {
		backoff *= 2
		if backoff >= time.Hour {
			return time.Hour
		}
	}
	return backoff
}

// CreateJob validates and stores a rotation job.
func (m *leaseManager) CreateJob(ctx context.Context, input *CreateJobInput) (*leaseDomain.RotationJob, error) {
	if !input.Kind.Valid() {
		return nil, leaseDomain.ErrKindInvalid
	}
	if input.Interval <= 0 {
		return nil, leaseDomain.ErrIntervalInvalid
	}

	now := time.Now().UTC()
	first := input.FirstExecution
	if first.IsZero() {
		first = now.Add(input.Interval)
	}

	job := &leaseDomain.RotationJob{
		ID:              uuid.Must(uuid.NewV7()),
		Kind:            input.Kind,
		Target:          input.Target,
		Interval:        input.Interval,
		NextExecutionAt: first,
		Active:          true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := m.jobStore.Create(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// ListJobs returns every rotation job.
func (m *leaseManager) ListJobs(ctx context.Context) ([]*leaseDomain.RotationJob, error) {
	return m.jobStore.List(ctx)
}

// DeleteJob removes a rotation job.
func (m *leaseManager) DeleteJob(ctx context.Context, id uuid.UUID) error {
	return m.jobStore.Delete(ctx, id)
}
