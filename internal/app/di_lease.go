package app

import (
	"context"
	"fmt"

	kvUseCase "github.com/usphq/usp/internal/kv/usecase"
	leaseDomain "github.com/usphq/usp/internal/lease/domain"
	leaseRepository "github.com/usphq/usp/internal/lease/repository"
	leaseUseCase "github.com/usphq/usp/internal/lease/usecase"
	"github.com/usphq/usp/internal/metrics"
	transitUseCase "github.com/usphq/usp/internal/transit/usecase"
)

// RotationJobRepository returns the rotation job repository based on database driver.
func (c *Container) RotationJobRepository() (leaseUseCase.JobStore, error) {
	var err error
	c.rotationJobRepoInit.Do(func() {
		c.rotationJobRepo, err = c.initRotationJobRepository()
		if err != nil {
			c.initErrors["rotationJobRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["rotationJobRepository"]; exists {
		return nil, storedErr
	}
	return c.rotationJobRepo, nil
}

// LeaseManager returns the lease expiry and rotation scheduler with every
// rotation runner registered.
func (c *Container) LeaseManager() (leaseUseCase.LeaseManager, error) {
	var err error
	c.leaseMgrInit.Do(func() {
		c.leaseMgr, err = c.initLeaseManager()
		if err != nil {
			c.initErrors["leaseManager"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["leaseManager"]; exists {
		return nil, storedErr
	}
	return c.leaseMgr, nil
}

// initRotationJobRepository creates the rotation job repository based on the database driver.
func (c *Container) initRotationJobRepository() (leaseUseCase.JobStore, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for rotation job repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return leaseRepository.NewPostgreSQLRotationJobRepository(db), nil
	case "mysql":
		return leaseRepository.NewMySQLRotationJobRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initLeaseManager creates the lease manager with all its dependencies and
// registers the runner for each rotation kind.
func (c *Container) initLeaseManager() (leaseUseCase.LeaseManager, error) {
	leaseRepo, err := c.DatabaseLeaseRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get database lease repository for lease manager: %w", err)
	}

	dbEngineUC, err := c.DBEngineUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get db engine use case for lease manager: %w", err)
	}

	jobStore, err := c.RotationJobRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get rotation job repository for lease manager: %w", err)
	}

	transitUC, err := c.TransitUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get transit use case for lease manager: %w", err)
	}

	kvUC, err := c.KVUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get kv use case for lease manager: %w", err)
	}

	businessMetrics := metrics.NewNoOpBusinessMetrics()
	if c.config.MetricsEnabled {
		businessMetrics, err = c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for lease manager: %w", err)
		}
	}

	manager := leaseUseCase.NewLeaseManager(
		leaseUseCase.Config{Interval: c.config.LeaseTickInterval},
		leaseRepo,
		dbEngineUC,
		jobStore,
		businessMetrics,
		c.Logger(),
	)

	manager.RegisterRunner(leaseDomain.KindTransitKeyRotate, transitRotateRunner(transitUC))
	manager.RegisterRunner(leaseDomain.KindDBRootRotate, dbEngineUC.RotateRootCredentials)
	manager.RegisterRunner(leaseDomain.KindKVRewrap, kvRewrapRunner(kvUC))

	return manager, nil
}

// transitRotateRunner adapts transit key rotation to the runner signature.
func transitRotateRunner(uc transitUseCase.TransitUseCase) leaseUseCase.Runner {
	return func(ctx context.Context, target string) error {
		_, err := uc.RotateKey(ctx, target)
		return err
	}
}

// kvRewrapRunner rewrites the current version of a KV path so it is sealed
// under fresh key material. The secret's current version is the check-and-set
// guard, so a concurrent writer wins and the rewrap retries on the next run.
// The read version cannot serve as the guard: when the newest version was
// destroyed, Read falls back to an older intact one and the write would fail
// with a CAS mismatch forever.
func kvRewrapRunner(uc kvUseCase.KVUseCase) leaseUseCase.Runner {
	return func(ctx context.Context, target string) error {
		result, err := uc.Read(ctx, target, 0, false)
		if err != nil {
			return err
		}

		cas := result.Secret.CurrentVersion
		_, err = uc.Write(ctx, &kvUseCase.WriteInput{
			Path:  target,
			Value: result.Version.Plaintext,
			CAS:   &cas,
		})
		return err
	}
}
