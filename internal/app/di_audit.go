package app

import (
	"fmt"

	auditRepository "github.com/usphq/usp/internal/audit/repository"
	auditUseCase "github.com/usphq/usp/internal/audit/usecase"
)

// AuditRecordRepository returns the audit record repository based on database driver.
func (c *Container) AuditRecordRepository() (auditUseCase.RecordRepository, error) {
	var err error
	c.auditRecordRepoInit.Do(func() {
		c.auditRecordRepo, err = c.initAuditRecordRepository()
		if err != nil {
			c.initErrors["auditRecordRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["auditRecordRepository"]; exists {
		return nil, storedErr
	}
	return c.auditRecordRepo, nil
}

// AuditChainStateRepository returns the audit chain state repository based on database driver.
func (c *Container) AuditChainStateRepository() (auditUseCase.ChainStateRepository, error) {
	var err error
	c.auditChainStateRepoInit.Do(func() {
		c.auditChainStateRepo, err = c.initAuditChainStateRepository()
		if err != nil {
			c.initErrors["auditChainStateRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["auditChainStateRepository"]; exists {
		return nil, storedErr
	}
	return c.auditChainStateRepo, nil
}

// AuditUseCase returns the tamper-evident audit sink.
func (c *Container) AuditUseCase() (auditUseCase.AuditUseCase, error) {
	var err error
	c.auditUCInit.Do(func() {
		c.auditUC, err = c.initAuditUseCase()
		if err != nil {
			c.initErrors["auditUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["auditUseCase"]; exists {
		return nil, storedErr
	}
	return c.auditUC, nil
}

// initAuditRecordRepository creates the audit record repository based on the database driver.
func (c *Container) initAuditRecordRepository() (auditUseCase.RecordRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for audit record repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return auditRepository.NewPostgreSQLRecordRepository(db), nil
	case "mysql":
		return auditRepository.NewMySQLRecordRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initAuditChainStateRepository creates the audit chain state repository based on the database driver.
func (c *Container) initAuditChainStateRepository() (auditUseCase.ChainStateRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for audit chain state repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return auditRepository.NewPostgreSQLChainStateRepository(db), nil
	case "mysql":
		return auditRepository.NewMySQLChainStateRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initAuditUseCase creates the audit use case with all its dependencies.
func (c *Container) initAuditUseCase() (auditUseCase.AuditUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for audit use case: %w", err)
	}

	recordRepo, err := c.AuditRecordRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit record repository for audit use case: %w", err)
	}

	stateRepo, err := c.AuditChainStateRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit chain state repository for audit use case: %w", err)
	}

	baseUseCase := auditUseCase.NewAuditUseCase(
		txManager,
		recordRepo,
		stateRepo,
		c.ChainSigner(),
		c.Guard(),
	)

	// Wrap with metrics if enabled
	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for audit use case: %w", err)
		}
		return auditUseCase.NewAuditUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}
