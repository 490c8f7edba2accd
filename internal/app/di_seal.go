package app

import (
	"fmt"

	sealHTTP "github.com/usphq/usp/internal/seal/http"
	sealRepository "github.com/usphq/usp/internal/seal/repository"
	sealUseCase "github.com/usphq/usp/internal/seal/usecase"
)

// SealConfigRepository returns the seal configuration repository based on database driver.
func (c *Container) SealConfigRepository() (sealUseCase.SealConfigRepository, error) {
	var err error
	c.sealConfigRepoInit.Do(func() {
		c.sealConfigRepo, err = c.initSealConfigRepository()
		if err != nil {
			c.initErrors["sealConfigRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["sealConfigRepository"]; exists {
		return nil, storedErr
	}
	return c.sealConfigRepo, nil
}

// SealUseCase returns the seal state machine.
func (c *Container) SealUseCase() (sealUseCase.SealUseCase, error) {
	var err error
	c.sealUCInit.Do(func() {
		c.sealUC, err = c.initSealUseCase()
		if err != nil {
			c.initErrors["sealUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["sealUseCase"]; exists {
		return nil, storedErr
	}
	return c.sealUC, nil
}

// SealHandler returns the HTTP handler for seal control plane operations.
func (c *Container) SealHandler() (*sealHTTP.SealHandler, error) {
	var err error
	c.sealHandlerInit.Do(func() {
		c.sealHandler, err = c.initSealHandler()
		if err != nil {
			c.initErrors["sealHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["sealHandler"]; exists {
		return nil, storedErr
	}
	return c.sealHandler, nil
}

// initSealConfigRepository creates the seal configuration repository based on the database driver.
func (c *Container) initSealConfigRepository() (sealUseCase.SealConfigRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for seal config repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return sealRepository.NewPostgreSQLSealConfigRepository(db), nil
	case "mysql":
		return sealRepository.NewMySQLSealConfigRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initSealUseCase creates the seal use case with all its dependencies.
func (c *Container) initSealUseCase() (sealUseCase.SealUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for seal use case: %w", err)
	}

	configRepo, err := c.SealConfigRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get seal config repository for seal use case: %w", err)
	}

	auditor, err := c.AuditUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit use case for seal use case: %w", err)
	}

	return sealUseCase.NewSealUseCase(
		txManager,
		configRepo,
		c.Guard(),
		auditor,
		c.KMSService(),
		c.config.KMSKeyURI,
		c.config.SealDrainTimeout,
		c.Logger(),
	), nil
}

// initSealHandler creates the seal HTTP handler with all its dependencies.
func (c *Container) initSealHandler() (*sealHTTP.SealHandler, error) {
	sealUC, err := c.SealUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get seal use case for seal handler: %w", err)
	}
	return sealHTTP.NewSealHandler(sealUC, c.Logger()), nil
}
