package app

import (
	"fmt"

	transitHTTP "github.com/usphq/usp/internal/transit/http"
	transitRepository "github.com/usphq/usp/internal/transit/repository"
	transitUseCase "github.com/usphq/usp/internal/transit/usecase"
)

// TransitKeyRepository returns the transit key repository based on database driver.
func (c *Container) TransitKeyRepository() (transitUseCase.KeyRepository, error) {
	var err error
	c.transitKeyRepoInit.Do(func() {
		c.transitKeyRepo, err = c.initTransitKeyRepository()
		if err != nil {
			c.initErrors["transitKeyRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["transitKeyRepository"]; exists {
		return nil, storedErr
	}
	return c.transitKeyRepo, nil
}

// TransitVersionRepository returns the transit key version repository based on database driver.
func (c *Container) TransitVersionRepository() (transitUseCase.VersionRepository, error) {
	var err error
	c.transitVersionRepoInit.Do(func() {
		c.transitVersionRepo, err = c.initTransitVersionRepository()
		if err != nil {
			c.initErrors["transitVersionRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["transitVersionRepository"]; exists {
		return nil, storedErr
	}
	return c.transitVersionRepo, nil
}

// TransitUseCase returns the transit engine.
func (c *Container) TransitUseCase() (transitUseCase.TransitUseCase, error) {
	var err error
	c.transitUCInit.Do(func() {
		c.transitUC, err = c.initTransitUseCase()
		if err != nil {
			c.initErrors["transitUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["transitUseCase"]; exists {
		return nil, storedErr
	}
	return c.transitUC, nil
}

// TransitKeyHandler returns the HTTP handler for transit key management.
func (c *Container) TransitKeyHandler() (*transitHTTP.TransitKeyHandler, error) {
	var err error
	c.transitKeyHandlerInit.Do(func() {
		c.transitKeyHandler, err = c.initTransitKeyHandler()
		if err != nil {
			c.initErrors["transitKeyHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["transitKeyHandler"]; exists {
		return nil, storedErr
	}
	return c.transitKeyHandler, nil
}

// CryptoHandler returns the HTTP handler for transit cryptographic operations.
func (c *Container) CryptoHandler() (*transitHTTP.CryptoHandler, error) {
	var err error
	c.cryptoHandlerInit.Do(func() {
		c.cryptoHandler, err = c.initCryptoHandler()
		if err != nil {
			c.initErrors["cryptoHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["cryptoHandler"]; exists {
		return nil, storedErr
	}
	return c.cryptoHandler, nil
}

// initTransitKeyRepository creates the transit key repository based on the database driver.
func (c *Container) initTransitKeyRepository() (transitUseCase.KeyRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for transit key repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return transitRepository.NewPostgreSQLTransitKeyRepository(db), nil
	case "mysql":
		return transitRepository.NewMySQLTransitKeyRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initTransitVersionRepository creates the transit version repository based on the database driver.
func (c *Container) initTransitVersionRepository() (transitUseCase.VersionRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for transit version repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return transitRepository.NewPostgreSQLKeyVersionRepository(db), nil
	case "mysql":
		return transitRepository.NewMySQLKeyVersionRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initTransitUseCase creates the transit use case with all its dependencies.
func (c *Container) initTransitUseCase() (transitUseCase.TransitUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for transit use case: %w", err)
	}

	keyRepo, err := c.TransitKeyRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get transit key repository for transit use case: %w", err)
	}

	versionRepo, err := c.TransitVersionRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get transit version repository for transit use case: %w", err)
	}

	auditor, err := c.AuditUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit use case for transit use case: %w", err)
	}

	baseUseCase := transitUseCase.NewTransitUseCase(
		txManager,
		keyRepo,
		versionRepo,
		c.Guard(),
		c.AEADManager(),
		auditor,
	)

	// Wrap with metrics if enabled
	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for transit use case: %w", err)
		}
		return transitUseCase.NewTransitMetricsDecorator(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}

// initTransitKeyHandler creates the transit key HTTP handler.
func (c *Container) initTransitKeyHandler() (*transitHTTP.TransitKeyHandler, error) {
	transitUC, err := c.TransitUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get transit use case for transit key handler: %w", err)
	}
	return transitHTTP.NewTransitKeyHandler(transitUC, c.Logger()), nil
}

// initCryptoHandler creates the transit crypto HTTP handler.
func (c *Container) initCryptoHandler() (*transitHTTP.CryptoHandler, error) {
	transitUC, err := c.TransitUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get transit use case for crypto handler: %w", err)
	}
	return transitHTTP.NewCryptoHandler(transitUC, c.Logger()), nil
}
