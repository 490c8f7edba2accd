package app

import (
	"fmt"

	kvHTTP "github.com/usphq/usp/internal/kv/http"
	kvRepository "github.com/usphq/usp/internal/kv/repository"
	kvUseCase "github.com/usphq/usp/internal/kv/usecase"
)

// KVSecretRepository returns the KV secret repository based on database driver.
func (c *Container) KVSecretRepository() (kvUseCase.SecretRepository, error) {
	var err error
	c.kvSecretRepoInit.Do(func() {
		c.kvSecretRepo, err = c.initKVSecretRepository()
		if err != nil {
			c.initErrors["kvSecretRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["kvSecretRepository"]; exists {
		return nil, storedErr
	}
	return c.kvSecretRepo, nil
}

// KVVersionRepository returns the KV version repository based on database driver.
func (c *Container) KVVersionRepository() (kvUseCase.VersionRepository, error) {
	var err error
	c.kvVersionRepoInit.Do(func() {
		c.kvVersionRepo, err = c.initKVVersionRepository()
		if err != nil {
			c.initErrors["kvVersionRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["kvVersionRepository"]; exists {
		return nil, storedErr
	}
	return c.kvVersionRepo, nil
}

// KVUseCase returns the versioned key-value engine.
func (c *Container) KVUseCase() (kvUseCase.KVUseCase, error) {
	var err error
	c.kvUCInit.Do(func() {
		c.kvUC, err = c.initKVUseCase()
		if err != nil {
			c.initErrors["kvUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["kvUseCase"]; exists {
		return nil, storedErr
	}
	return c.kvUC, nil
}

// KVHandler returns the HTTP handler for versioned secret operations.
func (c *Container) KVHandler() (*kvHTTP.KVHandler, error) {
	var err error
	c.kvHandlerInit.Do(func() {
		c.kvHandler, err = c.initKVHandler()
		if err != nil {
			c.initErrors["kvHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["kvHandler"]; exists {
		return nil, storedErr
	}
	return c.kvHandler, nil
}

// initKVSecretRepository creates the KV secret repository based on the database driver.
func (c *Container) initKVSecretRepository() (kvUseCase.SecretRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for kv secret repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return kvRepository.NewPostgreSQLSecretRepository(db), nil
	case "mysql":
		return kvRepository.NewMySQLSecretRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initKVVersionRepository creates the KV version repository based on the database driver.
func (c *Container) initKVVersionRepository() (kvUseCase.VersionRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for kv version repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return kvRepository.NewPostgreSQLVersionRepository(db), nil
	case "mysql":
		return kvRepository.NewMySQLVersionRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initKVUseCase creates the KV use case with all its dependencies.
func (c *Container) initKVUseCase() (kvUseCase.KVUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for kv use case: %w", err)
	}

	secretRepo, err := c.KVSecretRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get kv secret repository for kv use case: %w", err)
	}

	versionRepo, err := c.KVVersionRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get kv version repository for kv use case: %w", err)
	}

	auditor, err := c.AuditUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit use case for kv use case: %w", err)
	}

	baseUseCase := kvUseCase.NewKVUseCase(
		txManager,
		secretRepo,
		versionRepo,
		c.Guard(),
		auditor,
		c.config.KVDefaultMaxVersions,
	)

	// Wrap with metrics if enabled
	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for kv use case: %w", err)
		}
		return kvUseCase.NewKVMetricsDecorator(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}

// initKVHandler creates the KV HTTP handler with all its dependencies.
func (c *Container) initKVHandler() (*kvHTTP.KVHandler, error) {
	kvUC, err := c.KVUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get kv use case for kv handler: %w", err)
	}

	authzUC, err := c.AuthzUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get authz use case for kv handler: %w", err)
	}

	return kvHTTP.NewKVHandler(kvUC, authzUC, c.Logger()), nil
}
