package app

import (
	"fmt"
	"time"

	"github.com/usphq/usp/internal/dbengine/connector"
	dbengineHTTP "github.com/usphq/usp/internal/dbengine/http"
	dbengineRepository "github.com/usphq/usp/internal/dbengine/repository"
	dbengineUseCase "github.com/usphq/usp/internal/dbengine/usecase"
)

// connectorRetryBackoff is the initial delay between connector retries.
const connectorRetryBackoff = 100 * time.Millisecond

// DatabaseConfigRepository returns the database configuration repository based on database driver.
func (c *Container) DatabaseConfigRepository() (dbengineUseCase.ConfigRepository, error) {
	var err error
	c.dbConfigRepoInit.Do(func() {
		c.dbConfigRepo, err = c.initDatabaseConfigRepository()
		if err != nil {
			c.initErrors["databaseConfigRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["databaseConfigRepository"]; exists {
		return nil, storedErr
	}
	return c.dbConfigRepo, nil
}

// DatabaseRoleRepository returns the database role repository based on database driver.
func (c *Container) DatabaseRoleRepository() (dbengineUseCase.RoleRepository, error) {
	var err error
	c.dbRoleRepoInit.Do(func() {
		c.dbRoleRepo, err = c.initDatabaseRoleRepository()
		if err != nil {
			c.initErrors["databaseRoleRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["databaseRoleRepository"]; exists {
		return nil, storedErr
	}
	return c.dbRoleRepo, nil
}

// DatabaseLeaseRepository returns the database lease repository based on database driver.
func (c *Container) DatabaseLeaseRepository() (dbengineUseCase.LeaseRepository, error) {
	var err error
	c.dbLeaseRepoInit.Do(func() {
		c.dbLeaseRepo, err = c.initDatabaseLeaseRepository()
		if err != nil {
			c.initErrors["databaseLeaseRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["databaseLeaseRepository"]; exists {
		return nil, storedErr
	}
	return c.dbLeaseRepo, nil
}

// ConnectorRegistry returns the registry of database backend connectors.
func (c *Container) ConnectorRegistry() *connector.Registry {
	c.connectorRegistryInit.Do(func() {
		c.connectorRegistry = connector.NewRegistry()
	})
	return c.connectorRegistry
}

// DBEngineUseCase returns the dynamic database credentials engine.
func (c *Container) DBEngineUseCase() (dbengineUseCase.DBEngineUseCase, error) {
	var err error
	c.dbEngineUCInit.Do(func() {
		c.dbEngineUC, err = c.initDBEngineUseCase()
		if err != nil {
			c.initErrors["dbEngineUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["dbEngineUseCase"]; exists {
		return nil, storedErr
	}
	return c.dbEngineUC, nil
}

// DatabaseConfigHandler returns the HTTP handler for database configuration operations.
func (c *Container) DatabaseConfigHandler() (*dbengineHTTP.DatabaseConfigHandler, error) {
	var err error
	c.databaseConfigHandlerInit.Do(func() {
		c.databaseConfigHandler, err = c.initDatabaseConfigHandler()
		if err != nil {
			c.initErrors["databaseConfigHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["databaseConfigHandler"]; exists {
		return nil, storedErr
	}
	return c.databaseConfigHandler, nil
}

// DatabaseRoleHandler returns the HTTP handler for database role operations.
func (c *Container) DatabaseRoleHandler() (*dbengineHTTP.DatabaseRoleHandler, error) {
	var err error
	c.databaseRoleHandlerInit.Do(func() {
		c.databaseRoleHandler, err = c.initDatabaseRoleHandler()
		if err != nil {
			c.initErrors["databaseRoleHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["databaseRoleHandler"]; exists {
		return nil, storedErr
	}
	return c.databaseRoleHandler, nil
}

// DatabaseLeaseHandler returns the HTTP handler for credential lease operations.
func (c *Container) DatabaseLeaseHandler() (*dbengineHTTP.DatabaseLeaseHandler, error) {
	var err error
	c.databaseLeaseHandlerInit.Do(func() {
		c.databaseLeaseHandler, err = c.initDatabaseLeaseHandler()
		if err != nil {
			c.initErrors["databaseLeaseHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["databaseLeaseHandler"]; exists {
		return nil, storedErr
	}
	return c.databaseLeaseHandler, nil
}

// initDatabaseConfigRepository creates the database config repository based on the database driver.
func (c *Container) initDatabaseConfigRepository() (dbengineUseCase.ConfigRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for database config repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return dbengineRepository.NewPostgreSQLConfigRepository(db), nil
	case "mysql":
		return dbengineRepository.NewMySQLConfigRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initDatabaseRoleRepository creates the database role repository based on the database driver.
func (c *Container) initDatabaseRoleRepository() (dbengineUseCase.RoleRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for database role repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return dbengineRepository.NewPostgreSQLRoleRepository(db), nil
	case "mysql":
		return dbengineRepository.NewMySQLRoleRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initDatabaseLeaseRepository creates the database lease repository based on the database driver.
func (c *Container) initDatabaseLeaseRepository() (dbengineUseCase.LeaseRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for database lease repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return dbengineRepository.NewPostgreSQLLeaseRepository(db), nil
	case "mysql":
		return dbengineRepository.NewMySQLLeaseRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initDBEngineUseCase creates the database engine use case with all its dependencies.
func (c *Container) initDBEngineUseCase() (dbengineUseCase.DBEngineUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for db engine use case: %w", err)
	}

	configRepo, err := c.DatabaseConfigRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get database config repository for db engine use case: %w", err)
	}

	roleRepo, err := c.DatabaseRoleRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get database role repository for db engine use case: %w", err)
	}

	leaseRepo, err := c.DatabaseLeaseRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get database lease repository for db engine use case: %w", err)
	}

	auditor, err := c.AuditUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit use case for db engine use case: %w", err)
	}

	baseUseCase := dbengineUseCase.NewDBEngineUseCase(
		txManager,
		configRepo,
		roleRepo,
		leaseRepo,
		c.ConnectorRegistry(),
		c.Guard(),
		auditor,
		c.config.LeaseRevokeMaxRetries,
		connectorRetryBackoff,
	)

	// Wrap with metrics if enabled
	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for db engine use case: %w", err)
		}
		return dbengineUseCase.NewDBEngineMetricsDecorator(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}

// initDatabaseConfigHandler creates the database config HTTP handler.
func (c *Container) initDatabaseConfigHandler() (*dbengineHTTP.DatabaseConfigHandler, error) {
	dbEngineUC, err := c.DBEngineUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get db engine use case for database config handler: %w", err)
	}
	return dbengineHTTP.NewDatabaseConfigHandler(dbEngineUC, c.Logger()), nil
}

// initDatabaseRoleHandler creates the database role HTTP handler.
func (c *Container) initDatabaseRoleHandler() (*dbengineHTTP.DatabaseRoleHandler, error) {
	dbEngineUC, err := c.DBEngineUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get db engine use case for database role handler: %w", err)
	}
	return dbengineHTTP.NewDatabaseRoleHandler(dbEngineUC, c.Logger()), nil
}

// initDatabaseLeaseHandler creates the database lease HTTP handler.
func (c *Container) initDatabaseLeaseHandler() (*dbengineHTTP.DatabaseLeaseHandler, error) {
	dbEngineUC, err := c.DBEngineUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get db engine use case for database lease handler: %w", err)
	}
	return dbengineHTTP.NewDatabaseLeaseHandler(dbEngineUC, c.Logger()), nil
}
