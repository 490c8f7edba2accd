// Package app provides the dependency injection container for assembling
// application components.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	auditService "github.com/usphq/usp/internal/audit/service"
	auditUseCase "github.com/usphq/usp/internal/audit/usecase"
	authHTTP "github.com/usphq/usp/internal/auth/http"
	authService "github.com/usphq/usp/internal/auth/service"
	authUseCase "github.com/usphq/usp/internal/auth/usecase"
	authzHTTP "github.com/usphq/usp/internal/authz/http"
	authzService "github.com/usphq/usp/internal/authz/service"
	authzUseCase "github.com/usphq/usp/internal/authz/usecase"
	"github.com/usphq/usp/internal/config"
	cryptoService "github.com/usphq/usp/internal/crypto/service"
	"github.com/usphq/usp/internal/database"
	"github.com/usphq/usp/internal/dbengine/connector"
	dbengineHTTP "github.com/usphq/usp/internal/dbengine/http"
	dbengineUseCase "github.com/usphq/usp/internal/dbengine/usecase"
	"github.com/usphq/usp/internal/http"
	kvHTTP "github.com/usphq/usp/internal/kv/http"
	kvUseCase "github.com/usphq/usp/internal/kv/usecase"
	leaseUseCase "github.com/usphq/usp/internal/lease/usecase"
	"github.com/usphq/usp/internal/metrics"
	sealHTTP "github.com/usphq/usp/internal/seal/http"
	sealService "github.com/usphq/usp/internal/seal/service"
	sealUseCase "github.com/usphq/usp/internal/seal/usecase"
	transitHTTP "github.com/usphq/usp/internal/transit/http"
	transitUseCase "github.com/usphq/usp/internal/transit/usecase"
)

// txRetryAttempts bounds transparent retries of serialization failures.
const txRetryAttempts = 3

// Container holds all application dependencies and provides methods to access them.
// It follows the lazy initialization pattern - components are created on first access.
type Container struct {
	// Configuration
	config *config.Config

	// Infrastructure
	logger          *slog.Logger
	db              *sql.DB
	txManager       database.TxManager
	metricsProvider *metrics.Provider
	businessMetrics metrics.BusinessMetrics

	// Crypto and seal machinery
	aeadManager cryptoService.AEADManager
	kmsService  cryptoService.KMSService
	guard       *sealService.Guard
	chainSigner auditService.ChainSigner

	// Repositories
	sealConfigRepo      sealUseCase.SealConfigRepository
	auditRecordRepo     auditUseCase.RecordRepository
	auditChainStateRepo auditUseCase.ChainStateRepository
	kvSecretRepo        kvUseCase.SecretRepository
	kvVersionRepo       kvUseCase.VersionRepository
	transitKeyRepo      transitUseCase.KeyRepository
	transitVersionRepo  transitUseCase.VersionRepository
	dbConfigRepo        dbengineUseCase.ConfigRepository
	dbRoleRepo          dbengineUseCase.RoleRepository
	dbLeaseRepo         dbengineUseCase.LeaseRepository
	policyRepo          authzUseCase.PolicyRepository
	principalRepo       authUseCase.PrincipalRepository
	tokenRepo           authUseCase.TokenRepository
	rotationJobRepo     leaseUseCase.JobStore

	// Services
	secretService     authService.SecretService
	tokenService      authService.TokenService
	evaluator         *authzService.Evaluator
	decisionCache     *authzService.DecisionCache
	connectorRegistry *connector.Registry
	zoneResolver      *authHTTP.ZoneResolver

	// Use Cases
	sealUC      sealUseCase.SealUseCase
	auditUC     auditUseCase.AuditUseCase
	kvUC        kvUseCase.KVUseCase
	transitUC   transitUseCase.TransitUseCase
	dbEngineUC  dbengineUseCase.DBEngineUseCase
	authzUC     authzUseCase.AuthzUseCase
	tokenUC     authUseCase.TokenUseCase
	principalUC authUseCase.PrincipalUseCase
	leaseMgr    leaseUseCase.LeaseManager

	// HTTP handlers
	sealHandler           *sealHTTP.SealHandler
	kvHandler             *kvHTTP.KVHandler
	transitKeyHandler     *transitHTTP.TransitKeyHandler
	cryptoHandler         *transitHTTP.CryptoHandler
	databaseConfigHandler *dbengineHTTP.DatabaseConfigHandler
	databaseRoleHandler   *dbengineHTTP.DatabaseRoleHandler
	databaseLeaseHandler  *dbengineHTTP.DatabaseLeaseHandler
	policyHandler         *authzHTTP.PolicyHandler
	authzHandler          *authzHTTP.AuthzHandler
	tokenHandler          *authHTTP.TokenHandler
	principalHandler      *authHTTP.PrincipalHandler

	// Servers
	httpServer    *http.Server
	metricsServer *http.MetricsServer

	// Initialization flags and mutex for thread-safety
	mu                        sync.Mutex
	loggerInit                sync.Once
	dbInit                    sync.Once
	txManagerInit             sync.Once
	metricsProviderInit       sync.Once
	businessMetricsInit       sync.Once
	aeadManagerInit           sync.Once
	kmsServiceInit            sync.Once
	guardInit                 sync.Once
	chainSignerInit           sync.Once
	sealConfigRepoInit        sync.Once
	auditRecordRepoInit       sync.Once
	auditChainStateRepoInit   sync.Once
	kvSecretRepoInit          sync.Once
	kvVersionRepoInit         sync.Once
	transitKeyRepoInit        sync.Once
	transitVersionRepoInit    sync.Once
	dbConfigRepoInit          sync.Once
	dbRoleRepoInit            sync.Once
	dbLeaseRepoInit           sync.Once
	policyRepoInit            sync.Once
	principalRepoInit         sync.Once
	tokenRepoInit             sync.Once
	rotationJobRepoInit       sync.Once
	secretServiceInit         sync.Once
	tokenServiceInit          sync.Once
	evaluatorInit             sync.Once
	decisionCacheInit         sync.Once
	connectorRegistryInit     sync.Once
	zoneResolverInit          sync.Once
	sealUCInit                sync.Once
	auditUCInit               sync.Once
	kvUCInit                  sync.Once
	transitUCInit             sync.Once
	dbEngineUCInit            sync.Once
	authzUCInit               sync.Once
	tokenUCInit               sync.Once
	principalUCInit           sync.Once
	leaseMgrInit              sync.Once
	sealHandlerInit           sync.Once
	kvHandlerInit             sync.Once
	transitKeyHandlerInit     sync.Once
	cryptoHandlerInit         sync.Once
	databaseConfigHandlerInit sync.Once
	databaseRoleHandlerInit   sync.Once
	databaseLeaseHandlerInit  sync.Once
	policyHandlerInit         sync.Once
	authzHandlerInit          sync.Once
	tokenHandlerInit          sync.Once
	principalHandlerInit      sync.Once
	httpServerInit            sync.Once
	metricsServerInit         sync.Once
	initErrors                map[string]error
}

// NewContainer creates a new dependency injection container with the provided configuration.
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config:     cfg,
		initErrors: make(map[string]error),
	}
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the application logger, initializing it on first access.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// DB returns the database connection, initializing it on first access.
func (c *Container) DB() (*sql.DB, error) {
	var err error
	c.dbInit.Do(func() {
		c.db, err = c.initDB()
		if err != nil {
			c.initErrors["db"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["db"]; exists {
		return nil, storedErr
	}
	return c.db, nil
}

// TxManager returns the transaction manager, initializing it on first access.
func (c *Container) TxManager() (database.TxManager, error) {
	var err error
	c.txManagerInit.Do(func() {
		c.txManager, err = c.initTxManager()
		if err != nil {
			c.initErrors["txManager"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["txManager"]; exists {
		return nil, storedErr
	}
	return c.txManager, nil
}

// MetricsProvider returns the OpenTelemetry metrics provider.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	var err error
	c.metricsProviderInit.Do(func() {
		c.metricsProvider, err = metrics.NewProvider(c.config.MetricsNamespace)
		if err != nil {
			c.initErrors["metricsProvider"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["metricsProvider"]; exists {
		return nil, storedErr
	}
	return c.metricsProvider, nil
}

// BusinessMetrics returns the business metrics recorder.
func (c *Container) BusinessMetrics() (metrics.BusinessMetrics, error) {
	var err error
	c.businessMetricsInit.Do(func() {
		c.businessMetrics, err = c.initBusinessMetrics()
		if err != nil {
			c.initErrors["businessMetrics"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["businessMetrics"]; exists {
		return nil, storedErr
	}
	return c.businessMetrics, nil
}

// HTTPServer returns the HTTP server instance.
func (c *Container) HTTPServer() (*http.Server, error) {
	var err error
	c.httpServerInit.Do(func() {
		c.httpServer, err = c.initHTTPServer()
		if err != nil {
			c.initErrors["httpServer"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["httpServer"]; exists {
		return nil, storedErr
	}
	return c.httpServer, nil
}

// MetricsServer returns the metrics HTTP server, or nil when metrics are
// disabled.
func (c *Container) MetricsServer() (*http.MetricsServer, error) {
	var err error
	c.metricsServerInit.Do(func() {
		if !c.config.MetricsEnabled {
			return
		}
		c.metricsServer, err = c.initMetricsServer()
		if err != nil {
			c.initErrors["metricsServer"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["metricsServer"]; exists {
		return nil, storedErr
	}
	return c.metricsServer, nil
}

// Shutdown performs cleanup of all initialized resources.
// It's safe to call multiple times and handles partially initialized containers.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error

	if c.httpServer != nil {
		if err := c.httpServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown http server: %w", err))
		}
	}

	if c.metricsServer != nil {
		if err := c.metricsServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown metrics server: %w", err))
		}
	}

	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown metrics provider: %w", err))
		}
	}

	// Zeroize the key hierarchy before the process exits.
	if c.guard != nil {
		c.guard.Drain(ctx, c.config.SealDrainTimeout)
	}

	if c.db != nil {
		if err := c.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}

	return errors.Join(errs...)
}

// initLogger creates the structured logger based on the configured level.
func (c *Container) initLogger() *slog.Logger {
	var level slog.Level
	switch c.config.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}

// initDB establishes the database connection.
func (c *Container) initDB() (*sql.DB, error) {
	db, err := database.Connect(database.Config{
		Driver:             c.config.DBDriver,
		ConnectionString:   c.config.DBConnectionString,
		MaxOpenConnections: c.config.DBMaxOpenConnections,
		MaxIdleConnections: c.config.DBMaxIdleConnections,
		ConnMaxLifetime:    c.config.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// initTxManager creates the transaction manager with serialization retries.
func (c *Container) initTxManager() (database.TxManager, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for tx manager: %w", err)
	}
	return database.NewRetryTxManager(database.NewTxManager(db), txRetryAttempts), nil
}

// initBusinessMetrics creates the business metrics recorder backed by the
// metrics provider.
func (c *Container) initBusinessMetrics() (metrics.BusinessMetrics, error) {
	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for business metrics: %w", err)
	}
	return metrics.NewBusinessMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
}

// initHTTPServer creates the HTTP server with all its dependencies.
func (c *Container) initHTTPServer() (*http.Server, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for http server: %w", err)
	}

	sealHandler, err := c.SealHandler()
	if err != nil {
		return nil, fmt.Errorf("failed to get seal handler: %w", err)
	}
	kvHandler, err := c.KVHandler()
	if err != nil {
		return nil, fmt.Errorf("failed to get kv handler: %w", err)
	}
	transitKeyHandler, err := c.TransitKeyHandler()
	if err != nil {
		return nil, fmt.Errorf("failed to get transit key handler: %w", err)
	}
	cryptoHandler, err := c.CryptoHandler()
	if err != nil {
		return nil, fmt.Errorf("failed to get crypto handler: %w", err)
	}
	databaseConfigHandler, err := c.DatabaseConfigHandler()
	if err != nil {
		return nil, fmt.Errorf("failed to get database config handler: %w", err)
	}
	databaseRoleHandler, err := c.DatabaseRoleHandler()
	if err != nil {
		return nil, fmt.Errorf("failed to get database role handler: %w", err)
	}
	databaseLeaseHandler, err := c.DatabaseLeaseHandler()
	if err != nil {
		return nil, fmt.Errorf("failed to get database lease handler: %w", err)
	}
	policyHandler, err := c.PolicyHandler()
	if err != nil {
		return nil, fmt.Errorf("failed to get policy handler: %w", err)
	}
	authzHandler, err := c.AuthzHandler()
	if err != nil {
		return nil, fmt.Errorf("failed to get authz handler: %w", err)
	}
	tokenHandler, err := c.TokenHandler()
	if err != nil {
		return nil, fmt.Errorf("failed to get token handler: %w", err)
	}
	principalHandler, err := c.PrincipalHandler()
	if err != nil {
		return nil, fmt.Errorf("failed to get principal handler: %w", err)
	}
	tokenUC, err := c.TokenUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get token use case for http server: %w", err)
	}
	authzUC, err := c.AuthzUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get authz use case for http server: %w", err)
	}
	zones, err := c.ZoneResolver()
	if err != nil {
		return nil, fmt.Errorf("failed to get zone resolver for http server: %w", err)
	}

	server := http.NewServer(db, c.config.ServerHost, c.config.ServerPort, c.Logger())
	server.SetupRouter(c.config, &http.RouterDeps{
		Seal:           sealHandler,
		KV:             kvHandler,
		TransitKey:     transitKeyHandler,
		TransitCrypto:  cryptoHandler,
		DatabaseConfig: databaseConfigHandler,
		DatabaseRole:   databaseRoleHandler,
		DatabaseLease:  databaseLeaseHandler,
		Policy:         policyHandler,
		Authz:          authzHandler,
		Token:          tokenHandler,
		Principal:      principalHandler,
		Authorizer:     authzUC,
		TokenUseCase:   tokenUC,
		TokenService:   c.TokenService(),
		SecretService:  c.SecretService(),
		Zones:          zones,
	})

	return server, nil
}

// initMetricsServer creates the metrics HTTP server.
func (c *Container) initMetricsServer() (*http.MetricsServer, error) {
	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for metrics server: %w", err)
	}
	return http.NewMetricsServer(c.config.ServerHost, c.config.MetricsPort, c.Logger(), provider), nil
}
