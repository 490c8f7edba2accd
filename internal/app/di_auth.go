package app

import (
	"fmt"

	authHTTP "github.com/usphq/usp/internal/auth/http"
	authRepository "github.com/usphq/usp/internal/auth/repository"
	authService "github.com/usphq/usp/internal/auth/service"
	authUseCase "github.com/usphq/usp/internal/auth/usecase"
)

// SecretService returns the secret hashing service.
func (c *Container) SecretService() authService.SecretService {
	c.secretServiceInit.Do(func() {
		c.secretService = authService.NewSecretService()
	})
	return c.secretService
}

// TokenService returns the token generation and hashing service.
func (c *Container) TokenService() authService.TokenService {
	c.tokenServiceInit.Do(func() {
		c.tokenService = authService.NewTokenService()
	})
	return c.tokenService
}

// ZoneResolver returns the network zone resolver built from configuration.
func (c *Container) ZoneResolver() (*authHTTP.ZoneResolver, error) {
	var err error
	c.zoneResolverInit.Do(func() {
		c.zoneResolver, err = authHTTP.NewZoneResolver(c.config.AuthzNetworkZones)
		if err != nil {
			c.initErrors["zoneResolver"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["zoneResolver"]; exists {
		return nil, storedErr
	}
	return c.zoneResolver, nil
}

// PrincipalRepository returns the principal repository based on database driver.
func (c *Container) PrincipalRepository() (authUseCase.PrincipalRepository, error) {
	var err error
	c.principalRepoInit.Do(func() {
		c.principalRepo, err = c.initPrincipalRepository()
		if err != nil {
			c.initErrors["principalRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["principalRepository"]; exists {
		return nil, storedErr
	}
	return c.principalRepo, nil
}

// TokenRepository returns the token repository based on database driver.
func (c *Container) TokenRepository() (authUseCase.TokenRepository, error) {
	var err error
	c.tokenRepoInit.Do(func() {
		c.tokenRepo, err = c.initTokenRepository()
		if err != nil {
			c.initErrors["tokenRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["tokenRepository"]; exists {
		return nil, storedErr
	}
	return c.tokenRepo, nil
}

// TokenUseCase returns the token issuance and authentication use case.
func (c *Container) TokenUseCase() (authUseCase.TokenUseCase, error) {
	var err error
	c.tokenUCInit.Do(func() {
		c.tokenUC, err = c.initTokenUseCase()
		if err != nil {
			c.initErrors["tokenUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["tokenUseCase"]; exists {
		return nil, storedErr
	}
	return c.tokenUC, nil
}

// PrincipalUseCase returns the principal management use case.
func (c *Container) PrincipalUseCase() (authUseCase.PrincipalUseCase, error) {
	var err error
	c.principalUCInit.Do(func() {
		c.principalUC, err = c.initPrincipalUseCase()
		if err != nil {
			c.initErrors["principalUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["principalUseCase"]; exists {
		return nil, storedErr
	}
	return c.principalUC, nil
}

// TokenHandler returns the HTTP handler for login and token revocation.
func (c *Container) TokenHandler() (*authHTTP.TokenHandler, error) {
	var err error
	c.tokenHandlerInit.Do(func() {
		c.tokenHandler, err = c.initTokenHandler()
		if err != nil {
			c.initErrors["tokenHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["tokenHandler"]; exists {
		return nil, storedErr
	}
	return c.tokenHandler, nil
}

// PrincipalHandler returns the HTTP handler for principal management operations.
func (c *Container) PrincipalHandler() (*authHTTP.PrincipalHandler, error) {
	var err error
	c.principalHandlerInit.Do(func() {
		c.principalHandler, err = c.initPrincipalHandler()
		if err != nil {
			c.initErrors["principalHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["principalHandler"]; exists {
		return nil, storedErr
	}
	return c.principalHandler, nil
}

// initPrincipalRepository creates the principal repository based on the database driver.
func (c *Container) initPrincipalRepository() (authUseCase.PrincipalRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for principal repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return authRepository.NewPostgreSQLPrincipalRepository(db), nil
	case "mysql":
		return authRepository.NewMySQLPrincipalRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initTokenRepository creates the token repository based on the database driver.
func (c *Container) initTokenRepository() (authUseCase.TokenRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for token repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return authRepository.NewPostgreSQLTokenRepository(db), nil
	case "mysql":
		return authRepository.NewMySQLTokenRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initTokenUseCase creates the token use case with all its dependencies.
func (c *Container) initTokenUseCase() (authUseCase.TokenUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for token use case: %w", err)
	}

	principalRepo, err := c.PrincipalRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get principal repository for token use case: %w", err)
	}

	tokenRepo, err := c.TokenRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get token repository for token use case: %w", err)
	}

	auditor, err := c.AuditUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit use case for token use case: %w", err)
	}

	baseUseCase := authUseCase.NewTokenUseCase(
		c.config,
		txManager,
		principalRepo,
		tokenRepo,
		c.SecretService(),
		c.TokenService(),
		auditor,
	)

	// Wrap with metrics if enabled
	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for token use case: %w", err)
		}
		return authUseCase.NewTokenMetricsDecorator(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}

// initPrincipalUseCase creates the principal use case with all its dependencies.
func (c *Container) initPrincipalUseCase() (authUseCase.PrincipalUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for principal use case: %w", err)
	}

	principalRepo, err := c.PrincipalRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get principal repository for principal use case: %w", err)
	}

	auditor, err := c.AuditUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit use case for principal use case: %w", err)
	}

	return authUseCase.NewPrincipalUseCase(
		txManager,
		principalRepo,
		c.SecretService(),
		auditor,
	), nil
}

// initTokenHandler creates the token HTTP handler.
func (c *Container) initTokenHandler() (*authHTTP.TokenHandler, error) {
	tokenUC, err := c.TokenUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get token use case for token handler: %w", err)
	}
	return authHTTP.NewTokenHandler(tokenUC, c.Logger()), nil
}

// initPrincipalHandler creates the principal HTTP handler.
func (c *Container) initPrincipalHandler() (*authHTTP.PrincipalHandler, error) {
	principalUC, err := c.PrincipalUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get principal use case for principal handler: %w", err)
	}
	return authHTTP.NewPrincipalHandler(principalUC, c.Logger()), nil
}
