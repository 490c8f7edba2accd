package app

import (
	"fmt"

	authzHTTP "github.com/usphq/usp/internal/authz/http"
	authzRepository "github.com/usphq/usp/internal/authz/repository"
	authzService "github.com/usphq/usp/internal/authz/service"
	authzUseCase "github.com/usphq/usp/internal/authz/usecase"
)

// PolicyRepository returns the policy repository based on database driver.
func (c *Container) PolicyRepository() (authzUseCase.PolicyRepository, error) {
	var err error
	c.policyRepoInit.Do(func() {
		c.policyRepo, err = c.initPolicyRepository()
		if err != nil {
			c.initErrors["policyRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["policyRepository"]; exists {
		return nil, storedErr
	}
	return c.policyRepo, nil
}

// Evaluator returns the policy evaluator.
func (c *Container) Evaluator() *authzService.Evaluator {
	c.evaluatorInit.Do(func() {
		c.evaluator = authzService.NewEvaluator(
			c.config.AuthzRiskMFAThreshold,
			c.config.AuthzRiskDenyThreshold,
		)
	})
	return c.evaluator
}

// DecisionCache returns the authorization decision cache.
func (c *Container) DecisionCache() (*authzService.DecisionCache, error) {
	var err error
	c.decisionCacheInit.Do(func() {
		c.decisionCache, err = authzService.NewDecisionCache(c.config.AuthzPolicyCacheSize)
		if err != nil {
			c.initErrors["decisionCache"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["decisionCache"]; exists {
		return nil, storedErr
	}
	return c.decisionCache, nil
}

// AuthzUseCase returns the policy store and decision point.
func (c *Container) AuthzUseCase() (authzUseCase.AuthzUseCase, error) {
	var err error
	c.authzUCInit.Do(func() {
		c.authzUC, err = c.initAuthzUseCase()
		if err != nil {
			c.initErrors["authzUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["authzUseCase"]; exists {
		return nil, storedErr
	}
	return c.authzUC, nil
}

// PolicyHandler returns the HTTP handler for policy management operations.
func (c *Container) PolicyHandler() (*authzHTTP.PolicyHandler, error) {
	var err error
	c.policyHandlerInit.Do(func() {
		c.policyHandler, err = c.initPolicyHandler()
		if err != nil {
			c.initErrors["policyHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["policyHandler"]; exists {
		return nil, storedErr
	}
	return c.policyHandler, nil
}

// AuthzHandler returns the HTTP handler for authorization checks.
func (c *Container) AuthzHandler() (*authzHTTP.AuthzHandler, error) {
	var err error
	c.authzHandlerInit.Do(func() {
		c.authzHandler, err = c.initAuthzHandler()
		if err != nil {
			c.initErrors["authzHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["authzHandler"]; exists {
		return nil, storedErr
	}
	return c.authzHandler, nil
}

// initPolicyRepository creates the policy repository based on the database driver.
func (c *Container) initPolicyRepository() (authzUseCase.PolicyRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for policy repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return authzRepository.NewPostgreSQLPolicyRepository(db), nil
	case "mysql":
		return authzRepository.NewMySQLPolicyRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initAuthzUseCase creates the authz use case with all its dependencies.
func (c *Container) initAuthzUseCase() (authzUseCase.AuthzUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for authz use case: %w", err)
	}

	policyRepo, err := c.PolicyRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get policy repository for authz use case: %w", err)
	}

	cache, err := c.DecisionCache()
	if err != nil {
		return nil, fmt.Errorf("failed to get decision cache for authz use case: %w", err)
	}

	auditor, err := c.AuditUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit use case for authz use case: %w", err)
	}

	baseUseCase := authzUseCase.NewAuthzUseCase(
		txManager,
		policyRepo,
		c.Evaluator(),
		cache,
		auditor,
	)

	// Wrap with metrics if enabled
	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for authz use case: %w", err)
		}
		return authzUseCase.NewAuthzMetricsDecorator(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}

// initPolicyHandler creates the policy HTTP handler.
func (c *Container) initPolicyHandler() (*authzHTTP.PolicyHandler, error) {
	authzUC, err := c.AuthzUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get authz use case for policy handler: %w", err)
	}
	return authzHTTP.NewPolicyHandler(authzUC, c.Logger()), nil
}

// initAuthzHandler creates the authz check HTTP handler.
func (c *Container) initAuthzHandler() (*authzHTTP.AuthzHandler, error) {
	authzUC, err := c.AuthzUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get authz use case for authz handler: %w", err)
	}
	return authzHTTP.NewAuthzHandler(authzUC, c.Logger()), nil
}
