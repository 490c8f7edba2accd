// Package mocks provides mock implementations for testing HTTP handlers.
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	dbengineDomain "github.com/usphq/usp/internal/dbengine/domain"
	dbengineUseCase "github.com/usphq/usp/internal/dbengine/usecase"
)

// MockDBEngineUseCase is a mock implementation of DBEngineUseCase for testing.
type MockDBEngineUseCase struct {
	mock.Mock
}

// ConfigureDatabase mocks the ConfigureDatabase method of DBEngineUseCase.
func (m *MockDBEngineUseCase) ConfigureDatabase(
	ctx context.Context,
	input *dbengineUseCase.ConfigureDatabaseInput,
) (*dbengineDomain.Config, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dbengineDomain.Config), args.Error(1)
}

// GetDatabaseConfig mocks the GetDatabaseConfig method of DBEngineUseCase.
func (m *MockDBEngineUseCase) GetDatabaseConfig(ctx context.Context, name string) (*dbengineDomain.Config, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dbengineDomain.Config), args.Error(1)
}

// ListDatabaseConfigs mocks the ListDatabaseConfigs method of DBEngineUseCase.
func (m *MockDBEngineUseCase) ListDatabaseConfigs(ctx context.Context) ([]*dbengineDomain.Config, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*dbengineDomain.Config), args.Error(1)
}

// DeleteDatabaseConfig mocks the DeleteDatabaseConfig method of DBEngineUseCase.
func (m *MockDBEngineUseCase) DeleteDatabaseConfig(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}

// CreateRole mocks the CreateRole method of DBEngineUseCase.
func (m *MockDBEngineUseCase) CreateRole(
	ctx context.Context,
	configName string,
	input *dbengineUseCase.CreateRoleInput,
) (*dbengineDomain.Role, error) {
	args := m.Called(ctx, configName, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dbengineDomain.Role), args.Error(1)
}

// GetRole mocks the GetRole method of DBEngineUseCase.
func (m *MockDBEngineUseCase) GetRole(ctx context.Context, configName, roleName string) (*dbengineDomain.Role, error) {
	args := m.Called(ctx, configName, roleName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dbengineDomain.Role), args.Error(1)
}

// ListRoles mocks the ListRoles method of DBEngineUseCase.
func (m *MockDBEngineUseCase) ListRoles(ctx context.Context, configName string) ([]*dbengineDomain.Role, error) {
	args := m.Called(ctx, configName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*dbengineDomain.Role), args.Error(1)
}

// GenerateCredentials mocks the GenerateCredentials method of DBEngineUseCase.
func (m *MockDBEngineUseCase) GenerateCredentials(
	ctx context.Context,
	configName, roleName string,
) (*dbengineUseCase.Credential, error) {
	args := m.Called(ctx, configName, roleName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dbengineUseCase.Credential), args.Error(1)
}

// RenewLease mocks the RenewLease method of DBEngineUseCase.
func (m *MockDBEngineUseCase) RenewLease(
	ctx context.Context,
	leaseID string,
	additionalTTL time.Duration,
) (*dbengineDomain.Lease, error) {
	args := m.Called(ctx, leaseID, additionalTTL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dbengineDomain.Lease), args.Error(1)
}

// RevokeLease mocks the RevokeLease method of DBEngineUseCase.
func (m *MockDBEngineUseCase) RevokeLease(ctx context.Context, leaseID string) error {
	args := m.Called(ctx, leaseID)
	return args.Error(0)
}

// RotateRootCredentials mocks the RotateRootCredentials method of DBEngineUseCase.
func (m *MockDBEngineUseCase) RotateRootCredentials(ctx context.Context, configName string) error {
	args := m.Called(ctx, configName)
	return args.Error(0)
}

// RotateStaticCredentials mocks the RotateStaticCredentials method of DBEngineUseCase.
func (m *MockDBEngineUseCase) RotateStaticCredentials(ctx context.Context, configName, roleName string) error {
	args := m.Called(ctx, configName, roleName)
	return args.Error(0)
}
