// Package mocks provides mock implementations for testing HTTP handlers.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	authzDomain "github.com/usphq/usp/internal/authz/domain"
	authzUseCase "github.com/usphq/usp/internal/authz/usecase"
)

// MockAuthzUseCase is a mock implementation of AuthzUseCase for testing.
type MockAuthzUseCase struct {
	mock.Mock
}

// CreatePolicy mocks the CreatePolicy method of AuthzUseCase.
func (m *MockAuthzUseCase) CreatePolicy(
	ctx context.Context,
	input *authzUseCase.CreatePolicyInput,
) (*authzDomain.Policy, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*authzDomain.Policy), args.Error(1)
}

// GetPolicy mocks the GetPolicy method of AuthzUseCase.
func (m *MockAuthzUseCase) GetPolicy(ctx context.Context, id string) (*authzDomain.Policy, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*authzDomain.Policy), args.Error(1)
}

// ListPolicies mocks the ListPolicies method of AuthzUseCase.
func (m *MockAuthzUseCase) ListPolicies(ctx context.Context) ([]*authzDomain.Policy, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*authzDomain.Policy), args.Error(1)
}

// UpdatePolicy mocks the UpdatePolicy method of AuthzUseCase.
func (m *MockAuthzUseCase) UpdatePolicy(
	ctx context.Context,
	id string,
	update *authzUseCase.PolicyUpdate,
) (*authzDomain.Policy, error) {
	args := m.Called(ctx, id, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*authzDomain.Policy), args.Error(1)
}

// DeletePolicy mocks the DeletePolicy method of AuthzUseCase.
func (m *MockAuthzUseCase) DeletePolicy(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// Check mocks the Check method of AuthzUseCase.
func (m *MockAuthzUseCase) Check(
	ctx context.Context,
	req *authzDomain.DecisionRequest,
) (*authzDomain.Decision, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*authzDomain.Decision), args.Error(1)
}

// Allow mocks the Allow method of AuthzUseCase.
func (m *MockAuthzUseCase) Allow(ctx context.Context, action, resourceType, resourceID string) error {
	args := m.Called(ctx, action, resourceType, resourceID)
	return args.Error(0)
}
