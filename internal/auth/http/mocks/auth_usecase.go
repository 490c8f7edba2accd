// Package mocks provides mock implementations for testing HTTP handlers.
package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	authDomain "github.com/usphq/usp/internal/auth/domain"
)

// MockTokenUseCase is a mock implementation of TokenUseCase for testing.
type MockTokenUseCase struct {
	mock.Mock
}

// Issue mocks the Issue method of TokenUseCase.
func (m *MockTokenUseCase) Issue(ctx context.Context, input *authDomain.IssueTokenInput) (*authDomain.IssueTokenOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*authDomain.IssueTokenOutput), args.Error(1)
}

// Authenticate mocks the Authenticate method of TokenUseCase.
func (m *MockTokenUseCase) Authenticate(ctx context.Context, tokenHash string) (*authDomain.Principal, *authDomain.Token, error) {
	args := m.Called(ctx, tokenHash)
	var principal *authDomain.Principal
	var token *authDomain.Token
	if args.Get(0) != nil {
		principal = args.Get(0).(*authDomain.Principal)
	}
	if args.Get(1) != nil {
		token = args.Get(1).(*authDomain.Token)
	}
	return principal, token, args.Error(2)
}

// Revoke mocks the Revoke method of TokenUseCase.
func (m *MockTokenUseCase) Revoke(ctx context.Context, tokenID uuid.UUID) error {
	args := m.Called(ctx, tokenID)
	return args.Error(0)
}

// MockPrincipalUseCase is a mock implementation of PrincipalUseCase for testing.
type MockPrincipalUseCase struct {
	mock.Mock
}

// Create mocks the Create method of PrincipalUseCase.
func (m *MockPrincipalUseCase) Create(ctx context.Context, input *authDomain.CreatePrincipalInput) (*authDomain.CreatePrincipalOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*authDomain.CreatePrincipalOutput), args.Error(1)
}

// Get mocks the Get method of PrincipalUseCase.
func (m *MockPrincipalUseCase) Get(ctx context.Context, id uuid.UUID) (*authDomain.Principal, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*authDomain.Principal), args.Error(1)
}

// List mocks the List method of PrincipalUseCase.
func (m *MockPrincipalUseCase) List(ctx context.Context) ([]*authDomain.Principal, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*authDomain.Principal), args.Error(1)
}

// Update mocks the Update method of PrincipalUseCase.
func (m *MockPrincipalUseCase) Update(ctx context.Context, id uuid.UUID, input *authDomain.UpdatePrincipalInput) error {
	args := m.Called(ctx, id, input)
	return args.Error(0)
}

// Delete mocks the Delete method of PrincipalUseCase.
func (m *MockPrincipalUseCase) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
