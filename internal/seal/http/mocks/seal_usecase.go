// Package mocks provides mock implementations for testing HTTP handlers.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	sealDomain "github.com/usphq/usp/internal/seal/domain"
	sealUseCase "github.com/usphq/usp/internal/seal/usecase"
)

// MockSealUseCase is a mock implementation of SealUseCase for testing.
type MockSealUseCase struct {
	mock.Mock
}

// Init mocks the Init method of SealUseCase.
func (m *MockSealUseCase) Init(ctx context.Context, shares, threshold int) (*sealUseCase.InitResult, error) {
	args := m.Called(ctx, shares, threshold)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sealUseCase.InitResult), args.Error(1)
}

// SubmitShare mocks the SubmitShare method of SealUseCase.
func (m *MockSealUseCase) SubmitShare(ctx context.Context, share []byte) (*sealDomain.Status, error) {
	args := m.Called(ctx, share)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sealDomain.Status), args.Error(1)
}

// ResetUnseal mocks the ResetUnseal method of SealUseCase.
func (m *MockSealUseCase) ResetUnseal(ctx context.Context) (*sealDomain.Status, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sealDomain.Status), args.Error(1)
}

// Seal mocks the Seal method of SealUseCase.
func (m *MockSealUseCase) Seal(ctx context.Context) (*sealDomain.Status, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sealDomain.Status), args.Error(1)
}

// Status mocks the Status method of SealUseCase.
func (m *MockSealUseCase) Status(ctx context.Context) (*sealDomain.Status, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sealDomain.Status), args.Error(1)
}

// AutoUnseal mocks the AutoUnseal method of SealUseCase.
func (m *MockSealUseCase) AutoUnseal(ctx context.Context) (*sealDomain.Status, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sealDomain.Status), args.Error(1)
}
