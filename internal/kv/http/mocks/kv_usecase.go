// Package mocks provides mock implementations for testing HTTP handlers.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	kvDomain "github.com/usphq/usp/internal/kv/domain"
	kvUseCase "github.com/usphq/usp/internal/kv/usecase"
)

// MockKVUseCase is a mock implementation of KVUseCase for testing.
type MockKVUseCase struct {
	mock.Mock
}

// Write mocks the Write method of KVUseCase.
func (m *MockKVUseCase) Write(ctx context.Context, input *kvUseCase.WriteInput) (*kvDomain.Secret, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*kvDomain.Secret), args.Error(1)
}

// Read mocks the Read method of KVUseCase.
func (m *MockKVUseCase) Read(ctx context.Context, path string, version int, readDeleted bool) (*kvUseCase.ReadResult, error) {
	args := m.Called(ctx, path, version, readDeleted)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*kvUseCase.ReadResult), args.Error(1)
}

// SoftDelete mocks the SoftDelete method of KVUseCase.
func (m *MockKVUseCase) SoftDelete(ctx context.Context, path string, versions []int) error {
	args := m.Called(ctx, path, versions)
	return args.Error(0)
}

// Undelete mocks the Undelete method of KVUseCase.
func (m *MockKVUseCase) Undelete(ctx context.Context, path string, versions []int) error {
	args := m.Called(ctx, path, versions)
	return args.Error(0)
}

// Destroy mocks the Destroy method of KVUseCase.
func (m *MockKVUseCase) Destroy(ctx context.Context, path string, versions []int) error {
	args := m.Called(ctx, path, versions)
	return args.Error(0)
}

// DestroyMetadata mocks the DestroyMetadata method of KVUseCase.
func (m *MockKVUseCase) DestroyMetadata(ctx context.Context, path string) error {
	args := m.Called(ctx, path)
	return args.Error(0)
}

// Metadata mocks the Metadata method of KVUseCase.
func (m *MockKVUseCase) Metadata(ctx context.Context, path string) (*kvUseCase.Metadata, error) {
	args := m.Called(ctx, path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*kvUseCase.Metadata), args.Error(1)
}

// UpdateMetadata mocks the UpdateMetadata method of KVUseCase.
func (m *MockKVUseCase) UpdateMetadata(ctx context.Context, path string, update *kvUseCase.MetadataUpdate) (*kvDomain.Secret, error) {
	args := m.Called(ctx, path, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*kvDomain.Secret), args.Error(1)
}

// List mocks the List method of KVUseCase.
func (m *MockKVUseCase) List(ctx context.Context, prefix string) ([]string, error) {
	args := m.Called(ctx, prefix)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// MockAuthorizer is a mock implementation of the handler Authorizer for testing.
type MockAuthorizer struct {
	mock.Mock
}

// Allow mocks the Allow method of Authorizer.
func (m *MockAuthorizer) Allow(ctx context.Context, action, resourceType, resourceID string) error {
	args := m.Called(ctx, action, resourceType, resourceID)
	return args.Error(0)
}
