// Package mocks provides mock implementations for testing HTTP handlers.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	transitDomain "github.com/usphq/usp/internal/transit/domain"
	transitUseCase "github.com/usphq/usp/internal/transit/usecase"
)

// MockTransitUseCase is a mock implementation of TransitUseCase for testing.
type MockTransitUseCase struct {
	mock.Mock
}

// CreateKey mocks the CreateKey method of TransitUseCase.
func (m *MockTransitUseCase) CreateKey(
	ctx context.Context,
	input *transitUseCase.CreateKeyInput,
) (*transitDomain.TransitKey, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transitDomain.TransitKey), args.Error(1)
}

// GetKey mocks the GetKey method of TransitUseCase.
func (m *MockTransitUseCase) GetKey(
	ctx context.Context,
	name string,
) (*transitDomain.TransitKey, *transitDomain.KeyVersion, error) {
	args := m.Called(ctx, name)
	var key *transitDomain.TransitKey
	var version *transitDomain.KeyVersion
	if args.Get(0) != nil {
		key = args.Get(0).(*transitDomain.TransitKey)
	}
	if args.Get(1) != nil {
		version = args.Get(1).(*transitDomain.KeyVersion)
	}
	return key, version, args.Error(2)
}

// ListKeys mocks the ListKeys method of TransitUseCase.
func (m *MockTransitUseCase) ListKeys(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// RotateKey mocks the RotateKey method of TransitUseCase.
func (m *MockTransitUseCase) RotateKey(ctx context.Context, name string) (*transitDomain.TransitKey, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transitDomain.TransitKey), args.Error(1)
}

// UpdateKeyConfig mocks the UpdateKeyConfig method of TransitUseCase.
func (m *MockTransitUseCase) UpdateKeyConfig(
	ctx context.Context,
	name string,
	update *transitUseCase.KeyConfigUpdate,
) (*transitDomain.TransitKey, error) {
	args := m.Called(ctx, name, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transitDomain.TransitKey), args.Error(1)
}

// DeleteKey mocks the DeleteKey method of TransitUseCase.
func (m *MockTransitUseCase) DeleteKey(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}

// Encrypt mocks the Encrypt method of TransitUseCase.
func (m *MockTransitUseCase) Encrypt(
	ctx context.Context,
	name string,
	plaintext, context []byte,
) (string, error) {
	args := m.Called(ctx, name, plaintext, context)
	return args.String(0), args.Error(1)
}

// Decrypt mocks the Decrypt method of TransitUseCase.
func (m *MockTransitUseCase) Decrypt(
	ctx context.Context,
	name, ciphertext string,
	context []byte,
) ([]byte, error) {
	args := m.Called(ctx, name, ciphertext, context)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// Sign mocks the Sign method of TransitUseCase.
func (m *MockTransitUseCase) Sign(ctx context.Context, name string, message []byte) (string, error) {
	args := m.Called(ctx, name, message)
	return args.String(0), args.Error(1)
}

// Verify mocks the Verify method of TransitUseCase.
func (m *MockTransitUseCase) Verify(
	ctx context.Context,
	name string,
	message []byte,
	signature string,
) (bool, error) {
	args := m.Called(ctx, name, message, signature)
	return args.Bool(0), args.Error(1)
}

// Export mocks the Export method of TransitUseCase.
func (m *MockTransitUseCase) Export(
	ctx context.Context,
	name string,
	version int,
) (*transitUseCase.ExportedKey, error) {
	args := m.Called(ctx, name, version)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transitUseCase.ExportedKey), args.Error(1)
}
