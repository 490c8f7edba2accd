// Package mocks provides test doubles for database transaction management.
package mocks

import (
	"context"
	"testing"
)

// MockTxManager is a TxManager that invokes the callback directly without
// starting a real transaction. Repository calls made inside the callback hit
// whatever the test wired underneath (usually other mocks or sqlmock).
type MockTxManager struct{}

// NewMockTxManager creates a pass-through TxManager for use case tests.
func NewMockTxManager(t *testing.T) *MockTxManager {
	t.Helper()
	return &MockTxManager{}
}

// WithTx runs fn with the caller's context unchanged.
func (m *MockTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
