// Package mocks provides test doubles for the audit use case.
package mocks

import (
	"context"
	"io"
	"time"

	"github.com/stretchr/testify/mock"

	auditDomain "github.com/usphq/usp/internal/audit/domain"
	auditUseCase "github.com/usphq/usp/internal/audit/usecase"
)

// MockAuditUseCase is a mock implementation of AuditUseCase.
type MockAuditUseCase struct {
	mock.Mock
}

func (m *MockAuditUseCase) Append(ctx context.Context, entry *auditDomain.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockAuditUseCase) VerifyChain(ctx context.Context) (*auditDomain.VerifyReport, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auditDomain.VerifyReport), args.Error(1)
}

func (m *MockAuditUseCase) Acknowledge(ctx context.Context, principalID, correlationID string) error {
	args := m.Called(ctx, principalID, correlationID)
	return args.Error(0)
}

func (m *MockAuditUseCase) List(ctx context.Context, offset, limit int) ([]*auditUseCase.DecryptedRecord, error) {
	args := m.Called(ctx, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*auditUseCase.DecryptedRecord), args.Error(1)
}

func (m *MockAuditUseCase) Export(ctx context.Context, w io.Writer, fromSeq int64) (int64, error) {
	args := m.Called(ctx, w, fromSeq)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAuditUseCase) Prune(ctx context.Context, retention time.Duration, dryRun bool) (int64, error) {
	args := m.Called(ctx, retention, dryRun)
	return args.Get(0).(int64), args.Error(1)
}
