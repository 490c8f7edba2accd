package commands

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	auditMocks "github.com/usphq/usp/internal/audit/usecase/mocks"
)

func TestRunExportAudit(t *testing.T) {
	ctx := context.Background()
	logger := testLogger()

	t.Run("success", func(t *testing.T) {
		mockUseCase := &auditMocks.MockAuditUseCase{}
		mockUseCase.On("Export", ctx, mock.Anything, int64(1)).
			Run(func(args mock.Arguments) {
				w := args.Get(1).(*bytes.Buffer)
				w.WriteString(`{"seq":1}` + "\n")
			}).
			Return(int64(1), nil)

		var out bytes.Buffer
		err := RunExportAudit(ctx, mockUseCase, logger, &out, 1)
		require.NoError(t, err)
		require.Contains(t, out.String(), `"seq":1`)
		mockUseCase.AssertExpectations(t)
	})

	t.Run("negative-from-seq", func(t *testing.T) {
		mockUseCase := &auditMocks.MockAuditUseCase{}

		var out bytes.Buffer
		err := RunExportAudit(ctx, mockUseCase, logger, &out, -1)
		require.ErrorIs(t, err, ErrUsage)
		mockUseCase.AssertNotCalled(t, "Export")
	})
}
