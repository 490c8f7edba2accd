package database

import (
	"context"
	"errors"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

// fakeTxManager runs fn directly and returns scripted errors in sequence.
type fakeTxManager struct {
	errs  []error
	calls int
}

func (m *fakeTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	var err error
	if m.calls < len(m.errs) {
		err = m.errs[m.calls]
	}
	m.calls++
	if err != nil {
		return err
	}
	return fn(ctx)
}

func TestIsSerializationFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"postgres serialization failure", &pq.Error{Code: "40001"}, true},
		{"postgres deadlock", &pq.Error{Code: "40P01"}, true},
		{"postgres unique violation", &pq.Error{Code: "23505"}, false},
		{"mysql deadlock", &mysql.MySQLError{Number: 1213}, true},
		{"mysql lock wait timeout", &mysql.MySQLError{Number: 1205}, true},
		{"mysql duplicate entry", &mysql.MySQLError{Number: 1062}, false},
		{"plain error", errors.New("boom"), false},
		{"nil error", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSerializationFailure(tt.err))
		})
	}
}

func TestRetryTxManager_WithTx(t *testing.T) {
	ctx := context.Background()

	t.Run("succeeds without retry", func(t *testing.T) {
		inner := &fakeTxManager{}
		manager := NewRetryTxManager(inner, 3)

		ran := false
		err := manager.WithTx(ctx, func(ctx context.Context) error {
			ran = true
			return nil
		})

		assert.NoError(t, err)
		assert.True(t, ran)
		assert.Equal(t, 1, inner.calls)
	})

	t.Run("retries serialization failures until success", func(t *testing.T) {
		inner := &fakeTxManager{errs: []error{
			&pq.Error{Code: "40001"},
			&pq.Error{Code: "40P01"},
			nil,
		}}
		manager := NewRetryTxManager(inner, 5)

		err := manager.WithTx(ctx, func(ctx context.Context) error { return nil })

		assert.NoError(t, err)
		assert.Equal(t, 3, inner.calls)
	})

	t.Run("does not retry business errors", func(t *testing.T) {
		businessErr := errors.New("validation failed")
		inner := &fakeTxManager{errs: []error{businessErr}}
		manager := NewRetryTxManager(inner, 5)

		err := manager.WithTx(ctx, func(ctx context.Context) error { return nil })

		assert.ErrorIs(t, err, businessErr)
		assert.Equal(t, 1, inner.calls)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		inner := &fakeTxManager{errs: []error{
			&pq.Error{Code: "40001"},
			&pq.Error{Code: "40001"},
			&pq.Error{Code: "40001"},
			&pq.Error{Code: "40001"},
		}}
		manager := NewRetryTxManager(inner, 2)

		err := manager.WithTx(ctx, func(ctx context.Context) error { return nil })

		assert.Error(t, err)
		assert.True(t, IsSerializationFailure(err))
		assert.Equal(t, 3, inner.calls)
	})
}
