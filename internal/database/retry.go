package database

import (
	"context"
	"errors"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
)

// IsSerializationFailure reports whether err is a transient serialization or
// deadlock failure that is safe to retry with a fresh transaction.
func IsSerializationFailure(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// 40001 serialization_failure, 40P01 deadlock_detected
		return pqErr.Code == "40001" || pqErr.Code == "40P01"
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		// 1205 lock wait timeout, 1213 deadlock
		return myErr.Number == 1205 || myErr.Number == 1213
	}
	return false
}

// retryTxManager decorates a TxManager with bounded exponential backoff on
// serialization failures. Check-and-set paths rely on this so concurrent
// writers resolve to exactly one winner instead of surfacing driver errors.
type retryTxManager struct {
	inner      TxManager
	maxRetries uint64
}

// NewRetryTxManager wraps inner so serialization failures are retried up to
// maxRetries times. All other errors pass through unchanged.
func NewRetryTxManager(inner TxManager, maxRetries uint64) TxManager {
	return &retryTxManager{inner: inner, maxRetries: maxRetries}
}

// WithTx executes fn within a transaction, retrying the whole transaction on
// serialization failures.
func (m *retryTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	operation := func() error {
		err := m.inner.WithTx(ctx, fn)
		if err != nil && !IsSerializationFailure(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), m.maxRetries),
		ctx,
	)
	return backoff.Retry(operation, policy)
}
