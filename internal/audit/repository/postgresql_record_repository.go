// Package repository provides PostgreSQL and MySQL persistence for the audit
// chain. Records are append-only; the singleton chain state row carries the
// tail anchor that writers serialize on.
package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	auditDomain "github.com/usphq/usp/internal/audit/domain"
	"github.com/usphq/usp/internal/database"
	apperrors "github.com/usphq/usp/internal/errors"
)

// PostgreSQLRecordRepository implements audit record persistence for PostgreSQL.
// Uses native UUID types with transaction support via database.GetTx().
type PostgreSQLRecordRepository struct {
	db *sql.DB
}

// Insert stores a new audit record. The seq column is the primary key, so a
// concurrent writer that lost the chain-state race fails here with a unique
// violation, mapped to ErrDuplicateSeq.
func (p *PostgreSQLRecordRepository) Insert(ctx context.Context, record *auditDomain.Record) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO audit_records (seq, record_id, event_type, principal_id, correlation_id,
	                                     occurred_at, success, encrypted_details, prev_hmac, hmac)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := querier.ExecContext(
		ctx,
		query,
		record.Seq,
		record.RecordID,
		string(record.EventType),
		record.PrincipalID,
		record.CorrelationID,
		record.OccurredAt,
		record.Success,
		record.EncryptedDetails,
		record.PrevHMAC,
		record.HMAC,
	)
	if err != nil {
		if isPostgreSQLUniqueViolation(err) {
			return auditDomain.ErrDuplicateSeq
		}
		return apperrors.Wrap(err, "failed to insert audit record")
	}

	return nil
}

// ListAsc retrieves up to limit records with seq >= fromSeq in ascending seq
// order. Chain verification and export walk the table through this method.
func (p *PostgreSQLRecordRepository) ListAsc(
	ctx context.Context,
	fromSeq int64,
	limit int,
) ([]*auditDomain.Record, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT seq, record_id, event_type, principal_id, correlation_id,
	                 occurred_at, success, encrypted_details, prev_hmac, hmac
			  FROM audit_records
			  WHERE seq >= $1
			  ORDER BY seq ASC
			  LIMIT $2`

	rows, err := querier.QueryContext(ctx, query, fromSeq, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit records")
	}
	defer func() {
		_ = rows.Close()
	}()

	return scanPostgreSQLRecords(rows)
}

// ListDesc retrieves records newest-first with pagination for the admin API.
func (p *PostgreSQLRecordRepository) ListDesc(
	ctx context.Context,
	offset, limit int,
) ([]*auditDomain.Record, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT seq, record_id, event_type, principal_id, correlation_id,
	                 occurred_at, success, encrypted_details, prev_hmac, hmac
			  FROM audit_records
			  ORDER BY seq DESC
			  LIMIT $1 OFFSET $2`

	rows, err := querier.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit records")
	}
	defer func() {
		_ = rows.Close()
	}()

	return scanPostgreSQLRecords(rows)
}

// CountBefore returns how many records occurred strictly before cutoff.
// Used for retention dry runs.
func (p *PostgreSQLRecordRepository) CountBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT COUNT(*) FROM audit_records WHERE occurred_at < $1`

	var count int64
	if err := querier.QueryRowContext(ctx, query, cutoff).Scan(&count); err != nil {
		return 0, apperrors.Wrap(err, "failed to count audit records")
	}

	return count, nil
}

// DeleteBefore removes records that occurred strictly before cutoff and
// returns how many were removed. The chain head that remains keeps its stored
// PrevHMAC as the trust anchor for later verification.
func (p *PostgreSQLRecordRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	query := `DELETE FROM audit_records WHERE occurred_at < $1`

	result, err := querier.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete audit records")
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to read deleted audit record count")
	}

	return deleted, nil
}

func scanPostgreSQLRecords(rows *sql.Rows) ([]*auditDomain.Record, error) {
	// Initialize empty slice to avoid returning nil for empty results
	records := make([]*auditDomain.Record, 0)
	for rows.Next() {
		var record auditDomain.Record
		var eventType string

		err := rows.Scan(
			&record.Seq,
			&record.RecordID,
			&eventType,
			&record.PrincipalID,
			&record.CorrelationID,
			&record.OccurredAt,
			&record.Success,
			&record.EncryptedDetails,
			&record.PrevHMAC,
			&record.HMAC,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan audit record")
		}

		record.EventType = auditDomain.EventType(eventType)
		records = append(records, &record)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate audit records")
	}

	return records, nil
}

// isPostgreSQLUniqueViolation checks if the error is a PostgreSQL unique constraint violation
func isPostgreSQLUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	errMsg := strings.ToLower(err.Error())
	// PostgreSQL: "duplicate key value violates unique constraint" or "pq: duplicate key"
	return strings.Contains(errMsg, "duplicate key") || strings.Contains(errMsg, "unique constraint")
}

// NewPostgreSQLRecordRepository creates a new PostgreSQL audit record repository.
func NewPostgreSQLRecordRepository(db *sql.DB) *PostgreSQLRecordRepository {
	return &PostgreSQLRecordRepository{db: db}
}
