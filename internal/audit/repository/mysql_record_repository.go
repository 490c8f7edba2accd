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

// MySQLRecordRepository implements audit record persistence for MySQL.
// Uses BINARY(16) for UUID storage with transaction support via database.GetTx().
type MySQLRecordRepository struct {
	db *sql.DB
}

// Insert stores a new audit record using BINARY(16) for the record UUID.
// A duplicate seq from a concurrent writer is mapped to ErrDuplicateSeq.
func (m *MySQLRecordRepository) Insert(ctx context.Context, record *auditDomain.Record) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO audit_records (seq, record_id, event_type, principal_id, correlation_id,
	                                     occurred_at, success, encrypted_details, prev_hmac, hmac)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	recordID, err := record.RecordID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal audit record id")
	}

	_, err = querier.ExecContext(
		ctx,
		query,
		record.Seq,
		recordID,
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
		if isMySQLDuplicateEntry(err) {
			return auditDomain.ErrDuplicateSeq
		}
		return apperrors.Wrap(err, "failed to insert audit record")
	}

	return nil
}

// ListAsc retrieves up to limit records with seq >= fromSeq in ascending seq order.
func (m *MySQLRecordRepository) ListAsc(
	ctx context.Context,
	fromSeq int64,
	limit int,
) ([]*auditDomain.Record, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT seq, record_id, event_type, principal_id, correlation_id,
	                 occurred_at, success, encrypted_details, prev_hmac, hmac
			  FROM audit_records
			  WHERE seq >= ?
			  ORDER BY seq ASC
			  LIMIT ?`

	rows, err := querier.QueryContext(ctx, query, fromSeq, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit records")
	}
	defer func() {
		_ = rows.Close()
	}()

	return scanMySQLRecords(rows)
}

// ListDesc retrieves records newest-first with pagination for the admin API.
func (m *MySQLRecordRepository) ListDesc(
	ctx context.Context,
	offset, limit int,
) ([]*auditDomain.Record, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT seq, record_id, event_type, principal_id, correlation_id,
	                 occurred_at, success, encrypted_details, prev_hmac, hmac
			  FROM audit_records
			  ORDER BY seq DESC
			  LIMIT ? OFFSET ?`

	rows, err := querier.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit records")
	}
	defer func() {
		_ = rows.Close()
	}()

	return scanMySQLRecords(rows)
}

// CountBefore returns how many records occurred strictly before cutoff.
func (m *MySQLRecordRepository) CountBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT COUNT(*) FROM audit_records WHERE occurred_at < ?`

	var count int64
	if err := querier.QueryRowContext(ctx, query, cutoff).Scan(&count); err != nil {
		return 0, apperrors.Wrap(err, "failed to count audit records")
	}

	return count, nil
}

// DeleteBefore removes records that occurred strictly before cutoff and
// returns how many were removed.
func (m *MySQLRecordRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	query := `DELETE FROM audit_records WHERE occurred_at < ?`

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

func scanMySQLRecords(rows *sql.Rows) ([]*auditDomain.Record, error) {
	// Initialize empty slice to avoid returning nil for empty results
	records := make([]*auditDomain.Record, 0)
	for rows.Next() {
		var record auditDomain.Record
		var recordIDBytes []byte
		var eventType string

		err := rows.Scan(
			&record.Seq,
			&recordIDBytes,
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

		if err := record.RecordID.UnmarshalBinary(recordIDBytes); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal audit record id")
		}

		record.EventType = auditDomain.EventType(eventType)
		records = append(records, &record)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate audit records")
	}

	return records, nil
}

// isMySQLDuplicateEntry checks if the error is a MySQL unique constraint violation
func isMySQLDuplicateEntry(err error) bool {
	if err == nil {
		return false
	}
	errMsg := strings.ToLower(err.Error())
	// MySQL: "Error 1062: Duplicate entry"
	return strings.Contains(errMsg, "duplicate entry") || strings.Contains(errMsg, "1062")
}

// NewMySQLRecordRepository creates a new MySQL audit record repository.
func NewMySQLRecordRepository(db *sql.DB) *MySQLRecordRepository {
	return &MySQLRecordRepository{db: db}
}
