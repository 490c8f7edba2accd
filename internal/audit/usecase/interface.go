// Package usecase implements the audit sink: hash-chained appends, total
// chain verification, operator acknowledgement, and retention pruning.
package usecase

import (
	"context"
	"io"
	"time"

	auditDomain "github.com/usphq/usp/internal/audit/domain"
	cryptoDomain "github.com/usphq/usp/internal/crypto/domain"
)

// RecordRepository defines persistence operations for audit records.
// Implementations must support transaction-aware operations via context propagation.
type RecordRepository interface {
	// Insert stores a new record. Fails with a conflict on duplicate seq.
	Insert(ctx context.Context, record *auditDomain.Record) error

	// ListAsc returns up to limit records with seq >= fromSeq in ascending
	// seq order. Used by chain verification and export.
	ListAsc(ctx context.Context, fromSeq int64, limit int) ([]*auditDomain.Record, error)

	// ListDesc returns records newest-first with pagination for the admin API.
	ListDesc(ctx context.Context, offset, limit int) ([]*auditDomain.Record, error)

	// CountBefore returns how many records are older than cutoff.
	CountBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// DeleteBefore removes records older than cutoff and returns the count.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// ChainStateRepository manages the singleton chain tail row. Writers serialize
// on this row: GetForUpdate takes a row lock that is held until the enclosing
// transaction commits.
type ChainStateRepository interface {
	Get(ctx context.Context) (*auditDomain.ChainState, error)
	GetForUpdate(ctx context.Context) (*auditDomain.ChainState, error)
	Update(ctx context.Context, state *auditDomain.ChainState) error
}

// KeySource supplies per-purpose subkeys from the key hierarchy. Fails with
// ErrSealed while the platform is sealed. The context can carry a hierarchy
// override for bootstrap-time appends, the same way database.GetTx carries a
// transaction.
type KeySource interface {
	Subkey(ctx context.Context, purpose cryptoDomain.Purpose) ([]byte, error)
}

// AuditUseCase is the audit sink. Append participates in the caller's
// transaction when one is present so a failed audit write rolls the operation
// back with it.
type AuditUseCase interface {
	// Append encrypts the entry's details, assigns the next sequence number,
	// links and signs the record, and persists it. Refuses with ErrChainBroken
	// while the chain is marked broken, and with ErrSealed while sealed.
	Append(ctx context.Context, entry *auditDomain.Entry) error

	// VerifyChain walks the whole stored chain in seq order, recomputing every
	// HMAC and checking linkage. On mismatch it latches the broken flag and
	// reports the first bad sequence; infrastructure failures return an error.
	// Run after unseal and on demand.
	VerifyChain(ctx context.Context) (*auditDomain.VerifyReport, error)

	// Acknowledge clears a latched broken flag after operator review, moves
	// the verification anchor past the accepted damage, and appends a
	// chain-ack record continuing from the stored tail.
	Acknowledge(ctx context.Context, principalID, correlationID string) error

	// List returns records newest-first with decrypted details for admins.
	List(ctx context.Context, offset, limit int) ([]*DecryptedRecord, error)

	// Export streams records with seq >= fromSeq as newline-delimited JSON.
	// The encrypted details stay encrypted; consumers verify the chain over
	// the raw bytes.
	Export(ctx context.Context, w io.Writer, fromSeq int64) (int64, error)

	// Prune deletes records older than the retention window. The chain
	// remains verifiable forward from the oldest surviving record.
	Prune(ctx context.Context, retention time.Duration, dryRun bool) (int64, error)
}

// DecryptedRecord pairs a chain record with its decrypted details for
// admin-facing reads.
type DecryptedRecord struct {
	Record  *auditDomain.Record
	Details *auditDomain.Details
}
