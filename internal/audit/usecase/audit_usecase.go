package usecase

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/usphq/usp/internal/audit/domain"
	auditService "github.com/usphq/usp/internal/audit/service"
	cryptoDomain "github.com/usphq/usp/internal/crypto/domain"
	cryptoService "github.com/usphq/usp/internal/crypto/service"
	"github.com/usphq/usp/internal/database"
	apperrors "github.com/usphq/usp/internal/errors"
)

// verifyBatchSize bounds memory during chain walks; verification is total but
// paged.
const verifyBatchSize = 500

// auditUseCase implements AuditUseCase.
type auditUseCase struct {
	txManager  database.TxManager
	recordRepo RecordRepository
	stateRepo  ChainStateRepository
	signer     auditService.ChainSigner
	keySource  KeySource
}

// NewAuditUseCase creates the audit sink with the provided dependencies.
func NewAuditUseCase(
	txManager database.TxManager,
	recordRepo RecordRepository,
	stateRepo ChainStateRepository,
	signer auditService.ChainSigner,
	keySource KeySource,
) AuditUseCase {
	return &auditUseCase{
		txManager:  txManager,
		recordRepo: recordRepo,
		stateRepo:  stateRepo,
		signer:     signer,
		keySource:  keySource,
	}
}

// auditAAD binds an encrypted details blob to its chain position so a blob
// cannot be replayed at another sequence even if the HMAC column is rewritten.
func auditAAD(seq int64) []byte {
	return []byte("audit|" + strconv.FormatInt(seq, 10))
}

// Append joins the caller's transaction when one is present; otherwise it
// opens its own so the seq assignment, insert, and tail update stay atomic.
func (a *auditUseCase) Append(ctx context.Context, entry *auditDomain.Entry) error {
	if database.HasTx(ctx) {
		return a.appendTx(ctx, entry)
	}
	return a.txManager.WithTx(ctx, func(ctx context.Context) error {
		return a.appendTx(ctx, entry)
	})
}

func (a *auditUseCase) appendTx(ctx context.Context, entry *auditDomain.Entry) error {
	encKey, err := a.keySource.Subkey(ctx, cryptoDomain.PurposeAudit)
	if err != nil {
		return apperrors.Wrap(err, "failed to derive audit subkey")
	}
	macKey, err := a.keySource.Subkey(ctx, cryptoDomain.PurposeAuditHMAC)
	if err != nil {
		return apperrors.Wrap(err, "failed to derive audit-hmac subkey")
	}

	// Writers serialize on the tail row; the lock is held until commit.
	state, err := a.stateRepo.GetForUpdate(ctx)
	if err != nil {
		return apperrors.Wrap(err, "failed to lock audit chain state")
	}
	if state.Broken {
		return apperrors.Wrap(apperrors.ErrChainBroken, "appends suspended until the gap is acknowledged")
	}

	seq := state.LastSeq + 1

	detailsJSON, err := json.Marshal(entry.Details)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal audit details")
	}

	cipher, err := cryptoService.NewFieldCipher(encKey)
	if err != nil {
		return apperrors.Wrap(err, "failed to initialize audit cipher")
	}
	encrypted, err := cipher.Seal(detailsJSON, auditAAD(seq))
	if err != nil {
		return apperrors.Wrap(err, "failed to encrypt audit details")
	}

	record := &auditDomain.Record{
		Seq:              seq,
		RecordID:         uuid.Must(uuid.NewV7()),
		EventType:        entry.EventType,
		PrincipalID:      entry.PrincipalID,
		CorrelationID:    entry.CorrelationID,
		OccurredAt:       time.Now().UTC(),
		Success:          entry.Success,
		EncryptedDetails: encrypted,
		PrevHMAC:         state.LastHMAC,
	}

	mac, err := a.signer.Sign(macKey, record)
	if err != nil {
		return apperrors.Wrap(err, "failed to sign audit record")
	}
	record.HMAC = mac

	if err := a.recordRepo.Insert(ctx, record); err != nil {
		return apperrors.Wrap(err, "failed to insert audit record")
	}

	state.LastSeq = seq
	state.LastHMAC = mac
	if err := a.stateRepo.Update(ctx, state); err != nil {
		return apperrors.Wrap(err, "failed to advance audit chain state")
	}

	return nil
}

// VerifyChain walks every stored record in seq order. The walk completes even
// when tampering is found so the report names the first bad sequence; the
// broken flag is latched before returning.
func (a *auditUseCase) VerifyChain(ctx context.Context) (*auditDomain.VerifyReport, error) {
	macKey, err := a.keySource.Subkey(ctx, cryptoDomain.PurposeAuditHMAC)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to derive audit-hmac subkey")
	}

	anchor, err := a.stateRepo.Get(ctx)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to read audit chain state")
	}

	report := &auditDomain.VerifyReport{}
	var prev *auditDomain.Record
	cursor := anchor.AnchorSeq + 1

	for {
		records, err := a.recordRepo.ListAsc(ctx, cursor, verifyBatchSize)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to read audit records")
		}
		if len(records) == 0 {
			break
		}

		for _, record := range records {
			if reason := a.checkRecord(macKey, prev, record); reason != "" {
				report.Broken = true
				report.BrokenSeq = record.Seq
				report.Reason = reason
				if err := a.markBroken(ctx, record.Seq, reason); err != nil {
					return nil, err
				}
				return report, nil
			}
			prev = record
			report.RecordsVerified++
		}

		cursor = records[len(records)-1].Seq + 1
	}

	state, err := a.stateRepo.Get(ctx)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to read audit chain state")
	}
	report.LastSeq = state.LastSeq

	if prev != nil && (state.LastSeq != prev.Seq || !bytes.Equal(state.LastHMAC, prev.HMAC)) {
		reason := fmt.Sprintf("tail anchor does not match record %d", prev.Seq)
		report.Broken = true
		report.BrokenSeq = prev.Seq
		report.Reason = reason
		if err := a.markBroken(ctx, prev.Seq, reason); err != nil {
			return nil, err
		}
	}

	return report, nil
}

// checkRecord returns an empty string when record verifies against its
// predecessor, or the failure reason. A pruned head is legal: the oldest
// surviving record's PrevHMAC is accepted as the trust anchor unless it is
// the genesis record, which must link to all zeros.
func (a *auditUseCase) checkRecord(macKey []byte, prev, record *auditDomain.Record) string {
	if prev == nil {
		if record.Seq == 1 && !isZeroHMAC(record.PrevHMAC) {
			return "genesis record has a nonzero prev_hmac"
		}
	} else {
		if record.Seq != prev.Seq+1 {
			return fmt.Sprintf("sequence gap between %d and %d", prev.Seq, record.Seq)
		}
		if !bytes.Equal(record.PrevHMAC, prev.HMAC) {
			return fmt.Sprintf("record %d does not link to record %d", record.Seq, prev.Seq)
		}
	}

	if err := a.signer.Verify(macKey, record); err != nil {
		return fmt.Sprintf("record %d failed hmac verification", record.Seq)
	}

	return ""
}

// markBroken latches the broken flag in its own transaction so the latch
// survives even though the verification caller does not commit anything.
func (a *auditUseCase) markBroken(ctx context.Context, seq int64, reason string) error {
	err := a.txManager.WithTx(ctx, func(ctx context.Context) error {
		state, err := a.stateRepo.GetForUpdate(ctx)
		if err != nil {
			return err
		}
		state.Broken = true
		state.BrokenReason = reason
		state.AcknowledgedAt = nil
		return a.stateRepo.Update(ctx, state)
	})
	if err != nil {
		return apperrors.Wrap(err, "failed to latch broken audit chain")
	}
	return nil
}

// Acknowledge clears the latch, advances the verification anchor past the
// accepted damage, and appends a chain-ack record in the same transaction, so
// the acknowledgement itself is part of the chain.
func (a *auditUseCase) Acknowledge(ctx context.Context, principalID, correlationID string) error {
	return a.txManager.WithTx(ctx, func(ctx context.Context) error {
		state, err := a.stateRepo.GetForUpdate(ctx)
		if err != nil {
			return apperrors.Wrap(err, "failed to lock audit chain state")
		}
		if !state.Broken {
			return auditDomain.ErrChainNotBroken
		}

		now := time.Now().UTC()
		state.Broken = false
		state.BrokenReason = ""
		state.AnchorSeq = state.LastSeq
		state.AcknowledgedAt = &now
		if err := a.stateRepo.Update(ctx, state); err != nil {
			return apperrors.Wrap(err, "failed to clear broken audit chain")
		}

		return a.appendTx(ctx, &auditDomain.Entry{
			EventType:     auditDomain.EventTypeChainAck,
			PrincipalID:   principalID,
			CorrelationID: correlationID,
			Success:       true,
			Details:       auditDomain.Details{Operation: "audit.chain.acknowledge"},
		})
	})
}

// List returns records newest-first with details decrypted for admin review.
func (a *auditUseCase) List(ctx context.Context, offset, limit int) ([]*DecryptedRecord, error) {
	encKey, err := a.keySource.Subkey(ctx, cryptoDomain.PurposeAudit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to derive audit subkey")
	}
	cipher, err := cryptoService.NewFieldCipher(encKey)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to initialize audit cipher")
	}

	records, err := a.recordRepo.ListDesc(ctx, offset, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit records")
	}

	decrypted := make([]*DecryptedRecord, 0, len(records))
	for _, record := range records {
		plaintext, err := cipher.Open(record.EncryptedDetails, auditAAD(record.Seq))
		if err != nil {
			return nil, apperrors.Wrapf(err, "failed to decrypt audit record %d", record.Seq)
		}
		var details auditDomain.Details
		if err := json.Unmarshal(plaintext, &details); err != nil {
			return nil, apperrors.Wrapf(err, "failed to unmarshal audit record %d", record.Seq)
		}
		decrypted = append(decrypted, &DecryptedRecord{Record: record, Details: &details})
	}

	return decrypted, nil
}

// Export streams the chain as newline-delimited JSON without decrypting
// anything; the HMAC is over the raw encrypted body so external consumers can
// verify linkage offline.
func (a *auditUseCase) Export(ctx context.Context, w io.Writer, fromSeq int64) (int64, error) {
	encoder := json.NewEncoder(w)
	var exported int64
	cursor := fromSeq

	for {
		records, err := a.recordRepo.ListAsc(ctx, cursor, verifyBatchSize)
		if err != nil {
			return exported, apperrors.Wrap(err, "failed to read audit records")
		}
		if len(records) == 0 {
			return exported, nil
		}

		for _, record := range records {
			export := auditDomain.ExportRecord{
				Seq:              record.Seq,
				PrevHash:         hex.EncodeToString(record.PrevHMAC),
				HMAC:             hex.EncodeToString(record.HMAC),
				EventType:        string(record.EventType),
				PrincipalID:      record.PrincipalID,
				CorrelationID:    record.CorrelationID,
				Timestamp:        record.OccurredAt.Format(time.RFC3339Nano),
				Success:          record.Success,
				EncryptedDetails: base64.StdEncoding.EncodeToString(record.EncryptedDetails),
			}
			if err := encoder.Encode(&export); err != nil {
				return exported, apperrors.Wrap(err, "failed to encode audit record")
			}
			exported++
		}

		cursor = records[len(records)-1].Seq + 1
	}
}

// Prune deletes records past the retention window. Verification of the
// remaining chain starts from the oldest survivor's stored PrevHMAC.
func (a *auditUseCase) Prune(ctx context.Context, retention time.Duration, dryRun bool) (int64, error) {
	cutoff := time.Now().UTC().Add(-retention)

	if dryRun {
		count, err := a.recordRepo.CountBefore(ctx, cutoff)
		if err != nil {
			return 0, apperrors.Wrap(err, "failed to count prunable audit records")
		}
		return count, nil
	}

	count, err := a.recordRepo.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to prune audit records")
	}
	return count, nil
}

// isZeroHMAC reports whether b is the all-zero genesis anchor.
func isZeroHMAC(b []byte) bool {
	if len(b) != auditDomain.HMACSize {
		return false
	}
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}
