// Package service implements audit chain primitives: canonical record
// serialization and HMAC-SHA256 linkage.
package service

import (
	auditDomain "github.com/usphq/usp/internal/audit/domain"
)

// ChainSigner computes and verifies the HMAC link of audit records. The key
// is the audit-hmac subkey derived from the key hierarchy; it is never
// persisted alongside the records it protects.
type ChainSigner interface {
	// Sign computes the HMAC-SHA256 over the record's canonical serialization.
	// The record's Seq, PrevHMAC, and EncryptedDetails must already be set.
	Sign(key []byte, record *auditDomain.Record) ([]byte, error)

	// Verify recomputes the record's HMAC and compares it against the stored
	// value. Returns ErrChainTampered on mismatch.
	Verify(key []byte, record *auditDomain.Record) error
}
