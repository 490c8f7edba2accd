package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"

	auditDomain "github.com/usphq/usp/internal/audit/domain"
	cryptoDomain "github.com/usphq/usp/internal/crypto/domain"
)

type chainSigner struct{}

// NewChainSigner creates an HMAC-SHA256 chain signer. The signer is stateless;
// the signing key is passed per call so a seal can invalidate it immediately.
func NewChainSigner() ChainSigner {
	return &chainSigner{}
}

// canonicalizeRecord converts a record to its canonical byte representation.
// Format: seq || prev_hmac || event_type || principal_id || correlation_id ||
// occurred_at || success || encrypted_details.
// Variable-length fields are length-prefixed to prevent ambiguity; the HMAC
// covers the raw encrypted body so verification needs no decryption.
func (s *chainSigner) canonicalizeRecord(record *auditDomain.Record) []byte {
	// Estimate capacity to reduce allocations (typical record ~1KB)
	buf := make([]byte, 0, 256+len(record.EncryptedDetails))

	var seqBytes [8]byte
	binary.BigEndian.PutUint64(seqBytes[:], uint64(record.Seq))
	buf = append(buf, seqBytes[:]...)

	// PrevHMAC is fixed-size (32 bytes), appended raw
	buf = append(buf, record.PrevHMAC...)

	buf = appendLengthPrefixed(buf, []byte(record.EventType))
	buf = appendLengthPrefixed(buf, []byte(record.PrincipalID))
	buf = appendLengthPrefixed(buf, []byte(record.CorrelationID))

	// Timestamp (Unix nano for precision)
	var timeBytes [8]byte
	binary.BigEndian.PutUint64(timeBytes[:], uint64(record.OccurredAt.UnixNano()))
	buf = append(buf, timeBytes[:]...)

	if record.Success {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}

	buf = appendLengthPrefixed(buf, record.EncryptedDetails)

	return buf
}

// appendLengthPrefixed adds a 4-byte big-endian length prefix followed by data.
// Format: [length (4 bytes)] + [data (length bytes)]
// Panics if data length exceeds uint32 max (4GB) to prevent integer overflow.
func appendLengthPrefixed(buf []byte, data []byte) []byte {
	dataLen := len(data)
	if dataLen > 0xFFFFFFFF {
		panic("data length exceeds uint32 max (4GB)")
	}
	length := make([]byte, 4)
	binary.BigEndian.PutUint32(length, uint32(dataLen))
	buf = append(buf, length...)
	buf = append(buf, data...)
	return buf
}

// Sign generates the HMAC-SHA256 link for the record.
// Returns a 32-byte HMAC or an error if the key or record is malformed.
func (s *chainSigner) Sign(key []byte, record *auditDomain.Record) ([]byte, error) {
	if len(key) != cryptoDomain.KeySize {
		return nil, cryptoDomain.ErrInvalidKeySize
	}
	if len(record.PrevHMAC) != auditDomain.HMACSize {
		return nil, auditDomain.ErrChainTampered
	}

	mac := hmac.New(sha256.New, key)
	mac.Write(s.canonicalizeRecord(record))
	return mac.Sum(nil), nil
}

// Verify checks the record's stored HMAC against a fresh computation.
// Returns nil if valid, ErrChainTampered if the record was altered.
func (s *chainSigner) Verify(key []byte, record *auditDomain.Record) error {
	expected, err := s.Sign(key, record)
	if err != nil {
		return err
	}

	if !hmac.Equal(record.HMAC, expected) {
		return auditDomain.ErrChainTampered
	}

	return nil
}
