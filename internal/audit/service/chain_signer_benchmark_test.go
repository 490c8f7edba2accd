package service

import (
	"crypto/rand"
	"testing"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/usphq/usp/internal/audit/domain"
)

func benchmarkRecord(b *testing.B, detailsSize int) *auditDomain.Record {
	b.Helper()
	details := make([]byte, detailsSize)
	if _, err := rand.Read(details); err != nil {
		b.Fatal(err)
	}
	return &auditDomain.Record{
		Seq:              42,
		RecordID:         uuid.Must(uuid.NewV7()),
		EventType:        auditDomain.EventTypeWrite,
		PrincipalID:      "principal-bench",
		CorrelationID:    "req-bench",
		OccurredAt:       time.Now().UTC(),
		Success:          true,
		EncryptedDetails: details,
		PrevHMAC:         make([]byte, auditDomain.HMACSize),
	}
}

func BenchmarkChainSigner_Sign(b *testing.B) {
	signer := NewChainSigner()
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		b.Fatal(err)
	}

	record := benchmarkRecord(b, 512)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, err := signer.Sign(key, record)
		if err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkChainSigner_Verify(b *testing.B) {
	signer := NewChainSigner()
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		b.Fatal(err)
	}

	record := benchmarkRecord(b, 512)
	hmac, _ := signer.Sign(key, record)
	record.HMAC = hmac

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		err := signer.Verify(key, record)
		if err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkChainSigner_SignLargeBody(b *testing.B) {
	signer := NewChainSigner()
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		b.Fatal(err)
	}

	// 16KB encrypted body, the policy-document upper bound
	record := benchmarkRecord(b, 16*1024)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, err := signer.Sign(key, record)
		if err != nil {
			b.Fatal(err)
		}
	}
}
