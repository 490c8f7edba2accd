// Package domain defines the audit trail entities: hash-chained records and
// the singleton chain state that anchors the tail.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventType classifies an audit record. Write-class events must be durable
// before the operation's response is sent; read events may be flushed lazily.
type EventType string

const (
	EventTypeRead         EventType = "read"
	EventTypeWrite        EventType = "write"
	EventTypeRotate       EventType = "rotate"
	EventTypeRevoke       EventType = "revoke"
	EventTypeSeal         EventType = "seal"
	EventTypeUnseal       EventType = "unseal"
	EventTypeInit         EventType = "init"
	EventTypePolicyChange EventType = "policy-change"
	EventTypeLogin        EventType = "login"
	EventTypeChainAck     EventType = "chain-ack"
)

// HMACSize is the size in bytes of the chain HMAC (HMAC-SHA256).
const HMACSize = 32

// Record is one link in the audit hash chain. Seq is assigned strictly
// sequentially; PrevHMAC equals the previous record's HMAC (all zeros for the
// first record). The HMAC covers the canonical serialization of every field
// above it, including the raw encrypted details, so tampering with any stored
// byte is detectable without decrypting.
type Record struct {
	Seq              int64
	RecordID         uuid.UUID
	EventType        EventType
	PrincipalID      string
	CorrelationID    string
	OccurredAt       time.Time
	Success          bool
	EncryptedDetails []byte
	PrevHMAC         []byte
	HMAC             []byte
}

// Details is the sensitive body of a record, stored encrypted under the audit
// subkey. Decision carries the authorization outcome for the operation;
// ConnectorCode carries plugin-specific failure subcodes that must never reach
// the API caller.
type Details struct {
	Operation     string            `json:"operation"`
	Path          string            `json:"path,omitempty"`
	Decision      string            `json:"decision,omitempty"`
	Reasons       []string          `json:"reasons,omitempty"`
	ConnectorCode string            `json:"connector_code,omitempty"`
	RemoteAddr    string            `json:"remote_addr,omitempty"`
	UserAgent     string            `json:"user_agent,omitempty"`
	Extra         map[string]string `json:"extra,omitempty"`
}

// Entry is the caller-facing input for appending a record. Seq, PrevHMAC and
// HMAC are assigned by the sink.
type Entry struct {
	EventType     EventType
	PrincipalID   string
	CorrelationID string
	Success       bool
	Details       Details
}

// ChainState is the singleton tail anchor. Writers serialize on its row;
// Broken latches true when verification fails and blocks appends until an
// operator acknowledges the gap. AnchorSeq marks the last operator-accepted
// sequence: verification walks forward from it, so acknowledged damage is not
// re-detected on every restart.
type ChainState struct {
	LastSeq        int64
	LastHMAC       []byte
	AnchorSeq      int64
	Broken         bool
	BrokenReason   string
	AcknowledgedAt *time.Time
	UpdatedAt      time.Time
}

// VerifyReport summarizes a chain verification walk. A broken chain is a
// finding, not an infrastructure failure: Broken latches true and BrokenSeq
// names the first damaged link.
type VerifyReport struct {
	RecordsVerified int64
	LastSeq         int64
	Broken          bool
	BrokenSeq       int64
	Reason          string
}

// ExportRecord is the newline-delimited JSON form of a record for external
// consumers. PrevHash and HMAC are hex, EncryptedDetails is base64; the HMAC
// is over the raw encrypted body so consumers can verify the chain without
// the audit subkey.
type ExportRecord struct {
	Seq              int64  `json:"seq"`
	PrevHash         string `json:"prev_hash"`
	HMAC             string `json:"hmac"`
	EventType        string `json:"event_type"`
	PrincipalID      string `json:"principal_id"`
	CorrelationID    string `json:"correlation_id"`
	Timestamp        string `json:"ts"`
	Success          bool   `json:"success"`
	EncryptedDetails string `json:"encrypted_details"`
}
