package domain

// Algorithm represents the cryptographic algorithm used for encryption.
//
// All supported algorithms provide Authenticated Encryption with Associated Data (AEAD),
// ensuring both confidentiality and authenticity of encrypted data.
//
// Algorithm selection guidelines:
//   - Use AESGCM on modern CPUs with AES-NI hardware acceleration
//   - Use ChaCha20 on systems without AES-NI
//   - Both provide equivalent 256-bit security when used correctly
type Algorithm string

const (
	// AESGCM represents the AES-256-GCM authenticated encryption algorithm.
	//
	// Key features:
	//   - 256-bit key size
	//   - 12-byte nonce (96 bits)
	//   - 16-byte authentication tag
	//   - Hardware acceleration on modern CPUs
	AESGCM Algorithm = "aes-gcm"

	// ChaCha20 represents the ChaCha20-Poly1305 authenticated encryption algorithm.
	//
	// Key features:
	//   - 256-bit key size
	//   - 12-byte nonce (96 bits)
	//   - 16-byte authentication tag
	//   - Constant-time implementation, fast without AES-NI
	ChaCha20 Algorithm = "chacha20-poly1305"
)

const (
	// KeySize is the required size in bytes for all symmetric keys: the root
	// key, derived subkeys, and per-resource data keys.
	KeySize = 32

	// NonceSize is the AEAD nonce size in bytes for both supported algorithms.
	NonceSize = 12

	// TagSize is the AEAD authentication tag size in bytes.
	TagSize = 16
)

// Purpose identifies an isolated branch of the key hierarchy. Each purpose
// yields an independent subkey via HKDF, so compromising one branch never
// exposes material from another.
type Purpose string

const (
	// PurposeKV protects key-value secret payloads at rest.
	PurposeKV Purpose = "kv"

	// PurposeTransit wraps transit key-version material at rest.
	PurposeTransit Purpose = "transit"

	// PurposeDatabase protects database connection configuration, including
	// root credentials.
	PurposeDatabase Purpose = "database"

	// PurposeAudit protects sensitive audit record fields at rest.
	PurposeAudit Purpose = "audit"

	// PurposeAuditHMAC keys the audit hash chain. Kept separate from
	// PurposeAudit so record encryption and chain integrity use independent
	// material.
	PurposeAuditHMAC Purpose = "audit-hmac"
)

// TransitKeyPurpose returns the hierarchy branch wrapping material for one
// named transit key. Each key name derives its own branch, so exporting or
// compromising one key's wrapping material never affects another.
func TransitKeyPurpose(name string) Purpose {
	return Purpose(string(PurposeTransit) + ":" + name)
}

// subkeyInfoPrefix namespaces HKDF derivations. Changing it would invalidate
// every derived subkey, so it is fixed for the lifetime of stored data.
const subkeyInfoPrefix = "usp/v1/subkey/"

// SigningAlgorithm identifies an asymmetric algorithm for sign and verify
// operations.
type SigningAlgorithm string

const (
	// SignEd25519 is Ed25519 over the raw message.
	SignEd25519 SigningAlgorithm = "ed25519"

	// SignRSA2048 is RSA-2048 with PSS padding over a SHA-256 digest.
	SignRSA2048 SigningAlgorithm = "rsa-2048"

	// SignRSA4096 is RSA-4096 with PSS padding over a SHA-256 digest.
	SignRSA4096 SigningAlgorithm = "rsa-4096"

	// SignECDSAP256 is ECDSA over P-256 with ASN.1 signatures and a SHA-256
	// digest.
	SignECDSAP256 SigningAlgorithm = "ecdsa-p256"
)
