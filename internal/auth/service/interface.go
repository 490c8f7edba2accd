// Package service provides the credential primitives for edge
// authentication: Argon2id hashing for login and bootstrap secrets, SHA-256
// hashing for API tokens.
package service

// SecretService defines generation and verification of long-lived secrets:
// principal login secrets and the bootstrap credential. Hashes are Argon2id.
type SecretService interface {
	// GenerateSecret creates a new random secret. Returns the plain secret
	// (shown once) and its hash (stored).
	GenerateSecret() (plainSecret string, hashedSecret string, error error)

	// HashSecret hashes a plain secret. Used by the CLI helper that produces
	// the bootstrap credential hash.
	HashSecret(plainSecret string) (hashedSecret string, error error)

	// CompareSecret verifies a plain secret against a stored hash in constant
	// time.
	CompareSecret(plainSecret string, hashedSecret string) bool
}

// TokenService defines generation and hashing of short-lived API tokens.
// Tokens are random, so a fast unsalted SHA-256 is sufficient at rest.
type TokenService interface {
	// GenerateToken creates a new random token. Returns the plain token
	// (shown once) and its SHA-256 hash (stored).
	GenerateToken() (plainToken string, tokenHash string, error error)

	// HashToken hashes a plain token for lookup.
	HashToken(plainToken string) string
}
