package connector

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
)

// passwordCharset excludes characters that tend to break naive statement
// quoting on the backing systems.
const passwordCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// PasswordLength is the length of generated credential passwords.
const PasswordLength = 32

// GeneratePassword creates a cryptographically secure random password.
func GeneratePassword(length int) (string, error) {
	if length <= 0 {
		length = PasswordLength
	}

	charsLen := big.NewInt(int64(len(passwordCharset)))
	result := make([]byte, length)
	for i := range result {
		n, err := rand.Int(rand.Reader, charsLen)
		if err != nil {
			return "", fmt.Errorf("failed to generate random character: %w", err)
		}
		result[i] = passwordCharset[n.Int64()]
	}
	return string(result), nil
}

// RandomHex returns n random bytes hex-encoded, used for username suffixes.
func RandomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random suffix: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
