package domain

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
)

// ciphertextPrefix opens every transit wire string. The format is
// "vault:v<version>:<base64>", chosen for drop-in compatibility with clients
// that already speak it.
const ciphertextPrefix = "vault:v"

// FormatCiphertext renders an encrypted blob (or a signature) in the wire
// format, tagged with the key version that produced it.
func FormatCiphertext(version int, blob []byte) string {
	return ciphertextPrefix + strconv.Itoa(version) + ":" + base64.StdEncoding.EncodeToString(blob)
}

// ParseCiphertext splits a wire string back into key version and raw bytes.
func ParseCiphertext(s string) (int, []byte, error) {
	rest, ok := strings.CutPrefix(s, ciphertextPrefix)
	if !ok {
		return 0, nil, ErrInvalidCiphertext
	}

	versionStr, encoded, ok := strings.Cut(rest, ":")
	if !ok {
		return 0, nil, ErrInvalidCiphertext
	}
	version, err := strconv.Atoi(versionStr)
	if err != nil || version < 1 {
		return 0, nil, fmt.Errorf("%w: bad version %q", ErrInvalidCiphertext, versionStr)
	}

	blob, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrInvalidCiphertext, err)
	}
	return version, blob, nil
}
