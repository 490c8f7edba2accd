package commands

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	authService "github.com/usphq/usp/internal/auth/service"
)

// minBootstrapCredentialLength rejects trivially guessable operator
// credentials.
const minBootstrapCredentialLength = 16

// RunHashBootstrapCredential reads the operator credential from the reader
// and prints its Argon2id hash, which goes into BOOTSTRAP_CREDENTIAL_HASH.
// The plain credential never touches configuration or storage.
func RunHashBootstrapCredential(secretService authService.SecretService, ioTuple IOTuple) error {
	reader := bufio.NewReader(ioTuple.Reader)
	credential, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return fmt.Errorf("failed to read credential: %w", err)
	}
	credential = strings.TrimRight(credential, "\r\n")

	if len(credential) < minBootstrapCredentialLength {
		return fmt.Errorf("%w: credential must be at least %d characters",
			ErrUsage, minBootstrapCredentialLength)
	}

	hash, err := secretService.HashSecret(credential)
	if err != nil {
		return fmt.Errorf("failed to hash credential: %w", err)
	}

	fmt.Fprintln(ioTuple.Writer, hash)
	return nil
}
