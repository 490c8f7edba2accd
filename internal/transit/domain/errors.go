package domain

import (
	"github.com/usphq/usp/internal/errors"
)

// Transit engine error definitions. All wrap the platform taxonomy so handlers
// map them to stable machine codes.
var (
	// ErrKeyNotFound indicates no transit key exists with the requested name.
	ErrKeyNotFound = errors.Wrap(errors.ErrNotFound, "transit key not found")

	// ErrKeyExists indicates a transit key with the same name already exists.
	ErrKeyExists = errors.Wrap(errors.ErrConflict, "transit key already exists")

	// ErrKeyVersionNotFound indicates the key exists but the requested version
	// does not.
	ErrKeyVersionNotFound = errors.Wrap(errors.ErrNotFound, "transit key version not found")

	// ErrKeyNameInvalid indicates the key name is empty, too long, or carries
	// characters outside the allowed set.
	ErrKeyNameInvalid = errors.Wrap(errors.ErrInvalidInput, "invalid transit key name")

	// ErrKeyTypeInvalid indicates an unknown key type.
	ErrKeyTypeInvalid = errors.Wrap(errors.ErrInvalidInput, "invalid transit key type")

	// ErrInvalidCiphertext indicates the wire string is not in the
	// "vault:v<version>:<base64>" format.
	ErrInvalidCiphertext = errors.Wrap(errors.ErrInvalidInput, "invalid transit ciphertext")

	// ErrVersionTooOld indicates the ciphertext references a version below the
	// key's minimum decryption version.
	ErrVersionTooOld = errors.Wrap(errors.ErrKeyVersionTooOld, "ciphertext version fenced off")

	// ErrDeletionNotAllowed indicates the key's configuration forbids deletion.
	ErrDeletionNotAllowed = errors.Wrap(errors.ErrForbidden, "transit key deletion not allowed")

	// ErrNotExportable indicates the key was created without the exportable
	// flag, which is immutable.
	ErrNotExportable = errors.Wrap(errors.ErrForbidden, "transit key is not exportable")

	// ErrOperationUnsupported indicates the operation does not apply to the
	// key's type (e.g. signing with a symmetric key).
	ErrOperationUnsupported = errors.Wrap(errors.ErrUnsupported, "operation not supported by key type")
)
