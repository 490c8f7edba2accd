package usecase

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/usphq/usp/internal/audit/domain"
	cryptoDomain "github.com/usphq/usp/internal/crypto/domain"
	cryptoService "github.com/usphq/usp/internal/crypto/service"
	"github.com/usphq/usp/internal/database"
	apperrors "github.com/usphq/usp/internal/errors"
	kvDomain "github.com/usphq/usp/internal/kv/domain"
	"github.com/usphq/usp/internal/requestctx"
)

// listPageSize bounds one repository page during prefix listing.
const listPageSize = 500

// kvUseCase implements KVUseCase.
type kvUseCase struct {
	txManager          database.TxManager
	secretRepo         SecretRepository
	versionRepo        VersionRepository
	keySource          KeySource
	auditor            Auditor
	defaultMaxVersions int
}

// NewKVUseCase creates the key-value engine. defaultMaxVersions is applied to
// secrets whose metadata does not override the retention window.
func NewKVUseCase(
	txManager database.TxManager,
	secretRepo SecretRepository,
	versionRepo VersionRepository,
	keySource KeySource,
	auditor Auditor,
	defaultMaxVersions int,
) KVUseCase {
	if defaultMaxVersions <= 0 {
		defaultMaxVersions = kvDomain.DefaultMaxVersions
	}
	return &kvUseCase{
		txManager:          txManager,
		secretRepo:         secretRepo,
		versionRepo:        versionRepo,
		keySource:          keySource,
		auditor:            auditor,
		defaultMaxVersions: defaultMaxVersions,
	}
}

// versionAAD binds a ciphertext to its path and version so stored blobs cannot
// be swapped between rows or replayed at another version.
func versionAAD(path string, version int) []byte {
	return []byte("kv|v2|" + path + "|" + strconv.Itoa(version))
}

// normalizePath validates and canonicalizes a secret path: slashes trimmed at
// both ends, no empty segments, bounded length.
func normalizePath(path string) (string, error) {
	path = strings.Trim(path, "/")
	if path == "" || len(path) > kvDomain.MaxPathLength {
		return "", kvDomain.ErrPathInvalid
	}
	for _, segment := range strings.Split(path, "/") {
		if segment == "" {
			return "", kvDomain.ErrPathInvalid
		}
	}
	return path, nil
}

// Write creates the next version at path inside one transaction. The secret
// row is locked for the duration, so concurrent CAS writes to one path admit
// at most one winner; the write audit record commits atomically with the data.
func (u *kvUseCase) Write(ctx context.Context, input *WriteInput) (*kvDomain.Secret, error) {
	path, err := normalizePath(input.Path)
	if err != nil {
		return nil, err
	}
	if len(input.Value) == 0 {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "secret value must not be empty")
	}
	if len(input.Value) > kvDomain.MaxValueSize {
		return nil, kvDomain.ErrValueTooLarge
	}

	subkey, err := u.keySource.Subkey(ctx, cryptoDomain.PurposeKV)
	if err != nil {
		return nil, err
	}
	cipher, err := cryptoService.NewFieldCipher(subkey)
	if err != nil {
		return nil, err
	}

	var secret *kvDomain.Secret
	err = u.txManager.WithTx(ctx, func(txCtx context.Context) error {
		now := time.Now().UTC()

		secret, err = u.secretRepo.GetByPathForUpdate(txCtx, path)
		switch {
		case apperrors.Is(err, apperrors.ErrNotFound):
			// First write: the implicit current version is zero.
			if input.CAS != nil && *input.CAS != 0 {
				return apperrors.ErrCASMismatch
			}
			secret = &kvDomain.Secret{
				ID:          uuid.Must(uuid.NewV7()),
				Path:        path,
				MaxVersions: u.defaultMaxVersions,
				CreatedAt:   now,
			}
			if err := u.secretRepo.Create(txCtx, secret); err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			if secret.CASRequired && input.CAS == nil {
				return kvDomain.ErrCASRequired
			}
			if input.CAS != nil && *input.CAS != secret.CurrentVersion {
				return apperrors.ErrCASMismatch
			}
		}

		newVersion := secret.CurrentVersion + 1
		ciphertext, err := cipher.Seal(input.Value, versionAAD(path, newVersion))
		if err != nil {
			return err
		}

		if err := u.versionRepo.Create(txCtx, &kvDomain.Version{
			SecretID:   secret.ID,
			Version:    newVersion,
			Ciphertext: ciphertext,
			CreatedAt:  now,
		}); err != nil {
			return err
		}

		secret.CurrentVersion = newVersion
		secret.UpdatedAt = now
		secret.DeletedAt = nil
		if err := u.secretRepo.Update(txCtx, secret); err != nil {
			return err
		}

		if err := u.applyRetention(txCtx, secret); err != nil {
			return err
		}

		return u.appendAudit(txCtx, auditDomain.EventTypeWrite, "kv.write", path, map[string]string{
			"version": strconv.Itoa(newVersion),
		})
	})
	if err != nil {
		return nil, err
	}
	return secret, nil
}

// applyRetention destroys the oldest intact versions until the count fits the
// secret's window. Explicitly destroyed versions do not count against it.
func (u *kvUseCase) applyRetention(ctx context.Context, secret *kvDomain.Secret) error {
	versions, err := u.versionRepo.ListBySecret(ctx, secret.ID)
	if err != nil {
		return err
	}

	var intact []int
	for _, v := range versions {
		if !v.Destroyed {
			intact = append(intact, v.Version)
		}
	}

	excess := len(intact) - secret.MaxVersions
	if excess <= 0 {
		return nil
	}
	// ListBySecret orders ascending, so the head of intact is the oldest.
	return u.versionRepo.MarkDestroyed(ctx, secret.ID, intact[:excess])
}

// Read decrypts one version. Reads are audited synchronously so the trail is
// total; a failed audit append fails the read.
func (u *kvUseCase) Read(ctx context.Context, path string, version int, readDeleted bool) (*ReadResult, error) {
	path, err := normalizePath(path)
	if err != nil {
		return nil, err
	}

	secret, err := u.secretRepo.GetByPath(ctx, path, readDeleted)
	if err != nil {
		return nil, err
	}

	var row *kvDomain.Version
	if version == 0 {
		row, err = u.versionRepo.GetLatestIntact(ctx, secret.ID)
	} else {
		row, err = u.versionRepo.Get(ctx, secret.ID, version)
	}
	if err != nil {
		return nil, err
	}

	if row.Destroyed {
		return nil, kvDomain.ErrVersionDestroyed
	}
	if row.SoftDeletedAt != nil && !readDeleted {
		return nil, kvDomain.ErrVersionDeleted
	}

	subkey, err := u.keySource.Subkey(ctx, cryptoDomain.PurposeKV)
	if err != nil {
		return nil, err
	}
	cipher, err := cryptoService.NewFieldCipher(subkey)
	if err != nil {
		return nil, err
	}
	plaintext, err := cipher.Open(row.Ciphertext, versionAAD(path, row.Version))
	if err != nil {
		return nil, err
	}
	row.Plaintext = plaintext

	if err := u.appendAudit(ctx, auditDomain.EventTypeRead, "kv.read", path, map[string]string{
		"version": strconv.Itoa(row.Version),
	}); err != nil {
		cryptoDomain.Zero(row.Plaintext)
		return nil, err
	}

	return &ReadResult{Secret: secret, Version: row}, nil
}

// SoftDelete stamps the listed versions as deleted; with no versions listed
// the current version is stamped.
func (u *kvUseCase) SoftDelete(ctx context.Context, path string, versions []int) error {
	now := time.Now().UTC()
	return u.mutateVersions(ctx, path, versions, "kv.soft-delete", func(txCtx context.Context, secret *kvDomain.Secret, targets []int) error {
		return u.versionRepo.SetSoftDeleted(txCtx, secret.ID, targets, &now)
	})
}

// Undelete clears the soft-delete marker; destroyed versions stay destroyed.
func (u *kvUseCase) Undelete(ctx context.Context, path string, versions []int) error {
	return u.mutateVersions(ctx, path, versions, "kv.undelete", func(txCtx context.Context, secret *kvDomain.Secret, targets []int) error {
		return u.versionRepo.SetSoftDeleted(txCtx, secret.ID, targets, nil)
	})
}

// Destroy erases ciphertext irreversibly.
func (u *kvUseCase) Destroy(ctx context.Context, path string, versions []int) error {
	return u.mutateVersions(ctx, path, versions, "kv.destroy", func(txCtx context.Context, secret *kvDomain.Secret, targets []int) error {
		return u.versionRepo.MarkDestroyed(txCtx, secret.ID, targets)
	})
}

// mutateVersions runs one version-flag mutation under the secret's row lock
// and appends its audit record in the same transaction.
func (u *kvUseCase) mutateVersions(
	ctx context.Context,
	path string,
	versions []int,
	operation string,
	mutate func(ctx context.Context, secret *kvDomain.Secret, targets []int) error,
) error {
	path, err := normalizePath(path)
	if err != nil {
		return err
	}

	return u.txManager.WithTx(ctx, func(txCtx context.Context) error {
		secret, err := u.secretRepo.GetByPathForUpdate(txCtx, path)
		if err != nil {
			return err
		}

		targets := versions
		if len(targets) == 0 {
			targets = []int{secret.CurrentVersion}
		}
		for _, v := range targets {
			if v < 1 || v > secret.CurrentVersion {
				return kvDomain.ErrVersionNotFound
			}
		}

		if err := mutate(txCtx, secret, targets); err != nil {
			return err
		}

		secret.UpdatedAt = time.Now().UTC()
		if err := u.secretRepo.Update(txCtx, secret); err != nil {
			return err
		}

		return u.appendAudit(txCtx, auditDomain.EventTypeWrite, operation, path, map[string]string{
			"versions": joinVersions(targets),
		})
	})
}

// DestroyMetadata removes the secret entity and all versions.
func (u *kvUseCase) DestroyMetadata(ctx context.Context, path string) error {
	path, err := normalizePath(path)
	if err != nil {
		return err
	}

	return u.txManager.WithTx(ctx, func(txCtx context.Context) error {
		secret, err := u.secretRepo.GetByPathForUpdate(txCtx, path)
		if err != nil {
			return err
		}
		if err := u.secretRepo.DeleteByID(txCtx, secret.ID); err != nil {
			return err
		}
		return u.appendAudit(txCtx, auditDomain.EventTypeWrite, "kv.destroy-metadata", path, nil)
	})
}

// Metadata returns the secret and its version map, including soft-deleted and
// destroyed rows; payloads are never attached.
func (u *kvUseCase) Metadata(ctx context.Context, path string) (*Metadata, error) {
	path, err := normalizePath(path)
	if err != nil {
		return nil, err
	}

	secret, err := u.secretRepo.GetByPath(ctx, path, true)
	if err != nil {
		return nil, err
	}
	versions, err := u.versionRepo.ListBySecret(ctx, secret.ID)
	if err != nil {
		return nil, err
	}
	return &Metadata{Secret: secret, Versions: versions}, nil
}

// UpdateMetadata adjusts the retention window and the CAS requirement. A
// shrunken window applies on the next write, not retroactively.
func (u *kvUseCase) UpdateMetadata(ctx context.Context, path string, update *MetadataUpdate) (*kvDomain.Secret, error) {
	path, err := normalizePath(path)
	if err != nil {
		return nil, err
	}
	if update.MaxVersions != nil && *update.MaxVersions < 1 {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "max_versions must be at least 1")
	}

	var secret *kvDomain.Secret
	err = u.txManager.WithTx(ctx, func(txCtx context.Context) error {
		secret, err = u.secretRepo.GetByPathForUpdate(txCtx, path)
		if err != nil {
			return err
		}
		if update.MaxVersions != nil {
			secret.MaxVersions = *update.MaxVersions
		}
		if update.CASRequired != nil {
			secret.CASRequired = *update.CASRequired
		}
		secret.UpdatedAt = time.Now().UTC()
		if err := u.secretRepo.Update(txCtx, secret); err != nil {
			return err
		}
		return u.appendAudit(txCtx, auditDomain.EventTypeWrite, "kv.update-metadata", path, nil)
	})
	if err != nil {
		return nil, err
	}
	return secret, nil
}

// List returns the immediate children of prefix, directory-style. The walk is
// paged through the repository so large subtrees stay bounded in memory.
func (u *kvUseCase) List(ctx context.Context, prefix string) ([]string, error) {
	prefix = strings.Trim(prefix, "/")
	if prefix != "" {
		prefix += "/"
	}

	children := make(map[string]struct{})
	after := ""
	for {
		paths, err := u.secretRepo.ListPaths(ctx, prefix, after, listPageSize)
		if err != nil {
			return nil, err
		}
		if len(paths) == 0 {
			break
		}
		for _, p := range paths {
			rest := strings.TrimPrefix(p, prefix)
			if idx := strings.IndexByte(rest, '/'); idx >= 0 {
				children[rest[:idx+1]] = struct{}{}
			} else {
				children[rest] = struct{}{}
			}
		}
		after = paths[len(paths)-1]
		if len(paths) < listPageSize {
			break
		}
	}

	out := make([]string, 0, len(children))
	for child := range children {
		out = append(out, child)
	}
	sort.Strings(out)
	return out, nil
}

// appendAudit records one engine event with the caller's identity from the
// request context.
func (u *kvUseCase) appendAudit(ctx context.Context, eventType auditDomain.EventType, operation, path string, extra map[string]string) error {
	return u.auditor.Append(ctx, &auditDomain.Entry{
		EventType:     eventType,
		PrincipalID:   requestctx.Principal(ctx),
		CorrelationID: requestctx.Correlation(ctx),
		Success:       true,
		Details: auditDomain.Details{
			Operation: operation,
			Path:      path,
			Extra:     extra,
		},
	})
}

func joinVersions(versions []int) string {
	parts := make([]string, len(versions))
	for i, v := range versions {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}
