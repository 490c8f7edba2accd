package usecase

import (
	"context"
	"crypto/rand"
	"strconv"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/usphq/usp/internal/audit/domain"
	cryptoDomain "github.com/usphq/usp/internal/crypto/domain"
	cryptoService "github.com/usphq/usp/internal/crypto/service"
	"github.com/usphq/usp/internal/database"
	apperrors "github.com/usphq/usp/internal/errors"
	"github.com/usphq/usp/internal/requestctx"
	transitDomain "github.com/usphq/usp/internal/transit/domain"
)

// transitUseCase implements TransitUseCase.
type transitUseCase struct {
	txManager   database.TxManager
	keyRepo     KeyRepository
	versionRepo VersionRepository
	keySource   KeySource
	aeadManager cryptoService.AEADManager
	auditor     Auditor
}

// NewTransitUseCase creates the transit engine.
func NewTransitUseCase(
	txManager database.TxManager,
	keyRepo KeyRepository,
	versionRepo VersionRepository,
	keySource KeySource,
	aeadManager cryptoService.AEADManager,
	auditor Auditor,
) TransitUseCase {
	return &transitUseCase{
		txManager:   txManager,
		keyRepo:     keyRepo,
		versionRepo: versionRepo,
		keySource:   keySource,
		aeadManager: aeadManager,
		auditor:     auditor,
	}
}

// wrapAAD binds wrapped key material to its key name and version so stored
// material cannot be swapped between rows.
func wrapAAD(name string, version int) []byte {
	return []byte("transit-key|" + name + "|" + strconv.Itoa(version))
}

// dataAAD binds a data ciphertext to the key, version, and the caller-supplied
// context. A mismatched context at decryption surfaces as a decryption
// failure.
func dataAAD(name string, version int, context []byte) []byte {
	aad := []byte("transit|" + name + "|" + strconv.Itoa(version))
	return append(aad, context...)
}

// wrapCipher builds the FieldCipher protecting one named key's material.
func (t *transitUseCase) wrapCipher(ctx context.Context, name string) (*cryptoService.FieldCipher, error) {
	subkey, err := t.keySource.Subkey(ctx, cryptoDomain.TransitKeyPurpose(name))
	if err != nil {
		return nil, err
	}
	return cryptoService.NewFieldCipher(subkey)
}

// generateVersion mints fresh material for one key version and wraps it for
// storage. The plaintext material is zeroed before returning.
func (t *transitUseCase) generateVersion(
	ctx context.Context,
	key *transitDomain.TransitKey,
	version int,
	now time.Time,
) (*transitDomain.KeyVersion, error) {
	var material, publicKey []byte

	if key.Type.Symmetric() {
		material = make([]byte, cryptoDomain.KeySize)
		if _, err := rand.Read(material); err != nil {
			return nil, apperrors.Wrap(err, "failed to generate key material")
		}
	} else {
		alg, ok := key.Type.SigningAlgorithm()
		if !ok {
			return nil, transitDomain.ErrKeyTypeInvalid
		}
		var err error
		material, publicKey, err = cryptoService.GenerateKeyPair(alg)
		if err != nil {
			return nil, err
		}
	}
	defer cryptoDomain.Zero(material)

	cipher, err := t.wrapCipher(ctx, key.Name)
	if err != nil {
		return nil, err
	}
	wrapped, err := cipher.Seal(material, wrapAAD(key.Name, version))
	if err != nil {
		return nil, err
	}

	return &transitDomain.KeyVersion{
		KeyID:     key.ID,
		Version:   version,
		Material:  wrapped,
		PublicKey: publicKey,
		CreatedAt: now,
	}, nil
}

// unwrapMaterial decrypts one version's stored material. Callers must zero the
// result after use.
func (t *transitUseCase) unwrapMaterial(ctx context.Context, name string, version *transitDomain.KeyVersion) ([]byte, error) {
	cipher, err := t.wrapCipher(ctx, name)
	if err != nil {
		return nil, err
	}
	return cipher.Open(version.Material, wrapAAD(name, version.Version))
}

// CreateKey creates a named key at version 1 inside one transaction.
func (t *transitUseCase) CreateKey(ctx context.Context, input *CreateKeyInput) (*transitDomain.TransitKey, error) {
	if !transitDomain.ValidKeyName(input.Name) {
		return nil, transitDomain.ErrKeyNameInvalid
	}
	if !input.Type.Valid() {
		return nil, transitDomain.ErrKeyTypeInvalid
	}

	now := time.Now().UTC()
	key := &transitDomain.TransitKey{
		ID:                   uuid.Must(uuid.NewV7()),
		Name:                 input.Name,
		Type:                 input.Type,
		CurrentVersion:       1,
		MinDecryptionVersion: 1,
		Exportable:           input.Exportable,
		DeletionAllowed:      input.DeletionAllowed,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	version, err := t.generateVersion(ctx, key, 1, now)
	if err != nil {
		return nil, err
	}

	err = t.txManager.WithTx(ctx, func(txCtx context.Context) error {
		if err := t.keyRepo.Create(txCtx, key); err != nil {
			if apperrors.Is(err, apperrors.ErrConflict) {
				return transitDomain.ErrKeyExists
			}
			return err
		}
		if err := t.versionRepo.Create(txCtx, version); err != nil {
			return err
		}
		return t.appendAudit(txCtx, auditDomain.EventTypeWrite, "transit.create-key", key.Name, map[string]string{
			"type": string(key.Type),
		})
	})
	if err != nil {
		return nil, err
	}
	return key, nil
}

// GetKey returns key metadata; for asymmetric keys the current version row is
// included so callers can read the public key.
func (t *transitUseCase) GetKey(ctx context.Context, name string) (*transitDomain.TransitKey, *transitDomain.KeyVersion, error) {
	key, err := t.keyRepo.GetByName(ctx, name)
	if err != nil {
		return nil, nil, err
	}
	if key.Type.Symmetric() {
		return key, nil, nil
	}

	version, err := t.versionRepo.Get(ctx, key.ID, key.CurrentVersion)
	if err != nil {
		return nil, nil, err
	}
	// Never hand out wrapped material on a metadata read.
	version.Material = nil
	return key, version, nil
}

// ListKeys returns every key name.
func (t *transitUseCase) ListKeys(ctx context.Context) ([]string, error) {
	return t.keyRepo.ListNames(ctx)
}

// RotateKey generates the next version under the key's row lock.
func (t *transitUseCase) RotateKey(ctx context.Context, name string) (*transitDomain.TransitKey, error) {
	var key *transitDomain.TransitKey
	err := t.txManager.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		key, err = t.keyRepo.GetByNameForUpdate(txCtx, name)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		next := key.CurrentVersion + 1
		version, err := t.generateVersion(txCtx, key, next, now)
		if err != nil {
			return err
		}
		if err := t.versionRepo.Create(txCtx, version); err != nil {
			return err
		}

		key.CurrentVersion = next
		key.UpdatedAt = now
		if err := t.keyRepo.Update(txCtx, key); err != nil {
			return err
		}
		return t.appendAudit(txCtx, auditDomain.EventTypeRotate, "transit.rotate-key", name, map[string]string{
			"version": strconv.Itoa(next),
		})
	})
	if err != nil {
		return nil, err
	}
	return key, nil
}

// UpdateKeyConfig adjusts mutable key settings. The minimum decryption version
// can move in either direction but never above the current version, and
// exportability is immutable.
func (t *transitUseCase) UpdateKeyConfig(ctx context.Context, name string, update *KeyConfigUpdate) (*transitDomain.TransitKey, error) {
	var key *transitDomain.TransitKey
	err := t.txManager.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		key, err = t.keyRepo.GetByNameForUpdate(txCtx, name)
		if err != nil {
			return err
		}

		if update.MinDecryptionVersion != nil {
			v := *update.MinDecryptionVersion
			if v < 1 || v > key.CurrentVersion {
				return apperrors.Wrap(apperrors.ErrInvalidInput,
					"min_decryption_version must be between 1 and the current version")
			}
			key.MinDecryptionVersion = v
		}
		if update.DeletionAllowed != nil {
			key.DeletionAllowed = *update.DeletionAllowed
		}

		key.UpdatedAt = time.Now().UTC()
		if err := t.keyRepo.Update(txCtx, key); err != nil {
			return err
		}
		return t.appendAudit(txCtx, auditDomain.EventTypeWrite, "transit.update-key-config", name, nil)
	})
	if err != nil {
		return nil, err
	}
	return key, nil
}

// DeleteKey removes the key and all versions. Refused unless the key's
// configuration explicitly allows deletion.
func (t *transitUseCase) DeleteKey(ctx context.Context, name string) error {
	return t.txManager.WithTx(ctx, func(txCtx context.Context) error {
		key, err := t.keyRepo.GetByNameForUpdate(txCtx, name)
		if err != nil {
			return err
		}
		if !key.DeletionAllowed {
			return transitDomain.ErrDeletionNotAllowed
		}
		if err := t.keyRepo.DeleteByID(txCtx, key.ID); err != nil {
			return err
		}
		return t.appendAudit(txCtx, auditDomain.EventTypeWrite, "transit.delete-key", name, nil)
	})
}

// Encrypt encrypts plaintext under the key's current version.
func (t *transitUseCase) Encrypt(ctx context.Context, name string, plaintext, context []byte) (string, error) {
	key, err := t.keyRepo.GetByName(ctx, name)
	if err != nil {
		return "", err
	}
	alg, ok := key.Type.AEADAlgorithm()
	if !ok {
		return "", transitDomain.ErrOperationUnsupported
	}

	version, err := t.versionRepo.Get(ctx, key.ID, key.CurrentVersion)
	if err != nil {
		return "", err
	}
	material, err := t.unwrapMaterial(ctx, name, version)
	if err != nil {
		return "", err
	}
	defer cryptoDomain.Zero(material)

	cipher, err := t.aeadManager.CreateCipher(material, alg)
	if err != nil {
		return "", err
	}
	ciphertext, nonce, err := cipher.Encrypt(plaintext, dataAAD(name, version.Version, context))
	if err != nil {
		return "", apperrors.Wrap(err, "failed to encrypt plaintext")
	}
	blob, err := cryptoDomain.EncodeBlob(nonce, ciphertext)
	if err != nil {
		return "", err
	}

	if err := t.appendAudit(ctx, auditDomain.EventTypeWrite, "transit.encrypt", name, map[string]string{
		"version": strconv.Itoa(version.Version),
	}); err != nil {
		return "", err
	}
	return transitDomain.FormatCiphertext(version.Version, blob), nil
}

// Decrypt decrypts a wire ciphertext with the version it names.
func (t *transitUseCase) Decrypt(ctx context.Context, name, ciphertext string, context []byte) ([]byte, error) {
	key, err := t.keyRepo.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	alg, ok := key.Type.AEADAlgorithm()
	if !ok {
		return nil, transitDomain.ErrOperationUnsupported
	}

	wireVersion, blob, err := transitDomain.ParseCiphertext(ciphertext)
	if err != nil {
		return nil, err
	}
	if wireVersion < key.MinDecryptionVersion {
		return nil, transitDomain.ErrVersionTooOld
	}
	if wireVersion > key.CurrentVersion {
		return nil, transitDomain.ErrKeyVersionNotFound
	}

	version, err := t.versionRepo.Get(ctx, key.ID, wireVersion)
	if err != nil {
		return nil, err
	}
	material, err := t.unwrapMaterial(ctx, name, version)
	if err != nil {
		return nil, err
	}
	defer cryptoDomain.Zero(material)

	cipher, err := t.aeadManager.CreateCipher(material, alg)
	if err != nil {
		return nil, err
	}
	nonce, data, err := cryptoDomain.DecodeBlob(blob)
	if err != nil {
		return nil, err
	}
	plaintext, err := cipher.Decrypt(data, nonce, dataAAD(name, wireVersion, context))
	if err != nil {
		return nil, cryptoDomain.ErrDecryptionFailed
	}

	if err := t.appendAudit(ctx, auditDomain.EventTypeRead, "transit.decrypt", name, map[string]string{
		"version": strconv.Itoa(wireVersion),
	}); err != nil {
		cryptoDomain.Zero(plaintext)
		return nil, err
	}
	return plaintext, nil
}

// Sign signs message with the current version of an asymmetric key. The
// signature wire format mirrors ciphertexts so verification can select the
// right version.
func (t *transitUseCase) Sign(ctx context.Context, name string, message []byte) (string, error) {
	key, err := t.keyRepo.GetByName(ctx, name)
	if err != nil {
		return "", err
	}
	alg, ok := key.Type.SigningAlgorithm()
	if !ok {
		return "", transitDomain.ErrOperationUnsupported
	}

	version, err := t.versionRepo.Get(ctx, key.ID, key.CurrentVersion)
	if err != nil {
		return "", err
	}
	material, err := t.unwrapMaterial(ctx, name, version)
	if err != nil {
		return "", err
	}
	defer cryptoDomain.Zero(material)

	sig, err := cryptoService.Sign(alg, material, message)
	if err != nil {
		return "", err
	}

	if err := t.appendAudit(ctx, auditDomain.EventTypeWrite, "transit.sign", name, map[string]string{
		"version": strconv.Itoa(version.Version),
	}); err != nil {
		return "", err
	}
	return transitDomain.FormatCiphertext(version.Version, sig), nil
}

// Verify checks a wire signature against message using the public half of the
// version named in the signature. No private material is unwrapped.
func (t *transitUseCase) Verify(ctx context.Context, name string, message []byte, signature string) (bool, error) {
	key, err := t.keyRepo.GetByName(ctx, name)
	if err != nil {
		return false, err
	}
	alg, ok := key.Type.SigningAlgorithm()
	if !ok {
		return false, transitDomain.ErrOperationUnsupported
	}

	wireVersion, sig, err := transitDomain.ParseCiphertext(signature)
	if err != nil {
		return false, err
	}
	if wireVersion > key.CurrentVersion {
		return false, transitDomain.ErrKeyVersionNotFound
	}

	version, err := t.versionRepo.Get(ctx, key.ID, wireVersion)
	if err != nil {
		return false, err
	}
	return cryptoService.Verify(alg, version.PublicKey, message, sig)
}

// Export returns plaintext material for keys created as exportable. The export
// is audited before material is returned.
func (t *transitUseCase) Export(ctx context.Context, name string, version int) (*ExportedKey, error) {
	key, err := t.keyRepo.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if !key.Exportable {
		return nil, transitDomain.ErrNotExportable
	}
	if version == 0 {
		version = key.CurrentVersion
	}
	if version < 1 || version > key.CurrentVersion {
		return nil, transitDomain.ErrKeyVersionNotFound
	}

	row, err := t.versionRepo.Get(ctx, key.ID, version)
	if err != nil {
		return nil, err
	}
	material, err := t.unwrapMaterial(ctx, name, row)
	if err != nil {
		return nil, err
	}

	if err := t.appendAudit(ctx, auditDomain.EventTypeRead, "transit.export", name, map[string]string{
		"version": strconv.Itoa(version),
	}); err != nil {
		cryptoDomain.Zero(material)
		return nil, err
	}

	return &ExportedKey{
		Name:      name,
		Type:      key.Type,
		Version:   version,
		Material:  material,
		PublicKey: row.PublicKey,
	}, nil
}

// appendAudit records one engine event with the caller's identity from the
// request context.
func (t *transitUseCase) appendAudit(ctx context.Context, eventType auditDomain.EventType, operation, name string, extra map[string]string) error {
	return t.auditor.Append(ctx, &auditDomain.Entry{
		EventType:     eventType,
		PrincipalID:   requestctx.Principal(ctx),
		CorrelationID: requestctx.Correlation(ctx),
		Success:       true,
		Details: auditDomain.Details{
			Operation: operation,
			Path:      "transit/" + name,
			Extra:     extra,
		},
	})
}
