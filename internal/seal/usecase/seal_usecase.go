package usecase

import (
	"context"
	"crypto/rand"
	"log/slog"
	"strconv"
	"sync"
	"time"

	auditDomain "github.com/usphq/usp/internal/audit/domain"
	cryptoDomain "github.com/usphq/usp/internal/crypto/domain"
	cryptoService "github.com/usphq/usp/internal/crypto/service"
	"github.com/usphq/usp/internal/database"
	apperrors "github.com/usphq/usp/internal/errors"
	"github.com/usphq/usp/internal/requestctx"
	sealDomain "github.com/usphq/usp/internal/seal/domain"
	sealService "github.com/usphq/usp/internal/seal/service"
)

// dmkAAD binds the sealed root key blob to its role so it cannot be replayed
// as any other encrypted field.
const dmkAAD = "usp/seal/dmk"

// shareSize is the wire size of one KEK share: the share body plus the
// trailing index byte.
const shareSize = cryptoDomain.KeySize + cryptoService.ShareOverhead

// bootstrapPrincipal names the seal control plane in audit records when no
// authenticated principal is attached.
const bootstrapPrincipal = "bootstrap"

type sealUseCase struct {
	txManager    database.TxManager
	configRepo   SealConfigRepository
	custodian    KeyCustodian
	auditor      Auditor
	kms          cryptoService.KMSService
	kmsKeyURI    string
	drainTimeout time.Duration
	logger       *slog.Logger

	mu        sync.Mutex
	collected map[byte][]byte
}

// NewSealUseCase creates the seal state machine. kmsKeyURI may be empty when
// auto-unseal is not configured; logger may be nil.
func NewSealUseCase(
	txManager database.TxManager,
	configRepo SealConfigRepository,
	custodian KeyCustodian,
	auditor Auditor,
	kms cryptoService.KMSService,
	kmsKeyURI string,
	drainTimeout time.Duration,
	logger *slog.Logger,
) SealUseCase {
	return &sealUseCase{
		txManager:    txManager,
		configRepo:   configRepo,
		custodian:    custodian,
		auditor:      auditor,
		kms:          kms,
		kmsKeyURI:    kmsKeyURI,
		drainTimeout: drainTimeout,
		logger:       logger,
		collected:    make(map[byte][]byte),
	}
}

// Init generates the KEK and the root key, splits the KEK into shares,
// persists the root key sealed under the KEK, and hands the shares out
// exactly once. The init audit record commits in the same transaction as the
// configuration; the hierarchy used to sign it is carried on the context and
// never published.
func (u *sealUseCase) Init(ctx context.Context, shares, threshold int) (*InitResult, error) {
	if shares < sealDomain.MinShares || shares > sealDomain.MaxShares {
		return nil, apperrors.Wrapf(sealDomain.ErrInvalidSealConfig, "shares must be between %d and %d", sealDomain.MinShares, sealDomain.MaxShares)
	}
	if threshold < 1 || threshold > shares {
		return nil, apperrors.Wrap(sealDomain.ErrInvalidSealConfig, "threshold must be between 1 and the share count")
	}

	if _, err := u.configRepo.Get(ctx); err == nil {
		return nil, sealDomain.ErrAlreadyInitialized
	} else if !apperrors.Is(err, sealDomain.ErrNotInitialized) {
		return nil, err
	}

	kek := make([]byte, cryptoDomain.KeySize)
	if _, err := rand.Read(kek); err != nil {
		return nil, apperrors.Wrap(err, "failed to generate key encryption key")
	}
	defer cryptoDomain.Zero(kek)

	dmk := make([]byte, cryptoDomain.KeySize)
	if _, err := rand.Read(dmk); err != nil {
		return nil, apperrors.Wrap(err, "failed to generate root key")
	}
	defer cryptoDomain.Zero(dmk)

	shareSet, err := splitKEK(kek, shares, threshold)
	if err != nil {
		return nil, err
	}

	cipher, err := cryptoService.NewFieldCipher(kek)
	if err != nil {
		return nil, err
	}
	encryptedDMK, err := cipher.Seal(dmk, []byte(dmkAAD))
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to seal root key")
	}

	hierarchy, err := cryptoDomain.NewKeyHierarchy(dmk)
	if err != nil {
		return nil, err
	}
	defer hierarchy.Zeroize()

	now := time.Now().UTC()
	config := &sealDomain.SealConfig{
		SealType:     sealDomain.SealTypeShamir,
		Shares:       shares,
		Threshold:    threshold,
		EncryptedDMK: encryptedDMK,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = u.txManager.WithTx(ctx, func(txCtx context.Context) error {
		if err := u.configRepo.Create(txCtx, config); err != nil {
			return err
		}
		keyCtx := sealService.ContextWithKeys(txCtx, hierarchy)
		return u.auditor.Append(keyCtx, &auditDomain.Entry{
			EventType:     auditDomain.EventTypeInit,
			PrincipalID:   principalFrom(ctx),
			CorrelationID: requestctx.Correlation(ctx),
			Success:       true,
			Details: auditDomain.Details{
				Operation: "seal.init",
				Extra: map[string]string{
					"shares":    strconv.Itoa(shares),
					"threshold": strconv.Itoa(threshold),
				},
			},
		})
	})
	if err != nil {
		return nil, err
	}

	return &InitResult{Shares: shareSet, Threshold: threshold}, nil
}

// SubmitShare collects one share and unseals when the threshold is reached.
func (u *sealUseCase) SubmitShare(ctx context.Context, share []byte) (*sealDomain.Status, error) {
	config, err := u.configRepo.Get(ctx)
	if err != nil {
		return nil, err
	}

	if u.custodian.Unsealed() {
		return nil, sealDomain.ErrAlreadyUnsealed
	}

	if len(share) != shareSize {
		return nil, apperrors.Wrapf(sealDomain.ErrInvalidShare, "share must be %d bytes", shareSize)
	}
	index := share[len(share)-1]
	if index == 0 {
		return nil, apperrors.Wrap(sealDomain.ErrInvalidShare, "share index must not be zero")
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	if _, dup := u.collected[index]; dup {
		return nil, sealDomain.ErrDuplicateShare
	}

	buf := make([]byte, shareSize)
	copy(buf, share)
	u.collected[index] = buf

	if len(u.collected) < config.Threshold {
		return u.statusLocked(config), nil
	}

	dmk, err := u.recoverDMK(config)
	u.discardSharesLocked()
	if err != nil {
		return nil, err
	}
	defer cryptoDomain.Zero(dmk)

	hierarchy, err := cryptoDomain.NewKeyHierarchy(dmk)
	if err != nil {
		return nil, err
	}
	u.custodian.Install(hierarchy)

	u.afterUnseal(ctx, "seal.unseal", nil)

	return u.statusLocked(config), nil
}

// ResetUnseal discards collected shares and returns to Sealed.
func (u *sealUseCase) ResetUnseal(ctx context.Context) (*sealDomain.Status, error) {
	config, err := u.configRepo.Get(ctx)
	if err != nil {
		return nil, err
	}

	u.mu.Lock()
	defer u.mu.Unlock()
	u.discardSharesLocked()
	return u.statusLocked(config), nil
}

// Seal appends the seal audit record while key material is still available,
// then drains in-flight key users and zeroizes. Idempotent while sealed.
func (u *sealUseCase) Seal(ctx context.Context) (*sealDomain.Status, error) {
	config, err := u.configRepo.Get(ctx)
	if err != nil {
		return nil, err
	}

	if u.custodian.Unsealed() {
		// Best effort: sealing must not be blockable by an audit failure.
		appendErr := u.auditor.Append(ctx, &auditDomain.Entry{
			EventType:     auditDomain.EventTypeSeal,
			PrincipalID:   principalFrom(ctx),
			CorrelationID: requestctx.Correlation(ctx),
			Success:       true,
			Details:       auditDomain.Details{Operation: "seal.seal"},
		})
		if appendErr != nil && u.logger != nil {
			u.logger.Error("failed to append seal audit record", slog.Any("error", appendErr))
		}

		u.custodian.Drain(ctx, u.drainTimeout)
	}

	u.mu.Lock()
	defer u.mu.Unlock()
	u.discardSharesLocked()
	return u.statusLocked(config), nil
}

// Status reports the observable snapshot in any state.
func (u *sealUseCase) Status(ctx context.Context) (*sealDomain.Status, error) {
	config, err := u.configRepo.Get(ctx)
	if err != nil {
		if apperrors.Is(err, sealDomain.ErrNotInitialized) {
			return &sealDomain.Status{State: sealDomain.StateUninitialized}, nil
		}
		return nil, err
	}

	u.mu.Lock()
	defer u.mu.Unlock()
	return u.statusLocked(config), nil
}

// AutoUnseal unseals through the configured KMS, initializing the
// installation on first boot.
func (u *sealUseCase) AutoUnseal(ctx context.Context) (*sealDomain.Status, error) {
	if u.kmsKeyURI == "" {
		return nil, apperrors.Wrap(sealDomain.ErrAutoUnsealUnavailable, "no KMS key configured")
	}

	config, err := u.configRepo.Get(ctx)
	if apperrors.Is(err, sealDomain.ErrNotInitialized) {
		return u.initKMS(ctx)
	}
	if err != nil {
		return nil, err
	}
	if config.SealType != sealDomain.SealTypeKMS {
		return nil, apperrors.Wrap(sealDomain.ErrAutoUnsealUnavailable, "installation is shamir-sealed")
	}

	if u.custodian.Unsealed() {
		u.mu.Lock()
		defer u.mu.Unlock()
		return u.statusLocked(config), nil
	}

	keeper, err := u.kms.OpenKeeper(ctx, u.kmsKeyURI)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = keeper.Close()
	}()

	dmk, err := keeper.Decrypt(ctx, config.EncryptedDMK)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to unwrap root key via KMS")
	}
	defer cryptoDomain.Zero(dmk)

	hierarchy, err := cryptoDomain.NewKeyHierarchy(dmk)
	if err != nil {
		return nil, err
	}
	u.custodian.Install(hierarchy)

	u.afterUnseal(ctx, "seal.unseal", map[string]string{"mode": "kms"})

	u.mu.Lock()
	defer u.mu.Unlock()
	return u.statusLocked(config), nil
}

// initKMS performs first-boot initialization for KMS-sealed installations:
// the root key is wrapped by the external keeper and no shares exist.
func (u *sealUseCase) initKMS(ctx context.Context) (*sealDomain.Status, error) {
	keeper, err := u.kms.OpenKeeper(ctx, u.kmsKeyURI)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = keeper.Close()
	}()

	dmk := make([]byte, cryptoDomain.KeySize)
	if _, err := rand.Read(dmk); err != nil {
		return nil, apperrors.Wrap(err, "failed to generate root key")
	}
	defer cryptoDomain.Zero(dmk)

	encryptedDMK, err := keeper.Encrypt(ctx, dmk)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to wrap root key via KMS")
	}

	hierarchy, err := cryptoDomain.NewKeyHierarchy(dmk)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	config := &sealDomain.SealConfig{
		SealType:     sealDomain.SealTypeKMS,
		EncryptedDMK: encryptedDMK,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = u.txManager.WithTx(ctx, func(txCtx context.Context) error {
		if err := u.configRepo.Create(txCtx, config); err != nil {
			return err
		}
		keyCtx := sealService.ContextWithKeys(txCtx, hierarchy)
		return u.auditor.Append(keyCtx, &auditDomain.Entry{
			EventType:     auditDomain.EventTypeInit,
			PrincipalID:   principalFrom(ctx),
			CorrelationID: requestctx.Correlation(ctx),
			Success:       true,
			Details: auditDomain.Details{
				Operation: "seal.init",
				Extra:     map[string]string{"seal_type": string(sealDomain.SealTypeKMS)},
			},
		})
	})
	if err != nil {
		hierarchy.Zeroize()
		return nil, err
	}

	u.custodian.Install(hierarchy)

	u.mu.Lock()
	defer u.mu.Unlock()
	return u.statusLocked(config), nil
}

// recoverDMK combines the collected shares and opens the stored root key.
// Callers hold u.mu.
func (u *sealUseCase) recoverDMK(config *sealDomain.SealConfig) ([]byte, error) {
	var kek []byte
	if config.Threshold == 1 {
		// A threshold of one degenerates to plain copies of the KEK.
		for _, share := range u.collected {
			kek = make([]byte, cryptoDomain.KeySize)
			copy(kek, share[:cryptoDomain.KeySize])
			break
		}
	} else {
		shares := make([][]byte, 0, len(u.collected))
		for _, share := range u.collected {
			shares = append(shares, share)
		}
		combined, err := cryptoService.CombineShares(shares)
		if err != nil {
			return nil, apperrors.Wrap(sealDomain.ErrShareCombination, err.Error())
		}
		kek = combined
	}
	defer cryptoDomain.Zero(kek)

	cipher, err := cryptoService.NewFieldCipher(kek)
	if err != nil {
		return nil, apperrors.Wrap(sealDomain.ErrShareCombination, err.Error())
	}

	dmk, err := cipher.Open(config.EncryptedDMK, []byte(dmkAAD))
	if err != nil {
		// The GCM tag is the sole integrity check for bad shares.
		return nil, sealDomain.ErrShareCombination
	}
	return dmk, nil
}

// afterUnseal verifies the audit chain and records the unseal. A broken chain
// blocks appends until acknowledged but never blocks the unseal itself.
func (u *sealUseCase) afterUnseal(ctx context.Context, operation string, extra map[string]string) {
	report, err := u.auditor.VerifyChain(ctx)
	switch {
	case err != nil:
		if u.logger != nil {
			u.logger.Error("audit chain verification failed after unseal", slog.Any("error", err))
		}
	case report.Broken:
		if u.logger != nil {
			u.logger.Error("audit chain broken, appends blocked until acknowledged",
				slog.Int64("broken_seq", report.BrokenSeq),
				slog.String("reason", report.Reason),
			)
		}
		return
	}

	appendErr := u.auditor.Append(ctx, &auditDomain.Entry{
		EventType:     auditDomain.EventTypeUnseal,
		PrincipalID:   principalFrom(ctx),
		CorrelationID: requestctx.Correlation(ctx),
		Success:       true,
		Details:       auditDomain.Details{Operation: operation, Extra: extra},
	})
	if appendErr != nil && u.logger != nil {
		u.logger.Error("failed to append unseal audit record", slog.Any("error", appendErr))
	}
}

// statusLocked builds the snapshot. Callers hold u.mu.
func (u *sealUseCase) statusLocked(config *sealDomain.SealConfig) *sealDomain.Status {
	status := &sealDomain.Status{
		State:       sealDomain.StateSealed,
		Initialized: true,
		SealType:    config.SealType,
		Progress:    len(u.collected),
		Threshold:   config.Threshold,
		Shares:      config.Shares,
	}
	switch {
	case u.custodian.Unsealed():
		status.State = sealDomain.StateUnsealed
		status.Progress = 0
	case len(u.collected) > 0:
		status.State = sealDomain.StateUnsealing
	}
	return status
}

// discardSharesLocked wipes and forgets collected shares. Callers hold u.mu.
func (u *sealUseCase) discardSharesLocked() {
	for index, share := range u.collected {
		cryptoDomain.Zero(share)
		delete(u.collected, index)
	}
}

// splitKEK produces the share handout for the given threshold.
func splitKEK(kek []byte, shares, threshold int) ([][]byte, error) {
	if threshold == 1 {
		// Degenerate split: every share alone recovers the KEK.
		out := make([][]byte, shares)
		for i := range out {
			share := make([]byte, shareSize)
			copy(share, kek)
			share[len(share)-1] = byte(i + 1)
			out[i] = share
		}
		return out, nil
	}
	return cryptoService.SplitSecret(kek, shares, threshold)
}

func principalFrom(ctx context.Context) string {
	if principal := requestctx.Principal(ctx); principal != "" {
		return principal
	}
	return bootstrapPrincipal
}
