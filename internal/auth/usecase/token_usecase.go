package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/usphq/usp/internal/audit/domain"
	authDomain "github.com/usphq/usp/internal/auth/domain"
	authService "github.com/usphq/usp/internal/auth/service"
	"github.com/usphq/usp/internal/config"
	"github.com/usphq/usp/internal/database"
	apperrors "github.com/usphq/usp/internal/errors"
	"github.com/usphq/usp/internal/requestctx"
)

// tokenUseCase implements TokenUseCase.
type tokenUseCase struct {
	config        *config.Config
	txManager     database.TxManager
	principalRepo PrincipalRepository
	tokenRepo     TokenRepository
	secretService authService.SecretService
	tokenService  authService.TokenService
	auditor       Auditor
}

// NewTokenUseCase creates a new TokenUseCase.
func NewTokenUseCase(
	config *config.Config,
	txManager database.TxManager,
	principalRepo PrincipalRepository,
	tokenRepo TokenRepository,
	secretService authService.SecretService,
	tokenService authService.TokenService,
	auditor Auditor,
) TokenUseCase {
	return &tokenUseCase{
		config:        config,
		txManager:     txManager,
		principalRepo: principalRepo,
		tokenRepo:     tokenRepo,
		secretService: secretService,
		tokenService:  tokenService,
		auditor:       auditor,
	}
}

// Issue authenticates a login and mints a token.
//
// An unknown name and a wrong secret both surface as ErrInvalidCredentials.
// Wrong secrets count toward the lockout; at the configured maximum the
// principal is locked for the lockout window and further logins fail with
// ErrPrincipalLocked without touching the secret.
func (t *tokenUseCase) Issue(ctx context.Context, input *authDomain.IssueTokenInput) (*authDomain.IssueTokenOutput, error) {
	principal, err := t.principalRepo.GetByName(ctx, input.Name)
	if err != nil {
		if apperrors.Is(err, authDomain.ErrPrincipalNotFound) {
			return nil, authDomain.ErrInvalidCredentials
		}
		return nil, err
	}

	now := time.Now().UTC()

	if !principal.Active {
		return nil, authDomain.ErrPrincipalInactive
	}
	if principal.Locked(now) {
		return nil, authDomain.ErrPrincipalLocked
	}

	if !t.secretService.CompareSecret(input.Secret, principal.SecretHash) {
		// The counter update must survive the failed login, so it commits in
		// its own transaction before the error is returned.
		if err := t.recordFailedLogin(ctx, principal, now); err != nil {
			return nil, err
		}
		return nil, authDomain.ErrInvalidCredentials
	}

	var output *authDomain.IssueTokenOutput
	err = t.txManager.WithTx(ctx, func(txCtx context.Context) error {
		// Success clears any partial lockout progress.
		if principal.FailedAttempts > 0 || principal.LockedUntil != nil {
			principal.FailedAttempts = 0
			principal.LockedUntil = nil
			principal.UpdatedAt = now
			if err := t.principalRepo.Update(txCtx, principal); err != nil {
				return err
			}
		}

		plainToken, tokenHash, err := t.tokenService.GenerateToken()
		if err != nil {
			return err
		}

		token := &authDomain.Token{
			ID:          uuid.Must(uuid.NewV7()),
			TokenHash:   tokenHash,
			PrincipalID: principal.ID,
			ExpiresAt:   now.Add(t.config.AuthTokenExpiration),
			CreatedAt:   now,
		}
		if err := t.tokenRepo.Create(txCtx, token); err != nil {
			return err
		}

		if err := t.appendLoginAudit(txCtx, principal.ID.String(), true); err != nil {
			return err
		}

		output = &authDomain.IssueTokenOutput{
			TokenID:    token.ID,
			PlainToken: plainToken,
			ExpiresAt:  token.ExpiresAt,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return output, nil
}

// recordFailedLogin bumps the failure counter, locks the principal at the
// configured threshold, and records the failed login.
func (t *tokenUseCase) recordFailedLogin(ctx context.Context, principal *authDomain.Principal, now time.Time) error {
	return t.txManager.WithTx(ctx, func(txCtx context.Context) error {
		principal.FailedAttempts++
		if t.config.LockoutMaxAttempts > 0 && principal.FailedAttempts >= t.config.LockoutMaxAttempts {
			lockedUntil := now.Add(t.config.LockoutDuration)
			principal.LockedUntil = &lockedUntil
		}
		principal.UpdatedAt = now

		if err := t.principalRepo.Update(txCtx, principal); err != nil {
			return err
		}
		return t.appendLoginAudit(txCtx, principal.ID.String(), false)
	})
}

// Authenticate resolves a token hash to its principal. Token lookup misses,
// expiry, and revocation all surface as ErrInvalidCredentials.
func (t *tokenUseCase) Authenticate(ctx context.Context, tokenHash string) (*authDomain.Principal, *authDomain.Token, error) {
	token, err := t.tokenRepo.GetByTokenHash(ctx, tokenHash)
	if err != nil {
		if apperrors.Is(err, authDomain.ErrTokenNotFound) {
			return nil, nil, authDomain.ErrInvalidCredentials
		}
		return nil, nil, err
	}

	if !token.Usable(time.Now().UTC()) {
		return nil, nil, authDomain.ErrInvalidCredentials
	}

	principal, err := t.principalRepo.GetByID(ctx, token.PrincipalID)
	if err != nil {
		if apperrors.Is(err, authDomain.ErrPrincipalNotFound) {
			return nil, nil, authDomain.ErrInvalidCredentials
		}
		return nil, nil, err
	}

	if !principal.Active {
		return nil, nil, authDomain.ErrPrincipalInactive
	}

	return principal, token, nil
}

// Revoke marks a token unusable. Revoking an already revoked token is a
// no-op.
func (t *tokenUseCase) Revoke(ctx context.Context, tokenID uuid.UUID) error {
	return t.txManager.WithTx(ctx, func(txCtx context.Context) error {
		token, err := t.tokenRepo.GetByID(txCtx, tokenID)
		if err != nil {
			return err
		}
		if token.RevokedAt != nil {
			return nil
		}

		now := time.Now().UTC()
		token.RevokedAt = &now
		if err := t.tokenRepo.Update(txCtx, token); err != nil {
			return err
		}

		return t.auditor.Append(txCtx, &auditDomain.Entry{
			EventType:     auditDomain.EventTypeRevoke,
			PrincipalID:   requestctx.Principal(txCtx),
			CorrelationID: requestctx.Correlation(txCtx),
			Success:       true,
			Details: auditDomain.Details{
				Operation: "auth.revoke-token",
				Path:      "auth/tokens/" + tokenID.String(),
			},
		})
	})
}

func (t *tokenUseCase) appendLoginAudit(ctx context.Context, principalID string, success bool) error {
	return t.auditor.Append(ctx, &auditDomain.Entry{
		EventType:     auditDomain.EventTypeLogin,
		PrincipalID:   principalID,
		CorrelationID: requestctx.Correlation(ctx),
		Success:       success,
		Details: auditDomain.Details{
			Operation: "auth.login",
			Path:      "auth/login",
		},
	})
}
