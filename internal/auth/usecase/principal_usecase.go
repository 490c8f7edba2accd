package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/usphq/usp/internal/audit/domain"
	authDomain "github.com/usphq/usp/internal/auth/domain"
	authService "github.com/usphq/usp/internal/auth/service"
	"github.com/usphq/usp/internal/database"
	"github.com/usphq/usp/internal/requestctx"
)

// principalUseCase implements PrincipalUseCase.
type principalUseCase struct {
	txManager     database.TxManager
	principalRepo PrincipalRepository
	secretService authService.SecretService
	auditor       Auditor
}

// NewPrincipalUseCase creates a new PrincipalUseCase.
func NewPrincipalUseCase(
	txManager database.TxManager,
	principalRepo PrincipalRepository,
	secretService authService.SecretService,
	auditor Auditor,
) PrincipalUseCase {
	return &principalUseCase{
		txManager:     txManager,
		principalRepo: principalRepo,
		secretService: secretService,
		auditor:       auditor,
	}
}

// Create stores a new principal with a generated login secret.
func (u *principalUseCase) Create(ctx context.Context, input *authDomain.CreatePrincipalInput) (*authDomain.CreatePrincipalOutput, error) {
	plainSecret, hashedSecret, err := u.secretService.GenerateSecret()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	principal := &authDomain.Principal{
		ID:         uuid.Must(uuid.NewV7()),
		Name:       input.Name,
		SecretHash: hashedSecret,
		Roles:      input.Roles,
		Attributes: input.Attributes,
		Active:     input.Active,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err = u.txManager.WithTx(ctx, func(txCtx context.Context) error {
		if err := u.principalRepo.Create(txCtx, principal); err != nil {
			return err
		}
		return u.appendAudit(txCtx, "auth.create-principal", principal.Name, true)
	})
	if err != nil {
		return nil, err
	}

	return &authDomain.CreatePrincipalOutput{
		ID:          principal.ID,
		PlainSecret: plainSecret,
	}, nil
}

// Get retrieves a principal by id. The secret hash stays internal to the
// context; handlers never map it into responses.
func (u *principalUseCase) Get(ctx context.Context, id uuid.UUID) (*authDomain.Principal, error) {
	return u.principalRepo.GetByID(ctx, id)
}

// List returns every principal.
func (u *principalUseCase) List(ctx context.Context) ([]*authDomain.Principal, error) {
	return u.principalRepo.List(ctx)
}

// Update applies the mutable fields.
func (u *principalUseCase) Update(ctx context.Context, id uuid.UUID, input *authDomain.UpdatePrincipalInput) error {
	return u.txManager.WithTx(ctx, func(txCtx context.Context) error {
		principal, err := u.principalRepo.GetByID(txCtx, id)
		if err != nil {
			return err
		}

		principal.Roles = input.Roles
		principal.Attributes = input.Attributes
		principal.Active = input.Active
		principal.UpdatedAt = time.Now().UTC()

		if err := u.principalRepo.Update(txCtx, principal); err != nil {
			return err
		}
		return u.appendAudit(txCtx, "auth.update-principal", principal.Name, true)
	})
}

// Delete deactivates the principal. The row stays so audit records keep a
// resolvable identity.
func (u *principalUseCase) Delete(ctx context.Context, id uuid.UUID) error {
	return u.txManager.WithTx(ctx, func(txCtx context.Context) error {
		principal, err := u.principalRepo.GetByID(txCtx, id)
		if err != nil {
			return err
		}

		principal.Active = false
		principal.UpdatedAt = time.Now().UTC()

		if err := u.principalRepo.Update(txCtx, principal); err != nil {
			return err
		}
		return u.appendAudit(txCtx, "auth.delete-principal", principal.Name, true)
	})
}

func (u *principalUseCase) appendAudit(ctx context.Context, operation, name string, success bool) error {
	return u.auditor.Append(ctx, &auditDomain.Entry{
		EventType:     auditDomain.EventTypeWrite,
		PrincipalID:   requestctx.Principal(ctx),
		CorrelationID: requestctx.Correlation(ctx),
		Success:       success,
		Details: auditDomain.Details{
			Operation: operation,
			Path:      "auth/principals/" + name,
		},
	})
}
