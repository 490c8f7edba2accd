package usecase

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	auditDomain "github.com/usphq/usp/internal/audit/domain"
	cryptoDomain "github.com/usphq/usp/internal/crypto/domain"
	cryptoService "github.com/usphq/usp/internal/crypto/service"
	"github.com/usphq/usp/internal/database"
	"github.com/usphq/usp/internal/dbengine/connector"
	dbengineDomain "github.com/usphq/usp/internal/dbengine/domain"
	apperrors "github.com/usphq/usp/internal/errors"
	"github.com/usphq/usp/internal/requestctx"
)

// usernameSuffixBytes is the random suffix length for generated usernames,
// hex-encoded to twice as many characters.
const usernameSuffixBytes = 4

// dbEngineUseCase implements DBEngineUseCase.
type dbEngineUseCase struct {
	txManager    database.TxManager
	configRepo   ConfigRepository
	roleRepo     RoleRepository
	leaseRepo    LeaseRepository
	connectors   Connectors
	keySource    KeySource
	auditor      Auditor
	maxAttempts  int
	retryBackoff time.Duration
}

// NewDBEngineUseCase creates the database engine. maxAttempts bounds connector
// retries; retryBackoff is the initial backoff interval between them.
func NewDBEngineUseCase(
	txManager database.TxManager,
	configRepo ConfigRepository,
	roleRepo RoleRepository,
	leaseRepo LeaseRepository,
	connectors Connectors,
	keySource KeySource,
	auditor Auditor,
	maxAttempts int,
	retryBackoff time.Duration,
) DBEngineUseCase {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if retryBackoff <= 0 {
		retryBackoff = 100 * time.Millisecond
	}
	return &dbEngineUseCase{
		txManager:    txManager,
		configRepo:   configRepo,
		roleRepo:     roleRepo,
		leaseRepo:    leaseRepo,
		connectors:   connectors,
		keySource:    keySource,
		auditor:      auditor,
		maxAttempts:  maxAttempts,
		retryBackoff: retryBackoff,
	}
}

// configAAD binds an encrypted configuration field to its name and column so
// stored blobs cannot be swapped between rows or fields.
func configAAD(name, field string) []byte {
	return []byte("database|config|" + name + "|" + field)
}

// leaseAAD binds an encrypted lease password to its lease id.
func leaseAAD(leaseID string) []byte {
	return []byte("database|lease|" + leaseID)
}

// cipher builds the field cipher over the database branch of the hierarchy.
func (u *dbEngineUseCase) cipher(ctx context.Context) (*cryptoService.FieldCipher, error) {
	subkey, err := u.keySource.Subkey(ctx, cryptoDomain.PurposeDatabase)
	if err != nil {
		return nil, err
	}
	return cryptoService.NewFieldCipher(subkey)
}

// withConnectorRetry runs a connector operation with bounded exponential
// backoff. Only connector and transient failures are retried; everything else
// surfaces immediately.
func (u *dbEngineUseCase) withConnectorRetry(ctx context.Context, op func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = u.retryBackoff

	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if apperrors.Is(err, apperrors.ErrConnector) || apperrors.Is(err, apperrors.ErrTransient) {
			return err
		}
		return backoff.Permanent(err)
	}, backoff.WithContext(backoff.WithMaxRetries(policy, uint64(u.maxAttempts-1)), ctx))
}

// connectionConfig decrypts a stored configuration into connector form.
func (u *dbEngineUseCase) connectionConfig(cipher *cryptoService.FieldCipher, config *dbengineDomain.Config) (*connector.Config, error) {
	url, err := cipher.Open(config.EncryptedConnURL, configAAD(config.Name, "url"))
	if err != nil {
		return nil, err
	}
	user, err := cipher.Open(config.EncryptedAdminUser, configAAD(config.Name, "user"))
	if err != nil {
		return nil, err
	}
	password, err := cipher.Open(config.EncryptedAdminPassword, configAAD(config.Name, "password"))
	if err != nil {
		return nil, err
	}
	return &connector.Config{
		URL:           string(url),
		AdminUsername: string(user),
		AdminPassword: string(password),
	}, nil
}

// ConfigureDatabase upserts a configuration. Connectivity is verified before
// anything is persisted; credentials are stored encrypted under the database
// subkey with per-field bindings.
func (u *dbEngineUseCase) ConfigureDatabase(ctx context.Context, input *ConfigureDatabaseInput) (*dbengineDomain.Config, error) {
	if !dbengineDomain.ValidName(input.Name) {
		return nil, dbengineDomain.ErrNameInvalid
	}
	if !input.Plugin.Valid() {
		return nil, dbengineDomain.ErrPluginInvalid
	}
	if input.URL == "" {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "connection url must not be empty")
	}

	conn, err := u.connectors.For(input.Plugin)
	if err != nil {
		return nil, err
	}
	if input.VerifyConnection {
		verify := &connector.Config{
			URL:           input.URL,
			AdminUsername: input.AdminUsername,
			AdminPassword: input.AdminPassword,
		}
		if err := u.withConnectorRetry(ctx, func() error {
			return conn.VerifyConnection(ctx, verify)
		}); err != nil {
			return nil, err
		}
	}

	cipher, err := u.cipher(ctx)
	if err != nil {
		return nil, err
	}

	encryptedURL, err := cipher.Seal([]byte(input.URL), configAAD(input.Name, "url"))
	if err != nil {
		return nil, err
	}
	encryptedUser, err := cipher.Seal([]byte(input.AdminUsername), configAAD(input.Name, "user"))
	if err != nil {
		return nil, err
	}
	encryptedPassword, err := cipher.Seal([]byte(input.AdminPassword), configAAD(input.Name, "password"))
	if err != nil {
		return nil, err
	}

	var config *dbengineDomain.Config
	err = u.txManager.WithTx(ctx, func(txCtx context.Context) error {
		now := time.Now().UTC()

		config, err = u.configRepo.GetByNameForUpdate(txCtx, input.Name)
		switch {
		case apperrors.Is(err, apperrors.ErrNotFound):
			config = &dbengineDomain.Config{
				ID:        uuid.Must(uuid.NewV7()),
				Name:      input.Name,
				CreatedAt: now,
			}
			config.Plugin = input.Plugin
			config.EncryptedConnURL = encryptedURL
			config.EncryptedAdminUser = encryptedUser
			config.EncryptedAdminPassword = encryptedPassword
			config.MaxOpenConns = input.MaxOpenConns
			config.MaxIdleConns = input.MaxIdleConns
			config.UpdatedAt = now
			if err := u.configRepo.Create(txCtx, config); err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			config.Plugin = input.Plugin
			config.EncryptedConnURL = encryptedURL
			config.EncryptedAdminUser = encryptedUser
			config.EncryptedAdminPassword = encryptedPassword
			config.MaxOpenConns = input.MaxOpenConns
			config.MaxIdleConns = input.MaxIdleConns
			config.UpdatedAt = now
			if err := u.configRepo.Update(txCtx, config); err != nil {
				return err
			}
		}

		return u.appendAudit(txCtx, auditDomain.EventTypeWrite, "db.configure", "database/config/"+input.Name, true, "", map[string]string{
			"plugin": string(input.Plugin),
		})
	})
	if err != nil {
		return nil, err
	}
	return config, nil
}

// GetDatabaseConfig returns one live configuration. Encrypted columns stay
// opaque; handlers never see credential plaintext.
func (u *dbEngineUseCase) GetDatabaseConfig(ctx context.Context, name string) (*dbengineDomain.Config, error) {
	return u.configRepo.GetByName(ctx, name, false)
}

// ListDatabaseConfigs returns every live configuration.
func (u *dbEngineUseCase) ListDatabaseConfigs(ctx context.Context) ([]*dbengineDomain.Config, error) {
	return u.configRepo.List(ctx)
}

// CreateRole validates TTL bounds and stores the role under a configuration.
func (u *dbEngineUseCase) CreateRole(ctx context.Context, configName string, input *CreateRoleInput) (*dbengineDomain.Role, error) {
	if !dbengineDomain.ValidName(input.Name) {
		return nil, dbengineDomain.ErrNameInvalid
	}
	if len(input.CreationStatements) == 0 {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "creation statements must not be empty")
	}

	defaultTTL := input.DefaultTTL
	maxTTL := input.MaxTTL
	if defaultTTL == 0 {
		defaultTTL = maxTTL
	}
	if maxTTL == 0 {
		maxTTL = defaultTTL
	}
	if defaultTTL < dbengineDomain.MinLeaseTTL || defaultTTL > dbengineDomain.MaxLeaseTTL ||
		maxTTL < dbengineDomain.MinLeaseTTL || maxTTL > dbengineDomain.MaxLeaseTTL ||
		defaultTTL > maxTTL {
		return nil, dbengineDomain.ErrTTLOutOfRange
	}

	var role *dbengineDomain.Role
	err := u.txManager.WithTx(ctx, func(txCtx context.Context) error {
		config, err := u.configRepo.GetByName(txCtx, configName, false)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		role = &dbengineDomain.Role{
			ID:                   uuid.Must(uuid.NewV7()),
			ConfigID:             config.ID,
			Name:                 input.Name,
			CreationStatements:   input.CreationStatements,
			RevocationStatements: input.RevocationStatements,
			RenewStatements:      input.RenewStatements,
			DefaultTTL:           defaultTTL,
			MaxTTL:               maxTTL,
			CreatedAt:            now,
			UpdatedAt:            now,
		}
		if err := u.roleRepo.Create(txCtx, role); err != nil {
			if apperrors.Is(err, apperrors.ErrConflict) {
				return dbengineDomain.ErrRoleExists
			}
			return err
		}

		return u.appendAudit(txCtx, auditDomain.EventTypeWrite, "db.create-role",
			"database/roles/"+configName+"/"+input.Name, true, "", nil)
	})
	if err != nil {
		return nil, err
	}
	return role, nil
}

// GetRole returns one role under a configuration.
func (u *dbEngineUseCase) GetRole(ctx context.Context, configName, roleName string) (*dbengineDomain.Role, error) {
	config, err := u.configRepo.GetByName(ctx, configName, false)
	if err != nil {
		return nil, err
	}
	return u.roleRepo.GetByName(ctx, config.ID, roleName)
}

// ListRoles returns every live role under a configuration.
func (u *dbEngineUseCase) ListRoles(ctx context.Context, configName string) ([]*dbengineDomain.Role, error) {
	config, err := u.configRepo.GetByName(ctx, configName, false)
	if err != nil {
		return nil, err
	}
	return u.roleRepo.ListByConfig(ctx, config.ID)
}

// GenerateCredentials provisions a unique user through the connector and
// records the lease. The plaintext password leaves the engine exactly once,
// in the returned credential.
func (u *dbEngineUseCase) GenerateCredentials(ctx context.Context, configName, roleName string) (*Credential, error) {
	config, err := u.configRepo.GetByName(ctx, configName, false)
	if err != nil {
		return nil, err
	}
	role, err := u.roleRepo.GetByName(ctx, config.ID, roleName)
	if err != nil {
		return nil, err
	}

	cipher, err := u.cipher(ctx)
	if err != nil {
		return nil, err
	}
	connConfig, err := u.connectionConfig(cipher, config)
	if err != nil {
		return nil, err
	}
	conn, err := u.connectors.For(config.Plugin)
	if err != nil {
		return nil, err
	}

	suffix, err := connector.RandomHex(usernameSuffixBytes)
	if err != nil {
		return nil, err
	}
	username := "usp-" + roleName + "-" + suffix
	password, err := connector.GeneratePassword(connector.PasswordLength)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	expiresAt := now.Add(role.DefaultTTL)
	leaseID := "database/" + configName + "/" + roleName + "/" + uuid.NewString()

	if err := u.withConnectorRetry(ctx, func() error {
		return conn.CreateUser(ctx, connConfig, username, password, role.CreationStatements, expiresAt)
	}); err != nil {
		return nil, err
	}

	encryptedPassword, err := cipher.Seal([]byte(password), leaseAAD(leaseID))
	if err != nil {
		return nil, err
	}

	err = u.txManager.WithTx(ctx, func(txCtx context.Context) error {
		if err := u.leaseRepo.Create(txCtx, &dbengineDomain.Lease{
			ID:                leaseID,
			ConfigID:          config.ID,
			RoleID:            role.ID,
			Username:          username,
			EncryptedPassword: encryptedPassword,
			CreatedAt:         now,
			ExpiresAt:         expiresAt,
		}); err != nil {
			return err
		}

		return u.appendAudit(txCtx, auditDomain.EventTypeWrite, "db.generate-credentials", leaseID, true, "", map[string]string{
			"username": username,
		})
	})
	if err != nil {
		// The user exists but the lease does not; drop it so no orphan
		// credential outlives the failure.
		_ = conn.RevokeUser(ctx, connConfig, username, role.RevocationStatements)
		return nil, err
	}

	return &Credential{
		LeaseID:   leaseID,
		Username:  username,
		Password:  password,
		ExpiresAt: expiresAt,
		Renewable: true,
	}, nil
}

// RenewLease extends an unexpired lease. The new expiry is measured from now
// and cannot pass created_at + role max_ttl.
func (u *dbEngineUseCase) RenewLease(ctx context.Context, leaseID string, additionalTTL time.Duration) (*dbengineDomain.Lease, error) {
	var lease *dbengineDomain.Lease

	err := u.txManager.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		lease, err = u.leaseRepo.GetByIDForUpdate(txCtx, leaseID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		if lease.Revoked {
			return dbengineDomain.ErrLeaseRevoked
		}
		if lease.Expired(now) {
			return dbengineDomain.ErrLeaseExpired
		}

		role, err := u.roleRepo.GetByID(txCtx, lease.RoleID)
		if err != nil {
			return err
		}

		extension := additionalTTL
		if extension <= 0 {
			extension = role.DefaultTTL
		}
		newExpiry := now.Add(extension)
		if newExpiry.After(lease.CreatedAt.Add(role.MaxTTL)) {
			return dbengineDomain.ErrRenewalBeyondMaxTTL
		}

		if len(role.RenewStatements) > 0 {
			config, err := u.configRepo.GetByID(txCtx, lease.ConfigID)
			if err != nil {
				return err
			}
			cipher, err := u.cipher(txCtx)
			if err != nil {
				return err
			}
			connConfig, err := u.connectionConfig(cipher, config)
			if err != nil {
				return err
			}
			conn, err := u.connectors.For(config.Plugin)
			if err != nil {
				return err
			}
			if err := u.withConnectorRetry(txCtx, func() error {
				return conn.CreateUser(txCtx, connConfig, lease.Username, "", role.RenewStatements, newExpiry)
			}); err != nil {
				return err
			}
		}

		lease.ExpiresAt = newExpiry
		lease.RenewalCount++
		if err := u.leaseRepo.Update(txCtx, lease); err != nil {
			return err
		}

		return u.appendAudit(txCtx, auditDomain.EventTypeWrite, "db.renew-lease", leaseID, true, "", map[string]string{
			"expires_at": newExpiry.Format(time.RFC3339),
		})
	})
	if err != nil {
		return nil, err
	}
	return lease, nil
}

// RevokeLease drops the user and marks the lease revoked. Idempotent: a lease
// already revoked returns success without touching the connector. A connector
// failure still marks the lease revoked; the failure is recorded in audit
// with the connector subcode kept out of the API response.
func (u *dbEngineUseCase) RevokeLease(ctx context.Context, leaseID string) error {
	return u.txManager.WithTx(ctx, func(txCtx context.Context) error {
		lease, err := u.leaseRepo.GetByIDForUpdate(txCtx, leaseID)
		if err != nil {
			return err
		}
		if lease.Revoked {
			return nil
		}

		connectorErr := u.dropLeaseUser(txCtx, lease)

		now := time.Now().UTC()
		lease.Revoked = true
		lease.RevokedAt = &now
		if err := u.leaseRepo.Update(txCtx, lease); err != nil {
			return err
		}

		if connectorErr != nil {
			return u.appendAudit(txCtx, auditDomain.EventTypeRevoke, "db.revoke-lease", leaseID, false,
				apperrors.Code(connectorErr), map[string]string{"username": lease.Username})
		}
		return u.appendAudit(txCtx, auditDomain.EventTypeRevoke, "db.revoke-lease", leaseID, true, "", map[string]string{
			"username": lease.Username,
		})
	})
}

// dropLeaseUser runs the role's revocation statements through the connector.
// Failures are returned for auditing, never surfaced to the API caller.
func (u *dbEngineUseCase) dropLeaseUser(ctx context.Context, lease *dbengineDomain.Lease) error {
	config, err := u.configRepo.GetByID(ctx, lease.ConfigID)
	if err != nil {
		return err
	}
	role, err := u.roleRepo.GetByID(ctx, lease.RoleID)
	if err != nil {
		return err
	}
	cipher, err := u.cipher(ctx)
	if err != nil {
		return err
	}
	connConfig, err := u.connectionConfig(cipher, config)
	if err != nil {
		return err
	}
	conn, err := u.connectors.For(config.Plugin)
	if err != nil {
		return err
	}

	return u.withConnectorRetry(ctx, func() error {
		return conn.RevokeUser(ctx, connConfig, lease.Username, role.RevocationStatements)
	})
}

// RotateRootCredentials changes the admin password. The new credential is
// persisted as pending before the connector statement runs, then promoted, so
// a crash between the two never loses the only working credential.
func (u *dbEngineUseCase) RotateRootCredentials(ctx context.Context, configName string) error {
	return u.txManager.WithTx(ctx, func(txCtx context.Context) error {
		config, err := u.configRepo.GetByNameForUpdate(txCtx, configName)
		if err != nil {
			return err
		}

		cipher, err := u.cipher(txCtx)
		if err != nil {
			return err
		}
		connConfig, err := u.connectionConfig(cipher, config)
		if err != nil {
			return err
		}
		conn, err := u.connectors.For(config.Plugin)
		if err != nil {
			return err
		}

		newPassword, err := connector.GeneratePassword(connector.PasswordLength)
		if err != nil {
			return err
		}

		// Stage the new credential before it exists anywhere else.
		encryptedPending, err := cipher.Seal([]byte(newPassword), configAAD(config.Name, "pending"))
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		config.EncryptedPendingPassword = encryptedPending
		config.UpdatedAt = now
		if err := u.configRepo.Update(txCtx, config); err != nil {
			return err
		}

		if err := u.withConnectorRetry(txCtx, func() error {
			return conn.RotateRootPassword(txCtx, connConfig, newPassword)
		}); err != nil {
			return err
		}

		// Promote: the backing system accepted the new password.
		encryptedPassword, err := cipher.Seal([]byte(newPassword), configAAD(config.Name, "password"))
		if err != nil {
			return err
		}
		config.EncryptedAdminPassword = encryptedPassword
		config.EncryptedPendingPassword = nil
		config.UpdatedAt = time.Now().UTC()
		if err := u.configRepo.Update(txCtx, config); err != nil {
			return err
		}

		return u.appendAudit(txCtx, auditDomain.EventTypeRotate, "db.rotate-root", "database/rotate-root/"+configName, true, "", nil)
	})
}

// RotateStaticCredentials is deliberately unsupported.
func (u *dbEngineUseCase) RotateStaticCredentials(ctx context.Context, configName, roleName string) error {
	return dbengineDomain.ErrStaticRotationUnsupported
}

// DeleteDatabaseConfig revokes every active lease, then soft-deletes the
// configuration and its roles.
func (u *dbEngineUseCase) DeleteDatabaseConfig(ctx context.Context, name string) error {
	config, err := u.configRepo.GetByName(ctx, name, false)
	if err != nil {
		return err
	}

	leases, err := u.leaseRepo.ListActiveByConfig(ctx, config.ID)
	if err != nil {
		return err
	}
	for _, lease := range leases {
		if err := u.RevokeLease(ctx, lease.ID); err != nil {
			return err
		}
	}

	return u.txManager.WithTx(ctx, func(txCtx context.Context) error {
		config, err := u.configRepo.GetByNameForUpdate(txCtx, name)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		if err := u.roleRepo.SoftDeleteByConfig(txCtx, config.ID, now); err != nil {
			return err
		}
		config.DeletedAt = &now
		config.UpdatedAt = now
		if err := u.configRepo.Update(txCtx, config); err != nil {
			return err
		}

		return u.appendAudit(txCtx, auditDomain.EventTypeWrite, "db.delete-config", "database/config/"+name, true, "", nil)
	})
}

// appendAudit records one engine event with the caller's identity from the
// request context.
func (u *dbEngineUseCase) appendAudit(ctx context.Context, eventType auditDomain.EventType, operation, path string, success bool, connectorCode string, extra map[string]string) error {
	return u.auditor.Append(ctx, &auditDomain.Entry{
		EventType:     eventType,
		PrincipalID:   requestctx.Principal(ctx),
		CorrelationID: requestctx.Correlation(ctx),
		Success:       success,
		Details: auditDomain.Details{
			Operation:     operation,
			Path:          path,
			ConnectorCode: connectorCode,
			Extra:         extra,
		},
	})
}
