package usecase

import (
	"context"
	"time"

	dbengineDomain "github.com/usphq/usp/internal/dbengine/domain"
	"github.com/usphq/usp/internal/metrics"
)

// dbEngineMetricsDecorator wraps DBEngineUseCase with business metrics recording.
type dbEngineMetricsDecorator struct {
	next            DBEngineUseCase
	businessMetrics metrics.BusinessMetrics
}

// NewDBEngineMetricsDecorator wraps the engine with operation counters and
// duration histograms under the "dbengine" domain label.
func NewDBEngineMetricsDecorator(next DBEngineUseCase, businessMetrics metrics.BusinessMetrics) DBEngineUseCase {
	return &dbEngineMetricsDecorator{next: next, businessMetrics: businessMetrics}
}

// record emits the counter and histogram for one operation.
func (d *dbEngineMetricsDecorator) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	d.businessMetrics.RecordOperation(ctx, "dbengine", operation, status)
	d.businessMetrics.RecordDuration(ctx, "dbengine", operation, time.Since(start), status)
}

func (d *dbEngineMetricsDecorator) ConfigureDatabase(ctx context.Context, input *ConfigureDatabaseInput) (*dbengineDomain.Config, error) {
	start := time.Now()
	config, err := d.next.ConfigureDatabase(ctx, input)
	d.record(ctx, "configure", start, err)
	return config, err
}

func (d *dbEngineMetricsDecorator) GetDatabaseConfig(ctx context.Context, name string) (*dbengineDomain.Config, error) {
	start := time.Now()
	config, err := d.next.GetDatabaseConfig(ctx, name)
	d.record(ctx, "get_config", start, err)
	return config, err
}

func (d *dbEngineMetricsDecorator) ListDatabaseConfigs(ctx context.Context) ([]*dbengineDomain.Config, error) {
	start := time.Now()
	configs, err := d.next.ListDatabaseConfigs(ctx)
	d.record(ctx, "list_configs", start, err)
	return configs, err
}

func (d *dbEngineMetricsDecorator) DeleteDatabaseConfig(ctx context.Context, name string) error {
	start := time.Now()
	err := d.next.DeleteDatabaseConfig(ctx, name)
	d.record(ctx, "delete_config", start, err)
	return err
}

func (d *dbEngineMetricsDecorator) CreateRole(ctx context.Context, configName string, input *CreateRoleInput) (*dbengineDomain.Role, error) {
	start := time.Now()
	role, err := d.next.CreateRole(ctx, configName, input)
	d.record(ctx, "create_role", start, err)
	return role, err
}

func (d *dbEngineMetricsDecorator) GetRole(ctx context.Context, configName, roleName string) (*dbengineDomain.Role, error) {
	start := time.Now()
	role, err := d.next.GetRole(ctx, configName, roleName)
	d.record(ctx, "get_role", start, err)
	return role, err
}

func (d *dbEngineMetricsDecorator) ListRoles(ctx context.Context, configName string) ([]*dbengineDomain.Role, error) {
	start := time.Now()
	roles, err := d.next.ListRoles(ctx, configName)
	d.record(ctx, "list_roles", start, err)
	return roles, err
}

func (d *dbEngineMetricsDecorator) GenerateCredentials(ctx context.Context, configName, roleName string) (*Credential, error) {
	start := time.Now()
	credential, err := d.next.GenerateCredentials(ctx, configName, roleName)
	d.record(ctx, "generate_credentials", start, err)
	return credential, err
}

func (d *dbEngineMetricsDecorator) RenewLease(ctx context.Context, leaseID string, additionalTTL time.Duration) (*dbengineDomain.Lease, error) {
	start := time.Now()
	lease, err := d.next.RenewLease(ctx, leaseID, additionalTTL)
	d.record(ctx, "renew_lease", start, err)
	return lease, err
}

func (d *dbEngineMetricsDecorator) RevokeLease(ctx context.Context, leaseID string) error {
	start := time.Now()
	err := d.next.RevokeLease(ctx, leaseID)
	d.record(ctx, "revoke_lease", start, err)
	return err
}

func (d *dbEngineMetricsDecorator) RotateRootCredentials(ctx context.Context, configName string) error {
	start := time.Now()
	err := d.next.RotateRootCredentials(ctx, configName)
	d.record(ctx, "rotate_root", start, err)
	return err
}

func (d *dbEngineMetricsDecorator) RotateStaticCredentials(ctx context.Context, configName, roleName string) error {
	start := time.Now()
	err := d.next.RotateStaticCredentials(ctx, configName, roleName)
	d.record(ctx, "rotate_static", start, err)
	return err
}
