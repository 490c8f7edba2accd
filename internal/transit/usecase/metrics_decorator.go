package usecase

import (
	"context"
	"time"

	"github.com/usphq/usp/internal/metrics"
	transitDomain "github.com/usphq/usp/internal/transit/domain"
)

// transitMetricsDecorator wraps TransitUseCase with business metrics recording.
type transitMetricsDecorator struct {
	next            TransitUseCase
	businessMetrics metrics.BusinessMetrics
}

// NewTransitMetricsDecorator wraps the engine with operation counters and
// duration histograms under the "transit" domain label.
func NewTransitMetricsDecorator(next TransitUseCase, businessMetrics metrics.BusinessMetrics) TransitUseCase {
	return &transitMetricsDecorator{next: next, businessMetrics: businessMetrics}
}

// record emits the counter and histogram for one operation.
func (d *transitMetricsDecorator) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	d.businessMetrics.RecordOperation(ctx, "transit", operation, status)
	d.businessMetrics.RecordDuration(ctx, "transit", operation, time.Since(start), status)
}

func (d *transitMetricsDecorator) CreateKey(ctx context.Context, input *CreateKeyInput) (*transitDomain.TransitKey, error) {
	start := time.Now()
	key, err := d.next.CreateKey(ctx, input)
	d.record(ctx, "create_key", start, err)
	return key, err
}

func (d *transitMetricsDecorator) GetKey(ctx context.Context, name string) (*transitDomain.TransitKey, *transitDomain.KeyVersion, error) {
	start := time.Now()
	key, version, err := d.next.GetKey(ctx, name)
	d.record(ctx, "get_key", start, err)
	return key, version, err
}

func (d *transitMetricsDecorator) ListKeys(ctx context.Context) ([]string, error) {
	start := time.Now()
	names, err := d.next.ListKeys(ctx)
	d.record(ctx, "list_keys", start, err)
	return names, err
}

func (d *transitMetricsDecorator) RotateKey(ctx context.Context, name string) (*transitDomain.TransitKey, error) {
	start := time.Now()
	key, err := d.next.RotateKey(ctx, name)
	d.record(ctx, "rotate_key", start, err)
	return key, err
}

func (d *transitMetricsDecorator) UpdateKeyConfig(ctx context.Context, name string, update *KeyConfigUpdate) (*transitDomain.TransitKey, error) {
	start := time.Now()
	key, err := d.next.UpdateKeyConfig(ctx, name, update)
	d.record(ctx, "update_key_config", start, err)
	return key, err
}

func (d *transitMetricsDecorator) DeleteKey(ctx context.Context, name string) error {
	start := time.Now()
	err := d.next.DeleteKey(ctx, name)
	d.record(ctx, "delete_key", start, err)
	return err
}

func (d *transitMetricsDecorator) Encrypt(ctx context.Context, name string, plaintext, context []byte) (string, error) {
	start := time.Now()
	ciphertext, err := d.next.Encrypt(ctx, name, plaintext, context)
	d.record(ctx, "encrypt", start, err)
	return ciphertext, err
}

func (d *transitMetricsDecorator) Decrypt(ctx context.Context, name, ciphertext string, context []byte) ([]byte, error) {
	start := time.Now()
	plaintext, err := d.next.Decrypt(ctx, name, ciphertext, context)
	d.record(ctx, "decrypt", start, err)
	return plaintext, err
}

func (d *transitMetricsDecorator) Sign(ctx context.Context, name string, message []byte) (string, error) {
	start := time.Now()
	signature, err := d.next.Sign(ctx, name, message)
	d.record(ctx, "sign", start, err)
	return signature, err
}

func (d *transitMetricsDecorator) Verify(ctx context.Context, name string, message []byte, signature string) (bool, error) {
	start := time.Now()
	valid, err := d.next.Verify(ctx, name, message, signature)
	d.record(ctx, "verify", start, err)
	return valid, err
}

func (d *transitMetricsDecorator) Export(ctx context.Context, name string, version int) (*ExportedKey, error) {
	start := time.Now()
	exported, err := d.next.Export(ctx, name, version)
	d.record(ctx, "export", start, err)
	return exported, err
}
