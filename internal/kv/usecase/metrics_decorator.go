package usecase

import (
	"context"
	"time"

	kvDomain "github.com/usphq/usp/internal/kv/domain"
	"github.com/usphq/usp/internal/metrics"
)

// kvMetricsDecorator wraps KVUseCase with business metrics recording.
type kvMetricsDecorator struct {
	next            KVUseCase
	businessMetrics metrics.BusinessMetrics
}

// NewKVMetricsDecorator wraps the engine with operation counters and duration
// histograms under the "kv" domain label.
func NewKVMetricsDecorator(next KVUseCase, businessMetrics metrics.BusinessMetrics) KVUseCase {
	return &kvMetricsDecorator{next: next, businessMetrics: businessMetrics}
}

// record emits the counter and histogram for one operation.
func (d *kvMetricsDecorator) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	d.businessMetrics.RecordOperation(ctx, "kv", operation, status)
	d.businessMetrics.RecordDuration(ctx, "kv", operation, time.Since(start), status)
}

func (d *kvMetricsDecorator) Write(ctx context.Context, input *WriteInput) (*kvDomain.Secret, error) {
	start := time.Now()
	secret, err := d.next.Write(ctx, input)
	d.record(ctx, "write", start, err)
	return secret, err
}

func (d *kvMetricsDecorator) Read(ctx context.Context, path string, version int, readDeleted bool) (*ReadResult, error) {
	start := time.Now()
	result, err := d.next.Read(ctx, path, version, readDeleted)
	d.record(ctx, "read", start, err)
	return result, err
}

func (d *kvMetricsDecorator) SoftDelete(ctx context.Context, path string, versions []int) error {
	start := time.Now()
	err := d.next.SoftDelete(ctx, path, versions)
	d.record(ctx, "soft_delete", start, err)
	return err
}

func (d *kvMetricsDecorator) Undelete(ctx context.Context, path string, versions []int) error {
	start := time.Now()
	err := d.next.Undelete(ctx, path, versions)
	d.record(ctx, "undelete", start, err)
	return err
}

func (d *kvMetricsDecorator) Destroy(ctx context.Context, path string, versions []int) error {
	start := time.Now()
	err := d.next.Destroy(ctx, path, versions)
	d.record(ctx, "destroy", start, err)
	return err
}

func (d *kvMetricsDecorator) DestroyMetadata(ctx context.Context, path string) error {
	start := time.Now()
	err := d.next.DestroyMetadata(ctx, path)
	d.record(ctx, "destroy_metadata", start, err)
	return err
}

func (d *kvMetricsDecorator) Metadata(ctx context.Context, path string) (*Metadata, error) {
	start := time.Now()
	metadata, err := d.next.Metadata(ctx, path)
	d.record(ctx, "metadata", start, err)
	return metadata, err
}

func (d *kvMetricsDecorator) UpdateMetadata(ctx context.Context, path string, update *MetadataUpdate) (*kvDomain.Secret, error) {
	start := time.Now()
	secret, err := d.next.UpdateMetadata(ctx, path, update)
	d.record(ctx, "update_metadata", start, err)
	return secret, err
}

func (d *kvMetricsDecorator) List(ctx context.Context, prefix string) ([]string, error) {
	start := time.Now()
	items, err := d.next.List(ctx, prefix)
	d.record(ctx, "list", start, err)
	return items, err
}
