package analytics

import (
	"context"
	"errors"
	"time"

	"fabric/internal/fabric"
	"fabric/internal/fabric/metrics"
)

// MetricsApplier wraps an Applier with metrics collection
type MetricsApplier struct {
	applier  Applier
	registry *metrics.Registry
}

// NewMetricsApplier creates a new instrumented applier
func NewMetricsApplier(applier Applier, registry *metrics.Registry) Applier {
	return &MetricsApplier{
		applier:  applier,
		registry: registry,
	}
}

// Apply implements Applier.Apply with metrics collection
func (a *MetricsApplier) Apply(ctx context.Context, eventID string, day time.Time, d Delta) error {
	start := time.Now()

	err := a.applier.Apply(ctx, eventID, day, d)

	// duplicates are the idempotence machinery working, not store failures
	recorded := err
	if errors.Is(err, fabric.ErrAlreadyApplied) {
		recorded = nil
	}
	a.registry.RecordProjectionOperation("analytics", "apply_delta", time.Since(start), recorded)

	return err
}
