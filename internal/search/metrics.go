package search

import (
	"context"
	"errors"
	"time"

	"fabric/internal/fabric"
	"fabric/internal/fabric/metrics"
)

// MetricsIndexer wraps an Indexer with metrics collection
type MetricsIndexer struct {
	indexer  Indexer
	registry *metrics.Registry
}

// NewMetricsIndexer creates a new instrumented indexer
func NewMetricsIndexer(indexer Indexer, registry *metrics.Registry) Indexer {
	return &MetricsIndexer{
		indexer:  indexer,
		registry: registry,
	}
}

// Upsert implements Indexer.Upsert with metrics collection
func (m *MetricsIndexer) Upsert(ctx context.Context, snap fabric.ListingSnapshot, version int64) error {
	start := time.Now()

	err := m.indexer.Upsert(ctx, snap, version)

	recorded := err
	if errors.Is(err, fabric.ErrAlreadyApplied) {
		recorded = nil
	}
	m.registry.RecordProjectionOperation("search", "upsert", time.Since(start), recorded)

	return err
}

// Delete implements Indexer.Delete with metrics collection
func (m *MetricsIndexer) Delete(ctx context.Context, id string) error {
	start := time.Now()

	err := m.indexer.Delete(ctx, id)

	m.registry.RecordProjectionOperation("search", "delete", time.Since(start), err)

	return err
}
