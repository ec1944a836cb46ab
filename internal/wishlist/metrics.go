package wishlist

import (
	"context"
	"time"

	"fabric/internal/fabric"
	"fabric/internal/fabric/metrics"
)

// MetricsEdges wraps an Edges store with metrics collection
type MetricsEdges struct {
	edges    Edges
	registry *metrics.Registry
}

// NewMetricsEdges creates a new instrumented edge store
func NewMetricsEdges(edges Edges, registry *metrics.Registry) Edges {
	return &MetricsEdges{
		edges:    edges,
		registry: registry,
	}
}

// Add implements Edges.Add with metrics collection
func (m *MetricsEdges) Add(ctx context.Context, item fabric.WishlistItem) error {
	start := time.Now()

	err := m.edges.Add(ctx, item)

	m.registry.RecordProjectionOperation("wishlist", "add", time.Since(start), err)

	return err
}

// Remove implements Edges.Remove with metrics collection
func (m *MetricsEdges) Remove(ctx context.Context, item fabric.WishlistItem) error {
	start := time.Now()

	err := m.edges.Remove(ctx, item)

	m.registry.RecordProjectionOperation("wishlist", "remove", time.Since(start), err)

	return err
}
