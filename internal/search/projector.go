package search

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"fabric/internal/fabric"
	"fabric/internal/validator"
)

// Indexer is the slice of the index the projector depends on.
type Indexer interface {
	Upsert(ctx context.Context, snap fabric.ListingSnapshot, version int64) error
	Delete(ctx context.Context, id string) error
}

// Projector keeps the search index in sync with listing events.
type Projector struct {
	index  Indexer
	logger *zap.Logger
}

// NewProjector creates a projector over the given index.
func NewProjector(index Indexer, logger *zap.Logger) (*Projector, error) {
	p := Projector{
		index:  index,
		logger: logger.Named("search"),
	}

	if err := validator.Validate("search projector", p.index, p.logger); err != nil {
		return nil, fmt.Errorf("failed to validate search projector deps: %w", err)
	}

	return &p, nil
}

// Handlers returns the handler table for the listing event tags.
func (p *Projector) Handlers() fabric.HandlerTable {
	return fabric.HandlerTable{
		fabric.EventListingCreated: p.upsert,
		fabric.EventListingUpdated: p.upsert,
		fabric.EventListingDeleted: p.delete,
	}
}

func (p *Projector) upsert(ctx context.Context, env fabric.Envelope) error {
	var snap fabric.ListingSnapshot
	if err := env.DecodeData(&snap); err != nil {
		return err
	}
	if snap.ID == "" {
		return fmt.Errorf("%w: %s without listing id", fabric.ErrMalformedEnvelope, env.Event)
	}

	if err := p.index.Upsert(ctx, snap, env.Version); err != nil {
		return fmt.Errorf("failed to index %s: %w", env.Event, err)
	}

	p.logger.Debug("indexed listing",
		zap.String("event", env.Event),
		zap.String("listingId", snap.ID),
	)

	return nil
}

func (p *Projector) delete(ctx context.Context, env fabric.Envelope) error {
	id := env.EntityID
	if id == "" && len(env.Data) > 0 {
		// some producers wrap the id in a data payload instead
		var snap fabric.ListingSnapshot
		if err := env.DecodeData(&snap); err == nil {
			id = snap.ID
		}
	}
	if id == "" {
		return fmt.Errorf("%w: listing_deleted without id", fabric.ErrMalformedEnvelope)
	}

	return p.index.Delete(ctx, id)
}
