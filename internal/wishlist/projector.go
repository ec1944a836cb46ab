package wishlist

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"fabric/internal/fabric"
	"fabric/internal/validator"
)

// Edges is the write surface the projector needs from the store.
type Edges interface {
	Add(ctx context.Context, item fabric.WishlistItem) error
	Remove(ctx context.Context, item fabric.WishlistItem) error
}

// Projector maintains the wishlist sets from wishlist events.
type Projector struct {
	store  Edges
	logger *zap.Logger
}

// NewProjector creates a wishlist Projector.
func NewProjector(store Edges, logger *zap.Logger) (*Projector, error) {
	p := Projector{
		store:  store,
		logger: logger.Named("wishlist"),
	}

	if err := validator.Validate("wishlist projector", p.store, p.logger); err != nil {
		return nil, fmt.Errorf("failed to validate wishlist projector deps: %w", err)
	}

	return &p, nil
}

// Handlers returns the handler table for the wishlist queue.
func (p *Projector) Handlers() fabric.HandlerTable {
	return fabric.HandlerTable{
		fabric.EventWishlistItemAdded:   p.add,
		fabric.EventWishlistItemRemoved: p.remove,
	}
}

func (p *Projector) add(ctx context.Context, env fabric.Envelope) error {
	item, err := p.item(env)
	if err != nil {
		return err
	}

	if err := p.store.Add(ctx, item); err != nil {
		return fmt.Errorf("failed to apply wishlist add: %w", err)
	}

	p.logger.Debug(
		"wishlist item added",
		zap.String("userId", item.UserID),
		zap.String("listingId", item.ListingID),
	)

	return nil
}

func (p *Projector) remove(ctx context.Context, env fabric.Envelope) error {
	item, err := p.item(env)
	if err != nil {
		return err
	}

	if err := p.store.Remove(ctx, item); err != nil {
		return fmt.Errorf("failed to apply wishlist remove: %w", err)
	}

	p.logger.Debug(
		"wishlist item removed",
		zap.String("userId", item.UserID),
		zap.String("listingId", item.ListingID),
	)

	return nil
}

func (p *Projector) item(env fabric.Envelope) (fabric.WishlistItem, error) {
	var item fabric.WishlistItem
	if err := env.DecodeData(&item); err != nil {
		return item, err
	}

	if item.UserID == "" || item.ListingID == "" {
		return item, fmt.Errorf("%w: wishlist event missing userId or listingId", fabric.ErrMalformedEnvelope)
	}

	return item, nil
}
