package analytics

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"fabric/internal/fabric"
	"fabric/internal/validator"
)

// Applier is the slice of the store the projector depends on.
type Applier interface {
	Apply(ctx context.Context, eventID string, day time.Time, d Delta) error
}

// Projector turns consumed envelopes into daily-aggregate increments.
type Projector struct {
	store  Applier
	logger *zap.Logger
	now    func() time.Time
}

// NewProjector creates a projector over the given store.
func NewProjector(store Applier, logger *zap.Logger) (*Projector, error) {
	p := Projector{
		store:  store,
		logger: logger.Named("analytics"),
		now:    time.Now,
	}

	if err := validator.Validate("analytics projector", p.store, p.logger); err != nil {
		return nil, fmt.Errorf("failed to validate analytics projector deps: %w", err)
	}

	return &p, nil
}

// Handlers returns the handler table for every event tag the aggregate tracks.
func (p *Projector) Handlers() fabric.HandlerTable {
	table := make(fabric.HandlerTable)
	for _, event := range []string{
		fabric.EventUserRegistered,
		fabric.EventListingCreated,
		fabric.EventTransactionPaid,
		fabric.EventReviewCreated,
		fabric.EventWishlistItemAdded,
		fabric.EventReportCreated,
	} {
		table[event] = p.apply
	}

	return table
}

func (p *Projector) apply(ctx context.Context, env fabric.Envelope) error {
	delta, ok, err := DeltaFor(env)
	if err != nil {
		return err
	}
	if !ok || delta.IsZero() {
		return nil
	}

	day := DayStart(env, p.now())

	if err := p.store.Apply(ctx, env.DedupKey(), day, delta); err != nil {
		return fmt.Errorf("failed to apply %s to daily stats: %w", env.Event, err)
	}

	p.logger.Debug("applied event to daily stats",
		zap.String("event", env.Event),
		zap.Time("day", day),
	)

	return nil
}
