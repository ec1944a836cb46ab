package fabric

import "context"

// Publisher defines the interface for delivering envelopes to the broker.
type Publisher interface {
	// Publish routes an envelope through the platform exchange using the
	// event tag as routing key. At-least-once from the broker onward; the
	// publisher itself obtains no delivery confirmation.
	Publish(ctx context.Context, env Envelope) error

	// PublishToQueue sends an envelope directly to a named queue, bypassing
	// the exchange. This is the legacy point-to-point path kept for the
	// listing_events and auction_events queues.
	//
	// Deprecated: new consumers should bind to the platform exchange instead.
	PublishToQueue(ctx context.Context, queue string, env Envelope) error
}
