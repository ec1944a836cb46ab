package fabric

import "context"

// Handler applies a single envelope to a consumer-owned projection. Handlers
// must be idempotent: the broker redelivers unacknowledged messages, so the
// same envelope can arrive more than once.
//
// Returning ErrAlreadyApplied acknowledges the delivery as a duplicate no-op;
// an error wrapping ErrMalformedEnvelope dead-letters it; any other error
// requeues it for a later retry.
type Handler func(ctx context.Context, env Envelope) error

// HandlerTable maps event tags to their handlers. Tags without an entry are
// acknowledged and ignored so producers can introduce new event types without
// crashing old consumers.
type HandlerTable map[string]Handler

// Consumer defines the interface for draining a durable queue.
type Consumer interface {
	// Run consumes the queue until ctx is cancelled, redeclaring topology and
	// resubscribing whenever the broker connection is replaced.
	Run(ctx context.Context) error
}
