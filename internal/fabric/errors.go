package fabric

import "errors"

var (
	// ErrBrokerUnavailable is returned when no live channel to the broker
	// exists and one could not be established. Publish paths treat it as a
	// droppable condition, never as a request failure.
	ErrBrokerUnavailable = errors.New("broker unavailable")

	// ErrMalformedEnvelope marks a payload that can never be processed.
	// Consumers dead-letter such messages instead of requeueing them.
	ErrMalformedEnvelope = errors.New("malformed envelope")

	// ErrAlreadyApplied is returned by projection updaters when the envelope
	// was applied before (duplicate receipt or stale version). Consumers
	// acknowledge it as a success.
	ErrAlreadyApplied = errors.New("event already applied")
)
