package fabric

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Envelope is the unit of transmission on the platform exchange. Every producer
// wraps its domain event in this shape before publishing; every consumer decodes
// deliveries back into it before dispatch.
//
// The legacy wire format came in two flavors: {event, data} for creation and
// update events, and a bare {event, id} for deletions. The envelope normalizes
// both: EntityID carries the legacy top-level id so deletion handlers work with
// either form, and producers keep mirroring it for consumers that still read
// the old shape.
type Envelope struct {
	// Event is the domain event tag (e.g. "listing_created"). Required.
	Event string `json:"event"`
	// EventID uniquely identifies this envelope and is the deduplication key
	// for exactly-once projections. Optional on decode; legacy producers never
	// set it.
	EventID string `json:"eventId,omitempty"`
	// EntityID is the id of the affected entity for events that carry no data
	// payload (deletions). Mirrors the legacy top-level "id" field.
	EntityID string `json:"id,omitempty"`
	// Version orders envelopes for the same entity. Projections ignore an
	// apply whose version is older than what they already hold. Defaults to
	// OccurredAt in unix nanoseconds when the producer supplies none.
	Version int64 `json:"version,omitempty"`
	// OccurredAt is the producer-side wall clock time of the state transition.
	OccurredAt time.Time `json:"occurredAt,omitempty"`
	// Data is the event-specific payload. Absent for deletion events.
	Data json.RawMessage `json:"data,omitempty"`
}

// NewEnvelope builds an envelope for a creation or update event, marshaling the
// payload into Data and stamping id, version and occurrence time.
func NewEnvelope(event string, payload any) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to marshal payload for event %s: %w", event, err)
	}

	now := time.Now().UTC()
	return Envelope{
		Event:      event,
		EventID:    uuid.NewString(),
		Version:    now.UnixNano(),
		OccurredAt: now,
		Data:       data,
	}, nil
}

// NewDeletion builds an envelope for a deletion event, which carries only the
// id of the removed entity.
func NewDeletion(event, entityID string) Envelope {
	now := time.Now().UTC()
	return Envelope{
		Event:      event,
		EventID:    uuid.NewString(),
		EntityID:   entityID,
		Version:    now.UnixNano(),
		OccurredAt: now,
	}
}

// Decode parses a wire message into an envelope, accepting both the normalized
// shape and the legacy {event, data} / {event, id} shapes.
func Decode(body []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}

	if err := env.Validate(); err != nil {
		return Envelope{}, err
	}

	return env, nil
}

// Encode serializes the envelope for publishing.
func (e Envelope) Encode() ([]byte, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to encode envelope for event %s: %w", e.Event, err)
	}

	return body, nil
}

// Validate checks the minimum contract: a non-empty event tag. Everything else
// is optional so that old producers keep working.
func (e Envelope) Validate() error {
	if e.Event == "" {
		return fmt.Errorf("%w: missing event tag", ErrMalformedEnvelope)
	}

	return nil
}

// DecodeData unmarshals the payload into v. Unknown fields are ignored so
// producers can add fields without breaking old consumers.
func (e Envelope) DecodeData(v any) error {
	if len(e.Data) == 0 {
		return fmt.Errorf("%w: event %s carries no data", ErrMalformedEnvelope, e.Event)
	}

	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("%w: event %s: %v", ErrMalformedEnvelope, e.Event, err)
	}

	return nil
}

// DedupKey returns the key consumers use to recognize a redelivered envelope.
// Empty when the producer set no event id, in which case consumers fall back
// to plain at-least-once semantics.
func (e Envelope) DedupKey() string {
	return e.EventID
}
