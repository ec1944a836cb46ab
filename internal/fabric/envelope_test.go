package fabric

import (
	"errors"
	"testing"
	"time"
)

func TestDecodeNormalizedShape(t *testing.T) {
	body := []byte(`{
		"event": "listing_updated",
		"eventId": "evt-1",
		"version": 42,
		"occurredAt": "2026-08-01T10:00:00Z",
		"data": {"_id": "lst-1", "price": 1500}
	}`)

	env, err := Decode(body)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if env.Event != EventListingUpdated {
		t.Fatalf("expected event %q, got %q", EventListingUpdated, env.Event)
	}
	if env.EventID != "evt-1" {
		t.Fatalf("expected eventId evt-1, got %q", env.EventID)
	}
	if env.Version != 42 {
		t.Fatalf("expected version 42, got %d", env.Version)
	}
	if env.OccurredAt != time.Date(2026, time.August, 1, 10, 0, 0, 0, time.UTC) {
		t.Fatalf("unexpected occurredAt: %v", env.OccurredAt)
	}

	var snap ListingSnapshot
	if err := env.DecodeData(&snap); err != nil {
		t.Fatalf("payload decode failed: %v", err)
	}
	if snap.ID != "lst-1" {
		t.Fatalf("expected listing id lst-1, got %q", snap.ID)
	}
	if snap.Price == nil || *snap.Price != 1500 {
		t.Fatalf("expected price 1500, got %v", snap.Price)
	}
	if snap.Title != nil {
		t.Fatalf("expected absent title to stay nil, got %q", *snap.Title)
	}
}

func TestDecodeLegacyEventDataShape(t *testing.T) {
	body := []byte(`{"event": "transaction_paid", "data": {"price": 900, "commissionAmount": 45}}`)

	env, err := Decode(body)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if env.EventID != "" {
		t.Fatalf("legacy message should carry no eventId, got %q", env.EventID)
	}
	if env.DedupKey() != "" {
		t.Fatalf("legacy message should have no dedup key, got %q", env.DedupKey())
	}

	var paid TransactionPaid
	if err := env.DecodeData(&paid); err != nil {
		t.Fatalf("payload decode failed: %v", err)
	}
	if paid.Price != 900 || paid.CommissionAmount != 45 {
		t.Fatalf("unexpected payload: %+v", paid)
	}
}

func TestDecodeLegacyDeletionShape(t *testing.T) {
	body := []byte(`{"event": "listing_deleted", "id": "lst-9"}`)

	env, err := Decode(body)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if env.EntityID != "lst-9" {
		t.Fatalf("expected entity id lst-9, got %q", env.EntityID)
	}
	if len(env.Data) != 0 {
		t.Fatalf("deletion should carry no data, got %s", env.Data)
	}
}

func TestDecodeToleratesUnknownFields(t *testing.T) {
	body := []byte(`{"event": "user_registered", "source": "auth-service", "data": {"extra": true}}`)

	if _, err := Decode(body); err != nil {
		t.Fatalf("unknown top-level fields should be ignored: %v", err)
	}
}

func TestDecodeRejectsMalformedBodies(t *testing.T) {
	for name, body := range map[string][]byte{
		"invalid json": []byte(`{"event": `),
		"missing tag":  []byte(`{"data": {"x": 1}}`),
		"empty tag":    []byte(`{"event": ""}`),
	} {
		if _, err := Decode(body); !errors.Is(err, ErrMalformedEnvelope) {
			t.Fatalf("%s: expected ErrMalformedEnvelope, got %v", name, err)
		}
	}
}

func TestDecodeDataErrors(t *testing.T) {
	env := Envelope{Event: EventListingDeleted}
	var snap ListingSnapshot
	if err := env.DecodeData(&snap); !errors.Is(err, ErrMalformedEnvelope) {
		t.Fatalf("expected ErrMalformedEnvelope for empty data, got %v", err)
	}

	env = Envelope{Event: EventListingCreated, Data: []byte(`"not an object"`)}
	if err := env.DecodeData(&snap); !errors.Is(err, ErrMalformedEnvelope) {
		t.Fatalf("expected ErrMalformedEnvelope for mistyped data, got %v", err)
	}
}

func TestNewEnvelopeStampsIdentityAndVersion(t *testing.T) {
	env, err := NewEnvelope(EventListingCreated, ListingSnapshot{ID: "lst-1"})
	if err != nil {
		t.Fatalf("new envelope failed: %v", err)
	}
	if env.EventID == "" {
		t.Fatal("expected generated eventId")
	}
	if env.Version == 0 {
		t.Fatal("expected non-zero version")
	}
	if env.OccurredAt.IsZero() {
		t.Fatal("expected occurredAt to be stamped")
	}

	body, err := env.Encode()
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	back, err := Decode(body)
	if err != nil {
		t.Fatalf("round-trip decode failed: %v", err)
	}
	if back.EventID != env.EventID || back.Version != env.Version {
		t.Fatalf("round trip lost identity: %+v vs %+v", back, env)
	}

	other, err := NewEnvelope(EventListingCreated, ListingSnapshot{ID: "lst-1"})
	if err != nil {
		t.Fatalf("new envelope failed: %v", err)
	}
	if other.EventID == env.EventID {
		t.Fatal("expected distinct eventIds for distinct envelopes")
	}
}

func TestNewDeletionCarriesEntityID(t *testing.T) {
	env := NewDeletion(EventListingDeleted, "lst-3")
	if env.EntityID != "lst-3" {
		t.Fatalf("expected entity id lst-3, got %q", env.EntityID)
	}
	if env.Data != nil {
		t.Fatalf("deletion should carry no data, got %s", env.Data)
	}
	if err := env.Validate(); err != nil {
		t.Fatalf("deletion envelope should validate: %v", err)
	}
}
