package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/couchbase/gocb/v2"
	"go.uber.org/zap"

	"fabric/internal/couchbase"
	"fabric/internal/fabric"
	"fabric/internal/validator"
)

// Index maintains listing snapshots keyed by the source entity id. Applies are
// upserts rather than inserts so a redelivered listing_created is harmless,
// and a CAS loop plus the envelope version keeps a stale snapshot from
// overwriting a newer one.
type Index struct {
	store  *couchbase.Couchbase[Doc]
	logger *zap.Logger
}

// how many CAS conflicts to ride out before giving the delivery back for retry
const maxCasRetries = 4

// NewIndex creates an Index over a listings store.
func NewIndex(store *couchbase.Couchbase[Doc], logger *zap.Logger) (*Index, error) {
	i := Index{
		store:  store,
		logger: logger.Named("search-index"),
	}

	if err := validator.Validate("search index", i.store, i.logger); err != nil {
		return nil, fmt.Errorf("failed to validate search index deps: %w", err)
	}

	return &i, nil
}

// Upsert creates the snapshot if absent or merges the given fields over the
// existing one. A version older than what the index holds returns
// fabric.ErrAlreadyApplied; version zero (legacy producer) always wins.
func (i *Index) Upsert(ctx context.Context, snap fabric.ListingSnapshot, version int64) error {
	key := DocKey(snap.ID)

	for attempt := 0; attempt < maxCasRetries; attempt++ {
		existing, err := i.store.Get(ctx, key, nil)
		switch {
		case err == nil:
		case errors.Is(err, gocb.ErrDocumentNotFound):
			doc := Doc{ID: snap.ID, Version: version, UpdatedAt: time.Now().UTC()}
			doc.Merge(snap)

			err := i.store.Insert(ctx, key, doc, nil)
			if errors.Is(err, gocb.ErrDocumentExists) {
				// concurrent writer beat us to the insert
				continue
			}
			if err != nil {
				return fmt.Errorf("failed to insert listing %s: %w", snap.ID, err)
			}
			return nil
		default:
			return fmt.Errorf("failed to load listing %s: %w", snap.ID, err)
		}

		if version != 0 && existing.Version != 0 && version <= existing.Version {
			return fmt.Errorf("listing %s at version %d: %w", snap.ID, existing.Version, fabric.ErrAlreadyApplied)
		}

		existing.Merge(snap)
		existing.Version = version
		existing.UpdatedAt = time.Now().UTC()

		err = i.store.Replace(ctx, key, existing, nil)
		if errors.Is(err, gocb.ErrCasMismatch) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to replace listing %s: %w", snap.ID, err)
		}
		return nil
	}

	return fmt.Errorf("gave up upserting listing %s after %d cas conflicts", snap.ID, maxCasRetries)
}

// Delete removes the snapshot for an id. Removing an absent snapshot is a
// successful no-op.
func (i *Index) Delete(ctx context.Context, id string) error {
	if err := i.store.Remove(ctx, DocKey(id), nil); err != nil {
		return fmt.Errorf("failed to delete listing %s: %w", id, err)
	}

	i.logger.Debug("deleted listing from index", zap.String("listingId", id))

	return nil
}

// Get looks up a snapshot by listing id.
func (i *Index) Get(ctx context.Context, id string) (*Doc, error) {
	doc, err := i.store.Get(ctx, DocKey(id), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get listing %s: %w", id, err)
	}

	return doc, nil
}
