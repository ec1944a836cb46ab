package wishlist

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"fabric/internal/fabric"
	"fabric/internal/validator"
)

// commands is the slice of the redis client the store depends on.
type commands interface {
	SAdd(ctx context.Context, key string, members ...interface{}) *redis.IntCmd
	SRem(ctx context.Context, key string, members ...interface{}) *redis.IntCmd
	SCard(ctx context.Context, key string) *redis.IntCmd
	SIsMember(ctx context.Context, key string, member interface{}) *redis.BoolCmd
}

// Store keeps the wishlist projection in Redis as two sets per edge: the
// listings a user wants and the users wanting a listing. Set membership is
// idempotent by construction, so redelivered add/remove events cannot skew
// the projection and no receipts are needed.
type Store struct {
	client commands
}

// NewStore creates a Store over a redis client.
func NewStore(client commands) (*Store, error) {
	s := Store{client: client}

	if err := validator.Validate("wishlist store", s.client); err != nil {
		return nil, fmt.Errorf("failed to validate wishlist store deps: %w", err)
	}

	return &s, nil
}

// UserKey is the set of listing ids a user wishes for.
func UserKey(userID string) string {
	return "wishlist::user::" + userID
}

// ListingKey is the set of user ids wishing for a listing.
func ListingKey(listingID string) string {
	return "wishlist::listing::" + listingID
}

// Add records the edge in both directions.
func (s *Store) Add(ctx context.Context, item fabric.WishlistItem) error {
	if err := s.client.SAdd(ctx, UserKey(item.UserID), item.ListingID).Err(); err != nil {
		return fmt.Errorf("failed to add listing %s to user wishlist: %w", item.ListingID, err)
	}
	if err := s.client.SAdd(ctx, ListingKey(item.ListingID), item.UserID).Err(); err != nil {
		return fmt.Errorf("failed to add user %s to listing wanters: %w", item.UserID, err)
	}

	return nil
}

// Remove drops the edge in both directions. Removing an absent edge is a
// successful no-op.
func (s *Store) Remove(ctx context.Context, item fabric.WishlistItem) error {
	if err := s.client.SRem(ctx, UserKey(item.UserID), item.ListingID).Err(); err != nil {
		return fmt.Errorf("failed to remove listing %s from user wishlist: %w", item.ListingID, err)
	}
	if err := s.client.SRem(ctx, ListingKey(item.ListingID), item.UserID).Err(); err != nil {
		return fmt.Errorf("failed to remove user %s from listing wanters: %w", item.UserID, err)
	}

	return nil
}

// Contains reports whether the user currently wishes for the listing.
func (s *Store) Contains(ctx context.Context, userID, listingID string) (bool, error) {
	ok, err := s.client.SIsMember(ctx, UserKey(userID), listingID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check wishlist membership: %w", err)
	}

	return ok, nil
}

// WantCount returns how many users wish for the listing.
func (s *Store) WantCount(ctx context.Context, listingID string) (int64, error) {
	n, err := s.client.SCard(ctx, ListingKey(listingID)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count wanters for listing %s: %w", listingID, err)
	}

	return n, nil
}
