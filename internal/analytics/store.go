package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fabric/internal/fabric"
	"fabric/internal/validator"
)

// Store persists daily aggregates in Postgres. Increments happen inside the
// database (counter = counter + delta), never as application-level
// read-modify-write, so concurrent deliveries for the same bucket cannot lose
// updates.
//
// Exactly-once accounting rides on a receipts table written in the same
// transaction as the increment: a redelivered envelope hits the receipt's
// unique key, the transaction rolls back, and the caller sees
// fabric.ErrAlreadyApplied. Envelopes without an event id (legacy producers)
// skip the receipt and keep the source's at-least-once behavior.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a Store on the given pool.
func NewStore(pool *pgxpool.Pool) (*Store, error) {
	s := Store{pool: pool}

	if err := validator.Validate("analytics store", s.pool); err != nil {
		return nil, fmt.Errorf("failed to validate analytics store deps: %w", err)
	}

	return &s, nil
}

// EnsureSchema creates the tables the store depends on.
func (s *Store) EnsureSchema(ctx context.Context) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS daily_stats (
			day                 date PRIMARY KEY,
			new_users           bigint NOT NULL DEFAULT 0,
			new_listings        bigint NOT NULL DEFAULT 0,
			total_revenue       double precision NOT NULL DEFAULT 0,
			total_commission    double precision NOT NULL DEFAULT 0,
			total_transactions  bigint NOT NULL DEFAULT 0,
			total_reviews       bigint NOT NULL DEFAULT 0,
			total_rating_sum    double precision NOT NULL DEFAULT 0,
			total_wishlist_adds bigint NOT NULL DEFAULT 0,
			total_reports       bigint NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS analytics_receipts (
			event_id     text PRIMARY KEY,
			processed_at timestamptz NOT NULL DEFAULT now()
		);`

	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure analytics schema: %w", err)
	}

	return nil
}

// Apply records the delta against the envelope's day bucket. eventID may be
// empty, in which case no deduplication happens.
func (s *Store) Apply(ctx context.Context, eventID string, day time.Time, d Delta) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin analytics transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if eventID != "" {
		const receipt = `
			INSERT INTO analytics_receipts (event_id)
			VALUES ($1)
			ON CONFLICT (event_id) DO NOTHING`

		tag, err := tx.Exec(ctx, receipt, eventID)
		if err != nil {
			return fmt.Errorf("failed to insert receipt for event %s: %w", eventID, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("event %s: %w", eventID, fabric.ErrAlreadyApplied)
		}
	}

	const upsert = `
		INSERT INTO daily_stats (
			day, new_users, new_listings, total_revenue, total_commission,
			total_transactions, total_reviews, total_rating_sum,
			total_wishlist_adds, total_reports
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (day) DO UPDATE SET
			new_users           = daily_stats.new_users + EXCLUDED.new_users,
			new_listings        = daily_stats.new_listings + EXCLUDED.new_listings,
			total_revenue       = daily_stats.total_revenue + EXCLUDED.total_revenue,
			total_commission    = daily_stats.total_commission + EXCLUDED.total_commission,
			total_transactions  = daily_stats.total_transactions + EXCLUDED.total_transactions,
			total_reviews       = daily_stats.total_reviews + EXCLUDED.total_reviews,
			total_rating_sum    = daily_stats.total_rating_sum + EXCLUDED.total_rating_sum,
			total_wishlist_adds = daily_stats.total_wishlist_adds + EXCLUDED.total_wishlist_adds,
			total_reports       = daily_stats.total_reports + EXCLUDED.total_reports`

	if _, err := tx.Exec(ctx, upsert,
		day,
		d.NewUsers,
		d.NewListings,
		d.TotalRevenue,
		d.TotalCommission,
		d.TotalTransactions,
		d.TotalReviews,
		d.TotalRatingSum,
		d.TotalWishlistAdds,
		d.TotalReports,
	); err != nil {
		return fmt.Errorf("failed to apply delta for day %s: %w", day.Format("2006-01-02"), err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit analytics transaction: %w", err)
	}

	return nil
}

// Stats returns the aggregate for a day, or a zero-valued bucket when no
// event has touched it yet.
func (s *Store) Stats(ctx context.Context, day time.Time) (*DailyStats, error) {
	const query = `
		SELECT day, new_users, new_listings, total_revenue, total_commission,
		       total_transactions, total_reviews, total_rating_sum,
		       total_wishlist_adds, total_reports
		FROM daily_stats
		WHERE day = $1`

	row := s.pool.QueryRow(ctx, query, day)

	var st DailyStats
	err := row.Scan(
		&st.Day,
		&st.NewUsers,
		&st.NewListings,
		&st.TotalRevenue,
		&st.TotalCommission,
		&st.TotalTransactions,
		&st.TotalReviews,
		&st.TotalRatingSum,
		&st.TotalWishlistAdds,
		&st.TotalReports,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &DailyStats{Day: day}, nil
		}
		return nil, fmt.Errorf("failed to load daily stats for %s: %w", day.Format("2006-01-02"), err)
	}

	return &st, nil
}
