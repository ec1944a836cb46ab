package analytics

import (
	"time"

	"fabric/internal/fabric"
)

// DailyStats is the per-calendar-day aggregate the analytics service owns.
// Buckets are keyed by UTC start of day.
type DailyStats struct {
	Day time.Time

	NewUsers    int64
	NewListings int64

	TotalRevenue      float64
	TotalCommission   float64
	TotalTransactions int64

	TotalReviews   int64
	TotalRatingSum float64

	TotalWishlistAdds int64
	TotalReports      int64
}

// Delta is the set of counter movements one envelope causes. Deltas commute,
// which is what makes the aggregate order-independent under redelivery and
// cross-queue reordering.
type Delta struct {
	NewUsers    int64
	NewListings int64

	TotalRevenue      float64
	TotalCommission   float64
	TotalTransactions int64

	TotalReviews   int64
	TotalRatingSum float64

	TotalWishlistAdds int64
	TotalReports      int64
}

// IsZero reports whether the delta moves no counters.
func (d Delta) IsZero() bool {
	return d == Delta{}
}

// DeltaFor maps an envelope to the counters it moves. ok is false for event
// tags the aggregate does not track.
func DeltaFor(env fabric.Envelope) (Delta, bool, error) {
	switch env.Event {
	case fabric.EventUserRegistered:
		return Delta{NewUsers: 1}, true, nil

	case fabric.EventListingCreated:
		return Delta{NewListings: 1}, true, nil

	case fabric.EventTransactionPaid:
		var p fabric.TransactionPaid
		if err := env.DecodeData(&p); err != nil {
			return Delta{}, false, err
		}
		return Delta{
			TotalRevenue:      p.Price,
			TotalCommission:   p.CommissionAmount,
			TotalTransactions: 1,
		}, true, nil

	case fabric.EventReviewCreated:
		var r fabric.ReviewCreated
		if err := env.DecodeData(&r); err != nil {
			return Delta{}, false, err
		}
		return Delta{
			TotalReviews:   1,
			TotalRatingSum: r.Rating,
		}, true, nil

	case fabric.EventWishlistItemAdded:
		return Delta{TotalWishlistAdds: 1}, true, nil

	case fabric.EventReportCreated:
		return Delta{TotalReports: 1}, true, nil

	default:
		return Delta{}, false, nil
	}
}

// DayStart returns the UTC calendar day the envelope belongs to. Legacy
// envelopes carry no occurrence time; those fall back to now, matching the
// bucket-at-consume-time behavior of the original services.
func DayStart(env fabric.Envelope, now time.Time) time.Time {
	t := env.OccurredAt
	if t.IsZero() {
		t = now
	}
	t = t.UTC()

	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
