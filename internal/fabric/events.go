package fabric

// Event tags shared by all producers and consumers. The tag doubles as the
// routing key on the platform exchange.
const (
	EventUserRegistered = "user_registered"

	EventListingCreated = "listing_created"
	EventListingUpdated = "listing_updated"
	EventListingDeleted = "listing_deleted"

	EventTransactionPaid = "transaction_paid"

	EventAuctionCreated   = "auction_created"
	EventAuctionBidPlaced = "auction_bid_placed"
	EventAuctionBuyNow    = "auction_buy_now"
	EventAuctionCancelled = "auction_cancelled"
	EventAuctionSettled   = "auction_settled"

	EventReviewCreated = "review_created"

	EventReportCreated = "report_created"

	EventWishlistItemAdded   = "wishlist_item_added"
	EventWishlistItemRemoved = "wishlist_item_removed"
)

// Catalog lists every event tag the platform currently emits. Consumers that
// want the whole stream bind a queue to each of these keys.
func Catalog() []string {
	return []string{
		EventUserRegistered,
		EventListingCreated,
		EventListingUpdated,
		EventListingDeleted,
		EventTransactionPaid,
		EventAuctionCreated,
		EventAuctionBidPlaced,
		EventAuctionBuyNow,
		EventAuctionCancelled,
		EventAuctionSettled,
		EventReviewCreated,
		EventReportCreated,
		EventWishlistItemAdded,
		EventWishlistItemRemoved,
	}
}

// ListingSnapshot is the payload of listing_created and listing_updated.
// Updates may carry a partial field set; pointer fields distinguish "absent"
// from zero values so consumers can merge instead of blindly overwriting.
type ListingSnapshot struct {
	ID          string   `json:"_id"`
	Title       *string  `json:"title,omitempty"`
	Description *string  `json:"description,omitempty"`
	Price       *float64 `json:"price,omitempty"`
	Location    *string  `json:"location,omitempty"`
	Condition   *string  `json:"condition,omitempty"`
	Status      *string  `json:"status,omitempty"`
	Category    *string  `json:"category,omitempty"`

	VehicleBrand             *string  `json:"vehicle_brand,omitempty"`
	VehicleModel             *string  `json:"vehicle_model,omitempty"`
	VehicleManufacturingYear *int     `json:"vehicle_manufacturing_year,omitempty"`
	VehicleMileageKM         *float64 `json:"vehicle_mileage_km,omitempty"`
	BatteryCapacityKWH       *float64 `json:"battery_capacity_kwh,omitempty"`
	BatteryConditionPercent  *float64 `json:"battery_condition_percentage,omitempty"`

	Images    []string `json:"images,omitempty"`
	VehicleID *string  `json:"vehicle_id,omitempty"`
	BatteryID *string  `json:"battery_id,omitempty"`
}

// TransactionPaid is the payload of transaction_paid. Price and commission are
// the only fields analytics relies on.
type TransactionPaid struct {
	TransactionID    string  `json:"transactionId,omitempty"`
	Price            float64 `json:"price"`
	CommissionAmount float64 `json:"commissionAmount"`
}

// AuctionEvent is the payload shared by the auction_* tags.
type AuctionEvent struct {
	AuctionID string  `json:"auctionId"`
	ListingID string  `json:"listingId,omitempty"`
	SellerID  string  `json:"sellerId,omitempty"`
	BidderID  string  `json:"bidderId,omitempty"`
	Amount    float64 `json:"amount,omitempty"`
}

// ReviewCreated is the payload of review_created.
type ReviewCreated struct {
	ReviewID  string  `json:"reviewId"`
	ListingID string  `json:"listingId"`
	Rating    float64 `json:"rating"`
}

// ReportCreated is the payload of report_created.
type ReportCreated struct {
	ReportID   string `json:"reportId"`
	ReporterID string `json:"reporterId"`
	TargetID   string `json:"targetId"`
}

// WishlistItem is the payload of wishlist_item_added and wishlist_item_removed.
type WishlistItem struct {
	UserID    string `json:"userId"`
	ListingID string `json:"listingId"`
}
