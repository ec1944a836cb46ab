package search

import (
	"time"

	"github.com/couchbase/gocb/v2"

	"fabric/internal/couchbase"
	"fabric/internal/fabric"
)

// Doc is the read-optimized listing snapshot the search service owns. It is
// built purely from consumed listing events and never written by any other
// component.
type Doc struct {
	ID          string  `json:"_id"`
	Title       string  `json:"title,omitempty"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price,omitempty"`
	Location    string  `json:"location,omitempty"`
	Condition   string  `json:"condition,omitempty"`
	Status      string  `json:"status,omitempty"`
	Category    string  `json:"category,omitempty"`

	VehicleBrand             string  `json:"vehicle_brand,omitempty"`
	VehicleModel             string  `json:"vehicle_model,omitempty"`
	VehicleManufacturingYear int     `json:"vehicle_manufacturing_year,omitempty"`
	VehicleMileageKM         float64 `json:"vehicle_mileage_km,omitempty"`
	BatteryCapacityKWH       float64 `json:"battery_capacity_kwh,omitempty"`
	BatteryConditionPercent  float64 `json:"battery_condition_percentage,omitempty"`

	Images    []string `json:"images,omitempty"`
	VehicleID string   `json:"vehicle_id,omitempty"`
	BatteryID string   `json:"battery_id,omitempty"`

	// Version is the envelope version of the last applied event; stale
	// deliveries lose against it. Zero means the doc was written by a legacy
	// producer and last-write-wins applies.
	Version   int64     `json:"version,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`

	couchbase.Cas `json:"-"`
}

// ListingsStore is the key-value store holding listing docs.
type ListingsStore = couchbase.Couchbase[Doc]

// NewListingsStore opens the listings collection for the search index.
func NewListingsStore(cluster *gocb.Cluster, bucket *gocb.Bucket, scope string) (*ListingsStore, error) {
	collection := bucket.Scope(scope).Collection("listings")
	store, err := couchbase.NewCouchbase[Doc](cluster, bucket, collection)
	if err != nil {
		return nil, err
	}

	return store, nil
}

// DocKey is the storage key for a listing snapshot.
func DocKey(id string) string {
	return "listing::" + id
}

// Merge overlays the fields present in the snapshot onto the doc. Absent
// fields keep their current value, which is what makes a partial
// listing_updated payload safe to apply over a full listing_created one.
func (d *Doc) Merge(s fabric.ListingSnapshot) {
	if s.Title != nil {
		d.Title = *s.Title
	}
	if s.Description != nil {
		d.Description = *s.Description
	}
	if s.Price != nil {
		d.Price = *s.Price
	}
	if s.Location != nil {
		d.Location = *s.Location
	}
	if s.Condition != nil {
		d.Condition = *s.Condition
	}
	if s.Status != nil {
		d.Status = *s.Status
	}
	if s.Category != nil {
		d.Category = *s.Category
	}
	if s.VehicleBrand != nil {
		d.VehicleBrand = *s.VehicleBrand
	}
	if s.VehicleModel != nil {
		d.VehicleModel = *s.VehicleModel
	}
	if s.VehicleManufacturingYear != nil {
		d.VehicleManufacturingYear = *s.VehicleManufacturingYear
	}
	if s.VehicleMileageKM != nil {
		d.VehicleMileageKM = *s.VehicleMileageKM
	}
	if s.BatteryCapacityKWH != nil {
		d.BatteryCapacityKWH = *s.BatteryCapacityKWH
	}
	if s.BatteryConditionPercent != nil {
		d.BatteryConditionPercent = *s.BatteryConditionPercent
	}
	if s.Images != nil {
		d.Images = s.Images
	}
	if s.VehicleID != nil {
		d.VehicleID = *s.VehicleID
	}
	if s.BatteryID != nil {
		d.BatteryID = *s.BatteryID
	}
}
