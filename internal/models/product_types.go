package models

import (
	"time"
)

// FulfillmentType decides which inventory fields apply to a product.
type FulfillmentType string

const (
	ReadyToShip    FulfillmentType = "ready_to_ship"
	MadeToOrder    FulfillmentType = "made_to_order"
	ScheduledOrder FulfillmentType = "scheduled_order"
)

// CapacityPeriod is the cadence at which capacity or availability refills.
type CapacityPeriod string

const (
	PeriodDaily   CapacityPeriod = "daily"
	PeriodWeekly  CapacityPeriod = "weekly"
	PeriodMonthly CapacityPeriod = "monthly"
)

// DefaultLowStockThreshold applies to ready_to_ship products without their own threshold.
const DefaultLowStockThreshold = 5

// Product is the inventory-relevant subset of the 'products' table.
// Nullable columns are pointers so they serialize cleanly.
type Product struct {
	ID              string          `json:"id" db:"id"`
	SellerID        string          `json:"sellerId" db:"seller_id"`
	Name            string          `json:"name" db:"name"`
	FulfillmentType FulfillmentType `json:"fulfillmentType" db:"fulfillment_type"`

	// --- ready_to_ship ---
	Stock             int  `json:"stock" db:"stock"`
	LowStockThreshold *int `json:"lowStockThreshold,omitempty" db:"low_stock_threshold"`

	// --- made_to_order (TotalCapacity is also the batch size of scheduled_order) ---
	TotalCapacity     int             `json:"totalCapacity" db:"total_capacity"`
	RemainingCapacity int             `json:"remainingCapacity" db:"remaining_capacity"`
	CapacityPeriod    *CapacityPeriod `json:"capacityPeriod,omitempty" db:"capacity_period"`
	LastRestoredAt    *time.Time      `json:"lastRestoredAt,omitempty" db:"last_restored_at"`

	// --- scheduled_order ---
	AvailableQuantity int        `json:"availableQuantity" db:"available_quantity"`
	NextAvailableDate *time.Time `json:"nextAvailableDate,omitempty" db:"next_available_date"`

	// --- Promotion flags (set on activation, cleared on expiration) ---
	IsFeatured  bool `json:"isFeatured" db:"is_featured"`
	IsSponsored bool `json:"isSponsored" db:"is_sponsored"`

	// InventoryVersion moves on every inventory write (edits and refills).
	InventoryVersion int `json:"-" db:"inventory_version"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// Threshold returns the low-stock threshold, falling back to the default.
func (p *Product) Threshold() int {
	if p.LowStockThreshold == nil {
		return DefaultLowStockThreshold
	}
	return *p.LowStockThreshold
}

// Period returns the capacity period or an empty string when unset.
func (p *Product) Period() CapacityPeriod {
	if p.CapacityPeriod == nil {
		return ""
	}
	return *p.CapacityPeriod
}
