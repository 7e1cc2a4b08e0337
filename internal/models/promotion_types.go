package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// FeatureStatus is the lifecycle state of a PromotionalFeature.
type FeatureStatus string

const (
	StatusPendingApproval FeatureStatus = "pending_approval"
	StatusActive          FeatureStatus = "active"
	StatusRejected        FeatureStatus = "rejected"
	StatusExpired         FeatureStatus = "expired"
	StatusCancelled       FeatureStatus = "cancelled"
)

// Terminal reports whether no further transition is possible.
func (s FeatureStatus) Terminal() bool {
	return s == StatusRejected || s == StatusExpired || s == StatusCancelled
}

// ProductFlag names the product flag a feature type turns on while active.
type ProductFlag string

const (
	FlagFeatured  ProductFlag = "featured"
	FlagSponsored ProductFlag = "sponsored"
	FlagNone      ProductFlag = "none"
)

// FeatureSpecifications is the free-form payload a seller attaches to a request.
// Stored as a JSON document.
type FeatureSpecifications struct {
	CustomText     string   `json:"customText,omitempty" validate:"max=500"`
	SearchKeywords []string `json:"searchKeywords,omitempty" validate:"max=20,dive,max=50"`
	CategoryBoost  string   `json:"categoryBoost,omitempty" validate:"max=100"`
}

// Value implements driver.Valuer.
func (s FeatureSpecifications) Value() (driver.Value, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (s *FeatureSpecifications) Scan(src interface{}) error {
	return scanJSON(src, s)
}

// PromotionalFeature is the model for the 'promotional_features' table.
type PromotionalFeature struct {
	ID              string                `json:"id" db:"id"`
	SellerID        string                `json:"sellerId" db:"seller_id"`
	ProductID       string                `json:"productId" db:"product_id"`
	FeatureType     string                `json:"featureType" db:"feature_type"`
	DurationDays    int                   `json:"durationDays" db:"duration_days"`
	Price           decimal.Decimal       `json:"price" db:"price"`
	Status          FeatureStatus         `json:"status" db:"status"`
	StartDate       *time.Time            `json:"startDate,omitempty" db:"start_date"`
	EndDate         *time.Time            `json:"endDate,omitempty" db:"end_date"`
	Specifications  FeatureSpecifications `json:"specifications" db:"specifications"`
	RejectionReason *string               `json:"rejectionReason,omitempty" db:"rejection_reason"`
	ReviewedBy      *string               `json:"reviewedBy,omitempty" db:"reviewed_by"`
	// ProductFlag is the flag granted at approval; empty until then.
	ProductFlag ProductFlag `json:"productFlag,omitempty" db:"product_flag"`
	CreatedAt       time.Time             `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time             `json:"updatedAt" db:"updated_at"`
}

// Benefits is a list of marketing bullet points stored as JSON.
type Benefits []string

// Value implements driver.Valuer.
func (b Benefits) Value() (driver.Value, error) {
	if b == nil {
		b = Benefits{}
	}
	out, err := json.Marshal([]string(b))
	if err != nil {
		return nil, err
	}
	return string(out), nil
}

// Scan implements sql.Scanner.
func (b *Benefits) Scan(src interface{}) error {
	return scanJSON(src, b)
}

// PromotionalPricing is the model for the 'promotional_pricing' table.
// IncludedDays are covered by BasePrice; each extra day costs PricePerDay.
type PromotionalPricing struct {
	FeatureType  string          `json:"featureType" db:"feature_type"`
	DisplayName  string          `json:"displayName" db:"display_name"`
	BasePrice    decimal.Decimal `json:"basePrice" db:"base_price"`
	PricePerDay  decimal.Decimal `json:"pricePerDay" db:"price_per_day"`
	IncludedDays int             `json:"includedDays" db:"included_days"`
	Benefits     Benefits        `json:"benefits" db:"benefits"`
	ProductFlag  ProductFlag     `json:"productFlag" db:"product_flag"`
	IsActive     bool            `json:"isActive" db:"is_active"`
	UpdatedBy    *string         `json:"updatedBy,omitempty" db:"updated_by"`
	CreatedAt    time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time       `json:"updatedAt" db:"updated_at"`
}

func scanJSON(src interface{}, dst interface{}) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		if len(v) == 0 {
			return nil
		}
		return json.Unmarshal(v, dst)
	case string:
		if v == "" {
			return nil
		}
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("unsupported JSON column type %T", src)
	}
}
