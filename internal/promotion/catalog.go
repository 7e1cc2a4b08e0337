// Package promotion runs the promotional-feature marketplace: the pricing
// catalog, the request/approval/expiration state machine and the sweep that
// ends features.
package promotion

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/artisanmarket/promo-engine/internal/apperr"
	"github.com/artisanmarket/promo-engine/internal/audit"
	"github.com/artisanmarket/promo-engine/internal/database"
	"github.com/artisanmarket/promo-engine/internal/models"
	"github.com/artisanmarket/promo-engine/internal/validation"
)

const pricingColumns = `
	feature_type, display_name, base_price, price_per_day, included_days,
	benefits, product_flag, is_active, updated_by, created_at, updated_at`

// PricingInput is an admin edit of one catalog row.
type PricingInput struct {
	FeatureType  string          `json:"featureType" validate:"required,max=64"`
	DisplayName  string          `json:"displayName" validate:"max=255"`
	BasePrice    decimal.Decimal `json:"basePrice" validate:"gte=0"`
	PricePerDay  decimal.Decimal `json:"pricePerDay" validate:"gte=0"`
	IncludedDays int             `json:"includedDays" validate:"gte=0,lte=365"`
	Benefits     []string        `json:"benefits" validate:"max=20,dive,required,max=200"`
	ProductFlag  string          `json:"productFlag" validate:"required,oneof=featured sponsored none"`
	IsActive     *bool           `json:"isActive"`
}

// NormalizeFeatureType turns a display string into a catalog key, so
// "Homepage Banner" and "homepage_banner" name the same row.
func NormalizeFeatureType(s string) string {
	return strings.ReplaceAll(slug.Make(s), "-", "_")
}

// Cost is the single price function of the marketplace: the base price
// covers IncludedDays, every further day costs PricePerDay.
func Cost(p models.PromotionalPricing, durationDays int) decimal.Decimal {
	extra := durationDays - p.IncludedDays
	if extra < 0 {
		extra = 0
	}
	return p.BasePrice.Add(p.PricePerDay.Mul(decimal.NewFromInt(int64(extra))))
}

// DefaultPricing is the catalog seeded by InitializeDefaults.
func DefaultPricing() []models.PromotionalPricing {
	return []models.PromotionalPricing{
		{
			FeatureType:  "sponsored",
			DisplayName:  "Sponsored Listing",
			BasePrice:    decimal.NewFromInt(40),
			PricePerDay:  decimal.NewFromInt(5),
			IncludedDays: 7,
			Benefits:     models.Benefits{"Sponsored badge on the listing", "Placement in sponsored search slots"},
			ProductFlag:  models.FlagSponsored,
			IsActive:     true,
		},
		{
			FeatureType:  "featured",
			DisplayName:  "Featured Product",
			BasePrice:    decimal.NewFromInt(25),
			PricePerDay:  decimal.NewFromInt(5),
			IncludedDays: 3,
			Benefits:     models.Benefits{"Featured badge", "Shown in the featured carousel"},
			ProductFlag:  models.FlagFeatured,
			IsActive:     true,
		},
		{
			FeatureType:  "homepage_banner",
			DisplayName:  "Homepage Banner",
			BasePrice:    decimal.NewFromInt(100),
			PricePerDay:  decimal.NewFromInt(15),
			IncludedDays: 3,
			Benefits:     models.Benefits{"Banner slot on the homepage", "Custom banner text"},
			ProductFlag:  models.FlagFeatured,
			IsActive:     true,
		},
		{
			FeatureType:  "search_boost",
			DisplayName:  "Search Boost",
			BasePrice:    decimal.NewFromInt(15),
			PricePerDay:  decimal.NewFromInt(2),
			IncludedDays: 7,
			Benefits:     models.Benefits{"Higher ranking for chosen keywords", "Category boost"},
			ProductFlag:  models.FlagSponsored,
			IsActive:     true,
		},
	}
}

// Catalog is the admin-editable pricing table.
type Catalog struct {
	db    *sqlx.DB
	audit *audit.Log
	now   func() time.Time
}

// NewCatalog creates a Catalog. A nil now defaults to time.Now.
func NewCatalog(db *sqlx.DB, auditLog *audit.Log, now func() time.Time) *Catalog {
	if now == nil {
		now = time.Now
	}
	return &Catalog{db: db, audit: auditLog, now: now}
}

// GetPricing loads the row for featureType through q.
func (c *Catalog) GetPricing(ctx context.Context, q sqlx.QueryerContext, featureType string) (models.PromotionalPricing, error) {
	key := NormalizeFeatureType(featureType)
	var p models.PromotionalPricing
	err := sqlx.GetContext(ctx, q, &p,
		"SELECT "+pricingColumns+" FROM promotional_pricing WHERE feature_type = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return models.PromotionalPricing{}, apperr.NewNotFound("promotional pricing", key)
	}
	if err != nil {
		return models.PromotionalPricing{}, apperr.Persistence("get promotional pricing", err)
	}
	return p, nil
}

// Pricing is GetPricing outside a transaction.
func (c *Catalog) Pricing(ctx context.Context, featureType string) (models.PromotionalPricing, error) {
	return c.GetPricing(ctx, c.db, featureType)
}

// Quote prices a request without storing anything.
func (c *Catalog) Quote(ctx context.Context, featureType string, durationDays int) (decimal.Decimal, error) {
	if err := validation.Var("durationDays", durationDays, "gte=1,lte=365"); err != nil {
		return decimal.Zero, err
	}
	p, err := c.Pricing(ctx, featureType)
	if err != nil {
		return decimal.Zero, err
	}
	return Cost(p, durationDays), nil
}

// List returns the whole catalog.
func (c *Catalog) List(ctx context.Context) ([]models.PromotionalPricing, error) {
	out := []models.PromotionalPricing{}
	if err := c.db.SelectContext(ctx, &out,
		"SELECT "+pricingColumns+" FROM promotional_pricing ORDER BY feature_type"); err != nil {
		return nil, apperr.Persistence("list promotional pricing", err)
	}
	return out, nil
}

// Upsert creates or replaces one catalog row and audits the change.
func (c *Catalog) Upsert(ctx context.Context, actor models.Actor, in PricingInput) (models.PromotionalPricing, error) {
	if !actor.IsAdmin() {
		return models.PromotionalPricing{}, &apperr.ForbiddenError{Reason: "only admins can edit pricing"}
	}
	if err := validation.Struct(in); err != nil {
		return models.PromotionalPricing{}, err
	}
	key := NormalizeFeatureType(in.FeatureType)
	if key == "" {
		return models.PromotionalPricing{}, apperr.NewValidation("featureType", "must contain letters or digits")
	}

	var before *models.PromotionalPricing
	var after models.PromotionalPricing
	err := database.WithTx(ctx, c.db, func(tx *sqlx.Tx) error {
		existing, err := c.GetPricing(ctx, tx, key)
		var nf *apperr.NotFoundError
		switch {
		case errors.As(err, &nf):
		case err != nil:
			return err
		default:
			before = &existing
		}

		now := c.now().UTC()
		after = models.PromotionalPricing{
			FeatureType:  key,
			DisplayName:  in.DisplayName,
			BasePrice:    in.BasePrice,
			PricePerDay:  in.PricePerDay,
			IncludedDays: in.IncludedDays,
			Benefits:     models.Benefits(in.Benefits),
			ProductFlag:  models.ProductFlag(in.ProductFlag),
			IsActive:     true,
			UpdatedBy:    &actor.UserID,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if in.IsActive != nil {
			after.IsActive = *in.IsActive
		}
		if after.DisplayName == "" && before != nil {
			after.DisplayName = before.DisplayName
		}
		if before != nil {
			after.CreatedAt = before.CreatedAt
			return c.update(ctx, tx, after)
		}
		return c.insert(ctx, tx, after)
	})
	if err != nil {
		return models.PromotionalPricing{}, apperr.Persistence("upsert promotional pricing", err)
	}

	var beforeChanges interface{}
	if before != nil {
		beforeChanges = before
	}
	c.audit.Record(ctx, actor, audit.ActionUpdatePricing, audit.TargetPricing, key, beforeChanges, after,
		"Updated promotional pricing for "+key)
	return after, nil
}

// InitializeDefaults inserts the DefaultPricing rows that do not exist yet.
// Existing rows are left untouched. It returns the rows it created.
func (c *Catalog) InitializeDefaults(ctx context.Context, actor models.Actor) ([]models.PromotionalPricing, error) {
	if !actor.IsAdmin() {
		return nil, &apperr.ForbiddenError{Reason: "only admins can initialize pricing"}
	}

	created := []models.PromotionalPricing{}
	err := database.WithTx(ctx, c.db, func(tx *sqlx.Tx) error {
		now := c.now().UTC()
		for _, p := range DefaultPricing() {
			_, err := c.GetPricing(ctx, tx, p.FeatureType)
			var nf *apperr.NotFoundError
			if err == nil {
				continue
			}
			if !errors.As(err, &nf) {
				return err
			}
			p.UpdatedBy = &actor.UserID
			p.CreatedAt, p.UpdatedAt = now, now
			if err := c.insert(ctx, tx, p); err != nil {
				return err
			}
			created = append(created, p)
		}
		return nil
	})
	if err != nil {
		return nil, apperr.Persistence("initialize promotional pricing", err)
	}

	keys := make([]string, 0, len(created))
	for _, p := range created {
		keys = append(keys, p.FeatureType)
	}
	c.audit.Record(ctx, actor, audit.ActionInitializePricing, audit.TargetPricing, "catalog", nil,
		map[string]interface{}{"created": keys}, "Seeded default promotional pricing")
	return created, nil
}

func (c *Catalog) insert(ctx context.Context, tx *sqlx.Tx, p models.PromotionalPricing) error {
	_, err := tx.NamedExecContext(ctx, `
		INSERT INTO promotional_pricing (`+pricingColumns+`)
		VALUES (:feature_type, :display_name, :base_price, :price_per_day, :included_days,
			:benefits, :product_flag, :is_active, :updated_by, :created_at, :updated_at)`, p)
	return apperr.Persistence("insert promotional pricing", err)
}

func (c *Catalog) update(ctx context.Context, tx *sqlx.Tx, p models.PromotionalPricing) error {
	_, err := tx.NamedExecContext(ctx, `
		UPDATE promotional_pricing SET
			display_name = :display_name,
			base_price = :base_price,
			price_per_day = :price_per_day,
			included_days = :included_days,
			benefits = :benefits,
			product_flag = :product_flag,
			is_active = :is_active,
			updated_by = :updated_by,
			updated_at = :updated_at
		WHERE feature_type = :feature_type`, p)
	return apperr.Persistence("update promotional pricing", err)
}
