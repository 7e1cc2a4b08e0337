package inventory

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/artisanmarket/promo-engine/internal/apperr"
	"github.com/artisanmarket/promo-engine/internal/models"
)

// ErrNotDue is returned by ApplyRestoration when the stored product no longer
// needs the refill, because another pass already applied it.
var ErrNotDue = errors.New("restoration no longer due")

const productColumns = `
	id, seller_id, name, fulfillment_type, stock, low_stock_threshold,
	total_capacity, remaining_capacity, capacity_period, last_restored_at,
	available_quantity, next_available_date, is_featured, is_sponsored,
	inventory_version, created_at, updated_at`

// Store persists the inventory side of products.
type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewStore creates a Store. A nil now defaults to time.Now.
func NewStore(db *sqlx.DB, now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{db: db, now: now}
}

// Create inserts a product, generating its ID when empty.
func (s *Store) Create(ctx context.Context, p models.Product) (models.Product, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := s.now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO products (`+productColumns+`)
		VALUES (
			:id, :seller_id, :name, :fulfillment_type, :stock, :low_stock_threshold,
			:total_capacity, :remaining_capacity, :capacity_period, :last_restored_at,
			:available_quantity, :next_available_date, :is_featured, :is_sponsored,
			:inventory_version, :created_at, :updated_at)`, p)
	if err != nil {
		return models.Product{}, apperr.Persistence("create product", err)
	}
	return p, nil
}

// Get loads one product.
func (s *Store) Get(ctx context.Context, q sqlx.QueryerContext, id string) (models.Product, error) {
	var p models.Product
	err := sqlx.GetContext(ctx, q, &p, "SELECT "+productColumns+" FROM products WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Product{}, apperr.NewNotFound("product", id)
	}
	if err != nil {
		return models.Product{}, apperr.Persistence("get product", err)
	}
	return p, nil
}

// GetMany loads the products with the given IDs. Unknown IDs are skipped.
func (s *Store) GetMany(ctx context.Context, ids []string) ([]models.Product, error) {
	out := []models.Product{}
	if len(ids) == 0 {
		return out, nil
	}
	query, args, err := sqlx.In("SELECT "+productColumns+" FROM products WHERE id IN (?)", ids)
	if err != nil {
		return nil, apperr.Persistence("get products", err)
	}
	if err := s.db.SelectContext(ctx, &out, s.db.Rebind(query), args...); err != nil {
		return nil, apperr.Persistence("get products", err)
	}
	return out, nil
}

// ListMonitored returns every product whose availability refills over time.
func (s *Store) ListMonitored(ctx context.Context) ([]models.Product, error) {
	out := []models.Product{}
	err := s.db.SelectContext(ctx, &out,
		"SELECT "+productColumns+" FROM products WHERE fulfillment_type IN (?, ?) ORDER BY id",
		models.MadeToOrder, models.ScheduledOrder)
	if err != nil {
		return nil, apperr.Persistence("list monitored products", err)
	}
	return out, nil
}

// SaveInventory writes every inventory column of p. The write only applies
// while the row still carries p.InventoryVersion; a refill or another edit
// in between yields a StaleStateError.
func (s *Store) SaveInventory(ctx context.Context, p models.Product) (models.Product, error) {
	p.UpdatedAt = s.now().UTC()
	res, err := s.db.NamedExecContext(ctx, `
		UPDATE products SET
			stock = :stock,
			low_stock_threshold = :low_stock_threshold,
			total_capacity = :total_capacity,
			remaining_capacity = :remaining_capacity,
			capacity_period = :capacity_period,
			available_quantity = :available_quantity,
			next_available_date = :next_available_date,
			inventory_version = inventory_version + 1,
			updated_at = :updated_at
		WHERE id = :id AND inventory_version = :inventory_version`, p)
	if err != nil {
		return models.Product{}, apperr.Persistence("save inventory", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return models.Product{}, apperr.Persistence("save inventory", err)
	}
	if n == 0 {
		current, err := s.Get(ctx, s.db, p.ID)
		if err != nil {
			return models.Product{}, err
		}
		return models.Product{}, &apperr.StaleStateError{
			Resource: "product inventory",
			ID:       p.ID,
			Current:  fmt.Sprintf("version %d", current.InventoryVersion),
			Expected: []string{fmt.Sprintf("version %d", p.InventoryVersion)},
		}
	}
	p.InventoryVersion++
	return p, nil
}

// ApplyRestoration writes a refill. The update only applies while the row
// still holds the snapshot the refill was computed from, so a refill is
// never applied twice; otherwise ErrNotDue is returned.
func (s *Store) ApplyRestoration(ctx context.Context, check RestorationCheck) (models.Product, error) {
	now := s.now().UTC()

	var (
		res sql.Result
		err error
	)
	switch check.FulfillmentType {
	case models.MadeToOrder:
		if check.LastRestoredAt == nil {
			return models.Product{}, apperr.NewValidation("lastRestoredAt", "is required")
		}
		query := `
			UPDATE products
			SET remaining_capacity = total_capacity, last_restored_at = ?,
			    inventory_version = inventory_version + 1, updated_at = ?
			WHERE id = ? AND fulfillment_type = ? AND last_restored_at IS NULL`
		args := []interface{}{check.LastRestoredAt.UTC(), now, check.ProductID, models.MadeToOrder}
		if check.PreviousRestoredAt != nil {
			query = `
			UPDATE products
			SET remaining_capacity = total_capacity, last_restored_at = ?,
			    inventory_version = inventory_version + 1, updated_at = ?
			WHERE id = ? AND fulfillment_type = ? AND last_restored_at <= ?`
			args = append(args, check.PreviousRestoredAt.UTC())
		}
		res, err = s.db.ExecContext(ctx, query, args...)

	case models.ScheduledOrder:
		if check.PreviousAvailableDate == nil {
			return models.Product{}, apperr.NewValidation("nextAvailableDate", "is required")
		}
		var next interface{}
		if check.NextAvailableDate != nil {
			next = check.NextAvailableDate.UTC()
		}
		res, err = s.db.ExecContext(ctx, `
			UPDATE products
			SET available_quantity = ?, next_available_date = ?,
			    inventory_version = inventory_version + 1, updated_at = ?
			WHERE id = ? AND fulfillment_type = ? AND next_available_date <= ?`,
			check.AvailableQuantity, next, now, check.ProductID, models.ScheduledOrder, check.PreviousAvailableDate.UTC())

	default:
		return models.Product{}, apperr.NewValidation("fulfillmentType", "is not restorable")
	}
	if err != nil {
		return models.Product{}, apperr.Persistence("apply restoration", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return models.Product{}, apperr.Persistence("apply restoration", err)
	}
	if n == 0 {
		return models.Product{}, ErrNotDue
	}
	return s.Get(ctx, s.db, check.ProductID)
}

// SetFlag turns a promotion flag on or off. FlagNone is a no-op.
func (s *Store) SetFlag(ctx context.Context, e sqlx.ExecerContext, productID string, flag models.ProductFlag, on bool) error {
	column := flagColumn(flag)
	if column == "" {
		return nil
	}
	_, err := e.ExecContext(ctx,
		"UPDATE products SET "+column+" = ?, updated_at = ? WHERE id = ?", on, s.now().UTC(), productID)
	return apperr.Persistence("set product flag", err)
}

func flagColumn(flag models.ProductFlag) string {
	switch flag {
	case models.FlagFeatured:
		return "is_featured"
	case models.FlagSponsored:
		return "is_sponsored"
	}
	return ""
}
