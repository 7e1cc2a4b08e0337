package promotion

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/artisanmarket/promo-engine/internal/apperr"
	"github.com/artisanmarket/promo-engine/internal/models"
)

const featureColumns = `
	id, seller_id, product_id, feature_type, duration_days, price, status,
	start_date, end_date, specifications, rejection_reason, reviewed_by,
	product_flag, created_at, updated_at`

// FeatureStore persists promotional features. Features are never deleted;
// status only moves through guarded updates.
type FeatureStore struct {
	db *sqlx.DB
}

// NewFeatureStore creates a FeatureStore.
func NewFeatureStore(db *sqlx.DB) *FeatureStore {
	return &FeatureStore{db: db}
}

// Insert stores a new feature.
func (s *FeatureStore) Insert(ctx context.Context, f models.PromotionalFeature) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO promotional_features (`+featureColumns+`)
		VALUES (:id, :seller_id, :product_id, :feature_type, :duration_days, :price, :status,
			:start_date, :end_date, :specifications, :rejection_reason, :reviewed_by,
			:product_flag, :created_at, :updated_at)`, f)
	return apperr.Persistence("insert promotional feature", err)
}

// Get loads one feature through q.
func (s *FeatureStore) Get(ctx context.Context, q sqlx.QueryerContext, id string) (models.PromotionalFeature, error) {
	var f models.PromotionalFeature
	err := sqlx.GetContext(ctx, q, &f, "SELECT "+featureColumns+" FROM promotional_features WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.PromotionalFeature{}, apperr.NewNotFound("promotional feature", id)
	}
	if err != nil {
		return models.PromotionalFeature{}, apperr.Persistence("get promotional feature", err)
	}
	return f, nil
}

// ListByStatus returns features in status, oldest request first.
func (s *FeatureStore) ListByStatus(ctx context.Context, status models.FeatureStatus) ([]models.PromotionalFeature, error) {
	return s.list(ctx, "WHERE status = ? ORDER BY created_at ASC, id ASC", status)
}

// ListByProduct returns every feature of a product, newest first.
func (s *FeatureStore) ListByProduct(ctx context.Context, productID string) ([]models.PromotionalFeature, error) {
	return s.list(ctx, "WHERE product_id = ? ORDER BY created_at DESC, id DESC", productID)
}

// ListBySeller returns every feature of a seller, newest first.
func (s *FeatureStore) ListBySeller(ctx context.Context, sellerID string) ([]models.PromotionalFeature, error) {
	return s.list(ctx, "WHERE seller_id = ? ORDER BY created_at DESC, id DESC", sellerID)
}

// ListEnded returns active features whose end date is before now.
func (s *FeatureStore) ListEnded(ctx context.Context, now time.Time) ([]models.PromotionalFeature, error) {
	return s.list(ctx, "WHERE status = ? AND end_date < ? ORDER BY end_date ASC, id ASC",
		models.StatusActive, now.UTC())
}

// HasOpenRequest reports whether the product already has a pending or
// active feature of featureType.
func (s *FeatureStore) HasOpenRequest(ctx context.Context, productID, featureType string) (bool, error) {
	var n int
	err := s.db.GetContext(ctx, &n, `
		SELECT COUNT(*) FROM promotional_features
		WHERE product_id = ? AND feature_type = ? AND status IN (?, ?)`,
		productID, featureType, models.StatusPendingApproval, models.StatusActive)
	if err != nil {
		return false, apperr.Persistence("check open promotional features", err)
	}
	return n > 0, nil
}

// CountActiveWithFlag counts the product's active features that were granted
// flag at approval.
func (s *FeatureStore) CountActiveWithFlag(ctx context.Context, q sqlx.QueryerContext, productID string, flag models.ProductFlag) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, q, &n, `
		SELECT COUNT(*) FROM promotional_features
		WHERE product_id = ? AND status = ? AND product_flag = ?`,
		productID, models.StatusActive, flag)
	if err != nil {
		return 0, apperr.Persistence("count active promotional features", err)
	}
	return n, nil
}

// transition is a guarded status change: it only applies while the row is
// still in from. The boolean reports whether a row changed.
type transition struct {
	id        string
	from      models.FeatureStatus
	to        models.FeatureStatus
	startDate *time.Time
	endDate   *time.Time
	reason    *string
	reviewer  *string
	flag      *models.ProductFlag
	at        time.Time
}

func (s *FeatureStore) apply(ctx context.Context, e sqlx.ExecerContext, t transition) (bool, error) {
	res, err := e.ExecContext(ctx, `
		UPDATE promotional_features SET
			status = ?,
			start_date = COALESCE(?, start_date),
			end_date = COALESCE(?, end_date),
			rejection_reason = COALESCE(?, rejection_reason),
			reviewed_by = COALESCE(?, reviewed_by),
			product_flag = COALESCE(?, product_flag),
			updated_at = ?
		WHERE id = ? AND status = ?`,
		t.to, utcPtr(t.startDate), utcPtr(t.endDate), t.reason, t.reviewer, t.flag, t.at.UTC(), t.id, t.from)
	if err != nil {
		return false, apperr.Persistence("update promotional feature status", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, apperr.Persistence("update promotional feature status", err)
	}
	return n > 0, nil
}

func (s *FeatureStore) list(ctx context.Context, clause string, args ...interface{}) ([]models.PromotionalFeature, error) {
	out := []models.PromotionalFeature{}
	if err := s.db.SelectContext(ctx, &out, "SELECT "+featureColumns+" FROM promotional_features "+clause, args...); err != nil {
		return nil, apperr.Persistence("list promotional features", err)
	}
	return out, nil
}

func utcPtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC()
}
