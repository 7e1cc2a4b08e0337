package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/artisanmarket/promo-engine/internal/apperr"
	"github.com/artisanmarket/promo-engine/internal/models"
)

// Revenue record types and statuses.
const (
	RevenuePromotionalFeature = "promotional_feature"
	RevenueStatusCompleted    = "completed"
)

// Revenue is the append-only platform revenue ledger.
type Revenue struct {
	db *sqlx.DB
}

// NewRevenue creates a Revenue ledger.
func NewRevenue(db *sqlx.DB) *Revenue {
	return &Revenue{db: db}
}

// RecordTx appends a completed revenue record inside the caller's
// transaction. Each feature can be recorded once.
func (r *Revenue) RecordTx(ctx context.Context, tx *sqlx.Tx, recordType string, amount decimal.Decimal, paidAt time.Time, featureID, sellerID string) (models.RevenueRecord, error) {
	rec := models.RevenueRecord{
		ID:          uuid.NewString(),
		Type:        recordType,
		GrossAmount: amount,
		PaymentDate: paidAt.UTC(),
		Status:      RevenueStatusCompleted,
		FeatureID:   featureID,
		SellerID:    sellerID,
		CreatedAt:   paidAt.UTC(),
	}
	_, err := tx.NamedExecContext(ctx, `
		INSERT INTO revenue_records
			(id, type, gross_amount, payment_date, status, feature_id, seller_id, created_at)
		VALUES
			(:id, :type, :gross_amount, :payment_date, :status, :feature_id, :seller_id, :created_at)`, rec)
	if err != nil {
		return models.RevenueRecord{}, apperr.Persistence("record revenue", err)
	}
	return rec, nil
}

// List returns revenue records, newest first, optionally for one seller.
func (r *Revenue) List(ctx context.Context, sellerID string, limit int) ([]models.RevenueRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query := `
		SELECT id, type, gross_amount, payment_date, status, feature_id, seller_id, created_at
		FROM revenue_records`
	args := []interface{}{}
	if sellerID != "" {
		query += " WHERE seller_id = ?"
		args = append(args, sellerID)
	}
	query += " ORDER BY payment_date DESC, id DESC LIMIT ?"
	args = append(args, limit)

	out := []models.RevenueRecord{}
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, apperr.Persistence("list revenue records", err)
	}
	return out, nil
}

// Total sums the gross amount of every completed record.
func (r *Revenue) Total(ctx context.Context) (decimal.Decimal, error) {
	var amounts []decimal.Decimal
	if err := r.db.SelectContext(ctx, &amounts,
		"SELECT gross_amount FROM revenue_records WHERE status = ?", RevenueStatusCompleted); err != nil {
		return decimal.Zero, apperr.Persistence("sum revenue", err)
	}
	return decimal.Sum(decimal.Zero, amounts...), nil
}
