package promotion

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/artisanmarket/promo-engine/internal/apperr"
	"github.com/artisanmarket/promo-engine/internal/audit"
	"github.com/artisanmarket/promo-engine/internal/database"
	"github.com/artisanmarket/promo-engine/internal/inventory"
	"github.com/artisanmarket/promo-engine/internal/ledger"
	"github.com/artisanmarket/promo-engine/internal/metrics"
	"github.com/artisanmarket/promo-engine/internal/models"
	"github.com/artisanmarket/promo-engine/internal/notify"
	"github.com/artisanmarket/promo-engine/internal/validation"
)

// CreateFeatureInput is a seller's promotion request.
type CreateFeatureInput struct {
	ProductID      string                       `json:"productId" validate:"required,max=64"`
	FeatureType    string                       `json:"featureType" validate:"required,max=64"`
	DurationDays   int                          `json:"durationDays" validate:"required,gte=1,lte=365"`
	Specifications models.FeatureSpecifications `json:"specifications"`
}

// RejectInput carries the reason shown to the seller.
type RejectInput struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// ExpireResult summarizes one expiration sweep.
type ExpireResult struct {
	Expired []string `json:"expired"`
	Failed  int      `json:"failed"`
}

// Deps are the collaborators of a Lifecycle.
type Deps struct {
	DB       *sqlx.DB
	Features *FeatureStore
	Catalog  *Catalog
	Products *inventory.Store
	Wallets  *ledger.Wallets
	Revenue  *ledger.Revenue
	Audit    *audit.Log
	Notifier *notify.Notifier
	Now      func() time.Time
}

// walletDebiter is the part of *ledger.Wallets that Approve needs.
type walletDebiter interface {
	DebitTx(ctx context.Context, tx *sqlx.Tx, sellerID string, amount decimal.Decimal, txType, reason string, referenceID *string) (models.WalletTransaction, error)
}

// approveAttempts bounds how often Approve rereads a wallet that changed
// under it.
const approveAttempts = 2

// Lifecycle is the promotional-feature state machine:
//
//	pending_approval -> active | rejected | cancelled
//	active           -> expired | cancelled
//
// rejected, expired and cancelled are terminal.
type Lifecycle struct {
	db       *sqlx.DB
	features *FeatureStore
	catalog  *Catalog
	products *inventory.Store
	wallets  walletDebiter
	revenue  *ledger.Revenue
	audit    *audit.Log
	notifier *notify.Notifier
	now      func() time.Time
}

// NewLifecycle wires a Lifecycle.
func NewLifecycle(d Deps) *Lifecycle {
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Lifecycle{
		db:       d.DB,
		features: d.Features,
		catalog:  d.Catalog,
		products: d.Products,
		wallets:  d.Wallets,
		revenue:  d.Revenue,
		audit:    d.Audit,
		notifier: d.Notifier,
		now:      d.Now,
	}
}

// Create stores a pending request priced through Cost. No funds are held.
func (l *Lifecycle) Create(ctx context.Context, actor models.Actor, in CreateFeatureInput) (models.PromotionalFeature, error) {
	// 1. --- Validate Input ---
	if actor.Role != models.RoleSeller {
		return models.PromotionalFeature{}, &apperr.ForbiddenError{Reason: "only sellers can request promotions"}
	}
	if err := validation.Struct(in); err != nil {
		return models.PromotionalFeature{}, err
	}

	// 2. --- Check Product Ownership ---
	product, err := l.products.Get(ctx, l.db, in.ProductID)
	if err != nil {
		return models.PromotionalFeature{}, err
	}
	if product.SellerID != actor.UserID {
		return models.PromotionalFeature{}, &apperr.ForbiddenError{Reason: "product belongs to another seller"}
	}

	// 3. --- Price The Request ---
	pricing, err := l.catalog.Pricing(ctx, in.FeatureType)
	var nf *apperr.NotFoundError
	if errors.As(err, &nf) {
		return models.PromotionalFeature{}, apperr.NewValidation("featureType", "is not a known promotional feature")
	}
	if err != nil {
		return models.PromotionalFeature{}, err
	}
	if !pricing.IsActive {
		return models.PromotionalFeature{}, apperr.NewValidation("featureType", "is not currently offered")
	}

	open, err := l.features.HasOpenRequest(ctx, product.ID, pricing.FeatureType)
	if err != nil {
		return models.PromotionalFeature{}, err
	}
	if open {
		return models.PromotionalFeature{}, apperr.NewValidation("featureType", "already has a pending or active request for this product")
	}

	// 4. --- Insert Pending Feature ---
	now := l.now().UTC()
	f := models.PromotionalFeature{
		ID:             uuid.NewString(),
		SellerID:       actor.UserID,
		ProductID:      product.ID,
		FeatureType:    pricing.FeatureType,
		DurationDays:   in.DurationDays,
		Price:          Cost(pricing, in.DurationDays),
		Status:         models.StatusPendingApproval,
		Specifications: in.Specifications,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := l.features.Insert(ctx, f); err != nil {
		return models.PromotionalFeature{}, err
	}

	metrics.FeatureTransition(string(f.Status))
	log.WithFields(log.Fields{
		"featureId":   f.ID,
		"sellerId":    f.SellerID,
		"productId":   f.ProductID,
		"featureType": f.FeatureType,
		"price":       f.Price.StringFixed(2),
	}).Info("Promotional feature requested")
	return f, nil
}

// Approve activates a pending feature. The wallet debit, the activation,
// the product flag and the revenue record commit together or not at all.
// The audit entry is written after the commit.
func (l *Lifecycle) Approve(ctx context.Context, actor models.Actor, featureID string) (models.PromotionalFeature, error) {
	if !actor.IsAdmin() {
		return models.PromotionalFeature{}, &apperr.ForbiddenError{Reason: "only admins can approve promotions"}
	}

	var before, after models.PromotionalFeature
	var err error
	for attempt := 1; attempt <= approveAttempts; attempt++ {
		before, after, err = l.approveTx(ctx, actor, featureID)
		if !ledger.IsConflict(err) {
			break
		}
		log.WithError(err).WithFields(log.Fields{"featureId": featureID, "attempt": attempt}).
			Warn("Wallet changed during approval")
	}
	if ledger.IsConflict(err) {
		// The feature is still pending; this is a retryable storage failure.
		err = &apperr.PersistenceError{Op: "approve promotional feature", Err: errors.New(err.Error())}
	}
	if err != nil {
		log.WithError(err).WithFields(log.Fields{"featureId": featureID, "adminUser": actor.UserID}).
			Info("Promotional feature approval refused")
		return models.PromotionalFeature{}, apperr.Persistence("approve promotional feature", err)
	}

	// 5. --- After Commit: Audit And Notify ---
	metrics.FeatureTransition(string(models.StatusActive))
	l.audit.Record(ctx, actor, audit.ActionApproveFeature, audit.TargetFeature, after.ID,
		statusSnapshot(before), statusSnapshot(after),
		fmt.Sprintf("Approved %s for product %s, charged %s", after.FeatureType, after.ProductID, after.Price.StringFixed(2)))
	l.notifier.Send(ctx, after.SellerID,
		fmt.Sprintf("Your %s promotion is now active until %s.", after.FeatureType, after.EndDate.Format("2006-01-02")),
		"/promotions/"+after.ID)
	return after, nil
}

// approveTx runs one approval attempt in its own transaction.
func (l *Lifecycle) approveTx(ctx context.Context, actor models.Actor, featureID string) (before, after models.PromotionalFeature, err error) {
	err = database.WithTx(ctx, l.db, func(tx *sqlx.Tx) error {
		// 1. --- Load And Guard ---
		f, err := l.features.Get(ctx, tx, featureID)
		if err != nil {
			return err
		}
		if f.Status != models.StatusPendingApproval {
			return staleFeature(f, models.StatusPendingApproval)
		}
		before = f

		pricing, err := l.catalog.GetPricing(ctx, tx, f.FeatureType)
		if err != nil {
			return err
		}

		// 2. --- Debit Wallet ---
		if f.Price.IsPositive() {
			ref := f.ID
			reason := fmt.Sprintf("Promotional feature %s (%d days)", f.FeatureType, f.DurationDays)
			if _, err := l.wallets.DebitTx(ctx, tx, f.SellerID, f.Price, models.TxTypeFeatureDebit, reason, &ref); err != nil {
				return err
			}
		}

		// 3. --- Activate ---
		start := l.now().UTC()
		end := start.Add(time.Duration(f.DurationDays) * 24 * time.Hour)
		changed, err := l.features.apply(ctx, tx, transition{
			id: f.ID, from: models.StatusPendingApproval, to: models.StatusActive,
			startDate: &start, endDate: &end, reviewer: &actor.UserID, flag: &pricing.ProductFlag, at: start,
		})
		if err != nil {
			return err
		}
		if !changed {
			return staleFeature(f, models.StatusPendingApproval)
		}

		// 4. --- Flag Product And Record Revenue ---
		if err := l.products.SetFlag(ctx, tx, f.ProductID, pricing.ProductFlag, true); err != nil {
			return err
		}
		if f.Price.IsPositive() {
			if _, err := l.revenue.RecordTx(ctx, tx, ledger.RevenuePromotionalFeature, f.Price, start, f.ID, f.SellerID); err != nil {
				return err
			}
		}

		after = f
		after.Status = models.StatusActive
		after.StartDate, after.EndDate = &start, &end
		after.ReviewedBy = &actor.UserID
		after.ProductFlag = pricing.ProductFlag
		after.UpdatedAt = start
		return nil
	})
	return before, after, err
}

// Reject closes a pending request. Nothing is charged.
func (l *Lifecycle) Reject(ctx context.Context, actor models.Actor, featureID string, in RejectInput) (models.PromotionalFeature, error) {
	if !actor.IsAdmin() {
		return models.PromotionalFeature{}, &apperr.ForbiddenError{Reason: "only admins can reject promotions"}
	}
	if err := validation.Struct(in); err != nil {
		return models.PromotionalFeature{}, err
	}

	f, err := l.features.Get(ctx, l.db, featureID)
	if err != nil {
		return models.PromotionalFeature{}, err
	}
	if f.Status != models.StatusPendingApproval {
		return models.PromotionalFeature{}, staleFeature(f, models.StatusPendingApproval)
	}

	now := l.now().UTC()
	changed, err := l.features.apply(ctx, l.db, transition{
		id: f.ID, from: models.StatusPendingApproval, to: models.StatusRejected,
		reason: &in.Reason, reviewer: &actor.UserID, at: now,
	})
	if err != nil {
		return models.PromotionalFeature{}, err
	}
	if !changed {
		return models.PromotionalFeature{}, l.staleAfterRace(ctx, f.ID, models.StatusPendingApproval)
	}

	after := f
	after.Status = models.StatusRejected
	after.RejectionReason = &in.Reason
	after.ReviewedBy = &actor.UserID
	after.UpdatedAt = now

	metrics.FeatureTransition(string(models.StatusRejected))
	l.audit.Record(ctx, actor, audit.ActionRejectFeature, audit.TargetFeature, f.ID,
		statusSnapshot(f), statusSnapshot(after), "Rejected: "+in.Reason)
	l.notifier.Send(ctx, f.SellerID,
		fmt.Sprintf("Your %s promotion request was rejected. Reason: %s", f.FeatureType, in.Reason),
		"/promotions/"+f.ID)
	return after, nil
}

// Cancel ends a pending request (owner or admin) or an active feature
// (admin only). Cancelling an active feature does not refund the seller.
func (l *Lifecycle) Cancel(ctx context.Context, actor models.Actor, featureID string) (models.PromotionalFeature, error) {
	f, err := l.features.Get(ctx, l.db, featureID)
	if err != nil {
		return models.PromotionalFeature{}, err
	}

	switch f.Status {
	case models.StatusPendingApproval:
		if !actor.IsAdmin() && actor.UserID != f.SellerID {
			return models.PromotionalFeature{}, &apperr.ForbiddenError{Reason: "feature belongs to another seller"}
		}
	case models.StatusActive:
		if !actor.IsAdmin() {
			return models.PromotionalFeature{}, &apperr.ForbiddenError{Reason: "only admins can cancel an active promotion"}
		}
	default:
		return models.PromotionalFeature{}, staleFeature(f, models.StatusPendingApproval, models.StatusActive)
	}

	now := l.now().UTC()
	changed, err := l.features.apply(ctx, l.db, transition{
		id: f.ID, from: f.Status, to: models.StatusCancelled, at: now,
	})
	if err != nil {
		return models.PromotionalFeature{}, err
	}
	if !changed {
		return models.PromotionalFeature{}, l.staleAfterRace(ctx, f.ID, f.Status)
	}

	if f.Status == models.StatusActive {
		if err := l.releaseFlag(ctx, f); err != nil {
			log.WithError(err).WithField("featureId", f.ID).Warn("Failed to clear product flag after cancel, the next sweep retries")
		}
	}

	after := f
	after.Status = models.StatusCancelled
	after.UpdatedAt = now

	metrics.FeatureTransition(string(models.StatusCancelled))
	if actor.IsAdmin() {
		l.audit.Record(ctx, actor, audit.ActionCancelFeature, audit.TargetFeature, f.ID,
			statusSnapshot(f), statusSnapshot(after), "Cancelled promotional feature")
	}
	if actor.UserID != f.SellerID {
		l.notifier.Send(ctx, f.SellerID,
			fmt.Sprintf("Your %s promotion was cancelled by an administrator.", f.FeatureType),
			"/promotions/"+f.ID)
	}
	return after, nil
}

// ExpireDue moves every active feature whose end date is before now to
// expired. Each feature commits on its own; the product flag is released
// only after that commit and only if no other active feature grants it.
// A failed feature is logged and picked up by the next sweep.
func (l *Lifecycle) ExpireDue(ctx context.Context, now time.Time) (ExpireResult, error) {
	now = now.UTC()
	result := ExpireResult{Expired: []string{}}

	ended, err := l.features.ListEnded(ctx, now)
	if err != nil {
		return result, err
	}

	for _, f := range ended {
		if ctx.Err() != nil {
			break
		}
		changed, err := l.features.apply(ctx, l.db, transition{
			id: f.ID, from: models.StatusActive, to: models.StatusExpired, at: now,
		})
		if err != nil {
			result.Failed++
			log.WithError(err).WithField("featureId", f.ID).Warn("Failed to expire promotional feature, will retry next sweep")
			continue
		}
		if !changed {
			continue
		}
		result.Expired = append(result.Expired, f.ID)
		metrics.FeatureTransition(string(models.StatusExpired))

		if err := l.releaseFlag(ctx, f); err != nil {
			result.Failed++
			log.WithError(err).WithField("featureId", f.ID).Warn("Failed to clear product flag, will retry next sweep")
		}
		l.notifier.Send(ctx, f.SellerID,
			fmt.Sprintf("Your %s promotion has ended.", f.FeatureType), "/promotions/"+f.ID)
	}

	if err := l.reconcileFlags(ctx, now); err != nil {
		log.WithError(err).Warn("Failed to reconcile product promotion flags")
	}

	if len(result.Expired) > 0 || result.Failed > 0 {
		log.WithFields(log.Fields{"expired": len(result.Expired), "failed": result.Failed}).
			Info("Promotional feature expiration sweep finished")
	}
	return result, nil
}

// ListPending returns the requests awaiting review, oldest first.
func (l *Lifecycle) ListPending(ctx context.Context, actor models.Actor) ([]models.PromotionalFeature, error) {
	if !actor.IsAdmin() {
		return nil, &apperr.ForbiddenError{Reason: "only admins can review promotions"}
	}
	return l.features.ListByStatus(ctx, models.StatusPendingApproval)
}

// ListByProduct returns the features of a product the actor owns.
func (l *Lifecycle) ListByProduct(ctx context.Context, actor models.Actor, productID string) ([]models.PromotionalFeature, error) {
	product, err := l.products.Get(ctx, l.db, productID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && product.SellerID != actor.UserID {
		return nil, &apperr.ForbiddenError{Reason: "product belongs to another seller"}
	}
	return l.features.ListByProduct(ctx, productID)
}

// ListMine returns the actor's own features.
func (l *Lifecycle) ListMine(ctx context.Context, actor models.Actor) ([]models.PromotionalFeature, error) {
	return l.features.ListBySeller(ctx, actor.UserID)
}

// releaseFlag clears the flag f was granted at approval unless another
// active feature of the product still holds it. Later catalog edits do not
// change which flag is released.
func (l *Lifecycle) releaseFlag(ctx context.Context, f models.PromotionalFeature) error {
	if f.ProductFlag == "" || f.ProductFlag == models.FlagNone {
		return nil
	}
	n, err := l.features.CountActiveWithFlag(ctx, l.db, f.ProductID, f.ProductFlag)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	return l.products.SetFlag(ctx, l.db, f.ProductID, f.ProductFlag, false)
}

// reconcileFlags clears flags left set on products whose promotions have all
// ended, covering releases that failed in an earlier pass.
func (l *Lifecycle) reconcileFlags(ctx context.Context, now time.Time) error {
	for _, flag := range []models.ProductFlag{models.FlagFeatured, models.FlagSponsored} {
		column := "is_featured"
		if flag == models.FlagSponsored {
			column = "is_sponsored"
		}
		_, err := l.db.ExecContext(ctx, `
			UPDATE products SET `+column+` = 0, updated_at = ?
			WHERE `+column+` = 1
			  AND id IN (
				SELECT product_id FROM promotional_features
				WHERE status IN (?, ?) AND product_flag = ?)
			  AND NOT EXISTS (
				SELECT 1 FROM promotional_features f
				WHERE f.product_id = products.id AND f.status = ? AND f.product_flag = ?)`,
			now, models.StatusExpired, models.StatusCancelled, flag, models.StatusActive, flag)
		if err != nil {
			return apperr.Persistence("reconcile product flags", err)
		}
	}
	return nil
}

// staleAfterRace reloads a feature whose guarded update matched no row.
func (l *Lifecycle) staleAfterRace(ctx context.Context, id string, expected models.FeatureStatus) error {
	f, err := l.features.Get(ctx, l.db, id)
	if err != nil {
		return err
	}
	return staleFeature(f, expected)
}

func staleFeature(f models.PromotionalFeature, expected ...models.FeatureStatus) error {
	exp := make([]string, 0, len(expected))
	for _, s := range expected {
		exp = append(exp, string(s))
	}
	return &apperr.StaleStateError{Resource: "promotional feature", ID: f.ID, Current: string(f.Status), Expected: exp}
}

func statusSnapshot(f models.PromotionalFeature) map[string]interface{} {
	return map[string]interface{}{
		"status":    f.Status,
		"price":     f.Price.StringFixed(2),
		"startDate": f.StartDate,
		"endDate":   f.EndDate,
	}
}
