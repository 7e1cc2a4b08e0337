package promotion

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/artisanmarket/promo-engine/internal/apperr"
	"github.com/artisanmarket/promo-engine/internal/audit"
	"github.com/artisanmarket/promo-engine/internal/database/dbtest"
	"github.com/artisanmarket/promo-engine/internal/inventory"
	"github.com/artisanmarket/promo-engine/internal/ledger"
	"github.com/artisanmarket/promo-engine/internal/models"
	"github.com/artisanmarket/promo-engine/internal/notify"
)

var (
	seller = models.Actor{UserID: "seller-1", Role: models.RoleSeller}
	admin  = models.Actor{UserID: "admin-1", Role: models.RoleAdmin, IPAddress: "10.0.0.9", RequestID: "req-1"}
)

type harness struct {
	t        *testing.T
	ctx      context.Context
	now      time.Time
	db       *sqlx.DB
	catalog  *Catalog
	features *FeatureStore
	products *inventory.Store
	wallets  *ledger.Wallets
	revenue  *ledger.Revenue
	audits   *audit.Store
	notifier *notify.Notifier
	lc       *Lifecycle
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{t: t, ctx: context.Background(), now: time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)}
	clock := func() time.Time { return h.now }

	h.db = dbtest.New(t)
	h.audits = audit.NewStore(h.db)
	auditLog := audit.NewLog(h.audits, clock)
	h.catalog = NewCatalog(h.db, auditLog, clock)
	h.features = NewFeatureStore(h.db)
	h.products = inventory.NewStore(h.db, clock)
	h.wallets = ledger.NewWallets(h.db, clock)
	h.revenue = ledger.NewRevenue(h.db)
	h.notifier = notify.New(h.db, clock)
	h.lc = NewLifecycle(Deps{
		DB:       h.db,
		Features: h.features,
		Catalog:  h.catalog,
		Products: h.products,
		Wallets:  h.wallets,
		Revenue:  h.revenue,
		Audit:    auditLog,
		Notifier: h.notifier,
		Now:      clock,
	})

	_, err := h.catalog.InitializeDefaults(h.ctx, admin)
	require.NoError(t, err)
	return h
}

func (h *harness) product(id, sellerID string) models.Product {
	h.t.Helper()
	p, err := h.products.Create(h.ctx, models.Product{
		ID: id, SellerID: sellerID, Name: "Hand-thrown mug", FulfillmentType: models.ReadyToShip, Stock: 12,
	})
	require.NoError(h.t, err)
	return p
}

func (h *harness) fund(sellerID, amount string) {
	h.t.Helper()
	_, err := h.wallets.Credit(h.ctx, sellerID, decimal.RequireFromString(amount), models.TxTypeTopUp, "test top-up", nil)
	require.NoError(h.t, err)
}

func (h *harness) balance(sellerID string) decimal.Decimal {
	h.t.Helper()
	b, err := h.wallets.Balance(h.ctx, sellerID)
	require.NoError(h.t, err)
	return b
}

func (h *harness) request(productID, featureType string, days int) models.PromotionalFeature {
	h.t.Helper()
	f, err := h.lc.Create(h.ctx, seller, CreateFeatureInput{ProductID: productID, FeatureType: featureType, DurationDays: days})
	require.NoError(h.t, err)
	return f
}

func (h *harness) feature(id string) models.PromotionalFeature {
	h.t.Helper()
	f, err := h.features.Get(h.ctx, h.db, id)
	require.NoError(h.t, err)
	return f
}

func (h *harness) reload(id string) models.Product {
	h.t.Helper()
	p, err := h.products.Get(h.ctx, h.db, id)
	require.NoError(h.t, err)
	return p
}

func (h *harness) auditCount(action string) int {
	h.t.Helper()
	page, err := h.audits.List(h.ctx, audit.Filter{Action: action})
	require.NoError(h.t, err)
	return page.Total
}

func codeOf(err error) apperr.Code {
	c, _ := apperr.CodeOf(err)
	return c
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// racingWallets loses the wallet version race a fixed number of times
// before debiting for real.
type racingWallets struct {
	*ledger.Wallets
	losses int
	calls  int
}

func (w *racingWallets) DebitTx(ctx context.Context, tx *sqlx.Tx, sellerID string, amount decimal.Decimal, txType, reason string, referenceID *string) (models.WalletTransaction, error) {
	w.calls++
	if w.losses > 0 {
		w.losses--
		return models.WalletTransaction{}, &apperr.StaleStateError{
			Resource: ledger.ResourceWallet, ID: sellerID, Current: "modified concurrently", Expected: []string{"unchanged"},
		}
	}
	return w.Wallets.DebitTx(ctx, tx, sellerID, amount, txType, reason, referenceID)
}
