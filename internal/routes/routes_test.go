package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artisanmarket/promo-engine/internal/audit"
	"github.com/artisanmarket/promo-engine/internal/auth"
	"github.com/artisanmarket/promo-engine/internal/database/dbtest"
	"github.com/artisanmarket/promo-engine/internal/handlers"
	"github.com/artisanmarket/promo-engine/internal/inventory"
	"github.com/artisanmarket/promo-engine/internal/ledger"
	"github.com/artisanmarket/promo-engine/internal/models"
	"github.com/artisanmarket/promo-engine/internal/notify"
	"github.com/artisanmarket/promo-engine/internal/promotion"
)

const (
	testSecret = "routes-secret"
	testOrigin = "https://shop.example"
)

type server struct {
	t      *testing.T
	router *gin.Engine
	now    time.Time
}

func newServer(t *testing.T) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	s := &server{t: t, now: time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)}
	clock := func() time.Time { return s.now }

	db := dbtest.New(t)
	auditStore := audit.NewStore(db)
	auditLog := audit.NewLog(auditStore, clock)
	products := inventory.NewStore(db, clock)
	catalog := promotion.NewCatalog(db, auditLog, clock)
	wallets := ledger.NewWallets(db, clock)
	revenue := ledger.NewRevenue(db)
	notifier := notify.New(db, clock)

	_, err := products.Create(context.Background(), models.Product{
		ID: "p-1", SellerID: "seller-1", Name: "Walnut serving board", FulfillmentType: models.ReadyToShip, Stock: 8,
	})
	require.NoError(t, err)

	h := &handlers.Handlers{
		Inventory: inventory.NewService(products, inventory.NewScheduler(products, inventory.WithClock(clock)), auditLog),
		Catalog:   catalog,
		Promotions: promotion.NewLifecycle(promotion.Deps{
			DB: db, Features: promotion.NewFeatureStore(db), Catalog: catalog, Products: products,
			Wallets: wallets, Revenue: revenue, Audit: auditLog, Notifier: notifier, Now: clock,
		}),
		Wallets:    wallets,
		Revenue:    revenue,
		Audit:      auditLog,
		AuditStore: auditStore,
		Notifier:   notifier,
		Now:        clock,
	}
	s.router = SetupRouter(h, testSecret, testOrigin)
	return s
}

func (s *server) do(method, path, userID, role string, body interface{}) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		tok, err := auth.GenerateToken(testSecret, userID, role)
		require.NoError(s.t, err)
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *server) seller(method, path string, body interface{}) *httptest.ResponseRecorder {
	return s.do(method, path, "seller-1", models.RoleSeller, body)
}

func (s *server) admin(method, path string, body interface{}) *httptest.ResponseRecorder {
	return s.do(method, path, "admin-1", models.RoleAdmin, body)
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	decode(t, w, &body)
	return body.Error.Code
}

func TestPromotionFlow(t *testing.T) {
	s := newServer(t)

	// 1. --- Catalog And Funds ---
	w := s.admin(http.MethodPost, "/v1/promotions/pricing/initialize", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.admin(http.MethodPost, "/v1/admin/wallets/seller-1/credit", gin.H{"amount": "50", "reason": "launch credit"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.seller(http.MethodGet, "/v1/promotions/quote?featureType=Sponsored&days=7", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var quote struct {
		FeatureType string `json:"featureType"`
		Price       string `json:"price"`
	}
	decode(t, w, &quote)
	assert.Equal(t, "sponsored", quote.FeatureType)
	assert.Equal(t, "40.00", quote.Price)

	// 2. --- Seller Request ---
	w = s.seller(http.MethodPost, "/v1/promotions", gin.H{"productId": "p-1", "featureType": "sponsored", "durationDays": 7})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		Feature models.PromotionalFeature `json:"feature"`
	}
	decode(t, w, &created)
	featureID := created.Feature.ID
	assert.Equal(t, models.StatusPendingApproval, created.Feature.Status)

	w = s.seller(http.MethodGet, "/v1/promotions/pending", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	var pending struct {
		Features []models.PromotionalFeature `json:"features"`
	}
	w = s.admin(http.MethodGet, "/v1/promotions/pending", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &pending)
	require.Len(t, pending.Features, 1)

	// 3. --- Approve ---
	w = s.admin(http.MethodPost, "/v1/promotions/"+featureID+"/approve", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.admin(http.MethodPost, "/v1/promotions/"+featureID+"/approve", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "stale_state", errorCode(t, w))

	w = s.seller(http.MethodGet, "/v1/wallet/balance", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var balance struct {
		Balance string `json:"balance"`
	}
	decode(t, w, &balance)
	assert.Equal(t, "10.00", balance.Balance)

	// 4. --- Insufficient Funds ---
	w = s.seller(http.MethodPost, "/v1/promotions", gin.H{"productId": "p-1", "featureType": "featured", "durationDays": 3})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	decode(t, w, &created)
	w = s.admin(http.MethodPost, "/v1/promotions/"+created.Feature.ID+"/approve", nil)
	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Equal(t, "insufficient_funds", errorCode(t, w))

	// 5. --- Audit Trail ---
	w = s.admin(http.MethodGet, "/v1/admin/audit-logs?action=approve_promotional_feature", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var page audit.Page
	decode(t, w, &page)
	require.Equal(t, 1, page.Total)
	assert.Equal(t, featureID, page.Entries[0].TargetID)

	// 6. --- Expire ---
	s.now = s.now.Add(8 * 24 * time.Hour)
	w = s.admin(http.MethodPost, "/v1/admin/promotions/expire", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var expired promotion.ExpireResult
	decode(t, w, &expired)
	assert.Equal(t, []string{featureID}, expired.Expired)

	w = s.admin(http.MethodGet, "/v1/admin/revenue", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var rev struct {
		Total string `json:"total"`
	}
	decode(t, w, &rev)
	assert.Equal(t, "40.00", rev.Total)

	w = s.seller(http.MethodGet, "/v1/notifications", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var notes struct {
		Notifications []models.Notification `json:"notifications"`
	}
	decode(t, w, &notes)
	assert.Len(t, notes.Notifications, 2)
}

func TestRejectRequiresReason(t *testing.T) {
	s := newServer(t)
	require.Equal(t, http.StatusOK, s.admin(http.MethodPost, "/v1/promotions/pricing/initialize", nil).Code)

	w := s.seller(http.MethodPost, "/v1/promotions", gin.H{"productId": "p-1", "featureType": "featured", "durationDays": 3})
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		Feature models.PromotionalFeature `json:"feature"`
	}
	decode(t, w, &created)

	w = s.admin(http.MethodPost, "/v1/promotions/"+created.Feature.ID+"/reject", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation_error", errorCode(t, w))

	w = s.admin(http.MethodPost, "/v1/promotions/"+created.Feature.ID+"/reject", gin.H{"reason": "Photos are blurry"})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.admin(http.MethodPost, "/v1/promotions/missing/approve", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestInventoryRoutes(t *testing.T) {
	s := newServer(t)

	w := s.seller(http.MethodGet, "/v1/products/p-1/inventory", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var view inventory.View
	decode(t, w, &view)
	assert.Equal(t, "in stock", view.Display.Unit)

	w = s.seller(http.MethodPatch, "/v1/products/p-1/inventory", gin.H{"field": "stock", "value": 3})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &view)
	assert.Equal(t, 3, view.Product.Stock)

	w = s.seller(http.MethodPatch, "/v1/products/p-1/inventory", gin.H{"field": "remainingCapacity", "value": 3})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/v1/products/p-1/inventory", "seller-2", models.RoleSeller, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.admin(http.MethodPost, "/v1/admin/inventory/restore", gin.H{"productIds": []string{"p-1"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestAccessControl(t *testing.T) {
	s := newServer(t)

	w := s.do(http.MethodGet, "/v1/wallet/balance", "", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodGet, "/v1/wallet/balance", "buyer-1", models.RoleBuyer, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.seller(http.MethodGet, "/v1/admin/audit-logs", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.seller(http.MethodPut, "/v1/promotions/pricing", gin.H{"featureType": "x", "productFlag": "none"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestOperationalRoutes(t *testing.T) {
	s := newServer(t)

	w := s.do(http.MethodGet, "/healthz", "", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"auditDroppedEvents":0`)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = s.do(http.MethodGet, "/metrics", "", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	req := httptest.NewRequest(http.MethodOptions, "/v1/promotions", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, testOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
}
