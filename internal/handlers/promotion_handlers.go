package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/artisanmarket/promo-engine/internal/audit"
	"github.com/artisanmarket/promo-engine/internal/middleware"
	"github.com/artisanmarket/promo-engine/internal/promotion"
)

//
// --- Seller: Promotion Requests ---
//

// CreatePromotion is the handler for POST /v1/promotions
// It stores a pending request for one of the seller's products.
func (h *Handlers) CreatePromotion(c *gin.Context) {
	// 1. --- Bind Input ---
	var input promotion.CreateFeatureInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}

	// 2. --- Create Request ---
	feature, err := h.Promotions.Create(c.Request.Context(), middleware.ActorFromContext(c), input)
	if err != nil {
		respondError(c, err)
		return
	}

	// 3. --- Send Success Response ---
	c.JSON(http.StatusCreated, gin.H{"feature": feature})
}

// QuotePromotion is the handler for GET /v1/promotions/quote?featureType=&days=
func (h *Handlers) QuotePromotion(c *gin.Context) {
	var query struct {
		FeatureType string `form:"featureType"`
		Days        int    `form:"days"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		badRequest(c, err)
		return
	}

	price, err := h.Catalog.Quote(c.Request.Context(), query.FeatureType, query.Days)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"featureType":  promotion.NormalizeFeatureType(query.FeatureType),
		"durationDays": query.Days,
		"price":        price.StringFixed(2),
	})
}

// GetMyPromotions is the handler for GET /v1/promotions/mine
func (h *Handlers) GetMyPromotions(c *gin.Context) {
	features, err := h.Promotions.ListMine(c.Request.Context(), middleware.ActorFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"features": features})
}

// GetProductPromotions is the handler for GET /v1/products/:id/promotions
func (h *Handlers) GetProductPromotions(c *gin.Context) {
	features, err := h.Promotions.ListByProduct(c.Request.Context(), middleware.ActorFromContext(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"features": features})
}

// CancelPromotion is the handler for POST /v1/promotions/:id/cancel
// Sellers may cancel their pending requests; admins may also cancel
// active features.
func (h *Handlers) CancelPromotion(c *gin.Context) {
	feature, err := h.Promotions.Cancel(c.Request.Context(), middleware.ActorFromContext(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Promotion cancelled", "feature": feature})
}

//
// --- Admin: Promotion Review ---
//

// GetPendingPromotions is the handler for GET /v1/promotions/pending
// It returns the requests awaiting review, oldest first.
func (h *Handlers) GetPendingPromotions(c *gin.Context) {
	features, err := h.Promotions.ListPending(c.Request.Context(), middleware.ActorFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"features": features})
}

// ApprovePromotion is the handler for POST /v1/promotions/:id/approve
// It charges the seller's wallet and activates the feature.
func (h *Handlers) ApprovePromotion(c *gin.Context) {
	feature, err := h.Promotions.Approve(c.Request.Context(), middleware.ActorFromContext(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Promotion approved", "feature": feature})
}

// RejectPromotion is the handler for POST /v1/promotions/:id/reject
func (h *Handlers) RejectPromotion(c *gin.Context) {
	var input promotion.RejectInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}

	feature, err := h.Promotions.Reject(c.Request.Context(), middleware.ActorFromContext(c), c.Param("id"), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Promotion rejected", "feature": feature})
}

// ExpirePromotions is the handler for POST /v1/admin/promotions/expire
// It runs the expiration sweep on demand.
func (h *Handlers) ExpirePromotions(c *gin.Context) {
	actor := middleware.ActorFromContext(c)

	result, err := h.Promotions.ExpireDue(c.Request.Context(), h.now())
	if err != nil {
		respondError(c, err)
		return
	}

	h.Audit.Record(c.Request.Context(), actor, audit.ActionExpireFeatures, audit.TargetFeature, "batch",
		nil, result, "Manual promotional feature expiration sweep")
	c.JSON(http.StatusOK, result)
}

//
// --- Admin: Pricing Catalog ---
//

// GetPricing is the handler for GET /v1/promotions/pricing
func (h *Handlers) GetPricing(c *gin.Context) {
	rows, err := h.Catalog.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pricing": rows})
}

// UpdatePricing is the handler for PUT /v1/promotions/pricing
// It creates or replaces one catalog row.
func (h *Handlers) UpdatePricing(c *gin.Context) {
	var input promotion.PricingInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}

	row, err := h.Catalog.Upsert(c.Request.Context(), middleware.ActorFromContext(c), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pricing": row})
}

// InitializePricing is the handler for POST /v1/promotions/pricing/initialize
// It seeds the default catalog rows that are missing.
func (h *Handlers) InitializePricing(c *gin.Context) {
	created, err := h.Catalog.InitializeDefaults(c.Request.Context(), middleware.ActorFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Promotional pricing initialized", "created": created})
}
