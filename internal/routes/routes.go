package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/artisanmarket/promo-engine/internal/handlers"
	"github.com/artisanmarket/promo-engine/internal/metrics"
	"github.com/artisanmarket/promo-engine/internal/middleware"
	"github.com/artisanmarket/promo-engine/internal/models"
)

// CORSMiddleware lets the configured browser origin call the API with
// bearer tokens.
func CORSMiddleware(origin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, PATCH")

		// Preflight requests stop here.
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// SetupRouter registers every route on a new engine.
func SetupRouter(h *handlers.Handlers, jwtSecret, corsOrigin string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger())
	router.Use(CORSMiddleware(corsOrigin))

	// --- Operations (Public) ---
	router.GET("/healthz", h.Healthz)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	v1 := router.Group("/v1")
	{
		v1.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"message": "pong!"})
		})

		// --- Protected Routes (Login Required) ---
		auth := v1.Group("/")
		auth.Use(middleware.AuthMiddleware(jwtSecret))
		{
			auth.GET("/notifications", h.GetMyNotifications)
			auth.PATCH("/notifications/:id/read", h.MarkNotificationAsRead)

			// --- Catalog (any signed-in user) ---
			auth.GET("/promotions/pricing", h.GetPricing)
			auth.GET("/promotions/quote", h.QuotePromotion)

			// --- Seller Or Admin ---
			owner := auth.Group("/")
			owner.Use(middleware.RequireRole(models.RoleSeller, models.RoleAdmin))
			{
				owner.GET("/products/:id/promotions", h.GetProductPromotions)
				owner.GET("/products/:id/inventory", h.GetInventory)
				owner.PATCH("/products/:id/inventory", h.UpdateInventory)
				owner.POST("/promotions/:id/cancel", h.CancelPromotion)
			}

			// --- Seller-Only ---
			seller := auth.Group("/")
			seller.Use(middleware.RequireRole(models.RoleSeller))
			{
				seller.POST("/promotions", h.CreatePromotion)
				seller.GET("/promotions/mine", h.GetMyPromotions)
				seller.GET("/wallet/balance", h.GetWalletBalance)
				seller.GET("/wallet/transactions", h.GetWalletTransactions)
			}

			// --- Admin Review ---
			review := auth.Group("/promotions")
			review.Use(middleware.RequireRole(models.RoleAdmin))
			{
				review.GET("/pending", h.GetPendingPromotions)
				review.POST("/:id/approve", h.ApprovePromotion)
				review.POST("/:id/reject", h.RejectPromotion)
				review.PUT("/pricing", h.UpdatePricing)
				review.POST("/pricing/initialize", h.InitializePricing)
			}
		}

		// --- Admin-Only Routes ---
		admin := v1.Group("/admin")
		admin.Use(middleware.AuthMiddleware(jwtSecret))
		admin.Use(middleware.RequireRole(models.RoleAdmin))
		{
			admin.GET("/audit-logs", h.GetAuditLogs)
			admin.GET("/revenue", h.GetRevenue)
			admin.POST("/wallets/:sellerId/credit", h.CreditWallet)
			admin.POST("/inventory/restore", h.RestoreInventory)
			admin.POST("/promotions/expire", h.ExpirePromotions)
		}
	}

	return router
}
