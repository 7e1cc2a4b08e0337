package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/artisanmarket/promo-engine/internal/inventory"
	"github.com/artisanmarket/promo-engine/internal/middleware"
)

//
// --- Inventory Handlers ---
//

// GetInventory is the handler for GET /v1/products/:id/inventory
// It returns the product with its display data.
func (h *Handlers) GetInventory(c *gin.Context) {
	view, err := h.Inventory.Get(c.Request.Context(), middleware.ActorFromContext(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// UpdateInventory is the handler for PATCH /v1/products/:id/inventory
// The body names one field and its new value.
func (h *Handlers) UpdateInventory(c *gin.Context) {
	// 1. --- Bind Input ---
	var input inventory.UpdateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}

	// 2. --- Validate And Apply ---
	view, err := h.Inventory.Update(c.Request.Context(), middleware.ActorFromContext(c), c.Param("id"), input)
	if err != nil {
		respondError(c, err)
		return
	}

	// 3. --- Send Success Response ---
	c.JSON(http.StatusOK, view)
}

// RestoreInventory is the handler for POST /v1/admin/inventory/restore
// It runs a restoration check for the listed products right away.
func (h *Handlers) RestoreInventory(c *gin.Context) {
	var input inventory.RestoreInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}

	restored, err := h.Inventory.Restore(c.Request.Context(), middleware.ActorFromContext(c), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"restored": restored})
}
