package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/artisanmarket/promo-engine/internal/audit"
)

// GetAuditLogs is the handler for GET /v1/admin/audit-logs
// Query: adminUser, action, targetType, targetId, from, to (RFC 3339), page, limit.
func (h *Handlers) GetAuditLogs(c *gin.Context) {
	var filter audit.Filter
	if err := c.ShouldBindQuery(&filter); err != nil {
		badRequest(c, err)
		return
	}

	page, err := h.AuditStore.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// GetRevenue is the handler for GET /v1/admin/revenue?sellerId=&limit=
func (h *Handlers) GetRevenue(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))

	records, err := h.Revenue.List(c.Request.Context(), c.Query("sellerId"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	total, err := h.Revenue.Total(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records, "total": total.StringFixed(2)})
}
