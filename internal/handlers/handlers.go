package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/artisanmarket/promo-engine/internal/audit"
	"github.com/artisanmarket/promo-engine/internal/inventory"
	"github.com/artisanmarket/promo-engine/internal/ledger"
	"github.com/artisanmarket/promo-engine/internal/notify"
	"github.com/artisanmarket/promo-engine/internal/promotion"
)

// Handlers struct holds all dependencies for our handlers.
type Handlers struct {
	Inventory  *inventory.Service
	Catalog    *promotion.Catalog
	Promotions *promotion.Lifecycle
	Wallets    *ledger.Wallets
	Revenue    *ledger.Revenue
	Audit      *audit.Log
	AuditStore *audit.Store
	Notifier   *notify.Notifier
	// Now is the clock for on-demand sweeps; nil means time.Now.
	Now func() time.Time
}

func (h *Handlers) now() time.Time {
	if h.Now == nil {
		return time.Now()
	}
	return h.Now()
}

// Healthz is the handler for GET /healthz. It reports liveness along with
// the number of audit entries that could not be written.
func (h *Handlers) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":             "ok",
		"auditDroppedEvents": h.Audit.Dropped(),
	})
}
