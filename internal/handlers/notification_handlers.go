package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/artisanmarket/promo-engine/internal/middleware"
)

//
// --- Notification Handlers ---
//

// GetMyNotifications is the handler for GET /v1/notifications
// It returns the caller's notifications, unread and newest first.
func (h *Handlers) GetMyNotifications(c *gin.Context) {
	notifications, err := h.Notifier.List(c.Request.Context(), c.GetString(middleware.KeyUserID))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": notifications})
}

// MarkNotificationAsRead is the handler for PATCH /v1/notifications/:id/read
// A notification of another user is reported as not found.
func (h *Handlers) MarkNotificationAsRead(c *gin.Context) {
	err := h.Notifier.MarkRead(c.Request.Context(), c.GetString(middleware.KeyUserID), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
}
