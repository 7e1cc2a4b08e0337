// Package notify stores in-app notifications for sellers. Nothing is pushed;
// clients poll the list.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	log "github.com/sirupsen/logrus"

	"github.com/artisanmarket/promo-engine/internal/apperr"
	"github.com/artisanmarket/promo-engine/internal/models"
)

// ListLimit caps how many notifications List returns.
const ListLimit = 50

// Notifier writes and reads the 'notifications' table.
type Notifier struct {
	db  *sqlx.DB
	now func() time.Time
}

// New creates a Notifier. A nil now defaults to time.Now.
func New(db *sqlx.DB, now func() time.Time) *Notifier {
	if now == nil {
		now = time.Now
	}
	return &Notifier{db: db, now: now}
}

// Add inserts a notification through e, which may be a transaction.
func (n *Notifier) Add(ctx context.Context, e sqlx.ExecerContext, userID, message, link string) error {
	var linkArg *string
	if link != "" {
		linkArg = &link
	}
	_, err := e.ExecContext(ctx, `
		INSERT INTO notifications (id, user_id, message, link, is_read, created_at)
		VALUES (?, ?, ?, ?, 0, ?)`,
		uuid.NewString(), userID, message, linkArg, n.now().UTC())
	return apperr.Persistence("add notification", err)
}

// Send adds a notification outside any transaction. Failures are logged
// only; a notification never blocks the action it reports.
func (n *Notifier) Send(ctx context.Context, userID, message, link string) {
	if err := n.Add(context.WithoutCancel(ctx), n.db, userID, message, link); err != nil {
		log.WithError(err).WithField("userId", userID).Warn("Failed to store notification")
	}
}

// List returns the user's notifications, unread and newest first.
func (n *Notifier) List(ctx context.Context, userID string) ([]models.Notification, error) {
	out := []models.Notification{}
	err := n.db.SelectContext(ctx, &out, `
		SELECT id, user_id, message, link, is_read, created_at
		FROM notifications
		WHERE user_id = ?
		ORDER BY is_read ASC, created_at DESC
		LIMIT ?`, userID, ListLimit)
	if err != nil {
		return nil, apperr.Persistence("list notifications", err)
	}
	return out, nil
}

// MarkRead marks one of the user's notifications as read. A notification
// that does not exist or belongs to someone else is reported as not found.
func (n *Notifier) MarkRead(ctx context.Context, userID, id string) error {
	var exists int
	err := n.db.GetContext(ctx, &exists,
		"SELECT COUNT(*) FROM notifications WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return apperr.Persistence("find notification", err)
	}
	if exists == 0 {
		return apperr.NewNotFound("notification", id)
	}

	_, err = n.db.ExecContext(ctx,
		"UPDATE notifications SET is_read = 1 WHERE id = ? AND user_id = ?", id, userID)
	return apperr.Persistence("mark notification read", err)
}
