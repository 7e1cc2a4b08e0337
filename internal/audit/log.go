// Package audit records state-changing admin actions. Writing an entry is
// best-effort: a failed write is logged and counted but never returned to
// the operation being audited.
package audit

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/artisanmarket/promo-engine/internal/metrics"
	"github.com/artisanmarket/promo-engine/internal/models"
)

// Actions recorded by the engine.
const (
	ActionApproveFeature    = "approve_promotional_feature"
	ActionRejectFeature     = "reject_promotional_feature"
	ActionCancelFeature     = "cancel_promotional_feature"
	ActionExpireFeatures    = "expire_promotional_features"
	ActionUpdatePricing     = "update_promotional_pricing"
	ActionInitializePricing = "initialize_promotional_pricing"
	ActionCreditWallet      = "credit_wallet"
	ActionUpdateInventory   = "update_inventory"
	ActionRestoreInventory  = "restore_inventory"
)

// Target types.
const (
	TargetFeature = "promotional_feature"
	TargetPricing = "promotional_pricing"
	TargetWallet  = "wallet"
	TargetProduct = "product"
)

// writeTimeout bounds a single sink write. The write is detached from the
// request context so a client disconnect does not drop the entry.
const writeTimeout = 5 * time.Second

// Sink is where entries end up. Implementations may fail; Log absorbs it.
type Sink interface {
	Append(ctx context.Context, e models.AdminAuditEntry) error
}

// Log is the best-effort front of a Sink.
type Log struct {
	sink    Sink
	now     func() time.Time
	dropped atomic.Int64
}

// NewLog creates a Log writing to sink. A nil now defaults to time.Now.
func NewLog(sink Sink, now func() time.Time) *Log {
	if now == nil {
		now = time.Now
	}
	return &Log{sink: sink, now: now}
}

// LogAdminAction appends e. It never fails: sink errors and panics are
// logged and counted as dropped events.
func (l *Log) LogAdminAction(ctx context.Context, e models.AdminAuditEntry) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = l.now().UTC()
	}

	defer func() {
		if r := recover(); r != nil {
			l.drop(e, nil, r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()
	if err := l.sink.Append(ctx, e); err != nil {
		l.drop(e, err, nil)
	}
}

// Record is a shorthand for LogAdminAction that fills the entry from actor.
func (l *Log) Record(ctx context.Context, actor models.Actor, action, targetType, targetID string, before, after interface{}, description string) {
	l.LogAdminAction(ctx, models.AdminAuditEntry{
		AdminUser:   actor.UserID,
		Action:      action,
		TargetType:  targetType,
		TargetID:    targetID,
		Changes:     models.AuditChanges{Before: before, After: after},
		Description: description,
		IPAddress:   actor.IPAddress,
		UserAgent:   actor.UserAgent,
		RequestID:   actor.RequestID,
	})
}

// Dropped returns how many entries failed to persist since start.
func (l *Log) Dropped() int64 {
	return l.dropped.Load()
}

func (l *Log) drop(e models.AdminAuditEntry, err error, panicked interface{}) {
	l.dropped.Add(1)
	metrics.AuditDropped()

	entry := log.WithFields(log.Fields{
		"auditId":    e.ID,
		"adminUser":  e.AdminUser,
		"action":     e.Action,
		"targetType": e.TargetType,
		"targetId":   e.TargetID,
		"requestId":  e.RequestID,
	})
	if err != nil {
		entry = entry.WithError(err)
	}
	if panicked != nil {
		entry = entry.WithField("panic", panicked)
	}
	entry.Error("Dropped admin audit entry")
}
