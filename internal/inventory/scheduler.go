package inventory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/artisanmarket/promo-engine/internal/metrics"
	"github.com/artisanmarket/promo-engine/internal/models"
	"github.com/artisanmarket/promo-engine/internal/worker"
)

// DefaultInterval is how often the scheduler checks for due refills.
const DefaultInterval = 60 * time.Second

// Source lists the products the scheduler watches on each tick.
type Source interface {
	ListMonitored(ctx context.Context) ([]models.Product, error)
}

// Persister applies one refill.
type Persister interface {
	ApplyRestoration(ctx context.Context, check RestorationCheck) (models.Product, error)
}

// UpdateFunc receives the products restored by a pass.
type UpdateFunc func(updated []models.Product)

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithInterval overrides DefaultInterval.
func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// Scheduler periodically refills made_to_order capacity and scheduled_order
// batches. Each instance is independent.
type Scheduler struct {
	persister Persister
	interval  time.Duration
	now       func() time.Time

	// passMu serializes passes so a manual check and a tick never restore
	// the same product concurrently.
	passMu sync.Mutex

	mu     sync.Mutex
	ticker *worker.Ticker
}

// NewScheduler creates a stopped Scheduler.
func NewScheduler(p Persister, opts ...Option) *Scheduler {
	s := &Scheduler{persister: p, interval: DefaultInterval, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start runs a pass immediately and then every interval over the products
// src lists. A second Start while running only logs a warning.
func (s *Scheduler) Start(ctx context.Context, src Source, onUpdate UpdateFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker != nil && s.ticker.Running() {
		log.Warn("Restoration scheduler already running, ignoring Start")
		return
	}
	s.ticker = worker.NewTicker("inventory-restoration", s.interval, func(ctx context.Context) error {
		products, err := src.ListMonitored(ctx)
		if err != nil {
			return errors.Wrap(err, "list monitored products")
		}
		s.RunPass(ctx, products, onUpdate)
		return nil
	})
	s.ticker.Start(ctx)
}

// Stop cancels the timer. It is safe to call when not running.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	t := s.ticker
	s.ticker = nil
	s.mu.Unlock()

	if t != nil {
		t.Stop()
	}
}

// Running reports whether the timer is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ticker != nil && s.ticker.Running()
}

// ManualCheck runs a pass over the products in all whose IDs are listed,
// independently of the timer.
func (s *Scheduler) ManualCheck(ctx context.Context, productIDs []string, all []models.Product, onUpdate UpdateFunc) []models.Product {
	wanted := make(map[string]struct{}, len(productIDs))
	for _, id := range productIDs {
		wanted[id] = struct{}{}
	}
	subset := make([]models.Product, 0, len(productIDs))
	for _, p := range all {
		if _, ok := wanted[p.ID]; ok {
			subset = append(subset, p)
		}
	}
	return s.RunPass(ctx, subset, onUpdate)
}

// RunPass checks every product once, persists each due refill on its own and
// hands the restored products to onUpdate. A failed product is logged and
// left for the next pass.
func (s *Scheduler) RunPass(ctx context.Context, products []models.Product, onUpdate UpdateFunc) []models.Product {
	s.passMu.Lock()
	defer s.passMu.Unlock()

	now := s.now().UTC()
	seen := make(map[string]struct{}, len(products))
	updated := []models.Product{}
	failed := 0

	for _, p := range products {
		if ctx.Err() != nil {
			break
		}
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}

		for _, check := range NewModel(p).CheckInventoryRestoration(now) {
			restored, err := s.apply(ctx, check)
			if errors.Is(err, ErrNotDue) {
				continue
			}
			if err != nil {
				failed++
				log.WithError(err).WithFields(log.Fields{
					"productId":       p.ID,
					"fulfillmentType": p.FulfillmentType,
				}).Warn("Failed to restore product inventory, will retry next pass")
				continue
			}
			metrics.InventoryRestored(string(p.FulfillmentType))
			updated = append(updated, restored)
		}
	}

	if len(updated) > 0 || failed > 0 {
		log.WithFields(log.Fields{
			"checked":  len(seen),
			"restored": len(updated),
			"failed":   failed,
		}).Info("Inventory restoration pass finished")
	}
	if len(updated) > 0 && onUpdate != nil {
		onUpdate(updated)
	}
	return updated
}

func (s *Scheduler) apply(ctx context.Context, check RestorationCheck) (p models.Product, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("persister panicked: %v", r)
		}
	}()
	return s.persister.ApplyRestoration(ctx, check)
}
