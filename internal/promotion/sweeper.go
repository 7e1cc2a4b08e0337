package promotion

import (
	"context"
	"time"

	"github.com/artisanmarket/promo-engine/internal/worker"
)

// DefaultSweepInterval is how often ended features are expired.
const DefaultSweepInterval = 60 * time.Second

// Sweeper runs Lifecycle.ExpireDue on a timer.
type Sweeper struct {
	ticker *worker.Ticker
}

// NewSweeper creates a stopped Sweeper. A nil now defaults to time.Now and
// a non-positive interval to DefaultSweepInterval.
func NewSweeper(l *Lifecycle, interval time.Duration, now func() time.Time) *Sweeper {
	if now == nil {
		now = time.Now
	}
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{
		ticker: worker.NewTicker("promotion-expiration", interval, func(ctx context.Context) error {
			_, err := l.ExpireDue(ctx, now())
			return err
		}),
	}
}

// Start sweeps immediately and then every interval.
func (s *Sweeper) Start(ctx context.Context) { s.ticker.Start(ctx) }

// Stop halts the sweep; safe when not running.
func (s *Sweeper) Stop() { s.ticker.Stop() }

// Running reports whether the sweep is active.
func (s *Sweeper) Running() bool { return s.ticker.Running() }
