// Package worker runs periodic background jobs.
package worker

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/artisanmarket/promo-engine/internal/metrics"
)

// Job is one execution of a periodic task.
type Job func(ctx context.Context) error

// Ticker runs a Job once on Start and then every interval until Stop.
type Ticker struct {
	name     string
	interval time.Duration
	job      Job

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewTicker creates a stopped Ticker.
func NewTicker(name string, interval time.Duration, job Job) *Ticker {
	return &Ticker{name: name, interval: interval, job: job}
}

// Start launches the background loop. Calling Start on a running Ticker only
// logs a warning.
func (t *Ticker) Start(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cancel != nil {
		log.WithField("worker", t.name).Warn("Worker already running, ignoring Start")
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.done = make(chan struct{})

	log.WithFields(log.Fields{"worker": t.name, "interval": t.interval.String()}).Info("Background worker started")
	go t.loop(ctx, t.done)
}

// Stop halts the loop and waits for an in-flight run to return. It is safe to
// call on a stopped Ticker.
func (t *Ticker) Stop() {
	t.mu.Lock()
	cancel, done := t.cancel, t.done
	t.cancel, t.done = nil, nil
	t.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	log.WithField("worker", t.name).Info("Background worker stopped")
}

// Running reports whether the loop is active. It turns false once the
// parent context of Start is cancelled, after which Start may be called again.
func (t *Ticker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancel != nil
}

func (t *Ticker) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer t.release(done)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	t.runOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.runOnce(ctx)
		}
	}
}

// release clears the running state when the loop exits on its own. A Stop
// that already took the state leaves nothing to clear.
func (t *Ticker) release(done chan struct{}) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done != done {
		return
	}
	t.cancel()
	t.cancel, t.done = nil, nil
	log.WithField("worker", t.name).Info("Background worker stopped with its context")
}

func (t *Ticker) runOnce(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			metrics.WorkerRun(t.name, "error")
			log.WithFields(log.Fields{"worker": t.name, "panic": r}).Error("Background run panicked")
		}
	}()

	if err := t.job(ctx); err != nil {
		metrics.WorkerRun(t.name, "error")
		log.WithError(err).WithField("worker", t.name).Error("Background run failed")
		return
	}
	metrics.WorkerRun(t.name, "ok")
}
