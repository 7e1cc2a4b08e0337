package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTickerRunsImmediatelyAndRepeats(t *testing.T) {
	var runs atomic.Int32
	tk := NewTicker("test", 10*time.Millisecond, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	})

	tk.Start(context.Background())
	assert.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, 5*time.Millisecond)
	tk.Stop()

	stopped := runs.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stopped, runs.Load(), "no runs after Stop")
	assert.False(t, tk.Running())
}

func TestTickerStartIsIdempotent(t *testing.T) {
	var runs atomic.Int32
	tk := NewTicker("test", time.Hour, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	})

	tk.Start(context.Background())
	tk.Start(context.Background())
	assert.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.True(t, tk.Running())

	tk.Stop()
	tk.Stop()
	assert.Equal(t, int32(1), runs.Load())
}

func TestTickerSurvivesFailures(t *testing.T) {
	var runs atomic.Int32
	tk := NewTicker("test", 5*time.Millisecond, func(ctx context.Context) error {
		n := runs.Add(1)
		if n == 1 {
			panic("first run")
		}
		return errors.New("still failing")
	})

	tk.Start(context.Background())
	assert.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, 5*time.Millisecond)
	tk.Stop()
}

func TestTickerStopWithoutStart(t *testing.T) {
	tk := NewTicker("test", time.Second, func(ctx context.Context) error { return nil })
	assert.NotPanics(t, tk.Stop)
}

func TestTickerStopsWithParentContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var runs atomic.Int32
	tk := NewTicker("test", 5*time.Millisecond, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	})

	tk.Start(ctx)
	assert.Eventually(t, func() bool { return runs.Load() >= 1 }, time.Second, 5*time.Millisecond)
	cancel()
	tk.Stop()
}

func TestTickerRestartsAfterParentContextEnds(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var runs atomic.Int32
	tk := NewTicker("test", time.Hour, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	})

	tk.Start(ctx)
	assert.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	assert.Eventually(t, func() bool { return !tk.Running() }, time.Second, 5*time.Millisecond)

	tk.Start(context.Background())
	assert.True(t, tk.Running())
	assert.Eventually(t, func() bool { return runs.Load() == 2 }, time.Second, 5*time.Millisecond)
	tk.Stop()
	assert.False(t, tk.Running())
}
