// Package realtime serves live location search and fare estimates over a
// websocket, debouncing keystrokes and discarding superseded results.
package realtime

import (
	"context"
	"sync"
	"time"
)

// Task is a debounced unit of work. ctx is cancelled as soon as the task is
// superseded; gen identifies the scheduling that produced it.
type Task func(ctx context.Context, gen uint64)

// Debouncer runs only the most recently scheduled task, after delay.
// Every Schedule, Cancel or Stop bumps the generation, so a result computed
// for an older generation is stale and must be dropped by the caller.
type Debouncer struct {
	parent context.Context
	delay  time.Duration

	mu      sync.Mutex
	gen     uint64
	timer   *time.Timer
	cancel  context.CancelFunc
	stopped bool
}

// NewDebouncer creates a Debouncer whose tasks inherit parent.
func NewDebouncer(parent context.Context, delay time.Duration) *Debouncer {
	return &Debouncer{parent: parent, delay: delay}
}

// Schedule replaces any pending or in-flight task with fn and returns its
// generation. It returns 0 once the debouncer is stopped.
func (d *Debouncer) Schedule(fn Task) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return 0
	}
	d.abortLocked()
	d.gen++
	gen := d.gen

	ctx, cancel := context.WithCancel(d.parent)
	d.cancel = cancel
	d.timer = time.AfterFunc(d.delay, func() {
		defer cancel()
		if ctx.Err() != nil {
			return
		}
		fn(ctx, gen)
	})
	return gen
}

// IsCurrent reports whether gen is still the latest scheduling.
func (d *Debouncer) IsCurrent(gen uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return !d.stopped && gen != 0 && gen == d.gen
}

// Generation returns the latest generation.
func (d *Debouncer) Generation() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gen
}

// Cancel drops the pending task and invalidates any in-flight one.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.abortLocked()
	d.gen++
}

// Stop cancels outstanding work and rejects further scheduling.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.abortLocked()
	d.gen++
	d.stopped = true
}

func (d *Debouncer) abortLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
}
