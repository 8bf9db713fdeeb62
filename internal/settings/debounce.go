package settings

import (
	"sync"
	"time"
)

// Debouncer coalesces rapid triggers into a single trailing flush: each
// Trigger supersedes the pending one and restarts the delay. The flush
// function runs at most once per quiet period.
type Debouncer struct {
	mu      sync.Mutex
	delay   time.Duration
	flush   func()
	timer   *time.Timer
	pending bool
	closed  bool
}

// NewDebouncer creates a debouncer calling flush after delay of quiet.
func NewDebouncer(delay time.Duration, flush func()) *Debouncer {
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}
	return &Debouncer{delay: delay, flush: flush}
}

// Trigger schedules (or reschedules) a flush.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.pending = true
	if d.timer == nil {
		d.timer = time.AfterFunc(d.delay, d.fire)
		return
	}
	d.timer.Reset(d.delay)
}

func (d *Debouncer) fire() {
	d.mu.Lock()
	if d.closed || !d.pending {
		d.mu.Unlock()
		return
	}
	d.pending = false
	d.mu.Unlock()

	d.flush()
}

// Flush runs a pending flush immediately, cancelling the timer.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
	}
	hadPending := d.pending
	d.pending = false
	d.mu.Unlock()

	if hadPending {
		d.flush()
	}
}

// Close flushes any pending work and stops the debouncer for good.
func (d *Debouncer) Close() {
	d.Flush()
	d.mu.Lock()
	d.closed = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.mu.Unlock()
}
