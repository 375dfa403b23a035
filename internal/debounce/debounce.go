// Package debounce coalesces bursts of edit events into a single deferred
// commit. A Debouncer is a timer that can be reset: every Schedule call
// replaces the pending commit and restarts the quiet period.
package debounce

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// HistoryInterval guards "append to history".
	HistoryInterval = 600 * time.Millisecond
	// PersistInterval guards "flush to disk".
	PersistInterval = 500 * time.Millisecond
)

// Option configures a Debouncer.
type Option func(*Debouncer)

// WithLogger sets the logger used for arm/fire debug lines.
func WithLogger(l *slog.Logger) Option {
	return func(d *Debouncer) { d.log = l }
}

// WithName labels log lines, e.g. "history" or "persist".
func WithName(name string) Option {
	return func(d *Debouncer) { d.name = name }
}

// Debouncer runs the most recently scheduled commit once no Schedule call
// has arrived for the quiet interval. It is safe for concurrent use.
type Debouncer struct {
	interval time.Duration
	name     string
	log      *slog.Logger

	mu      sync.Mutex
	timer   *time.Timer
	pending func()
	gen     uint64

	fired atomic.Int64
}

// New creates a Debouncer with the given quiet interval. An interval of 0
// or less runs commits synchronously inside Schedule.
func New(interval time.Duration, opts ...Option) *Debouncer {
	d := &Debouncer{interval: interval, name: "debounce"}
	for _, o := range opts {
		o(d)
	}
	if d.log == nil {
		d.log = slog.Default()
	}
	return d
}

// Schedule cancels any pending commit and arms commit to run after the
// quiet interval.
func (d *Debouncer) Schedule(commit func()) {
	if d.interval <= 0 {
		d.fired.Add(1)
		commit()
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.pending = commit
	d.timer = time.AfterFunc(d.interval, func() { d.fire(gen) })
	d.log.Debug("debounce: armed", "name", d.name, "interval", d.interval)
}

// fire runs the pending commit if gen is still the latest arm. A timer
// that lost the race with a newer Schedule or a Stop does nothing.
func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen || d.pending == nil {
		d.mu.Unlock()
		return
	}
	commit := d.pending
	d.pending = nil
	d.timer = nil
	d.mu.Unlock()

	d.fired.Add(1)
	d.log.Debug("debounce: fired", "name", d.name)
	commit()
}

// Flush runs the pending commit immediately, if any. Returns true when a
// commit ran.
func (d *Debouncer) Flush() bool {
	d.mu.Lock()
	commit := d.pending
	if commit == nil {
		d.mu.Unlock()
		return false
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	d.pending = nil
	d.timer = nil
	d.mu.Unlock()

	d.fired.Add(1)
	d.log.Debug("debounce: flushed", "name", d.name)
	commit()
	return true
}

// Stop drops the pending commit without running it.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	d.pending = nil
	d.timer = nil
}

// Pending reports whether a commit is armed.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != nil
}

// Interval returns the quiet period.
func (d *Debouncer) Interval() time.Duration { return d.interval }

// Fired returns how many commits have run.
func (d *Debouncer) Fired() int64 { return d.fired.Load() }
