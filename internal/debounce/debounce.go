// Package debounce coalesces bursts of input into a single deferred action.
//
// A Debouncer is a two-state machine: idle, or pending with a deadline and
// the most recent input. It owns exactly one timer; every Trigger cancels the
// outstanding timer before arming a new one, so at most one is live.
package debounce

import (
	"sync"
	"time"
)

// DefaultWait is the quiescence window used for search input.
const DefaultWait = 500 * time.Millisecond

// Timer is the cancellable handle returned by Clock.AfterFunc.
type Timer interface {
	Stop() bool
}

// Clock abstracts time so the state machine can be driven in tests.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}

// State is a snapshot of the machine.
type State struct {
	Pending  bool
	Deadline time.Time
	Text     string
}

// Debouncer defers fn until no Trigger has happened for the wait window.
type Debouncer struct {
	clock Clock
	wait  time.Duration
	fn    func(text string)

	mu       sync.Mutex
	timer    Timer
	gen      uint64
	pending  bool
	deadline time.Time
	text     string
}

// New builds a debouncer. A nil clock means the wall clock; wait <= 0 means DefaultWait.
func New(wait time.Duration, clock Clock, fn func(text string)) *Debouncer {
	if wait <= 0 {
		wait = DefaultWait
	}
	if clock == nil {
		clock = SystemClock
	}
	return &Debouncer{clock: clock, wait: wait, fn: fn}
}

// Trigger records text and (re)arms the timer.
func (d *Debouncer) Trigger(text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopLocked()
	d.gen++
	gen := d.gen
	d.text = text
	d.pending = true
	d.deadline = d.clock.Now().Add(d.wait)
	d.timer = d.clock.AfterFunc(d.wait, func() { d.expire(gen) })
}

// Cancel drops any pending action and returns to idle.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopLocked()
	d.gen++
	d.pending = false
	d.deadline = time.Time{}
}

// State returns the current state.
func (d *Debouncer) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return State{Pending: d.pending, Deadline: d.deadline, Text: d.text}
}

// expire runs for the timer armed at generation gen. A stale generation means
// the timer fired after being superseded and must do nothing.
func (d *Debouncer) expire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen || !d.pending {
		d.mu.Unlock()
		return
	}
	text := d.text
	d.pending = false
	d.deadline = time.Time{}
	d.timer = nil
	d.mu.Unlock()

	if d.fn != nil {
		d.fn(text)
	}
}

func (d *Debouncer) stopLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
