package autosave

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Debouncer delivers only the last scheduled value once no new value has
// been scheduled for the configured delay (trailing edge).
type Debouncer[T any] struct {
	clock clockwork.Clock
	delay time.Duration
	fn    func(T)

	mu         sync.Mutex
	timer      clockwork.Timer
	pending    T
	hasPending bool
	// generation invalidates timers that fired while a newer Schedule or
	// Cancel was racing with them.
	generation uint64
}

func NewDebouncer[T any](clock clockwork.Clock, delay time.Duration, fn func(T)) *Debouncer[T] {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Debouncer[T]{
		clock: clock,
		delay: delay,
		fn:    fn,
	}
}

// Schedule replaces any pending value and restarts the delay.
func (d *Debouncer[T]) Schedule(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.generation++
	gen := d.generation

	d.pending = v
	d.hasPending = true

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = d.clock.AfterFunc(d.delay, func() {
		d.fire(gen)
	})
}

// Cancel drops the pending value, reporting whether there was one.
func (d *Debouncer[T]) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	had := d.hasPending
	d.stopLocked()
	return had
}

// Flush delivers the pending value immediately on the calling goroutine.
func (d *Debouncer[T]) Flush() bool {
	d.mu.Lock()
	if !d.hasPending {
		d.mu.Unlock()
		return false
	}
	v := d.pending
	d.stopLocked()
	d.mu.Unlock()

	d.fn(v)
	return true
}

func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.hasPending
}

func (d *Debouncer[T]) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.generation || !d.hasPending {
		d.mu.Unlock()
		return
	}
	v := d.pending
	d.stopLocked()
	d.mu.Unlock()

	d.fn(v)
}

func (d *Debouncer[T]) stopLocked() {
	d.generation++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	var zero T
	d.pending = zero
	d.hasPending = false
}
