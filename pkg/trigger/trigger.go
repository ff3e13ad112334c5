// Package trigger fires a callback on a fixed interval while an enabled flag is set.
//
// Fires do not wait for earlier callbacks: a slow callback simply overlaps with
// the next one. Disabling or closing stops new fires but never cancels callbacks
// that are already running.
package trigger

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultInterval is the capture period used when none is configured
const DefaultInterval = 3000 * time.Millisecond

// Func is the work done on each fire
type Func func(ctx context.Context)

// Trigger is a repeating timer gated by an enabled flag
type Trigger struct {
	interval time.Duration
	fn       Func

	enabled atomic.Bool
	fired   atomic.Int64

	mu      sync.Mutex
	started bool
	closed  bool
	stop    chan struct{}
	done    chan struct{}

	inflight sync.WaitGroup

	// newTicker is swapped in tests
	newTicker func(d time.Duration) (<-chan time.Time, func())
}

// New creates a disabled trigger. Nothing fires until Start and Enable are both called.
func New(interval time.Duration, fn Func) *Trigger {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Trigger{
		interval:  interval,
		fn:        fn,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
		newTicker: realTicker,
	}
}

func realTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

// Interval returns the firing period
func (t *Trigger) Interval() time.Duration {
	return t.interval
}

// Start subscribes to the timer. Calls after the first, or after Close, do nothing.
// Cancelling ctx ends the subscription like Close does. Callbacks receive ctx
// without its cancellation so running work is never cut short.
func (t *Trigger) Start(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started || t.closed {
		return
	}
	t.started = true

	ticks, stopTicker := t.newTicker(t.interval)
	cbCtx := context.WithoutCancel(ctx)

	go func() {
		defer close(t.done)
		defer stopTicker()
		for {
			select {
			case <-t.stop:
				return
			case <-ctx.Done():
				t.expire()
				return
			case <-ticks:
				if ctx.Err() != nil {
					t.expire()
					return
				}
				t.fire(cbCtx)
			}
		}
	}()
}

// expire marks the trigger closed after its context ended
func (t *Trigger) expire() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	t.enabled.Store(false)
}

func (t *Trigger) fire(ctx context.Context) {
	if !t.enabled.Load() {
		return
	}
	// Close may have raced with this tick
	select {
	case <-t.stop:
		return
	default:
	}
	t.fired.Add(1)
	t.inflight.Add(1)
	go func() {
		defer t.inflight.Done()
		t.fn(ctx)
	}()
}

// Enable lets ticks invoke the callback
func (t *Trigger) Enable() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		t.enabled.Store(true)
	}
}

// Disable stops ticks from invoking the callback
func (t *Trigger) Disable() {
	t.enabled.Store(false)
}

// Toggle flips the enabled flag and returns the new state
func (t *Trigger) Toggle() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return false
	}
	next := !t.enabled.Load()
	t.enabled.Store(next)
	return next
}

// Enabled reports whether ticks currently invoke the callback
func (t *Trigger) Enabled() bool {
	return t.enabled.Load()
}

// Fired returns how many callbacks have been launched
func (t *Trigger) Fired() int64 {
	return t.fired.Load()
}

// Close unsubscribes permanently. Running callbacks are left to finish.
func (t *Trigger) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	t.enabled.Store(false)
	started := t.started
	close(t.stop)
	t.mu.Unlock()

	if started {
		<-t.done
	}
}

// Wait blocks until every launched callback has returned. Call it after Close.
func (t *Trigger) Wait() {
	t.inflight.Wait()
}
