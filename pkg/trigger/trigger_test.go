package trigger

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

// manualTrigger returns a trigger driven by a tick channel the test controls
func manualTrigger(fn Func) (*Trigger, chan time.Time) {
	ticks := make(chan time.Time)
	tr := New(10*time.Millisecond, fn)
	tr.newTicker = func(time.Duration) (<-chan time.Time, func()) {
		return ticks, func() {}
	}
	return tr, ticks
}

// tick delivers one tick; it blocks until the loop has received it
func tick(t *testing.T, ticks chan time.Time) {
	t.Helper()
	select {
	case ticks <- time.Now():
	case <-time.After(time.Second):
		t.Fatal("trigger loop did not receive tick")
	}
}

func waitFor(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("callback was not invoked")
	}
}

func TestNewDefaults(t *testing.T) {
	tr := New(0, func(context.Context) {})
	if tr.Interval() != DefaultInterval {
		t.Errorf("Expected default interval %v, got %v", DefaultInterval, tr.Interval())
	}
	if tr.Enabled() {
		t.Error("New trigger must start disabled")
	}
}

func TestFiresOnlyWhenEnabled(t *testing.T) {
	calls := make(chan struct{}, 10)
	tr, ticks := manualTrigger(func(context.Context) { calls <- struct{}{} })
	tr.Start(context.Background())
	defer tr.Close()

	tick(t, ticks)
	tick(t, ticks)
	if tr.Fired() != 0 {
		t.Fatalf("Disabled trigger fired %d times", tr.Fired())
	}

	tr.Enable()
	tick(t, ticks)
	waitFor(t, calls)
	if tr.Fired() != 1 {
		t.Errorf("Expected 1 fire, got %d", tr.Fired())
	}
}

func TestToggleOffStopsNewFires(t *testing.T) {
	calls := make(chan struct{}, 10)
	tr, ticks := manualTrigger(func(context.Context) { calls <- struct{}{} })
	tr.Start(context.Background())
	defer tr.Close()

	if !tr.Toggle() {
		t.Fatal("First toggle should enable")
	}
	tick(t, ticks)
	waitFor(t, calls)

	if tr.Toggle() {
		t.Fatal("Second toggle should disable")
	}
	for i := 0; i < 5; i++ {
		tick(t, ticks)
	}
	if got := tr.Fired(); got != 1 {
		t.Errorf("Expected no fires after toggling off, got %d total", got)
	}
}

func TestInFlightCallbackCompletesAfterDisable(t *testing.T) {
	release := make(chan struct{})
	var finished atomic.Bool
	started := make(chan struct{}, 1)

	tr, ticks := manualTrigger(func(ctx context.Context) {
		started <- struct{}{}
		<-release
		finished.Store(true)
	})
	tr.Start(context.Background())
	tr.Enable()

	tick(t, ticks)
	waitFor(t, started)

	tr.Disable()
	close(release)
	tr.Close()
	tr.Wait()

	if !finished.Load() {
		t.Error("In-flight callback should run to completion")
	}
}

func TestOverlappingFires(t *testing.T) {
	release := make(chan struct{})
	var running atomic.Int32
	started := make(chan struct{}, 3)

	tr, ticks := manualTrigger(func(context.Context) {
		running.Add(1)
		started <- struct{}{}
		<-release
		running.Add(-1)
	})
	tr.Start(context.Background())
	tr.Enable()

	tick(t, ticks)
	tick(t, ticks)
	waitFor(t, started)
	waitFor(t, started)

	if got := running.Load(); got != 2 {
		t.Errorf("Expected 2 overlapping callbacks, got %d", got)
	}

	close(release)
	tr.Close()
	tr.Wait()
}

func TestCloseStopsPermanently(t *testing.T) {
	var calls atomic.Int32
	tr, ticks := manualTrigger(func(context.Context) { calls.Add(1) })
	tr.Start(context.Background())
	tr.Enable()
	tr.Close()

	if tr.Enabled() {
		t.Error("Close must disable the trigger")
	}

	// The loop has exited, so nothing receives ticks any more
	select {
	case ticks <- time.Now():
		t.Error("Trigger loop still running after Close")
	case <-time.After(20 * time.Millisecond):
	}

	tr.Enable()
	if tr.Enabled() {
		t.Error("Enable after Close must be ignored")
	}
	if tr.Toggle() {
		t.Error("Toggle after Close must report disabled")
	}

	tr.Start(context.Background())
	select {
	case ticks <- time.Now():
		t.Error("Start after Close must not resubscribe")
	case <-time.After(20 * time.Millisecond):
	}

	tr.Close() // idempotent
	if calls.Load() != 0 {
		t.Errorf("Expected no callbacks, got %d", calls.Load())
	}
}

func TestCallbackContextNotCancelled(t *testing.T) {
	errs := make(chan error, 1)
	tr, ticks := manualTrigger(func(ctx context.Context) { errs <- ctx.Err() })

	ctx, cancel := context.WithCancel(context.Background())
	tr.Start(ctx)
	tr.Enable()
	tick(t, ticks)
	cancel()

	select {
	case err := <-errs:
		if err != nil {
			t.Errorf("Callback context should not carry cancellation, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("callback was not invoked")
	}
	tr.Close()
	tr.Wait()
}

func TestRealTicker(t *testing.T) {
	calls := make(chan struct{}, 100)
	tr := New(5*time.Millisecond, func(context.Context) { calls <- struct{}{} })
	tr.Enable()
	tr.Start(context.Background())

	waitFor(t, calls)
	tr.Close()
	tr.Wait()

	fired := tr.Fired()
	time.Sleep(30 * time.Millisecond)
	if tr.Fired() != fired {
		t.Errorf("Fires continued after Close: %d -> %d", fired, tr.Fired())
	}
}

func TestContextCancelEndsSubscription(t *testing.T) {
	calls := make(chan struct{}, 10)
	tr, ticks := manualTrigger(func(context.Context) { calls <- struct{}{} })

	ctx, cancel := context.WithCancel(context.Background())
	tr.Start(ctx)
	tr.Enable()
	tick(t, ticks)
	waitFor(t, calls)

	cancel()
	// at most one more tick is taken, and it ends the loop instead of firing
	for i := 0; i < 2; i++ {
		select {
		case ticks <- time.Now():
		case <-time.After(100 * time.Millisecond):
		}
	}
	select {
	case ticks <- time.Now():
		t.Fatal("Loop kept receiving ticks after ctx was cancelled")
	case <-time.After(100 * time.Millisecond):
	}
	if tr.Fired() != 1 {
		t.Errorf("Expected no fires after cancel, got %d total", tr.Fired())
	}

	if tr.Enabled() || tr.Toggle() {
		t.Error("Cancelled trigger must stay disabled")
	}
	tr.Close()
	tr.Wait()
}
