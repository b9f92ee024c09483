package workflow

import (
	"context"
	"sync"
	"time"
)

// RunFunc executes one pipeline run. It should return promptly once ctx is
// cancelled; a cancelled run must not publish its result.
type RunFunc func(ctx context.Context) error

// Refresher coalesces change-notification bursts into at most one pending
// recompute, with cancel-and-restart semantics: a new trigger cancels the
// in-flight run's context, and runs never overlap because a single worker
// goroutine executes them. This closes the stale-result race where a fast
// sequence of notifications could leave an older run's output landing last.
type Refresher struct {
	run      RunFunc
	debounce time.Duration

	mu       sync.Mutex
	inflight context.CancelFunc
	trigger  chan struct{}
	closed   bool
	done     chan struct{}
}

func NewRefresher(run RunFunc, debounce time.Duration) *Refresher {
	r := &Refresher{
		run:      run,
		debounce: debounce,
		trigger:  make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	go r.loop()
	return r
}

// Trigger requests a recompute. Safe to call concurrently and at any rate;
// triggers arriving while a run is pending or executing collapse into one
// follow-up run. Calling Trigger after Close is a no-op.
func (r *Refresher) Trigger() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	if r.inflight != nil {
		r.inflight()
	}
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

// Close stops the worker after any in-progress run finishes.
func (r *Refresher) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		<-r.done
		return
	}
	r.closed = true
	if r.inflight != nil {
		r.inflight()
	}
	close(r.trigger)
	r.mu.Unlock()
	<-r.done
}

func (r *Refresher) loop() {
	defer close(r.done)
	for range r.trigger {
		if r.debounce > 0 {
			time.Sleep(r.debounce)
		}

		ctx, cancel := context.WithCancel(context.Background())
		r.mu.Lock()
		if r.closed {
			r.mu.Unlock()
			cancel()
			return
		}
		r.inflight = cancel
		r.mu.Unlock()

		_ = r.run(ctx)

		r.mu.Lock()
		r.inflight = nil
		r.mu.Unlock()
		cancel()
	}
}
