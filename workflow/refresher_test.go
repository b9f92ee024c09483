package workflow

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func waitSignal(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func TestRefresher_RunsAfterTrigger(t *testing.T) {
	ran := make(chan struct{}, 1)
	r := NewRefresher(func(ctx context.Context) error {
		ran <- struct{}{}
		return nil
	}, 0)
	defer r.Close()

	r.Trigger()
	waitSignal(t, ran, "run after trigger")
}

func TestRefresher_CoalescesBurst(t *testing.T) {
	var runs int64
	var inflight int64
	var overlapped int64

	r := NewRefresher(func(ctx context.Context) error {
		if atomic.AddInt64(&inflight, 1) > 1 {
			atomic.StoreInt64(&overlapped, 1)
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt64(&runs, 1)
		atomic.AddInt64(&inflight, -1)
		return nil
	}, 0)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Trigger()
		}()
	}
	wg.Wait()
	r.Close()

	if got := atomic.LoadInt64(&runs); got < 1 {
		t.Fatal("expected at least one run for a trigger burst")
	} else if got > 100 {
		t.Fatalf("more runs than triggers: %d", got)
	}
	if atomic.LoadInt64(&overlapped) != 0 {
		t.Fatal("runs must never overlap")
	}
}

func TestRefresher_TriggerCancelsInflightRun(t *testing.T) {
	started := make(chan struct{}, 4)
	cancelled := make(chan struct{}, 4)
	release := make(chan struct{})

	r := NewRefresher(func(ctx context.Context) error {
		started <- struct{}{}
		select {
		case <-ctx.Done():
			cancelled <- struct{}{}
			return ctx.Err()
		case <-release:
			return nil
		}
	}, 0)

	r.Trigger()
	waitSignal(t, started, "first run to start")

	// Second trigger while the first run is blocked: the first run's
	// context must be cancelled and a follow-up run scheduled.
	r.Trigger()
	waitSignal(t, cancelled, "first run cancellation")
	waitSignal(t, started, "follow-up run to start")

	close(release)
	r.Close()
}

func TestRefresher_DebouncedBurstCollapses(t *testing.T) {
	var runs int64
	r := NewRefresher(func(ctx context.Context) error {
		atomic.AddInt64(&runs, 1)
		return nil
	}, 50*time.Millisecond)

	// All triggers land inside the debounce window of the first. At most one
	// follow-up may be queued behind the active run.
	for i := 0; i < 10; i++ {
		r.Trigger()
	}
	r.Close()

	if got := atomic.LoadInt64(&runs); got < 1 || got > 2 {
		t.Fatalf("expected a debounced burst to collapse to 1-2 runs, got %d", got)
	}
}

func TestRefresher_TriggerAfterCloseIsNoop(t *testing.T) {
	var runs int64
	r := NewRefresher(func(ctx context.Context) error {
		atomic.AddInt64(&runs, 1)
		return nil
	}, 0)
	r.Close()

	r.Trigger() // must not panic or run
	time.Sleep(20 * time.Millisecond)
	if atomic.LoadInt64(&runs) != 0 {
		t.Fatal("trigger after close must not schedule a run")
	}

	r.Close() // idempotent
}

func TestService_LatestBeforeAnyRun(t *testing.T) {
	s := NewService(0)
	defer s.Close()

	result, loading := s.Latest("biz-unseen")
	if result != nil {
		t.Fatalf("expected no result before any run, got %+v", result)
	}
	if loading {
		t.Fatal("expected loading=false before any trigger")
	}
}
