// Package poller provides the single polling loop shared by payment status
// reconciliation and background order refresh: run a check immediately, then
// at a fixed interval, until cancelled.
package poller

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Handle controls one armed polling loop.
type Handle struct {
	cancel  context.CancelFunc
	stopped atomic.Bool
	once    sync.Once
	done    chan struct{}
}

// Arm starts invoking fn immediately and then every interval. All
// invocations happen on one goroutine, so checks are strictly sequential: a
// slow fn delays the next tick rather than overlapping it. The context
// passed to fn is cancelled together with the handle.
func Arm(fn func(context.Context), interval time.Duration) *Handle {
	if interval <= 0 {
		// time.NewTicker rejects non-positive intervals; the tightest
		// meaningful cadence here is one tick per handler completion.
		interval = time.Millisecond
	}
	ctx, cancel := context.WithCancel(context.Background())
	h := &Handle{cancel: cancel, done: make(chan struct{})}
	go h.run(ctx, fn, interval)
	return h
}

func (h *Handle) run(ctx context.Context, fn func(context.Context), interval time.Duration) {
	defer close(h.done)

	// The stopped flag is consulted before every invocation, not just the
	// ticker: cancellation can race a tick that has already fired.
	if h.stopped.Load() {
		return
	}
	fn(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if h.stopped.Load() {
				return
			}
			fn(ctx)
		}
	}
}

// Cancel stops the loop. Safe to call any number of times, from any
// goroutine, including from inside fn; a queued tick observed after Cancel
// returns never runs fn.
func (h *Handle) Cancel() {
	if h == nil {
		return
	}
	h.once.Do(func() {
		h.stopped.Store(true)
		h.cancel()
	})
}

// Cancelled reports whether Cancel has been called.
func (h *Handle) Cancelled() bool {
	return h != nil && h.stopped.Load()
}

// Wait blocks until the loop goroutine has exited. Mainly for teardown and
// tests that need to assert no further checks can occur.
func (h *Handle) Wait() {
	if h == nil {
		return
	}
	<-h.done
}
