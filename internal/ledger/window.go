package ledger

import (
	"context"
	"sync"
	"time"
)

// RateWindow enforces a fixed-window call limit for one adapter: at most
// limit calls per window duration. Acquire blocks until the window rolls
// over instead of rejecting, so a burst of N+1 calls delays the last call
// rather than failing it.
//
// The effective limit is the stricter of the self-imposed limit and any
// provider-advertised limit reported through Tighten.
type RateWindow struct {
	mu          sync.Mutex
	limit       int
	effective   int
	duration    time.Duration
	windowStart time.Time
	count       int
	now         func() time.Time
	sleep       func(ctx context.Context, d time.Duration) error
}

// NewRateWindow creates a window allowing limit calls per duration.
func NewRateWindow(limit int, duration time.Duration) *RateWindow {
	if limit <= 0 {
		limit = 1
	}
	if duration <= 0 {
		duration = time.Minute
	}
	return &RateWindow{
		limit:     limit,
		effective: limit,
		duration:  duration,
		now:       time.Now,
		sleep:     sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Acquire takes one slot in the current window, blocking until the window
// resets when the limit is reached. It returns early only when ctx is done.
func (w *RateWindow) Acquire(ctx context.Context) error {
	for {
		w.mu.Lock()
		now := w.now()
		if w.windowStart.IsZero() || now.Sub(w.windowStart) >= w.duration {
			w.windowStart = now
			w.count = 0
			// A provider-advertised cap applies to the window it was
			// reported in; each fresh window starts from the configured limit.
			w.effective = w.limit
		}
		if w.count < w.effective {
			w.count++
			w.mu.Unlock()
			return nil
		}
		wait := w.windowStart.Add(w.duration).Sub(now)
		w.mu.Unlock()

		if err := w.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// Tighten lowers the effective limit for the current window when the
// provider advertises fewer remaining calls than we would allow ourselves.
// The stricter bound always wins; Tighten never raises the limit.
func (w *RateWindow) Tighten(providerRemaining int) {
	if providerRemaining < 0 {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	allowed := w.count + providerRemaining
	if allowed < w.effective {
		w.effective = allowed
	}
}

// Remaining reports how many calls are left in the current window.
func (w *RateWindow) Remaining() int {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.windowStart.IsZero() && w.now().Sub(w.windowStart) >= w.duration {
		return w.limit
	}
	left := w.effective - w.count
	if left < 0 {
		return 0
	}
	return left
}
