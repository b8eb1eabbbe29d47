package adapter

import (
	"sync"
	"time"

	"github.com/echolens/echolens/internal/domain"
)

const (
	// DefaultUnhealthyThreshold is the consecutive-error count beyond which
	// an adapter refuses new work.
	DefaultUnhealthyThreshold = 5

	// DefaultUnhealthyCooldown is how long an unhealthy adapter stays closed
	// before it lets one probe attempt through again.
	DefaultUnhealthyCooldown = 5 * time.Minute
)

// healthTracker tracks an adapter's consecutive-error streak and derives its
// state: Ready with no errors, Degraded from the first error up to the
// threshold, Unhealthy beyond it. Any success resets the streak to Ready.
type healthTracker struct {
	mu          sync.Mutex
	consecutive int
	threshold   int
	cooldown    time.Duration
	lastFailure time.Time
	now         func() time.Time
}

func newHealthTracker() *healthTracker {
	return &healthTracker{
		threshold: DefaultUnhealthyThreshold,
		cooldown:  DefaultUnhealthyCooldown,
		now:       time.Now,
	}
}

func (h *healthTracker) recordSuccess() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.consecutive = 0
}

func (h *healthTracker) recordFailure() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.consecutive++
	h.lastFailure = h.now()
}

func (h *healthTracker) state() domain.AdapterState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stateLocked()
}

func (h *healthTracker) stateLocked() domain.AdapterState {
	switch {
	case h.consecutive == 0:
		return domain.AdapterStateReady
	case h.consecutive <= h.threshold:
		return domain.AdapterStateDegraded
	default:
		return domain.AdapterStateUnhealthy
	}
}

func (h *healthTracker) errorCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.consecutive
}

// allow returns ErrAdapterUnhealthy while the adapter is unhealthy and the
// cooldown has not elapsed. After the cooldown one probe attempt is allowed.
func (h *healthTracker) allow() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stateLocked() != domain.AdapterStateUnhealthy {
		return nil
	}
	if h.cooldown > 0 && h.now().Sub(h.lastFailure) >= h.cooldown {
		return nil
	}
	return domain.ErrAdapterUnhealthy
}

// reset clears the streak on explicit operator action.
func (h *healthTracker) reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.consecutive = 0
}
