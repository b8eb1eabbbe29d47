package adapter

import (
	"testing"
	"time"

	"github.com/echolens/echolens/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestHealthTracker_StateTransitions(t *testing.T) {
	h := newHealthTracker()
	assert.Equal(t, domain.AdapterStateReady, h.state())

	h.recordFailure()
	assert.Equal(t, domain.AdapterStateDegraded, h.state())

	for i := 0; i < DefaultUnhealthyThreshold-1; i++ {
		h.recordFailure()
	}
	assert.Equal(t, domain.AdapterStateDegraded, h.state())

	h.recordFailure()
	assert.Equal(t, domain.AdapterStateUnhealthy, h.state())

	// Any success resets the streak to Ready from any state.
	h.recordSuccess()
	assert.Equal(t, domain.AdapterStateReady, h.state())
}

func TestHealthTracker_UnhealthyRefusesWork(t *testing.T) {
	h := newHealthTracker()
	for i := 0; i <= DefaultUnhealthyThreshold; i++ {
		h.recordFailure()
	}

	assert.ErrorIs(t, h.allow(), domain.ErrAdapterUnhealthy)

	h.reset()
	assert.NoError(t, h.allow())
	assert.Equal(t, domain.AdapterStateReady, h.state())
}

func TestHealthTracker_CooldownAllowsProbe(t *testing.T) {
	h := newHealthTracker()
	now := time.Unix(1700000000, 0)
	h.now = func() time.Time { return now }

	for i := 0; i <= DefaultUnhealthyThreshold; i++ {
		h.recordFailure()
	}
	assert.Error(t, h.allow())

	now = now.Add(DefaultUnhealthyCooldown)
	assert.NoError(t, h.allow())
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()

	_, err := reg.Get(domain.PlatformReddit)
	assert.ErrorIs(t, err, domain.ErrAdapterNotFound)

	a := NewReddit(RedditConfig{APIBaseURL: "http://example.test", Options: Options{WindowLimit: 10, WindowDuration: time.Minute}})
	reg.Register(a)

	got, err := reg.Get(domain.PlatformReddit)
	assert.NoError(t, err)
	assert.Equal(t, a, got)

	assert.Len(t, reg.All(), 1)

	health := reg.HealthAll()
	assert.Len(t, health, 1)
	assert.Equal(t, domain.PlatformReddit, health[0].Platform)
	assert.Equal(t, domain.AdapterStateReady, health[0].State)
}
