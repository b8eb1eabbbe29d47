package adapter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSmoothingInterval(t *testing.T) {
	// 60 calls per minute smooths to one call per second.
	assert.Equal(t, time.Second, SmoothingInterval(time.Minute, 60))
	assert.Equal(t, 6*time.Second, SmoothingInterval(time.Minute, 10))

	// Unset window or limit disables smoothing.
	assert.Zero(t, SmoothingInterval(0, 10))
	assert.Zero(t, SmoothingInterval(time.Minute, 0))
	assert.Zero(t, SmoothingInterval(time.Minute, -1))
}

func TestNewFetchClientEnablesSmootherFromMinInterval(t *testing.T) {
	withSmoothing := newFetchClient(Options{
		WindowLimit:    10,
		WindowDuration: time.Minute,
		MinInterval:    SmoothingInterval(time.Minute, 10),
	})
	assert.NotNil(t, withSmoothing.smoother)

	withoutSmoothing := newFetchClient(Options{
		WindowLimit:    10,
		WindowDuration: time.Minute,
	})
	assert.Nil(t, withoutSmoothing.smoother)
}
