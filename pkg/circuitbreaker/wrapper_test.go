package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventflow/internal/config"
)

func TestWrapper_TripsAfterFailures(t *testing.T) {
	cfg := DefaultConfig("test-trip")
	cfg.Timeout = time.Hour
	w := NewWrapper(cfg)

	boom := errors.New("boom")
	for i := 0; i < 3; i++ {
		_, err := w.ExecuteWithContext(context.Background(), func() (interface{}, error) {
			return nil, boom
		})
		assert.ErrorIs(t, err, boom)
	}

	assert.True(t, w.IsOpen())
	_, err := w.ExecuteWithContext(context.Background(), func() (interface{}, error) {
		return "unreachable", nil
	})
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestWrapper_CancelledContext(t *testing.T) {
	w := NewWrapper(DefaultConfig("test-cancel"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	_, err := w.ExecuteWithContext(ctx, func() (interface{}, error) {
		called = true
		return nil, nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestCall_Typed(t *testing.T) {
	w := NewWrapper(DefaultConfig("test-call"))

	got, err := Call(context.Background(), w, func() (map[string]interface{}, error) {
		return map[string]interface{}{"tier": "gold"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "gold", got["tier"])
	assert.Equal(t, gobreaker.StateClosed, w.State())
}

func TestFromSettings(t *testing.T) {
	c := FromSettings("http", config.CircuitBreakerConfig{Timeout: time.Second, MinRequests: 10})
	assert.Equal(t, time.Second, c.Timeout)
	assert.Equal(t, uint32(3), c.MinRequests, "ratio and minimum only apply together")
	assert.Equal(t, uint32(3), c.MaxRequests)

	c = FromSettings("http", config.CircuitBreakerConfig{FailureRatio: 0.9, MinRequests: 10})
	assert.Equal(t, 0.9, c.FailureRatio)
	assert.Equal(t, uint32(10), c.MinRequests)
}
