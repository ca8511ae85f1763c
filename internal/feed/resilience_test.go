package feed

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestCircuitBreakerTransitions(t *testing.T) {
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker("test_transitions", CircuitBreakerConfig{
		MaxFailures:      2,
		ResetTimeout:     time.Minute,
		HalfOpenMaxCalls: 2,
	}, zerolog.Nop())
	cb.now = func() time.Time { return clock }

	boom := errors.New("connection refused")

	assert.True(t, cb.Allow())
	cb.RecordFailure(boom)
	assert.Equal(t, CircuitClosed, cb.State())
	cb.RecordFailure(boom)
	assert.Equal(t, CircuitOpen, cb.State())
	assert.False(t, cb.Allow())
	assert.Equal(t, float64(CircuitOpen), testutil.ToFloat64(breakerState.WithLabelValues("test_transitions")))

	clock = clock.Add(time.Minute)
	assert.True(t, cb.Allow())
	assert.Equal(t, CircuitHalfOpen, cb.State())

	// a failed probe re-opens
	cb.RecordFailure(boom)
	assert.Equal(t, CircuitOpen, cb.State())

	clock = clock.Add(2 * time.Minute)
	assert.True(t, cb.Allow())
	cb.RecordSuccess()
	assert.Equal(t, CircuitHalfOpen, cb.State())
	cb.RecordSuccess()
	assert.Equal(t, CircuitClosed, cb.State())
	assert.Equal(t, float64(CircuitClosed), testutil.ToFloat64(breakerState.WithLabelValues("test_transitions")))
}

func TestCircuitBreakerSuccessResetsFailures(t *testing.T) {
	cb := NewCircuitBreaker("test_reset", CircuitBreakerConfig{MaxFailures: 2, ResetTimeout: time.Hour, HalfOpenMaxCalls: 1}, zerolog.Nop())
	boom := errors.New("timeout")

	cb.RecordFailure(boom)
	cb.RecordSuccess()
	cb.RecordFailure(boom)
	assert.Equal(t, CircuitClosed, cb.State())

	cb.RecordFailure(boom)
	assert.Equal(t, CircuitOpen, cb.State())

	cb.Reset()
	assert.Equal(t, CircuitClosed, cb.State())
	assert.True(t, cb.Allow())
}

func TestCircuitBreakerDefaults(t *testing.T) {
	cb := NewCircuitBreaker("test_defaults", CircuitBreakerConfig{}, zerolog.Nop())
	assert.Equal(t, DefaultCircuitBreakerConfig(), cb.config)
	assert.Equal(t, "half-open", CircuitHalfOpen.String())
}
