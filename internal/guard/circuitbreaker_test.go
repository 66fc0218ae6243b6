package guard

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreakerOpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker("test", 3, 100*time.Millisecond)

	for i := 0; i < 3; i++ {
		assert.Equal(t, StateClosed, cb.State())
		cb.RecordFailure()
	}
	assert.Equal(t, StateOpen, cb.State())
	assert.False(t, cb.Allow())
}

func TestBreakerProbeAfterRecovery(t *testing.T) {
	cb := NewCircuitBreaker("test", 3, 100*time.Millisecond)
	for i := 0; i < 3; i++ {
		cb.RecordFailure()
	}
	require.Equal(t, StateOpen, cb.State())

	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, StateHalfOpen, cb.State())
	assert.True(t, cb.Allow(), "one probe admitted in HALF_OPEN")
	assert.False(t, cb.Allow(), "second probe refused while first in flight")

	cb.RecordSuccess()
	assert.Equal(t, StateClosed, cb.State())
	assert.True(t, cb.Allow())
}

func TestBreakerFailedProbeReopens(t *testing.T) {
	cb := NewCircuitBreaker("test", 2, 50*time.Millisecond)
	cb.RecordFailure()
	cb.RecordFailure()
	require.Equal(t, StateOpen, cb.State())

	time.Sleep(100 * time.Millisecond)
	require.True(t, cb.Allow())
	cb.RecordFailure()
	assert.Equal(t, StateOpen, cb.State())
}

func TestBreakerSuccessResetsCount(t *testing.T) {
	cb := NewCircuitBreaker("test", 3, time.Second)
	cb.RecordFailure()
	cb.RecordFailure()
	cb.RecordSuccess()
	cb.RecordFailure()
	cb.RecordFailure()
	assert.Equal(t, StateClosed, cb.State(), "non-consecutive failures never open the circuit")
}

func TestBreakerExecute(t *testing.T) {
	cb := NewCircuitBreaker("test", 1, time.Minute)

	boom := errors.New("boom")
	err := cb.Execute(func() error { return boom })
	require.ErrorIs(t, err, boom)

	err = cb.Execute(func() error { return nil })
	var open *ErrCircuitOpen
	require.ErrorAs(t, err, &open)
	assert.Equal(t, "test", open.Breaker)
}
