package guard

import (
	"fmt"
	"sync"
	"time"
)

// BreakerState is one of the three circuit breaker states.
type BreakerState int

const (
	StateClosed BreakerState = iota
	StateOpen
	StateHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// CircuitBreaker protects a downstream dependency. It opens after
// FailureThreshold consecutive failures, stays open for RecoveryTimeout,
// then admits a single probe in HALF_OPEN: success closes the circuit,
// failure reopens it. State transitions use the monotonic clock.
type CircuitBreaker struct {
	name             string
	failureThreshold int
	recoveryTimeout  time.Duration

	mu            sync.Mutex
	state         BreakerState
	failures      int
	lastFailure   time.Time
	probeInFlight bool
}

// NewCircuitBreaker builds a breaker in the CLOSED state.
func NewCircuitBreaker(name string, failureThreshold int, recoveryTimeout time.Duration) *CircuitBreaker {
	if failureThreshold <= 0 {
		failureThreshold = 5
	}
	if recoveryTimeout <= 0 {
		recoveryTimeout = 60 * time.Second
	}
	return &CircuitBreaker{
		name:             name,
		failureThreshold: failureThreshold,
		recoveryTimeout:  recoveryTimeout,
		state:            StateClosed,
	}
}

// Name returns the breaker's registered name.
func (cb *CircuitBreaker) Name() string { return cb.name }

// State returns the current state, promoting OPEN to HALF_OPEN when the
// recovery timeout has elapsed.
func (cb *CircuitBreaker) State() BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.maybeHalfOpen()
	return cb.state
}

// Allow reports whether a call may proceed. In HALF_OPEN only one probe
// is admitted at a time; callers that get true must follow up with
// RecordSuccess or RecordFailure.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.maybeHalfOpen()
	switch cb.state {
	case StateClosed:
		return true
	case StateHalfOpen:
		if cb.probeInFlight {
			return false
		}
		cb.probeInFlight = true
		return true
	default:
		return false
	}
}

// RecordSuccess resets the failure count; from HALF_OPEN it closes the
// circuit.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures = 0
	cb.probeInFlight = false
	cb.state = StateClosed
}

// RecordFailure bumps the consecutive failure count. Reaching the
// threshold, or failing the HALF_OPEN probe, opens the circuit.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures++
	cb.lastFailure = time.Now()
	cb.probeInFlight = false
	if cb.state == StateHalfOpen || cb.failures >= cb.failureThreshold {
		cb.state = StateOpen
	}
}

// Execute runs fn under the breaker, recording the outcome. A refused
// call returns ErrCircuitOpen without invoking fn.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if !cb.Allow() {
		return &ErrCircuitOpen{Breaker: cb.name}
	}
	if err := fn(); err != nil {
		cb.RecordFailure()
		return err
	}
	cb.RecordSuccess()
	return nil
}

// maybeHalfOpen transitions OPEN→HALF_OPEN once the recovery timeout has
// elapsed since the last failure. Caller must hold cb.mu.
func (cb *CircuitBreaker) maybeHalfOpen() {
	if cb.state == StateOpen && time.Since(cb.lastFailure) >= cb.recoveryTimeout {
		cb.state = StateHalfOpen
		cb.probeInFlight = false
	}
}

// ErrCircuitOpen is returned when a breaker refuses a call.
type ErrCircuitOpen struct {
	Breaker string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker %q is open", e.Breaker)
}
