package circuitbreaker

import (
	"sync"
	"time"
)

// State represents the state of the circuit breaker
type State int

const (
	StateClosed   State = iota // calls flow normally
	StateHalfOpen              // a limited number of probes are let through
	StateOpen                  // calls are refused until the reset timeout elapses
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// CircuitBreaker stops calls to a dependency after repeated failures
type CircuitBreaker struct {
	mu               sync.Mutex
	state            State
	failureThreshold int
	resetTimeout     time.Duration
	halfOpenMaxCalls int
	failureCount     int
	halfOpenCalls    int
	lastStateChange  time.Time
	now              func() time.Time
}

// Config configures a CircuitBreaker
type Config struct {
	FailureThreshold int
	ResetTimeout     time.Duration
	HalfOpenMaxCalls int
}

// New creates a closed circuit breaker
func New(config Config) *CircuitBreaker {
	return newWithClock(config, time.Now)
}

func newWithClock(config Config, now func() time.Time) *CircuitBreaker {
	if config.FailureThreshold < 1 {
		config.FailureThreshold = 1
	}
	if config.HalfOpenMaxCalls < 1 {
		config.HalfOpenMaxCalls = 1
	}

	return &CircuitBreaker{
		state:            StateClosed,
		failureThreshold: config.FailureThreshold,
		resetTimeout:     config.ResetTimeout,
		halfOpenMaxCalls: config.HalfOpenMaxCalls,
		lastStateChange:  now(),
		now:              now,
	}
}

// Allow reports whether a call may proceed. An open breaker moves to
// half-open once the reset timeout has elapsed; probes that never report an
// outcome are renewed after another timeout.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	stalled := cb.state == StateOpen ||
		(cb.state == StateHalfOpen && cb.halfOpenCalls >= cb.halfOpenMaxCalls)
	if stalled && cb.now().Sub(cb.lastStateChange) >= cb.resetTimeout {
		cb.setState(StateHalfOpen)
	}

	switch cb.state {
	case StateClosed:
		return true
	case StateHalfOpen:
		if cb.halfOpenCalls >= cb.halfOpenMaxCalls {
			return false
		}
		cb.halfOpenCalls++
		return true
	default:
		return false
	}
}

// Success reports a successful call
func (cb *CircuitBreaker) Success() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateHalfOpen {
		cb.setState(StateClosed)
	}
	cb.failureCount = 0
}

// Failure reports a failed call
func (cb *CircuitBreaker) Failure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		cb.failureCount++
		if cb.failureCount >= cb.failureThreshold {
			cb.setState(StateOpen)
		}
	case StateHalfOpen:
		cb.setState(StateOpen)
	}
}

// State returns the current state without advancing it
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Metrics returns a snapshot for logging
func (cb *CircuitBreaker) Metrics() map[string]interface{} {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return map[string]interface{}{
		"state":             cb.state.String(),
		"failure_count":     cb.failureCount,
		"failure_threshold": cb.failureThreshold,
		"reset_timeout":     cb.resetTimeout.String(),
		"time_in_state":     cb.now().Sub(cb.lastStateChange).String(),
	}
}

// setState must be called with mu held
func (cb *CircuitBreaker) setState(state State) {
	cb.state = state
	cb.lastStateChange = cb.now()
	cb.halfOpenCalls = 0
	if state == StateClosed {
		cb.failureCount = 0
	}
}
