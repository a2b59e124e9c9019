package qec

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

/*
CircuitState represents the state of the circuit breaker.
This is used to track whether oracle calls are currently allowed through.
*/
type CircuitState int

const (
	CircuitClosed   CircuitState = iota // Normal operation state
	CircuitOpen                         // Failure state, rejecting calls
	CircuitHalfOpen                     // Probationary state, allowing limited calls
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	}
	return "unknown"
}

/*
CircuitBreaker stops calls to an oracle that keeps failing, so a sweep
against an unreachable simulator fails fast instead of burning every shot on
a timeout.

The circuit breaker operates in three states:
  - Closed: Normal operation, all calls are allowed
  - Open: Failure threshold exceeded, all calls are rejected
  - Half-Open: Probationary state allowing limited calls to test oracle health
*/
type CircuitBreaker struct {
	mu               sync.Mutex
	maxFailures      int           // Consecutive failures before opening
	resetTimeout     time.Duration // Time to wait before probing again
	halfOpenMax      int           // Successful probes needed to close
	failureCount     int
	state            CircuitState
	openTime         time.Time
	halfOpenAttempts int
	log              zerolog.Logger
}

/*
NewCircuitBreaker creates a new circuit breaker instance with specified parameters.

Parameters:
  - maxFailures: Number of consecutive failures allowed before opening the circuit
  - resetTimeout: Duration to wait before attempting to close an open circuit
  - halfOpenMax: Number of successful probes in half-open state before closing

Returns:
  - *CircuitBreaker: A new circuit breaker instance initialized in closed state
*/
func NewCircuitBreaker(maxFailures int, resetTimeout time.Duration, halfOpenMax int) *CircuitBreaker {
	if maxFailures < 1 {
		maxFailures = 1
	}
	if halfOpenMax < 1 {
		halfOpenMax = 1
	}
	return &CircuitBreaker{
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
		halfOpenMax:  halfOpenMax,
		state:        CircuitClosed,
		log:          zerolog.Nop(),
	}
}

// WithLogger attaches a logger for state transitions.
func (cb *CircuitBreaker) WithLogger(log zerolog.Logger) *CircuitBreaker {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.log = log
	return cb
}

// State returns the current state.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

/*
RecordFailure records a failure and updates the circuit state.
A failure while half-open reopens the circuit immediately.
*/
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failureCount++
	switch cb.state {
	case CircuitHalfOpen:
		cb.state = CircuitOpen
		cb.openTime = time.Now()
		cb.log.Warn().Int("failures", cb.failureCount).Msg("oracle circuit reopened from half-open")
	case CircuitClosed:
		if cb.failureCount >= cb.maxFailures {
			cb.state = CircuitOpen
			cb.openTime = time.Now()
			cb.log.Warn().Int("failures", cb.failureCount).Msg("oracle circuit opened")
		}
	}
}

/*
RecordSuccess records a successful call. Enough successes in half-open state
close the circuit; in closed state the failure streak resets.
*/
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitHalfOpen:
		cb.halfOpenAttempts++
		if cb.halfOpenAttempts >= cb.halfOpenMax {
			cb.state = CircuitClosed
			cb.failureCount = 0
			cb.halfOpenAttempts = 0
			cb.log.Info().Msg("oracle circuit closed from half-open")
		}
	case CircuitClosed:
		cb.failureCount = 0
	}
}

// Allow determines if a call may proceed.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		return true
	case CircuitOpen:
		if time.Since(cb.openTime) > cb.resetTimeout {
			cb.state = CircuitHalfOpen
			cb.halfOpenAttempts = 0
			return true
		}
		return false
	case CircuitHalfOpen:
		return cb.halfOpenAttempts < cb.halfOpenMax
	default:
		return false
	}
}
