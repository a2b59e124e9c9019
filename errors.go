package qec

import (
	"errors"
	"fmt"
)

// Domain errors for decoding and cycle orchestration.
var (
	// ErrInvalidIndex indicates a qubit index outside [0,6].
	ErrInvalidIndex = errors.New("qec: qubit index out of range")

	// ErrUndecodableSyndrome indicates a flip pattern missing from the decode table.
	// The table is validated at init, so this only surfaces as a panic.
	ErrUndecodableSyndrome = errors.New("qec: flip pattern not in decode table")

	// ErrOracleFailure wraps anything the simulator oracle returns as an error.
	ErrOracleFailure = errors.New("qec: oracle failure")

	// ErrMalformedMeasurement indicates a measurement vector that is not seven 0/1 bits.
	ErrMalformedMeasurement = errors.New("qec: malformed measurement vector")

	// ErrParameterBounds indicates a probability, ratio or count outside its valid range.
	ErrParameterBounds = errors.New("qec: parameter out of valid bounds")

	// ErrCircuitOpen is returned by a guarded oracle while its breaker rejects calls.
	ErrCircuitOpen = errors.New("qec: oracle circuit breaker is open")

	// ErrNondeterministicState indicates an outcome criterion on a state without a definite Z readout.
	ErrNondeterministicState = errors.New("qec: logical state has no deterministic readout")
)

// TrialError wraps a failure with the sweep coordinates of the shot that produced it.
type TrialError struct {
	NoiseLevel float64
	Shot       int
	Wrapped    error
}

func (e *TrialError) Error() string {
	return fmt.Sprintf("trial p=%g shot=%d: %v", e.NoiseLevel, e.Shot, e.Wrapped)
}

func (e *TrialError) Unwrap() error {
	return e.Wrapped
}
