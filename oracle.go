package qec

import (
	"context"
	"fmt"
)

// Circuit parameterises one oracle execution: prepare the logical state,
// apply the error events in order, then the correction events in order.
type Circuit struct {
	State       LogicalState
	Errors      []ErrorEvent
	Corrections []ErrorEvent
}

// Validate rejects out-of-range events before they reach an oracle.
func (c Circuit) Validate() error {
	for _, list := range [][]ErrorEvent{c.Errors, c.Corrections} {
		for _, e := range list {
			if err := e.Validate(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Measurement is what one oracle execution returns: the data block read out
// directly, and the two stabilizer probes.
type Measurement struct {
	Data   Bits
	ProbeX Bits
	ProbeZ Bits
}

// Validate checks that all three vectors are well formed.
func (m Measurement) Validate() error {
	for name, b := range map[string]Bits{"data": m.Data, "probe-x": m.ProbeX, "probe-z": m.ProbeZ} {
		if err := b.Validate(); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// Syndromes computes the X and Z syndromes of the probes.
func (m Measurement) Syndromes() (x, z Syndrome, err error) {
	if x, err = ColorParities(m.ProbeX); err != nil {
		return
	}
	z, err = ColorParities(m.ProbeZ)
	return
}

// LogicalBit decodes the data readout into the logical Z value.
func (m Measurement) LogicalBit() (int, error) {
	return LogicalParity(m.Data)
}

/*
Oracle is the boundary to the quantum state simulator. Implementations must
be safe for concurrent use; the engine may call them from many workers.
*/
type Oracle interface {
	// Measure executes the circuit once and returns the three measurement vectors.
	Measure(ctx context.Context, c Circuit) (Measurement, error)

	// BatchRun executes the circuit shots times.
	BatchRun(ctx context.Context, c Circuit, shots int) ([]Measurement, error)
}

// measure calls the oracle and enforces the failure semantics of the engine:
// errors are wrapped as oracle failures, malformed vectors fail fast.
func measure(ctx context.Context, oracle Oracle, c Circuit) (Measurement, error) {
	m, err := oracle.Measure(ctx, c)
	if err != nil {
		return Measurement{}, fmt.Errorf("%w: %w", ErrOracleFailure, err)
	}
	if err := m.Validate(); err != nil {
		return Measurement{}, err
	}
	return m, nil
}
