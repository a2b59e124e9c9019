package qec

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// ProbabilityReport compares the measured logical readout statistics of a
// circuit with those of the ideal prepared state.
type ProbabilityReport struct {
	Shots    int
	Measured float64 // observed P(logical 1)
	Expected float64 // ideal P(logical 1) of the prepared state
	Fidelity float64 // classical fidelity of the two Bernoulli distributions
}

/*
ProbabilityFidelity runs circuit shots times in one batch and reports the
classical fidelity (sqrt(pq) + sqrt((1-p)(1-q)))^2 between the observed and
the ideal logical readout distributions. It works for nondeterministic states
where an outcome criterion does not apply.
*/
func ProbabilityFidelity(ctx context.Context, oracle Oracle, circuit Circuit, shots int) (ProbabilityReport, error) {
	report := ProbabilityReport{Shots: shots, Expected: circuit.State.Probability1()}
	if shots < 1 {
		return report, fmt.Errorf("%w: shots=%d", ErrParameterBounds, shots)
	}
	if err := circuit.Validate(); err != nil {
		return report, err
	}

	ms, err := oracle.BatchRun(ctx, circuit, shots)
	if err != nil {
		return report, fmt.Errorf("%w: %w", ErrOracleFailure, err)
	}
	if len(ms) != shots {
		return report, fmt.Errorf("%w: batch returned %d of %d shots", ErrMalformedMeasurement, len(ms), shots)
	}

	ones := make([]float64, shots)
	for i, m := range ms {
		bit, err := m.LogicalBit()
		if err != nil {
			return report, err
		}
		ones[i] = float64(bit)
	}

	report.Measured = stat.Mean(ones, nil)
	report.Fidelity = BernoulliFidelity(report.Measured, report.Expected)
	return report, nil
}

// BernoulliFidelity is the classical fidelity of two coins with heads
// probabilities p and q.
func BernoulliFidelity(p, q float64) float64 {
	f := math.Sqrt(p*q) + math.Sqrt((1-p)*(1-q))
	return f * f
}
