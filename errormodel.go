package qec

import (
	"fmt"
	"math/rand/v2"
)

// Defaults of the sampled noise model.
const (
	DefaultRatio     = 0.25
	DefaultMaxErrors = 2
)

/*
SampleErrorEvents draws a variable number of independent single-qubit Pauli
errors. The count follows a sequential Bernoulli chain: with k errors already
accepted, one more is accepted with probability p1*r^k, and the chain stops at
the first rejection or when k reaches maxErrors. The resulting distribution
decays geometrically but is not normalised over k.

Every accepted error picks its qubit and its basis uniformly and with
replacement, so two events may land on the same qubit. They are returned as
separate events and composed later by whoever applies them.

Parameters:
  - rng: source of randomness, owned by the caller
  - p1: probability of the first error, in [0,1]
  - r: decay ratio between successive errors, in (0,1]
  - maxErrors: hard cap on the number of events, >= 0

Returns:
  - []ErrorEvent: between 0 and maxErrors events
  - error: ErrParameterBounds when an argument is out of range
*/
func SampleErrorEvents(rng *rand.Rand, p1, r float64, maxErrors int) ([]ErrorEvent, error) {
	if p1 < 0 || p1 > 1 {
		return nil, fmt.Errorf("%w: p1=%g", ErrParameterBounds, p1)
	}
	if r <= 0 || r > 1 {
		return nil, fmt.Errorf("%w: r=%g", ErrParameterBounds, r)
	}
	if maxErrors < 0 {
		return nil, fmt.Errorf("%w: maxErrors=%d", ErrParameterBounds, maxErrors)
	}

	k := 0
	prob := p1
	for k < maxErrors && rng.Float64() < prob {
		k++
		prob *= r
	}

	events := make([]ErrorEvent, 0, k)
	for i := 0; i < k; i++ {
		events = append(events, ErrorEvent{
			Index: rng.IntN(NumQubits),
			Basis: Pauli(rng.IntN(3)),
		})
	}
	return events, nil
}

// ErrorModel fixes the decay ratio and cap of the sampler for one sweep point.
type ErrorModel struct {
	P1        float64
	Ratio     float64
	MaxErrors int
}

// NewErrorModel returns a model with the default ratio and cap.
func NewErrorModel(p1 float64) ErrorModel {
	return ErrorModel{P1: p1, Ratio: DefaultRatio, MaxErrors: DefaultMaxErrors}
}

// Validate checks the parameters without sampling.
func (m ErrorModel) Validate() error {
	_, err := SampleErrorEvents(rand.New(rand.NewPCG(0, 0)), m.P1, m.Ratio, m.MaxErrors)
	return err
}

// Sample draws one list of events.
func (m ErrorModel) Sample(rng *rand.Rand) ([]ErrorEvent, error) {
	return SampleErrorEvents(rng, m.P1, m.Ratio, m.MaxErrors)
}

// Level is the physical error probability the model was built for.
func (m ErrorModel) Level() float64 { return m.P1 }

// NoiseModel draws the error events of one shot or of one memory round.
type NoiseModel interface {
	Sample(rng *rand.Rand) ([]ErrorEvent, error)
	Validate() error
	Level() float64
}

/*
SampleDepolarizing applies independent depolarizing noise to the whole block:
every qubit, in index order, suffers X, Y or Z with probability p/3 each and
is left alone with probability 1-p. Events come back in qubit order, at most
one per qubit.
*/
func SampleDepolarizing(rng *rand.Rand, p float64) ([]ErrorEvent, error) {
	if !(p >= 0 && p <= 1) {
		return nil, fmt.Errorf("%w: p=%g", ErrParameterBounds, p)
	}

	var events []ErrorEvent
	for q := 0; q < NumQubits; q++ {
		if rng.Float64() < p {
			events = append(events, ErrorEvent{Index: q, Basis: Pauli(rng.IntN(3))})
		}
	}
	return events, nil
}

// DepolarizingModel is per-qubit depolarizing noise at probability P.
type DepolarizingModel struct {
	P float64
}

// Validate checks P without sampling.
func (m DepolarizingModel) Validate() error {
	if !(m.P >= 0 && m.P <= 1) {
		return fmt.Errorf("%w: p=%g", ErrParameterBounds, m.P)
	}
	return nil
}

// Sample draws the events of one application of the channel.
func (m DepolarizingModel) Sample(rng *rand.Rand) ([]ErrorEvent, error) {
	return SampleDepolarizing(rng, m.P)
}

func (m DepolarizingModel) Level() float64 { return m.P }

// NoiseKind selects the noise model a sweep samples from.
type NoiseKind int

const (
	// NoiseGeometric is the truncated Bernoulli chain of SampleErrorEvents.
	NoiseGeometric NoiseKind = iota
	// NoiseDepolarizing is SampleDepolarizing on all seven qubits.
	NoiseDepolarizing
)

func (k NoiseKind) String() string {
	if k == NoiseDepolarizing {
		return "depolarizing"
	}
	return "geometric"
}

// ParseNoiseKind reads the config spelling of a noise model.
func ParseNoiseKind(s string) (NoiseKind, error) {
	switch s {
	case "", "geometric":
		return NoiseGeometric, nil
	case "depolarizing":
		return NoiseDepolarizing, nil
	}
	return NoiseGeometric, fmt.Errorf("%w: noise model %q", ErrParameterBounds, s)
}
