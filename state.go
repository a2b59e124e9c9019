package qec

import (
	"fmt"
	"math"
	"math/cmplx"
)

// Qubit is a single-qubit pure state used to work out the readout statistics
// of the prepared logical state.
type Qubit struct {
	alpha complex128 // |0⟩ amplitude
	beta  complex128 // |1⟩ amplitude
}

func NewQubit(alpha, beta complex128) *Qubit {
	return &Qubit{
		alpha: alpha,
		beta:  beta,
	}
}

func (q *Qubit) ApplyRz(theta float64) *Qubit {
	// Rz = [e^{-iθ/2}      0    ]
	//      [    0      e^{iθ/2} ]
	q.alpha *= cmplx.Exp(complex(0, -theta/2))
	q.beta *= cmplx.Exp(complex(0, theta/2))
	return q
}

func (q *Qubit) ApplyRx(phi float64) *Qubit {
	// Rx = [ cos φ/2    -i sin φ/2 ]
	//      [-i sin φ/2   cos φ/2   ]
	c := complex(math.Cos(phi/2), 0)
	s := complex(0, -math.Sin(phi/2))
	newAlpha := c*q.alpha + s*q.beta
	newBeta := s*q.alpha + c*q.beta
	q.alpha = newAlpha
	q.beta = newBeta
	return q
}

// Probability1 is the probability of reading 1 in the Z basis.
func (q *Qubit) Probability1() float64 {
	a := cmplx.Abs(q.alpha)
	b := cmplx.Abs(q.beta)
	norm := a*a + b*b
	if norm == 0 {
		return 0
	}
	return b * b / norm
}

/*
LogicalState is the single-qubit state encoded into the block, given as the
angles of Rz(theta) followed by Rx(phi) applied to |0⟩.
*/
type LogicalState struct {
	Theta float64 `yaml:"theta" toml:"theta"`
	Phi   float64 `yaml:"phi" toml:"phi"`
}

// Preset states.
var (
	ZeroState  = LogicalState{Theta: 0, Phi: 0}
	OneState   = LogicalState{Theta: 0, Phi: math.Pi}
	PlusState  = LogicalState{Theta: 0, Phi: math.Pi / 2}
	MinusState = LogicalState{Theta: math.Pi, Phi: math.Pi / 2}
)

// ParseState resolves a preset name.
func ParseState(name string) (LogicalState, error) {
	switch name {
	case "", "zero", "0":
		return ZeroState, nil
	case "one", "1":
		return OneState, nil
	case "plus", "+":
		return PlusState, nil
	case "minus", "-":
		return MinusState, nil
	}
	return LogicalState{}, fmt.Errorf("%w: state %q", ErrParameterBounds, name)
}

// Probability1 is the probability that an error-free logical Z readout gives 1.
func (s LogicalState) Probability1() float64 {
	return NewQubit(1, 0).ApplyRz(s.Theta).ApplyRx(s.Phi).Probability1()
}

const determinismTolerance = 1e-9

// ExpectedOutcome is the error-free logical readout, defined only when it is certain.
func (s LogicalState) ExpectedOutcome() (int, error) {
	p := s.Probability1()
	switch {
	case p < determinismTolerance:
		return 0, nil
	case p > 1-determinismTolerance:
		return 1, nil
	}
	return 0, fmt.Errorf("%w: P(1)=%.3f", ErrNondeterministicState, p)
}
