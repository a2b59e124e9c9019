package qec

import "fmt"

// NumQubits is the number of physical qubits in one encoded block.
const NumQubits = 7

// NoQubit marks the absence of an error or correction target.
const NoQubit = -1

// Pauli identifies the type of a single-qubit error or correction.
type Pauli int

const (
	PauliX Pauli = iota
	PauliY
	PauliZ
)

func (p Pauli) String() string {
	switch p {
	case PauliX:
		return "X"
	case PauliY:
		return "Y"
	case PauliZ:
		return "Z"
	default:
		return fmt.Sprintf("Pauli(%d)", int(p))
	}
}

// HasX reports whether the operator flips bits in the computational basis.
func (p Pauli) HasX() bool { return p == PauliX || p == PauliY }

// HasZ reports whether the operator flips phases.
func (p Pauli) HasZ() bool { return p == PauliZ || p == PauliY }

// ErrorEvent is a single Pauli applied to one physical qubit. The zero-target
// sentinel NoError carries Index == NoQubit and is ignored by oracles.
type ErrorEvent struct {
	Index int
	Basis Pauli
}

// NoError is the "none" event.
var NoError = ErrorEvent{Index: NoQubit, Basis: PauliX}

// IsNone reports whether the event is the sentinel.
func (e ErrorEvent) IsNone() bool { return e.Index == NoQubit }

// Validate rejects indices outside [0,6] and unknown bases. The sentinel is valid.
func (e ErrorEvent) Validate() error {
	if e.IsNone() {
		return nil
	}
	if err := checkIndex(e.Index); err != nil {
		return err
	}
	if e.Basis < PauliX || e.Basis > PauliZ {
		return fmt.Errorf("%w: basis %d", ErrParameterBounds, int(e.Basis))
	}
	return nil
}

func (e ErrorEvent) String() string {
	if e.IsNone() {
		return "none"
	}
	return fmt.Sprintf("%s%d", e.Basis, e.Index)
}

func checkIndex(q int) error {
	if q < 0 || q >= NumQubits {
		return fmt.Errorf("%w: %d", ErrInvalidIndex, q)
	}
	return nil
}

// PauliFrame is the net Pauli acting on the block, tracked as X and Z bit masks.
// Applying the same operator twice cancels, so composition happens here and
// never in the error model.
type PauliFrame struct {
	X uint8
	Z uint8
}

// Apply folds an event into the frame.
func (f *PauliFrame) Apply(e ErrorEvent) error {
	if e.IsNone() {
		return nil
	}
	if err := e.Validate(); err != nil {
		return err
	}
	bit := uint8(1) << uint(e.Index)
	if e.Basis.HasX() {
		f.X ^= bit
	}
	if e.Basis.HasZ() {
		f.Z ^= bit
	}
	return nil
}

// FrameOf composes a sequence of event lists into one frame.
func FrameOf(lists ...[]ErrorEvent) (PauliFrame, error) {
	var f PauliFrame
	for _, events := range lists {
		for _, e := range events {
			if err := f.Apply(e); err != nil {
				return PauliFrame{}, err
			}
		}
	}
	return f, nil
}
