package qec

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/davecgh/go-spew/spew"
	. "github.com/smartystreets/goconvey/convey"
)

// scriptedOracle delegates to fn and counts calls.
type scriptedOracle struct {
	fn    func(ctx context.Context, c Circuit) (Measurement, error)
	calls atomic.Int64
}

func (o *scriptedOracle) Measure(ctx context.Context, c Circuit) (Measurement, error) {
	o.calls.Add(1)
	return o.fn(ctx, c)
}

func (o *scriptedOracle) BatchRun(ctx context.Context, c Circuit, shots int) ([]Measurement, error) {
	out := make([]Measurement, 0, shots)
	for i := 0; i < shots; i++ {
		m, err := o.Measure(ctx, c)
		if err != nil {
			return out, err
		}
		out = append(out, m)
	}
	return out, nil
}

var errBackendDown = errors.New("backend down")

func failingOracle() *scriptedOracle {
	return &scriptedOracle{fn: func(context.Context, Circuit) (Measurement, error) {
		return Measurement{}, errBackendDown
	}}
}

func malformedOracle() *scriptedOracle {
	return &scriptedOracle{fn: func(context.Context, Circuit) (Measurement, error) {
		short := Bits{0, 0, 0, 0, 0, 0}
		return Measurement{Data: short, ProbeX: short, ProbeZ: short}, nil
	}}
}

func TestCycleActive(t *testing.T) {
	Convey("Given an active cycle on |0_L⟩", t, func() {
		ctx := context.Background()
		cycle := NewCycle(newTestOracle(5))
		So(cycle.Validate(), ShouldBeNil)

		base, err := cycle.Baseline(ctx)
		So(err, ShouldBeNil)
		So(base.X, ShouldResemble, TrivialSyndrome)
		So(base.Z, ShouldResemble, TrivialSyndrome)

		Convey("No error should decode to no correction", func() {
			out, err := cycle.Run(ctx, base, nil)
			So(err, ShouldBeNil)
			So(out.Success, ShouldBeTrue)
			So(out.Corrected, ShouldBeFalse)
			So(out.Verified, ShouldBeTrue)
			So(out.Directive.None(), ShouldBeTrue)
			So(out.Path, ShouldResemble, []CycleState{
				StateInit, StateBaselineMeasured, StateErrorInjected, StateSyndromeMeasured,
				StateDecodedNone, StateVerified, StateDone,
			})
		})

		Convey("X on qubit 3 should be found and corrected", func() {
			out, err := cycle.Run(ctx, base, []ErrorEvent{{Index: 3, Basis: PauliX}})
			So(err, ShouldBeNil)
			So(out.Directive, ShouldResemble, Directive{Index: 3, Basis: PauliX})
			So(out.Corrected, ShouldBeTrue)
			So(out.Verified, ShouldBeTrue)
			So(out.Success, ShouldBeTrue)
			So(out.Errors, ShouldEqual, 1)
			So(out.Path, ShouldContain, StateCorrectionApplied)
			So(out.Final(), ShouldEqual, StateDone)
		})

		Convey("Every single-qubit error should be corrected", func() {
			for q := 0; q < NumQubits; q++ {
				for _, b := range []Pauli{PauliX, PauliY, PauliZ} {
					out, err := cycle.Run(ctx, base, []ErrorEvent{{Index: q, Basis: b}})
					So(err, ShouldBeNil)
					So(out.Success, ShouldBeTrue)
					So(out.Verified, ShouldBeTrue)
				}
			}
		})

		Convey("A weight-two X error should be miscorrected into a logical flip", func() {
			out, err := cycle.Run(ctx, base, []ErrorEvent{{Index: 0, Basis: PauliX}, {Index: 1, Basis: PauliX}})
			So(err, ShouldBeNil)
			So(out.Directive, ShouldResemble, Directive{Index: 5, Basis: PauliX})
			So(out.Verified, ShouldBeTrue)
			So(out.Success, ShouldBeFalse)
		})

		Convey("X and Z on different qubits should be left alone", func() {
			out, err := cycle.Run(ctx, base, []ErrorEvent{{Index: 1, Basis: PauliX}, {Index: 4, Basis: PauliZ}})
			So(err, ShouldBeNil)
			So(out.Ambiguous, ShouldBeTrue)
			So(out.Corrected, ShouldBeFalse)
			So(out.Success, ShouldBeFalse)
		})
	})
}

func TestCycleModes(t *testing.T) {
	Convey("Given the three modes", t, func() {
		ctx := context.Background()
		oracle := newTestOracle(8)
		xOn3 := []ErrorEvent{{Index: 3, Basis: PauliX}}
		zOn5 := []ErrorEvent{{Index: 5, Basis: PauliZ}}

		Convey("Baseline mode should read the error out as is", func() {
			cycle := NewCycle(oracle, WithMode(ModeBaseline))
			out, err := cycle.Execute(ctx, xOn3)
			So(err, ShouldBeNil)
			So(out.Accepted, ShouldBeTrue)
			So(out.Success, ShouldBeFalse)
			So(out.Verified, ShouldBeFalse)
			So(out.Path, ShouldNotContain, StateDecodedNone)
		})

		Convey("A Z error should not disturb the outcome criterion", func() {
			cycle := NewCycle(oracle, WithMode(ModeBaseline))
			out, err := cycle.Execute(ctx, zOn5)
			So(err, ShouldBeNil)
			So(out.Success, ShouldBeTrue)
		})

		Convey("The syndrome criterion should catch the Z error", func() {
			cycle := NewCycle(oracle, WithMode(ModeBaseline), WithCriterion(CriterionSyndrome))
			out, err := cycle.Execute(ctx, zOn5)
			So(err, ShouldBeNil)
			So(out.Success, ShouldBeFalse)

			cycle = NewCycle(oracle, WithMode(ModeActive), WithCriterion(CriterionSyndrome))
			out, err = cycle.Execute(ctx, zOn5)
			So(err, ShouldBeNil)
			So(out.Success, ShouldBeTrue)
		})

		Convey("Postselection should reject a detected error", func() {
			cycle := NewCycle(oracle, WithMode(ModePostselect))
			out, err := cycle.Execute(ctx, xOn3)
			So(err, ShouldBeNil)
			So(out.Accepted, ShouldBeFalse)
			So(out.Final(), ShouldEqual, StateRejected)

			out, err = cycle.Execute(ctx, nil)
			So(err, ShouldBeNil)
			So(out.Accepted, ShouldBeTrue)
			So(out.Success, ShouldBeTrue)
		})

		Convey("A superposition cannot be judged by outcome", func() {
			cycle := NewCycle(oracle, WithState(PlusState))
			So(errors.Is(cycle.Validate(), ErrNondeterministicState), ShouldBeTrue)

			cycle = NewCycle(oracle, WithState(PlusState), WithCriterion(CriterionSyndrome))
			So(cycle.Validate(), ShouldBeNil)
		})
	})
}

func TestRunPostselected(t *testing.T) {
	Convey("Given a postselecting cycle", t, func() {
		ctx := context.Background()
		cycle := NewCycle(newTestOracle(3), WithMode(ModePostselect), WithMaxAttempts(20))
		base, err := cycle.Baseline(ctx)
		So(err, ShouldBeNil)

		Convey("A sampler that always errs should stop at the cap", func() {
			out, err := cycle.RunPostselected(ctx, base, func() ([]ErrorEvent, error) {
				return []ErrorEvent{{Index: 2, Basis: PauliY}}, nil
			})
			So(err, ShouldBeNil)
			So(out.Accepted, ShouldBeFalse)
			So(out.Attempts, ShouldEqual, 20)
		})

		Convey("A clean attempt should end the loop", func() {
			n := 0
			out, err := cycle.RunPostselected(ctx, base, func() ([]ErrorEvent, error) {
				n++
				if n < 4 {
					return []ErrorEvent{{Index: 0, Basis: PauliZ}}, nil
				}
				return nil, nil
			})
			So(err, ShouldBeNil)
			So(out.Accepted, ShouldBeTrue)
			So(out.Attempts, ShouldEqual, 4)
		})

		Convey("Sampler errors should not be retried", func() {
			_, err := cycle.RunPostselected(ctx, base, func() ([]ErrorEvent, error) {
				return nil, ErrParameterBounds
			})
			So(errors.Is(err, ErrParameterBounds), ShouldBeTrue)
		})
	})

	Convey("Given an active cycle", t, func() {
		cycle := NewCycle(newTestOracle(3))
		base, _ := cycle.Baseline(context.Background())

		Convey("The first attempt should always be final", func() {
			out, err := cycle.RunPostselected(context.Background(), base, func() ([]ErrorEvent, error) {
				return []ErrorEvent{{Index: 2, Basis: PauliY}}, nil
			})
			So(err, ShouldBeNil)
			So(out.Attempts, ShouldEqual, 1)
		})
	})
}

func TestCycleFailures(t *testing.T) {
	Convey("Given an oracle that fails", t, func() {
		oracle := failingOracle()
		cycle := NewCycle(oracle)

		Convey("Execute should surface an oracle failure", func() {
			out, err := cycle.Execute(context.Background(), nil)
			So(errors.Is(err, ErrOracleFailure), ShouldBeTrue)
			So(errors.Is(err, errBackendDown), ShouldBeTrue)
			So(out.Accepted, ShouldBeFalse)
			So(oracle.calls.Load(), ShouldEqual, int64(1))
		})
	})

	Convey("Given an oracle that returns short vectors", t, func() {
		cycle := NewCycle(malformedOracle())

		Convey("The baseline should fail fast", func() {
			_, err := cycle.Baseline(context.Background())
			So(errors.Is(err, ErrMalformedMeasurement), ShouldBeTrue)
		})
	})

	Convey("Given an out of range error event", t, func() {
		cycle := NewCycle(newTestOracle(1))
		base, _ := cycle.Baseline(context.Background())

		out, err := cycle.Run(context.Background(), base, []ErrorEvent{{Index: 11, Basis: PauliX}})
		So(errors.Is(err, ErrInvalidIndex), ShouldBeTrue)
		So(out.Final(), ShouldEqual, StateBaselineMeasured)
		So(spew.Sdump(out), ShouldContainSubstring, "Attempts: (int) 1")
	})
}
