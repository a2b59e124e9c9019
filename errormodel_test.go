package qec

import (
	"errors"
	"math/rand/v2"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestSampleErrorEvents(t *testing.T) {
	Convey("Given a seeded source", t, func() {
		rng := rand.New(rand.NewPCG(7, 11))

		Convey("p1=0 should never produce an error", func() {
			for i := 0; i < 200; i++ {
				events, err := SampleErrorEvents(rng, 0, DefaultRatio, DefaultMaxErrors)
				So(err, ShouldBeNil)
				So(events, ShouldBeEmpty)
			}
		})

		Convey("p1=1 and r=1 should always hit the cap", func() {
			for i := 0; i < 50; i++ {
				events, err := SampleErrorEvents(rng, 1, 1, 3)
				So(err, ShouldBeNil)
				So(len(events), ShouldEqual, 3)
			}
		})

		Convey("Every event should be a valid qubit and basis", func() {
			for i := 0; i < 500; i++ {
				events, err := SampleErrorEvents(rng, 0.8, 0.9, 4)
				So(err, ShouldBeNil)
				So(len(events), ShouldBeLessThanOrEqualTo, 4)
				for _, e := range events {
					So(e.Validate(), ShouldBeNil)
				}
			}
		})

		Convey("The first-error rate should track p1", func() {
			hits := 0
			const n = 20000
			for i := 0; i < n; i++ {
				events, _ := SampleErrorEvents(rng, 0.3, DefaultRatio, DefaultMaxErrors)
				if len(events) > 0 {
					hits++
				}
			}
			So(float64(hits)/n, ShouldAlmostEqual, 0.3, 0.02)
		})

		Convey("Out of range parameters should be rejected", func() {
			_, err := SampleErrorEvents(rng, 1.5, DefaultRatio, 2)
			So(errors.Is(err, ErrParameterBounds), ShouldBeTrue)

			_, err = SampleErrorEvents(rng, 0.1, 0, 2)
			So(errors.Is(err, ErrParameterBounds), ShouldBeTrue)

			_, err = SampleErrorEvents(rng, 0.1, DefaultRatio, -1)
			So(errors.Is(err, ErrParameterBounds), ShouldBeTrue)
		})
	})

	Convey("Given two sources with the same seed", t, func() {
		a := rand.New(rand.NewPCG(3, 4))
		b := rand.New(rand.NewPCG(3, 4))
		model := NewErrorModel(0.6)

		Convey("They should draw the same events", func() {
			for i := 0; i < 100; i++ {
				ea, _ := model.Sample(a)
				eb, _ := model.Sample(b)
				So(ea, ShouldResemble, eb)
			}
		})
	})
}

func TestPauliFrame(t *testing.T) {
	Convey("Given events composed into a frame", t, func() {
		Convey("The same Pauli twice should cancel", func() {
			f, err := FrameOf([]ErrorEvent{{Index: 4, Basis: PauliZ}, {Index: 4, Basis: PauliZ}})
			So(err, ShouldBeNil)
			So(f, ShouldResemble, PauliFrame{})
		})

		Convey("X then Z on one qubit should act as Y", func() {
			f, err := FrameOf([]ErrorEvent{{Index: 2, Basis: PauliX}}, []ErrorEvent{{Index: 2, Basis: PauliZ}})
			So(err, ShouldBeNil)
			y, _ := FrameOf([]ErrorEvent{{Index: 2, Basis: PauliY}})
			So(f, ShouldResemble, y)
		})

		Convey("NoError should be ignored", func() {
			f, err := FrameOf([]ErrorEvent{NoError})
			So(err, ShouldBeNil)
			So(f, ShouldResemble, PauliFrame{})
		})

		Convey("An index outside the block should fail", func() {
			_, err := FrameOf([]ErrorEvent{{Index: 7, Basis: PauliX}})
			So(errors.Is(err, ErrInvalidIndex), ShouldBeTrue)
		})
	})
}

func TestDepolarizingModel(t *testing.T) {
	Convey("Given a seeded source", t, func() {
		rng := rand.New(rand.NewPCG(5, 9))

		Convey("p=0 should leave the block alone", func() {
			for i := 0; i < 100; i++ {
				events, err := SampleDepolarizing(rng, 0)
				So(err, ShouldBeNil)
				So(events, ShouldBeEmpty)
			}
		})

		Convey("p=1 should hit every qubit once, in order", func() {
			events, err := DepolarizingModel{P: 1}.Sample(rng)
			So(err, ShouldBeNil)
			So(len(events), ShouldEqual, NumQubits)
			for q, e := range events {
				So(e.Index, ShouldEqual, q)
				So(e.Validate(), ShouldBeNil)
			}
		})

		Convey("Each qubit should fail with probability p, bases evenly", func() {
			const n = 5000
			total := 0
			bases := make([]int, 3)
			for i := 0; i < n; i++ {
				events, _ := SampleDepolarizing(rng, 0.3)
				total += len(events)
				for _, e := range events {
					bases[e.Basis]++
				}
			}
			So(float64(total)/n, ShouldAlmostEqual, 0.3*NumQubits, 0.1)
			for _, c := range bases {
				So(float64(c)/float64(total), ShouldAlmostEqual, 1.0/3, 0.03)
			}
		})

		Convey("Out of range probabilities should be rejected", func() {
			So(errors.Is(DepolarizingModel{P: -0.2}.Validate(), ErrParameterBounds), ShouldBeTrue)
			_, err := SampleDepolarizing(rng, 1.5)
			So(errors.Is(err, ErrParameterBounds), ShouldBeTrue)
		})
	})

	Convey("Both noise models should report their level", t, func() {
		models := []NoiseModel{NewErrorModel(0.07), DepolarizingModel{P: 0.07}}
		for _, m := range models {
			So(m.Level(), ShouldEqual, 0.07)
			So(m.Validate(), ShouldBeNil)
		}
	})

	Convey("Noise kinds should parse from their config spelling", t, func() {
		k, err := ParseNoiseKind("depolarizing")
		So(err, ShouldBeNil)
		So(k, ShouldEqual, NoiseDepolarizing)
		So(k.String(), ShouldEqual, "depolarizing")

		k, err = ParseNoiseKind("")
		So(err, ShouldBeNil)
		So(k, ShouldEqual, NoiseGeometric)

		_, err = ParseNoiseKind("thermal")
		So(errors.Is(err, ErrParameterBounds), ShouldBeTrue)
	})
}
