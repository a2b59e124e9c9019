package qec

import (
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestDecodeTable(t *testing.T) {
	Convey("Given the reference decode table", t, func() {
		Convey("It should cover every pattern", func() {
			for p := FlipPattern(0); p < 8; p++ {
				So(func() { decodeTable.Lookup(p) }, ShouldNotPanic)
			}
			So(decodeTable.Lookup(0), ShouldEqual, NoQubit)
		})

		Convey("Its nonzero patterns should be a bijection onto the qubits", func() {
			seen := map[int]bool{}
			for p := FlipPattern(1); p < 8; p++ {
				q := decodeTable.Lookup(p)
				So(q, ShouldBeBetweenOrEqual, 0, NumQubits-1)
				So(seen[q], ShouldBeFalse)
				seen[q] = true
			}
			So(len(seen), ShouldEqual, NumQubits)
		})

		Convey("It should agree with the color groups", func() {
			for q := 0; q < NumQubits; q++ {
				So(decodeTable.Lookup(PatternOf(q)), ShouldEqual, q)
			}
		})

		Convey("Looking up an impossible pattern should panic", func() {
			So(func() { decodeTable.Lookup(8) }, ShouldPanic)
		})
	})

	Convey("Given broken tables", t, func() {
		Convey("A missing pattern should be rejected", func() {
			entries := map[FlipPattern]int{}
			for p, q := range referenceTable {
				entries[p] = q
			}
			delete(entries, 0b101)
			_, err := ValidateDecodeTable(entries)
			So(errors.Is(err, ErrUndecodableSyndrome), ShouldBeTrue)
		})

		Convey("Two patterns on one qubit should be rejected", func() {
			entries := map[FlipPattern]int{}
			for p, q := range referenceTable {
				entries[p] = q
			}
			entries[0b101] = 0
			_, err := ValidateDecodeTable(entries)
			So(errors.Is(err, ErrUndecodableSyndrome), ShouldBeTrue)
		})

		Convey("A qubit outside the block should be rejected", func() {
			entries := map[FlipPattern]int{}
			for p, q := range referenceTable {
				entries[p] = q
			}
			entries[0b001] = 9
			_, err := ValidateDecodeTable(entries)
			So(errors.Is(err, ErrInvalidIndex), ShouldBeTrue)
		})
	})
}

func TestLocateFlippedQubit(t *testing.T) {
	Convey("Given a trivial baseline", t, func() {
		Convey("An unchanged syndrome should locate nothing", func() {
			So(LocateFlippedQubit(TrivialSyndrome, TrivialSyndrome), ShouldEqual, NoQubit)
		})

		Convey("Flipping RED and BLUE should point at qubit 3", func() {
			So(LocateFlippedQubit(TrivialSyndrome, Syndrome{-1, 1, -1}), ShouldEqual, 3)
		})

		Convey("The pattern should be relative to the baseline", func() {
			base := Syndrome{-1, 1, 1}
			So(LocateFlippedQubit(base, Syndrome{1, 1, 1}), ShouldEqual, 6)
			So(LocateFlippedQubit(base, base), ShouldEqual, NoQubit)
		})
	})
}

func TestClassifyAndLocate(t *testing.T) {
	Convey("Given the four combinations of X and Z locations", t, func() {
		So(ClassifyAndLocate(2, 2), ShouldResemble, Directive{Index: 2, Basis: PauliY})
		So(ClassifyAndLocate(4, NoQubit), ShouldResemble, Directive{Index: 4, Basis: PauliX})
		So(ClassifyAndLocate(NoQubit, 5), ShouldResemble, Directive{Index: 5, Basis: PauliZ})

		d := ClassifyAndLocate(NoQubit, NoQubit)
		So(d.None(), ShouldBeTrue)
		So(d.Event().IsNone(), ShouldBeTrue)
	})
}

func TestDecoderRoundTrip(t *testing.T) {
	Convey("Given every single-qubit Pauli error", t, func() {
		for _, tieBreak := range []TieBreak{TieBreakAmbiguous, TieBreakXLocation} {
			dec := Decoder{TieBreak: tieBreak}

			for q := 0; q < NumQubits; q++ {
				for _, b := range []Pauli{PauliX, PauliY, PauliZ} {
					frame, err := FrameOf([]ErrorEvent{{Index: q, Basis: b}})
					So(err, ShouldBeNil)

					sx, err := ColorParities(BitsFromMask(frame.X))
					So(err, ShouldBeNil)
					sz, err := ColorParities(BitsFromMask(frame.Z))
					So(err, ShouldBeNil)

					d := dec.Decode(TrivialSyndrome, TrivialSyndrome, sx, sz)
					So(d.Ambiguous, ShouldBeFalse)
					So(d.Index, ShouldEqual, q)
					So(d.Basis, ShouldEqual, b)

					So(frame.Apply(d.Event()), ShouldBeNil)
					So(frame, ShouldResemble, PauliFrame{})
				}
			}
		}
	})

	Convey("Given X and Z components on different qubits", t, func() {
		sx, _ := ColorParities(BitsFromMask(1 << 1))
		sz, _ := ColorParities(BitsFromMask(1 << 5))

		Convey("The ambiguous policy should refuse to correct", func() {
			d := Decoder{}.Decode(TrivialSyndrome, TrivialSyndrome, sx, sz)
			So(d.Ambiguous, ShouldBeTrue)
			So(d.None(), ShouldBeTrue)
			So(d.String(), ShouldEqual, "ambiguous")
		})

		Convey("The x-location policy should apply Y at the X location", func() {
			d := Decoder{TieBreak: TieBreakXLocation}.Decode(TrivialSyndrome, TrivialSyndrome, sx, sz)
			So(d, ShouldResemble, Directive{Index: 1, Basis: PauliY})
		})
	})
}

func TestParseTieBreak(t *testing.T) {
	Convey("Tie-break spellings should parse", t, func() {
		tb, err := ParseTieBreak("x-location")
		So(err, ShouldBeNil)
		So(tb, ShouldEqual, TieBreakXLocation)

		_, err = ParseTieBreak("coin-flip")
		So(errors.Is(err, ErrParameterBounds), ShouldBeTrue)
	})
}
