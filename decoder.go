package qec

import (
	"fmt"
)

/*
FlipPattern records which of the three color parities changed between a
baseline and an observed syndrome. Bit 2 is RED, bit 1 GREEN, bit 0 BLUE,
so the pattern reads (R,G,B) from the most significant end.
*/
type FlipPattern uint8

func (p FlipPattern) String() string {
	return fmt.Sprintf("(%d,%d,%d)", (p>>2)&1, (p>>1)&1, p&1)
}

// PatternBetween builds the flip pattern of two syndromes.
func PatternBetween(baseline, observed Syndrome) FlipPattern {
	var p FlipPattern
	for i := 0; i < 3; i++ {
		if baseline[i] != observed[i] {
			p |= 1 << uint(2-i)
		}
	}
	return p
}

// PatternOf is the flip pattern a bit flip on qubit q produces.
func PatternOf(q int) FlipPattern {
	var p FlipPattern
	for i, g := range ColorGroups {
		if g.Contains(q) {
			p |= 1 << uint(2-i)
		}
	}
	return p
}

/*
DecodeTable maps every 3-bit flip pattern to the qubit whose single flip
produces it. The zero pattern maps to NoQubit.
*/
type DecodeTable [8]int

// referenceTable is the single-error lookup table of the color code.
var referenceTable = map[FlipPattern]int{
	0b000: NoQubit,
	0b001: 0,
	0b011: 1,
	0b111: 2,
	0b101: 3,
	0b110: 4,
	0b010: 5,
	0b100: 6,
}

var decodeTable = mustDecodeTable(referenceTable)

/*
ValidateDecodeTable checks that entries covers all eight patterns, that the
zero pattern means "no error" and that the seven nonzero patterns are a
bijection onto the qubit indices.
*/
func ValidateDecodeTable(entries map[FlipPattern]int) (DecodeTable, error) {
	var table DecodeTable

	if len(entries) != 8 {
		return table, fmt.Errorf("%w: %d entries, want 8", ErrUndecodableSyndrome, len(entries))
	}

	seen := make(map[int]FlipPattern, NumQubits)
	for p := FlipPattern(0); p < 8; p++ {
		q, ok := entries[p]
		if !ok {
			return table, fmt.Errorf("%w: missing pattern %s", ErrUndecodableSyndrome, p)
		}
		if p == 0 {
			if q != NoQubit {
				return table, fmt.Errorf("%w: zero pattern maps to %d", ErrUndecodableSyndrome, q)
			}
			table[p] = q
			continue
		}
		if err := checkIndex(q); err != nil {
			return table, fmt.Errorf("pattern %s: %w", p, err)
		}
		if prev, dup := seen[q]; dup {
			return table, fmt.Errorf("%w: qubit %d reached by %s and %s", ErrUndecodableSyndrome, q, prev, p)
		}
		seen[q] = p
		table[p] = q
	}

	return table, nil
}

func mustDecodeTable(entries map[FlipPattern]int) DecodeTable {
	table, err := ValidateDecodeTable(entries)
	if err != nil {
		panic(err)
	}
	return table
}

// Lookup returns the qubit for a pattern.
func (t DecodeTable) Lookup(p FlipPattern) int {
	if p > 7 {
		panic(fmt.Errorf("%w: %d", ErrUndecodableSyndrome, p))
	}
	return t[p]
}

// LocateFlippedQubit returns the single qubit whose flip explains the syndrome
// change, or NoQubit when nothing changed.
func LocateFlippedQubit(baseline, observed Syndrome) int {
	return decodeTable.Lookup(PatternBetween(baseline, observed))
}

// Directive is the single-qubit correction to apply. Index == NoQubit means
// none; Ambiguous marks X and Z decodes that disagree on the location.
type Directive struct {
	Index     int
	Basis     Pauli
	Ambiguous bool
}

// None reports whether no correction should be applied.
func (d Directive) None() bool { return d.Index == NoQubit }

// Event turns the directive into a correction event.
func (d Directive) Event() ErrorEvent {
	if d.None() {
		return NoError
	}
	return ErrorEvent{Index: d.Index, Basis: d.Basis}
}

func (d Directive) String() string {
	switch {
	case d.Ambiguous:
		return "ambiguous"
	case d.None():
		return "none"
	default:
		return fmt.Sprintf("%s on %d", d.Basis, d.Index)
	}
}

// ClassifyAndLocate combines the X- and Z-syndrome locations: both fire gives
// Y at the X location, one fires gives that Pauli, neither gives no correction.
func ClassifyAndLocate(xLoc, zLoc int) Directive {
	switch {
	case xLoc != NoQubit && zLoc != NoQubit:
		return Directive{Index: xLoc, Basis: PauliY}
	case xLoc != NoQubit:
		return Directive{Index: xLoc, Basis: PauliX}
	case zLoc != NoQubit:
		return Directive{Index: zLoc, Basis: PauliZ}
	default:
		return Directive{Index: NoQubit, Basis: PauliX}
	}
}

// TieBreak picks what happens when the X and Z decodes name different qubits.
type TieBreak int

const (
	// TieBreakAmbiguous refuses to correct.
	TieBreakAmbiguous TieBreak = iota
	// TieBreakXLocation applies Y at the X location.
	TieBreakXLocation
)

func (t TieBreak) String() string {
	if t == TieBreakXLocation {
		return "x-location"
	}
	return "ambiguous"
}

// ParseTieBreak reads the config spelling of a tie-break policy.
func ParseTieBreak(s string) (TieBreak, error) {
	switch s {
	case "", "ambiguous":
		return TieBreakAmbiguous, nil
	case "x-location", "x":
		return TieBreakXLocation, nil
	}
	return TieBreakAmbiguous, fmt.Errorf("%w: tie-break %q", ErrParameterBounds, s)
}

// Decoder turns baseline and observed X/Z syndromes into a Directive.
type Decoder struct {
	TieBreak TieBreak
}

// Decode locates the X and Z components independently and classifies them.
func (d Decoder) Decode(baseX, baseZ, obsX, obsZ Syndrome) Directive {
	xLoc := LocateFlippedQubit(baseX, obsX)
	zLoc := LocateFlippedQubit(baseZ, obsZ)

	if xLoc != NoQubit && zLoc != NoQubit && xLoc != zLoc && d.TieBreak == TieBreakAmbiguous {
		return Directive{Index: NoQubit, Basis: PauliY, Ambiguous: true}
	}
	return ClassifyAndLocate(xLoc, zLoc)
}
