package qec

import "fmt"

// Bits is one measurement vector: seven classical bits, one per physical qubit.
type Bits []uint8

// Validate rejects vectors that are not exactly seven 0/1 values.
func (b Bits) Validate() error {
	if len(b) != NumQubits {
		return fmt.Errorf("%w: length %d", ErrMalformedMeasurement, len(b))
	}
	for i, v := range b {
		if v > 1 {
			return fmt.Errorf("%w: bit %d = %d", ErrMalformedMeasurement, i, v)
		}
	}
	return nil
}

// Mask packs the vector into the low seven bits of a byte.
func (b Bits) Mask() uint8 {
	var m uint8
	for i, v := range b {
		if v == 1 {
			m |= 1 << uint(i)
		}
	}
	return m
}

// BitsFromMask unpacks the low seven bits of m.
func BitsFromMask(m uint8) Bits {
	b := make(Bits, NumQubits)
	for i := range b {
		b[i] = (m >> uint(i)) & 1
	}
	return b
}

// ColorGroup is the support of one color stabilizer.
type ColorGroup []int

// The three stabilizer supports of the [[7,1,3]] color code, in (R,G,B) order.
var (
	Red   = ColorGroup{2, 3, 4, 6}
	Green = ColorGroup{1, 2, 4, 5}
	Blue  = ColorGroup{0, 1, 2, 3}

	ColorGroups = [3]ColorGroup{Red, Green, Blue}
)

// Contains reports whether q is in the group.
func (g ColorGroup) Contains(q int) bool {
	for _, i := range g {
		if i == q {
			return true
		}
	}
	return false
}

// Syndrome holds the three color parities, +1 for even and -1 for odd.
type Syndrome [3]int

// TrivialSyndrome is the syndrome of any codeword.
var TrivialSyndrome = Syndrome{1, 1, 1}

// Equal compares two syndromes.
func (s Syndrome) Equal(o Syndrome) bool { return s == o }

func (s Syndrome) String() string {
	return fmt.Sprintf("(%+d,%+d,%+d)", s[0], s[1], s[2])
}

// Parity returns +1 when the bits on support sum to an even number and -1 otherwise.
func Parity(bits Bits, support []int) (int, error) {
	if err := bits.Validate(); err != nil {
		return 0, err
	}
	sum := 0
	for _, i := range support {
		if err := checkIndex(i); err != nil {
			return 0, err
		}
		sum += int(bits[i])
	}
	if sum%2 == 0 {
		return 1, nil
	}
	return -1, nil
}

// ColorParities computes the (R,G,B) syndrome of one measurement vector.
func ColorParities(bits Bits) (Syndrome, error) {
	var s Syndrome
	for i, g := range ColorGroups {
		p, err := Parity(bits, g)
		if err != nil {
			return Syndrome{}, err
		}
		s[i] = p
	}
	return s, nil
}

// LogicalParity is the logical Z readout of a data vector: the parity of all seven bits.
func LogicalParity(bits Bits) (int, error) {
	if err := bits.Validate(); err != nil {
		return 0, err
	}
	sum := 0
	for _, v := range bits {
		sum += int(v)
	}
	return sum % 2, nil
}
