package qec

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
)

/*
codewords holds the sixteen words of the classical Hamming code whose
parity checks are the three color groups, split by weight parity. Even words
make up |0_L⟩, odd words |1_L⟩, and a probe prepared in either basis reads
out a uniformly random word from the full set.
*/
var codewords = buildCodewords()

type codebook struct {
	even []uint8
	odd  []uint8
	all  []uint8
}

func buildCodewords() codebook {
	var cb codebook
	for m := 0; m < 1<<NumQubits; m++ {
		s, _ := ColorParities(BitsFromMask(uint8(m)))
		if s != TrivialSyndrome {
			continue
		}
		cb.all = append(cb.all, uint8(m))
		if bitCount(uint8(m))%2 == 0 {
			cb.even = append(cb.even, uint8(m))
		} else {
			cb.odd = append(cb.odd, uint8(m))
		}
	}
	return cb
}

func bitCount(m uint8) int {
	n := 0
	for ; m != 0; m &= m - 1 {
		n++
	}
	return n
}

/*
FrameOracle simulates the Steane block at the level of its Pauli frame.
Error and correction events are folded into X and Z masks, so repeated
operators on one qubit compose exactly (X then X cancels, X then Z is Y up to
phase). The data readout is a random codeword of the collapsed logical value
shifted by the X mask; the X probe shows a random codeword shifted by the X
mask and the Z probe one shifted by the Z mask. Optional readout noise flips
every measured bit independently.

A FrameOracle is safe for concurrent use. Calls whose context carries a shot
source (see WithShotSource) draw only from that source and are reproducible
however they interleave. Other calls share the oracle's own seeded stream and
are reproducible only when made sequentially.
*/
type FrameOracle struct {
	mu          sync.Mutex
	rng         *rand.Rand
	readoutFlip float64
}

// FrameOption configures a FrameOracle.
type FrameOption func(*FrameOracle)

// WithReadoutFlip flips each measured bit with probability p.
func WithReadoutFlip(p float64) FrameOption {
	return func(o *FrameOracle) {
		o.readoutFlip = p
	}
}

// NewFrameOracle returns a seeded frame simulator. A readout flip outside
// [0,1] is an ErrParameterBounds.
func NewFrameOracle(seed uint64, opts ...FrameOption) (*FrameOracle, error) {
	o := &FrameOracle{
		rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
	for _, opt := range opts {
		opt(o)
	}
	if !(o.readoutFlip >= 0 && o.readoutFlip <= 1) {
		return nil, fmt.Errorf("%w: readout flip %g", ErrParameterBounds, o.readoutFlip)
	}

	return o, nil
}

type shotSourceKey struct{}

/*
WithShotSource returns a context whose oracle calls draw their randomness
from rng. The source belongs to one shot: it must not be used from two
goroutines at once.
*/
func WithShotSource(ctx context.Context, rng *rand.Rand) context.Context {
	return context.WithValue(ctx, shotSourceKey{}, rng)
}

func shotSource(ctx context.Context) *rand.Rand {
	rng, _ := ctx.Value(shotSourceKey{}).(*rand.Rand)
	return rng
}

// Measure implements Oracle.
func (o *FrameOracle) Measure(ctx context.Context, c Circuit) (Measurement, error) {
	if err := ctx.Err(); err != nil {
		return Measurement{}, err
	}
	frame, err := FrameOf(c.Errors, c.Corrections)
	if err != nil {
		return Measurement{}, err
	}

	if rng := shotSource(ctx); rng != nil {
		return o.sample(rng, c.State.Probability1(), frame), nil
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sample(o.rng, c.State.Probability1(), frame), nil
}

// BatchRun implements Oracle.
func (o *FrameOracle) BatchRun(ctx context.Context, c Circuit, shots int) ([]Measurement, error) {
	if shots < 0 {
		return nil, fmt.Errorf("%w: shots=%d", ErrParameterBounds, shots)
	}
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

func (o *FrameOracle) sample(rng *rand.Rand, p1 float64, frame PauliFrame) Measurement {
	words := codewords.even
	if collapse(rng, []float64{1 - p1, p1}) == 1 {
		words = codewords.odd
	}

	data := words[rng.IntN(len(words))] ^ frame.X
	probeX := codewords.all[rng.IntN(len(codewords.all))] ^ frame.X
	probeZ := codewords.all[rng.IntN(len(codewords.all))] ^ frame.Z

	return Measurement{
		Data:   BitsFromMask(o.noisy(rng, data)),
		ProbeX: BitsFromMask(o.noisy(rng, probeX)),
		ProbeZ: BitsFromMask(o.noisy(rng, probeZ)),
	}
}

// collapse picks an outcome index with the given probabilities.
func collapse(rng *rand.Rand, probs []float64) int {
	total := 0.0
	for _, p := range probs {
		total += p
	}

	r := rng.Float64() * total
	cumulative := 0.0
	for i, p := range probs {
		cumulative += p
		if r < cumulative {
			return i
		}
	}
	return len(probs) - 1
}

func (o *FrameOracle) noisy(rng *rand.Rand, m uint8) uint8 {
	if o.readoutFlip == 0 {
		return m
	}
	for i := 0; i < NumQubits; i++ {
		if rng.Float64() < o.readoutFlip {
			m ^= 1 << uint(i)
		}
	}
	return m
}
