package qec

import (
	"context"
	"fmt"
	"math/rand/v2"
)

// RoundRecord is what one memory round observed.
type RoundRecord struct {
	Round     int
	Errors    int
	Directive Directive
	Corrected bool
	Success   bool
}

// MemoryTrace is the history of one shot across all rounds.
type MemoryTrace struct {
	Rounds     []RoundRecord
	RejectedAt int // round that failed postselection, 0 when none did
}

// Survived reports whether the shot was still logically correct after round r (1-based).
func (t MemoryTrace) Survived(r int) bool {
	if r < 1 || r > len(t.Rounds) {
		return false
	}
	return t.Rounds[r-1].Success
}

/*
Memory keeps one encoded block alive for several rounds. Each round adds
fresh noise, measures the syndrome against the baseline and, in active mode,
applies the decoded correction before the next round's noise. The oracle is
stateless, so every call replays the full timeline of errors and corrections
in the order they happened.
*/
type Memory struct {
	cycle *Cycle
	model NoiseModel
}

// NewMemory pairs a cycle configuration with the per-round noise model.
func NewMemory(cycle *Cycle, model NoiseModel) *Memory {
	return &Memory{cycle: cycle, model: model}
}

// Run executes rounds sequential rounds on one block.
func (mem *Memory) Run(ctx context.Context, rng *rand.Rand, base Baseline, rounds int) (MemoryTrace, error) {
	var trace MemoryTrace
	if rounds < 1 {
		return trace, fmt.Errorf("%w: rounds=%d", ErrParameterBounds, rounds)
	}

	c := mem.cycle
	var timeline []ErrorEvent

	for r := 1; r <= rounds; r++ {
		errs, err := mem.model.Sample(rng)
		if err != nil {
			return trace, err
		}
		timeline = append(timeline, errs...)

		m, err := measure(ctx, c.oracle, Circuit{State: c.state, Errors: timeline})
		if err != nil {
			return trace, err
		}
		sx, sz, err := m.Syndromes()
		if err != nil {
			return trace, err
		}

		rec := RoundRecord{Round: r, Errors: countEvents(errs), Directive: Directive{Index: NoQubit}}

		switch c.mode {
		case ModePostselect:
			if !base.Matches(sx, sz) {
				trace.RejectedAt = r
				return trace, nil
			}
		case ModeActive:
			d := c.decoder.Decode(base.X, base.Z, sx, sz)
			rec.Directive = d
			if !d.None() {
				timeline = append(timeline, d.Event())
				if m, err = measure(ctx, c.oracle, Circuit{State: c.state, Errors: timeline}); err != nil {
					return trace, err
				}
				if sx, sz, err = m.Syndromes(); err != nil {
					return trace, err
				}
				rec.Corrected = true
			}
		}

		if rec.Success, err = c.judge(base, m, sx, sz); err != nil {
			return trace, err
		}
		trace.Rounds = append(trace.Rounds, rec)
	}

	return trace, nil
}
