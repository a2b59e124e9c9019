package qec

import (
	"context"
	"fmt"
)

// Mode selects what a cycle does after measuring the syndrome.
type Mode int

const (
	// ModeBaseline skips decoding and reads the block out as is.
	ModeBaseline Mode = iota
	// ModePostselect discards shots whose syndrome moved away from the baseline.
	ModePostselect
	// ModeActive applies the decoded correction before reading out.
	ModeActive
)

func (m Mode) String() string {
	switch m {
	case ModeBaseline:
		return "baseline"
	case ModePostselect:
		return "postselect"
	case ModeActive:
		return "active"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode reads the config spelling of a mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "baseline", "none", "passive":
		return ModeBaseline, nil
	case "postselect", "postselection":
		return ModePostselect, nil
	case "active", "correct", "correction":
		return ModeActive, nil
	}
	return ModeBaseline, fmt.Errorf("%w: mode %q", ErrParameterBounds, s)
}

// Criterion decides what counts as a successful trial.
type Criterion int

const (
	// CriterionOutcome compares the logical readout with the expected value of the prepared state.
	CriterionOutcome Criterion = iota
	// CriterionSyndrome compares the final syndromes with the baseline.
	CriterionSyndrome
)

func (c Criterion) String() string {
	if c == CriterionSyndrome {
		return "syndrome"
	}
	return "outcome"
}

// ParseCriterion reads the config spelling of a criterion.
func ParseCriterion(s string) (Criterion, error) {
	switch s {
	case "", "outcome", "measurement":
		return CriterionOutcome, nil
	case "syndrome", "restoration":
		return CriterionSyndrome, nil
	}
	return CriterionOutcome, fmt.Errorf("%w: criterion %q", ErrParameterBounds, s)
}

// CycleState is one step of the correction cycle.
type CycleState int

const (
	StateInit CycleState = iota
	StateBaselineMeasured
	StateErrorInjected
	StateSyndromeMeasured
	StateDecodedNone
	StateDecodedCorrection
	StateCorrectionApplied
	StateVerified
	StateDone
	StateRejected
)

var cycleStateNames = [...]string{
	"init", "baseline-measured", "error-injected", "syndrome-measured",
	"decoded-none", "decoded-correction", "correction-applied",
	"verified", "done", "rejected",
}

func (s CycleState) String() string {
	if int(s) < len(cycleStateNames) {
		return cycleStateNames[s]
	}
	return fmt.Sprintf("CycleState(%d)", int(s))
}

// Baseline holds the noiseless reference syndromes.
type Baseline struct {
	X Syndrome
	Z Syndrome
}

// Matches reports whether both observed syndromes equal the baseline.
func (b Baseline) Matches(x, z Syndrome) bool {
	return b.X.Equal(x) && b.Z.Equal(z)
}

// TrialOutcome is the record of one shot.
type TrialOutcome struct {
	Mode      Mode
	Criterion Criterion
	Success   bool
	Accepted  bool
	Corrected bool
	Ambiguous bool
	Verified  bool
	Attempts  int
	Errors    int
	Directive Directive
	Path      []CycleState
}

// Final is the last state the trial reached.
func (o TrialOutcome) Final() CycleState {
	if len(o.Path) == 0 {
		return StateInit
	}
	return o.Path[len(o.Path)-1]
}

/*
Cycle runs the baseline, inject, measure, decode, correct and verify
sequence against an injected oracle. A Cycle holds no per-trial state and
may be shared by many workers.
*/
type Cycle struct {
	oracle    Oracle
	mode      Mode
	criterion Criterion
	state     LogicalState
	decoder   Decoder
	attempts  AttemptPolicy
}

// CycleOption configures a Cycle.
type CycleOption func(*Cycle)

func WithMode(m Mode) CycleOption {
	return func(c *Cycle) { c.mode = m }
}

func WithCriterion(cr Criterion) CycleOption {
	return func(c *Cycle) { c.criterion = cr }
}

func WithState(s LogicalState) CycleOption {
	return func(c *Cycle) { c.state = s }
}

func WithDecoder(d Decoder) CycleOption {
	return func(c *Cycle) { c.decoder = d }
}

func WithMaxAttempts(n int) CycleOption {
	return func(c *Cycle) { c.attempts = NewAttemptPolicy(n) }
}

func WithAttemptPolicy(p AttemptPolicy) CycleOption {
	return func(c *Cycle) { c.attempts = p }
}

// NewCycle builds a cycle in active mode on |0_L⟩ unless options say otherwise.
func NewCycle(oracle Oracle, opts ...CycleOption) *Cycle {
	c := &Cycle{
		oracle:    oracle,
		mode:      ModeActive,
		criterion: CriterionOutcome,
		state:     ZeroState,
		attempts:  NewAttemptPolicy(DefaultMaxAttempts),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Mode returns the operating mode.
func (c *Cycle) Mode() Mode { return c.mode }

// Validate checks that the configured criterion can be judged for the configured state.
func (c *Cycle) Validate() error {
	if c.oracle == nil {
		return fmt.Errorf("%w: nil oracle", ErrOracleFailure)
	}
	if c.criterion == CriterionOutcome {
		if _, err := c.state.ExpectedOutcome(); err != nil {
			return err
		}
	}
	return nil
}

// Baseline measures the reference syndromes of the error-free block.
func (c *Cycle) Baseline(ctx context.Context) (Baseline, error) {
	m, err := measure(ctx, c.oracle, Circuit{State: c.state})
	if err != nil {
		return Baseline{}, err
	}
	x, z, err := m.Syndromes()
	if err != nil {
		return Baseline{}, err
	}
	return Baseline{X: x, Z: z}, nil
}

// Execute runs a complete trial, baseline included.
func (c *Cycle) Execute(ctx context.Context, errs []ErrorEvent) (TrialOutcome, error) {
	base, err := c.Baseline(ctx)
	if err != nil {
		return TrialOutcome{Mode: c.mode, Criterion: c.criterion, Path: []CycleState{StateInit}}, err
	}
	return c.Run(ctx, base, errs)
}

/*
Run executes one attempt against a previously measured baseline.

Parameters:
  - ctx: cancels the oracle calls
  - base: reference syndromes, read only
  - errs: error events to inject, composed by the oracle

Returns:
  - TrialOutcome: the shot record, with Accepted false for a postselection discard
  - error: an oracle failure or malformed measurement; the outcome is then partial
*/
func (c *Cycle) Run(ctx context.Context, base Baseline, errs []ErrorEvent) (TrialOutcome, error) {
	out := TrialOutcome{
		Mode:      c.mode,
		Criterion: c.criterion,
		Attempts:  1,
		Errors:    countEvents(errs),
		Directive: Directive{Index: NoQubit},
		Path:      []CycleState{StateInit, StateBaselineMeasured},
	}

	circuit := Circuit{State: c.state, Errors: errs}
	if err := circuit.Validate(); err != nil {
		return out, err
	}
	out.Path = append(out.Path, StateErrorInjected)

	m, err := measure(ctx, c.oracle, circuit)
	if err != nil {
		return out, err
	}
	sx, sz, err := m.Syndromes()
	if err != nil {
		return out, err
	}
	out.Path = append(out.Path, StateSyndromeMeasured)

	final := m
	fx, fz := sx, sz

	switch c.mode {
	case ModePostselect:
		if !base.Matches(sx, sz) {
			out.Path = append(out.Path, StateRejected)
			return out, nil
		}
	case ModeActive:
		d := c.decoder.Decode(base.X, base.Z, sx, sz)
		out.Directive = d
		out.Ambiguous = d.Ambiguous

		if d.None() {
			out.Path = append(out.Path, StateDecodedNone)
			break
		}
		out.Path = append(out.Path, StateDecodedCorrection)

		circuit.Corrections = []ErrorEvent{d.Event()}
		if final, err = measure(ctx, c.oracle, circuit); err != nil {
			return out, err
		}
		if fx, fz, err = final.Syndromes(); err != nil {
			return out, err
		}
		out.Corrected = true
		out.Path = append(out.Path, StateCorrectionApplied)
	}

	out.Accepted = true
	out.Verified = base.Matches(fx, fz)
	if out.Success, err = c.judge(base, final, fx, fz); err != nil {
		return out, err
	}
	out.Path = append(out.Path, StateVerified, StateDone)
	return out, nil
}

/*
RunPostselected repeats Run with freshly sampled errors while attempts are
rejected, up to the attempt policy's cap. Outside postselection mode the
first attempt is always final. Oracle failures end the loop at once.
*/
func (c *Cycle) RunPostselected(
	ctx context.Context,
	base Baseline,
	sample func() ([]ErrorEvent, error),
) (TrialOutcome, error) {
	for attempt := 1; ; attempt++ {
		errs, err := sample()
		if err != nil {
			return TrialOutcome{Mode: c.mode, Criterion: c.criterion, Attempts: attempt}, err
		}

		out, err := c.Run(ctx, base, errs)
		out.Attempts = attempt
		if err != nil {
			return out, err
		}
		if !c.attempts.Retry(attempt, out) {
			return out, nil
		}
		if err := ctx.Err(); err != nil {
			return out, err
		}
	}
}

func (c *Cycle) judge(base Baseline, m Measurement, x, z Syndrome) (bool, error) {
	if c.criterion == CriterionSyndrome {
		return base.Matches(x, z), nil
	}

	expected, err := c.state.ExpectedOutcome()
	if err != nil {
		return false, err
	}
	got, err := m.LogicalBit()
	if err != nil {
		return false, err
	}
	return got == expected, nil
}

func countEvents(errs []ErrorEvent) int {
	n := 0
	for _, e := range errs {
		if !e.IsNone() {
			n++
		}
	}
	return n
}
