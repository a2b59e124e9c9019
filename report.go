package qec

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat/distuv"
)

/*
FidelityReport aggregates the shots of one sweep point. It stores raw
counters only; every rate is derived on demand so a partially filled report
stays consistent.
*/
type FidelityReport struct {
	SweepID           string
	NoiseLevel        float64
	Mode              Mode
	Criterion         Criterion
	Shots             int // shots gathered, including those that failed to execute
	Executed          int // shots whose trial returned without error
	Attempts          int // postselection attempts, rejected ones included
	Accepted          int
	Successes         int
	Corrections       int
	Ambiguous         int
	Verified          int
	ExecutionFailures int
	ErrorHistogram    map[int]int // injected error count -> shots, last attempt of each shot
	Partial           bool
}

// NewFidelityReport returns an empty report for one sweep point.
func NewFidelityReport(sweepID string, level float64, mode Mode, criterion Criterion) *FidelityReport {
	return &FidelityReport{
		SweepID:        sweepID,
		NoiseLevel:     level,
		Mode:           mode,
		Criterion:      criterion,
		ErrorHistogram: make(map[int]int),
	}
}

// Add folds one shot into the report. A non-nil err marks the shot as failed to execute.
func (r *FidelityReport) Add(out TrialOutcome, err error) {
	r.Shots++
	r.Attempts += max(out.Attempts, 1)

	if err != nil {
		r.ExecutionFailures++
		return
	}

	r.Executed++
	r.ErrorHistogram[out.Errors]++
	if !out.Accepted {
		return
	}
	r.Accepted++
	if out.Success {
		r.Successes++
	}
	if out.Corrected {
		r.Corrections++
	}
	if out.Ambiguous {
		r.Ambiguous++
	}
	if out.Verified {
		r.Verified++
	}
}

// denominator is the shot count fidelity is measured against.
func (r *FidelityReport) denominator() int {
	if r.Mode == ModePostselect {
		return r.Accepted
	}
	return r.Shots
}

// Fidelity is successes over shots, or over accepted shots under
// postselection. It is NaN when the denominator is zero.
func (r *FidelityReport) Fidelity() float64 {
	n := r.denominator()
	if n == 0 {
		return math.NaN()
	}
	return float64(r.Successes) / float64(n)
}

// LogicalErrorRate is 1 - Fidelity.
func (r *FidelityReport) LogicalErrorRate() float64 {
	return 1 - r.Fidelity()
}

// AcceptanceRate is accepted shots over attempts, 0 without attempts.
func (r *FidelityReport) AcceptanceRate() float64 {
	if r.Attempts == 0 {
		return 0
	}
	return float64(r.Accepted) / float64(r.Attempts)
}

// WasteFraction is the share of attempts thrown away, 0 without attempts.
func (r *FidelityReport) WasteFraction() float64 {
	if r.Attempts == 0 {
		return 0
	}
	return 1 - r.AcceptanceRate()
}

// CorrectionUsage is the share of shots that applied a correction.
func (r *FidelityReport) CorrectionUsage() float64 {
	if r.Shots == 0 {
		return 0
	}
	return float64(r.Corrections) / float64(r.Shots)
}

/*
ConfidenceInterval returns the Wilson score interval of the fidelity at the
given confidence level (e.g. 0.95). Both bounds are NaN when the fidelity is
undefined.
*/
func (r *FidelityReport) ConfidenceInterval(level float64) (lo, hi float64) {
	return WilsonInterval(r.Successes, r.denominator(), level)
}

// WilsonInterval is the Wilson score interval for k successes out of n.
func WilsonInterval(k, n int, level float64) (lo, hi float64) {
	if n <= 0 || level <= 0 || level >= 1 {
		return math.NaN(), math.NaN()
	}

	z := distuv.Normal{Mu: 0, Sigma: 1}.Quantile(1 - (1-level)/2)
	nf := float64(n)
	p := float64(k) / nf
	z2 := z * z

	center := (p + z2/(2*nf)) / (1 + z2/nf)
	half := z * math.Sqrt(p*(1-p)/nf+z2/(4*nf*nf)) / (1 + z2/nf)
	return math.Max(0, center-half), math.Min(1, center+half)
}

// MarshalZerologObject lets a report be embedded in a log event.
func (r *FidelityReport) MarshalZerologObject(e *zerolog.Event) {
	e.Float64("p", r.NoiseLevel).
		Str("mode", r.Mode.String()).
		Str("criterion", r.Criterion.String()).
		Int("shots", r.Shots).
		Int("attempts", r.Attempts).
		Int("accepted", r.Accepted).
		Int("successes", r.Successes).
		Int("failures", r.ExecutionFailures).
		Float64("fidelity", r.Fidelity()).
		Float64("waste", r.WasteFraction()).
		Float64("correction_usage", r.CorrectionUsage()).
		Bool("partial", r.Partial)
}

func (r *FidelityReport) String() string {
	return fmt.Sprintf("p=%g mode=%s fidelity=%.4f acceptance=%.4f waste=%.4f corrections=%.4f failures=%d",
		r.NoiseLevel, r.Mode, r.Fidelity(), r.AcceptanceRate(), r.WasteFraction(), r.CorrectionUsage(), r.ExecutionFailures)
}

// Summary separates shots that never executed from shots that executed and
// came out wrong.
type Summary struct {
	Points            int
	Shots             int
	ExecutionFailures int
	WrongOutcomes     int
	Partial           bool
}

// Summarize totals a sweep.
func Summarize(reports []*FidelityReport) Summary {
	var s Summary
	for _, r := range reports {
		s.Points++
		s.Shots += r.Shots
		s.ExecutionFailures += r.ExecutionFailures
		s.WrongOutcomes += r.Accepted - r.Successes
		s.Partial = s.Partial || r.Partial
	}
	return s
}

// Err is non-nil when any trial failed to execute.
func (s Summary) Err() error {
	if s.ExecutionFailures == 0 {
		return nil
	}
	return fmt.Errorf("%w: %d of %d trials failed to execute, %d executed with a wrong outcome",
		ErrOracleFailure, s.ExecutionFailures, s.Shots, s.WrongOutcomes)
}
