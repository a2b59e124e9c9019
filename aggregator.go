package qec

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"
)

/*
Aggregator runs noise sweeps. Every shot is an independent job on the worker
pool with two random sources derived from the configured seed, the sweep
point and the shot index: one for the noise model and one handed to the
oracle through the context. Outcomes are folded into the reports only after
they are gathered, so no two trials ever share mutable state.
*/
type Aggregator struct {
	oracle    Oracle
	guard     *GuardedOracle
	cfg       *Config
	noise     NoiseKind
	log       zerolog.Logger
	cycleOpts []CycleOption
}

// AggregatorOption configures an Aggregator.
type AggregatorOption func(*Aggregator)

// WithLogger sets the structured logger.
func WithLogger(log zerolog.Logger) AggregatorOption {
	return func(a *Aggregator) {
		a.log = log
	}
}

// WithCycleOptions appends cycle options after those derived from the config.
func WithCycleOptions(opts ...CycleOption) AggregatorOption {
	return func(a *Aggregator) {
		a.cycleOpts = append(a.cycleOpts, opts...)
	}
}

// NewAggregator guards oracle with a circuit breaker configured by cfg.
// A nil cfg uses DefaultConfig.
func NewAggregator(oracle Oracle, cfg *Config, opts ...AggregatorOption) (*Aggregator, error) {
	if oracle == nil {
		return nil, fmt.Errorf("%w: nil oracle", ErrOracleFailure)
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cycleOpts, err := cfg.CycleOptions()
	if err != nil {
		return nil, err
	}
	noise, err := ParseNoiseKind(cfg.NoiseModel)
	if err != nil {
		return nil, err
	}

	a := &Aggregator{
		cfg:       cfg,
		noise:     noise,
		log:       zerolog.Nop(),
		cycleOpts: cycleOpts,
	}
	for _, opt := range opts {
		opt(a)
	}

	breaker := NewCircuitBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.ResetTimeout, cfg.Breaker.HalfOpenMax).
		WithLogger(a.log)
	a.guard = NewGuardedOracle(oracle, breaker, a.log)
	if cfg.RateLimit.Burst > 0 {
		a.guard.WithRateLimiter(NewRateLimiter(cfg.RateLimit.Burst, cfg.RateLimit.Interval))
	}
	a.oracle = a.guard

	return a, nil
}

// OracleMetrics returns latency and failure metrics of the guarded oracle.
func (a *Aggregator) OracleMetrics() *Metrics {
	return a.guard.Metrics()
}

func (a *Aggregator) cycle(mode Mode) (*Cycle, error) {
	opts := append(append([]CycleOption{}, a.cycleOpts...), WithMode(mode))
	c := NewCycle(a.oracle, opts...)
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (a *Aggregator) model(p float64) (NoiseModel, error) {
	var m NoiseModel = ErrorModel{P1: p, Ratio: a.cfg.Ratio, MaxErrors: a.cfg.MaxErrors}
	if a.noise == NoiseDepolarizing {
		m = DepolarizingModel{P: p}
	}
	return m, m.Validate()
}

// oracleSalt separates the oracle stream of a shot from its noise stream.
const oracleSalt = 0x9e3779b97f4a7c15

// trialRNG gives every (point, shot) pair its own noise stream.
func (a *Aggregator) trialRNG(point, shot int) *rand.Rand {
	return rand.New(rand.NewPCG(a.cfg.Seed, uint64(point)<<32|uint64(uint32(shot))))
}

// shotContext attaches the oracle stream of a (point, shot) pair to ctx.
func (a *Aggregator) shotContext(ctx context.Context, point, shot int) context.Context {
	src := rand.New(rand.NewPCG(a.cfg.Seed^oracleSalt, uint64(point)<<32|uint64(uint32(shot))))
	return WithShotSource(ctx, src)
}

/*
RunSweep runs shots trials at every noise level in mode and returns one
report per level, in order.

Trials that fail to execute are counted in ExecutionFailures and the sweep
goes on. When ctx ends the reports built so far are returned, the last one
marked Partial, together with ctx.Err().
*/
func (a *Aggregator) RunSweep(ctx context.Context, levels []float64, shots int, mode Mode) ([]*FidelityReport, error) {
	if shots < 0 {
		return nil, fmt.Errorf("%w: shots=%d", ErrParameterBounds, shots)
	}

	cycle, err := a.cycle(mode)
	if err != nil {
		return nil, err
	}

	models := make([]NoiseModel, len(levels))
	for i, p := range levels {
		if models[i], err = a.model(p); err != nil {
			return nil, err
		}
	}

	pool := NewQ(ctx, a.cfg.Workers, a.log)
	defer pool.Close()

	sweepID := uuid.NewString()
	reports := make([]*FidelityReport, 0, len(levels))
	log := a.log.With().Str("sweep", sweepID).Str("mode", mode.String()).Logger()

	for point, model := range models {
		report := NewFidelityReport(sweepID, model.Level(), mode, cycle.criterion)
		reports = append(reports, report)

		pending := make([]chan Result, shots)
		for shot := 0; shot < shots; shot++ {
			rng := a.trialRNG(point, shot)
			pending[shot] = pool.Schedule(ctx, uuid.NewString(), func(ctx context.Context) (any, error) {
				ctx = a.shotContext(ctx, point, shot)
				base, err := cycle.Baseline(ctx)
				if err != nil {
					return TrialOutcome{Mode: mode, Criterion: cycle.criterion}, err
				}
				return cycle.RunPostselected(ctx, base, func() ([]ErrorEvent, error) {
					return model.Sample(rng)
				})
			})
		}

		for shot, ch := range pending {
			var res Result
			select {
			case res = <-ch:
			case <-ctx.Done():
				report.Partial = true
				log.Warn().EmbedObject(report).Msg("sweep cancelled")
				return reports, ctx.Err()
			}

			if res.Error != nil && ctx.Err() != nil {
				report.Partial = true
				log.Warn().EmbedObject(report).Msg("sweep cancelled")
				return reports, ctx.Err()
			}

			out, _ := res.Value.(TrialOutcome)
			var trialErr error
			if res.Error != nil {
				trialErr = &TrialError{NoiseLevel: model.Level(), Shot: shot, Wrapped: res.Error}
				log.Debug().Err(trialErr).Msg("trial failed")
			}
			report.Add(out, trialErr)
		}

		log.Info().
			EmbedObject(report).
			Interface("pool", pool.Metrics().ExportMetrics()).
			Msg("sweep point done")
	}

	return reports, nil
}

// MemoryReport summarises a multi-round memory experiment.
type MemoryReport struct {
	SweepID           string
	NoiseLevel        float64
	Mode              Mode
	Rounds            int
	Shots             int
	Executed          int
	ExecutionFailures int
	Survival          []float64 // per round: correct shots over shots still accepted
	Acceptance        []float64 // per round: accepted shots over executed shots
	Corrections       []int     // per round: shots that applied a correction
	Partial           bool
}

// MeanSurvival averages the per-round survival.
func (r MemoryReport) MeanSurvival() float64 {
	if len(r.Survival) == 0 {
		return math.NaN()
	}
	return stat.Mean(r.Survival, nil)
}

// WasteFraction is the share of executed shots discarded by the last round.
func (r MemoryReport) WasteFraction() float64 {
	if len(r.Acceptance) == 0 || math.IsNaN(r.Acceptance[len(r.Acceptance)-1]) {
		return 0
	}
	return 1 - r.Acceptance[len(r.Acceptance)-1]
}

// MarshalZerologObject lets a memory report be embedded in a log event.
func (r MemoryReport) MarshalZerologObject(e *zerolog.Event) {
	e.Float64("p", r.NoiseLevel).
		Str("mode", r.Mode.String()).
		Int("rounds", r.Rounds).
		Int("shots", r.Shots).
		Int("failures", r.ExecutionFailures).
		Float64("mean_survival", r.MeanSurvival()).
		Float64("waste", r.WasteFraction()).
		Bool("partial", r.Partial)
}

/*
RunMemory keeps shots blocks alive for rounds rounds each at noise level p
and reports how many are still logically intact after every round.
*/
func (a *Aggregator) RunMemory(ctx context.Context, p float64, rounds, shots int, mode Mode) (MemoryReport, error) {
	report := MemoryReport{NoiseLevel: p, Mode: mode, Rounds: rounds}
	if rounds < 1 || shots < 0 {
		return report, fmt.Errorf("%w: rounds=%d shots=%d", ErrParameterBounds, rounds, shots)
	}

	cycle, err := a.cycle(mode)
	if err != nil {
		return report, err
	}
	model, err := a.model(p)
	if err != nil {
		return report, err
	}
	mem := NewMemory(cycle, model)

	pool := NewQ(ctx, a.cfg.Workers, a.log)
	defer pool.Close()

	report.SweepID = uuid.NewString()
	log := a.log.With().Str("sweep", report.SweepID).Str("mode", mode.String()).Logger()

	pending := make([]chan Result, shots)
	for shot := 0; shot < shots; shot++ {
		rng := a.trialRNG(0, shot)
		pending[shot] = pool.Schedule(ctx, uuid.NewString(), func(ctx context.Context) (any, error) {
			ctx = a.shotContext(ctx, 0, shot)
			base, err := cycle.Baseline(ctx)
			if err != nil {
				return MemoryTrace{}, err
			}
			return mem.Run(ctx, rng, base, rounds)
		})
	}

	alive := make([]int, rounds)
	correct := make([]int, rounds)
	report.Corrections = make([]int, rounds)

	for _, ch := range pending {
		var res Result
		select {
		case res = <-ch:
		case <-ctx.Done():
			report.Partial = true
		}
		if report.Partial || (res.Error != nil && ctx.Err() != nil) {
			report.Partial = true
			break
		}

		report.Shots++
		if res.Error != nil {
			report.ExecutionFailures++
			log.Debug().Err(res.Error).Msg("memory trial failed")
			continue
		}
		report.Executed++

		trace, _ := res.Value.(MemoryTrace)
		for i, rec := range trace.Rounds {
			alive[i]++
			if rec.Success {
				correct[i]++
			}
			if rec.Corrected {
				report.Corrections[i]++
			}
		}
	}

	report.Survival = make([]float64, rounds)
	report.Acceptance = make([]float64, rounds)
	for i := 0; i < rounds; i++ {
		report.Survival[i] = ratio(correct[i], alive[i])
		report.Acceptance[i] = ratio(alive[i], report.Executed)
	}

	if report.Partial {
		log.Warn().EmbedObject(report).Msg("memory run cancelled")
		return report, ctx.Err()
	}
	log.Info().EmbedObject(report).Msg("memory run done")
	return report, nil
}

func ratio(k, n int) float64 {
	if n == 0 {
		return math.NaN()
	}
	return float64(k) / float64(n)
}
