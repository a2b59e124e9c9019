package qec

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

/*
GuardedOracle wraps an Oracle with a circuit breaker, an optional rate
limiter and call metrics. While the breaker is open every call returns
ErrCircuitOpen without touching the inner oracle. Cancellations by the caller
are not counted against the oracle.
*/
type GuardedOracle struct {
	inner   Oracle
	breaker *CircuitBreaker
	limiter *RateLimiter
	metrics *Metrics
	log     zerolog.Logger
}

// NewGuardedOracle wraps inner. A nil breaker never opens.
func NewGuardedOracle(inner Oracle, breaker *CircuitBreaker, log zerolog.Logger) *GuardedOracle {
	return &GuardedOracle{
		inner:   inner,
		breaker: breaker,
		metrics: NewMetrics(),
		log:     log,
	}
}

// WithRateLimiter throttles calls through rl before they reach the oracle.
func (g *GuardedOracle) WithRateLimiter(rl *RateLimiter) *GuardedOracle {
	g.limiter = rl
	return g
}

// Metrics returns the oracle call metrics.
func (g *GuardedOracle) Metrics() *Metrics { return g.metrics }

// Breaker returns the breaker guarding the oracle.
func (g *GuardedOracle) Breaker() *CircuitBreaker { return g.breaker }

// Measure implements Oracle.
func (g *GuardedOracle) Measure(ctx context.Context, c Circuit) (Measurement, error) {
	if err := g.admit(ctx); err != nil {
		return Measurement{}, err
	}
	start := time.Now()
	m, err := g.inner.Measure(ctx, c)
	g.settle(ctx, start, err)
	return m, err
}

// BatchRun implements Oracle.
func (g *GuardedOracle) BatchRun(ctx context.Context, c Circuit, shots int) ([]Measurement, error) {
	if err := g.admit(ctx); err != nil {
		return nil, err
	}
	start := time.Now()
	ms, err := g.inner.BatchRun(ctx, c, shots)
	g.settle(ctx, start, err)
	return ms, err
}

func (g *GuardedOracle) admit(ctx context.Context) error {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	if g.breaker != nil && !g.breaker.Allow() {
		g.metrics.recordRejection()
		return ErrCircuitOpen
	}
	return nil
}

func (g *GuardedOracle) settle(ctx context.Context, start time.Time, err error) {
	g.metrics.recordCall(start, err == nil)
	if g.breaker == nil {
		return
	}
	switch {
	case err == nil:
		g.breaker.RecordSuccess()
	case ctx.Err() != nil:
		// the caller gave up; says nothing about the oracle
	default:
		g.log.Debug().Err(err).Msg("oracle call failed")
		g.breaker.RecordFailure()
	}
}
