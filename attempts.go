package qec

// DefaultMaxAttempts bounds postselection retries per accepted shot.
const DefaultMaxAttempts = 20

// AttemptPolicy bounds the postselection loop. Only rejected attempts are
// retried; a failing oracle ends the loop immediately.
type AttemptPolicy struct {
	MaxAttempts int
	// Filter decides whether a rejected outcome earns another attempt.
	// Nil retries every rejection.
	Filter func(TrialOutcome) bool
}

// NewAttemptPolicy returns a policy with a positive cap.
func NewAttemptPolicy(maxAttempts int) AttemptPolicy {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return AttemptPolicy{MaxAttempts: maxAttempts}
}

// Retry reports whether another attempt is allowed after attempt number
// attempt (1-based) produced out.
func (p AttemptPolicy) Retry(attempt int, out TrialOutcome) bool {
	if out.Accepted || attempt >= p.MaxAttempts {
		return false
	}
	if p.Filter != nil && !p.Filter(out) {
		return false
	}
	return true
}
