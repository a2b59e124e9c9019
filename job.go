package qec

import (
	"context"
	"time"
)

// Job represents one unit of trial work
type Job struct {
	ID        string
	Fn        func(ctx context.Context) (any, error)
	StartTime time.Time

	ctx    context.Context
	result chan Result
}

// Result wraps what a job returned with its timing
type Result struct {
	JobID     string
	Value     any
	Error     error
	CreatedAt time.Time
	Duration  time.Duration
}
