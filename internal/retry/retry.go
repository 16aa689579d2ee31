package retry

import (
	"context"
	"time"
)

// Recorder receives the outcome of every attempt. Satisfied by
// *breaker.Breaker.
type Recorder interface {
	RecordSuccess()
	RecordFailure()
}

type Policy struct {
	MaxRetries  int
	BackoffBase time.Duration
	BackoffCap  time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:  2,
		BackoffBase: 200 * time.Millisecond,
		BackoffCap:  2 * time.Second,
	}
}

// Do runs op once plus up to MaxRetries additional attempts, sleeping
// base*2^(attempt-1) (capped) between attempts. Every failure is reported
// to rec; the first success is reported and returned immediately. Context
// cancellation counts as a failure and ends the remaining budget.
func Do(ctx context.Context, p Policy, rec Recorder, op func(context.Context) error) error {
	if p.BackoffBase <= 0 {
		p.BackoffBase = DefaultPolicy().BackoffBase
	}
	if p.BackoffCap <= 0 {
		p.BackoffCap = DefaultPolicy().BackoffCap
	}

	var lastErr error

	for attempt := 1; attempt <= p.MaxRetries+1; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(backoff(p, attempt-1)):
			case <-ctx.Done():
				rec.RecordFailure()
				return ctx.Err()
			}
		}

		err := op(ctx)
		if err == nil {
			rec.RecordSuccess()
			return nil
		}

		rec.RecordFailure()
		lastErr = err

		if ctx.Err() != nil {
			return lastErr
		}
	}

	return lastErr
}

func backoff(p Policy, failed int) time.Duration {
	d := p.BackoffBase << (failed - 1)
	if d > p.BackoffCap || d <= 0 {
		return p.BackoffCap
	}
	return d
}
