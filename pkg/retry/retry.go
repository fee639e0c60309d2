// Package retry provides a bounded retry executor with exponential backoff.
//
// Failures are classified as transient (worth retrying) or fatal (returned
// immediately). While the executor is sleeping between attempts it reports
// degraded reachability to an optional Sink, and reports the final outcome
// (recovered or exhausted) when it stops.
package retry

import (
	"context"
	"time"
)

const (
	defaultMaxAttempts = 3
	defaultBaseDelay   = time.Second
	defaultMaxDelay    = 30 * time.Second
)

// Sink receives reachability transitions from the executor. Reconnecting is
// reported once before the first backoff sleep, Online when a retried
// operation eventually succeeds or fails fatally (the store answered), and
// Offline when the attempt budget is exhausted.
type Sink interface {
	Reconnecting()
	Online()
	Offline()
}

// Policy configures one executor. The zero value retries every error up to
// three attempts starting at a one-second delay.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int
	// BaseDelay is the sleep before attempt 2; it doubles per attempt.
	BaseDelay time.Duration
	// MaxDelay caps the per-attempt sleep.
	MaxDelay time.Duration
	// IsTransient classifies errors. Nil treats every error as transient.
	IsTransient func(error) bool
	// Sink observes reachability transitions. Nil disables reporting.
	Sink Sink
}

func (p Policy) normalized() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = defaultMaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = defaultBaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = defaultMaxDelay
	}
	return p
}

// Do runs op under the policy and returns the first fatal error, the last
// transient error after the budget is exhausted, or ctx.Err() when the
// caller cancels during a backoff sleep. Cancellation is honoured at every
// retry boundary so a torn-down caller neither retries nor waits.
func (p Policy) Do(ctx context.Context, op func(context.Context) error) error {
	_, err := DoValue(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// DoValue is Do for operations that produce a value.
func DoValue[T any](ctx context.Context, p Policy, op func(context.Context) (T, error)) (T, error) {
	p = p.normalized()

	var zero T
	var lastErr error
	degraded := false

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		v, err := op(ctx)
		if err == nil {
			if degraded && p.Sink != nil {
				p.Sink.Online()
			}
			return v, nil
		}

		if p.IsTransient != nil && !p.IsTransient(err) {
			// The store answered; reachability is not the problem.
			if degraded && p.Sink != nil {
				p.Sink.Online()
			}
			return zero, err
		}

		lastErr = err
		if attempt == p.MaxAttempts {
			break
		}

		if !degraded {
			degraded = true
			if p.Sink != nil {
				p.Sink.Reconnecting()
			}
		}

		if err := sleep(ctx, p.delay(attempt)); err != nil {
			return zero, err
		}
	}

	if p.Sink != nil {
		p.Sink.Offline()
	}
	return zero, lastErr
}

// delay returns BaseDelay * 2^(attempt-1) capped at MaxDelay.
func (p Policy) delay(attempt int) time.Duration {
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
