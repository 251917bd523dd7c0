package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Policy controls how often and how patiently an operation is retried.
type Policy struct {
	// Attempts is the total number of calls, the first included.
	Attempts int
	// Delay is the wait before the second attempt. Each later wait is
	// Factor times the previous one, capped at MaxDelay.
	Delay    time.Duration
	MaxDelay time.Duration
	Factor   float64
	// Retryable reports whether err is worth another attempt. Nil retries
	// everything except context cancellation.
	Retryable func(error) bool
	// OnRetry runs before each wait.
	OnRetry func(attempt int, err error, wait time.Duration)
}

// ExhaustedError is returned when every attempt failed. Err is the last
// failure.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

func (p Policy) withDefaults() Policy {
	if p.Attempts <= 0 {
		p.Attempts = 1
	}
	if p.Delay <= 0 {
		p.Delay = 100 * time.Millisecond
	}
	if p.Factor < 1 {
		p.Factor = 1
	}
	if p.MaxDelay < p.Delay {
		p.MaxDelay = p.Delay
	}
	if p.Retryable == nil {
		p.Retryable = Transient
	}
	return p
}

// Wait returns the pause after the given failed attempt (1-based).
func (p Policy) Wait(attempt int) time.Duration {
	p = p.withDefaults()
	d := float64(p.Delay)
	for i := 1; i < attempt; i++ {
		d *= p.Factor
		if d >= float64(p.MaxDelay) {
			return p.MaxDelay
		}
	}
	return time.Duration(d)
}

// Transient treats every error except context cancellation as retryable.
func Transient(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// Retry calls fn until it succeeds, returns a non-retryable error, runs
// out of attempts or ctx ends. A canceled context returns ctx.Err().
func Retry[T any](ctx context.Context, p Policy, fn func(ctx context.Context, attempt int) (T, error)) (T, error) {
	p = p.withDefaults()
	var zero T
	var last error
	for attempt := 1; attempt <= p.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		v, err := fn(ctx, attempt)
		if err == nil {
			return v, nil
		}
		if !p.Retryable(err) {
			return zero, err
		}
		last = err
		if attempt == p.Attempts {
			break
		}

		wait := p.Wait(attempt)
		if p.OnRetry != nil {
			p.OnRetry(attempt, err, wait)
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
	return zero, &ExhaustedError{Attempts: p.Attempts, Err: last}
}

// Do is Retry for operations without a result.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context, attempt int) error) error {
	_, err := Retry(ctx, p, func(ctx context.Context, attempt int) (struct{}, error) {
		return struct{}{}, fn(ctx, attempt)
	})
	return err
}
