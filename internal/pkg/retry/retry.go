// Package retry implements the shared provider-call retry policy: a bounded
// number of attempts with exponential backoff on transient signals, and an
// immediate failure on everything else.
package retry

import (
	"context"
	"errors"
	"time"
)

const (
	defaultMaxAttempts = 5
	defaultBaseDelay   = 1500 * time.Millisecond
)

// ErrBusy is returned after all attempts on a transient failure are
// exhausted. Callers surface it instead of the raw provider error.
var ErrBusy = errors.New("service is busy, try again")

// transientError wraps an error to mark it retryable.
type transientError struct{ err error }

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// Transient marks err as retryable. Operations passed to Retrier.Do wrap
// overload/unavailable provider signals with it.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// IsTransient reports whether err was marked with Transient.
func IsTransient(err error) bool {
	var te *transientError
	return errors.As(err, &te)
}

// Retrier retries an operation on transient errors with exponential
// backoff: baseDelay * 2^attempt between attempts.
type Retrier struct {
	maxAttempts int
	baseDelay   time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
}

// Option configures a Retrier.
type Option func(*Retrier)

// WithMaxAttempts overrides the attempt count.
func WithMaxAttempts(n int) Option {
	return func(r *Retrier) {
		if n > 0 {
			r.maxAttempts = n
		}
	}
}

// WithBaseDelay overrides the first backoff delay.
func WithBaseDelay(d time.Duration) Option {
	return func(r *Retrier) {
		if d > 0 {
			r.baseDelay = d
		}
	}
}

// withSleep replaces the sleep function. Tests use it to avoid real delays.
func withSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(r *Retrier) { r.sleep = fn }
}

// New returns a Retrier with the default policy (5 attempts, 1.5s base).
func New(opts ...Option) *Retrier {
	r := &Retrier{
		maxAttempts: defaultMaxAttempts,
		baseDelay:   defaultBaseDelay,
		sleep:       sleepCtx,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Do runs op until it succeeds, fails non-transiently, or attempts run out.
// A transient failure after the last attempt is reported as ErrBusy; the
// underlying cause stays reachable through errors.Unwrap.
func (r *Retrier) Do(ctx context.Context, op func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := r.baseDelay * (1 << (attempt - 1))
			if err := r.sleep(ctx, delay); err != nil {
				return err
			}
		}

		err := op(ctx)
		if err == nil {
			return nil
		}
		if !IsTransient(err) {
			return err
		}
		lastErr = err
	}
	return &busyError{cause: lastErr}
}

// busyError carries the last transient cause behind ErrBusy.
type busyError struct{ cause error }

func (e *busyError) Error() string { return ErrBusy.Error() }
func (e *busyError) Is(target error) bool {
	return target == ErrBusy
}
func (e *busyError) Unwrap() error { return e.cause }

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
