package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fakeSleep(delays *[]time.Duration) Option {
	return withSleep(func(_ context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	})
}

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	var delays []time.Duration
	r := New(fakeSleep(&delays))

	calls := 0
	err := r.Do(context.Background(), func(context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if calls != 1 || len(delays) != 0 {
		t.Errorf("expected 1 call and no sleeps, got %d calls, %d sleeps", calls, len(delays))
	}
}

func TestDo_RetriesTransientWithExponentialBackoff(t *testing.T) {
	var delays []time.Duration
	r := New(fakeSleep(&delays))

	calls := 0
	err := r.Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return Transient(errors.New("overloaded"))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success after retries, got: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 attempts, got %d", calls)
	}
	want := []time.Duration{1500 * time.Millisecond, 3 * time.Second}
	if len(delays) != len(want) {
		t.Fatalf("expected %d sleeps, got %d", len(want), len(delays))
	}
	for i := range want {
		if delays[i] != want[i] {
			t.Errorf("sleep %d: expected %v, got %v", i, want[i], delays[i])
		}
	}
}

func TestDo_NonTransientFailsImmediately(t *testing.T) {
	var delays []time.Duration
	r := New(fakeSleep(&delays))

	boom := errors.New("request denied")
	calls := 0
	err := r.Do(context.Background(), func(context.Context) error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected the original error, got: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected exactly 1 attempt, got %d", calls)
	}
}

func TestDo_ExhaustionReturnsBusy(t *testing.T) {
	var delays []time.Duration
	r := New(fakeSleep(&delays))

	cause := errors.New("unavailable")
	calls := 0
	err := r.Do(context.Background(), func(context.Context) error {
		calls++
		return Transient(cause)
	})
	if !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got: %v", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("expected the last cause to stay unwrappable")
	}
	if calls != 5 {
		t.Errorf("expected 5 attempts, got %d", calls)
	}
	if len(delays) != 4 {
		t.Errorf("expected 4 sleeps, got %d", len(delays))
	}
}

func TestDo_ContextCancelledDuringBackoff(t *testing.T) {
	r := New(withSleep(func(ctx context.Context, _ time.Duration) error {
		return context.Canceled
	}))

	err := r.Do(context.Background(), func(context.Context) error {
		return Transient(errors.New("overloaded"))
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got: %v", err)
	}
}

func TestWithOptions(t *testing.T) {
	var delays []time.Duration
	r := New(WithMaxAttempts(2), WithBaseDelay(10*time.Millisecond), fakeSleep(&delays))

	calls := 0
	_ = r.Do(context.Background(), func(context.Context) error {
		calls++
		return Transient(errors.New("overloaded"))
	})
	if calls != 2 {
		t.Errorf("expected 2 attempts, got %d", calls)
	}
	if len(delays) != 1 || delays[0] != 10*time.Millisecond {
		t.Errorf("expected one 10ms sleep, got %v", delays)
	}
}
