package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeRecorder struct {
	successes int
	failures  int
}

func (r *fakeRecorder) RecordSuccess() { r.successes++ }
func (r *fakeRecorder) RecordFailure() { r.failures++ }

func TestDo_ExhaustsBudget(t *testing.T) {
	t.Parallel()

	rec := &fakeRecorder{}
	attempts := 0
	wantErr := errors.New("supplier down")

	err := Do(context.Background(), Policy{MaxRetries: 2, BackoffBase: time.Millisecond}, rec, func(context.Context) error {
		attempts++
		return wantErr
	})

	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3 (1 initial + 2 retries)", attempts)
	}
	if rec.failures != 3 || rec.successes != 0 {
		t.Fatalf("recorder = %+v, want 3 failures, 0 successes", rec)
	}
}

func TestDo_StopsOnFirstSuccess(t *testing.T) {
	t.Parallel()

	rec := &fakeRecorder{}
	attempts := 0

	err := Do(context.Background(), Policy{MaxRetries: 5, BackoffBase: time.Millisecond}, rec, func(context.Context) error {
		attempts++
		if attempts < 2 {
			return errors.New("flaky")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 2 {
		t.Fatalf("attempts = %d, want 2", attempts)
	}
	if rec.failures != 1 || rec.successes != 1 {
		t.Fatalf("recorder = %+v, want 1 failure, 1 success", rec)
	}
}

func TestDo_ZeroRetries(t *testing.T) {
	t.Parallel()

	rec := &fakeRecorder{}
	attempts := 0

	err := Do(context.Background(), Policy{MaxRetries: 0, BackoffBase: time.Millisecond}, rec, func(context.Context) error {
		attempts++
		return errors.New("nope")
	})

	if err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 {
		t.Fatalf("attempts = %d, want exactly 1", attempts)
	}
}

func TestDo_CancellationAbortsBudget(t *testing.T) {
	t.Parallel()

	rec := &fakeRecorder{}
	attempts := 0
	ctx, cancel := context.WithCancel(context.Background())

	err := Do(ctx, Policy{MaxRetries: 4, BackoffBase: time.Millisecond}, rec, func(context.Context) error {
		attempts++
		cancel()
		return errors.New("slow supplier")
	})

	if err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 {
		t.Fatalf("attempts = %d, want 1 (cancellation ends the budget)", attempts)
	}
	if rec.failures != 1 {
		t.Fatalf("failures = %d, want 1 (cancelled attempt counts)", rec.failures)
	}
}

func TestBackoff_DoublesAndCaps(t *testing.T) {
	t.Parallel()

	p := Policy{BackoffBase: 100 * time.Millisecond, BackoffCap: 500 * time.Millisecond}

	cases := []struct {
		failed int
		want   time.Duration
	}{
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 500 * time.Millisecond},
		{5, 500 * time.Millisecond},
	}
	for _, tc := range cases {
		if got := backoff(p, tc.failed); got != tc.want {
			t.Errorf("backoff after %d failures = %v, want %v", tc.failed, got, tc.want)
		}
	}
}
