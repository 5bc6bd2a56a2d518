package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDoVal_SuccessOnFirstAttempt(t *testing.T) {
	var calls int
	val, err := DoVal(context.Background(), RetryConfig{}, func(_ context.Context) (string, error) {
		calls++
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != "ok" {
		t.Errorf("expected value preserved, got %q", val)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDoVal_SuccessAfterRetry(t *testing.T) {
	var calls int
	cfg := RetryConfig{MaxAttempts: 3, Backoff: 1 * time.Millisecond}

	val, err := DoVal(context.Background(), cfg, func(_ context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, NewTransientError(errors.New("temporary"), 503)
		}
		return 7, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != 7 {
		t.Errorf("expected 7, got %d", val)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDoVal_ExhaustsRetries(t *testing.T) {
	var calls int
	cfg := RetryConfig{MaxAttempts: 3, Backoff: 1 * time.Millisecond}

	_, err := DoVal(context.Background(), cfg, func(_ context.Context) (int, error) {
		calls++
		return 0, NewTransientError(errors.New("always fails"), 500)
	})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDoVal_NonTransientError_NoRetry(t *testing.T) {
	var calls int
	cfg := RetryConfig{MaxAttempts: 3, Backoff: 1 * time.Millisecond}

	_, err := DoVal(context.Background(), cfg, func(_ context.Context) (int, error) {
		calls++
		return 0, errors.New("permanent error: bad request")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected 1 call (no retry for non-transient), got %d", calls)
	}
}

func TestDoVal_ContextCancelled_StopsRetry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls int
	cfg := RetryConfig{MaxAttempts: 5, Backoff: 50 * time.Millisecond}

	_, err := DoVal(ctx, cfg, func(_ context.Context) (int, error) {
		calls++
		if calls == 2 {
			cancel()
		}
		return 0, NewTransientError(errors.New("fail"), 500)
	})
	if err == nil {
		t.Fatal("expected error")
	}
	// Should stop after cancel (2 calls max).
	if calls > 3 {
		t.Errorf("expected <= 3 calls after cancel, got %d", calls)
	}
}

func TestDoVal_CustomShouldRetry(t *testing.T) {
	var calls int
	cfg := RetryConfig{
		MaxAttempts: 3,
		Backoff:     1 * time.Millisecond,
		ShouldRetry: func(err error) bool {
			return errors.Is(err, errRetryMe)
		},
	}

	_, err := DoVal(context.Background(), cfg, func(_ context.Context) (int, error) {
		calls++
		return 0, errRetryMe
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 3 {
		t.Errorf("expected 3 calls with custom predicate, got %d", calls)
	}
}

var errRetryMe = errors.New("retry me")

func TestDoVal_OnRetryObservesAttempts(t *testing.T) {
	var attempts []int
	cfg := RetryConfig{
		MaxAttempts: 3,
		Backoff:     1 * time.Millisecond,
		OnRetry: func(attempt int, _ error) {
			attempts = append(attempts, attempt)
		},
	}

	_, _ = DoVal(context.Background(), cfg, func(_ context.Context) (int, error) {
		return 0, NewTransientError(errors.New("fail"), 503)
	})
	if len(attempts) != 2 {
		t.Fatalf("expected 2 retry callbacks, got %d", len(attempts))
	}
	if attempts[0] != 1 || attempts[1] != 2 {
		t.Errorf("expected attempts [1 2], got %v", attempts)
	}
}

func TestDo_WrapsDoVal(t *testing.T) {
	var calls int
	cfg := RetryConfig{MaxAttempts: 2, Backoff: 1 * time.Millisecond}

	err := Do(context.Background(), cfg, func(_ context.Context) error {
		calls++
		if calls == 1 {
			return NewTransientError(errors.New("once"), 503)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 calls, got %d", calls)
	}
}
