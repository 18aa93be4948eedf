package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errUnavailable = errors.New("upstream unavailable")

func TestRetryOnceSucceedsFirstTry(t *testing.T) {
	calls := 0
	err := RetryOnce(context.Background(), errUnavailable, time.Millisecond, func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestRetryOnceRetriesRetryable(t *testing.T) {
	calls := 0
	err := RetryOnce(context.Background(), errUnavailable, time.Millisecond, func() error {
		calls++
		if calls == 1 {
			return errUnavailable
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
}

func TestRetryOnceStopsAfterSecondFailure(t *testing.T) {
	calls := 0
	err := RetryOnce(context.Background(), errUnavailable, time.Millisecond, func() error {
		calls++
		return errUnavailable
	})
	if !errors.Is(err, errUnavailable) {
		t.Fatalf("expected errUnavailable, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected exactly 2 calls, got %d", calls)
	}
}

func TestRetryOnceDoesNotRetryOtherErrors(t *testing.T) {
	permanent := errors.New("forbidden")
	calls := 0
	err := RetryOnce(context.Background(), errUnavailable, time.Millisecond, func() error {
		calls++
		return permanent
	})
	if !errors.Is(err, permanent) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestRetryOnceHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := RetryOnce(ctx, errUnavailable, time.Hour, func() error {
		calls++
		return errUnavailable
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call before cancellation, got %d", calls)
	}
}
