package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"musicscan/internal/config"
)

func TestFixedDelayPausesAfterEachCall(t *testing.T) {
	var pauses []time.Duration
	policy := NewFixedDelay(1100*time.Millisecond, WithSleeper(func(_ context.Context, d time.Duration) error {
		pauses = append(pauses, d)
		return nil
	}))

	calls := 0
	for i := 0; i < 3; i++ {
		if err := Do(context.Background(), policy, func(context.Context) error {
			calls++
			if len(pauses) != i {
				t.Fatalf("pause must follow the call, got %d pauses before call %d", len(pauses), i+1)
			}
			return nil
		}); err != nil {
			t.Fatalf("Do returned error: %v", err)
		}
	}
	if calls != 3 || len(pauses) != 3 {
		t.Fatalf("expected 3 calls and 3 pauses, got %d and %d", calls, len(pauses))
	}
	for _, p := range pauses {
		if p != 1100*time.Millisecond {
			t.Fatalf("unexpected pause %s", p)
		}
	}
}

func TestDoPausesEvenWhenCallFails(t *testing.T) {
	paused := false
	policy := NewFixedDelay(time.Second, WithSleeper(func(context.Context, time.Duration) error {
		paused = true
		return nil
	}))
	wantErr := errors.New("boom")
	err := Do(context.Background(), policy, func(context.Context) error { return wantErr })
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected call error, got %v", err)
	}
	if !paused {
		t.Fatal("expected pause after failed call")
	}
}

func TestFixedDelayHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	policy := NewFixedDelay(time.Hour)
	if err := Do(ctx, policy, func(context.Context) error { return nil }); err == nil {
		t.Fatal("expected cancelled context to abort")
	}
}

func TestTokenBucketAllowsBurst(t *testing.T) {
	policy, err := NewTokenBucket(60, 2)
	if err != nil {
		t.Fatalf("NewTokenBucket returned error: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	for i := 0; i < 2; i++ {
		if err := policy.Before(ctx); err != nil {
			t.Fatalf("burst call %d blocked: %v", i+1, err)
		}
	}
	if err := policy.Before(ctx); err == nil {
		t.Fatal("expected third call to exceed the deadline")
	}
}

func TestFromConfig(t *testing.T) {
	cfg := config.Default().Discogs
	policy, err := FromConfig(cfg)
	if err != nil {
		t.Fatalf("FromConfig returned error: %v", err)
	}
	fixed, ok := policy.(*FixedDelay)
	if !ok || fixed.Delay() != 1100*time.Millisecond {
		t.Fatalf("expected 1.1s fixed delay, got %#v", policy)
	}

	cfg.RateLimitMode = config.RateLimitTokenBucket
	if policy, err = FromConfig(cfg); err != nil {
		t.Fatalf("FromConfig returned error: %v", err)
	}
	if _, ok := policy.(*TokenBucket); !ok {
		t.Fatalf("expected token bucket, got %T", policy)
	}

	cfg.RateLimitMode = "bursty"
	if _, err := FromConfig(cfg); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}
