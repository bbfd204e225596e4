// Package ratelimit provides the politeness policies applied to outbound
// catalog requests. A policy is injected into the catalog client wrapper so
// the pause between calls is configurable and observable in tests.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"musicscan/internal/config"
)

// Policy brackets a single outbound call.
type Policy interface {
	// Before blocks until the call may start.
	Before(ctx context.Context) error
	// After runs once the call has returned, successful or not.
	After(ctx context.Context) error
}

// Do runs call between the policy's Before and After hooks. The call's error
// takes precedence over an interrupted pause.
func Do(ctx context.Context, policy Policy, call func(context.Context) error) error {
	if policy == nil {
		policy = Unlimited{}
	}
	if err := policy.Before(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	callErr := call(ctx)
	afterErr := policy.After(ctx)
	if callErr != nil {
		return callErr
	}
	if afterErr != nil {
		return fmt.Errorf("rate limit pause: %w", afterErr)
	}
	return nil
}

// Unlimited never blocks.
type Unlimited struct{}

func (Unlimited) Before(context.Context) error { return nil }
func (Unlimited) After(context.Context) error  { return nil }

// Sleeper pauses for the given duration or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// FixedDelay pauses for a constant duration after every call.
type FixedDelay struct {
	delay time.Duration
	sleep Sleeper
}

// Option customizes a FixedDelay.
type Option func(*FixedDelay)

// WithSleeper replaces the real timer, letting tests record pauses.
func WithSleeper(sleeper Sleeper) Option {
	return func(f *FixedDelay) {
		if sleeper != nil {
			f.sleep = sleeper
		}
	}
}

// NewFixedDelay returns a policy that pauses for delay after each call.
func NewFixedDelay(delay time.Duration, opts ...Option) *FixedDelay {
	f := &FixedDelay{delay: delay, sleep: sleepContext}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Delay returns the configured pause.
func (f *FixedDelay) Delay() time.Duration {
	return f.delay
}

func (f *FixedDelay) Before(ctx context.Context) error {
	return ctx.Err()
}

func (f *FixedDelay) After(ctx context.Context) error {
	if f.delay <= 0 {
		return nil
	}
	return f.sleep(ctx, f.delay)
}

// TokenBucket spaces calls using a token bucket limiter.
type TokenBucket struct {
	limiter *rate.Limiter
}

// NewTokenBucket allows requestsPerMinute calls per minute with the given burst.
func NewTokenBucket(requestsPerMinute, burst int) (*TokenBucket, error) {
	if requestsPerMinute <= 0 {
		return nil, errors.New("token bucket: requests per minute must be positive")
	}
	if burst <= 0 {
		burst = 1
	}
	every := time.Minute / time.Duration(requestsPerMinute)
	return &TokenBucket{limiter: rate.NewLimiter(rate.Every(every), burst)}, nil
}

func (t *TokenBucket) Before(ctx context.Context) error {
	return t.limiter.Wait(ctx)
}

func (t *TokenBucket) After(context.Context) error { return nil }

// FromConfig builds the catalog policy selected in configuration.
func FromConfig(cfg config.Discogs) (Policy, error) {
	switch cfg.RateLimitMode {
	case config.RateLimitTokenBucket:
		return NewTokenBucket(cfg.RequestsPerMinute, 1)
	case config.RateLimitFixed, "":
		return NewFixedDelay(time.Duration(cfg.RequestDelayMS) * time.Millisecond), nil
	default:
		return nil, fmt.Errorf("unknown rate limit mode %q", cfg.RateLimitMode)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
