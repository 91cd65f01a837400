package app

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/neomorfeo/adoptiq/internal/domain"
)

// Rate-limit dimensions. Each has its own keyspace inside a policy.
const (
	DimensionIP    = "ip"
	DimensionEmail = "email"
)

// LimitKey names one identity to count against a policy.
type LimitKey struct {
	Dimension string
	Value     string
}

// RateLimiter applies fixed-window policies on top of a CounterStore.
type RateLimiter struct {
	store domain.CounterStore
	nowFn func() time.Time
}

// NewRateLimiter creates a limiter over the given counter store.
func NewRateLimiter(store domain.CounterStore) *RateLimiter {
	return &RateLimiter{store: store, nowFn: time.Now}
}

// WithClock replaces the limiter's time source.
func (l *RateLimiter) WithClock(now func() time.Time) *RateLimiter {
	l.nowFn = now
	return l
}

// Check counts one request for key under policy. The store increments
// atomically, so two racing callers never both see the last free slot.
func (l *RateLimiter) Check(ctx context.Context, policy domain.RateLimitPolicy, key LimitKey) (domain.Decision, error) {
	now := l.nowFn()

	counter, err := l.store.Increment(ctx, counterKey(policy, key), policy.Window, now)
	if err != nil {
		return domain.Decision{}, fmt.Errorf("incrementing %s counter: %w", policy.Name, err)
	}

	if counter.Count > policy.MaxRequests {
		return domain.Decision{
			Allowed:   false,
			Remaining: 0,
			ResetAt:   counter.ResetAt,
			Reason:    retryReason(counter.ResetAt.Sub(now)),
		}, nil
	}

	return domain.Decision{
		Allowed:   true,
		Remaining: policy.MaxRequests - counter.Count,
		ResetAt:   counter.ResetAt,
	}, nil
}

// CheckAll runs Check for each key in order and stops at the first
// rejection. When all pass, the smallest remaining wins.
func (l *RateLimiter) CheckAll(ctx context.Context, policy domain.RateLimitPolicy, keys ...LimitKey) (domain.Decision, error) {
	result := domain.Decision{Allowed: true, Remaining: policy.MaxRequests}

	for i, key := range keys {
		decision, err := l.Check(ctx, policy, key)
		if err != nil {
			return domain.Decision{}, err
		}
		if !decision.Allowed {
			return decision, nil
		}
		if i == 0 || decision.Remaining < result.Remaining {
			result.Remaining = decision.Remaining
			result.ResetAt = decision.ResetAt
		}
	}

	return result, nil
}

// Enforce is CheckAll that turns a rejection into a *domain.RateLimitedError.
func (l *RateLimiter) Enforce(ctx context.Context, policy domain.RateLimitPolicy, keys ...LimitKey) (domain.Decision, error) {
	decision, err := l.CheckAll(ctx, policy, keys...)
	if err != nil {
		return domain.Decision{}, err
	}
	if !decision.Allowed {
		retry := decision.ResetAt.Sub(l.nowFn())
		if retry < 0 {
			retry = 0
		}
		return decision, &domain.RateLimitedError{Reason: decision.Reason, RetryAfter: retry}
	}
	return decision, nil
}

// Peek reports the current decision for key without counting a request.
func (l *RateLimiter) Peek(ctx context.Context, policy domain.RateLimitPolicy, key LimitKey) (domain.Decision, error) {
	now := l.nowFn()

	counter, ok, err := l.store.Get(ctx, counterKey(policy, key))
	if err != nil {
		return domain.Decision{}, fmt.Errorf("reading %s counter: %w", policy.Name, err)
	}
	if !ok || !now.Before(counter.ResetAt) {
		return domain.Decision{Allowed: true, Remaining: policy.MaxRequests}, nil
	}

	remaining := policy.MaxRequests - counter.Count
	if remaining <= 0 {
		return domain.Decision{ResetAt: counter.ResetAt, Reason: retryReason(counter.ResetAt.Sub(now))}, nil
	}
	return domain.Decision{Allowed: true, Remaining: remaining, ResetAt: counter.ResetAt}, nil
}

// Reset clears the counter for key, e.g. after staff unblock a donor.
func (l *RateLimiter) Reset(ctx context.Context, policy domain.RateLimitPolicy, key LimitKey) error {
	if err := l.store.Reset(ctx, counterKey(policy, key)); err != nil {
		return fmt.Errorf("resetting %s counter: %w", policy.Name, err)
	}
	return nil
}

func counterKey(policy domain.RateLimitPolicy, key LimitKey) string {
	value := key.Value
	if key.Dimension == DimensionEmail {
		value = domain.NormalizeEmail(value)
	}
	return policy.Name + ":" + key.Dimension + ":" + value
}

func retryReason(wait time.Duration) string {
	minutes := int(math.Ceil(wait.Minutes()))
	if minutes < 1 {
		minutes = 1
	}
	unit := "minutes"
	if minutes == 1 {
		unit = "minute"
	}
	return fmt.Sprintf("Too many requests. Please try again in %d %s.", minutes, unit)
}
