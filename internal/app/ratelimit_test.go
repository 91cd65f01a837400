package app_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/neomorfeo/adoptiq/internal/adapter/memory"
	"github.com/neomorfeo/adoptiq/internal/app"
	"github.com/neomorfeo/adoptiq/internal/domain"
)

type fakeClock struct{ now time.Time }

func newFakeClock(start time.Time) *fakeClock { return &fakeClock{now: start} }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newLimiter(clock *fakeClock) *app.RateLimiter {
	return app.NewRateLimiter(memory.NewCounterStore(time.Hour)).WithClock(clock.Now)
}

func ip(v string) app.LimitKey    { return app.LimitKey{Dimension: app.DimensionIP, Value: v} }
func email(v string) app.LimitKey { return app.LimitKey{Dimension: app.DimensionEmail, Value: v} }

func TestCheck_TwoPerMinute(t *testing.T) {
	clock := newFakeClock(testNow)
	limiter := newLimiter(clock)
	policy := domain.RateLimitPolicy{Name: "test", Window: time.Minute, MaxRequests: 2}
	ctx := context.Background()

	d1, err := limiter.Check(ctx, policy, ip("9.9.9.9"))
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if !d1.Allowed || d1.Remaining != 1 {
		t.Errorf("call 1 = %+v, want allowed with 1 remaining", d1)
	}
	if !d1.ResetAt.Equal(testNow.Add(time.Minute)) {
		t.Errorf("ResetAt = %v, want %v", d1.ResetAt, testNow.Add(time.Minute))
	}

	d2, _ := limiter.Check(ctx, policy, ip("9.9.9.9"))
	if !d2.Allowed || d2.Remaining != 0 {
		t.Errorf("call 2 = %+v, want allowed with 0 remaining", d2)
	}

	d3, _ := limiter.Check(ctx, policy, ip("9.9.9.9"))
	if d3.Allowed || d3.Remaining != 0 {
		t.Errorf("call 3 = %+v, want rejected", d3)
	}
	if d3.Reason != "Too many requests. Please try again in 1 minute." {
		t.Errorf("Reason = %q", d3.Reason)
	}
}

func TestCheck_RemainingNeverIncreasesWithinWindow(t *testing.T) {
	clock := newFakeClock(testNow)
	limiter := newLimiter(clock)
	policy := domain.RateLimitPolicy{Name: "payment", Window: 15 * time.Minute, MaxRequests: 5}

	last := policy.MaxRequests
	for i := range 10 {
		d, err := limiter.Check(context.Background(), policy, ip("1.1.1.1"))
		if err != nil {
			t.Fatalf("Check failed: %v", err)
		}
		if d.Remaining > last {
			t.Fatalf("call %d: remaining rose from %d to %d", i+1, last, d.Remaining)
		}
		if wantAllowed := i < policy.MaxRequests; d.Allowed != wantAllowed {
			t.Errorf("call %d: Allowed = %v, want %v", i+1, d.Allowed, wantAllowed)
		}
		last = d.Remaining
		clock.Advance(time.Minute)
	}
}

func TestCheck_ReasonRoundsMinutesUp(t *testing.T) {
	clock := newFakeClock(testNow)
	limiter := newLimiter(clock)
	policy := domain.RateLimitPolicy{Name: "payment", Window: 15 * time.Minute, MaxRequests: 1}
	ctx := context.Background()

	limiter.Check(ctx, policy, ip("1.1.1.1"))
	clock.Advance(90 * time.Second)

	d, _ := limiter.Check(ctx, policy, ip("1.1.1.1"))
	if d.Reason != "Too many requests. Please try again in 14 minutes." {
		t.Errorf("Reason = %q", d.Reason)
	}
}

func TestCheck_NewWindowAfterReset(t *testing.T) {
	clock := newFakeClock(testNow)
	limiter := newLimiter(clock)
	policy := domain.RateLimitPolicy{Name: "test", Window: time.Minute, MaxRequests: 1}
	ctx := context.Background()

	limiter.Check(ctx, policy, ip("9.9.9.9"))
	if d, _ := limiter.Check(ctx, policy, ip("9.9.9.9")); d.Allowed {
		t.Fatal("second call should be rejected")
	}

	clock.Advance(time.Minute)
	d, _ := limiter.Check(ctx, policy, ip("9.9.9.9"))
	if !d.Allowed || d.Remaining != 0 {
		t.Errorf("after reset = %+v, want allowed", d)
	}
}

func TestCheck_PoliciesAndDimensionsAreIndependent(t *testing.T) {
	clock := newFakeClock(testNow)
	limiter := newLimiter(clock)
	payment := domain.RateLimitPolicy{Name: "payment", Window: time.Minute, MaxRequests: 1}
	testimony := domain.RateLimitPolicy{Name: "testimony", Window: time.Minute, MaxRequests: 1}
	ctx := context.Background()

	limiter.Check(ctx, payment, ip("9.9.9.9"))

	if d, _ := limiter.Check(ctx, testimony, ip("9.9.9.9")); !d.Allowed {
		t.Error("testimony policy should not share payment counters")
	}
	if d, _ := limiter.Check(ctx, payment, email("9.9.9.9")); !d.Allowed {
		t.Error("email dimension should not share ip counters")
	}
}

func TestCheckAll_IPBeforeEmail(t *testing.T) {
	clock := newFakeClock(testNow)
	limiter := newLimiter(clock)
	policy := domain.RateLimitPolicy{Name: "payment", Window: time.Minute, MaxRequests: 1}
	ctx := context.Background()

	limiter.Check(ctx, policy, ip("5.5.5.5"))

	d, err := limiter.CheckAll(ctx, policy, ip("5.5.5.5"), email("ana@example.org"))
	if err != nil {
		t.Fatalf("CheckAll failed: %v", err)
	}
	if d.Allowed {
		t.Fatal("exhausted IP should reject")
	}

	peek, _ := limiter.Peek(ctx, policy, email("ana@example.org"))
	if peek.Remaining != 1 {
		t.Errorf("email remaining = %d, want 1: an IP rejection must not count against the email", peek.Remaining)
	}
}

func TestCheckAll_EmailLimitSpansIPs(t *testing.T) {
	clock := newFakeClock(testNow)
	limiter := newLimiter(clock)
	policy := domain.RateLimitPolicy{Name: "payment", Window: time.Minute, MaxRequests: 3}
	ctx := context.Background()

	// Exhaust the email across other IPs.
	for _, addr := range []string{"1.0.0.1", "1.0.0.2", "1.0.0.3"} {
		if d, _ := limiter.CheckAll(ctx, policy, ip(addr), email("ana@example.org")); !d.Allowed {
			t.Fatalf("setup call from %s rejected", addr)
		}
	}

	d, err := limiter.CheckAll(ctx, policy, ip("1.0.0.4"), email("ANA@example.org"))
	if err != nil {
		t.Fatalf("CheckAll failed: %v", err)
	}
	if d.Allowed {
		t.Error("email limit should reject regardless of a fresh IP")
	}
}

func TestCheckAll_ReturnsMostRestrictiveRemaining(t *testing.T) {
	clock := newFakeClock(testNow)
	limiter := newLimiter(clock)
	policy := domain.RateLimitPolicy{Name: "payment", Window: time.Minute, MaxRequests: 5}
	ctx := context.Background()

	limiter.Check(ctx, policy, email("ana@example.org"))
	limiter.Check(ctx, policy, email("ana@example.org"))

	d, _ := limiter.CheckAll(ctx, policy, ip("2.2.2.2"), email("ana@example.org"))
	if !d.Allowed || d.Remaining != 2 {
		t.Errorf("decision = %+v, want allowed with 2 remaining", d)
	}
}

func TestEnforce_ReturnsRateLimitedError(t *testing.T) {
	clock := newFakeClock(testNow)
	limiter := newLimiter(clock)
	policy := domain.RateLimitPolicy{Name: "testimony", Window: time.Hour, MaxRequests: 1}
	ctx := context.Background()

	if _, err := limiter.Enforce(ctx, policy, ip("3.3.3.3")); err != nil {
		t.Fatalf("first Enforce failed: %v", err)
	}

	clock.Advance(20 * time.Minute)
	_, err := limiter.Enforce(ctx, policy, ip("3.3.3.3"))

	var rlErr *domain.RateLimitedError
	if !errors.As(err, &rlErr) {
		t.Fatalf("expected RateLimitedError, got %v", err)
	}
	if rlErr.RetryAfter != 40*time.Minute {
		t.Errorf("RetryAfter = %v, want 40m", rlErr.RetryAfter)
	}
	if !strings.Contains(rlErr.Reason, "40 minutes") {
		t.Errorf("Reason = %q, want 40 minutes", rlErr.Reason)
	}
}

func TestPeekAndReset(t *testing.T) {
	clock := newFakeClock(testNow)
	limiter := newLimiter(clock)
	policy := domain.RateLimitPolicy{Name: "payment", Window: time.Minute, MaxRequests: 2}
	ctx := context.Background()

	d, _ := limiter.Peek(ctx, policy, ip("4.4.4.4"))
	if !d.Allowed || d.Remaining != 2 {
		t.Errorf("fresh Peek = %+v, want full allowance", d)
	}

	limiter.Check(ctx, policy, ip("4.4.4.4"))
	limiter.Check(ctx, policy, ip("4.4.4.4"))

	d, _ = limiter.Peek(ctx, policy, ip("4.4.4.4"))
	if d.Allowed {
		t.Errorf("Peek at limit = %+v, want not allowed", d)
	}

	if err := limiter.Reset(ctx, policy, ip("4.4.4.4")); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if d, _ := limiter.Check(ctx, policy, ip("4.4.4.4")); !d.Allowed || d.Remaining != 1 {
		t.Errorf("after Reset = %+v, want a new window", d)
	}
}
