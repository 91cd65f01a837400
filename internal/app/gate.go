package app

import (
	"context"
	"log/slog"

	"github.com/neomorfeo/adoptiq/internal/domain"
)

// Gate runs the anti-bot check and then the rate limiter in front of a
// public mutation. Nothing is counted for a request that fails the
// anti-bot check.
type Gate struct {
	antiBot *AntiBot
	limiter *RateLimiter
	logger  *slog.Logger
}

// NewGate composes the validator and limiter shared by all public endpoints.
func NewGate(antiBot *AntiBot, limiter *RateLimiter, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{antiBot: antiBot, limiter: limiter, logger: logger}
}

// Admit returns nil when the submission may proceed to business logic.
func (g *Gate) Admit(ctx context.Context, s Submission, policy domain.RateLimitPolicy, keys ...LimitKey) (domain.Decision, error) {
	if err := g.antiBot.Validate(s); err != nil {
		g.logger.WarnContext(ctx, "anti-bot rejection",
			"policy", policy.Name,
			"reason", err.Error(),
		)
		return domain.Decision{}, err
	}

	decision, err := g.limiter.Enforce(ctx, policy, keys...)
	if err != nil {
		g.logger.InfoContext(ctx, "rate limit check failed",
			"policy", policy.Name,
			"reset_at", decision.ResetAt,
			"error", err,
		)
		return decision, err
	}

	return decision, nil
}

// IssueToken hands out a fresh form token.
func (g *Gate) IssueToken() SecurityToken {
	return g.antiBot.Issue()
}
