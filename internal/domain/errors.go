package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Sentinel errors for simple conditions without extra context.
var (
	ErrLanguageNotFound  = errors.New("language not found")
	ErrCampaignNotFound  = errors.New("campaign not found")
	ErrPartnerNotFound   = errors.New("partner not found")
	ErrPartnerExists     = errors.New("partner email already registered")
	ErrPaymentNotFound   = errors.New("payment not found")
	ErrStaleCampaign     = errors.New("campaign changed concurrently")
	ErrStalePayment      = errors.New("payment changed concurrently")
	ErrPaymentIncomplete = errors.New("payment has not succeeded")
	ErrInvalidSignature  = errors.New("invalid signature")
	ErrUnauthenticated   = errors.New("unauthenticated")
	ErrForbidden         = errors.New("forbidden")
)

// ValidationError is returned for malformed input. Fields maps a field name
// to a human readable problem.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError builds a single-field validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// AdoptionConflictError is returned when a language already has an active adopter.
type AdoptionConflictError struct {
	LanguageID string
}

func (e *AdoptionConflictError) Error() string {
	return fmt.Sprintf("language %q is already adopted", e.LanguageID)
}

// TransitionError is returned when a state transition is not allowed.
type TransitionError struct {
	Event   string
	Current string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("event %q is not valid from state %q", e.Event, e.Current)
}

// RateLimitedError is returned when a caller exceeded a rate-limit policy.
type RateLimitedError struct {
	Reason     string
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return e.Reason
}

// AntiBotError is returned when a public submission fails the anti-bot gate.
// Reason is for logs only.
type AntiBotError struct {
	Reason string
}

func (e *AntiBotError) Error() string {
	return e.Reason
}

// UpstreamError wraps a failure of the payment processor.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("processor %s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
