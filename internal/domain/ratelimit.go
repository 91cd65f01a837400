package domain

import "time"

// Counter is one fixed-window rate-limit record.
type Counter struct {
	Count   int
	ResetAt time.Time
}

// RateLimitPolicy is a named window configuration. The name namespaces the
// keys so that policies never share counters.
type RateLimitPolicy struct {
	Name        string
	Window      time.Duration
	MaxRequests int
}

// Decision is the result of a rate-limit check.
type Decision struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
	Reason    string
}
