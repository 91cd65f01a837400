// Package memory holds in-process adapters. State lives in one process and
// is lost on restart, so they suit single-instance deployments and tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/neomorfeo/adoptiq/internal/domain"
)

// Compile-time check: CounterStore implements domain.CounterStore.
var _ domain.CounterStore = (*CounterStore)(nil)

// DefaultSweepInterval bounds how long expired counters linger in memory.
const DefaultSweepInterval = 5 * time.Minute

// CounterStore is a mutex-guarded map of fixed-window counters. Expired
// entries are dropped opportunistically on Increment once per sweep
// interval; lookups treat them as absent either way.
type CounterStore struct {
	mu        sync.Mutex
	counters  map[string]domain.Counter
	interval  time.Duration
	lastSweep time.Time
}

// NewCounterStore creates an empty store. A non-positive interval uses
// DefaultSweepInterval.
func NewCounterStore(sweepInterval time.Duration) *CounterStore {
	if sweepInterval <= 0 {
		sweepInterval = DefaultSweepInterval
	}
	return &CounterStore{
		counters: make(map[string]domain.Counter),
		interval: sweepInterval,
	}
}

func (s *CounterStore) Get(_ context.Context, key string) (domain.Counter, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.counters[key]
	return c, ok, nil
}

func (s *CounterStore) Increment(_ context.Context, key string, window time.Duration, now time.Time) (domain.Counter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweep(now)

	c, ok := s.counters[key]
	if !ok || !now.Before(c.ResetAt) {
		c = domain.Counter{ResetAt: now.Add(window)}
	}
	c.Count++
	s.counters[key] = c

	return c, nil
}

func (s *CounterStore) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.counters, key)
	return nil
}

// Len returns the number of counters held, expired or not.
func (s *CounterStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.counters)
}

// sweep must be called with mu held.
func (s *CounterStore) sweep(now time.Time) {
	if now.Sub(s.lastSweep) < s.interval {
		return
	}
	s.lastSweep = now

	for key, c := range s.counters {
		if !now.Before(c.ResetAt) {
			delete(s.counters, key)
		}
	}
}
