// Package memory provides in-memory adapter implementations.
// These are used by tests and by single-instance deployments that do not
// share counters across processes; production multi-instance deployments
// use the redis adapter.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/gabrielgadea/kazuba-saas-api/domain/quota"
	"github.com/gabrielgadea/kazuba-saas-api/ports"
)

type counter struct {
	value     int64
	expiresAt time.Time
}

// CounterStore is an in-memory implementation of ports.CounterStore.
// Expiry follows the same calendar-period rules as the redis adapter,
// evaluated lazily against the caller-supplied time.
type CounterStore struct {
	mu       sync.Mutex
	counters map[string]counter
}

// NewCounterStore creates a new in-memory counter store.
func NewCounterStore() *CounterStore {
	return &CounterStore{
		counters: make(map[string]counter),
	}
}

// Increment atomically adds 1 to the counter for the period containing now.
func (s *CounterStore) Increment(ctx context.Context, identityID string, p quota.Period, now time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	k := quota.Key(identityID, p, now)

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.counters[k]
	if !ok || !now.Before(c.expiresAt) {
		c = counter{expiresAt: now.Add(quota.TTL(p, now))}
	}
	c.value++
	s.counters[k] = c

	return c.value, nil
}

// Peek returns the current counter value; a missing or expired counter
// reads as 0.
func (s *CounterStore) Peek(ctx context.Context, identityID string, p quota.Period, now time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	k := quota.Key(identityID, p, now)

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.counters[k]
	if !ok || !now.Before(c.expiresAt) {
		return 0, nil
	}
	return c.value, nil
}

// Clear removes all state (for testing).
func (s *CounterStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters = make(map[string]counter)
}

// Len returns the number of live entries (for testing).
func (s *CounterStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.counters)
}

// Ensure interface compliance.
var _ ports.CounterStore = (*CounterStore)(nil)
