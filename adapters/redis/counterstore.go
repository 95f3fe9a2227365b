// Package redis provides the Redis-backed counter store.
//
// Redis INCR is the single source of truth for ordering: every mutation is
// an atomic increment-and-get on the server, so concurrent requests for the
// same identity across any number of gateway instances never lose an update.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gabrielgadea/kazuba-saas-api/domain/quota"
	"github.com/gabrielgadea/kazuba-saas-api/ports"
)

// DefaultTimeout bounds every store round-trip so the caller's fallback
// decision is reached in bounded time when Redis degrades.
const DefaultTimeout = 500 * time.Millisecond

// CounterStore is a Redis implementation of ports.CounterStore.
type CounterStore struct {
	client  *redis.Client
	timeout time.Duration
}

// NewCounterStore creates a counter store on an existing client.
// A non-positive timeout falls back to DefaultTimeout.
func NewCounterStore(client *redis.Client, timeout time.Duration) *CounterStore {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &CounterStore{client: client, timeout: timeout}
}

// Increment atomically increments the period counter and returns the new
// value. The expiry is set only when the key is created, to the remainder
// of the calendar period, so the counter dies at the period boundary.
func (s *CounterStore) Increment(ctx context.Context, identityID string, p quota.Period, now time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	k := quota.Key(identityID, p, now)

	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.ExpireNX(ctx, k, quota.TTL(p, now))

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("%w: incr %s: %v", ports.ErrStoreUnavailable, k, err)
	}

	return incr.Val(), nil
}

// Peek returns the current counter value without mutating; a missing key
// reads as 0.
func (s *CounterStore) Peek(ctx context.Context, identityID string, p quota.Period, now time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	k := quota.Key(identityID, p, now)

	val, err := s.client.Get(ctx, k).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: get %s: %v", ports.ErrStoreUnavailable, k, err)
	}

	return val, nil
}

// Ping verifies the backend is reachable (used by the readiness probe).
func (s *CounterStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: ping: %v", ports.ErrStoreUnavailable, err)
	}
	return nil
}

// Ensure interface compliance.
var _ ports.CounterStore = (*CounterStore)(nil)
