package app

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/gabrielgadea/kazuba-saas-api/domain/key"
	"github.com/gabrielgadea/kazuba-saas-api/domain/quota"
	"github.com/gabrielgadea/kazuba-saas-api/domain/tier"
	"github.com/gabrielgadea/kazuba-saas-api/domain/usage"
	"github.com/gabrielgadea/kazuba-saas-api/ports"
)

// UsageService produces read-only consumption snapshots.
//
// Unlike GatewayService there is no fallback here: a usage report built
// without the store would be a fabrication, so ErrStoreUnavailable is
// surfaced as-is for the caller to return a 503.
type UsageService struct {
	counters ports.CounterStore
	clock    ports.Clock

	policy atomic.Pointer[tier.Policy]
}

// NewUsageService creates a usage reporter.
func NewUsageService(counters ports.CounterStore, clk ports.Clock, policy tier.Policy) *UsageService {
	s := &UsageService{
		counters: counters,
		clock:    clk,
	}
	s.UpdatePolicy(policy)
	return s
}

// UpdatePolicy swaps the tier policy table (hot reload).
func (s *UsageService) UpdatePolicy(policy tier.Policy) {
	s.policy.Store(&policy)
}

// Snapshot reads both period counters and assembles a point-in-time view.
// Never mutates any counter.
func (s *UsageService) Snapshot(ctx context.Context, id key.Identity) (usage.Snapshot, error) {
	now := s.clock.Now()

	limits, err := s.policy.Load().LimitFor(id.Tier)
	if err != nil {
		return usage.Snapshot{}, fmt.Errorf("quota policy: %w", err)
	}

	day, err := s.counters.Peek(ctx, id.ID, quota.PeriodDay, now)
	if err != nil {
		return usage.Snapshot{}, fmt.Errorf("read day counter: %w", err)
	}

	month, err := s.counters.Peek(ctx, id.ID, quota.PeriodMonth, now)
	if err != nil {
		return usage.Snapshot{}, fmt.Errorf("read month counter: %w", err)
	}

	return usage.Build(id.Tier, limits, day, month), nil
}
