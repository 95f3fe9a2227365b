// Package app provides application services that orchestrate domain logic.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/gabrielgadea/kazuba-saas-api/adapters/metrics"
	"github.com/gabrielgadea/kazuba-saas-api/domain/key"
	"github.com/gabrielgadea/kazuba-saas-api/domain/quota"
	"github.com/gabrielgadea/kazuba-saas-api/domain/tier"
	"github.com/gabrielgadea/kazuba-saas-api/ports"
)

// FallbackPolicy is the single documented behavior applied when the
// counter store is unavailable. It is applied in exactly one place
// (GatewayService.decide); no call site improvises its own.
type FallbackPolicy string

const (
	// FallbackOpen admits the request, skips counting, and logs a
	// degradation warning. Availability over enforcement.
	FallbackOpen FallbackPolicy = "open"

	// FallbackClosed rejects with a retryable degraded-service response.
	// Enforcement over availability.
	FallbackClosed FallbackPolicy = "closed"
)

// degradedRetryAfter is the hint on fail-closed rejections. The store is
// expected back long before any period boundary, so the hint is short.
const degradedRetryAfter = 30 * time.Second

// GatewayService composes key resolution, quota policy and the counter
// store into admit/reject decisions.
type GatewayService struct {
	counters ports.CounterStore
	clock    ports.Clock
	logger   zerolog.Logger
	metrics  *metrics.Collector // nil when metrics are disabled

	// Hot-reloadable configuration
	dynamicCfg atomic.Pointer[DynamicConfig]
}

// DynamicConfig contains the hot-reloadable part of the gateway:
// the tier policy table and the store-failure fallback.
type DynamicConfig struct {
	Policy   tier.Policy
	Fallback FallbackPolicy
}

// GatewayDeps contains dependencies for GatewayService.
type GatewayDeps struct {
	Counters ports.CounterStore
	Clock    ports.Clock
	Logger   zerolog.Logger
	Metrics  *metrics.Collector
}

// NewGatewayService creates a new gateway service.
func NewGatewayService(deps GatewayDeps, cfg DynamicConfig) *GatewayService {
	s := &GatewayService{
		counters: deps.Counters,
		clock:    deps.Clock,
		logger:   deps.Logger,
		metrics:  deps.Metrics,
	}
	s.UpdateConfig(cfg)
	return s
}

// UpdateConfig swaps the hot-reloadable configuration.
// Thread-safe; may be called while handling requests.
func (s *GatewayService) UpdateConfig(cfg DynamicConfig) {
	if cfg.Fallback != FallbackClosed {
		cfg.Fallback = FallbackOpen
	}
	s.dynamicCfg.Store(&cfg)
}

// Policy returns the current tier policy table.
func (s *GatewayService) Policy() tier.Policy {
	return s.dynamicCfg.Load().Policy
}

// Check decides whether a request from the identity may proceed and, on
// admit, consumes one unit of the daily request quota.
//
// The returned error is non-nil only for invariant violations (an identity
// whose tier is missing from the policy table); store failures never
// escape, they are resolved by the fallback policy.
func (s *GatewayService) Check(ctx context.Context, id key.Identity) (quota.Decision, error) {
	now := s.clock.Now()
	cfg := s.dynamicCfg.Load()

	limits, err := cfg.Policy.LimitFor(id.Tier)
	if err != nil {
		return quota.Decision{}, fmt.Errorf("quota policy: %w", err)
	}

	// Read the day counter. The store's atomic increment is the sole
	// source of truth; nothing is cached in process memory.
	done := s.timeStore("peek")
	count, err := s.counters.Peek(ctx, id.ID, quota.PeriodDay, now)
	done()
	if err != nil {
		return s.decide(id, err, "check")
	}

	d := quota.Check(count, limits.RequestsPerDay, quota.PeriodDay, now)
	if !d.Allowed {
		if s.metrics != nil {
			s.metrics.RateLimitHits.WithLabelValues(string(id.Tier)).Inc()
		}
		return d, nil
	}

	// Consume the unit. Remaining is derived from the increment's return
	// value, not the earlier peek, so concurrent admits stay consistent
	// with the store's linearized order.
	done = s.timeStore("increment")
	newCount, err := s.counters.Increment(ctx, id.ID, quota.PeriodDay, now)
	done()
	if err != nil {
		return s.decide(id, err, "record")
	}

	d.Remaining = limits.RequestsPerDay - newCount
	if d.Remaining < 0 {
		d.Remaining = 0
	}
	return d, nil
}

// CheckDocument decides whether the identity may convert another document
// this month. Read-only: the month counter is consumed by RecordDocument
// after the conversion actually succeeds.
func (s *GatewayService) CheckDocument(ctx context.Context, id key.Identity) (quota.Decision, error) {
	now := s.clock.Now()
	cfg := s.dynamicCfg.Load()

	limits, err := cfg.Policy.LimitFor(id.Tier)
	if err != nil {
		return quota.Decision{}, fmt.Errorf("quota policy: %w", err)
	}

	done := s.timeStore("peek")
	count, err := s.counters.Peek(ctx, id.ID, quota.PeriodMonth, now)
	done()
	if err != nil {
		return s.decide(id, err, "check_document")
	}

	d := quota.Check(count, limits.DocsPerMonth, quota.PeriodMonth, now)
	if !d.Allowed && s.metrics != nil {
		s.metrics.DocQuotaHits.WithLabelValues(string(id.Tier)).Inc()
	}
	return d, nil
}

// RecordDocument consumes one unit of the monthly document quota.
// Called exactly once per successfully converted document; never for
// failed or rejected requests. A store failure here is logged and
// swallowed: the document has already been delivered and rejecting the
// response after the fact would help no one.
func (s *GatewayService) RecordDocument(ctx context.Context, id key.Identity) {
	now := s.clock.Now()

	done := s.timeStore("increment")
	_, err := s.counters.Increment(ctx, id.ID, quota.PeriodMonth, now)
	done()
	if err != nil {
		if s.metrics != nil {
			s.metrics.StoreErrors.Inc()
		}
		s.logger.Warn().
			Err(err).
			Str("identity", id.ID).
			Msg("document counted late: counter store unavailable")
	}
}

// timeStore returns a completion callback that observes the elapsed wall
// time of one counter store round trip.
func (s *GatewayService) timeStore(op string) func() {
	if s.metrics == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		s.metrics.StoreDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}
}

// decide resolves a store failure into the configured fallback decision.
// This is the only place the fallback policy is applied.
func (s *GatewayService) decide(id key.Identity, storeErr error, op string) (quota.Decision, error) {
	if !errors.Is(storeErr, ports.ErrStoreUnavailable) {
		// Context cancellation from the caller; surface as degraded too,
		// the request is not going anywhere either way.
		storeErr = fmt.Errorf("%w: %v", ports.ErrStoreUnavailable, storeErr)
	}

	if s.metrics != nil {
		s.metrics.StoreErrors.Inc()
	}

	cfg := s.dynamicCfg.Load()
	if cfg.Fallback == FallbackClosed {
		if s.metrics != nil {
			s.metrics.DegradedRejects.Inc()
		}
		s.logger.Warn().
			Err(storeErr).
			Str("op", op).
			Str("identity", id.ID).
			Str("fallback", string(FallbackClosed)).
			Msg("counter store unavailable, rejecting")
		return quota.Decision{
			Allowed:    false,
			Reason:     quota.ReasonDegraded,
			RetryAfter: degradedRetryAfter,
			Degraded:   true,
		}, nil
	}

	if s.metrics != nil {
		s.metrics.DegradedAdmits.Inc()
	}
	s.logger.Warn().
		Err(storeErr).
		Str("op", op).
		Str("identity", id.ID).
		Str("fallback", string(FallbackOpen)).
		Msg("counter store unavailable, admitting uncounted")
	return quota.Decision{
		Allowed:  true,
		Degraded: true,
	}, nil
}
