// Package usage provides the consumption snapshot value type.
package usage

import "github.com/gabrielgadea/kazuba-saas-api/domain/tier"

// Snapshot is an immutable point-in-time view of a caller's consumption.
// Computed on demand, never stored.
type Snapshot struct {
	Tier              tier.Tier `json:"tier"`
	RequestsToday     int64     `json:"requests_today"`
	RequestsLimit     int64     `json:"requests_limit"`
	DocsThisMonth     int64     `json:"docs_this_month"`
	DocsLimit         int64     `json:"docs_limit"`
	RequestsRemaining int64     `json:"requests_remaining"`
}

// Build assembles a snapshot from raw counter reads.
// Remaining is clamped at zero: a counter may exceed the limit when limits
// are lowered mid-period, and remaining quota is never negative.
// This is a PURE function.
func Build(t tier.Tier, limits tier.Limits, requestsToday, docsThisMonth int64) Snapshot {
	remaining := limits.RequestsPerDay - requestsToday
	if remaining < 0 {
		remaining = 0
	}

	return Snapshot{
		Tier:              t,
		RequestsToday:     requestsToday,
		RequestsLimit:     limits.RequestsPerDay,
		DocsThisMonth:     docsThisMonth,
		DocsLimit:         limits.DocsPerMonth,
		RequestsRemaining: remaining,
	}
}
