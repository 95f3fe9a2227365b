// Package quota provides pure functions for quota enforcement: counting
// period arithmetic and the admit/reject decision. All functions are
// deterministic with no side effects.
//
// Periods are calendar-based in UTC: the day counter resets at midnight UTC
// and the month counter on the first of the next month. Retry-after values
// are the distance to the next boundary, not a fixed 24h.
package quota

import (
	"fmt"
	"time"
)

// Period is a bounded counting window with its own counter and expiry.
type Period string

const (
	PeriodDay   Period = "day"
	PeriodMonth Period = "month"
)

// Reasons for denial.
const (
	ReasonRateLimited      = "rate_limit_exceeded"
	ReasonDocQuotaExceeded = "doc_quota_exceeded"
	ReasonDegraded         = "service_degraded"
)

// Decision is the outcome of a quota check (value type).
type Decision struct {
	Allowed    bool
	Remaining  int64         // Requests remaining after this decision
	Limit      int64         // The ceiling that was applied
	RetryAfter time.Duration // Zero when allowed
	ResetAt    time.Time     // When the period counter resets
	Reason     string        // If not allowed, why
	Degraded   bool          // True when the decision came from the fallback policy
}

// Bounds returns the start and end of the period containing t, in UTC.
// This is a PURE function.
func Bounds(p Period, t time.Time) (start, end time.Time) {
	u := t.UTC()
	switch p {
	case PeriodMonth:
		start = time.Date(u.Year(), u.Month(), 1, 0, 0, 0, 0, time.UTC)
		end = start.AddDate(0, 1, 0)
	default: // PeriodDay
		start = time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
		end = start.AddDate(0, 0, 1)
	}
	return start, end
}

// TTL returns the time remaining in the period containing t.
// Counters expire at the period boundary, so this is the expiry to set
// when a counter is first created.
func TTL(p Period, t time.Time) time.Duration {
	_, end := Bounds(p, t)
	return end.Sub(t.UTC())
}

// RetryAfter returns the whole seconds until the period containing t
// resets, rounded up so a retry at the hinted time lands past the boundary.
func RetryAfter(p Period, t time.Time) time.Duration {
	d := TTL(p, t)
	secs := int64(d / time.Second)
	if d%time.Second != 0 {
		secs++
	}
	if secs < 1 {
		secs = 1
	}
	return time.Duration(secs) * time.Second
}

// Key builds the counter key for an identity and period.
// The bucket suffix pins the key to the current calendar period, so a
// counter that outlives its TTL can never bleed into the next period.
func Key(identityID string, p Period, t time.Time) string {
	u := t.UTC()
	switch p {
	case PeriodMonth:
		return fmt.Sprintf("usage:%s:month:%s", identityID, u.Format("2006-01"))
	default:
		return fmt.Sprintf("usage:%s:day:%s", identityID, u.Format("2006-01-02"))
	}
}

// Check decides whether a request may proceed given the current counter
// value. The ceiling is inclusive: count == limit-1 admits the last
// request, count == limit rejects.
// This is a PURE function - the caller increments the counter on admit.
func Check(count, limit int64, p Period, now time.Time) Decision {
	_, end := Bounds(p, now)

	if count >= limit {
		reason := ReasonRateLimited
		if p == PeriodMonth {
			reason = ReasonDocQuotaExceeded
		}
		return Decision{
			Allowed:    false,
			Remaining:  0,
			Limit:      limit,
			RetryAfter: RetryAfter(p, now),
			ResetAt:    end,
			Reason:     reason,
		}
	}

	return Decision{
		Allowed:   true,
		Remaining: limit - (count + 1),
		Limit:     limit,
		ResetAt:   end,
	}
}
