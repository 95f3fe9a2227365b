package quota_test

import (
	"testing"
	"time"

	"github.com/gabrielgadea/kazuba-saas-api/domain/quota"
)

// A mid-month, mid-day reference instant: 2025-06-15 10:30:00 UTC.
var ref = time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)

func TestBounds(t *testing.T) {
	tests := []struct {
		name      string
		period    quota.Period
		at        time.Time
		wantStart time.Time
		wantEnd   time.Time
	}{
		{
			name:      "day mid-day",
			period:    quota.PeriodDay,
			at:        ref,
			wantStart: time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "day at exact midnight",
			period:    quota.PeriodDay,
			at:        time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC),
			wantStart: time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "month mid-month",
			period:    quota.PeriodMonth,
			at:        ref,
			wantStart: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "december rolls into january",
			period:    quota.PeriodMonth,
			at:        time.Date(2025, 12, 31, 23, 0, 0, 0, time.UTC),
			wantStart: time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "non-utc input normalized",
			period:    quota.PeriodDay,
			at:        time.Date(2025, 6, 15, 23, 30, 0, 0, time.FixedZone("UTC+2", 2*3600)),
			wantStart: time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := quota.Bounds(tt.period, tt.at)
			if !start.Equal(tt.wantStart) || !end.Equal(tt.wantEnd) {
				t.Errorf("Bounds() = (%v, %v), want (%v, %v)", start, end, tt.wantStart, tt.wantEnd)
			}
		})
	}
}

func TestTTL(t *testing.T) {
	// 13h30m left in the day at 10:30.
	if got, want := quota.TTL(quota.PeriodDay, ref), 13*time.Hour+30*time.Minute; got != want {
		t.Errorf("day TTL = %v, want %v", got, want)
	}

	// One second before midnight.
	almostMidnight := time.Date(2025, 6, 15, 23, 59, 59, 0, time.UTC)
	if got, want := quota.TTL(quota.PeriodDay, almostMidnight), time.Second; got != want {
		t.Errorf("day TTL near midnight = %v, want %v", got, want)
	}
}

func TestRetryAfter(t *testing.T) {
	tests := []struct {
		name   string
		period quota.Period
		at     time.Time
		want   time.Duration
	}{
		{
			name:   "whole seconds pass through",
			period: quota.PeriodDay,
			at:     time.Date(2025, 6, 15, 23, 59, 50, 0, time.UTC),
			want:   10 * time.Second,
		},
		{
			name:   "fractional second rounds up",
			period: quota.PeriodDay,
			at:     time.Date(2025, 6, 15, 23, 59, 50, 500_000_000, time.UTC),
			want:   10 * time.Second,
		},
		{
			name:   "never below one second",
			period: quota.PeriodDay,
			at:     time.Date(2025, 6, 15, 23, 59, 59, 999_000_000, time.UTC),
			want:   time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := quota.RetryAfter(tt.period, tt.at); got != tt.want {
				t.Errorf("RetryAfter() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKey(t *testing.T) {
	tests := []struct {
		period quota.Period
		want   string
	}{
		{quota.PeriodDay, "usage:u1:day:2025-06-15"},
		{quota.PeriodMonth, "usage:u1:month:2025-06"},
	}

	for _, tt := range tests {
		if got := quota.Key("u1", tt.period, ref); got != tt.want {
			t.Errorf("Key(%s) = %q, want %q", tt.period, got, tt.want)
		}
	}
}

func TestKey_PeriodsNeverCollide(t *testing.T) {
	day := quota.Key("u1", quota.PeriodDay, ref)
	month := quota.Key("u1", quota.PeriodMonth, ref)
	if day == month {
		t.Errorf("day and month keys collide: %q", day)
	}

	nextDay := quota.Key("u1", quota.PeriodDay, ref.AddDate(0, 0, 1))
	if day == nextDay {
		t.Errorf("consecutive days share a key: %q", day)
	}
}

func TestCheck(t *testing.T) {
	const limit = 50

	tests := []struct {
		name          string
		count         int64
		wantAllowed   bool
		wantRemaining int64
		wantReason    string
	}{
		{"fresh counter", 0, true, 49, ""},
		{"mid quota", 25, true, 24, ""},
		{"last slot", 49, true, 0, ""},
		{"at limit rejects", 50, false, 0, quota.ReasonRateLimited},
		{"over limit rejects", 51, false, 0, quota.ReasonRateLimited},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := quota.Check(tt.count, limit, quota.PeriodDay, ref)
			if d.Allowed != tt.wantAllowed {
				t.Errorf("Allowed = %v, want %v", d.Allowed, tt.wantAllowed)
			}
			if d.Remaining != tt.wantRemaining {
				t.Errorf("Remaining = %d, want %d", d.Remaining, tt.wantRemaining)
			}
			if d.Reason != tt.wantReason {
				t.Errorf("Reason = %q, want %q", d.Reason, tt.wantReason)
			}
			if d.Limit != limit {
				t.Errorf("Limit = %d, want %d", d.Limit, limit)
			}
		})
	}
}

func TestCheck_RejectionCarriesRetryHint(t *testing.T) {
	d := quota.Check(50, 50, quota.PeriodDay, ref)

	if d.Allowed {
		t.Fatal("expected rejection")
	}
	if d.RetryAfter <= 0 {
		t.Error("rejection has no retry-after hint")
	}
	wantReset := time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC)
	if !d.ResetAt.Equal(wantReset) {
		t.Errorf("ResetAt = %v, want %v", d.ResetAt, wantReset)
	}
	// The hint must land at or past the boundary.
	if ref.Add(d.RetryAfter).Before(wantReset) {
		t.Errorf("retrying after %v at %v lands before the reset %v", d.RetryAfter, ref, wantReset)
	}
}

func TestCheck_MonthRejectionReason(t *testing.T) {
	d := quota.Check(100, 100, quota.PeriodMonth, ref)
	if d.Allowed {
		t.Fatal("expected rejection")
	}
	if d.Reason != quota.ReasonDocQuotaExceeded {
		t.Errorf("Reason = %q, want %q", d.Reason, quota.ReasonDocQuotaExceeded)
	}
}

func TestCheck_AllowedHasNoRetryAfter(t *testing.T) {
	d := quota.Check(0, 50, quota.PeriodDay, ref)
	if d.RetryAfter != 0 {
		t.Errorf("allowed decision has RetryAfter = %v, want 0", d.RetryAfter)
	}
}
