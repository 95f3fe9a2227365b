package memory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/gabrielgadea/kazuba-saas-api/adapters/memory"
	"github.com/gabrielgadea/kazuba-saas-api/domain/quota"
)

var ref = time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)

func TestIncrement(t *testing.T) {
	store := memory.NewCounterStore()
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := store.Increment(ctx, "u1", quota.PeriodDay, ref)
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Errorf("Increment #%d = %d, want %d", want, got, want)
		}
	}
}

func TestIncrement_IdentitiesAreIsolated(t *testing.T) {
	store := memory.NewCounterStore()
	ctx := context.Background()

	store.Increment(ctx, "u1", quota.PeriodDay, ref)
	store.Increment(ctx, "u1", quota.PeriodDay, ref)

	got, err := store.Peek(ctx, "u2", quota.PeriodDay, ref)
	if err != nil {
		t.Fatal(err)
	}
	if got != 0 {
		t.Errorf("u2 counter = %d, want 0", got)
	}
}

func TestIncrement_PeriodsAreIsolated(t *testing.T) {
	store := memory.NewCounterStore()
	ctx := context.Background()

	store.Increment(ctx, "u1", quota.PeriodDay, ref)

	got, err := store.Peek(ctx, "u1", quota.PeriodMonth, ref)
	if err != nil {
		t.Fatal(err)
	}
	if got != 0 {
		t.Errorf("month counter = %d, want 0", got)
	}
}

func TestIncrement_Concurrent(t *testing.T) {
	store := memory.NewCounterStore()
	ctx := context.Background()

	const n = 100
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			if _, err := store.Increment(ctx, "u1", quota.PeriodDay, ref); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	got, err := store.Peek(ctx, "u1", quota.PeriodDay, ref)
	if err != nil {
		t.Fatal(err)
	}
	if got != n {
		t.Errorf("counter after %d concurrent increments = %d", n, got)
	}
}

func TestPeek_DoesNotMutate(t *testing.T) {
	store := memory.NewCounterStore()
	ctx := context.Background()

	store.Increment(ctx, "u1", quota.PeriodDay, ref)

	for i := 0; i < 5; i++ {
		got, err := store.Peek(ctx, "u1", quota.PeriodDay, ref)
		if err != nil {
			t.Fatal(err)
		}
		if got != 1 {
			t.Fatalf("Peek #%d = %d, want 1", i, got)
		}
	}
}

func TestCounterExpiresAtDayBoundary(t *testing.T) {
	store := memory.NewCounterStore()
	ctx := context.Background()

	store.Increment(ctx, "u1", quota.PeriodDay, ref)

	// Same key, read the next day: the bucket date differs so the counter
	// is simply absent.
	nextDay := ref.AddDate(0, 0, 1)
	got, err := store.Peek(ctx, "u1", quota.PeriodDay, nextDay)
	if err != nil {
		t.Fatal(err)
	}
	if got != 0 {
		t.Errorf("counter visible on the next day: %d", got)
	}

	// A fresh increment on the new day starts at 1.
	n, err := store.Increment(ctx, "u1", quota.PeriodDay, nextDay)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("first increment of new day = %d, want 1", n)
	}
}

func TestMonthCounterSurvivesDayRollover(t *testing.T) {
	store := memory.NewCounterStore()
	ctx := context.Background()

	store.Increment(ctx, "u1", quota.PeriodMonth, ref)

	nextDay := ref.AddDate(0, 0, 1)
	got, err := store.Peek(ctx, "u1", quota.PeriodMonth, nextDay)
	if err != nil {
		t.Fatal(err)
	}
	if got != 1 {
		t.Errorf("month counter after day rollover = %d, want 1", got)
	}

	nextMonth := ref.AddDate(0, 1, 0)
	got, err = store.Peek(ctx, "u1", quota.PeriodMonth, nextMonth)
	if err != nil {
		t.Fatal(err)
	}
	if got != 0 {
		t.Errorf("month counter after month rollover = %d, want 0", got)
	}
}

func TestIncrement_CancelledContext(t *testing.T) {
	store := memory.NewCounterStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := store.Increment(ctx, "u1", quota.PeriodDay, ref); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestClear(t *testing.T) {
	store := memory.NewCounterStore()
	ctx := context.Background()

	store.Increment(ctx, "u1", quota.PeriodDay, ref)
	store.Increment(ctx, "u1", quota.PeriodMonth, ref)
	if store.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", store.Len())
	}

	store.Clear()
	if store.Len() != 0 {
		t.Errorf("Len() after Clear = %d, want 0", store.Len())
	}
}
