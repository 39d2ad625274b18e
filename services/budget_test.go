package services

import (
	"context"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestBudgetTimeLimit(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	b := newBudgetAt(clock.now, 28*time.Minute, 100, func() int { return 0 })

	if b.ShouldStop() {
		t.Fatal("fresh budget should not stop")
	}
	clock.advance(27 * time.Minute)
	if b.ShouldStop() {
		t.Fatal("27 minutes is inside the limit")
	}
	if got := b.ElapsedMinutes(); got != 27 {
		t.Errorf("ElapsedMinutes = %v; want 27", got)
	}
	clock.advance(time.Minute)
	if !b.ShouldStop() {
		t.Fatal("budget should stop at the limit")
	}
	if b.Reason() != StopTimeLimit {
		t.Errorf("Reason = %q; want %q", b.Reason(), StopTimeLimit)
	}
}

func TestBudgetZeroLimitStopsImmediately(t *testing.T) {
	b := NewBudget(0, 100, nil)
	if !b.ShouldStop() {
		t.Error("zero time limit should stop at once")
	}
}

func TestBudgetItemQuota(t *testing.T) {
	count := 0
	b := NewBudget(time.Hour, 3, func() int { return count })

	count = 2
	if b.ShouldStop() {
		t.Fatal("2 of 3 items should not stop")
	}
	count = 3
	if !b.ShouldStop() {
		t.Fatal("quota reached should stop")
	}
	if b.Reason() != StopItemQuota {
		t.Errorf("Reason = %q; want %q", b.Reason(), StopItemQuota)
	}
	if b.Expired() {
		t.Error("Expired must ignore the item quota")
	}

}

func TestBudgetQuotaFollowsCount(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	count := 3
	b := newBudgetAt(clock.now, time.Hour, 3, func() int { return count })

	if !b.ShouldStop() {
		t.Fatal("quota reached should stop")
	}
	count = 2
	if b.ShouldStop() {
		t.Error("quota is read from count on every call")
	}
	if b.Reason() != StopCompleted {
		t.Errorf("Reason = %q; want %q", b.Reason(), StopCompleted)
	}

	clock.advance(time.Hour)
	b.ShouldStop()
	clock.t = clock.t.Add(-2 * time.Hour)
	if !b.ShouldStop() || b.Reason() != StopTimeLimit {
		t.Errorf("time limit must stay final: ShouldStop=%v Reason=%q", b.ShouldStop(), b.Reason())
	}
}

func TestBudgetTripOnDone(t *testing.T) {
	b := NewBudget(time.Hour, 100, nil)
	ctx, cancel := context.WithCancel(context.Background())
	stop := b.TripOnDone(ctx)
	defer stop()

	if b.ShouldStop() {
		t.Fatal("should not stop before cancel")
	}
	cancel()

	deadline := time.Now().Add(time.Second)
	for !b.Expired() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if !b.ShouldStop() || b.Reason() != StopInterrupted {
		t.Errorf("after cancel: ShouldStop=%v Reason=%q", b.ShouldStop(), b.Reason())
	}
}

func TestBudgetReasonCompleted(t *testing.T) {
	b := NewBudget(time.Hour, 100, nil)
	if b.Reason() != StopCompleted {
		t.Errorf("Reason = %q; want %q", b.Reason(), StopCompleted)
	}
}
