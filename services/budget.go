package services

import (
	"context"
	"sync"
	"time"
)

// Stop reasons recorded by Budget.
const (
	StopCompleted   = "completed"
	StopTimeLimit   = "time_limit"
	StopItemQuota   = "item_quota"
	StopInterrupted = "interrupted"
)

// Budget is the single "must stop now" predicate shared by every loop of a run.
// It is polled: tripping it never interrupts work already in progress.
type Budget struct {
	start    time.Time
	limit    time.Duration
	maxItems int
	count    func() int
	now      func() time.Time

	mu     sync.Mutex
	reason string
}

// NewBudget starts the clock. count reports how many records the run has
// collected; a nil count disables the item quota.
func NewBudget(limit time.Duration, maxItems int, count func() int) *Budget {
	return newBudgetAt(time.Now, limit, maxItems, count)
}

func newBudgetAt(now func() time.Time, limit time.Duration, maxItems int, count func() int) *Budget {
	return &Budget{
		start:    now(),
		limit:    limit,
		maxItems: maxItems,
		count:    count,
		now:      now,
	}
}

// Elapsed returns the time since the run started.
func (b *Budget) Elapsed() time.Duration {
	return b.now().Sub(b.start)
}

// ElapsedMinutes returns Elapsed in minutes.
func (b *Budget) ElapsedMinutes() float64 {
	return b.Elapsed().Minutes()
}

// ShouldStop reports whether the time limit or the item quota is reached, or
// the budget was tripped. Time and trips are final; the quota is read from
// count on every call.
func (b *Budget) ShouldStop() bool {
	if b.Expired() {
		return true
	}
	return b.quotaReached()
}

// Expired is ShouldStop without the item quota. Work that already holds a
// reservation uses it to decide whether to start.
func (b *Budget) Expired() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.reason != "" {
		return true
	}
	if b.Elapsed() >= b.limit {
		b.reason = StopTimeLimit
		return true
	}
	return false
}

func (b *Budget) quotaReached() bool {
	return b.count != nil && b.count() >= b.maxItems
}

// Trip forces ShouldStop to return true from now on. The first reason sticks.
func (b *Budget) Trip(reason string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.reason == "" {
		b.reason = reason
	}
}

// TripOnDone trips the budget when ctx is done, e.g. on SIGINT. The returned
// function detaches it.
func (b *Budget) TripOnDone(ctx context.Context) (stop func() bool) {
	return context.AfterFunc(ctx, func() { b.Trip(StopInterrupted) })
}

// Reason returns why the budget stopped the run, or StopCompleted if it never did.
func (b *Budget) Reason() string {
	b.mu.Lock()
	reason := b.reason
	b.mu.Unlock()

	switch {
	case reason != "":
		return reason
	case b.quotaReached():
		return StopItemQuota
	}
	return StopCompleted
}
