package utils

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// WorkerPool manages a bounded pool of goroutines with rate limiting between
// job starts.
type WorkerPool struct {
	maxWorkers int
	semaphore  chan struct{}
	wg         sync.WaitGroup
	limiter    *rate.Limiter
}

// NewWorkerPool creates a WorkerPool with the given concurrency and minimum
// interval (in milliseconds) between job starts. A non-positive interval
// disables pacing.
func NewWorkerPool(maxWorkers, rateLimitMs int) *WorkerPool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &WorkerPool{
		maxWorkers: maxWorkers,
		semaphore:  make(chan struct{}, maxWorkers),
		limiter:    NewPacer(rateLimitMs),
	}
}

// NewPacer returns a limiter allowing one event per interval, burst 1.
func NewPacer(intervalMs int) *rate.Limiter {
	if intervalMs <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(time.Duration(intervalMs)*time.Millisecond), 1)
}

// Size returns the pool's concurrency bound.
func (wp *WorkerPool) Size() int {
	return wp.maxWorkers
}

// Submit enqueues a job for execution in the pool. It blocks while every
// worker slot is busy.
func (wp *WorkerPool) Submit(job func()) {
	wp.wg.Add(1)
	wp.semaphore <- struct{}{}

	go func() {
		defer wp.wg.Done()
		defer func() { <-wp.semaphore }()

		_ = wp.limiter.Wait(context.Background())
		job()
	}()
}

// Wait blocks until all submitted jobs have completed.
func (wp *WorkerPool) Wait() {
	wp.wg.Wait()
}

// URLSet is a thread-safe set of canonical URLs. It only ever grows.
type URLSet struct {
	mu   sync.RWMutex
	seen map[string]struct{}
}

// NewURLSet creates an empty URLSet.
func NewURLSet() *URLSet {
	return &URLSet{seen: make(map[string]struct{})}
}

// Add returns true if the URL was newly added, false if already present.
func (s *URLSet) Add(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.seen[url]; exists {
		return false
	}
	s.seen[url] = struct{}{}
	return true
}

// AddAll inserts every non-empty URL and returns how many were new.
func (s *URLSet) AddAll(urls []string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := 0
	for _, u := range urls {
		if u == "" {
			continue
		}
		if _, exists := s.seen[u]; !exists {
			s.seen[u] = struct{}{}
			added++
		}
	}
	return added
}

// Contains returns true if the URL has already been seen.
func (s *URLSet) Contains(url string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, exists := s.seen[url]
	return exists
}

// Size returns the number of unique URLs tracked.
func (s *URLSet) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.seen)
}

// Snapshot returns the members in sorted order.
func (s *URLSet) Snapshot() []string {
	s.mu.RLock()
	out := make([]string, 0, len(s.seen))
	for u := range s.seen {
		out = append(out, u)
	}
	s.mu.RUnlock()
	sort.Strings(out)
	return out
}
