package services

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"airbnb-harvester/models"
	"airbnb-harvester/storage"
	"airbnb-harvester/utils"
)

// RunState is the mutable state of one run. All mutation goes through its
// methods; during extraction only the collector goroutine commits records.
type RunState struct {
	RunID   string
	Started time.Time
	Seen    *utils.URLSet

	mu        sync.Mutex
	records   []models.ListingRecord
	processed int
	pending   []string
	done      map[string]struct{}
	inflight  int
	resumed   bool
}

// NewRunState creates a fresh state with a new run ID.
func NewRunState() *RunState {
	return &RunState{
		RunID:   uuid.NewString(),
		Started: time.Now(),
		Seen:    utils.NewURLSet(),
		done:    make(map[string]struct{}),
	}
}

// Restore loads a checkpoint into the state. Records and pending URLs are
// kept in their saved order.
func (s *RunState) Restore(cp *storage.Checkpoint) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cp.RunID != "" {
		s.RunID = cp.RunID
	}
	s.Seen.AddAll(cp.SeenURLs)
	s.records = append(s.records[:0], cp.ScrapedRecords...)
	s.processed = cp.ProcessedCount
	for _, rec := range cp.ScrapedRecords {
		s.Seen.Add(rec.URL)
		s.done[rec.URL] = struct{}{}
	}
	for _, u := range cp.PendingURLs {
		if _, ok := s.done[u]; ok {
			continue
		}
		s.Seen.Add(u)
		s.pending = append(s.pending, u)
	}
	s.resumed = true
}

// Resumed reports whether the state came from a checkpoint.
func (s *RunState) Resumed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resumed
}

// Accept adds a harvested URL to the seen set and the work queue. It returns
// false when the URL was already seen.
func (s *RunState) Accept(url string) bool {
	if url == "" || !s.Seen.Add(url) {
		return false
	}
	s.mu.Lock()
	s.pending = append(s.pending, url)
	s.mu.Unlock()
	return true
}

// Pending returns the accepted URLs not yet extracted, in queue order.
func (s *RunState) Pending() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingLocked()
}

func (s *RunState) pendingLocked() []string {
	out := make([]string, 0, len(s.pending))
	for _, u := range s.pending {
		if _, ok := s.done[u]; !ok {
			out = append(out, u)
		}
	}
	return out
}

// Reserve counts one extraction as in flight so the item quota cannot be
// overshot by parallel workers.
func (s *RunState) Reserve() {
	s.mu.Lock()
	s.inflight++
	s.mu.Unlock()
}

// Commit finishes an in-flight extraction. A nil record means the listing was
// skipped; it is still counted as processed.
func (s *RunState) Commit(url string, rec *models.ListingRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inflight > 0 {
		s.inflight--
	}
	s.processed++
	s.done[url] = struct{}{}
	if rec != nil {
		s.records = append(s.records, *rec)
	}
}

// Release drops a reservation whose work never started.
func (s *RunState) Release() {
	s.mu.Lock()
	if s.inflight > 0 {
		s.inflight--
	}
	s.mu.Unlock()
}

// Collected returns the records held plus those in flight.
func (s *RunState) Collected() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records) + s.inflight
}

// Len returns the number of records held.
func (s *RunState) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Processed returns how many listings were attempted, including skipped ones.
func (s *RunState) Processed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.processed
}

// Records returns a copy of the records in commit order.
func (s *RunState) Records() []models.ListingRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ListingRecord, len(s.records))
	copy(out, s.records)
	return out
}

// Checkpoint snapshots the state for persistence.
func (s *RunState) Checkpoint() *storage.Checkpoint {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := make([]models.ListingRecord, len(s.records))
	copy(records, s.records)
	return &storage.Checkpoint{
		RunID:          s.RunID,
		SeenURLs:       s.Seen.Snapshot(),
		ScrapedRecords: records,
		ProcessedCount: s.processed,
		PendingURLs:    s.pendingLocked(),
		SavedAt:        time.Now().UTC(),
	}
}
