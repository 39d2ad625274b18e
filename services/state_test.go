package services

import (
	"testing"

	"airbnb-harvester/models"
	"airbnb-harvester/storage"
)

func TestRunStateAccept(t *testing.T) {
	s := NewRunState()
	s.Seen.Add("u0")

	if s.Accept("u0") {
		t.Error("URL from the master should not be accepted")
	}
	if !s.Accept("u1") || s.Accept("u1") {
		t.Error("a URL must be accepted exactly once")
	}
	if s.Accept("") {
		t.Error("empty URL accepted")
	}
	if got := s.Pending(); len(got) != 1 || got[0] != "u1" {
		t.Errorf("Pending = %v; want [u1]", got)
	}
}

func TestRunStateCommit(t *testing.T) {
	s := NewRunState()
	s.Accept("u1")
	s.Accept("u2")

	s.Reserve()
	s.Reserve()
	if s.Collected() != 2 {
		t.Errorf("Collected = %d; want 2 reservations", s.Collected())
	}

	s.Commit("u1", &models.ListingRecord{URL: "u1"})
	s.Commit("u2", nil)

	if s.Len() != 1 || s.Processed() != 2 || s.Collected() != 1 {
		t.Errorf("Len=%d Processed=%d Collected=%d; want 1, 2, 1", s.Len(), s.Processed(), s.Collected())
	}
	if len(s.Pending()) != 0 {
		t.Errorf("Pending = %v; want none", s.Pending())
	}
}

func TestRunStateReleaseKeepsPending(t *testing.T) {
	s := NewRunState()
	s.Accept("u1")
	s.Reserve()
	s.Release()

	if s.Collected() != 0 || len(s.Pending()) != 1 {
		t.Errorf("Collected=%d Pending=%v", s.Collected(), s.Pending())
	}
}

func TestRunStateRestore(t *testing.T) {
	s := NewRunState()
	s.Restore(&storage.Checkpoint{
		RunID:          "resumed",
		SeenURLs:       []string{"u1", "u2", "u3"},
		ScrapedRecords: []models.ListingRecord{{URL: "u1", Title: "One"}},
		ProcessedCount: 1,
		PendingURLs:    []string{"u1", "u2", "u3"},
	})

	if s.RunID != "resumed" || !s.Resumed() {
		t.Errorf("RunID=%q Resumed=%v", s.RunID, s.Resumed())
	}
	if s.Len() != 1 || s.Processed() != 1 {
		t.Errorf("Len=%d Processed=%d", s.Len(), s.Processed())
	}
	if got := s.Pending(); len(got) != 2 || got[0] != "u2" || got[1] != "u3" {
		t.Errorf("Pending = %v; want [u2 u3]", got)
	}
	if s.Accept("u2") {
		t.Error("restored URL accepted again")
	}

	cp := s.Checkpoint()
	if cp.RunID != "resumed" || len(cp.SeenURLs) != 3 || len(cp.PendingURLs) != 2 || cp.SavedAt.IsZero() {
		t.Errorf("Checkpoint = %+v", cp)
	}
}
