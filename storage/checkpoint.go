package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"airbnb-harvester/models"
)

// Checkpoint is the serialized in-progress state of a run.
type Checkpoint struct {
	RunID          string                 `json:"run_id"`
	SeenURLs       []string               `json:"seen_urls"`
	ScrapedRecords []models.ListingRecord `json:"scraped_records"`
	ProcessedCount int                    `json:"processed_count"`
	PendingURLs    []string               `json:"pending_urls,omitempty"`
	SavedAt        time.Time              `json:"saved_at"`
}

// FileCheckpoint stores the checkpoint as a JSON file.
type FileCheckpoint struct {
	path string
}

// NewFileCheckpoint returns a checkpointer writing to path.
func NewFileCheckpoint(path string) *FileCheckpoint {
	return &FileCheckpoint{path: path}
}

func (c *FileCheckpoint) Load(_ context.Context) (*Checkpoint, bool, error) {
	data, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, &PersistenceError{Op: "read checkpoint", Path: c.path, Err: err}
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, false, &PersistenceError{Op: "decode checkpoint", Path: c.path, Err: err}
	}
	return &cp, true, nil
}

// Save writes cp atomically: a reader never sees a half-written file.
func (c *FileCheckpoint) Save(_ context.Context, cp *Checkpoint) error {
	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return &PersistenceError{Op: "encode checkpoint", Path: c.path, Err: err}
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return &PersistenceError{Op: "create checkpoint dir", Path: c.path, Err: err}
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(c.path)+".*.tmp")
	if err != nil {
		return &PersistenceError{Op: "write checkpoint", Path: c.path, Err: err}
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return &PersistenceError{Op: "write checkpoint", Path: c.path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &PersistenceError{Op: "write checkpoint", Path: c.path, Err: err}
	}
	if err := os.Rename(tmp.Name(), c.path); err != nil {
		return &PersistenceError{Op: "rename checkpoint", Path: c.path, Err: err}
	}
	return nil
}

func (c *FileCheckpoint) Delete(_ context.Context) error {
	if err := os.Remove(c.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return &PersistenceError{Op: "delete checkpoint", Path: c.path, Err: err}
	}
	return nil
}

// NopCheckpoint disables checkpointing.
type NopCheckpoint struct{}

func (NopCheckpoint) Load(context.Context) (*Checkpoint, bool, error) { return nil, false, nil }
func (NopCheckpoint) Save(context.Context, *Checkpoint) error         { return nil }
func (NopCheckpoint) Delete(context.Context) error                    { return nil }
