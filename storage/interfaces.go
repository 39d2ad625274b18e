package storage

import (
	"context"
	"fmt"

	"airbnb-harvester/models"
)

// Store reads and rewrites a whole dataset file.
type Store interface {
	LoadAll(path string) ([]models.ListingRecord, error)
	WriteAll(path string, records []models.ListingRecord) error
}

// Checkpointer persists in-progress run state so a killed run can resume.
type Checkpointer interface {
	// Load reports false when there is no checkpoint.
	Load(ctx context.Context) (*Checkpoint, bool, error)
	Save(ctx context.Context, cp *Checkpoint) error
	Delete(ctx context.Context) error
}

// Mirror is a secondary copy of the master dataset.
type Mirror interface {
	Upsert(ctx context.Context, records []models.ListingRecord) error
	FetchURLs(ctx context.Context) ([]string, error)
	Close() error
}

// PersistenceError is a failed read or write of a dataset or checkpoint.
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
