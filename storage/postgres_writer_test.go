package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"

	"airbnb-harvester/models"
)

type recordingExec struct {
	queries []string
	args    [][]interface{}
	err     error
}

func (r *recordingExec) ExecContext(_ context.Context, query string, args ...interface{}) (sql.Result, error) {
	r.queries = append(r.queries, query)
	r.args = append(r.args, args)
	return nil, r.err
}

func sampleRecords(n int) []models.ListingRecord {
	out := make([]models.ListingRecord, n)
	for i := range out {
		out[i] = models.ListingRecord{URL: fmt.Sprintf("https://www.airbnb.com/rooms/%d", i+1)}
	}
	return out
}

func TestUpsertBatchBoundary(t *testing.T) {
	tests := []struct {
		n       int
		batches []int
	}{
		{1, []int{1}},
		{50, []int{50}},
		{51, []int{50, 1}},
		{120, []int{50, 50, 20}},
	}
	cols := len(models.Header)

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.n), func(t *testing.T) {
			exec := &recordingExec{}
			if err := upsertBatches(context.Background(), exec, sampleRecords(tt.n)); err != nil {
				t.Fatalf("upsertBatches: %v", err)
			}
			if len(exec.queries) != len(tt.batches) {
				t.Fatalf("%d statements; want %d", len(exec.queries), len(tt.batches))
			}
			for i, size := range tt.batches {
				if got := len(exec.args[i]); got != size*cols {
					t.Errorf("batch %d has %d args; want %d", i, got, size*cols)
				}
				last := fmt.Sprintf("$%d)", size*cols)
				if !strings.Contains(exec.queries[i], last) {
					t.Errorf("batch %d query lacks placeholder %s", i, last)
				}
			}
			// the second batch starts at the 51st record
			if tt.n > upsertBatchSize && exec.args[1][0] != "https://www.airbnb.com/rooms/51" {
				t.Errorf("second batch starts at %v", exec.args[1][0])
			}
		})
	}
}

func TestUpsertBatchesStopsOnError(t *testing.T) {
	exec := &recordingExec{err: errors.New("relation does not exist")}
	err := upsertBatches(context.Background(), exec, sampleRecords(51))

	var pe *PersistenceError
	if !errors.As(err, &pe) || pe.Op != "postgres upsert" {
		t.Errorf("err = %v; want a PersistenceError", err)
	}
	if len(exec.queries) != 1 {
		t.Errorf("%d statements after a failure; want 1", len(exec.queries))
	}
}
