package storage

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"airbnb-harvester/models"
	"airbnb-harvester/utils"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVStore keeps datasets as UTF-8 CSV with a BOM so spreadsheet tools pick
// the right encoding. Files are always rewritten whole.
type CSVStore struct {
	logger *utils.Logger
}

// NewCSVStore creates a CSVStore.
func NewCSVStore(logger *utils.Logger) *CSVStore {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &CSVStore{logger: logger}
}

// LoadAll reads every record in path. A missing file is an empty dataset.
// Columns are matched by header name, including the legacy names.
func (s *CSVStore) LoadAll(path string) ([]models.ListingRecord, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, &PersistenceError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()

	br := bufio.NewReader(f)
	if head, _ := br.Peek(len(utf8BOM)); bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	r := csv.NewReader(br)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, &PersistenceError{Op: "read header", Path: path, Err: err}
	}

	columns := make([]string, len(header))
	hasURL := false
	for i, h := range header {
		columns[i] = models.CanonicalColumn(strings.TrimSpace(h))
		if columns[i] == "url" {
			hasURL = true
		}
	}
	if !hasURL {
		return nil, &PersistenceError{Op: "read header", Path: path, Err: fmt.Errorf("no url column in %v", header)}
	}

	var records []models.ListingRecord
	for line := 2; ; line++ {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &PersistenceError{Op: fmt.Sprintf("read line %d", line), Path: path, Err: err}
		}

		var rec models.ListingRecord
		for i, v := range row {
			if i < len(columns) {
				rec.Set(columns[i], v)
			}
		}
		if strings.TrimSpace(rec.URL) == "" {
			s.logger.Debug("[store] %s line %d has no url, skipped", path, line)
			continue
		}
		records = append(records, rec)
	}

	s.logger.Debug("[store] Loaded %d records from %s", len(records), path)
	return records, nil
}

// WriteAll replaces path with a headered file holding records. The data is
// written to a temporary file first and renamed into place.
func (s *CSVStore) WriteAll(path string, records []models.ListingRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return &PersistenceError{Op: "create output dir", Path: path, Err: err}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return &PersistenceError{Op: "create", Path: path, Err: err}
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := writeCSV(tmp, records); err != nil {
		_ = tmp.Close()
		return &PersistenceError{Op: "write", Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &PersistenceError{Op: "close", Path: path, Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		return &PersistenceError{Op: "rename", Path: path, Err: err}
	}

	s.logger.Info("[store] Wrote %d records to %s", len(records), path)
	return nil
}

func writeCSV(f *os.File, records []models.ListingRecord) error {
	if _, err := f.Write(utf8BOM); err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.Write(models.Header); err != nil {
		return err
	}
	for _, rec := range records {
		if err := w.Write(rec.Row()); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Sync()
}
