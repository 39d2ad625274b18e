package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"airbnb-harvester/models"
)

const upsertBatchSize = 50

// PostgresWriter mirrors the master dataset into PostgreSQL.
type PostgresWriter struct {
	db *sql.DB
}

// NewPostgresWriter opens a connection to PostgreSQL, runs schema migrations,
// and returns a ready-to-use PostgresWriter.
func NewPostgresWriter(ctx context.Context, dsn string) (*PostgresWriter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 5; i++ {
		if err = db.PingContext(ctx); err == nil {
			break
		}
		select {
		case <-ctx.Done():
			_ = db.Close()
			return nil, fmt.Errorf("postgres: ping: %w", ctx.Err())
		case <-time.After(2 * time.Second):
		}
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	pw := &PostgresWriter{db: db}
	if err := pw.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return pw, nil
}

func (pw *PostgresWriter) migrate(ctx context.Context) error {
	_, err := pw.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS listings (
			url                TEXT        PRIMARY KEY,
			title              TEXT        NOT NULL DEFAULT '',
			license_code       TEXT        NOT NULL DEFAULT '',
			host_name          TEXT        NOT NULL DEFAULT '',
			host_profile_url   TEXT        NOT NULL DEFAULT '',
			host_rating        TEXT        NOT NULL DEFAULT '',
			host_listing_count TEXT        NOT NULL DEFAULT '',
			host_joined_date   TEXT        NOT NULL DEFAULT '',
			updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_listings_license ON listings(license_code);
		CREATE INDEX IF NOT EXISTS idx_listings_host    ON listings(host_profile_url);
	`)
	return err
}

// Upsert writes records in batches; a row that already exists is replaced.
func (pw *PostgresWriter) Upsert(ctx context.Context, records []models.ListingRecord) error {
	// a batch must not touch the same url twice
	records = MergeMaster(nil, records)
	if len(records) == 0 {
		return nil
	}

	return upsertBatches(ctx, pw.db, records)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func upsertBatches(ctx context.Context, db execer, records []models.ListingRecord) error {
	for i := 0; i < len(records); i += upsertBatchSize {
		end := i + upsertBatchSize
		if end > len(records) {
			end = len(records)
		}
		query, args := buildUpsert(records[i:end])
		if _, err := db.ExecContext(ctx, query, args...); err != nil {
			return &PersistenceError{Op: "postgres upsert", Path: "listings", Err: err}
		}
	}
	return nil
}

func buildUpsert(batch []models.ListingRecord) (string, []interface{}) {
	cols := len(models.Header)
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]interface{}, 0, len(batch)*cols)

	for idx, rec := range batch {
		base := idx * cols
		ph := make([]string, cols)
		for c := range ph {
			ph[c] = fmt.Sprintf("$%d", base+c+1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(ph, ",")+")")
		for _, v := range rec.Row() {
			valueArgs = append(valueArgs, v)
		}
	}

	updates := make([]string, 0, cols)
	for _, c := range models.Header[1:] {
		updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", c, c))
	}
	updates = append(updates, "updated_at = NOW()")

	query := fmt.Sprintf(`
		INSERT INTO listings (%s)
		VALUES %s
		ON CONFLICT (url) DO UPDATE SET %s
	`, strings.Join(models.Header, ", "), strings.Join(valueStrings, ","), strings.Join(updates, ", "))

	return query, valueArgs
}

// FetchURLs returns every stored listing URL.
func (pw *PostgresWriter) FetchURLs(ctx context.Context) ([]string, error) {
	rows, err := pw.db.QueryContext(ctx, `SELECT url FROM listings ORDER BY url`)
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch urls: %w", err)
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}
		urls = append(urls, u)
	}
	return urls, rows.Err()
}

func (pw *PostgresWriter) Close() error {
	return pw.db.Close()
}
