// Package duckdb persists upstream service responses and classification
// results in a DuckDB database.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/marcboeker/go-duckdb"
)

// Store manages a DuckDB connection holding the response cache and stored
// classifications.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates a DuckDB database at the given path.
// Use an empty string for an in-memory database.
func Open(path string) (*Store, error) {
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create cache directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for direct access.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the database file path, empty for in-memory stores.
func (s *Store) Path() string {
	return s.path
}

// ensureSchema creates tables if they don't exist.
func (s *Store) ensureSchema() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS http_responses (
		url VARCHAR PRIMARY KEY,
		body BLOB,
		fetched_at TIMESTAMP
	)`); err != nil {
		return err
	}
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS classifications (
		variant_id VARCHAR,
		genome_build VARCHAR,
		gene_id VARCHAR,
		gene_symbol VARCHAR,
		transcript_id VARCHAR,
		criterion VARCHAR,
		prediction VARCHAR,
		strength VARCHAR,
		summary VARCHAR,
		classified_at TIMESTAMP
	)`)
	return err
}

// Stats summarizes the store contents.
type Stats struct {
	Responses       int64
	Classifications int64
	Oldest          time.Time
	Newest          time.Time
}

// Stats returns row counts and the fetch-time range of cached responses.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	var oldest, newest sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT count(*), min(fetched_at), max(fetched_at) FROM http_responses`,
	).Scan(&st.Responses, &oldest, &newest)
	if err != nil {
		return Stats{}, fmt.Errorf("count responses: %w", err)
	}
	st.Oldest, st.Newest = oldest.Time, newest.Time

	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM classifications`).Scan(&st.Classifications); err != nil {
		return Stats{}, fmt.Errorf("count classifications: %w", err)
	}
	return st, nil
}
