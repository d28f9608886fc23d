package duckdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Get returns the cached body for url. The boolean is false on a miss.
func (s *Store) Get(ctx context.Context, url string) ([]byte, bool, error) {
	var body []byte
	err := s.db.QueryRowContext(ctx, `SELECT body FROM http_responses WHERE url=?`, url).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query response: %w", err)
	}
	return body, true, nil
}

// Put stores body for url, replacing any previous entry.
func (s *Store) Put(ctx context.Context, url string, body []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO http_responses (url, body, fetched_at) VALUES (?, ?, ?)`,
		url, body, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("store response: %w", err)
	}
	return nil
}

// ClearResponses removes all cached responses.
func (s *Store) ClearResponses(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM http_responses`)
	return err
}

// PruneResponses removes responses fetched more than maxAge ago and reports
// how many were removed.
func (s *Store) PruneResponses(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-maxAge)
	res, err := s.db.ExecContext(ctx, `DELETE FROM http_responses WHERE fetched_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune responses: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune responses: %w", err)
	}
	return n, nil
}
