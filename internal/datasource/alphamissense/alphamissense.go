// Package alphamissense provides AlphaMissense pathogenicity score lookups
// backed by DuckDB. AlphaMissense data is loaded from the official TSV files
// (Cheng et al., Science 2023, CC BY 4.0) for GRCh37 (hg19) and GRCh38 (hg38).
package alphamissense

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/inodb/vibe-acmg/internal/genome"
)

// Store provides AlphaMissense score lookups backed by DuckDB.
type Store struct {
	db       *sql.DB
	lookupPS *sql.Stmt
}

// Open opens or creates a DuckDB database for AlphaMissense data at the given path.
// Use an empty string for an in-memory database.
func Open(dbPath string) (*Store, error) {
	if dbPath != "" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	ps, err := db.Prepare(`SELECT am_pathogenicity, am_class FROM alphamissense
		WHERE genome_build=? AND chrom=? AND pos=? AND ref=? AND alt=? LIMIT 1`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("prepare lookup: %w", err)
	}
	s.lookupPS = ps

	return s, nil
}

func (s *Store) ensureSchema() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS alphamissense (
		genome_build VARCHAR,
		chrom VARCHAR,
		pos BIGINT,
		ref VARCHAR,
		alt VARCHAR,
		am_pathogenicity FLOAT,
		am_class VARCHAR
	)`); err != nil {
		return err
	}
	_, err := s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_am_lookup ON alphamissense (genome_build, chrom, pos, ref, alt)`)
	return err
}

// Loaded returns true if the AlphaMissense table has data.
func (s *Store) Loaded() bool {
	n, err := s.Count()
	return err == nil && n > 0
}

// Count returns the number of rows in the AlphaMissense table.
func (s *Store) Count() (int64, error) {
	var count int64
	err := s.db.QueryRow("SELECT COUNT(*) FROM alphamissense").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count alphamissense rows: %w", err)
	}
	return count, nil
}

// Load bulk-loads AlphaMissense data from a (gzipped) TSV file using DuckDB's
// read_csv. Rows already present for the file's genome build are replaced.
// The file has 3 comment lines, then a header:
//
//	#CHROM  POS  REF  ALT  genome  uniprot_id  transcript_id  protein_variant  am_pathogenicity  am_class
func (s *Store) Load(tsvPath string) error {
	if _, err := os.Stat(tsvPath); err != nil {
		return fmt.Errorf("loading AlphaMissense data: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin load: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`CREATE TEMPORARY TABLE am_staging AS
		SELECT
			CASE WHEN lower(column4) IN ('hg19', 'grch37') THEN 'GRCh37' ELSE 'GRCh38' END AS genome_build,
			regexp_replace(column0, '^chr', '') AS chrom,
			column1 AS pos, column2 AS ref, column3 AS alt,
			CAST(column8 AS FLOAT) AS am_pathogenicity, column9 AS am_class
		FROM read_csv(` + quote(tsvPath) + `, delim='\t', header=false, skip=4,
			columns={
				'column0': 'VARCHAR',
				'column1': 'BIGINT',
				'column2': 'VARCHAR',
				'column3': 'VARCHAR',
				'column4': 'VARCHAR',
				'column5': 'VARCHAR',
				'column6': 'VARCHAR',
				'column7': 'VARCHAR',
				'column8': 'VARCHAR',
				'column9': 'VARCHAR'
			})`); err != nil {
		return fmt.Errorf("loading AlphaMissense data: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM alphamissense
		WHERE genome_build IN (SELECT DISTINCT genome_build FROM am_staging)`); err != nil {
		return fmt.Errorf("replace AlphaMissense data: %w", err)
	}
	// The file has one row per (variant, transcript) with identical scores.
	if _, err := tx.Exec(`INSERT INTO alphamissense SELECT DISTINCT * FROM am_staging`); err != nil {
		return fmt.Errorf("insert AlphaMissense data: %w", err)
	}
	if _, err := tx.Exec(`DROP TABLE am_staging`); err != nil {
		return fmt.Errorf("drop staging table: %w", err)
	}
	return tx.Commit()
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// Result holds a single AlphaMissense lookup result.
type Result struct {
	Score float64
	Class string
}

// Lookup queries the AlphaMissense score for a specific variant. ok is false
// when the store has no entry.
func (s *Store) Lookup(ctx context.Context, build genome.Build, chrom string, pos int64, ref, alt string) (r Result, ok bool, err error) {
	err = s.lookupPS.QueryRowContext(ctx, build.String(), genome.NormalizeChrom(chrom), pos, ref, alt).Scan(&r.Score, &r.Class)
	if errors.Is(err, sql.ErrNoRows) {
		return Result{}, false, nil
	}
	if err != nil {
		return Result{}, false, fmt.Errorf("lookup alphamissense: %w", err)
	}
	return r, true, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.lookupPS != nil {
		s.lookupPS.Close()
	}
	return s.db.Close()
}
