package duckdb

import (
	"context"
	"database/sql/driver"
	"fmt"
	"time"

	goduckdb "github.com/marcboeker/go-duckdb"
)

// ResultRow is one evaluated criterion of a stored classification.
type ResultRow struct {
	VariantID    string
	GenomeBuild  string
	GeneID       string
	GeneSymbol   string
	TranscriptID string
	Criterion    string
	Prediction   string
	Strength     string
	Summary      string
}

type rowKey struct {
	variantID, build, criterion string
}

// WriteResults batch-inserts classification rows using the Appender API.
// Earlier rows for the same variants are replaced; duplicate
// (variant, build, criterion) rows within rows are written once.
func (s *Store) WriteResults(ctx context.Context, rows []ResultRow) error {
	if len(rows) == 0 {
		return nil
	}

	seen := make(map[rowKey]bool, len(rows))
	deduped := make([]ResultRow, 0, len(rows))
	variants := make(map[[2]string]bool)
	for _, r := range rows {
		k := rowKey{r.VariantID, r.GenomeBuild, r.Criterion}
		if !seen[k] {
			seen[k] = true
			deduped = append(deduped, r)
			variants[[2]string{r.VariantID, r.GenomeBuild}] = true
		}
	}

	for v := range variants {
		if _, err := s.db.ExecContext(ctx,
			`DELETE FROM classifications WHERE variant_id=? AND genome_build=?`, v[0], v[1]); err != nil {
			return fmt.Errorf("replace classification: %w", err)
		}
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "classifications")
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}
	defer appender.Close()

	now := time.Now().UTC()
	for _, r := range deduped {
		if err := appender.AppendRow(
			r.VariantID, r.GenomeBuild, r.GeneID, r.GeneSymbol, r.TranscriptID,
			r.Criterion, r.Prediction, r.Strength, r.Summary, now,
		); err != nil {
			return fmt.Errorf("append classification: %w", err)
		}
	}

	return appender.Flush()
}

// LookupResults returns the stored rows of a variant in insertion order.
func (s *Store) LookupResults(ctx context.Context, variantID, build string) ([]ResultRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT
		variant_id, genome_build, gene_id, gene_symbol, transcript_id,
		criterion, prediction, strength, summary
		FROM classifications
		WHERE variant_id=? AND genome_build=?`, variantID, build)
	if err != nil {
		return nil, fmt.Errorf("query classification: %w", err)
	}
	defer rows.Close()

	var out []ResultRow
	for rows.Next() {
		var r ResultRow
		if err := rows.Scan(
			&r.VariantID, &r.GenomeBuild, &r.GeneID, &r.GeneSymbol, &r.TranscriptID,
			&r.Criterion, &r.Prediction, &r.Strength, &r.Summary,
		); err != nil {
			return nil, fmt.Errorf("scan classification: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate classifications: %w", err)
	}
	return out, nil
}

// SearchByGene returns stored rows for a gene symbol with the given
// prediction, e.g. all applicable criteria in BRCA1.
func (s *Store) SearchByGene(ctx context.Context, geneSymbol, prediction string) ([]ResultRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT
		variant_id, genome_build, gene_id, gene_symbol, transcript_id,
		criterion, prediction, strength, summary
		FROM classifications
		WHERE gene_symbol=? AND prediction=?
		ORDER BY variant_id, criterion`, geneSymbol, prediction)
	if err != nil {
		return nil, fmt.Errorf("query by gene: %w", err)
	}
	defer rows.Close()

	var out []ResultRow
	for rows.Next() {
		var r ResultRow
		if err := rows.Scan(
			&r.VariantID, &r.GenomeBuild, &r.GeneID, &r.GeneSymbol, &r.TranscriptID,
			&r.Criterion, &r.Prediction, &r.Strength, &r.Summary,
		); err != nil {
			return nil, fmt.Errorf("scan classification: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate classifications: %w", err)
	}
	return out, nil
}

// ClearResults removes all stored classifications.
func (s *Store) ClearResults(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM classifications`)
	return err
}
