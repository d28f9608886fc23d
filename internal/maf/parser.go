// Package maf reads variants from MAF (Mutation Annotation Format) files.
package maf

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/inodb/vibe-acmg/internal/genome"
	"github.com/inodb/vibe-acmg/internal/textio"
	"github.com/inodb/vibe-acmg/internal/variant"
)

// Standard MAF column names
const (
	ColHugoSymbol      = "Hugo_Symbol"
	ColNCBIBuild       = "NCBI_Build"
	ColChromosome      = "Chromosome"
	ColStartPosition   = "Start_Position"
	ColEndPosition     = "End_Position"
	ColReferenceAllele = "Reference_Allele"
	ColTumorSeqAllele2 = "Tumor_Seq_Allele2"
	ColSampleBarcode   = "Tumor_Sample_Barcode"
)

// ErrUnanchored is returned for MAF indels written with a "-" allele. They
// carry no padding base, so they cannot be expressed as a VCF-style variant
// without a reference sequence.
var ErrUnanchored = errors.New("indel without anchor base")

// ColumnIndices holds the indices of the MAF columns the parser reads.
// Optional columns that are absent have index -1.
type ColumnIndices struct {
	HugoSymbol      int
	NCBIBuild       int
	Chromosome      int
	StartPosition   int
	EndPosition     int
	ReferenceAllele int
	TumorSeqAllele2 int
	SampleBarcode   int
}

// Record is one MAF data line.
type Record struct {
	Line       int
	HugoSymbol string
	NCBIBuild  string
	Chrom      string
	Start      int64
	End        int64
	Ref        string
	Alt        string
	Sample     string
}

// Locus returns "chrom:start" for log and error messages.
func (r *Record) Locus() string {
	return fmt.Sprintf("%s:%d", r.Chrom, r.Start)
}

// Input returns a "chrom:pos:ref:alt" rendering of the record.
func (r *Record) Input() string {
	return fmt.Sprintf("%s:%d:%s:%s", r.Chrom, r.Start, r.Ref, r.Alt)
}

// ToVariant converts the record into a sequence variant on build. A record
// whose NCBI_Build names a different assembly is rejected.
func (r *Record) ToVariant(build genome.Build) (variant.Variant, error) {
	if r.NCBIBuild != "" {
		b, err := parseBuild(r.NCBIBuild)
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", r.Locus(), err)
		}
		if b != build {
			return nil, fmt.Errorf("record %s is on %s, classifying on %s", r.Locus(), b, build)
		}
	}
	if r.Alt == "" || r.Alt == r.Ref {
		return nil, fmt.Errorf("record %s has no alternate allele", r.Locus())
	}
	if r.Ref == "-" || r.Alt == "-" {
		return nil, fmt.Errorf("record %s: %w", r.Locus(), ErrUnanchored)
	}
	return variant.NewPointVariant(build, r.Chrom, r.Start, r.Ref, r.Alt, "")
}

// parseBuild accepts the bare "37"/"38" some MAF producers write.
func parseBuild(s string) (genome.Build, error) {
	switch strings.TrimSpace(s) {
	case "37":
		return genome.GRCh37, nil
	case "38":
		return genome.GRCh38, nil
	}
	return genome.ParseBuild(s)
}

// Parser reads variants from a MAF file.
type Parser struct {
	in         *textio.Reader
	columns    ColumnIndices
	headerLine string
}

// NewParser opens a plain or gzipped MAF file; "-" reads stdin.
func NewParser(path string) (*Parser, error) {
	in, err := textio.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open maf file: %w", err)
	}
	return newParser(in)
}

// NewParserFromReader creates a parser from an io.Reader (e.g., stdin).
func NewParserFromReader(r io.Reader) (*Parser, error) {
	in, err := textio.NewReader(r)
	if err != nil {
		return nil, err
	}
	return newParser(in)
}

func newParser(in *textio.Reader) (*Parser, error) {
	p := &Parser{in: in}
	if err := p.parseHeader(); err != nil {
		in.Close()
		return nil, err
	}
	return p, nil
}

// parseHeader skips '#' comment lines and reads the column header.
func (p *Parser) parseHeader() error {
	for {
		line, err := p.in.ReadLine()
		if err == io.EOF {
			return &ParseError{Line: p.in.LineNumber(), Message: "no header line found"}
		}
		if err != nil {
			return fmt.Errorf("read header: %w", err)
		}
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		p.headerLine = line
		return p.parseColumnIndices(line)
	}
}

func (p *Parser) parseColumnIndices(headerLine string) error {
	p.columns = ColumnIndices{
		HugoSymbol:      -1,
		NCBIBuild:       -1,
		Chromosome:      -1,
		StartPosition:   -1,
		EndPosition:     -1,
		ReferenceAllele: -1,
		TumorSeqAllele2: -1,
		SampleBarcode:   -1,
	}

	for i, col := range strings.Split(headerLine, "\t") {
		switch col {
		case ColHugoSymbol:
			p.columns.HugoSymbol = i
		case ColNCBIBuild:
			p.columns.NCBIBuild = i
		case ColChromosome:
			p.columns.Chromosome = i
		case ColStartPosition:
			p.columns.StartPosition = i
		case ColEndPosition:
			p.columns.EndPosition = i
		case ColReferenceAllele:
			p.columns.ReferenceAllele = i
		case ColTumorSeqAllele2:
			p.columns.TumorSeqAllele2 = i
		case ColSampleBarcode:
			p.columns.SampleBarcode = i
		}
	}

	required := []struct {
		name string
		idx  int
	}{
		{ColChromosome, p.columns.Chromosome},
		{ColStartPosition, p.columns.StartPosition},
		{ColReferenceAllele, p.columns.ReferenceAllele},
		{ColTumorSeqAllele2, p.columns.TumorSeqAllele2},
	}
	for _, r := range required {
		if r.idx == -1 {
			return &ParseError{
				Line:    p.in.LineNumber(),
				Message: fmt.Sprintf("required column '%s' not found in header", r.name),
			}
		}
	}
	return nil
}

// Next reads the next record from the MAF file.
// Returns nil, nil when there are no more records.
func (p *Parser) Next() (*Record, error) {
	for {
		line, err := p.in.ReadLine()
		if err == io.EOF {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read variant line: %w", err)
		}
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		return p.parseLine(line)
	}
}

func (p *Parser) parseLine(line string) (*Record, error) {
	fields := strings.Split(line, "\t")

	minCols := max(p.columns.Chromosome, p.columns.StartPosition, p.columns.ReferenceAllele, p.columns.TumorSeqAllele2)
	if len(fields) <= minCols {
		return nil, &ParseError{
			Line:    p.in.LineNumber(),
			Message: fmt.Sprintf("expected at least %d columns, found %d", minCols+1, len(fields)),
		}
	}

	start, err := strconv.ParseInt(fields[p.columns.StartPosition], 10, 64)
	if err != nil {
		return nil, &ParseError{
			Line:    p.in.LineNumber(),
			Message: fmt.Sprintf("invalid position: %s", fields[p.columns.StartPosition]),
		}
	}

	rec := &Record{
		Line:       p.in.LineNumber(),
		Chrom:      fields[p.columns.Chromosome],
		Start:      start,
		End:        start,
		Ref:        strings.ToUpper(fields[p.columns.ReferenceAllele]),
		Alt:        strings.ToUpper(fields[p.columns.TumorSeqAllele2]),
		HugoSymbol: field(fields, p.columns.HugoSymbol),
		NCBIBuild:  field(fields, p.columns.NCBIBuild),
		Sample:     field(fields, p.columns.SampleBarcode),
	}
	if raw := field(fields, p.columns.EndPosition); raw != "" {
		end, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, &ParseError{
				Line:    p.in.LineNumber(),
				Message: fmt.Sprintf("invalid end position: %s", raw),
			}
		}
		rec.End = end
	}
	return rec, nil
}

// field returns fields[i], or "" when the column is absent or the line short.
func field(fields []string, i int) string {
	if i < 0 || i >= len(fields) {
		return ""
	}
	return fields[i]
}

// Header returns the MAF header line.
func (p *Parser) Header() string {
	return p.headerLine
}

// Columns returns the parsed column indices.
func (p *Parser) Columns() ColumnIndices {
	return p.columns
}

// LineNumber returns the current line number being processed.
func (p *Parser) LineNumber() int {
	return p.in.LineNumber()
}

// Close closes the underlying file.
func (p *Parser) Close() error {
	return p.in.Close()
}

// ParseError represents an error during MAF parsing with line context.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("maf parse error at line %d: %s", e.Line, e.Message)
}
