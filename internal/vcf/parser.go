// Package vcf reads VCF files as input for batch classification.
package vcf

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/inodb/vibe-acmg/internal/textio"
)

// Fixed VCF columns; FORMAT and samples follow.
const (
	colChrom = iota
	colPos
	colID
	colRef
	colAlt
	colQual
	colFilter
	colInfo
	numFixedCols
)

// Parser reads records from a VCF file.
type Parser struct {
	in      *textio.Reader
	header  []string
	samples []string
}

// NewParser opens a plain or gzipped VCF file; "-" reads stdin.
func NewParser(path string) (*Parser, error) {
	in, err := textio.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vcf file: %w", err)
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
	if err := p.readHeader(); err != nil {
		in.Close()
		return nil, err
	}
	return p, nil
}

// readHeader collects the meta lines up to and including #CHROM.
func (p *Parser) readHeader() error {
	for {
		line, err := p.in.ReadLine()
		if err == io.EOF {
			return &ParseError{Line: p.in.LineNumber(), Message: "no #CHROM header line found"}
		}
		if err != nil {
			return fmt.Errorf("read header: %w", err)
		}

		switch {
		case strings.HasPrefix(line, "##"):
			p.header = append(p.header, line)
		case strings.HasPrefix(line, "#CHROM"):
			p.header = append(p.header, line)
			if cols := strings.Split(line, "\t"); len(cols) > numFixedCols+1 {
				p.samples = cols[numFixedCols+1:]
			}
			return nil
		default:
			return &ParseError{Line: p.in.LineNumber(), Message: "expected #CHROM header line"}
		}
	}
}

// Next reads the next record from the VCF file.
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
		if line != "" {
			return p.parseLine(line)
		}
	}
}

func (p *Parser) parseLine(line string) (*Record, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < numFixedCols {
		return nil, p.errorf("expected at least %d columns, found %d", numFixedCols, len(fields))
	}

	pos, err := strconv.ParseInt(fields[colPos], 10, 64)
	if err != nil {
		return nil, p.errorf("invalid position: %s", fields[colPos])
	}

	// A malformed QUAL is not worth failing the record over.
	var qual float64
	if fields[colQual] != "." {
		qual, _ = strconv.ParseFloat(fields[colQual], 64)
	}

	rec := &Record{
		Chrom:   fields[colChrom],
		Pos:     pos,
		ID:      fields[colID],
		Ref:     fields[colRef],
		Alt:     fields[colAlt],
		Qual:    qual,
		Filter:  fields[colFilter],
		Info:    parseInfo(fields[colInfo]),
		RawInfo: fields[colInfo],
	}
	if len(fields) > numFixedCols {
		rec.SampleColumns = strings.Join(fields[numFixedCols:], "\t")
	}
	return rec, nil
}

func (p *Parser) errorf(format string, args ...any) error {
	return &ParseError{Line: p.in.LineNumber(), Message: fmt.Sprintf(format, args...)}
}

// parseInfo splits the INFO column into key/value pairs. Flags map to true.
func parseInfo(info string) map[string]any {
	result := make(map[string]any)
	if info == "." || info == "" {
		return result
	}
	for _, kv := range strings.Split(info, ";") {
		if key, value, ok := strings.Cut(kv, "="); ok {
			result[key] = value
		} else {
			result[kv] = true
		}
	}
	return result
}

// SplitMultiAllelic splits a multi-allelic record into one record per ALT
// allele. The split records share Info.
func SplitMultiAllelic(r *Record) []*Record {
	alts := strings.Split(r.Alt, ",")
	if len(alts) == 1 {
		return []*Record{r}
	}

	records := make([]*Record, len(alts))
	for i, alt := range alts {
		c := *r
		c.Alt = alt
		records[i] = &c
	}
	return records
}

// Header returns the VCF header lines, #CHROM included.
func (p *Parser) Header() []string {
	return p.header
}

// SampleNames returns sample names from the #CHROM header line.
// Returns nil if no sample columns are present.
func (p *Parser) SampleNames() []string {
	return p.samples
}

// LineNumber returns the current line number being processed.
func (p *Parser) LineNumber() int {
	return p.in.LineNumber()
}

// Close closes the underlying file.
func (p *Parser) Close() error {
	return p.in.Close()
}

// ParseError represents an error during VCF parsing with line context.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("vcf parse error at line %d: %s", e.Line, e.Message)
}
