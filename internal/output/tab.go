// Package output provides classification output formatters.
package output

import (
	"bufio"
	"io"
	"strings"

	"github.com/inodb/vibe-acmg/internal/acmg"
	"github.com/inodb/vibe-acmg/internal/criteria"
)

// Writer is implemented by the tab-delimited and JSON writers.
type Writer interface {
	WriteHeader() error
	Write(res *acmg.Result) error
	// WriteError records an input that could not be classified.
	WriteError(input string, err error) error
	Flush() error
}

// TabWriter writes one tab-delimited row per classified variant, with one
// column per criterion.
type TabWriter struct {
	w       *bufio.Writer
	columns []string
}

// NewTabWriter creates a new tab-delimited writer.
func NewTabWriter(w io.Writer) *TabWriter {
	columns := []string{
		"#Input",
		"Variant",
		"Kind",
		"Gene",
		"HGNC_ID",
		"Feature",
		"Consequence",
		"HGVSc",
		"HGVSp",
		"Panel",
		"PVS1_path",
		"Met",
	}
	for _, c := range criteria.All {
		columns = append(columns, string(c))
	}
	columns = append(columns, "Error")
	return &TabWriter{
		w:       bufio.NewWriter(w),
		columns: columns,
	}
}

// WriteHeader writes the header line.
func (tw *TabWriter) WriteHeader() error {
	_, err := tw.w.WriteString(strings.Join(tw.columns, "\t") + "\n")
	return err
}

// Write writes a single classification.
func (tw *TabWriter) Write(res *acmg.Result) error {
	ann := res.Annotation
	values := []string{
		cell(res.Input),
		cell(res.Variant),
		cell(res.Kind),
		cell(res.GeneSymbol),
		cell(res.GeneID),
		cell(ann.TranscriptID),
		cell(strings.Join(ann.Terms, "&")),
		cell(ann.HGVSc),
		cell(ann.HGVSp),
		cell(res.Panel),
		cell(ann.PVS1Path),
		cell(FormatMet(res.Met(), ",")),
	}

	byName := make(map[criteria.Criterion]criteria.Result, len(res.Criteria))
	for _, r := range res.Criteria {
		byName[r.Criterion] = r
	}
	for _, c := range criteria.All {
		r, ok := byName[c]
		if !ok {
			values = append(values, "-")
			continue
		}
		values = append(values, r.Prediction.String())
	}
	values = append(values, "-")

	_, err := tw.w.WriteString(strings.Join(values, "\t") + "\n")
	return err
}

// WriteError writes a row holding only the input and the error message.
func (tw *TabWriter) WriteError(input string, err error) error {
	values := make([]string, len(tw.columns))
	for i := range values {
		values[i] = "-"
	}
	values[0] = cell(input)
	values[len(values)-1] = cell(err.Error())

	_, werr := tw.w.WriteString(strings.Join(values, "\t") + "\n")
	return werr
}

// Flush flushes any buffered data to the underlying writer.
func (tw *TabWriter) Flush() error {
	return tw.w.Flush()
}

// FormatMet renders met criteria as "PVS1:PathogenicVeryStrong" entries
// joined by sep.
func FormatMet(met []criteria.Result, sep string) string {
	parts := make([]string, len(met))
	for i, r := range met {
		parts[i] = string(r.Criterion) + ":" + r.Strength.String()
	}
	return strings.Join(parts, sep)
}

var cellReplacer = strings.NewReplacer("\t", " ", "\n", " ", "\r", " ")

func cell(s string) string {
	if s == "" {
		return "-"
	}
	return cellReplacer.Replace(s)
}
