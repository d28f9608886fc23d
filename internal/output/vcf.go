package output

import (
	"bufio"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/inodb/vibe-acmg/internal/acmg"
	"github.com/inodb/vibe-acmg/internal/vcf"
)

// ACMG sub-field names, in entry order.
var acmgFields = []string{
	"Allele",
	"SYMBOL",
	"HGNC_ID",
	"Feature",
	"Consequence",
	"HGVSc",
	"HGVSp",
	"Panel",
	"PVS1_path",
	"Met",
}

// VCFWriter writes the input VCF back out with an ACMG INFO field.
// Results are buffered per site and flushed when the site changes, so
// split multi-allelic records are merged again.
type VCFWriter struct {
	w           *bufio.Writer
	headerLines []string // original VCF header lines (## and #CHROM)

	// Buffered state for the current site.
	currentChrom string         // chromosome for grouping
	currentPos   int64          // position for grouping
	hasSite      bool           // whether we have a buffered site
	records      []*vcf.Record  // records seen for this site (may differ in alt)
	results      []*acmg.Result // buffered results, nil for failures
	alts         []string       // unique alt alleles seen
}

// NewVCFWriter creates a new VCF output writer.
func NewVCFWriter(w io.Writer, headerLines []string) *VCFWriter {
	return &VCFWriter{
		w:           bufio.NewWriter(w),
		headerLines: headerLines,
	}
}

// WriteHeader writes the original VCF header lines with an inserted ACMG INFO line.
func (vw *VCFWriter) WriteHeader() error {
	acmgLine := fmt.Sprintf(
		"##INFO=<ID=ACMG,Number=.,Type=String,Description=\"ACMG criteria from vibe-acmg. Format: %s\">",
		strings.Join(acmgFields, "|"),
	)

	for _, line := range vw.headerLines {
		if strings.HasPrefix(line, "#CHROM") {
			if _, err := vw.w.WriteString(acmgLine + "\n"); err != nil {
				return err
			}
		}
		if _, err := vw.w.WriteString(line + "\n"); err != nil {
			return err
		}
	}
	return nil
}

// Write buffers the result for rec. A nil result writes an entry holding
// only the allele. When a new site is encountered the previous site's line
// is flushed.
func (vw *VCFWriter) Write(rec *vcf.Record, res *acmg.Result) error {
	if vw.hasSite && (vw.currentChrom != rec.Chrom || vw.currentPos != rec.Pos) {
		if err := vw.flushSite(); err != nil {
			return err
		}
	}

	if !vw.hasSite {
		vw.currentChrom = rec.Chrom
		vw.currentPos = rec.Pos
		vw.hasSite = true
	}

	vw.records = append(vw.records, rec)
	vw.results = append(vw.results, res)
	if !slices.Contains(vw.alts, rec.Alt) {
		vw.alts = append(vw.alts, rec.Alt)
	}
	return nil
}

// Flush writes any buffered site and flushes the underlying writer.
func (vw *VCFWriter) Flush() error {
	if vw.hasSite {
		if err := vw.flushSite(); err != nil {
			return err
		}
	}
	return vw.w.Flush()
}

func (vw *VCFWriter) flushSite() error {
	if len(vw.records) == 0 {
		return nil
	}

	// Use the first record for base fields
	rec := vw.records[0]
	info := stripInfoField(rec.RawInfo, "ACMG")

	var lb strings.Builder
	lb.Grow(256)

	lb.WriteString(rec.Chrom)
	lb.WriteByte('\t')
	lb.WriteString(strconv.FormatInt(rec.Pos, 10))
	lb.WriteByte('\t')
	lb.WriteString(rec.ID)
	lb.WriteByte('\t')
	lb.WriteString(rec.Ref)
	lb.WriteByte('\t')
	lb.WriteString(strings.Join(vw.alts, ","))
	lb.WriteByte('\t')
	if rec.Qual != 0 {
		lb.WriteString(strconv.FormatFloat(rec.Qual, 'g', -1, 64))
	} else {
		lb.WriteByte('.')
	}
	lb.WriteByte('\t')
	lb.WriteString(rec.Filter)
	lb.WriteByte('\t')
	if info == "." {
		lb.WriteString("ACMG=")
	} else {
		lb.WriteString(info)
		lb.WriteString(";ACMG=")
	}
	for i, res := range vw.results {
		if i > 0 {
			lb.WriteByte(',')
		}
		writeACMGEntry(&lb, vw.records[i].Alt, res)
	}

	if rec.SampleColumns != "" {
		lb.WriteByte('\t')
		lb.WriteString(rec.SampleColumns)
	}

	lb.WriteByte('\n')
	if _, err := vw.w.WriteString(lb.String()); err != nil {
		return err
	}

	vw.hasSite = false
	vw.records = nil
	vw.results = nil
	vw.alts = nil
	return nil
}

// stripInfoField removes key from a raw INFO string.
func stripInfoField(rawInfo, key string) string {
	if rawInfo == "" || rawInfo == "." {
		return "."
	}
	if !strings.Contains(rawInfo, key) {
		return rawInfo
	}

	var kept []string
	for _, field := range strings.Split(rawInfo, ";") {
		if field == key || strings.HasPrefix(field, key+"=") {
			continue
		}
		kept = append(kept, field)
	}
	if len(kept) == 0 {
		return "."
	}
	return strings.Join(kept, ";")
}

var infoReplacer = strings.NewReplacer(",", "%2C", ";", "%3B", "|", "%7C", "=", "%3D", " ", "_", "\t", "_")

func writeACMGEntry(b *strings.Builder, alt string, res *acmg.Result) {
	b.WriteString(alt)
	if res == nil {
		b.WriteString(strings.Repeat("|", len(acmgFields)-1))
		return
	}
	ann := res.Annotation
	for _, v := range []string{
		res.GeneSymbol,
		res.GeneID,
		ann.TranscriptID,
		strings.Join(ann.Terms, "&"),
		ann.HGVSc,
		ann.HGVSp,
		res.Panel,
		ann.PVS1Path,
		FormatMet(res.Met(), "&"),
	} {
		b.WriteByte('|')
		b.WriteString(infoReplacer.Replace(v))
	}
}
