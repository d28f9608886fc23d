// Package gateway provides clients for the remote annotation services and the
// domain types they produce: transcript consequences and geometry, population
// frequencies, ClinVar records, predictor scores and gene-level annotations.
//
// Lookups that find nothing return a nil value and a nil error. Transport
// failures, non-success statuses and malformed payloads are reported as *Error.
package gateway

import (
	"slices"
	"sort"
	"strings"
)

// Strand is the genomic strand of a transcript.
type Strand int8

const (
	StrandUnknown Strand = 0
	StrandPlus    Strand = 1
	StrandMinus   Strand = -1
)

func (s Strand) String() string {
	switch s {
	case StrandPlus:
		return "+"
	case StrandMinus:
		return "-"
	}
	return "."
}

// Transcript tags used for transcript selection.
const (
	TagManeSelect       = "ManeSelect"
	TagManePlusClinical = "ManePlusClinical"
	TagCanonical        = "Canonical"
)

// Exon is one exon in genomic coordinates (1-based, inclusive).
type Exon struct {
	Number int // 1-based, in transcription order
	Start  int64
	End    int64
}

// Len returns the exon length in bases.
func (e Exon) Len() int64 { return e.End - e.Start + 1 }

// Transcript is the geometry of one transcript.
type Transcript struct {
	ID          string
	GeneSymbol  string
	GeneID      string // HGNC identifier, e.g. "HGNC:1100"
	Chrom       string
	Strand      Strand
	Start       int64
	End         int64
	CodingStart int64 // genomic start of the CDS, 0 if non-coding
	CodingEnd   int64
	Exons       []Exon // ordered by genomic start
	Tags        []string
}

// HasTag reports whether the transcript carries tag.
func (t *Transcript) HasTag(tag string) bool {
	return slices.Contains(t.Tags, tag)
}

// IsManeSelect reports whether the transcript is the MANE Select transcript.
func (t *Transcript) IsManeSelect() bool {
	return t.HasTag(TagManeSelect)
}

// IsCoding reports whether the transcript has a coding sequence.
func (t *Transcript) IsCoding() bool {
	return t.CodingStart > 0 && t.CodingEnd >= t.CodingStart
}

// FindExon returns the index into Exons of the exon containing pos, or -1.
func (t *Transcript) FindExon(pos int64) int {
	i := sort.Search(len(t.Exons), func(i int) bool {
		return t.Exons[i].End >= pos
	})
	if i < len(t.Exons) && t.Exons[i].Start <= pos {
		return i
	}
	return -1
}

// CodingExonLengths returns the coding length of each exon in transcription
// order. Exons without coding bases contribute zero and are kept so that
// indices line up with exon numbers.
func (t *Transcript) CodingExonLengths() []int64 {
	lengths := make([]int64, len(t.Exons))
	for i, e := range t.Exons {
		start := max(e.Start, t.CodingStart)
		end := min(e.End, t.CodingEnd)
		if end >= start {
			lengths[i] = end - start + 1
		}
	}
	if t.Strand == StrandMinus {
		slices.Reverse(lengths)
	}
	return lengths
}

// CDSLength returns the total coding length.
func (t *Transcript) CDSLength() int64 {
	var n int64
	for _, l := range t.CodingExonLengths() {
		n += l
	}
	return n
}

// ExonNumber returns the transcription-order number (1-based) of Exons[idx].
func (t *Transcript) ExonNumber(idx int) int {
	if t.Strand == StrandMinus {
		return len(t.Exons) - idx
	}
	return idx + 1
}

// FirstCodingExon returns the first exon in transcription order that
// contains coding bases.
func (t *Transcript) FirstCodingExon() (Exon, bool) {
	exons := t.transcriptionOrder()
	for _, e := range exons {
		if e.End >= t.CodingStart && e.Start <= t.CodingEnd {
			return e, true
		}
	}
	return Exon{}, false
}

func (t *Transcript) transcriptionOrder() []Exon {
	exons := slices.Clone(t.Exons)
	if t.Strand == StrandMinus {
		slices.Reverse(exons)
	}
	return exons
}

// Consequence is the predicted effect of a variant on one transcript.
type Consequence struct {
	TranscriptID string
	GeneSymbol   string
	GeneID       string
	Terms        []string // Sequence Ontology terms
	Tags         []string
	HGVSc        string
	HGVSp        string
	Strand       Strand
	ExonRank     int   // exon number hit by the variant, 0 if intronic
	ExonCount    int
	TxPos        int64 // position in the transcript incl. UTR
	CDSPos       int64
	CDSLength    int64
	ProteinPos   int64
	ProteinLen   int64
	Distance     int64 // distance to nearest exon boundary for intronic variants
}

// HasTerm reports whether term is among the predicted consequence terms.
func (c *Consequence) HasTerm(term string) bool {
	for _, t := range c.Terms {
		if strings.EqualFold(t, term) {
			return true
		}
	}
	return false
}

// IsManeSelect reports whether the consequence is on the MANE Select transcript.
func (c *Consequence) IsManeSelect() bool {
	return slices.Contains(c.Tags, TagManeSelect)
}

// CDSToGenomic maps a 1-based coding position to its genomic position.
func (t *Transcript) CDSToGenomic(cdsPos int64) (int64, bool) {
	if !t.IsCoding() || cdsPos < 1 {
		return 0, false
	}
	remaining := cdsPos
	for _, e := range t.transcriptionOrder() {
		start := max(e.Start, t.CodingStart)
		end := min(e.End, t.CodingEnd)
		if end < start {
			continue
		}
		n := end - start + 1
		if remaining <= n {
			if t.Strand == StrandMinus {
				return end - remaining + 1, true
			}
			return start + remaining - 1, true
		}
		remaining -= n
	}
	return 0, false
}

// GenomicToCDS maps a genomic position inside a coding exon to its 1-based
// coding position.
func (t *Transcript) GenomicToCDS(pos int64) (int64, bool) {
	if !t.IsCoding() || pos < t.CodingStart || pos > t.CodingEnd {
		return 0, false
	}
	var offset int64
	for _, e := range t.transcriptionOrder() {
		start := max(e.Start, t.CodingStart)
		end := min(e.End, t.CodingEnd)
		if end < start {
			continue
		}
		if pos >= start && pos <= end {
			if t.Strand == StrandMinus {
				return offset + end - pos + 1, true
			}
			return offset + pos - start + 1, true
		}
		offset += end - start + 1
	}
	return 0, false
}

// TranscriptOffset returns the 1-based position of pos in the spliced
// transcript, counting UTR bases, or false when pos is not exonic.
func (t *Transcript) TranscriptOffset(pos int64) (int64, bool) {
	var offset int64
	for _, e := range t.transcriptionOrder() {
		if pos >= e.Start && pos <= e.End {
			if t.Strand == StrandMinus {
				return offset + e.End - pos + 1, true
			}
			return offset + pos - e.Start + 1, true
		}
		offset += e.Len()
	}
	return 0, false
}

// CodonSpan returns the genomic interval covering the codon that contains
// cdsPos. The interval may span an intron.
func (t *Transcript) CodonSpan(cdsPos int64) (start, end int64, ok bool) {
	first := (cdsPos-1)/3*3 + 1
	a, ok1 := t.CDSToGenomic(first)
	b, ok2 := t.CDSToGenomic(first + 2)
	if !ok1 || !ok2 {
		return 0, 0, false
	}
	return min(a, b), max(a, b), true
}
