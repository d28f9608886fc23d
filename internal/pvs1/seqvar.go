package pvs1

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/inodb/vibe-acmg/internal/criteria"
	"github.com/inodb/vibe-acmg/internal/gateway"
)

// Category groups the consequences the decision tree distinguishes.
type Category int

const (
	CategoryOther Category = iota
	CategoryNonsenseFrameshift
	CategorySplice
	CategoryInitiation
)

func (c Category) String() string {
	switch c {
	case CategoryNonsenseFrameshift:
		return "nonsense/frameshift"
	case CategorySplice:
		return "splice site"
	case CategoryInitiation:
		return "initiation codon"
	}
	return "other"
}

func (c Category) matches(csq *gateway.Consequence) bool {
	switch c {
	case CategoryNonsenseFrameshift:
		return criteria.IsNonsense(csq) || criteria.IsFrameshift(csq)
	case CategorySplice:
		return criteria.IsCanonicalSplice(csq)
	case CategoryInitiation:
		return criteria.IsStartLost(csq)
	}
	return false
}

// DefaultPrecedence decides the category of a variant annotated with more
// than one null-variant consequence.
var DefaultPrecedence = []Category{CategoryNonsenseFrameshift, CategorySplice, CategoryInitiation}

// Classifier runs the PVS1 decision tree. It implements criteria.Predicate.
type Classifier struct {
	// Precedence is consulted in order; the first matching category wins.
	Precedence []Category
	logger     *zap.Logger
}

// NewClassifier returns a classifier using DefaultPrecedence.
func NewClassifier() *Classifier {
	return &Classifier{
		Precedence: slices.Clone(DefaultPrecedence),
		logger:     zap.NewNop(),
	}
}

// SetLogger sets the logger for decision traces.
func (c *Classifier) SetLogger(l *zap.Logger) {
	c.logger = l
}

func (c *Classifier) Criteria() []criteria.Criterion { return []criteria.Criterion{criteria.PVS1} }

func (c *Classifier) Evaluate(ctx context.Context, d *criteria.Data) ([]criteria.Result, error) {
	dec, err := c.Classify(ctx, d)
	if err != nil {
		return nil, err
	}
	return []criteria.Result{dec.Result()}, nil
}

// Category returns the first category in the precedence list that matches
// csq, or CategoryOther.
func (c *Classifier) Category(csq *gateway.Consequence) Category {
	for _, cat := range c.Precedence {
		if cat.matches(csq) {
			return cat
		}
	}
	return CategoryOther
}

// Classify walks the decision tree for a sequence variant.
func (c *Classifier) Classify(ctx context.Context, d *criteria.Data) (Decision, error) {
	csq := d.Consequence
	if csq == nil {
		return Decision{}, &criteria.MissingDataError{What: "transcript consequence"}
	}
	cat := c.Category(csq)
	if cat == CategoryOther {
		return notApplicable("consequence %s is not a null variant", strings.Join(csq.Terms, "&")), nil
	}
	if err := checkGeometry(d.Transcript); err != nil {
		return Decision{}, err
	}

	s := &seqTree{
		d:   d,
		tx:  d.Transcript,
		csq: csq,
		ev: regionEvidence{
			lookup:  d.Lookup,
			build:   d.Variant.Build,
			chrom:   d.Variant.Chrom,
			domains: d.Domains,
			th:      d.Thresholds,
		},
	}
	var dec Decision
	var err error
	switch cat {
	case CategoryNonsenseFrameshift:
		dec, err = s.nonsenseFrameshift(ctx)
	case CategorySplice:
		dec, err = s.splice(ctx)
	case CategoryInitiation:
		dec, err = s.initiation(ctx)
	}
	if err != nil {
		return Decision{}, err
	}
	c.logger.Debug("PVS1 decision",
		zap.String("variant", d.Variant.String()),
		zap.String("transcript", s.tx.ID),
		zap.Stringer("category", cat),
		zap.String("path", string(dec.Path)),
		zap.Stringer("outcome", dec.Outcome))
	return dec, nil
}

type seqTree struct {
	d   *criteria.Data
	tx  *gateway.Transcript
	csq *gateway.Consequence
	ev  regionEvidence
}

func (s *seqTree) excluded(exon int) (Decision, bool) {
	if exon > 0 && slices.Contains(s.d.Rules.PVS1ExcludedExons, exon) {
		return notApplicable("exon %d of %s is excluded from PVS1", exon, s.d.GeneSymbol), true
	}
	return Decision{}, false
}

func (s *seqTree) nonsenseFrameshift(ctx context.Context) (Decision, error) {
	csq, tx, pos := s.csq, s.tx, s.d.Variant.Pos
	if csq.CDSPos <= 0 || csq.ProteinPos <= 0 {
		return Decision{}, &criteria.AlgorithmError{
			Msg: fmt.Sprintf("coding and protein positions unresolved on %s", tx.ID),
		}
	}
	idx := tx.FindExon(pos)
	if idx < 0 {
		return Decision{}, &criteria.AlgorithmError{
			Msg: fmt.Sprintf("no exon of %s contains position %d", tx.ID, pos),
		}
	}
	if dec, ok := s.excluded(tx.ExonNumber(idx)); ok {
		return dec, nil
	}
	if s.d.GeneID == hgncPTEN && csq.ProteinPos < ptenCodon {
		return decide(PathPTEN, OutcomeVeryStrong), nil
	}

	relevant := biologicallyRelevant(tx)
	if undergoesNMD(s.d.GeneID, tx, stopCodonCDS(csq), s.ev.th.PVS1NMDDistance) {
		if relevant {
			return decide(PathNF1, OutcomeVeryStrong), nil
		}
		return decide(PathNF2, OutcomeNotPVS1), nil
	}

	length := proteinLength(csq, tx)
	removed := float64(length-csq.ProteinPos+1) / float64(length)
	altStart, altEnd := alteredRegion(tx, pos)
	exon := tx.Exons[idx]
	return s.ev.escape(ctx, [2]int64{altStart, altEnd}, [2]int64{exon.Start, exon.End}, relevant, removed,
		escapePaths{PathNF3, PathNF4, PathNF5, PathNF6})
}

var frameshiftTerRe = regexp.MustCompile(`fs(?:\*|Ter|X)(\d+)`)

// stopCodonCDS returns the coding position of the premature stop. For
// frameshifts with a known new stop ("fsTer12") it is the last base of the
// new stop codon; otherwise the variant position is used.
func stopCodonCDS(csq *gateway.Consequence) int64 {
	if criteria.IsFrameshift(csq) {
		if m := frameshiftTerRe.FindStringSubmatch(csq.HGVSp); m != nil {
			if n, err := strconv.ParseInt(m[1], 10, 64); err == nil && n > 0 {
				return 3 * (csq.ProteinPos + n - 1)
			}
		}
	}
	return csq.CDSPos
}

// nearestExon returns the index of the exon containing pos or, for an
// intronic position, the exon with the closest boundary.
func nearestExon(tx *gateway.Transcript, pos int64) int {
	if i := tx.FindExon(pos); i >= 0 {
		return i
	}
	best, bestDist := -1, int64(-1)
	for i, e := range tx.Exons {
		dist := min(abs(pos-e.Start), abs(pos-e.End))
		if best < 0 || dist < bestDist {
			best, bestDist = i, dist
		}
	}
	return best
}

func abs(x int64) int64 {
	if x < 0 {
		return -x
	}
	return x
}

// splice assumes the canonical splice variant skips its exon. Skipping an
// exon whose coding length is not a multiple of three shifts the frame.
func (s *seqTree) splice(ctx context.Context) (Decision, error) {
	tx, pos := s.tx, s.d.Variant.Pos
	idx := nearestExon(tx, pos)
	if dec, ok := s.excluded(tx.ExonNumber(idx)); ok {
		return dec, nil
	}
	dec, err := s.skipExon(ctx, idx)
	if err != nil {
		return Decision{}, err
	}
	dec.Detail = fmt.Sprintf("%s site of exon %d", spliceSite(s.csq, tx, tx.Exons[idx], pos), tx.ExonNumber(idx))
	return dec, nil
}

// spliceSite names the site hit by a canonical splice variant. The
// consequence terms decide when they name one; otherwise it is the side of
// the exon the position lies on, in transcription order.
func spliceSite(csq *gateway.Consequence, tx *gateway.Transcript, exon gateway.Exon, pos int64) string {
	switch {
	case csq.HasTerm(criteria.TermSpliceDonor):
		return "donor"
	case csq.HasTerm(criteria.TermSpliceAcceptor):
		return "acceptor"
	}
	after := pos > exon.End
	before := pos < exon.Start
	if tx.Strand == gateway.StrandMinus {
		after, before = before, after
	}
	switch {
	case after:
		return "donor"
	case before:
		return "acceptor"
	}
	return "unknown"
}

func (s *seqTree) skipExon(ctx context.Context, idx int) (Decision, error) {
	tx := s.tx
	exon := tx.Exons[idx]
	codingStart, codingEnd := max(exon.Start, tx.CodingStart), min(exon.End, tx.CodingEnd)
	var codingLen int64
	if codingEnd >= codingStart {
		codingLen = codingEnd - codingStart + 1
	}

	relevant := biologicallyRelevant(tx)
	length := proteinLength(s.csq, tx)
	exonRange := [2]int64{exon.Start, exon.End}

	if codingLen%3 != 0 {
		first := codingStart
		if tx.Strand == gateway.StrandMinus {
			first = codingEnd
		}
		cds, ok := tx.GenomicToCDS(first)
		if !ok {
			return Decision{}, &criteria.AlgorithmError{
				Msg: fmt.Sprintf("cannot map exon %d of %s to coding coordinates", tx.ExonNumber(idx), tx.ID),
			}
		}
		if undergoesNMD(s.d.GeneID, tx, cds, s.ev.th.PVS1NMDDistance) {
			if relevant {
				return decide(PathSS1, OutcomeVeryStrong), nil
			}
			return decide(PathSS2, OutcomeNotPVS1), nil
		}
		codon := (cds + 2) / 3
		removed := float64(length-codon+1) / float64(length)
		altStart, altEnd := alteredRegion(tx, first)
		return s.ev.escape(ctx, [2]int64{altStart, altEnd}, exonRange, relevant, removed,
			escapePaths{PathSS3, PathSS4, PathSS5, PathSS6})
	}

	removed := float64(codingLen/3) / float64(length)
	return s.ev.escape(ctx, exonRange, exonRange, relevant, removed,
		escapePaths{PathSS10, PathSS7, PathSS8, PathSS9})
}

// initiation looks for the closest in-frame start codon downstream of the
// lost one among the other transcripts of the gene. Without one the loss
// is complete. With one, pathogenic variants between the two start codons
// show that the skipped region matters.
func (s *seqTree) initiation(ctx context.Context) (Decision, error) {
	main := s.tx
	mainStart := startCodon(main)

	var bestCDS, bestPos int64
	for i := range s.d.Transcripts {
		t := &s.d.Transcripts[i]
		if t.ID == main.ID || t.Strand != main.Strand || !t.IsCoding() {
			continue
		}
		alt := startCodon(t)
		if alt == mainStart {
			continue
		}
		cds, ok := main.GenomicToCDS(alt)
		if !ok || cds <= 1 || (cds-1)%3 != 0 {
			continue
		}
		if bestCDS == 0 || cds < bestCDS {
			bestCDS, bestPos = cds, alt
		}
	}
	if bestCDS == 0 {
		return decide(PathIC3, OutcomeVeryStrong), nil
	}

	n, err := s.ev.pathogenicCount(ctx, min(mainStart, bestPos), max(mainStart, bestPos))
	if err != nil {
		return Decision{}, err
	}
	if n > 0 {
		return decide(PathIC1, OutcomeModerate), nil
	}
	return decide(PathIC2, OutcomeSupporting), nil
}

func startCodon(tx *gateway.Transcript) int64 {
	if tx.Strand == gateway.StrandMinus {
		return tx.CodingEnd
	}
	return tx.CodingStart
}
