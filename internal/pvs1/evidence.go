package pvs1

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/inodb/vibe-acmg/internal/criteria"
	"github.com/inodb/vibe-acmg/internal/gateway"
	"github.com/inodb/vibe-acmg/internal/genome"
	"github.com/inodb/vibe-acmg/internal/regions"
)

// HGNC identifiers with gene-specific handling.
const (
	hgncPTEN = "HGNC:9588"
	hgncGJB2 = "HGNC:4284"
)

// ptenCodon is the codon before which PTEN truncations are PVS1 regardless
// of NMD.
const ptenCodon = 374

func checkGeometry(tx *gateway.Transcript) error {
	switch {
	case tx == nil:
		return &criteria.AlgorithmError{Msg: "no transcript selected"}
	case len(tx.Exons) == 0:
		return &criteria.AlgorithmError{Msg: fmt.Sprintf("transcript %s has no exons", tx.ID)}
	case tx.Strand == gateway.StrandUnknown:
		return &criteria.AlgorithmError{Msg: fmt.Sprintf("transcript %s has no strand", tx.ID)}
	case !tx.IsCoding():
		return &criteria.AlgorithmError{Msg: fmt.Sprintf("transcript %s has no coding sequence", tx.ID)}
	}
	return nil
}

// codingExons returns the coding part of every exon that has one, in
// transcription order.
func codingExons(tx *gateway.Transcript) []gateway.Exon {
	var out []gateway.Exon
	for _, e := range tx.Exons {
		start, end := max(e.Start, tx.CodingStart), min(e.End, tx.CodingEnd)
		if end >= start {
			out = append(out, gateway.Exon{Number: e.Number, Start: start, End: end})
		}
	}
	if tx.Strand == gateway.StrandMinus {
		slices.Reverse(out)
	}
	return out
}

// undergoesNMD reports whether a premature stop at coding position stop
// triggers nonsense-mediated decay: it must lie more than distance bases
// upstream of the last exon-exon junction, or anywhere upstream of the
// penultimate exon when that exon is shorter. Single-exon transcripts
// escape NMD; GJB2 transcripts never do.
func undergoesNMD(geneID string, tx *gateway.Transcript, stop, distance int64) bool {
	if geneID == hgncGJB2 {
		return true
	}
	exons := codingExons(tx)
	if len(exons) < 2 {
		return false
	}
	var lastJunction int64
	for _, e := range exons[:len(exons)-1] {
		lastJunction += e.Len()
	}
	cutoff := lastJunction - min(distance, exons[len(exons)-2].Len())
	return stop <= cutoff
}

// biologicallyRelevant reports whether tx is a transcript whose loss is
// clinically meaningful.
func biologicallyRelevant(tx *gateway.Transcript) bool {
	return tx.HasTag(gateway.TagManeSelect) ||
		tx.HasTag(gateway.TagManePlusClinical) ||
		tx.HasTag(gateway.TagCanonical)
}

// alteredRegion returns the genomic interval from pos to the 3' end of the
// transcript.
func alteredRegion(tx *gateway.Transcript, pos int64) (start, end int64) {
	if tx.Strand == gateway.StrandMinus {
		return tx.Exons[0].Start, pos
	}
	return pos, tx.Exons[len(tx.Exons)-1].End
}

func proteinLength(csq *gateway.Consequence, tx *gateway.Transcript) int64 {
	if csq != nil && csq.ProteinLen > 0 {
		return csq.ProteinLen
	}
	return tx.CDSLength() / 3
}

func isLoFTerm(term string) bool {
	t := strings.ToLower(strings.ReplaceAll(term, " ", "_"))
	return t == criteria.TermStopGained || strings.HasPrefix(t, "frameshift")
}

// regionEvidence answers the region-level questions of the decision tree
// from ClinVar and population range queries.
type regionEvidence struct {
	lookup  criteria.Lookup
	build   genome.Build
	chrom   string
	domains *regions.Index
	th      criteria.Thresholds
}

func (e regionEvidence) query(ctx context.Context, start, end int64) (*gateway.RangeRecords, error) {
	if e.lookup == nil {
		return nil, &criteria.MissingDataError{What: "range lookup"}
	}
	recs, err := e.lookup.Range(ctx, e.build, e.chrom, start, end)
	if err != nil {
		return nil, fmt.Errorf("query %s:%d-%d: %w", e.chrom, start, end, err)
	}
	if recs == nil {
		recs = &gateway.RangeRecords{}
	}
	return recs, nil
}

// critical reports whether [start, end] overlaps an annotated protein
// domain or holds a high enough share of pathogenic ClinVar variants.
func (e regionEvidence) critical(ctx context.Context, start, end int64) (bool, error) {
	if e.domains.Overlaps(e.chrom, start, end) {
		return true, nil
	}
	recs, err := e.query(ctx, start, end)
	if err != nil {
		return false, err
	}
	if len(recs.ClinVar) == 0 {
		return false, nil
	}
	var pathogenic int
	for _, r := range recs.ClinVar {
		if r.IsPathogenic() {
			pathogenic++
		}
	}
	return float64(pathogenic)/float64(len(recs.ClinVar)) >= e.th.PVS1CriticalRatio, nil
}

// lofFrequent reports whether loss-of-function variants in [start, end]
// are common in the general population.
func (e regionEvidence) lofFrequent(ctx context.Context, start, end int64) (bool, error) {
	recs, err := e.query(ctx, start, end)
	if err != nil {
		return false, err
	}
	var lof, frequent int
	for _, v := range recs.Population {
		if !hasLoFTerm(v.Consequences) {
			continue
		}
		lof++
		if v.AFGrpmax >= e.th.PVS1LoFFrequentAF {
			frequent++
		}
	}
	if lof == 0 {
		return false, nil
	}
	return float64(frequent)/float64(lof) >= e.th.PVS1LoFFrequentPct, nil
}

func hasLoFTerm(terms []string) bool {
	for _, t := range terms {
		if isLoFTerm(t) {
			return true
		}
	}
	return false
}

func (e regionEvidence) pathogenicCount(ctx context.Context, start, end int64) (int, error) {
	recs, err := e.query(ctx, start, end)
	if err != nil {
		return 0, err
	}
	var n int
	for _, r := range recs.ClinVar {
		if r.IsPathogenic() {
			n++
		}
	}
	return n, nil
}

// escapePaths names the terminal paths of the subtree shared by every
// variant kind once NMD is ruled out.
type escapePaths struct {
	critical, frequent, removesMore, removesLess Path
}

// escape walks the subtree for truncations that escape NMD or keep the
// reading frame: a critical altered region gives Strong, frequent LoF
// variants or an irrelevant transcript rule PVS1 out, and otherwise the
// share of protein removed decides between Strong and Moderate.
func (e regionEvidence) escape(ctx context.Context, altered, exon [2]int64, relevant bool, removed float64, p escapePaths) (Decision, error) {
	crit, err := e.critical(ctx, altered[0], altered[1])
	if err != nil {
		return Decision{}, err
	}
	if crit {
		return decide(p.critical, OutcomeStrong), nil
	}
	if !relevant {
		return decide(p.frequent, OutcomeNotPVS1), nil
	}
	frequent, err := e.lofFrequent(ctx, exon[0], exon[1])
	if err != nil {
		return Decision{}, err
	}
	if frequent {
		return decide(p.frequent, OutcomeNotPVS1), nil
	}
	if removed >= e.th.PVS1ProteinRemoved {
		return decide(p.removesMore, OutcomeStrong), nil
	}
	return decide(p.removesLess, OutcomeModerate), nil
}
