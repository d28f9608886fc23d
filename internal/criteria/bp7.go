package criteria

import (
	"context"
	"fmt"

	"github.com/inodb/vibe-acmg/internal/gateway"
)

// BP7Predicate evaluates silent changes: synonymous, intronic or UTR
// variants outside the canonical splice windows that are not conserved and
// have no predicted splicing impact.
type BP7Predicate struct{}

func (BP7Predicate) Criteria() []Criterion { return []Criterion{BP7} }

func (BP7Predicate) Evaluate(_ context.Context, d *Data) ([]Result, error) {
	if d.Variant.IsMitochondrial() {
		return []Result{NotMetf(BP7, "not evaluated for mitochondrial variants")}, nil
	}
	csq, err := d.consequence()
	if err != nil {
		return nil, err
	}
	t := d.Thresholds

	switch {
	case IsSynonymous(csq):
	case IsIntronicOrUTR(csq):
		if IsCanonicalSplice(csq) {
			return []Result{NotMetf(BP7, "variant lies in a canonical splice site")}, nil
		}
		inWindow, err := InSpliceWindow(d.Transcript, d.Variant.Pos, t.BP7Donor, t.BP7Acceptor)
		if err != nil {
			return nil, err
		}
		if inWindow {
			return []Result{NotMetf(BP7, "variant lies in a canonical splice site")}, nil
		}
	default:
		return []Result{NotMetf(BP7, "not a synonymous, intronic or UTR variant")}, nil
	}

	s := d.Scores()
	phylop, ok := s.PhyloP100.Get()
	if !ok {
		return nil, missing("phyloP100 conservation score")
	}
	if phylop >= t.PhyloP100 {
		return []Result{NotMetf(BP7, "conserved site: phyloP100 %g >= %g", phylop, t.PhyloP100)}, nil
	}
	if impact := spliceImpact(s, t); impact != "" {
		return []Result{NotMetf(BP7, "predicted splicing impact: %s", impact)}, nil
	}
	return []Result{Metf(BP7, "not conserved (phyloP100 %g < %g) and no predicted splicing impact", phylop, t.PhyloP100)}, nil
}

// InSpliceWindow reports whether pos falls in the intronic donor or
// acceptor window of any exon of tx. Window sizes count intronic bases
// next to the exon boundary. The strand decides which side of an exon is
// the donor; a transcript without one is a MissingDataError.
func InSpliceWindow(tx *gateway.Transcript, pos, donor, acceptor int64) (bool, error) {
	if tx == nil {
		return false, nil
	}
	var before, after int64
	switch tx.Strand {
	case gateway.StrandPlus:
		before, after = acceptor, donor
	case gateway.StrandMinus:
		before, after = donor, acceptor
	default:
		return false, missing("strand of transcript " + tx.ID)
	}
	for _, e := range tx.Exons {
		if pos >= e.Start-before && pos < e.Start {
			return true, nil
		}
		if pos > e.End && pos <= e.End+after {
			return true, nil
		}
	}
	return false, nil
}

// spliceImpact describes the first SpliceAI delta at or above its cutoff,
// or returns "" when none is.
func spliceImpact(s gateway.ScoreSet, t Thresholds) string {
	checks := []ScoreCutoff{
		{Name: "acceptor gain", Score: s.SpliceAIAccGain, Cutoff: t.SpliceAIAccGain},
		{Name: "acceptor loss", Score: s.SpliceAIAccLoss, Cutoff: t.SpliceAIAccLoss},
		{Name: "donor gain", Score: s.SpliceAIDonGain, Cutoff: t.SpliceAIDonGain},
		{Name: "donor loss", Score: s.SpliceAIDonLoss, Cutoff: t.SpliceAIDonLoss},
	}
	if c := AnyAtLeast(checks...); c.Met {
		return fmt.Sprintf("SpliceAI %s %g", c.By, c.Value)
	}
	return ""
}
