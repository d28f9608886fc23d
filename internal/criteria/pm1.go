package criteria

import (
	"context"
	"fmt"

	"github.com/inodb/vibe-acmg/internal/gateway"
)

// PM1Predicate evaluates mutational hot spots and critical functional
// domains. Genes with curated critical regions are matched against them;
// other genes use the density of pathogenic ClinVar variants around the
// variant and within overlapping protein domains.
type PM1Predicate struct{}

func (PM1Predicate) Criteria() []Criterion { return []Criterion{PM1} }

func (PM1Predicate) Evaluate(ctx context.Context, d *Data) ([]Result, error) {
	if d.Variant.IsMitochondrial() {
		return []Result{NotApplicablef(PM1, "not applicable to mitochondrial variants")}, nil
	}
	csq, err := d.consequence()
	if err != nil {
		return nil, err
	}
	if !IsMissense(csq) && !IsInframeIndel(csq) {
		return []Result{NotMetf(PM1, "not a missense or in-frame change")}, nil
	}
	if len(d.Rules.CriticalRegions) > 0 {
		return []Result{criticalRegionResult(d, csq)}, nil
	}
	r, err := hotspotResult(ctx, d)
	if err != nil {
		return nil, err
	}
	return []Result{r}, nil
}

func criticalRegionResult(d *Data, csq *gateway.Consequence) Result {
	for _, region := range d.Rules.CriticalRegions {
		if !region.Matches(csq.TranscriptID, csq.ProteinPos, csq.ExonRank) {
			continue
		}
		r := Metf(PM1, "residue %d in critical region %s", csq.ProteinPos, region.Name)
		if len(region.Exons) > 0 {
			r.Summary = fmt.Sprintf("exon %d in critical region %s", csq.ExonRank, region.Name)
		}
		if region.Strength != StrengthNotSet {
			r.Strength = region.Strength
		}
		return r
	}
	return NotMetf(PM1, "residue %d outside every critical region for %s", csq.ProteinPos, d.GeneSymbol)
}

func hotspotResult(ctx context.Context, d *Data) (Result, error) {
	v, t := d.Variant, d.Thresholds

	recs, err := d.Range(ctx, v.Pos-t.PM1Window, v.Pos+t.PM1Window)
	if err != nil {
		return Result{}, err
	}
	n := countPathogenic(recs.ClinVar, v.Pos, v.Ref, v.Alt)
	if n >= t.PM1MinVariants {
		return Metf(PM1, "%d pathogenic variants within %d bp", n, t.PM1Window), nil
	}

	for _, dom := range d.Domains.Overlapping(v.Chrom, v.Pos, v.End()) {
		drecs, err := d.Range(ctx, dom.Start, dom.End)
		if err != nil {
			return Result{}, err
		}
		dn := countPathogenic(drecs.ClinVar, v.Pos, v.Ref, v.Alt)
		if dn >= t.PM1MinDomainVariants {
			return Metf(PM1, "%d pathogenic variants in domain %s", dn, dom.Name), nil
		}
	}
	return NotMetf(PM1, "%d pathogenic variants within %d bp and no enriched domain", n, t.PM1Window), nil
}

func countPathogenic(recs []gateway.ClinVarRecord, pos int64, ref, alt string) int64 {
	var n int64
	for _, r := range recs {
		if r.Pos == pos && r.Ref == ref && r.Alt == alt {
			continue
		}
		if r.IsPathogenic() {
			n++
		}
	}
	return n
}
