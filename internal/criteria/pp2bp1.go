package criteria

import (
	"context"
	"strings"

	"github.com/inodb/vibe-acmg/internal/gateway"
)

// PP2BP1 evaluates missense constraint of the gene: PP2 for genes with a
// low rate of benign missense variation, BP1 for genes where truncating
// variants are the main disease mechanism and missense changes are mostly
// benign.
type PP2BP1 struct{}

func (PP2BP1) Criteria() []Criterion { return []Criterion{PP2, BP1} }

func (PP2BP1) Evaluate(ctx context.Context, d *Data) ([]Result, error) {
	if d.Variant.IsMitochondrial() {
		return []Result{
			NotApplicablef(PP2, "not applicable to mitochondrial variants"),
			NotApplicablef(BP1, "not applicable to mitochondrial variants"),
		}, nil
	}
	csq, err := d.consequence()
	if err != nil {
		return nil, err
	}
	if !IsMissense(csq) {
		return []Result{
			NotMetf(PP2, "not a missense variant"),
			NotMetf(BP1, "not a missense variant"),
		}, nil
	}
	if d.Rules.PP2AlwaysOnMissense {
		return []Result{
			Metf(PP2, "missense variant in %s", d.GeneSymbol),
			NotMetf(BP1, "missense variants are a known disease mechanism in %s", d.GeneSymbol),
		}, nil
	}

	t := d.Thresholds
	if d.GeneInfo != nil {
		if z, ok := d.GeneInfo.MissenseZ.Get(); ok {
			pp2 := NotMetf(PP2, "missense Z %g < %g", z, t.PP2MissenseZ)
			if z >= t.PP2MissenseZ {
				pp2 = Metf(PP2, "missense Z %g >= %g", z, t.PP2MissenseZ)
			}
			bp1 := NotMetf(BP1, "missense Z %g > %g", z, t.BP1MissenseZ)
			if z <= t.BP1MissenseZ {
				bp1 = Metf(BP1, "missense Z %g <= %g", z, t.BP1MissenseZ)
			}
			return []Result{pp2, bp1}, nil
		}
	}

	tx := d.Transcript
	if tx == nil || !tx.IsCoding() {
		return nil, missing("coding sequence bounds")
	}
	recs, err := d.Range(ctx, tx.CodingStart, tx.CodingEnd)
	if err != nil {
		return nil, err
	}
	var pathogenic, benign, total int
	for _, r := range recs.ClinVar {
		if !isMissenseRecord(r) {
			continue
		}
		total++
		switch {
		case r.IsPathogenic():
			pathogenic++
		case r.IsBenign():
			benign++
		}
	}
	if total == 0 {
		return []Result{
			NotMetf(PP2, "no ClinVar missense variants in the coding region"),
			NotMetf(BP1, "no ClinVar missense variants in the coding region"),
		}, nil
	}

	pRatio := float64(pathogenic) / float64(total)
	bRatio := float64(benign) / float64(total)
	pp2 := NotMetf(PP2, "%d/%d ClinVar missense variants pathogenic (%.3f < %g)", pathogenic, total, pRatio, t.PP2Ratio)
	if pRatio >= t.PP2Ratio {
		pp2 = Metf(PP2, "%d/%d ClinVar missense variants pathogenic (%.3f >= %g)", pathogenic, total, pRatio, t.PP2Ratio)
	}
	bp1 := NotMetf(BP1, "%d/%d ClinVar missense variants benign (%.3f < %g)", benign, total, bRatio, t.BP1Ratio)
	if bRatio >= t.BP1Ratio {
		bp1 = Metf(BP1, "%d/%d ClinVar missense variants benign (%.3f >= %g)", benign, total, bRatio, t.BP1Ratio)
	}
	return []Result{pp2, bp1}, nil
}

func isMissenseRecord(r gateway.ClinVarRecord) bool {
	for _, c := range r.Consequences {
		if strings.EqualFold(strings.ReplaceAll(c, " ", "_"), TermMissense) {
			return true
		}
	}
	return false
}
