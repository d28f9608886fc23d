package criteria

import "context"

// PM4BP3 evaluates protein length changes: stop-loss and in-frame indels
// outside repeat regions support PM4, in-frame indels inside repeats BP3.
type PM4BP3 struct{}

func (PM4BP3) Criteria() []Criterion { return []Criterion{PM4, BP3} }

func (PM4BP3) Evaluate(_ context.Context, d *Data) ([]Result, error) {
	csq, err := d.consequence()
	if err != nil {
		return nil, err
	}

	var pm4, bp3 Result
	switch {
	case IsStopLost(csq):
		pm4 = Metf(PM4, "stop-loss variant lengthens the protein")
		bp3 = NotMetf(BP3, "stop-loss variant")
	case IsInframeIndel(csq):
		v := d.Variant
		if !v.IsMitochondrial() && d.Repeats.Overlaps(v.Chrom, v.Pos, v.End()) {
			pm4 = NotMetf(PM4, "in-frame indel inside a repeat region")
			bp3 = Metf(BP3, "in-frame indel inside a repeat region")
		} else {
			pm4 = Metf(PM4, "in-frame indel outside repeat regions")
			bp3 = NotMetf(BP3, "in-frame indel outside repeat regions")
		}
	default:
		pm4 = NotMetf(PM4, "not a stop-loss or in-frame indel")
		bp3 = NotMetf(BP3, "not an in-frame indel")
	}

	switch {
	case d.Variant.IsMitochondrial():
		bp3 = NotApplicablef(BP3, "not applicable to mitochondrial variants")
	case d.Rules.BP3NotApplicable:
		bp3 = NotApplicablef(BP3, "not applicable for %s", d.GeneSymbol)
	}
	return []Result{pm4, bp3}, nil
}
