package criteria

import (
	"context"
	"fmt"

	"github.com/inodb/vibe-acmg/internal/gateway"
	"github.com/inodb/vibe-acmg/internal/variant"
)

// PS1PM5 compares the amino-acid change with pathogenic variants at the
// same codon: the same change from a different nucleotide change supports
// PS1, a different change at the same residue supports PM5. PS1 takes
// precedence, so both are never met together.
type PS1PM5 struct{}

func (PS1PM5) Criteria() []Criterion { return []Criterion{PS1, PM5} }

func (PS1PM5) Evaluate(ctx context.Context, d *Data) ([]Result, error) {
	csq, err := d.consequence()
	if err != nil {
		return nil, err
	}
	if !IsMissense(csq) {
		return []Result{
			NotApplicablef(PS1, "requires a missense change"),
			NotApplicablef(PM5, "requires a missense change"),
		}, nil
	}
	own, ok := ParseProteinChange(csq.HGVSp)
	if !ok && d.Record != nil && len(d.Record.HGVSp) > 0 {
		own, ok = ParseProteinChange(d.Record.HGVSp[0])
	}
	if !ok || !own.IsMissense() {
		return nil, missing(fmt.Sprintf("parsable missense protein change (got %q)", csq.HGVSp))
	}

	others, err := codonNeighbours(ctx, d, csq)
	if err != nil {
		return nil, err
	}

	var sameAA, otherAA *neighbour
	for i := range others {
		n := &others[i]
		if n.change.Pos != own.Pos || n.change.Ref != own.Ref || !n.change.IsMissense() {
			continue
		}
		if n.change.Alt == own.Alt {
			if sameAA == nil {
				sameAA = n
			}
		} else if otherAA == nil {
			otherAA = n
		}
	}

	label := fmt.Sprintf("p.%s%d%s", own.Ref, own.Pos, own.Alt)
	switch {
	case sameAA != nil:
		return []Result{
			Metf(PS1, "%s is the same change as pathogenic %s", label, sameAA),
			NotMetf(PM5, "same amino-acid change is already pathogenic (PS1)"),
		}, nil
	case otherAA != nil:
		return []Result{
			NotMetf(PS1, "no pathogenic variant with the same amino-acid change"),
			Metf(PM5, "different pathogenic change %s at the residue of %s", otherAA, label),
		}, nil
	}
	return []Result{
		NotMetf(PS1, "no pathogenic variant with the same amino-acid change as %s", label),
		NotMetf(PM5, "no other pathogenic change at the residue of %s", label),
	}, nil
}

type neighbour struct {
	id     string
	change ProteinChange
}

func (n *neighbour) String() string {
	return fmt.Sprintf("%s (p.%s%d%s)", n.id, n.change.Ref, n.change.Pos, n.change.Alt)
}

// codonNeighbours collects pathogenic variants at the codon of the variant.
// With transcript geometry the whole codon is queried as a range; without
// it the other alleles at the same position are looked up one by one.
func codonNeighbours(ctx context.Context, d *Data, csq *gateway.Consequence) ([]neighbour, error) {
	v := d.Variant
	if d.Transcript != nil && csq.CDSPos > 0 {
		if start, end, ok := d.Transcript.CodonSpan(csq.CDSPos); ok {
			recs, err := d.Range(ctx, start, end)
			if err != nil {
				return nil, err
			}
			var out []neighbour
			for _, r := range recs.ClinVar {
				if !r.IsPathogenic() || (r.Pos == v.Pos && r.Ref == v.Ref && r.Alt == v.Alt) {
					continue
				}
				if pc, ok := ParseProteinChange(r.Name); ok {
					out = append(out, neighbour{id: clinvarID(r), change: pc})
				}
			}
			return out, nil
		}
	}

	if !v.IsSNV() {
		return nil, nil
	}
	if d.Lookup == nil {
		return nil, missing("variant lookup")
	}
	var out []neighbour
	for _, base := range []string{"A", "C", "G", "T"} {
		if base == v.Ref || base == v.Alt {
			continue
		}
		alt, err := variant.NewPointVariant(v.Build, v.Chrom, v.Pos, v.Ref, base, "")
		if err != nil {
			return nil, err
		}
		rec, err := d.Lookup.VariantRecord(ctx, alt)
		if err != nil {
			return nil, fmt.Errorf("look up %s: %w", alt, err)
		}
		if !rec.PathogenicClinVar() {
			continue
		}
		if pc, ok := recordProteinChange(rec); ok {
			out = append(out, neighbour{id: alt.String(), change: pc})
		}
	}
	return out, nil
}

func recordProteinChange(rec *gateway.VariantRecord) (ProteinChange, bool) {
	for _, p := range rec.HGVSp {
		if pc, ok := ParseProteinChange(p); ok {
			return pc, true
		}
	}
	for _, c := range rec.ClinVar {
		if pc, ok := ParseProteinChange(c.Name); ok {
			return pc, true
		}
	}
	return ProteinChange{}, false
}

func clinvarID(r gateway.ClinVarRecord) string {
	if r.AccessionID != "" {
		return r.AccessionID
	}
	return fmt.Sprintf("%d-%s-%s", r.Pos, r.Ref, r.Alt)
}
