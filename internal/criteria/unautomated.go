package criteria

import "context"

// UnautomatedCriteria need case-level evidence (segregation, de novo
// status, functional studies, phenotype) that annotation data cannot
// supply.
var UnautomatedCriteria = []Criterion{PS2, PS3, PS4, PM3, PM6, PP1, PP4, PP5, BS3, BS4, BP2, BP5, BP6}

// Unautomated reports every criterion in UnautomatedCriteria as not
// applicable.
type Unautomated struct{}

func (Unautomated) Criteria() []Criterion { return UnautomatedCriteria }

func (Unautomated) Evaluate(context.Context, *Data) ([]Result, error) {
	out := make([]Result, 0, len(UnautomatedCriteria))
	for _, c := range UnautomatedCriteria {
		out = append(out, NotApplicablef(c, "not automated"))
	}
	return out, nil
}
