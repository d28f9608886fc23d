package criteria

import (
	"context"
	"fmt"
)

// Predicate evaluates one criterion or a group of criteria that share their
// inputs. Evaluate returns exactly one result per criterion it owns, or an
// error that fails all of them.
type Predicate interface {
	Criteria() []Criterion
	Evaluate(ctx context.Context, d *Data) ([]Result, error)
}

// Defaults returns the default predicates for point variants, excluding
// PVS1, in evaluation order.
func Defaults() []Predicate {
	return []Predicate{
		PS1PM5{},
		PM1Predicate{},
		FrequencyPredicate{},
		PM4BP3{},
		PP2BP1{},
		PP3BP4{},
		BP7Predicate{},
		Unautomated{},
	}
}

// Evaluate runs preds in order and assembles the result set. A predicate
// error becomes a Failed result for every criterion the predicate owns.
// Disabled criteria are reported NotApplicable with their rationale and
// strength overrides are applied last. Criteria no predicate owns are
// reported NotApplicable.
func Evaluate(ctx context.Context, d *Data, preds []Predicate) Set {
	set := make(Set, len(All))
	for _, p := range preds {
		owned := p.Criteria()
		if allDisabled(d.Rules, owned) {
			continue
		}
		results, err := p.Evaluate(ctx, d)
		if err == nil {
			err = checkOwned(owned, results)
		}
		if err != nil {
			for _, c := range owned {
				set[c] = FailedResult(c, err)
			}
			continue
		}
		for _, r := range results {
			set[r.Criterion] = r
		}
	}
	ApplyRules(set, d.Rules)
	for _, c := range All {
		if _, ok := set[c]; !ok {
			set[c] = NotApplicablef(c, "not evaluated")
		}
	}
	return set
}

// ApplyRules applies the disabled set and strength overrides of rules.
func ApplyRules(set Set, rules GeneRules) {
	for c, why := range rules.Disabled {
		set[c] = NotApplicablef(c, "%s", why)
	}
	for c, s := range rules.StrengthOverrides {
		if r, ok := set[c]; ok && r.Prediction == Met {
			r.Strength = s
			set[c] = r
		}
	}
}

func allDisabled(rules GeneRules, cs []Criterion) bool {
	for _, c := range cs {
		if _, ok := rules.Disabled[c]; !ok {
			return false
		}
	}
	return len(cs) > 0
}

func checkOwned(owned []Criterion, results []Result) error {
	seen := make(map[Criterion]bool, len(results))
	for _, r := range results {
		seen[r.Criterion] = true
	}
	for _, c := range owned {
		if !seen[c] {
			return &AlgorithmError{Msg: fmt.Sprintf("no result for %s", c)}
		}
	}
	return nil
}
