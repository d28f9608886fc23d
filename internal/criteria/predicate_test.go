package criteria

import (
	"context"
	"errors"
	"testing"

	"github.com/inodb/vibe-acmg/internal/gateway"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPredicate struct {
	owned   []Criterion
	results []Result
	err     error
	calls   int
}

func (s *stubPredicate) Criteria() []Criterion { return s.owned }

func (s *stubPredicate) Evaluate(context.Context, *Data) ([]Result, error) {
	s.calls++
	return s.results, s.err
}

func TestEvaluate_FailureIsScopedToPredicate(t *testing.T) {
	failing := &stubPredicate{owned: []Criterion{PP3, BP4}, err: &MissingDataError{What: "scores"}}
	ok := &stubPredicate{owned: []Criterion{PM4, BP3}, results: []Result{
		Metf(PM4, "stop-loss"), NotMetf(BP3, "stop-loss"),
	}}
	d := newData(t, point(t, "1", 1000, "A", "G"), TermStopLost)

	set := Evaluate(context.Background(), d, []Predicate{failing, ok})
	require.Len(t, set, len(All))
	assert.Equal(t, Failed, set[PP3].Prediction)
	assert.Equal(t, Failed, set[BP4].Prediction)
	assert.Contains(t, set[PP3].Summary, "scores")
	assert.Equal(t, Met, set[PM4].Prediction)
	assert.Equal(t, NotApplicable, set[PS3].Prediction, "unowned criteria are filled in")
}

func TestEvaluate_MissingResultFails(t *testing.T) {
	partial := &stubPredicate{owned: []Criterion{PS1, PM5}, results: []Result{NotMetf(PS1, "x")}}
	d := newData(t, point(t, "1", 1000, "A", "G"), TermMissense)

	set := Evaluate(context.Background(), d, []Predicate{partial})
	assert.Equal(t, Failed, set[PS1].Prediction)
	assert.Equal(t, Failed, set[PM5].Prediction)
}

func TestEvaluate_Rules(t *testing.T) {
	pm4bp3 := &stubPredicate{owned: []Criterion{PM4, BP3}, results: []Result{
		Metf(PM4, "in-frame"), NotMetf(BP3, "in-frame"),
	}}
	pp3 := &stubPredicate{owned: []Criterion{PP3, BP4}, results: []Result{
		Metf(PP3, "REVEL"), NotMetf(BP4, "REVEL"),
	}}
	disabledBoth := &stubPredicate{owned: []Criterion{PP2, BP1}}

	d := newData(t, point(t, "1", 1000, "A", "G"), TermMissense)
	d.Rules = GeneRules{
		Disabled: map[Criterion]string{
			BP3: "BP3 is not applicable for this gene",
			PP2: "not applicable",
			BP1: "not applicable",
		},
		StrengthOverrides: map[Criterion]Strength{PP3: PathogenicModerate, BP4: BenignStrong},
	}

	set := Evaluate(context.Background(), d, []Predicate{pm4bp3, pp3, disabledBoth})
	assert.Equal(t, Met, set[PM4].Prediction)
	assert.Equal(t, NotApplicable, set[BP3].Prediction)
	assert.Equal(t, "BP3 is not applicable for this gene", set[BP3].Summary)
	assert.Equal(t, PathogenicModerate, set[PP3].Strength)
	assert.Equal(t, BenignSupporting, set[BP4].Strength, "overrides apply to met criteria only")
	assert.Zero(t, disabledBoth.calls, "fully disabled predicates are skipped")
	assert.Equal(t, NotApplicable, set[PP2].Prediction)
}

func TestEvaluate_Defaults(t *testing.T) {
	d := newData(t, point(t, "1", 1000, "C", "T"), TermMissense)
	d.Consequence.HGVSp = "p.Arg12Cys"
	d.Lookup = &fakeLookup{}
	d.Record = &gateway.VariantRecord{
		Scores: gateway.ScoreSet{REVEL: gateway.Some(0.95), PhyloP100: gateway.Some(6)},
		Frequencies: []gateway.CohortFrequency{{
			Dataset: "exomes", Cohort: "controls", AFGrpmax: gateway.Some(0),
		}},
	}

	set := Evaluate(context.Background(), d, Defaults())
	require.Len(t, set, len(All))
	ordered := set.Ordered()
	require.Len(t, ordered, len(All))
	for i, c := range All {
		assert.Equal(t, c, ordered[i].Criterion)
	}
	assert.Equal(t, Met, set[PM2].Prediction)
	assert.Equal(t, Met, set[PP3].Prediction)
	assert.Equal(t, NotMet, set[PM4].Prediction)
	assert.Equal(t, NotApplicable, set[PS2].Prediction)
	assert.Equal(t, Failed, set[PP2].Prediction, "no transcript for the range query")
	assert.Equal(t, NotApplicable, set[PVS1].Prediction, "PVS1 is evaluated elsewhere")

	var names []Criterion
	for _, r := range set.Met() {
		names = append(names, r.Criterion)
	}
	assert.Equal(t, []Criterion{PM2, PP3}, names)
}

func TestEvaluate_GatewayErrorScopedToDependentCriteria(t *testing.T) {
	d := newData(t, point(t, "1", 1000, "C", "T"), TermStopLost)
	d.RecordErr = errors.New("annonars: status 503")
	d.Lookup = &fakeLookup{}

	set := Evaluate(context.Background(), d, Defaults())
	assert.Equal(t, Failed, set[PM2].Prediction)
	assert.Equal(t, Failed, set[BA1].Prediction)
	assert.Equal(t, Met, set[PM4].Prediction)
}
