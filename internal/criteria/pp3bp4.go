package criteria

import (
	"context"

	"github.com/inodb/vibe-acmg/internal/gateway"
)

// PP3BP4 evaluates in silico predictions: PP3 when a predictor supports a
// deleterious effect, BP4 when one supports no impact. Any single score
// crossing its cutoff is sufficient, and each side is decided on its own,
// so both can be met at once.
type PP3BP4 struct{}

func (PP3BP4) Criteria() []Criterion { return []Criterion{PP3, BP4} }

func (PP3BP4) Evaluate(_ context.Context, d *Data) ([]Result, error) {
	csq, err := d.consequence()
	if err != nil {
		return nil, err
	}
	s, t := d.Scores(), d.Thresholds

	var path, benign []ScoreCutoff
	var source string
	switch {
	case d.Rules.ScoreStrategy == StrategySpliceAI:
		path, benign, source = spliceAICutoffs(s, t)
	case IsSpliceAffecting(csq) && d.Rules.ScoreStrategy == StrategyDefault:
		source = "dbscSNV"
		path = []ScoreCutoff{
			{Name: "ada", Score: s.AdaScore, Cutoff: t.AdaPathogenic},
			{Name: "rf", Score: s.RFScore, Cutoff: t.RFPathogenic},
		}
		benign = []ScoreCutoff{
			{Name: "ada", Score: s.AdaScore, Cutoff: t.AdaBenign},
			{Name: "rf", Score: s.RFScore, Cutoff: t.RFBenign},
		}
	case IsMissense(csq):
		source = "missense predictors"
		path, benign = missenseCutoffs(s, t, d.Rules.ScoreStrategy)
	default:
		path, benign, source = spliceAICutoffs(s, t)
	}

	up := AnyAtLeast(path...)
	down := AnyAtMost(benign...)
	if up.AllAbsent() && down.AllAbsent() {
		return nil, missing(source + " scores")
	}

	return []Result{
		crossingResult(PP3, source, up),
		crossingResult(BP4, source, down),
	}, nil
}

// crossingResult reports one side of the pair from its own combinator.
func crossingResult(c Criterion, source string, x Crossing) Result {
	if x.Met {
		return Metf(c, "%s: %s", source, x)
	}
	if x.AllAbsent() {
		return NotMetf(c, "%s: no scores available", source)
	}
	return NotMetf(c, "%s: %s, no cutoff crossed", source, x)
}

func spliceAICutoffs(s gateway.ScoreSet, t Thresholds) (path, benign []ScoreCutoff, source string) {
	m := s.SpliceAIMax()
	return []ScoreCutoff{{Name: "SpliceAI", Score: m, Cutoff: t.SpliceAIPathogenic}},
		[]ScoreCutoff{{Name: "SpliceAI", Score: m, Cutoff: t.SpliceAIBenign}},
		"SpliceAI"
}

func missenseCutoffs(s gateway.ScoreSet, t Thresholds, strategy ScoreStrategy) (path, benign []ScoreCutoff) {
	revel := func() ([]ScoreCutoff, []ScoreCutoff) {
		return []ScoreCutoff{{Name: "REVEL", Score: s.REVEL, Cutoff: t.REVELPathogenic}},
			[]ScoreCutoff{{Name: "REVEL", Score: s.REVEL, Cutoff: t.REVELBenign}}
	}
	switch strategy {
	case StrategyREVEL:
		return revel()
	case StrategyBayesDel:
		return []ScoreCutoff{{Name: "BayesDel", Score: s.BayesDelNoAF, Cutoff: t.BayesDelPathogenic}},
			[]ScoreCutoff{{Name: "BayesDel", Score: s.BayesDelNoAF, Cutoff: t.BayesDelBenign}}
	}
	path, benign = revel()
	path = append(path,
		ScoreCutoff{Name: "CADD", Score: s.CADDPhred, Cutoff: t.CADDPathogenic},
		ScoreCutoff{Name: "BayesDel", Score: s.BayesDelNoAF, Cutoff: t.BayesDelPathogenic},
		ScoreCutoff{Name: "AlphaMissense", Score: s.AlphaMissense, Cutoff: t.AlphaMissensePathogenic},
	)
	benign = append(benign,
		ScoreCutoff{Name: "CADD", Score: s.CADDPhred, Cutoff: t.CADDBenign},
		ScoreCutoff{Name: "BayesDel", Score: s.BayesDelNoAF, Cutoff: t.BayesDelBenign},
		ScoreCutoff{Name: "AlphaMissense", Score: s.AlphaMissense, Cutoff: t.AlphaMissenseBenign},
	)
	return path, benign
}
