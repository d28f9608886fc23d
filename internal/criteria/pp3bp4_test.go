package criteria

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/inodb/vibe-acmg/internal/gateway"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPP3BP4(t *testing.T) {
	th := DefaultThresholds()
	tests := []struct {
		name     string
		term     string
		strategy ScoreStrategy
		scores   gateway.ScoreSet
		wantPP3  Prediction
		wantBP4  Prediction
	}{
		{"REVEL deleterious", TermMissense, StrategyDefault, gateway.ScoreSet{REVEL: gateway.Some(0.9)}, Met, NotMet},
		{"REVEL at cutoff", TermMissense, StrategyDefault, gateway.ScoreSet{REVEL: gateway.Some(th.REVELPathogenic)}, Met, NotMet},
		{"REVEL one ULP below cutoff", TermMissense, StrategyDefault, gateway.ScoreSet{REVEL: gateway.Some(math.Nextafter(th.REVELPathogenic, 0))}, NotMet, NotMet},
		{"REVEL at benign cutoff", TermMissense, StrategyDefault, gateway.ScoreSet{REVEL: gateway.Some(th.REVELBenign)}, NotMet, Met},
		{"REVEL one ULP above benign cutoff", TermMissense, StrategyDefault, gateway.ScoreSet{REVEL: gateway.Some(math.Nextafter(th.REVELBenign, 1))}, NotMet, NotMet},
		{"any single predictor suffices", TermMissense, StrategyDefault, gateway.ScoreSet{REVEL: gateway.Some(0.5), AlphaMissense: gateway.Some(0.8)}, Met, NotMet},
		{"CADD benign", TermMissense, StrategyDefault, gateway.ScoreSet{CADDPhred: gateway.Some(10)}, NotMet, Met},
		{"conflicting predictors", TermMissense, StrategyDefault, gateway.ScoreSet{REVEL: gateway.Some(0.9), CADDPhred: gateway.Some(10)}, Met, Met},
		{"splice region uses dbscSNV", TermSpliceRegion, StrategyDefault, gateway.ScoreSet{AdaScore: gateway.Some(0.7), REVEL: gateway.Some(0.1)}, Met, NotMet},
		{"splice region benign rf", TermSpliceRegion, StrategyDefault, gateway.ScoreSet{RFScore: gateway.Some(0.1)}, NotMet, Met},
		{"synonymous uses SpliceAI", TermSynonymous, StrategyDefault, gateway.ScoreSet{SpliceAIDonLoss: gateway.Some(0.05)}, NotMet, Met},
		{"SpliceAI strategy on missense", TermMissense, StrategySpliceAI, gateway.ScoreSet{SpliceAIAccGain: gateway.Some(0.5), REVEL: gateway.Some(0.1)}, Met, NotMet},
		{"REVEL strategy ignores CADD", TermMissense, StrategyREVEL, gateway.ScoreSet{REVEL: gateway.Some(0.5), CADDPhred: gateway.Some(35)}, NotMet, NotMet},
		{"BayesDel strategy", TermMissense, StrategyBayesDel, gateway.ScoreSet{BayesDelNoAF: gateway.Some(0.2), REVEL: gateway.Some(0.1)}, Met, NotMet},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newData(t, point(t, "1", 1000, "A", "G"), tt.term)
			d.Record = &gateway.VariantRecord{Scores: tt.scores}
			d.Rules.ScoreStrategy = tt.strategy

			results, err := PP3BP4{}.Evaluate(context.Background(), d)
			require.NoError(t, err)
			assert.Equal(t, tt.wantPP3, resultFor(t, results, PP3).Prediction, "PP3")
			assert.Equal(t, tt.wantBP4, resultFor(t, results, BP4).Prediction, "BP4")
		})
	}
}

func TestPP3BP4_SidesIndependent(t *testing.T) {
	d := newData(t, point(t, "1", 1000, "A", "G"), TermMissense)
	d.Record = &gateway.VariantRecord{Scores: gateway.ScoreSet{REVEL: gateway.Some(0.9), CADDPhred: gateway.Some(10)}}
	results, err := PP3BP4{}.Evaluate(context.Background(), d)
	require.NoError(t, err)

	pp3, bp4 := resultFor(t, results, PP3), resultFor(t, results, BP4)
	assert.Equal(t, Met, pp3.Prediction)
	assert.Equal(t, "missense predictors: REVEL=0.9", pp3.Summary)
	assert.Equal(t, Met, bp4.Prediction)
	assert.Equal(t, "missense predictors: CADD=10", bp4.Summary)
}

func TestPP3BP4_AllScoresAbsent(t *testing.T) {
	tests := []struct {
		name     string
		term     string
		strategy ScoreStrategy
		scores   gateway.ScoreSet
	}{
		{"missense", TermMissense, StrategyDefault, gateway.ScoreSet{}},
		{"splice without dbscSNV", TermSpliceDonor, StrategyDefault, gateway.ScoreSet{REVEL: gateway.Some(0.9)}},
		{"REVEL strategy without REVEL", TermMissense, StrategyREVEL, gateway.ScoreSet{CADDPhred: gateway.Some(30)}},
		{"intronic without SpliceAI", TermIntron, StrategyDefault, gateway.ScoreSet{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newData(t, point(t, "1", 1000, "A", "G"), tt.term)
			d.Record = &gateway.VariantRecord{Scores: tt.scores}
			d.Rules.ScoreStrategy = tt.strategy
			_, err := PP3BP4{}.Evaluate(context.Background(), d)
			var missingErr *MissingDataError
			assert.True(t, errors.As(err, &missingErr), "got %v", err)
		})
	}
}
