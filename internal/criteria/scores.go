package criteria

import (
	"fmt"
	"strings"

	"github.com/inodb/vibe-acmg/internal/gateway"
)

// ScoreCutoff pairs a named score with the cutoff it is compared against.
type ScoreCutoff struct {
	Name   string
	Score  gateway.Score
	Cutoff float64
}

// Crossing is the outcome of an OR combinator over several scores.
type Crossing struct {
	Met       bool
	By        string  // first score that crossed its cutoff
	Value     float64 // value of that score
	Evaluated []string
}

// AllAbsent reports whether none of the scores had a value.
func (c Crossing) AllAbsent() bool { return len(c.Evaluated) == 0 }

func (c Crossing) String() string {
	if c.Met {
		return fmt.Sprintf("%s=%g", c.By, c.Value)
	}
	if c.AllAbsent() {
		return "no scores available"
	}
	return "evaluated " + strings.Join(c.Evaluated, ", ")
}

// AnyAtLeast is met when any present score is >= its cutoff. Absent scores
// are skipped.
func AnyAtLeast(scores ...ScoreCutoff) Crossing {
	return anyCrossing(scores, func(v, cut float64) bool { return v >= cut })
}

// AnyAtMost is met when any present score is <= its cutoff. Absent scores
// are skipped.
func AnyAtMost(scores ...ScoreCutoff) Crossing {
	return anyCrossing(scores, func(v, cut float64) bool { return v <= cut })
}

func anyCrossing(scores []ScoreCutoff, crosses func(v, cut float64) bool) Crossing {
	var out Crossing
	for _, s := range scores {
		v, ok := s.Score.Get()
		if !ok {
			continue
		}
		out.Evaluated = append(out.Evaluated, s.Name)
		if !out.Met && crosses(v, s.Cutoff) {
			out.Met, out.By, out.Value = true, s.Name, v
		}
	}
	return out
}
