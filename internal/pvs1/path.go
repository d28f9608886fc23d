// Package pvs1 implements the null-variant decision procedure behind the
// PVS1 criterion for sequence and structural variants.
package pvs1

import (
	"fmt"
	"strings"

	"github.com/inodb/vibe-acmg/internal/criteria"
)

// Outcome is the loss-of-function strength reached by a decision path.
type Outcome int

const (
	OutcomeNotSet Outcome = iota
	OutcomeVeryStrong
	OutcomeStrong
	OutcomeModerate
	OutcomeSupporting
	OutcomeNotPVS1
	OutcomeNotApplicable
)

var outcomeNames = map[Outcome]string{
	OutcomeNotSet:        "NotSet",
	OutcomeVeryStrong:    "PVS1",
	OutcomeStrong:        "PVS1_Strong",
	OutcomeModerate:      "PVS1_Moderate",
	OutcomeSupporting:    "PVS1_Supporting",
	OutcomeNotPVS1:       "NotPVS1",
	OutcomeNotApplicable: "NotApplicable",
}

func (o Outcome) String() string {
	if s, ok := outcomeNames[o]; ok {
		return s
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// Strength returns the criterion strength of a met outcome.
func (o Outcome) Strength() criteria.Strength {
	switch o {
	case OutcomeVeryStrong:
		return criteria.PathogenicVeryStrong
	case OutcomeStrong:
		return criteria.PathogenicStrong
	case OutcomeModerate:
		return criteria.PathogenicModerate
	case OutcomeSupporting:
		return criteria.PathogenicSupporting
	}
	return criteria.DefaultStrength(criteria.PVS1)
}

// Met reports whether the outcome applies PVS1 at some strength.
func (o Outcome) Met() bool {
	return o >= OutcomeVeryStrong && o <= OutcomeSupporting
}

// Path identifies the branch of the decision tree that was taken.
type Path string

const (
	PathNotSet Path = ""

	PathPTEN Path = "PTEN"
	PathNF1  Path = "NF1"
	PathNF2  Path = "NF2"
	PathNF3  Path = "NF3"
	PathNF4  Path = "NF4"
	PathNF5  Path = "NF5"
	PathNF6  Path = "NF6"
	PathSS1  Path = "SS1"
	PathSS2  Path = "SS2"
	PathSS3  Path = "SS3"
	PathSS4  Path = "SS4"
	PathSS5  Path = "SS5"
	PathSS6  Path = "SS6"
	PathSS7  Path = "SS7"
	PathSS8  Path = "SS8"
	PathSS9  Path = "SS9"
	PathSS10 Path = "SS10"
	PathIC1  Path = "IC1"
	PathIC2  Path = "IC2"
	PathIC3  Path = "IC3"

	PathDEL1   Path = "DEL1"
	PathDEL2   Path = "DEL2"
	PathDEL3   Path = "DEL3"
	PathDEL4   Path = "DEL4"
	PathDEL5_1 Path = "DEL5_1"
	PathDEL6_1 Path = "DEL6_1"
	PathDEL7_1 Path = "DEL7_1"
	PathDEL5_2 Path = "DEL5_2"
	PathDEL6_2 Path = "DEL6_2"
	PathDEL7_2 Path = "DEL7_2"
	PathDEL8   Path = "DEL8"
	PathDUP1   Path = "DUP1"
	PathDUP2_1 Path = "DUP2_1"
	PathDUP2_2 Path = "DUP2_2"
	PathDUP3   Path = "DUP3"
)

const (
	nmdYes        = "predicted to undergo NMD"
	nmdNo         = "not predicted to undergo NMD"
	relevant      = "exon is present in biologically relevant transcripts"
	notRelevant   = "exon is absent from biologically relevant transcripts"
	critical      = "truncated or altered region is critical to protein function"
	unknownRole   = "role of the region in protein function is unknown"
	lofFrequent   = "LoF variants in this exon are frequent in the general population or the exon is absent from biologically relevant transcripts"
	lofRare       = "LoF variants in this exon are rare in the general population and the exon is present in biologically relevant transcripts"
	removesMore   = "variant removes >10% of the protein"
	removesLess   = "variant removes <10% of the protein"
	skipDisrupts  = "exon skipping disrupts the reading frame"
	skipPreserves = "exon skipping preserves the reading frame"
	delDisrupts   = "exon deletion disrupts the reading frame"
	delPreserves  = "exon deletion preserves the reading frame"
)

func steps(s ...string) string { return strings.Join(s, " -> ") }

var descriptions = map[Path]string{
	PathPTEN: "PTEN truncation upstream of codon 374",
	PathNF1:  steps(nmdYes, relevant),
	PathNF2:  steps(nmdYes, notRelevant),
	PathNF3:  steps(nmdNo, critical),
	PathNF4:  steps(nmdNo, unknownRole, lofFrequent),
	PathNF5:  steps(nmdNo, unknownRole, lofRare, removesMore),
	PathNF6:  steps(nmdNo, unknownRole, lofRare, removesLess),
	PathSS1:  steps(skipDisrupts, nmdYes, relevant),
	PathSS2:  steps(skipDisrupts, nmdYes, notRelevant),
	PathSS3:  steps(skipDisrupts, nmdNo, critical),
	PathSS4:  steps(skipDisrupts, nmdNo, unknownRole, lofFrequent),
	PathSS5:  steps(skipDisrupts, nmdNo, unknownRole, lofRare, removesMore),
	PathSS6:  steps(skipDisrupts, nmdNo, unknownRole, lofRare, removesLess),
	PathSS7:  steps(skipPreserves, unknownRole, lofFrequent),
	PathSS8:  steps(skipPreserves, unknownRole, lofRare, removesMore),
	PathSS9:  steps(skipPreserves, unknownRole, lofRare, removesLess),
	PathSS10: steps(skipPreserves, critical),
	PathIC1:  steps("in-frame alternative start codon downstream", "pathogenic variants upstream of the alternative start codon"),
	PathIC2:  steps("in-frame alternative start codon downstream", "no pathogenic variants upstream of the alternative start codon"),
	PathIC3:  "no in-frame alternative start codon in other transcripts",

	PathDEL1:   "full gene deletion",
	PathDEL2:   steps(delDisrupts, nmdYes, relevant),
	PathDEL3:   steps(delDisrupts, nmdYes, notRelevant),
	PathDEL4:   steps(delDisrupts, nmdNo, critical),
	PathDEL5_1: steps(delDisrupts, nmdNo, unknownRole, lofFrequent),
	PathDEL6_1: steps(delDisrupts, nmdNo, unknownRole, lofRare, removesMore),
	PathDEL7_1: steps(delDisrupts, nmdNo, unknownRole, lofRare, removesLess),
	PathDEL5_2: steps(delPreserves, unknownRole, lofFrequent),
	PathDEL6_2: steps(delPreserves, unknownRole, lofRare, removesMore),
	PathDEL7_2: steps(delPreserves, unknownRole, lofRare, removesLess),
	PathDEL8:   steps(delPreserves, critical),
	PathDUP1:   steps("proven in tandem", "reading frame disrupted and NMD predicted"),
	PathDUP2_1: steps("proven in tandem", "no or unknown impact on reading frame and NMD"),
	PathDUP2_2: steps("presumed in tandem", "no or unknown impact on reading frame and NMD"),
	PathDUP3:   steps("presumed in tandem", "reading frame presumed disrupted and NMD predicted"),
}

// Description returns the human-readable chain of decisions for p.
func (p Path) Description() string {
	if d, ok := descriptions[p]; ok {
		return d
	}
	return "no decision path"
}

// Decision is the terminal state of the procedure.
type Decision struct {
	Path    Path
	Outcome Outcome
	Detail  string // reason when no path applies, otherwise a qualifier of the path
}

// Result converts the decision into the PVS1 criterion result.
func (d Decision) Result() criteria.Result {
	summary := d.Detail
	if d.Path != PathNotSet {
		summary = fmt.Sprintf("%s: %s", d.Path, d.Path.Description())
		if d.Detail != "" {
			summary += " (" + d.Detail + ")"
		}
	}
	switch {
	case d.Outcome.Met():
		r := criteria.Metf(criteria.PVS1, "%s", summary)
		r.Strength = d.Outcome.Strength()
		return r
	case d.Outcome == OutcomeNotApplicable:
		return criteria.NotApplicablef(criteria.PVS1, "%s", summary)
	}
	return criteria.NotMetf(criteria.PVS1, "%s", summary)
}

func decide(p Path, o Outcome) Decision { return Decision{Path: p, Outcome: o} }

func notApplicable(format string, args ...any) Decision {
	return Decision{Outcome: OutcomeNotApplicable, Detail: fmt.Sprintf(format, args...)}
}
