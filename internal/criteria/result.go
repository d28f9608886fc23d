// Package criteria implements the ACMG criterion predicates, the data bundle
// they evaluate and the tagged results they produce.
package criteria

import (
	"fmt"
	"strings"
)

// Prediction is the tri-state outcome of a criterion, plus Failed for
// missing or invalid inputs.
type Prediction int

const (
	Met Prediction = iota + 1
	NotMet
	NotApplicable
	Failed
)

var predictionNames = map[Prediction]string{
	Met:           "Met",
	NotMet:        "NotMet",
	NotApplicable: "NotApplicable",
	Failed:        "Failed",
}

func (p Prediction) String() string {
	if s, ok := predictionNames[p]; ok {
		return s
	}
	return fmt.Sprintf("Prediction(%d)", int(p))
}

// MarshalText implements encoding.TextMarshaler.
func (p Prediction) MarshalText() ([]byte, error) {
	if _, ok := predictionNames[p]; !ok {
		return nil, fmt.Errorf("invalid prediction %d", int(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Prediction) UnmarshalText(text []byte) error {
	for k, v := range predictionNames {
		if strings.EqualFold(v, string(text)) {
			*p = k
			return nil
		}
	}
	return fmt.Errorf("unknown prediction %q", text)
}

// Strength is one of the eight evidentiary levels.
type Strength int

const (
	StrengthNotSet Strength = iota
	PathogenicVeryStrong
	PathogenicStrong
	PathogenicModerate
	PathogenicSupporting
	BenignStandAlone
	BenignStrong
	BenignSupporting
)

var strengthNames = []string{
	"NotSet",
	"PathogenicVeryStrong",
	"PathogenicStrong",
	"PathogenicModerate",
	"PathogenicSupporting",
	"BenignStandAlone",
	"BenignStrong",
	"BenignSupporting",
}

func (s Strength) String() string {
	if s >= 0 && int(s) < len(strengthNames) {
		return strengthNames[s]
	}
	return fmt.Sprintf("Strength(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s Strength) MarshalText() ([]byte, error) {
	if s < 0 || int(s) >= len(strengthNames) {
		return nil, fmt.Errorf("invalid strength %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText accepts the level names and the short forms used in panel
// files ("very_strong", "strong", "moderate", "supporting").
func (s *Strength) UnmarshalText(text []byte) error {
	v, err := ParseStrength(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseStrength parses a strength name.
func ParseStrength(name string) (Strength, error) {
	for i, n := range strengthNames {
		if strings.EqualFold(n, name) {
			return Strength(i), nil
		}
	}
	switch strings.ToLower(name) {
	case "very_strong":
		return PathogenicVeryStrong, nil
	case "strong":
		return PathogenicStrong, nil
	case "moderate":
		return PathogenicModerate, nil
	case "supporting":
		return PathogenicSupporting, nil
	case "stand_alone", "standalone":
		return BenignStandAlone, nil
	case "benign_strong":
		return BenignStrong, nil
	case "benign_supporting":
		return BenignSupporting, nil
	}
	return StrengthNotSet, fmt.Errorf("unknown strength %q", name)
}

// Pathogenic reports whether s is a pathogenic level.
func (s Strength) Pathogenic() bool {
	return s >= PathogenicVeryStrong && s <= PathogenicSupporting
}

// Criterion is the name of an ACMG criterion.
type Criterion string

const (
	PVS1 Criterion = "PVS1"
	PS1  Criterion = "PS1"
	PS2  Criterion = "PS2"
	PS3  Criterion = "PS3"
	PS4  Criterion = "PS4"
	PM1  Criterion = "PM1"
	PM2  Criterion = "PM2"
	PM3  Criterion = "PM3"
	PM4  Criterion = "PM4"
	PM5  Criterion = "PM5"
	PM6  Criterion = "PM6"
	PP1  Criterion = "PP1"
	PP2  Criterion = "PP2"
	PP3  Criterion = "PP3"
	PP4  Criterion = "PP4"
	PP5  Criterion = "PP5"
	BA1  Criterion = "BA1"
	BS1  Criterion = "BS1"
	BS2  Criterion = "BS2"
	BS3  Criterion = "BS3"
	BS4  Criterion = "BS4"
	BP1  Criterion = "BP1"
	BP2  Criterion = "BP2"
	BP3  Criterion = "BP3"
	BP4  Criterion = "BP4"
	BP5  Criterion = "BP5"
	BP6  Criterion = "BP6"
	BP7  Criterion = "BP7"
)

// All lists every criterion in reporting order.
var All = []Criterion{
	PVS1, PS1, PS2, PS3, PS4,
	PM1, PM2, PM3, PM4, PM5, PM6,
	PP1, PP2, PP3, PP4, PP5,
	BA1, BS1, BS2, BS3, BS4,
	BP1, BP2, BP3, BP4, BP5, BP6, BP7,
}

// ParseCriterion returns the criterion named s (case-insensitive).
func ParseCriterion(s string) (Criterion, error) {
	for _, c := range All {
		if strings.EqualFold(string(c), s) {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown criterion %q", s)
}

// DefaultStrength returns the strength a criterion carries when no override
// applies.
func DefaultStrength(c Criterion) Strength {
	s := string(c)
	switch {
	case strings.HasPrefix(s, "PVS"):
		return PathogenicVeryStrong
	case strings.HasPrefix(s, "PS"):
		return PathogenicStrong
	case strings.HasPrefix(s, "PM"):
		return PathogenicModerate
	case strings.HasPrefix(s, "PP"):
		return PathogenicSupporting
	case strings.HasPrefix(s, "BA"):
		return BenignStandAlone
	case strings.HasPrefix(s, "BS"):
		return BenignStrong
	case strings.HasPrefix(s, "BP"):
		return BenignSupporting
	}
	return StrengthNotSet
}

// Result is the outcome of one criterion for one variant.
type Result struct {
	Criterion  Criterion  `json:"name"`
	Prediction Prediction `json:"prediction"`
	Strength   Strength   `json:"strength"`
	Summary    string     `json:"summary"`
}

func newResult(c Criterion, p Prediction, summary string) Result {
	return Result{Criterion: c, Prediction: p, Strength: DefaultStrength(c), Summary: summary}
}

// Metf builds a Met result at the criterion's default strength.
func Metf(c Criterion, format string, args ...any) Result {
	return newResult(c, Met, fmt.Sprintf(format, args...))
}

// NotMetf builds a NotMet result at the criterion's default strength.
func NotMetf(c Criterion, format string, args ...any) Result {
	return newResult(c, NotMet, fmt.Sprintf(format, args...))
}

// NotApplicablef builds a NotApplicable result.
func NotApplicablef(c Criterion, format string, args ...any) Result {
	return newResult(c, NotApplicable, fmt.Sprintf(format, args...))
}

// FailedResult builds a Failed result carrying the error text.
func FailedResult(c Criterion, err error) Result {
	return newResult(c, Failed, err.Error())
}

// Set holds at most one result per criterion.
type Set map[Criterion]Result

// Ordered returns the results in reporting order.
func (s Set) Ordered() []Result {
	out := make([]Result, 0, len(s))
	for _, c := range All {
		if r, ok := s[c]; ok {
			out = append(out, r)
		}
	}
	return out
}

// Met returns the criteria that are met, in reporting order.
func (s Set) Met() []Result {
	var out []Result
	for _, r := range s.Ordered() {
		if r.Prediction == Met {
			out = append(out, r)
		}
	}
	return out
}
