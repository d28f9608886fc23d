// Package panel holds the gene-specific rule sets published by expert
// panels and merges them with the engine defaults.
package panel

import (
	"fmt"
	"maps"
	"slices"

	"github.com/pelletier/go-toml/v2"

	"github.com/inodb/vibe-acmg/internal/criteria"
	"github.com/inodb/vibe-acmg/internal/gateway"
)

// Panel is one expert panel rule set covering one or more genes.
type Panel struct {
	Name  string   `toml:"name"`
	Title string   `toml:"title"`
	Links []string `toml:"links"`
	Genes []Gene   `toml:"genes"`
}

// Gene is the rule record for one gene.
type Gene struct {
	ID     string `toml:"id"`
	Symbol string `toml:"symbol"`

	Thresholds          map[string]float64 `toml:"thresholds"`
	Disabled            map[string]string  `toml:"disabled"`
	Strengths           map[string]string  `toml:"strengths"`
	PM1                 []Region           `toml:"pm1"`
	ScoreStrategy       string             `toml:"score_strategy"`
	PP2AlwaysOnMissense bool               `toml:"pp2_always_on_missense"`
	BP3NotApplicable    bool               `toml:"bp3_not_applicable"`
	PVS1ExcludedExons   []int              `toml:"pvs1_excluded_exons"`

	// When holds changes that only apply to some consequences.
	When []Conditional `toml:"when"`
}

// Region is a PM1 critical region. Residues lists single residues sharing
// the name and strength; otherwise Start and End give a range. Exons
// matches by exon number instead.
type Region struct {
	Name             string   `toml:"name"`
	Start            int64    `toml:"start"`
	End              int64    `toml:"end"`
	Residues         []int64  `toml:"residues"`
	Exons            []int    `toml:"exons"`
	ExcludedResidues []int64  `toml:"excluded_residues"`
	Strength         string   `toml:"strength"`
	Transcripts      []string `toml:"transcripts"`
}

// Conditional applies thresholds and disabled criteria when the variant's
// consequence carries one of Terms.
type Conditional struct {
	Terms      []string           `toml:"terms"`
	Thresholds map[string]float64 `toml:"thresholds"`
	Disabled   map[string]string  `toml:"disabled"`
}

// Parse decodes and validates a TOML panel file. source names the file in
// error messages.
func Parse(data []byte, source string) (Panel, error) {
	var p Panel
	if err := toml.Unmarshal(data, &p); err != nil {
		return Panel{}, fmt.Errorf("parse panel %s: %w", source, err)
	}
	if p.Name == "" {
		return Panel{}, fmt.Errorf("panel %s: missing name", source)
	}
	for _, g := range p.Genes {
		if _, err := g.compile(); err != nil {
			return Panel{}, fmt.Errorf("panel %s: gene %s: %w", p.Name, g.label(), err)
		}
	}
	return p, nil
}

func (g Gene) label() string {
	if g.Symbol != "" {
		return g.Symbol
	}
	return g.ID
}

// compiled is a Gene converted to engine types, checked once at load time.
type compiled struct {
	panel      string
	symbol     string
	thresholds map[string]float64
	rules      criteria.GeneRules
	when       []compiledConditional
}

type compiledConditional struct {
	terms      []string
	thresholds map[string]float64
	disabled   map[criteria.Criterion]string
}

func (g Gene) compile() (*compiled, error) {
	if g.ID == "" {
		return nil, fmt.Errorf("missing id")
	}
	if err := checkThresholds(g.Thresholds); err != nil {
		return nil, err
	}
	disabled, err := parseDisabled(g.Disabled)
	if err != nil {
		return nil, err
	}
	strategy, err := criteria.ParseScoreStrategy(g.ScoreStrategy)
	if err != nil {
		return nil, err
	}
	c := &compiled{
		symbol:     g.Symbol,
		thresholds: g.Thresholds,
		rules: criteria.GeneRules{
			Disabled:            disabled,
			ScoreStrategy:       strategy,
			PP2AlwaysOnMissense: g.PP2AlwaysOnMissense,
			BP3NotApplicable:    g.BP3NotApplicable,
			PVS1ExcludedExons:   g.PVS1ExcludedExons,
		},
	}
	if len(g.Strengths) > 0 {
		c.rules.StrengthOverrides = make(map[criteria.Criterion]criteria.Strength, len(g.Strengths))
		for name, s := range g.Strengths {
			crit, err := criteria.ParseCriterion(name)
			if err != nil {
				return nil, err
			}
			st, err := criteria.ParseStrength(s)
			if err != nil {
				return nil, err
			}
			c.rules.StrengthOverrides[crit] = st
		}
	}
	for i, r := range g.PM1 {
		regions, err := r.expand()
		if err != nil {
			return nil, fmt.Errorf("pm1 region %d: %w", i+1, err)
		}
		c.rules.CriticalRegions = append(c.rules.CriticalRegions, regions...)
	}
	for _, w := range g.When {
		if len(w.Terms) == 0 {
			return nil, fmt.Errorf("conditional without terms")
		}
		if err := checkThresholds(w.Thresholds); err != nil {
			return nil, err
		}
		d, err := parseDisabled(w.Disabled)
		if err != nil {
			return nil, err
		}
		c.when = append(c.when, compiledConditional{terms: w.Terms, thresholds: w.Thresholds, disabled: d})
	}
	return c, nil
}

func checkThresholds(m map[string]float64) error {
	scratch := criteria.DefaultThresholds()
	return scratch.Apply(m)
}

func parseDisabled(m map[string]string) (map[criteria.Criterion]string, error) {
	if len(m) == 0 {
		return nil, nil
	}
	out := make(map[criteria.Criterion]string, len(m))
	for name, why := range m {
		c, err := criteria.ParseCriterion(name)
		if err != nil {
			return nil, err
		}
		if why == "" {
			why = fmt.Sprintf("%s is not applicable for the gene", c)
		}
		out[c] = why
	}
	return out, nil
}

func (r Region) expand() ([]criteria.CriticalRegion, error) {
	strength := criteria.PathogenicModerate
	if r.Strength != "" {
		s, err := criteria.ParseStrength(r.Strength)
		if err != nil {
			return nil, err
		}
		strength = s
	}
	base := criteria.CriticalRegion{
		Name:             r.Name,
		Exons:            r.Exons,
		ExcludedResidues: r.ExcludedResidues,
		Strength:         strength,
		Transcripts:      r.Transcripts,
	}
	switch {
	case len(r.Exons) > 0:
		return []criteria.CriticalRegion{base}, nil
	case len(r.Residues) > 0:
		out := make([]criteria.CriticalRegion, 0, len(r.Residues))
		for _, res := range r.Residues {
			c := base
			c.Start, c.End = res, res
			out = append(out, c)
		}
		return out, nil
	case r.Start <= 0 || r.End < r.Start:
		return nil, fmt.Errorf("invalid residue range %d-%d", r.Start, r.End)
	}
	base.Start, base.End = r.Start, r.End
	return []criteria.CriticalRegion{base}, nil
}

// effective merges the record with defaults for one consequence.
func (c *compiled) effective(csq *gateway.Consequence) (criteria.Thresholds, criteria.GeneRules) {
	th := criteria.DefaultThresholds()
	// Validated in compile.
	_ = th.Apply(c.thresholds)

	rules := c.rules
	rules.Panel = c.panel
	rules.Disabled = maps.Clone(c.rules.Disabled)
	rules.StrengthOverrides = maps.Clone(c.rules.StrengthOverrides)
	rules.CriticalRegions = slices.Clone(c.rules.CriticalRegions)
	rules.PVS1ExcludedExons = slices.Clone(c.rules.PVS1ExcludedExons)

	for _, w := range c.when {
		if csq == nil || !hasAnyTerm(csq, w.terms) {
			continue
		}
		_ = th.Apply(w.thresholds)
		if len(w.disabled) > 0 && rules.Disabled == nil {
			rules.Disabled = make(map[criteria.Criterion]string, len(w.disabled))
		}
		maps.Copy(rules.Disabled, w.disabled)
	}
	return th, rules
}

func hasAnyTerm(csq *gateway.Consequence, terms []string) bool {
	for _, t := range terms {
		if slices.Contains(csq.Terms, t) {
			return true
		}
	}
	return false
}
