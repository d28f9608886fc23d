package criteria

import (
	"fmt"
	"slices"
	"strings"
)

// ScoreStrategy selects the score source used by PP3/BP4.
type ScoreStrategy string

const (
	// StrategyDefault uses missense predictors for missense changes, the
	// dbscSNV scores for splice-affecting changes and SpliceAI otherwise.
	StrategyDefault ScoreStrategy = ""
	// StrategyREVEL uses REVEL alone for missense changes.
	StrategyREVEL ScoreStrategy = "revel"
	// StrategySpliceAI uses the SpliceAI maximum delta for every change.
	StrategySpliceAI ScoreStrategy = "spliceai"
	// StrategyBayesDel uses BayesDel for missense changes and SpliceAI otherwise.
	StrategyBayesDel ScoreStrategy = "bayesdel"
)

// ParseScoreStrategy validates a strategy name.
func ParseScoreStrategy(s string) (ScoreStrategy, error) {
	switch ScoreStrategy(strings.ToLower(s)) {
	case StrategyDefault, "default":
		return StrategyDefault, nil
	case StrategyREVEL:
		return StrategyREVEL, nil
	case StrategySpliceAI:
		return StrategySpliceAI, nil
	case StrategyBayesDel:
		return StrategyBayesDel, nil
	}
	return "", fmt.Errorf("unknown score strategy %q", s)
}

// CriticalRegion is a curated protein region used by PM1. A region matches
// by exon number when Exons is set, otherwise by residue range.
type CriticalRegion struct {
	Name             string
	Start            int64 // first residue, 1-based
	End              int64 // last residue; equal to Start for a single residue
	Exons            []int
	ExcludedResidues []int64
	Strength         Strength // PathogenicModerate when unset
	Transcripts      []string // restrict to these transcripts (unversioned)
}

// Matches reports whether the region covers the given protein position or
// exon on transcript txID.
func (r CriticalRegion) Matches(txID string, proteinPos int64, exon int) bool {
	if len(r.Transcripts) > 0 && !slices.Contains(r.Transcripts, stripVersion(txID)) {
		return false
	}
	if len(r.Exons) > 0 {
		return exon > 0 && slices.Contains(r.Exons, exon)
	}
	if proteinPos <= 0 || slices.Contains(r.ExcludedResidues, proteinPos) {
		return false
	}
	return proteinPos >= r.Start && proteinPos <= r.End
}

func stripVersion(id string) string {
	if i := strings.IndexByte(id, '.'); i >= 0 {
		return id[:i]
	}
	return id
}

// GeneRules are the gene-specific rule changes that accompany a Thresholds
// value. The zero GeneRules applies no changes.
type GeneRules struct {
	Panel             string
	Disabled          map[Criterion]string // criterion -> rationale
	StrengthOverrides map[Criterion]Strength
	CriticalRegions   []CriticalRegion
	ScoreStrategy     ScoreStrategy
	// PP2AlwaysOnMissense marks PP2 met for every missense change.
	PP2AlwaysOnMissense bool
	// BP3NotApplicable marks BP3 not applicable for the whole gene.
	BP3NotApplicable bool
	// PVS1ExcludedExons lists exon numbers whose loss does not disrupt the
	// reading frame in a biologically relevant way.
	PVS1ExcludedExons []int
}

// IsDisabled reports whether c is switched off and why.
func (g GeneRules) IsDisabled(c Criterion) (string, bool) {
	why, ok := g.Disabled[c]
	return why, ok
}
