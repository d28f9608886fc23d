package gateway

import "strings"

// Score is an optional predictor value. The zero Score is absent.
type Score struct {
	value   float64
	present bool
}

// Some returns a present score.
func Some(v float64) Score { return Score{value: v, present: true} }

// None returns an absent score.
func None() Score { return Score{} }

// ScoreFromPtr converts a decoded JSON pointer into a Score.
func ScoreFromPtr(p *float64) Score {
	if p == nil {
		return None()
	}
	return Some(*p)
}

// Get returns the value and whether it is present.
func (s Score) Get() (float64, bool) { return s.value, s.present }

// Present reports whether the score has a value.
func (s Score) Present() bool { return s.present }

// Or returns s if present, otherwise other.
func (s Score) Or(other Score) Score {
	if s.present {
		return s
	}
	return other
}

// ScoreSet holds the predictor and conservation scores of one variant.
type ScoreSet struct {
	PhyloP100       Score
	GERP            Score
	REVEL           Score
	CADDPhred       Score
	BayesDelNoAF    Score
	AlphaMissense   Score
	SpliceAIAccGain Score
	SpliceAIAccLoss Score
	SpliceAIDonGain Score
	SpliceAIDonLoss Score
	AdaScore        Score // dbscSNV AdaBoost
	RFScore         Score // dbscSNV random forest
}

// SpliceAIMax returns the largest of the four SpliceAI delta scores.
func (s ScoreSet) SpliceAIMax() Score {
	best := None()
	for _, sc := range []Score{s.SpliceAIAccGain, s.SpliceAIAccLoss, s.SpliceAIDonGain, s.SpliceAIDonLoss} {
		v, ok := sc.Get()
		if !ok {
			continue
		}
		if b, bok := best.Get(); !bok || v > b {
			best = Some(v)
		}
	}
	return best
}

// AlleleCounts are allele counts for one sex or the whole cohort.
type AlleleCounts struct {
	AC      int64
	AN      int64
	Nhomalt int64
	AF      float64
}

// CohortFrequency is the population frequency in one gnomAD cohort.
type CohortFrequency struct {
	Dataset       string // "exomes" or "genomes"
	Cohort        string // "" for all, "controls", "non_cancer", ...
	Overall       AlleleCounts
	XX            AlleleCounts
	XY            AlleleCounts
	AFGrpmax      Score
	ANGrpmax      int64
	NhomaltGrpmax int64
}

// MitoFrequency holds gnomAD mtDNA frequencies.
type MitoFrequency struct {
	AN    int64
	ACHet int64
	ACHom int64
	AFHet float64
	AFHom float64
}

// Clinical significance values as reported by ClinVar.
const (
	SignificancePathogenic       = "Pathogenic"
	SignificanceLikelyPathogenic = "Likely pathogenic"
	SignificanceBenign           = "Benign"
	SignificanceLikelyBenign     = "Likely benign"
	SignificanceUncertain        = "Uncertain significance"
)

// ClinVarRecord is a single ClinVar germline classification.
type ClinVarRecord struct {
	AccessionID   string
	Name          string
	Significance  string
	ReviewStatus  string
	VariationType string
	Pos           int64
	Ref           string
	Alt           string
	HGNCIDs       []string
	Consequences  []string
}

// IsPathogenic reports P or LP classification, including combined
// "Pathogenic/Likely pathogenic".
func (r ClinVarRecord) IsPathogenic() bool {
	s := strings.ToLower(r.Significance)
	if strings.Contains(s, "conflicting") {
		return false
	}
	return strings.Contains(s, "pathogenic")
}

// IsBenign reports B or LB classification.
func (r ClinVarRecord) IsBenign() bool {
	s := strings.ToLower(r.Significance)
	if strings.Contains(s, "conflicting") {
		return false
	}
	return strings.Contains(s, "benign")
}

// VariantRecord aggregates everything known about a single variant.
type VariantRecord struct {
	Scores      ScoreSet
	Frequencies []CohortFrequency
	Mito        *MitoFrequency
	ClinVar     []ClinVarRecord
	HGVSp       []string // protein notations from dbNSFP, may be empty
}

// PathogenicClinVar reports whether any ClinVar record is P/LP.
func (r *VariantRecord) PathogenicClinVar() bool {
	if r == nil {
		return false
	}
	for _, c := range r.ClinVar {
		if c.IsPathogenic() {
			return true
		}
	}
	return false
}

// RangeVariant is a population variant returned by a region query.
type RangeVariant struct {
	Pos          int64
	Ref          string
	Alt          string
	Consequences []string
	AFGrpmax     float64
}

// RangeRecords are the variants overlapping a genomic interval.
type RangeRecords struct {
	Population []RangeVariant
	ClinVar    []ClinVarRecord
}

// GeneInfo holds gene-level annotations used by inheritance and constraint
// logic.
type GeneInfo struct {
	HGNCID            string
	Symbol            string
	ClinGenHaploScore *int  // ClinGen haploinsufficiency score (0-3, 30, 40)
	DecipherPHI       Score // DECIPHER haploinsufficiency probability
	DominoScore       Score // DOMINO dominant inheritance likelihood
	MissenseZ         Score // gnomAD missense Z score
}
