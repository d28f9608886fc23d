package criteria

import (
	"context"
	"fmt"

	"github.com/inodb/vibe-acmg/internal/gateway"
	"github.com/inodb/vibe-acmg/internal/genome"
	"github.com/inodb/vibe-acmg/internal/variant"
)

// BA1Exceptions are common founder variants that must never be classified
// benign stand-alone by frequency alone. Keys are PointVariant.String().
var BA1Exceptions = map[string]string{
	"GRCh37-13-20763612-C-T": "GJB2 c.109G>A p.(Val37Ile)",
	"GRCh38-13-20189473-C-T": "GJB2 c.109G>A p.(Val37Ile)",
	"GRCh37-6-26093141-G-A":  "HFE c.845G>A p.(Cys282Tyr)",
	"GRCh38-6-26092913-G-A":  "HFE c.845G>A p.(Cys282Tyr)",
	"GRCh37-6-26091179-C-G":  "HFE c.187C>G p.(His63Asp)",
	"GRCh38-6-26090951-C-G":  "HFE c.187C>G p.(His63Asp)",
	"GRCh37-3-15686693-G-C":  "BTD c.1330G>C p.(Asp444His)",
	"GRCh38-3-15645186-G-C":  "BTD c.1330G>C p.(Asp444His)",
}

// IsBA1Exception reports whether v is on the BA1 exception list.
func IsBA1Exception(v variant.PointVariant) bool {
	_, ok := BA1Exceptions[v.String()]
	return ok
}

// Inheritance is the mode of inheritance assumed for BS2.
type Inheritance int

const (
	InheritanceUnknown Inheritance = iota
	InheritanceDominant
	InheritanceRecessive
)

func (i Inheritance) String() string {
	switch i {
	case InheritanceDominant:
		return "dominant"
	case InheritanceRecessive:
		return "recessive"
	}
	return "unknown"
}

// DOMINO score cutoffs for likely dominant and likely recessive genes.
const (
	dominoDominant  = 0.5934
	dominoRecessive = 0.3422
	decipherPHI     = 0.9
)

// InheritanceOf derives the inheritance mode from dosage annotations: the
// ClinGen haploinsufficiency score first, then DECIPHER pHI, then DOMINO.
func InheritanceOf(info *gateway.GeneInfo) Inheritance {
	if info == nil {
		return InheritanceUnknown
	}
	if hi := info.ClinGenHaploScore; hi != nil {
		switch *hi {
		case 1, 2, 3:
			return InheritanceDominant
		case 30:
			return InheritanceRecessive
		}
	}
	if phi, ok := info.DecipherPHI.Get(); ok && phi >= decipherPHI {
		return InheritanceDominant
	}
	if score, ok := info.DominoScore.Get(); ok {
		switch {
		case score >= dominoDominant:
			return InheritanceDominant
		case score <= dominoRecessive:
			return InheritanceRecessive
		}
	}
	return InheritanceUnknown
}

// FrequencyPredicate evaluates PM2, BA1, BS1 and BS2 from gnomAD data.
type FrequencyPredicate struct{}

func (FrequencyPredicate) Criteria() []Criterion { return []Criterion{PM2, BA1, BS1, BS2} }

func (FrequencyPredicate) Evaluate(_ context.Context, d *Data) ([]Result, error) {
	rec, err := d.VariantRecord()
	if err != nil {
		return nil, err
	}
	if d.Variant.IsMitochondrial() {
		return evaluateMito(rec, d.Thresholds)
	}

	t := d.Thresholds
	cohort := selectCohort(rec.Frequencies, t.ANMin)
	if cohort == nil {
		return nil, missing("gnomAD exome allele frequency")
	}
	af, ok := cohort.AFGrpmax.Get()
	if !ok {
		return nil, missing("gnomAD group maximum allele frequency")
	}
	src := cohortName(cohort)

	pm2 := NotMetf(PM2, "AF %g (%s) > %g", af, src, t.PM2Pathogenic)
	ba1 := NotMetf(BA1, "AF %g (%s) < %g", af, src, t.BA1Benign)
	bs1 := NotMetf(BS1, "AF %g (%s) < %g", af, src, t.BS1Benign)
	switch {
	case IsBA1Exception(d.Variant):
		why := "variant is on the BA1 exception list: " + BA1Exceptions[d.Variant.String()]
		ba1 = NotMetf(BA1, "%s", why)
		bs1 = NotMetf(BS1, "%s", why)
		pm2 = NotMetf(PM2, "%s", why)
	case af >= t.BA1Benign:
		ba1 = Metf(BA1, "AF %g (%s) >= %g", af, src, t.BA1Benign)
	case af >= t.BS1Benign:
		bs1 = Metf(BS1, "AF %g (%s) >= %g", af, src, t.BS1Benign)
	case af <= t.PM2Pathogenic:
		pm2 = Metf(PM2, "AF %g (%s) <= %g", af, src, t.PM2Pathogenic)
	}

	return []Result{pm2, ba1, bs1, evaluateBS2(d, cohort)}, nil
}

func evaluateMito(rec *gateway.VariantRecord, t Thresholds) ([]Result, error) {
	if rec.Mito == nil {
		return nil, missing("gnomAD mtDNA frequency")
	}
	af := rec.Mito.AFHet
	pm2 := NotMetf(PM2, "heteroplasmy AF %g > %g", af, t.MitoPM2)
	ba1 := NotMetf(BA1, "heteroplasmy AF %g < %g", af, t.MitoBA1)
	bs1 := NotMetf(BS1, "heteroplasmy AF %g < %g", af, t.MitoBS1)
	switch {
	case af <= t.MitoPM2:
		pm2 = Metf(PM2, "heteroplasmy AF %g <= %g", af, t.MitoPM2)
	case af >= t.MitoBA1:
		ba1 = Metf(BA1, "heteroplasmy AF %g >= %g", af, t.MitoBA1)
	case af >= t.MitoBS1:
		bs1 = Metf(BS1, "heteroplasmy AF %g >= %g", af, t.MitoBS1)
	}
	bs2 := NotApplicablef(BS2, "not applicable to mitochondrial variants")
	return []Result{pm2, ba1, bs1, bs2}, nil
}

// selectCohort picks the exome "controls" cohort when it has a group
// maximum AF, otherwise the exome cohort with the largest group maximum AF
// among those with enough called alleles.
func selectCohort(freqs []gateway.CohortFrequency, anMin int64) *gateway.CohortFrequency {
	var best *gateway.CohortFrequency
	var bestAF float64
	for i := range freqs {
		f := &freqs[i]
		if f.Dataset != "exomes" {
			continue
		}
		af, ok := f.AFGrpmax.Get()
		if !ok {
			continue
		}
		if f.Cohort == "controls" {
			return f
		}
		if f.ANGrpmax <= anMin {
			continue
		}
		if best == nil || af > bestAF {
			best, bestAF = f, af
		}
	}
	return best
}

func cohortName(f *gateway.CohortFrequency) string {
	if f.Cohort == "" {
		return "gnomAD " + f.Dataset
	}
	return fmt.Sprintf("gnomAD %s %s", f.Dataset, f.Cohort)
}

func evaluateBS2(d *Data, cohort *gateway.CohortFrequency) Result {
	if d.GeneInfoErr != nil {
		return FailedResult(BS2, d.GeneInfoErr)
	}
	t := d.Thresholds
	mode := InheritanceOf(d.GeneInfo)

	if genome.NormalizeChrom(d.Variant.Chrom) == "X" {
		het := cohort.XX.AC - 2*cohort.XX.Nhomalt + cohort.XY.AC
		hom := cohort.XX.Nhomalt + cohort.XY.Nhomalt
		return bs2Result(mode, het, hom, t.BS2XDominant, t.BS2XRecessive, "X-linked ")
	}
	het := cohort.Overall.AC - 2*cohort.Overall.Nhomalt
	hom := cohort.Overall.Nhomalt
	return bs2Result(mode, het, hom, t.BS2Dominant, t.BS2Recessive, "")
}

func bs2Result(mode Inheritance, het, hom, domMin, recMin int64, kind string) Result {
	dominant := het >= domMin
	recessive := hom >= recMin
	detail := fmt.Sprintf("%s%s inheritance, %d heterozygous/hemizygous alleles, %d homozygotes", kind, mode, het, hom)
	var met bool
	switch mode {
	case InheritanceDominant:
		met = dominant
	case InheritanceRecessive:
		met = recessive
	default:
		met = dominant && recessive
	}
	if met {
		return Metf(BS2, "%s", detail)
	}
	return NotMetf(BS2, "%s", detail)
}
