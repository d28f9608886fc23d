package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/inodb/vibe-acmg/internal/genome"
	"github.com/inodb/vibe-acmg/internal/variant"
)

// AnnonarsClient fetches population frequencies, ClinVar records, predictor
// scores and gene annotations.
type AnnonarsClient struct {
	f *fetcher
}

// NewAnnonarsClient creates a client for the annonars service at baseURL.
func NewAnnonarsClient(baseURL string, opts Options) *AnnonarsClient {
	return &AnnonarsClient{f: newFetcher("annonars", baseURL, opts)}
}

// flexFloat decodes numbers that may arrive as JSON numbers, numeric strings,
// "." placeholders or ";"-separated per-transcript lists (maximum is taken).
type flexFloat struct {
	v  float64
	ok bool
}

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		for _, part := range strings.Split(s, ";") {
			v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
			if err != nil {
				continue
			}
			if !f.ok || v > f.v {
				f.v, f.ok = v, true
			}
		}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	f.v, f.ok = v, true
	return nil
}

func (f flexFloat) score() Score {
	if !f.ok {
		return None()
	}
	return Some(f.v)
}

type annoCounts struct {
	AC      int64   `json:"ac"`
	AN      int64   `json:"an"`
	Nhomalt int64   `json:"nhomalt"`
	AF      float64 `json:"af"`
}

func (c *annoCounts) toCounts() AlleleCounts {
	if c == nil {
		return AlleleCounts{}
	}
	return AlleleCounts{AC: c.AC, AN: c.AN, Nhomalt: c.Nhomalt, AF: c.AF}
}

type annoAlleleCount struct {
	Cohort string `json:"cohort"`
	BySex  *struct {
		Overall *annoCounts `json:"overall"`
		XX      *annoCounts `json:"xx"`
		XY      *annoCounts `json:"xy"`
	} `json:"bySex"`
	AFGrpmax      *float64 `json:"afGrpmax"`
	ANGrpmax      int64    `json:"anGrpmax"`
	NhomaltGrpmax int64    `json:"nhomaltGrpmax"`
}

type annoGnomad struct {
	AlleleCounts []annoAlleleCount `json:"alleleCounts"`
}

type annoClinvar struct {
	Accession       string `json:"accession"`
	Name            string `json:"name"`
	VariationType   string `json:"variationType"`
	Classifications struct {
		Germline struct {
			Description  string `json:"description"`
			ReviewStatus string `json:"reviewStatus"`
		} `json:"germlineClassification"`
	} `json:"classifications"`
	SequenceLocation struct {
		PositionVCF int64  `json:"positionVcf"`
		RefVCF      string `json:"referenceAlleleVcf"`
		AltVCF      string `json:"alternateAlleleVcf"`
	} `json:"sequenceLocation"`
	HGNCIDs               []string `json:"hgncIds"`
	MolecularConsequences []string `json:"molecularConsequences"`
}

func (r annoClinvar) toRecord() ClinVarRecord {
	return ClinVarRecord{
		AccessionID:   r.Accession,
		Name:          r.Name,
		Significance:  r.Classifications.Germline.Description,
		ReviewStatus:  r.Classifications.Germline.ReviewStatus,
		VariationType: r.VariationType,
		Pos:           r.SequenceLocation.PositionVCF,
		Ref:           r.SequenceLocation.RefVCF,
		Alt:           r.SequenceLocation.AltVCF,
		HGNCIDs:       r.HGNCIDs,
		Consequences:  r.MolecularConsequences,
	}
}

type annoVariantResponse struct {
	Result struct {
		CADD *struct {
			PHRED   flexFloat `json:"PHRED"`
			PhyloP  flexFloat `json:"verPhyloP"`
			GerpS   flexFloat `json:"GerpS"`
			AccGain flexFloat `json:"SpliceAI-acc-gain"`
			AccLoss flexFloat `json:"SpliceAI-acc-loss"`
			DonGain flexFloat `json:"SpliceAI-don-gain"`
			DonLoss flexFloat `json:"SpliceAI-don-loss"`
		} `json:"cadd"`
		DBNSFP *struct {
			REVEL         flexFloat `json:"REVEL_score"`
			BayesDel      flexFloat `json:"BayesDel_noAF_score"`
			AlphaMissense flexFloat `json:"AlphaMissense_score"`
			PhyloP100     flexFloat `json:"phyloP100way_vertebrate"`
			CADDPhred     flexFloat `json:"CADD_phred"`
			HGVSpVEP      string    `json:"HGVSp_VEP"`
		} `json:"dbnsfp"`
		DBSCSNV *struct {
			Ada flexFloat `json:"ada_score"`
			RF  flexFloat `json:"rf_score"`
		} `json:"dbscsnv"`
		GnomadExomes  *annoGnomad `json:"gnomad_exomes"`
		GnomadGenomes *annoGnomad `json:"gnomad_genomes"`
		GnomadMtDNA   *struct {
			AN    int64   `json:"an"`
			ACHet int64   `json:"acHet"`
			ACHom int64   `json:"acHom"`
			AFHet float64 `json:"afHet"`
			AFHom float64 `json:"afHom"`
		} `json:"gnomad_mtdna"`
		ClinVar *struct {
			Records []annoClinvar `json:"records"`
		} `json:"clinvar"`
	} `json:"result"`
}

// VariantRecord returns scores, frequencies and ClinVar records for v. A
// variant unknown to every source yields nil.
func (c *AnnonarsClient) VariantRecord(ctx context.Context, v variant.PointVariant) (*VariantRecord, error) {
	q := url.Values{}
	q.Set("genome_release", strings.ToLower(v.Build.String()))
	q.Set("chromosome", v.Chrom)
	q.Set("pos", fmt.Sprint(v.Pos))
	q.Set("reference", v.Ref)
	q.Set("alternative", v.Alt)
	u := c.f.baseURL + "/annos/variant?" + q.Encode()

	var resp annoVariantResponse
	found, err := c.f.getJSON(ctx, u, &resp)
	if err != nil || !found {
		return nil, err
	}
	r := resp.Result
	if r.CADD == nil && r.DBNSFP == nil && r.DBSCSNV == nil && r.GnomadExomes == nil &&
		r.GnomadGenomes == nil && r.GnomadMtDNA == nil && r.ClinVar == nil {
		return nil, nil
	}

	rec := &VariantRecord{}
	if r.DBNSFP != nil {
		rec.Scores.REVEL = r.DBNSFP.REVEL.score()
		rec.Scores.BayesDelNoAF = r.DBNSFP.BayesDel.score()
		rec.Scores.AlphaMissense = r.DBNSFP.AlphaMissense.score()
		rec.Scores.PhyloP100 = r.DBNSFP.PhyloP100.score()
		rec.Scores.CADDPhred = r.DBNSFP.CADDPhred.score()
		if r.DBNSFP.HGVSpVEP != "" {
			rec.HGVSp = strings.Split(r.DBNSFP.HGVSpVEP, ";")
		}
	}
	if r.CADD != nil {
		rec.Scores.CADDPhred = rec.Scores.CADDPhred.Or(r.CADD.PHRED.score())
		rec.Scores.PhyloP100 = rec.Scores.PhyloP100.Or(r.CADD.PhyloP.score())
		rec.Scores.GERP = r.CADD.GerpS.score()
		rec.Scores.SpliceAIAccGain = r.CADD.AccGain.score()
		rec.Scores.SpliceAIAccLoss = r.CADD.AccLoss.score()
		rec.Scores.SpliceAIDonGain = r.CADD.DonGain.score()
		rec.Scores.SpliceAIDonLoss = r.CADD.DonLoss.score()
	}
	if r.DBSCSNV != nil {
		rec.Scores.AdaScore = r.DBSCSNV.Ada.score()
		rec.Scores.RFScore = r.DBSCSNV.RF.score()
	}
	rec.Frequencies = append(rec.Frequencies, cohortFrequencies("exomes", r.GnomadExomes)...)
	rec.Frequencies = append(rec.Frequencies, cohortFrequencies("genomes", r.GnomadGenomes)...)
	if m := r.GnomadMtDNA; m != nil {
		rec.Mito = &MitoFrequency{AN: m.AN, ACHet: m.ACHet, ACHom: m.ACHom, AFHet: m.AFHet, AFHom: m.AFHom}
	}
	if r.ClinVar != nil {
		for _, cv := range r.ClinVar.Records {
			rec.ClinVar = append(rec.ClinVar, cv.toRecord())
		}
	}
	return rec, nil
}

func cohortFrequencies(dataset string, g *annoGnomad) []CohortFrequency {
	if g == nil {
		return nil
	}
	out := make([]CohortFrequency, 0, len(g.AlleleCounts))
	for _, ac := range g.AlleleCounts {
		cf := CohortFrequency{
			Dataset:       dataset,
			Cohort:        ac.Cohort,
			AFGrpmax:      ScoreFromPtr(ac.AFGrpmax),
			ANGrpmax:      ac.ANGrpmax,
			NhomaltGrpmax: ac.NhomaltGrpmax,
		}
		if ac.BySex != nil {
			cf.Overall = ac.BySex.Overall.toCounts()
			cf.XX = ac.BySex.XX.toCounts()
			cf.XY = ac.BySex.XY.toCounts()
		}
		out = append(out, cf)
	}
	return out
}

type annoRangeResponse struct {
	Result struct {
		GnomadGenomes []struct {
			Pos          int64             `json:"pos"`
			RefAllele    string            `json:"refAllele"`
			AltAllele    string            `json:"altAllele"`
			AlleleCounts []annoAlleleCount `json:"alleleCounts"`
			Consequences []string          `json:"consequences"`
		} `json:"gnomad_genomes"`
		ClinVar []annoClinvar `json:"clinvar"`
	} `json:"result"`
}

// Range returns the population and ClinVar variants in [start, end].
func (c *AnnonarsClient) Range(ctx context.Context, build genome.Build, chrom string, start, end int64) (*RangeRecords, error) {
	q := url.Values{}
	q.Set("genome_release", strings.ToLower(build.String()))
	q.Set("chromosome", genome.NormalizeChrom(chrom))
	q.Set("start", fmt.Sprint(start))
	q.Set("stop", fmt.Sprint(end))
	u := c.f.baseURL + "/annos/range?" + q.Encode()

	var resp annoRangeResponse
	found, err := c.f.getJSON(ctx, u, &resp)
	if err != nil {
		return nil, err
	}
	out := &RangeRecords{}
	if !found {
		return out, nil
	}
	for _, g := range resp.Result.GnomadGenomes {
		rv := RangeVariant{Pos: g.Pos, Ref: g.RefAllele, Alt: g.AltAllele, Consequences: g.Consequences}
		for _, ac := range g.AlleleCounts {
			if ac.AFGrpmax != nil && *ac.AFGrpmax > rv.AFGrpmax {
				rv.AFGrpmax = *ac.AFGrpmax
			}
		}
		out.Population = append(out.Population, rv)
	}
	for _, cv := range resp.Result.ClinVar {
		out.ClinVar = append(out.ClinVar, cv.toRecord())
	}
	return out, nil
}

type annoGeneResponse struct {
	Genes map[string]struct {
		HGNC *struct {
			Symbol string `json:"symbol"`
		} `json:"hgnc"`
		ClinGen *struct {
			HaploinsufficiencyScore *int `json:"haploinsufficiencyScore"`
		} `json:"clingen"`
		Decipher *struct {
			PHI flexFloat `json:"pHi"`
		} `json:"decipherHi"`
		Domino *struct {
			Score flexFloat `json:"score"`
		} `json:"domino"`
		GnomadConstraints *struct {
			MisZ flexFloat `json:"misZ"`
		} `json:"gnomadConstraints"`
	} `json:"genes"`
}

// GeneInfo returns gene-level annotations for an HGNC ID.
func (c *AnnonarsClient) GeneInfo(ctx context.Context, hgncID string) (*GeneInfo, error) {
	u := c.f.baseURL + "/genes/info?" + url.Values{"hgnc_id": {hgncID}}.Encode()

	var resp annoGeneResponse
	found, err := c.f.getJSON(ctx, u, &resp)
	if err != nil || !found {
		return nil, err
	}
	g, ok := resp.Genes[hgncID]
	if !ok {
		return nil, nil
	}
	info := &GeneInfo{HGNCID: hgncID}
	if g.HGNC != nil {
		info.Symbol = g.HGNC.Symbol
	}
	if g.ClinGen != nil {
		info.ClinGenHaploScore = g.ClinGen.HaploinsufficiencyScore
	}
	if g.Decipher != nil {
		info.DecipherPHI = g.Decipher.PHI.score()
	}
	if g.Domino != nil {
		info.DominoScore = g.Domino.Score.score()
	}
	if g.GnomadConstraints != nil {
		info.MissenseZ = g.GnomadConstraints.MisZ.score()
	}
	return info, nil
}
