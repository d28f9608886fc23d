package pvs1

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-acmg/internal/criteria"
	"github.com/inodb/vibe-acmg/internal/gateway"
	"github.com/inodb/vibe-acmg/internal/genome"
	"github.com/inodb/vibe-acmg/internal/regions"
	"github.com/inodb/vibe-acmg/internal/variant"
)

type fakeLookup struct {
	clinvar    []gateway.ClinVarRecord
	population []gateway.RangeVariant
	err        error
}

func (f *fakeLookup) VariantRecord(context.Context, variant.PointVariant) (*gateway.VariantRecord, error) {
	return nil, f.err
}

func (f *fakeLookup) Range(_ context.Context, _ genome.Build, _ string, start, end int64) (*gateway.RangeRecords, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := &gateway.RangeRecords{}
	for _, r := range f.clinvar {
		if r.Pos >= start && r.Pos <= end {
			out.ClinVar = append(out.ClinVar, r)
		}
	}
	for _, v := range f.population {
		if v.Pos >= start && v.Pos <= end {
			out.Population = append(out.Population, v)
		}
	}
	return out, nil
}

// plusTx has coding exon lengths 50, 100, 99 and 101 in transcription
// order, so the NMD cutoff is coding position 199.
//
//	exon 1: 1000-1099, coding 1050-1099, c.1-50
//	exon 2: 2000-2099, c.51-150
//	exon 3: 3000-3098, c.151-249
//	exon 4: 4000-4199, coding 4000-4100, c.250-350
func plusTx() *gateway.Transcript {
	return &gateway.Transcript{
		ID:          "NM_PVS.1",
		GeneSymbol:  "TEST",
		Chrom:       "1",
		Strand:      gateway.StrandPlus,
		Start:       1000,
		End:         4199,
		CodingStart: 1050,
		CodingEnd:   4100,
		Exons: []gateway.Exon{
			{Number: 1, Start: 1000, End: 1099},
			{Number: 2, Start: 2000, End: 2099},
			{Number: 3, Start: 3000, End: 3098},
			{Number: 4, Start: 4000, End: 4199},
		},
		Tags: []string{gateway.TagManeSelect},
	}
}

func seqData(t *testing.T, pos int64, terms ...string) *criteria.Data {
	t.Helper()
	v, err := variant.NewPointVariant(genome.GRCh38, "1", pos, "C", "T", "")
	require.NoError(t, err)
	tx := plusTx()
	return &criteria.Data{
		Variant:     v,
		GeneID:      "HGNC:1",
		GeneSymbol:  "TEST",
		Transcript:  tx,
		Transcripts: []gateway.Transcript{*tx},
		Consequence: &gateway.Consequence{
			TranscriptID: tx.ID,
			Terms:        terms,
			ProteinLen:   116,
		},
		Thresholds: criteria.DefaultThresholds(),
		Lookup:     &fakeLookup{},
	}
}

func pathogenic(pos int64) gateway.ClinVarRecord {
	return gateway.ClinVarRecord{Significance: gateway.SignificancePathogenic, Pos: pos, Ref: "G", Alt: "A"}
}

func TestClassify_NonsenseFrameshift(t *testing.T) {
	tests := []struct {
		name        string
		pos         int64
		cds         int64
		protein     int64
		geneID      string
		tags        []string
		lookup      *fakeLookup
		domains     *regions.Index
		wantPath    Path
		wantOutcome Outcome
	}{
		{name: "NMD in MANE transcript", pos: 2010, cds: 61, protein: 21, wantPath: PathNF1, wantOutcome: OutcomeVeryStrong},
		{name: "NMD outside relevant transcripts", pos: 2010, cds: 61, protein: 21, tags: []string{}, wantPath: PathNF2, wantOutcome: OutcomeNotPVS1},
		{
			name: "escapes NMD, critical region by ClinVar", pos: 3090, cds: 241, protein: 81,
			lookup:   &fakeLookup{clinvar: []gateway.ClinVarRecord{pathogenic(4150)}},
			wantPath: PathNF3, wantOutcome: OutcomeStrong,
		},
		{
			name: "escapes NMD, critical region by domain", pos: 3090, cds: 241, protein: 81,
			domains:  regions.NewIndex([]regions.Region{{Chrom: "1", Start: 4000, End: 4100, Name: "kinase"}}),
			wantPath: PathNF3, wantOutcome: OutcomeStrong,
		},
		{
			name: "escapes NMD, frequent LoF in exon", pos: 3090, cds: 241, protein: 81,
			lookup: &fakeLookup{population: []gateway.RangeVariant{
				{Pos: 3050, Consequences: []string{"stop_gained"}, AFGrpmax: 0.01},
			}},
			wantPath: PathNF4, wantOutcome: OutcomeNotPVS1,
		},
		{name: "escapes NMD, removes >10%", pos: 3090, cds: 241, protein: 81, wantPath: PathNF5, wantOutcome: OutcomeStrong},
		{name: "escapes NMD, removes <10%", pos: 4090, cds: 340, protein: 114, wantPath: PathNF6, wantOutcome: OutcomeModerate},
		{name: "GJB2 always undergoes NMD", pos: 4090, cds: 340, protein: 114, geneID: "HGNC:4284", wantPath: PathNF1, wantOutcome: OutcomeVeryStrong},
		{name: "PTEN upstream of codon 374", pos: 4090, cds: 340, protein: 114, geneID: "HGNC:9588", wantPath: PathPTEN, wantOutcome: OutcomeVeryStrong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := seqData(t, tt.pos, criteria.TermStopGained)
			d.Consequence.CDSPos = tt.cds
			d.Consequence.ProteinPos = tt.protein
			if tt.geneID != "" {
				d.GeneID = tt.geneID
			}
			if tt.tags != nil {
				d.Transcript.Tags = tt.tags
			}
			if tt.lookup != nil {
				d.Lookup = tt.lookup
			}
			d.Domains = tt.domains

			dec, err := NewClassifier().Classify(context.Background(), d)
			require.NoError(t, err)
			assert.Equal(t, tt.wantPath, dec.Path)
			assert.Equal(t, tt.wantOutcome, dec.Outcome)
		})
	}
}

func TestClassify_Frameshift(t *testing.T) {
	d := seqData(t, 2010, criteria.TermFrameshift)
	d.Consequence.CDSPos = 61
	d.Consequence.ProteinPos = 21
	d.Consequence.HGVSp = "p.(Arg21GlyfsTer3)"

	dec, err := NewClassifier().Classify(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, PathNF1, dec.Path)

	// The new stop lands in the last exon, so the transcript escapes NMD.
	d.Consequence.HGVSp = "p.(Arg21GlyfsTer90)"
	dec, err = NewClassifier().Classify(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, PathNF5, dec.Path)
}

func TestStopCodonCDS(t *testing.T) {
	tests := []struct {
		hgvsp string
		terms []string
		want  int64
	}{
		{"p.Arg21Ter", []string{criteria.TermStopGained}, 61},
		{"p.Arg21GlyfsTer3", []string{criteria.TermFrameshift}, 69},
		{"p.R21Gfs*10", []string{criteria.TermFrameshift}, 90},
		{"p.Arg21fs", []string{criteria.TermFrameshift}, 61},
	}
	for _, tt := range tests {
		t.Run(tt.hgvsp, func(t *testing.T) {
			csq := &gateway.Consequence{Terms: tt.terms, HGVSp: tt.hgvsp, CDSPos: 61, ProteinPos: 21}
			assert.Equal(t, tt.want, stopCodonCDS(csq))
		})
	}
}

func TestClassify_Splice(t *testing.T) {
	tests := []struct {
		name        string
		pos         int64
		term        string
		tags        []string
		lookup      *fakeLookup
		wantPath    Path
		wantOutcome Outcome
		wantSite    string
	}{
		{name: "frameshifting skip with NMD", pos: 2101, term: criteria.TermSpliceDonor, wantPath: PathSS1, wantOutcome: OutcomeVeryStrong, wantSite: "donor"},
		{name: "frameshifting skip outside relevant transcripts", pos: 2101, term: criteria.TermSpliceDonor, tags: []string{}, wantPath: PathSS2, wantOutcome: OutcomeNotPVS1, wantSite: "donor"},
		{
			name: "last exon skip, critical region", pos: 3998, term: criteria.TermSpliceAcceptor,
			lookup:   &fakeLookup{clinvar: []gateway.ClinVarRecord{pathogenic(4120)}},
			wantPath: PathSS3, wantOutcome: OutcomeStrong, wantSite: "acceptor",
		},
		{name: "last exon skip, not relevant", pos: 3998, term: criteria.TermSpliceAcceptor, tags: []string{}, wantPath: PathSS4, wantOutcome: OutcomeNotPVS1, wantSite: "acceptor"},
		{name: "last exon skip, removes >10%", pos: 3998, term: criteria.TermSpliceAcceptor, wantPath: PathSS5, wantOutcome: OutcomeStrong, wantSite: "acceptor"},
		{name: "in-frame skip, removes >10%", pos: 3100, term: criteria.TermSpliceDonor, wantPath: PathSS8, wantOutcome: OutcomeStrong, wantSite: "donor"},
		{
			name: "in-frame skip of critical exon", pos: 3100, term: criteria.TermSpliceDonor,
			lookup:   &fakeLookup{clinvar: []gateway.ClinVarRecord{pathogenic(3010)}},
			wantPath: PathSS10, wantOutcome: OutcomeStrong, wantSite: "donor",
		},
		{name: "in-frame skip, not relevant", pos: 3100, term: criteria.TermSpliceDonor, tags: []string{}, wantPath: PathSS7, wantOutcome: OutcomeNotPVS1, wantSite: "donor"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := seqData(t, tt.pos, tt.term)
			if tt.tags != nil {
				d.Transcript.Tags = tt.tags
			}
			if tt.lookup != nil {
				d.Lookup = tt.lookup
			}
			dec, err := NewClassifier().Classify(context.Background(), d)
			require.NoError(t, err)
			assert.Equal(t, tt.wantPath, dec.Path)
			assert.Equal(t, tt.wantOutcome, dec.Outcome)
			assert.Contains(t, dec.Result().Summary, tt.wantSite+" site of exon")
		})
	}
}

func TestSpliceSite(t *testing.T) {
	minus := plusTx()
	minus.Strand = gateway.StrandMinus
	exon := gateway.Exon{Number: 2, Start: 2000, End: 2099}
	tests := []struct {
		name string
		tx   *gateway.Transcript
		term string
		pos  int64
		want string
	}{
		{"donor term", plusTx(), criteria.TermSpliceDonor, 1998, "donor"},
		{"acceptor term", plusTx(), criteria.TermSpliceAcceptor, 2101, "acceptor"},
		{"plus strand after exon", plusTx(), "", 2101, "donor"},
		{"plus strand before exon", plusTx(), "", 1998, "acceptor"},
		{"minus strand after exon", minus, "", 2101, "acceptor"},
		{"minus strand before exon", minus, "", 1998, "donor"},
		{"inside exon", plusTx(), "", 2050, "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			csq := &gateway.Consequence{}
			if tt.term != "" {
				csq.Terms = []string{tt.term}
			}
			assert.Equal(t, tt.want, spliceSite(csq, tt.tx, exon, tt.pos))
		})
	}
}

func TestClassify_Initiation(t *testing.T) {
	alt := func(id string, codingStart int64, strand gateway.Strand) gateway.Transcript {
		tx := *plusTx()
		tx.ID = id
		tx.Tags = nil
		tx.CodingStart = codingStart
		tx.Strand = strand
		return tx
	}
	tests := []struct {
		name        string
		others      []gateway.Transcript
		clinvar     []gateway.ClinVarRecord
		wantPath    Path
		wantOutcome Outcome
	}{
		{name: "no alternative start", wantPath: PathIC3, wantOutcome: OutcomeVeryStrong},
		{
			name:     "alternative start out of frame",
			others:   []gateway.Transcript{alt("NM_ALT.1", 1060, gateway.StrandPlus)},
			wantPath: PathIC3, wantOutcome: OutcomeVeryStrong,
		},
		{
			name:     "alternative start on the other strand",
			others:   []gateway.Transcript{alt("NM_ALT.1", 1062, gateway.StrandMinus)},
			wantPath: PathIC3, wantOutcome: OutcomeVeryStrong,
		},
		{
			name:     "in-frame alternative, pathogenic variants upstream",
			others:   []gateway.Transcript{alt("NM_ALT.1", 1062, gateway.StrandPlus)},
			clinvar:  []gateway.ClinVarRecord{pathogenic(1055)},
			wantPath: PathIC1, wantOutcome: OutcomeModerate,
		},
		{
			name:     "in-frame alternative, no pathogenic variants upstream",
			others:   []gateway.Transcript{alt("NM_ALT.1", 1062, gateway.StrandPlus)},
			clinvar:  []gateway.ClinVarRecord{pathogenic(1070)},
			wantPath: PathIC2, wantOutcome: OutcomeSupporting,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := seqData(t, 1050, criteria.TermStartLost)
			d.Transcripts = append(d.Transcripts, tt.others...)
			d.Lookup = &fakeLookup{clinvar: tt.clinvar}

			dec, err := NewClassifier().Classify(context.Background(), d)
			require.NoError(t, err)
			assert.Equal(t, tt.wantPath, dec.Path)
			assert.Equal(t, tt.wantOutcome, dec.Outcome)
		})
	}
}

func TestClassify_NotApplicable(t *testing.T) {
	d := seqData(t, 2010, criteria.TermMissense)
	dec, err := NewClassifier().Classify(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotApplicable, dec.Outcome)
	assert.Equal(t, criteria.NotApplicable, dec.Result().Prediction)

	d = seqData(t, 2010, criteria.TermStopGained)
	d.Consequence.CDSPos = 61
	d.Consequence.ProteinPos = 21
	d.Rules.PVS1ExcludedExons = []int{2}
	dec, err = NewClassifier().Classify(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotApplicable, dec.Outcome)
	assert.Contains(t, dec.Detail, "exon 2")
}

func TestClassify_Failures(t *testing.T) {
	var algErr *criteria.AlgorithmError

	d := seqData(t, 2010, criteria.TermStopGained)
	_, err := NewClassifier().Classify(context.Background(), d)
	assert.True(t, errors.As(err, &algErr), "unresolved coding position")

	d = seqData(t, 2010, criteria.TermStopGained)
	d.Transcript.Exons = nil
	_, err = NewClassifier().Classify(context.Background(), d)
	assert.True(t, errors.As(err, &algErr), "missing exons")

	d = seqData(t, 2010, criteria.TermStopGained)
	d.Transcript = nil
	_, err = NewClassifier().Classify(context.Background(), d)
	assert.True(t, errors.As(err, &algErr), "missing transcript")

	lookupErr := errors.New("annonars unavailable")
	d = seqData(t, 3090, criteria.TermStopGained)
	d.Consequence.CDSPos = 241
	d.Consequence.ProteinPos = 81
	d.Lookup = &fakeLookup{err: lookupErr}
	_, err = NewClassifier().Classify(context.Background(), d)
	assert.ErrorIs(t, err, lookupErr)
}

func TestClassifier_Precedence(t *testing.T) {
	csq := &gateway.Consequence{Terms: []string{criteria.TermSpliceDonor, criteria.TermStopGained, criteria.TermStartLost}}
	c := NewClassifier()
	assert.Equal(t, CategoryNonsenseFrameshift, c.Category(csq))

	c.Precedence = []Category{CategoryInitiation, CategorySplice, CategoryNonsenseFrameshift}
	assert.Equal(t, CategoryInitiation, c.Category(csq))
	assert.Equal(t, []Category{CategoryNonsenseFrameshift, CategorySplice, CategoryInitiation}, DefaultPrecedence)

	assert.Equal(t, CategoryOther, c.Category(&gateway.Consequence{Terms: []string{criteria.TermMissense}}))
}

func TestClassifier_Evaluate(t *testing.T) {
	d := seqData(t, 2010, criteria.TermStopGained)
	d.Consequence.CDSPos = 61
	d.Consequence.ProteinPos = 21

	set := criteria.Evaluate(context.Background(), d, []criteria.Predicate{NewClassifier()})
	r := set[criteria.PVS1]
	assert.Equal(t, criteria.Met, r.Prediction)
	assert.Equal(t, criteria.PathogenicVeryStrong, r.Strength)
	assert.Contains(t, r.Summary, "NF1: predicted to undergo NMD")

	d.Transcript = nil
	set = criteria.Evaluate(context.Background(), d, []criteria.Predicate{NewClassifier()})
	assert.Equal(t, criteria.Failed, set[criteria.PVS1].Prediction)
}

func TestUndergoesNMD_MinusStrand(t *testing.T) {
	// Transcription order: exon 3 (c.1-50), exon 2 (c.51-150), exon 1 (c.151-200).
	tx := &gateway.Transcript{
		Strand:      gateway.StrandMinus,
		CodingStart: 1050,
		CodingEnd:   3049,
		Exons: []gateway.Exon{
			{Number: 3, Start: 1000, End: 1099},
			{Number: 2, Start: 2000, End: 2099},
			{Number: 1, Start: 3000, End: 3099},
		},
	}
	assert.True(t, undergoesNMD("HGNC:1", tx, 100, 50))
	assert.False(t, undergoesNMD("HGNC:1", tx, 101, 50))
	assert.True(t, undergoesNMD(hgncGJB2, tx, 190, 50))

	single := &gateway.Transcript{Strand: gateway.StrandPlus, CodingStart: 10, CodingEnd: 90, Exons: []gateway.Exon{{Start: 1, End: 100}}}
	assert.False(t, undergoesNMD("HGNC:1", single, 1, 50))
}

func TestDecision_Result(t *testing.T) {
	r := decide(PathNF5, OutcomeStrong).Result()
	assert.Equal(t, criteria.Met, r.Prediction)
	assert.Equal(t, criteria.PathogenicStrong, r.Strength)
	assert.Equal(t, "NF5: "+PathNF5.Description(), r.Summary)

	r = decide(PathNF2, OutcomeNotPVS1).Result()
	assert.Equal(t, criteria.NotMet, r.Prediction)
	assert.Equal(t, criteria.PathogenicVeryStrong, r.Strength)

	for p := range descriptions {
		assert.NotEqual(t, "no decision path", p.Description(), p)
	}
}
