package acmg

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-acmg/internal/criteria"
	"github.com/inodb/vibe-acmg/internal/gateway"
	"github.com/inodb/vibe-acmg/internal/genome"
	"github.com/inodb/vibe-acmg/internal/panel"
	"github.com/inodb/vibe-acmg/internal/resolve"
	"github.com/inodb/vibe-acmg/internal/variant"
)

const hgncTP53 = "HGNC:11998"

type fakeAnnotator struct {
	seqvar   []gateway.Consequence
	strucvar []gateway.Consequence
	txs      map[string][]gateway.Transcript
	err      error
}

func (f *fakeAnnotator) SeqvarConsequences(context.Context, variant.PointVariant) ([]gateway.Consequence, error) {
	return f.seqvar, f.err
}

func (f *fakeAnnotator) StrucvarConsequences(context.Context, variant.StructuralVariant) ([]gateway.Consequence, error) {
	return f.strucvar, f.err
}

func (f *fakeAnnotator) GeneTranscripts(_ context.Context, hgncID string, _ genome.Build) ([]gateway.Transcript, error) {
	return f.txs[hgncID], nil
}

type fakeSource struct {
	mu          sync.Mutex
	record      *gateway.VariantRecord
	recordErr   error
	info        *gateway.GeneInfo
	recordCalls int
	rangeCalls  int
}

func (f *fakeSource) VariantRecord(context.Context, variant.PointVariant) (*gateway.VariantRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recordCalls++
	return f.record, f.recordErr
}

func (f *fakeSource) Range(context.Context, genome.Build, string, int64, int64) (*gateway.RangeRecords, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rangeCalls++
	return &gateway.RangeRecords{}, nil
}

func (f *fakeSource) GeneInfo(context.Context, string) (*gateway.GeneInfo, error) {
	return f.info, nil
}

type countingObserver struct {
	mu              sync.Mutex
	classifications map[string]int
	criteria        int
}

func (o *countingObserver) ObserveClassification(kind, outcome string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.classifications == nil {
		o.classifications = make(map[string]int)
	}
	o.classifications[kind+"/"+outcome]++
}

func (o *countingObserver) ObserveCriterion(criteria.Result) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.criteria++
}

// tp53Missense returns annotations for a missense change at residue 175 of
// the MANE Select transcript and 136 of a shorter alternative.
func tp53Missense() *fakeAnnotator {
	return &fakeAnnotator{
		seqvar: []gateway.Consequence{
			{
				TranscriptID: "NM_001126114.3", GeneID: hgncTP53, GeneSymbol: "TP53",
				Terms: []string{criteria.TermMissense}, ProteinPos: 136, ProteinLen: 341,
			},
			{
				TranscriptID: "NM_000546.6", GeneID: hgncTP53, GeneSymbol: "TP53",
				Terms: []string{criteria.TermMissense}, Tags: []string{gateway.TagManeSelect},
				HGVSp: "p.Arg175His", ProteinPos: 175, ProteinLen: 393, ExonRank: 5, ExonCount: 11,
			},
		},
		txs: map[string][]gateway.Transcript{
			hgncTP53: {
				{
					ID: "NM_000546.6", GeneID: hgncTP53, GeneSymbol: "TP53", Chrom: "17",
					Strand: gateway.StrandMinus, CodingStart: 7669609, CodingEnd: 7676594,
					Exons: []gateway.Exon{{Number: 1, Start: 7668402, End: 7687490}},
					Tags:  []string{gateway.TagManeSelect},
				},
			},
		},
	}
}

func newEngine(t *testing.T, ann Annotator, src VariantSource, opts Options) *Engine {
	t.Helper()
	if opts.Panels == nil {
		reg, err := panel.Builtin()
		require.NoError(t, err)
		opts.Panels = reg
	}
	return New(resolve.NewResolver(nil), ann, src, opts)
}

func find(t *testing.T, res *Result, c criteria.Criterion) criteria.Result {
	t.Helper()
	r, ok := res.Set[c]
	require.True(t, ok, "no result for %s", c)
	return r
}

func TestClassify_PointVariant(t *testing.T) {
	obs := &countingObserver{}
	e := newEngine(t, tp53Missense(), &fakeSource{}, Options{Observer: obs})

	res, err := e.Classify(context.Background(), "GRCh38-17-7675088-C-T")
	require.NoError(t, err)

	assert.Equal(t, "GRCh38-17-7675088-C-T", res.Input)
	assert.Equal(t, KindSequence, res.Kind)
	assert.Equal(t, genome.GRCh38, res.Build)
	assert.Equal(t, hgncTP53, res.GeneID)
	assert.Equal(t, "TP53", res.GeneSymbol)
	assert.Equal(t, "tp53", res.Panel)
	assert.Equal(t, "NM_000546.6", res.Annotation.TranscriptID)
	assert.Equal(t, int64(175), res.Annotation.ProteinPos)
	require.Len(t, res.Criteria, len(criteria.All))
	assert.Equal(t, criteria.PVS1, res.Criteria[0].Criterion)

	pm1 := find(t, res, criteria.PM1)
	assert.Equal(t, criteria.Met, pm1.Prediction, pm1.Summary)
	assert.Equal(t, criteria.PathogenicModerate, pm1.Strength)

	assert.Equal(t, criteria.NotApplicable, find(t, res, criteria.PVS1).Prediction)
	assert.Equal(t, criteria.NotApplicable, find(t, res, criteria.PS2).Prediction)
	// No variant record: frequency criteria fail without aborting the rest.
	assert.Equal(t, criteria.Failed, find(t, res, criteria.PM2).Prediction)
	assert.Equal(t, criteria.Failed, find(t, res, criteria.BA1).Prediction)

	assert.Equal(t, 1, obs.classifications["seqvar/ok"])
	assert.Equal(t, len(criteria.All), obs.criteria)
}

func TestClassify_UnregisteredGeneUsesDefaults(t *testing.T) {
	ann := tp53Missense()
	for i := range ann.seqvar {
		ann.seqvar[i].GeneID = "HGNC:99999"
	}
	ann.txs = map[string][]gateway.Transcript{"HGNC:99999": ann.txs[hgncTP53]}
	src := &fakeSource{}
	e := newEngine(t, ann, src, Options{})

	res, err := e.Classify(context.Background(), "GRCh38-17-7675088-C-T")
	require.NoError(t, err)
	assert.Empty(t, res.Panel)
	pm1 := find(t, res, criteria.PM1)
	assert.Equal(t, criteria.NotMet, pm1.Prediction, pm1.Summary)
	assert.Positive(t, src.rangeCalls)
}

func TestClassify_GeneRulesDisableCriteria(t *testing.T) {
	ann := tp53Missense()
	for i := range ann.seqvar {
		ann.seqvar[i].GeneID = "HGNC:1100"
		ann.seqvar[i].GeneSymbol = "BRCA1"
	}
	ann.txs = map[string][]gateway.Transcript{"HGNC:1100": ann.txs[hgncTP53]}
	e := newEngine(t, ann, &fakeSource{}, Options{})

	res, err := e.Classify(context.Background(), "GRCh38-17-7675088-C-T")
	require.NoError(t, err)
	assert.Equal(t, "enigma", res.Panel)
	pm1 := find(t, res, criteria.PM1)
	assert.Equal(t, criteria.NotApplicable, pm1.Prediction)
	assert.Equal(t, "PM1 is not applicable for BRCA1", pm1.Summary)
}

func TestClassify_Errors(t *testing.T) {
	ctx := context.Background()

	e := newEngine(t, tp53Missense(), &fakeSource{}, Options{})
	_, err := e.Classify(ctx, "not a variant")
	var parseErr *variant.ParseError
	assert.True(t, errors.As(err, &parseErr))

	gwErr := &gateway.Error{Service: "mehari", URL: "http://x", StatusCode: 500, Err: errors.New("boom")}
	e = newEngine(t, &fakeAnnotator{err: gwErr}, &fakeSource{}, Options{})
	_, err = e.Classify(ctx, "GRCh38-17-7675088-C-T")
	var got *gateway.Error
	require.True(t, errors.As(err, &got))
	assert.Equal(t, 500, got.StatusCode)

	e = newEngine(t, &fakeAnnotator{}, &fakeSource{}, Options{})
	_, err = e.Classify(ctx, "GRCh38-17-7675088-C-T")
	assert.ErrorIs(t, err, ErrNoAnnotation)

	intergenic := &fakeAnnotator{seqvar: []gateway.Consequence{{Terms: []string{criteria.TermIntergenic}}}}
	e = newEngine(t, intergenic, &fakeSource{}, Options{})
	_, err = e.Classify(ctx, "GRCh38-17-7675088-C-T")
	assert.ErrorIs(t, err, ErrIntergenic)
}

func TestClassify_RecordErrorScopedToCriteria(t *testing.T) {
	src := &fakeSource{recordErr: &gateway.Error{Service: "annonars", URL: "http://x", Err: errors.New("timeout")}}
	e := newEngine(t, tp53Missense(), src, Options{})

	res, err := e.Classify(context.Background(), "GRCh38-17-7675088-C-T")
	require.NoError(t, err)
	pm2 := find(t, res, criteria.PM2)
	assert.Equal(t, criteria.Failed, pm2.Prediction)
	assert.Contains(t, pm2.Summary, "timeout")
	assert.Equal(t, criteria.Met, find(t, res, criteria.PM1).Prediction)
}

type fixedScore struct{ calls int }

func (f *fixedScore) Name() string { return "fixed" }

func (f *fixedScore) Fill(_ context.Context, _ variant.PointVariant, s *gateway.ScoreSet) error {
	f.calls++
	if !s.AlphaMissense.Present() {
		s.AlphaMissense = gateway.Some(0.99)
	}
	return nil
}

type fixedHaplo struct{}

func (fixedHaplo) Name() string { return "fixed" }

func (fixedHaplo) Fill(info *gateway.GeneInfo) {
	score := 3
	info.ClinGenHaploScore = &score
}

func TestClassify_LocalSources(t *testing.T) {
	scores := &fixedScore{}
	src := &fakeSource{record: &gateway.VariantRecord{}}
	e := newEngine(t, tp53Missense(), src, Options{
		ScoreFillers: []ScoreFiller{scores},
		GeneFillers:  []GeneFiller{fixedHaplo{}},
	})

	res, err := e.Classify(context.Background(), "GRCh38-17-7675088-C-T")
	require.NoError(t, err)
	assert.Equal(t, 1, scores.calls)
	v, ok := src.record.Scores.AlphaMissense.Get()
	assert.True(t, ok)
	assert.Equal(t, 0.99, v)

	pp3 := find(t, res, criteria.PP3)
	assert.Equal(t, criteria.Met, pp3.Prediction, pp3.Summary)
}

// svTranscript is a plus-strand transcript with four exons and a 350 bp CDS.
func svTranscript(geneID, id string, offset int64) gateway.Transcript {
	return gateway.Transcript{
		ID: id, GeneID: geneID, GeneSymbol: "GENE" + id, Chrom: "1",
		Strand: gateway.StrandPlus, Start: offset + 1000, End: offset + 4199,
		CodingStart: offset + 1050, CodingEnd: offset + 4100,
		Exons: []gateway.Exon{
			{Number: 1, Start: offset + 1000, End: offset + 1099},
			{Number: 2, Start: offset + 2000, End: offset + 2099},
			{Number: 3, Start: offset + 3000, End: offset + 3098},
			{Number: 4, Start: offset + 4000, End: offset + 4199},
		},
		Tags: []string{gateway.TagManeSelect},
	}
}

func TestClassify_StructuralVariant(t *testing.T) {
	ann := &fakeAnnotator{
		strucvar: []gateway.Consequence{{GeneID: "HGNC:2"}, {GeneID: "HGNC:1"}, {GeneID: "HGNC:2"}},
		txs: map[string][]gateway.Transcript{
			"HGNC:1": {svTranscript("HGNC:1", "NM_A.1", 0)},
			// Same layout shifted well past the deletion: no coding overlap.
			"HGNC:2": {svTranscript("HGNC:2", "NM_B.1", 100000)},
		},
	}
	obs := &countingObserver{}
	e := newEngine(t, ann, &fakeSource{}, Options{Observer: obs})

	res, err := e.Classify(context.Background(), "DEL:GRCh38:1:900:4300")
	require.NoError(t, err)
	assert.Equal(t, KindStructural, res.Kind)
	assert.Equal(t, "HGNC:1", res.GeneID)
	assert.Equal(t, "NM_A.1", res.Annotation.TranscriptID)
	assert.Equal(t, "DEL1", res.Annotation.PVS1Path)

	pvs1 := find(t, res, criteria.PVS1)
	assert.Equal(t, criteria.Met, pvs1.Prediction)
	assert.Equal(t, criteria.PathogenicVeryStrong, pvs1.Strength)
	for _, c := range criteria.All[1:] {
		assert.Equal(t, criteria.NotApplicable, find(t, res, c).Prediction, c)
	}
	require.Len(t, res.Criteria, len(criteria.All))
	assert.Equal(t, 1, obs.classifications["strucvar/ok"])
}

func TestClassify_StructuralWithoutTranscripts(t *testing.T) {
	ann := &fakeAnnotator{strucvar: []gateway.Consequence{{GeneID: "HGNC:3"}}}
	e := newEngine(t, ann, &fakeSource{}, Options{})

	sv, err := variant.NewStructuralVariant(genome.GRCh38, "1", 900, 4300, variant.Deletion, "")
	require.NoError(t, err)
	res, err := e.ClassifyVariant(context.Background(), sv)
	require.NoError(t, err)
	assert.Equal(t, criteria.Failed, find(t, res, criteria.PVS1).Prediction)
}

func TestRequestLookup_Memoizes(t *testing.T) {
	src := &fakeSource{}
	l := newRequestLookup(src)
	ctx := context.Background()
	v, err := variant.NewPointVariant(genome.GRCh38, "1", 100, "A", "T", "")
	require.NoError(t, err)

	for range 3 {
		_, err := l.VariantRecord(ctx, v)
		require.NoError(t, err)
		_, err = l.Range(ctx, genome.GRCh38, "1", 10, 20)
		require.NoError(t, err)
	}
	_, err = l.Range(ctx, genome.GRCh38, "1", 10, 21)
	require.NoError(t, err)

	assert.Equal(t, 1, src.recordCalls)
	assert.Equal(t, 2, src.rangeCalls)
}

func TestClassifyStream_Order(t *testing.T) {
	e := newEngine(t, tp53Missense(), &fakeSource{}, Options{})

	const n = 40
	jobs := make(chan Job, n+1)
	for i := range n {
		job := Job{Seq: i, Input: fmt.Sprintf("GRCh38-17-%d-C-T", 7675000+i), Source: i}
		if i%2 == 1 {
			v, err := variant.NewPointVariant(genome.GRCh38, "17", int64(7675000+i), "C", "T", "")
			require.NoError(t, err)
			job.Variant = v
		}
		jobs <- job
	}
	jobs <- Job{Seq: n, Input: "garbage"}
	close(jobs)

	var seqs []int
	err := e.ClassifyStream(context.Background(), jobs, 4, func(o Outcome) error {
		seqs = append(seqs, o.Seq)
		if o.Seq == n {
			assert.Error(t, o.Err)
			return nil
		}
		require.NoError(t, o.Err)
		assert.Equal(t, o.Seq, o.Source.(int))
		assert.Equal(t, o.Input, o.Result.Input)
		assert.Equal(t, fmt.Sprintf("GRCh38-17-%d-C-T", 7675000+o.Seq), o.Result.Variant)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, seqs, n+1)
	for i, s := range seqs {
		assert.Equal(t, i, s)
	}
}

func TestClassifyStream_EmitError(t *testing.T) {
	e := newEngine(t, tp53Missense(), &fakeSource{}, Options{})
	jobs := make(chan Job, 10)
	for i := range 10 {
		jobs <- Job{Seq: i, Input: "GRCh38-17-7675088-C-T"}
	}
	close(jobs)

	count := 0
	err := e.ClassifyStream(context.Background(), jobs, 3, func(Outcome) error {
		count++
		if count == 3 {
			return errors.New("stop at 3")
		}
		return nil
	})
	require.EqualError(t, err, "stop at 3")
	assert.Equal(t, 3, count)
}

func TestClassifyStream_Cancelled(t *testing.T) {
	e := newEngine(t, tp53Missense(), &fakeSource{}, Options{})
	jobs := make(chan Job, 2)
	jobs <- Job{Seq: 0, Input: "GRCh38-17-7675088-C-T"}
	jobs <- Job{Seq: 1, Input: "GRCh38-17-7675089-C-T"}
	close(jobs)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var errs []error
	err := e.ClassifyStream(ctx, jobs, 2, func(o Outcome) error {
		assert.Nil(t, o.Result)
		errs = append(errs, o.Err)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, errs, 2)
	for _, err := range errs {
		assert.ErrorIs(t, err, context.Canceled)
	}
}

func TestSequencer(t *testing.T) {
	var got []int
	s := newSequencer(func(o Outcome) error {
		got = append(got, o.Seq)
		return nil
	})
	for _, seq := range []int{2, 0, 3, 1, 4} {
		require.NoError(t, s.add(Outcome{Job: Job{Seq: seq}}))
	}
	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
	assert.Empty(t, s.waiting)
}
