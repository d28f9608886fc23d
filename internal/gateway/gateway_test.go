package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-acmg/internal/genome"
	"github.com/inodb/vibe-acmg/internal/variant"
)

type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemCache() *memCache { return &memCache{data: map[string][]byte{}} }

func (m *memCache) Get(_ context.Context, url string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.data[url]
	return b, ok, nil
}

func (m *memCache) Put(_ context.Context, url string, body []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[url] = body
	return nil
}

type countingRecorder struct {
	mu       sync.Mutex
	outcomes map[string]int
}

func (r *countingRecorder) ObserveRequest(_, outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.outcomes == nil {
		r.outcomes = map[string]int{}
	}
	r.outcomes[outcome]++
}

func serve(t *testing.T, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func mustPoint(t *testing.T, chrom string, pos int64, ref, alt string) variant.PointVariant {
	t.Helper()
	v, err := variant.NewPointVariant(genome.GRCh38, chrom, pos, ref, alt, "")
	require.NoError(t, err)
	return v
}

func TestSeqvarConsequences(t *testing.T) {
	srv, _ := serve(t, `{"result":[{
		"consequences":["missense_variant"],
		"gene_symbol":"BRCA1","gene_id":"HGNC:1100","feature_id":"NM_007294.4",
		"feature_tag":["ManeSelect"],"rank":{"ord":10,"total":23},
		"hgvs_t":"c.181T>G","hgvs_p":"p.Cys61Gly",
		"cds_pos":{"ord":181,"total":5592},"protein_pos":{"ord":61,"total":1863},
		"strand":-1}]}`)

	c := NewMehariClient(srv.URL, Options{})
	csqs, err := c.SeqvarConsequences(context.Background(), mustPoint(t, "17", 43106487, "A", "C"))
	require.NoError(t, err)
	require.Len(t, csqs, 1)

	csq := csqs[0]
	assert.Equal(t, "NM_007294.4", csq.TranscriptID)
	assert.Equal(t, "HGNC:1100", csq.GeneID)
	assert.True(t, csq.IsManeSelect())
	assert.True(t, csq.HasTerm("missense_variant"))
	assert.Equal(t, 10, csq.ExonRank)
	assert.Equal(t, 23, csq.ExonCount)
	assert.Equal(t, int64(5592), csq.CDSLength)
	assert.Equal(t, int64(61), csq.ProteinPos)
	assert.Equal(t, StrandMinus, csq.Strand)
}

func TestGeneTranscripts(t *testing.T) {
	srv, _ := serve(t, `{"transcripts":[{
		"id":"NM_000001.1","geneSymbol":"GENE","geneId":"HGNC:1",
		"tags":["TRANSCRIPT_TAG_MANE_SELECT"],
		"genomeAlignments":[{"contig":"chr1","cdsStart":109,"cdsEnd":450,"strand":"STRAND_PLUS",
			"exons":[{"altStartI":299,"altEndI":500,"ord":1},{"altStartI":99,"altEndI":200,"ord":0}]}]}]}`)

	c := NewMehariClient(srv.URL, Options{})
	txs, err := c.GeneTranscripts(context.Background(), "HGNC:1", genome.GRCh38)
	require.NoError(t, err)
	require.Len(t, txs, 1)

	tx := txs[0]
	assert.Equal(t, "1", tx.Chrom)
	assert.Equal(t, StrandPlus, tx.Strand)
	assert.True(t, tx.IsManeSelect())
	assert.Equal(t, int64(110), tx.CodingStart)
	assert.Equal(t, int64(450), tx.CodingEnd)
	require.Len(t, tx.Exons, 2)
	assert.Equal(t, int64(100), tx.Exons[0].Start)
	assert.Equal(t, int64(300), tx.Exons[1].Start)
	assert.Equal(t, int64(100), tx.Start)
	assert.Equal(t, int64(500), tx.End)
}

func TestVariantRecord(t *testing.T) {
	srv, _ := serve(t, `{"result":{
		"cadd":{"PHRED":24.1,"verPhyloP":"4.2","SpliceAI-acc-gain":0.01,"SpliceAI-don-loss":0.35},
		"dbnsfp":{"REVEL_score":"0.5;0.75;.","AlphaMissense_score":0.9,"HGVSp_VEP":"p.Cys61Gly;p.C61G"},
		"dbscsnv":{"ada_score":0.7},
		"gnomad_exomes":{"alleleCounts":[{"cohort":"","bySex":{"overall":{"ac":3,"an":250000,"nhomalt":0,"af":0.000012}},"afGrpmax":0.00003,"anGrpmax":20000}]},
		"clinvar":{"records":[{"accession":"VCV000017661","classifications":{"germlineClassification":{"description":"Pathogenic","reviewStatus":"reviewed by expert panel"}}}]}
	}}`)

	c := NewAnnonarsClient(srv.URL, Options{})
	rec, err := c.VariantRecord(context.Background(), mustPoint(t, "17", 43106487, "A", "C"))
	require.NoError(t, err)
	require.NotNil(t, rec)

	revel, ok := rec.Scores.REVEL.Get()
	require.True(t, ok)
	assert.InDelta(t, 0.75, revel, 1e-9)
	phylop, ok := rec.Scores.PhyloP100.Get()
	require.True(t, ok)
	assert.InDelta(t, 4.2, phylop, 1e-9)
	spliceMax, ok := rec.Scores.SpliceAIMax().Get()
	require.True(t, ok)
	assert.InDelta(t, 0.35, spliceMax, 1e-9)
	assert.False(t, rec.Scores.RFScore.Present())
	assert.False(t, rec.Scores.BayesDelNoAF.Present())

	require.Len(t, rec.Frequencies, 1)
	assert.Equal(t, "exomes", rec.Frequencies[0].Dataset)
	assert.Equal(t, int64(250000), rec.Frequencies[0].Overall.AN)
	assert.Equal(t, []string{"p.Cys61Gly", "p.C61G"}, rec.HGVSp)
	assert.True(t, rec.PathogenicClinVar())
}

func TestVariantRecord_Empty(t *testing.T) {
	srv, _ := serve(t, `{"result":{}}`)
	c := NewAnnonarsClient(srv.URL, Options{})
	rec, err := c.VariantRecord(context.Background(), mustPoint(t, "1", 1000, "A", "G"))
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestGeneInfo(t *testing.T) {
	srv, _ := serve(t, `{"genes":{"HGNC:1100":{
		"hgnc":{"symbol":"BRCA1"},"clingen":{"haploinsufficiencyScore":3},
		"decipherHi":{"pHi":0.95},"gnomadConstraints":{"misZ":2.1}}}}`)

	c := NewAnnonarsClient(srv.URL, Options{})
	info, err := c.GeneInfo(context.Background(), "HGNC:1100")
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, "BRCA1", info.Symbol)
	require.NotNil(t, info.ClinGenHaploScore)
	assert.Equal(t, 3, *info.ClinGenHaploScore)
	assert.False(t, info.DominoScore.Present())
	z, _ := info.MissenseZ.Get()
	assert.InDelta(t, 2.1, z, 1e-9)

	missing, err := c.GeneInfo(context.Background(), "HGNC:9999")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRange(t *testing.T) {
	srv, _ := serve(t, `{"result":{
		"gnomad_genomes":[{"pos":100,"refAllele":"A","altAllele":"T","consequences":["missense_variant"],
			"alleleCounts":[{"afGrpmax":0.001},{"afGrpmax":0.02}]}],
		"clinvar":[{"accession":"VCV1","classifications":{"germlineClassification":{"description":"Likely pathogenic"}},
			"sequenceLocation":{"positionVcf":105,"referenceAlleleVcf":"C","alternateAlleleVcf":"G"},
			"molecularConsequences":["missense_variant"]}]}}`)

	c := NewAnnonarsClient(srv.URL, Options{})
	rr, err := c.Range(context.Background(), genome.GRCh38, "chr1", 75, 125)
	require.NoError(t, err)
	require.Len(t, rr.Population, 1)
	assert.InDelta(t, 0.02, rr.Population[0].AFGrpmax, 1e-9)
	require.Len(t, rr.ClinVar, 1)
	assert.Equal(t, int64(105), rr.ClinVar[0].Pos)
	assert.True(t, rr.ClinVar[0].IsPathogenic())
}

func TestToSPDI(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		_, _ = w.Write([]byte(`{"success":true,"value":{"assembly":"GRCh38","contig":"17","pos":43106486,"reference_deleted":"A","alternate_inserted":"C"}}`))
	}))
	defer srv.Close()

	c := NewDottyClient(srv.URL, Options{})
	spdi, err := c.ToSPDI(context.Background(), "NM_007294.4:c.181T>G", genome.GRCh38)
	require.NoError(t, err)
	require.NotNil(t, spdi)
	assert.Equal(t, "NM_007294.4:c.181T>G", gotQuery)
	assert.Equal(t, int64(43106486), spdi.Pos)
	assert.Equal(t, "C", spdi.Inserted)
}

func TestToSPDI_Unsuccessful(t *testing.T) {
	srv, _ := serve(t, `{"success":false}`)
	c := NewDottyClient(srv.URL, Options{})
	spdi, err := c.ToSPDI(context.Background(), "garbage", genome.GRCh38)
	require.NoError(t, err)
	assert.Nil(t, spdi)
}

func TestFetcher_CacheHit(t *testing.T) {
	srv, hits := serve(t, `{"result":[]}`)
	cache := newMemCache()
	rec := &countingRecorder{}
	c := NewMehariClient(srv.URL, Options{Cache: cache, Recorder: rec})
	v := mustPoint(t, "1", 1000, "A", "G")

	_, err := c.SeqvarConsequences(context.Background(), v)
	require.NoError(t, err)
	_, err = c.SeqvarConsequences(context.Background(), v)
	require.NoError(t, err)

	assert.Equal(t, int32(1), hits.Load())
	assert.Equal(t, 1, rec.outcomes[OutcomeOK])
	assert.Equal(t, 1, rec.outcomes[OutcomeCached])
}

func TestFetcher_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	c := NewAnnonarsClient(srv.URL, Options{Retries: 2})
	info, err := c.GeneInfo(context.Background(), "HGNC:1")
	require.NoError(t, err)
	assert.Nil(t, info)
}

func TestFetcher_RetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			http.Error(w, "temporarily down", http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"result":[]}`))
	}))
	defer srv.Close()

	c := NewMehariClient(srv.URL, Options{Retries: 2})
	_, err := c.SeqvarConsequences(context.Background(), mustPoint(t, "1", 1000, "A", "G"))
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())
}

func TestFetcher_ClientErrorIsPermanent(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "bad chromosome", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	c := NewMehariClient(srv.URL, Options{Retries: 3})
	_, err := c.SeqvarConsequences(context.Background(), mustPoint(t, "1", 1000, "A", "G"))
	require.Error(t, err)

	var gwErr *Error
	require.True(t, errors.As(err, &gwErr))
	assert.Equal(t, http.StatusUnprocessableEntity, gwErr.StatusCode)
	assert.Equal(t, "mehari", gwErr.Service)
	assert.Equal(t, int32(1), hits.Load())
}

func TestFetcher_DecodeError(t *testing.T) {
	srv, _ := serve(t, `not json`)
	c := NewMehariClient(srv.URL, Options{})
	_, err := c.SeqvarConsequences(context.Background(), mustPoint(t, "1", 1000, "A", "G"))
	var gwErr *Error
	require.ErrorAs(t, err, &gwErr)
	assert.Contains(t, gwErr.Error(), "decode response")
}

func TestFetcher_SharedFetchSurvivesCancelledCaller(t *testing.T) {
	var hits atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			close(started)
		}
		select {
		case <-release:
		case <-r.Context().Done():
			return
		}
		_, _ = w.Write([]byte(`{"result":[]}`))
	}))
	defer srv.Close()

	f := newFetcher("mehari", srv.URL, Options{})
	url := srv.URL + "/seqvars/csq"

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		var out struct{}
		_, err := f.getJSON(ctx, url, &out)
		first <- err
	}()
	<-started
	cancel()
	require.ErrorIs(t, <-first, context.Canceled)

	second := make(chan error, 1)
	go func() {
		var out struct {
			Result []any `json:"result"`
		}
		found, err := f.getJSON(context.Background(), url, &out)
		if err == nil && !found {
			err = errors.New("not found")
		}
		second <- err
	}()
	time.Sleep(50 * time.Millisecond)
	close(release)

	require.NoError(t, <-second)
	assert.Equal(t, int32(1), hits.Load())
}
