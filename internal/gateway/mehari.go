package gateway

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/inodb/vibe-acmg/internal/genome"
	"github.com/inodb/vibe-acmg/internal/variant"
)

// MehariClient fetches transcript consequences and transcript geometry.
type MehariClient struct {
	f *fetcher
}

// NewMehariClient creates a client for the mehari service at baseURL.
func NewMehariClient(baseURL string, opts Options) *MehariClient {
	return &MehariClient{f: newFetcher("mehari", baseURL, opts)}
}

type mehariRange struct {
	Ord   int64 `json:"ord"`
	Total int64 `json:"total"`
}

type mehariCsq struct {
	Consequences []string     `json:"consequences"`
	GeneSymbol   string       `json:"gene_symbol"`
	GeneID       string       `json:"gene_id"`
	FeatureID    string       `json:"feature_id"`
	FeatureTag   []string     `json:"feature_tag"`
	Rank         *mehariRange `json:"rank"`
	HGVSt        string       `json:"hgvs_t"`
	HGVSp        string       `json:"hgvs_p"`
	TxPos        *mehariRange `json:"tx_pos"`
	CDSPos       *mehariRange `json:"cds_pos"`
	ProteinPos   *mehariRange `json:"protein_pos"`
	Distance     *int64       `json:"distance"`
	Strand       int8         `json:"strand"`
}

type mehariCsqResponse struct {
	Result []mehariCsq `json:"result"`
}

// SeqvarConsequences returns the per-transcript consequences of v.
func (c *MehariClient) SeqvarConsequences(ctx context.Context, v variant.PointVariant) ([]Consequence, error) {
	q := url.Values{}
	q.Set("genome_release", strings.ToLower(v.Build.String()))
	q.Set("chromosome", v.Chrom)
	q.Set("position", fmt.Sprint(v.Pos))
	q.Set("reference", v.Ref)
	q.Set("alternative", v.Alt)
	u := c.f.baseURL + "/seqvars/csq?" + q.Encode()

	var resp mehariCsqResponse
	found, err := c.f.getJSON(ctx, u, &resp)
	if err != nil || !found {
		return nil, err
	}

	out := make([]Consequence, 0, len(resp.Result))
	for _, r := range resp.Result {
		csq := Consequence{
			TranscriptID: r.FeatureID,
			GeneSymbol:   r.GeneSymbol,
			GeneID:       r.GeneID,
			Terms:        r.Consequences,
			Tags:         r.FeatureTag,
			HGVSc:        r.HGVSt,
			HGVSp:        r.HGVSp,
			Strand:       Strand(r.Strand),
		}
		if r.Rank != nil {
			csq.ExonRank, csq.ExonCount = int(r.Rank.Ord), int(r.Rank.Total)
		}
		if r.TxPos != nil {
			csq.TxPos = r.TxPos.Ord
		}
		if r.CDSPos != nil {
			csq.CDSPos, csq.CDSLength = r.CDSPos.Ord, r.CDSPos.Total
		}
		if r.ProteinPos != nil {
			csq.ProteinPos, csq.ProteinLen = r.ProteinPos.Ord, r.ProteinPos.Total
		}
		if r.Distance != nil {
			csq.Distance = *r.Distance
		}
		out = append(out, csq)
	}
	return out, nil
}

type mehariStrucvarCsq struct {
	HGNCID            string   `json:"hgnc_id"`
	TranscriptEffects []string `json:"transcript_effects"`
}

type mehariStrucvarResponse struct {
	Result []mehariStrucvarCsq `json:"result"`
}

// StrucvarConsequences returns the genes affected by a structural variant.
func (c *MehariClient) StrucvarConsequences(ctx context.Context, sv variant.StructuralVariant) ([]Consequence, error) {
	q := url.Values{}
	q.Set("genome_release", strings.ToLower(sv.Build.String()))
	q.Set("chromosome", sv.Chrom)
	q.Set("start", fmt.Sprint(sv.Start))
	q.Set("stop", fmt.Sprint(sv.End))
	q.Set("sv_type", sv.Type.String())
	u := c.f.baseURL + "/strucvars/csq?" + q.Encode()

	var resp mehariStrucvarResponse
	found, err := c.f.getJSON(ctx, u, &resp)
	if err != nil || !found {
		return nil, err
	}
	out := make([]Consequence, 0, len(resp.Result))
	for _, r := range resp.Result {
		out = append(out, Consequence{GeneID: r.HGNCID, Terms: r.TranscriptEffects})
	}
	return out, nil
}

type mehariExon struct {
	AltStartI int64 `json:"altStartI"`
	AltEndI   int64 `json:"altEndI"`
	Ord       int   `json:"ord"`
}

type mehariAlignment struct {
	GenomeBuild string       `json:"genomeBuild"`
	Contig      string       `json:"contig"`
	CDSStart    *int64       `json:"cdsStart"`
	CDSEnd      *int64       `json:"cdsEnd"`
	Strand      string       `json:"strand"`
	Exons       []mehariExon `json:"exons"`
}

type mehariTranscript struct {
	ID               string            `json:"id"`
	GeneSymbol       string            `json:"geneSymbol"`
	GeneID           string            `json:"geneId"`
	Tags             []string          `json:"tags"`
	GenomeAlignments []mehariAlignment `json:"genomeAlignments"`
}

type mehariGeneTxsResponse struct {
	Transcripts []mehariTranscript `json:"transcripts"`
}

// GeneTranscripts returns all transcripts registered for an HGNC gene.
func (c *MehariClient) GeneTranscripts(ctx context.Context, hgncID string, build genome.Build) ([]Transcript, error) {
	q := url.Values{}
	q.Set("hgncId", hgncID)
	q.Set("genomeBuild", "GENOME_BUILD_"+strings.ToUpper(build.String()))
	u := c.f.baseURL + "/genes/txs?" + q.Encode()

	var resp mehariGeneTxsResponse
	found, err := c.f.getJSON(ctx, u, &resp)
	if err != nil || !found {
		return nil, err
	}

	out := make([]Transcript, 0, len(resp.Transcripts))
	for _, mt := range resp.Transcripts {
		if len(mt.GenomeAlignments) == 0 {
			continue
		}
		aln := mt.GenomeAlignments[0]
		tx := Transcript{
			ID:         mt.ID,
			GeneSymbol: mt.GeneSymbol,
			GeneID:     mt.GeneID,
			Chrom:      genome.NormalizeChrom(aln.Contig),
			Strand:     parseStrand(aln.Strand),
			Tags:       normalizeTags(mt.Tags),
		}
		if aln.CDSStart != nil && aln.CDSEnd != nil {
			tx.CodingStart, tx.CodingEnd = *aln.CDSStart+1, *aln.CDSEnd
		}
		for _, e := range aln.Exons {
			tx.Exons = append(tx.Exons, Exon{Number: e.Ord, Start: e.AltStartI + 1, End: e.AltEndI})
		}
		sort.Slice(tx.Exons, func(i, j int) bool { return tx.Exons[i].Start < tx.Exons[j].Start })
		if n := len(tx.Exons); n > 0 {
			tx.Start, tx.End = tx.Exons[0].Start, tx.Exons[n-1].End
		}
		out = append(out, tx)
	}
	return out, nil
}

func parseStrand(s string) Strand {
	switch strings.ToUpper(s) {
	case "STRAND_PLUS", "PLUS", "+", "1":
		return StrandPlus
	case "STRAND_MINUS", "MINUS", "-", "-1":
		return StrandMinus
	}
	return StrandUnknown
}

var tagNames = map[string]string{
	"TRANSCRIPT_TAG_MANE_SELECT":        TagManeSelect,
	"TRANSCRIPT_TAG_MANE_PLUS_CLINICAL": TagManePlusClinical,
	"TRANSCRIPT_TAG_ENSEMBL_CANONICAL":  TagCanonical,
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if n, ok := tagNames[t]; ok {
			out = append(out, n)
		} else {
			out = append(out, t)
		}
	}
	return out
}
