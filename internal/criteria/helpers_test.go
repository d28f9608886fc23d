package criteria

import (
	"context"
	"testing"

	"github.com/inodb/vibe-acmg/internal/gateway"
	"github.com/inodb/vibe-acmg/internal/genome"
	"github.com/inodb/vibe-acmg/internal/variant"
	"github.com/stretchr/testify/require"
)

type fakeLookup struct {
	records    map[string]*gateway.VariantRecord
	clinvar    []gateway.ClinVarRecord
	err        error
	rangeCalls int
}

func (f *fakeLookup) VariantRecord(_ context.Context, v variant.PointVariant) (*gateway.VariantRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.records[v.String()], nil
}

func (f *fakeLookup) Range(_ context.Context, _ genome.Build, _ string, start, end int64) (*gateway.RangeRecords, error) {
	f.rangeCalls++
	if f.err != nil {
		return nil, f.err
	}
	out := &gateway.RangeRecords{}
	for _, r := range f.clinvar {
		if r.Pos >= start && r.Pos <= end {
			out.ClinVar = append(out.ClinVar, r)
		}
	}
	return out, nil
}

func point(t *testing.T, chrom string, pos int64, ref, alt string) variant.PointVariant {
	t.Helper()
	v, err := variant.NewPointVariant(genome.GRCh38, chrom, pos, ref, alt, "")
	require.NoError(t, err)
	return v
}

func newData(t *testing.T, v variant.PointVariant, terms ...string) *Data {
	t.Helper()
	return &Data{
		Variant:    v,
		GeneID:     "HGNC:1",
		GeneSymbol: "TEST",
		Consequence: &gateway.Consequence{
			TranscriptID: "NM_TEST.1",
			GeneSymbol:   "TEST",
			Terms:        terms,
		},
		Thresholds: DefaultThresholds(),
	}
}

func resultFor(t *testing.T, results []Result, c Criterion) Result {
	t.Helper()
	for _, r := range results {
		if r.Criterion == c {
			return r
		}
	}
	t.Fatalf("no result for %s", c)
	return Result{}
}

func pathogenicAt(pos int64, name string) gateway.ClinVarRecord {
	return gateway.ClinVarRecord{
		AccessionID:  "VCV" + name,
		Name:         name,
		Significance: gateway.SignificancePathogenic,
		Pos:          pos,
		Ref:          "C",
		Alt:          "T",
	}
}
