package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-acmg/internal/acmg"
	"github.com/inodb/vibe-acmg/internal/criteria"
	"github.com/inodb/vibe-acmg/internal/genome"
	"github.com/inodb/vibe-acmg/internal/vcf"
)

func tp53Result() *acmg.Result {
	set := criteria.Set{}
	for _, c := range criteria.All {
		set[c] = criteria.NotApplicablef(c, "not automated")
	}
	pm1 := criteria.Metf(criteria.PM1, "variant in critical region")
	pm1.Strength = criteria.PathogenicModerate
	set[criteria.PM1] = pm1
	set[criteria.PM2] = criteria.Metf(criteria.PM2, "absent from gnomAD")
	set[criteria.BA1] = criteria.NotMetf(criteria.BA1, "allele frequency below 0.1")

	return &acmg.Result{
		Input:      "17:7675088:C:T",
		Variant:    "GRCh38-17-7675088-C-T",
		Build:      genome.GRCh38,
		Kind:       acmg.KindSequence,
		GeneID:     "HGNC:11998",
		GeneSymbol: "TP53",
		Panel:      "tp53",
		Annotation: acmg.Annotation{
			TranscriptID: "NM_000546.6",
			Terms:        []string{"missense_variant"},
			HGVSc:        "c.524G>A",
			HGVSp:        "p.Arg175His",
		},
		Criteria: set.Ordered(),
		Set:      set,
	}
}

func TestTabWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewTabWriter(&buf)

	require.NoError(t, w.WriteHeader())
	require.NoError(t, w.Write(tp53Result()))
	require.NoError(t, w.WriteError("garbage", errors.New("parse variant\t\"garbage\"")))
	require.NoError(t, w.Flush())

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)

	header := strings.Split(lines[0], "\t")
	row := strings.Split(lines[1], "\t")
	failed := strings.Split(lines[2], "\t")
	require.Len(t, row, len(header))
	require.Len(t, failed, len(header))

	col := func(fields []string, name string) string {
		for i, h := range header {
			if h == name {
				return fields[i]
			}
		}
		t.Fatalf("no column %s", name)
		return ""
	}
	assert.Equal(t, "#Input", header[0])
	assert.Equal(t, "TP53", col(row, "Gene"))
	assert.Equal(t, "NM_000546.6", col(row, "Feature"))
	assert.Equal(t, "PM1:PathogenicModerate,PM2:PathogenicModerate", col(row, "Met"))
	assert.Equal(t, "Met", col(row, "PM1"))
	assert.Equal(t, "NotMet", col(row, "BA1"))
	assert.Equal(t, "NotApplicable", col(row, "PS2"))
	assert.Equal(t, "-", col(row, "PVS1_path"))
	assert.Equal(t, "-", col(row, "Error"))

	assert.Equal(t, "garbage", failed[0])
	assert.Equal(t, "parse variant \"garbage\"", col(failed, "Error"))
	assert.Equal(t, "-", col(failed, "PVS1"))
}

func TestJSONWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONWriter(&buf)

	require.NoError(t, w.WriteHeader())
	require.NoError(t, w.Write(tp53Result()))
	require.NoError(t, w.WriteError("garbage", errors.New("bad input")))
	require.NoError(t, w.Flush())

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)

	var got struct {
		Variant  string `json:"variant"`
		Build    string `json:"genome_build"`
		Gene     string `json:"gene"`
		Criteria []struct {
			Name       string `json:"name"`
			Prediction string `json:"prediction"`
			Strength   string `json:"strength"`
		} `json:"criteria"`
	}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &got))
	assert.Equal(t, "GRCh38-17-7675088-C-T", got.Variant)
	assert.Equal(t, "GRCh38", got.Build)
	assert.Equal(t, "TP53", got.Gene)
	require.Len(t, got.Criteria, len(criteria.All))
	assert.Equal(t, "PVS1", got.Criteria[0].Name)
	assert.NotContains(t, lines[0], "Resolved")

	assert.JSONEq(t, `{"input":"garbage","error":"bad input"}`, lines[1])
}

func TestNewWriter(t *testing.T) {
	w, err := NewWriter("json", &bytes.Buffer{})
	require.NoError(t, err)
	assert.IsType(t, &JSONWriter{}, w)

	w, err = NewWriter("", &bytes.Buffer{})
	require.NoError(t, err)
	assert.IsType(t, &TabWriter{}, w)

	_, err = NewWriter("maf", &bytes.Buffer{})
	assert.Error(t, err)
}

func TestVCFWriter(t *testing.T) {
	header := []string{
		"##fileformat=VCFv4.2",
		"#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\tFORMAT\tS1",
	}
	var buf bytes.Buffer
	w := NewVCFWriter(&buf, header)
	require.NoError(t, w.WriteHeader())

	rec := &vcf.Record{
		Chrom: "17", Pos: 7675088, ID: ".", Ref: "C", Alt: "T", Filter: "PASS",
		RawInfo: "DP=30;ACMG=stale", SampleColumns: "GT\t0/1",
	}
	other := *rec
	other.Alt = "G"
	next := &vcf.Record{Chrom: "17", Pos: 7675100, ID: ".", Ref: "A", Alt: "C", Filter: "PASS", RawInfo: "."}

	require.NoError(t, w.Write(rec, tp53Result()))
	require.NoError(t, w.Write(&other, nil))
	require.NoError(t, w.Write(next, nil))
	require.NoError(t, w.Flush())

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 5)
	assert.True(t, strings.HasPrefix(lines[1], "##INFO=<ID=ACMG,"))
	assert.True(t, strings.HasPrefix(lines[2], "#CHROM"))

	fields := strings.Split(lines[3], "\t")
	require.Len(t, fields, 10)
	assert.Equal(t, "T,G", fields[4])
	assert.Equal(t, ".", fields[5])
	assert.Equal(t,
		"DP=30;ACMG=T|TP53|HGNC:11998|NM_000546.6|missense_variant|c.524G>A|p.Arg175His|tp53||PM1:PathogenicModerate&PM2:PathogenicModerate,G|||||||||",
		fields[7])
	assert.Equal(t, "0/1", fields[9])

	fields = strings.Split(lines[4], "\t")
	assert.Equal(t, "ACMG=C|||||||||", fields[7])
}

func TestStripInfoField(t *testing.T) {
	tests := []struct {
		raw, want string
	}{
		{"", "."},
		{".", "."},
		{"DP=3", "DP=3"},
		{"ACMG=x", "."},
		{"DP=3;ACMG=x;AF=0.1", "DP=3;AF=0.1"},
		{"ACMGX=1", "ACMGX=1"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, stripInfoField(tt.raw, "ACMG"), tt.raw)
	}
}
