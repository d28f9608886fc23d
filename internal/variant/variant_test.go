package variant

import (
	"errors"
	"testing"

	"github.com/inodb/vibe-acmg/internal/genome"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPointVariant(t *testing.T) {
	v, err := NewPointVariant(genome.GRCh38, "chr1", 100, "a", "t", "")
	require.NoError(t, err)
	assert.Equal(t, "1", v.Chrom)
	assert.Equal(t, "A", v.Ref)
	assert.Equal(t, "T", v.Alt)
	assert.Equal(t, "GRCh38-1-100-A-T", v.String())
	assert.Equal(t, v.String(), v.Text)
	assert.True(t, v.IsSNV())
	assert.False(t, v.IsIndel())
	assert.Equal(t, int64(100), v.End())
}

func TestPointVariantBounds(t *testing.T) {
	tests := []struct {
		name  string
		build genome.Build
		chrom string
		pos   int64
		ref   string
	}{
		{"zero position", genome.GRCh38, "1", 0, "A"},
		{"negative position", genome.GRCh37, "1", -5, "A"},
		{"beyond GRCh37 chr1", genome.GRCh37, "1", 249250622, "A"},
		{"beyond GRCh38 chr1", genome.GRCh38, "1", 248956423, "A"},
		{"ref overhangs end", genome.GRCh38, "MT", 16569, "AC"},
		{"unknown chromosome", genome.GRCh38, "25", 10, "A"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPointVariant(tt.build, tt.chrom, tt.pos, tt.ref, "T", "")
			var posErr *InvalidPositionError
			assert.True(t, errors.As(err, &posErr), "got %v", err)
		})
	}

	_, err := NewPointVariant(genome.GRCh38, "MT", 16569, "A", "G", "")
	assert.NoError(t, err, "last base is in bounds")
}

func TestPointVariantEquality(t *testing.T) {
	a, err := NewPointVariant(genome.GRCh37, "X", 5000, "AG", "A", "")
	require.NoError(t, err)
	b, err := NewPointVariant(genome.GRCh37, "chrX", 5000, "ag", "a", "")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.True(t, a.IsIndel())
	assert.True(t, a.IsXLinked())
}

func TestStructuralVariant(t *testing.T) {
	sv, err := NewStructuralVariant(genome.GRCh38, "chr17", 41197000, 41277000, Deletion, "")
	require.NoError(t, err)
	assert.Equal(t, "DEL-GRCh38-17-41197000-41277000", sv.String())
	assert.Equal(t, int64(80001), sv.Length())

	_, err = NewStructuralVariant(genome.GRCh38, "17", 200, 100, Duplication, "")
	var posErr *InvalidPositionError
	assert.True(t, errors.As(err, &posErr))

	_, err = NewStructuralVariant(genome.GRCh38, "17", 100, 83257442, Duplication, "")
	assert.True(t, errors.As(err, &posErr))
}

func TestParseSVType(t *testing.T) {
	typ, err := ParseSVType("del")
	require.NoError(t, err)
	assert.Equal(t, Deletion, typ)
	typ, err = ParseSVType("DUP")
	require.NoError(t, err)
	assert.Equal(t, Duplication, typ)
	_, err = ParseSVType("INV")
	assert.Error(t, err)
}

func TestParseErrorUnwrap(t *testing.T) {
	inner := &InvalidPositionError{Build: genome.GRCh38, Chrom: "1", Start: 0, End: 0, Reason: "position before chromosome start"}
	err := &ParseError{Input: "GRCh38-1-0-A-T", Err: inner}
	var posErr *InvalidPositionError
	require.True(t, errors.As(err, &posErr))
	assert.Contains(t, err.Error(), "GRCh38-1-0-A-T")
}
