// Package genome holds static per-assembly tables: chromosome names,
// chromosome lengths and RefSeq accessions. All tables are read-only after
// package initialization.
package genome

import (
	"fmt"
	"strings"
)

// Build identifies a reference genome assembly.
type Build int

const (
	GRCh37 Build = iota + 1
	GRCh38
)

func (b Build) String() string {
	switch b {
	case GRCh37:
		return "GRCh37"
	case GRCh38:
		return "GRCh38"
	}
	return fmt.Sprintf("Build(%d)", int(b))
}

// Valid reports whether b is a known assembly.
func (b Build) Valid() bool {
	return b == GRCh37 || b == GRCh38
}

// ParseBuild converts an assembly name to a Build.
// Accepts GRCh37/hg19 and GRCh38/hg38, case-insensitive.
func ParseBuild(s string) (Build, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "grch37", "hg19":
		return GRCh37, nil
	case "grch38", "hg38":
		return GRCh38, nil
	}
	return 0, fmt.Errorf("unknown genome build %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (b Build) MarshalText() ([]byte, error) {
	if !b.Valid() {
		return nil, fmt.Errorf("invalid genome build %d", int(b))
	}
	return []byte(b.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *Build) UnmarshalText(text []byte) error {
	parsed, err := ParseBuild(string(text))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// NormalizeChrom returns the canonical chromosome token: no "chr" prefix,
// upper case, and "MT" for the mitochondrial genome ("M", "chrM", "MT").
func NormalizeChrom(chrom string) string {
	c := strings.ToLower(strings.TrimSpace(chrom))
	c = strings.TrimPrefix(c, "chr")
	if c == "m" {
		c = "mt"
	}
	return strings.ToUpper(c)
}

// IsMitochondrial reports whether chrom names the mitochondrial genome.
func IsMitochondrial(chrom string) bool {
	return NormalizeChrom(chrom) == "MT"
}

// ChromLength returns the length of chrom in build b.
func ChromLength(b Build, chrom string) (int64, bool) {
	var table map[string]int64
	switch b {
	case GRCh37:
		table = lengths37
	case GRCh38:
		table = lengths38
	default:
		return 0, false
	}
	n, ok := table[NormalizeChrom(chrom)]
	return n, ok
}

// Accession returns the RefSeq accession for chrom in build b.
func Accession(b Build, chrom string) (string, bool) {
	var table map[string]string
	switch b {
	case GRCh37:
		table = refseq37
	case GRCh38:
		table = refseq38
	default:
		return "", false
	}
	acc, ok := table[NormalizeChrom(chrom)]
	return acc, ok
}

// LookupAccession maps a RefSeq chromosome accession to its build and
// chromosome. The mitochondrial accession is shared between builds and
// resolves to GRCh37.
func LookupAccession(accession string) (Build, string, bool) {
	acc := strings.ToUpper(strings.TrimSpace(accession))
	if loc, ok := accessionIndex[acc]; ok {
		return loc.build, loc.chrom, true
	}
	return 0, "", false
}

// Chromosomes returns the chromosome tokens in karyotype order.
func Chromosomes() []string {
	out := make([]string, len(chromOrder))
	copy(out, chromOrder)
	return out
}

type location struct {
	build Build
	chrom string
}

var chromOrder = []string{
	"1", "2", "3", "4", "5", "6", "7", "8", "9", "10", "11", "12",
	"13", "14", "15", "16", "17", "18", "19", "20", "21", "22", "X", "Y", "MT",
}

var accessionIndex = buildAccessionIndex()

func buildAccessionIndex() map[string]location {
	idx := make(map[string]location, len(refseq37)+len(refseq38))
	// GRCh38 first so shared accessions end up pointing at GRCh37.
	for chrom, acc := range refseq38 {
		idx[acc] = location{GRCh38, chrom}
	}
	for chrom, acc := range refseq37 {
		idx[acc] = location{GRCh37, chrom}
	}
	return idx
}

var refseq37 = map[string]string{
	"1": "NC_000001.10", "2": "NC_000002.11", "3": "NC_000003.11", "4": "NC_000004.11",
	"5": "NC_000005.9", "6": "NC_000006.11", "7": "NC_000007.13", "8": "NC_000008.10",
	"9": "NC_000009.11", "10": "NC_000010.10", "11": "NC_000011.9", "12": "NC_000012.11",
	"13": "NC_000013.10", "14": "NC_000014.8", "15": "NC_000015.9", "16": "NC_000016.9",
	"17": "NC_000017.10", "18": "NC_000018.9", "19": "NC_000019.9", "20": "NC_000020.10",
	"21": "NC_000021.8", "22": "NC_000022.10", "X": "NC_000023.10", "Y": "NC_000024.9",
	"MT": "NC_012920.1",
}

var refseq38 = map[string]string{
	"1": "NC_000001.11", "2": "NC_000002.12", "3": "NC_000003.12", "4": "NC_000004.12",
	"5": "NC_000005.10", "6": "NC_000006.12", "7": "NC_000007.14", "8": "NC_000008.11",
	"9": "NC_000009.12", "10": "NC_000010.11", "11": "NC_000011.10", "12": "NC_000012.12",
	"13": "NC_000013.11", "14": "NC_000014.9", "15": "NC_000015.10", "16": "NC_000016.10",
	"17": "NC_000017.11", "18": "NC_000018.10", "19": "NC_000019.10", "20": "NC_000020.11",
	"21": "NC_000021.9", "22": "NC_000022.11", "X": "NC_000023.11", "Y": "NC_000024.10",
	"MT": "NC_012920.1",
}

var lengths37 = map[string]int64{
	"1": 249250621, "2": 243199373, "3": 198022430, "4": 191154276,
	"5": 180915260, "6": 171115067, "7": 159138663, "8": 146364022,
	"9": 141213431, "10": 135534747, "11": 135006516, "12": 133851895,
	"13": 115169878, "14": 107349540, "15": 102531392, "16": 90354753,
	"17": 81195210, "18": 78077248, "19": 59128983, "20": 63025520,
	"21": 48129895, "22": 51304566, "X": 155270560, "Y": 59373566,
	"MT": 16569,
}

var lengths38 = map[string]int64{
	"1": 248956422, "2": 242193529, "3": 198295559, "4": 190214555,
	"5": 181538259, "6": 170805979, "7": 159345973, "8": 145138636,
	"9": 138394717, "10": 133797422, "11": 135086622, "12": 133275309,
	"13": 114364328, "14": 107043718, "15": 101991189, "16": 90338345,
	"17": 83257441, "18": 80373285, "19": 58617616, "20": 64444167,
	"21": 46709983, "22": 50818468, "X": 156040895, "Y": 57227415,
	"MT": 16569,
}
