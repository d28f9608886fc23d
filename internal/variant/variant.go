// Package variant provides the coordinate model for sequence and structural
// variants. Values are immutable once constructed and compare structurally.
package variant

import (
	"fmt"
	"strings"

	"github.com/inodb/vibe-acmg/internal/genome"
)

// Variant is implemented by PointVariant and StructuralVariant.
type Variant interface {
	GenomeBuild() genome.Build
	Chromosome() string
	// String returns the canonical text form, which resolves back to an equal value.
	String() string
	isVariant()
}

// PointVariant is a sequence variant: a single substitution or short indel.
type PointVariant struct {
	Build genome.Build
	Chrom string // normalized token, e.g. "1", "X", "MT"
	Pos   int64  // 1-based position of the first reference base
	Ref   string
	Alt   string
	Text  string // text the variant was resolved from
}

// NewPointVariant normalizes and validates a sequence variant. An empty text
// defaults to the canonical form.
func NewPointVariant(build genome.Build, chrom string, pos int64, ref, alt, text string) (PointVariant, error) {
	v := PointVariant{
		Build: build,
		Chrom: genome.NormalizeChrom(chrom),
		Pos:   pos,
		Ref:   strings.ToUpper(ref),
		Alt:   strings.ToUpper(alt),
	}
	if err := checkBounds(build, v.Chrom, pos, pos+int64(len(v.Ref))-1); err != nil {
		return PointVariant{}, err
	}
	if text == "" {
		text = v.String()
	}
	v.Text = text
	return v, nil
}

func (v PointVariant) GenomeBuild() genome.Build { return v.Build }
func (v PointVariant) Chromosome() string        { return v.Chrom }
func (PointVariant) isVariant()                  {}

// String returns "<build>-<chrom>-<pos>-<ref>-<alt>".
func (v PointVariant) String() string {
	return fmt.Sprintf("%s-%s-%d-%s-%s", v.Build, v.Chrom, v.Pos, v.Ref, v.Alt)
}

// End returns the last reference position covered by the variant.
func (v PointVariant) End() int64 {
	if len(v.Ref) == 0 {
		return v.Pos
	}
	return v.Pos + int64(len(v.Ref)) - 1
}

// IsSNV returns true if the variant is a single nucleotide variant.
func (v PointVariant) IsSNV() bool {
	return len(v.Ref) == 1 && len(v.Alt) == 1
}

// IsIndel returns true if the variant is an insertion or deletion.
func (v PointVariant) IsIndel() bool {
	return len(v.Ref) != len(v.Alt)
}

// IsMitochondrial returns true for variants on the mitochondrial genome.
func (v PointVariant) IsMitochondrial() bool {
	return v.Chrom == "MT"
}

// IsXLinked returns true for variants on chromosome X.
func (v PointVariant) IsXLinked() bool {
	return v.Chrom == "X"
}

// SVType is the kind of a structural variant.
type SVType int

const (
	Deletion SVType = iota + 1
	Duplication
)

func (t SVType) String() string {
	switch t {
	case Deletion:
		return "DEL"
	case Duplication:
		return "DUP"
	}
	return fmt.Sprintf("SVType(%d)", int(t))
}

// ParseSVType accepts "DEL" or "DUP", case-insensitive.
func ParseSVType(s string) (SVType, error) {
	switch strings.ToUpper(s) {
	case "DEL":
		return Deletion, nil
	case "DUP":
		return Duplication, nil
	}
	return 0, fmt.Errorf("unknown structural variant type %q", s)
}

// StructuralVariant is a copy-number change spanning [Start, End].
type StructuralVariant struct {
	Build genome.Build
	Chrom string
	Start int64
	End   int64
	Type  SVType
	Text  string
}

// NewStructuralVariant normalizes and validates a structural variant.
func NewStructuralVariant(build genome.Build, chrom string, start, end int64, svType SVType, text string) (StructuralVariant, error) {
	sv := StructuralVariant{
		Build: build,
		Chrom: genome.NormalizeChrom(chrom),
		Start: start,
		End:   end,
		Type:  svType,
	}
	if start > end {
		return StructuralVariant{}, &InvalidPositionError{Build: build, Chrom: sv.Chrom, Start: start, End: end, Reason: "start after end"}
	}
	if err := checkBounds(build, sv.Chrom, start, end); err != nil {
		return StructuralVariant{}, err
	}
	if text == "" {
		text = sv.String()
	}
	sv.Text = text
	return sv, nil
}

func (sv StructuralVariant) GenomeBuild() genome.Build { return sv.Build }
func (sv StructuralVariant) Chromosome() string        { return sv.Chrom }
func (StructuralVariant) isVariant()                   {}

// String returns "<type>-<build>-<chrom>-<start>-<end>".
func (sv StructuralVariant) String() string {
	return fmt.Sprintf("%s-%s-%s-%d-%d", sv.Type, sv.Build, sv.Chrom, sv.Start, sv.End)
}

// Length returns the number of bases spanned.
func (sv StructuralVariant) Length() int64 {
	return sv.End - sv.Start + 1
}

func checkBounds(build genome.Build, chrom string, start, end int64) error {
	length, ok := genome.ChromLength(build, chrom)
	if !ok {
		return &InvalidPositionError{Build: build, Chrom: chrom, Start: start, End: end, Reason: "unknown chromosome"}
	}
	if start < 1 {
		return &InvalidPositionError{Build: build, Chrom: chrom, Start: start, End: end, Reason: "position before chromosome start"}
	}
	if end > length {
		return &InvalidPositionError{Build: build, Chrom: chrom, Start: start, End: end, Reason: fmt.Sprintf("position beyond chromosome end %d", length)}
	}
	return nil
}

// SPDI is the result of the coordinate-normalization service.
type SPDI struct {
	Assembly string
	Contig   string
	Pos      int64
	Deleted  string
	Inserted string
}
