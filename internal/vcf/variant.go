package vcf

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/inodb/vibe-acmg/internal/genome"
	"github.com/inodb/vibe-acmg/internal/variant"
)

// Record represents a single data line from a VCF file.
type Record struct {
	Chrom   string         // Chromosome name (e.g., "12", "chr12")
	Pos     int64          // 1-based genomic position
	ID      string         // Variant identifier (e.g., rs ID)
	Ref     string         // Reference allele
	Alt     string         // Alternate allele (single allele after splitting)
	Qual    float64        // Quality score
	Filter  string         // Filter status (PASS or filter name)
	Info    map[string]any // INFO field key-value pairs
	RawInfo string         // INFO column as read

	// SampleColumns holds FORMAT and the sample columns, tab-joined.
	SampleColumns string
}

// IsSymbolic reports whether the ALT allele is a symbolic allele such as <DEL>.
func (r *Record) IsSymbolic() bool {
	return strings.HasPrefix(r.Alt, "<") && strings.HasSuffix(r.Alt, ">")
}

// Locus returns "chrom:pos" for log and error messages.
func (r *Record) Locus() string {
	return fmt.Sprintf("%s:%d", r.Chrom, r.Pos)
}

// ToVariant converts the record into a sequence variant, or into a
// structural variant for <DEL> and <DUP> alleles carrying an INFO END.
func (r *Record) ToVariant(build genome.Build) (variant.Variant, error) {
	switch {
	case r.Alt == "" || r.Alt == "." || r.Alt == "*":
		return nil, fmt.Errorf("record %s has no alternate allele", r.Locus())
	case r.IsSymbolic():
		return r.structural(build)
	}
	return variant.NewPointVariant(build, r.Chrom, r.Pos, r.Ref, r.Alt, "")
}

func (r *Record) structural(build genome.Build) (variant.Variant, error) {
	// <DUP:TANDEM> and similar subtypes keep only the top-level type.
	name, _, _ := strings.Cut(strings.Trim(r.Alt, "<>"), ":")
	svType, err := variant.ParseSVType(name)
	if err != nil {
		return nil, fmt.Errorf("record %s: %w", r.Locus(), err)
	}
	raw, ok := r.Info["END"].(string)
	if !ok {
		return nil, fmt.Errorf("record %s: symbolic allele %s without INFO END", r.Locus(), r.Alt)
	}
	end, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("record %s: invalid END %q", r.Locus(), raw)
	}
	// POS is the padding base before the event.
	return variant.NewStructuralVariant(build, r.Chrom, r.Pos+1, end, svType, "")
}
