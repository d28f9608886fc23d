// Package resolve turns free-form variant text into the coordinate model.
//
// Point-variant notations are tried in order: separated
// (GRCh38-1-100-A-T, 1:100:A:T), canonical SPDI (NC_000001.10:99:A:T),
// then the external normalization service. Structural-variant notations
// (DEL:GRCh38:1:100:200, DUP-1-100-200) are tried when point resolution
// fails; text in one of them is never sent to the service.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/inodb/vibe-acmg/internal/genome"
	"github.com/inodb/vibe-acmg/internal/variant"
)

// Normalizer converts free-form variant text (HGVS, rsIDs, ...) into SPDI
// coordinates. A nil SPDI with nil error means the text was not recognized.
type Normalizer interface {
	ToSPDI(ctx context.Context, query string, build genome.Build) (*variant.SPDI, error)
}

const chromPattern = `(?:chr)?(?:[1-9]|1[0-9]|2[0-2]|X|Y|M|MT)`

var (
	reSeparatedHyphen = regexp.MustCompile(`(?i)^(?:(\w+)-)?(` + chromPattern + `)-(\d+)-([ACGT]+)-([ACGT]+)$`)
	reSeparatedColon  = regexp.MustCompile(`(?i)^(?:(\w+):)?(` + chromPattern + `):(\d+):([ACGT]+):([ACGT]+)$`)
	reCanonicalSPDI   = regexp.MustCompile(`(?i)^(NC_\d{6}\.\d+):(\d+):([ACGT]+):([ACGT]+)$`)

	reStructuralColon  = regexp.MustCompile(`(?i)^(DEL|DUP):(?:(\w+):)?(` + chromPattern + `):(\d+):(\d+)$`)
	reStructuralHyphen = regexp.MustCompile(`(?i)^(DEL|DUP)-(?:(\w+)-)?(` + chromPattern + `)-(\d+)-(\d+)$`)
)

var errNoMatch = errors.New("no supported notation matched")

// Resolver resolves variant text. It holds no per-request state and is safe
// for concurrent use.
type Resolver struct {
	normalizer Normalizer
	logger     *zap.Logger
}

// NewResolver creates a Resolver. normalizer may be nil, in which case the
// service fallback is skipped.
func NewResolver(normalizer Normalizer) *Resolver {
	return &Resolver{normalizer: normalizer, logger: zap.NewNop()}
}

// SetLogger sets the logger used for fallback diagnostics.
func (r *Resolver) SetLogger(l *zap.Logger) {
	r.logger = l
}

// Resolve tries point-variant resolution, then structural-variant resolution.
// Errors are always *variant.ParseError.
func (r *Resolver) Resolve(ctx context.Context, text string, defaultBuild genome.Build) (variant.Variant, error) {
	pv, pointErr := r.ResolvePoint(ctx, text, defaultBuild)
	if pointErr == nil {
		return pv, nil
	}
	sv, svErr := r.ResolveStructural(text, defaultBuild)
	if svErr == nil {
		return sv, nil
	}
	// A bounds violation on a recognized notation is more useful than a
	// generic mismatch from the other kind.
	var posErr *variant.InvalidPositionError
	if errors.As(svErr, &posErr) {
		return nil, svErr
	}
	return nil, pointErr
}

// ResolvePoint resolves text to a sequence variant.
func (r *Resolver) ResolvePoint(ctx context.Context, text string, defaultBuild genome.Build) (variant.PointVariant, error) {
	input := strings.TrimSpace(text)
	if input == "" {
		return variant.PointVariant{}, &variant.ParseError{Input: text, Err: errors.New("empty variant text")}
	}

	if v, matched, err := parseSeparated(input, defaultBuild); matched {
		return wrapPoint(input, v, err)
	}
	if v, matched, err := parseCanonicalSPDI(input); matched {
		return wrapPoint(input, v, err)
	}

	// Structural notations resolve locally; they never go to the service.
	if r.normalizer == nil || isStructuralNotation(input) {
		return variant.PointVariant{}, &variant.ParseError{Input: input, Err: errNoMatch}
	}
	spdi, err := r.normalizer.ToSPDI(ctx, input, defaultBuild)
	if err != nil {
		r.logger.Debug("normalization service failed", zap.String("query", input), zap.Error(err))
		return variant.PointVariant{}, &variant.ParseError{Input: input, Err: fmt.Errorf("normalization service: %w", err)}
	}
	if spdi == nil {
		return variant.PointVariant{}, &variant.ParseError{Input: input, Err: errNoMatch}
	}
	v, err := fromSPDI(input, spdi, defaultBuild)
	return wrapPoint(input, v, err)
}

// ResolveStructural resolves text to a structural variant.
func (r *Resolver) ResolveStructural(text string, defaultBuild genome.Build) (variant.StructuralVariant, error) {
	input := strings.TrimSpace(text)
	for _, re := range []*regexp.Regexp{reStructuralColon, reStructuralHyphen} {
		m := re.FindStringSubmatch(input)
		if m == nil {
			continue
		}
		sv, err := structuralFromMatch(input, m, defaultBuild)
		if err != nil {
			return variant.StructuralVariant{}, &variant.ParseError{Input: input, Err: err}
		}
		return sv, nil
	}
	return variant.StructuralVariant{}, &variant.ParseError{Input: input, Err: errNoMatch}
}

func isStructuralNotation(input string) bool {
	return reStructuralColon.MatchString(input) || reStructuralHyphen.MatchString(input)
}

func wrapPoint(input string, v variant.PointVariant, err error) (variant.PointVariant, error) {
	if err != nil {
		return variant.PointVariant{}, &variant.ParseError{Input: input, Err: err}
	}
	return v, nil
}

// parseSeparated handles "[build-]chrom-pos-ref-alt" and the colon form.
// matched is false when neither regex applies.
func parseSeparated(input string, defaultBuild genome.Build) (v variant.PointVariant, matched bool, err error) {
	m := reSeparatedHyphen.FindStringSubmatch(input)
	if m == nil {
		m = reSeparatedColon.FindStringSubmatch(input)
	}
	if m == nil {
		return variant.PointVariant{}, false, nil
	}
	build := defaultBuild
	if m[1] != "" {
		b, err := genome.ParseBuild(m[1])
		if err != nil {
			// An unknown build prefix is not this notation.
			return variant.PointVariant{}, false, nil
		}
		build = b
	}
	pos, err := strconv.ParseInt(m[3], 10, 64)
	if err != nil {
		return variant.PointVariant{}, true, fmt.Errorf("parse position: %w", err)
	}
	v, err = variant.NewPointVariant(build, m[2], pos, m[4], m[5], input)
	return v, true, err
}

// parseCanonicalSPDI handles "NC_000001.10:99:A:T" with a zero-based position.
func parseCanonicalSPDI(input string) (v variant.PointVariant, matched bool, err error) {
	m := reCanonicalSPDI.FindStringSubmatch(input)
	if m == nil {
		return variant.PointVariant{}, false, nil
	}
	build, chrom, ok := genome.LookupAccession(m[1])
	if !ok {
		return variant.PointVariant{}, true, fmt.Errorf("unknown accession %s", m[1])
	}
	pos, err := strconv.ParseInt(m[2], 10, 64)
	if err != nil {
		return variant.PointVariant{}, true, fmt.Errorf("parse position: %w", err)
	}
	v, err = variant.NewPointVariant(build, chrom, pos+1, m[3], m[4], input)
	return v, true, err
}

func fromSPDI(input string, spdi *variant.SPDI, defaultBuild genome.Build) (variant.PointVariant, error) {
	build := defaultBuild
	chrom := spdi.Contig
	if b, c, ok := genome.LookupAccession(spdi.Contig); ok {
		build, chrom = b, c
	} else if spdi.Assembly != "" {
		b, err := genome.ParseBuild(spdi.Assembly)
		if err != nil {
			return variant.PointVariant{}, fmt.Errorf("normalization service: %w", err)
		}
		build = b
	}
	return variant.NewPointVariant(build, chrom, spdi.Pos, spdi.Deleted, spdi.Inserted, input)
}

func structuralFromMatch(input string, m []string, defaultBuild genome.Build) (variant.StructuralVariant, error) {
	svType, err := variant.ParseSVType(m[1])
	if err != nil {
		return variant.StructuralVariant{}, err
	}
	build := defaultBuild
	if m[2] != "" {
		if build, err = genome.ParseBuild(m[2]); err != nil {
			return variant.StructuralVariant{}, err
		}
	}
	start, err := strconv.ParseInt(m[4], 10, 64)
	if err != nil {
		return variant.StructuralVariant{}, fmt.Errorf("parse start: %w", err)
	}
	end, err := strconv.ParseInt(m[5], 10, 64)
	if err != nil {
		return variant.StructuralVariant{}, fmt.Errorf("parse end: %w", err)
	}
	return variant.NewStructuralVariant(build, m[3], start, end, svType, input)
}
