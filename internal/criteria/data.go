package criteria

import (
	"context"

	"github.com/inodb/vibe-acmg/internal/gateway"
	"github.com/inodb/vibe-acmg/internal/genome"
	"github.com/inodb/vibe-acmg/internal/regions"
	"github.com/inodb/vibe-acmg/internal/variant"
)

// Lookup answers the secondary queries some predicates issue: records for
// other alleles at the same site and variants within a genomic range.
type Lookup interface {
	VariantRecord(ctx context.Context, v variant.PointVariant) (*gateway.VariantRecord, error)
	Range(ctx context.Context, build genome.Build, chrom string, start, end int64) (*gateway.RangeRecords, error)
}

// Data is everything the predicates need for one point variant. It is
// fully populated before any predicate runs and is not modified afterwards.
type Data struct {
	Variant    variant.PointVariant
	GeneID     string
	GeneSymbol string

	// Transcript is the selected transcript; Consequence is the predicted
	// effect on it. Transcripts holds every transcript of the gene.
	Transcript  *gateway.Transcript
	Consequence *gateway.Consequence
	Transcripts []gateway.Transcript

	Record      *gateway.VariantRecord
	RecordErr   error
	GeneInfo    *gateway.GeneInfo
	GeneInfoErr error

	Thresholds Thresholds
	Rules      GeneRules

	Repeats *regions.Index
	Domains *regions.Index
	Lookup  Lookup
}

// VariantRecord returns the record of the variant, or the error that
// prevented fetching it. An absent record is a MissingDataError.
func (d *Data) VariantRecord() (*gateway.VariantRecord, error) {
	if d.RecordErr != nil {
		return nil, d.RecordErr
	}
	if d.Record == nil {
		return nil, missing("variant annotation record")
	}
	return d.Record, nil
}

// Scores returns the predictor scores, which are all absent when no record
// was found.
func (d *Data) Scores() gateway.ScoreSet {
	if d.Record == nil {
		return gateway.ScoreSet{}
	}
	return d.Record.Scores
}

// Range queries the lookup, failing when none is configured.
func (d *Data) Range(ctx context.Context, start, end int64) (*gateway.RangeRecords, error) {
	if d.Lookup == nil {
		return nil, missing("range lookup")
	}
	recs, err := d.Lookup.Range(ctx, d.Variant.Build, d.Variant.Chrom, start, end)
	if err != nil {
		return nil, err
	}
	if recs == nil {
		recs = &gateway.RangeRecords{}
	}
	return recs, nil
}

func (d *Data) consequence() (*gateway.Consequence, error) {
	if d.Consequence == nil {
		return nil, missing("transcript consequence")
	}
	return d.Consequence, nil
}
