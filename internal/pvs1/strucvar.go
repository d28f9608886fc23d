package pvs1

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/inodb/vibe-acmg/internal/criteria"
	"github.com/inodb/vibe-acmg/internal/gateway"
	"github.com/inodb/vibe-acmg/internal/regions"
	"github.com/inodb/vibe-acmg/internal/variant"
)

// SVInput is the data ClassifyStructural evaluates.
type SVInput struct {
	Variant    variant.StructuralVariant
	GeneID     string
	Transcript *gateway.Transcript
	Thresholds criteria.Thresholds
	Domains    *regions.Index
	Lookup     criteria.Lookup
	// DuplicationTandem marks duplications as proven to be in tandem.
	// Otherwise they are presumed in tandem.
	DuplicationTandem bool
}

// ClassifyStructural walks the decision tree for a deletion or duplication
// against one transcript of an affected gene.
func (c *Classifier) ClassifyStructural(ctx context.Context, in SVInput) (Decision, error) {
	tx, sv := in.Transcript, in.Variant
	if err := checkGeometry(tx); err != nil {
		return Decision{}, err
	}

	var affected int64
	for _, e := range codingExons(tx) {
		lo, hi := max(e.Start, sv.Start), min(e.End, sv.End)
		if hi >= lo {
			affected += hi - lo + 1
		}
	}
	if affected == 0 {
		return Decision{Outcome: OutcomeNotPVS1, Detail: fmt.Sprintf("%s does not affect coding exons of %s", sv.Type, tx.ID)}, nil
	}

	ev := regionEvidence{
		lookup:  in.Lookup,
		build:   sv.Build,
		chrom:   sv.Chrom,
		domains: in.Domains,
		th:      in.Thresholds,
	}
	disrupts := affected%3 != 0
	nmd := svUndergoesNMD(in.GeneID, tx, sv, in.Thresholds.PVS1NMDDistance)

	var dec Decision
	var err error
	switch sv.Type {
	case variant.Deletion:
		dec, err = deletion(ctx, ev, tx, sv, affected, disrupts, nmd)
	case variant.Duplication:
		dec = duplication(disrupts, nmd, in.DuplicationTandem)
	default:
		return Decision{}, &criteria.AlgorithmError{Msg: fmt.Sprintf("unsupported structural variant type %s", sv.Type)}
	}
	if err != nil {
		return Decision{}, err
	}
	c.logger.Debug("PVS1 decision",
		zap.String("variant", sv.String()),
		zap.String("transcript", tx.ID),
		zap.Int64("coding_bases", affected),
		zap.String("path", string(dec.Path)),
		zap.Stringer("outcome", dec.Outcome))
	return dec, nil
}

func deletion(ctx context.Context, ev regionEvidence, tx *gateway.Transcript, sv variant.StructuralVariant, affected int64, disrupts, nmd bool) (Decision, error) {
	if sv.Start <= tx.CodingStart && sv.End >= tx.CodingEnd {
		return decide(PathDEL1, OutcomeVeryStrong), nil
	}
	relevant := biologicallyRelevant(tx)
	removed := float64(affected) / float64(tx.CDSLength())
	deleted := [2]int64{max(sv.Start, tx.CodingStart), min(sv.End, tx.CodingEnd)}

	if !disrupts {
		return ev.escape(ctx, deleted, deleted, relevant, removed,
			escapePaths{PathDEL8, PathDEL5_2, PathDEL6_2, PathDEL7_2})
	}
	if nmd {
		if relevant {
			return decide(PathDEL2, OutcomeVeryStrong), nil
		}
		return decide(PathDEL3, OutcomeNotPVS1), nil
	}
	first := sv.Start
	if tx.Strand == gateway.StrandMinus {
		first = sv.End
	}
	altStart, altEnd := alteredRegion(tx, first)
	return ev.escape(ctx, [2]int64{altStart, altEnd}, deleted, relevant, removed,
		escapePaths{PathDEL4, PathDEL5_1, PathDEL6_1, PathDEL7_1})
}

func duplication(disrupts, nmd, tandem bool) Decision {
	switch {
	case tandem && disrupts && nmd:
		return decide(PathDUP1, OutcomeVeryStrong)
	case tandem:
		return decide(PathDUP2_1, OutcomeNotPVS1)
	case disrupts && nmd:
		return decide(PathDUP3, OutcomeStrong)
	}
	return decide(PathDUP2_2, OutcomeNotPVS1)
}

// svUndergoesNMD reports whether the rearranged transcript is expected to
// undergo NMD. Changes starting in the last coding exon or in the last
// distance bases of the penultimate one escape it.
func svUndergoesNMD(geneID string, tx *gateway.Transcript, sv variant.StructuralVariant, distance int64) bool {
	if geneID == hgncGJB2 {
		return true
	}
	exons := codingExons(tx)
	if len(exons) < 2 {
		return false
	}
	pen := exons[len(exons)-2]
	if tx.Strand == gateway.StrandMinus {
		cutoff := min(pen.Start+distance-1, pen.End)
		return sv.End > cutoff
	}
	cutoff := max(pen.End-distance+1, pen.Start)
	return sv.Start < cutoff
}
