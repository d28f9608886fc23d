package criteria

import (
	"github.com/inodb/vibe-acmg/internal/gateway"
)

// Sequence Ontology terms the predicates key on.
const (
	TermMissense          = "missense_variant"
	TermSynonymous        = "synonymous_variant"
	TermStopGained        = "stop_gained"
	TermStopLost          = "stop_lost"
	TermStartLost         = "start_lost"
	TermFrameshift        = "frameshift_variant"
	TermInframeDeletion   = "inframe_deletion"
	TermInframeInsertion  = "inframe_insertion"
	TermSpliceAcceptor    = "splice_acceptor_variant"
	TermSpliceDonor       = "splice_donor_variant"
	TermSpliceRegion      = "splice_region_variant"
	TermIntron            = "intron_variant"
	TermFivePrimeUTR      = "5_prime_UTR_variant"
	TermThreePrimeUTR     = "3_prime_UTR_variant"
	TermUpstreamGene      = "upstream_gene_variant"
	TermDownstreamGene    = "downstream_gene_variant"
	TermIntergenic        = "intergenic_variant"
	TermSpliceDonorFifth  = "splice_donor_5th_base_variant"
	TermSpliceDonorRegion = "splice_donor_region_variant"
	TermPolypyrimidine    = "splice_polypyrimidine_tract_variant"
)

var (
	inframeTerms = []string{
		TermInframeDeletion, TermInframeInsertion,
		"disruptive_inframe_deletion", "disruptive_inframe_insertion",
		"conservative_inframe_deletion", "conservative_inframe_insertion",
	}
	frameshiftTerms = []string{TermFrameshift, "frameshift_elongation", "frameshift_truncation"}
	startLostTerms  = []string{TermStartLost, "initiator_codon_variant"}
	spliceTerms     = []string{
		TermSpliceAcceptor, TermSpliceDonor, TermSpliceRegion,
		TermSpliceDonorFifth, TermSpliceDonorRegion, TermPolypyrimidine,
	}
	canonicalSpliceTerms = []string{TermSpliceAcceptor, TermSpliceDonor}
	intronicUTRTerms     = []string{
		TermIntron, TermIntergenic, TermUpstreamGene, TermDownstreamGene,
		TermFivePrimeUTR, TermThreePrimeUTR, TermSpliceRegion,
		TermSpliceDonorFifth, TermSpliceDonorRegion, TermPolypyrimidine,
	}
)

// HasAnyTerm reports whether c carries any of terms. A nil consequence has none.
func HasAnyTerm(c *gateway.Consequence, terms ...string) bool {
	if c == nil {
		return false
	}
	for _, t := range terms {
		if c.HasTerm(t) {
			return true
		}
	}
	return false
}

func IsMissense(c *gateway.Consequence) bool     { return HasAnyTerm(c, TermMissense) }
func IsSynonymous(c *gateway.Consequence) bool   { return HasAnyTerm(c, TermSynonymous) }
func IsStopLost(c *gateway.Consequence) bool     { return HasAnyTerm(c, TermStopLost) }
func IsNonsense(c *gateway.Consequence) bool     { return HasAnyTerm(c, TermStopGained) }
func IsFrameshift(c *gateway.Consequence) bool   { return HasAnyTerm(c, frameshiftTerms...) }
func IsStartLost(c *gateway.Consequence) bool    { return HasAnyTerm(c, startLostTerms...) }
func IsInframeIndel(c *gateway.Consequence) bool { return HasAnyTerm(c, inframeTerms...) }

// IsSpliceAffecting reports a consequence in or near a splice site.
func IsSpliceAffecting(c *gateway.Consequence) bool { return HasAnyTerm(c, spliceTerms...) }

// IsCanonicalSplice reports a change of the two-base donor or acceptor motif.
func IsCanonicalSplice(c *gateway.Consequence) bool { return HasAnyTerm(c, canonicalSpliceTerms...) }

// IsIntronicOrUTR reports a non-coding consequence.
func IsIntronicOrUTR(c *gateway.Consequence) bool { return HasAnyTerm(c, intronicUTRTerms...) }
