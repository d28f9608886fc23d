package acmg

import (
	"slices"
	"strings"

	"github.com/inodb/vibe-acmg/internal/gateway"
)

type candidate struct {
	csq       *gateway.Consequence
	tx        *gateway.Transcript
	id        string
	mane      bool
	canonical bool
	cds       int64
}

// better reports whether a ranks before b: MANE Select first, then the
// canonical tag, then the longest coding sequence, then the smallest
// transcript ID.
func better(a, b candidate) bool {
	if a.mane != b.mane {
		return a.mane
	}
	if a.canonical != b.canonical {
		return a.canonical
	}
	if a.cds != b.cds {
		return a.cds > b.cds
	}
	return a.id < b.id
}

// SelectTranscript picks the consequence and transcript to classify
// against. With consequences, each is matched to its transcript in txs by
// ID (versions ignored when there is no exact match) and the best-ranked
// consequence wins; the returned transcript is nil when txs lacks it.
// Without consequences the best-ranked transcript is returned alone.
func SelectTranscript(csqs []gateway.Consequence, txs []gateway.Transcript) (*gateway.Consequence, *gateway.Transcript) {
	var best *candidate
	consider := func(c candidate) {
		if best == nil || better(c, *best) {
			best = &c
		}
	}

	if len(csqs) == 0 {
		for i := range txs {
			tx := &txs[i]
			consider(candidate{
				tx:        tx,
				id:        tx.ID,
				mane:      tx.IsManeSelect(),
				canonical: tx.HasTag(gateway.TagCanonical),
				cds:       tx.CDSLength(),
			})
		}
		if best == nil {
			return nil, nil
		}
		return nil, best.tx
	}

	for i := range csqs {
		csq := &csqs[i]
		tx := findTranscript(txs, csq.TranscriptID)
		c := candidate{
			csq:       csq,
			tx:        tx,
			id:        csq.TranscriptID,
			mane:      csq.IsManeSelect(),
			canonical: slices.Contains(csq.Tags, gateway.TagCanonical),
			cds:       csq.CDSLength,
		}
		if tx != nil {
			c.mane = c.mane || tx.IsManeSelect()
			c.canonical = c.canonical || tx.HasTag(gateway.TagCanonical)
			if tx.IsCoding() {
				c.cds = tx.CDSLength()
			}
		}
		consider(c)
	}
	return best.csq, best.tx
}

func findTranscript(txs []gateway.Transcript, id string) *gateway.Transcript {
	if id == "" {
		return nil
	}
	for i := range txs {
		if txs[i].ID == id {
			return &txs[i]
		}
	}
	base := unversioned(id)
	for i := range txs {
		if unversioned(txs[i].ID) == base {
			return &txs[i]
		}
	}
	return nil
}

func unversioned(id string) string {
	if i := strings.IndexByte(id, '.'); i >= 0 {
		return id[:i]
	}
	return id
}

// geneConsequences returns the consequences on transcripts of geneID.
func geneConsequences(csqs []gateway.Consequence, geneID string) []gateway.Consequence {
	var out []gateway.Consequence
	for _, c := range csqs {
		if c.GeneID == geneID {
			out = append(out, c)
		}
	}
	return out
}

// primaryGene returns the gene of the best-ranked consequence that lies in
// a gene, or "" for intergenic variants.
func primaryGene(csqs []gateway.Consequence) string {
	var genic []gateway.Consequence
	for _, c := range csqs {
		if c.GeneID != "" {
			genic = append(genic, c)
		}
	}
	if len(genic) == 0 {
		return ""
	}
	csq, _ := SelectTranscript(genic, nil)
	return csq.GeneID
}
