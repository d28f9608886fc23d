package clingen

import "github.com/inodb/vibe-acmg/internal/gateway"

// Source fills gene annotations from a local DosageList.
type Source struct {
	list DosageList
}

// NewSource creates a gene source backed by the given DosageList.
func NewSource(list DosageList) *Source {
	return &Source{list: list}
}

func (s *Source) Name() string { return "clingen" }

// Fill sets the ClinGen haploinsufficiency score when the remote record
// lacks it.
func (s *Source) Fill(info *gateway.GeneInfo) {
	if info == nil || info.ClinGenHaploScore != nil {
		return
	}
	if score, ok := s.list.HaploScore(info.Symbol); ok {
		info.ClinGenHaploScore = &score
	}
}
