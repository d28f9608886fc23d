package alphamissense

import (
	"context"

	"github.com/inodb/vibe-acmg/internal/gateway"
	"github.com/inodb/vibe-acmg/internal/variant"
)

// Source fills missing AlphaMissense scores from a local Store.
type Source struct {
	store *Store
}

// NewSource creates a score source backed by the given Store.
func NewSource(store *Store) *Source {
	return &Source{store: store}
}

func (s *Source) Name() string { return "alphamissense" }

// Fill sets scores.AlphaMissense when the remote record lacks it. Only SNVs
// carry AlphaMissense predictions.
func (s *Source) Fill(ctx context.Context, v variant.PointVariant, scores *gateway.ScoreSet) error {
	if scores.AlphaMissense.Present() || !v.IsSNV() {
		return nil
	}
	r, ok, err := s.store.Lookup(ctx, v.Build, v.Chrom, v.Pos, v.Ref, v.Alt)
	if err != nil || !ok {
		return err
	}
	scores.AlphaMissense = gateway.Some(r.Score)
	return nil
}

// Store returns the underlying AlphaMissense store.
func (s *Source) Store() *Store {
	return s.store
}
