package acmg

import (
	"context"
	"fmt"
	"sync"

	"github.com/inodb/vibe-acmg/internal/gateway"
	"github.com/inodb/vibe-acmg/internal/genome"
	"github.com/inodb/vibe-acmg/internal/variant"
)

// requestLookup memoizes the secondary queries of one classification.
// PVS1, PM1 and PP2/BP1 often ask for overlapping ranges and PS1/PM5 asks
// for the same codon neighbours more than once.
type requestLookup struct {
	src VariantSource

	mu      sync.Mutex
	records map[string]memo[*gateway.VariantRecord]
	ranges  map[string]memo[*gateway.RangeRecords]
}

type memo[T any] struct {
	val T
	err error
}

func newRequestLookup(src VariantSource) *requestLookup {
	return &requestLookup{
		src:     src,
		records: make(map[string]memo[*gateway.VariantRecord]),
		ranges:  make(map[string]memo[*gateway.RangeRecords]),
	}
}

func (l *requestLookup) VariantRecord(ctx context.Context, v variant.PointVariant) (*gateway.VariantRecord, error) {
	key := v.String()
	l.mu.Lock()
	m, ok := l.records[key]
	l.mu.Unlock()
	if ok {
		return m.val, m.err
	}
	rec, err := l.src.VariantRecord(ctx, v)
	l.mu.Lock()
	l.records[key] = memo[*gateway.VariantRecord]{rec, err}
	l.mu.Unlock()
	return rec, err
}

func (l *requestLookup) Range(ctx context.Context, build genome.Build, chrom string, start, end int64) (*gateway.RangeRecords, error) {
	key := fmt.Sprintf("%s-%s-%d-%d", build, chrom, start, end)
	l.mu.Lock()
	m, ok := l.ranges[key]
	l.mu.Unlock()
	if ok {
		return m.val, m.err
	}
	recs, err := l.src.Range(ctx, build, chrom, start, end)
	l.mu.Lock()
	l.ranges[key] = memo[*gateway.RangeRecords]{recs, err}
	l.mu.Unlock()
	return recs, err
}
