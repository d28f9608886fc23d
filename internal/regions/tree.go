// Package regions indexes genomic intervals such as repeat regions and
// protein domains for overlap queries.
package regions

import "sort"

// Tree provides O(log n + k) overlap queries using a sorted-slice approach.
// Intervals are closed and loaded once; the tree is never modified after build.
type Tree[T any] struct {
	intervals []interval[T]
	maxEnd    []int64 // maxEnd[i] = max(end) for intervals[:i+1]
}

type interval[T any] struct {
	start int64
	end   int64
	value T
}

// Build creates a tree from values, using span to obtain each closed
// [start, end] interval.
func Build[T any](values []T, span func(T) (start, end int64)) *Tree[T] {
	if len(values) == 0 {
		return &Tree[T]{}
	}

	intervals := make([]interval[T], len(values))
	for i, v := range values {
		s, e := span(v)
		intervals[i] = interval[T]{start: s, end: e, value: v}
	}

	sort.SliceStable(intervals, func(i, j int) bool {
		return intervals[i].start < intervals[j].start
	})

	// Prefix-max array: maxEnd[i] = max(end) for intervals[0..i]
	maxEnd := make([]int64, len(intervals))
	maxEnd[0] = intervals[0].end
	for i := 1; i < len(intervals); i++ {
		maxEnd[i] = max(maxEnd[i-1], intervals[i].end)
	}

	return &Tree[T]{intervals: intervals, maxEnd: maxEnd}
}

// Len returns the number of indexed intervals.
func (t *Tree[T]) Len() int { return len(t.intervals) }

// Overlapping returns all values whose interval intersects [start, end], in
// ascending start order.
func (t *Tree[T]) Overlapping(start, end int64) []T {
	if len(t.intervals) == 0 {
		return nil
	}

	// Candidates are [0, hi): every interval starting at or before end.
	hi := sort.Search(len(t.intervals), func(i int) bool {
		return t.intervals[i].start > end
	})

	var result []T
	for i := hi - 1; i >= 0; i-- {
		// No interval in 0..i reaches start.
		if t.maxEnd[i] < start {
			break
		}
		if t.intervals[i].end >= start {
			result = append(result, t.intervals[i].value)
		}
	}

	for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
		result[i], result[j] = result[j], result[i]
	}
	return result
}

// Contains returns all values whose interval contains pos.
func (t *Tree[T]) Contains(pos int64) []T {
	return t.Overlapping(pos, pos)
}
