package regions

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/inodb/vibe-acmg/internal/genome"
	"github.com/inodb/vibe-acmg/internal/textio"
)

// Region is a named closed interval on a chromosome, 1-based.
type Region struct {
	Chrom string
	Start int64
	End   int64
	Name  string
}

// Index answers overlap queries per chromosome. A nil *Index has no regions.
type Index struct {
	trees map[string]*Tree[Region]
	count int
}

// NewIndex builds an index from regions. Chromosome names are normalized.
func NewIndex(regions []Region) *Index {
	byChrom := make(map[string][]Region)
	for _, r := range regions {
		r.Chrom = genome.NormalizeChrom(r.Chrom)
		byChrom[r.Chrom] = append(byChrom[r.Chrom], r)
	}
	idx := &Index{trees: make(map[string]*Tree[Region], len(byChrom)), count: len(regions)}
	for chrom, rs := range byChrom {
		idx.trees[chrom] = Build(rs, func(r Region) (int64, int64) { return r.Start, r.End })
	}
	return idx
}

// Len returns the number of indexed regions.
func (x *Index) Len() int {
	if x == nil {
		return 0
	}
	return x.count
}

// Overlapping returns the regions intersecting [start, end] on chrom.
func (x *Index) Overlapping(chrom string, start, end int64) []Region {
	if x == nil {
		return nil
	}
	t, ok := x.trees[genome.NormalizeChrom(chrom)]
	if !ok {
		return nil
	}
	return t.Overlapping(start, end)
}

// Overlaps reports whether any region intersects [start, end] on chrom.
func (x *Index) Overlaps(chrom string, start, end int64) bool {
	return len(x.Overlapping(chrom, start, end)) > 0
}

// LoadBED reads a BED file (plain or gzip-compressed) into an Index. BED
// starts are 0-based half-open and converted to 1-based closed intervals.
// Header, track and comment lines are skipped.
func LoadBED(path string) (*Index, error) {
	r, err := textio.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open BED file: %w", err)
	}
	defer r.Close()

	regions, err := ParseBED(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return NewIndex(regions), nil
}

// ParseBED parses BED records from r.
func ParseBED(r io.Reader) ([]Region, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var regions []Region
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if line == "" || line[0] == '#' || strings.HasPrefix(line, "track") || strings.HasPrefix(line, "browser") {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 3 {
			return nil, fmt.Errorf("line %d: expected at least 3 columns, got %d", lineNum, len(fields))
		}
		start, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid start %q: %w", lineNum, fields[1], err)
		}
		end, err := strconv.ParseInt(fields[2], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid end %q: %w", lineNum, fields[2], err)
		}
		if end <= start {
			return nil, fmt.Errorf("line %d: empty interval %d-%d", lineNum, start, end)
		}
		reg := Region{Chrom: fields[0], Start: start + 1, End: end}
		if len(fields) > 3 {
			reg.Name = fields[3]
		}
		regions = append(regions, reg)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading BED: %w", err)
	}
	return regions, nil
}
