package variant

import (
	"fmt"

	"github.com/inodb/vibe-acmg/internal/genome"
)

// InvalidPositionError reports coordinates outside the chromosome bounds.
type InvalidPositionError struct {
	Build  genome.Build
	Chrom  string
	Start  int64
	End    int64
	Reason string
}

func (e *InvalidPositionError) Error() string {
	return fmt.Sprintf("invalid position %s:%s:%d-%d: %s", e.Build, e.Chrom, e.Start, e.End, e.Reason)
}

// ParseError reports variant text that could not be resolved.
type ParseError struct {
	Input string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("unable to resolve variant %q", e.Input)
	}
	return fmt.Sprintf("unable to resolve variant %q: %v", e.Input, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
