package output

import (
	"fmt"
	"io"
)

// Formats accepted by NewWriter.
const (
	FormatTab  = "tab"
	FormatJSON = "json"
)

// NewWriter returns the writer for format.
func NewWriter(format string, w io.Writer) (Writer, error) {
	switch format {
	case FormatTab, "":
		return NewTabWriter(w), nil
	case FormatJSON:
		return NewJSONWriter(w), nil
	}
	return nil, fmt.Errorf("unknown output format %q", format)
}
