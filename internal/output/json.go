package output

import (
	"bufio"
	"encoding/json"
	"io"

	"github.com/inodb/vibe-acmg/internal/acmg"
)

// JSONWriter writes one JSON object per line.
type JSONWriter struct {
	w   *bufio.Writer
	enc *json.Encoder
}

type errorLine struct {
	Input string `json:"input"`
	Error string `json:"error"`
}

// NewJSONWriter creates a JSON Lines writer.
func NewJSONWriter(w io.Writer) *JSONWriter {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	return &JSONWriter{w: bw, enc: enc}
}

// WriteHeader is a no-op; JSON Lines has no header.
func (jw *JSONWriter) WriteHeader() error { return nil }

func (jw *JSONWriter) Write(res *acmg.Result) error {
	return jw.enc.Encode(res)
}

func (jw *JSONWriter) WriteError(input string, err error) error {
	return jw.enc.Encode(errorLine{Input: input, Error: err.Error()})
}

func (jw *JSONWriter) Flush() error {
	return jw.w.Flush()
}
