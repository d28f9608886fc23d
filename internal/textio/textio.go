// Package textio opens line-oriented input files, plain or gzip-compressed.
package textio

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"
)

// Reader reads lines from a plain or gzip-compressed stream and counts them.
type Reader struct {
	br     *bufio.Reader
	closer []io.Closer
	line   int
}

// Open opens path for reading; "-" reads stdin. Gzip input is detected from
// its magic bytes rather than the file extension.
func Open(path string) (*Reader, error) {
	if path == "-" {
		return NewReader(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r, err := NewReader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	r.closer = append(r.closer, f)
	return r, nil
}

// NewReader wraps r, decompressing it when it starts with the gzip magic
// number. Close does not close r.
func NewReader(r io.Reader) (*Reader, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(2)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("read input: %w", err)
	}
	if len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		return &Reader{br: bufio.NewReader(gz), closer: []io.Closer{gz}}, nil
	}
	return &Reader{br: br}, nil
}

// ReadLine returns the next line without its line terminator. A final line
// without a newline is returned before io.EOF.
func (r *Reader) ReadLine() (string, error) {
	line, err := r.br.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	r.line++
	return strings.TrimRight(line, "\r\n"), nil
}

// Read implements io.Reader over the decompressed stream.
func (r *Reader) Read(p []byte) (int, error) {
	return r.br.Read(p)
}

// LineNumber returns the number of lines returned by ReadLine so far.
func (r *Reader) LineNumber() int {
	return r.line
}

// Close releases the decompressor and the underlying file, if Open created it.
func (r *Reader) Close() error {
	var first error
	for _, c := range r.closer {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	r.closer = nil
	return first
}
