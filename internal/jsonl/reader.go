// Package jsonl provides a streaming, line-oriented reader for
// newline-delimited JSON transcript files, shared by every provider
// parser under internal/sources.
package jsonl

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// maxLineBytes bounds a single line's size. Tool results embedded in a
// transcript line can be large; this is generous headroom over
// anything a provider realistically emits.
const maxLineBytes = 16 * 1024 * 1024

// Reader scans a JSONL file line by line, tracking byte position and
// line number so callers can report precise diagnostics and resume a
// partially-read file.
type Reader struct {
	path    string
	file    *os.File
	scanner *bufio.Scanner
	lineNum int
	closed  bool
}

// Open creates a Reader over the file at path.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("jsonl: open %s: %w", path, err)
	}
	return New(path, f), nil
}

// New wraps an already-open reader (e.g. for tests feeding in-memory
// content via a custom ReadCloser-like shim around bytes.Reader).
func New(path string, r io.Reader) *Reader {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, maxLineBytes)

	var file *os.File
	if f, ok := r.(*os.File); ok {
		file = f
	}
	return &Reader{path: path, file: file, scanner: scanner}
}

// Path returns the file path this reader was opened from.
func (r *Reader) Path() string { return r.path }

// LineNum returns the 1-based index of the line most recently returned
// by Next.
func (r *Reader) LineNum() int { return r.lineNum }

// Next returns the next non-empty raw line, or (nil, io.EOF) once the
// file is exhausted. Empty lines are skipped transparently.
func (r *Reader) Next() ([]byte, error) {
	for r.scanner.Scan() {
		r.lineNum++
		line := r.scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		out := make([]byte, len(line))
		copy(out, line)
		return out, nil
	}
	if err := r.scanner.Err(); err != nil {
		return nil, fmt.Errorf("jsonl: scan %s: %w", r.path, err)
	}
	return nil, io.EOF
}

// NextJSON decodes the next non-empty line into dest. Returns io.EOF
// once exhausted.
func (r *Reader) NextJSON(dest any) error {
	line, err := r.Next()
	if err != nil {
		return err
	}
	return json.Unmarshal(line, dest)
}

// Close releases the underlying file handle, if any. Idempotent.
func (r *Reader) Close() error {
	if r.closed || r.file == nil {
		r.closed = true
		return nil
	}
	r.closed = true
	return r.file.Close()
}
