// HikePlanner - Hiking Track Curation and Duration Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hikeplanner

// Package metadata reads and writes the JSON-lines stream that links each
// curated track file to the fields of the raw record it came from.
package metadata

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/goccy/go-json"
)

const (
	// FilenameKey names the curated .gpx file, relative to the track directory.
	FilenameKey = "gpx_filename"

	// IDKey is the raw record identifier, carried through unchanged.
	IDKey = "_id"
)

// maxLineSize bounds one metadata line. Raw records carry free-text
// descriptions, so lines can be long.
const maxLineSize = 16 << 20

// Record is one metadata line: every raw field except the GPX text, plus FilenameKey.
type Record map[string]any

// Filename returns the record's gpx_filename, or "" when absent or not a string.
func (r Record) Filename() string {
	s, _ := r[FilenameKey].(string)
	return s
}

// ID returns the record's raw _id rendered as a string.
func (r Record) ID() string {
	switch v := r[IDKey].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// Writer appends records as JSON lines.
type Writer struct {
	w   *bufio.Writer
	enc *json.Encoder
	n   int
}

// NewWriter returns a Writer buffering into w. Call Flush when done.
func NewWriter(w io.Writer) *Writer {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	return &Writer{w: bw, enc: enc}
}

// Write appends rec followed by a newline. Keys are emitted in sorted order.
func (w *Writer) Write(rec Record) error {
	if err := w.enc.Encode(rec); err != nil {
		return fmt.Errorf("encode metadata line %d: %w", w.n+1, err)
	}
	w.n++
	return nil
}

// Count returns the number of records written.
func (w *Writer) Count() int {
	return w.n
}

// Flush writes any buffered data to the underlying writer.
func (w *Writer) Flush() error {
	return w.w.Flush()
}

// Reader yields records from a JSON-lines stream in file order.
type Reader struct {
	sc   *bufio.Scanner
	line int
}

// NewReader returns a Reader over r.
func NewReader(r io.Reader) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &Reader{sc: sc}
}

// Next returns the next record, or io.EOF when the stream is exhausted.
// Blank lines are skipped. A malformed line is an error; the stream is
// produced by Writer, so corruption is not silently tolerated.
func (r *Reader) Next() (Record, error) {
	for r.sc.Scan() {
		r.line++
		line := bytes.TrimSpace(r.sc.Bytes())
		if len(line) == 0 {
			continue
		}
		rec := Record{}
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("metadata line %d: %w", r.line, err)
		}
		return rec, nil
	}
	if err := r.sc.Err(); err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}
	return nil, io.EOF
}

// ReadBatch returns up to n records. It returns a short (possibly empty)
// batch together with io.EOF at the end of the stream.
func (r *Reader) ReadBatch(n int) ([]Record, error) {
	batch := make([]Record, 0, n)
	for len(batch) < n {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			return batch, io.EOF
		}
		if err != nil {
			return batch, err
		}
		batch = append(batch, rec)
	}
	return batch, nil
}
