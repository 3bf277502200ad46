// HikePlanner - Hiking Track Curation and Duration Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hikeplanner

package metadata

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestWriter_SortedKeysOneLinePerRecord(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.Write(Record{IDKey: "abc/123", FilenameKey: "abc123.gpx"}); err != nil {
		t.Fatal(err)
	}
	if err := w.Write(Record{"title": "Säntis <north>", IDKey: "x", FilenameKey: "x.gpx"}); err != nil {
		t.Fatal(err)
	}
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}

	want := `{"_id":"abc/123","gpx_filename":"abc123.gpx"}` + "\n" +
		`{"_id":"x","gpx_filename":"x.gpx","title":"Säntis <north>"}` + "\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
	if w.Count() != 2 {
		t.Errorf("Count() = %d, want 2", w.Count())
	}
}

func TestReader_Next(t *testing.T) {
	t.Parallel()

	input := `{"_id":"a","gpx_filename":"a.gpx"}` + "\n\n" + `{"_id":7,"gpx_filename":"b.gpx","length":"12 km"}` + "\n"
	r := NewReader(strings.NewReader(input))

	first, err := r.Next()
	if err != nil {
		t.Fatal(err)
	}
	if first.ID() != "a" || first.Filename() != "a.gpx" {
		t.Errorf("first = %v", first)
	}

	second, err := r.Next()
	if err != nil {
		t.Fatal(err)
	}
	if second.ID() != "7" || second["length"] != "12 km" {
		t.Errorf("second = %v", second)
	}

	if _, err := r.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("third Next() error = %v, want io.EOF", err)
	}
}

func TestReader_MalformedLine(t *testing.T) {
	t.Parallel()

	r := NewReader(strings.NewReader("{\"_id\":\"a\"}\n{not json\n"))
	if _, err := r.Next(); err != nil {
		t.Fatal(err)
	}
	_, err := r.Next()
	if err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Errorf("Next() error = %v, want line 2 error", err)
	}
}

func TestReader_ReadBatch(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := NewWriter(&buf)
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		if err := w.Write(Record{IDKey: id}); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}

	r := NewReader(&buf)
	var sizes []int
	for {
		batch, err := r.ReadBatch(2)
		sizes = append(sizes, len(batch))
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
	}
	if diff := cmp.Diff([]int{2, 2, 1}, sizes); diff != "" {
		t.Errorf("batch sizes mismatch (-want +got):\n%s", diff)
	}
}

func TestReader_ExactMultipleEndsWithEmptyBatch(t *testing.T) {
	t.Parallel()

	r := NewReader(strings.NewReader("{\"_id\":\"a\"}\n{\"_id\":\"b\"}\n"))
	batch, err := r.ReadBatch(2)
	if err != nil || len(batch) != 2 {
		t.Fatalf("first batch = %d, %v", len(batch), err)
	}
	batch, err = r.ReadBatch(2)
	if !errors.Is(err, io.EOF) || len(batch) != 0 {
		t.Errorf("final batch = %d, %v; want empty batch with io.EOF", len(batch), err)
	}
}

func TestRecord_Accessors(t *testing.T) {
	t.Parallel()

	r := Record{FilenameKey: 42}
	if r.Filename() != "" {
		t.Error("non-string filename should read as empty")
	}
	if r.ID() != "" {
		t.Error("missing id should read as empty")
	}
}
