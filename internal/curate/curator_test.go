// HikePlanner - Hiking Track Curation and Duration Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hikeplanner

package curate

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/tomtom215/hikeplanner/internal/config"
	"github.com/tomtom215/hikeplanner/internal/metadata"
	"github.com/tomtom215/hikeplanner/internal/track"
)

const validGPX = `<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1" creator="test" xmlns="http://www.topografix.com/GPX/1/1">
  <trk><trkseg>
    <trkpt lat="46.5" lon="8.0"><ele>1000</ele><time>2020-06-01T08:00:00Z</time></trkpt>
    <trkpt lat="46.5005" lon="8.0"><ele>1100</ele><time>2020-06-01T08:01:00Z</time></trkpt>
  </trkseg></trk>
</gpx>`

const emptyGPX = `<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1" creator="test" xmlns="http://www.topografix.com/GPX/1/1">
  <trk><trkseg></trkseg></trk>
</gpx>`

// sliceSource serves records from memory.
type sliceSource struct {
	recs []*RawRecord
	pos  int
}

func (s *sliceSource) Next() (*RawRecord, error) {
	if s.pos >= len(s.recs) {
		return nil, io.EOF
	}
	r := s.recs[s.pos]
	s.pos++
	return r, nil
}

func raw(id, gpx string, extra ...Field) *RawRecord {
	fields := []Field{{Name: "_id", Value: id}, {Name: "gpx", Value: gpx}}
	return &RawRecord{Fields: append(fields, extra...)}
}

// setupCurator returns a curator writing under a fresh temp directory.
func setupCurator(t *testing.T) (*Curator, Options) {
	t.Helper()
	root := t.TempDir()
	opts := Options{
		TrackDir:     filepath.Join(root, "curated"),
		MetadataPath: filepath.Join(root, "meta", "tracks.jl"),
	}
	return New(opts), opts
}

func readMetadata(t *testing.T, path string) []metadata.Record {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	var out []metadata.Record
	r := metadata.NewReader(f)
	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			return out
		}
		if err != nil {
			t.Fatal(err)
		}
		out = append(out, rec)
	}
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

func TestRun_SanitizedIDScenario(t *testing.T) {
	t.Parallel()
	c, opts := setupCurator(t)

	summary, err := c.Run(context.Background(), &sliceSource{recs: []*RawRecord{raw("abc/123", validGPX)}})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if summary.Kept != 1 || summary.SkippedEmpty != 0 || summary.SkippedInvalid != 0 {
		t.Errorf("summary = %+v", summary)
	}
	if diff := cmp.Diff([]string{"abc123.gpx"}, listDir(t, opts.TrackDir)); diff != "" {
		t.Errorf("track dir mismatch (-want +got):\n%s", diff)
	}

	want := []metadata.Record{{"_id": "abc/123", "gpx_filename": "abc123.gpx"}}
	if diff := cmp.Diff(want, readMetadata(t, opts.MetadataPath)); diff != "" {
		t.Errorf("metadata mismatch (-want +got):\n%s", diff)
	}

	line, err := os.ReadFile(opts.MetadataPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(line) != `{"_id":"abc/123","gpx_filename":"abc123.gpx"}`+"\n" {
		t.Errorf("metadata line = %q", line)
	}
}

func TestRun_CountsEveryOutcome(t *testing.T) {
	t.Parallel()
	c, opts := setupCurator(t)

	src := &sliceSource{recs: []*RawRecord{
		raw("a", validGPX),
		raw("b", "not gpx at all"),
		raw("c", ""),
		raw("d", validGPX),
		raw("e", emptyGPX),
		raw("f", validGPX, Field{Name: "title", Value: "Säntis"}),
	}}

	summary, err := c.Run(context.Background(), src)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := Summary{Processed: 6, Kept: 3, SkippedEmpty: 1, SkippedInvalid: 1, NoData: 1}
	if diff := cmp.Diff(want, *summary, cmpopts.IgnoreFields(Summary{}, "StartTime", "EndTime")); diff != "" {
		t.Errorf("summary mismatch (-want +got):\n%s", diff)
	}

	// kept + skippedEmpty + skippedInvalid equals records with a non-empty gpx field.
	if got := summary.Kept + summary.SkippedEmpty + summary.SkippedInvalid; got != 5 {
		t.Errorf("outcome total = %d, want 5", got)
	}

	// One metadata line per kept record, and each names an existing file.
	recs := readMetadata(t, opts.MetadataPath)
	if int64(len(recs)) != summary.Kept {
		t.Fatalf("metadata lines = %d, want %d", len(recs), summary.Kept)
	}
	for _, rec := range recs {
		if _, ok := rec["gpx"]; ok {
			t.Errorf("metadata record carries gpx text: %v", rec)
		}
		if _, err := os.Stat(filepath.Join(opts.TrackDir, rec.Filename())); err != nil {
			t.Errorf("metadata names missing file %q: %v", rec.Filename(), err)
		}
	}
	if recs[2]["title"] != "Säntis" {
		t.Errorf("pass-through field lost: %v", recs[2])
	}
}

func TestRun_EmptyTrackAtPositionFive(t *testing.T) {
	t.Parallel()
	c, opts := setupCurator(t)

	recs := []*RawRecord{raw("1", validGPX), raw("2", validGPX), raw("3", validGPX), raw("4", validGPX), raw("5", emptyGPX)}
	summary, err := c.Run(context.Background(), &sliceSource{recs: recs})
	if err != nil {
		t.Fatal(err)
	}
	if summary.SkippedEmpty != 1 || summary.Kept != 4 {
		t.Errorf("summary = %+v", summary)
	}
	if _, err := os.Stat(filepath.Join(opts.TrackDir, "5.gpx")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("empty track was written: %v", err)
	}
	for _, rec := range readMetadata(t, opts.MetadataPath) {
		if rec.ID() == "5" {
			t.Error("empty track has a metadata line")
		}
	}
}

func TestRun_CanonicalFileParsesToSamePoints(t *testing.T) {
	t.Parallel()
	c, opts := setupCurator(t)

	if _, err := c.Run(context.Background(), &sliceSource{recs: []*RawRecord{raw("x", validGPX)}}); err != nil {
		t.Fatal(err)
	}
	written, err := track.ParseFile(filepath.Join(opts.TrackDir, "x.gpx"))
	if err != nil {
		t.Fatalf("canonical file does not parse: %v", err)
	}
	original, err := track.Parse([]byte(validGPX))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(original.Segments(), written.Segments()); diff != "" {
		t.Errorf("points changed (-original +written):\n%s", diff)
	}
}

func TestRun_ClearsPreviousOutput(t *testing.T) {
	t.Parallel()
	c, opts := setupCurator(t)

	if err := os.MkdirAll(opts.TrackDir, 0o750); err != nil {
		t.Fatal(err)
	}
	stale := filepath.Join(opts.TrackDir, "stale.gpx")
	if err := os.WriteFile(stale, []byte("old"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := c.Run(context.Background(), &sliceSource{}); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(stale); !errors.Is(err, os.ErrNotExist) {
		t.Error("stale output survived a new run")
	}
	data, err := os.ReadFile(opts.MetadataPath)
	if err != nil || len(data) != 0 {
		t.Errorf("metadata for empty input = %q, %v; want empty file", data, err)
	}
}

func TestRun_RerunIsIdempotent(t *testing.T) {
	t.Parallel()
	c, opts := setupCurator(t)

	input := func() RecordSource {
		return &sliceSource{recs: []*RawRecord{
			raw("abc/123", validGPX, Field{Name: "name", Value: "Ridge"}),
			raw("hollow", emptyGPX),
			raw("", validGPX),
			raw("broken", "<gpx"),
			raw("nodata", ""),
		}}
	}

	type snapshot struct {
		Files    map[string]string
		Metadata []metadata.Record
		Counters map[string]int64
	}
	take := func() snapshot {
		summary, err := c.Run(context.Background(), input())
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		files := map[string]string{}
		for _, name := range listDir(t, opts.TrackDir) {
			data, err := os.ReadFile(filepath.Join(opts.TrackDir, name))
			if err != nil {
				t.Fatal(err)
			}
			files[name] = string(data)
		}
		return snapshot{Files: files, Metadata: readMetadata(t, opts.MetadataPath), Counters: summary.Counters()}
	}

	first := take()
	second := take()

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("second run differs from first (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"abc123.gpx", "row_3.gpx"}, listDir(t, opts.TrackDir)); diff != "" {
		t.Errorf("track dir mismatch (-want +got):\n%s", diff)
	}
	if len(second.Metadata) != 2 {
		t.Errorf("metadata lines = %d, want 2", len(second.Metadata))
	}
}

func TestRun_DuplicateSanitizedIDs(t *testing.T) {
	t.Parallel()
	c, opts := setupCurator(t)

	summary, err := c.Run(context.Background(), &sliceSource{recs: []*RawRecord{raw("a/1", validGPX), raw("a1", validGPX)}})
	if err != nil {
		t.Fatal(err)
	}
	if summary.Duplicates != 1 || summary.Kept != 2 {
		t.Errorf("summary = %+v", summary)
	}
	if diff := cmp.Diff([]string{"a1.gpx"}, listDir(t, opts.TrackDir)); diff != "" {
		t.Errorf("track dir mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_FallbackIDUsesInputPosition(t *testing.T) {
	t.Parallel()
	c, opts := setupCurator(t)

	recs := []*RawRecord{raw("", ""), raw("///", validGPX)}
	if _, err := c.Run(context.Background(), &sliceSource{recs: recs}); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"row_2.gpx"}, listDir(t, opts.TrackDir)); diff != "" {
		t.Errorf("track dir mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_ProgressCadence(t *testing.T) {
	t.Parallel()
	root := t.TempDir()

	var reports []int64
	c := New(Options{
		TrackDir:      filepath.Join(root, "curated"),
		MetadataPath:  filepath.Join(root, "meta", "tracks.jl"),
		ProgressEvery: 2,
		OnProgress:    func(s Summary) { reports = append(reports, s.Kept) },
	})

	recs := make([]*RawRecord, 0, 5)
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		recs = append(recs, raw(id, validGPX))
	}
	if _, err := c.Run(context.Background(), &sliceSource{recs: recs}); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int64{2, 4}, reports); diff != "" {
		t.Errorf("progress reports mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_Cancelled(t *testing.T) {
	t.Parallel()
	c, _ := setupCurator(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Run(ctx, &sliceSource{recs: []*RawRecord{raw("a", validGPX)}})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
	if c.IsRunning() {
		t.Error("curator still marked running")
	}
}

func TestRun_RefusesDangerousDirectories(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		opts Options
	}{
		{"working directory", Options{TrackDir: ".", MetadataPath: filepath.Join(t.TempDir(), "m", "tracks.jl")}},
		{"metadata in working directory", Options{TrackDir: t.TempDir(), MetadataPath: "tracks.jl"}},
		{"shared directory", Options{TrackDir: "/tmp/x", MetadataPath: "/tmp/x/tracks.jl"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := New(tt.opts).Run(context.Background(), &sliceSource{})
			var cfgErr *config.ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Errorf("Run() error = %v, want *config.ConfigurationError", err)
			}
		})
	}
}

func TestCSVSource(t *testing.T) {
	t.Parallel()

	input := "\ufeff_id,title,gpx\n" +
		"abc/1,\"Ridge, north\",\"<gpx version=\"\"1.1\"\"/>\"\n" +
		"short,only\n"
	src, err := NewCSVSource(strings.NewReader(input))
	if err != nil {
		t.Fatalf("NewCSVSource() error = %v", err)
	}

	first, err := src.Next()
	if err != nil {
		t.Fatal(err)
	}
	want := []Field{{"_id", "abc/1"}, {"title", "Ridge, north"}, {"gpx", `<gpx version="1.1"/>`}}
	if diff := cmp.Diff(want, first.Fields); diff != "" {
		t.Errorf("first record mismatch (-want +got):\n%s", diff)
	}

	second, err := src.Next()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := second.Get("gpx"); ok {
		t.Error("short row should have no gpx field")
	}

	if _, err := src.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("Next() at end = %v, want io.EOF", err)
	}
}

func TestCSVSource_EmptyInput(t *testing.T) {
	t.Parallel()

	if _, err := NewCSVSource(strings.NewReader("")); err == nil {
		t.Error("expected error for empty input")
	}
}

func TestCSVSource_MissingGPXColumnIsNoData(t *testing.T) {
	t.Parallel()
	c, opts := setupCurator(t)

	src, err := NewCSVSource(strings.NewReader("_id,title\n1,x\n2,y\n"))
	if err != nil {
		t.Fatalf("NewCSVSource() error = %v", err)
	}
	summary, err := c.Run(context.Background(), src)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Processed != 2 || summary.NoData != 2 || summary.Kept != 0 {
		t.Errorf("summary = %+v, want 2 processed, 2 no data, 0 kept", summary)
	}
	if got := listDir(t, opts.TrackDir); len(got) != 0 {
		t.Errorf("track dir = %v, want empty", got)
	}
}

func TestCSVSource_EndToEnd(t *testing.T) {
	t.Parallel()
	c, opts := setupCurator(t)

	quoted := strings.ReplaceAll(validGPX, `"`, `""`)
	input := "_id,gpx\n" + "t-1,\"" + quoted + "\"\n" + "t-2,\n"
	src, err := NewCSVSource(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}
	summary, err := c.Run(context.Background(), src)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Kept != 1 || summary.NoData != 1 {
		t.Errorf("summary = %+v", summary)
	}
	if diff := cmp.Diff([]string{"t-1.gpx"}, listDir(t, opts.TrackDir)); diff != "" {
		t.Errorf("track dir mismatch (-want +got):\n%s", diff)
	}
}
