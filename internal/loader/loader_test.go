// HikePlanner - Hiking Track Curation and Duration Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hikeplanner

package loader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/tomtom215/hikeplanner/internal/features"
	"github.com/tomtom215/hikeplanner/internal/metadata"
	"github.com/tomtom215/hikeplanner/internal/store"
)

// stubExtractor keeps records whose _id does not start with "drop".
type stubExtractor struct {
	calls atomic.Int64
}

func (s *stubExtractor) Extract(_ context.Context, rec metadata.Record) *features.Document {
	s.calls.Add(1)
	if strings.HasPrefix(rec.ID(), "drop") {
		return nil
	}
	return &features.Document{Metadata: rec, Features: features.Features{Uphill: 1}}
}

func metadataStream(ids ...string) string {
	var b strings.Builder
	for _, id := range ids {
		fmt.Fprintf(&b, `{"_id":%q,"gpx_filename":"%s.gpx"}`+"\n", id, id)
	}
	return b.String()
}

func liveIDs(t *testing.T, coll store.Collection) []string {
	t.Helper()
	var out []string
	if err := coll.Scan(context.Background(), func(d *features.Document) error {
		out = append(out, d.ID())
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	return out
}

func seed(t *testing.T, coll store.Collection, ids ...string) {
	t.Helper()
	ctx := context.Background()
	rep, err := coll.BeginReplace(ctx)
	if err != nil {
		t.Fatal(err)
	}
	docs := make([]*features.Document, len(ids))
	for i, id := range ids {
		docs[i] = &features.Document{Metadata: metadata.Record{metadata.IDKey: id}}
	}
	if err := rep.Insert(ctx, docs); err != nil {
		t.Fatal(err)
	}
	if err := rep.Commit(ctx); err != nil {
		t.Fatal(err)
	}
}

func TestLoader_Load(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		input       string
		batchSize   int
		wantIDs     []string
		wantBatches int
		wantDropped int
	}{
		{
			name:        "multiple batches keep input order",
			input:       metadataStream("a", "b", "c", "d", "e"),
			batchSize:   2,
			wantIDs:     []string{"a", "b", "c", "d", "e"},
			wantBatches: 3,
		},
		{
			name:        "exact multiple of batch size",
			input:       metadataStream("a", "b", "c", "d"),
			batchSize:   2,
			wantIDs:     []string{"a", "b", "c", "d"},
			wantBatches: 2,
		},
		{
			name:        "failed extractions are dropped",
			input:       metadataStream("a", "drop1", "b", "drop2"),
			batchSize:   3,
			wantIDs:     []string{"a", "b"},
			wantBatches: 2,
			wantDropped: 2,
		},
		{
			name:        "blank lines skipped",
			input:       "\n" + metadataStream("a") + "\n\n" + metadataStream("b"),
			batchSize:   10,
			wantIDs:     []string{"a", "b"},
			wantBatches: 1,
		},
		{
			name:      "empty stream empties collection",
			input:     "",
			batchSize: 10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			coll := store.NewMemory()
			seed(t, coll, "stale")

			var progress []int
			ex := &stubExtractor{}
			l := New(coll, ex, Options{
				BatchSize: tt.batchSize,
				Workers:   3,
				OnBatch:   func(p BatchProgress) { progress = append(progress, p.Batch) },
			})
			stats, err := l.LoadFrom(context.Background(), strings.NewReader(tt.input))
			if err != nil {
				t.Fatalf("LoadFrom() error = %v", err)
			}

			if diff := cmp.Diff(tt.wantIDs, liveIDs(t, coll)); diff != "" {
				t.Errorf("live ids mismatch (-want +got):\n%s", diff)
			}
			if stats.Batches != tt.wantBatches || stats.Dropped != tt.wantDropped {
				t.Errorf("stats = %+v, want %d batches %d dropped", stats, tt.wantBatches, tt.wantDropped)
			}
			if stats.Inserted != len(tt.wantIDs) || stats.Read != len(tt.wantIDs)+tt.wantDropped {
				t.Errorf("stats = %+v", stats)
			}
			if len(progress) != tt.wantBatches {
				t.Errorf("OnBatch called %d times, want %d", len(progress), tt.wantBatches)
			}

			records := 0
			for _, line := range strings.Split(tt.input, "\n") {
				if strings.TrimSpace(line) != "" {
					records++
				}
			}
			if got := ex.calls.Load(); got != int64(records) || got != int64(stats.Read) {
				t.Errorf("extractor called %d times, want once per record (%d records, stats.Read %d)", got, records, stats.Read)
			}
			if stats.EndTime.IsZero() {
				t.Error("EndTime not set")
			}
			if l.IsRunning() {
				t.Error("IsRunning() = true after Load returned")
			}
		})
	}
}

// failingCollection fails the Nth Insert.
type failingCollection struct {
	*store.Memory
	failOn int
}

func (f *failingCollection) BeginReplace(ctx context.Context) (store.Replacement, error) {
	rep, err := f.Memory.BeginReplace(ctx)
	if err != nil {
		return nil, err
	}
	return &failingReplacement{Replacement: rep, failOn: f.failOn}, nil
}

type failingReplacement struct {
	store.Replacement
	failOn int
	n      int
}

var errInsert = errors.New("disk full")

func (f *failingReplacement) Insert(ctx context.Context, docs []*features.Document) error {
	f.n++
	if f.n == f.failOn {
		return errInsert
	}
	return f.Replacement.Insert(ctx, docs)
}

func TestLoader_FailureLeavesCollectionUntouched(t *testing.T) {
	t.Parallel()

	coll := &failingCollection{Memory: store.NewMemory(), failOn: 2}
	seed(t, coll, "old1", "old2")

	l := New(coll, &stubExtractor{}, Options{BatchSize: 1})
	_, err := l.LoadFrom(context.Background(), strings.NewReader(metadataStream("a", "b", "c")))
	if !errors.Is(err, errInsert) {
		t.Fatalf("LoadFrom() error = %v, want %v", err, errInsert)
	}
	if diff := cmp.Diff([]string{"old1", "old2"}, liveIDs(t, coll)); diff != "" {
		t.Errorf("live ids mismatch (-want +got):\n%s", diff)
	}

	// The aborted replacement must not block the next load.
	coll.failOn = 0
	if _, err := l.LoadFrom(context.Background(), strings.NewReader(metadataStream("z"))); err != nil {
		t.Fatalf("second LoadFrom() error = %v", err)
	}
}

func TestLoader_MalformedLine(t *testing.T) {
	t.Parallel()

	coll := store.NewMemory()
	seed(t, coll, "old")

	l := New(coll, &stubExtractor{}, Options{BatchSize: 1})
	input := metadataStream("a") + "{not json\n" + metadataStream("b")
	if _, err := l.LoadFrom(context.Background(), strings.NewReader(input)); err == nil {
		t.Fatal("LoadFrom() error = nil, want decode error")
	}
	if diff := cmp.Diff([]string{"old"}, liveIDs(t, coll)); diff != "" {
		t.Errorf("live ids mismatch (-want +got):\n%s", diff)
	}
}

func TestLoader_Canceled(t *testing.T) {
	t.Parallel()

	coll := store.NewMemory()
	seed(t, coll, "old")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ex := &stubExtractor{}
	l := New(coll, ex, Options{BatchSize: 2})
	_, err := l.LoadFrom(ctx, strings.NewReader(metadataStream("a", "b", "c")))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("LoadFrom() error = %v, want context.Canceled", err)
	}
	if ex.calls.Load() != 0 {
		t.Errorf("extractor called %d times after cancel", ex.calls.Load())
	}
	if diff := cmp.Diff([]string{"old"}, liveIDs(t, coll)); diff != "" {
		t.Errorf("live ids mismatch (-want +got):\n%s", diff)
	}
}

func TestLoader_MissingMetadataFile(t *testing.T) {
	t.Parallel()

	coll := store.NewMemory()
	seed(t, coll, "old")

	l := New(coll, &stubExtractor{}, Options{})
	if _, err := l.Load(context.Background(), filepath.Join(t.TempDir(), "missing.jl")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("Load() error = %v, want os.ErrNotExist", err)
	}
	if diff := cmp.Diff([]string{"old"}, liveIDs(t, coll)); diff != "" {
		t.Errorf("live ids mismatch (-want +got):\n%s", diff)
	}
}

const gpxTrack = `<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1" creator="test" xmlns="http://www.topografix.com/GPX/1/1">
  <trk><trkseg>
    <trkpt lat="46.5" lon="8.0"><ele>1000</ele></trkpt>
    <trkpt lat="46.501" lon="8.0"><ele>1050</ele></trkpt>
  </trkseg></trk>
</gpx>`

func TestLoader_WithFeatureExtractor(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	trackDir := filepath.Join(dir, "tracks")
	if err := os.MkdirAll(trackDir, 0o750); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"a.gpx", "b.gpx"} {
		if err := os.WriteFile(filepath.Join(trackDir, name), []byte(gpxTrack), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	metaPath := filepath.Join(dir, "tracks.jl")
	if err := os.WriteFile(metaPath, []byte(metadataStream("a", "missing", "b")), 0o600); err != nil {
		t.Fatal(err)
	}

	coll := store.NewMemory()
	l := New(coll, features.NewExtractor(trackDir), Options{BatchSize: 200})
	stats, err := l.Load(context.Background(), metaPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if stats.Inserted != 2 || stats.Dropped != 1 {
		t.Errorf("stats = %+v, want 2 inserted 1 dropped", stats)
	}

	err = coll.Scan(context.Background(), func(d *features.Document) error {
		if d.Features.Uphill != 50 {
			t.Errorf("%s uphill = %v, want 50", d.ID(), d.Features.Uphill)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}
