// HikePlanner - Hiking Track Curation and Duration Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hikeplanner

package track

import (
	"bytes"
	"encoding/xml"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

const twoPointTrack = `<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1" creator="test" xmlns="http://www.topografix.com/GPX/1/1">
  <trk>
    <name>Ridge</name>
    <trkseg>
      <trkpt lat="46.5" lon="8.0"><ele>1000</ele><time>2020-06-01T08:00:00Z</time></trkpt>
      <trkpt lat="46.5005" lon="8.0"><ele>1100</ele><time>2020-06-01T08:01:00Z</time></trkpt>
    </trkseg>
  </trk>
</gpx>`

const emptyTrack = `<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1" creator="test" xmlns="http://www.topografix.com/GPX/1/1">
  <trk><name>Nothing</name><trkseg></trkseg></trk>
</gpx>`

const routeOnly = `<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1" creator="test" xmlns="http://www.topografix.com/GPX/1/1">
  <rte>
    <rtept lat="46.0" lon="7.0"></rtept>
    <rtept lat="46.1" lon="7.1"><ele>900</ele></rtept>
  </rte>
</gpx>`

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		input      string
		wantErr    bool
		wantPoints int
	}{
		{name: "two point track", input: twoPointTrack, wantPoints: 2},
		{name: "empty segment", input: emptyTrack, wantPoints: 0},
		{name: "route only", input: routeOnly, wantPoints: 2},
		{name: "blank", input: "", wantErr: true},
		{name: "not xml", input: "this is not gpx", wantErr: true},
		{name: "truncated", input: twoPointTrack[:120], wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			trk, err := Parse([]byte(tt.input))
			if tt.wantErr {
				var parseErr *ParseError
				if !errors.As(err, &parseErr) {
					t.Fatalf("Parse() error = %v, want *ParseError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse() unexpected error: %v", err)
			}
			if got := trk.PointCount(); got != tt.wantPoints {
				t.Errorf("PointCount() = %d, want %d", got, tt.wantPoints)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  Verdict
	}{
		{"points keep", twoPointTrack, Keep},
		{"route points keep", routeOnly, Keep},
		{"no points reject", emptyTrack, RejectEmpty},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			trk, err := Parse([]byte(tt.input))
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if got := Classify(trk); got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
			if err := Validate(trk); (err != nil) != (tt.want == RejectEmpty) {
				t.Errorf("Validate() = %v for verdict %v", err, tt.want)
			}
		})
	}
}

func TestVerdictString(t *testing.T) {
	t.Parallel()

	for v, want := range map[Verdict]string{Keep: "keep", RejectEmpty: "reject_empty", RejectInvalid: "reject_invalid", Verdict(9): "unknown"} {
		if got := v.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", v, got, want)
		}
	}
}

func TestSegments(t *testing.T) {
	t.Parallel()

	trk, err := Parse([]byte(twoPointTrack))
	if err != nil {
		t.Fatal(err)
	}
	segs := trk.Segments()
	if len(segs) != 1 || len(segs[0]) != 2 {
		t.Fatalf("Segments() = %v, want one segment of two points", segs)
	}

	first := segs[0][0]
	if first.Lat != 46.5 || first.Lon != 8.0 {
		t.Errorf("first point = %+v", first)
	}
	if !first.HasElevation || first.Elevation != 1000 {
		t.Errorf("first elevation = %v (has=%v), want 1000", first.Elevation, first.HasElevation)
	}
	if want := time.Date(2020, 6, 1, 8, 0, 0, 0, time.UTC); !first.Time.Equal(want) {
		t.Errorf("first time = %v, want %v", first.Time, want)
	}

	route, err := Parse([]byte(routeOnly))
	if err != nil {
		t.Fatal(err)
	}
	rsegs := route.Segments()
	if len(rsegs) != 1 || rsegs[0][0].HasElevation || !rsegs[0][1].HasElevation {
		t.Errorf("route segments = %+v", rsegs)
	}
	if !rsegs[0][0].Time.IsZero() {
		t.Errorf("route point without time should have zero Time, got %v", rsegs[0][0].Time)
	}
}

func TestSerialize_RoundTrip(t *testing.T) {
	t.Parallel()

	trk, err := Parse([]byte(twoPointTrack))
	if err != nil {
		t.Fatal(err)
	}

	out, err := Serialize(trk, true)
	if err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}
	if !strings.Contains(string(out), "\n  ") {
		t.Errorf("pretty output should be indented:\n%s", out)
	}

	again, err := Parse(out)
	if err != nil {
		t.Fatalf("re-parse canonical output: %v", err)
	}
	if again.PointCount() != trk.PointCount() {
		t.Errorf("round trip point count = %d, want %d", again.PointCount(), trk.PointCount())
	}
	a, b := trk.Segments()[0], again.Segments()[0]
	for i := range a {
		if a[i].Lat != b[i].Lat || a[i].Lon != b[i].Lon || a[i].Elevation != b[i].Elevation || !a[i].Time.Equal(b[i].Time) {
			t.Errorf("point %d changed: %+v -> %+v", i, a[i], b[i])
		}
	}
}

const precisePoints = `<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1" creator="test" xmlns="http://www.topografix.com/GPX/1/1">
  <metadata><name>Precise</name><time>2020-06-01T07:59:59.5Z</time></metadata>
  <wpt lat="46.0000000000001" lon="7.25"><name>Hut</name><time>2020-06-01T07:00:00.125+02:00</time></wpt>
  <rte><rtept lat="46.1" lon="7.1"><time>2020-06-01T06:00:00.999999Z</time></rtept></rte>
  <trk>
    <trkseg>
      <trkpt lat="46.123456789012" lon="8.987654321098765"><ele>1000.123456789</ele><time>2020-06-01T08:00:00.250Z</time></trkpt>
      <trkpt lat="46.123457" lon="8.98765432"><ele>1000.5</ele><time>2020-06-01T08:00:00.750Z</time></trkpt>
      <trkpt lat="46.1235" lon="8.9877"><time>2020-06-01T10:00:01+02:00</time></trkpt>
      <trkpt lat="46.1236" lon="8.9878"></trkpt>
    </trkseg>
  </trk>
</gpx>`

func TestParse_KeepsFullTimestampPrecision(t *testing.T) {
	t.Parallel()

	trk, err := Parse([]byte(precisePoints))
	if err != nil {
		t.Fatal(err)
	}
	seg := trk.Segments()[0]

	tests := []struct {
		name string
		got  time.Time
		want time.Time
	}{
		{"fractional seconds", seg[0].Time, time.Date(2020, 6, 1, 8, 0, 0, 250_000_000, time.UTC)},
		{"second fraction", seg[1].Time, time.Date(2020, 6, 1, 8, 0, 0, 750_000_000, time.UTC)},
		{"non-UTC offset", seg[2].Time, time.Date(2020, 6, 1, 8, 0, 1, 0, time.UTC)},
		{"metadata time", *trk.GPX().Time, time.Date(2020, 6, 1, 7, 59, 59, 500_000_000, time.UTC)},
		{"waypoint with offset", trk.GPX().Waypoints[0].Timestamp, time.Date(2020, 6, 1, 5, 0, 0, 125_000_000, time.UTC)},
	}
	for _, tt := range tests {
		if !tt.got.Equal(tt.want) {
			t.Errorf("%s: got %v, want %v", tt.name, tt.got, tt.want)
		}
	}
	if !seg[3].Time.IsZero() {
		t.Errorf("point without time = %v, want zero", seg[3].Time)
	}
	if got := seg[1].Time.Sub(seg[0].Time); got != 500*time.Millisecond {
		t.Errorf("elapsed between sub-second points = %v, want 500ms", got)
	}
}

func TestSerialize_PreservesPrecision(t *testing.T) {
	t.Parallel()

	trk, err := Parse([]byte(precisePoints))
	if err != nil {
		t.Fatal(err)
	}
	out, err := Serialize(trk, true)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		`lat="46.123456789012"`,
		`lon="8.987654321098765"`,
		`lat="46.0000000000001"`,
		"<ele>1000.123456789</ele>",
		"<time>2020-06-01T08:00:00.25Z</time>",
		"<time>2020-06-01T08:00:01Z</time>",
		"<time>2020-06-01T05:00:00.125Z</time>",
		"\n  <metadata>",
	} {
		if !strings.Contains(string(out), want) {
			t.Errorf("canonical output missing %s:\n%s", want, out)
		}
	}
	if strings.Contains(string(out), "\t") {
		t.Errorf("canonical output contains tabs:\n%s", out)
	}

	again, err := Parse(out)
	if err != nil {
		t.Fatalf("re-parse canonical output: %v", err)
	}
	if diff := cmp.Diff(trk.Segments(), again.Segments()); diff != "" {
		t.Errorf("points changed across serialize/parse (-before +after):\n%s", diff)
	}
	if again.GPX().Waypoints[0].Name != "Hut" || again.GPX().Name != "Precise" {
		t.Errorf("names lost: waypoint %q, metadata %q", again.GPX().Waypoints[0].Name, again.GPX().Name)
	}

	twice, err := Serialize(again, true)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out, twice) {
		t.Errorf("canonical form is not a fixed point:\n%s\n---\n%s", out, twice)
	}
}

func TestSerialize_Compact(t *testing.T) {
	t.Parallel()

	trk, err := Parse([]byte(twoPointTrack))
	if err != nil {
		t.Fatal(err)
	}
	out, err := Serialize(trk, false)
	if err != nil {
		t.Fatal(err)
	}
	body := strings.TrimPrefix(string(out), xml.Header)
	if strings.Contains(body, "\n") {
		t.Errorf("compact output contains newlines:\n%s", out)
	}
	if _, err := Parse(out); err != nil {
		t.Errorf("compact output does not parse: %v", err)
	}
}

func TestSerialize_Deterministic(t *testing.T) {
	t.Parallel()

	first, err := Parse([]byte(twoPointTrack))
	if err != nil {
		t.Fatal(err)
	}
	second, err := Parse([]byte(twoPointTrack))
	if err != nil {
		t.Fatal(err)
	}
	a, err := Serialize(first, true)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Serialize(second, true)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Errorf("equal tracks serialized differently:\n%s\n---\n%s", a, b)
	}
}

func TestParseFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "ridge.gpx")
	if err := os.WriteFile(path, []byte(twoPointTrack), 0o600); err != nil {
		t.Fatal(err)
	}

	trk, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}
	if trk.PointCount() != 2 {
		t.Errorf("PointCount() = %d, want 2", trk.PointCount())
	}

	_, err = ParseFile(filepath.Join(dir, "missing.gpx"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file error = %v, want os.ErrNotExist", err)
	}
	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		t.Error("read failure must not be reported as a parse error")
	}
}
