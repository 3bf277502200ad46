// HikePlanner - Hiking Track Curation and Duration Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hikeplanner

// Package track parses, classifies and serializes GPX documents.
//
// A Track wraps a parsed *gpx.GPX. Callers that need geometry use
// Segments, which flattens tracks, their segments and routes into plain
// point sequences; callers that need to write the track back out use
// Serialize, which always emits the canonical GPX 1.1 form.
package track

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/tkrajina/gpxgo/gpx"
)

// ParseError reports text that is not well-formed GPX.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse gpx: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Point is one recorded position. Time is the zero value when the point
// carries no timestamp.
type Point struct {
	Lat          float64
	Lon          float64
	Elevation    float64
	HasElevation bool
	Time         time.Time
}

// Track is a parsed GPX document.
type Track struct {
	doc *gpx.GPX
}

// Parse parses GPX text. Any failure, including blank input, is a *ParseError.
func Parse(data []byte) (*Track, error) {
	if len(data) == 0 {
		return nil, &ParseError{Err: errors.New("empty document")}
	}
	doc, err := gpx.ParseBytes(data)
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	restoreTimes(doc, data)
	return &Track{doc: doc}, nil
}

// ParseFile reads and parses the file at path. Read failures are returned
// as-is; malformed content is a *ParseError.
func ParseFile(path string) (*Track, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// FromGPX wraps an already-built document.
func FromGPX(doc *gpx.GPX) *Track {
	return &Track{doc: doc}
}

// GPX exposes the underlying document.
func (t *Track) GPX() *gpx.GPX {
	return t.doc
}

// PointCount returns the number of points across all track segments and routes.
func (t *Track) PointCount() int {
	n := 0
	for i := range t.doc.Tracks {
		for j := range t.doc.Tracks[i].Segments {
			n += len(t.doc.Tracks[i].Segments[j].Points)
		}
	}
	for i := range t.doc.Routes {
		n += len(t.doc.Routes[i].Points)
	}
	return n
}

// Segments returns every track segment followed by every route, each as an
// ordered point sequence. Empty sequences are omitted.
func (t *Track) Segments() [][]Point {
	var out [][]Point
	for i := range t.doc.Tracks {
		for j := range t.doc.Tracks[i].Segments {
			if seg := convert(t.doc.Tracks[i].Segments[j].Points); len(seg) > 0 {
				out = append(out, seg)
			}
		}
	}
	for i := range t.doc.Routes {
		if seg := convert(t.doc.Routes[i].Points); len(seg) > 0 {
			out = append(out, seg)
		}
	}
	return out
}

func convert(points []gpx.GPXPoint) []Point {
	if len(points) == 0 {
		return nil
	}
	out := make([]Point, len(points))
	for i := range points {
		p := &points[i]
		out[i] = Point{
			Lat:  p.Latitude,
			Lon:  p.Longitude,
			Time: p.Timestamp,
		}
		if p.Elevation.NotNull() {
			out[i].Elevation = p.Elevation.Value()
			out[i].HasElevation = true
		}
	}
	return out
}

// Serialize renders t as GPX 1.1. With pretty set the output is indented
// by two spaces; element order and indentation are fixed so equal tracks
// serialize to equal bytes. Parsing the output yields the same coordinates,
// elevations and timestamps.
func Serialize(t *Track, pretty bool) ([]byte, error) {
	out, err := encode(t.doc, pretty)
	if err != nil {
		return nil, fmt.Errorf("serialize gpx: %w", err)
	}
	return out, nil
}
