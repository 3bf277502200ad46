// HikePlanner - Hiking Track Curation and Duration Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hikeplanner

package track

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/tkrajina/gpxgo/gpx"
)

// zonelessNano is an RFC 3339 date-time without offset, read as UTC.
const zonelessNano = "2006-01-02T15:04:05.999999999"

// pointTimes holds the raw <time> text of every point in document order,
// grouped the way gpxgo groups points. A point without <time> has "".
type pointTimes struct {
	metadata  string
	waypoints []string
	routes    [][]string
	tracks    [][][]string
}

// restoreTimes replaces the timestamps gpxgo parsed with full-precision
// values. gpxgo drops fractional seconds and any non-UTC offset; a value
// this pass cannot read keeps the gpxgo result. If the document shape
// does not line up with doc, doc is left untouched.
func restoreTimes(doc *gpx.GPX, data []byte) {
	if !bytes.Contains(data, []byte("<time")) {
		return
	}
	pt, err := scanTimes(data)
	if err != nil {
		return
	}

	if pt.metadata != "" {
		if t, ok := parseTime(pt.metadata); ok {
			doc.Time = &t
		}
	}
	if len(pt.waypoints) == len(doc.Waypoints) {
		applyTimes(doc.Waypoints, pt.waypoints)
	}
	if len(pt.routes) == len(doc.Routes) {
		for i := range doc.Routes {
			if len(pt.routes[i]) == len(doc.Routes[i].Points) {
				applyTimes(doc.Routes[i].Points, pt.routes[i])
			}
		}
	}
	if len(pt.tracks) == len(doc.Tracks) {
		for i := range doc.Tracks {
			segs := doc.Tracks[i].Segments
			if len(pt.tracks[i]) != len(segs) {
				continue
			}
			for j := range segs {
				if len(pt.tracks[i][j]) == len(segs[j].Points) {
					applyTimes(segs[j].Points, pt.tracks[i][j])
				}
			}
		}
	}
}

func applyTimes(points []gpx.GPXPoint, raw []string) {
	for i := range points {
		if t, ok := parseTime(raw[i]); ok {
			points[i].Timestamp = t
		}
	}
}

func parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(zonelessNano, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// scanTimes walks the element tree and records the <time> text of every
// wpt, rtept and trkpt plus the metadata time (GPX 1.1 <metadata><time> or
// GPX 1.0 top-level <time>).
func scanTimes(data []byte) (*pointTimes, error) {
	pt := &pointTimes{}
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false

	var (
		stack  []string
		inTime bool
		text   strings.Builder
	)
	parent := func() string {
		if len(stack) < 2 {
			return ""
		}
		return stack[len(stack)-2]
	}

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return pt, nil
		}
		if err != nil {
			return nil, err
		}
		switch el := tok.(type) {
		case xml.StartElement:
			name := el.Name.Local
			stack = append(stack, name)
			switch name {
			case "wpt":
				pt.waypoints = append(pt.waypoints, "")
			case "rte":
				pt.routes = append(pt.routes, nil)
			case "rtept":
				if n := len(pt.routes); n > 0 {
					pt.routes[n-1] = append(pt.routes[n-1], "")
				}
			case "trk":
				pt.tracks = append(pt.tracks, nil)
			case "trkseg":
				if n := len(pt.tracks); n > 0 {
					pt.tracks[n-1] = append(pt.tracks[n-1], nil)
				}
			case "trkpt":
				if n := len(pt.tracks); n > 0 {
					if m := len(pt.tracks[n-1]); m > 0 {
						pt.tracks[n-1][m-1] = append(pt.tracks[n-1][m-1], "")
					}
				}
			case "time":
				inTime = true
				text.Reset()
			}
		case xml.CharData:
			if inTime {
				text.Write(el)
			}
		case xml.EndElement:
			if inTime && el.Name.Local == "time" {
				inTime = false
				pt.setTime(parent(), text.String())
			}
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}
}

func (pt *pointTimes) setTime(owner, value string) {
	switch owner {
	case "metadata", "gpx":
		pt.metadata = value
	case "wpt":
		if n := len(pt.waypoints); n > 0 {
			pt.waypoints[n-1] = value
		}
	case "rtept":
		if n := len(pt.routes); n > 0 {
			if m := len(pt.routes[n-1]); m > 0 {
				pt.routes[n-1][m-1] = value
			}
		}
	case "trkpt":
		if n := len(pt.tracks); n > 0 {
			if m := len(pt.tracks[n-1]); m > 0 {
				if k := len(pt.tracks[n-1][m-1]); k > 0 {
					pt.tracks[n-1][m-1][k-1] = value
				}
			}
		}
	}
}
