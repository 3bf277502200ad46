// HikePlanner - Hiking Track Curation and Duration Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hikeplanner

package track

import (
	"bytes"
	"encoding/xml"
	"strconv"
	"strings"
	"time"

	"github.com/tkrajina/gpxgo/gpx"
)

const (
	gpxNamespace      = "http://www.topografix.com/GPX/1/1"
	xsiNamespace      = "http://www.w3.org/2001/XMLSchema-instance"
	gpxSchemaLocation = "http://www.topografix.com/GPX/1/1 http://www.topografix.com/GPX/1/1/gpx.xsd"
	defaultCreator    = "hikeplanner"
	canonicalIndent   = "  "
)

// GPX 1.1 element layout in schema order. Coordinates and decimals are
// pre-formatted strings so the encoder never rounds them.
type xmlGPX struct {
	XMLName        xml.Name     `xml:"gpx"`
	Version        string       `xml:"version,attr"`
	Creator        string       `xml:"creator,attr"`
	XMLNS          string       `xml:"xmlns,attr"`
	XSI            string       `xml:"xmlns:xsi,attr"`
	SchemaLocation string       `xml:"xsi:schemaLocation,attr"`
	Metadata       *xmlMetadata `xml:"metadata,omitempty"`
	Waypoints      []xmlPoint   `xml:"wpt"`
	Routes         []xmlRoute   `xml:"rte"`
	Tracks         []xmlTrack   `xml:"trk"`
}

type xmlMetadata struct {
	Name      string        `xml:"name,omitempty"`
	Desc      string        `xml:"desc,omitempty"`
	Author    *xmlPerson    `xml:"author,omitempty"`
	Copyright *xmlCopyright `xml:"copyright,omitempty"`
	Link      *xmlLink      `xml:"link,omitempty"`
	Time      string        `xml:"time,omitempty"`
	Keywords  string        `xml:"keywords,omitempty"`
}

type xmlPerson struct {
	Name  string    `xml:"name,omitempty"`
	Email *xmlEmail `xml:"email,omitempty"`
	Link  *xmlLink  `xml:"link,omitempty"`
}

type xmlEmail struct {
	ID     string `xml:"id,attr"`
	Domain string `xml:"domain,attr"`
}

type xmlCopyright struct {
	Author  string `xml:"author,attr"`
	Year    string `xml:"year,omitempty"`
	License string `xml:"license,omitempty"`
}

type xmlLink struct {
	Href string `xml:"href,attr"`
	Text string `xml:"text,omitempty"`
	Type string `xml:"type,omitempty"`
}

type xmlPoint struct {
	Lat           string `xml:"lat,attr"`
	Lon           string `xml:"lon,attr"`
	Ele           string `xml:"ele,omitempty"`
	Time          string `xml:"time,omitempty"`
	MagVar        string `xml:"magvar,omitempty"`
	GeoidHeight   string `xml:"geoidheight,omitempty"`
	Name          string `xml:"name,omitempty"`
	Cmt           string `xml:"cmt,omitempty"`
	Desc          string `xml:"desc,omitempty"`
	Src           string `xml:"src,omitempty"`
	Sym           string `xml:"sym,omitempty"`
	Type          string `xml:"type,omitempty"`
	Fix           string `xml:"fix,omitempty"`
	Sat           string `xml:"sat,omitempty"`
	Hdop          string `xml:"hdop,omitempty"`
	Vdop          string `xml:"vdop,omitempty"`
	Pdop          string `xml:"pdop,omitempty"`
	AgeOfDGPSData string `xml:"ageofdgpsdata,omitempty"`
	DGPSID        string `xml:"dgpsid,omitempty"`
}

type xmlRoute struct {
	Name   string     `xml:"name,omitempty"`
	Cmt    string     `xml:"cmt,omitempty"`
	Desc   string     `xml:"desc,omitempty"`
	Src    string     `xml:"src,omitempty"`
	Number string     `xml:"number,omitempty"`
	Type   string     `xml:"type,omitempty"`
	Points []xmlPoint `xml:"rtept"`
}

type xmlTrack struct {
	Name     string       `xml:"name,omitempty"`
	Cmt      string       `xml:"cmt,omitempty"`
	Desc     string       `xml:"desc,omitempty"`
	Src      string       `xml:"src,omitempty"`
	Number   string       `xml:"number,omitempty"`
	Type     string       `xml:"type,omitempty"`
	Segments []xmlSegment `xml:"trkseg"`
}

type xmlSegment struct {
	Points []xmlPoint `xml:"trkpt"`
}

// encode writes doc as GPX 1.1. Coordinates and decimals use the shortest
// representation that parses back to the same float64, and times are UTC
// RFC 3339 with as many fractional digits as needed. Extensions are not
// written.
func encode(doc *gpx.GPX, pretty bool) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)

	enc := xml.NewEncoder(&buf)
	if pretty {
		enc.Indent("", canonicalIndent)
	}
	if err := enc.Encode(toXML(doc)); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	if pretty {
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

func toXML(doc *gpx.GPX) *xmlGPX {
	creator := doc.Creator
	if creator == "" {
		creator = defaultCreator
	}
	out := &xmlGPX{
		Version:        "1.1",
		Creator:        creator,
		XMLNS:          gpxNamespace,
		XSI:            xsiNamespace,
		SchemaLocation: gpxSchemaLocation,
		Metadata:       metadataXML(doc),
	}

	for i := range doc.Waypoints {
		out.Waypoints = append(out.Waypoints, pointXML(&doc.Waypoints[i]))
	}
	for i := range doc.Routes {
		r := &doc.Routes[i]
		rte := xmlRoute{
			Name:   r.Name,
			Cmt:    r.Comment,
			Desc:   r.Description,
			Src:    r.Source,
			Number: formatNullableInt(&r.Number),
			Type:   r.Type,
		}
		for j := range r.Points {
			rte.Points = append(rte.Points, pointXML(&r.Points[j]))
		}
		out.Routes = append(out.Routes, rte)
	}
	for i := range doc.Tracks {
		t := &doc.Tracks[i]
		trk := xmlTrack{
			Name:   t.Name,
			Cmt:    t.Comment,
			Desc:   t.Description,
			Src:    t.Source,
			Number: formatNullableInt(&t.Number),
			Type:   t.Type,
		}
		for j := range t.Segments {
			var seg xmlSegment
			for k := range t.Segments[j].Points {
				seg.Points = append(seg.Points, pointXML(&t.Segments[j].Points[k]))
			}
			trk.Segments = append(trk.Segments, seg)
		}
		out.Tracks = append(out.Tracks, trk)
	}
	return out
}

func metadataXML(doc *gpx.GPX) *xmlMetadata {
	m := &xmlMetadata{
		Name:     doc.Name,
		Desc:     doc.Description,
		Keywords: doc.Keywords,
	}
	if doc.Time != nil {
		m.Time = formatTime(*doc.Time)
	}
	if doc.Link != "" {
		m.Link = &xmlLink{Href: doc.Link, Text: doc.LinkText, Type: doc.LinkType}
	}
	if doc.AuthorName != "" || doc.AuthorEmail != "" || doc.AuthorLink != "" {
		author := &xmlPerson{Name: doc.AuthorName}
		if id, domain, ok := strings.Cut(doc.AuthorEmail, "@"); ok {
			author.Email = &xmlEmail{ID: id, Domain: domain}
		}
		if doc.AuthorLink != "" {
			author.Link = &xmlLink{Href: doc.AuthorLink, Text: doc.AuthorLinkText, Type: doc.AuthorLinkType}
		}
		m.Author = author
	}
	if doc.Copyright != "" || doc.CopyrightYear != "" || doc.CopyrightLicense != "" {
		m.Copyright = &xmlCopyright{Author: doc.Copyright, Year: doc.CopyrightYear, License: doc.CopyrightLicense}
	}

	if *m == (xmlMetadata{}) {
		return nil
	}
	return m
}

func pointXML(p *gpx.GPXPoint) xmlPoint {
	return xmlPoint{
		Lat:           formatFloat(p.Latitude),
		Lon:           formatFloat(p.Longitude),
		Ele:           formatNullableFloat(&p.Elevation),
		Time:          formatTime(p.Timestamp),
		MagVar:        p.MagneticVariation,
		GeoidHeight:   p.GeoidHeight,
		Name:          p.Name,
		Cmt:           p.Comment,
		Desc:          p.Description,
		Src:           p.Source,
		Sym:           p.Symbol,
		Type:          p.Type,
		Fix:           p.TypeOfGpsFix,
		Sat:           formatNullableInt(&p.Satellites),
		Hdop:          formatNullableFloat(&p.HorizontalDilution),
		Vdop:          formatNullableFloat(&p.VerticalDilution),
		Pdop:          formatNullableFloat(&p.PositionalDilution),
		AgeOfDGPSData: formatNullableFloat(&p.AgeOfDGpsData),
		DGPSID:        formatNullableInt(&p.DGpsId),
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatNullableFloat(n *gpx.NullableFloat64) string {
	if n.Null() {
		return ""
	}
	return formatFloat(n.Value())
}

func formatNullableInt(n *gpx.NullableInt) string {
	if n.Null() {
		return ""
	}
	return strconv.Itoa(n.Value())
}

// formatTime returns "" for the zero time, which gpxgo uses for a point
// without a timestamp.
func formatTime(t time.Time) string {
	if t.Year() <= 1 {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
