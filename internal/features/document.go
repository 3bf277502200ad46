// HikePlanner - Hiking Track Curation and Duration Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hikeplanner

package features

import (
	"github.com/goccy/go-json"

	"github.com/tomtom215/hikeplanner/internal/metadata"
)

// Feature field names as persisted.
const (
	FieldMinElevation = "min_elevation"
	FieldMaxElevation = "max_elevation"
	FieldUphill       = "uphill"
	FieldDownhill     = "downhill"
	FieldMaxSpeed     = "max_speed"
	FieldLength2D     = "length_2d"
	FieldLength3D     = "length_3d"
	FieldMovingTime   = "moving_time"
)

// Document is a metadata record merged with its track's features.
type Document struct {
	Metadata metadata.Record
	Features Features
}

// Fields flattens the document into one map. Feature fields win over
// metadata fields of the same name.
func (d *Document) Fields() map[string]any {
	out := make(map[string]any, len(d.Metadata)+8)
	for k, v := range d.Metadata {
		out[k] = v
	}
	out[FieldMinElevation] = floatOrNil(d.Features.MinElevation)
	out[FieldMaxElevation] = floatOrNil(d.Features.MaxElevation)
	out[FieldUphill] = d.Features.Uphill
	out[FieldDownhill] = d.Features.Downhill
	out[FieldMaxSpeed] = d.Features.MaxSpeed
	out[FieldLength2D] = d.Features.Length2D
	out[FieldLength3D] = d.Features.Length3D
	out[FieldMovingTime] = d.Features.MovingTime
	return out
}

// ID returns the raw record id.
func (d *Document) ID() string {
	return d.Metadata.ID()
}

// MarshalJSON renders the flattened document.
func (d *Document) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Fields())
}

// UnmarshalDocument splits a flattened document back into metadata and features.
func UnmarshalDocument(data []byte) (*Document, error) {
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	return FromFields(fields), nil
}

// FromFields rebuilds a Document from a flattened field map.
func FromFields(fields map[string]any) *Document {
	doc := &Document{Metadata: metadata.Record{}}
	for k, v := range fields {
		switch k {
		case FieldMinElevation:
			doc.Features.MinElevation = toFloatPtr(v)
		case FieldMaxElevation:
			doc.Features.MaxElevation = toFloatPtr(v)
		case FieldUphill:
			doc.Features.Uphill = toFloat(v)
		case FieldDownhill:
			doc.Features.Downhill = toFloat(v)
		case FieldMaxSpeed:
			doc.Features.MaxSpeed = toFloat(v)
		case FieldLength2D:
			doc.Features.Length2D = toFloat(v)
		case FieldLength3D:
			doc.Features.Length3D = toFloat(v)
		case FieldMovingTime:
			doc.Features.MovingTime = toFloat(v)
		default:
			doc.Metadata[k] = v
		}
	}
	return doc
}

func floatOrNil(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}

func toFloatPtr(v any) *float64 {
	if v == nil {
		return nil
	}
	f := toFloat(v)
	return &f
}
