// HikePlanner - Hiking Track Curation and Duration Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hikeplanner

package features

import (
	"math"

	"github.com/golang/geo/s2"

	"github.com/tomtom215/hikeplanner/internal/track"
)

// EarthRadius is the mean Earth radius in meters used for all distances.
const EarthRadius = 6371008.8

// Distance2D returns the great-circle distance between a and b in meters.
func Distance2D(a, b track.Point) float64 {
	angle := s2.LatLngFromDegrees(a.Lat, a.Lon).Distance(s2.LatLngFromDegrees(b.Lat, b.Lon))
	return angle.Radians() * EarthRadius
}

// Distance3D folds the elevation change into the great-circle distance when
// both points carry elevation, and falls back to Distance2D otherwise.
func Distance3D(a, b track.Point) float64 {
	d := Distance2D(a, b)
	if !a.HasElevation || !b.HasElevation {
		return d
	}
	return math.Hypot(d, b.Elevation-a.Elevation)
}
