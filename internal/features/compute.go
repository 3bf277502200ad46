// HikePlanner - Hiking Track Curation and Duration Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hikeplanner

package features

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"

	"github.com/tomtom215/hikeplanner/internal/track"
)

// StoppedSpeedThreshold is the speed, in m/s, at or below which a
// timestamped pair of points counts as stopped (1 km/h).
const StoppedSpeedThreshold = 1000.0 / 3600.0

// From maxSpeedMinSamples moving pairs on, the fastest maxSpeedTrimPercent
// of speeds are discarded as GPS noise before taking the maximum.
const (
	maxSpeedMinSamples  = 20
	maxSpeedTrimPercent = 5
)

// Features are the numeric summary of one track. Distances are meters,
// elevations meters, speeds m/s and times seconds.
type Features struct {
	// MinElevation and MaxElevation are nil when no point carries elevation.
	MinElevation *float64 `json:"min_elevation"`
	MaxElevation *float64 `json:"max_elevation"`
	Uphill       float64  `json:"uphill"`
	Downhill     float64  `json:"downhill"`
	MaxSpeed     float64  `json:"max_speed"`
	Length2D     float64  `json:"length_2d"`
	Length3D     float64  `json:"length_3d"`
	MovingTime   float64  `json:"moving_time"`
}

// Compute measures t. It is pure and never fails: a track without
// elevations or timestamps simply yields zero climb or zero moving time.
func Compute(t *track.Track) Features {
	var f Features
	var speeds []float64
	minE, maxE := math.Inf(1), math.Inf(-1)
	hasElev := false

	for _, seg := range t.Segments() {
		for i, p := range seg {
			if p.HasElevation {
				hasElev = true
				minE = math.Min(minE, p.Elevation)
				maxE = math.Max(maxE, p.Elevation)
			}
			if i == 0 {
				continue
			}
			prev := seg[i-1]
			d2 := Distance2D(prev, p)
			f.Length2D += d2
			f.Length3D += Distance3D(prev, p)

			if prev.Time.IsZero() || p.Time.IsZero() {
				continue
			}
			elapsed := p.Time.Sub(prev.Time).Seconds()
			if elapsed <= 0 {
				continue
			}
			// Speed uses the horizontal distance.
			if speed := d2 / elapsed; speed > StoppedSpeedThreshold {
				f.MovingTime += elapsed
				speeds = append(speeds, speed)
			}
		}

		up, down := climb(seg)
		f.Uphill += up
		f.Downhill += down
	}

	if hasElev {
		f.MinElevation = &minE
		f.MaxElevation = &maxE
	}
	f.MaxSpeed = trimmedMax(speeds)
	return f
}

// climb sums positive and negative elevation changes over one segment after
// 3-point smoothing (weights 0.3/0.4/0.3, endpoints unsmoothed). Points
// without elevation are skipped.
func climb(seg []track.Point) (up, down float64) {
	elev := make([]float64, 0, len(seg))
	for _, p := range seg {
		if p.HasElevation {
			elev = append(elev, p.Elevation)
		}
	}
	if len(elev) < 2 {
		return 0, 0
	}

	smoothed := make([]float64, len(elev))
	smoothed[0] = elev[0]
	smoothed[len(elev)-1] = elev[len(elev)-1]
	for i := 1; i < len(elev)-1; i++ {
		smoothed[i] = 0.3*elev[i-1] + 0.4*elev[i] + 0.3*elev[i+1]
	}

	for i := 1; i < len(smoothed); i++ {
		if d := smoothed[i] - smoothed[i-1]; d > 0 {
			up += d
		} else {
			down -= d
		}
	}
	return up, down
}

// trimmedMax returns the largest speed, ignoring the fastest
// maxSpeedTrimPercent once there are enough samples for outliers to be likely.
func trimmedMax(speeds []float64) float64 {
	data := stats.Float64Data(speeds)
	n := data.Len()
	if n < maxSpeedMinSamples {
		m, err := data.Max()
		if err != nil {
			return 0 // no samples
		}
		return m
	}
	sorted := append(stats.Float64Data(nil), data...)
	sort.Sort(sorted)
	return sorted[n-1-n*maxSpeedTrimPercent/100]
}
