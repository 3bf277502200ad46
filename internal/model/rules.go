// HikePlanner - Hiking Track Curation and Duration Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hikeplanner

package model

import (
	"fmt"
	"math"
)

// DIN33466 estimates walking time in seconds using the German hiking
// standard: 300 m ascent, 500 m descent or 4 km distance per hour, with
// the smaller of the vertical and horizontal parts halved.
func DIN33466(uphill, downhill, distance float64) float64 {
	vertical := downhill/500 + uphill/300
	horizontal := distance / 1000 / 4
	return 3600 * (math.Min(vertical, horizontal)/2 + math.Max(vertical, horizontal))
}

// SAC estimates walking time in seconds using the Swiss Alpine Club rule:
// 400 m ascent or 4 km distance per hour, added.
func SAC(uphill, distance float64) float64 {
	return 3600 * (uphill/400 + distance/1000/4)
}

// FormatMinutes renders seconds as H:MM:SS rounded half-to-even to whole
// minutes, with a "N day(s), " prefix from 24 hours on. Negative durations
// render as zero.
func FormatMinutes(seconds float64) string {
	minutes := int64(math.RoundToEven(seconds / 60))
	if minutes < 0 {
		minutes = 0
	}
	days := minutes / (24 * 60)
	minutes %= 24 * 60

	clock := fmt.Sprintf("%d:%02d:00", minutes/60, minutes%60)
	switch days {
	case 0:
		return clock
	case 1:
		return "1 day, " + clock
	default:
		return fmt.Sprintf("%d days, %s", days, clock)
	}
}
