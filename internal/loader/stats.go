// HikePlanner - Hiking Track Curation and Duration Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hikeplanner

package loader

import "time"

// Stats holds counters for one load.
type Stats struct {
	Batches   int       `json:"batches"`
	Read      int       `json:"read"`
	Extracted int       `json:"extracted"`
	Dropped   int       `json:"dropped"`
	Inserted  int       `json:"inserted"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time,omitempty"`
}

// Duration returns the elapsed load time, up to now while still running.
func (s *Stats) Duration() time.Duration {
	if s.StartTime.IsZero() {
		return 0
	}
	if s.EndTime.IsZero() {
		return time.Since(s.StartTime)
	}
	return s.EndTime.Sub(s.StartTime)
}

// RecordsPerSecond returns the read rate.
func (s *Stats) RecordsPerSecond() float64 {
	d := s.Duration().Seconds()
	if d <= 0 {
		return 0
	}
	return float64(s.Read) / d
}

// Counters flattens the stats for the run ledger.
func (s *Stats) Counters() map[string]int64 {
	return map[string]int64{
		"batches":   int64(s.Batches),
		"read":      int64(s.Read),
		"extracted": int64(s.Extracted),
		"dropped":   int64(s.Dropped),
		"inserted":  int64(s.Inserted),
	}
}
