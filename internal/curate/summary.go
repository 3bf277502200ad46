// HikePlanner - Hiking Track Curation and Duration Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hikeplanner

package curate

import "time"

// Summary counts the outcome of one curation run.
type Summary struct {
	// Processed is the number of input records read.
	Processed int64 `json:"processed"`

	// Kept records were written as canonical tracks with a metadata line.
	Kept int64 `json:"kept"`

	// SkippedEmpty records parsed but held no points.
	SkippedEmpty int64 `json:"skipped_empty"`

	// SkippedInvalid records did not parse as GPX.
	SkippedInvalid int64 `json:"skipped_invalid"`

	// NoData records had an empty gpx field. They are skipped silently and
	// are not part of the kept/empty/invalid tally.
	NoData int64 `json:"no_data"`

	// Duplicates counts kept records whose sanitized id was already used in
	// this run. The later record overwrites the earlier file.
	Duplicates int64 `json:"duplicates"`

	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

// Duration returns the run's wall time, or the time elapsed so far.
func (s *Summary) Duration() time.Duration {
	if s.StartTime.IsZero() {
		return 0
	}
	if s.EndTime.IsZero() {
		return time.Since(s.StartTime)
	}
	return s.EndTime.Sub(s.StartTime)
}

// RecordsPerSecond returns the input processing rate.
func (s *Summary) RecordsPerSecond() float64 {
	d := s.Duration().Seconds()
	if d == 0 {
		return 0
	}
	return float64(s.Processed) / d
}

// Counters flattens the summary for the run ledger.
func (s *Summary) Counters() map[string]int64 {
	return map[string]int64{
		"processed":       s.Processed,
		"kept":            s.Kept,
		"skipped_empty":   s.SkippedEmpty,
		"skipped_invalid": s.SkippedInvalid,
		"no_data":         s.NoData,
		"duplicates":      s.Duplicates,
	}
}
