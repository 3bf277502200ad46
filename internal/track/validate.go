// HikePlanner - Hiking Track Curation and Duration Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hikeplanner

package track

import "errors"

// ErrEmptyTrack is returned by Validate for a well-formed track with no points.
var ErrEmptyTrack = errors.New("track has no points")

// Verdict is the curation decision for one raw record.
type Verdict int

const (
	Keep Verdict = iota
	RejectEmpty
	// RejectInvalid is assigned by callers when Parse fails; Classify never returns it.
	RejectInvalid
)

func (v Verdict) String() string {
	switch v {
	case Keep:
		return "keep"
	case RejectEmpty:
		return "reject_empty"
	case RejectInvalid:
		return "reject_invalid"
	default:
		return "unknown"
	}
}

// Classify keeps a track iff at least one segment or route holds a point.
func Classify(t *Track) Verdict {
	if t.PointCount() > 0 {
		return Keep
	}
	return RejectEmpty
}

// Validate is Classify expressed as an error.
func Validate(t *Track) error {
	if Classify(t) == RejectEmpty {
		return ErrEmptyTrack
	}
	return nil
}
