// HikePlanner - Hiking Track Curation and Duration Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hikeplanner

// Package features derives the numeric summary of a curated track and merges
// it with the track's metadata into the document persisted by the loader.
package features

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/tomtom215/hikeplanner/internal/logging"
	"github.com/tomtom215/hikeplanner/internal/metadata"
	"github.com/tomtom215/hikeplanner/internal/metrics"
	"github.com/tomtom215/hikeplanner/internal/track"
)

// ErrNoFilename marks a metadata record without a usable gpx_filename.
var ErrNoFilename = errors.New("metadata record has no gpx_filename")

// ExtractionError reports a record whose track could not be measured.
type ExtractionError struct {
	File string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract features from %q: %v", e.File, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Extractor measures curated tracks stored under one directory.
// It holds no mutable state and is safe for concurrent use.
type Extractor struct {
	trackDir string
}

// NewExtractor returns an Extractor reading files from trackDir.
func NewExtractor(trackDir string) *Extractor {
	return &Extractor{trackDir: trackDir}
}

// Extract returns the document for rec, or nil when the track cannot be
// read or parsed. Failures are logged and never escape.
func (e *Extractor) Extract(ctx context.Context, rec metadata.Record) *Document {
	doc, err := e.TryExtract(ctx, rec)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("id", rec.ID()).Msg("Dropping record")
		return nil
	}
	return doc
}

// TryExtract is Extract with the failure returned as an *ExtractionError.
func (e *Extractor) TryExtract(_ context.Context, rec metadata.Record) (*Document, error) {
	start := time.Now()
	name := rec.Filename()

	if name == "" || filepath.Base(name) != name || name == "." || name == ".." {
		metrics.RecordExtraction("missing_file", time.Since(start))
		return nil, &ExtractionError{File: name, Err: ErrNoFilename}
	}

	trk, err := track.ParseFile(filepath.Join(e.trackDir, name))
	if err != nil {
		var parseErr *track.ParseError
		result := "read_error"
		if errors.As(err, &parseErr) {
			result = "parse_error"
		}
		metrics.RecordExtraction(result, time.Since(start))
		return nil, &ExtractionError{File: name, Err: err}
	}

	doc := &Document{Metadata: rec, Features: Compute(trk)}
	metrics.RecordExtraction("ok", time.Since(start))
	return doc, nil
}
