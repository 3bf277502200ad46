// HikePlanner - Hiking Track Curation and Duration Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hikeplanner

package curate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/tomtom215/hikeplanner/internal/config"
	"github.com/tomtom215/hikeplanner/internal/logging"
	"github.com/tomtom215/hikeplanner/internal/metrics"
	"github.com/tomtom215/hikeplanner/internal/track"
)

// Recurate rewrites every *.gpx file of inputDir into outputDir in canonical
// form, applying the same keep/reject rules as Run. Files keep their names.
// outputDir is cleared first; no metadata is produced.
func Recurate(ctx context.Context, inputDir, outputDir string, progressEvery int) (*Summary, error) {
	if progressEvery <= 0 {
		progressEvery = DefaultProgressEvery
	}
	stats := &Summary{StartTime: time.Now()}
	done := func(err error) (*Summary, error) {
		stats.EndTime = time.Now()
		return stats, err
	}

	if filepath.Clean(inputDir) == filepath.Clean(outputDir) {
		return done(&config.ConfigurationError{Key: "output", Reason: "must differ from the input directory"})
	}

	entries, err := os.ReadDir(inputDir)
	if err != nil {
		return done(fmt.Errorf("read input directory: %w", err))
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() && strings.EqualFold(filepath.Ext(e.Name()), ".gpx") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	if err := clearDir(outputDir, "output"); err != nil {
		return done(err)
	}

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return done(err)
		}
		stats.Processed++

		trk, err := track.ParseFile(filepath.Join(inputDir, name))
		var parseErr *track.ParseError
		switch {
		case errors.As(err, &parseErr):
			logging.Ctx(ctx).Debug().Err(err).Str("file", name).Msg("Skipping unparseable track")
			stats.SkippedInvalid++
			metrics.RecordCurateOutcome("skipped_invalid")
			continue
		case err != nil:
			return done(fmt.Errorf("read %s: %w", name, err))
		}

		if track.Classify(trk) == track.RejectEmpty {
			stats.SkippedEmpty++
			metrics.RecordCurateOutcome("skipped_empty")
			continue
		}

		data, err := track.Serialize(trk, true)
		if err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("file", name).Msg("Skipping track that failed to serialize")
			stats.SkippedInvalid++
			metrics.RecordCurateOutcome("skipped_invalid")
			continue
		}
		if err := os.WriteFile(filepath.Join(outputDir, name), data, 0o640); err != nil {
			return done(fmt.Errorf("write track %s: %w", name, err))
		}
		stats.Kept++
		metrics.RecordCurateOutcome("kept")

		if stats.Processed%int64(progressEvery) == 0 {
			logging.Ctx(ctx).Info().
				Int64("processed", stats.Processed).
				Int("total", len(names)).
				Msg("Re-curation progress")
		}
	}

	logging.Ctx(ctx).Info().
		Int64("kept", stats.Kept).
		Int64("skipped_empty", stats.SkippedEmpty).
		Int64("skipped_invalid", stats.SkippedInvalid).
		Msg("Re-curation finished")
	return done(nil)
}
