// HikePlanner - Hiking Track Curation and Duration Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hikeplanner

// Package curate turns scraped raw records into canonical GPX files and a
// JSON-lines metadata stream.
//
// A run owns its output: the track directory and the metadata directory are
// removed and recreated before the first record is read, so the output of a
// run reflects exactly one pass over one input. An interrupted run leaves
// partial output and is recovered by running again.
package curate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/tomtom215/hikeplanner/internal/config"
	"github.com/tomtom215/hikeplanner/internal/logging"
	"github.com/tomtom215/hikeplanner/internal/metadata"
	"github.com/tomtom215/hikeplanner/internal/metrics"
	"github.com/tomtom215/hikeplanner/internal/track"
)

// DefaultProgressEvery is the number of kept records between progress reports.
const DefaultProgressEvery = 1000

// Options configures a Curator.
type Options struct {
	// TrackDir receives one <sanitizedId>.gpx per kept record.
	TrackDir string

	// MetadataPath is the JSON-lines file. Its parent directory is cleared.
	MetadataPath string

	// ProgressEvery is the kept-record cadence of progress reports.
	ProgressEvery int

	// OnProgress, when set, receives a snapshot at every progress report.
	OnProgress func(Summary)
}

// Curator runs the raw-record to canonical-track pass.
type Curator struct {
	opts Options

	mu      sync.RWMutex
	running bool
	stats   *Summary
}

// New creates a Curator.
func New(opts Options) *Curator {
	if opts.ProgressEvery <= 0 {
		opts.ProgressEvery = DefaultProgressEvery
	}
	return &Curator{opts: opts}
}

// Run consumes src in order and writes the curated output.
//
// Per record: an empty gpx field is skipped silently; text that does not
// parse counts as SkippedInvalid; a track with no points counts as
// SkippedEmpty; anything else is written under its sanitized id and
// described by one metadata line. I/O failures on the output abort the run.
func (c *Curator) Run(ctx context.Context, src RecordSource) (*Summary, error) {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return nil, errors.New("curation already in progress")
	}
	c.running = true
	c.stats = &Summary{StartTime: time.Now()}
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
	}()

	metaDir := filepath.Dir(c.opts.MetadataPath)
	if filepath.Clean(metaDir) == filepath.Clean(c.opts.TrackDir) {
		return c.finish(), &config.ConfigurationError{Key: "METADATA_PATH", Reason: "must not share its directory with TRACK_DIR"}
	}
	if err := clearDir(c.opts.TrackDir, "TRACK_DIR"); err != nil {
		return c.finish(), err
	}
	if err := clearDir(metaDir, "METADATA_PATH"); err != nil {
		return c.finish(), err
	}
	// The metadata directory may be a parent of the track directory.
	if err := os.MkdirAll(c.opts.TrackDir, 0o750); err != nil {
		return c.finish(), fmt.Errorf("create %s: %w", c.opts.TrackDir, err)
	}

	f, err := os.Create(c.opts.MetadataPath)
	if err != nil {
		return c.finish(), fmt.Errorf("create metadata file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			logging.Warn().Err(closeErr).Str("path", c.opts.MetadataPath).Msg("Error closing metadata file")
		}
	}()

	w := metadata.NewWriter(f)
	runErr := c.consume(ctx, src, w)
	if err := w.Flush(); err != nil && runErr == nil {
		runErr = fmt.Errorf("flush metadata: %w", err)
	}

	stats := c.finish()
	event := logging.Ctx(ctx).Info()
	if runErr != nil {
		event = logging.Ctx(ctx).Error().Err(runErr)
	}
	event.
		Int64("kept", stats.Kept).
		Int64("skipped_empty", stats.SkippedEmpty).
		Int64("skipped_invalid", stats.SkippedInvalid).
		Int64("no_data", stats.NoData).
		Int64("duplicates", stats.Duplicates).
		Dur("duration", stats.Duration()).
		Msg("Curation finished")
	return stats, runErr
}

func (c *Curator) consume(ctx context.Context, src RecordSource, w *metadata.Writer) error {
	seen := make(map[string]struct{})
	index := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		rec, err := src.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		index++

		if err := c.curateOne(ctx, rec, index, seen, w); err != nil {
			return err
		}
	}
}

func (c *Curator) curateOne(ctx context.Context, rec *RawRecord, index int, seen map[string]struct{}, w *metadata.Writer) error {
	c.bump(func(s *Summary) { s.Processed++ })

	text, _ := rec.Get(gpxColumn)
	if text == "" {
		c.bump(func(s *Summary) { s.NoData++ })
		metrics.RecordCurateOutcome("no_data")
		return nil
	}

	rawID, _ := rec.Get(idColumn)
	trk, err := track.Parse([]byte(text))
	if err != nil {
		logging.Ctx(ctx).Debug().Err(err).Str("id", rawID).Int("row", index).Msg("Skipping unparseable track")
		c.bump(func(s *Summary) { s.SkippedInvalid++ })
		metrics.RecordCurateOutcome("skipped_invalid")
		return nil
	}
	if track.Classify(trk) == track.RejectEmpty {
		c.bump(func(s *Summary) { s.SkippedEmpty++ })
		metrics.RecordCurateOutcome("skipped_empty")
		return nil
	}

	data, err := track.Serialize(trk, true)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("id", rawID).Int("row", index).Msg("Skipping track that failed to serialize")
		c.bump(func(s *Summary) { s.SkippedInvalid++ })
		metrics.RecordCurateOutcome("skipped_invalid")
		return nil
	}

	id := SanitizeID(rawID, index)
	if _, dup := seen[id]; dup {
		logging.Ctx(ctx).Warn().Str("id", id).Str("raw_id", rawID).Int("row", index).Msg("Sanitized id already used in this run, overwriting")
		c.bump(func(s *Summary) { s.Duplicates++ })
		metrics.CurateDuplicateIDs.Inc()
	}
	seen[id] = struct{}{}

	filename := id + ".gpx"
	if err := os.WriteFile(filepath.Join(c.opts.TrackDir, filename), data, 0o640); err != nil {
		return fmt.Errorf("write track %s: %w", filename, err)
	}
	if err := w.Write(metadataFor(rec, filename)); err != nil {
		return err
	}

	var snapshot Summary
	c.bump(func(s *Summary) {
		s.Kept++
		snapshot = *s
	})
	metrics.RecordCurateOutcome("kept")

	if snapshot.Kept%int64(c.opts.ProgressEvery) == 0 {
		logging.Ctx(ctx).Info().
			Int64("kept", snapshot.Kept).
			Int64("processed", snapshot.Processed).
			Float64("records_per_second", snapshot.RecordsPerSecond()).
			Msg("Curation progress")
		if c.opts.OnProgress != nil {
			c.opts.OnProgress(snapshot)
		}
	}
	return nil
}

// metadataFor copies every raw field except the GPX text and records the
// curated filename.
func metadataFor(rec *RawRecord, filename string) metadata.Record {
	out := make(metadata.Record, len(rec.Fields))
	for _, f := range rec.Fields {
		if f.Name == gpxColumn {
			continue
		}
		out[f.Name] = f.Value
	}
	out[metadata.FilenameKey] = filename
	return out
}

// finish stamps the end time and returns a copy of the final counters.
func (c *Curator) finish() *Summary {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.EndTime = time.Now()
	stats := *c.stats
	return &stats
}

func (c *Curator) bump(fn func(*Summary)) {
	c.mu.Lock()
	fn(c.stats)
	c.mu.Unlock()
}

// GetStats returns a copy of the current run's counters.
func (c *Curator) GetStats() *Summary {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.stats == nil {
		return &Summary{}
	}
	stats := *c.stats
	return &stats
}

// IsRunning reports whether a run is in progress.
func (c *Curator) IsRunning() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.running
}

// clearDir removes and recreates dir. It refuses paths whose removal would
// take the working directory or a filesystem root with it.
func clearDir(dir, key string) error {
	clean := filepath.Clean(dir)
	if dir == "" || clean == "." || clean == ".." || clean == filepath.VolumeName(clean)+string(filepath.Separator) {
		return &config.ConfigurationError{Key: key, Reason: fmt.Sprintf("refusing to clear directory %q", dir)}
	}
	if err := os.RemoveAll(clean); err != nil {
		return fmt.Errorf("clear %s: %w", clean, err)
	}
	if err := os.MkdirAll(clean, 0o750); err != nil {
		return fmt.Errorf("create %s: %w", clean, err)
	}
	return nil
}
