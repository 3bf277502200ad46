// HikePlanner - Hiking Track Curation and Duration Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hikeplanner

// Package loader replaces the document collection with freshly extracted
// features for every record in the metadata stream.
//
// Records are read in batches. Each batch is fanned out to a bounded pool
// of extractors, the surviving documents are inserted into a staging area,
// and only once the whole stream has been loaded is the staging area
// swapped in as the live collection.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/hikeplanner/internal/features"
	"github.com/tomtom215/hikeplanner/internal/logging"
	"github.com/tomtom215/hikeplanner/internal/metadata"
	"github.com/tomtom215/hikeplanner/internal/metrics"
	"github.com/tomtom215/hikeplanner/internal/store"
)

// DefaultBatchSize is used when Options.BatchSize is not positive.
const DefaultBatchSize = 200

// Extractor turns a metadata record into a document, or nil to drop it.
// It must be safe for concurrent use.
type Extractor interface {
	Extract(ctx context.Context, rec metadata.Record) *features.Document
}

// Options tunes a Loader.
type Options struct {
	BatchSize int
	Workers   int

	// OnBatch is called after each batch is staged.
	OnBatch func(BatchProgress)
}

// BatchProgress describes one staged batch.
type BatchProgress struct {
	Batch    int
	Size     int
	Inserted int
	Stats    Stats
}

// Loader performs replace-all loads into one collection.
type Loader struct {
	coll store.Collection
	ex   Extractor
	opts Options

	mu      sync.RWMutex
	running bool
	stats   *Stats
}

// New returns a Loader writing to coll.
func New(coll store.Collection, ex Extractor, opts Options) *Loader {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	return &Loader{coll: coll, ex: ex, opts: opts}
}

// Load streams metadataPath into the collection. On success the collection
// holds exactly the extracted documents; on any error it is left as it was.
func (l *Loader) Load(ctx context.Context, metadataPath string) (*Stats, error) {
	f, err := os.Open(metadataPath)
	if err != nil {
		return nil, fmt.Errorf("open metadata: %w", err)
	}
	defer f.Close()

	return l.LoadFrom(ctx, f)
}

// LoadFrom is Load reading the metadata stream from r.
func (l *Loader) LoadFrom(ctx context.Context, r io.Reader) (*Stats, error) {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return nil, fmt.Errorf("load already in progress")
	}
	l.running = true
	l.stats = &Stats{StartTime: time.Now()}
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		l.running = false
		l.mu.Unlock()
	}()

	rep, err := l.coll.BeginReplace(ctx)
	if err != nil {
		return l.finish(), fmt.Errorf("begin replace: %w", err)
	}

	if err := l.processAllBatches(ctx, metadata.NewReader(r), rep); err != nil {
		// The caller's context may be the reason we failed; abort with a
		// fresh one so the staging area is still dropped.
		abortCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		if abortErr := rep.Abort(abortCtx); abortErr != nil {
			logging.Error().Err(abortErr).AnErr("original_error", err).Msg("Failed to abort staging collection")
		}
		metrics.RecordSwap(l.coll.Driver(), err)
		return l.finish(), err
	}

	err = rep.Commit(ctx)
	metrics.RecordSwap(l.coll.Driver(), err)
	if err != nil {
		return l.finish(), fmt.Errorf("commit: %w", err)
	}

	stats := l.finish()
	logging.Ctx(ctx).Info().
		Int("batches", stats.Batches).
		Int("read", stats.Read).
		Int("inserted", stats.Inserted).
		Int("dropped", stats.Dropped).
		Dur("duration", stats.Duration()).
		Msg("Load completed")
	return stats, nil
}

func (l *Loader) processAllBatches(ctx context.Context, reader *metadata.Reader, rep store.Replacement) error {
	for batchNum := 1; ; batchNum++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		records, readErr := reader.ReadBatch(l.opts.BatchSize)
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return fmt.Errorf("read batch %d: %w", batchNum, readErr)
		}
		if len(records) > 0 {
			if err := l.processBatch(ctx, batchNum, records, rep); err != nil {
				return err
			}
		}
		if errors.Is(readErr, io.EOF) {
			return nil
		}
	}
}

// processBatch extracts records concurrently and stages the survivors in
// input order.
func (l *Loader) processBatch(ctx context.Context, batchNum int, records []metadata.Record, rep store.Replacement) error {
	start := time.Now()
	results := make([]*features.Document, len(records))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.opts.Workers)
	for i, rec := range records {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = l.ex.Extract(gctx, rec)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	docs := make([]*features.Document, 0, len(results))
	for _, d := range results {
		if d != nil {
			docs = append(docs, d)
		}
	}
	if err := rep.Insert(ctx, docs); err != nil {
		return fmt.Errorf("insert batch %d: %w", batchNum, err)
	}

	dropped := len(records) - len(docs)
	metrics.RecordBatch(len(docs), dropped, time.Since(start))

	l.mu.Lock()
	l.stats.Batches++
	l.stats.Read += len(records)
	l.stats.Extracted += len(docs)
	l.stats.Dropped += dropped
	l.stats.Inserted += len(docs)
	stats := *l.stats
	l.mu.Unlock()

	logging.Ctx(ctx).Info().
		Int("batch", batchNum).
		Int("size", len(records)).
		Int("inserted", len(docs)).
		Int("dropped", dropped).
		Int("total_inserted", stats.Inserted).
		Float64("records_per_second", stats.RecordsPerSecond()).
		Msg("Batch staged")

	if l.opts.OnBatch != nil {
		l.opts.OnBatch(BatchProgress{Batch: batchNum, Size: len(records), Inserted: len(docs), Stats: stats})
	}
	return nil
}

func (l *Loader) finish() *Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stats.EndTime = time.Now()
	stats := *l.stats
	return &stats
}

// GetStats returns a copy of the current load statistics.
func (l *Loader) GetStats() *Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.stats == nil {
		return &Stats{}
	}
	stats := *l.stats
	return &stats
}

// IsRunning reports whether a load is in progress.
func (l *Loader) IsRunning() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.running
}
