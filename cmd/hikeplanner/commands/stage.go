// HikePlanner - Hiking Track Curation and Duration Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hikeplanner

package commands

import (
	"context"
	"io"
	"path/filepath"

	"github.com/tomtom215/hikeplanner/internal/blob"
	"github.com/tomtom215/hikeplanner/internal/ledger"
	"github.com/tomtom215/hikeplanner/internal/logging"
	"github.com/tomtom215/hikeplanner/internal/metrics"
	"github.com/tomtom215/hikeplanner/internal/model"
)

// stageFunc does the work of one stage and returns its counters, which are
// recorded even when err is non-nil.
type stageFunc func(ctx context.Context) (map[string]int64, error)

func (a *app) openLedger() (ledger.Store, error) {
	return ledger.OpenBadger(a.cfg.Ledger.Path, a.cfg.Ledger.InMemory)
}

// runStage runs fn as stage: it tags the context with a run ID, records the
// outcome in the ledger and flushes the metrics textfile. A ledger that
// cannot be opened or written is logged but does not fail the stage.
func (a *app) runStage(ctx context.Context, stage string, fn stageFunc) error {
	run := ledger.NewRun(stage)
	ctx = logging.ContextWithRun(ctx, run.ID, stage)
	log := logging.Ctx(ctx)

	log.Info().Msg("Stage starting")
	counters, err := fn(ctx)
	run.Finish(counters, err)

	event := log.Info()
	if err != nil {
		event = log.Error().Err(err)
	}
	event.Dur("duration", run.Duration()).Interface("counters", counters).Msg("Stage finished")

	if lerr := a.recordRun(ctx, run); lerr != nil {
		log.Warn().Err(lerr).Msg("Failed to record run in ledger")
	}
	if merr := metrics.WriteTextfile(a.cfg.Metrics.TextfilePath); merr != nil {
		log.Warn().Err(merr).Msg("Failed to write metrics textfile")
	}
	return err
}

func (a *app) recordRun(ctx context.Context, run *ledger.Run) (err error) {
	store, err := a.openLedger()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return store.Record(ctx, run)
}

func (a *app) blobClient() (*blob.Client, error) {
	if err := a.cfg.RequireBlob(); err != nil {
		return nil, err
	}
	return blob.NewFromConfig(a.cfg.Blob)
}

func (a *app) modelSource() (*model.BlobSource, error) {
	client, err := a.blobClient()
	if err != nil {
		return nil, err
	}
	return model.NewBlobSource(client, a.cfg.Blob.ModelPrefix, a.cfg.Paths.ModelDir, a.cfg.Model.ArtifactName), nil
}

func (a *app) artifactPath() string {
	return filepath.Join(a.cfg.Paths.ModelDir, a.cfg.Model.ArtifactName)
}

func closeWithLog(ctx context.Context, name string, c io.Closer) {
	if err := c.Close(); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("resource", name).Msg("Failed to close resource")
	}
}
