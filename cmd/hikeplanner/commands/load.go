// HikePlanner - Hiking Track Curation and Duration Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hikeplanner

package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/tomtom215/hikeplanner/internal/features"
	"github.com/tomtom215/hikeplanner/internal/ledger"
	"github.com/tomtom215/hikeplanner/internal/loader"
	"github.com/tomtom215/hikeplanner/internal/logging"
	"github.com/tomtom215/hikeplanner/internal/store"
)

func newLoadCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "load",
		Short: "Replace the document collection with features of every curated track.",
		Long: `Streams the metadata file in batches, extracts features for each track and
inserts the documents into a staging collection. The staging collection
replaces the live one only after every batch succeeded; on failure or
interrupt the live collection is left as it was.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runStage(cmd.Context(), ledger.StageLoad, a.load)
		},
	}
}

func (a *app) load(ctx context.Context) (map[string]int64, error) {
	coll, err := store.Open(ctx, a.cfg.Store)
	if err != nil {
		return nil, err
	}
	defer closeWithLog(ctx, "collection", coll)

	l := loader.New(coll, features.NewExtractor(a.cfg.Paths.TrackDir), loader.Options{
		BatchSize: a.cfg.Load.BatchSize,
		Workers:   a.cfg.Load.Workers,
		OnBatch: func(p loader.BatchProgress) {
			logging.Ctx(ctx).Debug().
				Int("batch", p.Batch).
				Int("size", p.Size).
				Int("inserted", p.Inserted).
				Msg("Batch loaded")
		},
	})
	stats, err := l.Load(ctx, a.cfg.Paths.Metadata)
	if stats == nil {
		return nil, err
	}
	return stats.Counters(), err
}
