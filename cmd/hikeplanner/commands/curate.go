// HikePlanner - Hiking Track Curation and Duration Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hikeplanner

package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tomtom215/hikeplanner/internal/curate"
	"github.com/tomtom215/hikeplanner/internal/ledger"
	"github.com/tomtom215/hikeplanner/internal/logging"
)

func newCurateCmd(a *app) *cobra.Command {
	var input string
	cmd := &cobra.Command{
		Use:   "curate [--input raw.csv]",
		Short: "Rewrite scraped GPX tracks as canonical files and write the metadata stream.",
		Long: `Reads the scraped CSV (one row per track with _id and gpx columns), keeps
every row whose gpx parses and holds at least one point, and writes
<track_dir>/<id>.gpx plus one JSON line per kept track to the metadata file.
Both output directories are cleared first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if input == "" {
				input = a.cfg.Paths.RawCSV
			}
			return a.runStage(cmd.Context(), ledger.StageCurate, func(ctx context.Context) (map[string]int64, error) {
				return a.curateCSV(ctx, input)
			})
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "raw CSV input (default: paths.raw_csv)")
	cmd.AddCommand(newCurateDirCmd(a))
	return cmd
}

func (a *app) curateCSV(ctx context.Context, input string) (map[string]int64, error) {
	f, err := os.Open(input)
	if err != nil {
		return nil, fmt.Errorf("open raw input: %w", err)
	}
	defer closeWithLog(ctx, "raw input", f)

	src, err := curate.NewCSVSource(bufio.NewReaderSize(f, 1<<20))
	if err != nil {
		return nil, err
	}

	c := curate.New(curate.Options{
		TrackDir:      a.cfg.Paths.TrackDir,
		MetadataPath:  a.cfg.Paths.Metadata,
		ProgressEvery: a.cfg.Curate.ProgressEvery,
	})
	summary, err := c.Run(ctx, src)
	if summary == nil {
		return nil, err
	}
	logging.Ctx(ctx).Info().
		Int64("kept", summary.Kept).
		Int64("skipped_empty", summary.SkippedEmpty).
		Int64("skipped_invalid", summary.SkippedInvalid).
		Float64("records_per_second", summary.RecordsPerSecond()).
		Msg("Curation summary")
	return summary.Counters(), err
}

func newCurateDirCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dir <input-dir> <output-dir>",
		Short: "Rewrite every .gpx file of a directory in canonical form.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runStage(cmd.Context(), ledger.StageRecurate, func(ctx context.Context) (map[string]int64, error) {
				summary, err := curate.Recurate(ctx, args[0], args[1], a.cfg.Curate.ProgressEvery)
				if summary == nil {
					return nil, err
				}
				return summary.Counters(), err
			})
		},
	}
}
