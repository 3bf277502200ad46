// HikePlanner - Hiking Track Curation and Duration Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hikeplanner

package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/tomtom215/hikeplanner/internal/ledger"
	"github.com/tomtom215/hikeplanner/internal/logging"
)

func newRawCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "raw",
		Short: "Move the scraped raw data to and from versioned blob containers.",
	}

	var dir string
	upload := &cobra.Command{
		Use:   "upload [--dir path]",
		Short: "Upload a directory as the next hikeplanner-raw-data-<n> container.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runStage(cmd.Context(), ledger.StageUploadRaw, func(ctx context.Context) (map[string]int64, error) {
				return a.transferRaw(ctx, dir, true)
			})
		},
	}
	download := &cobra.Command{
		Use:   "download [--dir path]",
		Short: "Replace a directory with the newest hikeplanner-raw-data-<n> container.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runStage(cmd.Context(), ledger.StageFetchRaw, func(ctx context.Context) (map[string]int64, error) {
				return a.transferRaw(ctx, dir, false)
			})
		},
	}
	for _, c := range []*cobra.Command{upload, download} {
		c.Flags().StringVar(&dir, "dir", "", "local raw data directory (default: paths.raw_dir)")
	}

	cmd.AddCommand(upload, download)
	return cmd
}

func (a *app) transferRaw(ctx context.Context, dir string, upload bool) (map[string]int64, error) {
	if dir == "" {
		dir = a.cfg.Paths.RawDir
	}
	client, err := a.blobClient()
	if err != nil {
		return nil, err
	}

	var (
		container string
		n         int
	)
	if upload {
		container, n, err = client.UploadDir(ctx, a.cfg.Blob.RawPrefix, dir)
	} else {
		container, n, err = client.DownloadLatest(ctx, a.cfg.Blob.RawPrefix, dir)
	}
	if err == nil {
		logging.Ctx(ctx).Info().Str("container", container).Str("dir", dir).Int("objects", n).Msg("Raw data transferred")
	}
	return map[string]int64{"objects": int64(n)}, err
}
