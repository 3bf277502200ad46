// HikePlanner - Hiking Track Curation and Duration Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hikeplanner

package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tomtom215/hikeplanner/internal/ledger"
	"github.com/tomtom215/hikeplanner/internal/logging"
	"github.com/tomtom215/hikeplanner/internal/model"
	"github.com/tomtom215/hikeplanner/internal/store"
)

func newModelCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "model",
		Short: "Train, publish, fetch and query the duration model.",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "train",
			Short: "Fit the duration model on the document collection and write the artifact.",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.runStage(cmd.Context(), ledger.StageTrain, a.train)
			},
		},
		&cobra.Command{
			Use:   "publish",
			Short: "Upload the local artifact as the next hikeplanner-model-<n> container.",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.runStage(cmd.Context(), ledger.StagePublish, a.publish)
			},
		},
		&cobra.Command{
			Use:   "fetch",
			Short: "Download the newest model container into the model directory.",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.runStage(cmd.Context(), ledger.StageFetch, a.fetch)
			},
		},
		newPredictCmd(a),
	)
	return cmd
}

func (a *app) train(ctx context.Context) (map[string]int64, error) {
	coll, err := store.Open(ctx, a.cfg.Store)
	if err != nil {
		return nil, err
	}
	defer closeWithLog(ctx, "collection", coll)

	m, stats, err := model.Train(ctx, coll)
	counters := stats.Counters()
	if err != nil {
		return counters, err
	}

	if err := os.MkdirAll(a.cfg.Paths.ModelDir, 0o750); err != nil {
		return counters, fmt.Errorf("create model directory: %w", err)
	}
	if err := m.Save(a.artifactPath()); err != nil {
		return counters, err
	}
	logging.Ctx(ctx).Info().Str("path", a.artifactPath()).Float64("r2", m.R2).Msg("Model artifact written")
	return counters, nil
}

func (a *app) publish(ctx context.Context) (map[string]int64, error) {
	src, err := a.modelSource()
	if err != nil {
		return nil, err
	}
	m, err := model.Load(a.artifactPath())
	if err != nil {
		return nil, err
	}
	container, err := src.Publish(ctx, m)
	if err != nil {
		return nil, err
	}
	logging.Ctx(ctx).Info().Str("container", container).Msg("Model published")
	return map[string]int64{"samples": int64(m.Samples)}, nil
}

func (a *app) fetch(ctx context.Context) (map[string]int64, error) {
	src, err := a.modelSource()
	if err != nil {
		return nil, err
	}
	m, container, err := src.FetchLatest(ctx)
	if err != nil {
		return nil, err
	}
	logging.Ctx(ctx).Info().Str("container", container).Str("path", a.artifactPath()).Msg("Model fetched")
	return map[string]int64{"samples": int64(m.Samples)}, nil
}

func newPredictCmd(a *app) *cobra.Command {
	var downhill, uphill, length int
	cmd := &cobra.Command{
		Use:   "predict --uphill m --downhill m --length m",
		Short: "Print the model, DIN 33466 and SAC estimates for one hike.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if downhill < 0 || uphill < 0 || length < 0 {
				return fmt.Errorf("downhill, uphill and length must not be negative")
			}
			m, err := model.Load(a.artifactPath())
			if err != nil {
				return err
			}
			d, u, l := float64(downhill), float64(uphill), float64(length)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "model:    %s\n", model.FormatMinutes(m.Predict(model.Input{Downhill: d, Uphill: u, Length3D: l})))
			fmt.Fprintf(out, "din33466: %s\n", model.FormatMinutes(model.DIN33466(u, d, l)))
			fmt.Fprintf(out, "sac:      %s\n", model.FormatMinutes(model.SAC(u, l)))
			return nil
		},
	}
	cmd.Flags().IntVar(&downhill, "downhill", 0, "total descent in metres")
	cmd.Flags().IntVar(&uphill, "uphill", 0, "total ascent in metres")
	cmd.Flags().IntVar(&length, "length", 0, "distance in metres")
	return cmd
}
