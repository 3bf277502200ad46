// HikePlanner - Hiking Track Curation and Duration Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hikeplanner

package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomtom215/hikeplanner/internal/api"
	"github.com/tomtom215/hikeplanner/internal/logging"
	"github.com/tomtom215/hikeplanner/internal/model"
	"github.com/tomtom215/hikeplanner/internal/supervisor"
	"github.com/tomtom215/hikeplanner/internal/supervisor/services"
)

func newServeCmd(a *app) *cobra.Command {
	var modelPath string
	cmd := &cobra.Command{
		Use:   "serve [--model path]",
		Short: "Serve duration predictions over HTTP.",
		Long: `Starts the prediction API. The model is read from --model when given,
otherwise from the newest hikeplanner-model-<n> container when blob storage
is configured, otherwise from the local model directory. With
MODEL_REFRESH_INTERVAL set, newer containers are picked up while running.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd.Context(), modelPath)
		},
	}
	cmd.Flags().StringVar(&modelPath, "model", "", "local model artifact, disables blob lookup")
	return cmd
}

func (a *app) serve(ctx context.Context, modelPath string) error {
	handler := api.NewHandler(nil)

	var refresh *services.ModelRefreshService
	switch {
	case modelPath != "":
		m, err := model.Load(modelPath)
		if err != nil {
			return err
		}
		handler.SetModel(m, modelPath)

	case a.cfg.Blob.Configured():
		src, err := a.modelSource()
		if err != nil {
			return err
		}
		current := ""
		m, container, err := src.FetchLatest(ctx)
		switch {
		case err == nil:
			handler.SetModel(m, container)
			current = container
		case a.cfg.Model.RefreshInterval > 0:
			logging.Warn().Err(err).Msg("No model available yet, serving 503 until one is published")
		default:
			return fmt.Errorf("load model from blob storage: %w", err)
		}
		if a.cfg.Model.RefreshInterval > 0 {
			refresh = services.NewModelRefreshService(src, handler, current, a.cfg.Model.RefreshInterval)
		}

	default:
		m, err := model.Load(a.artifactPath())
		if err != nil {
			return fmt.Errorf("no blob storage configured and no local model: %w", err)
		}
		handler.SetModel(m, a.artifactPath())
	}

	server := &http.Server{
		Addr:              a.cfg.Server.Addr(),
		Handler:           api.NewRouter(handler, api.MiddlewareConfigFrom(a.cfg.Server)),
		ReadTimeout:       a.cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      a.cfg.Server.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: a.cfg.Server.ShutdownTimeout + time.Second,
	})
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}
	tree.AddAPIService(services.NewHTTPServerService(server, a.cfg.Server.ShutdownTimeout))
	if refresh != nil {
		tree.AddModelService(refresh)
	}

	logging.Info().Str("addr", server.Addr).Bool("model_refresh", refresh != nil).Msg("Starting prediction service")
	err = tree.Serve(ctx)

	if report, rerr := tree.UnstoppedServiceReport(); rerr == nil && len(report) > 0 {
		logging.Warn().Int("count", len(report)).Msg("Services did not stop within the shutdown timeout")
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logging.Info().Msg("Prediction service stopped")
	return nil
}
