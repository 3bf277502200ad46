// HikePlanner - Hiking Track Curation and Duration Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hikeplanner

// Package commands holds the hikeplanner cobra command tree.
package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tomtom215/hikeplanner/internal/config"
	"github.com/tomtom215/hikeplanner/internal/logging"
)

// app carries state shared by every command once the root has run.
type app struct {
	configPath string
	cfg        *config.Config
}

var state = &app{}

var rootCmd = newRootCmd(state)

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "hikeplanner",
		Short:         "Curate hiking tracks, extract features and predict hiking durations.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg
			logging.Init(logging.Config{
				Level:     cfg.Logging.Level,
				Format:    cfg.Logging.Format,
				Caller:    cfg.Logging.Caller,
				Timestamp: true,
				Output:    cmd.ErrOrStderr(),
			})
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML config file (default: CONFIG_PATH or ./config.yaml)")

	cmd.AddCommand(
		newCurateCmd(a),
		newLoadCmd(a),
		newRawCmd(a),
		newModelCmd(a),
		newServeCmd(a),
		newStatusCmd(a),
	)
	return cmd
}

// Execute runs the command tree and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		logging.Error().Err(err).Msg("Command failed")
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
