// HikePlanner - Hiking Track Curation and Duration Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hikeplanner

package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/tomtom215/hikeplanner/internal/ledger"
)

func newStatusCmd(a *app) *cobra.Command {
	var (
		stage string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "status [--stage name [--limit n]]",
		Short: "Show the latest run of every pipeline stage, or the history of one.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.openLedger()
			if err != nil {
				return err
			}
			defer closeWithLog(cmd.Context(), "ledger", store)

			if stage != "" {
				runs, err := store.List(cmd.Context(), stage, limit)
				if err != nil {
					return err
				}
				return printRuns(cmd.OutOrStdout(), runs)
			}
			runs, err := latestRuns(cmd.Context(), store)
			if err != nil {
				return err
			}
			return printRuns(cmd.OutOrStdout(), runs)
		},
	}
	cmd.Flags().StringVar(&stage, "stage", "", "list runs of one stage, newest first")
	cmd.Flags().IntVar(&limit, "limit", 10, "maximum runs listed with --stage")
	return cmd
}

func latestRuns(ctx context.Context, store ledger.Store) ([]*ledger.Run, error) {
	var runs []*ledger.Run
	for _, stage := range ledger.Stages {
		run, err := store.Latest(ctx, stage)
		if errors.Is(err, ledger.ErrNoRuns) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("latest %s run: %w", stage, err)
		}
		runs = append(runs, run)
	}
	return runs, nil
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(w)
	return t
}

func printRuns(w io.Writer, runs []*ledger.Run) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "no runs recorded")
		return err
	}
	t := newTable(w)
	t.AppendHeader(table.Row{"Stage", "Started", "Duration", "Result", "Counters"})
	for _, r := range runs {
		result := "ok"
		switch {
		case r.FinishedAt.IsZero():
			result = "unfinished"
		case r.Error != "":
			result = "failed: " + r.Error
		}
		t.AppendRow(table.Row{
			r.Stage,
			r.StartedAt.Local().Format(time.DateTime),
			r.Duration().Round(time.Millisecond),
			result,
			formatCounters(r.Counters),
		})
	}
	t.Render()
	return nil
}

func formatCounters(counters map[string]int64) string {
	keys := slices.Sorted(maps.Keys(counters))
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%d", k, counters[k])
	}
	return strings.Join(parts, " ")
}
