// HikePlanner - Hiking Track Curation and Duration Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hikeplanner

// Command hikeplanner runs the track curation pipeline and the duration
// prediction service.
//
// # Pipeline
//
//	hikeplanner raw download        # fetch the newest hikeplanner-raw-data-<n> container
//	hikeplanner curate              # raw CSV -> canonical .gpx files + tracks.jl
//	hikeplanner load                # tracks.jl + .gpx -> feature documents (replace-all)
//	hikeplanner model train         # feature documents -> model.json
//	hikeplanner model publish       # model.json -> hikeplanner-model-<n+1>
//	hikeplanner serve               # prediction API on :8080
//
// Each pipeline stage records a run in the ledger; `hikeplanner status`
// shows the latest run per stage.
//
// # Configuration
//
// Settings come from built-in defaults, an optional YAML file (--config or
// CONFIG_PATH) and environment variables, in that order. See the config
// package for the full list.
//
// # Signals
//
// SIGINT and SIGTERM cancel the running command. Batch stages stop at the
// next record boundary; the bulk loader discards its staging collection and
// leaves the live one untouched. serve drains in-flight requests.
package main

import "github.com/tomtom215/hikeplanner/cmd/hikeplanner/commands"

func main() {
	commands.Execute()
}
