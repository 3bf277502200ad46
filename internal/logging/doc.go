// HikePlanner - Hiking Track Curation and Duration Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hikeplanner

// Package logging provides centralized zerolog-based structured logging for HikePlanner.
//
// Every pipeline stage (curate, load, train, serve) logs through the global
// logger configured here. JSON output is the default; console output is
// available for interactive runs.
//
// # Quick Start
//
//	logging.Init(logging.Config{
//	    Level:  "info",
//	    Format: "console",
//	})
//
//	logging.Info().Int("kept", n).Msg("Curation finished")
//
// # Run Context
//
// A pipeline run carries a run ID and a stage name through its context so
// that every line emitted on behalf of the run can be correlated:
//
//	ctx = logging.ContextWithRun(ctx, logging.NewRunID(), "load")
//	logging.Ctx(ctx).Info().Int("batch", idx).Msg("Inserting batch")
//	// {"level":"info","run_id":"...","stage":"load","batch":3,...}
//
// # Suture Integration
//
// SlogHandler adapts the global zerolog logger to log/slog so that
// sutureslog can report supervisor events through it.
//
// # Configuration
//
// Environment Variables (mapped by internal/config):
//   - LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - LOG_FORMAT: json, console (default: json)
//   - LOG_CALLER: include caller file:line (default: false)
package logging
